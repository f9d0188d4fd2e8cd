package cli

import "github.com/charmbracelet/lipgloss"

var (
	Primary   = lipgloss.Color("#4ECDC4")
	SyncOK    = lipgloss.Color("#95E1A3")
	SyncWarn  = lipgloss.Color("#FFE66D")
	SyncError = lipgloss.Color("#FF6B6B")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1).
			Width(28)

	LabelStyle = lipgloss.NewStyle().Foreground(TextMuted)

	OKStyle    = lipgloss.NewStyle().Foreground(SyncOK)
	WarnStyle  = lipgloss.NewStyle().Foreground(SyncWarn)
	ErrorStyle = lipgloss.NewStyle().Foreground(SyncError)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary).Padding(0, 1)
	CellStyle   = lipgloss.NewStyle().Padding(0, 1)
)
