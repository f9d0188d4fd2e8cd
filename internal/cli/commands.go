package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/devfolio/portfolio-api/internal/admin"
	"github.com/devfolio/portfolio-api/internal/dashboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readSecret reads a password without echo from a terminal, or one line
// from in otherwise.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as the site admin and store the tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				p, err := readSecret(cmd, "Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			tp, err := a.dashboard().Client.Login(ctx, username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			a.cfg.Token = tp.AccessToken
			a.cfg.RefreshToken = tp.RefreshToken
			if err := a.cfg.Save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), OKStyle.Render("Logged in as "+tp.User.Username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", os.Getenv("PORTFOLIOCTL_USERNAME"), "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RefreshToken == "" && a.cfg.Token == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			err := a.dashboard().Client.Logout(ctx, a.cfg.RefreshToken)
			a.cfg.Token, a.cfg.RefreshToken = "", ""
			if serr := a.cfg.Save(a.configPath); serr != nil {
				return serr
			}
			if err != nil {
				return fmt.Errorf("server logout failed, local tokens removed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), OKStyle.Render("Logged out."))
			return nil
		},
	}
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"overview"},
		Short:   "Show the overview counters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			d := a.dashboard()
			if err := d.Refresh(ctx); err != nil {
				return err
			}
			m, st := d.Metrics(), d.Status()
			if a.json() {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"metrics": m, "status": st})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDashboard(m, st))
			return nil
		},
	}
}

func card(title string, lines ...string) string {
	return CardStyle.Render(TitleStyle.Render(title) + "\n" + strings.Join(lines, "\n"))
}

func stat(label string, v any) string {
	return LabelStyle.Render(label+": ") + fmt.Sprint(v)
}

func renderDashboard(m dashboard.Metrics, st dashboard.Status) string {
	bySource := make([]string, 0, len(m.MessagesBySource))
	for _, src := range []string{"contact", "portfolio", "blog"} {
		bySource = append(bySource, fmt.Sprintf("%s %d", src, m.MessagesBySource[src]))
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Messages",
			stat("total", m.TotalMessages),
			stat("unread", m.UnreadMessages),
			LabelStyle.Render(strings.Join(bySource, " · "))),
		card("Ratings",
			stat("average", strconv.FormatFloat(m.AverageRating, 'f', 1, 64)+" "+stars(int(m.AverageRating+0.5))),
			stat("total", m.TotalRatings),
			stat("5-star", m.FiveStarRatings)),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Blog posts",
			stat("total", m.TotalPosts),
			stat("published", m.PublishedPosts),
			stat("draft", m.DraftPosts)),
		card("Projects",
			stat("active", m.ActiveProjects),
			stat("completed", m.CompletedProjects),
			stat("pending", m.PendingProjects)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom, statusLine(st))
}

func statusLine(st dashboard.Status) string {
	switch {
	case st.Diverged:
		return WarnStyle.Render(fmt.Sprintf("● %s: %d local change(s) not on the server", st.Mode, st.LocalChanges))
	case st.LastError != "":
		return ErrorStyle.Render(fmt.Sprintf("● %s: %s", st.Mode, st.LastError))
	case st.Mode == dashboard.ModeOffline:
		return LabelStyle.Render("● offline")
	}
	return OKStyle.Render(fmt.Sprintf("● %s: in sync", st.Mode))
}

func newRatingsCmd(a *app) *cobra.Command {
	cmd := ratingsCollection.command(a)
	var comment string
	submit := &cobra.Command{
		Use:   "submit <1-5>",
		Short: "Submit a rating through the public rating form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[0])
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.dashboard().SubmitRating(ctx, score, comment); err != nil {
				return err
			}
			a.warnDiverged(cmd.ErrOrStderr())
			fmt.Fprintln(cmd.OutOrStdout(), OKStyle.Render("Rating submitted"))
			return nil
		},
	}
	submit.Flags().StringVar(&comment, "comment", "", "optional comment")
	cmd.AddCommand(submit)
	return cmd
}

func newContactCmd(a *app) *cobra.Command {
	var form dashboard.ContactForm
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message through the public contact form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			err := form.Submit(ctx, a.dashboard().Client, func(s string) {
				if s == dashboard.ContactSending {
					fmt.Fprintln(cmd.ErrOrStderr(), LabelStyle.Render(s))
				}
			})
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), ErrorStyle.Render(form.Status))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), OKStyle.Render(form.Status))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "your name")
	f.StringVar(&form.Email, "email", "", "your e-mail address")
	f.StringVar(&form.Subject, "subject", "", "subject")
	f.StringVar(&form.Message, "message", "", "message")
	for _, name := range []string{"name", "email", "subject", "message"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				p, err := readSecret(cmd, "Password: ")
				if err != nil {
					return err
				}
				pw = p
			}
			if pw == "" {
				return errors.New("empty password")
			}
			h, err := admin.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
