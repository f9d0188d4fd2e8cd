// Package cli implements portfolioctl, the command line admin dashboard.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/devfolio/portfolio-api/internal/dashboard"
	"github.com/devfolio/portfolio-api/pkg/logger"
	"github.com/spf13/cobra"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	server     string
	mode       string
	logLevel   string
	output     string
	timeout    time.Duration

	cfg  *Config
	dash *dashboard.Dashboard
}

func (a *app) statePath() string {
	return filepath.Join(filepath.Dir(a.configPath), "state.json")
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.configPath == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		a.configPath = p
	}
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("server") {
		cfg.Server = a.server
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = a.mode
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if _, err := dashboard.ParseMode(cfg.Mode); err != nil {
		return err
	}
	a.cfg = cfg
	logger.Init(cfg.LogLevel)
	logger.Debugf("portfolioctl %s: server=%s mode=%s", cmd.Name(), cfg.Server, cfg.Mode)
	return nil
}

// dashboard builds the dashboard on first use and restores the cached
// mirrors, so changes made without the server survive between runs.
func (a *app) dashboard() *dashboard.Dashboard {
	if a.dash != nil {
		return a.dash
	}
	mode, _ := dashboard.ParseMode(a.cfg.Mode)
	c := dashboard.NewClient(a.cfg.Server, dashboard.WithToken(a.cfg.Token))
	d := dashboard.New(c, mode)
	st, err := dashboard.LoadState(a.statePath())
	if err != nil {
		logger.Warnf("ignoring dashboard cache: %v", err)
	} else {
		d.Restore(st)
	}
	a.dash = d
	return d
}

func (a *app) save() error {
	if a.dash == nil {
		return nil
	}
	return dashboard.SaveState(a.statePath(), a.dash.Snapshot())
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func (a *app) json() bool { return a.output == "json" }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// warnDiverged prints the sync indicator after a change that did not reach
// the server.
func (a *app) warnDiverged(w io.Writer) {
	if a.dash == nil {
		return
	}
	if st := a.dash.Status(); st.Diverged && !a.json() {
		fmt.Fprintln(w, WarnStyle.Render(fmt.Sprintf("! %d local change(s) not on the server (%s mode)", st.LocalChanges, st.Mode)))
	}
}

// NewRootCmd builds the portfolioctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "portfolioctl",
		Short:         "Admin dashboard for the portfolio API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Sync()
			return a.save()
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default ~/.portfolioctl/config.yaml)")
	f.StringVar(&a.server, "server", "", "API base URL")
	f.StringVar(&a.mode, "mode", "", "online, fallback or offline")
	f.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVarP(&a.output, "output", "o", "table", "output format: table or json")
	f.DurationVar(&a.timeout, "timeout", 15*time.Second, "timeout for API calls")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newDashboardCmd(a),
		messagesCollection.command(a),
		postsCollection.command(a),
		projectsCollection.command(a),
		newRatingsCmd(a),
		newContactCmd(a),
		newHashPasswordCmd(),
	)
	return root
}

// Execute runs portfolioctl.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
