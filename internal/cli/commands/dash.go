package commands

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/cli/tui"
	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
)

// NewDashCmd creates the dash command
func NewDashCmd(g *Globals) *cobra.Command {
	var exportDir, refresh string

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := tui.ParseRefresh(refresh)
			if err != nil {
				return err
			}
			return runDash(cmd.Context(), dashOptions{exportDir: exportDir, refresh: schedule}, g.options()...)
		},
	}

	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "Directory for CSV exports")
	cmd.Flags().StringVar(&refresh, "refresh", tui.DefaultRefresh, "Reload schedule: cron expression, @every <duration>, or off")

	return cmd
}

type dashOptions struct {
	exportDir string
	refresh   cron.Schedule
}

func runDash(ctx context.Context, opts dashOptions, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	if !isTerminal(r.out) {
		return fmt.Errorf("dash needs an interactive terminal; use 'taskdesk tasks ls' for scripts")
	}
	c, err := r.connect()
	if err != nil {
		return err
	}

	view.ApplyColorProfile(r.out)
	return tui.Run(ctx, tui.Options{
		Session:    c.session,
		Store:      c.store,
		Deployment: fmt.Sprintf("%s (%s)", r.server.Alias, r.server.URL),
		ExportDir:  opts.exportDir,
		Now:        r.now,
		Refresh:    opts.refresh,
	})
}
