package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
)

// NewAnalyticsCmd creates the analytics command
func NewAnalyticsCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:     "analytics",
		Aliases: []string{"stats"},
		Short:   "Show completion trends, status mix and workload",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalytics(cmd.Context(), g.options()...)
		},
	}
}

func runAnalytics(ctx context.Context, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	format, err := r.outputFormat()
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	snap, err := c.store.LoadAll(ctx)
	if err != nil {
		return describeError("failed to load dashboard data", err)
	}

	a := view.ComputeAnalytics(snap.Tasks, snap.Clients, snap.Workers, r.now())
	return view.Write(r.out, format, a, func(w io.Writer) error {
		view.ApplyColorProfile(w)
		_, err := io.WriteString(w, view.RenderAnalytics(a, terminalWidth(w)))
		return err
	})
}
