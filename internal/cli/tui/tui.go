// Package tui is the interactive dashboard: a bootstrap splash, the login
// screen, and tabs for tasks, clients, workers and analytics.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"

	"github.com/taskdesk-dev/taskdesk/internal/cli/session"
	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
)

// Options wires the dashboard to one deployment
type Options struct {
	Session    *session.Controller
	Store      *store.Store
	Deployment string
	// ExportDir receives CSV exports; defaults to the working directory
	ExportDir string
	Now       func() time.Time
	// Refresh reloads the data on a schedule; nil disables it
	Refresh cron.Schedule
}

// Run starts the dashboard and blocks until the user quits
func Run(ctx context.Context, opts Options) error {
	m := newModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	stop := startRefresh(p, opts.Refresh)
	defer stop()
	_, err := p.Run()
	return err
}
