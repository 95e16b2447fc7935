package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"
)

// DefaultRefresh reloads the dashboard once a minute
const DefaultRefresh = "@every 1m"

// refreshTickMsg is sent by the refresh schedule
type refreshTickMsg struct{}

// ParseRefresh parses a --refresh value. "off" (or empty) disables the
// schedule; otherwise it is a 5-field cron expression or a descriptor such as
// "@every 30s" or "@hourly".
func ParseRefresh(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	switch strings.ToLower(spec) {
	case "", "off", "none":
		return nil, nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// startRefresh sends a refreshTickMsg to p on every activation of schedule.
// The returned func stops the scheduler.
func startRefresh(p *tea.Program, schedule cron.Schedule) func() {
	if schedule == nil {
		return func() {}
	}
	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(func() { p.Send(refreshTickMsg{}) }))
	c.Start()
	return func() { <-c.Stop().Done() }
}

// handleRefreshTick reloads the data unless the user is mid-action
func (m model) handleRefreshTick() (tea.Model, tea.Cmd) {
	if m.screen != screenDashboard || m.busy || m.confirm != nil {
		return m, nil
	}
	m.busy = true
	return m, m.load()
}
