package tui

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
	"github.com/taskdesk-dev/taskdesk/internal/models"
)

type bootstrapDoneMsg struct{}

type loginDoneMsg struct {
	user models.User
	err  error
}

type csrfRefreshedMsg struct{ err error }

type dataMsg struct {
	snap store.Snapshot
	err  error
}

type taskSavedMsg struct {
	task models.Task
	err  error
}

type deletedMsg struct {
	tab tab
	id  int64
	err error
}

type exportedMsg struct {
	path string
	rows int
	err  error
}

type logoutDoneMsg struct{ err error }

func (m model) bootstrap() tea.Cmd {
	ctx, ctrl := m.ctx, m.opts.Session
	return func() tea.Msg {
		ctrl.Bootstrap(ctx)
		return bootstrapDoneMsg{}
	}
}

func (m model) login(username, password string) tea.Cmd {
	ctx, ctrl := m.ctx, m.opts.Session
	return func() tea.Msg {
		user, err := ctrl.Login(ctx, username, password)
		return loginDoneMsg{user: user, err: err}
	}
}

func (m model) refreshCSRF() tea.Cmd {
	ctx, ctrl := m.ctx, m.opts.Session
	return func() tea.Msg {
		return csrfRefreshedMsg{err: ctrl.RefreshCSRF(ctx)}
	}
}

func (m model) load() tea.Cmd {
	ctx, s := m.ctx, m.opts.Store
	return func() tea.Msg {
		snap, err := s.LoadAll(ctx)
		return dataMsg{snap: snap, err: err}
	}
}

func (m model) setStatus(id int64, status models.Status) tea.Cmd {
	ctx, s := m.ctx, m.opts.Store
	return func() tea.Msg {
		task, err := s.SetTaskStatus(ctx, id, status)
		return taskSavedMsg{task: task, err: err}
	}
}

func (m model) remove(p pendingDelete) tea.Cmd {
	ctx, s := m.ctx, m.opts.Store
	return func() tea.Msg {
		var err error
		switch p.tab {
		case tabTasks:
			err = s.Tasks.Delete(ctx, p.id)
		case tabClients:
			err = s.Clients.Delete(ctx, p.id)
		case tabWorkers:
			err = s.Workers.Delete(ctx, p.id)
		}
		return deletedMsg{tab: p.tab, id: p.id, err: err}
	}
}

// export writes the current tab's filtered rows, uncapped, as CSV
func (m model) export() tea.Cmd {
	var (
		entity string
		csv    string
		err    error
		rows   int
	)
	q := m.search.Value()
	switch m.tab {
	case tabTasks:
		entity = "tasks"
		list := view.FilterTasks(m.snap.Tasks, q)
		rows = len(list)
		csv, err = view.TasksCSV(list)
	case tabClients:
		entity = "clients"
		list := view.FilterClients(m.snap.Clients, q)
		rows = len(list)
		csv, err = view.ClientsCSV(list)
	case tabWorkers:
		entity = "workers"
		list := view.FilterWorkers(m.snap.Workers, q)
		rows = len(list)
		csv, err = view.WorkersCSV(list)
	default:
		return nil
	}
	path := filepath.Join(m.opts.ExportDir, view.ExportFilename(entity, m.opts.Now()))
	return func() tea.Msg {
		if err != nil {
			return exportedMsg{err: err}
		}
		if werr := os.WriteFile(path, []byte(csv), 0644); werr != nil {
			return exportedMsg{err: fmt.Errorf("failed to write %s: %w", path, werr)}
		}
		return exportedMsg{path: path, rows: rows}
	}
}

func (m model) logout() tea.Cmd {
	ctx, ctrl := m.ctx, m.opts.Session
	return func() tea.Msg {
		return logoutDoneMsg{err: ctrl.Logout(ctx)}
	}
}
