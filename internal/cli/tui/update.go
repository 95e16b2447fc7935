package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdesk-dev/taskdesk/internal/cli/client"
	"github.com/taskdesk-dev/taskdesk/internal/cli/session"
	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.screen != screenSplash && !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bootstrapDoneMsg:
		if m.opts.Session.State() == session.Authenticated {
			return m.enterDashboard()
		}
		return m.enterLogin("")

	case refreshTickMsg:
		return m.handleRefreshTick()

	case loginDoneMsg:
		return m.handleLogin(msg)

	case csrfRefreshedMsg:
		m.busy = false
		if msg.err != nil {
			m.loginErr = "Service unavailable. Check your connection and try again."
		}
		return m, nil

	case dataMsg:
		m.busy = false
		if msg.err != nil {
			return m.handleError("Failed to load data", msg.err)
		}
		m.snap = msg.snap
		m.loaded = true
		m.errMsg = ""
		m.clampCursor()
		return m, nil

	case taskSavedMsg:
		m.busy = false
		if msg.err != nil {
			return m.handleError("Failed to update task", msg.err)
		}
		for i := range m.snap.Tasks {
			if m.snap.Tasks[i].ID == msg.task.ID {
				m.snap.Tasks[i] = msg.task
			}
		}
		m.flash = fmt.Sprintf("Task #%d is now %s", msg.task.ID, msg.task.Status.Label())
		return m, nil

	case deletedMsg:
		m.busy = false
		if msg.err != nil {
			return m.handleError(fmt.Sprintf("Failed to delete %s", msg.tab.entity()), msg.err)
		}
		m.flash = fmt.Sprintf("Deleted %s #%d", msg.tab.entity(), msg.id)
		// Deletes cascade server-side, so reload everything
		m.busy = true
		return m, m.load()

	case exportedMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.flash = fmt.Sprintf("Exported %d rows to %s", msg.rows, msg.path)
		return m, nil

	case logoutDoneMsg:
		m.snap = store.Snapshot{}
		m.loaded = false
		if msg.err != nil {
			return m.enterLogin("Signed out locally; the server could not be reached.")
		}
		return m.enterLogin("")

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenDashboard:
			return m.updateDashboard(msg)
		}
	}
	return m, nil
}

func (m model) enterDashboard() (tea.Model, tea.Cmd) {
	m.screen = screenDashboard
	m.loginErr = ""
	m.password.SetValue("")
	m.password.Blur()
	m.username.Blur()
	m.busy = true
	return m, m.load()
}

func (m model) enterLogin(notice string) (tea.Model, tea.Cmd) {
	m.screen = screenLogin
	m.busy = false
	m.confirm = nil
	m.detail = false
	m.searching = false
	m.loginErr = notice
	m.loginFocus = 0
	if m.hint.User != nil && m.username.Value() == "" {
		m.username.SetValue(m.hint.User.Username)
	}
	m.password.SetValue("")
	m.password.Blur()
	return m, m.username.Focus()
}

// handleError returns to the login screen when the session is gone and
// otherwise shows the error inline
func (m model) handleError(action string, err error) (tea.Model, tea.Cmd) {
	if client.IsUnauthorized(err) || m.opts.Session.State() != session.Authenticated {
		m.snap = store.Snapshot{}
		m.loaded = false
		return m.enterLogin("Your session has expired. Please sign in again.")
	}
	msg := err.Error()
	var herr *client.HTTPError
	if fields := client.FieldErrors(err); len(fields) > 0 {
		msg = strings.TrimSpace(client.FormatFieldErrors(fields))
	} else if errors.As(err, &herr) && herr.Message() != "" {
		msg = herr.Message()
	}
	m.errMsg = fmt.Sprintf("%s: %s", action, msg)
	return m, nil
}

func (m model) handleLogin(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err == nil {
		return m.enterDashboard()
	}

	var le *session.LoginError
	if !errors.As(msg.err, &le) {
		m.loginErr = msg.err.Error()
		return m, nil
	}
	switch le.Kind {
	case session.InvalidCredentials:
		m.loginErr = le.Message
		m.password.SetValue("")
	case session.StaleCSRF, session.NotReady:
		m.loginErr = "The security token expired. Press enter to try again."
		m.busy = true
		return m, m.refreshCSRF()
	default:
		m.loginErr = "Service unavailable. Try again later."
	}
	return m, nil
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		return m.toggleLoginFocus()
	case "enter":
		if m.loginFocus == 0 {
			return m.toggleLoginFocus()
		}
		user := strings.TrimSpace(m.username.Value())
		pass := m.password.Value()
		if user == "" || pass == "" {
			m.loginErr = "Username and password are required."
			return m, nil
		}
		m.busy = true
		m.loginErr = ""
		return m, tea.Batch(m.spinner.Tick, m.login(user, pass))
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m model) toggleLoginFocus() (tea.Model, tea.Cmd) {
	if m.loginFocus == 0 {
		m.loginFocus = 1
		m.username.Blur()
		return m, m.password.Focus()
	}
	m.loginFocus = 0
	m.password.Blur()
	return m, m.username.Focus()
}

func (m model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		return m.updateConfirm(msg)
	}
	if m.searching {
		return m.updateSearch(msg)
	}

	m.flash = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		if m.detail {
			m.detail = false
		} else if m.search.Value() != "" {
			m.search.SetValue("")
			m.clampCursor()
		}
		return m, nil
	case m.detail:
		// Only back and quit apply while the detail pane is open
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		m.switchTab((m.tab + 1) % tab(len(tabNames)))
	case key.Matches(msg, m.keys.PrevTab):
		m.switchTab((m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames)))
	case len(msg.String()) == 1 && msg.String() >= "1" && msg.String() <= "4":
		m.switchTab(tab(msg.String()[0] - '1'))
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Search):
		if m.tab != tabAnalytics {
			m.searching = true
			return m, m.search.Focus()
		}
	case key.Matches(msg, m.keys.Open):
		if _, ok := m.selectedTask(); ok {
			m.detail = true
		}
	case key.Matches(msg, m.keys.Status):
		if t, ok := m.selectedTask(); ok && !m.busy {
			m.busy = true
			return m, m.setStatus(t.ID, nextStatus(t.Status))
		}
	case key.Matches(msg, m.keys.Delete):
		if id, name, ok := m.selected(); ok {
			m.confirm = &pendingDelete{tab: m.tab, id: id, name: name}
		}
	case key.Matches(msg, m.keys.Export):
		m.errMsg = ""
		return m, m.export()
	case key.Matches(msg, m.keys.Refresh):
		m.busy = true
		return m, m.load()
	case key.Matches(msg, m.keys.Logout):
		m.busy = true
		return m, m.logout()
	}
	return m, nil
}

func (m *model) switchTab(t tab) {
	m.tab = t
	m.cursor = 0
	m.search.SetValue("")
	m.errMsg = ""
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		p := *m.confirm
		m.confirm = nil
		m.busy = true
		return m, m.remove(p)
	case "n", "esc", "q":
		m.confirm = nil
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.clampCursor()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.cursor = 0
	return m, cmd
}
