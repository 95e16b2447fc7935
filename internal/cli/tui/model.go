package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
	"github.com/taskdesk-dev/taskdesk/internal/cli/userconfig"
	"github.com/taskdesk-dev/taskdesk/internal/models"
)

type screen int

const (
	screenSplash screen = iota
	screenLogin
	screenDashboard
)

type tab int

const (
	tabTasks tab = iota
	tabClients
	tabWorkers
	tabAnalytics
)

var tabNames = []string{"Tasks", "Clients", "Workers", "Analytics"}

// entity is the singular name used in prompts and messages
func (t tab) entity() string {
	switch t {
	case tabClients:
		return "client"
	case tabWorkers:
		return "worker"
	default:
		return "task"
	}
}

type pendingDelete struct {
	tab  tab
	id   int64
	name string
}

type model struct {
	ctx    context.Context
	opts   Options
	keys   keyMap
	screen screen

	width  int
	height int

	spinner spinner.Model
	hint    userconfig.Session

	// login form
	username   textinput.Model
	password   textinput.Model
	loginFocus int
	loginErr   string
	busy       bool

	// dashboard
	tab       tab
	snap      store.Snapshot
	loaded    bool
	cursor    int
	search    textinput.Model
	searching bool
	detail    bool
	confirm   *pendingDelete
	flash     string
	errMsg    string
	help      help.Model
}

func newModel(ctx context.Context, opts Options) model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 150
	user.Prompt = "Username: "

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.Prompt = "Password: "

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search"

	return model{
		ctx:      ctx,
		opts:     opts,
		keys:     defaultKeyMap(),
		screen:   screenSplash,
		width:    100,
		height:   30,
		spinner:  sp,
		hint:     opts.Session.Optimistic(),
		username: user,
		password: pass,
		search:   search,
		help:     help.New(),
	}
}

// Init starts the bootstrap; nothing else renders until it completes
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bootstrap())
}

func (m model) visibleTasks() []models.Task {
	return filteredTasks(m.snap.Tasks, m.search.Value())
}

func (m model) visibleClients() []models.Client {
	return filteredClients(m.snap.Clients, m.search.Value())
}

func (m model) visibleWorkers() []models.Worker {
	return filteredWorkers(m.snap.Workers, m.search.Value())
}

func (m model) rowCount() int {
	switch m.tab {
	case tabTasks:
		return len(m.visibleTasks())
	case tabClients:
		return len(m.visibleClients())
	case tabWorkers:
		return len(m.visibleWorkers())
	}
	return 0
}

func (m *model) clampCursor() {
	n := m.rowCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) selectedTask() (models.Task, bool) {
	tasks := m.visibleTasks()
	if m.tab != tabTasks || m.cursor >= len(tasks) {
		return models.Task{}, false
	}
	return tasks[m.cursor], true
}

// selected returns the id and display name of the highlighted row
func (m model) selected() (int64, string, bool) {
	switch m.tab {
	case tabTasks:
		if t, ok := m.selectedTask(); ok {
			return t.ID, t.Description.Summary(40), true
		}
	case tabClients:
		if cs := m.visibleClients(); m.cursor < len(cs) {
			return cs[m.cursor].ID, cs[m.cursor].Name, true
		}
	case tabWorkers:
		if ws := m.visibleWorkers(); m.cursor < len(ws) {
			return ws[m.cursor].ID, ws[m.cursor].Name, true
		}
	}
	return 0, "", false
}

// nextStatus cycles through the workflow in display order
func nextStatus(s models.Status) models.Status {
	for i, known := range models.Statuses {
		if known == s {
			return models.Statuses[(i+1)%len(models.Statuses)]
		}
	}
	return models.StatusTodo
}
