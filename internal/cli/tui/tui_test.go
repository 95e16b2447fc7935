package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk-dev/taskdesk/internal/apitest"
	"github.com/taskdesk-dev/taskdesk/internal/cli/auth"
	"github.com/taskdesk-dev/taskdesk/internal/cli/client"
	"github.com/taskdesk-dev/taskdesk/internal/cli/session"
	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
	"github.com/taskdesk-dev/taskdesk/internal/models"
	"github.com/taskdesk-dev/taskdesk/internal/richtext"
)

type fixture struct {
	srv   *apitest.Server
	ctrl  *session.Controller
	store *store.Store
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("TASKDESK_MD_STYLE", "notty")

	srv := apitest.New(t)
	api, err := client.New(srv.URL())
	require.NoError(t, err)

	ctrl := session.New(api, session.Options{
		LoginPath: srv.LoginPath(),
		Cookies:   auth.NewMemoryStore(),
		Logger:    zerolog.Nop(),
	})
	return &fixture{srv: srv, ctrl: ctrl, store: store.New(api), dir: t.TempDir()}
}

func (f *fixture) model() model {
	return newModel(context.Background(), Options{
		Session:    f.ctrl,
		Store:      f.store,
		Deployment: "test",
		ExportDir:  f.dir,
		Now:        func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) },
	})
}

// seed logs in and creates one client with one task
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ctrl.Login(ctx, apitest.DefaultUsername, apitest.DefaultPassword)
	require.NoError(t, err)

	c, err := f.store.Clients.Create(ctx, models.ClientInput{Name: "Acme"})
	require.NoError(t, err)
	_, err = f.store.CreateTask(ctx, models.TaskInput{Description: richtext.FromText("Fix the sink"), ClientID: &c.ID})
	require.NoError(t, err)
}

// step feeds msg to the model and returns the updated model and command
func step(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(model)
	require.True(t, ok)
	return updated, cmd
}

// run executes cmd and feeds its message back
func run(t *testing.T, m model, cmd tea.Cmd) (model, tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	return step(t, m, cmd())
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// dashboard bootstraps a seeded session and loads the data
func (f *fixture) dashboard(t *testing.T) model {
	t.Helper()
	f.seed(t)
	m := f.model()
	m, cmd := step(t, m, m.bootstrap()())
	require.Equal(t, screenDashboard, m.screen)
	m, _ = run(t, m, cmd)
	require.True(t, m.loaded)
	return m
}

func TestBootstrap_NoSessionShowsLogin(t *testing.T) {
	f := newFixture(t)
	m := f.model()
	assert.Equal(t, screenSplash, m.screen)

	m, _ = step(t, m, m.bootstrap()())
	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, session.Unauthenticated, f.ctrl.State())
	assert.Contains(t, m.View(), "Username")
}

func TestLogin_LoadsDashboard(t *testing.T) {
	f := newFixture(t)
	m := f.model()
	m, _ = step(t, m, m.bootstrap()())

	m, cmd := step(t, m, m.login(apitest.DefaultUsername, apitest.DefaultPassword)())
	assert.Equal(t, screenDashboard, m.screen)
	assert.True(t, m.busy)

	m, _ = run(t, m, cmd)
	assert.False(t, m.busy)
	assert.True(t, m.loaded)
	assert.Empty(t, m.snap.Tasks)
	assert.Contains(t, m.View(), "Tasks")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	m := f.model()
	m, _ = step(t, m, m.bootstrap()())
	m.password.SetValue("nope")

	m, _ = step(t, m, m.login("admin", "nope")())
	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, "Invalid credentials", m.loginErr)
	assert.Empty(t, m.password.Value())
}

func TestLogin_StaleTokenRefreshes(t *testing.T) {
	f := newFixture(t)
	m := f.model()
	m, _ = step(t, m, m.bootstrap()())
	f.srv.RevokeCSRF()

	m, cmd := step(t, m, m.login(apitest.DefaultUsername, apitest.DefaultPassword)())
	assert.Equal(t, screenLogin, m.screen)
	assert.Contains(t, m.loginErr, "security token expired")
	assert.True(t, m.busy)

	m, _ = run(t, m, cmd)
	assert.False(t, m.busy)

	m, _ = step(t, m, m.login(apitest.DefaultUsername, apitest.DefaultPassword)())
	assert.Equal(t, screenDashboard, m.screen)
}

func TestDashboard_RendersRows(t *testing.T) {
	f := newFixture(t)
	m := f.dashboard(t)

	out := m.View()
	assert.Contains(t, out, "Fix the sink")
	assert.Contains(t, out, "Acme")

	m, _ = step(t, m, keyPress("2"))
	assert.Equal(t, tabClients, m.tab)
	assert.Contains(t, m.View(), "Acme")

	m, _ = step(t, m, keyPress("4"))
	assert.Equal(t, tabAnalytics, m.tab)
	assert.Contains(t, m.View(), "Tasks by status")
}

func TestDashboard_StatusCycle(t *testing.T) {
	f := newFixture(t)
	m := f.dashboard(t)

	m, cmd := step(t, m, keyPress("s"))
	m, _ = run(t, m, cmd)

	require.Len(t, m.snap.Tasks, 1)
	assert.Equal(t, models.StatusInProgress, m.snap.Tasks[0].Status)
	assert.Equal(t, "Task #1 is now In Progress", m.flash)

	task, err := f.store.Tasks.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, task.Status)
}

func TestDashboard_DeleteNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	m := f.dashboard(t)

	m, _ = step(t, m, keyPress("d"))
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "Fix the sink")

	m, _ = step(t, m, keyPress("n"))
	assert.Nil(t, m.confirm)
	assert.Equal(t, 0, f.srv.RequestsTo("DELETE", "tasks/1/"))

	m, _ = step(t, m, keyPress("d"))
	m, cmd := step(t, m, keyPress("y"))
	m, cmd = run(t, m, cmd)
	assert.Equal(t, "Deleted task #1", m.flash)

	m, _ = run(t, m, cmd)
	assert.Empty(t, m.snap.Tasks)
	assert.Len(t, m.snap.Clients, 1)
}

func TestDashboard_ExportFilteredRows(t *testing.T) {
	f := newFixture(t)
	m := f.dashboard(t)

	m, cmd := step(t, m, keyPress("e"))
	m, _ = run(t, m, cmd)

	path := filepath.Join(f.dir, "tasks-2026-10-19.csv")
	assert.Equal(t, "Exported 1 rows to "+path, m.flash)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], `"1","Fix the sink","TODO","Acme",,`), lines[1])

	m.search.SetValue("nothing matches")
	m, cmd = step(t, m, keyPress("e"))
	m, _ = run(t, m, cmd)
	assert.Equal(t, "no data to export", m.errMsg)
}

func TestDashboard_Logout(t *testing.T) {
	f := newFixture(t)
	m := f.dashboard(t)

	m, cmd := step(t, m, keyPress("L"))
	m, _ = run(t, m, cmd)

	assert.Equal(t, screenLogin, m.screen)
	assert.Empty(t, m.loginErr)
	assert.False(t, m.loaded)
	assert.Equal(t, session.Unauthenticated, f.ctrl.State())
}

func TestDashboard_ExpiredSessionReturnsToLogin(t *testing.T) {
	f := newFixture(t)
	m := f.dashboard(t)
	f.srv.ExpireSessions()

	m, cmd := step(t, m, keyPress("r"))
	m, _ = run(t, m, cmd)

	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, "Your session has expired. Please sign in again.", m.loginErr)
	assert.Empty(t, m.snap.Tasks)
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, models.StatusInProgress, nextStatus(models.StatusTodo))
	assert.Equal(t, models.StatusTodo, nextStatus(models.StatusBlocked))
	assert.Equal(t, models.StatusTodo, nextStatus("unknown"))
}

func TestParseRefresh(t *testing.T) {
	for _, spec := range []string{"", "off", "None"} {
		s, err := ParseRefresh(spec)
		require.NoError(t, err, spec)
		assert.Nil(t, s, spec)
	}

	from := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	s, err := ParseRefresh(DefaultRefresh)
	require.NoError(t, err)
	assert.Equal(t, from.Add(time.Minute), s.Next(from))

	s, err = ParseRefresh("*/15 * * * *")
	require.NoError(t, err)
	assert.Equal(t, from.Add(15*time.Minute), s.Next(from))

	_, err = ParseRefresh("every minute")
	assert.ErrorContains(t, err, "invalid refresh schedule")
}

func TestRefreshTick(t *testing.T) {
	f := newFixture(t)
	m := f.dashboard(t)

	// New rows created elsewhere show up on the next tick
	_, err := f.store.CreateTask(context.Background(), models.TaskInput{Description: richtext.FromText("Paint the fence")})
	require.NoError(t, err)

	m, cmd := step(t, m, refreshTickMsg{})
	assert.True(t, m.busy)
	m, _ = run(t, m, cmd)
	assert.Len(t, m.snap.Tasks, 2)

	// A pending delete is never interrupted
	m, _ = step(t, m, keyPress("d"))
	require.NotNil(t, m.confirm)
	_, cmd = step(t, m, refreshTickMsg{})
	assert.Nil(t, cmd)
}

func TestRefreshTick_IgnoredOutsideDashboard(t *testing.T) {
	f := newFixture(t)
	m := f.model()
	m, _ = step(t, m, m.bootstrap()())
	require.Equal(t, screenLogin, m.screen)

	before := f.srv.Requests()
	_, cmd := step(t, m, refreshTickMsg{})
	assert.Nil(t, cmd)
	assert.Equal(t, before, f.srv.Requests())
}
