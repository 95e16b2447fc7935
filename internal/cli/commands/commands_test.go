package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/apitest"
	"github.com/taskdesk-dev/taskdesk/internal/cli/auth"
	"github.com/taskdesk-dev/taskdesk/internal/cli/config"
	"github.com/taskdesk-dev/taskdesk/internal/cli/session"
	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
	"github.com/taskdesk-dev/taskdesk/internal/cli/userconfig"
	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
	appconfig "github.com/taskdesk-dev/taskdesk/internal/config"
	"github.com/taskdesk-dev/taskdesk/internal/models"
	"github.com/taskdesk-dev/taskdesk/internal/richtext"
)

// memMirror is an in-memory session mirror
type memMirror struct {
	mu      sync.Mutex
	session userconfig.Session
}

func (m *memMirror) Load() (userconfig.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memMirror) Save(s userconfig.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}

func (m *memMirror) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = userconfig.Session{}
	return nil
}

// testEnv runs commands against an in-process backend
type testEnv struct {
	srv     *apitest.Server
	cookies *auth.MemoryStore
	mirror  *memMirror
	out     bytes.Buffer
	errOut  bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("TASKDESK_MD_STYLE", "notty")
	return &testEnv{
		srv:     apitest.New(t),
		cookies: auth.NewMemoryStore(),
		mirror:  &memMirror{},
	}
}

// opts resets the captured output and returns the options for one run
func (e *testEnv) opts(extra ...Option) []Option {
	e.out.Reset()
	e.errOut.Reset()
	base := []Option{
		WithServer(&config.Server{URL: e.srv.URL(), Alias: "test", LoginPath: e.srv.LoginPath()}),
		WithEnv(&appconfig.Config{API: appconfig.APIConfig{Timeout: 5 * time.Second}}),
		WithCookieStore(e.cookies),
		WithMirror(e.mirror),
		WithOutput(&e.out),
		WithErrOutput(&e.errOut),
		WithInput(strings.NewReader("")),
		WithClock(func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }),
	}
	return append(base, extra...)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	if err := runLogin(context.Background(), apitest.DefaultUsername, apitest.DefaultPassword, e.opts()...); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func (e *testEnv) hasStoredSession() bool {
	_, err := e.cookies.LoadCookies(e.srv.URL())
	return err == nil
}

func TestLogin_Success(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	if !strings.Contains(e.out.String(), "Login successful") {
		t.Errorf("expected success message, got: %s", e.out.String())
	}
	if !strings.Contains(e.out.String(), "User: admin") {
		t.Errorf("expected username in output, got: %s", e.out.String())
	}
	if !e.hasStoredSession() {
		t.Error("expected session cookies to be stored")
	}
	if !e.mirror.session.Authenticated || e.mirror.session.User == nil {
		t.Errorf("expected authenticated mirror, got %+v", e.mirror.session)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	e := newTestEnv(t)

	err := runLogin(context.Background(), "admin", "wrong", e.opts()...)
	if err == nil {
		t.Fatal("expected error for wrong password, got nil")
	}
	if session.KindOf(err) != session.InvalidCredentials {
		t.Errorf("expected InvalidCredentials, got %v (%v)", session.KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("expected server message in error, got: %v", err)
	}
	if e.hasStoredSession() {
		t.Error("expected no stored session after failed login")
	}
}

func TestLogin_PipedPassword(t *testing.T) {
	e := newTestEnv(t)

	err := runLogin(context.Background(), "admin", "", e.opts(WithInput(strings.NewReader("password\n")))...)
	if err != nil {
		t.Fatalf("expected success with piped password, got: %v", err)
	}
}

func TestLogin_EnvCredentials(t *testing.T) {
	e := newTestEnv(t)
	env := &appconfig.Config{
		API:         appconfig.APIConfig{Timeout: 5 * time.Second},
		Credentials: appconfig.CredentialsConfig{Username: "admin", Password: "password"},
	}

	if err := runLogin(context.Background(), "", "", e.opts(WithEnv(env))...); err != nil {
		t.Fatalf("expected success with env credentials, got: %v", err)
	}
}

func TestLogin_NonInteractiveNeedsUsername(t *testing.T) {
	e := newTestEnv(t)

	err := runLogin(context.Background(), "", "", e.opts()...)
	if err == nil || !strings.Contains(err.Error(), "username is required") {
		t.Fatalf("expected username error, got: %v", err)
	}
	if e.srv.Requests() != 0 {
		t.Errorf("expected no requests, got %d", e.srv.Requests())
	}
}

func TestStatus(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	if err := runStatus(ctx, false, e.opts()...); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Not logged in to test") {
		t.Errorf("expected not logged in, got: %s", e.out.String())
	}

	e.login(t)

	if err := runStatus(ctx, false, e.opts()...); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "as admin") {
		t.Errorf("expected logged in as admin, got: %s", e.out.String())
	}

	// Cached status reads the mirror only
	before := e.srv.Requests()
	if err := runStatus(ctx, true, e.opts()...); err != nil {
		t.Fatalf("cached status failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "as admin (cached)") {
		t.Errorf("expected cached status, got: %s", e.out.String())
	}
	if e.srv.Requests() != before {
		t.Errorf("cached status made %d requests", e.srv.Requests()-before)
	}

	if err := runStatus(ctx, false, e.opts(WithFormat("json"))...); err != nil {
		t.Fatalf("json status failed: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal(e.out.Bytes(), &report); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, e.out.String())
	}
	if !report.Authenticated || report.Username != "admin" || report.Deployment != "test" {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestStatus_TransportError(t *testing.T) {
	e := newTestEnv(t)
	e.srv.Fail(http.MethodGet, "auth/check/", http.StatusBadGateway)

	if err := runStatus(context.Background(), false, e.opts()...); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Could not reach test") {
		t.Errorf("expected transport error report, got: %s", e.out.String())
	}
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)

	if err := runLogout(ctx, e.opts()...); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Logged out of test") {
		t.Errorf("expected logout message, got: %s", e.out.String())
	}
	if e.hasStoredSession() {
		t.Error("expected stored session to be deleted")
	}
	if e.mirror.session.Authenticated {
		t.Error("expected mirror to be cleared")
	}

	if err := runLogout(ctx, e.opts()...); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Not logged in") {
		t.Errorf("expected not logged in, got: %s", e.out.String())
	}
}

func TestLogout_ServerFailureStillClearsLocalSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)
	e.srv.Fail(http.MethodPost, "auth/logout/", http.StatusInternalServerError)

	if err := runLogout(ctx, e.opts()...); err != nil {
		t.Fatalf("logout should not fail: %v", err)
	}
	if !strings.Contains(e.errOut.String(), "local session was cleared") {
		t.Errorf("expected warning, got: %s", e.errOut.String())
	}
	if e.hasStoredSession() {
		t.Error("expected stored session to be deleted")
	}

	err := runTaskList(ctx, taskListOptions{limit: 20}, e.opts()...)
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("expected not logged in after logout, got: %v", err)
	}
}

func TestTasks_RequireLogin(t *testing.T) {
	e := newTestEnv(t)

	err := runTaskList(context.Background(), taskListOptions{limit: 20}, e.opts()...)
	if err == nil {
		t.Fatal("expected error when not logged in, got nil")
	}
	if !strings.Contains(err.Error(), "not logged in to test") {
		t.Errorf("expected login hint, got: %v", err)
	}
}

func TestTasks_Lifecycle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)

	if err := runClientCreate(ctx, models.ClientInput{Name: "Acme"}, e.opts()...); err != nil {
		t.Fatalf("create client failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Created client #1 (Acme)") {
		t.Errorf("unexpected output: %s", e.out.String())
	}

	clientID := int64(1)
	in := models.TaskInput{Description: richtext.FromText("Fix the sink"), ClientID: &clientID}
	if err := runTaskCreate(ctx, in, e.opts()...); err != nil {
		t.Fatalf("create task failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Created task #1 (To Do)") {
		t.Errorf("unexpected output: %s", e.out.String())
	}

	if err := runTaskList(ctx, taskListOptions{limit: 20}, e.opts()...); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"Tasks on test", "DESCRIPTION", "Fix the sink", "Acme", "To Do"} {
		if !strings.Contains(e.out.String(), want) {
			t.Errorf("expected %q in list, got: %s", want, e.out.String())
		}
	}

	if err := runTaskStatus(ctx, 1, models.StatusDone, e.opts()...); err != nil {
		t.Fatalf("status change failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Task #1 is now Done") {
		t.Errorf("unexpected output: %s", e.out.String())
	}

	if err := runTaskList(ctx, taskListOptions{limit: 20, statuses: []string{"todo"}}, e.opts()...); err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "No matching tasks.") {
		t.Errorf("expected no matches, got: %s", e.out.String())
	}

	notes := "bring the wrench"
	if err := runTaskUpdate(ctx, 1, models.TaskPatch{Notes: &notes}, e.opts()...); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if err := runTaskList(ctx, taskListOptions{limit: 20}, e.opts(WithFormat("json"))...); err != nil {
		t.Fatalf("json list failed: %v", err)
	}
	var tasks []models.Task
	if err := json.Unmarshal(e.out.Bytes(), &tasks); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, e.out.String())
	}
	if len(tasks) != 1 || tasks[0].Status != models.StatusDone || tasks[0].Notes != notes {
		t.Errorf("unexpected tasks: %+v", tasks)
	}

	if err := runTaskShow(ctx, 1, e.opts()...); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"Task #1", "Done", "Acme", "Fix the sink", notes} {
		if !strings.Contains(e.out.String(), want) {
			t.Errorf("expected %q in detail, got: %s", want, e.out.String())
		}
	}
}

func TestTaskUpdate_EmptyPatch(t *testing.T) {
	err := runTaskUpdate(context.Background(), 1, models.TaskPatch{})
	if !errors.Is(err, store.ErrEmptyPatch) {
		t.Errorf("expected ErrEmptyPatch, got: %v", err)
	}
}

func TestTaskList_Limit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)

	for _, d := range []string{"one", "two", "three"} {
		if err := runTaskCreate(ctx, models.TaskInput{Description: richtext.FromText(d)}, e.opts()...); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	if err := runTaskList(ctx, taskListOptions{limit: 2}, e.opts()...); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Showing 2 of 3 tasks") {
		t.Errorf("expected limit notice, got: %s", e.out.String())
	}

	if err := runTaskList(ctx, taskListOptions{limit: 0, query: "TWO"}, e.opts()...); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "two") || strings.Contains(e.out.String(), "three") {
		t.Errorf("expected only the matching task, got: %s", e.out.String())
	}
}

func TestTaskFlags_PatchOnlyChangedFlags(t *testing.T) {
	flags := &taskFlags{}
	cmd := &cobra.Command{Use: "update"}
	flags.register(cmd)

	if err := cmd.Flags().Parse([]string{"--due", "none", "--worker", "3", "--status", "in-progress"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	patch, err := flags.patch(cmd)
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}

	if patch.Description != nil || patch.Notes != nil || patch.ClientID.Set {
		t.Errorf("unexpected fields set: %+v", patch)
	}
	if !patch.DueDate.Set || !patch.DueDate.Null {
		t.Errorf("expected due date to be cleared, got %+v", patch.DueDate)
	}
	if patch.AssignedWorkerID != models.Value(int64(3)) {
		t.Errorf("expected worker 3, got %+v", patch.AssignedWorkerID)
	}
	if patch.Status == nil || *patch.Status != models.StatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %v", patch.Status)
	}
}

func TestClients_ValidationErrorSendsNothing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)

	err := runClientCreate(ctx, models.ClientInput{ContactEmail: "not-an-email"}, e.opts()...)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"failed to create client", "  name:", "  contact_email:"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got: %v", want, err)
		}
	}
	if n := e.srv.RequestsTo(http.MethodPost, "clients/"); n != 0 {
		t.Errorf("expected no create request, got %d", n)
	}
}

func TestWorkers_CreateUpdateList(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)

	if err := runWorkerCreate(ctx, models.WorkerInput{Name: "Dana", Skills: "roofing"}, e.opts()...); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	availability := "Weekends"
	if err := runWorkerUpdate(ctx, 1, models.WorkerPatch{Availability: &availability}, e.opts()...); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := runWorkerList(ctx, "roof", e.opts()...); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Dana") || !strings.Contains(e.out.String(), "Weekends") {
		t.Errorf("unexpected list: %s", e.out.String())
	}

	if err := runWorkerList(ctx, "plumbing", e.opts()...); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "No workers found.") {
		t.Errorf("expected empty result, got: %s", e.out.String())
	}

	if err := runWorkerUpdate(ctx, 1, models.WorkerPatch{}, e.opts()...); !errors.Is(err, store.ErrEmptyPatch) {
		t.Errorf("expected ErrEmptyPatch, got: %v", err)
	}
}

func TestDelete_ClientCascades(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)

	if err := runClientCreate(ctx, models.ClientInput{Name: "Acme"}, e.opts()...); err != nil {
		t.Fatalf("create client failed: %v", err)
	}
	clientID := int64(1)
	if err := runTaskCreate(ctx, models.TaskInput{Description: richtext.FromText("Paint"), ClientID: &clientID}, e.opts()...); err != nil {
		t.Fatalf("create task failed: %v", err)
	}

	pick := func(s *store.Store) deleter { return s.Clients }

	// Non-interactive without --yes is refused
	err := runDelete(ctx, "client", 1, false, pick, e.opts()...)
	if err == nil || !strings.Contains(err.Error(), "without confirmation") {
		t.Fatalf("expected confirmation error, got: %v", err)
	}
	if n := e.srv.RequestsTo(http.MethodDelete, "clients/1/"); n != 0 {
		t.Errorf("expected no delete request, got %d", n)
	}

	if err := runDelete(ctx, "client", 1, true, pick, e.opts()...); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Deleted client #1") {
		t.Errorf("unexpected output: %s", e.out.String())
	}

	if err := runTaskList(ctx, taskListOptions{limit: 20}, e.opts()...); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "No tasks found.") {
		t.Errorf("expected tasks to be deleted with the client, got: %s", e.out.String())
	}
}

func TestDelete_NotFound(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	err := runDelete(context.Background(), "task", 99, true, func(s *store.Store) deleter { return s.Tasks }, e.opts()...)
	if err == nil || !strings.Contains(err.Error(), "failed to delete task 99") {
		t.Errorf("expected not found error, got: %v", err)
	}
}

func TestExport(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()
	t.Chdir(dir)
	e.login(t)

	err := runExport(ctx, exportOptions{entity: "tasks"}, e.opts()...)
	if !errors.Is(err, view.ErrNoData) {
		t.Fatalf("expected ErrNoData, got: %v", err)
	}

	if err := runWorkerCreate(ctx, models.WorkerInput{Name: `Dana "DJ" Scully`}, e.opts()...); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := runExport(ctx, exportOptions{entity: "workers"}, e.opts()...); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "workers-2026-10-19.csv"))
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got: %q", data)
	}
	if lines[0] != `"id","name","skills","availability","contact_email","created_at"` {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], `"1","Dana ""DJ"" Scully",,,,"`) {
		t.Errorf("unexpected row: %s", lines[1])
	}
	if !strings.Contains(e.out.String(), "Exported 1 worker to") {
		t.Errorf("unexpected output: %s", e.out.String())
	}

	if err := runExport(ctx, exportOptions{entity: "workers", file: "-"}, e.opts()...); err != nil {
		t.Fatalf("stdout export failed: %v", err)
	}
	if !strings.HasPrefix(e.out.String(), `"id","name"`) {
		t.Errorf("expected CSV on stdout, got: %s", e.out.String())
	}

	if err := runExport(ctx, exportOptions{entity: "invoices"}, e.opts()...); err == nil {
		t.Error("expected error for unknown entity")
	}
}

func TestAnalytics_JSON(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)

	if err := runWorkerCreate(ctx, models.WorkerInput{Name: "Dana"}, e.opts()...); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	workerID := int64(1)
	for _, s := range []models.Status{models.StatusTodo, models.StatusBlocked} {
		in := models.TaskInput{Description: richtext.FromText("job"), Status: s, AssignedWorkerID: &workerID}
		if err := runTaskCreate(ctx, in, e.opts()...); err != nil {
			t.Fatalf("create task failed: %v", err)
		}
	}

	if err := runAnalytics(ctx, e.opts(WithFormat("json"))...); err != nil {
		t.Fatalf("analytics failed: %v", err)
	}
	var a view.Analytics
	if err := json.Unmarshal(e.out.Bytes(), &a); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, e.out.String())
	}
	if a.Summary.ActiveTasks != 2 || a.Summary.Workers != 1 {
		t.Errorf("unexpected summary: %+v", a.Summary)
	}
	if len(a.Workload) != 1 || a.Workload[0].Count != 2 {
		t.Errorf("unexpected workload: %+v", a.Workload)
	}

	if err := runAnalytics(ctx, e.opts()...); err != nil {
		t.Fatalf("analytics failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Worker workload") {
		t.Errorf("expected charts, got: %s", e.out.String())
	}
}

func TestExpiredSessionRequiresLogin(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.srv.ExpireSessions()

	err := runTaskList(context.Background(), taskListOptions{limit: 20}, e.opts()...)
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected not logged in, got: %v", err)
	}
	if e.mirror.session.Authenticated {
		t.Error("expected mirror to be cleared")
	}
}

func TestNewRuntime_NoConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := newRuntime(WithEnv(&appconfig.Config{}))
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Fatalf("expected config error, got: %v", err)
	}
}

func TestNewRuntime_EnvFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	env := &appconfig.Config{API: appconfig.APIConfig{URL: "http://localhost:8000/api/", LoginPath: "login/"}}
	r, err := newRuntime(WithEnv(env))
	if err != nil {
		t.Fatalf("expected env deployment, got: %v", err)
	}
	if r.server.Alias != "env" || r.server.Login() != "login/" {
		t.Errorf("unexpected server: %+v", r.server)
	}
}

func TestNewRuntime_ProjectOutputDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	cfg := &config.Config{
		Servers: []config.Server{{URL: "http://localhost:8000/api/", Alias: "local"}},
		Output:  "yaml",
	}
	if err := config.Save(filepath.Join(dir, config.ConfigFileName), cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	r, err := newRuntime(WithEnv(&appconfig.Config{}))
	if err != nil {
		t.Fatalf("newRuntime failed: %v", err)
	}
	if f, _ := r.outputFormat(); f != view.FormatYAML {
		t.Errorf("expected yaml from project config, got %s", f)
	}
	if r.server.Alias != "local" {
		t.Errorf("expected the single configured deployment, got %s", r.server.Alias)
	}
}

func TestLogout_CheckOutageStillClearsLocalSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.login(t)
	e.srv.Fail(http.MethodGet, "auth/check/", http.StatusBadGateway)

	if err := runLogout(ctx, e.opts()...); err != nil {
		t.Fatalf("logout should not fail: %v", err)
	}
	if strings.Contains(e.out.String(), "Not logged in") {
		t.Errorf("an unreachable check must not read as logged out, got: %s", e.out.String())
	}
	if e.hasStoredSession() {
		t.Error("expected stored session to be deleted")
	}
	if e.mirror.session.Authenticated {
		t.Error("expected mirror to be cleared")
	}

	// Once the server recovers the old session must not come back
	e.srv.Fail(http.MethodGet, "auth/check/", 0)
	err := runTaskList(ctx, taskListOptions{limit: 20}, e.opts()...)
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("expected not logged in after logout, got: %v", err)
	}
}

func TestLogout_NotLoggedInDropsStaleCookies(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.srv.ExpireSessions()

	if err := runLogout(context.Background(), e.opts()...); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "Not logged in to test") {
		t.Errorf("expected not logged in, got: %s", e.out.String())
	}
	if e.hasStoredSession() {
		t.Error("expected stale cookies to be deleted")
	}
}

func TestTasks_CheckOutageIsNotALoginPrompt(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.srv.Fail(http.MethodGet, "auth/check/", http.StatusBadGateway)

	err := runTaskList(context.Background(), taskListOptions{limit: 20}, e.opts()...)
	if err == nil {
		t.Fatal("expected error while the server is unreachable")
	}
	if !strings.Contains(err.Error(), "could not reach test") {
		t.Errorf("expected reachability error, got: %v", err)
	}
	if strings.Contains(err.Error(), "taskdesk login") {
		t.Errorf("outage must not suggest logging in, got: %v", err)
	}
	if !e.hasStoredSession() {
		t.Error("stored session must survive an outage")
	}
}

func TestTaskFlags_DescriptionJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "valid", raw: `[{"type":"paragraph","content":[{"type":"text","text":"Fix the sink"}]}]`},
		{name: "malformed", raw: `[{"type":"paragraph"`, wantErr: "--description-json"},
		{name: "not a list", raw: `"Fix the sink"`, wantErr: "--description-json"},
		{name: "empty list", raw: `[]`, wantErr: "at least one block"},
		{name: "missing type", raw: `[{"content":[]}]`, wantErr: "has no type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := &taskFlags{blocks: tt.raw}
			in, err := flags.input()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got := in.Description.PlainText(); got != "Fix the sink" {
					t.Errorf("expected plain text %q, got %q", "Fix the sink", got)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
