package store

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk-dev/taskdesk/internal/apitest"
	"github.com/taskdesk-dev/taskdesk/internal/cli/client"
	"github.com/taskdesk-dev/taskdesk/internal/cli/session"
	"github.com/taskdesk-dev/taskdesk/internal/models"
	"github.com/taskdesk-dev/taskdesk/internal/richtext"
	"github.com/taskdesk-dev/taskdesk/internal/validation"
)

func loggedIn(t *testing.T) (*Store, *apitest.Server, *client.Client) {
	t.Helper()
	srv := apitest.New(t)
	api, err := client.New(srv.URL())
	require.NoError(t, err)

	ctrl := session.New(api, session.Options{})
	ctx := context.Background()
	ctrl.Bootstrap(ctx)
	_, err = ctrl.Login(ctx, apitest.DefaultUsername, apitest.DefaultPassword)
	require.NoError(t, err)

	return New(api), srv, api
}

func ptr[T any](v T) *T { return &v }

func TestTasks_CreateThenList(t *testing.T) {
	s, _, _ := loggedIn(t)
	ctx := context.Background()

	acme, err := s.Clients.Create(ctx, models.ClientInput{Name: "Acme", ContactEmail: "ops@acme.test"})
	require.NoError(t, err)
	ann, err := s.Workers.Create(ctx, models.WorkerInput{Name: "Ann", Skills: "plumbing"})
	require.NoError(t, err)

	in := models.TaskInput{
		Description:      richtext.FromText("Fix the sink"),
		DueDate:          ptr("2026-05-01"),
		ClientID:         &acme.ID,
		AssignedWorkerID: &ann.ID,
	}
	created, err := s.CreateTask(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTodo, created.Status)

	// Not idempotent: a second create is a second record
	second, err := s.CreateTask(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, second.ID)

	tasks, err := s.Tasks.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	var found *models.Task
	for i := range tasks {
		if tasks[i].ID == created.ID {
			found = &tasks[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Fix the sink", found.Description.PlainText())
	assert.Equal(t, "2026-05-01", found.DueDate)
	assert.Equal(t, models.StatusTodo, found.Status)
	assert.Equal(t, "Acme", found.ClientName())
	assert.Equal(t, "Ann", found.WorkerName())
}

func TestTasks_RichDescriptionRoundTrip(t *testing.T) {
	s, _, _ := loggedIn(t)
	ctx := context.Background()

	doc := richtext.FromBlocks([]richtext.Block{
		{Type: richtext.TypeHeading, Props: map[string]any{"level": float64(2)}, Content: []richtext.Inline{{Type: "text", Text: "Plan"}}},
		{Type: richtext.TypeBulletList, Content: []richtext.Inline{{Type: "text", Text: "buy parts"}}},
	})
	created, err := s.CreateTask(ctx, models.TaskInput{Description: doc})
	require.NoError(t, err)

	got, err := s.Tasks.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "## Plan\n\n- buy parts", got.Description.Markdown())
}

func TestTasks_UpdateAndStatus(t *testing.T) {
	s, _, _ := loggedIn(t)
	ctx := context.Background()

	acme, err := s.Clients.Create(ctx, models.ClientInput{Name: "Acme"})
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, models.TaskInput{Description: richtext.FromText("a"), ClientID: &acme.ID})
	require.NoError(t, err)

	updated, err := s.SetTaskStatus(ctx, task.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "Acme", updated.ClientName())

	updated, err = s.UpdateTask(ctx, task.ID, models.TaskPatch{
		ClientID: models.Null[int64](),
		DueDate:  models.Value("2026-01-31"),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Client)
	assert.Equal(t, "2026-01-31", updated.DueDate)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	_, err = s.UpdateTask(ctx, task.ID, models.TaskPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

func TestCreate_ClientSideValidationSendsNothing(t *testing.T) {
	s, srv, _ := loggedIn(t)
	ctx := context.Background()
	before := srv.Requests()

	_, err := s.Clients.Create(ctx, models.ClientInput{Name: "", ContactEmail: "nope"})
	var verrs *validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.FieldErrors(), "name")
	assert.Contains(t, verrs.FieldErrors(), "contact_email")

	_, err = s.CreateTask(ctx, models.TaskInput{Description: richtext.FromText("  ")})
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.FieldErrors(), "description")

	assert.Equal(t, before, srv.Requests())
}

func TestCreate_ServerValidationIsFieldErrors(t *testing.T) {
	s, _, _ := loggedIn(t)

	missing := int64(999)
	_, err := s.CreateTask(context.Background(), models.TaskInput{Description: richtext.FromText("x"), ClientID: &missing})
	require.Error(t, err)
	assert.Equal(t, client.ClassValidation, client.ClassOf(err))
	fields := client.FieldErrors(err)
	assert.Equal(t, []string{`Invalid pk "999" - object does not exist.`}, fields["client_id"])
}

func TestClientsAndWorkers_CRUD(t *testing.T) {
	s, _, _ := loggedIn(t)
	ctx := context.Background()

	c, err := s.Clients.Create(ctx, models.ClientInput{Name: "Beta", Phone: "555-0100"})
	require.NoError(t, err)
	c, err = s.Clients.Update(ctx, c.ID, models.ClientPatch{Notes: ptr("VIP")})
	require.NoError(t, err)
	assert.Equal(t, "VIP", c.Notes)
	assert.Equal(t, "555-0100", c.Phone)

	w1, err := s.Workers.Create(ctx, models.WorkerInput{Name: "Zed"})
	require.NoError(t, err)
	_, err = s.Workers.Create(ctx, models.WorkerInput{Name: "Amy"})
	require.NoError(t, err)

	workers, err := s.Workers.List(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "Amy", workers[0].Name)

	task, err := s.CreateTask(ctx, models.TaskInput{Description: richtext.FromText("t"), ClientID: &c.ID, AssignedWorkerID: &w1.ID})
	require.NoError(t, err)

	// Deleting a worker unassigns its tasks
	require.NoError(t, s.Workers.Delete(ctx, w1.ID))
	got, err := s.Tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedWorker)

	// Deleting a client removes its tasks
	require.NoError(t, s.Clients.Delete(ctx, c.ID))
	_, err = s.Tasks.Get(ctx, task.ID)
	assert.Equal(t, client.ClassNotFound, client.ClassOf(err))

	err = s.Clients.Delete(ctx, c.ID)
	assert.Equal(t, http.StatusNotFound, client.StatusOf(err))
}

func TestLoadAll(t *testing.T) {
	s, srv, _ := loggedIn(t)
	ctx := context.Background()

	_, err := s.Clients.Create(ctx, models.ClientInput{Name: "Acme"})
	require.NoError(t, err)

	snap, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Tasks)
	assert.Len(t, snap.Clients, 1)
	assert.Empty(t, snap.Workers)

	srv.ExpireSessions()
	_, err = s.LoadAll(ctx)
	assert.True(t, client.IsUnauthorized(err))
}
