// Package store fetches and mutates the server-owned entities. The server is
// the source of truth; nothing is cached here.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/taskdesk-dev/taskdesk/internal/models"
	"github.com/taskdesk-dev/taskdesk/internal/validation"
)

// ErrEmptyPatch is returned when an update would change nothing
var ErrEmptyPatch = errors.New("nothing to update")

// Sender performs one API round trip
type Sender interface {
	Send(ctx context.Context, method, path string, body, out any) error
}

// Resource is CRUD over one REST collection. T is the read shape, C the
// create form and P the partial update.
type Resource[T, C, P any] struct {
	api  Sender
	path string
}

// NewResource returns a resource rooted at path (e.g. "tasks/")
func NewResource[T, C, P any](api Sender, path string) *Resource[T, C, P] {
	return &Resource[T, C, P]{api: api, path: path}
}

// Path returns the collection path
func (r *Resource[T, C, P]) Path() string {
	return r.path
}

func (r *Resource[T, C, P]) itemPath(id int64) string {
	return fmt.Sprintf("%s%d/", r.path, id)
}

// List fetches the whole collection in server order
func (r *Resource[T, C, P]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.api.Send(ctx, http.MethodGet, r.path, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get fetches one record
func (r *Resource[T, C, P]) Get(ctx context.Context, id int64) (T, error) {
	var item T
	err := r.api.Send(ctx, http.MethodGet, r.itemPath(id), nil, &item)
	return item, err
}

// Create validates in and posts it. Validation failures are *validation.Errors
// and issue no request.
func (r *Resource[T, C, P]) Create(ctx context.Context, in C) (T, error) {
	var item T
	if err := validation.Struct(in); err != nil {
		return item, err
	}
	err := r.api.Send(ctx, http.MethodPost, r.path, in, &item)
	return item, err
}

// Update validates patch and sends it as a PATCH
func (r *Resource[T, C, P]) Update(ctx context.Context, id int64, patch P) (T, error) {
	var item T
	if err := validation.Struct(patch); err != nil {
		return item, err
	}
	err := r.api.Send(ctx, http.MethodPatch, r.itemPath(id), patch, &item)
	return item, err
}

// Delete removes one record
func (r *Resource[T, C, P]) Delete(ctx context.Context, id int64) error {
	return r.api.Send(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

// Store groups the three entity resources
type Store struct {
	Tasks   *Resource[models.Task, models.TaskInput, models.TaskPatch]
	Clients *Resource[models.Client, models.ClientInput, models.ClientPatch]
	Workers *Resource[models.Worker, models.WorkerInput, models.WorkerPatch]
}

// New creates the entity stores on top of api
func New(api Sender) *Store {
	return &Store{
		Tasks:   NewResource[models.Task, models.TaskInput, models.TaskPatch](api, "tasks/"),
		Clients: NewResource[models.Client, models.ClientInput, models.ClientPatch](api, "clients/"),
		Workers: NewResource[models.Worker, models.WorkerInput, models.WorkerPatch](api, "workers/"),
	}
}

// CreateTask fills the default status and creates the task
func (s *Store) CreateTask(ctx context.Context, in models.TaskInput) (models.Task, error) {
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	return s.Tasks.Create(ctx, in)
}

// UpdateTask rejects empty patches before sending
func (s *Store) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (models.Task, error) {
	if patch.Empty() {
		return models.Task{}, ErrEmptyPatch
	}
	return s.Tasks.Update(ctx, id, patch)
}

// SetTaskStatus patches only the status
func (s *Store) SetTaskStatus(ctx context.Context, id int64, status models.Status) (models.Task, error) {
	return s.Tasks.Update(ctx, id, models.TaskPatch{Status: &status})
}

// Snapshot is every entity list, fetched together for the dashboard
type Snapshot struct {
	Tasks   []models.Task
	Clients []models.Client
	Workers []models.Worker
}

// LoadAll fetches tasks, clients and workers. The first error wins.
func (s *Store) LoadAll(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Tasks, err = s.Tasks.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load tasks: %w", err)
	}
	if snap.Clients, err = s.Clients.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load clients: %w", err)
	}
	if snap.Workers, err = s.Workers.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load workers: %w", err)
	}
	return snap, nil
}
