package models

import (
	"encoding/json"

	"github.com/taskdesk-dev/taskdesk/internal/richtext"
)

// Field is an optional, nullable PATCH value. The zero value leaves the field
// out of the request; Null sends an explicit null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Value returns a Field that sets v
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field that clears the value server-side
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON marks the field as present; null clears it
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) put(m map[string]any, key string) {
	if !f.Set {
		return
	}
	if f.Null {
		m[key] = nil
		return
	}
	m[key] = f.Value
}

// ClientInput is the create/update form for a client
type ClientInput struct {
	Name         string `json:"name" validate:"required,max=255"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,max=50"`
	Notes        string `json:"notes"`
}

// WorkerInput is the create/update form for a worker
type WorkerInput struct {
	Name         string `json:"name" validate:"required,max=255"`
	Skills       string `json:"skills"`
	Availability string `json:"availability" validate:"omitempty,max=100"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

// TaskInput is the create form for a task
type TaskInput struct {
	Description      richtext.Document `json:"description" validate:"required"`
	DueDate          *string           `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Status           Status            `json:"status" validate:"required,task_status"`
	Notes            string            `json:"notes,omitempty"`
	ClientID         *int64            `json:"client_id" validate:"omitempty,gt=0"`
	AssignedWorkerID *int64            `json:"assigned_worker_id" validate:"omitempty,gt=0"`
}

// TaskPatch is a partial task update; only set fields are sent
type TaskPatch struct {
	Description      *richtext.Document `json:"description" validate:"omitempty,min=1"`
	Status           *Status            `json:"status" validate:"omitempty,task_status"`
	Notes            *string            `json:"notes"`
	DueDate          Field[string]      `json:"due_date"`
	ClientID         Field[int64]       `json:"client_id"`
	AssignedWorkerID Field[int64]       `json:"assigned_worker_id"`
}

// Empty reports whether the patch would change nothing
func (p TaskPatch) Empty() bool {
	return p.Description == nil && p.Status == nil && p.Notes == nil &&
		!p.DueDate.Set && !p.ClientID.Set && !p.AssignedWorkerID.Set
}

// MarshalJSON emits only the fields that were set
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	if p.Notes != nil {
		m["notes"] = *p.Notes
	}
	p.DueDate.put(m, "due_date")
	p.ClientID.put(m, "client_id")
	p.AssignedWorkerID.put(m, "assigned_worker_id")
	return json.Marshal(m)
}

// ClientPatch is a partial client update
type ClientPatch struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,optional_email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Notes        *string `json:"notes,omitempty"`
}

// WorkerPatch is a partial worker update
type WorkerPatch struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Skills       *string `json:"skills,omitempty"`
	Availability *string `json:"availability,omitempty" validate:"omitempty,max=100"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,optional_email"`
}
