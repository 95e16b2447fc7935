package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskdesk-dev/taskdesk/internal/richtext"
)

// User is the authenticated operator as reported by the session check
type User struct {
	ID       int64  `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
}

// Status is a task's position in the workflow
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusBlocked    Status = "BLOCKED"
)

// Statuses lists every workflow status in display order
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusBlocked}

// Label returns the human-readable status name
func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	case StatusBlocked:
		return "Blocked"
	default:
		return "To Do"
	}
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Active reports whether the task still needs work
func (s Status) Active() bool {
	return s != StatusDone
}

// ParseStatus accepts the wire value, the label, or a loose spelling such as
// "in-progress".
func ParseStatus(raw string) (Status, error) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "TODO", "TO_DO":
		return StatusTodo, nil
	case "IN_PROGRESS", "INPROGRESS", "DOING":
		return StatusInProgress, nil
	case "DONE", "COMPLETE", "COMPLETED":
		return StatusDone, nil
	case "BLOCKED":
		return StatusBlocked, nil
	}
	return "", fmt.Errorf("unknown status %q (want one of TODO, IN_PROGRESS, DONE, BLOCKED)", raw)
}

// Client is a customer the business does work for
type Client struct {
	ID           int64     `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	ContactEmail string    `json:"contact_email" yaml:"contact_email,omitempty"`
	Phone        string    `json:"phone" yaml:"phone,omitempty"`
	Notes        string    `json:"notes" yaml:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// Worker is a person tasks can be assigned to
type Worker struct {
	ID           int64     `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Skills       string    `json:"skills" yaml:"skills,omitempty"`
	Availability string    `json:"availability" yaml:"availability,omitempty"`
	ContactEmail string    `json:"contact_email" yaml:"contact_email,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// Task is a unit of work, optionally linked to a client and a worker
type Task struct {
	ID             int64             `json:"id" yaml:"id"`
	Description    richtext.Document `json:"description" yaml:"description"`
	DueDate        string            `json:"due_date" yaml:"due_date,omitempty"` // YYYY-MM-DD
	Status         Status            `json:"status" yaml:"status"`
	Notes          string            `json:"notes" yaml:"notes,omitempty"`
	CreatedAt      time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" yaml:"updated_at"`
	Client         *Client           `json:"client" yaml:"client,omitempty"`
	AssignedWorker *Worker           `json:"assigned_worker" yaml:"assigned_worker,omitempty"`
}

// ClientName returns the linked client's name or ""
func (t Task) ClientName() string {
	if t.Client == nil {
		return ""
	}
	return t.Client.Name
}

// WorkerName returns the assigned worker's name or ""
func (t Task) WorkerName() string {
	if t.AssignedWorker == nil {
		return ""
	}
	return t.AssignedWorker.Name
}

// DueDateLabel formats the due date like "Mar 4, 2026", or "-" when unset
func (t Task) DueDateLabel() string {
	return FormatDate(t.DueDate)
}

// FormatDate renders a YYYY-MM-DD (or RFC 3339) date for display
func FormatDate(raw string) string {
	if raw == "" {
		return "-"
	}
	for _, layout := range []string{DateLayout, time.RFC3339Nano} {
		if d, err := time.Parse(layout, raw); err == nil {
			return d.Format("Jan 2, 2006")
		}
	}
	return raw
}

// DateLayout is the wire format for due dates
const DateLayout = "2006-01-02"
