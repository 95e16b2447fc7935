package view

import (
	"strings"

	"github.com/taskdesk-dev/taskdesk/internal/models"
)

// DefaultTaskLimit is how many tasks the dashboard list shows
const DefaultTaskLimit = 20

func containsFold(s, q string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), q)
}

// MatchTask reports whether the task's description, client, worker or status
// contains q (case-insensitive). An empty query matches everything.
func MatchTask(t models.Task, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return containsFold(t.Description.PlainText(), q) ||
		containsFold(t.ClientName(), q) ||
		containsFold(t.WorkerName(), q) ||
		containsFold(string(t.Status), q) ||
		containsFold(t.Status.Label(), q)
}

// MatchClient matches name, email and notes case-insensitively; the phone
// number is matched as typed.
func MatchClient(c models.Client, q string) bool {
	raw := strings.TrimSpace(q)
	if raw == "" {
		return true
	}
	q = strings.ToLower(raw)
	return containsFold(c.Name, q) ||
		containsFold(c.ContactEmail, q) ||
		(c.Phone != "" && strings.Contains(c.Phone, raw)) ||
		containsFold(c.Notes, q)
}

// MatchWorker matches name, skills, availability and email
func MatchWorker(w models.Worker, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return containsFold(w.Name, q) ||
		containsFold(w.Skills, q) ||
		containsFold(w.Availability, q) ||
		containsFold(w.ContactEmail, q)
}

// Filter keeps the items match accepts, preserving order
func Filter[T any](items []T, q string, match func(T, string) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if match(it, q) {
			out = append(out, it)
		}
	}
	return out
}

// FilterTasks applies MatchTask
func FilterTasks(tasks []models.Task, q string) []models.Task {
	return Filter(tasks, q, MatchTask)
}

// FilterClients applies MatchClient
func FilterClients(clients []models.Client, q string) []models.Client {
	return Filter(clients, q, MatchClient)
}

// FilterWorkers applies MatchWorker
func FilterWorkers(workers []models.Worker, q string) []models.Worker {
	return Filter(workers, q, MatchWorker)
}

// WithStatus keeps tasks in any of the given statuses; none keeps all
func WithStatus(tasks []models.Task, statuses ...models.Status) []models.Task {
	if len(statuses) == 0 {
		return tasks
	}
	return Filter(tasks, "", func(t models.Task, _ string) bool {
		for _, s := range statuses {
			if t.Status == s {
				return true
			}
		}
		return false
	})
}

// Limit returns at most n items; n <= 0 means no limit
func Limit[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
