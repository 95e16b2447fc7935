package view

import (
	"sort"
	"time"

	"github.com/taskdesk-dev/taskdesk/internal/models"
)

// CompletionWindow is the number of days in the completion trend
const CompletionWindow = 30

// DayCount is the number of tasks completed on one calendar day
type DayCount struct {
	Day   time.Time `json:"day" yaml:"day"`
	Count int       `json:"count" yaml:"count"`
}

// NamedCount is a bar in a ranked chart
type NamedCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// StatusCount is one slice of the status distribution
type StatusCount struct {
	Status models.Status `json:"status" yaml:"status"`
	Label  string        `json:"label" yaml:"label"`
	Count  int           `json:"count" yaml:"count"`
}

// Summary holds the dashboard's headline numbers
type Summary struct {
	Clients     int `json:"clients" yaml:"clients"`
	Workers     int `json:"workers" yaml:"workers"`
	ActiveTasks int `json:"active_tasks" yaml:"active_tasks"`
}

// Analytics is every aggregate the analytics view shows
type Analytics struct {
	Summary        Summary       `json:"summary" yaml:"summary"`
	Completed      []DayCount    `json:"completed" yaml:"completed"`
	ByStatus       []StatusCount `json:"by_status" yaml:"by_status"`
	Workload       []NamedCount  `json:"workload" yaml:"workload"`
	ClientActivity []NamedCount  `json:"client_activity" yaml:"client_activity"`
}

// ComputeAnalytics derives the aggregates from already-fetched lists. Days
// are calendar days in now's location, oldest first, ending today.
func ComputeAnalytics(tasks []models.Task, clients []models.Client, workers []models.Worker, now time.Time) Analytics {
	return Analytics{
		Summary:        summarize(tasks, clients, workers),
		Completed:      completedByDay(tasks, now, CompletionWindow),
		ByStatus:       statusCounts(tasks),
		Workload:       workload(tasks, workers),
		ClientActivity: clientActivity(tasks, clients),
	}
}

func summarize(tasks []models.Task, clients []models.Client, workers []models.Worker) Summary {
	s := Summary{Clients: len(clients), Workers: len(workers)}
	for _, t := range tasks {
		if t.Status.Active() {
			s.ActiveTasks++
		}
	}
	return s
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// completedByDay counts DONE tasks by the day they were last updated
func completedByDay(tasks []models.Task, now time.Time, days int) []DayCount {
	loc := now.Location()
	today := dayOf(now, loc)
	start := today.AddDate(0, 0, -(days - 1))

	out := make([]DayCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		out[i] = DayCount{Day: d}
		index[d.Format(models.DateLayout)] = i
	}

	for _, t := range tasks {
		if t.Status != models.StatusDone || t.UpdatedAt.IsZero() {
			continue
		}
		if i, ok := index[t.UpdatedAt.In(loc).Format(models.DateLayout)]; ok {
			out[i].Count++
		}
	}
	return out
}

func statusCounts(tasks []models.Task) []StatusCount {
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, t := range tasks {
		counts[t.Status]++
	}
	out := make([]StatusCount, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		out = append(out, StatusCount{Status: s, Label: s.Label(), Count: counts[s]})
	}
	return out
}

// workload ranks workers by assigned tasks, busiest first
func workload(tasks []models.Task, workers []models.Worker) []NamedCount {
	counts := make(map[int64]int)
	for _, t := range tasks {
		if t.AssignedWorker != nil {
			counts[t.AssignedWorker.ID]++
		}
	}
	out := make([]NamedCount, 0, len(workers))
	for _, w := range workers {
		out = append(out, NamedCount{Name: w.Name, Count: counts[w.ID]})
	}
	sortByCount(out)
	return out
}

// clientActivity ranks clients by linked tasks, most active first
func clientActivity(tasks []models.Task, clients []models.Client) []NamedCount {
	counts := make(map[int64]int)
	for _, t := range tasks {
		if t.Client != nil {
			counts[t.Client.ID]++
		}
	}
	out := make([]NamedCount, 0, len(clients))
	for _, c := range clients {
		out = append(out, NamedCount{Name: c.Name, Count: counts[c.ID]})
	}
	sortByCount(out)
	return out
}

func sortByCount(items []NamedCount) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Count > items[j].Count
	})
}
