package view

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/taskdesk-dev/taskdesk/internal/models"
)

// ErrNoData is returned when exporting an empty list
var ErrNoData = errors.New("no data to export")

// Record is one exported row keyed by column name
type Record map[string]any

// CSV renders records as comma-separated values. The header and every
// non-nil value are wrapped in double quotes with embedded quotes doubled;
// nil (or missing) values become an empty unquoted field. Rows are joined by
// "\n" with no trailing newline.
func CSV(columns []string, records []Record) (string, error) {
	if len(records) == 0 {
		return "", ErrNoData
	}
	if len(columns) == 0 {
		return "", errors.New("no columns to export")
	}

	lines := make([]string, 0, len(records)+1)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = quote(c)
	}
	lines = append(lines, strings.Join(header, ","))

	fields := make([]string, len(columns))
	for _, rec := range records {
		for i, c := range columns {
			s, ok := formatValue(rec[c])
			if !ok {
				fields[i] = ""
				continue
			}
			fields[i] = quote(s)
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n"), nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// formatValue stringifies v; false means the value is absent
func formatValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case *string:
		if x == nil {
			return "", false
		}
		return *x, true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		return x.UTC().Format(time.RFC3339), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Column sets of the per-entity exports
var (
	TaskColumns   = []string{"id", "description", "status", "client", "assigned_worker", "due_date", "created_at", "updated_at"}
	ClientColumns = []string{"id", "name", "contact_email", "phone", "notes", "created_at"}
	WorkerColumns = []string{"id", "name", "skills", "availability", "contact_email", "created_at"}
)

// TasksCSV exports tasks with the description flattened to plain text
func TasksCSV(tasks []models.Task) (string, error) {
	records := make([]Record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, Record{
			"id":              t.ID,
			"description":     t.Description.PlainText(),
			"status":          string(t.Status),
			"client":          optional(t.ClientName()),
			"assigned_worker": optional(t.WorkerName()),
			"due_date":        optional(t.DueDate),
			"created_at":      t.CreatedAt,
			"updated_at":      t.UpdatedAt,
		})
	}
	return CSV(TaskColumns, records)
}

// ClientsCSV exports clients
func ClientsCSV(clients []models.Client) (string, error) {
	records := make([]Record, 0, len(clients))
	for _, c := range clients {
		records = append(records, Record{
			"id":            c.ID,
			"name":          c.Name,
			"contact_email": optional(c.ContactEmail),
			"phone":         optional(c.Phone),
			"notes":         optional(c.Notes),
			"created_at":    c.CreatedAt,
		})
	}
	return CSV(ClientColumns, records)
}

// WorkersCSV exports workers
func WorkersCSV(workers []models.Worker) (string, error) {
	records := make([]Record, 0, len(workers))
	for _, w := range workers {
		records = append(records, Record{
			"id":            w.ID,
			"name":          w.Name,
			"skills":        optional(w.Skills),
			"availability":  optional(w.Availability),
			"contact_email": optional(w.ContactEmail),
			"created_at":    w.CreatedAt,
		})
	}
	return CSV(WorkerColumns, records)
}

// ExportFilename names an export file, e.g. tasks-2026-03-04.csv
func ExportFilename(entity string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", entity, now.Format(models.DateLayout))
}
