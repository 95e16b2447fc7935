package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
)

type exportOptions struct {
	entity string
	query  string
	file   string
}

// NewExportCmd creates the export command
func NewExportCmd(g *Globals) *cobra.Command {
	opts := exportOptions{}

	cmd := &cobra.Command{
		Use:   "export <tasks|clients|workers> [search]",
		Short: "Export a list as CSV",
		Long: `Export tasks, clients or workers as CSV.

The file is named <entity>-<date>.csv unless --file is given; use --file - to
write to stdout. A search term exports only the matching rows.

Examples:
  $ taskdesk export tasks
  $ taskdesk export clients acme --file acme.csv
  $ taskdesk export workers --file - | column -s, -t`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"tasks", "clients", "workers"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.entity = args[0]
			if len(args) > 1 {
				opts.query = args[1]
			}
			return runExport(cmd.Context(), opts, g.options()...)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Output file (\"-\" for stdout)")

	return cmd
}

func runExport(ctx context.Context, opts exportOptions, options ...Option) error {
	entity := strings.ToLower(strings.TrimSpace(opts.entity))
	switch entity {
	case "tasks", "clients", "workers":
	default:
		return fmt.Errorf("unknown export %q (want tasks, clients or workers)", opts.entity)
	}

	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}

	var csv string
	switch entity {
	case "tasks":
		tasks, lerr := c.store.Tasks.List(ctx)
		if lerr != nil {
			return describeError("failed to list tasks", lerr)
		}
		csv, err = view.TasksCSV(view.FilterTasks(tasks, opts.query))
	case "clients":
		clients, lerr := c.store.Clients.List(ctx)
		if lerr != nil {
			return describeError("failed to list clients", lerr)
		}
		csv, err = view.ClientsCSV(view.FilterClients(clients, opts.query))
	case "workers":
		workers, lerr := c.store.Workers.List(ctx)
		if lerr != nil {
			return describeError("failed to list workers", lerr)
		}
		csv, err = view.WorkersCSV(view.FilterWorkers(workers, opts.query))
	}
	if err != nil {
		return err
	}

	if opts.file == "-" {
		_, err := fmt.Fprintln(r.out, csv)
		return err
	}

	path := opts.file
	if path == "" {
		path = view.ExportFilename(entity, r.now())
	}
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	rows := strings.Count(csv, "\n")
	abs, _ := filepath.Abs(path)
	if abs == "" {
		abs = path
	}
	fmt.Fprintf(r.out, "✓ Exported %s to %s\n", pluralize(rows, entity), abs)
	return nil
}

// pluralize renders "1 task" or "3 tasks" for a plural entity name
func pluralize(n int, plural string) string {
	if n == 1 {
		return "1 " + strings.TrimSuffix(plural, "s")
	}
	return fmt.Sprintf("%d %s", n, plural)
}
