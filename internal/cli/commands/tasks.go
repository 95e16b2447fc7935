package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
	"github.com/taskdesk-dev/taskdesk/internal/models"
	"github.com/taskdesk-dev/taskdesk/internal/richtext"
)

// NewTasksCmd creates the tasks command group
func NewTasksCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "List and manage tasks",
	}

	cmd.AddCommand(
		newTaskListCmd(g),
		newTaskShowCmd(g),
		newTaskCreateCmd(g),
		newTaskUpdateCmd(g),
		newTaskStatusCmd(g),
		newTaskDeleteCmd(g),
	)
	return cmd
}

type taskListOptions struct {
	query    string
	statuses []string
	limit    int
}

func newTaskListCmd(g *Globals) *cobra.Command {
	opts := taskListOptions{}

	cmd := &cobra.Command{
		Use:     "ls [search]",
		Aliases: []string{"list"},
		Short:   "List tasks, most recently updated first",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.query = args[0]
			}
			return runTaskList(cmd.Context(), opts, g.options()...)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.statuses, "status", "s", nil, "Only show tasks in these statuses")
	cmd.Flags().IntVar(&opts.limit, "limit", view.DefaultTaskLimit, "Maximum number of tasks to show (0 for all)")

	return cmd
}

func runTaskList(ctx context.Context, opts taskListOptions, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	format, err := r.outputFormat()
	if err != nil {
		return err
	}
	statuses := make([]models.Status, 0, len(opts.statuses))
	for _, raw := range opts.statuses {
		s, err := models.ParseStatus(raw)
		if err != nil {
			return err
		}
		statuses = append(statuses, s)
	}

	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	tasks, err := c.store.Tasks.List(ctx)
	if err != nil {
		return describeError("failed to list tasks", err)
	}

	matched := view.WithStatus(view.FilterTasks(tasks, opts.query), statuses...)
	shown := view.Limit(matched, opts.limit)

	return view.Write(r.out, format, shown, func(w io.Writer) error {
		if len(shown) == 0 {
			if opts.query != "" || len(statuses) > 0 {
				fmt.Fprintln(w, "No matching tasks.")
				return nil
			}
			fmt.Fprintln(w, "No tasks found.")
			fmt.Fprintln(w, "\nCreate a task with: taskdesk tasks create --description \"...\"")
			return nil
		}
		fmt.Fprintf(w, "Tasks on %s (%s):\n\n", r.server.Alias, r.server.URL)
		if err := view.TaskTable(w, shown); err != nil {
			return err
		}
		if len(shown) < len(matched) {
			fmt.Fprintf(w, "\nShowing %d of %d tasks (use --limit 0 to show all)\n", len(shown), len(matched))
		}
		return nil
	})
}

func newTaskShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its formatted description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runTaskShow(cmd.Context(), id, g.options()...)
		},
	}
}

func runTaskShow(ctx context.Context, id int64, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	format, err := r.outputFormat()
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	task, err := c.store.Tasks.Get(ctx, id)
	if err != nil {
		return describeError(fmt.Sprintf("failed to load task %d", id), err)
	}
	return view.Write(r.out, format, task, func(w io.Writer) error {
		_, err := io.WriteString(w, view.TaskDetail(task, terminalWidth(w)))
		return err
	})
}

// taskFlags are the editable task fields shared by create and update
type taskFlags struct {
	description string
	blocks      string
	due         string
	status      string
	notes       string
	client      string
	worker      string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Task description (plain text)")
	cmd.Flags().StringVar(&f.blocks, "description-json", "", "Task description as an editor block document (JSON)")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date, YYYY-MM-DD (\"none\" clears it)")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "Status: TODO, IN_PROGRESS, DONE or BLOCKED")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Internal notes")
	cmd.Flags().StringVar(&f.client, "client", "", "Client id (\"none\" to unlink)")
	cmd.Flags().StringVar(&f.worker, "worker", "", "Assigned worker id (\"none\" to unassign)")
}

// document returns the description from --description-json or --description.
// Malformed JSON is an error rather than a literal description.
func (f *taskFlags) document() (richtext.Document, error) {
	switch {
	case f.blocks != "":
		var blocks []richtext.Block
		if err := json.Unmarshal([]byte(f.blocks), &blocks); err != nil {
			return richtext.Document{}, fmt.Errorf("--description-json: %w", err)
		}
		if len(blocks) == 0 {
			return richtext.Document{}, fmt.Errorf("--description-json: expected at least one block")
		}
		for i, b := range blocks {
			if b.Type == "" {
				return richtext.Document{}, fmt.Errorf("--description-json: block %d has no type", i)
			}
		}
		return richtext.FromBlocks(blocks), nil
	case f.description != "":
		return richtext.FromText(f.description), nil
	}
	return richtext.Document{}, nil
}

func clearsValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "null", "-":
		return true
	}
	return false
}

func (f *taskFlags) input() (models.TaskInput, error) {
	doc, err := f.document()
	in := models.TaskInput{Description: doc, Notes: f.notes}
	if err != nil {
		return in, err
	}
	if f.status != "" {
		s, err := models.ParseStatus(f.status)
		if err != nil {
			return in, err
		}
		in.Status = s
	}
	if !clearsValue(f.due) {
		due := strings.TrimSpace(f.due)
		in.DueDate = &due
	}
	if !clearsValue(f.client) {
		id, err := parseID(f.client)
		if err != nil {
			return in, fmt.Errorf("--client: %w", err)
		}
		in.ClientID = &id
	}
	if !clearsValue(f.worker) {
		id, err := parseID(f.worker)
		if err != nil {
			return in, fmt.Errorf("--worker: %w", err)
		}
		in.AssignedWorkerID = &id
	}
	return in, nil
}

// patch includes only the flags the user set
func (f *taskFlags) patch(cmd *cobra.Command) (models.TaskPatch, error) {
	var p models.TaskPatch
	changed := cmd.Flags().Changed

	if changed("description") || changed("description-json") {
		doc, err := f.document()
		if err != nil {
			return p, err
		}
		p.Description = &doc
	}
	if changed("status") {
		s, err := models.ParseStatus(f.status)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if changed("notes") {
		p.Notes = &f.notes
	}
	if changed("due") {
		if clearsValue(f.due) {
			p.DueDate = models.Null[string]()
		} else {
			p.DueDate = models.Value(strings.TrimSpace(f.due))
		}
	}
	if changed("client") {
		ref, err := parseRef(f.client)
		if err != nil {
			return p, fmt.Errorf("--client: %w", err)
		}
		p.ClientID = ref
	}
	if changed("worker") {
		ref, err := parseRef(f.worker)
		if err != nil {
			return p, fmt.Errorf("--worker: %w", err)
		}
		p.AssignedWorkerID = ref
	}
	return p, nil
}

func newTaskCreateCmd(g *Globals) *cobra.Command {
	flags := &taskFlags{}

	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"add", "new"},
		Short:   "Create a task",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input()
			if err != nil {
				return err
			}
			return runTaskCreate(cmd.Context(), in, g.options()...)
		},
	}
	flags.register(cmd)

	return cmd
}

func runTaskCreate(ctx context.Context, in models.TaskInput, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	task, err := c.store.CreateTask(ctx, in)
	if err != nil {
		return describeError("failed to create task", err)
	}
	fmt.Fprintf(r.out, "✓ Created task #%d (%s)\n", task.ID, task.Status.Label())
	return nil
}

func newTaskUpdateCmd(g *Globals) *cobra.Command {
	flags := &taskFlags{}

	cmd := &cobra.Command{
		Use:     "update <id>",
		Aliases: []string{"edit"},
		Short:   "Change fields of a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}
			return runTaskUpdate(cmd.Context(), id, patch, g.options()...)
		},
	}
	flags.register(cmd)

	return cmd
}

func runTaskUpdate(ctx context.Context, id int64, patch models.TaskPatch, options ...Option) error {
	if patch.Empty() {
		return fmt.Errorf("%w: pass at least one of --description, --status, --due, --notes, --client, --worker", store.ErrEmptyPatch)
	}
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	task, err := c.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return describeError(fmt.Sprintf("failed to update task %d", id), err)
	}
	fmt.Fprintf(r.out, "✓ Updated task #%d\n", task.ID)
	return nil
}

func newTaskStatusCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> [status]",
		Short: "Move a task to another status",
		Long: `Move a task to another status.

Without a status an interactive picker is shown.

Examples:
  $ taskdesk tasks status 12 done
  $ taskdesk tasks status 12 in-progress`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var status models.Status
			if len(args) == 2 {
				if status, err = models.ParseStatus(args[1]); err != nil {
					return err
				}
			}
			return runTaskStatus(cmd.Context(), id, status, g.options()...)
		},
	}
}

func runTaskStatus(ctx context.Context, id int64, status models.Status, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}

	if status == "" {
		if !isTerminal(r.in) {
			return fmt.Errorf("status is required in non-interactive mode")
		}
		current, err := c.store.Tasks.Get(ctx, id)
		if err != nil {
			return describeError(fmt.Sprintf("failed to load task %d", id), err)
		}
		if status, err = pickStatus(current.Status); err != nil {
			return err
		}
	}

	task, err := c.store.SetTaskStatus(ctx, id, status)
	if err != nil {
		return describeError(fmt.Sprintf("failed to update task %d", id), err)
	}
	fmt.Fprintf(r.out, "✓ Task #%d is now %s\n", task.ID, task.Status.Label())
	return nil
}

func newTaskDeleteCmd(g *Globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runDelete(cmd.Context(), "task", id, yes, func(s *store.Store) deleter { return s.Tasks }, g.options()...)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
