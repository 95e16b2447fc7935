package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
	"github.com/taskdesk-dev/taskdesk/internal/models"
)

// NewWorkersCmd creates the workers command group
func NewWorkersCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workers",
		Aliases: []string{"worker"},
		Short:   "List and manage workers",
	}

	cmd.AddCommand(
		newWorkerListCmd(g),
		newWorkerCreateCmd(g),
		newWorkerUpdateCmd(g),
		newWorkerDeleteCmd(g),
	)
	return cmd
}

func newWorkerListCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:     "ls [search]",
		Aliases: []string{"list"},
		Short:   "List workers by name",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return runWorkerList(cmd.Context(), query, g.options()...)
		},
	}
}

func runWorkerList(ctx context.Context, query string, options ...Option) error {
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
	workers, err := c.store.Workers.List(ctx)
	if err != nil {
		return describeError("failed to list workers", err)
	}
	shown := view.FilterWorkers(workers, query)

	return view.Write(r.out, format, shown, func(w io.Writer) error {
		if len(shown) == 0 {
			fmt.Fprintln(w, "No workers found.")
			return nil
		}
		return view.WorkerTable(w, shown)
	})
}

type workerFlags struct {
	name, skills, availability, email string
}

func (f *workerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Worker name")
	cmd.Flags().StringVar(&f.skills, "skills", "", "Skills, free text")
	cmd.Flags().StringVar(&f.availability, "availability", "", "Availability, e.g. \"Weekdays\"")
	cmd.Flags().StringVar(&f.email, "email", "", "Contact email")
}

func (f *workerFlags) patch(cmd *cobra.Command) models.WorkerPatch {
	var p models.WorkerPatch
	changed := cmd.Flags().Changed
	if changed("name") {
		p.Name = &f.name
	}
	if changed("skills") {
		p.Skills = &f.skills
	}
	if changed("availability") {
		p.Availability = &f.availability
	}
	if changed("email") {
		p.ContactEmail = &f.email
	}
	return p
}

func newWorkerCreateCmd(g *Globals) *cobra.Command {
	flags := &workerFlags{}

	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"add", "new"},
		Short:   "Create a worker",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.WorkerInput{Name: flags.name, Skills: flags.skills, Availability: flags.availability, ContactEmail: flags.email}
			return runWorkerCreate(cmd.Context(), in, g.options()...)
		},
	}
	flags.register(cmd)

	return cmd
}

func runWorkerCreate(ctx context.Context, in models.WorkerInput, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	worker, err := c.store.Workers.Create(ctx, in)
	if err != nil {
		return describeError("failed to create worker", err)
	}
	fmt.Fprintf(r.out, "✓ Created worker #%d (%s)\n", worker.ID, worker.Name)
	return nil
}

func newWorkerUpdateCmd(g *Globals) *cobra.Command {
	flags := &workerFlags{}

	cmd := &cobra.Command{
		Use:     "update <id>",
		Aliases: []string{"edit"},
		Short:   "Change fields of a worker",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWorkerUpdate(cmd.Context(), id, flags.patch(cmd), g.options()...)
		},
	}
	flags.register(cmd)

	return cmd
}

func runWorkerUpdate(ctx context.Context, id int64, patch models.WorkerPatch, options ...Option) error {
	if patch == (models.WorkerPatch{}) {
		return fmt.Errorf("%w: pass at least one of --name, --skills, --availability, --email", store.ErrEmptyPatch)
	}
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	worker, err := c.store.Workers.Update(ctx, id, patch)
	if err != nil {
		return describeError(fmt.Sprintf("failed to update worker %d", id), err)
	}
	fmt.Fprintf(r.out, "✓ Updated worker #%d (%s)\n", worker.ID, worker.Name)
	return nil
}

func newWorkerDeleteCmd(g *Globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a worker, unassigning their tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runDelete(cmd.Context(), "worker", id, yes, func(s *store.Store) deleter { return s.Workers }, g.options()...)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
