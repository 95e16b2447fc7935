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

// NewClientsCmd creates the clients command group
func NewClientsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clients",
		Aliases: []string{"client"},
		Short:   "List and manage clients",
	}

	cmd.AddCommand(
		newClientListCmd(g),
		newClientCreateCmd(g),
		newClientUpdateCmd(g),
		newClientDeleteCmd(g),
	)
	return cmd
}

func newClientListCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:     "ls [search]",
		Aliases: []string{"list"},
		Short:   "List clients, newest first",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return runClientList(cmd.Context(), query, g.options()...)
		},
	}
}

func runClientList(ctx context.Context, query string, options ...Option) error {
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
	clients, err := c.store.Clients.List(ctx)
	if err != nil {
		return describeError("failed to list clients", err)
	}
	shown := view.FilterClients(clients, query)

	return view.Write(r.out, format, shown, func(w io.Writer) error {
		if len(shown) == 0 {
			fmt.Fprintln(w, "No clients found.")
			return nil
		}
		return view.ClientTable(w, shown)
	})
}

type clientFlags struct {
	name, email, phone, notes string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Client name")
	cmd.Flags().StringVar(&f.email, "email", "", "Contact email")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Notes")
}

func (f *clientFlags) patch(cmd *cobra.Command) models.ClientPatch {
	var p models.ClientPatch
	changed := cmd.Flags().Changed
	if changed("name") {
		p.Name = &f.name
	}
	if changed("email") {
		p.ContactEmail = &f.email
	}
	if changed("phone") {
		p.Phone = &f.phone
	}
	if changed("notes") {
		p.Notes = &f.notes
	}
	return p
}

func newClientCreateCmd(g *Globals) *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"add", "new"},
		Short:   "Create a client",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.ClientInput{Name: flags.name, ContactEmail: flags.email, Phone: flags.phone, Notes: flags.notes}
			return runClientCreate(cmd.Context(), in, g.options()...)
		},
	}
	flags.register(cmd)

	return cmd
}

func runClientCreate(ctx context.Context, in models.ClientInput, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	client, err := c.store.Clients.Create(ctx, in)
	if err != nil {
		return describeError("failed to create client", err)
	}
	fmt.Fprintf(r.out, "✓ Created client #%d (%s)\n", client.ID, client.Name)
	return nil
}

func newClientUpdateCmd(g *Globals) *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:     "update <id>",
		Aliases: []string{"edit"},
		Short:   "Change fields of a client",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runClientUpdate(cmd.Context(), id, flags.patch(cmd), g.options()...)
		},
	}
	flags.register(cmd)

	return cmd
}

func runClientUpdate(ctx context.Context, id int64, patch models.ClientPatch, options ...Option) error {
	if patch == (models.ClientPatch{}) {
		return fmt.Errorf("%w: pass at least one of --name, --email, --phone, --notes", store.ErrEmptyPatch)
	}
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	client, err := c.store.Clients.Update(ctx, id, patch)
	if err != nil {
		return describeError(fmt.Sprintf("failed to update client %d", id), err)
	}
	fmt.Fprintf(r.out, "✓ Updated client #%d (%s)\n", client.ID, client.Name)
	return nil
}

func newClientDeleteCmd(g *Globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a client and its tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runDelete(cmd.Context(), "client", id, yes, func(s *store.Store) deleter { return s.Clients }, g.options()...)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
