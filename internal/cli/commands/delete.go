package commands

import (
	"context"
	"fmt"

	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
)

// deleter is the part of a resource the delete commands use
type deleter interface {
	Delete(ctx context.Context, id int64) error
}

// deleteWarnings describes server-side side effects per entity
var deleteWarnings = map[string]string{
	"client": "Tasks linked to this client are deleted too.",
	"worker": "Tasks assigned to this worker become unassigned.",
}

func runDelete(ctx context.Context, entity string, id int64, yes bool, pick func(*store.Store) deleter, options ...Option) error {
	r, err := newRuntime(options...)
	if err != nil {
		return err
	}
	c, err := r.authenticated(ctx)
	if err != nil {
		return err
	}

	if warning, ok := deleteWarnings[entity]; ok && !yes {
		fmt.Fprintln(r.errOut, warning)
	}
	if err := r.confirm(fmt.Sprintf("delete %s #%d", entity, id), yes); err != nil {
		return err
	}

	if err := pick(c.store).Delete(ctx, id); err != nil {
		return describeError(fmt.Sprintf("failed to delete %s %d", entity, id), err)
	}
	fmt.Fprintf(r.out, "✓ Deleted %s #%d\n", entity, id)
	return nil
}
