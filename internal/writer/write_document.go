package writer

import (
	"context"
	"fmt"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
)

// writeDocument emits exactly one ledger mutation for ev's (effective)
// operation, resolving ANY against current and the presence of ev.Revision
// per spec.md §4.4.4. Both strategies share this: the table-name/bind-
// value shape of the mutation doesn't depend on how current was found.
func writeDocument(ctx context.Context, tx ledger.Transaction, ev event.Event, current *ledger.CurrentRevision) error {
	op := resolveOperation(ev, current)

	switch op {
	case event.OpInsert:
		_, err := tx.Insert(ctx, ev.Table, map[string]any(ev.Revision))
		return err

	case event.OpUpdate:
		if current == nil {
			return fmt.Errorf("writer: update resolved with no current revision for table %q", ev.Table)
		}
		return tx.Replace(ctx, ev.Table, current.ID, map[string]any(ev.Revision))

	case event.OpDelete:
		if current == nil {
			return fmt.Errorf("writer: delete resolved with no current revision for table %q", ev.Table)
		}
		return tx.Remove(ctx, ev.Table, current.ID)

	default:
		return fmt.Errorf("writer: cannot resolve a mutation for operation %q", ev.Operation)
	}
}

// resolveOperation implements the ANY-resolution rules: current absent ⇒
// INSERT, current present with an absent new revision ⇒ DELETE, both
// present ⇒ UPDATE. INSERT/UPDATE/DELETE pass through unchanged.
func resolveOperation(ev event.Event, current *ledger.CurrentRevision) event.Operation {
	if ev.Operation != event.OpAny {
		return ev.Operation
	}
	switch {
	case current == nil:
		return event.OpInsert
	case ev.Revision == nil:
		return event.OpDelete
	default:
		return event.OpUpdate
	}
}
