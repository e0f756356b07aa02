package writer

import (
	"context"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
)

// BackLinkWriter is the default revision-lookup strategy (spec.md
// §4.4.1): it finds the current revision by querying the target table
// for a document whose OldDocumentIDField equals the event's id, and it
// stamps that same field onto every revision it writes so the next
// event for the same source identity finds it again.
type BackLinkWriter struct {
	Strict bool
}

// NewBackLinkWriter builds the default strategy. strict governs the
// UPDATE/DELETE-with-no-current rows of the validation table.
func NewBackLinkWriter(strict bool) *BackLinkWriter {
	return &BackLinkWriter{Strict: strict}
}

func (w *BackLinkWriter) PreValidate(ev event.Event) (ValidationResult, bool) {
	// The back-link strategy always has a field to query (OldDocumentIDField),
	// so it never short-circuits before ledger I/O.
	return ValidationResult{}, false
}

func (w *BackLinkWriter) ReadCurrent(ctx context.Context, tx ledger.Transaction, ev event.Event) (*ledger.CurrentRevision, error) {
	if tx == nil || !ev.HasID() || ev.Table == "" {
		return nil, nil
	}
	current, ok, err := tx.QueryByField(ctx, ev.Table, OldDocumentIDField, ev.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return current, nil
}

func (w *BackLinkWriter) Validate(ev event.Event, current *ledger.CurrentRevision) ValidationResult {
	return Validate(ev, current, w.Strict)
}

func (w *BackLinkWriter) AdjustRevision(ev event.Event, current *ledger.CurrentRevision) event.Event {
	// A nil Revision means "no new revision to write" (the DELETE leg of
	// ANY resolution in writeDocument); fabricating one here to hold the
	// back-link would turn that absence into a present-but-empty map and
	// silently flip an intended delete into an update.
	if !ev.HasID() || ev.Revision == nil {
		return ev
	}
	adjusted := ev
	revision := ev.Revision.Clone()
	revision[OldDocumentIDField] = ev.ID
	adjusted.Revision = revision
	return adjusted
}

func (w *BackLinkWriter) WriteDocument(ctx context.Context, tx ledger.Transaction, ev event.Event, current *ledger.CurrentRevision) error {
	return writeDocument(ctx, tx, ev, current)
}
