package writer

import (
	"context"
	"fmt"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
)

// WildcardTable is the fallback key in an IdentityFieldWriter's field map
// that applies to every table without its own entry (spec.md §4.4.1).
const WildcardTable = "*"

// IdentityFieldWriter is the alternate revision-lookup strategy: a
// configured tableName → fieldName mapping (with an optional wildcard
// fallback) selects which document field identifies the current
// revision. It performs no back-link stamping (spec.md §4.4.3: "the
// identity-field-mapping variant does nothing here").
type IdentityFieldWriter struct {
	Strict       bool
	FieldByTable map[string]string
}

// NewIdentityFieldWriter builds the alternate strategy from a
// tableName → fieldName map. Pass WildcardTable as a key to set the
// fallback field used for any table without its own entry.
func NewIdentityFieldWriter(strict bool, fieldByTable map[string]string) *IdentityFieldWriter {
	fields := make(map[string]string, len(fieldByTable))
	for k, v := range fieldByTable {
		fields[k] = v
	}
	return &IdentityFieldWriter{Strict: strict, FieldByTable: fields}
}

func (w *IdentityFieldWriter) lookupField(table string) (string, bool) {
	if f, ok := w.FieldByTable[table]; ok {
		return f, true
	}
	if f, ok := w.FieldByTable[WildcardTable]; ok {
		return f, true
	}
	return "", false
}

func (w *IdentityFieldWriter) PreValidate(ev event.Event) (ValidationResult, bool) {
	if _, ok := w.lookupField(ev.Table); !ok {
		return Skip(fmt.Sprintf("identity-field writer: no field mapping for table %q and no wildcard configured", ev.Table)), true
	}
	return ValidationResult{}, false
}

func (w *IdentityFieldWriter) ReadCurrent(ctx context.Context, tx ledger.Transaction, ev event.Event) (*ledger.CurrentRevision, error) {
	field, ok := w.lookupField(ev.Table)
	if !ok || tx == nil || !ev.HasID() || ev.Table == "" {
		return nil, nil
	}
	current, found, err := tx.QueryByField(ctx, ev.Table, field, ev.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return current, nil
}

func (w *IdentityFieldWriter) Validate(ev event.Event, current *ledger.CurrentRevision) ValidationResult {
	return Validate(ev, current, w.Strict)
}

func (w *IdentityFieldWriter) AdjustRevision(ev event.Event, current *ledger.CurrentRevision) event.Event {
	return ev
}

func (w *IdentityFieldWriter) WriteDocument(ctx context.Context, tx ledger.Transaction, ev event.Event, current *ledger.CurrentRevision) error {
	return writeDocument(ctx, tx, ev, current)
}
