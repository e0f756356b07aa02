package writer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/qldb-ledger-load-go/internal/activetables"
	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger/ledgertest"
)

func rev(version int) *ledger.CurrentRevision {
	return &ledger.CurrentRevision{ID: "doc-1", Version: version, Data: map[string]any{"n": "A"}}
}

// TestValidationTable exercises every row of the decision table in
// spec.md §4.4.2, keyed by operation/current/version condition.
func TestValidationTable(t *testing.T) {
	cases := []struct {
		name    string
		ev      event.Event
		current *ledger.CurrentRevision
		strict  bool
		want    Outcome
	}{
		{"insert present skips", event.Event{Operation: event.OpInsert}, rev(0), true, Skipped},
		{"insert absent passes", event.Event{Operation: event.OpInsert}, nil, true, Applied},
		{"update absent strict fails", event.Event{Operation: event.OpUpdate}, nil, true, Failed},
		{"update absent non-strict skips", event.Event{Operation: event.OpUpdate}, nil, false, Skipped},
		{"update stale skips", event.Event{Operation: event.OpUpdate, Version: 0}, rev(1), true, Skipped},
		{"update duplicate skips", event.Event{Operation: event.OpUpdate, Version: 1}, rev(1), true, Skipped},
		{"update gap fails", event.Event{Operation: event.OpUpdate, Version: 3}, rev(0), true, Failed},
		{"update next passes", event.Event{Operation: event.OpUpdate, Version: 1}, rev(0), true, Applied},
		{"update no-version passes", event.Event{Operation: event.OpUpdate, Version: event.NoVersion}, rev(0), true, Applied},
		{"delete absent strict fails", event.Event{Operation: event.OpDelete}, nil, true, Failed},
		{"delete absent non-strict skips", event.Event{Operation: event.OpDelete}, nil, false, Skipped},
		{"delete stale skips", event.Event{Operation: event.OpDelete, Version: 0}, rev(1), true, Skipped},
		{"delete gap fails", event.Event{Operation: event.OpDelete, Version: 5}, rev(0), true, Failed},
		{"delete otherwise passes", event.Event{Operation: event.OpDelete, Version: event.NoVersion}, rev(0), true, Applied},
		{"any absent with revision passes", event.Event{Operation: event.OpAny, Revision: event.Document{"n": "A"}}, nil, true, Applied},
		{"any absent no revision is no-op skip", event.Event{Operation: event.OpAny}, nil, true, Skipped},
		{"any present stale skips", event.Event{Operation: event.OpAny, Version: 0}, rev(1), true, Skipped},
		{"any present gap fails", event.Event{Operation: event.OpAny, Version: 9}, rev(0), true, Failed},
		{"any present next passes", event.Event{Operation: event.OpAny, Version: 1}, rev(0), true, Applied},
		{"any present no version skips", event.Event{Operation: event.OpAny, Version: event.NoVersion}, rev(0), true, Skipped},
		{"unknown operation fails", event.Event{Operation: "BOGUS"}, nil, true, Failed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.ev, tc.current, tc.strict)
			got := Applied
			switch {
			case result.Fail:
				got = Failed
			case result.Skip:
				got = Skipped
			}
			assert.Equal(t, tc.want, got, "message: %s", result.Message)
		})
	}
}

func newDriver(t *testing.T, strict bool, activeTables ...string) (*Driver, *ledgertest.Ledger) {
	t.Helper()
	l, err := ledgertest.New(activeTables...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return NewDriver(NewBackLinkWriter(strict), l, nil), l
}

// TestWriteEventSkipsInactiveTable: spec.md §4.3, a table absent from
// the active-tables snapshot is skipped by the Driver before PreValidate,
// not queried.
func TestWriteEventSkipsInactiveTable(t *testing.T) {
	d, _ := newDriver(t, true, "Person")
	d.WithActiveTables(activetables.FromTables([]string{"Person"}))

	ev := event.Event{Operation: event.OpInsert, Table: "Widget", ID: "W1", Version: 0, Revision: event.Document{"n": "A"}}
	res := d.WriteEvent(t.Context(), ev)
	assert.Equal(t, Skipped, res.Outcome)
	assert.Contains(t, res.Message, "active-tables")
}

// TestScenarioS1InsertThenSkip: spec.md §8 S1.
func TestScenarioS1InsertThenSkip(t *testing.T) {
	d, _ := newDriver(t, true, "Person")
	ctx := t.Context()
	ev := event.Event{Operation: event.OpInsert, Table: "Person", ID: "P1", Version: 0, Revision: event.Document{"n": "A"}}

	first := d.WriteEvent(ctx, ev)
	assert.Equal(t, Applied, first.Outcome)

	second := d.WriteEvent(ctx, ev)
	assert.Equal(t, Skipped, second.Outcome)
}

// TestScenarioS2InOrderUpdate: spec.md §8 S2.
func TestScenarioS2InOrderUpdate(t *testing.T) {
	d, l := newDriver(t, true, "Person")
	ctx := t.Context()
	insert := event.Event{Operation: event.OpInsert, Table: "Person", ID: "P1", Version: 0, Revision: event.Document{"n": "A"}}
	require.Equal(t, Applied, d.WriteEvent(ctx, insert).Outcome)

	update := event.Event{Operation: event.OpUpdate, Table: "Person", ID: "P1", Version: 1, Revision: event.Document{"n": "B"}}
	result := d.WriteEvent(ctx, update)
	require.Equal(t, Applied, result.Outcome)

	current, found, err := mustQueryBackLink(t, l, "Person", "P1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, current.Version)
}

// TestScenarioS3VersionGapStrict: spec.md §8 S3.
func TestScenarioS3VersionGapStrict(t *testing.T) {
	d, _ := newDriver(t, true, "Person")
	ctx := t.Context()
	insert := event.Event{Operation: event.OpInsert, Table: "Person", ID: "P1", Version: 0, Revision: event.Document{"n": "A"}}
	require.Equal(t, Applied, d.WriteEvent(ctx, insert).Outcome)

	gap := event.Event{Operation: event.OpUpdate, Table: "Person", ID: "P1", Version: 3, Revision: event.Document{"n": "C"}}
	result := d.WriteEvent(ctx, gap)
	require.Equal(t, Failed, result.Outcome)
	assert.Contains(t, result.Message, "gap")
}

// TestScenarioS4DeleteMissingNonStrict: spec.md §8 S4.
func TestScenarioS4DeleteMissingNonStrict(t *testing.T) {
	d, _ := newDriver(t, false, "Person")
	result := d.WriteEvent(t.Context(), event.Event{Operation: event.OpDelete, Table: "Person", ID: "X"})
	assert.Equal(t, Skipped, result.Outcome)
}

// TestScenarioS5DeleteMissingStrict: spec.md §8 S5.
func TestScenarioS5DeleteMissingStrict(t *testing.T) {
	d, _ := newDriver(t, true, "Person")
	result := d.WriteEvent(t.Context(), event.Event{Operation: event.OpDelete, Table: "Person", ID: "X"})
	assert.Equal(t, Failed, result.Outcome)
}

// TestScenarioS6AnyResolvesInsertThenUpdate: spec.md §8 S6.
func TestScenarioS6AnyResolvesInsertThenUpdate(t *testing.T) {
	d, _ := newDriver(t, true, "Person")
	ctx := t.Context()
	ev := event.Event{Operation: event.OpAny, Table: "Person", ID: "P2", Revision: event.Document{"n": "Q"}}

	insertResult := d.WriteEvent(ctx, ev)
	require.Equal(t, Applied, insertResult.Outcome)

	resend := d.WriteEvent(ctx, ev)
	assert.Equal(t, Skipped, resend.Outcome)

	ev.Version = 1
	updateResult := d.WriteEvent(ctx, ev)
	assert.Equal(t, Applied, updateResult.Outcome)
}

func TestAnyResolvesDeleteWhenRevisionAbsent(t *testing.T) {
	d, l := newDriver(t, true, "Person")
	ctx := t.Context()
	insert := event.Event{Operation: event.OpAny, Table: "Person", ID: "P3", Revision: event.Document{"n": "Z"}}
	require.Equal(t, Applied, d.WriteEvent(ctx, insert).Outcome)

	del := event.Event{Operation: event.OpAny, Table: "Person", ID: "P3", Version: 1}
	result := d.WriteEvent(ctx, del)
	require.Equal(t, Applied, result.Outcome)

	_, found, err := mustQueryBackLink(t, l, "Person", "P3")
	require.NoError(t, err)
	assert.False(t, found, "deleted document should no longer match the back-link query")
}

func TestIdentityFieldWriterSkipsWhenNoMapping(t *testing.T) {
	w := NewIdentityFieldWriter(true, map[string]string{"Person": "gov_id"})
	_, ok := w.PreValidate(event.Event{Table: "Other"})
	assert.True(t, ok, "unmapped table with no wildcard must short-circuit")

	_, ok = w.PreValidate(event.Event{Table: "Person"})
	assert.False(t, ok)
}

func TestIdentityFieldWriterWildcardFallback(t *testing.T) {
	w := NewIdentityFieldWriter(true, map[string]string{WildcardTable: "ext_id"})
	field, ok := w.lookupField("AnyTable")
	assert.True(t, ok)
	assert.Equal(t, "ext_id", field)
}

func TestIdentityFieldWriterDoesNotStampBackLink(t *testing.T) {
	w := NewIdentityFieldWriter(true, map[string]string{"Person": "gov_id"})
	ev := event.Event{Table: "Person", ID: "8787", Revision: event.Document{"gov_id": "8787"}}
	adjusted := w.AdjustRevision(ev, nil)
	assert.NotContains(t, adjusted.Revision, OldDocumentIDField)
}

// mustQueryBackLink reaches into the fake ledger the same way
// BackLinkWriter.ReadCurrent does, for assertions outside of a driver run.
func mustQueryBackLink(t *testing.T, l *ledgertest.Ledger, table, id string) (*ledger.CurrentRevision, bool, error) {
	t.Helper()
	type queryResult struct {
		current *ledger.CurrentRevision
		found   bool
	}
	raw, err := l.Execute(t.Context(), func(ctx context.Context, tx ledger.Transaction) (any, error) {
		current, found, err := tx.QueryByField(ctx, table, OldDocumentIDField, id)
		if err != nil {
			return nil, err
		}
		return queryResult{current: current, found: found}, nil
	})
	if err != nil {
		return nil, false, err
	}
	qr := raw.(queryResult)
	return qr.current, qr.found, nil
}
