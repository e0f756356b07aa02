// Package writer implements the apply core: the validation state machine
// that decides whether a load event is applied, and the write planning
// that turns a passing event into exactly one ledger mutation. spec.md
// §4.4 describes a single five-step pipeline (preValidate,
// readCurrentRevision, validate, adjustRevision, writeDocument) behind two
// interchangeable revision-lookup strategies; this package models that as
// one Writer interface with two concrete implementations sharing the
// Validate and writeDocument functions.
package writer

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/aws-samples/qldb-ledger-load-go/internal/activetables"
	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
)

// OldDocumentIDField is the back-link field name stamped onto a written
// revision to record the external identity it originated from (spec.md
// §4.4.1, §4.4.3).
const OldDocumentIDField = "oldDocumentId"

// Outcome classifies how one event was disposed of, for logging and for
// the Dispatcher's per-channel aggregation policy (spec.md §7).
type Outcome int

const (
	Applied Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the disposition of one event after a call to WriteEvent.
type Result struct {
	Event   event.Event
	Outcome Outcome
	Message string
	Err     error
}

// BatchResult aggregates the per-event Results from one WriteEvents call.
type BatchResult struct {
	Results []Result
}

// Failed reports whether any event in the batch failed.
func (b BatchResult) Failed() bool {
	for _, r := range b.Results {
		if r.Outcome == Failed {
			return true
		}
	}
	return false
}

// FailedResults returns the subset of Results with Outcome == Failed, in
// batch order.
func (b BatchResult) FailedResults() []Result {
	out := make([]Result, 0)
	for _, r := range b.Results {
		if r.Outcome == Failed {
			out = append(out, r)
		}
	}
	return out
}

// Writer is the apply-core contract the Dispatcher drives, one event at a
// time, inside a caller-managed ledger transaction. The five methods
// mirror spec.md §4.4's pipeline steps exactly so a reviewer can match
// each one back to its named step.
type Writer interface {
	// PreValidate runs before any ledger I/O. A strategy that cannot
	// resolve a lookup field for ev.Table (the identity-field strategy
	// with no mapping and no wildcard) short-circuits here with a skip
	// instead of querying; ok is false for every other case, in which
	// the caller proceeds to ReadCurrent.
	PreValidate(ev event.Event) (result ValidationResult, ok bool)

	// ReadCurrent looks up the committed revision for ev's identity,
	// returning nil if none exists.
	ReadCurrent(ctx context.Context, tx ledger.Transaction, ev event.Event) (*ledger.CurrentRevision, error)

	// Validate runs the decision table in spec.md §4.4.2.
	Validate(ev event.Event, current *ledger.CurrentRevision) ValidationResult

	// AdjustRevision returns the revision-to-write, derived from ev and
	// current. The default strategy stamps OldDocumentIDField; the
	// identity-field strategy returns ev unchanged.
	AdjustRevision(ev event.Event, current *ledger.CurrentRevision) event.Event

	// WriteDocument emits exactly one ledger mutation for the
	// (effective) operation resolved from ev and current.
	WriteDocument(ctx context.Context, tx ledger.Transaction, ev event.Event, current *ledger.CurrentRevision) error
}

// Driver runs the shared batch pipeline (spec.md §4.4's outer loop) over
// a Writer and a ledger.TransactionExecutor. It is the single entry point
// every dispatch adaptor calls.
type Driver struct {
	Writer       Writer
	Executor     ledger.TransactionExecutor
	Log          *logrus.Entry
	ActiveTables *activetables.Registry
}

// NewDriver builds a Driver. log may be nil, in which case a
// discard-output entry is used.
func NewDriver(w Writer, exec ledger.TransactionExecutor, log *logrus.Entry) *Driver {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	return &Driver{Writer: w, Executor: exec, Log: log}
}

// WithActiveTables attaches the active-tables snapshot checked by
// WriteEvent before any ledger I/O (spec.md §4.3). A Driver with no
// snapshot attached skips the check, which is what every teacher-style
// test helper in this package does — production wiring always attaches
// one at startup.
func (d *Driver) WithActiveTables(reg *activetables.Registry) *Driver {
	d.ActiveTables = reg
	return d
}

// WriteEvent applies a single event inside one ledger transaction,
// relying on the executor to retry the whole body on an optimistic-
// concurrency conflict (spec.md §5: the body must be idempotent under
// re-execution, so every read here is recomputed on each attempt).
func (d *Driver) WriteEvent(ctx context.Context, ev event.Event) Result {
	if !ev.IsValid() {
		return Result{Event: ev, Outcome: Failed, Message: "malformed event: missing operation, table, or required revision"}
	}

	if d.ActiveTables != nil && !d.ActiveTables.IsActive(ev.Table) {
		return toResult(ev, Skip(fmt.Sprintf("table %q is not in the active-tables snapshot", ev.Table)))
	}

	if result, ok := d.Writer.PreValidate(ev); ok {
		return toResult(ev, result)
	}

	raw, err := d.Executor.Execute(ctx, func(ctx context.Context, tx ledger.Transaction) (any, error) {
		current, err := d.Writer.ReadCurrent(ctx, tx, ev)
		if err != nil {
			return nil, fmt.Errorf("writer: read current revision: %w", err)
		}

		result := d.Writer.Validate(ev, current)
		if !result.Skip && !result.Fail {
			adjusted := d.Writer.AdjustRevision(ev, current)
			if err := d.Writer.WriteDocument(ctx, tx, adjusted, current); err != nil {
				return nil, fmt.Errorf("writer: write document: %w", err)
			}
		}
		return result, nil
	})
	if err != nil {
		d.Log.WithFields(logrus.Fields{"table": ev.Table, "op": ev.Operation}).WithError(err).Warn("writer: transaction failed")
		return Result{Event: ev, Outcome: Failed, Message: err.Error(), Err: err}
	}

	result, _ := raw.(ValidationResult)
	res := toResult(ev, result)
	d.logResult(res)
	return res
}

// WriteEvents applies events in order, one ledger transaction per event
// (spec.md §5: "the Dispatcher processes a batch sequentially"). Every
// event is attempted regardless of earlier failures; the caller decides
// how to report the BatchResult. The dispatch adaptors do not use this:
// they call WriteEvent once per event.
func (d *Driver) WriteEvents(ctx context.Context, events []event.Event) BatchResult {
	results := make([]Result, 0, len(events))
	for _, ev := range events {
		results = append(results, d.WriteEvent(ctx, ev))
	}
	return BatchResult{Results: results}
}

func (d *Driver) logResult(r Result) {
	fields := logrus.Fields{"table": r.Event.Table, "op": r.Event.Operation, "outcome": r.Outcome.String()}
	switch r.Outcome {
	case Failed:
		d.Log.WithFields(fields).Warn(r.Message)
	case Skipped:
		d.Log.WithFields(fields).Info(r.Message)
	default:
		d.Log.WithFields(fields).Debug("applied")
	}
}

func toResult(ev event.Event, v ValidationResult) Result {
	switch {
	case v.Fail:
		return Result{Event: ev, Outcome: Failed, Message: v.Message}
	case v.Skip:
		return Result{Event: ev, Outcome: Skipped, Message: v.Message}
	default:
		return Result{Event: ev, Outcome: Applied}
	}
}
