package writer

import (
	"fmt"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
)

// ValidationResult is the outcome of validating one event against the
// current committed revision (spec.md §3, §4.4.2).
type ValidationResult struct {
	Skip    bool
	Fail    bool
	Message string
}

// Pass, Skip, and Fail are ValidationResult's constructors. At most one
// of Skip/Fail is ever true.
func Pass() ValidationResult               { return ValidationResult{} }
func Skip(message string) ValidationResult { return ValidationResult{Skip: true, Message: message} }
func Fail(message string) ValidationResult { return ValidationResult{Fail: true, Message: message} }

// Validate runs the validation state machine from spec.md §4.4.2 against
// ev and the current committed revision (nil if none exists). strict
// governs whether a missing precondition for UPDATE/DELETE is a failure
// or a silent skip.
func Validate(ev event.Event, current *ledger.CurrentRevision, strict bool) ValidationResult {
	evVersion := ev.VersionOrUnknown()

	switch ev.Operation {
	case event.OpInsert:
		if current != nil {
			return Skip("document already exists")
		}
		return Pass()

	case event.OpUpdate:
		if current == nil {
			if strict {
				return Fail("update: no existing document for strict-mode precondition")
			}
			return Skip("update: no existing document; tolerated in non-strict mode")
		}
		return validateAgainstCurrent(evVersion, current.Version, "update")

	case event.OpDelete:
		if current == nil {
			if strict {
				return Fail("delete: no existing document for strict-mode precondition")
			}
			return Skip("delete: no existing document; tolerated in non-strict mode")
		}
		return validateAgainstCurrent(evVersion, current.Version, "delete")

	case event.OpAny:
		if current == nil {
			if ev.Revision == nil {
				return Skip("any: no current revision and no new revision; nothing to do")
			}
			return Pass()
		}
		if evVersion < 0 {
			// Unlike UPDATE/DELETE, ANY has no operation-level guarantee that a
			// version-less resend is a fresh change: a channel that keeps
			// redelivering the same un-versioned upsert must converge, not
			// re-apply forever. Treat "current present, version unknown" as
			// already handled (spec.md §8 scenario S6).
			return Skip("any: current revision already exists and event carries no version")
		}
		return validateAgainstCurrent(evVersion, current.Version, "any")

	default:
		return Fail(fmt.Sprintf("unknown operation %q", ev.Operation))
	}
}

// validateAgainstCurrent implements the shared UPDATE/DELETE/ANY-with-
// current-present rows of the decision table: stale/duplicate versions
// skip, version gaps fail, everything else (unknown version or the
// exact next version) passes.
func validateAgainstCurrent(evVersion, curVersion int, op string) ValidationResult {
	if evVersion >= 0 && evVersion <= curVersion {
		return Skip(fmt.Sprintf("%s: version %d already observed (current %d)", op, evVersion, curVersion))
	}
	if evVersion >= 0 && evVersion > curVersion+1 {
		return Fail(fmt.Sprintf("%s: version gap — event version %d, current %d", op, evVersion, curVersion))
	}
	return Pass()
}
