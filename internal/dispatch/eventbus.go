package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// HandleEventBridge implements the event bus channel (spec.md §4.5): a
// single record whose Detail field is the canonical event; any failure
// raises immediately (no partial batch — there is only one item).
func (s *Sink) HandleEventBridge(ctx context.Context, evt events.CloudWatchEvent) error {
	ev, ok, err := event.ParseJSON(evt.Detail)
	if err != nil {
		return fmt.Errorf("dispatch: eventbridge: malformed detail: %w", err)
	}
	if !ok {
		s.logSkippedPayload("eventbridge: empty or null detail")
		return nil
	}

	result := s.Driver.WriteEvent(ctx, ev)
	if result.Outcome == writer.Failed {
		return fmt.Errorf("dispatch: eventbridge: %s", result.Message)
	}
	return nil
}
