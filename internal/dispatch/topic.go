package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// HandleSNS implements the pub/sub topic channel (spec.md §4.5): one
// event per record, the whole batch is attempted, and a single error is
// returned at the end if any item failed — channel-level retry then DLQ,
// as opposed to the queue adaptor's per-item report.
func (s *Sink) HandleSNS(ctx context.Context, batch events.SNSEvent) error {
	var failedCount int

	for _, record := range batch.Records {
		ev, ok, err := event.Parse([]byte(record.SNS.Message))
		if err != nil {
			s.Log.WithField("message_id", record.SNS.MessageID).WithError(err).Warn("dispatch: sns: malformed record")
			failedCount++
			continue
		}
		if !ok {
			s.logSkippedPayload("sns: empty or null payload")
			continue
		}

		if result := s.Driver.WriteEvent(ctx, ev); result.Outcome == writer.Failed {
			failedCount++
		}
	}

	if failedCount > 0 {
		return fmt.Errorf("dispatch: sns: %d of %d records failed", failedCount, len(batch.Records))
	}
	return nil
}
