package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// HandleStream implements the generic partitioned-log channel (spec.md
// §4.5): each record's (already base64-decoded) body carries one or more
// concatenated events. The entire batch is processed before throwing, so
// a single temporarily-bad record doesn't block records behind it that a
// later retry might still apply successfully.
func (s *Sink) HandleStream(ctx context.Context, batch events.KinesisEvent) error {
	var failedCount int

	for _, record := range batch.Records {
		evs, err := event.ParseAll(record.Kinesis.Data)
		if err != nil {
			s.Log.WithField("sequence_number", record.Kinesis.SequenceNumber).WithError(err).Warn("dispatch: stream: malformed record")
			failedCount++
			continue
		}
		if len(evs) == 0 {
			s.logSkippedPayload("stream: empty or null record")
			continue
		}

		for _, ev := range evs {
			if result := s.Driver.WriteEvent(ctx, ev); result.Outcome == writer.Failed {
				failedCount++
			}
		}
	}

	if failedCount > 0 {
		return fmt.Errorf("dispatch: stream: %d failures in batch of %d records", failedCount, len(batch.Records))
	}
	return nil
}
