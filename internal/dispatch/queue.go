package dispatch

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// snsWrapper recognizes the raw-delivery-disabled envelope an SQS queue
// subscribed to an SNS topic receives: the message body is itself a JSON
// object carrying TopicArn/Message instead of the canonical event.
type snsWrapper struct {
	TopicArn string `json:"TopicArn"`
	Message  string `json:"Message"`
}

// HandleSQS implements the point-to-point queue channel (spec.md §4.5):
// one event per record, per-item failure reporting so the caller's queue
// acknowledges successful items and redelivers only the failed ones.
func (s *Sink) HandleSQS(ctx context.Context, batch events.SQSEvent) (events.SQSBatchResponse, error) {
	var failures []events.SQSBatchItemFailure

	for _, record := range batch.Records {
		body := []byte(record.Body)

		var wrapped snsWrapper
		if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.TopicArn != "" && wrapped.Message != "" {
			body = []byte(wrapped.Message)
		}

		ev, ok, err := event.Parse(body)
		if err != nil {
			s.Log.WithField("message_id", record.MessageId).WithError(err).Warn("dispatch: sqs: malformed record")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			continue
		}
		if !ok {
			s.logSkippedPayload("sqs: empty or null payload")
			continue
		}

		result := s.Driver.WriteEvent(ctx, ev)
		if result.Outcome == writer.Failed {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}

	return events.SQSBatchResponse{BatchItemFailures: failures}, nil
}
