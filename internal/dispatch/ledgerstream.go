package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// qldbStreamUserRecord is one de-aggregated ledger-stream user record
// (spec.md §4.5). recordType other than REVISION_DETAILS — e.g. the
// BLOCK_SUMMARY control record QLDB also streams — is ignored.
type qldbStreamUserRecord struct {
	RecordType string `json:"recordType"`
	Payload    struct {
		TableInfo struct {
			TableName string `json:"tableName"`
		} `json:"tableInfo"`
		Revision event.Document `json:"revision"`
	} `json:"payload"`
}

const qldbRecordTypeRevisionDetails = "REVISION_DETAILS"

// HandleLedgerStream implements the ledger-stream partitioned-log
// variant (spec.md §4.5): records may be KPL-aggregated and must be
// de-aggregated first; the Mapper is not consulted here, since a
// ledger-stream record already names the ledger's own table, not a
// foreign source table (see DESIGN.md's open-question decision). The
// whole batch is processed before throwing, matching the generic stream
// channel's head-of-line-blocking avoidance.
func (s *Sink) HandleLedgerStream(ctx context.Context, batch events.KinesisEvent) error {
	var failedCount int

	for _, record := range batch.Records {
		userRecords, err := deaggregateKPL(record.Kinesis.Data)
		if err != nil {
			s.Log.WithField("sequence_number", record.Kinesis.SequenceNumber).WithError(err).Warn("dispatch: ledgerstream: de-aggregation failed")
			failedCount++
			continue
		}

		for _, raw := range userRecords {
			var rec qldbStreamUserRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				s.Log.WithError(err).Warn("dispatch: ledgerstream: malformed user record")
				failedCount++
				continue
			}
			if rec.RecordType != qldbRecordTypeRevisionDetails {
				continue
			}

			ev, err := event.DeriveFromRevision(rec.Payload.TableInfo.TableName, rec.Payload.Revision)
			if err != nil {
				s.Log.WithError(err).Warn("dispatch: ledgerstream: malformed revision")
				failedCount++
				continue
			}

			if result := s.Driver.WriteEvent(ctx, ev); result.Outcome == writer.Failed {
				failedCount++
			}
		}
	}

	if failedCount > 0 {
		return fmt.Errorf("dispatch: ledgerstream: %d failures in batch of %d records", failedCount, len(batch.Records))
	}
	return nil
}
