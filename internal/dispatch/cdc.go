package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/mapper"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// cdcRecord is one change-data-capture record (spec.md §4.5): a
// metadata envelope naming the operation/source-table/record-type, the
// new data, and an optional before-image of the primary key.
type cdcRecord struct {
	Metadata struct {
		Operation  string `json:"operation"`
		TableName  string `json:"table-name"`
		RecordType string `json:"record-type"`
	} `json:"metadata"`
	Data event.Document `json:"data"`
}

// CDCHandler implements the CDC (DMS-like) partitioned-log variant. It
// is the one channel adaptor that consults the Mapper — CDC records name
// a foreign source table/schema, which the rest of the pipeline only
// ever sees translated to the ledger's own target table and field names.
type CDCHandler struct {
	Sink                 *Sink
	Mapper               mapper.Mapper
	BeforeImageFieldName string
}

// NewCDCHandler builds a CDCHandler. beforeImageField defaults to
// "before-image" per spec.md §6's BEFORE_IMAGE_FIELD_NAME default when
// empty.
func NewCDCHandler(sink *Sink, m mapper.Mapper, beforeImageField string) *CDCHandler {
	if beforeImageField == "" {
		beforeImageField = "before-image"
	}
	return &CDCHandler{Sink: sink, Mapper: m, BeforeImageFieldName: beforeImageField}
}

// Handle implements the CDC variant (spec.md §4.5): control records
// (non-"data" record-type) are skipped; INSERT/UPDATE/DELETE are mapped
// via operation name; unrecognized operations are skipped with a
// warning. Per-item; throws on first failure.
func (h *CDCHandler) Handle(ctx context.Context, batch events.KinesisEvent) error {
	for _, record := range batch.Records {
		var rec cdcRecord
		if err := json.Unmarshal(record.Kinesis.Data, &rec); err != nil {
			return fmt.Errorf("dispatch: cdc: malformed record %s: %w", record.Kinesis.SequenceNumber, err)
		}

		if rec.Metadata.RecordType != "" && rec.Metadata.RecordType != "data" {
			h.Sink.logSkippedPayload(fmt.Sprintf("cdc: control record-type %q", rec.Metadata.RecordType))
			continue
		}

		op, known := cdcOperation(rec.Metadata.Operation)
		if !known {
			h.Sink.Log.WithField("operation", rec.Metadata.Operation).Warn("dispatch: cdc: unrecognized operation; skipping")
			continue
		}

		targetTable, mapped := h.Mapper.MapTableName(rec.Metadata.TableName)
		if !mapped {
			h.Sink.logSkippedPayload(fmt.Sprintf("cdc: no mapping for source table %q", rec.Metadata.TableName))
			continue
		}

		var beforeImage event.Document
		if raw, ok := rec.Data[h.BeforeImageFieldName]; ok {
			if m, ok := raw.(event.Document); ok {
				beforeImage = m
			} else if m, ok := raw.(map[string]any); ok {
				beforeImage = event.Document(m)
			}
		}

		id, hasID := h.Mapper.MapPrimaryKey(rec.Metadata.TableName, rec.Data, beforeImage)
		targetData, _ := h.Mapper.MapDataRecord(rec.Metadata.TableName, rec.Data)

		ev := event.Event{Operation: op, Table: targetTable, Revision: targetData}
		if hasID {
			ev.ID = id
		}
		if op == event.OpInsert {
			ev.Version = 0
		} else {
			ev.Version = event.NoVersion
		}

		result := h.Sink.Driver.WriteEvent(ctx, ev)
		if result.Outcome == writer.Failed {
			return fmt.Errorf("dispatch: cdc: %s", result.Message)
		}
	}
	return nil
}

// cdcOperation maps a CDC metadata.operation string to a canonical
// Operation, per spec.md §4.5: load|insert -> INSERT, update -> UPDATE,
// delete -> DELETE, anything else is unrecognized.
func cdcOperation(op string) (event.Operation, bool) {
	switch op {
	case "load", "insert":
		return event.OpInsert, true
	case "update":
		return event.OpUpdate, true
	case "delete":
		return event.OpDelete, true
	default:
		return "", false
	}
}
