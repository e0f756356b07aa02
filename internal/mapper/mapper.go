// Package mapper translates a foreign schema event (e.g. a change-data-
// capture record naming a source table and columnar fields) into the
// canonical target table name, target identity value, and target
// record, per spec.md §4.2.
package mapper

import "github.com/aws-samples/qldb-ledger-load-go/internal/event"

// TableMapping describes how one source table maps to one target table.
type TableMapping struct {
	SourceTable string
	TargetTable string
	IDField     string
	FieldMap    map[string]string // sourceField -> targetField
}

// Mapper is the pluggable translation contract. A nil/false second
// return from any method means "caller skips this record" (e.g. no
// mapping configured for the source table).
type Mapper interface {
	// MapTableName returns the target table for sourceTable.
	MapTableName(sourceTable string) (string, bool)

	// MapDataRecord projects record's mapped fields into a target
	// record. Unmapped source fields are silently dropped.
	MapDataRecord(sourceTable string, record event.Document) (event.Document, bool)

	// MapPrimaryKey returns the target identity value for record. When
	// beforeImage is non-nil and carries the identity field (a
	// primary-key-change case), the before image takes precedence.
	MapPrimaryKey(sourceTable string, record, beforeImage event.Document) (any, bool)
}
