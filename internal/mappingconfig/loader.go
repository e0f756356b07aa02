// Package mappingconfig reads the static table/field mapping definition
// consumed by internal/mapper, per the wire format in spec.md §6. It is
// loaded once at startup and is never fatal anywhere else: a missing or
// malformed mapping file is a Fatal error that aborts the process
// (spec.md §7).
package mappingconfig

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws-samples/qldb-ledger-load-go/internal/mapper"
)

// wireMapping mirrors the on-disk JSON shape from spec.md §6.
type wireMapping struct {
	SourceTable string      `json:"source-table"`
	TargetTable string      `json:"target-table"`
	IDField     string      `json:"id-field"`
	Fields      []wireField `json:"fields"`
}

type wireField struct {
	SourceField string `json:"source-field"`
	TargetField string `json:"target-field"`
}

// LoadFile reads and validates a mapping configuration file. Any failure
// here is fatal at init time (spec.md §4.2, §7).
func LoadFile(path string) ([]mapper.TableMapping, error) {
	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied config path, not user input
	if err != nil {
		return nil, fmt.Errorf("mappingconfig: open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	mappings, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("mappingconfig: load %q: %w", path, err)
	}
	return mappings, nil
}

// Load reads and validates the mapping configuration from r.
func Load(r io.Reader) ([]mapper.TableMapping, error) {
	var wire []wireMapping
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("mappingconfig: decode: %w", err)
	}

	seen := make(map[string]struct{}, len(wire))
	out := make([]mapper.TableMapping, 0, len(wire))
	for i, w := range wire {
		if w.SourceTable == "" {
			return nil, fmt.Errorf("mappingconfig: entry %d: source-table is required", i)
		}
		if w.TargetTable == "" {
			return nil, fmt.Errorf("mappingconfig: entry %d (%s): target-table is required", i, w.SourceTable)
		}
		if w.IDField == "" {
			return nil, fmt.Errorf("mappingconfig: entry %d (%s): id-field is required", i, w.SourceTable)
		}
		if _, dup := seen[w.SourceTable]; dup {
			return nil, fmt.Errorf("mappingconfig: duplicate source-table %q", w.SourceTable)
		}
		seen[w.SourceTable] = struct{}{}

		fieldMap := make(map[string]string, len(w.Fields))
		for j, f := range w.Fields {
			if f.SourceField == "" || f.TargetField == "" {
				return nil, fmt.Errorf("mappingconfig: entry %d (%s): field %d missing source-field/target-field", i, w.SourceTable, j)
			}
			fieldMap[f.SourceField] = f.TargetField
		}

		out = append(out, mapper.TableMapping{
			SourceTable: w.SourceTable,
			TargetTable: w.TargetTable,
			IDField:     w.IDField,
			FieldMap:    fieldMap,
		})
	}
	return out, nil
}
