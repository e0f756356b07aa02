package mapper

import "github.com/aws-samples/qldb-ledger-load-go/internal/event"

// FileMapper is the file-driven Mapper implementation: a static
// []TableMapping loaded once at startup (internal/mappingconfig) and
// indexed by source table for the process lifetime.
type FileMapper struct {
	bySource map[string]TableMapping
}

// NewFileMapper indexes mappings by SourceTable. Duplicate source tables
// are a caller bug (internal/mappingconfig.Load already rejects them at
// load time); the later entry wins here as a defensive fallback.
func NewFileMapper(mappings []TableMapping) *FileMapper {
	bySource := make(map[string]TableMapping, len(mappings))
	for _, m := range mappings {
		bySource[m.SourceTable] = m
	}
	return &FileMapper{bySource: bySource}
}

func (m *FileMapper) MapTableName(sourceTable string) (string, bool) {
	tm, ok := m.bySource[sourceTable]
	if !ok {
		return "", false
	}
	return tm.TargetTable, true
}

func (m *FileMapper) MapDataRecord(sourceTable string, record event.Document) (event.Document, bool) {
	tm, ok := m.bySource[sourceTable]
	if !ok {
		return nil, false
	}
	out := make(event.Document, len(tm.FieldMap))
	for src, dst := range tm.FieldMap {
		if v, present := record[src]; present {
			out[dst] = v
		}
	}
	return out, true
}

func (m *FileMapper) MapPrimaryKey(sourceTable string, record, beforeImage event.Document) (any, bool) {
	tm, ok := m.bySource[sourceTable]
	if !ok {
		return nil, false
	}
	if beforeImage != nil {
		if v, present := beforeImage[tm.IDField]; present {
			return v, true
		}
	}
	v, present := record[tm.IDField]
	return v, present
}
