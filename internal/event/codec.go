package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amazon-ion/ion-go/ion"
)

// wireFields are the field names on the canonical textual payload
// described in spec.md §6. Unknown fields are ignored on decode.
const (
	fieldOp      = "op"
	fieldTable   = "table"
	fieldID      = "id"
	fieldVersion = "version"
	fieldGroup   = "group"
	fieldData    = "data"
)

// Parse decodes one canonical textual payload (Ion or JSON) into an
// Event. ok is false for a null or empty payload, or a non-null top-level
// value that isn't a struct/object (spec.md §3: logged and skipped, not
// malformed) — none of these yield an event or an error. Ion's text
// syntax is a superset of JSON's, so Parse always attempts the
// Ion reader first and falls back to encoding/json only if that fails —
// this keeps the two formats' rules (typed nulls, struct field order)
// consistent without duplicating the field-extraction logic twice.
func Parse(payload []byte) (e Event, ok bool, err error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Event{}, false, nil
	}

	fields, ionErr := decodeIonTopLevel(trimmed)
	if ionErr != nil {
		fields, err = decodeJSONTopLevel(trimmed)
		if err != nil {
			return Event{}, false, fmt.Errorf("event: decode payload (ion: %v, json: %w)", ionErr, err)
		}
	}
	if fields == nil {
		return Event{}, false, nil
	}
	return fieldsToEvent(fields), true, nil
}

// ParseAll decodes a buffer carrying one or more concatenated top-level
// textual values — the "concatenated tagged-structure document" framing
// the generic partitioned-log channel uses (spec.md §4.5) — into a slice
// of Events. It tries Ion first (whose text reader already walks
// multiple top-level values in one stream) and falls back to a
// json.Decoder loop, which does the same for back-to-back JSON objects.
// A null or non-struct value anywhere in the stream is skipped without
// logging (spec.md §3), not an error — it simply contributes no Event.
func ParseAll(payload []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if events, err := decodeAllIon(trimmed); err == nil {
		return events, nil
	}

	return decodeAllJSON(trimmed)
}

func decodeAllIon(payload []byte) ([]Event, error) {
	r := ion.NewTextReader(bytes.NewReader(payload))
	var out []Event
	for r.Next() {
		if r.IsNull() {
			continue
		}
		if r.Type() != ion.StructType {
			// Skipped, not malformed (spec.md §3) — one bad value in a
			// concatenated stream doesn't invalidate the rest.
			continue
		}
		fields, err := readIonStruct(r)
		if err != nil {
			return nil, err
		}
		out = append(out, fieldsToEvent(fields))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeAllJSON(payload []byte) ([]Event, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	var out []Event
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("event: decode concatenated json: %w", err)
		}
		e, ok, err := ParseJSON(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// ParseJSON decodes strictly as JSON, for callers (e.g. the event-bus
// dispatch adaptor) that only ever see JSON envelopes. Like
// Parse, a null/empty payload or a non-struct top-level value both yield
// ok=false with no error (spec.md §3: logged and skipped, not malformed).
func ParseJSON(payload []byte) (e Event, ok bool, err error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Event{}, false, nil
	}
	fields, err := decodeJSONTopLevel(trimmed)
	if err != nil {
		return Event{}, false, err
	}
	if fields == nil {
		return Event{}, false, nil
	}
	return fieldsToEvent(fields), true, nil
}

func fieldsToEvent(fields map[string]any) Event {
	var e Event
	if opRaw, ok := fields[fieldOp].(string); ok {
		if op, known := ParseOperation(opRaw); known {
			e.Operation = op
		}
	}
	if table, ok := fields[fieldTable].(string); ok {
		e.Table = normalizeTable(table)
	}
	if id, present := fields[fieldID]; present {
		e.ID = id
	}
	e.Version = NoVersion
	if v, present := fields[fieldVersion]; present {
		e.Version = toInt(v, NoVersion)
	}
	if group, ok := fields[fieldGroup].(string); ok {
		e.GroupingValue = group
	}
	if data, present := fields[fieldData]; present && data != nil {
		if doc, ok := data.(Document); ok {
			e.Revision = doc
		} else if m, ok := data.(map[string]any); ok {
			e.Revision = Document(m)
		}
	}
	return e
}

func toInt(v any, fallback int) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// Encode emits the canonical JSON textual payload for e. Only fields
// that are set are emitted; empty strings are elided; version is emitted
// only when >= 0; id is cloned to avoid aliasing the caller's value.
func Encode(e Event) ([]byte, error) {
	out := make(map[string]any, 6)
	if e.Operation != "" {
		out[fieldOp] = string(e.Operation)
	}
	if table := strings.TrimSpace(e.Table); table != "" {
		out[fieldTable] = table
	}
	if e.HasID() {
		out[fieldID] = cloneScalar(e.ID)
	}
	if e.Version >= 0 {
		out[fieldVersion] = e.Version
	}
	if e.GroupingValue != "" {
		out[fieldGroup] = e.GroupingValue
	}
	if e.Revision != nil {
		out[fieldData] = map[string]any(e.Revision.Clone())
	}
	return json.Marshal(out)
}

// EncodeIon emits the canonical Ion text payload for e, using the same
// field-elision rules as Encode.
func EncodeIon(e Event) ([]byte, error) {
	var buf bytes.Buffer
	w := ion.NewTextWriter(&buf)
	if err := writeEventIon(w, e); err != nil {
		return nil, err
	}
	if err := w.Finish(); err != nil {
		return nil, fmt.Errorf("event: finish ion writer: %w", err)
	}
	return buf.Bytes(), nil
}

func cloneScalar(v any) any {
	if doc, ok := v.(Document); ok {
		return doc.Clone()
	}
	return v
}

// DeriveFromRevision builds an Event from a committed revision document,
// used to re-emit captured ledger history (spec.md §4.1). revision must
// carry metadata.id and metadata.version; data is copied as the new
// revision when present.
func DeriveFromRevision(table string, revision Document) (Event, error) {
	metaRaw, ok := revision["metadata"]
	if !ok {
		return Event{}, fmt.Errorf("event: revision missing metadata")
	}
	meta, ok := metaRaw.(Document)
	if !ok {
		if m, ok := metaRaw.(map[string]any); ok {
			meta = Document(m)
		} else {
			return Event{}, fmt.Errorf("event: metadata is not a structure")
		}
	}

	id, hasID := meta["id"]
	if !hasID || isAbsentScalar(id) {
		return Event{}, fmt.Errorf("event: revision metadata missing id")
	}
	version := toInt(meta["version"], -1)
	if version < 0 {
		return Event{}, fmt.Errorf("event: revision metadata missing version")
	}

	e := Event{
		Table:   normalizeTable(table),
		ID:      id,
		Version: version,
	}

	data, hasData := revision["data"]
	switch {
	case !hasData || data == nil:
		e.Operation = OpDelete
	case version == 0:
		e.Operation = OpInsert
	default:
		e.Operation = OpUpdate
	}
	if hasData && data != nil {
		if doc, ok := data.(Document); ok {
			e.Revision = doc.Clone()
		} else if m, ok := data.(map[string]any); ok {
			e.Revision = Document(m).Clone()
		}
	}
	return e, nil
}
