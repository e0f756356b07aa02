package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/amazon-ion/ion-go/ion"
)

// sortedKeys returns d's field names in sorted order so struct
// serialization (and therefore the fingerprint hash) never depends on
// Go's randomized map iteration order.
func sortedKeys(d Document) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// decodeJSONTopLevel decodes the top-level JSON object into a field map.
// A JSON `null`, or any non-null value that isn't an object, yields
// (nil, nil): no event, no error.
func decodeJSONTopLevel(data []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("event: invalid json: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		// A non-null, non-object top-level value (a bare array or scalar) is
		// logged and skipped, not malformed (spec.md §3) — treat it the same
		// as an absent payload rather than erroring.
		return nil, nil
	}
	return normalizeJSONMap(obj), nil
}

// normalizeJSONMap recursively turns nested JSON objects into Document
// values so downstream code treats JSON- and Ion-decoded structures the
// same way.
func normalizeJSONMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeJSONValue(v)
	}
	return out
}

func normalizeJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Document(normalizeJSONMap(val))
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = normalizeJSONValue(item)
		}
		return list
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	default:
		return v
	}
}

// decodeIonTopLevel decodes the top-level Ion value into a field map. A
// null or absent top-level value, or any non-null value that isn't a
// struct, yields (nil, nil).
func decodeIonTopLevel(data []byte) (map[string]any, error) {
	r := ion.NewTextReader(bytes.NewReader(data))
	if !r.Next() {
		if err := r.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if r.IsNull() {
		return nil, nil
	}
	if r.Type() != ion.StructType {
		// A non-struct top-level value (a bare list or scalar) is logged and
		// skipped, not malformed (spec.md §3) — treat it the same as an
		// absent payload rather than erroring.
		return nil, nil
	}
	return readIonStruct(r)
}

// readIonStruct reads the struct the reader currently sits on into a
// field map, recursing into nested structs/lists via readIonValue.
func readIonStruct(r ion.Reader) (map[string]any, error) {
	if err := r.StepIn(); err != nil {
		return nil, fmt.Errorf("event: step into struct: %w", err)
	}
	out := make(map[string]any)
	for r.Next() {
		name, err := r.FieldName()
		if err != nil {
			return nil, fmt.Errorf("event: read field name: %w", err)
		}
		val, err := readIonValue(r)
		if err != nil {
			return nil, fmt.Errorf("event: read field %q: %w", name, err)
		}
		out[name] = val
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if err := r.StepOut(); err != nil {
		return nil, fmt.Errorf("event: step out of struct: %w", err)
	}
	return out, nil
}

// readIonValue reads the value the reader currently sits on, returning a
// typed-null aware Go representation. An explicit Ion null of any type
// decodes to untyped nil, which the event model treats as absent per
// spec.md §3.
func readIonValue(r ion.Reader) (any, error) {
	if r.IsNull() {
		return nil, nil
	}
	switch r.Type() {
	case ion.BoolType:
		v, err := r.BoolValue()
		return derefBool(v), err
	case ion.IntType:
		v, err := r.Int64Value()
		return derefInt64(v), err
	case ion.FloatType:
		v, err := r.FloatValue()
		return derefFloat(v), err
	case ion.DecimalType:
		v, err := r.DecimalValue()
		if err != nil || v == nil {
			return nil, err
		}
		return v.String(), nil
	case ion.TimestampType:
		v, err := r.TimestampValue()
		if err != nil || v == nil {
			return nil, err
		}
		return v.String(), nil
	case ion.StringType, ion.SymbolType:
		v, err := r.StringValue()
		return derefString(v), err
	case ion.BlobType, ion.ClobType:
		return r.ByteValue()
	case ion.StructType:
		m, err := readIonStruct(r)
		if err != nil {
			return nil, err
		}
		return Document(m), nil
	case ion.ListType, ion.SexpType:
		return readIonSequence(r)
	default:
		return nil, fmt.Errorf("event: unsupported ion type %v", r.Type())
	}
}

func readIonSequence(r ion.Reader) ([]any, error) {
	if err := r.StepIn(); err != nil {
		return nil, fmt.Errorf("event: step into sequence: %w", err)
	}
	var out []any
	for r.Next() {
		v, err := readIonValue(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if err := r.StepOut(); err != nil {
		return nil, fmt.Errorf("event: step out of sequence: %w", err)
	}
	return out, nil
}

func derefBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// writeEventIon writes e's canonical textual form to w under the field
// names from spec.md §6, eliding unset fields exactly as Encode does.
func writeEventIon(w ion.Writer, e Event) error {
	if err := w.BeginStruct(); err != nil {
		return err
	}
	if e.Operation != "" {
		if err := w.FieldName(fieldOp); err != nil {
			return err
		}
		if err := w.WriteString(string(e.Operation)); err != nil {
			return err
		}
	}
	if table := trimmedOrEmpty(e.Table); table != "" {
		if err := w.FieldName(fieldTable); err != nil {
			return err
		}
		if err := w.WriteString(table); err != nil {
			return err
		}
	}
	if e.HasID() {
		if err := w.FieldName(fieldID); err != nil {
			return err
		}
		if err := writeIonValue(w, e.ID); err != nil {
			return err
		}
	}
	if e.Version >= 0 {
		if err := w.FieldName(fieldVersion); err != nil {
			return err
		}
		if err := w.WriteInt(int64(e.Version)); err != nil {
			return err
		}
	}
	if e.GroupingValue != "" {
		if err := w.FieldName(fieldGroup); err != nil {
			return err
		}
		if err := w.WriteString(e.GroupingValue); err != nil {
			return err
		}
	}
	if e.Revision != nil {
		if err := w.FieldName(fieldData); err != nil {
			return err
		}
		if err := writeIonValue(w, e.Revision); err != nil {
			return err
		}
	}
	return w.EndStruct()
}

func writeIonValue(w ion.Writer, v any) error {
	switch val := v.(type) {
	case nil:
		return w.WriteNull()
	case bool:
		return w.WriteBool(val)
	case int:
		return w.WriteInt(int64(val))
	case int64:
		return w.WriteInt(val)
	case float64:
		return w.WriteFloat(val)
	case string:
		return w.WriteString(val)
	case []byte:
		return w.WriteBlob(val)
	case Document:
		if err := w.BeginStruct(); err != nil {
			return err
		}
		for _, k := range sortedKeys(val) {
			if err := w.FieldName(k); err != nil {
				return err
			}
			if err := writeIonValue(w, val[k]); err != nil {
				return err
			}
		}
		return w.EndStruct()
	case map[string]any:
		return writeIonValue(w, Document(val))
	case []any:
		if err := w.BeginList(); err != nil {
			return err
		}
		for _, item := range val {
			if err := writeIonValue(w, item); err != nil {
				return err
			}
		}
		return w.EndList()
	default:
		return fmt.Errorf("event: unsupported value type %T", v)
	}
}

func trimmedOrEmpty(s string) string {
	return normalizeTable(s)
}

// CanonicalBinary serializes e to Ion binary with a stable field order;
// every nil value is written as an untyped null. Two events that are semantically equal but
// differ in field order or JSON whitespace always produce identical
// bytes here, which is what makes fingerprint.Of deterministic
// (spec.md §4.1, invariant 7 in §8).
func CanonicalBinary(e Event) ([]byte, error) {
	var buf bytes.Buffer
	w := ion.NewBinaryWriter(&buf)
	if err := writeEventIon(w, e); err != nil {
		return nil, fmt.Errorf("event: canonical binary encode: %w", err)
	}
	if err := w.Finish(); err != nil {
		return nil, fmt.Errorf("event: finish canonical writer: %w", err)
	}
	return buf.Bytes(), nil
}
