package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	cases := []struct {
		name string
		e    Event
		want bool
	}{
		{"insert with data", Event{Operation: OpInsert, Table: "Person", Revision: Document{"n": "A"}}, true},
		{"insert without data", Event{Operation: OpInsert, Table: "Person"}, false},
		{"update without data", Event{Operation: OpUpdate, Table: "Person"}, false},
		{"delete without data", Event{Operation: OpDelete, Table: "Person"}, true},
		{"any without data", Event{Operation: OpAny, Table: "Person"}, true},
		{"missing table", Event{Operation: OpInsert, Revision: Document{"n": "A"}}, false},
		{"blank table", Event{Operation: OpInsert, Table: "   ", Revision: Document{"n": "A"}}, false},
		{"missing op", Event{Table: "Person", Revision: Document{"n": "A"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.e.IsValid())
		})
	}
}

func TestHasID(t *testing.T) {
	assert.False(t, Event{}.HasID())
	assert.False(t, Event{ID: ""}.HasID())
	assert.False(t, Event{ID: nil}.HasID())
	assert.True(t, Event{ID: "P1"}.HasID())
	assert.True(t, Event{ID: int64(0)}.HasID())
}

func TestParseJSON(t *testing.T) {
	e, ok, err := Parse([]byte(`{"op":"INSERT","table":"Person","id":"P1","version":0,"data":{"n":"A"}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OpInsert, e.Operation)
	assert.Equal(t, "Person", e.Table)
	assert.Equal(t, "P1", e.ID)
	assert.Equal(t, 0, e.Version)
	assert.Equal(t, Document{"n": "A"}, e.Revision)
}

func TestParseEmptyPayload(t *testing.T) {
	e, ok, err := Parse([]byte(``))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Event{}, e)

	e, ok, err = Parse([]byte(`null`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Event{}, e)
}

// TestParseNonStructTopLevelSkips checks spec.md §3/§4.5's "logged and
// skipped, not malformed" rule for a non-null top-level value that isn't
// a struct/object — a bare array or scalar never yields an error.
func TestParseNonStructTopLevelSkips(t *testing.T) {
	e, ok, err := Parse([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Event{}, e)

	e, ok, err = Parse([]byte(`42`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Event{}, e)

	e, ok, err = ParseJSON([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Event{}, e)
}

func TestParseUnknownOperationYieldsNoOp(t *testing.T) {
	e, ok, err := Parse([]byte(`{"op":"REPLACE","table":"Person","data":{}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Operation(""), e.Operation)
	assert.False(t, e.IsValid())
}

func TestParseUnknownFieldsIgnored(t *testing.T) {
	e, ok, err := Parse([]byte(`{"op":"DELETE","table":"Person","id":"P1","extra":"ignored"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OpDelete, e.Operation)
	assert.True(t, e.IsValid())
}

func TestEncodeElidesUnsetFields(t *testing.T) {
	out, err := Encode(Event{Operation: OpDelete, Table: "Person", Version: NoVersion})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"DELETE","table":"Person"}`, string(out))
}

func TestEncodeEmitsVersionOnlyWhenNonNegative(t *testing.T) {
	out, err := Encode(Event{Operation: OpUpdate, Table: "Person", Version: 3, Revision: Document{"n": "B"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"UPDATE","table":"Person","version":3,"data":{"n":"B"}}`, string(out))
}

// TestRoundTrip checks invariant 6 from spec.md §8: decode(encode(e)) == e.
func TestRoundTrip(t *testing.T) {
	original := Event{
		Operation:     OpUpdate,
		Table:         "Person",
		ID:            "P1",
		Version:       2,
		GroupingValue: "shard-1",
		Revision:      Document{"n": "B", "nested": Document{"x": int64(1)}},
	}
	encoded, err := Encode(original)
	require.NoError(t, err)

	decoded, ok, err := Parse(encoded)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original, decoded)
}

func TestRoundTripIon(t *testing.T) {
	original := Event{
		Operation: OpInsert,
		Table:     "Person",
		ID:        "P1",
		Version:   NoVersion,
		Revision:  Document{"n": "A"},
	}
	encoded, err := EncodeIon(original)
	require.NoError(t, err)

	decoded, ok, err := Parse(encoded)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original, decoded)
}

func TestDeriveFromRevisionInsert(t *testing.T) {
	e, err := DeriveFromRevision("Person", Document{
		"metadata": Document{"id": "doc1", "version": int64(0)},
		"data":     Document{"n": "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, OpInsert, e.Operation)
	assert.Equal(t, "doc1", e.ID)
	assert.Equal(t, 0, e.Version)
	assert.Equal(t, Document{"n": "A"}, e.Revision)
}

func TestDeriveFromRevisionUpdate(t *testing.T) {
	e, err := DeriveFromRevision("Person", Document{
		"metadata": Document{"id": "doc1", "version": int64(1)},
		"data":     Document{"n": "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, OpUpdate, e.Operation)
	assert.Equal(t, 1, e.Version)
}

func TestDeriveFromRevisionDelete(t *testing.T) {
	e, err := DeriveFromRevision("Person", Document{
		"metadata": Document{"id": "doc1", "version": int64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, OpDelete, e.Operation)
	assert.Nil(t, e.Revision)
}

func TestDeriveFromRevisionMissingMetadataErrors(t *testing.T) {
	_, err := DeriveFromRevision("Person", Document{"data": Document{"n": "A"}})
	assert.Error(t, err)
}

func TestParseAllConcatenatedJSON(t *testing.T) {
	payload := []byte(`{"op":"INSERT","table":"Person","id":"P1","data":{"n":"A"}}{"op":"UPDATE","table":"Person","id":"P1","version":1,"data":{"n":"B"}}`)
	events, err := ParseAll(payload)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, OpInsert, events[0].Operation)
	assert.Equal(t, OpUpdate, events[1].Operation)
	assert.Equal(t, 1, events[1].Version)
}

func TestParseAllEmptyPayload(t *testing.T) {
	events, err := ParseAll(nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

// TestParseAllSkipsNonStructValue checks that a non-struct value sitting
// between two well-formed events in a concatenated stream is dropped
// rather than failing the whole batch (spec.md §3).
func TestParseAllSkipsNonStructValue(t *testing.T) {
	payload := []byte(`{"op":"INSERT","table":"Person","id":"P1","data":{"n":"A"}}[1,2,3]{"op":"UPDATE","table":"Person","id":"P1","version":1,"data":{"n":"B"}}`)
	evs, err := ParseAll(payload)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, OpInsert, evs[0].Operation)
	assert.Equal(t, OpUpdate, evs[1].Operation)
}

// TestParseAllAllNonStructYieldsNoEvents checks a batch containing only
// non-struct values skips cleanly with no error.
func TestParseAllAllNonStructYieldsNoEvents(t *testing.T) {
	evs, err := ParseAll([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.Empty(t, evs)
}
