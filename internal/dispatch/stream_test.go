package dispatch

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleStreamProcessesConcatenatedEventsThenThrows(t *testing.T) {
	s := newSink(t, true, "Person")

	concatenated := `{"op":"INSERT","table":"Person","id":"P1","version":0,"data":{"n":"A"}}` +
		`{"op":"UPDATE","table":"Person","id":"P1","version":9,"data":{"n":"B"}}`

	err := s.HandleStream(t.Context(), events.KinesisEvent{Records: []events.KinesisEventRecord{
		{Kinesis: events.KinesisRecord{SequenceNumber: "1", Data: []byte(concatenated)}},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 failures")
}

func TestHandleStreamAllPass(t *testing.T) {
	s := newSink(t, true, "Person")
	payload := `{"op":"INSERT","table":"Person","id":"P1","version":0,"data":{"n":"A"}}`
	err := s.HandleStream(t.Context(), events.KinesisEvent{Records: []events.KinesisEventRecord{
		{Kinesis: events.KinesisRecord{SequenceNumber: "1", Data: []byte(payload)}},
	}})
	require.NoError(t, err)
}

// TestHandleStreamSkipsNonStructRecord checks that a record whose body is
// a bare JSON array is skipped rather than counted as a failure
// (spec.md §3), unlike a record with genuinely malformed syntax.
func TestHandleStreamSkipsNonStructRecord(t *testing.T) {
	s := newSink(t, true, "Person")
	err := s.HandleStream(t.Context(), events.KinesisEvent{Records: []events.KinesisEventRecord{
		{Kinesis: events.KinesisRecord{SequenceNumber: "1", Data: []byte("[1,2,3]")}},
	}})
	require.NoError(t, err)
}
