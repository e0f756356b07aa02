// Package dispatch implements one adaptor per delivery channel from
// spec.md §4.5. Every adaptor shares the same inner contract: decode the
// channel's record framing into one or more canonical events, drive them
// through internal/writer.Driver, and aggregate the per-event results
// according to that channel's own retry/DLQ model — matching the
// teacher's one-handler-type-per-entrypoint, common-interface shape
// (internal/daemon/rpc), generalized from JSON-RPC methods to
// delivery-channel envelopes.
package dispatch

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// Sink is the shared collaborator every channel adaptor is built around:
// the apply-core batch driver plus a logger. Adaptors differ only in how
// they turn a channel-specific record into events and in how they fold
// the per-event writer.Result of each Driver.WriteEvent call into that
// channel's failure report.
type Sink struct {
	Driver *writer.Driver
	Log    *logrus.Entry
}

// NewSink builds a Sink. log may be nil, in which case a discard-output
// entry is used.
func NewSink(driver *writer.Driver, log *logrus.Entry) *Sink {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	return &Sink{Driver: driver, Log: log}
}

func (s *Sink) logSkippedPayload(reason string) {
	s.Log.WithField("reason", reason).Warn("dispatch: record skipped")
}
