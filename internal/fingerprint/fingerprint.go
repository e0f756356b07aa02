// Package fingerprint computes the deduplicationId used by FIFO delivery
// channels: a base64-encoded SHA-256 over an event's canonical
// serialization (spec.md §4.1, GLOSSARY "Fingerprint").
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
)

// Of returns the deduplicationId for e. Two events that are semantically
// equal — same fields, any field order or whitespace in how they were
// originally transmitted — always produce the same fingerprint, because
// the hash is computed over event.CanonicalBinary, not over the raw
// wire bytes.
func Of(e event.Event) (string, error) {
	canonical, err := event.CanonicalBinary(e)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize event: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
