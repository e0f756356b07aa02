// Package activetables caches the set of tables the ledger currently
// marks ACTIVE. The snapshot is taken once per Writer lifetime and never
// refreshed (spec.md §3 "Ownership & lifecycle", §4.3, §5 "Shared
// resources").
package activetables

import (
	"context"
	"fmt"

	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
)

// Registry is a read-only-after-construction snapshot of active tables.
type Registry struct {
	active map[string]struct{}
}

// Load runs the ledger-table-discovery query once and returns a Registry
// caching the result.
func Load(ctx context.Context, exec ledger.TransactionExecutor) (*Registry, error) {
	tables, err := ledger.DiscoverActiveTables(ctx, exec)
	if err != nil {
		return nil, fmt.Errorf("activetables: load: %w", err)
	}
	return FromTables(tables), nil
}

// FromTables builds a Registry directly from a known table list, used by
// tests and by callers that already hold a snapshot.
func FromTables(tables []string) *Registry {
	active := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		active[t] = struct{}{}
	}
	return &Registry{active: active}
}

// IsActive reports whether table was ACTIVE at snapshot time.
func (r *Registry) IsActive(table string) bool {
	if r == nil {
		return false
	}
	_, ok := r.active[table]
	return ok
}
