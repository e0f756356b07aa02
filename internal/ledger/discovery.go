package ledger

import (
	"context"
	"fmt"
)

// DiscoverActiveTables runs the table-discovery query once and returns the
// set of tables currently marked ACTIVE (spec.md §2 utility "ledger-table
// discovery query", §4.3). Callers (internal/activetables.Registry) cache
// the result for the lifetime of the Writer — this function never caches
// on its own.
func DiscoverActiveTables(ctx context.Context, exec TransactionExecutor) ([]string, error) {
	result, err := exec.Execute(ctx, func(ctx context.Context, tx Transaction) (any, error) {
		return tx.ActiveTables(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: discover active tables: %w", err)
	}
	tables, ok := result.([]string)
	if !ok {
		return nil, fmt.Errorf("ledger: discover active tables: unexpected result type %T", result)
	}
	return tables, nil
}
