package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledgerload",
		Short: "Ledger load-apply core: ingest document-change events into a transactional ledger",
		Long: `ledgerload applies document-change events from a delivery channel to an
append-only transactional ledger under at-most-one-writer-per-document
semantics, with idempotency, revision ordering, and strict/non-strict
tolerance for missing predecessors.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(applyCmd())
	rootCmd.AddCommand(validateMappingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
