package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aws-samples/qldb-ledger-load-go/internal/mappingconfig"
)

// validateMappingCmd loads and validates a mapping configuration file
// without connecting to a ledger, surfacing the fatal-at-init checks of
// spec.md §4.2 as a standalone command.
func validateMappingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-mapping FILE",
		Short: "Validate a mapping configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := mappingconfig.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d table mapping(s)\n", len(mappings))
			for _, m := range mappings {
				fmt.Printf("  %s -> %s (id: %s, %d field(s))\n", m.SourceTable, m.TargetTable, m.IDField, len(m.FieldMap))
			}
			return nil
		},
	}
}
