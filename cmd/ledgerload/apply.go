package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aws-samples/qldb-ledger-load-go/internal/config"
	"github.com/aws-samples/qldb-ledger-load-go/internal/event"
	"github.com/aws-samples/qldb-ledger-load-go/internal/logging"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// applyCmd reads one event file from disk and runs it through the Writer
// against the configured ledger, for local smoke-testing (spec.md §4.5's
// channel adaptors all funnel through the same Driver.WriteEvent this
// exercises directly).
func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Apply a single event file to the configured ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New("ledgerload-apply")

			cfg, err := config.Load()
			if err != nil {
				return writer.NewFatalError("config", err)
			}

			payload, err := os.ReadFile(args[0]) //nolint:gosec // operator-supplied local file path
			if err != nil {
				return fmt.Errorf("apply: read %q: %w", args[0], err)
			}

			ev, ok, err := event.Parse(payload)
			if err != nil {
				return fmt.Errorf("apply: parse %q: %w", args[0], err)
			}
			if !ok {
				fmt.Println("apply: empty payload, nothing to do")
				return nil
			}

			sink, _, err := buildSink(cmd.Context(), cfg, log)
			if err != nil {
				var fatal *writer.FatalError
				if errors.As(err, &fatal) {
					log.WithError(fatal).Fatal("ledgerload: fatal misconfiguration at startup")
				}
				return err
			}

			result := sink.Driver.WriteEvent(cmd.Context(), ev)
			fmt.Printf("%s: %s\n", result.Outcome, result.Message)
			if result.Outcome == writer.Failed {
				os.Exit(1)
			}
			return nil
		},
	}
	return cmd
}
