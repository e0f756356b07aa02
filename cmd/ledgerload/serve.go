package main

import (
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/aws-samples/qldb-ledger-load-go/internal/config"
	"github.com/aws-samples/qldb-ledger-load-go/internal/dispatch"
	"github.com/aws-samples/qldb-ledger-load-go/internal/logging"
	"github.com/aws-samples/qldb-ledger-load-go/internal/mapper"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// serveCmd starts the Lambda runtime loop, dispatching to the handler
// named by DISPATCH_CHANNEL. This is the process's only long-running
// command; apply and validate-mapping are one-shot local tools.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Lambda handler for the configured delivery channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New("ledgerload")

			cfg, err := config.Load()
			if err != nil {
				return writer.NewFatalError("config", err)
			}

			sink, m, err := buildSink(cmd.Context(), cfg, log)
			if err != nil {
				var fatal *writer.FatalError
				if errors.As(err, &fatal) {
					log.WithError(fatal).Fatal("ledgerload: fatal misconfiguration at startup")
				}
				return err
			}

			handler, err := channelHandler(cfg, sink, m)
			if err != nil {
				return writer.NewFatalError("config", err)
			}

			lambda.Start(handler)
			return nil
		},
	}
}

// channelHandler resolves DISPATCH_CHANNEL to the matching handler
// function, per spec.md §4.5's six delivery-channel variants. Returned
// as `any` because aws-lambda-go/lambda.Start accepts any of several
// handler signatures and reflects on whichever one is passed.
func channelHandler(cfg *config.Config, sink *dispatch.Sink, m mapper.Mapper) (any, error) {
	switch cfg.DispatchChannel {
	case "queue":
		return sink.HandleSQS, nil
	case "topic":
		return sink.HandleSNS, nil
	case "eventbus":
		return sink.HandleEventBridge, nil
	case "stream":
		return sink.HandleStream, nil
	case "ledgerstream":
		return sink.HandleLedgerStream, nil
	case "cdc":
		if m == nil {
			return nil, fmt.Errorf("DISPATCH_CHANNEL=cdc requires LOAD_EVENT_MAPPER=file")
		}
		return dispatch.NewCDCHandler(sink, m, cfg.BeforeImageFieldName).Handle, nil
	default:
		return nil, fmt.Errorf("unrecognized DISPATCH_CHANNEL %q", cfg.DispatchChannel)
	}
}
