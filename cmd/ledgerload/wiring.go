package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aws-samples/qldb-ledger-load-go/internal/activetables"
	"github.com/aws-samples/qldb-ledger-load-go/internal/config"
	"github.com/aws-samples/qldb-ledger-load-go/internal/dispatch"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger/qldb"
	"github.com/aws-samples/qldb-ledger-load-go/internal/mapper"
	"github.com/aws-samples/qldb-ledger-load-go/internal/mappingconfig"
	"github.com/aws-samples/qldb-ledger-load-go/internal/writer"
)

// buildWriter selects a Writer implementation by the REVISION_WRITER
// configuration tag, per spec.md §9's "typed enum + constructor switch,
// no reflection" design note. "identity-field" looks documents up by the
// loaded mapping file's per-table id-field, translated through that
// table's field map to its target-table field name (id-field names a
// source-record field). An unset tag or "back-link" gets the default
// back-link strategy; any other tag is a FatalError.
func buildWriter(cfg *config.Config, mappings []mapper.TableMapping) (writer.Writer, error) {
	switch cfg.RevisionWriter {
	case "", "back-link":
		return writer.NewBackLinkWriter(cfg.StrictMode), nil
	case "identity-field":
		fieldByTable := make(map[string]string, len(mappings))
		for _, m := range mappings {
			field := m.IDField
			if target, ok := m.FieldMap[m.IDField]; ok {
				field = target
			}
			fieldByTable[m.TargetTable] = field
		}
		return writer.NewIdentityFieldWriter(cfg.StrictMode, fieldByTable), nil
	default:
		return nil, writer.NewFatalError("config", fmt.Errorf("unrecognized REVISION_WRITER %q", cfg.RevisionWriter))
	}
}

// buildMapper selects a Mapper by the LOAD_EVENT_MAPPER configuration
// tag. An unset tag means no channel in this deployment needs foreign-
// schema translation (every non-CDC adaptor works directly off canonical
// events); "file" loads internal/mappingconfig's static definition.
func buildMapper(cfg *config.Config) (mapper.Mapper, []mapper.TableMapping, error) {
	switch cfg.LoadEventMapper {
	case "":
		return nil, nil, nil
	case "file":
		if cfg.MappingFile == "" {
			return nil, nil, writer.NewFatalError("mapping-config", fmt.Errorf("MAPPING_FILE is required when LOAD_EVENT_MAPPER=file"))
		}
		mappings, err := mappingconfig.LoadFile(cfg.MappingFile)
		if err != nil {
			return nil, nil, writer.NewFatalError("mapping-config", err)
		}
		return mapper.NewFileMapper(mappings), mappings, nil
	default:
		return nil, nil, writer.NewFatalError("config", fmt.Errorf("unrecognized LOAD_EVENT_MAPPER %q", cfg.LoadEventMapper))
	}
}

// buildSink wires the full apply-core stack from process configuration:
// QLDB executor, active-tables snapshot, Writer strategy, and the
// Dispatcher's shared Sink. Every error here is a FatalError — this runs
// once at process startup, before any event is handled.
func buildSink(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*dispatch.Sink, mapper.Mapper, error) {
	m, mappings, err := buildMapper(cfg)
	if err != nil {
		return nil, nil, err
	}

	w, err := buildWriter(cfg, mappings)
	if err != nil {
		return nil, nil, err
	}

	exec, err := qldb.New(ctx, qldb.Options{
		LedgerName:    cfg.LedgerName,
		Region:        cfg.LedgerRegion,
		MaxSessions:   cfg.MaxSessionsPerLambda,
		MaxOCCRetries: cfg.MaxOCCRetries,
		Log:           log.WithField("component", "ledger.qldb"),
	})
	if err != nil {
		return nil, nil, writer.NewFatalError("ledger", err)
	}

	registry, err := activetables.Load(ctx, exec)
	if err != nil {
		return nil, nil, writer.NewFatalError("ledger", err)
	}

	driver := writer.NewDriver(w, exec, log.WithField("component", "writer"))
	driver.WithActiveTables(registry)

	return dispatch.NewSink(driver, log.WithField("component", "dispatch")), m, nil
}

var _ ledger.TransactionExecutor = (*qldb.Executor)(nil)
