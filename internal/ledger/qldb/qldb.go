// Package qldb adapts github.com/awslabs/amazon-qldb-driver-go/v3 to the
// internal/ledger.TransactionExecutor/Transaction contract. This is the
// one place PartiQL statements are built; table names are always
// validated by the caller against an internal/activetables.Registry
// snapshot before reaching here, and bind values are always passed as
// driver parameters, never string-concatenated (spec.md §4.4.4).
package qldb

import (
	"context"
	"fmt"

	"github.com/amazon-ion/ion-go/ion"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/qldbsession"
	"github.com/awslabs/amazon-qldb-driver-go/v3/qldbdriver"
	"github.com/sirupsen/logrus"

	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
)

// Options configures the driver's session pool and retry ceiling, per the
// MAX_SESSIONS_PER_LAMBDA and MAX_OCC_RETRIES process options in
// spec.md §6.
type Options struct {
	LedgerName    string
	Region        string
	MaxSessions   int
	MaxOCCRetries int
	Log           *logrus.Entry
}

// Executor wraps a *qldbdriver.QLDBDriver as a ledger.TransactionExecutor.
type Executor struct {
	driver *qldbdriver.QLDBDriver
	log    *logrus.Entry
}

// New builds a QLDB session client from the ambient AWS config and opens
// a driver against opts.LedgerName.
func New(ctx context.Context, opts Options) (*Executor, error) {
	if opts.LedgerName == "" {
		return nil, fmt.Errorf("qldb: LedgerName is required")
	}

	var configOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(opts.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("qldb: load aws config: %w", err)
	}

	client := qldbsession.NewFromConfig(awsCfg)

	maxSessions := opts.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}
	retryLimit := opts.MaxOCCRetries
	if retryLimit <= 0 {
		retryLimit = 3
	}

	driver, err := qldbdriver.New(opts.LedgerName, client, func(driverOpts *qldbdriver.DriverOptions) {
		driverOpts.MaxConcurrentTransactions = maxSessions
		driverOpts.RetryLimit = retryLimit
	})
	if err != nil {
		return nil, fmt.Errorf("qldb: open driver for ledger %q: %w", opts.LedgerName, err)
	}

	log := opts.Log
	if log == nil {
		log = logrus.WithField("component", "ledger.qldb")
	}
	return &Executor{driver: driver, log: log}, nil
}

// Close releases the driver's session pool.
func (e *Executor) Close() error {
	return e.driver.Shutdown(context.Background())
}

// Execute implements ledger.TransactionExecutor. The driver itself
// handles optimistic-concurrency retry up to RetryLimit; fn must
// therefore be idempotent under re-execution, as documented on
// ledger.TransactionExecutor.
func (e *Executor) Execute(ctx context.Context, fn func(ctx context.Context, tx ledger.Transaction) (any, error)) (any, error) {
	result, err := e.driver.Execute(ctx, func(txn qldbdriver.Transaction) (any, error) {
		return fn(ctx, &transaction{txn: txn})
	})
	if err != nil {
		return nil, fmt.Errorf("qldb: execute transaction: %w", err)
	}
	return result, nil
}

// transaction adapts qldbdriver.Transaction to ledger.Transaction.
type transaction struct {
	txn qldbdriver.Transaction
}

func (t *transaction) QueryByField(_ context.Context, table, fieldName string, value any) (*ledger.CurrentRevision, bool, error) {
	stmt := fmt.Sprintf(
		"SELECT id, data, metadata.version AS version FROM _ql_committed_%s AS r BY id WHERE r.data.%s = ?",
		table, fieldName,
	)
	result, err := t.txn.Execute(stmt, value)
	if err != nil {
		return nil, false, fmt.Errorf("qldb: query %s by %s: %w", table, fieldName, err)
	}
	if !result.Next(t.txn) {
		return nil, false, nil
	}

	var row struct {
		ID      any            `ion:"id"`
		Data    map[string]any `ion:"data"`
		Version int            `ion:"version"`
	}
	if err := ion.Unmarshal(result.GetCurrentData(), &row); err != nil {
		return nil, false, fmt.Errorf("qldb: decode committed view row: %w", err)
	}
	return &ledger.CurrentRevision{ID: row.ID, Version: row.Version, Data: row.Data}, true, nil
}

func (t *transaction) Insert(_ context.Context, table string, data map[string]any) (any, error) {
	stmt := fmt.Sprintf("INSERT INTO %s VALUE ?", table)
	result, err := t.txn.Execute(stmt, data)
	if err != nil {
		return nil, fmt.Errorf("qldb: insert into %s: %w", table, err)
	}
	if !result.Next(t.txn) {
		return nil, fmt.Errorf("qldb: insert into %s returned no document id", table)
	}
	var row struct {
		DocumentID any `ion:"documentId"`
	}
	if err := ion.Unmarshal(result.GetCurrentData(), &row); err != nil {
		return nil, fmt.Errorf("qldb: decode insert result: %w", err)
	}
	return row.DocumentID, nil
}

func (t *transaction) Replace(_ context.Context, table string, id any, data map[string]any) error {
	stmt := fmt.Sprintf("UPDATE %s AS r BY rid SET r = ? WHERE rid = ?", table)
	if _, err := t.txn.Execute(stmt, data, id); err != nil {
		return fmt.Errorf("qldb: replace document in %s: %w", table, err)
	}
	return nil
}

func (t *transaction) Remove(_ context.Context, table string, id any) error {
	stmt := fmt.Sprintf("DELETE FROM %s AS r BY rid WHERE rid = ?", table)
	if _, err := t.txn.Execute(stmt, id); err != nil {
		return fmt.Errorf("qldb: remove document from %s: %w", table, err)
	}
	return nil
}

func (t *transaction) ActiveTables(context.Context) ([]string, error) {
	result, err := t.txn.Execute("SELECT name FROM information_schema.user_tables WHERE status = 'ACTIVE'")
	if err != nil {
		return nil, fmt.Errorf("qldb: discover active tables: %w", err)
	}
	var tables []string
	for result.Next(t.txn) {
		var row struct {
			Name string `ion:"name"`
		}
		if err := ion.Unmarshal(result.GetCurrentData(), &row); err != nil {
			return nil, fmt.Errorf("qldb: decode active table row: %w", err)
		}
		tables = append(tables, row.Name)
	}
	return tables, nil
}
