// Package ledgertest provides an in-memory, SQLite-backed stand-in for
// the ledger used by internal/writer and internal/dispatch tests. Unlike
// a hand-stubbed mock, it performs genuine optimistic-concurrency
// conflict detection and retry (spec.md §5), so tests that exercise
// concurrent writers see the same retry contract the real QLDB driver
// provides.
package ledgertest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"

	"github.com/aws-samples/qldb-ledger-load-go/internal/ledger"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newULID generates a ledger-assigned document id. Monotonic ULID
// entropy is shared and mutex-guarded across Ledger instances so ids
// stay sortable and collision-free even under concurrent Insert calls
// from multiple fake ledgers in the same test binary.
func newULID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}

// Ledger is a single in-process fake ledger instance.
type Ledger struct {
	db         *sql.DB
	mu         sync.Mutex
	generation atomic.Int64
	retryLimit int
}

// New opens a fresh in-memory fake ledger with activeTables marked ACTIVE.
func New(activeTables ...string) (*Ledger, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("ledgertest: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer, in-memory: one connection keeps the schema visible across calls

	if _, err := db.Exec(`
		CREATE TABLE revisions (
			table_name TEXT NOT NULL,
			doc_id     TEXT NOT NULL,
			version    INTEGER NOT NULL,
			data       TEXT,
			PRIMARY KEY (table_name, doc_id)
		);
		CREATE TABLE active_tables (table_name TEXT PRIMARY KEY);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledgertest: create schema: %w", err)
	}

	l := &Ledger{
		db:         db,
		retryLimit: 3,
	}
	for _, table := range activeTables {
		if _, err := db.Exec(`INSERT INTO active_tables (table_name) VALUES (?)`, table); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ledgertest: seed active table %q: %w", table, err)
		}
	}
	return l, nil
}

// SetRetryLimit overrides the optimistic-concurrency retry ceiling
// (default 3, matching MAX_OCC_RETRIES's default in spec.md §6).
func (l *Ledger) SetRetryLimit(n int) { l.retryLimit = n }

// Close releases the underlying database handle.
func (l *Ledger) Close() error { return l.db.Close() }

// Execute implements ledger.TransactionExecutor with conservative
// conflict detection: if any other Execute call committed while fn was
// running, this attempt rolls back and retries fn from the start, up to
// retryLimit times.
func (l *Ledger) Execute(ctx context.Context, fn func(ctx context.Context, tx ledger.Transaction) (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= l.retryLimit; attempt++ {
		startGen := l.generation.Load()

		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("ledgertest: begin: %w", err)
		}

		result, err := fn(ctx, &transaction{tx: tx})
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}

		l.mu.Lock()
		if l.generation.Load() != startGen {
			l.mu.Unlock()
			_ = tx.Rollback()
			lastErr = fmt.Errorf("ledgertest: optimistic concurrency conflict")
			continue
		}
		l.generation.Add(1)
		commitErr := tx.Commit()
		l.mu.Unlock()

		if commitErr != nil {
			return nil, fmt.Errorf("ledgertest: commit: %w", commitErr)
		}
		return result, nil
	}
	return nil, fmt.Errorf("ledgertest: exceeded %d optimistic concurrency retries: %w", l.retryLimit, lastErr)
}

// transaction adapts a *sql.Tx to ledger.Transaction.
type transaction struct {
	tx *sql.Tx
}

func (t *transaction) QueryByField(_ context.Context, table, fieldName string, value any) (*ledger.CurrentRevision, bool, error) {
	row := t.tx.QueryRow(
		`SELECT doc_id, version, data FROM revisions
		 WHERE table_name = ? AND json_extract(data, '$.' || ?) = ?`,
		table, fieldName, value,
	)
	return scanRevision(row)
}

func (t *transaction) Insert(_ context.Context, table string, data map[string]any) (any, error) {
	id := newULID()
	if err := t.upsert(table, id, 0, data); err != nil {
		return nil, err
	}
	return id, nil
}

func (t *transaction) Replace(_ context.Context, table string, id any, data map[string]any) error {
	current, ok, err := t.byID(table, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ledgertest: replace: document %v not found in %s", id, table)
	}
	return t.upsert(table, fmt.Sprint(id), current.Version+1, data)
}

func (t *transaction) Remove(_ context.Context, table string, id any) error {
	current, ok, err := t.byID(table, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ledgertest: remove: document %v not found in %s", id, table)
	}
	return t.upsert(table, fmt.Sprint(id), current.Version+1, nil)
}

func (t *transaction) ActiveTables(context.Context) ([]string, error) {
	rows, err := t.tx.Query(`SELECT table_name FROM active_tables ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("ledgertest: query active tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (t *transaction) byID(table string, id any) (*ledger.CurrentRevision, bool, error) {
	row := t.tx.QueryRow(`SELECT doc_id, version, data FROM revisions WHERE table_name = ? AND doc_id = ?`, table, fmt.Sprint(id))
	return scanRevision(row)
}

func (t *transaction) upsert(table, id string, version int, data map[string]any) error {
	var dataJSON any
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("ledgertest: marshal data: %w", err)
		}
		dataJSON = string(b)
	}
	_, err := t.tx.Exec(`
		INSERT INTO revisions (table_name, doc_id, version, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(table_name, doc_id) DO UPDATE SET version = excluded.version, data = excluded.data`,
		table, id, version, dataJSON,
	)
	if err != nil {
		return fmt.Errorf("ledgertest: upsert %s/%s: %w", table, id, err)
	}
	return nil
}

func scanRevision(row *sql.Row) (*ledger.CurrentRevision, bool, error) {
	var id string
	var version int
	var dataJSON sql.NullString
	if err := row.Scan(&id, &version, &dataJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ledgertest: scan revision: %w", err)
	}
	rev := &ledger.CurrentRevision{ID: id, Version: version}
	if dataJSON.Valid {
		var data map[string]any
		if err := json.Unmarshal([]byte(dataJSON.String), &data); err != nil {
			return nil, false, fmt.Errorf("ledgertest: decode data: %w", err)
		}
		rev.Data = data
	}
	return rev, true, nil
}
