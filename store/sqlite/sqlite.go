/*
Package sqlite provides a SQLite-backed implementation of the ledger stores.

PURPOSE:
  Implements ledger.TxStore and ledger.SettingsStore on SQLite. The same
  schema ports to PostgreSQL with minor dialect changes.

KEY TABLES:
  transactions: One row per deal. The full transaction is kept as JSON in
                payload_json; the columns beside it exist for ordering,
                lookups and ad-hoc reporting and are rewritten on every
                update.
  settings:     Named JSON settings documents.

ORDERING:
  Rows are listed by date, then rowid. Dates are stored in UTC with a
  fixed-width layout so that string order is time order. An UPDATE keeps
  the rowid, so an edited deal keeps its place among same-date deals.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers don't block the writer.

USAGE:
  store, err := sqlite.New("./data/bullion.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l := ledger.New(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/bullion-desk/bullion"
	"github.com/warp/bullion-desk/ledger"
)

// dateLayout is fixed width so that lexical order matches time order.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements the ledger stores using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		customer_id TEXT,
		payment TEXT,
		total TEXT NOT NULL,
		form_1099b_flag BOOLEAN NOT NULL DEFAULT FALSE,
		form_1099b_filed BOOLEAN NOT NULL DEFAULT FALSE,
		form_8300_flag BOOLEAN NOT NULL DEFAULT FALSE,
		form_8300_reviewed BOOLEAN NOT NULL DEFAULT FALSE,
		payload_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: every engine replays the history in date order
	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(date);

	-- Compliance aggregation looks back per customer
	CREATE INDEX IF NOT EXISTS idx_transactions_customer_date
		ON transactions(customer_id, date) WHERE customer_id IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_transactions_open_compliance
		ON transactions(form_1099b_flag, form_8300_flag);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTION STORE (ledger.Store interface)
// =============================================================================

// Append adds a transaction.
func (s *Store) Append(ctx context.Context, tx bullion.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTx(ctx, s.db, tx)
}

func appendTx(ctx context.Context, db execer, tx bullion.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO transactions
		(id, date, tx_type, customer_id, payment, total,
		 form_1099b_flag, form_1099b_filed, form_8300_flag, form_8300_reviewed,
		 payload_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		tx.ID,
		formatDate(tx.Date),
		string(tx.Type),
		nullString(tx.CustomerID),
		nullString(string(tx.Payment)),
		tx.Total.String(),
		tx.Form1099BFlag,
		tx.Form1099BFiled,
		tx.Form8300Flag,
		tx.Form8300Reviewed,
		string(payload),
		now,
		now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ledger.ErrDuplicateTransaction, tx.ID)
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Update overwrites a stored transaction.
func (s *Store) Update(ctx context.Context, tx bullion.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTx(ctx, s.db, tx)
}

func updateTx(ctx context.Context, db execer, tx bullion.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}

	query := `
		UPDATE transactions SET
			date = ?, tx_type = ?, customer_id = ?, payment = ?, total = ?,
			form_1099b_flag = ?, form_1099b_filed = ?, form_8300_flag = ?, form_8300_reviewed = ?,
			payload_json = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := db.ExecContext(ctx, query,
		formatDate(tx.Date),
		string(tx.Type),
		nullString(tx.CustomerID),
		nullString(string(tx.Payment)),
		tx.Total.String(),
		tx.Form1099BFlag,
		tx.Form1099BFiled,
		tx.Form8300Flag,
		tx.Form8300Reviewed,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(res, tx.ID)
}

// Delete removes a transaction.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTx(ctx, s.db, id)
}

func deleteTx(ctx context.Context, db execer, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireRow(res, id)
}

// Get returns one transaction.
func (s *Store) Get(ctx context.Context, id string) (bullion.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTx(ctx, s.db, id)
}

func getTx(ctx context.Context, db execer, id string) (bullion.Transaction, error) {
	var payload string
	err := db.QueryRowContext(ctx, "SELECT payload_json FROM transactions WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return bullion.Transaction{}, fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, id)
	}
	if err != nil {
		return bullion.Transaction{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	return decodeTransaction(payload)
}

// List returns every transaction by date, then insertion order.
func (s *Store) List(ctx context.Context) ([]bullion.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTx(ctx, s.db, "SELECT payload_json FROM transactions ORDER BY date ASC, rowid ASC")
}

// ListByCustomer returns one customer's transactions by date.
func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]bullion.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTx(ctx, s.db,
		"SELECT payload_json FROM transactions WHERE customer_id = ? ORDER BY date ASC, rowid ASC",
		customerID)
}

func listTx(ctx context.Context, db execer, query string, args ...any) ([]bullion.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []bullion.Transaction
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx, err := decodeTransaction(payload)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Exists reports whether a transaction id is stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return existsTx(ctx, s.db, id)
}

func existsTx(ctx context.Context, db execer, id string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE id = ?", id).Scan(&count)
	return count > 0, err
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Append(ctx context.Context, tx bullion.Transaction) error {
	return appendTx(ctx, ts.tx, tx)
}

func (ts *txStore) Update(ctx context.Context, tx bullion.Transaction) error {
	return updateTx(ctx, ts.tx, tx)
}

func (ts *txStore) Delete(ctx context.Context, id string) error {
	return deleteTx(ctx, ts.tx, id)
}

func (ts *txStore) Get(ctx context.Context, id string) (bullion.Transaction, error) {
	return getTx(ctx, ts.tx, id)
}

func (ts *txStore) List(ctx context.Context) ([]bullion.Transaction, error) {
	return listTx(ctx, ts.tx, "SELECT payload_json FROM transactions ORDER BY date ASC, rowid ASC")
}

func (ts *txStore) Exists(ctx context.Context, id string) (bool, error) {
	return existsTx(ctx, ts.tx, id)
}

// =============================================================================
// SETTINGS STORE (ledger.SettingsStore interface)
// =============================================================================

// GetSetting returns a named settings document.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value_json FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ledger.ErrSettingNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load setting: %w", err)
	}
	return value, nil
}

// PutSetting creates or replaces a named settings document.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO settings (key, value_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all transactions and settings (for testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "settings"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func decodeTransaction(payload string) (bullion.Transaction, error) {
	var tx bullion.Transaction
	if err := json.Unmarshal([]byte(payload), &tx); err != nil {
		return tx, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
