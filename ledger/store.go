/*
store.go - Persistence interfaces for the transaction ledger

PURPOSE:
  Defines the boundary between the ledger and the database. The bullion
  engines never touch a Store; the ledger loads history, runs the engines
  and writes the results back through these interfaces.

KEY INTERFACES:
  Store:         Transaction persistence (append, update, delete, load)
  TxStore:       Atomic multi-row writes (new deal + retroactive flags)
  SettingsStore: Key/value persistence of shop settings documents

WHY UPDATE AND DELETE EXIST:
  Compliance flags are derived from the whole history. Recording a deal
  can raise flags on earlier deals, and editing or deleting one can
  withdraw them, so stored rows must be rewritable. Only the ledger calls
  Update and Delete, and only inside WithTx.

ORDERING:
  List returns transactions by date ascending, then by insertion order.
  Every derived computation depends on this order.

IMPLEMENTATIONS:
  - store/memory: In-memory (tests, demos)
  - store/sqlite: SQLite (production)

SEE ALSO:
  - ledger.go: The only writer
*/
package ledger

import (
	"context"
	"errors"

	"github.com/warp/bullion-desk/bullion"
)

var (
	// ErrTransactionNotFound is returned when a transaction id is unknown.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateTransaction is returned when appending an id that exists.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")

	// ErrSettingNotFound is returned when a settings key was never saved.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrNotFlagged is returned when acknowledging a flag that is not raised.
	ErrNotFlagged = errors.New("transaction is not flagged")
)

// Store persists transactions.
type Store interface {
	// Append persists a new transaction. Fails with ErrDuplicateTransaction
	// if the id exists.
	Append(ctx context.Context, tx bullion.Transaction) error

	// Update overwrites a stored transaction. Fails with
	// ErrTransactionNotFound if the id does not exist.
	Update(ctx context.Context, tx bullion.Transaction) error

	// Delete removes a transaction. Fails with ErrTransactionNotFound.
	Delete(ctx context.Context, id string) error

	// Get returns one transaction. Fails with ErrTransactionNotFound.
	Get(ctx context.Context, id string) (bullion.Transaction, error)

	// List returns every transaction, ordered by date then insertion.
	List(ctx context.Context) ([]bullion.Transaction, error)

	// Exists reports whether a transaction id is stored.
	Exists(ctx context.Context, id string) (bool, error)
}

// TxStore is a Store that can group writes atomically.
type TxStore interface {
	Store

	// WithTx runs fn against a Store whose writes commit together or not
	// at all.
	WithTx(ctx context.Context, fn func(store Store) error) error
}

// SettingsStore persists named settings documents as JSON.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}
