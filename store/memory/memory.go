// Package memory provides an in-memory ledger store for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/bullion-desk/bullion"
	"github.com/warp/bullion-desk/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store keeps transactions sorted by date. Ties keep insertion order.
// It implements ledger.TxStore and ledger.SettingsStore.
type Store struct {
	mu       sync.RWMutex
	txs      []bullion.Transaction
	settings map[string]string
}

func New() *Store {
	return &Store{settings: make(map[string]string)}
}

func (m *Store) Append(_ context.Context, tx bullion.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

func (m *Store) appendLocked(tx bullion.Transaction) error {
	if m.indexLocked(tx.ID) >= 0 {
		return fmt.Errorf("%w: %s", ledger.ErrDuplicateTransaction, tx.ID)
	}

	// Insert after every transaction dated at or before tx
	i := sort.Search(len(m.txs), func(i int) bool {
		return m.txs[i].Date.After(tx.Date)
	})
	m.txs = append(m.txs, bullion.Transaction{})
	copy(m.txs[i+1:], m.txs[i:])
	m.txs[i] = tx
	return nil
}

func (m *Store) Update(_ context.Context, tx bullion.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(tx)
}

func (m *Store) updateLocked(tx bullion.Transaction) error {
	i := m.indexLocked(tx.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, tx.ID)
	}
	if m.txs[i].Date.Equal(tx.Date) {
		m.txs[i] = tx
		return nil
	}
	// Date moved: reinsert to keep the order
	m.txs = append(m.txs[:i], m.txs[i+1:]...)
	return m.appendLocked(tx)
}

func (m *Store) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *Store) deleteLocked(id string) error {
	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, id)
	}
	m.txs = append(m.txs[:i], m.txs[i+1:]...)
	return nil
}

func (m *Store) Get(_ context.Context, id string) (bullion.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Store) getLocked(id string) (bullion.Transaction, error) {
	i := m.indexLocked(id)
	if i < 0 {
		return bullion.Transaction{}, fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, id)
	}
	return m.txs[i], nil
}

func (m *Store) List(_ context.Context) ([]bullion.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(), nil
}

func (m *Store) listLocked() []bullion.Transaction {
	result := make([]bullion.Transaction, len(m.txs))
	copy(result, m.txs)
	return result
}

func (m *Store) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexLocked(id) >= 0, nil
}

func (m *Store) indexLocked(id string) int {
	for i := range m.txs {
		if m.txs[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a view of the store. On error the store is
// restored from a snapshot taken before fn ran.
func (m *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.listLocked()
	if err := fn(&txView{parent: m}); err != nil {
		m.txs = snapshot
		return err
	}
	return nil
}

// txView runs against the parent while its lock is held by WithTx.
type txView struct {
	parent *Store
}

func (v *txView) Append(_ context.Context, tx bullion.Transaction) error {
	return v.parent.appendLocked(tx)
}

func (v *txView) Update(_ context.Context, tx bullion.Transaction) error {
	return v.parent.updateLocked(tx)
}

func (v *txView) Delete(_ context.Context, id string) error {
	return v.parent.deleteLocked(id)
}

func (v *txView) Get(_ context.Context, id string) (bullion.Transaction, error) {
	return v.parent.getLocked(id)
}

func (v *txView) List(_ context.Context) ([]bullion.Transaction, error) {
	return v.parent.listLocked(), nil
}

func (v *txView) Exists(_ context.Context, id string) (bool, error) {
	return v.parent.indexLocked(id) >= 0, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Store) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ledger.ErrSettingNotFound, key)
	}
	return v, nil
}

func (m *Store) PutSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}
