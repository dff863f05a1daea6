/*
ledger.go - Transaction ledger with derived compliance flags

PURPOSE:
  The ledger is the only writer of transactions. It guarantees that the
  compliance flags on every stored transaction match what the rule engine
  derives from the history.

WRITE PATHS:
  Record:  Evaluate the new deal against the history as it stands, then
           append it and apply retroactive flags to earlier deals in one
           store transaction. A backdated deal replays every flag.
  Edit:    Overwrite a deal, then recompute every flag from scratch.
  Delete:  Remove a deal, then recompute every flag from scratch.
  Ack:     Mark a 1099-B flag filed or an 8300 flag reviewed.

SEQUENCING:
  Writes are serialized by a mutex held from loading the history until the
  store commits. Two concurrent deals are therefore evaluated one after
  the other, and the second always sees the first.

READ PATHS:
  Transactions, CostBasis and Inventory load the full history and run the
  pure engines over it. Nothing derived is stored.

SEE ALSO:
  - store.go: Persistence interfaces
  - bullion/compliance.go: Rule engine
*/
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/bullion-desk/bullion"
	"github.com/warp/bullion-desk/logger"
)

// Ledger records deals and keeps their compliance flags consistent.
type Ledger struct {
	store TxStore
	mu    sync.Mutex
}

// New creates a ledger over a transactional store.
func New(store TxStore) *Ledger {
	return &Ledger{store: store}
}

// =============================================================================
// WRITES
// =============================================================================

// Record evaluates compliance for tx against the stored history and
// persists it together with any retroactive flags on earlier deals.
func (l *Ledger) Record(ctx context.Context, tx bullion.Transaction, s bullion.Settings) (bullion.ComplianceOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exists, err := l.store.Exists(ctx, tx.ID)
	if err != nil {
		return bullion.ComplianceOutcome{}, err
	}
	if exists {
		return bullion.ComplianceOutcome{}, fmt.Errorf("%w: %s", ErrDuplicateTransaction, tx.ID)
	}

	history, err := l.store.List(ctx)
	if err != nil {
		return bullion.ComplianceOutcome{}, err
	}

	if backdated(history, tx) {
		return l.recordBackdated(ctx, history, tx, s)
	}

	outcome, err := bullion.ApplyComplianceRules(history, tx, s)
	if err != nil {
		return bullion.ComplianceOutcome{}, err
	}

	patched := patchedOnly(bullion.ApplyPatches(history, outcome.Patches), outcome.Patches)
	err = l.store.WithTx(ctx, func(store Store) error {
		if err := store.Append(ctx, outcome.Transaction); err != nil {
			return err
		}
		for _, prior := range patched {
			if err := store.Update(ctx, prior); err != nil {
				return fmt.Errorf("flag %s: %w", prior.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return bullion.ComplianceOutcome{}, err
	}

	logRecorded(ctx, outcome)
	return outcome, nil
}

// recordBackdated inserts a deal dated before some of the history. Later
// deals may now aggregate with it, so every flag is replayed.
func (l *Ledger) recordBackdated(ctx context.Context, history []bullion.Transaction, tx bullion.Transaction, s bullion.Settings) (bullion.ComplianceOutcome, error) {
	var earlier []bullion.Transaction
	for _, h := range history {
		if !h.Date.After(tx.Date) {
			earlier = append(earlier, h)
		}
	}
	outcome, err := bullion.ApplyComplianceRules(earlier, tx, s)
	if err != nil {
		return bullion.ComplianceOutcome{}, err
	}

	all := append(append([]bullion.Transaction{}, history...), tx)
	recomputed, err := bullion.RecomputeCompliance(all, s)
	if err != nil {
		return bullion.ComplianceOutcome{}, err
	}

	before := byID(history)
	outcome.Patches = nil
	err = l.store.WithTx(ctx, func(store Store) error {
		for _, r := range recomputed {
			if r.ID == tx.ID {
				outcome.Transaction = r
				if err := store.Append(ctx, r); err != nil {
					return err
				}
				continue
			}
			if !flagsChanged(before[r.ID], r) {
				continue
			}
			outcome.Patches = append(outcome.Patches, bullion.Patch{
				TransactionID: r.ID,
				Flag1099B:     r.Form1099BFlag,
				Reason1099B:   r.Form1099BReason,
				Flag8300:      r.Form8300Flag,
			})
			if err := store.Update(ctx, r); err != nil {
				return fmt.Errorf("flag %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return bullion.ComplianceOutcome{}, err
	}

	logRecorded(ctx, outcome)
	return outcome, nil
}

func logRecorded(ctx context.Context, outcome bullion.ComplianceOutcome) {
	tx := outcome.Transaction
	log := logger.FromContext(ctx)
	log.Info("deal recorded",
		"id", tx.ID,
		"type", tx.Type,
		"total", tx.Total.String(),
		"form1099b", tx.Form1099BFlag,
		"form8300", tx.Form8300Flag,
	)
	for _, p := range outcome.Patches {
		log.Info("flag raised on earlier deal",
			"id", p.TransactionID,
			"by", tx.ID,
			"form1099b", p.Flag1099B,
			"form8300", p.Flag8300,
		)
	}
}

// Edit overwrites a stored deal and recomputes every compliance flag.
// It returns the edited deal as stored.
func (l *Ledger) Edit(ctx context.Context, tx bullion.Transaction, s bullion.Settings) (bullion.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.store.List(ctx)
	if err != nil {
		return bullion.Transaction{}, err
	}

	idx := indexOf(history, tx.ID)
	if idx < 0 {
		return bullion.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, tx.ID)
	}
	edited := make([]bullion.Transaction, len(history))
	copy(edited, history)
	// Acknowledgements only change through SetFiled1099B / SetReviewed8300
	tx.CreatedAt = history[idx].CreatedAt
	tx.Form1099BFiled = history[idx].Form1099BFiled
	tx.Form8300Reviewed = history[idx].Form8300Reviewed
	edited[idx] = tx

	recomputed, err := bullion.RecomputeCompliance(edited, s)
	if err != nil {
		return bullion.Transaction{}, err
	}

	before := byID(history)
	var stored bullion.Transaction
	err = l.store.WithTx(ctx, func(store Store) error {
		for _, r := range recomputed {
			if r.ID == tx.ID {
				stored = r
				if err := store.Update(ctx, r); err != nil {
					return err
				}
				continue
			}
			if flagsChanged(before[r.ID], r) {
				if err := store.Update(ctx, r); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return bullion.Transaction{}, err
	}

	logger.FromContext(ctx).Info("deal edited", "id", tx.ID)
	return stored, nil
}

// Delete removes a deal and recomputes every compliance flag.
func (l *Ledger) Delete(ctx context.Context, id string, s bullion.Settings) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.store.List(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(history, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}

	remaining := make([]bullion.Transaction, 0, len(history)-1)
	remaining = append(remaining, history[:idx]...)
	remaining = append(remaining, history[idx+1:]...)

	recomputed, err := bullion.RecomputeCompliance(remaining, s)
	if err != nil {
		return err
	}

	before := byID(history)
	err = l.store.WithTx(ctx, func(store Store) error {
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
		for _, r := range recomputed {
			if flagsChanged(before[r.ID], r) {
				if err := store.Update(ctx, r); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("deal deleted", "id", id)
	return nil
}

// SetFiled1099B records whether the 1099-B for a flagged deal was filed.
func (l *Ledger) SetFiled1099B(ctx context.Context, id string, filed bool) (bullion.Transaction, error) {
	return l.acknowledge(ctx, id, func(tx *bullion.Transaction) error {
		if !tx.Form1099BFlag {
			return fmt.Errorf("%w: %s has no 1099-B flag", ErrNotFlagged, id)
		}
		tx.Form1099BFiled = filed
		return nil
	})
}

// SetReviewed8300 records whether a flagged 8300 deal was reviewed.
func (l *Ledger) SetReviewed8300(ctx context.Context, id string, reviewed bool) (bullion.Transaction, error) {
	return l.acknowledge(ctx, id, func(tx *bullion.Transaction) error {
		if !tx.Form8300Flag {
			return fmt.Errorf("%w: %s has no 8300 flag", ErrNotFlagged, id)
		}
		tx.Form8300Reviewed = reviewed
		return nil
	})
}

func (l *Ledger) acknowledge(ctx context.Context, id string, apply func(*bullion.Transaction) error) (bullion.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.Get(ctx, id)
	if err != nil {
		return bullion.Transaction{}, err
	}
	if err := apply(&tx); err != nil {
		return bullion.Transaction{}, err
	}
	if err := l.store.Update(ctx, tx); err != nil {
		return bullion.Transaction{}, err
	}
	return tx, nil
}

// =============================================================================
// READS
// =============================================================================

// Transactions returns the full history in date order.
func (l *Ledger) Transactions(ctx context.Context) ([]bullion.Transaction, error) {
	return l.store.List(ctx)
}

// Get returns one transaction.
func (l *Ledger) Get(ctx context.Context, id string) (bullion.Transaction, error) {
	return l.store.Get(ctx, id)
}

// CostBasis replays the history through FIFO. Oversold products are logged.
func (l *Ledger) CostBasis(ctx context.Context) (bullion.CostBasisReport, error) {
	txs, err := l.store.List(ctx)
	if err != nil {
		return bullion.CostBasisReport{}, err
	}
	report := bullion.ComputeCostBasis(txs)
	for _, w := range report.Warnings {
		logger.FromContext(ctx).Warn("inventory data integrity",
			"transaction", w.TransactionID,
			"product", w.Product.String(),
			"shortfall", w.Shortfall.String(),
		)
	}
	return report, nil
}

// Inventory derives current quantities from the history.
func (l *Ledger) Inventory(ctx context.Context) (bullion.Inventory, error) {
	txs, err := l.store.List(ctx)
	if err != nil {
		return bullion.Inventory{}, err
	}
	return bullion.GetInventory(txs), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func indexOf(txs []bullion.Transaction, id string) int {
	for i := range txs {
		if txs[i].ID == id {
			return i
		}
	}
	return -1
}

// backdated reports whether any stored deal is dated after tx.
func backdated(history []bullion.Transaction, tx bullion.Transaction) bool {
	for _, h := range history {
		if h.Date.After(tx.Date) {
			return true
		}
	}
	return false
}

func byID(txs []bullion.Transaction) map[string]bullion.Transaction {
	m := make(map[string]bullion.Transaction, len(txs))
	for _, tx := range txs {
		m[tx.ID] = tx
	}
	return m
}

// patchedOnly returns the transactions a patch list touches.
func patchedOnly(txs []bullion.Transaction, patches []bullion.Patch) []bullion.Transaction {
	if len(patches) == 0 {
		return nil
	}
	want := make(map[string]bool, len(patches))
	for _, p := range patches {
		want[p.TransactionID] = true
	}
	var out []bullion.Transaction
	for _, tx := range txs {
		if want[tx.ID] {
			out = append(out, tx)
		}
	}
	return out
}

func flagsChanged(a, b bullion.Transaction) bool {
	return a.Form1099BFlag != b.Form1099BFlag ||
		a.Form1099BReason != b.Form1099BReason ||
		a.Form1099BFiled != b.Form1099BFiled ||
		a.Form8300Flag != b.Form8300Flag ||
		a.Form8300Reviewed != b.Form8300Reviewed
}
