/*
compliance.go - 1099-B and Form 8300 rule engine

PURPOSE:
  Decides which transactions a dealer must report, as a pure function of
  the transaction history. Flags are derived data: nothing else sets them.

FORM 1099-B (shop buys reportable product):
  - Only buy transactions count.
  - Reportable products: bars, rounds and scrap of either metal, junk
    silver, and gold coins other than Eagles, Britannias, Philharmonics
    and pre-1933 US gold. Silver coins are never reportable.
  - Each product key in the deal is checked on its own against its
    threshold (see Threshold). Lines of the same key are summed.
  - Quantities aggregate with the same customer's other buys of the same
    key dated within [date - 24h, date]. When only the aggregate meets the
    threshold, the earlier transactions are flagged retroactively.
  - Anonymous deals are checked on their own only.

FORM 8300 (cash received):
  - Cash amount is the deal total, or |settlement| for a trade.
  - Amounts aggregate per customer within the cash window (default 24h).
  - Flagged at or above CashReportThreshold (default $10,000).

EVALUATION:
  ApplyComplianceRules(history, tx) returns the flagged tx plus patches for
  earlier transactions. ApplyPatches applies them without mutating its
  input. RecomputeCompliance replays a whole history and is used after an
  edit or delete, where a flag may need to be withdrawn.

SEE ALSO:
  - form8300.go: Cash aggregation
  - ledger/ledger.go: Runs the engine before every write
*/
package bullion

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReasonSingle   = "Single transaction exceeds threshold"
	ReasonCombined = "Combined with prior transaction(s) within 24 hours exceeds threshold"
)

var (
	goldThreshold       = dec("32.15")
	goldCoinThreshold   = dec("25")
	silverThreshold     = dec("1000")
	exemptGoldCoins     = map[CoinType]bool{CoinEagles: true, CoinBritannias: true, CoinPhilharmonics: true}
	reducedThresholdFor = map[CoinType]bool{CoinMaples: true, CoinKrugerrands: true}
)

// IsReportableProduct reports whether buying the product can trigger 1099-B.
func IsReportableProduct(key ProductKey) bool {
	switch key.Form {
	case FormBars, FormRounds, FormScrap:
		return key.Metal.Valid()
	case FormJunk:
		return key.Metal == MetalSilver
	case FormCoins:
		if key.Metal != MetalGold {
			return false
		}
		// Generic gold coins (no coin type) are not in the exempt set
		return !exemptGoldCoins[key.CoinType] && !key.CoinType.IsPre33()
	}
	return false
}

// Threshold is the fine-ounce quantity at which a reportable product
// triggers 1099-B. Zero for products that are never reportable.
func Threshold(key ProductKey) decimal.Decimal {
	if !IsReportableProduct(key) {
		return decimal.Zero
	}
	if key.Metal == MetalSilver {
		return silverThreshold
	}
	if key.Form == FormCoins && reducedThresholdFor[key.CoinType] {
		return goldCoinThreshold
	}
	return goldThreshold
}

// =============================================================================
// FORM 1099-B
// =============================================================================

// LineCheck is the 1099-B evaluation of one product key within a deal.
type LineCheck struct {
	Product      ProductKey      `json:"product"`
	Qty          decimal.Decimal `json:"qty"`
	PriorQty     decimal.Decimal `json:"priorQty"`
	Threshold    decimal.Decimal `json:"threshold"`
	Reportable   bool            `json:"reportable"`
	Reason       string          `json:"reason,omitempty"`
	Contributors []string        `json:"contributors,omitempty"`
}

// Form1099BResult is the 1099-B evaluation of a whole deal.
type Form1099BResult struct {
	Reportable   bool        `json:"reportable"`
	Reason       string      `json:"reason,omitempty"`
	Lines        []LineCheck `json:"lines"`
	Contributors []string    `json:"contributors,omitempty"`
}

// Check1099B evaluates a candidate transaction against the history that
// precedes it. The candidate itself is ignored if it appears in history.
func Check1099B(candidate Transaction, history []Transaction, s Settings) (Form1099BResult, error) {
	var result Form1099BResult
	if candidate.Type != DealBuy {
		return result, nil
	}

	keys, qty, err := groupByKey(Lines(candidate))
	if err != nil {
		return result, err
	}

	window := s.aggregationWindow()
	seen := map[string]bool{}
	for _, key := range keys {
		check := LineCheck{Product: key, Qty: qty[key], Threshold: Threshold(key)}
		if check.Threshold.IsPositive() {
			evaluate1099B(&check, candidate, history, window)
		}
		if check.Reportable {
			if !result.Reportable {
				result.Reason = check.Reason
			}
			result.Reportable = true
			for _, id := range check.Contributors {
				if !seen[id] {
					seen[id] = true
					result.Contributors = append(result.Contributors, id)
				}
			}
		}
		result.Lines = append(result.Lines, check)
	}
	return result, nil
}

func evaluate1099B(check *LineCheck, candidate Transaction, history []Transaction, window time.Duration) {
	if check.Qty.GreaterThanOrEqual(check.Threshold) {
		check.Reportable = true
		check.Reason = ReasonSingle
		return
	}
	if candidate.CustomerID == "" {
		return
	}

	var contributors []string
	prior := decimal.Zero
	for _, tx := range history {
		if !relatedBuy(tx, candidate, window) {
			continue
		}
		q := decimal.Zero
		for _, l := range Lines(tx) {
			if l.Key() == check.Product {
				q = q.Add(l.Qty)
			}
		}
		if q.IsPositive() {
			prior = prior.Add(q)
			contributors = append(contributors, tx.ID)
		}
	}
	check.PriorQty = prior
	if check.Qty.Add(prior).GreaterThanOrEqual(check.Threshold) {
		check.Reportable = true
		check.Reason = ReasonCombined
		check.Contributors = contributors
	}
}

func relatedBuy(tx, candidate Transaction, window time.Duration) bool {
	return tx.ID != candidate.ID &&
		tx.Type == DealBuy &&
		tx.CustomerID == candidate.CustomerID &&
		inWindow(tx.Date, candidate.Date, window)
}

// inWindow reports whether t falls in [at - window, at].
func inWindow(t, at time.Time, window time.Duration) bool {
	return !t.Before(at.Add(-window)) && !t.After(at)
}

// groupByKey sums line quantities per product key, keeping first-seen order.
func groupByKey(lines []Line) ([]ProductKey, map[ProductKey]decimal.Decimal, error) {
	var keys []ProductKey
	qty := map[ProductKey]decimal.Decimal{}
	for _, l := range lines {
		if l.Metal == "" || l.Form == "" {
			return nil, nil, &InvalidProductError{Metal: l.Metal, Form: l.Form, Reason: "metal and form are required"}
		}
		k := l.Key()
		if _, ok := qty[k]; !ok {
			keys = append(keys, k)
		}
		qty[k] = qty[k].Add(l.Qty)
	}
	return keys, qty, nil
}

// =============================================================================
// RULE APPLICATION
// =============================================================================

// Patch raises flags on an earlier transaction. Patches only ever set flags.
type Patch struct {
	TransactionID string `json:"transactionId"`
	Flag1099B     bool   `json:"flag1099B"`
	Reason1099B   string `json:"reason1099B,omitempty"`
	Flag8300      bool   `json:"flag8300"`
}

// ComplianceOutcome is the result of evaluating one new transaction.
type ComplianceOutcome struct {
	Transaction Transaction
	Form1099B   Form1099BResult
	Form8300    Form8300Result
	Patches     []Patch
}

// ApplyComplianceRules evaluates tx against the history that precedes it
// and returns tx with its flags set, plus the patches to apply to history.
// Neither argument is modified.
func ApplyComplianceRules(history []Transaction, tx Transaction, s Settings) (ComplianceOutcome, error) {
	r1099, err := Check1099B(tx, history, s)
	if err != nil {
		return ComplianceOutcome{}, err
	}
	r8300 := Check8300(tx, history, s)

	tx.Form1099BFlag = r1099.Reportable
	tx.Form1099BReason = r1099.Reason
	if !tx.Form1099BFlag {
		tx.Form1099BFiled = false
	}
	tx.Form8300Flag = r8300.Flagged
	if !tx.Form8300Flag {
		tx.Form8300Reviewed = false
	}

	byID := map[string]*Patch{}
	var order []string
	patch := func(id string) *Patch {
		p, ok := byID[id]
		if !ok {
			p = &Patch{TransactionID: id}
			byID[id] = p
			order = append(order, id)
		}
		return p
	}
	for _, id := range r1099.Contributors {
		p := patch(id)
		p.Flag1099B = true
		p.Reason1099B = ReasonCombined
	}
	for _, id := range r8300.Contributors {
		patch(id).Flag8300 = true
	}

	out := ComplianceOutcome{Transaction: tx, Form1099B: r1099, Form8300: r8300}
	for _, id := range order {
		out.Patches = append(out.Patches, *byID[id])
	}
	return out, nil
}

// ApplyPatches returns a copy of history with the patches applied. A
// transaction that was already flagged keeps its original reason.
func ApplyPatches(history []Transaction, patches []Patch) []Transaction {
	out := make([]Transaction, len(history))
	copy(out, history)
	if len(patches) == 0 {
		return out
	}

	byID := make(map[string]Patch, len(patches))
	for _, p := range patches {
		byID[p.TransactionID] = p
	}
	for i := range out {
		p, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		applyPatch(&out[i], p)
	}
	return out
}

func applyPatch(tx *Transaction, p Patch) {
	if p.Flag1099B {
		if !tx.Form1099BFlag || tx.Form1099BReason == "" {
			tx.Form1099BReason = p.Reason1099B
		}
		tx.Form1099BFlag = true
	}
	if p.Flag8300 {
		tx.Form8300Flag = true
	}
}

// RecomputeCompliance re-derives every flag from scratch in date order and
// returns the history sorted by date. Filed and reviewed acknowledgements
// survive only while their flag does.
func RecomputeCompliance(history []Transaction, s Settings) ([]Transaction, error) {
	out := SortByDate(history)

	type ack struct{ filed, reviewed bool }
	acks := make(map[string]ack, len(out))
	for i := range out {
		acks[out[i].ID] = ack{out[i].Form1099BFiled, out[i].Form8300Reviewed}
		clearFlags(&out[i])
	}

	for i := range out {
		outcome, err := ApplyComplianceRules(out[:i], out[i], s)
		if err != nil {
			return nil, err
		}
		out[i] = outcome.Transaction
		for _, p := range outcome.Patches {
			for j := 0; j < i; j++ {
				if out[j].ID == p.TransactionID {
					applyPatch(&out[j], p)
				}
			}
		}
	}

	for i := range out {
		a := acks[out[i].ID]
		out[i].Form1099BFiled = a.filed && out[i].Form1099BFlag
		out[i].Form8300Reviewed = a.reviewed && out[i].Form8300Flag
	}
	return out, nil
}

func clearFlags(tx *Transaction) {
	tx.Form1099BFlag = false
	tx.Form1099BReason = ""
	tx.Form1099BFiled = false
	tx.Form8300Flag = false
	tx.Form8300Reviewed = false
}

// SortByDate returns a copy of txs in ascending date order. Ties keep their
// input order.
func SortByDate(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
