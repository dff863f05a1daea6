/*
costbasis.go - FIFO cost basis

PURPOSE:
  Replays every transaction in date order and keeps a queue of purchase
  lots per product. Inbound metal opens a lot at the price paid, outbound
  metal consumes the oldest lots first. What remains is the inventory's
  cost basis; what was consumed gives realized P&L per transaction.

RULES:
  - Lot unit cost is the line price per fine ounce.
  - Lots are consumed oldest first and split when partially used.
  - Proceeds of an outbound line are its total.
  - Selling more than is on hand consumes everything, treats the rest as
    zero cost and records a DataIntegrityWarning. The report is still
    produced.

SEE ALSO:
  - inventory.go: Quantities only, same movement rules
  - types.go: Movements()
*/
package bullion

import (
	"github.com/shopspring/decimal"
)

// Lot is an open purchase lot.
type Lot struct {
	TransactionID string          `json:"transactionId"`
	Date          string          `json:"date"`
	Qty           decimal.Decimal `json:"qty"`
	UnitCost      decimal.Decimal `json:"unitCost"`
}

// Position summarizes the open lots of one metal and form.
type Position struct {
	Qty       decimal.Decimal `json:"qty"`
	TotalCost decimal.Decimal `json:"totalCost"`
	AvgCost   decimal.Decimal `json:"avgCost"`
}

// Disposal is the FIFO result of one outbound line.
type Disposal struct {
	TransactionID string          `json:"transactionId"`
	Product       ProductKey      `json:"product"`
	Qty           decimal.Decimal `json:"qty"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	Cost          decimal.Decimal `json:"cost"`
	RealizedPnL   decimal.Decimal `json:"realizedPnl"`
}

// CostBasisReport is the FIFO state after replaying a history.
type CostBasisReport struct {
	Summary          map[Metal]map[Form]Position
	Lots             map[ProductKey][]Lot
	Disposals        []Disposal
	RealizedByTx     map[string]decimal.Decimal
	TotalCostBasis   decimal.Decimal
	TotalRealizedPnL decimal.Decimal
	Warnings         []DataIntegrityWarning
}

// ComputeCostBasis replays txs in date order. The input is not modified and
// the same input always yields the same report.
func ComputeCostBasis(txs []Transaction) CostBasisReport {
	report := CostBasisReport{
		Summary:      map[Metal]map[Form]Position{},
		Lots:         map[ProductKey][]Lot{},
		RealizedByTx: map[string]decimal.Decimal{},
	}

	for _, tx := range SortByDate(txs) {
		for _, mv := range Movements(tx) {
			key := mv.Key()
			if mv.Direction == Inbound {
				report.Lots[key] = append(report.Lots[key], Lot{
					TransactionID: tx.ID,
					Date:          tx.Date.Format("2006-01-02"),
					Qty:           mv.Qty,
					UnitCost:      mv.Price,
				})
				continue
			}

			lots, cost, shortfall := consumeFIFO(report.Lots[key], mv.Qty)
			report.Lots[key] = lots
			if shortfall.IsPositive() {
				report.Warnings = append(report.Warnings, DataIntegrityWarning{
					TransactionID: tx.ID,
					Date:          tx.Date.Format("2006-01-02"),
					Product:       key,
					Requested:     mv.Qty,
					Shortfall:     shortfall,
				})
			}

			cost = cost.Round(2)
			pnl := mv.Total.Sub(cost)
			report.Disposals = append(report.Disposals, Disposal{
				TransactionID: tx.ID,
				Product:       key,
				Qty:           mv.Qty,
				Proceeds:      mv.Total,
				Cost:          cost,
				RealizedPnL:   pnl,
			})
			report.RealizedByTx[tx.ID] = report.RealizedByTx[tx.ID].Add(pnl)
			report.TotalRealizedPnL = report.TotalRealizedPnL.Add(pnl)
		}
	}

	for key, lots := range report.Lots {
		if len(lots) == 0 {
			delete(report.Lots, key)
			continue
		}
		byForm, ok := report.Summary[key.Metal]
		if !ok {
			byForm = map[Form]Position{}
			report.Summary[key.Metal] = byForm
		}
		pos := byForm[key.Form]
		for _, lot := range lots {
			pos.Qty = pos.Qty.Add(lot.Qty)
			pos.TotalCost = pos.TotalCost.Add(lot.Qty.Mul(lot.UnitCost))
		}
		byForm[key.Form] = pos
	}
	for _, byForm := range report.Summary {
		for form, pos := range byForm {
			pos.TotalCost = pos.TotalCost.Round(2)
			if pos.Qty.IsPositive() {
				pos.AvgCost = pos.TotalCost.Div(pos.Qty).Round(2)
			}
			byForm[form] = pos
			report.TotalCostBasis = report.TotalCostBasis.Add(pos.TotalCost)
		}
	}
	return report
}

// consumeFIFO removes qty from the front of lots. It returns the remaining
// lots, the cost of what was consumed and any quantity that found no lot.
func consumeFIFO(lots []Lot, qty decimal.Decimal) ([]Lot, decimal.Decimal, decimal.Decimal) {
	remaining := make([]Lot, len(lots))
	copy(remaining, lots)

	cost := decimal.Zero
	need := qty
	for need.IsPositive() && len(remaining) > 0 {
		head := remaining[0]
		if head.Qty.LessThanOrEqual(need) {
			cost = cost.Add(head.Qty.Mul(head.UnitCost))
			need = need.Sub(head.Qty)
			remaining = remaining[1:]
			continue
		}
		cost = cost.Add(need.Mul(head.UnitCost))
		head.Qty = head.Qty.Sub(need)
		remaining[0] = head
		need = decimal.Zero
	}
	return remaining, cost, need
}

// Unrealized is the mark-to-spot gain on open lots.
type Unrealized struct {
	ByMetal map[Metal]decimal.Decimal `json:"byMetal"`
	Total   decimal.Decimal           `json:"total"`
}

// UnrealizedPnL values the report's open lots at spot. Metals without a
// spot price are skipped.
func UnrealizedPnL(report CostBasisReport, spot SpotPrices) Unrealized {
	out := Unrealized{ByMetal: map[Metal]decimal.Decimal{}}
	for key, lots := range report.Lots {
		price := spot.For(key.Metal)
		if !price.IsPositive() {
			continue
		}
		for _, lot := range lots {
			gain := price.Sub(lot.UnitCost).Mul(lot.Qty)
			out.ByMetal[key.Metal] = out.ByMetal[key.Metal].Add(gain)
		}
	}
	for m, v := range out.ByMetal {
		v = v.Round(2)
		out.ByMetal[m] = v
		out.Total = out.Total.Add(v)
	}
	return out
}
