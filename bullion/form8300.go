package bullion

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Form8300Result is the cash-reporting evaluation of a deal.
type Form8300Result struct {
	Flagged      bool            `json:"flagged"`
	Reason       string          `json:"reason,omitempty"`
	CashAmount   decimal.Decimal `json:"cashAmount"`
	Aggregate    decimal.Decimal `json:"aggregate"`
	Contributors []string        `json:"contributors,omitempty"`
}

// CashAmount is the cash a transaction moved. Zero unless paid in cash.
func CashAmount(tx Transaction) decimal.Decimal {
	if tx.Payment != PaymentCash {
		return decimal.Zero
	}
	if tx.Type == DealTrade {
		return tx.Settlement.Abs()
	}
	return tx.Total.Abs()
}

// Check8300 evaluates a candidate against the preceding history. Earlier
// cash deals of the same customer are listed as contributors only when the
// candidate alone stays under the threshold.
func Check8300(candidate Transaction, history []Transaction, s Settings) Form8300Result {
	amount := CashAmount(candidate)
	result := Form8300Result{CashAmount: amount, Aggregate: amount}
	if !amount.IsPositive() {
		return result
	}

	threshold := s.cashThreshold()
	if amount.GreaterThanOrEqual(threshold) {
		result.Flagged = true
		result.Reason = fmt.Sprintf("Cash received of $%s meets the $%s reporting threshold",
			amount.StringFixed(2), threshold.StringFixed(2))
		return result
	}
	if candidate.CustomerID == "" {
		return result
	}

	window := s.cashWindow()
	var contributors []string
	for _, tx := range history {
		if tx.ID == candidate.ID || tx.CustomerID != candidate.CustomerID {
			continue
		}
		if !inWindow(tx.Date, candidate.Date, window) {
			continue
		}
		cash := CashAmount(tx)
		if !cash.IsPositive() {
			continue
		}
		result.Aggregate = result.Aggregate.Add(cash)
		contributors = append(contributors, tx.ID)
	}

	if result.Aggregate.GreaterThanOrEqual(threshold) {
		result.Flagged = true
		result.Reason = fmt.Sprintf("Related cash transactions total $%s, meeting the $%s reporting threshold",
			result.Aggregate.StringFixed(2), threshold.StringFixed(2))
		result.Contributors = contributors
	}
	return result
}
