package bullion

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySummary totals one calendar day of deals.
type DailySummary struct {
	Date   string          `json:"date"`
	Count  int             `json:"count"`
	Bought decimal.Decimal `json:"bought"`
	Sold   decimal.Decimal `json:"sold"`
	Profit decimal.Decimal `json:"profit"`
}

// SummarizeDay totals the deals dated on day's calendar date, in day's
// location. Bought counts buys; sold counts sells and wholesale.
func SummarizeDay(txs []Transaction, day time.Time) DailySummary {
	y, m, dd := day.Date()
	sum := DailySummary{Date: day.Format("2006-01-02")}
	for _, tx := range txs {
		ty, tm, td := tx.Date.In(day.Location()).Date()
		if ty != y || tm != m || td != dd {
			continue
		}
		sum.Count++
		sum.Profit = sum.Profit.Add(tx.Profit)
		switch tx.Type {
		case DealBuy:
			sum.Bought = sum.Bought.Add(tx.Total)
		case DealSell, DealWholesale:
			sum.Sold = sum.Sold.Add(tx.Total)
		}
	}
	return sum
}

// CustomerStats totals one customer's history.
type CustomerStats struct {
	CustomerID     string          `json:"customerId"`
	Count          int             `json:"count"`
	Bought         decimal.Decimal `json:"bought"`
	Sold           decimal.Decimal `json:"sold"`
	PnL            decimal.Decimal `json:"pnl"`
	Form8300Count  int             `json:"form8300Count"`
	Form1099BCount int             `json:"form1099BCount"`
	LastDeal       *time.Time      `json:"lastDeal,omitempty"`
}

// ComputeCustomerStats totals the transactions of one customer. Bought is
// what the shop bought from them, sold what it sold to them.
func ComputeCustomerStats(txs []Transaction, customerID string) CustomerStats {
	stats := CustomerStats{CustomerID: customerID}
	for _, tx := range txs {
		if tx.CustomerID != customerID {
			continue
		}
		stats.Count++
		stats.PnL = stats.PnL.Add(tx.Profit)
		switch tx.Type {
		case DealBuy:
			stats.Bought = stats.Bought.Add(tx.Total)
		case DealSell, DealWholesale:
			stats.Sold = stats.Sold.Add(tx.Total)
		}
		if tx.Form8300Flag {
			stats.Form8300Count++
		}
		if tx.Form1099BFlag {
			stats.Form1099BCount++
		}
		if stats.LastDeal == nil || tx.Date.After(*stats.LastDeal) {
			date := tx.Date
			stats.LastDeal = &date
		}
	}
	return stats
}

// LargeQuantityAlert reports whether qty fine ounces of a metal meets the
// shop's large-quantity alert level. A zero level disables the alert.
func LargeQuantityAlert(metal Metal, qty decimal.Decimal, s Settings) bool {
	var level decimal.Decimal
	switch metal {
	case MetalGold:
		level = s.ThreshGold
	case MetalSilver:
		level = s.ThreshSilver
	}
	return level.IsPositive() && qty.GreaterThanOrEqual(level)
}
