package bullion_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/bullion-desk/bullion"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var day1 = time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func testSpot() bullion.SpotPrices {
	return bullion.SpotPrices{Gold: dec("2500"), Silver: dec("32")}
}

// line builds a priced line directly, bypassing the assembler.
func line(metal bullion.Metal, form bullion.Form, coin bullion.CoinType, qty, price string) bullion.Line {
	q, p := dec(qty), dec(price)
	return bullion.Line{
		Metal:    metal,
		Form:     form,
		CoinType: coin,
		Qty:      q,
		Price:    p,
		Total:    q.Mul(p).Round(2),
	}
}

func deal(id string, typ bullion.DealType, customer string, at time.Time, lines ...bullion.Line) bullion.Transaction {
	tx := bullion.Transaction{
		ID:         id,
		Type:       typ,
		CustomerID: customer,
		Date:       at,
		Payment:    bullion.PaymentWire,
		Lines:      lines,
	}
	for _, l := range lines {
		tx.Subtotal = tx.Subtotal.Add(l.Total)
	}
	tx.Total = tx.Subtotal
	return tx
}

func goldBars(qty, price string) bullion.Line {
	return line(bullion.MetalGold, bullion.FormBars, "", qty, price)
}
