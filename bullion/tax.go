package bullion

import (
	"strings"

	"github.com/shopspring/decimal"
)

// StateTax is the sales tax treatment of bullion in one state.
type StateTax struct {
	Rate decimal.Decimal
	// ExemptAbove exempts a sale whose subtotal exceeds it. Zero means no
	// exemption.
	ExemptAbove decimal.Decimal
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// StateTaxTable lists states with a sales tax on bullion. States not listed
// are treated as exempt.
var StateTaxTable = map[string]StateTax{
	"CA": {Rate: dec("7.25"), ExemptAbove: dec("2000")},
	"FL": {Rate: dec("6"), ExemptAbove: dec("500")},
	"NY": {Rate: dec("4"), ExemptAbove: dec("1000")},
	"NJ": {Rate: dec("6.625")},
	"WA": {Rate: dec("6.5")},
	"VT": {Rate: dec("6")},
	"HI": {Rate: dec("4")},
	"ME": {Rate: dec("5.5")},
	"NM": {Rate: dec("5.125")},
	"TX": {Rate: decimal.Zero},
}

// TaxFor returns the percent rate and the tax amount on a sale subtotal.
// An explicit rate override replaces the state rate, but the state's
// large-purchase exemption still applies.
func TaxFor(subtotal decimal.Decimal, s Settings) (rate, amount decimal.Decimal) {
	if !s.TaxEnabled || !subtotal.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	state, known := StateTaxTable[strings.ToUpper(s.TaxState)]
	rate = state.Rate
	if s.TaxRateOverride != nil {
		rate = *s.TaxRateOverride
	} else if !known {
		return decimal.Zero, decimal.Zero
	}
	if !rate.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	if state.ExemptAbove.IsPositive() && subtotal.GreaterThan(state.ExemptAbove) {
		return decimal.Zero, decimal.Zero
	}
	return rate, subtotal.Mul(rate).Div(hundred).Round(2)
}
