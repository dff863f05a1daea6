package bullion

import "github.com/shopspring/decimal"

// purityGrade is one selectable scrap fineness.
type purityGrade struct {
	Code     string
	Fraction decimal.Decimal
}

func karat(k int64) decimal.Decimal {
	return decimal.NewFromInt(k).Div(decimal.NewFromInt(24))
}

func millesimal(m int64) decimal.Decimal {
	return decimal.NewFromInt(m).Div(decimal.NewFromInt(1000))
}

// Purity tables are per metal. A code from one metal is never valid for the
// other.
var purityTables = map[Metal][]purityGrade{
	MetalGold: {
		{"10k", karat(10)},
		{"14k", karat(14)},
		{"18k", karat(18)},
		{"22k", karat(22)},
		{"24k", karat(24)},
	},
	MetalSilver: {
		{"800", millesimal(800)},
		{"900", millesimal(900)},
		{"925", millesimal(925)},
		{"999", millesimal(999)},
	},
}

var defaultPurity = map[Metal]string{
	MetalGold:   "14k",
	MetalSilver: "925",
}

// PurityFraction returns the fine-metal fraction of a scrap purity code.
func PurityFraction(metal Metal, code string) (decimal.Decimal, bool) {
	for _, g := range purityTables[metal] {
		if g.Code == code {
			return g.Fraction, true
		}
	}
	return decimal.Zero, false
}

// PurityOptions lists the purity codes selectable for a metal.
func PurityOptions(metal Metal) []string {
	grades := purityTables[metal]
	out := make([]string, len(grades))
	for i, g := range grades {
		out[i] = g.Code
	}
	return out
}

// DefaultPurity is the preselected purity for a metal: 14k gold, sterling silver.
func DefaultPurity(metal Metal) string {
	return defaultPurity[metal]
}

// ReconcilePurity keeps a purity selection when it is valid for the metal and
// otherwise resets it to the metal's default. Used when the metal of a line
// changes after a purity was picked.
func ReconcilePurity(metal Metal, code string) string {
	if _, ok := PurityFraction(metal, code); ok {
		return code
	}
	return DefaultPurity(metal)
}
