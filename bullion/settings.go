package bullion

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MarginForm is a column of the margin tables. Rounds share the bars column.
type MarginForm string

const (
	MarginCoins MarginForm = "coins"
	MarginBars  MarginForm = "bars"
	MarginScrap MarginForm = "scrap"
	MarginJunk  MarginForm = "junk"
)

// MarginForms lists the margin table columns in display order.
var MarginForms = []MarginForm{MarginCoins, MarginBars, MarginScrap, MarginJunk}

// MarginFormFor maps a product form to its margin table column.
func MarginFormFor(f Form) MarginForm {
	switch f {
	case FormCoins:
		return MarginCoins
	case FormBars, FormRounds:
		return MarginBars
	case FormScrap:
		return MarginScrap
	case FormJunk:
		return MarginJunk
	}
	return ""
}

func (m MarginForm) title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// MarginTable holds a non-negative margin per column, in percent or dollars
// depending on the column's PremiumMode.
type MarginTable map[MarginForm]decimal.Decimal

func (t MarginTable) Get(f MarginForm) decimal.Decimal {
	if t == nil {
		return decimal.Zero
	}
	return t[f]
}

// Clone returns an independent copy.
func (t MarginTable) Clone() MarginTable {
	out := make(MarginTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

var (
	// DefaultJunkMultiplier is the fine silver content per $1 face of 90% coin.
	DefaultJunkMultiplier = decimal.RequireFromString("0.715")

	// DefaultCashReportThreshold is the Form 8300 cash threshold in USD.
	DefaultCashReportThreshold = decimal.NewFromInt(10000)
)

// DefaultAggregationWindow is the lookback for related transactions.
const DefaultAggregationWindow = 24 * time.Hour

// Settings is the shop configuration every engine reads. Engines never
// modify it.
type Settings struct {
	SellPremium       MarginTable
	BuyDiscount       MarginTable
	WholesaleDiscount MarginTable
	TradeInDiscount   MarginTable
	TradeOutPremium   MarginTable

	// PremiumModes is keyed by margin field name, e.g. "sellPremCoins".
	// Missing entries are percent.
	PremiumModes map[string]PremiumMode

	// CoinAdjustments is a percent added to the margin, keyed by coin type.
	// Every pre-1933 coin shares the "pre33" key.
	CoinAdjustments map[string]decimal.Decimal

	JunkMultiplier decimal.Decimal

	// ThreshGold and ThreshSilver raise a large-quantity alert on a line.
	// Zero disables the alert. They do not affect 1099-B.
	ThreshGold   decimal.Decimal
	ThreshSilver decimal.Decimal

	// ReorderPoints is keyed by bucket name, e.g. "goldCoins".
	ReorderPoints map[string]decimal.Decimal

	TaxEnabled      bool
	TaxState        string
	TaxRateOverride *decimal.Decimal

	CashReportThreshold   decimal.Decimal
	AggregationWindow     time.Duration
	CashAggregationWindow time.Duration
}

// DefaultSettings returns the shop defaults.
func DefaultSettings() Settings {
	return Settings{
		SellPremium:       pct(7, 5, 3, 7),
		BuyDiscount:       pct(3, 5, 8, 3),
		WholesaleDiscount: pct(1, 2, 3, 1),
		TradeInDiscount:   pct(3, 5, 8, 3),
		TradeOutPremium:   pct(7, 5, 3, 7),
		PremiumModes:      map[string]PremiumMode{},
		CoinAdjustments: map[string]decimal.Decimal{
			string(CoinEagles):        decimal.Zero,
			string(CoinMaples):        decimal.Zero,
			string(CoinKrugerrands):   decimal.Zero,
			string(CoinBritannias):    decimal.Zero,
			string(CoinPhilharmonics): decimal.Zero,
			Pre33Bucket:               decimal.Zero,
		},
		JunkMultiplier:        DefaultJunkMultiplier,
		ThreshGold:            decimal.NewFromInt(10),
		ThreshSilver:          decimal.NewFromInt(500),
		ReorderPoints:         map[string]decimal.Decimal{},
		CashReportThreshold:   DefaultCashReportThreshold,
		AggregationWindow:     DefaultAggregationWindow,
		CashAggregationWindow: DefaultAggregationWindow,
	}
}

func pct(coins, bars, scrap, junk int64) MarginTable {
	return MarginTable{
		MarginCoins: decimal.NewFromInt(coins),
		MarginBars:  decimal.NewFromInt(bars),
		MarginScrap: decimal.NewFromInt(scrap),
		MarginJunk:  decimal.NewFromInt(junk),
	}
}

func (s Settings) junkMultiplier() decimal.Decimal {
	if !s.JunkMultiplier.IsPositive() {
		return DefaultJunkMultiplier
	}
	return s.JunkMultiplier
}

func (s Settings) aggregationWindow() time.Duration {
	if s.AggregationWindow <= 0 {
		return DefaultAggregationWindow
	}
	return s.AggregationWindow
}

func (s Settings) cashWindow() time.Duration {
	if s.CashAggregationWindow <= 0 {
		return DefaultAggregationWindow
	}
	return s.CashAggregationWindow
}

func (s Settings) cashThreshold() decimal.Decimal {
	if !s.CashReportThreshold.IsPositive() {
		return DefaultCashReportThreshold
	}
	return s.CashReportThreshold
}

func (s Settings) modeFor(field string) PremiumMode {
	if m, ok := s.PremiumModes[field]; ok && m == ModeDollar {
		return ModeDollar
	}
	return ModePercent
}

func (s Settings) coinAdjustment(key ProductKey) decimal.Decimal {
	if key.Form != FormCoins || key.CoinType == "" || s.CoinAdjustments == nil {
		return decimal.Zero
	}
	return s.CoinAdjustments[key.CoinType.AdjustmentKey()]
}

// Table returns the margin table a side quotes from.
func (s Settings) Table(side Side) MarginTable {
	if r, ok := marginRules[side]; ok {
		return r.table(s)
	}
	return nil
}
