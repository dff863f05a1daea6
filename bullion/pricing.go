/*
pricing.go - Pricing and margin resolver

PURPOSE:
  Turns a spot price into the price the shop quotes for one product on one
  side of a deal. Every side is a row in one rule table; there are no
  per-side code paths.

RULE TABLE:
  side       table              sign   field prefix
  sell       SellPremium         +     sellPrem
  buy        BuyDiscount         -     buyDisc
  wholesale  WholesaleDiscount   -     whDisc
  tradeIn    TradeInDiscount     -     tradeInDisc
  tradeOut   TradeOutPremium     +     tradeOutPrem

  Premiums raise the price, discounts lower it, so every margin is in the
  shop's favor. The field prefix plus the column title ("sellPremCoins")
  is the key into Settings.PremiumModes.

FORMULAS:
  base    = spot, or spot x junkMultiplier for junk (price per $1 face)
  percent = base x (1 + sign x (margin + coinAdj) / 100)
  dollar  = base + sign x margin + sign x base x coinAdj / 100

  coinAdj applies to coins with a coin type only. Pre-1933 coins share the
  "pre33" adjustment.

SEE ALSO:
  - settings.go: Margin tables
  - deal.go: Prices every line of a deal
*/
package bullion

import (
	"github.com/shopspring/decimal"
)

// Side is the direction a price is quoted for.
type Side string

const (
	SideSell      Side = "sell"
	SideBuy       Side = "buy"
	SideWholesale Side = "wholesale"
	SideTradeIn   Side = "tradeIn"
	SideTradeOut  Side = "tradeOut"
)

type marginRule struct {
	table  func(Settings) MarginTable
	sign   int64
	prefix string
}

var marginRules = map[Side]marginRule{
	SideSell:      {func(s Settings) MarginTable { return s.SellPremium }, 1, "sellPrem"},
	SideBuy:       {func(s Settings) MarginTable { return s.BuyDiscount }, -1, "buyDisc"},
	SideWholesale: {func(s Settings) MarginTable { return s.WholesaleDiscount }, -1, "whDisc"},
	SideTradeIn:   {func(s Settings) MarginTable { return s.TradeInDiscount }, -1, "tradeInDisc"},
	SideTradeOut:  {func(s Settings) MarginTable { return s.TradeOutPremium }, 1, "tradeOutPrem"},
}

// Sides lists every side a margin table exists for.
var Sides = []Side{SideSell, SideBuy, SideWholesale, SideTradeIn, SideTradeOut}

// MarginField returns the settings field name for a side and form,
// e.g. ("buy", rounds) -> "buyDiscBars".
func MarginField(side Side, form Form) string {
	return FieldName(side, MarginFormFor(form))
}

// FieldName returns the settings field name for a side and margin column.
func FieldName(side Side, m MarginForm) string {
	return marginRules[side].prefix + m.title()
}

// Quote is a resolved price for one product.
type Quote struct {
	Side       Side            `json:"side"`
	Product    ProductKey      `json:"product"`
	Spot       decimal.Decimal `json:"spot"`
	Mode       PremiumMode     `json:"mode"`
	PricePerOz decimal.Decimal `json:"pricePerOz"`
	// PricePerUnit equals PricePerOz except for junk, where it is per $1 face.
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	// MarginFraction is the signed margin relative to the base price,
	// e.g. -0.05 for a 5% buy discount.
	MarginFraction decimal.Decimal `json:"marginFraction"`
}

var hundred = decimal.NewFromInt(100)

// MarginFor returns the signed percent margin fraction for a side and
// product under percent mode.
func MarginFor(side Side, key ProductKey, s Settings) decimal.Decimal {
	rule, ok := marginRules[side]
	if !ok {
		return decimal.Zero
	}
	m := rule.table(s).Get(MarginFormFor(key.Form)).Add(s.coinAdjustment(key))
	return m.Mul(decimal.NewFromInt(rule.sign)).Div(hundred)
}

// ResolvePrice computes the shop's price for a product on a side of a deal.
func ResolvePrice(side Side, key ProductKey, spot decimal.Decimal, s Settings) (Quote, error) {
	key = NewProductKey(key.Metal, key.Form, key.CoinType)
	rule, ok := marginRules[side]
	if !ok {
		return Quote{}, &InvalidProductError{Metal: key.Metal, Form: key.Form, Reason: "unknown pricing side " + string(side)}
	}
	if err := ValidateProduct(key.Metal, key.Form, key.CoinType); err != nil {
		return Quote{}, err
	}
	if !spot.IsPositive() {
		return Quote{}, &UnavailablePriceError{Metal: key.Metal, Reason: "spot price is not available"}
	}

	base := spot
	mult := decimal.NewFromInt(1)
	if key.Form == FormJunk {
		mult = s.junkMultiplier()
		base = spot.Mul(mult)
	}

	sign := decimal.NewFromInt(rule.sign)
	margin := rule.table(s).Get(MarginFormFor(key.Form))
	adj := s.coinAdjustment(key)
	mode := s.modeFor(MarginField(side, key.Form))

	var perUnit, fraction decimal.Decimal
	switch mode {
	case ModeDollar:
		perUnit = base.Add(sign.Mul(margin)).Add(sign.Mul(base).Mul(adj).Div(hundred))
		fraction = perUnit.Sub(base).Div(base).Round(4)
	default:
		fraction = sign.Mul(margin.Add(adj)).Div(hundred)
		perUnit = base.Mul(decimal.NewFromInt(1).Add(fraction))
	}

	if !perUnit.IsPositive() {
		return Quote{}, &UnavailablePriceError{Metal: key.Metal, Reason: "margin leaves no positive price"}
	}

	return Quote{
		Side:           side,
		Product:        key,
		Spot:           spot,
		Mode:           mode,
		PricePerOz:     perUnit.Div(mult).Round(2),
		PricePerUnit:   perUnit.Round(2),
		MarginFraction: fraction,
	}, nil
}

// PriceLine prices qty fine ounces of a product and fills in the line totals.
func PriceLine(side Side, key ProductKey, qty, spot decimal.Decimal, s Settings) (Line, error) {
	if !qty.IsPositive() {
		return Line{}, &InvalidQuantityError{Field: "quantity", Value: qty}
	}
	q, err := ResolvePrice(side, key, spot, s)
	if err != nil {
		return Line{}, err
	}
	return Line{
		Metal:    q.Product.Metal,
		Form:     q.Product.Form,
		CoinType: q.Product.CoinType,
		Qty:      qty,
		Spot:     spot,
		Price:    q.PricePerOz,
		Total:    q.PricePerOz.Mul(qty).Round(2),
		Profit:   marginProfit(q.PricePerOz, spot, qty),
	}, nil
}

// marginProfit is the shop's margin on a line: |price - spot| x qty.
func marginProfit(price, spot, qty decimal.Decimal) decimal.Decimal {
	return price.Sub(spot).Abs().Mul(qty).Round(2)
}
