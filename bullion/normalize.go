/*
normalize.go - Quantity and unit normalizer

PURPOSE:
  Converts what the counter enters (grams, troy ounces, face value, karat
  weight) into fine troy ounces, the one unit every other engine uses.

RULES:
  bars/coins/rounds: toz as entered, grams / 31.1035
  scrap:             weight in toz x purity fraction (karat or millesimal)
  junk:              face value in USD x junk multiplier (silver only)

SEE ALSO:
  - purity.go: Purity tables per metal
  - deal.go: Normalizes every line before pricing
*/
package bullion

import (
	"github.com/shopspring/decimal"
)

// GramsPerTroyOunce is the exact conversion factor used for gram entries.
var GramsPerTroyOunce = decimal.RequireFromString("31.1035")

// QuantityInput is a raw quantity as entered for one line.
type QuantityInput struct {
	Metal       Metal
	Form        Form
	CoinType    CoinType
	RawQty      decimal.Decimal
	Unit        WeightUnit
	ScrapPurity string
}

// ValidateProduct checks that a metal/form/coin combination exists.
func ValidateProduct(metal Metal, form Form, coin CoinType) error {
	switch {
	case !metal.Valid():
		return &InvalidProductError{Metal: metal, Form: form, CoinType: coin, Reason: "unknown metal"}
	case !form.Valid():
		return &InvalidProductError{Metal: metal, Form: form, CoinType: coin, Reason: "unknown form"}
	case form == FormJunk && metal != MetalSilver:
		return &InvalidProductError{Metal: metal, Form: form, Reason: "junk is silver only"}
	}
	if form == FormCoins && coin != "" {
		if !coin.Valid() {
			return &InvalidProductError{Metal: metal, Form: form, CoinType: coin, Reason: "unknown coin type"}
		}
		if coin.GoldOnly() && metal != MetalGold {
			return &InvalidProductError{Metal: metal, Form: form, CoinType: coin, Reason: "coin is gold only"}
		}
	}
	return nil
}

// Normalize converts a raw quantity into fine troy ounces.
func Normalize(in QuantityInput, junkMultiplier decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateProduct(in.Metal, in.Form, in.CoinType); err != nil {
		return decimal.Zero, err
	}
	if !in.RawQty.IsPositive() {
		return decimal.Zero, &InvalidQuantityError{Field: "quantity", Value: in.RawQty}
	}

	switch in.Form {
	case FormJunk:
		// Face value is in dollars; the weight unit does not apply.
		return in.RawQty.Mul(positiveOr(junkMultiplier, DefaultJunkMultiplier)), nil
	case FormScrap:
		fraction, err := scrapFraction(in)
		if err != nil {
			return decimal.Zero, err
		}
		return toTroyOunces(in.RawQty, in.Unit).Mul(fraction), nil
	default:
		return toTroyOunces(in.RawQty, in.Unit), nil
	}
}

// Denormalize converts fine troy ounces back into the raw quantity the
// input's form and unit would have been entered in.
func Denormalize(in QuantityInput, fineOz, junkMultiplier decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateProduct(in.Metal, in.Form, in.CoinType); err != nil {
		return decimal.Zero, err
	}

	switch in.Form {
	case FormJunk:
		return fineOz.Div(positiveOr(junkMultiplier, DefaultJunkMultiplier)), nil
	case FormScrap:
		fraction, err := scrapFraction(in)
		if err != nil {
			return decimal.Zero, err
		}
		return fromTroyOunces(fineOz.Div(fraction), in.Unit), nil
	default:
		return fromTroyOunces(fineOz, in.Unit), nil
	}
}

func scrapFraction(in QuantityInput) (decimal.Decimal, error) {
	code := in.ScrapPurity
	if code == "" {
		code = DefaultPurity(in.Metal)
	}
	fraction, ok := PurityFraction(in.Metal, code)
	if !ok {
		return decimal.Zero, &InvalidProductError{
			Metal:  in.Metal,
			Form:   in.Form,
			Purity: code,
			Reason: "unknown purity for metal",
		}
	}
	return fraction, nil
}

func toTroyOunces(qty decimal.Decimal, unit WeightUnit) decimal.Decimal {
	if unit == UnitGram {
		return qty.Div(GramsPerTroyOunce)
	}
	return qty
}

func fromTroyOunces(oz decimal.Decimal, unit WeightUnit) decimal.Decimal {
	if unit == UnitGram {
		return oz.Mul(GramsPerTroyOunce)
	}
	return oz
}

func positiveOr(v, fallback decimal.Decimal) decimal.Decimal {
	if v.IsPositive() {
		return v
	}
	return fallback
}
