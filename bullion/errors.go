/*
errors.go - Error types for the bullion engines

PURPOSE:
  All error types in one place. Callers match the sentinels with errors.Is
  and pull details out of the structured errors with errors.As.

ERROR CATEGORIES:
  1. Input errors   - bad quantity, unknown product, empty deal (client errors)
  2. Pricing errors - missing or unusable spot price
  3. Data integrity - inventory inconsistencies found while replaying history

  Data integrity problems never abort a computation. They are collected on
  the report (see CostBasisReport.Warnings) so the rest of the books still
  render.

SEE ALSO:
  - normalize.go: Raises InvalidQuantityError / InvalidProductError
  - pricing.go: Raises UnavailablePriceError
  - costbasis.go: Collects DataIntegrityWarning
*/
package bullion

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidQuantity is returned when a quantity is missing, zero or negative.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidProduct is returned for unknown metals, forms, coins or purities,
	// and for combinations that do not exist (gold junk, silver krugerrands).
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidDeal is returned for an unknown deal type.
	ErrInvalidDeal = errors.New("invalid deal")

	// ErrEmptyDeal is returned when a deal has no lines, or a trade lacks a leg.
	ErrEmptyDeal = errors.New("deal has no lines")

	// ErrUnavailablePrice is returned when the spot price needed for a line
	// is not positive, or the resulting price would not be.
	ErrUnavailablePrice = errors.New("price unavailable")

	// ErrOversold marks outbound quantity that exceeds the inventory on hand.
	ErrOversold = errors.New("outbound quantity exceeds inventory")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidQuantityError describes a rejected quantity.
type InvalidQuantityError struct {
	Field string
	Value decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	field := e.Field
	if field == "" {
		field = "quantity"
	}
	return fmt.Sprintf("%s must be greater than zero, got %s", field, e.Value.String())
}

func (e *InvalidQuantityError) Unwrap() error {
	return ErrInvalidQuantity
}

// InvalidProductError describes a rejected product selection.
type InvalidProductError struct {
	Metal    Metal
	Form     Form
	CoinType CoinType
	Purity   string
	Reason   string
}

func (e *InvalidProductError) Error() string {
	key := NewProductKey(e.Metal, e.Form, e.CoinType)
	if e.Purity != "" {
		return fmt.Sprintf("invalid product %s (purity %q): %s", key, e.Purity, e.Reason)
	}
	return fmt.Sprintf("invalid product %s: %s", key, e.Reason)
}

func (e *InvalidProductError) Unwrap() error {
	return ErrInvalidProduct
}

// UnavailablePriceError is returned when a line cannot be priced.
type UnavailablePriceError struct {
	Metal  Metal
	Reason string
}

func (e *UnavailablePriceError) Error() string {
	return fmt.Sprintf("%s price unavailable: %s", e.Metal, e.Reason)
}

func (e *UnavailablePriceError) Unwrap() error {
	return ErrUnavailablePrice
}

// DataIntegrityWarning records an outbound movement that found less
// inventory than it needed. The shortfall was treated as zero cost.
type DataIntegrityWarning struct {
	TransactionID string
	Date          string
	Product       ProductKey
	Requested     decimal.Decimal
	Shortfall     decimal.Decimal
}

func (w DataIntegrityWarning) Error() string {
	return fmt.Sprintf("transaction %s sells %s oz of %s but %s oz were not in inventory",
		w.TransactionID, w.Requested.String(), w.Product, w.Shortfall.String())
}

func (w DataIntegrityWarning) Unwrap() error {
	return ErrOversold
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether err was caused by bad input and should be
// reported back to the caller rather than logged as a failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrInvalidDeal) ||
		errors.Is(err, ErrEmptyDeal)
}
