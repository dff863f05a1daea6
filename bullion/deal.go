/*
deal.go - Deal assembler

PURPOSE:
  Builds a Transaction from a deal request: normalizes and prices every
  line, sums the deal, applies sales tax and assembles trades.

DEAL SHAPES:
  buy / sell / wholesale: one or more Lines priced on the matching side.
                          A single-line deal also fills the legacy
                          flattened fields.
  trade:                  TradeIn priced as tradeIn, TradeOut priced as
                          tradeOut. Settlement = out.Total - in.Total;
                          positive means the customer pays the shop.

  Compliance is not evaluated here. The ledger runs the compliance engine
  on the assembled transaction before it is stored.

SEE ALSO:
  - pricing.go: Per-line prices
  - tax.go: Sales tax
  - compliance.go: Runs after assembly
*/
package bullion

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is one product line as entered at the counter.
type LineInput struct {
	Metal       Metal           `json:"metal" validate:"required,oneof=gold silver"`
	Form        Form            `json:"form" validate:"required,oneof=coins bars rounds scrap junk"`
	CoinType    CoinType        `json:"coinType,omitempty"`
	RawQty      decimal.Decimal `json:"qty"`
	Unit        WeightUnit      `json:"weightUnit,omitempty" validate:"omitempty,oneof=toz g"`
	ScrapPurity string          `json:"scrapPurity,omitempty"`
}

func (in LineInput) quantity() QuantityInput {
	return QuantityInput{
		Metal:       in.Metal,
		Form:        in.Form,
		CoinType:    in.CoinType,
		RawQty:      in.RawQty,
		Unit:        in.Unit,
		ScrapPurity: in.ScrapPurity,
	}
}

// DealRequest is everything needed to assemble a transaction.
type DealRequest struct {
	Type       DealType
	Payment    Payment
	CustomerID string
	Date       time.Time
	Notes      string
	Lines      []LineInput
	TradeIn    *LineInput
	TradeOut   *LineInput
}

// Assembler builds transactions against one settings snapshot and one set
// of spot prices.
type Assembler struct {
	Settings Settings
	Spot     SpotPrices
	Now      func() time.Time
	NewID    func() string
}

// NewAssembler creates an assembler with wall-clock time and UUID ids.
func NewAssembler(settings Settings, spot SpotPrices) *Assembler {
	return &Assembler{
		Settings: settings,
		Spot:     spot,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// BuildLine normalizes and prices one line on a side.
func (a *Assembler) BuildLine(side Side, in LineInput) (Line, error) {
	qty, err := Normalize(in.quantity(), a.Settings.JunkMultiplier)
	if err != nil {
		return Line{}, err
	}
	key := NewProductKey(in.Metal, in.Form, in.CoinType)
	line, err := PriceLine(side, key, qty, a.Spot.For(in.Metal), a.Settings)
	if err != nil {
		return Line{}, err
	}

	line.RawQty = in.RawQty
	line.WeightUnit = in.Unit
	if line.WeightUnit == "" && in.Form != FormJunk {
		line.WeightUnit = UnitTroyOunce
	}
	if in.Form == FormScrap {
		line.ScrapPurity = ReconcilePurity(in.Metal, in.ScrapPurity)
	}
	return line, nil
}

// Assemble builds a priced transaction from a request.
func (a *Assembler) Assemble(req DealRequest) (Transaction, error) {
	now := a.now()
	tx := Transaction{
		ID:         a.newID(),
		Date:       req.Date,
		Type:       req.Type,
		Payment:    req.Payment,
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
		CreatedAt:  now,
	}
	if tx.Date.IsZero() {
		tx.Date = now
	}

	switch req.Type {
	case DealTrade:
		return a.assembleTrade(tx, req)
	case DealBuy, DealSell, DealWholesale:
		return a.assembleStandard(tx, req)
	default:
		return Transaction{}, fmt.Errorf("%w: unknown deal type %q", ErrInvalidDeal, req.Type)
	}
}

func (a *Assembler) assembleStandard(tx Transaction, req DealRequest) (Transaction, error) {
	if len(req.Lines) == 0 {
		return Transaction{}, ErrEmptyDeal
	}

	side := Side(req.Type)
	subtotal, profit := decimal.Zero, decimal.Zero
	for i, in := range req.Lines {
		line, err := a.BuildLine(side, in)
		if err != nil {
			return Transaction{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		tx.Lines = append(tx.Lines, line)
		subtotal = subtotal.Add(line.Total)
		profit = profit.Add(line.Profit)
	}

	tx.Subtotal = subtotal
	tx.Profit = profit
	if req.Type == DealSell {
		tx.TaxRate, tx.TaxAmount = TaxFor(subtotal, a.Settings)
	}
	tx.Total = subtotal.Add(tx.TaxAmount)

	if len(tx.Lines) == 1 {
		flatten(&tx, tx.Lines[0])
	}
	return tx, nil
}

func (a *Assembler) assembleTrade(tx Transaction, req DealRequest) (Transaction, error) {
	if req.TradeIn == nil || req.TradeOut == nil {
		return Transaction{}, fmt.Errorf("%w: trade needs both a trade-in and a trade-out", ErrEmptyDeal)
	}

	in, err := a.BuildLine(SideTradeIn, *req.TradeIn)
	if err != nil {
		return Transaction{}, fmt.Errorf("trade-in: %w", err)
	}
	out, err := a.BuildLine(SideTradeOut, *req.TradeOut)
	if err != nil {
		return Transaction{}, fmt.Errorf("trade-out: %w", err)
	}

	tx.TradeIn = legFromLine(in)
	tx.TradeOut = legFromLine(out)
	tx.Settlement = out.Total.Sub(in.Total)
	tx.Subtotal = tx.Settlement
	tx.Total = tx.Settlement
	tx.Profit = in.Profit.Add(out.Profit)
	return tx, nil
}

func flatten(tx *Transaction, l Line) {
	tx.Metal = l.Metal
	tx.Form = l.Form
	tx.CoinType = l.CoinType
	tx.Qty = l.Qty
	tx.Spot = l.Spot
	tx.Price = l.Price
}

func (a *Assembler) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *Assembler) newID() string {
	if a.NewID == nil {
		return uuid.NewString()
	}
	return a.NewID()
}
