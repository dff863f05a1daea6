/*
types.go - Core value types for the bullion desk

PURPOSE:
  Defines the products, deals and transactions every engine in this package
  works with. All quantities are fine troy ounces and all money is USD, both
  carried as decimal.Decimal so pricing and cost basis never drift.

KEY CONCEPTS:
  ProductKey:  (metal, form, coinType). coinType only matters for coins.
  Line:        One priced product within a deal.
  Transaction: A recorded deal. Either Lines, the legacy flattened single
               line, or a trade (TradeIn + TradeOut legs).

LEGACY SHAPE:
  Older stored transactions carry one product directly on the transaction
  (metal, form, qty, price...). Lines() hides that difference; nothing else
  in this package reads the flattened fields.

SEE ALSO:
  - settings.go: Margin tables and shop configuration
  - normalize.go: Raw quantity to fine ounces
  - deal.go: Builds Transactions from requests
*/
package bullion

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT DIMENSIONS
// =============================================================================

// Metal is the precious metal of a product.
type Metal string

const (
	MetalGold   Metal = "gold"
	MetalSilver Metal = "silver"
)

// Metals lists the supported metals in display order.
var Metals = []Metal{MetalGold, MetalSilver}

func (m Metal) Valid() bool {
	return m == MetalGold || m == MetalSilver
}

func (m Metal) Label() string {
	switch m {
	case MetalGold:
		return "Gold"
	case MetalSilver:
		return "Silver"
	}
	return string(m)
}

// Form is the physical form of a product.
type Form string

const (
	FormCoins  Form = "coins"
	FormBars   Form = "bars"
	FormRounds Form = "rounds"
	FormScrap  Form = "scrap"
	FormJunk   Form = "junk"
)

// Forms lists the supported forms in display order.
var Forms = []Form{FormCoins, FormBars, FormRounds, FormScrap, FormJunk}

func (f Form) Valid() bool {
	switch f {
	case FormCoins, FormBars, FormRounds, FormScrap, FormJunk:
		return true
	}
	return false
}

func (f Form) Label() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// CoinType identifies a specific coin. Only meaningful when Form is coins.
type CoinType string

const (
	CoinEagles        CoinType = "eagles"
	CoinMaples        CoinType = "maples"
	CoinKrugerrands   CoinType = "krugerrands"
	CoinBritannias    CoinType = "britannias"
	CoinPhilharmonics CoinType = "philharmonics"

	// Pre-1933 US gold
	CoinPre33Double  CoinType = "pre33_20"
	CoinPre33Eagle   CoinType = "pre33_10"
	CoinPre33Half    CoinType = "pre33_5"
	CoinPre33Quarter CoinType = "pre33_250"
)

// Pre33Bucket is the coin adjustment key shared by every pre-1933 coin.
const Pre33Bucket = "pre33"

var coinLabels = map[CoinType]string{
	CoinEagles:        "Eagles",
	CoinMaples:        "Maples",
	CoinKrugerrands:   "Krugerrands",
	CoinBritannias:    "Britannias",
	CoinPhilharmonics: "Philharmonics",
	CoinPre33Double:   "$20 Double Eagle",
	CoinPre33Eagle:    "$10 Eagle",
	CoinPre33Half:     "$5 Half Eagle",
	CoinPre33Quarter:  "$2.50 Quarter Eagle",
}

func (c CoinType) Valid() bool {
	_, ok := coinLabels[c]
	return ok
}

func (c CoinType) IsPre33() bool {
	return strings.HasPrefix(string(c), Pre33Bucket+"_")
}

// GoldOnly reports whether the coin is only ever struck in gold.
func (c CoinType) GoldOnly() bool {
	return c == CoinKrugerrands || c.IsPre33()
}

// AdjustmentKey is the key used to look up the per-coin price adjustment.
func (c CoinType) AdjustmentKey() string {
	if c.IsPre33() {
		return Pre33Bucket
	}
	return string(c)
}

func (c CoinType) Label() string {
	if l, ok := coinLabels[c]; ok {
		return l
	}
	return string(c)
}

// DealType is the kind of deal a transaction records.
type DealType string

const (
	DealBuy       DealType = "buy"       // shop buys from a customer
	DealSell      DealType = "sell"      // shop sells to a customer
	DealWholesale DealType = "wholesale" // shop sells to a wholesaler
	DealTrade     DealType = "trade"     // customer trades metal for metal
)

func (d DealType) Valid() bool {
	switch d {
	case DealBuy, DealSell, DealWholesale, DealTrade:
		return true
	}
	return false
}

// Payment is how a deal was settled. Only cash matters to Form 8300.
type Payment string

const (
	PaymentCash  Payment = "cash"
	PaymentWire  Payment = "wire"
	PaymentCheck Payment = "check"
	PaymentCard  Payment = "card"
	PaymentOther Payment = "other"
)

// WeightUnit is the unit a raw quantity was entered in.
type WeightUnit string

const (
	UnitTroyOunce WeightUnit = "toz"
	UnitGram      WeightUnit = "g"
)

// PremiumMode selects how a margin value is applied.
type PremiumMode string

const (
	ModePercent PremiumMode = "percent"
	ModeDollar  PremiumMode = "dollar"
)

// =============================================================================
// PRODUCT KEY
// =============================================================================

// ProductKey identifies a product for inventory, cost basis and compliance.
type ProductKey struct {
	Metal    Metal    `json:"metal"`
	Form     Form     `json:"form"`
	CoinType CoinType `json:"coinType,omitempty"`
}

// NewProductKey drops the coin type unless the form is coins.
func NewProductKey(metal Metal, form Form, coin CoinType) ProductKey {
	if form != FormCoins {
		coin = ""
	}
	return ProductKey{Metal: metal, Form: form, CoinType: coin}
}

func (k ProductKey) String() string {
	if k.CoinType == "" {
		return fmt.Sprintf("%s/%s", k.Metal, k.Form)
	}
	return fmt.Sprintf("%s/%s/%s", k.Metal, k.Form, k.CoinType)
}

// Bucket is the metal+form name used for reorder points, e.g. "goldCoins".
func (k ProductKey) Bucket() string {
	return bucketName(k.Metal, k.Form)
}

// Label is the display name of the metal+form bucket, e.g. "Gold Coins".
func (k ProductKey) Label() string {
	return k.Metal.Label() + " " + k.Form.Label()
}

func bucketName(metal Metal, form Form) string {
	return string(metal) + form.Label()
}

// =============================================================================
// SPOT PRICES
// =============================================================================

// SpotPrices are per-troy-ounce spot prices supplied by the caller.
type SpotPrices struct {
	Gold   decimal.Decimal `json:"gold"`
	Silver decimal.Decimal `json:"silver"`
}

func (s SpotPrices) For(m Metal) decimal.Decimal {
	switch m {
	case MetalGold:
		return s.Gold
	case MetalSilver:
		return s.Silver
	}
	return decimal.Zero
}

// =============================================================================
// LINES AND TRANSACTIONS
// =============================================================================

// Line is one priced product within a deal. Qty is fine troy ounces and
// Price is per fine ounce.
type Line struct {
	Metal       Metal           `json:"metal"`
	Form        Form            `json:"form"`
	CoinType    CoinType        `json:"coinType,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	RawQty      decimal.Decimal `json:"rawQty"`
	WeightUnit  WeightUnit      `json:"weightUnit,omitempty"`
	ScrapPurity string          `json:"scrapPurity,omitempty"`
	Spot        decimal.Decimal `json:"spot"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
	Profit      decimal.Decimal `json:"profit"`
}

func (l Line) Key() ProductKey {
	return NewProductKey(l.Metal, l.Form, l.CoinType)
}

// TradeLeg is one side of a trade.
type TradeLeg struct {
	Metal       Metal           `json:"metal"`
	Form        Form            `json:"form"`
	CoinType    CoinType        `json:"coinType,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	RawQty      decimal.Decimal `json:"rawQty"`
	WeightUnit  WeightUnit      `json:"weightUnit,omitempty"`
	ScrapPurity string          `json:"scrapPurity,omitempty"`
	Spot        decimal.Decimal `json:"spot"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}

func (l TradeLeg) Line() Line {
	return Line{
		Metal:       l.Metal,
		Form:        l.Form,
		CoinType:    l.CoinType,
		Qty:         l.Qty,
		RawQty:      l.RawQty,
		WeightUnit:  l.WeightUnit,
		ScrapPurity: l.ScrapPurity,
		Spot:        l.Spot,
		Price:       l.Price,
		Total:       l.Total,
		Profit:      marginProfit(l.Price, l.Spot, l.Qty),
	}
}

func legFromLine(l Line) *TradeLeg {
	return &TradeLeg{
		Metal:       l.Metal,
		Form:        l.Form,
		CoinType:    l.CoinType,
		Qty:         l.Qty,
		RawQty:      l.RawQty,
		WeightUnit:  l.WeightUnit,
		ScrapPurity: l.ScrapPurity,
		Spot:        l.Spot,
		Price:       l.Price,
		Total:       l.Total,
	}
}

// Transaction is a recorded deal.
//
// The compliance flags are derived data: they are written by
// ApplyComplianceRules and RecomputeCompliance only. Form1099BFiled and
// Form8300Reviewed are operator acknowledgements of a raised flag.
type Transaction struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Type       DealType  `json:"type"`
	Payment    Payment   `json:"payment,omitempty"`
	CustomerID string    `json:"customerId,omitempty"`
	Notes      string    `json:"notes,omitempty"`

	Lines []Line `json:"lines,omitempty"`

	// Legacy single-line fields. Populated for single-line deals.
	Metal    Metal           `json:"metal,omitempty"`
	Form     Form            `json:"form,omitempty"`
	CoinType CoinType        `json:"coinType,omitempty"`
	Qty      decimal.Decimal `json:"qty"`
	Spot     decimal.Decimal `json:"spot"`
	Price    decimal.Decimal `json:"price"`

	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
	Profit    decimal.Decimal `json:"profit"`

	TradeIn    *TradeLeg       `json:"tradeIn,omitempty"`
	TradeOut   *TradeLeg       `json:"tradeOut,omitempty"`
	Settlement decimal.Decimal `json:"settlement"`

	Form1099BFlag    bool   `json:"form1099BFlag"`
	Form1099BReason  string `json:"form1099BReason,omitempty"`
	Form1099BFiled   bool   `json:"form1099BFiled"`
	Form8300Flag     bool   `json:"form8300Flag"`
	Form8300Reviewed bool   `json:"form8300Reviewed"`

	CreatedAt time.Time `json:"createdAt"`
}

// Lines returns the product lines of a standard deal. A transaction stored
// in the legacy shape yields its single flattened line. Trades yield nothing;
// use Movements for those.
func Lines(tx Transaction) []Line {
	if len(tx.Lines) > 0 {
		return tx.Lines
	}
	if tx.Type == DealTrade || tx.Metal == "" || !tx.Qty.IsPositive() {
		return nil
	}
	total := tx.Subtotal
	if total.IsZero() {
		total = tx.Total.Sub(tx.TaxAmount)
	}
	return []Line{{
		Metal:    tx.Metal,
		Form:     tx.Form,
		CoinType: tx.CoinType,
		Qty:      tx.Qty,
		Spot:     tx.Spot,
		Price:    tx.Price,
		Total:    total,
		Profit:   tx.Profit,
	}}
}

// Direction is the way metal moves relative to the shop.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "in"
	}
	return "out"
}

// Movement is a line together with the direction its metal moved.
type Movement struct {
	Line
	Direction Direction
}

// Movements lists every metal movement a transaction causes. Buys and
// trade-in legs are inbound. Sells, wholesale and trade-out legs are outbound.
func Movements(tx Transaction) []Movement {
	switch tx.Type {
	case DealTrade:
		var out []Movement
		if tx.TradeIn != nil && tx.TradeIn.Qty.IsPositive() {
			out = append(out, Movement{Line: tx.TradeIn.Line(), Direction: Inbound})
		}
		if tx.TradeOut != nil && tx.TradeOut.Qty.IsPositive() {
			out = append(out, Movement{Line: tx.TradeOut.Line(), Direction: Outbound})
		}
		return out
	case DealBuy:
		return withDirection(Lines(tx), Inbound)
	case DealSell, DealWholesale:
		return withDirection(Lines(tx), Outbound)
	}
	return nil
}

func withDirection(lines []Line, d Direction) []Movement {
	out := make([]Movement, 0, len(lines))
	for _, l := range lines {
		out = append(out, Movement{Line: l, Direction: d})
	}
	return out
}
