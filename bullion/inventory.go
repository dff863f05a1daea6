package bullion

import (
	"github.com/shopspring/decimal"
)

// Inventory is net fine ounces on hand: inbound minus outbound movements.
// Quantities can go negative when history oversells a product.
type Inventory struct {
	ByProduct   map[ProductKey]decimal.Decimal
	ByMetalForm map[Metal]map[Form]decimal.Decimal
	ByMetal     map[Metal]decimal.Decimal
}

// GetInventory derives inventory from a transaction history.
func GetInventory(txs []Transaction) Inventory {
	inv := Inventory{
		ByProduct:   map[ProductKey]decimal.Decimal{},
		ByMetalForm: map[Metal]map[Form]decimal.Decimal{},
		ByMetal:     map[Metal]decimal.Decimal{},
	}
	for _, tx := range txs {
		for _, mv := range Movements(tx) {
			qty := mv.Qty
			if mv.Direction == Outbound {
				qty = qty.Neg()
			}
			key := mv.Key()
			inv.ByProduct[key] = inv.ByProduct[key].Add(qty)

			byForm, ok := inv.ByMetalForm[key.Metal]
			if !ok {
				byForm = map[Form]decimal.Decimal{}
				inv.ByMetalForm[key.Metal] = byForm
			}
			byForm[key.Form] = byForm[key.Form].Add(qty)
			inv.ByMetal[key.Metal] = inv.ByMetal[key.Metal].Add(qty)
		}
	}
	return inv
}

// Qty returns the net quantity of a metal and form.
func (inv Inventory) Qty(metal Metal, form Form) decimal.Decimal {
	return inv.ByMetalForm[metal][form]
}

// ReorderBucket is one metal+form combination a reorder point can be set for.
type ReorderBucket struct {
	Metal Metal
	Form  Form
}

func (b ReorderBucket) Name() string  { return bucketName(b.Metal, b.Form) }
func (b ReorderBucket) Label() string { return b.Metal.Label() + " " + b.Form.Label() }

// ReorderBuckets lists every bucket in display order. Gold has no junk.
var ReorderBuckets = []ReorderBucket{
	{MetalGold, FormCoins}, {MetalGold, FormBars}, {MetalGold, FormRounds}, {MetalGold, FormScrap},
	{MetalSilver, FormCoins}, {MetalSilver, FormBars}, {MetalSilver, FormRounds},
	{MetalSilver, FormJunk}, {MetalSilver, FormScrap},
}

// ReorderAlert reports a bucket that fell below its reorder point.
type ReorderAlert struct {
	Bucket string          `json:"bucket"`
	Label  string          `json:"label"`
	Qty    decimal.Decimal `json:"qty"`
	Point  decimal.Decimal `json:"point"`
}

// ReorderAlerts lists buckets whose quantity is below a positive reorder
// point.
func ReorderAlerts(inv Inventory, s Settings) []ReorderAlert {
	var alerts []ReorderAlert
	for _, b := range ReorderBuckets {
		point := s.ReorderPoints[b.Name()]
		if !point.IsPositive() {
			continue
		}
		qty := inv.Qty(b.Metal, b.Form)
		if qty.LessThan(point) {
			alerts = append(alerts, ReorderAlert{Bucket: b.Name(), Label: b.Label(), Qty: qty, Point: point})
		}
	}
	return alerts
}
