/*
Package factory provides JSON to Go settings conversion.

PURPOSE:
  Converts the shop settings document into bullion.Settings. The document
  is what the admin UI edits and what the store persists; bullion.Settings
  is what the engines read. Shops can change margins, thresholds and tax
  without code changes.

JSON SCHEMA (flat, as stored by earlier versions of the desk):
  {
    "shopName": "Main Street Bullion",
    "sellPremCoins": 7, "sellPremBars": 5, "sellPremScrap": 3, "sellPremJunk": 7,
    "buyDiscCoins": 3,  "buyDiscBars": 5,  "buyDiscScrap": 8,  "buyDiscJunk": 3,
    "whDiscCoins": 1,   "whDiscBars": 2,   "whDiscScrap": 3,   "whDiscJunk": 1,
    "tradeInDiscCoins": 3, ..., "tradeOutPremCoins": 7, ...,
    "premiumModes": {"sellPremCoins": "dollar"},
    "coinAdjustments": {"eagles": 0, "maples": 0, "pre33": 2},
    "junkMultiplier": 0.715,
    "threshGold": 10, "threshSilver": 500,
    "reorderPoints": {"goldCoins": 5, "silverBars": 100},
    "taxEnabled": true, "taxState": "CA", "taxRateOverride": null,
    "cashReportThreshold": 10000,
    "aggregationWindowHours": 24,
    "cashAggregationWindowHours": 24
  }

LEGACY KEYS:
  junkDivisor:      Older documents store a divisor. The multiplier is
                    1/divisor when no junkMultiplier is stored.
  junkMultOverride: When set, replaces the multiplier.

SANITIZING (on load and on save):
  - Negative margins, coin adjustments, thresholds and reorder points
    clamp to 0
  - A missing, zero or negative junk multiplier falls back to 0.715
  - Unknown premium modes fall back to percent
  - Trade-in and trade-out columns fall back to the buy and sell columns

USAGE:
  factory := NewSettingsFactory()

  doc, settings, err := factory.ParseSettings(jsonString)

  // Round trip through the store
  doc, settings, err := factory.Load(ctx, store)
  err = factory.Save(ctx, store, doc)

SEE ALSO:
  - bullion/settings.go: Settings type definition
  - ledger/store.go: SettingsStore interface
*/
package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bullion-desk/bullion"
	"github.com/warp/bullion-desk/ledger"
)

// SettingsKey is the store key of the shop settings document.
const SettingsKey = "shop"

// DefaultJunkDivisor replaces a zero or negative legacy junkDivisor.
var DefaultJunkDivisor = decimal.RequireFromString("1.3")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SettingsDocument is the JSON representation of the shop settings.
// Margin fields are flat top-level keys, collected in Margins.
type SettingsDocument struct {
	ShopName string `json:"shopName,omitempty"`

	// Margins is keyed by field name, e.g. "sellPremCoins"
	Margins map[string]decimal.Decimal `json:"-"`

	PremiumModes    map[string]string          `json:"premiumModes,omitempty"`
	CoinAdjustments map[string]decimal.Decimal `json:"coinAdjustments,omitempty"`

	JunkMultiplier   *decimal.Decimal `json:"junkMultiplier,omitempty"`
	JunkDivisor      *decimal.Decimal `json:"junkDivisor,omitempty"`      // legacy
	JunkMultOverride *decimal.Decimal `json:"junkMultOverride,omitempty"` // legacy

	ThreshGold    *decimal.Decimal           `json:"threshGold,omitempty"`
	ThreshSilver  *decimal.Decimal           `json:"threshSilver,omitempty"`
	ReorderPoints map[string]decimal.Decimal `json:"reorderPoints,omitempty"`

	TaxEnabled      bool             `json:"taxEnabled"`
	TaxState        string           `json:"taxState,omitempty"`
	TaxRateOverride *decimal.Decimal `json:"taxRateOverride,omitempty"`

	CashReportThreshold        *decimal.Decimal `json:"cashReportThreshold,omitempty"`
	AggregationWindowHours     *float64         `json:"aggregationWindowHours,omitempty"`
	CashAggregationWindowHours *float64         `json:"cashAggregationWindowHours,omitempty"`
}

// documentFields has the same fields without the custom JSON methods.
type documentFields SettingsDocument

// UnmarshalJSON decodes the named fields, then picks up the flat margin keys.
func (d *SettingsDocument) UnmarshalJSON(data []byte) error {
	var fields documentFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields.Margins = map[string]decimal.Decimal{}
	for _, name := range marginFieldNames() {
		v, ok := raw[name]
		if !ok || string(v) == "null" {
			continue
		}
		var m decimal.Decimal
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fields.Margins[name] = m
	}
	*d = SettingsDocument(fields)
	return nil
}

// MarshalJSON writes the margins back as flat top-level keys.
func (d SettingsDocument) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(documentFields(d))
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for name, v := range d.Margins {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[name] = enc
	}
	return json.Marshal(out)
}

func marginFieldNames() []string {
	var names []string
	for _, side := range bullion.Sides {
		for _, m := range bullion.MarginForms {
			names = append(names, bullion.FieldName(side, m))
		}
	}
	return names
}

// =============================================================================
// SETTINGS FACTORY
// =============================================================================

// SettingsFactory converts settings documents to bullion.Settings.
type SettingsFactory struct{}

// NewSettingsFactory creates a new settings factory.
func NewSettingsFactory() *SettingsFactory {
	return &SettingsFactory{}
}

// ParseSettings parses a JSON string into a sanitized document and the
// settings it describes.
func (f *SettingsFactory) ParseSettings(jsonStr string) (SettingsDocument, bullion.Settings, error) {
	var doc SettingsDocument
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return SettingsDocument{}, bullion.Settings{}, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	settings := f.ToSettings(doc)
	clean := f.FromSettings(settings, doc.ShopName)
	clean.JunkDivisor = legacyJunkDivisor(doc.JunkDivisor)
	return clean, settings, nil
}

// MarshalSettings encodes a document for storage.
func (f *SettingsFactory) MarshalSettings(doc SettingsDocument) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}
	return string(data), nil
}

// Sanitize returns the document with every sanitizing rule applied and the
// legacy junk keys folded into junkMultiplier. A stored junkDivisor is kept
// for older clients.
func (f *SettingsFactory) Sanitize(doc SettingsDocument) SettingsDocument {
	clean := f.FromSettings(f.ToSettings(doc), doc.ShopName)
	clean.JunkDivisor = legacyJunkDivisor(doc.JunkDivisor)
	return clean
}

// ToSettings converts a document to bullion.Settings, starting from the
// defaults for anything the document leaves out.
func (f *SettingsFactory) ToSettings(doc SettingsDocument) bullion.Settings {
	s := bullion.DefaultSettings()

	for _, side := range bullion.Sides {
		table := s.Table(side)
		for _, m := range bullion.MarginForms {
			if v, ok := doc.Margins[bullion.FieldName(side, m)]; ok {
				table[m] = clamp(v)
				continue
			}
			// Trade columns follow the buy and sell columns until set
			switch side {
			case bullion.SideTradeIn:
				table[m] = s.BuyDiscount[m]
			case bullion.SideTradeOut:
				table[m] = s.SellPremium[m]
			}
		}
	}

	for field, mode := range doc.PremiumModes {
		s.PremiumModes[field] = parsePremiumMode(mode)
	}
	for coin, adj := range doc.CoinAdjustments {
		s.CoinAdjustments[coin] = clamp(adj)
	}

	s.JunkMultiplier = junkMultiplier(doc)

	if doc.ThreshGold != nil {
		s.ThreshGold = clamp(*doc.ThreshGold)
	}
	if doc.ThreshSilver != nil {
		s.ThreshSilver = clamp(*doc.ThreshSilver)
	}
	for bucket, point := range doc.ReorderPoints {
		s.ReorderPoints[bucket] = clamp(point)
	}

	s.TaxEnabled = doc.TaxEnabled
	s.TaxState = strings.ToUpper(strings.TrimSpace(doc.TaxState))
	if doc.TaxRateOverride != nil && !doc.TaxRateOverride.IsNegative() {
		rate := *doc.TaxRateOverride
		s.TaxRateOverride = &rate
	}

	if doc.CashReportThreshold != nil && doc.CashReportThreshold.IsPositive() {
		s.CashReportThreshold = *doc.CashReportThreshold
	}
	if w := hours(doc.AggregationWindowHours); w > 0 {
		s.AggregationWindow = w
	}
	if w := hours(doc.CashAggregationWindowHours); w > 0 {
		s.CashAggregationWindow = w
	}
	return s
}

// FromSettings converts bullion.Settings back to a document. Legacy junk
// keys are never written.
func (f *SettingsFactory) FromSettings(s bullion.Settings, shopName string) SettingsDocument {
	doc := SettingsDocument{
		ShopName:        shopName,
		Margins:         map[string]decimal.Decimal{},
		PremiumModes:    map[string]string{},
		CoinAdjustments: map[string]decimal.Decimal{},
		ReorderPoints:   map[string]decimal.Decimal{},
		TaxEnabled:      s.TaxEnabled,
		TaxState:        s.TaxState,
	}

	for _, side := range bullion.Sides {
		table := s.Table(side)
		for _, m := range bullion.MarginForms {
			doc.Margins[bullion.FieldName(side, m)] = clamp(table.Get(m))
		}
	}
	for field, mode := range s.PremiumModes {
		doc.PremiumModes[field] = string(parsePremiumMode(string(mode)))
	}
	for coin, adj := range s.CoinAdjustments {
		doc.CoinAdjustments[coin] = clamp(adj)
	}
	for bucket, point := range s.ReorderPoints {
		doc.ReorderPoints[bucket] = clamp(point)
	}

	junk := s.JunkMultiplier
	if !junk.IsPositive() {
		junk = bullion.DefaultJunkMultiplier
	}
	doc.JunkMultiplier = &junk

	gold, silver := clamp(s.ThreshGold), clamp(s.ThreshSilver)
	doc.ThreshGold, doc.ThreshSilver = &gold, &silver

	if s.TaxRateOverride != nil {
		rate := *s.TaxRateOverride
		doc.TaxRateOverride = &rate
	}
	if s.CashReportThreshold.IsPositive() {
		threshold := s.CashReportThreshold
		doc.CashReportThreshold = &threshold
	}
	doc.AggregationWindowHours = windowHours(s.AggregationWindow)
	doc.CashAggregationWindowHours = windowHours(s.CashAggregationWindow)
	return doc
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Load reads the settings document from the store. A store that has never
// saved settings yields the defaults.
func (f *SettingsFactory) Load(ctx context.Context, store ledger.SettingsStore) (SettingsDocument, bullion.Settings, error) {
	raw, err := store.GetSetting(ctx, SettingsKey)
	if errors.Is(err, ledger.ErrSettingNotFound) {
		s := bullion.DefaultSettings()
		return f.FromSettings(s, ""), s, nil
	}
	if err != nil {
		return SettingsDocument{}, bullion.Settings{}, err
	}
	return f.ParseSettings(raw)
}

// Save sanitizes and stores the settings document. It returns what was
// stored.
func (f *SettingsFactory) Save(ctx context.Context, store ledger.SettingsStore, doc SettingsDocument) (SettingsDocument, error) {
	clean := f.Sanitize(doc)
	raw, err := f.MarshalSettings(clean)
	if err != nil {
		return SettingsDocument{}, err
	}
	if err := store.PutSetting(ctx, SettingsKey, raw); err != nil {
		return SettingsDocument{}, err
	}
	return clean, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func clamp(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func parsePremiumMode(s string) bullion.PremiumMode {
	if bullion.PremiumMode(strings.ToLower(strings.TrimSpace(s))) == bullion.ModeDollar {
		return bullion.ModeDollar
	}
	return bullion.ModePercent
}

// junkMultiplier resolves the multiplier: override, then stored
// multiplier, then 1/divisor, then the default.
func junkMultiplier(doc SettingsDocument) decimal.Decimal {
	if doc.JunkMultOverride != nil && doc.JunkMultOverride.IsPositive() {
		return *doc.JunkMultOverride
	}
	if doc.JunkMultiplier != nil && doc.JunkMultiplier.IsPositive() {
		return *doc.JunkMultiplier
	}
	if doc.JunkDivisor != nil && doc.JunkDivisor.IsPositive() {
		return decimal.NewFromInt(1).DivRound(*doc.JunkDivisor, 6)
	}
	return bullion.DefaultJunkMultiplier
}

// legacyJunkDivisor keeps a positive divisor and replaces a zero or
// negative one with DefaultJunkDivisor. An absent divisor stays absent.
func legacyJunkDivisor(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	out := *d
	if !out.IsPositive() {
		out = DefaultJunkDivisor
	}
	return &out
}

func hours(h *float64) time.Duration {
	if h == nil || *h <= 0 {
		return 0
	}
	return time.Duration(*h * float64(time.Hour))
}

func windowHours(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	h := d.Hours()
	return &h
}
