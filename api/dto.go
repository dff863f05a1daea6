package api

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/bullion-desk/bullion"
)

// =============================================================================
// REQUEST DTOs
// =============================================================================

// DealRequestDTO is the body of POST /api/deals and PUT /api/transactions/{id}.
type DealRequestDTO struct {
	Type       string              `json:"type" validate:"required,oneof=buy sell wholesale trade"`
	Payment    string              `json:"payment,omitempty" validate:"omitempty,oneof=cash wire check card other"`
	CustomerID string              `json:"customerId,omitempty" validate:"max=128"`
	Date       string              `json:"date,omitempty"` // YYYY-MM-DD or RFC3339, default now
	Notes      string              `json:"notes,omitempty" validate:"max=2000"`
	Lines      []bullion.LineInput `json:"lines,omitempty" validate:"dive"`
	TradeIn    *bullion.LineInput  `json:"tradeIn,omitempty"`
	TradeOut   *bullion.LineInput  `json:"tradeOut,omitempty"`
}

// QuoteRequest is the body of POST /api/quote.
type QuoteRequest struct {
	Side       string            `json:"side" validate:"required,oneof=sell buy wholesale tradeIn tradeOut"`
	CustomerID string            `json:"customerId,omitempty"`
	Date       string            `json:"date,omitempty"`
	Line       bullion.LineInput `json:"line"`
}

// AcknowledgeRequest is the body of the filed / reviewed endpoints. A
// missing value means true.
type AcknowledgeRequest struct {
	Filed    *bool `json:"filed,omitempty"`
	Reviewed *bool `json:"reviewed,omitempty"`
}

// =============================================================================
// RESPONSE DTOs
// =============================================================================

// DealResponse is returned after recording or checking a deal.
type DealResponse struct {
	Transaction   bullion.Transaction     `json:"transaction"`
	Form1099B     bullion.Form1099BResult `json:"form1099B"`
	Form8300      bullion.Form8300Result  `json:"form8300"`
	Patches       []bullion.Patch         `json:"patches,omitempty"`
	LargeQuantity []LargeQuantityDTO      `json:"largeQuantity,omitempty"`
}

// LargeQuantityDTO reports a line at or above the shop's alert quantity.
type LargeQuantityDTO struct {
	Product string          `json:"product"`
	Qty     decimal.Decimal `json:"qty"`
}

// QuoteResponse prices one line.
type QuoteResponse struct {
	Quote         bullion.Quote            `json:"quote"`
	Line          bullion.Line             `json:"line"`
	LargeQuantity bool                     `json:"largeQuantity"`
	Form1099B     *bullion.Form1099BResult `json:"form1099B,omitempty"`
}

// ProductQtyDTO is one product's quantity on hand.
type ProductQtyDTO struct {
	Product bullion.ProductKey `json:"product"`
	Label   string             `json:"label"`
	Qty     decimal.Decimal    `json:"qty"`
}

// InventoryResponse is returned by GET /api/inventory.
type InventoryResponse struct {
	ByMetal       map[bullion.Metal]decimal.Decimal                  `json:"byMetal"`
	ByMetalForm   map[bullion.Metal]map[bullion.Form]decimal.Decimal `json:"byMetalForm"`
	Products      []ProductQtyDTO                                    `json:"products"`
	ReorderAlerts []bullion.ReorderAlert                             `json:"reorderAlerts"`
}

// LotGroupDTO lists the open lots of one product, oldest first.
type LotGroupDTO struct {
	Product bullion.ProductKey `json:"product"`
	Label   string             `json:"label"`
	Lots    []bullion.Lot      `json:"lots"`
}

// WarningDTO is a data integrity problem found while replaying history.
type WarningDTO struct {
	TransactionID string          `json:"transactionId"`
	Date          string          `json:"date"`
	Product       string          `json:"product"`
	Shortfall     decimal.Decimal `json:"shortfall"`
	Message       string          `json:"message"`
}

// CostBasisResponse is returned by GET /api/cost-basis.
type CostBasisResponse struct {
	Summary          map[bullion.Metal]map[bullion.Form]bullion.Position `json:"summary"`
	Lots             []LotGroupDTO                                        `json:"lots"`
	Disposals        []bullion.Disposal                                   `json:"disposals"`
	TotalCostBasis   decimal.Decimal                                      `json:"totalCostBasis"`
	TotalRealizedPnL decimal.Decimal                                      `json:"totalRealizedPnl"`
	Unrealized       *bullion.Unrealized                                  `json:"unrealized,omitempty"`
	Spot             *bullion.SpotPrices                                  `json:"spot,omitempty"`
	Warnings         []WarningDTO                                         `json:"warnings"`
}

// DashboardResponse is returned by GET /api/dashboard.
type DashboardResponse struct {
	Day           bullion.DailySummary              `json:"day"`
	Compliance    bullion.OpenCompliance            `json:"compliance"`
	Inventory     map[bullion.Metal]decimal.Decimal `json:"inventory"`
	ReorderAlerts []bullion.ReorderAlert            `json:"reorderAlerts"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toDealRequest(dto DealRequestDTO) bullion.DealRequest {
	return bullion.DealRequest{
		Type:       bullion.DealType(dto.Type),
		Payment:    bullion.Payment(dto.Payment),
		CustomerID: dto.CustomerID,
		Notes:      dto.Notes,
		Lines:      dto.Lines,
		TradeIn:    dto.TradeIn,
		TradeOut:   dto.TradeOut,
	}
}

func toInventoryResponse(inv bullion.Inventory, s bullion.Settings) InventoryResponse {
	resp := InventoryResponse{
		ByMetal:       inv.ByMetal,
		ByMetalForm:   inv.ByMetalForm,
		Products:      []ProductQtyDTO{},
		ReorderAlerts: bullion.ReorderAlerts(inv, s),
	}
	for key, qty := range inv.ByProduct {
		resp.Products = append(resp.Products, ProductQtyDTO{Product: key, Label: key.Label(), Qty: qty})
	}
	sort.Slice(resp.Products, func(i, j int) bool {
		return resp.Products[i].Product.String() < resp.Products[j].Product.String()
	})
	if resp.ReorderAlerts == nil {
		resp.ReorderAlerts = []bullion.ReorderAlert{}
	}
	return resp
}

func toCostBasisResponse(report bullion.CostBasisReport) CostBasisResponse {
	resp := CostBasisResponse{
		Summary:          report.Summary,
		Lots:             []LotGroupDTO{},
		Disposals:        report.Disposals,
		TotalCostBasis:   report.TotalCostBasis,
		TotalRealizedPnL: report.TotalRealizedPnL,
		Warnings:         []WarningDTO{},
	}
	for key, lots := range report.Lots {
		resp.Lots = append(resp.Lots, LotGroupDTO{Product: key, Label: key.Label(), Lots: lots})
	}
	sort.Slice(resp.Lots, func(i, j int) bool {
		return resp.Lots[i].Product.String() < resp.Lots[j].Product.String()
	})
	if resp.Disposals == nil {
		resp.Disposals = []bullion.Disposal{}
	}
	for _, w := range report.Warnings {
		resp.Warnings = append(resp.Warnings, WarningDTO{
			TransactionID: w.TransactionID,
			Date:          w.Date,
			Product:       w.Product.String(),
			Shortfall:     w.Shortfall,
			Message:       w.Error(),
		})
	}
	return resp
}

func largeQuantityLines(tx bullion.Transaction, s bullion.Settings) []LargeQuantityDTO {
	var out []LargeQuantityDTO
	for _, l := range bullion.Lines(tx) {
		if bullion.LargeQuantityAlert(l.Metal, l.Qty, s) {
			out = append(out, LargeQuantityDTO{Product: l.Key().String(), Qty: l.Qty})
		}
	}
	return out
}
