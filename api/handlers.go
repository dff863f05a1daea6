/*
handlers.go - HTTP API handlers for the bullion desk

PURPOSE:
  Exposes the pricing, deal and compliance engines via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the ledger
  and the bullion package.

ENDPOINTS:
  Settings:
    GET    /api/settings                          Current settings document
    PUT    /api/settings                          Replace settings (sanitized)

  Pricing:
    GET    /api/spot                              Current spot prices
    POST   /api/quote                             Price one line

  Deals:
    POST   /api/deals                             Assemble and record a deal
    GET    /api/transactions?compliance=<filter>  History, optionally filtered
    GET    /api/transactions/{id}                 One transaction
    PUT    /api/transactions/{id}                 Re-enter a deal
    DELETE /api/transactions/{id}                 Remove a deal

  Compliance:
    POST   /api/transactions/{id}/1099b-filed     Mark a 1099-B filed
    POST   /api/transactions/{id}/8300-reviewed   Mark an 8300 reviewed
    POST   /api/compliance/1099b/check            Evaluate a deal without recording it

  Books:
    GET    /api/inventory                         On hand, with reorder alerts
    GET    /api/cost-basis                        FIFO lots, realized and unrealized P&L
    GET    /api/dashboard?date=YYYY-MM-DD         Day totals and open compliance work
    GET    /api/customers/{id}/stats              Customer totals

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Ledger: The only writer of transactions
  - SettingsStore + SettingsFactory: Settings document persistence
  - Spot: Spot price source (usually cached)

  Every request loads settings fresh, so a PUT /api/settings applies to the
  next deal without a restart.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Transaction not found
  - 409: Duplicate id, acknowledging a flag that is not raised
  - 503: Spot price unavailable
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Deploy behind the shop's authenticating proxy.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/bullion-desk/bullion"
	"github.com/warp/bullion-desk/factory"
	"github.com/warp/bullion-desk/ledger"
	"github.com/warp/bullion-desk/logger"
	"github.com/warp/bullion-desk/spot"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger          *ledger.Ledger
	SettingsStore   ledger.SettingsStore
	SettingsFactory *factory.SettingsFactory
	Spot            spot.Source

	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// NewHandler creates a new handler.
func NewHandler(l *ledger.Ledger, settings ledger.SettingsStore, source spot.Source) *Handler {
	return &Handler{
		Ledger:          l,
		SettingsStore:   settings,
		SettingsFactory: factory.NewSettingsFactory(),
		Spot:            source,
		validate:        validator.New(),
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the sanitized settings document.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	doc, _, err := h.SettingsFactory.Load(r.Context(), h.SettingsStore)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PutSettings replaces the settings document and returns what was stored.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var doc factory.SettingsDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	stored, err := h.SettingsFactory.Save(r.Context(), h.SettingsStore, doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	logger.FromContext(r.Context()).Info("settings updated")
	writeJSON(w, http.StatusOK, stored)
}

// =============================================================================
// PRICING HANDLERS
// =============================================================================

// GetSpot returns current spot prices.
func (h *Handler) GetSpot(w http.ResponseWriter, r *http.Request) {
	prices, err := h.Spot.Prices(r.Context())
	if err != nil {
		writeDomainError(w, r, "Spot prices unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// Quote prices one line on a side. Buy quotes also preview 1099-B.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	assembler, ok := h.assembler(w, r)
	if !ok {
		return
	}
	side := bullion.Side(req.Side)
	line, err := assembler.BuildLine(side, req.Line)
	if err != nil {
		writeDomainError(w, r, "Failed to price line", err)
		return
	}
	quote, err := bullion.ResolvePrice(side, line.Key(), line.Spot, assembler.Settings)
	if err != nil {
		writeDomainError(w, r, "Failed to price line", err)
		return
	}

	resp := QuoteResponse{
		Quote:         quote,
		Line:          line,
		LargeQuantity: bullion.LargeQuantityAlert(line.Metal, line.Qty, assembler.Settings),
	}
	if side == bullion.SideBuy {
		if date.IsZero() {
			date = h.now()
		}
		candidate := bullion.Transaction{
			ID:         "quote",
			Type:       bullion.DealBuy,
			CustomerID: req.CustomerID,
			Date:       date,
			Lines:      []bullion.Line{line},
		}
		history, err := h.Ledger.Transactions(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
			return
		}
		result, err := bullion.Check1099B(candidate, history, assembler.Settings)
		if err != nil {
			writeDomainError(w, r, "Failed to check 1099-B", err)
			return
		}
		resp.Form1099B = &result
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// DEAL HANDLERS
// =============================================================================

// CreateDeal assembles a deal at current spot and records it.
func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var dto DealRequestDTO
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	req, err := dealRequest(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	assembler, ok := h.assembler(w, r)
	if !ok {
		return
	}
	tx, err := assembler.Assemble(req)
	if err != nil {
		writeDomainError(w, r, "Failed to assemble deal", err)
		return
	}

	outcome, err := h.Ledger.Record(r.Context(), tx, assembler.Settings)
	if err != nil {
		writeDomainError(w, r, "Failed to record deal", err)
		return
	}

	writeJSON(w, http.StatusCreated, DealResponse{
		Transaction:   outcome.Transaction,
		Form1099B:     outcome.Form1099B,
		Form8300:      outcome.Form8300,
		Patches:       outcome.Patches,
		LargeQuantity: largeQuantityLines(outcome.Transaction, assembler.Settings),
	})
}

// ListTransactions returns the history in date order.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := bullion.ParseComplianceFilter(r.URL.Query().Get("compliance"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid compliance filter", err)
		return
	}

	txs, err := h.Ledger.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}
	txs = bullion.FilterCompliance(txs, filter)
	if txs == nil {
		txs = []bullion.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// GetTransaction returns one transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "Failed to load transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// UpdateTransaction re-enters a deal under its existing id. Lines are
// repriced at the spot prices the original deal was struck at; a metal the
// original did not touch is priced at current spot.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var dto DealRequestDTO
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	req, err := dealRequest(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	original, err := h.Ledger.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "Failed to load transaction", err)
		return
	}
	if req.Date.IsZero() {
		req.Date = original.Date
	}

	_, settings, err := h.SettingsFactory.Load(r.Context(), h.SettingsStore)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	prices := dealSpot(original)
	if !prices.Gold.IsPositive() || !prices.Silver.IsPositive() {
		current, err := h.Spot.Prices(r.Context())
		if err != nil {
			writeDomainError(w, r, "Spot prices unavailable", err)
			return
		}
		if !prices.Gold.IsPositive() {
			prices.Gold = current.Gold
		}
		if !prices.Silver.IsPositive() {
			prices.Silver = current.Silver
		}
	}

	assembler := &bullion.Assembler{
		Settings: settings,
		Spot:     prices,
		Now:      h.now,
		NewID:    func() string { return id },
	}
	tx, err := assembler.Assemble(req)
	if err != nil {
		writeDomainError(w, r, "Failed to assemble deal", err)
		return
	}

	stored, err := h.Ledger.Edit(r.Context(), tx, settings)
	if err != nil {
		writeDomainError(w, r, "Failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// DeleteTransaction removes a deal and withdraws the flags it caused.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	_, settings, err := h.SettingsFactory.Load(r.Context(), h.SettingsStore)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	if err := h.Ledger.Delete(r.Context(), chi.URLParam(r, "id"), settings); err != nil {
		writeDomainError(w, r, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// MarkFiled1099B records that the 1099-B for a deal was filed.
func (h *Handler) MarkFiled1099B(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	tx, err := h.Ledger.SetFiled1099B(r.Context(), chi.URLParam(r, "id"), boolOr(req.Filed, true))
	if err != nil {
		writeDomainError(w, r, "Failed to update 1099-B status", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// MarkReviewed8300 records that an 8300 flag was reviewed.
func (h *Handler) MarkReviewed8300(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	tx, err := h.Ledger.SetReviewed8300(r.Context(), chi.URLParam(r, "id"), boolOr(req.Reviewed, true))
	if err != nil {
		writeDomainError(w, r, "Failed to update 8300 status", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// CheckCompliance evaluates a deal against the history without recording it.
func (h *Handler) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	var dto DealRequestDTO
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	req, err := dealRequest(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	assembler, ok := h.assembler(w, r)
	if !ok {
		return
	}
	tx, err := assembler.Assemble(req)
	if err != nil {
		writeDomainError(w, r, "Failed to assemble deal", err)
		return
	}

	history, err := h.Ledger.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}
	var earlier []bullion.Transaction
	for _, prior := range history {
		if !prior.Date.After(tx.Date) {
			earlier = append(earlier, prior)
		}
	}
	outcome, err := bullion.ApplyComplianceRules(earlier, tx, assembler.Settings)
	if err != nil {
		writeDomainError(w, r, "Failed to check compliance", err)
		return
	}

	writeJSON(w, http.StatusOK, DealResponse{
		Transaction:   outcome.Transaction,
		Form1099B:     outcome.Form1099B,
		Form8300:      outcome.Form8300,
		Patches:       outcome.Patches,
		LargeQuantity: largeQuantityLines(outcome.Transaction, assembler.Settings),
	})
}

// =============================================================================
// BOOKS HANDLERS
// =============================================================================

// GetInventory returns quantities on hand with reorder alerts.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	_, settings, err := h.SettingsFactory.Load(r.Context(), h.SettingsStore)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	inv, err := h.Ledger.Inventory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(inv, settings))
}

// GetCostBasis returns FIFO lots and P&L. Unrealized P&L is omitted when
// spot prices are unavailable.
func (h *Handler) GetCostBasis(w http.ResponseWriter, r *http.Request) {
	report, err := h.Ledger.CostBasis(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute cost basis", err)
		return
	}

	resp := toCostBasisResponse(report)
	if prices, err := h.Spot.Prices(r.Context()); err == nil {
		unrealized := bullion.UnrealizedPnL(report, prices)
		resp.Unrealized = &unrealized
		resp.Spot = &prices
	} else {
		logger.FromContext(r.Context()).Warn("cost basis without spot prices", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDashboard returns one day's totals and the open compliance work.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	day := h.now()
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, day.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		day = parsed
	}

	_, settings, err := h.SettingsFactory.Load(r.Context(), h.SettingsStore)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	txs, err := h.Ledger.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}

	inv := bullion.GetInventory(txs)
	alerts := bullion.ReorderAlerts(inv, settings)
	if alerts == nil {
		alerts = []bullion.ReorderAlert{}
	}
	writeJSON(w, http.StatusOK, DashboardResponse{
		Day:           bullion.SummarizeDay(txs, day),
		Compliance:    bullion.CountOpenCompliance(txs),
		Inventory:     inv.ByMetal,
		ReorderAlerts: alerts,
	})
}

// GetCustomerStats returns one customer's totals.
func (h *Handler) GetCustomerStats(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Ledger.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, bullion.ComputeCustomerStats(txs, chi.URLParam(r, "id")))
}

// =============================================================================
// HELPERS
// =============================================================================

// assembler snapshots current settings and spot prices for one request.
func (h *Handler) assembler(w http.ResponseWriter, r *http.Request) (*bullion.Assembler, bool) {
	_, settings, err := h.SettingsFactory.Load(r.Context(), h.SettingsStore)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return nil, false
	}
	prices, err := h.Spot.Prices(r.Context())
	if err != nil {
		writeDomainError(w, r, "Spot prices unavailable", err)
		return nil, false
	}
	return &bullion.Assembler{
		Settings: settings,
		Spot:     prices,
		Now:      h.now,
		NewID:    h.newID,
	}, true
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", validationDetails(err))
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	return true
}

func validationDetails(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return fmt.Errorf("%s failed on %q", fe.Namespace(), fe.Tag())
}

func dealRequest(dto DealRequestDTO) (bullion.DealRequest, error) {
	req := toDealRequest(dto)
	date, err := parseDate(dto.Date)
	if err != nil {
		return bullion.DealRequest{}, err
	}
	req.Date = date
	return req, nil
}

// parseDate accepts RFC3339 or YYYY-MM-DD. Empty is the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// dealSpot recovers the spot prices a deal was priced at. A metal the deal
// did not touch is left zero.
func dealSpot(tx bullion.Transaction) bullion.SpotPrices {
	var prices bullion.SpotPrices
	lines := bullion.Lines(tx)
	if tx.TradeIn != nil {
		lines = append(lines, tx.TradeIn.Line())
	}
	if tx.TradeOut != nil {
		lines = append(lines, tx.TradeOut.Line())
	}
	for _, l := range lines {
		if !l.Spot.IsPositive() {
			continue
		}
		switch l.Metal {
		case bullion.MetalGold:
			prices.Gold = l.Spot
		case bullion.MetalSilver:
			prices.Silver = l.Spot
		}
	}
	return prices
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and ledger errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	code := ""
	switch {
	case bullion.IsClientError(err):
		status = http.StatusBadRequest
		code = "invalid_input"
	case errors.Is(err, ledger.ErrTransactionNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		status = http.StatusConflict
		code = "duplicate"
	case errors.Is(err, ledger.ErrNotFlagged):
		status = http.StatusConflict
		code = "not_flagged"
	case errors.Is(err, spot.ErrUnavailable):
		status = http.StatusServiceUnavailable
		code = "spot_unavailable"
	case errors.Is(err, bullion.ErrUnavailablePrice):
		status = http.StatusServiceUnavailable
		code = "price_unavailable"
	}
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(message, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}
