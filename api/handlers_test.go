/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Settings round trip
- Quotes and deal entry, including the 1099-B preview
- Transaction edit, delete and compliance acknowledgements
- Books endpoints (inventory, cost basis, dashboard)
- Error mapping and rate limiting
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bullion-desk/bullion"
	"github.com/warp/bullion-desk/ledger"
	"github.com/warp/bullion-desk/spot"
	"github.com/warp/bullion-desk/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type failingSource struct{}

func (failingSource) Prices(context.Context) (bullion.SpotPrices, error) {
	return bullion.SpotPrices{}, spot.ErrUnavailable
}

// movingSource lets a test move the market between requests.
type movingSource struct {
	prices bullion.SpotPrices
}

func (m *movingSource) Prices(context.Context) (bullion.SpotPrices, error) {
	return m.prices, nil
}

type testServer struct {
	router http.Handler
	ledger *ledger.Ledger
	ids    int
}

func newTestServer(t *testing.T, source spot.Source, opts RouterOptions) *testServer {
	t.Helper()
	store := memory.New()
	ts := &testServer{ledger: ledger.New(store)}

	h := NewHandler(ts.ledger, store, source)
	h.now = func() time.Time { return testNow }
	h.newID = func() string {
		ts.ids++
		return fmt.Sprintf("tx-%d", ts.ids)
	}
	ts.router = NewRouter(h, opts)
	return ts
}

func newStaticServer(t *testing.T) *testServer {
	return newTestServer(t, spot.NewStaticSource(dec("2500"), dec("32")), RouterOptions{})
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func goldBarsDeal(typ, payment, customer, qty string) map[string]any {
	return map[string]any{
		"type":       typ,
		"payment":    payment,
		"customerId": customer,
		"lines": []map[string]any{
			{"metal": "gold", "form": "bars", "qty": qty},
		},
	}
}

// =============================================================================
// SETTINGS AND PRICING
// =============================================================================

func TestSettings_PutThenGet(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodPut, "/api/settings", `{"shopName":"Main St","buyDiscBars":10,"taxState":" tx "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[map[string]any](t, rec)
	assert.Equal(t, "Main St", doc["shopName"])
	assert.Equal(t, "TX", doc["taxState"])
	assert.Contains(t, doc, "sellPremCoins")
}

func TestSettings_InvalidJSON(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodPut, "/api/settings", `{"shopName":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpot(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodGet, "/api/spot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prices := decode[bullion.SpotPrices](t, rec)
	assert.True(t, prices.Gold.Equal(dec("2500")))
}

func TestQuote_BuyPreviews1099B(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodPost, "/api/quote", map[string]any{
		"side": "buy",
		"line": map[string]any{"metal": "gold", "form": "bars", "qty": "40"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[QuoteResponse](t, rec)
	assert.True(t, resp.Quote.PricePerOz.Equal(dec("2375")), resp.Quote.PricePerOz.String())
	assert.True(t, resp.Line.Total.Equal(dec("95000")))
	assert.True(t, resp.LargeQuantity)
	require.NotNil(t, resp.Form1099B)
	assert.True(t, resp.Form1099B.Reportable)
	assert.Equal(t, bullion.ReasonSingle, resp.Form1099B.Reason)
}

func TestQuote_SellHasNo1099B(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodPost, "/api/quote", map[string]any{
		"side": "sell",
		"line": map[string]any{"metal": "silver", "form": "coins", "coinType": "eagles", "qty": "10"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[QuoteResponse](t, rec)
	assert.Nil(t, resp.Form1099B)
	assert.True(t, resp.Quote.PricePerOz.Equal(dec("34.24")), resp.Quote.PricePerOz.String())
}

func TestQuote_UsesUpdatedSettings(t *testing.T) {
	ts := newStaticServer(t)
	rec := ts.do(t, http.MethodPut, "/api/settings", `{"buyDiscBars":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/quote", map[string]any{
		"side": "buy",
		"line": map[string]any{"metal": "gold", "form": "bars", "qty": "1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[QuoteResponse](t, rec)
	assert.True(t, resp.Quote.PricePerOz.Equal(dec("2250")), resp.Quote.PricePerOz.String())
}

func TestQuote_Validation(t *testing.T) {
	ts := newStaticServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"unknown side", map[string]any{"side": "lend", "line": map[string]any{"metal": "gold", "form": "bars", "qty": "1"}}},
		{"unknown metal", map[string]any{"side": "buy", "line": map[string]any{"metal": "platinum", "form": "bars", "qty": "1"}}},
		{"zero quantity", map[string]any{"side": "buy", "line": map[string]any{"metal": "gold", "form": "bars", "qty": "0"}}},
		{"gold-only coin in silver", map[string]any{"side": "buy", "line": map[string]any{"metal": "silver", "form": "coins", "coinType": "krugerrands", "qty": "1"}}},
		{"malformed", `{"side":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/quote", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// DEALS
// =============================================================================

func TestCreateDeal_RecordsAndFlags(t *testing.T) {
	ts := newStaticServer(t)

	// GIVEN: A 40 oz gold bar buy (threshold 32.15 oz)
	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "40"))

	// THEN: It is recorded and flagged on its own
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[DealResponse](t, rec)
	assert.Equal(t, "tx-1", resp.Transaction.ID)
	assert.True(t, resp.Transaction.Form1099BFlag)
	assert.Equal(t, bullion.ReasonSingle, resp.Transaction.Form1099BReason)
	assert.True(t, resp.Transaction.Total.Equal(dec("95000")))
	assert.Len(t, resp.LargeQuantity, 1)

	stored, err := ts.ledger.Get(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.True(t, stored.Form1099BFlag)
}

func TestCreateDeal_CombinedBuyPatchesPrior(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "20"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.False(t, decode[DealResponse](t, rec).Transaction.Form1099BFlag)

	rec = ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "15"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[DealResponse](t, rec)
	assert.True(t, resp.Transaction.Form1099BFlag)
	require.Len(t, resp.Patches, 1)
	assert.Equal(t, "tx-1", resp.Patches[0].TransactionID)

	rec = ts.do(t, http.MethodGet, "/api/transactions?compliance=1099b-needs-filing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]bullion.Transaction](t, rec), 2)
}

func TestCreateDeal_CashSaleFlags8300(t *testing.T) {
	ts := newStaticServer(t)

	// 5 oz at 2625 = 13,125 cash
	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("sell", "cash", "cust-9", "5"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[DealResponse](t, rec)
	assert.True(t, resp.Form8300.Flagged)
	assert.True(t, resp.Transaction.Form8300Flag)
	assert.False(t, resp.Transaction.Form1099BFlag)
}

func TestCreateDeal_Trade(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodPost, "/api/deals", map[string]any{
		"type":     "trade",
		"tradeIn":  map[string]any{"metal": "silver", "form": "bars", "qty": "100"},
		"tradeOut": map[string]any{"metal": "gold", "form": "coins", "coinType": "eagles", "qty": "1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tx := decode[DealResponse](t, rec).Transaction
	require.NotNil(t, tx.TradeIn)
	require.NotNil(t, tx.TradeOut)
	// 2675 out - 3040 in
	assert.True(t, tx.Settlement.Equal(dec("-365")), tx.Settlement.String())
}

func TestCreateDeal_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source spot.Source
		body   any
		status int
	}{
		{"unknown type", nil, map[string]any{"type": "lend"}, http.StatusBadRequest},
		{"no lines", nil, map[string]any{"type": "buy"}, http.StatusBadRequest},
		{"bad line", nil, map[string]any{"type": "buy", "lines": []map[string]any{{"metal": "gold", "form": "nuggets", "qty": "1"}}}, http.StatusBadRequest},
		{"bad date", nil, map[string]any{"type": "buy", "date": "yesterday", "lines": []map[string]any{{"metal": "gold", "form": "bars", "qty": "1"}}}, http.StatusBadRequest},
		{"trade missing leg", nil, map[string]any{"type": "trade", "tradeIn": map[string]any{"metal": "gold", "form": "bars", "qty": "1"}}, http.StatusBadRequest},
		{"spot down", failingSource{}, goldBarsDeal("buy", "wire", "", "1"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := tt.source
			if source == nil {
				source = spot.NewStaticSource(dec("2500"), dec("32"))
			}
			ts := newTestServer(t, source, RouterOptions{})

			rec := ts.do(t, http.MethodPost, "/api/deals", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestCreateDeal_ZeroSpotIsUnavailable(t *testing.T) {
	// GIVEN: The feed answers but has no gold price
	market := &movingSource{prices: bullion.SpotPrices{Gold: decimal.Zero, Silver: dec("32")}}
	ts := newTestServer(t, market, RouterOptions{})

	// WHEN: A gold deal is priced
	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "1"))

	// THEN: The server reports the price as unavailable, not bad input
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Equal(t, "price_unavailable", decode[ErrorResponse](t, rec).Code)

	// AND: Nothing was recorded
	rec = ts.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]bullion.Transaction](t, rec))
}

func TestCheckCompliance_DoesNotRecord(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodPost, "/api/compliance/1099b/check", goldBarsDeal("buy", "wire", "cust-1", "40"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[DealResponse](t, rec).Form1099B.Reportable)

	txs, err := ts.ledger.Transactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestListTransactions_InvalidFilter(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodGet, "/api/transactions?compliance=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactions_EmptyIsArray(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetTransaction_NotFound(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodGet, "/api/transactions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Code)
}

func TestUpdateTransaction_RepricesAtOriginalSpot(t *testing.T) {
	market := &movingSource{prices: bullion.SpotPrices{Gold: dec("2500"), Silver: dec("32")}}
	ts := newTestServer(t, market, RouterOptions{})
	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "40"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// GIVEN: Spot has moved since the deal was struck
	market.prices = bullion.SpotPrices{Gold: dec("3000"), Silver: dec("40")}

	// WHEN: The deal is re-entered with a smaller quantity
	rec = ts.do(t, http.MethodPut, "/api/transactions/tx-1", goldBarsDeal("buy", "wire", "cust-1", "10"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Same id, original date and spot, flag withdrawn
	tx := decode[bullion.Transaction](t, rec)
	assert.Equal(t, "tx-1", tx.ID)
	assert.True(t, tx.Date.Equal(testNow))
	assert.True(t, tx.Total.Equal(dec("23750")), tx.Total.String())
	assert.False(t, tx.Form1099BFlag)
}

func TestUpdateTransaction_TypeAwayFromBuyClearsFlags(t *testing.T) {
	ts := newStaticServer(t)
	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "20"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "15"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/api/transactions/tx-1/1099b-filed", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: tx-2 is re-entered as a sale
	rec = ts.do(t, http.MethodPut, "/api/transactions/tx-2", goldBarsDeal("sell", "wire", "cust-1", "15"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[bullion.Transaction](t, rec).Form1099BFlag)

	// THEN: Nothing is left to file
	rec = ts.do(t, http.MethodGet, "/api/transactions?compliance=1099b-flagged", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]bullion.Transaction](t, rec))

	prior, err := ts.ledger.Get(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.False(t, prior.Form1099BFiled)
}

func TestUpdateTransaction_NotFound(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodPut, "/api/transactions/missing", goldBarsDeal("buy", "wire", "", "1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTransaction(t *testing.T) {
	ts := newStaticServer(t)
	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "", "1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/transactions/tx-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/transactions/tx-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcknowledgements(t *testing.T) {
	ts := newStaticServer(t)
	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "40"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-2", "1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("filed with empty body", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/transactions/tx-1/1099b-filed", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, decode[bullion.Transaction](t, rec).Form1099BFiled)
	})

	t.Run("unfiled explicitly", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/transactions/tx-1/1099b-filed", `{"filed":false}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.False(t, decode[bullion.Transaction](t, rec).Form1099BFiled)
	})

	t.Run("not flagged", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/transactions/tx-2/1099b-filed", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		rec = ts.do(t, http.MethodPost, "/api/transactions/tx-2/8300-reviewed", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/transactions/nope/8300-reviewed", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// =============================================================================
// BOOKS
// =============================================================================

func TestBooks_AfterBuyAndSell(t *testing.T) {
	ts := newStaticServer(t)
	rec := ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("buy", "wire", "cust-1", "2"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/deals", goldBarsDeal("sell", "card", "cust-2", "0.5"))
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("inventory", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/inventory", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		inv := decode[InventoryResponse](t, rec)
		assert.True(t, inv.ByMetal[bullion.MetalGold].Equal(dec("1.5")))
		require.Len(t, inv.Products, 1)
		assert.NotNil(t, inv.ReorderAlerts)
	})

	t.Run("cost basis", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/cost-basis", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		cb := decode[CostBasisResponse](t, rec)
		// 1.5 oz left at 2375
		assert.True(t, cb.TotalCostBasis.Equal(dec("3562.5")), cb.TotalCostBasis.String())
		// 0.5 x (2625 - 2375)
		assert.True(t, cb.TotalRealizedPnL.Equal(dec("125")), cb.TotalRealizedPnL.String())
		require.NotNil(t, cb.Unrealized)
		// 1.5 x (2500 - 2375)
		assert.True(t, cb.Unrealized.Total.Equal(dec("187.5")), cb.Unrealized.Total.String())
		assert.Empty(t, cb.Warnings)
	})

	t.Run("dashboard", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/dashboard?date=2025-03-10", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		dash := decode[DashboardResponse](t, rec)
		assert.Equal(t, 2, dash.Day.Count)
		assert.True(t, dash.Day.Bought.Equal(dec("4750")))
		assert.Equal(t, 0, dash.Compliance.Unfiled1099B)
	})

	t.Run("customer stats", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/customers/cust-1/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decode[bullion.CustomerStats](t, rec)
		assert.Equal(t, 1, stats.Count)
		assert.True(t, stats.Bought.Equal(dec("4750")))
	})
}

func TestCostBasis_WithoutSpot(t *testing.T) {
	ts := newTestServer(t, failingSource{}, RouterOptions{})

	rec := ts.do(t, http.MethodGet, "/api/cost-basis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cb := decode[CostBasisResponse](t, rec)
	assert.Nil(t, cb.Unrealized)
	assert.Nil(t, cb.Spot)
}

func TestDashboard_InvalidDate(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodGet, "/api/dashboard?date=03/10/2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, spot.NewStaticSource(dec("2500"), dec("32")), RouterOptions{
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
	})

	rec := ts.do(t, http.MethodGet, "/api/spot", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/spot", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRoot(t *testing.T) {
	ts := newStaticServer(t)

	rec := ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bullion Desk API")
}
