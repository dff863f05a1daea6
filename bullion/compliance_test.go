package bullion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bullion-desk/bullion"
)

// =============================================================================
// PRODUCT RULES
// =============================================================================

func TestIsReportableProduct(t *testing.T) {
	key := bullion.NewProductKey
	tests := []struct {
		key       bullion.ProductKey
		want      bool
		threshold string
	}{
		{key(bullion.MetalGold, bullion.FormBars, ""), true, "32.15"},
		{key(bullion.MetalGold, bullion.FormRounds, ""), true, "32.15"},
		{key(bullion.MetalGold, bullion.FormScrap, ""), true, "32.15"},
		{key(bullion.MetalSilver, bullion.FormBars, ""), true, "1000"},
		{key(bullion.MetalSilver, bullion.FormRounds, ""), true, "1000"},
		{key(bullion.MetalSilver, bullion.FormScrap, ""), true, "1000"},
		{key(bullion.MetalSilver, bullion.FormJunk, ""), true, "1000"},
		{key(bullion.MetalGold, bullion.FormCoins, bullion.CoinMaples), true, "25"},
		{key(bullion.MetalGold, bullion.FormCoins, bullion.CoinKrugerrands), true, "25"},
		{key(bullion.MetalGold, bullion.FormCoins, ""), true, "32.15"},
		{key(bullion.MetalGold, bullion.FormCoins, bullion.CoinEagles), false, "0"},
		{key(bullion.MetalGold, bullion.FormCoins, bullion.CoinBritannias), false, "0"},
		{key(bullion.MetalGold, bullion.FormCoins, bullion.CoinPhilharmonics), false, "0"},
		{key(bullion.MetalGold, bullion.FormCoins, bullion.CoinPre33Double), false, "0"},
		{key(bullion.MetalSilver, bullion.FormCoins, bullion.CoinMaples), false, "0"},
		{key(bullion.MetalSilver, bullion.FormCoins, bullion.CoinEagles), false, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, bullion.IsReportableProduct(tt.key))
			assertDec(t, tt.threshold, bullion.Threshold(tt.key))
		})
	}
}

// =============================================================================
// FORM 1099-B
// =============================================================================

func TestCheck1099B_SingleTransaction(t *testing.T) {
	s := bullion.DefaultSettings()

	// GIVEN: A 35 oz gold bar buy
	// THEN: Reportable on its own
	big := deal("tx-1", bullion.DealBuy, "cust-1", day1, goldBars("35", "2400"))
	r, err := bullion.Check1099B(big, nil, s)
	require.NoError(t, err)
	assert.True(t, r.Reportable)
	assert.Equal(t, bullion.ReasonSingle, r.Reason)
	assert.Empty(t, r.Contributors)

	// GIVEN: A 10 oz gold bar buy
	// THEN: Not reportable
	small := deal("tx-2", bullion.DealBuy, "cust-1", day1, goldBars("10", "2400"))
	r, err = bullion.Check1099B(small, nil, s)
	require.NoError(t, err)
	assert.False(t, r.Reportable)
}

func TestCheck1099B_ExactThresholdIsReportable(t *testing.T) {
	tx := deal("tx-1", bullion.DealBuy, "", day1, goldBars("32.15", "2400"))
	r, err := bullion.Check1099B(tx, nil, bullion.DefaultSettings())
	require.NoError(t, err)
	assert.True(t, r.Reportable)
}

func TestCheck1099B_OnlyBuysCount(t *testing.T) {
	s := bullion.DefaultSettings()
	for _, typ := range []bullion.DealType{bullion.DealSell, bullion.DealWholesale} {
		tx := deal("tx-1", typ, "cust-1", day1, goldBars("100", "2600"))
		r, err := bullion.Check1099B(tx, nil, s)
		require.NoError(t, err)
		assert.False(t, r.Reportable, typ)
	}
}

func TestCheck1099B_AggregatesWithin24Hours(t *testing.T) {
	// GIVEN: Same customer sells the shop 20 oz then 15 oz of gold bars 3h apart
	// WHEN: The second buy is evaluated
	// THEN: Combined 35 oz >= 32.15, the first is flagged retroactively
	s := bullion.DefaultSettings()
	first := deal("tx-1", bullion.DealBuy, "cust-1", day1, goldBars("20", "2400"))
	second := deal("tx-2", bullion.DealBuy, "cust-1", day1.Add(3*time.Hour), goldBars("15", "2400"))

	r, err := bullion.Check1099B(second, []bullion.Transaction{first}, s)
	require.NoError(t, err)
	assert.True(t, r.Reportable)
	assert.Equal(t, bullion.ReasonCombined, r.Reason)
	assert.Equal(t, []string{"tx-1"}, r.Contributors)
	require.Len(t, r.Lines, 1)
	assertDec(t, "20", r.Lines[0].PriorQty)

	outcome, err := bullion.ApplyComplianceRules([]bullion.Transaction{first}, second, s)
	require.NoError(t, err)
	assert.True(t, outcome.Transaction.Form1099BFlag)
	require.Len(t, outcome.Patches, 1)

	history := []bullion.Transaction{first}
	patched := bullion.ApplyPatches(history, outcome.Patches)
	assert.True(t, patched[0].Form1099BFlag)
	assert.Equal(t, bullion.ReasonCombined, patched[0].Form1099BReason)
	assert.False(t, history[0].Form1099BFlag, "input history must not be mutated")
}

func TestCheck1099B_NotAggregated(t *testing.T) {
	s := bullion.DefaultSettings()
	first := deal("tx-1", bullion.DealBuy, "cust-1", day1, goldBars("20", "2400"))

	tests := []struct {
		name   string
		second bullion.Transaction
	}{
		{"different customer", deal("tx-2", bullion.DealBuy, "cust-2", day1.Add(time.Hour), goldBars("15", "2400"))},
		{"different form", deal("tx-2", bullion.DealBuy, "cust-1", day1.Add(time.Hour),
			line(bullion.MetalGold, bullion.FormRounds, "", "15", "2400"))},
		{"different metal", deal("tx-2", bullion.DealBuy, "cust-1", day1.Add(time.Hour),
			line(bullion.MetalSilver, bullion.FormBars, "", "15", "30"))},
		{"outside 24 hours", deal("tx-2", bullion.DealBuy, "cust-1", day1.Add(25*time.Hour), goldBars("15", "2400"))},
		{"anonymous", deal("tx-2", bullion.DealBuy, "", day1.Add(time.Hour), goldBars("15", "2400"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := bullion.Check1099B(tt.second, []bullion.Transaction{first}, s)
			require.NoError(t, err)
			assert.False(t, r.Reportable)
		})
	}
}

func TestCheck1099B_PriorSellsIgnored(t *testing.T) {
	s := bullion.DefaultSettings()
	sold := deal("tx-1", bullion.DealSell, "cust-1", day1, goldBars("20", "2600"))
	bought := deal("tx-2", bullion.DealBuy, "cust-1", day1.Add(time.Hour), goldBars("15", "2400"))

	r, err := bullion.Check1099B(bought, []bullion.Transaction{sold}, s)
	require.NoError(t, err)
	assert.False(t, r.Reportable)
}

func TestCheck1099B_MultiLineEvaluatedPerProduct(t *testing.T) {
	// GIVEN: One deal with 20 oz gold bars, 20 oz gold rounds and 5 maples
	// THEN: No single product reaches its threshold
	s := bullion.DefaultSettings()
	tx := deal("tx-1", bullion.DealBuy, "cust-1", day1,
		goldBars("20", "2400"),
		line(bullion.MetalGold, bullion.FormRounds, "", "20", "2400"),
		line(bullion.MetalGold, bullion.FormCoins, bullion.CoinMaples, "5", "2400"),
	)
	r, err := bullion.Check1099B(tx, nil, s)
	require.NoError(t, err)
	assert.False(t, r.Reportable)
	assert.Len(t, r.Lines, 3)

	// GIVEN: Two lines of the same product in one deal
	// THEN: They are summed
	tx = deal("tx-2", bullion.DealBuy, "cust-1", day1, goldBars("20", "2400"), goldBars("13", "2400"))
	r, err = bullion.Check1099B(tx, nil, s)
	require.NoError(t, err)
	assert.True(t, r.Reportable)
	assert.Equal(t, bullion.ReasonSingle, r.Reason)
}

func TestCheck1099B_SilverCoinsNeverReportable(t *testing.T) {
	tx := deal("tx-1", bullion.DealBuy, "cust-1", day1,
		line(bullion.MetalSilver, bullion.FormCoins, bullion.CoinEagles, "5000", "30"))
	r, err := bullion.Check1099B(tx, nil, bullion.DefaultSettings())
	require.NoError(t, err)
	assert.False(t, r.Reportable)
}

func TestCheck1099B_GenericGoldCoinsReportable(t *testing.T) {
	// GIVEN: 100 oz of gold coins with no coin type
	tx := deal("tx-1", bullion.DealBuy, "cust-1", day1,
		line(bullion.MetalGold, bullion.FormCoins, "", "100", "2400"))

	// THEN: Reportable at the gold threshold
	r, err := bullion.Check1099B(tx, nil, bullion.DefaultSettings())
	require.NoError(t, err)
	assert.True(t, r.Reportable)
	assert.Equal(t, bullion.ReasonSingle, r.Reason)
	require.Len(t, r.Lines, 1)
	assertDec(t, "32.15", r.Lines[0].Threshold)
}

func TestCheck1099B_MissingProductFields(t *testing.T) {
	tx := deal("tx-1", bullion.DealBuy, "cust-1", day1, bullion.Line{Qty: dec("1")})
	_, err := bullion.Check1099B(tx, nil, bullion.DefaultSettings())
	assert.ErrorIs(t, err, bullion.ErrInvalidProduct)
}

// =============================================================================
// FORM 8300
// =============================================================================

func cashDeal(id, customer string, at time.Time, total string) bullion.Transaction {
	tx := deal(id, bullion.DealSell, customer, at, goldBars("1", total))
	tx.Payment = bullion.PaymentCash
	return tx
}

func TestCheck8300_SingleCash(t *testing.T) {
	s := bullion.DefaultSettings()

	r := bullion.Check8300(cashDeal("tx-1", "cust-1", day1, "12000"), nil, s)
	assert.True(t, r.Flagged)
	assertDec(t, "12000", r.CashAmount)

	r = bullion.Check8300(cashDeal("tx-2", "cust-1", day1, "9999.99"), nil, s)
	assert.False(t, r.Flagged)

	wire := cashDeal("tx-3", "cust-1", day1, "50000")
	wire.Payment = bullion.PaymentWire
	r = bullion.Check8300(wire, nil, s)
	assert.False(t, r.Flagged)
}

func TestCheck8300_AggregatesCashPerCustomer(t *testing.T) {
	// GIVEN: $6,000 then $5,000 cash from the same customer within a day
	// THEN: The second deal is flagged and the first patched
	s := bullion.DefaultSettings()
	first := cashDeal("tx-1", "cust-1", day1, "6000")
	second := cashDeal("tx-2", "cust-1", day1.Add(2*time.Hour), "5000")

	outcome, err := bullion.ApplyComplianceRules([]bullion.Transaction{first}, second, s)
	require.NoError(t, err)
	assert.True(t, outcome.Transaction.Form8300Flag)
	assertDec(t, "11000", outcome.Form8300.Aggregate)

	patched := bullion.ApplyPatches([]bullion.Transaction{first}, outcome.Patches)
	assert.True(t, patched[0].Form8300Flag)

	other := cashDeal("tx-3", "cust-2", day1.Add(2*time.Hour), "5000")
	assert.False(t, bullion.Check8300(other, []bullion.Transaction{first}, s).Flagged)
}

func TestCheck8300_TradeUsesSettlement(t *testing.T) {
	tx := bullion.Transaction{
		ID:         "tx-1",
		Type:       bullion.DealTrade,
		Payment:    bullion.PaymentCash,
		Date:       day1,
		Settlement: dec("-10500"),
		Total:      dec("-10500"),
	}
	r := bullion.Check8300(tx, nil, bullion.DefaultSettings())
	assert.True(t, r.Flagged)
	assertDec(t, "10500", r.CashAmount)
}

func TestCheck8300_ConfigurableWindow(t *testing.T) {
	s := bullion.DefaultSettings()
	s.CashAggregationWindow = 72 * time.Hour
	first := cashDeal("tx-1", "cust-1", day1, "6000")
	second := cashDeal("tx-2", "cust-1", day1.Add(48*time.Hour), "5000")

	assert.True(t, bullion.Check8300(second, []bullion.Transaction{first}, s).Flagged)
	assert.False(t, bullion.Check8300(second, []bullion.Transaction{first}, bullion.DefaultSettings()).Flagged)
}

// =============================================================================
// RECOMPUTE AND FILTERS
// =============================================================================

func TestRecomputeCompliance_WithdrawsFlagsAfterDelete(t *testing.T) {
	s := bullion.DefaultSettings()
	first := deal("tx-1", bullion.DealBuy, "cust-1", day1, goldBars("20", "2400"))
	second := deal("tx-2", bullion.DealBuy, "cust-1", day1.Add(time.Hour), goldBars("15", "2400"))

	all, err := bullion.RecomputeCompliance([]bullion.Transaction{second, first}, s)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tx-1", all[0].ID, "result is in date order")
	assert.True(t, all[0].Form1099BFlag)
	assert.True(t, all[1].Form1099BFlag)

	// WHEN: tx-1 is deleted
	remaining, err := bullion.RecomputeCompliance(all[1:], s)
	require.NoError(t, err)
	assert.False(t, remaining[0].Form1099BFlag)
	assert.Empty(t, remaining[0].Form1099BReason)
}

func TestRecomputeCompliance_PreservesAcknowledgements(t *testing.T) {
	s := bullion.DefaultSettings()
	big := deal("tx-1", bullion.DealBuy, "cust-1", day1, goldBars("40", "2400"))
	big.Form1099BFlag = true
	big.Form1099BFiled = true

	small := deal("tx-2", bullion.DealBuy, "cust-2", day1, goldBars("1", "2400"))
	small.Form1099BFlag = true // stale
	small.Form1099BFiled = true

	out, err := bullion.RecomputeCompliance([]bullion.Transaction{big, small}, s)
	require.NoError(t, err)
	assert.True(t, out[0].Form1099BFiled)
	assert.False(t, out[1].Form1099BFlag)
	assert.False(t, out[1].Form1099BFiled)
}

func TestFilterCompliance(t *testing.T) {
	txs := []bullion.Transaction{
		{ID: "a", Form8300Flag: true},
		{ID: "b", Form8300Flag: true, Form8300Reviewed: true},
		{ID: "c", Form1099BFlag: true},
		{ID: "d", Form1099BFlag: true, Form1099BFiled: true},
		{ID: "e"},
	}
	ids := func(f bullion.ComplianceFilter) []string {
		var out []string
		for _, tx := range bullion.FilterCompliance(txs, f) {
			out = append(out, tx.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b"}, ids(bullion.FilterFlagged))
	assert.Equal(t, []string{"a"}, ids(bullion.FilterNeedsReview))
	assert.Equal(t, []string{"b"}, ids(bullion.FilterReviewed))
	assert.Equal(t, []string{"c", "d"}, ids(bullion.Filter1099BFlagged))
	assert.Equal(t, []string{"c"}, ids(bullion.Filter1099BNeedsFiling))
	assert.Equal(t, []string{"d"}, ids(bullion.Filter1099BFiled))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(bullion.FilterAnyCompliance))
	assert.Len(t, ids(bullion.FilterAll), 5)

	open := bullion.CountOpenCompliance(txs)
	assert.Equal(t, 1, open.Unreviewed8300)
	assert.Equal(t, 1, open.Unfiled1099B)

	_, err := bullion.ParseComplianceFilter("bogus")
	assert.Error(t, err)
	f, err := bullion.ParseComplianceFilter("needs-review")
	require.NoError(t, err)
	assert.Equal(t, bullion.FilterNeedsReview, f)
}
