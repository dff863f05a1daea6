/*
source.go - Spot price sources

PURPOSE:
  The engines take spot prices as plain inputs. This package is where
  those inputs come from: a fixed pair for tests and offline use, or a
  live quote service.

SOURCES:
  StaticSource: Configured prices, never fails
  HTTPSource:   GET {base}/price/XAU and {base}/price/XAG, each answering
                {"price": 2500.12}
  CachedSource: Wraps another source with a TTL cache (cache.go)

SEE ALSO:
  - cache.go: Memory and Redis caches
  - bullion/types.go: SpotPrices
*/
package spot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bullion-desk/bullion"
)

// ErrUnavailable is returned when no usable spot price could be obtained.
var ErrUnavailable = errors.New("spot price unavailable")

// Source provides current spot prices per troy ounce.
type Source interface {
	Prices(ctx context.Context) (bullion.SpotPrices, error)
}

// =============================================================================
// STATIC SOURCE
// =============================================================================

// StaticSource always returns the same prices.
type StaticSource struct {
	prices bullion.SpotPrices
}

func NewStaticSource(gold, silver decimal.Decimal) *StaticSource {
	return &StaticSource{prices: bullion.SpotPrices{Gold: gold, Silver: silver}}
}

func (s *StaticSource) Prices(context.Context) (bullion.SpotPrices, error) {
	return s.prices, nil
}

// =============================================================================
// HTTP SOURCE
// =============================================================================

var symbols = map[bullion.Metal]string{
	bullion.MetalGold:   "XAU",
	bullion.MetalSilver: "XAG",
}

type priceResponse struct {
	Price decimal.Decimal `json:"price"`
}

// HTTPSource fetches prices from a gold-api style quote service.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source for baseURL, e.g. "https://api.gold-api.com".
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Prices fetches both metals. Either failing fails the call.
func (s *HTTPSource) Prices(ctx context.Context) (bullion.SpotPrices, error) {
	gold, err := s.fetch(ctx, bullion.MetalGold)
	if err != nil {
		return bullion.SpotPrices{}, err
	}
	silver, err := s.fetch(ctx, bullion.MetalSilver)
	if err != nil {
		return bullion.SpotPrices{}, err
	}
	return bullion.SpotPrices{Gold: gold, Silver: silver}, nil
}

func (s *HTTPSource) fetch(ctx context.Context, metal bullion.Metal) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/price/%s", s.baseURL, symbols[metal])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, metal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return decimal.Zero, fmt.Errorf("%w: %s: status %d", ErrUnavailable, metal, resp.StatusCode)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, metal, err)
	}
	if !body.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price %s", ErrUnavailable, metal, body.Price)
	}
	return body.Price, nil
}
