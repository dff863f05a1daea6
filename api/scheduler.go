/*
scheduler.go - Background spot price refresher

PURPOSE:
  Keeps the spot cache warm so the counter never waits on the quote
  service. Each tick asks the (cached) source for prices; once the cache
  entry has expired this goes through to the live source and refills it.

DESIGN:
  - Runs a background goroutine with configurable refresh interval
  - Refreshes immediately on start
  - Failures are logged; the cached source keeps serving the last quote

CONFIGURATION:
  - Interval: How often to refresh (default: 1 minute)
  - Enabled:  Whether the refresher is active (default: true)

USAGE:
  refresher := NewSpotRefresher(source)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - spot/cache.go: CachedSource
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/bullion-desk/logger"
	"github.com/warp/bullion-desk/spot"
)

// SpotRefresher periodically pulls spot prices through a source.
type SpotRefresher struct {
	Source   spot.Source
	Interval time.Duration
	Timeout  time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	refreshes int
	failures  int
}

// NewSpotRefresher creates a new refresher.
func NewSpotRefresher(source spot.Source) *SpotRefresher {
	return &SpotRefresher{
		Source:   source,
		Interval: time.Minute,
		Timeout:  10 * time.Second,
		Enabled:  true,
	}
}

// Start begins refreshing.
func (sr *SpotRefresher) Start() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if !sr.Enabled {
		logger.L.Info("spot refresher disabled, not starting")
		return
	}
	if sr.ticker != nil {
		return
	}

	sr.ticker = time.NewTicker(sr.Interval)
	sr.stop = make(chan struct{})
	sr.wg.Add(1)

	go sr.run(sr.ticker.C, sr.stop)

	logger.L.Info("spot refresher started", "interval", sr.Interval.String())
}

// Stop stops the refresher and waits for an in-flight refresh.
func (sr *SpotRefresher) Stop() {
	sr.mu.Lock()
	ticker, stop := sr.ticker, sr.stop
	sr.ticker = nil
	sr.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	sr.wg.Wait()
	logger.L.Info("spot refresher stopped")
}

// Stats returns the number of successful and failed refreshes.
func (sr *SpotRefresher) Stats() (refreshes, failures int) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.refreshes, sr.failures
}

func (sr *SpotRefresher) run(ticks <-chan time.Time, stop <-chan struct{}) {
	defer sr.wg.Done()

	// Run immediately on start
	sr.refresh()

	for {
		select {
		case <-ticks:
			sr.refresh()
		case <-stop:
			return
		}
	}
}

func (sr *SpotRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), sr.Timeout)
	defer cancel()

	prices, err := sr.Source.Prices(ctx)

	sr.mu.Lock()
	defer sr.mu.Unlock()
	if err != nil {
		sr.failures++
		logger.L.Warn("spot refresh failed", "error", err)
		return
	}
	sr.refreshes++
	logger.L.Debug("spot refreshed", "gold", prices.Gold.String(), "silver", prices.Silver.String())
}
