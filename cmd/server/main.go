/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bullion desk server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment), then apply flags
  2. Initialize logger
  3. Initialize SQLite store
  4. Build the spot price source (static, or live behind a cache)
  5. Create ledger, API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the spot refresher
  4. Close cache and database connections

EXAMPLES:
  # Live prices cached in Redis
  SPOT_SOURCE=http REDIS_ADDR=localhost:6379 ./server -db="./data/bullion.db"

  # Fixed prices, in-memory database
  SPOT_GOLD=2500 SPOT_SILVER=32 ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/bullion-desk/api"
	"github.com/warp/bullion-desk/config"
	"github.com/warp/bullion-desk/ledger"
	"github.com/warp/bullion-desk/logger"
	"github.com/warp/bullion-desk/spot"
	"github.com/warp/bullion-desk/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	logger.InitLogger(cfg.LogLevel)

	if *dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
			logger.L.Error("failed to create database directory", "path", *dbPath, "error", err)
			os.Exit(1)
		}
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.L.Error("failed to initialize database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Spot prices
	source, cleanup := spotSource(cfg)
	defer cleanup()

	var refresher *api.SpotRefresher
	if cfg.SpotSource == config.SpotHTTP {
		refresher = api.NewSpotRefresher(source)
		if cfg.SpotCacheTTL > 0 {
			refresher.Interval = cfg.SpotCacheTTL
		}
		refresher.Start()
	}

	// Initialize handler
	handler := api.NewHandler(ledger.New(store), store, source)

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.L.Info("server starting", "addr", server.Addr, "db", *dbPath, "spot", cfg.SpotSource)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("server forced to shutdown", "error", err)
	}
	if refresher != nil {
		refresher.Stop()
	}

	logger.L.Info("server stopped")
}

// spotSource builds the configured price source. Live prices go through a
// cache: Redis when REDIS_ADDR is set and reachable, memory otherwise.
func spotSource(cfg *config.Config) (spot.Source, func()) {
	if cfg.SpotSource != config.SpotHTTP {
		logger.L.Info("using static spot prices", "gold", cfg.SpotGold.String(), "silver", cfg.SpotSilver.String())
		return spot.NewStaticSource(cfg.SpotGold, cfg.SpotSilver), func() {}
	}

	live := spot.NewHTTPSource(cfg.SpotAPIURL, 10*time.Second)

	if cfg.RedisAddr != "" {
		redisCache := spot.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := redisCache.Ping(ctx)
		if err == nil {
			logger.L.Info("caching spot prices in redis", "addr", cfg.RedisAddr)
			return spot.NewCachedSource(live, redisCache, cfg.SpotCacheTTL), func() { redisCache.Close() }
		}
		logger.L.Warn("redis unreachable, caching spot prices in memory", "addr", cfg.RedisAddr, "error", err)
		redisCache.Close()
	}

	return spot.NewCachedSource(live, spot.NewMemoryCache(), cfg.SpotCacheTTL), func() {}
}
