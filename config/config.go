// Package config loads server configuration from the environment.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/warp/bullion-desk/logger"
)

// Spot source kinds.
const (
	SpotStatic = "static"
	SpotHTTP   = "http"
)

// Config holds application configuration.
type Config struct {
	Port           string
	DBPath         string
	LogLevel       string
	AllowedOrigins []string

	SpotSource   string
	SpotGold     decimal.Decimal
	SpotSilver   decimal.Decimal
	SpotAPIURL   string
	SpotCacheTTL time.Duration

	// Redis caches spot quotes across instances when set
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables and a .env file if
// present. Invalid values fall back to their defaults with a warning.
func Load() *Config {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "./data/bullion.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("SPOT_SOURCE", SpotStatic)
	v.SetDefault("SPOT_GOLD", "2500")
	v.SetDefault("SPOT_SILVER", "32")
	v.SetDefault("SPOT_API_URL", "https://api.gold-api.com")
	v.SetDefault("SPOT_CACHE_TTL", "60s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_RPS", 20.0)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.AutomaticEnv()

	cfg := &Config{
		Port:          v.GetString("PORT"),
		DBPath:        v.GetString("DB_PATH"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		SpotAPIURL:    strings.TrimRight(v.GetString("SPOT_API_URL"), "/"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
	}

	for _, origin := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	cfg.SpotSource = strings.ToLower(v.GetString("SPOT_SOURCE"))
	if cfg.SpotSource != SpotStatic && cfg.SpotSource != SpotHTTP {
		logger.L.Warn("invalid SPOT_SOURCE, defaulting to static", "value", cfg.SpotSource)
		cfg.SpotSource = SpotStatic
	}

	cfg.SpotGold = price(v, "SPOT_GOLD", "2500")
	cfg.SpotSilver = price(v, "SPOT_SILVER", "32")

	ttlStr := v.GetString("SPOT_CACHE_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil || ttl <= 0 {
		ttl = time.Minute
		logger.L.Warn("invalid SPOT_CACHE_TTL", "value", ttlStr, "default", ttl.String())
	}
	cfg.SpotCacheTTL = ttl

	cfg.RateLimitRPS = v.GetFloat64("RATE_LIMIT_RPS")
	cfg.RateLimitBurst = v.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimitBurst <= 0 && cfg.RateLimitRPS > 0 {
		cfg.RateLimitBurst = 1
	}

	return cfg
}

// RateLimited reports whether the API should throttle requests.
func (c *Config) RateLimited() bool {
	return c.RateLimitRPS > 0
}

func price(v *viper.Viper, key, fallback string) decimal.Decimal {
	raw := v.GetString(key)
	p, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !p.IsPositive() {
		logger.L.Warn("invalid spot price", "key", key, "value", raw, "default", fallback)
		return decimal.RequireFromString(fallback)
	}
	return p
}
