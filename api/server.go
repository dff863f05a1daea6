/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, picked up by logger.FromContext
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the counter frontend
  5. RateLimit:  Token bucket shared by all clients (optional)

ROUTE GROUPS:
  /api/settings         Shop settings
  /api/spot, /api/quote Pricing
  /api/deals            Deal entry
  /api/transactions/*   History and compliance acknowledgements
  /api/compliance/*     Dry-run compliance checks
  /api/inventory        Stock on hand
  /api/cost-basis       FIFO books
  /api/dashboard        Daily summary
  /api/customers/*      Customer totals

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/warp/bullion-desk/logger"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimitRPS   float64 // <= 0 disables rate limiting
	RateLimitBurst int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)

		r.Get("/spot", h.GetSpot)
		r.Post("/quote", h.Quote)

		r.Post("/deals", h.CreateDeal)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/{id}/1099b-filed", h.MarkFiled1099B)
			r.Post("/{id}/8300-reviewed", h.MarkReviewed8300)
		})

		r.Post("/compliance/1099b/check", h.CheckCompliance)

		r.Get("/inventory", h.GetInventory)
		r.Get("/cost-basis", h.GetCostBasis)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/customers/{id}/stats", h.GetCustomerStats)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Bullion Desk</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Bullion Desk API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/spot">/api/spot</a> - Current spot prices</li>
<li><a href="/api/settings">/api/settings</a> - Shop settings</li>
<li><a href="/api/transactions">/api/transactions</a> - Deal history</li>
<li><a href="/api/inventory">/api/inventory</a> - Inventory</li>
<li><a href="/api/cost-basis">/api/cost-basis</a> - FIFO cost basis</li>
<li><a href="/api/dashboard">/api/dashboard</a> - Today</li>
</ul>
</body>
</html>`))
	})

	return r
}

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.FromContext(r.Context()).Warn("Rate limit exceeded",
					"method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
