// Package server assembles the HTTP API: routes, authentication and the
// cross-cutting middleware around them.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/catalog"
	"github.com/joao-fontenele/chopflow/internal/config"
	"github.com/joao-fontenele/chopflow/internal/httpjson"
	"github.com/joao-fontenele/chopflow/internal/orders"
	"github.com/joao-fontenele/chopflow/internal/payments"
	"github.com/joao-fontenele/chopflow/internal/reviews"
	"github.com/joao-fontenele/chopflow/internal/telemetry"
	"github.com/joao-fontenele/chopflow/internal/users"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Auth     *auth.Middleware
	Users    *users.Handler
	Catalog  *catalog.Handler
	Orders   *orders.Handler
	Payments *payments.Handler
	Reviews  *reviews.Handler
	// Metrics serves /metrics when set.
	Metrics http.Handler
	DB      Pinger
}

// NewRouter returns the API handler with every route under /api.
func NewRouter(cfg config.ServerConfig, deps Deps, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	a := deps.Auth

	limited := func(h http.HandlerFunc) http.Handler {
		if cfg.AuthRateLimit <= 0 {
			return h
		}
		return httprate.LimitByIP(cfg.AuthRateLimit, cfg.AuthRateWindow)(h)
	}
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}
	routeLimited := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, limited(telemetry.WithHTTPRoute(h)))
	}

	routeLimited("POST /api/auth/register", deps.Users.HandleRegister)
	routeLimited("POST /api/auth/login", deps.Users.HandleLogin)
	route("GET /api/auth/me", a.Require(auth.ObjectProfile, auth.ActionRead, deps.Users.HandleMe))

	route("GET /api/restaurants", deps.Catalog.HandleList)
	route("GET /api/restaurants/{id}", deps.Catalog.HandleGet)
	route("GET /api/restaurants/{id}/menu", deps.Catalog.HandleMenu)
	route("GET /api/restaurants/{id}/reviews", deps.Reviews.HandleListForRestaurant)
	route("POST /api/seed", deps.Catalog.HandleSeed)

	route("POST /api/orders", a.Require(auth.ObjectOrders, auth.ActionOwn, deps.Orders.HandleCreate))
	route("GET /api/orders", a.Require(auth.ObjectOrders, auth.ActionOwn, deps.Orders.HandleList))
	route("GET /api/orders/{id}", a.Require(auth.ObjectOrders, auth.ActionOwn, deps.Orders.HandleGet))
	route("PATCH /api/orders/{id}/status", a.Require(auth.ObjectOrders, auth.ActionManage, deps.Orders.HandleUpdateStatus))
	route("GET /api/admin/orders", a.Require(auth.ObjectOrders, auth.ActionManage, deps.Orders.HandleAdminList))

	route("GET /api/favorites", a.Require(auth.ObjectFavorites, auth.ActionOwn, deps.Users.HandleListFavorites))
	route("POST /api/favorites/{restaurant_id}", a.Require(auth.ObjectFavorites, auth.ActionOwn, deps.Users.HandleAddFavorite))
	route("DELETE /api/favorites/{restaurant_id}", a.Require(auth.ObjectFavorites, auth.ActionOwn, deps.Users.HandleRemoveFavorite))

	route("POST /api/payment/initialize", a.Require(auth.ObjectPayments, auth.ActionOwn, deps.Payments.HandleInitialize))
	route("GET /api/payment/verify/{reference}", a.Require(auth.ObjectPayments, auth.ActionOwn, deps.Payments.HandleVerify))
	routeLimited("POST /api/payment/webhook", deps.Payments.HandleWebhook)

	route("POST /api/reviews", a.Require(auth.ObjectReviews, auth.ActionCreate, deps.Reviews.HandleCreate))

	mux.HandleFunc("GET /healthz", healthHandler(deps.DB, logger))
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	handler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})(mux)

	return otelhttp.NewHandler(handler, "chopflow-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	)
}

func healthHandler(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.Warn("health check failed", "error", err)
				httpjson.WriteError(w, logger, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		httpjson.Write(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}
