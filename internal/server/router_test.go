package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/catalog"
	"github.com/joao-fontenele/chopflow/internal/config"
	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/orders"
	"github.com/joao-fontenele/chopflow/internal/payments"
	"github.com/joao-fontenele/chopflow/internal/reviews"
	"github.com/joao-fontenele/chopflow/internal/users"
)

const testSecret = "router-test-secret-at-least-32-bytes!!"

type fakeUsers map[string]*domain.User

func (f fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f fakeUsers) Create(context.Context, *domain.User) error { return nil }

func (f fakeUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
}

func (f fakeUsers) AddFavorite(context.Context, string, string) error    { return nil }
func (f fakeUsers) RemoveFavorite(context.Context, string, string) error { return nil }

type emptyOrders struct{}

func (emptyOrders) Create(context.Context, *domain.Order) error { return nil }
func (emptyOrders) GetForUser(context.Context, string, string) (*domain.Order, error) {
	return nil, fmt.Errorf("%w: order not found", domain.ErrNotFound)
}
func (emptyOrders) ListForUser(context.Context, string) ([]domain.Order, error) {
	return []domain.Order{}, nil
}
func (emptyOrders) ListAll(context.Context, string) ([]domain.Order, error) {
	return []domain.Order{}, nil
}
func (emptyOrders) UpdateStatus(context.Context, string, domain.OrderStatus) error {
	return fmt.Errorf("%w: order not found", domain.ErrNotFound)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

type router struct {
	handler http.Handler
	tokens  *auth.TokenManager
}

func newTestRouter(t *testing.T, cfg config.ServerConfig, db Pinger) *router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	authorizer, err := auth.NewAuthorizer()
	if err != nil {
		t.Fatalf("failed to create authorizer: %v", err)
	}

	people := fakeUsers{
		"cust-1":  {ID: "cust-1", Name: "Ada"},
		"admin-1": {ID: "admin-1", Name: "Ops", IsAdmin: true},
	}

	deps := Deps{
		Auth:     auth.NewMiddleware(tokens, people, authorizer, logger),
		Users:    users.NewHandler(people, nil, tokens, logger),
		Catalog:  catalog.NewHandler(nil, logger),
		Orders:   orders.NewHandler(emptyOrders{}, nil, nil, logger),
		Payments: payments.NewHandler(nil, logger),
		Reviews:  reviews.NewHandler(nil, nil, logger),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "# metrics")
		}),
		DB: db,
	}
	return &router{handler: NewRouter(cfg, deps, logger), tokens: tokens}
}

func defaultServerConfig() config.ServerConfig {
	return config.ServerConfig{
		CORSOrigins:    []string{"*"},
		AuthRateLimit:  100,
		AuthRateWindow: time.Minute,
	}
}

func (rt *router) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		token, err := rt.tokens.Issue(userID)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	rt.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_AdminRoutes(t *testing.T) {
	rt := newTestRouter(t, defaultServerConfig(), nil)

	tests := []struct {
		name       string
		method     string
		path       string
		userID     string
		body       string
		wantStatus int
	}{
		{"status update without token", http.MethodPatch, "/api/orders/o1/status", "", `{"status":"delivered"}`, http.StatusUnauthorized},
		{"status update as customer", http.MethodPatch, "/api/orders/o1/status", "cust-1", `{"status":"delivered"}`, http.StatusForbidden},
		{"status update as admin", http.MethodPatch, "/api/orders/o1/status", "admin-1", `{"status":"delivered"}`, http.StatusNotFound},
		{"admin list as customer", http.MethodGet, "/api/admin/orders", "cust-1", "", http.StatusForbidden},
		{"admin list as admin", http.MethodGet, "/api/admin/orders?status=pending", "admin-1", "", http.StatusOK},
		{"own orders as customer", http.MethodGet, "/api/orders", "cust-1", "", http.StatusOK},
		{"token of deleted user", http.MethodGet, "/api/orders", "ghost", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := rt.do(t, tt.method, tt.path, tt.userID, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_AuthRateLimit(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.AuthRateLimit = 2
	rt := newTestRouter(t, cfg, nil)

	body := `{"email":"ada@example.com","password":"secret1"}`
	for i := 0; i < 2; i++ {
		if rec := rt.do(t, http.MethodPost, "/api/auth/login", "", body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected status 401, got %d", i, rec.Code)
		}
	}

	if rec := rt.do(t, http.MethodPost, "/api/auth/login", "", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429 after limit, got %d", rec.Code)
	}
	if rec := rt.do(t, http.MethodGet, "/api/orders", "cust-1", ""); rec.Code != http.StatusOK {
		t.Errorf("unlimited route affected by auth limit: got %d", rec.Code)
	}
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
	}{
		{"database up", pinger{}, http.StatusOK},
		{"database down", pinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newTestRouter(t, defaultServerConfig(), tt.db)
			if rec := rt.do(t, http.MethodGet, "/healthz", "", ""); rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRouter_MetricsAndCORS(t *testing.T) {
	rt := newTestRouter(t, defaultServerConfig(), nil)

	if rec := rt.do(t, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Errorf("unexpected metrics response %d %q", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/restaurants", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	rt.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", got)
	}
}

func TestRouter_CustomerRoutesPassPolicy(t *testing.T) {
	rt := newTestRouter(t, defaultServerConfig(), nil)

	tests := []struct {
		name       string
		method     string
		path       string
		userID     string
		body       string
		wantStatus int
	}{
		{"profile", http.MethodGet, "/api/auth/me", "cust-1", "", http.StatusOK},
		{"own orders", http.MethodGet, "/api/orders", "cust-1", "", http.StatusOK},
		{"own order", http.MethodGet, "/api/orders/o1", "cust-1", "", http.StatusNotFound},
		{"review validation", http.MethodPost, "/api/reviews", "cust-1", `{}`, http.StatusBadRequest},
		{"payment validation", http.MethodPost, "/api/payment/initialize", "cust-1", `{}`, http.StatusBadRequest},
		{"orders without token", http.MethodGet, "/api/orders", "", "", http.StatusUnauthorized},
		{"admin inherits customer rights", http.MethodGet, "/api/orders", "admin-1", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := rt.do(t, tt.method, tt.path, tt.userID, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}
