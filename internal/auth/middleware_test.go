package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

type fakeUsers map[string]*domain.User

func (f fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func newTestMiddleware(t *testing.T) (*Middleware, *TokenManager) {
	t.Helper()

	tokens, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	authorizer, err := NewAuthorizer()
	if err != nil {
		t.Fatalf("failed to create authorizer: %v", err)
	}
	users := fakeUsers{
		"cust-1":  {ID: "cust-1", Name: "Ada"},
		"admin-1": {ID: "admin-1", Name: "Ops", IsAdmin: true},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMiddleware(tokens, users, authorizer, logger), tokens
}

func TestMiddleware_Authenticate(t *testing.T) {
	mw, tokens := newTestMiddleware(t)

	var seen string
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFrom(r.Context())
		if !ok {
			t.Error("expected user in context")
			return
		}
		seen = u.ID
		w.WriteHeader(http.StatusNoContent)
	})

	validToken, _ := tokens.Issue("cust-1")
	ghostToken, _ := tokens.Issue("ghost")

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"deleted user", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"valid", "Bearer " + validToken, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}

	if seen != "cust-1" {
		t.Errorf("expected handler to see cust-1, got %q", seen)
	}
}

func TestMiddleware_Require(t *testing.T) {
	mw, tokens := newTestMiddleware(t)

	handler := mw.Require("orders", "manage", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	customerToken, _ := tokens.Issue("cust-1")
	adminToken, _ := tokens.Issue("admin-1")

	t.Run("customer is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		req.Header.Set("Authorization", "Bearer "+customerToken)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", rec.Code)
		}
	})

	t.Run("admin is allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("unauthenticated is 401 not 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func TestAuthorizer(t *testing.T) {
	a, err := NewAuthorizer()
	if err != nil {
		t.Fatalf("failed to create authorizer: %v", err)
	}

	customer := &domain.User{ID: "c"}
	admin := &domain.User{ID: "a", IsAdmin: true}

	tests := []struct {
		name string
		user *domain.User
		obj  string
		act  string
		want bool
	}{
		{"customer owns orders", customer, "orders", "own", true},
		{"customer cannot manage orders", customer, "orders", "manage", false},
		{"admin manages orders", admin, "orders", "manage", true},
		{"admin inherits customer rights", admin, "reviews", "create", true},
		{"unknown action", admin, "orders", "delete", false},
		{"customer reads profile", customer, ObjectProfile, ActionRead, true},
		{"customer pays own orders", customer, ObjectPayments, ActionOwn, true},
		{"customer creates reviews", customer, ObjectReviews, ActionCreate, true},
		{"customer keeps favorites", customer, ObjectFavorites, ActionOwn, true},
		{"customer cannot manage payments", customer, ObjectPayments, ActionManage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Allowed(tt.user, tt.obj, tt.act)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
