package users

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/domain"
)

type memoryStore struct {
	byID map[string]*domain.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byID: map[string]*domain.User{}}
}

func (m *memoryStore) Create(_ context.Context, u *domain.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
	}
	u.ID = fmt.Sprintf("user-%d", len(m.byID)+1)
	u.Favorites = []string{}
	m.byID[u.ID] = u
	return nil
}

func (m *memoryStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryStore) AddFavorite(_ context.Context, userID, restaurantID string) error {
	u := m.byID[userID]
	for _, f := range u.Favorites {
		if f == restaurantID {
			return nil
		}
	}
	u.Favorites = append(u.Favorites, restaurantID)
	return nil
}

func (m *memoryStore) RemoveFavorite(_ context.Context, userID, restaurantID string) error {
	u := m.byID[userID]
	kept := u.Favorites[:0]
	for _, f := range u.Favorites {
		if f != restaurantID {
			kept = append(kept, f)
		}
	}
	u.Favorites = kept
	return nil
}

type stubRestaurants map[string]domain.Restaurant

func (s stubRestaurants) Get(_ context.Context, id string) (*domain.Restaurant, error) {
	r, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: restaurant not found", domain.ErrNotFound)
	}
	return &r, nil
}

func (s stubRestaurants) ListByIDs(_ context.Context, ids []string) ([]domain.Restaurant, error) {
	var out []domain.Restaurant
	for _, id := range ids {
		if r, ok := s[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestHandler(t *testing.T) (*Handler, *memoryStore, *auth.TokenManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	store := newMemoryStore()
	restaurants := stubRestaurants{"rest-1": {ID: "rest-1", Name: "Mama's Kitchen"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(store, restaurants, tokens, logger), store, tokens
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	h, _, tokens := newTestHandler(t)

	body := `{"name":"Ada","email":"Ada@Example.com","password":"secret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var registered struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, leaked := registered.User["password_hash"]; leaked {
		t.Error("password hash must not be serialized")
	}
	if registered.User["email"] != "ada@example.com" {
		t.Errorf("expected normalized email, got %v", registered.User["email"])
	}
	userID, err := tokens.Parse(registered.Token)
	if err != nil || userID != registered.User["id"] {
		t.Errorf("token does not identify the new user: %v", err)
	}

	t.Run("duplicate email is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.HandleRegister(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("login with correct password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"secret-pass"}`))
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("login with wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"nope"}`))
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("login with unknown email", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ghost@example.com","password":"secret-pass"}`))
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func TestHandler_RegisterValidation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@example.com","password":"secret-pass"}`},
		{"bad email", `{"name":"A","email":"nope","password":"secret-pass"}`},
		{"short password", `{"name":"A","email":"a@example.com","password":"123"}`},
		{"malformed", `{"name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.HandleRegister(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_Favorites(t *testing.T) {
	h, store, _ := newTestHandler(t)

	user := &domain.User{Name: "Ada", Email: "ada@example.com"}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/favorites/{restaurant_id}", h.HandleAddFavorite)
	mux.HandleFunc("DELETE /api/favorites/{restaurant_id}", h.HandleRemoveFavorite)
	mux.HandleFunc("GET /api/favorites", h.HandleListFavorites)

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req = req.WithContext(auth.WithUser(req.Context(), user))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodPost, "/api/favorites/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown restaurant, got %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		if rec := do(http.MethodPost, "/api/favorites/rest-1"); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 adding favorite, got %d", rec.Code)
		}
	}
	if len(user.Favorites) != 1 {
		t.Errorf("expected favorites to behave as a set, got %v", user.Favorites)
	}

	rec := do(http.MethodGet, "/api/favorites")
	var favorites []domain.Restaurant
	if err := json.Unmarshal(rec.Body.Bytes(), &favorites); err != nil {
		t.Fatalf("failed to decode favorites: %v", err)
	}
	if len(favorites) != 1 || favorites[0].ID != "rest-1" {
		t.Errorf("unexpected favorites: %+v", favorites)
	}

	if rec := do(http.MethodDelete, "/api/favorites/rest-1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 removing favorite, got %d", rec.Code)
	}

	rec = do(http.MethodGet, "/api/favorites")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}
