package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

type fakeStore struct {
	restaurants []domain.Restaurant
	items       []domain.MenuItem
	lastSearch  string
	lastCuisine string
}

func (f *fakeStore) ListRestaurants(_ context.Context, search, cuisine string) ([]domain.Restaurant, error) {
	f.lastSearch, f.lastCuisine = search, cuisine
	return f.restaurants, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*domain.Restaurant, error) {
	for _, r := range f.restaurants {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: restaurant not found", domain.ErrNotFound)
}

func (f *fakeStore) Menu(_ context.Context, restaurantID string) ([]domain.MenuItem, error) {
	items := []domain.MenuItem{}
	for _, item := range f.items {
		if item.RestaurantID == restaurantID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeStore) Seed(_ context.Context, restaurants []domain.Restaurant, items []domain.MenuItem) (bool, error) {
	if len(f.restaurants) > 0 {
		return false, nil
	}
	f.restaurants = restaurants
	f.items = items
	return true, nil
}

func newMux(store Store) *http.ServeMux {
	h := NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/restaurants", h.HandleList)
	mux.HandleFunc("GET /api/restaurants/{id}", h.HandleGet)
	mux.HandleFunc("GET /api/restaurants/{id}/menu", h.HandleMenu)
	mux.HandleFunc("POST /api/seed", h.HandleSeed)
	return mux
}

func TestHandler_Seed(t *testing.T) {
	store := &fakeStore{}
	mux := newMux(store)

	t.Run("first call seeds", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/seed", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["restaurants"] != float64(4) || resp["menu_items"] != float64(24) {
			t.Errorf("unexpected seed counts: %v", resp)
		}
	})

	t.Run("second call is a no-op", func(t *testing.T) {
		before := store.restaurants[0].ID

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/seed", nil))

		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["message"] != "Database already seeded" {
			t.Errorf("unexpected message: %v", resp["message"])
		}
		if store.restaurants[0].ID != before {
			t.Error("existing catalog must not be replaced")
		}
	})

	t.Run("detail and menu", func(t *testing.T) {
		id := store.restaurants[0].ID

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants/"+id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants/"+id+"/menu", nil))
		var menu []domain.MenuItem
		if err := json.Unmarshal(rec.Body.Bytes(), &menu); err != nil {
			t.Fatalf("failed to decode menu: %v", err)
		}
		if len(menu) != 6 {
			t.Errorf("expected 6 menu items, got %d", len(menu))
		}
	})
}

func TestHandler_Get_NotFound(t *testing.T) {
	mux := newMux(&fakeStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestHandler_List_PassesFilters(t *testing.T) {
	store := &fakeStore{}
	mux := newMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants?search=grill&cuisine=Nigerian", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if store.lastSearch != "grill" || store.lastCuisine != "Nigerian" {
		t.Errorf("filters not forwarded: search=%q cuisine=%q", store.lastSearch, store.lastCuisine)
	}
}

func TestSeedData(t *testing.T) {
	restaurants, items := SeedData()

	ids := map[string]bool{}
	for _, r := range restaurants {
		ids[r.ID] = true
	}
	if len(ids) != len(restaurants) {
		t.Error("restaurant ids must be unique")
	}

	for _, item := range items {
		if !ids[item.RestaurantID] {
			t.Errorf("menu item %s points at unknown restaurant %s", item.Name, item.RestaurantID)
		}
		if !item.Price.IsPositive() {
			t.Errorf("menu item %s has non-positive price", item.Name)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("unexpected escape: %s", got)
	}
}
