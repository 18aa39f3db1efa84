package reviews

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/domain"
)

type memoryStore struct {
	reviews []domain.Review
}

func (m *memoryStore) Create(_ context.Context, review *domain.Review) error {
	for _, rv := range m.reviews {
		if rv.OrderID == review.OrderID {
			return fmt.Errorf("%w: order already reviewed", domain.ErrConflict)
		}
	}
	review.ID = fmt.Sprintf("review-%d", len(m.reviews)+1)
	m.reviews = append(m.reviews, *review)
	return nil
}

func (m *memoryStore) ExistsForOrder(_ context.Context, orderID string) (bool, error) {
	for _, rv := range m.reviews {
		if rv.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) ListForRestaurant(_ context.Context, restaurantID string) ([]domain.Review, error) {
	out := []domain.Review{}
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].RestaurantID == restaurantID {
			out = append(out, m.reviews[i])
		}
	}
	return out, nil
}

type stubOrders map[string]domain.Order

func (s stubOrders) GetForUser(_ context.Context, id, userID string) (*domain.Order, error) {
	o, ok := s[id]
	if !ok || o.UserID != userID {
		return nil, fmt.Errorf("%w: order not found", domain.ErrNotFound)
	}
	return &o, nil
}

var reviewer = &domain.User{ID: "u1", Name: "Ada"}

func postReview(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body))
	req = req.WithContext(auth.WithUser(req.Context(), reviewer))
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)
	return rec
}

func TestHandler_Create_Gate(t *testing.T) {
	orders := stubOrders{
		"delivered": {ID: "delivered", UserID: "u1", RestaurantID: "r1", Status: domain.OrderStatusDelivered},
		"confirmed": {ID: "confirmed", UserID: "u1", RestaurantID: "r1", Status: domain.OrderStatusConfirmed},
		"Delivered": {ID: "Delivered", UserID: "u1", RestaurantID: "r1", Status: "Delivered"},
		"foreign":   {ID: "foreign", UserID: "u2", RestaurantID: "r1", Status: domain.OrderStatusDelivered},
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"delivered order", `{"restaurant_id":"r1","order_id":"delivered","rating":5,"comment":"great"}`, http.StatusOK, ""},
		{"not delivered", `{"restaurant_id":"r1","order_id":"confirmed","rating":4}`, http.StatusBadRequest, "can only review delivered orders"},
		{"status match is exact", `{"restaurant_id":"r1","order_id":"Delivered","rating":4}`, http.StatusBadRequest, "can only review delivered orders"},
		{"someone else's order", `{"restaurant_id":"r1","order_id":"foreign","rating":4}`, http.StatusNotFound, "order not found"},
		{"restaurant mismatch", `{"restaurant_id":"r2","order_id":"delivered","rating":4}`, http.StatusBadRequest, "restaurant does not match order"},
		{"rating too high", `{"restaurant_id":"r1","order_id":"delivered","rating":6}`, http.StatusBadRequest, "rating must be at most 5"},
		{"rating too low", `{"restaurant_id":"r1","order_id":"delivered","rating":0}`, http.StatusBadRequest, "rating must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			h := NewHandler(store, orders, slog.New(slog.NewTextHandler(io.Discard, nil)))

			rec := postReview(h, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantError != "" && !strings.Contains(rec.Body.String(), tt.wantError) {
				t.Errorf("expected error %q, got %s", tt.wantError, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK && len(store.reviews) != 0 {
				t.Error("rejected review must not be stored")
			}
		})
	}
}

func TestHandler_Create_SecondReviewRejected(t *testing.T) {
	orders := stubOrders{
		"o1": {ID: "o1", UserID: "u1", RestaurantID: "r1", Status: domain.OrderStatusDelivered},
	}
	store := &memoryStore{}
	h := NewHandler(store, orders, slog.New(slog.NewTextHandler(io.Discard, nil)))
	body := `{"restaurant_id":"r1","order_id":"o1","rating":5}`

	if rec := postReview(h, body); rec.Code != http.StatusOK {
		t.Fatalf("first review: expected status 200, got %d", rec.Code)
	}

	rec := postReview(h, body)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "order already reviewed") {
		t.Errorf("second review: expected 400 order already reviewed, got %d %s", rec.Code, rec.Body.String())
	}
	if len(store.reviews) != 1 {
		t.Errorf("expected one stored review, got %d", len(store.reviews))
	}
}

func TestHandler_ListForRestaurant(t *testing.T) {
	store := &memoryStore{reviews: []domain.Review{
		{ID: "a", RestaurantID: "r1"},
		{ID: "b", RestaurantID: "r2"},
		{ID: "c", RestaurantID: "r1"},
	}}
	h := NewHandler(store, stubOrders{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/restaurants/{id}/reviews", h.HandleListForRestaurant)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants/r1/reviews", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Index(body, `"id":"c"`) > strings.Index(body, `"id":"a"`) || strings.Contains(body, `"id":"b"`) {
		t.Errorf("expected r1 reviews newest first, got %s", body)
	}
}
