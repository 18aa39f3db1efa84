package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/httpjson"
)

type Store interface {
	ListRestaurants(ctx context.Context, search, cuisine string) ([]domain.Restaurant, error)
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
	Menu(ctx context.Context, restaurantID string) ([]domain.MenuItem, error)
	Seed(ctx context.Context, restaurants []domain.Restaurant, items []domain.MenuItem) (bool, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	restaurants, err := h.store.ListRestaurants(r.Context(), query.Get("search"), query.Get("cuisine"))
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to list restaurants")
		return
	}

	h.logger.Debug("restaurants listed", "count", len(restaurants))
	httpjson.Write(w, h.logger, http.StatusOK, restaurants)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	restaurant, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to get restaurant")
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, restaurant)
}

func (h *Handler) HandleMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Menu(r.Context(), r.PathValue("id"))
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to get menu")
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, items)
}

// HandleSeed populates the demo catalog once. Later calls are no-ops.
func (h *Handler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	restaurants, items := SeedData()

	inserted, err := h.store.Seed(r.Context(), restaurants, items)
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to seed catalog")
		return
	}

	if !inserted {
		httpjson.Write(w, h.logger, http.StatusOK, map[string]string{"message": "Database already seeded"})
		return
	}

	h.logger.Info("catalog seeded", "restaurants", len(restaurants), "menu_items", len(items))
	httpjson.Write(w, h.logger, http.StatusOK, map[string]any{
		"message":     "Database seeded successfully",
		"restaurants": len(restaurants),
		"menu_items":  len(items),
	})
}
