package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/httpjson"
)

type Store interface {
	Create(ctx context.Context, review *domain.Review) error
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
	ListForRestaurant(ctx context.Context, restaurantID string) ([]domain.Review, error)
}

type OrderLookup interface {
	GetForUser(ctx context.Context, id, userID string) (*domain.Order, error)
}

type Handler struct {
	store  Store
	orders OrderLookup
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(store Store, orders OrderLookup, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		orders: orders,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type createReviewRequest struct {
	RestaurantID string  `json:"restaurant_id" validate:"required"`
	OrderID      string  `json:"order_id" validate:"required"`
	Rating       int     `json:"rating" validate:"min=1,max=5"`
	Comment      *string `json:"comment" validate:"omitempty,max=2000"`
}

// HandleCreate accepts one review per delivered order of the caller.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req createReviewRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to decode review")
		return
	}

	review, err := h.create(r.Context(), user, req)
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to create review")
		return
	}

	h.logger.Info("review created", "review_id", review.ID, "order_id", review.OrderID, "rating", review.Rating)
	httpjson.Write(w, h.logger, http.StatusOK, review)
}

func (h *Handler) create(ctx context.Context, user *domain.User, req createReviewRequest) (*domain.Review, error) {
	order, err := h.orders.GetForUser(ctx, req.OrderID, user.ID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: can only review delivered orders", domain.ErrInvalid)
	}
	if order.RestaurantID != req.RestaurantID {
		return nil, fmt.Errorf("%w: restaurant does not match order", domain.ErrInvalid)
	}

	exists, err := h.store.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: order already reviewed", domain.ErrConflict)
	}

	review := &domain.Review{
		UserID:       user.ID,
		UserName:     user.Name,
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		Rating:       req.Rating,
		Comment:      req.Comment,
		CreatedAt:    h.now(),
	}
	if err := h.store.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (h *Handler) HandleListForRestaurant(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListForRestaurant(r.Context(), r.PathValue("id"))
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to list reviews")
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, reviews)
}
