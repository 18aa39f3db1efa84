package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/httpjson"
)

type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetForUser(ctx context.Context, id, userID string) (*domain.Order, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, status string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

type RestaurantLookup interface {
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
}

// Publisher is satisfied by messaging.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	store       Store
	restaurants RestaurantLookup
	publisher   Publisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler builds the order handlers. publisher may be nil when Kafka is
// not configured.
func NewHandler(store Store, restaurants RestaurantLookup, publisher Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		store:       store,
		restaurants: restaurants,
		publisher:   publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type createOrderRequest struct {
	RestaurantID    string             `json:"restaurant_id" validate:"required"`
	Items           []domain.OrderItem `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress map[string]string  `json:"delivery_address"`
	Notes           *string            `json:"notes"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req createOrderRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to decode order")
		return
	}
	if err := domain.ValidateItems(req.Items); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "invalid order items")
		return
	}

	restaurant, err := h.restaurants.Get(r.Context(), req.RestaurantID)
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to load restaurant")
		return
	}

	address := req.DeliveryAddress
	if address == nil {
		address = map[string]string{}
	}

	now := h.now()
	order := &domain.Order{
		UserID:          user.ID,
		UserName:        user.Name,
		RestaurantID:    restaurant.ID,
		RestaurantName:  restaurant.Name,
		Items:           req.Items,
		Total:           domain.OrderTotal(req.Items),
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		DeliveryAddress: address,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.store.Create(r.Context(), order); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to create order")
		return
	}

	if h.publisher != nil {
		event := domain.OrderCreatedEvent{
			OrderID:      order.ID,
			UserID:       order.UserID,
			RestaurantID: order.RestaurantID,
			Total:        order.Total,
			Timestamp:    order.CreatedAt,
		}
		if err := h.publisher.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order created", "order_id", order.ID, "user_id", order.UserID, "total", order.Total.String())
	httpjson.Write(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	orders, err := h.store.ListForUser(r.Context(), user.ID)
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to list orders")
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	order, err := h.store.GetForUser(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to get order")
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateStatus lets an admin set any status string on an order.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to decode status update")
		return
	}
	status := domain.OrderStatus(strings.TrimSpace(req.Status))
	if status == "" {
		httpjson.WriteError(w, h.logger, http.StatusBadRequest, "status is required")
		return
	}

	if err := h.store.UpdateStatus(r.Context(), id, status); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to update order status")
		return
	}

	h.logger.Info("order status updated", "order_id", id, "status", status)
	httpjson.Write(w, h.logger, http.StatusOK, map[string]any{
		"success": true,
		"status":  status,
	})
}

func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListAll(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to list orders")
		return
	}

	h.logger.Debug("admin orders listed", "count", len(orders))
	httpjson.Write(w, h.logger, http.StatusOK, orders)
}
