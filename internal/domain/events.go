package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderCreated     = "order.created"
	TopicPaymentConfirmed = "payment.confirmed"
)

type OrderCreatedEvent struct {
	OrderID      string          `json:"order_id"`
	UserID       string          `json:"user_id"`
	RestaurantID string          `json:"restaurant_id"`
	Total        decimal.Decimal `json:"total"`
	Timestamp    time.Time       `json:"timestamp"`
}

// PaymentConfirmedEvent is published the first time an order moves to paid.
// Source tells which path confirmed it: "verify", "webhook" or "mock".
type PaymentConfirmedEvent struct {
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	UserEmail string          `json:"user_email"`
	Reference string          `json:"reference"`
	Total     decimal.Decimal `json:"total"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}
