package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// OrderItem is a point-in-time copy of a menu item. It never follows later
// menu price or name changes.
type OrderItem struct {
	MenuItemID string          `json:"menu_item_id" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity" validate:"min=1,max=10000"`
}

type Order struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	UserName         string            `json:"user_name"`
	RestaurantID     string            `json:"restaurant_id"`
	RestaurantName   string            `json:"restaurant_name"`
	Items            []OrderItem       `json:"items"`
	Total            decimal.Decimal   `json:"total"`
	Status           OrderStatus       `json:"status"`
	PaymentStatus    PaymentStatus     `json:"payment_status"`
	PaymentReference *string           `json:"payment_reference"`
	DeliveryAddress  map[string]string `json:"delivery_address"`
	Notes            *string           `json:"notes"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// OrderTotal sums price*quantity over the given items. It is computed once,
// when the order is created.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// MaxAmount is the largest price or total a NUMERIC(12,2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// ValidateItems rejects prices and totals the orders schema cannot store
// exactly: negative amounts, more than two decimal places, or values above
// MaxAmount.
func ValidateItems(items []OrderItem) error {
	for i, item := range items {
		switch {
		case item.Price.IsNegative():
			return fmt.Errorf("%w: items[%d].price must not be negative", ErrInvalid, i)
		case item.Price.Exponent() < -2 && !item.Price.Equal(item.Price.Round(2)):
			return fmt.Errorf("%w: items[%d].price must have at most 2 decimal places", ErrInvalid, i)
		case item.Price.GreaterThan(MaxAmount):
			return fmt.Errorf("%w: items[%d].price is too large", ErrInvalid, i)
		}
	}
	if OrderTotal(items).GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: order total is too large", ErrInvalid)
	}
	return nil
}
