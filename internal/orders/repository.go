package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

const (
	userListLimit  = 100
	adminListLimit = 500
)

const orderColumns = `id, user_id, user_name, restaurant_id, restaurant_name, total, status,
	payment_status, payment_reference, delivery_address, notes, created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order and its item snapshot in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	address, err := json.Marshal(order.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("marshal delivery address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, user_name, restaurant_id, restaurant_name, total, status,
			payment_status, payment_reference, delivery_address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, order.ID, order.UserID, order.UserName, order.RestaurantID, order.RestaurantName, order.Total,
		order.Status, order.PaymentStatus, order.PaymentReference, address, order.Notes,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, menu_item_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), order.ID, i, item.MenuItemID, item.Name, item.Price, item.Quantity)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var (
		order   domain.Order
		address []byte
	)
	err := row.Scan(&order.ID, &order.UserID, &order.UserName, &order.RestaurantID, &order.RestaurantName,
		&order.Total, &order.Status, &order.PaymentStatus, &order.PaymentReference, &address, &order.Notes,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return order, err
	}

	order.DeliveryAddress = map[string]string{}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &order.DeliveryAddress); err != nil {
			return order, fmt.Errorf("decode delivery address of order %s: %w", order.ID, err)
		}
	}
	order.Items = []domain.OrderItem{}
	return order, nil
}

// GetByID loads any order regardless of owner. Payment reconciliation uses
// it because the gateway, not the caller, names the order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUser loads an order only if it belongs to userID.
func (r *OrderRepository) GetForUser(ctx context.Context, id, userID string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order not found", domain.ErrNotFound)
		}
		return nil, err
	}

	orders := []domain.Order{order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListForUser returns the caller's orders, newest first.
func (r *OrderRepository) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, userListLimit)
}

// ListAll returns every order, optionally filtered by status.
func (r *OrderRepository) ListAll(ctx context.Context, status string) ([]domain.Order, error) {
	if status == "" {
		return r.list(ctx, `
			SELECT `+orderColumns+` FROM orders
			ORDER BY created_at DESC
			LIMIT $1
		`, adminListLimit)
	}
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, status, adminListLimit)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of every order in a single query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[string]int, len(orders))
	ids := make([]string, 0, len(orders))
	for i, order := range orders {
		index[order.ID] = i
		ids = append(ids, order.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, menu_item_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.MenuItemID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return err
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

// UpdateStatus overwrites the fulfilment status. Any value is accepted.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetPaymentReference stores the reference of the latest initialization,
// replacing any earlier one.
func (r *OrderRepository) SetPaymentReference(ctx context.Context, id, reference string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_reference = $1, updated_at = NOW()
		WHERE id = $2
	`, reference, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// MarkPaid sets payment_status=paid and status=confirmed. The assignment is
// absolute, so repeating it changes nothing. The row is locked while the
// previous payment status is read, which makes alreadyPaid exact even when
// verify and webhook race for the same order.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string) (alreadyPaid bool, err error) {
	var previous domain.PaymentStatus
	err = r.db.QueryRowContext(ctx, `
		UPDATE orders o
		SET payment_status = $2, status = $3, updated_at = NOW()
		FROM (SELECT id, payment_status FROM orders WHERE id = $1 FOR UPDATE) prev
		WHERE o.id = prev.id
		RETURNING prev.payment_status
	`, id, domain.PaymentStatusPaid, domain.OrderStatusConfirmed).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%w: order not found", domain.ErrNotFound)
		}
		return false, err
	}
	return previous == domain.PaymentStatusPaid, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order not found", domain.ErrNotFound)
	}
	return nil
}
