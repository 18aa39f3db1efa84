package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

const (
	restaurantListLimit = 100
	menuListLimit       = 200
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const restaurantColumns = `id, name, description, cuisine_type, rating, image, delivery_time, min_order, is_open`

func scanRestaurant(row interface{ Scan(...any) error }) (domain.Restaurant, error) {
	var rest domain.Restaurant
	err := row.Scan(&rest.ID, &rest.Name, &rest.Description, &rest.CuisineType, &rest.Rating,
		&rest.Image, &rest.DeliveryTime, &rest.MinOrder, &rest.IsOpen)
	return rest, err
}

// ListRestaurants filters by a case-insensitive substring of name or
// description and by exact cuisine type. Empty filters match everything.
func (r *CatalogRepository) ListRestaurants(ctx context.Context, search, cuisine string) ([]domain.Restaurant, error) {
	var (
		conds []string
		args  []any
	)
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if cuisine != "" {
		args = append(args, cuisine)
		conds = append(conds, fmt.Sprintf("cuisine_type = $%d", len(args)))
	}

	query := `SELECT ` + restaurantColumns + ` FROM restaurants`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY name LIMIT %d", restaurantListLimit)

	return r.queryRestaurants(ctx, query, args...)
}

func (r *CatalogRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Restaurant, error) {
	return r.queryRestaurants(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE id = ANY($1)
		ORDER BY name
		LIMIT 100
	`, pq.Array(ids))
}

func (r *CatalogRepository) queryRestaurants(ctx context.Context, query string, args ...any) ([]domain.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query restaurants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	restaurants := []domain.Restaurant{}
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, rest)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return restaurants, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (*domain.Restaurant, error) {
	rest, err := scanRestaurant(r.db.QueryRowContext(ctx, `
		SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: restaurant not found", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	return &rest, nil
}

func (r *CatalogRepository) Menu(ctx context.Context, restaurantID string) ([]domain.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, description, price, category, image, available
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY category, name
		LIMIT $2
	`, restaurantID, menuListLimit)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []domain.MenuItem{}
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.RestaurantID, &item.Name, &item.Description,
			&item.Price, &item.Category, &item.Image, &item.Available); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// UpdateMenuItemPrice changes a live menu price. Existing orders keep the
// price they were placed with.
func (r *CatalogRepository) UpdateMenuItemPrice(ctx context.Context, id string, price decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx, `UPDATE menu_items SET price = $2 WHERE id = $1`, id, price)
	if err != nil {
		return fmt.Errorf("update menu price: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: menu item not found", domain.ErrNotFound)
	}
	return nil
}

// Seed inserts the reference data inside one transaction, but only when the
// restaurants table is empty. It reports whether anything was inserted.
func (r *CatalogRepository) Seed(ctx context.Context, restaurants []domain.Restaurant, items []domain.MenuItem) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	// serialize concurrent seed calls so the emptiness check holds
	if _, err := tx.ExecContext(ctx, `LOCK TABLE restaurants IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return false, fmt.Errorf("lock restaurants: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants`).Scan(&count); err != nil {
		return false, fmt.Errorf("count restaurants: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	for _, rest := range restaurants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO restaurants (`+restaurantColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, rest.ID, rest.Name, rest.Description, rest.CuisineType, rest.Rating,
			rest.Image, rest.DeliveryTime, rest.MinOrder, rest.IsOpen)
		if err != nil {
			return false, fmt.Errorf("insert restaurant %s: %w", rest.Name, err)
		}
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO menu_items (id, restaurant_id, name, description, price, category, image, available)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, item.ID, item.RestaurantID, item.Name, item.Description, item.Price,
			item.Category, item.Image, item.Available)
		if err != nil {
			return false, fmt.Errorf("insert menu item %s: %w", item.Name, err)
		}
	}

	return true, tx.Commit()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
