package reviews

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/postgres"
)

const restaurantListLimit = 100

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create stores the review and refreshes the restaurant's average rating in
// the same transaction. A second review for an order is a conflict.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	review.ID = uuid.New().String()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reviews (id, user_id, user_name, restaurant_id, order_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, review.ID, review.UserID, review.UserName, review.RestaurantID, review.OrderID,
		review.Rating, review.Comment, review.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "reviews_order_id_key") {
			return fmt.Errorf("%w: order already reviewed", domain.ErrConflict)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE restaurants
		SET rating = (SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE restaurant_id = $1)
		WHERE id = $1
	`, review.RestaurantID)
	if err != nil {
		return fmt.Errorf("update restaurant rating: %w", err)
	}

	return tx.Commit()
}

// ExistsForOrder reports whether the order already has a review.
func (r *ReviewRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE order_id = $1)`, orderID).Scan(&exists)
	return exists, err
}

// ListForRestaurant returns the newest reviews first.
func (r *ReviewRepository) ListForRestaurant(ctx context.Context, restaurantID string) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, user_name, restaurant_id, order_id, rating, comment, created_at
		FROM reviews
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, restaurantID, restaurantListLimit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.UserName, &rv.RestaurantID, &rv.OrderID,
			&rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
