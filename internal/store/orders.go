package store

import (
	"context"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"
)

// OrdersByUser retrieves a user's order history with product names joined,
// oldest first
func (s *Store) OrdersByUser(ctx context.Context, userID int64) ([]models.OrderHistoryEntry, error) {
	var orders []models.OrderHistoryEntry
	err := s.db.SelectContext(ctx, &orders, `
		SELECT orders.id, orders.product_id, orders.quantity, orders.order_time,
		       products.name AS product_name
		FROM orders
		JOIN products ON orders.product_id = products.id
		WHERE orders.user_id = $1
		ORDER BY orders.id`, userID)
	return orders, err
}
