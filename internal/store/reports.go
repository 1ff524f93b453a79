package store

import (
	"context"
	"time"

	"tienda-service/internal/models"
)

// DailyRevenue sums unit_price * quantity per calendar day in the given
// IANA timezone for sales created at or after since
func (s *Store) DailyRevenue(ctx context.Context, since time.Time, timezone string) ([]models.DailyRevenue, error) {
	query := `
		SELECT (created_at AT TIME ZONE $2)::date AS day,
		       COALESCE(SUM(unit_price * quantity), 0) AS revenue
		FROM sales
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day`

	rows := []models.DailyRevenue{}
	err := s.db.SelectContext(ctx, &rows, query, since, timezone)
	return rows, classify(err)
}

// ProductSalesSince aggregates quantity and revenue per product for sales
// created at or after since, best sellers first
func (s *Store) ProductSalesSince(ctx context.Context, since time.Time) ([]models.ProductSales, error) {
	query := `
		SELECT p.id AS product_id, p.name, p.price,
		       COALESCE(SUM(s.quantity), 0) AS quantity,
		       COALESCE(SUM(s.unit_price * s.quantity), 0) AS revenue
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.created_at >= $1
		GROUP BY p.id, p.name, p.price
		ORDER BY quantity DESC, p.id`

	rows := []models.ProductSales{}
	err := s.db.SelectContext(ctx, &rows, query, since)
	return rows, classify(err)
}

// CountSalesSince returns the number of sales created at or after since
func (s *Store) CountSalesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM sales WHERE created_at >= $1", since)
	return n, classify(err)
}
