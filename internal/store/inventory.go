package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tienda-service/internal/models"

	"github.com/jmoiron/sqlx"
)

type txStore struct {
	tx *sqlx.Tx
}

// GetProductForUpdate reads a product and locks its row until the
// transaction ends
func (t *txStore) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", classify(err))
	}
	return &product, nil
}

// GetCustomer retrieves a customer inside the transaction
func (t *txStore) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := t.tx.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &customer, nil
}

// CreateStockEntry inserts a stock entry
func (t *txStore) CreateStockEntry(ctx context.Context, entry *models.StockEntry) error {
	query := `
		INSERT INTO stock_entries (product_id, quantity, note)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := t.tx.GetContext(ctx, entry, query, entry.ProductID, entry.Quantity, entry.Note)
	if err != nil {
		return fmt.Errorf("failed to insert stock entry: %w", classify(err))
	}
	return nil
}

// CreateSale inserts a sale with its price snapshot and total
func (t *txStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (product_id, customer_id, quantity, unit_price, total_amount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := t.tx.GetContext(ctx, sale, query,
		sale.ProductID, sale.CustomerID, sale.Quantity, sale.UnitPrice, sale.TotalAmount, sale.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", classify(err))
	}
	return nil
}

// UpdateProductStock writes the new stock of a locked product
func (t *txStore) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE products SET stock = $1 WHERE id = $2", stock, productID)
	return checkAffected(res, err, "product", productID)
}

// ListStockEntries retrieves all stock entries, newest first
func (s *Store) ListStockEntries(ctx context.Context) ([]models.StockEntry, error) {
	entries := []models.StockEntry{}
	err := s.db.SelectContext(ctx, &entries, "SELECT * FROM stock_entries ORDER BY id DESC")
	return entries, classify(err)
}

// GetStockEntry retrieves a stock entry by ID
func (s *Store) GetStockEntry(ctx context.Context, id int64) (*models.StockEntry, error) {
	var entry models.StockEntry
	err := s.db.GetContext(ctx, &entry, "SELECT * FROM stock_entries WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock entry %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &entry, nil
}

// DeleteStockEntry removes a stock entry. Product stock is left as is.
func (s *Store) DeleteStockEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM stock_entries WHERE id = $1", id)
	return checkAffected(res, err, "stock entry", id)
}

// ListSales retrieves all sales, newest first
func (s *Store) ListSales(ctx context.Context) ([]models.Sale, error) {
	sales := []models.Sale{}
	err := s.db.SelectContext(ctx, &sales, "SELECT * FROM sales ORDER BY id DESC")
	return sales, classify(err)
}

// GetSale retrieves a sale by ID
func (s *Store) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &sale, nil
}

// GetSaleByIdempotencyKey retrieves a sale by idempotency key, nil if absent
func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &sale, nil
}

// DeleteSale removes a sale. Product stock is left as is.
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sales WHERE id = $1", id)
	return checkAffected(res, err, "sale", id)
}
