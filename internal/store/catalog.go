package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tienda-service/internal/models"
)

// ListCategories retrieves all categories ordered by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name, id")
	return categories, classify(err)
}

// GetCategory retrieves a category by ID
func (s *Store) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &category, nil
}

// CreateCategory creates a new category
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at`

	return classify(s.db.GetContext(ctx, category, query, category.Name, category.Description))
}

// UpdateCategory updates name and description
func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = $1, description = $2 WHERE id = $3",
		category.Name, category.Description, category.ID)
	return checkAffected(res, err, "category", category.ID)
}

// DeleteCategory deletes a category. Fails with ErrConflict while products
// still reference it.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	return checkAffected(res, err, "category", id)
}

// ListProducts retrieves all products, newest first
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id DESC")
	return products, classify(err)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// CreateProduct creates a product with zero stock
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, image_url, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, stock, created_at`

	return classify(s.db.GetContext(ctx, product, query,
		product.Name, product.Description, product.Price, product.ImageURL, product.CategoryID))
}

// UpdateProduct updates the editable product fields. Stock is not one of them.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, image_url = $4, category_id = $5
		WHERE id = $6
		RETURNING stock, created_at`

	err := s.db.GetContext(ctx, product, query,
		product.Name, product.Description, product.Price, product.ImageURL, product.CategoryID, product.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %d: %w", product.ID, models.ErrNotFound)
	}
	return classify(err)
}

// DeleteProduct deletes a product and its stock entries. Fails with
// ErrConflict while sales reference it.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	return checkAffected(res, err, "product", id)
}
