package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tienda-service/internal/models"
)

// ListCustomers retrieves all customers, newest first
func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	customers := []models.Customer{}
	err := s.db.SelectContext(ctx, &customers, "SELECT * FROM customers ORDER BY id DESC")
	return customers, classify(err)
}

// GetCustomer retrieves a customer by ID
func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &customer, nil
}

// CreateCustomer creates a new customer
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (first_name, last_name, address, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return classify(s.db.GetContext(ctx, c, query, c.FirstName, c.LastName, c.Address, c.Phone))
}

// UpdateCustomer updates a customer
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE customers SET first_name = $1, last_name = $2, address = $3, phone = $4 WHERE id = $5",
		c.FirstName, c.LastName, c.Address, c.Phone, c.ID)
	return checkAffected(res, err, "customer", c.ID)
}

// DeleteCustomer deletes a customer. Their sales survive with no customer.
func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM customers WHERE id = $1", id)
	return checkAffected(res, err, "customer", id)
}

// CountCustomers returns the number of customers
func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM customers")
	return n, classify(err)
}

// ListUsers retrieves all users, newest first
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY id DESC")
	return users, classify(err)
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, nil if absent
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

// CreateUser creates a new user. Duplicate emails fail with ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, first_name, last_name, role, is_staff, is_active, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return classify(s.db.GetContext(ctx, u, query,
		u.Email, u.FirstName, u.LastName, u.Role, u.IsStaff, u.IsActive, u.ImageURL))
}

// UpdateUser updates a user
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, role = $4, is_staff = $5, is_active = $6, image_url = $7
		WHERE id = $8`,
		u.Email, u.FirstName, u.LastName, u.Role, u.IsStaff, u.IsActive, u.ImageURL, u.ID)
	return checkAffected(res, err, "user", u.ID)
}

// DeleteUser deletes a user
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	return checkAffected(res, err, "user", id)
}
