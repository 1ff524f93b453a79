package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"tienda-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Tx is the set of operations that run inside a stock transaction
type Tx interface {
	GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	CreateStockEntry(ctx context.Context, entry *models.StockEntry) error
	CreateSale(ctx context.Context, sale *models.Sale) error
	UpdateProductStock(ctx context.Context, productID int64, stock int) error
}

// WithTx runs fn in a single transaction. Any error returned by fn rolls
// the transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}

	return classify(tx.Commit())
}

// classify maps driver errors onto the domain sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
		case "23503", "23505":
			return fmt.Errorf("%w: %s", models.ErrConflict, pqErr.Message)
		case "23514", "22003":
			return fmt.Errorf("%w: %s", models.ErrValidation, pqErr.Message)
		}
		if pqErr.Code.Class() == "08" {
			return fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
		}
	}

	return err
}

// checkAffected turns a zero-row write into ErrNotFound
func checkAffected(res sql.Result, err error, what string, id int64) error {
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, models.ErrNotFound)
	}
	return nil
}
