package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tienda-service/internal/models"
	"tienda-service/internal/store"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory store whose transactions are fully serialized.
// Writes made inside WithTx become visible only when fn returns nil.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	products  map[int64]models.Product
	customers map[int64]models.Customer
	entries   []models.StockEntry
	sales     []models.Sale
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[int64]models.Product),
		customers: make(map[int64]models.Customer),
	}
}

func (m *memStore) addProduct(price string, stock int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.products[m.nextID] = models.Product{
		ID:    m.nextID,
		Name:  fmt.Sprintf("product-%d", m.nextID),
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	return m.nextID
}

func (m *memStore) addCustomer() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.customers[m.nextID] = models.Customer{ID: m.nextID, FirstName: "Ana", LastName: "Ruiz"}
	return m.nextID
}

func (m *memStore) product(id int64) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *memStore) setPrice(id int64, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Price = decimal.RequireFromString(price)
	m.products[id] = p
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m, products: make(map[int64]models.Product, len(m.products))}
	for id, p := range m.products {
		tx.products[id] = p
	}

	if err := fn(tx); err != nil {
		return err
	}

	m.products = tx.products
	m.entries = append(m.entries, tx.entries...)
	m.sales = append(m.sales, tx.sales...)
	return nil
}

func (m *memStore) ListStockEntries(ctx context.Context) ([]models.StockEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StockEntry{}, m.entries...), nil
}

func (m *memStore) GetStockEntry(ctx context.Context, id int64) (*models.StockEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("stock entry %d: %w", id, models.ErrNotFound)
}

func (m *memStore) DeleteStockEntry(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("stock entry %d: %w", id, models.ErrNotFound)
}

func (m *memStore) ListSales(ctx context.Context) ([]models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Sale{}, m.sales...), nil
}

func (m *memStore) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("sale %d: %w", id, models.ErrNotFound)
}

func (m *memStore) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.IdempotencyKey != nil && *s.IdempotencyKey == key {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memStore) DeleteSale(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sales {
		if s.ID == id {
			m.sales = append(m.sales[:i], m.sales[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("sale %d: %w", id, models.ErrNotFound)
}

// memTx runs with memStore.mu held
type memTx struct {
	m        *memStore
	products map[int64]models.Product
	entries  []models.StockEntry
	sales    []models.Sale
}

func (t *memTx) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := t.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (t *memTx) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, ok := t.m.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %d: %w", id, models.ErrNotFound)
	}
	return &c, nil
}

func (t *memTx) CreateStockEntry(ctx context.Context, entry *models.StockEntry) error {
	t.m.nextID++
	entry.ID = t.m.nextID
	entry.CreatedAt = time.Now()
	t.entries = append(t.entries, *entry)
	return nil
}

func (t *memTx) CreateSale(ctx context.Context, sale *models.Sale) error {
	if sale.IdempotencyKey != nil {
		for _, existing := range [][]models.Sale{t.m.sales, t.sales} {
			for _, s := range existing {
				if s.IdempotencyKey != nil && *s.IdempotencyKey == *sale.IdempotencyKey {
					return fmt.Errorf("%w: duplicate idempotency key", models.ErrConflict)
				}
			}
		}
	}
	t.m.nextID++
	sale.ID = t.m.nextID
	sale.CreatedAt = time.Now()
	t.sales = append(t.sales, *sale)
	return nil
}

func (t *memTx) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	p, ok := t.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", models.ErrValidation)
	}
	p.Stock = stock
	t.products[productID] = p
	return nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu       sync.Mutex
	received []*models.StockReceivedEvent
	sold     []*models.SaleRecordedEvent
	deleted  []*models.RecordDeletedEvent
	err      error
}

func (p *recordingPublisher) PublishStockReceived(ctx context.Context, event *models.StockReceivedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, event)
	return p.err
}

func (p *recordingPublisher) PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sold = append(p.sold, event)
	return p.err
}

func (p *recordingPublisher) PublishRecordDeleted(ctx context.Context, event *models.RecordDeletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, event)
	return p.err
}
