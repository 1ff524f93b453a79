package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tienda-service/internal/models"
	"tienda-service/internal/store"
	"tienda-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleStore is the storage used by SaleService
type SaleStore interface {
	TxRunner
	ListSales(ctx context.Context) ([]models.Sale, error)
	GetSale(ctx context.Context, id int64) (*models.Sale, error)
	GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	DeleteSale(ctx context.Context, id int64) error
}

// SaleService records sales against product stock
type SaleService struct {
	store  SaleStore
	events EventPublisher
	logger *zap.Logger
}

// NewSaleService creates a new sale service
func NewSaleService(store SaleStore, events EventPublisher) *SaleService {
	return &SaleService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// SellRequest represents a sale of one product, optionally to a customer
type SellRequest struct {
	ProductID      int64  `json:"product_id" binding:"required"`
	CustomerID     *int64 `json:"customer_id"`
	Quantity       int    `json:"quantity"`
	IdempotencyKey string `json:"-"`
}

// Sell records a sale at the product's current price and deducts its
// quantity from stock. The sale and the deduction commit together or not
// at all. The returned bool is false when an earlier sale with the same
// idempotency key is returned instead of a new one.
func (s *SaleService) Sell(ctx context.Context, req *SellRequest) (*models.Sale, bool, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.Sell")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockTxLatency.WithLabelValues("sell").Observe(time.Since(start).Seconds())
	}()

	if req.Quantity < 1 {
		util.SalesRejectedTotal.WithLabelValues("validation").Inc()
		return nil, false, invalid("quantity must be at least 1, got %d", req.Quantity)
	}

	if req.IdempotencyKey != "" {
		existing, err := s.store.GetSaleByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate sale request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("sale_id", existing.ID))
			return existing, false, nil
		}
	}

	var (
		sale       *models.Sale
		stockAfter int
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		product, err := tx.GetProductForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if req.CustomerID != nil {
			if _, err := tx.GetCustomer(ctx, *req.CustomerID); err != nil {
				return err
			}
		}

		sale = &models.Sale{
			ProductID:   product.ID,
			CustomerID:  req.CustomerID,
			Quantity:    req.Quantity,
			UnitPrice:   product.Price,
			TotalAmount: LineTotal(product.Price, req.Quantity),
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			sale.IdempotencyKey = &key
		}
		if err := tx.CreateSale(ctx, sale); err != nil {
			return err
		}

		stockAfter = product.Stock - req.Quantity
		if stockAfter < 0 {
			return fmt.Errorf("product %d has %d in stock, %d requested: %w",
				product.ID, product.Stock, req.Quantity, models.ErrInsufficientStock)
		}
		return tx.UpdateProductStock(ctx, product.ID, stockAfter)
	})
	if err != nil {
		// a concurrent request with the same key won the insert
		if req.IdempotencyKey != "" && errors.Is(err, models.ErrConflict) {
			if existing, lookupErr := s.store.GetSaleByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		util.SalesRejectedTotal.WithLabelValues(failureReason(err)).Inc()
		util.FailSpan(span, err)
		return nil, false, fmt.Errorf("sell: %w", err)
	}

	util.SalesRecordedTotal.Inc()
	util.UnitsSoldTotal.Add(float64(sale.Quantity))
	util.SalesRevenueTotal.Add(sale.TotalAmount.InexactFloat64())
	s.logger.Info("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity),
		zap.String("total_amount", sale.TotalAmount.StringFixed(2)),
		zap.Int("stock_after", stockAfter))

	event := &models.SaleRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleRecorded,
			Timestamp: time.Now(),
		},
		SaleID:      sale.ID,
		ProductID:   sale.ProductID,
		CustomerID:  sale.CustomerID,
		Quantity:    sale.Quantity,
		UnitPrice:   sale.UnitPrice.StringFixed(2),
		TotalAmount: sale.TotalAmount.StringFixed(2),
		StockAfter:  stockAfter,
	}
	if err := s.events.PublishSaleRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleRecorded event", zap.Error(err))
	}

	return sale, true, nil
}

// ListSales returns all sales, newest first
func (s *SaleService) ListSales(ctx context.Context) ([]models.Sale, error) {
	return s.store.ListSales(ctx)
}

// GetSale returns one sale
func (s *SaleService) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	return s.store.GetSale(ctx, id)
}

// DeleteSale removes a sale. The units it took are not returned to stock.
func (s *SaleService) DeleteSale(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "SaleService.DeleteSale")
	defer span.End()

	sale, err := s.store.GetSale(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSale(ctx, id); err != nil {
		return err
	}

	s.logger.Warn("Sale deleted without restoring stock",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity))

	event := &models.RecordDeletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleDeleted,
			Timestamp: time.Now(),
		},
		RecordID:  sale.ID,
		ProductID: sale.ProductID,
		Quantity:  sale.Quantity,
	}
	if err := s.events.PublishRecordDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleDeleted event", zap.Error(err))
	}

	return nil
}
