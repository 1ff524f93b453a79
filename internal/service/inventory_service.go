package service

import (
	"context"
	"fmt"
	"time"

	"tienda-service/internal/models"
	"tienda-service/internal/store"
	"tienda-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockEntryStore is the storage used by InventoryService
type StockEntryStore interface {
	TxRunner
	ListStockEntries(ctx context.Context) ([]models.StockEntry, error)
	GetStockEntry(ctx context.Context, id int64) (*models.StockEntry, error)
	DeleteStockEntry(ctx context.Context, id int64) error
}

// InventoryService records stock receipts
type InventoryService struct {
	store  StockEntryStore
	events EventPublisher
	logger *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store StockEntryStore, events EventPublisher) *InventoryService {
	return &InventoryService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// ReceiveStockRequest represents inventory received for one product
type ReceiveStockRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
}

// ReceiveStock persists a stock entry and adds its quantity to the
// product's stock in the same transaction
func (s *InventoryService) ReceiveStock(ctx context.Context, req *ReceiveStockRequest) (*models.StockEntry, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReceiveStock")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockTxLatency.WithLabelValues("receive").Observe(time.Since(start).Seconds())
	}()

	if req.Quantity < 1 {
		util.StockReceiptsFailedTotal.WithLabelValues("validation").Inc()
		return nil, invalid("quantity must be at least 1, got %d", req.Quantity)
	}

	var (
		entry      *models.StockEntry
		stockAfter int
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		product, err := tx.GetProductForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}

		entry = &models.StockEntry{
			ProductID: product.ID,
			Quantity:  req.Quantity,
			Note:      req.Note,
		}
		if err := tx.CreateStockEntry(ctx, entry); err != nil {
			return err
		}

		stockAfter = product.Stock + req.Quantity
		return tx.UpdateProductStock(ctx, product.ID, stockAfter)
	})
	if err != nil {
		util.StockReceiptsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		util.FailSpan(span, err)
		return nil, fmt.Errorf("receive stock: %w", err)
	}

	util.StockReceiptsTotal.Inc()
	util.UnitsReceivedTotal.Add(float64(entry.Quantity))
	s.logger.Info("Stock received",
		zap.Int64("stock_entry_id", entry.ID),
		zap.Int64("product_id", entry.ProductID),
		zap.Int("quantity", entry.Quantity),
		zap.Int("stock_after", stockAfter))

	event := &models.StockReceivedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockReceived,
			Timestamp: time.Now(),
		},
		StockEntryID: entry.ID,
		ProductID:    entry.ProductID,
		Quantity:     entry.Quantity,
		StockAfter:   stockAfter,
		Note:         entry.Note,
	}
	if err := s.events.PublishStockReceived(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockReceived event", zap.Error(err))
	}

	return entry, nil
}

// ListStockEntries returns all stock entries, newest first
func (s *InventoryService) ListStockEntries(ctx context.Context) ([]models.StockEntry, error) {
	return s.store.ListStockEntries(ctx)
}

// DeleteStockEntry removes a stock entry. The stock it added stays on
// the product.
func (s *InventoryService) DeleteStockEntry(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.DeleteStockEntry")
	defer span.End()

	entry, err := s.store.GetStockEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteStockEntry(ctx, id); err != nil {
		return err
	}

	s.logger.Warn("Stock entry deleted without reversing stock",
		zap.Int64("stock_entry_id", entry.ID),
		zap.Int64("product_id", entry.ProductID),
		zap.Int("quantity", entry.Quantity))

	event := &models.RecordDeletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockEntryDeleted,
			Timestamp: time.Now(),
		},
		RecordID:  entry.ID,
		ProductID: entry.ProductID,
		Quantity:  entry.Quantity,
	}
	if err := s.events.PublishRecordDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockEntryDeleted event", zap.Error(err))
	}

	return nil
}
