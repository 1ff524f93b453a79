package worker

import (
	"context"
	"fmt"
	"time"

	"tienda-service/internal/broker"
	"tienda-service/internal/models"
	"tienda-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventLog remembers which events were already projected
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ProductLister lists the products to mirror at startup
type ProductLister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// Projection is the read-side cache kept in step with inventory events
type Projection interface {
	SetStock(ctx context.Context, productID int64, stock int, at time.Time) (bool, error)
	InvalidateDashboard(ctx context.Context) error
}

// ProjectionWorker consumes inventory events and updates the stock mirror
// and dashboard cache
type ProjectionWorker struct {
	consumer          *broker.Consumer
	eventHandler      *broker.EventHandler
	events            EventLog
	projection        Projection
	lowStockThreshold int
	logger            *zap.Logger
}

// NewProjectionWorker creates a new projection worker
func NewProjectionWorker(
	consumer *broker.Consumer,
	events EventLog,
	projection Projection,
	lowStockThreshold int,
) *ProjectionWorker {
	w := &ProjectionWorker{
		consumer:          consumer,
		eventHandler:      broker.NewEventHandler(),
		events:            events,
		projection:        projection,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}

	w.eventHandler.OnStockReceived(func(ctx context.Context, e *models.StockReceivedEvent) error {
		return w.project(ctx, e.BaseEvent, e.ProductID, &e.StockAfter)
	})
	w.eventHandler.OnSaleRecorded(func(ctx context.Context, e *models.SaleRecordedEvent) error {
		return w.project(ctx, e.BaseEvent, e.ProductID, &e.StockAfter)
	})
	w.eventHandler.OnRecordDeleted(func(ctx context.Context, e *models.RecordDeletedEvent) error {
		return w.project(ctx, e.BaseEvent, e.ProductID, nil)
	})

	return w
}

// Start starts the worker
func (w *ProjectionWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting projection worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *ProjectionWorker) Stop() error {
	w.logger.Info("Stopping projection worker")
	return w.consumer.Close()
}

// HandleMessage projects a single Kafka message
func (w *ProjectionWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return w.eventHandler.HandleMessage(ctx, msg)
}

// project applies one event. stockAfter is nil for events that do not
// move stock.
func (w *ProjectionWorker) project(ctx context.Context, base models.BaseEvent, productID int64, stockAfter *int) error {
	ctx, span := util.StartSpan(ctx, "ProjectionWorker.project")
	defer span.End()

	processed, err := w.events.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if processed {
		w.logger.Debug("Event already projected", zap.String("event_id", base.EventID))
		return nil
	}

	if stockAfter != nil {
		applied, err := w.projection.SetStock(ctx, productID, *stockAfter, base.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to mirror stock: %w", err)
		}
		if !applied {
			w.logger.Debug("Ignored stale stock update",
				zap.String("event_id", base.EventID),
				zap.Int64("product_id", productID))
		}

		if *stockAfter <= w.lowStockThreshold {
			util.LowStockEventsTotal.Inc()
			w.logger.Warn("Product stock is low",
				zap.Int64("product_id", productID),
				zap.Int("stock", *stockAfter),
				zap.Int("threshold", w.lowStockThreshold))
		}
	}

	if err := w.projection.InvalidateDashboard(ctx); err != nil {
		w.logger.Warn("Failed to invalidate dashboard cache", zap.Error(err))
	}

	return w.events.MarkEventProcessed(ctx, base.EventID, base.EventType)
}

// SyncStockMirror writes the current stock of every product to the mirror
func SyncStockMirror(ctx context.Context, products ProductLister, projection Projection) error {
	list, err := products.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	now := time.Now()
	for _, p := range list {
		if _, err := projection.SetStock(ctx, p.ID, p.Stock, now); err != nil {
			return fmt.Errorf("failed to sync product %d: %w", p.ID, err)
		}
	}

	util.GetLogger().Info("Stock mirror synced", zap.Int("products", len(list)))
	return nil
}
