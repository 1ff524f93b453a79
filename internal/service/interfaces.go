package service

import (
	"context"

	"tienda-service/internal/models"
	"tienda-service/internal/store"
)

// TxRunner runs a function inside one storage transaction
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx store.Tx) error) error
}

// EventPublisher publishes inventory events after a change commits
type EventPublisher interface {
	PublishStockReceived(ctx context.Context, event *models.StockReceivedEvent) error
	PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error
	PublishRecordDeleted(ctx context.Context, event *models.RecordDeletedEvent) error
}
