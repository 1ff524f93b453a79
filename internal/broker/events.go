package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"tienda-service/internal/models"
	"tienda-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing inventory events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// ProductKey is the partition key of every event about a product
func ProductKey(productID int64) string {
	return fmt.Sprintf("product-%d", productID)
}

// PublishStockReceived publishes StockReceived event
func (ep *EventPublisher) PublishStockReceived(ctx context.Context, event *models.StockReceivedEvent) error {
	return ep.producer.PublishEvent(ctx, ProductKey(event.ProductID), event)
}

// PublishSaleRecorded publishes SaleRecorded event
func (ep *EventPublisher) PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, ProductKey(event.ProductID), event)
}

// PublishRecordDeleted publishes StockEntryDeleted or SaleDeleted events
func (ep *EventPublisher) PublishRecordDeleted(ctx context.Context, event *models.RecordDeletedEvent) error {
	return ep.producer.PublishEvent(ctx, ProductKey(event.ProductID), event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onStockReceived func(context.Context, *models.StockReceivedEvent) error
	onSaleRecorded  func(context.Context, *models.SaleRecordedEvent) error
	onRecordDeleted func(context.Context, *models.RecordDeletedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnStockReceived registers a handler for StockReceived events
func (eh *EventHandler) OnStockReceived(handler func(context.Context, *models.StockReceivedEvent) error) {
	eh.onStockReceived = handler
}

// OnSaleRecorded registers a handler for SaleRecorded events
func (eh *EventHandler) OnSaleRecorded(handler func(context.Context, *models.SaleRecordedEvent) error) {
	eh.onSaleRecorded = handler
}

// OnRecordDeleted registers a handler for both deletion events
func (eh *EventHandler) OnRecordDeleted(handler func(context.Context, *models.RecordDeletedEvent) error) {
	eh.onRecordDeleted = handler
}

// HandleMessage routes messages to appropriate handlers. Unknown event
// types are acknowledged and skipped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeStockReceived:
		if eh.onStockReceived != nil {
			var event models.StockReceivedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockReceived event: %w", err)
			}
			return eh.onStockReceived(ctx, &event)
		}

	case models.EventTypeSaleRecorded:
		if eh.onSaleRecorded != nil {
			var event models.SaleRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleRecorded event: %w", err)
			}
			return eh.onSaleRecorded(ctx, &event)
		}

	case models.EventTypeStockEntryDeleted, models.EventTypeSaleDeleted:
		if eh.onRecordDeleted != nil {
			var event models.RecordDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onRecordDeleted(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
