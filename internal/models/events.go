package models

import "time"

// Event types
const (
	EventTypeStockReceived     = "STOCK_RECEIVED"
	EventTypeSaleRecorded      = "SALE_RECORDED"
	EventTypeStockEntryDeleted = "STOCK_ENTRY_DELETED"
	EventTypeSaleDeleted       = "SALE_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockReceivedEvent published when a stock entry is recorded
type StockReceivedEvent struct {
	BaseEvent
	StockEntryID int64  `json:"stock_entry_id"`
	ProductID    int64  `json:"product_id"`
	Quantity     int    `json:"quantity"`
	StockAfter   int    `json:"stock_after"`
	Note         string `json:"note,omitempty"`
}

// SaleRecordedEvent published when a sale commits
type SaleRecordedEvent struct {
	BaseEvent
	SaleID      int64  `json:"sale_id"`
	ProductID   int64  `json:"product_id"`
	CustomerID  *int64 `json:"customer_id,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalAmount string `json:"total_amount"`
	StockAfter  int    `json:"stock_after"`
}

// RecordDeletedEvent published when a stock entry or sale is deleted.
// Stock is not adjusted by deletions.
type RecordDeletedEvent struct {
	BaseEvent
	RecordID  int64 `json:"record_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
