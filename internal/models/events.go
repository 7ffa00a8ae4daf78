package models

import "time"

// Event types published to the broker for downstream consumers
const (
	EventTypeOrderPlaced  = "ORDER_PLACED"
	EventTypeStockChanged = "STOCK_CHANGED"
)

// BaseEvent contains common fields for all broker events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published once per successful checkout
type OrderPlacedEvent struct {
	BaseEvent
	UserID int64      `json:"user_id"`
	Items  []CartLine `json:"items"`
}

// StockChangedEvent is published once per product touched by a checkout
type StockChangedEvent struct {
	BaseEvent
	ProductID int64 `json:"product_id"`
	NewStock  int   `json:"new_stock"`
}
