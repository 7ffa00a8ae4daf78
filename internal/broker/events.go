package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"

	"github.com/google/uuid"
)

// EventPublisher publishes shop domain events for downstream consumers
// (analytics, restocking). Publishing is best effort; callers log failures
// and never fail the triggering request on them.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes one event per successful checkout
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, userID int64, items []models.CartLine) error {
	event := &models.OrderPlacedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderPlaced),
		UserID:    userID,
		Items:     items,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("user-%d", userID), event)
}

// PublishStockChanged publishes one event per product touched by a checkout
func (ep *EventPublisher) PublishStockChanged(ctx context.Context, productID int64, newStock int) error {
	event := &models.StockChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockChanged),
		ProductID: productID,
		NewStock:  newStock,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("product-%d", productID), event)
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
