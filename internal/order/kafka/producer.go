package kafka

import (
	"context"
	"time"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// OrderEvents streams order lifecycle events, keyed by order id.
type OrderEvents struct {
	publisher Publisher
	topics    config.TopicConfig
	logger    *logger.Logger
	now       func() time.Time
}

func NewOrderEvents(publisher Publisher, topics config.TopicConfig, log *logger.Logger) *OrderEvents {
	return &OrderEvents{
		publisher: publisher,
		topics:    topics,
		logger:    log,
		now:       time.Now,
	}
}

// OrderCreated publishes a freshly committed order
func (e *OrderEvents) OrderCreated(ctx context.Context, order models.Order) error {
	event := models.OrderEvent{
		Type:       models.OrderEventCreated,
		OrderID:    order.OrderID,
		UserID:     order.UserID,
		Status:     order.Status,
		TotalPrice: order.TotalPrice,
		FinalPrice: order.FinalPrice,
		Timestamp:  e.now().UTC(),
	}
	return e.publisher.Publish(ctx, e.topics.OrderCreated, order.OrderID, event)
}

// StatusChanged publishes a committed status transition
func (e *OrderEvents) StatusChanged(ctx context.Context, order models.Order, previous models.OrderStatus) error {
	event := models.OrderEvent{
		Type:           models.OrderEventStatusChanged,
		OrderID:        order.OrderID,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalPrice:     order.TotalPrice,
		FinalPrice:     order.FinalPrice,
		Timestamp:      e.now().UTC(),
	}
	return e.publisher.Publish(ctx, e.topics.OrderStatusChanged, order.OrderID, event)
}

// Noop is used when Kafka is disabled.
type Noop struct{}

func (Noop) OrderCreated(context.Context, models.Order) error { return nil }

func (Noop) StatusChanged(context.Context, models.Order, models.OrderStatus) error { return nil }
