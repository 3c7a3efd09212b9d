// Package realtime fans order changes out to connected admin dashboards.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"produce-market/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const OrdersChannel = "orders:events"

// Event types
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

type Event struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	At            time.Time `json:"at"`
}

func NewOrderEvent(eventType string, order *domain.Order, at time.Time) Event {
	return Event{
		Type:          eventType,
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		At:            at.UTC(),
	}
}

// Hub publishes events and lets readers subscribe to them
type Hub interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
}

type RedisHub struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisHub(client *redis.Client, logger *zap.Logger) *RedisHub {
	return &RedisHub{client: client, logger: logger}
}

func (h *RedisHub) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := h.client.Publish(ctx, OrdersChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of events that is closed when ctx ends.
func (h *RedisHub) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := h.client.Subscribe(ctx, OrdersChannel)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", OrdersChannel, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					h.logger.Warn("Skipping malformed order event", zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NoopHub drops published events. Subscribers see a stream with no events
// until their context ends.
type NoopHub struct{}

func (NoopHub) Publish(context.Context, Event) error { return nil }

func (NoopHub) Subscribe(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
