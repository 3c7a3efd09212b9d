package payment

import (
	"encoding/json"
	"fmt"
)

// WebhookEvent is the subset of the gateway's webhook body we act on
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrInvalidWebhookPayload)
	}
	return &event, nil
}

func (e *WebhookEvent) Payment() PaymentEntity {
	return e.Payload.Payment.Entity
}
