package entity

import "time"

// Webhook sources.
const (
	WebhookSourcePayment     = "payment"
	WebhookSourceFulfillment = "fulfillment"
)

// WebhookEvent is an append-only audit record of a raw provider
// notification. It is written on every verified delivery and never read
// back by business logic.
type WebhookEvent struct {
	ID         int       `json:"id"`
	Source     string    `json:"source"`
	EventType  string    `json:"event_type"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}
