package domain

import "time"

const (
	WebhookStatusReceived  = "received"
	WebhookStatusProcessed = "processed"
	WebhookStatusIgnored   = "ignored"
	WebhookStatusFailed    = "failed"
)

// WebhookEvent is the idempotency ledger row for one delivery. The unique
// (provider, event_id) index is what makes redeliveries no-ops.
type WebhookEvent struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	Provider   string    `json:"provider" gorm:"not null;uniqueIndex:ux_webhook_events_provider_event"`
	EventID    string    `json:"event_id" gorm:"not null;uniqueIndex:ux_webhook_events_provider_event"`
	EventType  string    `json:"event_type"`
	ReceivedAt time.Time `json:"received_at" gorm:"not null"`
	Status     string    `json:"status" gorm:"not null;default:received"`
	Error      string    `json:"error,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
