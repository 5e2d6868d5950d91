package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	EventTypeRenewalPayment        = "renewal_payment"
	EventTypePaymentFailed         = "payment_failed"
	EventTypeRefund                = "refund"
	EventTypeSubscriptionCancelled = "subscription_cancelled"
	EventTypeSubscriptionExpired   = "subscription_expired"
)

// Event is the normalized form of a gateway webhook delivery. Adapters map
// provider payloads into it; the ingest service never sees provider JSON.
type Event struct {
	Provider       string
	EventID        string
	Type           string
	SubscriptionID string
	CustomerID     string
	TransactionID  string
	Amount         float64
	Currency       string
	OccurredAt     time.Time
}

// Adapter verifies and parses webhook deliveries for one provider.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte, headers http.Header) (*Event, error)
}

var (
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
)
