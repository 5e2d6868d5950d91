package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"memberd/internal/gateway/domain"
)

type Adapter struct {
	webhookSecret string
}

func New(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (a *Adapter) Provider() string { return "stripe" }

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" || a.webhookSecret == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "invoice.payment_succeeded":
		return a.parseInvoice(event, domain.EventTypeRenewalPayment)
	case "invoice.payment_failed":
		return a.parseInvoice(event, domain.EventTypePaymentFailed)
	case "charge.refunded":
		return a.parseCharge(event)
	case "customer.subscription.deleted":
		return a.parseSubscription(event)
	default:
		return nil, domain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Charge       string `json:"charge"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
	Created      int64  `json:"created"`
}

type stripeCharge struct {
	ID             string `json:"id"`
	Customer       string `json:"customer"`
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
	Created        int64  `json:"created"`
}

type stripeSubscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Created  int64  `json:"created"`
}

func (a *Adapter) parseInvoice(event stripeEvent, eventType string) (*domain.Event, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	amount := invoice.AmountPaid
	if amount <= 0 {
		amount = invoice.AmountDue
	}
	transactionID := invoice.Charge
	if transactionID == "" {
		transactionID = invoice.ID
	}

	return &domain.Event{
		Provider:       "stripe",
		EventID:        event.ID,
		Type:           eventType,
		SubscriptionID: invoice.Subscription,
		CustomerID:     invoice.Customer,
		TransactionID:  transactionID,
		Amount:         float64(amount) / 100,
		Currency:       strings.ToUpper(strings.TrimSpace(invoice.Currency)),
		OccurredAt:     timestamp(invoice.Created, event.Created),
	}, nil
}

func (a *Adapter) parseCharge(event stripeEvent) (*domain.Event, error) {
	var charge stripeCharge
	if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	return &domain.Event{
		Provider:      "stripe",
		EventID:       event.ID,
		Type:          domain.EventTypeRefund,
		CustomerID:    charge.Customer,
		TransactionID: charge.ID,
		Amount:        float64(charge.AmountRefunded) / 100,
		Currency:      strings.ToUpper(strings.TrimSpace(charge.Currency)),
		OccurredAt:    timestamp(charge.Created, event.Created),
	}, nil
}

func (a *Adapter) parseSubscription(event stripeEvent) (*domain.Event, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	return &domain.Event{
		Provider:       "stripe",
		EventID:        event.ID,
		Type:           domain.EventTypeSubscriptionCancelled,
		SubscriptionID: sub.ID,
		CustomerID:     sub.Customer,
		OccurredAt:     timestamp(sub.Created, event.Created),
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
