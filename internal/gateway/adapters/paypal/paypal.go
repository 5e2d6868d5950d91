package paypal

import (
	"context"
	"crypto/hmac"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"memberd/internal/gateway/domain"
)

// Adapter handles PayPal IPN messages. IPN has no signature header, so the
// listener URL carries a shared secret that must match the configured one;
// gateways are expected to deliver it in the ipn_secret form field.
type Adapter struct {
	webhookSecret string
}

func New(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (a *Adapter) Provider() string { return "paypal" }

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return domain.ErrInvalidSignature
	}
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return domain.ErrInvalidPayload
	}
	secret := strings.TrimSpace(form.Get("ipn_secret"))
	if secret == "" || !hmac.Equal([]byte(secret), []byte(a.webhookSecret)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.Event, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	txnType := strings.TrimSpace(form.Get("txn_type"))
	paymentStatus := strings.TrimSpace(form.Get("payment_status"))

	var eventType string
	switch {
	case txnType == "recurring_payment":
		eventType = domain.EventTypeRenewalPayment
	case txnType == "recurring_payment_failed" || txnType == "recurring_payment_skipped":
		eventType = domain.EventTypePaymentFailed
	case txnType == "recurring_payment_profile_cancel":
		eventType = domain.EventTypeSubscriptionCancelled
	case txnType == "recurring_payment_expired":
		eventType = domain.EventTypeSubscriptionExpired
	case strings.EqualFold(paymentStatus, "Refunded") || strings.EqualFold(paymentStatus, "Reversed"):
		eventType = domain.EventTypeRefund
	default:
		return nil, domain.ErrEventIgnored
	}

	profileID := strings.TrimSpace(form.Get("recurring_payment_id"))
	txnID := strings.TrimSpace(form.Get("txn_id"))
	ipnTrackID := strings.TrimSpace(form.Get("ipn_track_id"))
	if ipnTrackID == "" && txnID == "" {
		return nil, domain.ErrInvalidEvent
	}
	eventID := ipnTrackID
	if eventID == "" {
		eventID = txnType + ":" + txnID
	}

	amount, _ := strconv.ParseFloat(strings.TrimSpace(form.Get("mc_gross")), 64)
	if amount == 0 {
		amount, _ = strconv.ParseFloat(strings.TrimSpace(form.Get("amount")), 64)
	}
	if eventType == domain.EventTypeRefund && amount < 0 {
		amount = -amount
	}

	occurredAt := time.Now().UTC()
	if raw := strings.TrimSpace(form.Get("payment_date")); raw != "" {
		if t, err := time.Parse("15:04:05 Jan 02, 2006 MST", raw); err == nil {
			occurredAt = t.UTC()
		}
	}

	// On refunds the original transaction is what must be flipped.
	if eventType == domain.EventTypeRefund {
		if parent := strings.TrimSpace(form.Get("parent_txn_id")); parent != "" {
			txnID = parent
		}
	}

	return &domain.Event{
		Provider:       "paypal",
		EventID:        eventID,
		Type:           eventType,
		SubscriptionID: profileID,
		CustomerID:     strings.TrimSpace(form.Get("payer_id")),
		TransactionID:  txnID,
		Amount:         amount,
		Currency:       strings.ToUpper(strings.TrimSpace(form.Get("mc_currency"))),
		OccurredAt:     occurredAt,
	}, nil
}
