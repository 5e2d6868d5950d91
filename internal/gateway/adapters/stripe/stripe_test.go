package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"memberd/internal/gateway/domain"
)

const testSecret = "whsec_test"

func signedHeader(t *testing.T, payload []byte, secret string, ts time.Time) http.Header {
	t.Helper()
	timestamp := fmt.Sprintf("%d", ts.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	signature := hex.EncodeToString(mac.Sum(nil))

	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, signature))
	return h
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	ctx := context.Background()
	a := New(testSecret)
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`)

	headers := signedHeader(t, payload, testSecret, time.Now())
	if err := a.Verify(ctx, payload, headers); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	a := New(testSecret)
	payload := []byte(`{"id":"evt_1"}`)

	headers := signedHeader(t, payload, "whsec_other", time.Now())
	if err := a.Verify(ctx, payload, headers); err != domain.ErrInvalidSignature {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidSignature)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	ctx := context.Background()
	a := New(testSecret)
	payload := []byte(`{"id":"evt_1","amount":100}`)

	headers := signedHeader(t, payload, testSecret, time.Now())
	tampered := []byte(`{"id":"evt_1","amount":999}`)
	if err := a.Verify(ctx, tampered, headers); err != domain.ErrInvalidSignature {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidSignature)
	}
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	ctx := context.Background()
	a := New(testSecret)

	if err := a.Verify(ctx, []byte(`{}`), http.Header{}); err != domain.ErrInvalidSignature {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidSignature)
	}
}

func TestParseRenewalPayment(t *testing.T) {
	ctx := context.Background()
	a := New(testSecret)
	payload := []byte(`{
		"id": "evt_1",
		"type": "invoice.payment_succeeded",
		"created": 1717200000,
		"data": {"object": {
			"id": "in_1",
			"customer": "cus_1",
			"subscription": "sub_1",
			"charge": "ch_1",
			"amount_paid": 2999,
			"currency": "usd",
			"created": 1717200000
		}}
	}`)

	event, err := a.Parse(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != domain.EventTypeRenewalPayment {
		t.Fatalf("type = %s, want %s", event.Type, domain.EventTypeRenewalPayment)
	}
	if event.EventID != "evt_1" {
		t.Fatalf("event id = %s, want evt_1", event.EventID)
	}
	if event.SubscriptionID != "sub_1" || event.CustomerID != "cus_1" {
		t.Fatalf("ids = %s/%s, want sub_1/cus_1", event.SubscriptionID, event.CustomerID)
	}
	// The charge id identifies the transaction, not the invoice id.
	if event.TransactionID != "ch_1" {
		t.Fatalf("transaction = %s, want ch_1", event.TransactionID)
	}
	// Stripe amounts arrive in cents.
	if event.Amount != 29.99 {
		t.Fatalf("amount = %v, want 29.99", event.Amount)
	}
	if event.Currency != "USD" {
		t.Fatalf("currency = %s, want USD", event.Currency)
	}
}

func TestParseRefund(t *testing.T) {
	ctx := context.Background()
	a := New(testSecret)
	payload := []byte(`{
		"id": "evt_2",
		"type": "charge.refunded",
		"data": {"object": {
			"id": "ch_2",
			"customer": "cus_1",
			"amount_refunded": 1500,
			"currency": "usd",
			"created": 1717200000
		}}
	}`)

	event, err := a.Parse(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != domain.EventTypeRefund {
		t.Fatalf("type = %s, want %s", event.Type, domain.EventTypeRefund)
	}
	if event.TransactionID != "ch_2" {
		t.Fatalf("transaction = %s, want ch_2", event.TransactionID)
	}
	if event.Amount != 15 {
		t.Fatalf("amount = %v, want 15", event.Amount)
	}
}

func TestParseSubscriptionCancelled(t *testing.T) {
	ctx := context.Background()
	a := New(testSecret)
	payload := []byte(`{
		"id": "evt_3",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_1", "created": 1717200000}}
	}`)

	event, err := a.Parse(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != domain.EventTypeSubscriptionCancelled {
		t.Fatalf("type = %s, want %s", event.Type, domain.EventTypeSubscriptionCancelled)
	}
	if event.SubscriptionID != "sub_1" {
		t.Fatalf("subscription = %s, want sub_1", event.SubscriptionID)
	}
}

func TestParseIgnoresUnknownEventTypes(t *testing.T) {
	ctx := context.Background()
	a := New(testSecret)
	payload := []byte(`{"id": "evt_4", "type": "customer.created", "data": {"object": {}}}`)

	if _, err := a.Parse(ctx, payload, http.Header{}); err != domain.ErrEventIgnored {
		t.Fatalf("err = %v, want %v", err, domain.ErrEventIgnored)
	}
}
