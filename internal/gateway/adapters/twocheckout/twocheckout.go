package twocheckout

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"memberd/internal/gateway/domain"
)

// Adapter handles 2Checkout INS messages. The md5_hash field is the
// uppercased MD5 of sale_id + account number + invoice_id + secret word.
type Adapter struct {
	accountNumber string
	secretWord    string
}

func New(accountNumber, secretWord string) *Adapter {
	return &Adapter{
		accountNumber: strings.TrimSpace(accountNumber),
		secretWord:    strings.TrimSpace(secretWord),
	}
}

func (a *Adapter) Provider() string { return "twocheckout" }

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.secretWord == "" {
		return domain.ErrInvalidSignature
	}
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return domain.ErrInvalidPayload
	}

	saleID := strings.TrimSpace(form.Get("sale_id"))
	invoiceID := strings.TrimSpace(form.Get("invoice_id"))
	received := strings.ToUpper(strings.TrimSpace(form.Get("md5_hash")))
	if saleID == "" || received == "" {
		return domain.ErrInvalidSignature
	}

	sum := md5.Sum([]byte(saleID + a.accountNumber + invoiceID + a.secretWord))
	expected := strings.ToUpper(hex.EncodeToString(sum[:]))
	if !hmac.Equal([]byte(received), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.Event, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	messageType := strings.ToUpper(strings.TrimSpace(form.Get("message_type")))
	var eventType string
	switch messageType {
	case "RECURRING_INSTALLMENT_SUCCESS":
		eventType = domain.EventTypeRenewalPayment
	case "RECURRING_INSTALLMENT_FAILED":
		eventType = domain.EventTypePaymentFailed
	case "RECURRING_STOPPED", "RECURRING_COMPLETE":
		eventType = domain.EventTypeSubscriptionCancelled
	case "REFUND_ISSUED":
		eventType = domain.EventTypeRefund
	default:
		return nil, domain.ErrEventIgnored
	}

	saleID := strings.TrimSpace(form.Get("sale_id"))
	if saleID == "" {
		return nil, domain.ErrInvalidEvent
	}
	messageID := strings.TrimSpace(form.Get("message_id"))
	if messageID == "" {
		messageID = messageType + ":" + saleID + ":" + strings.TrimSpace(form.Get("invoice_id"))
	}

	amount, _ := strconv.ParseFloat(strings.TrimSpace(form.Get("invoice_list_amount")), 64)
	if amount == 0 {
		amount, _ = strconv.ParseFloat(strings.TrimSpace(form.Get("item_list_amount_1")), 64)
	}

	occurredAt := time.Now().UTC()
	if raw := strings.TrimSpace(form.Get("timestamp")); raw != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
			occurredAt = t.UTC()
		}
	}

	return &domain.Event{
		Provider:       "twocheckout",
		EventID:        messageID,
		Type:           eventType,
		SubscriptionID: saleID,
		CustomerID:     strings.TrimSpace(form.Get("vendor_order_id")),
		TransactionID:  strings.TrimSpace(form.Get("invoice_id")),
		Amount:         amount,
		Currency:       strings.ToUpper(strings.TrimSpace(form.Get("list_currency"))),
		OccurredAt:     occurredAt,
	}, nil
}
