package braintree

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memberd/internal/gateway/domain"
)

// Adapter handles Braintree webhook notifications. Deliveries arrive as a
// form body with bt_signature and bt_payload fields; the payload is base64
// and the signature is an HMAC-SHA1 of it keyed with the webhook secret.
type Adapter struct {
	publicKey     string
	webhookSecret string
}

func New(publicKey, webhookSecret string) *Adapter {
	return &Adapter{
		publicKey:     strings.TrimSpace(publicKey),
		webhookSecret: strings.TrimSpace(webhookSecret),
	}
}

func (a *Adapter) Provider() string { return "braintree" }

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return domain.ErrInvalidPayload
	}
	signature := strings.TrimSpace(form.Get("bt_signature"))
	body := form.Get("bt_payload")
	if signature == "" || body == "" || a.webhookSecret == "" {
		return domain.ErrInvalidSignature
	}

	// Braintree prefixes each signature with the public key of the pair
	// that produced it.
	for _, pair := range strings.Split(signature, "&") {
		keyValue := strings.SplitN(pair, "|", 2)
		if len(keyValue) != 2 {
			continue
		}
		if a.publicKey != "" && keyValue[0] != a.publicKey {
			continue
		}
		mac := hmac.New(sha1.New, []byte(a.webhookSecret))
		_, _ = mac.Write([]byte(body))
		expected := hex.EncodeToString(mac.Sum(nil))
		if hmac.Equal([]byte(keyValue[1]), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

type btNotification struct {
	Kind         string         `json:"kind"`
	Timestamp    int64          `json:"timestamp"`
	Subscription btSubscription `json:"subscription"`
	Transaction  btTransaction  `json:"transaction"`
}

type btSubscription struct {
	ID           string          `json:"id"`
	Price        string          `json:"price"`
	Transactions []btTransaction `json:"transactions"`
}

type btTransaction struct {
	ID              string  `json:"id"`
	Amount          float64 `json:"amount,string"`
	CurrencyISOCode string  `json:"currency_iso_code"`
	CustomerID      string  `json:"customer_id"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.Event, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}
	decoded, err := base64.StdEncoding.DecodeString(form.Get("bt_payload"))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	var notification btNotification
	if err := json.Unmarshal(decoded, &notification); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if notification.Subscription.ID == "" {
		return nil, domain.ErrInvalidEvent
	}

	var eventType string
	switch notification.Kind {
	case "subscription_charged_successfully":
		eventType = domain.EventTypeRenewalPayment
	case "subscription_charged_unsuccessfully":
		eventType = domain.EventTypePaymentFailed
	case "subscription_canceled":
		eventType = domain.EventTypeSubscriptionCancelled
	case "subscription_expired":
		eventType = domain.EventTypeSubscriptionExpired
	default:
		return nil, domain.ErrEventIgnored
	}

	txn := notification.Transaction
	if txn.ID == "" && len(notification.Subscription.Transactions) > 0 {
		txn = notification.Subscription.Transactions[0]
	}

	occurredAt := time.Now().UTC()
	if notification.Timestamp != 0 {
		occurredAt = time.Unix(notification.Timestamp, 0).UTC()
	}

	event := &domain.Event{
		Provider:       "braintree",
		EventID:        notification.Kind + ":" + notification.Subscription.ID + ":" + txn.ID,
		Type:           eventType,
		SubscriptionID: notification.Subscription.ID,
		CustomerID:     txn.CustomerID,
		TransactionID:  txn.ID,
		Amount:         txn.Amount,
		Currency:       strings.ToUpper(strings.TrimSpace(txn.CurrencyISOCode)),
		OccurredAt:     occurredAt,
	}
	return event, nil
}
