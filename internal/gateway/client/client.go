package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memberd/internal/config"
	membershipdomain "memberd/internal/membership/domain"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const requestTimeout = 12 * time.Second

type Params struct {
	fx.In

	Log *zap.Logger
	Cfg config.Config
}

// Canceller terminates recurring billing profiles at the remote gateways.
// Base URLs are fields so tests can point them at a local server.
type Canceller struct {
	log  *zap.Logger
	cfg  config.Config
	http *http.Client

	StripeBaseURL      string
	BraintreeBaseURL   string
	PayPalBaseURL      string
	TwoCheckoutBaseURL string
}

func New(p Params) *Canceller {
	return &Canceller{
		log:  p.Log.Named("gateway.client"),
		cfg:  p.Cfg,
		http: &http.Client{Timeout: requestTimeout},

		StripeBaseURL:      "https://api.stripe.com",
		BraintreeBaseURL:   "https://api.braintreegateway.com",
		PayPalBaseURL:      "https://api-3t.paypal.com",
		TwoCheckoutBaseURL: "https://www.2checkout.com",
	}
}

func ProvideCanceller(c *Canceller) membershipdomain.ProfileCanceller { return c }

func (c *Canceller) Supports(gateway string) bool {
	switch strings.ToLower(strings.TrimSpace(gateway)) {
	case "stripe":
		return c.cfg.Stripe.APIKey != ""
	case "braintree":
		return c.cfg.Braintree.MerchantID != "" && c.cfg.Braintree.PrivateKey != ""
	case "paypal":
		return c.cfg.PayPal.APIUser != "" && c.cfg.PayPal.APIPassword != ""
	case "twocheckout":
		return c.cfg.TwoCheckout.AdminUser != ""
	}
	return false
}

func (c *Canceller) CancelSubscription(ctx context.Context, gateway, gatewayCustomerID, gatewaySubscriptionID string) error {
	subscriptionID := strings.TrimSpace(gatewaySubscriptionID)
	if subscriptionID == "" {
		return fmt.Errorf("missing gateway subscription id")
	}

	var err error
	switch strings.ToLower(strings.TrimSpace(gateway)) {
	case "stripe":
		err = c.cancelStripe(ctx, subscriptionID)
	case "braintree":
		err = c.cancelBraintree(ctx, subscriptionID)
	case "paypal":
		err = c.cancelPayPal(ctx, subscriptionID)
	case "twocheckout":
		err = c.cancelTwoCheckout(ctx, subscriptionID)
	default:
		return fmt.Errorf("unsupported gateway %q", gateway)
	}
	if err != nil {
		return err
	}

	c.log.Info("gateway profile cancelled",
		zap.String("gateway", gateway),
		zap.String("subscription_id", subscriptionID),
	)
	return nil
}

func (c *Canceller) cancelStripe(ctx context.Context, subscriptionID string) error {
	endpoint := fmt.Sprintf("%s/v1/subscriptions/%s", c.StripeBaseURL, url.PathEscape(subscriptionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Stripe.APIKey)
	return c.do(req, "stripe")
}

func (c *Canceller) cancelBraintree(ctx context.Context, subscriptionID string) error {
	endpoint := fmt.Sprintf("%s/merchants/%s/subscriptions/%s/cancel",
		c.BraintreeBaseURL,
		url.PathEscape(c.cfg.Braintree.MerchantID),
		url.PathEscape(subscriptionID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.Braintree.PublicKey, c.cfg.Braintree.PrivateKey)
	req.Header.Set("Accept", "application/json")
	return c.do(req, "braintree")
}

func (c *Canceller) cancelPayPal(ctx context.Context, profileID string) error {
	form := url.Values{}
	form.Set("METHOD", "ManageRecurringPaymentsProfileStatus")
	form.Set("PROFILEID", profileID)
	form.Set("ACTION", "Cancel")
	form.Set("USER", c.cfg.PayPal.APIUser)
	form.Set("PWD", c.cfg.PayPal.APIPassword)
	form.Set("SIGNATURE", c.cfg.PayPal.APISignature)
	form.Set("VERSION", "124.0")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PayPalBaseURL+"/nvp", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return err
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return fmt.Errorf("paypal cancel: invalid response")
	}
	if ack := values.Get("ACK"); !strings.HasPrefix(ack, "Success") {
		return fmt.Errorf("paypal cancel failed: ack=%s message=%s", ack, values.Get("L_LONGMESSAGE0"))
	}
	return nil
}

func (c *Canceller) cancelTwoCheckout(ctx context.Context, saleID string) error {
	form := url.Values{}
	form.Set("sale_id", saleID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TwoCheckoutBaseURL+"/api/sales/stop_lineitems", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.TwoCheckout.AdminUser, c.cfg.TwoCheckout.AdminPassword)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.do(req, "twocheckout")
}

func (c *Canceller) do(req *http.Request, gateway string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s cancel failed: status %d", gateway, resp.StatusCode)
	}
	return nil
}
