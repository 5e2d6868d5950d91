package gateway

import (
	"memberd/internal/config"
	"memberd/internal/gateway/adapters"
	"memberd/internal/gateway/adapters/braintree"
	"memberd/internal/gateway/adapters/paypal"
	"memberd/internal/gateway/adapters/stripe"
	"memberd/internal/gateway/adapters/twocheckout"
	"memberd/internal/gateway/client"
	"memberd/internal/gateway/webhook"

	"go.uber.org/fx"
)

func NewRegistry(cfg config.Config) *adapters.Registry {
	return adapters.NewRegistry(
		stripe.New(cfg.Stripe.WebhookSecret),
		braintree.New(cfg.Braintree.PublicKey, cfg.Braintree.WebhookSecret),
		paypal.New(cfg.PayPal.WebhookSecret),
		twocheckout.New(cfg.TwoCheckout.AccountNumber, cfg.TwoCheckout.SecretWord),
	)
}

var Module = fx.Module("gateway",
	fx.Provide(NewRegistry),
	fx.Provide(webhook.NewService),
	fx.Provide(client.New),
	fx.Provide(client.ProvideCanceller),
)
