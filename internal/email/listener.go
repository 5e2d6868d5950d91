package email

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	customerdomain "memberd/internal/customer/domain"
	"memberd/internal/events"
	obsmetrics "memberd/internal/observability/metrics"
)

// Listener turns membership lifecycle events into customer emails.
type Listener struct {
	provider  Provider
	customers customerdomain.Service
	metrics   *obsmetrics.Metrics
	log       *zap.Logger
}

type ListenerParams struct {
	fx.In

	Provider  Provider
	Customers customerdomain.Service
	Bus       *events.Bus
	Metrics   *obsmetrics.Metrics `optional:"true"`
	Log       *zap.Logger
}

func NewListener(p ListenerParams) *Listener {
	l := &Listener{
		provider:  p.Provider,
		customers: p.Customers,
		metrics:   p.Metrics,
		log:       p.Log.Named("email.listener"),
	}

	p.Bus.Subscribe(events.TopicMembershipActivated, l.handle("membership_welcome"))
	p.Bus.Subscribe(events.TopicMembershipCancelled, l.handle("membership_cancelled"))
	p.Bus.Subscribe(events.TopicMembershipExpired, l.handle("membership_expired"))
	p.Bus.Subscribe(events.TopicMembershipExpiringSoon, l.handle("membership_reminder"))

	return l
}

func (l *Listener) handle(templateName string) events.Handler {
	return func(ctx context.Context, event events.MembershipEvent) {
		customer, err := l.customers.Get(ctx, snowflake.ID(event.CustomerID).String())
		if err != nil || customer == nil {
			l.log.Warn("email skipped, customer lookup failed",
				zap.String("template", templateName),
				zap.Int64("customer_id", event.CustomerID),
				zap.Error(err),
			)
			l.metrics.RecordEmail(templateName, "skipped")
			return
		}

		data := map[string]any{
			"customer_name": customer.Name,
			"level_name":    event.LevelName,
		}
		if event.ExpiresAt != nil {
			data["expires_at"] = event.ExpiresAt.Format(time.DateOnly)
		}

		if err := l.provider.SendTemplate(ctx, []string{customer.Email}, templateName, data); err != nil {
			l.log.Warn("email send failed",
				zap.String("template", templateName),
				zap.String("to", customer.Email),
				zap.Error(err),
			)
			l.metrics.RecordEmail(templateName, "failed")
			return
		}
		l.metrics.RecordEmail(templateName, "sent")
	}
}
