package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"memberd/internal/clock"
	"memberd/internal/config"
	"memberd/internal/gateway/adapters"
	"memberd/internal/gateway/domain"
	membershipdomain "memberd/internal/membership/domain"
	paymentdomain "memberd/internal/payment/domain"
	pkgdb "memberd/pkg/db"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusProcessed = "processed"
	StatusIgnored   = "ignored"
	StatusDuplicate = "duplicate"
)

type Result struct {
	Status    string `json:"status"`
	EventType string `json:"event_type,omitempty"`
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Adapters    *adapters.Registry
	Memberships membershipdomain.Service
	Payments    paymentdomain.Service
	Scheduler   *config.SchedulerConfigHolder `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	adapters    *adapters.Registry
	memberships membershipdomain.Service
	payments    paymentdomain.Service
	scheduler   *config.SchedulerConfigHolder
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("gateway.webhook"),
		genID:       p.GenID,
		clock:       p.Clock,
		adapters:    p.Adapters,
		memberships: p.Memberships,
		payments:    p.Payments,
		scheduler:   p.Scheduler,
	}
}

// Ingest verifies, deduplicates and dispatches one webhook delivery.
// Unresolvable and ignored events succeed so the gateway stops retrying;
// only transient processing failures surface as errors.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) (*Result, error) {
	adapter, err := s.adapters.Adapter(provider)
	if err != nil {
		return nil, err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		return nil, domain.ErrInvalidSignature
	}

	event, err := adapter.Parse(ctx, payload, headers)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			return &Result{Status: StatusIgnored}, nil
		}
		return nil, err
	}

	if err := s.recordEvent(ctx, event); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			s.log.Info("webhook replay ignored",
				zap.String("provider", event.Provider),
				zap.String("event_id", event.EventID),
			)
			return &Result{Status: StatusDuplicate, EventType: event.Type}, nil
		}
		return nil, err
	}

	membership, err := s.memberships.ResolveByGateway(ctx, event.Provider, event.SubscriptionID, event.CustomerID)
	if err != nil {
		s.markEvent(ctx, event, domain.WebhookStatusFailed, err.Error())
		return nil, err
	}
	if membership == nil {
		s.log.Warn("webhook for unknown membership",
			zap.String("provider", event.Provider),
			zap.String("subscription_id", event.SubscriptionID),
			zap.String("gateway_customer_id", event.CustomerID),
		)
		s.markEvent(ctx, event, domain.WebhookStatusIgnored, "membership_not_found")
		return &Result{Status: StatusIgnored, EventType: event.Type}, nil
	}

	result, err := s.dispatch(ctx, event, membership)
	if err != nil {
		s.markEvent(ctx, event, domain.WebhookStatusFailed, err.Error())
		return nil, err
	}
	status := domain.WebhookStatusProcessed
	if result.Status == StatusIgnored {
		status = domain.WebhookStatusIgnored
	}
	s.markEvent(ctx, event, status, "")
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, event *domain.Event, membership *membershipdomain.Membership) (*Result, error) {
	switch event.Type {
	case domain.EventTypeRenewalPayment:
		return s.handleRenewal(ctx, event, membership)
	case domain.EventTypePaymentFailed:
		return s.handleFailure(ctx, event, membership)
	case domain.EventTypeRefund:
		return s.handleRefund(ctx, event, membership)
	case domain.EventTypeSubscriptionCancelled:
		if err := s.memberships.CancelByID(ctx, membership.ID); err != nil {
			return nil, err
		}
		return &Result{Status: StatusProcessed, EventType: event.Type}, nil
	case domain.EventTypeSubscriptionExpired:
		if err := s.memberships.ExpireByID(ctx, membership.ID); err != nil {
			return nil, err
		}
		return &Result{Status: StatusProcessed, EventType: event.Type}, nil
	default:
		return &Result{Status: StatusIgnored, EventType: event.Type}, nil
	}
}

func (s *Service) handleRenewal(ctx context.Context, event *domain.Event, membership *membershipdomain.Membership) (*Result, error) {
	if txn := strings.TrimSpace(event.TransactionID); txn != "" {
		exists, err := s.payments.HasTransaction(ctx, event.Provider, txn)
		if err != nil {
			return nil, err
		}
		if exists {
			s.log.Info("renewal transaction already recorded",
				zap.String("provider", event.Provider),
				zap.String("transaction_id", txn),
			)
			return &Result{Status: StatusIgnored, EventType: event.Type}, nil
		}
	}

	_, err := s.payments.Insert(ctx, paymentdomain.InsertRequest{
		MembershipID:  membership.ID,
		CustomerID:    membership.CustomerID,
		LevelID:       membership.LevelID,
		Amount:        event.Amount,
		Subtotal:      event.Amount,
		TransactionID: event.TransactionID,
		Gateway:       event.Provider,
		Status:        paymentdomain.StatusComplete,
		PaymentType:   "renewal",
	})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrDuplicateTransaction) {
			return &Result{Status: StatusIgnored, EventType: event.Type}, nil
		}
		return nil, err
	}

	if err := s.memberships.RenewByID(ctx, membership.ID, membershipdomain.RenewRequest{Recurring: true}); err != nil {
		return nil, err
	}
	if err := s.memberships.IncrementTimesBilled(ctx, membership.ID); err != nil {
		return nil, err
	}
	return &Result{Status: StatusProcessed, EventType: event.Type}, nil
}

func (s *Service) handleFailure(ctx context.Context, event *domain.Event, membership *membershipdomain.Membership) (*Result, error) {
	_, err := s.payments.Insert(ctx, paymentdomain.InsertRequest{
		MembershipID:  membership.ID,
		CustomerID:    membership.CustomerID,
		LevelID:       membership.LevelID,
		Amount:        event.Amount,
		Subtotal:      event.Amount,
		TransactionID: event.TransactionID,
		Gateway:       event.Provider,
		Status:        paymentdomain.StatusFailed,
		PaymentType:   "renewal",
	})
	if err != nil && !errors.Is(err, paymentdomain.ErrDuplicateTransaction) {
		return nil, err
	}
	return &Result{Status: StatusProcessed, EventType: event.Type}, nil
}

func (s *Service) handleRefund(ctx context.Context, event *domain.Event, membership *membershipdomain.Membership) (*Result, error) {
	_, err := s.payments.MarkRefunded(ctx, event.Provider, event.TransactionID)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrNotFound) {
			return &Result{Status: StatusIgnored, EventType: event.Type}, nil
		}
		return nil, err
	}

	if s.scheduler != nil && s.scheduler.Current().ExpireRefunds {
		if err := s.memberships.ExpireByID(ctx, membership.ID); err != nil {
			return nil, err
		}
	}
	return &Result{Status: StatusProcessed, EventType: event.Type}, nil
}

func (s *Service) recordEvent(ctx context.Context, event *domain.Event) error {
	now := s.clock.Now()
	return s.db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (id, provider, event_id, event_type, received_at, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.genID.Generate().Int64(),
		event.Provider,
		event.EventID,
		event.Type,
		now,
		domain.WebhookStatusReceived,
		now,
		now,
	).Error
}

func (s *Service) markEvent(ctx context.Context, event *domain.Event, status, errMsg string) {
	err := s.db.WithContext(ctx).Exec(
		`UPDATE webhook_events SET status = ?, error = ?, updated_at = ?
		 WHERE provider = ? AND event_id = ?`,
		status, errMsg, s.clock.Now(), event.Provider, event.EventID,
	).Error
	if err != nil {
		s.log.Warn("webhook ledger update failed",
			zap.String("provider", event.Provider),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}
