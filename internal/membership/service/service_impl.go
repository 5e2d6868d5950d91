package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"memberd/internal/clock"
	"memberd/internal/config"
	customerdomain "memberd/internal/customer/domain"
	"memberd/internal/events"
	leveldomain "memberd/internal/level/domain"
	"memberd/internal/membership/domain"
	"memberd/pkg/pagination"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cfg       config.Config
	Repo      domain.Repository
	LevelRepo leveldomain.Repository
	Customers customerdomain.Service
	Bus       *events.Bus
	Canceller domain.ProfileCanceller `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	levelRepo leveldomain.Repository
	customers customerdomain.Service
	bus       *events.Bus
	canceller domain.ProfileCanceller
	genID     *snowflake.Node
	clock     clock.Clock
	cfg       config.Config
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("membership.service"),
		repo:      p.Repo,
		levelRepo: p.LevelRepo,
		customers: p.Customers,
		bus:       p.Bus,
		canceller: p.Canceller,
		genID:     p.GenID,
		clock:     p.Clock,
		cfg:       p.Cfg,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return nil, domain.ErrInvalidCustomer
	}
	levelID, err := snowflake.ParseString(strings.TrimSpace(req.LevelID))
	if err != nil {
		return nil, domain.ErrInvalidLevel
	}

	lvl, err := s.levelRepo.FindByID(ctx, s.db, levelID.Int64())
	if err != nil {
		return nil, err
	}
	if lvl == nil {
		return nil, domain.ErrInvalidLevel
	}
	if lvl.Status != leveldomain.StatusActive {
		return nil, domain.ErrLevelInactive
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.Currency
	}

	// Billing amounts snapshot the level at signup time. Level edits made
	// later never change what an existing member is charged.
	initial := lvl.Price + lvl.Fee
	if req.InitialAmount != nil {
		initial = *req.InitialAmount
	}
	recurring := lvl.Price
	if req.RecurringAmount != nil {
		recurring = *req.RecurringAmount
	}

	var upgradedFrom int64
	if raw := strings.TrimSpace(req.UpgradedFrom); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		upgradedFrom = id.Int64()
	}

	now := s.clock.Now()
	m := &domain.Membership{
		ID:                    s.genID.Generate().Int64(),
		CustomerID:            customerID.Int64(),
		LevelID:               levelID.Int64(),
		Currency:              currency,
		InitialAmount:         initial,
		RecurringAmount:       recurring,
		MaximumRenewals:       lvl.MaximumRenewals,
		Status:                domain.StatusPending,
		AutoRenew:             req.AutoRenew,
		Gateway:               strings.TrimSpace(req.Gateway),
		GatewayCustomerID:     strings.TrimSpace(req.GatewayCustomerID),
		GatewaySubscriptionID: strings.TrimSpace(req.GatewaySubscriptionID),
		SignupMethod:          strings.TrimSpace(req.SignupMethod),
		SubscriptionKey:       newSubscriptionKey(),
		UpgradedFrom:          upgradedFrom,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.Create(ctx, s.db, m); err != nil {
		return nil, err
	}

	s.log.Info("membership created",
		zap.Int64("membership_id", m.ID),
		zap.Int64("customer_id", m.CustomerID),
		zap.Int64("level_id", m.LevelID),
	)

	resp := s.toResponse(m, lvl)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	lvl, err := s.levelFor(ctx, m)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(m, lvl)
	return &resp, nil
}

func (s *Service) GetBySubscriptionKey(ctx context.Context, key string) (*domain.Response, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrNotFound
	}
	m, err := s.repo.FindBySubscriptionKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	lvl, err := s.levelFor(ctx, m)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(m, lvl)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}

	filter := domain.ListFilter{
		Status: domain.Status(strings.TrimSpace(req.Status)),
		Limit:  limit + 1,
	}
	if req.CustomerID != "" {
		id, err := snowflake.ParseString(req.CustomerID)
		if err != nil {
			return nil, domain.ErrInvalidCustomer
		}
		filter.CustomerID = id.Int64()
	}
	if req.LevelID != "" {
		id, err := snowflake.ParseString(req.LevelID)
		if err != nil {
			return nil, domain.ErrInvalidLevel
		}
		filter.LevelID = id.Int64()
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, err
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		filter.AfterID = afterID.Int64()
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(m domain.Membership) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: snowflake.ID(m.ID).String()})
		return token
	})
	if len(items) > limit {
		items = items[:limit]
	}

	levels := make(map[int64]*leveldomain.Level)
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		lvl, ok := levels[items[i].LevelID]
		if !ok {
			lvl, err = s.levelFor(ctx, &items[i])
			if err != nil {
				return nil, err
			}
			levels[items[i].LevelID] = lvl
		}
		resp = append(resp, s.toResponse(&items[i], lvl))
	}
	return &domain.ListResponse{Memberships: resp, PageInfo: pageInfo}, nil
}

func (s *Service) Activate(ctx context.Context, id string) (*domain.Response, error) {
	membershipID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var (
		activated bool
		out       domain.Membership
		lvl       *leveldomain.Level
		trial     bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if m.Status == domain.StatusActive {
			out = *m
			lvl, err = s.levelFor(ctx, m)
			return err
		}

		lvl, err = s.levelRepo.FindByID(ctx, tx, m.LevelID)
		if err != nil {
			return err
		}
		if lvl == nil {
			return domain.ErrNoLevel
		}

		now := s.clock.Now()
		m.Status = domain.StatusActive

		// First activation on a trial-bearing level starts the trial, but
		// only once per customer.
		if lvl.HasTrial() && m.TrialEndAt == nil {
			customer, err := s.customers.Get(ctx, snowflake.ID(m.CustomerID).String())
			if err == nil && !customer.HasTrialed {
				trial = true
				m.TrialEndAt = domain.CalculateExpiration(now, m, lvl, true, true)
				m.ExpirationAt = m.TrialEndAt
			}
		}
		if m.ExpirationAt == nil && !trial {
			m.ExpirationAt = domain.CalculateExpiration(now, m, lvl, true, false)
		}

		m.Notes = appendNote(m.Notes, "membership activated", now)
		m.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, m); err != nil {
			return err
		}

		// A new membership supersedes the one it upgraded from, and every
		// other membership when multiple memberships are off.
		if m.UpgradedFrom != 0 {
			if err := s.disableOther(ctx, tx, m.UpgradedFrom, now); err != nil {
				return err
			}
		}
		if !s.cfg.MultipleMemberships {
			siblings, err := s.repo.List(ctx, tx, domain.ListFilter{CustomerID: m.CustomerID})
			if err != nil {
				return err
			}
			for i := range siblings {
				sib := &siblings[i]
				if sib.ID == m.ID || sib.Disabled || sib.ID == m.UpgradedFrom {
					continue
				}
				if sib.Status == domain.StatusActive || sib.Status == domain.StatusCancelled {
					if err := s.disableOther(ctx, tx, sib.ID, now); err != nil {
						return err
					}
				}
			}
		}

		activated = true
		out = *m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if activated {
		role := lvl.Role
		if role == "" {
			role = s.cfg.DefaultRole
		}
		if err := s.customers.GrantRole(ctx, out.CustomerID, role); err != nil {
			s.log.Warn("grant role failed", zap.Int64("customer_id", out.CustomerID), zap.Error(err))
		}
		if trial {
			if err := s.customers.MarkTrialed(ctx, out.CustomerID); err != nil {
				s.log.Warn("mark trialed failed", zap.Int64("customer_id", out.CustomerID), zap.Error(err))
			}
		}
		s.publish(ctx, events.TopicMembershipActivated, &out, lvl)
		s.log.Info("membership activated", zap.Int64("membership_id", out.ID))
	}

	resp := s.toResponse(&out, lvl)
	return &resp, nil
}

func (s *Service) Renew(ctx context.Context, id string, req domain.RenewRequest) (*domain.Response, error) {
	membershipID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := s.RenewByID(ctx, membershipID, req); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) RenewByID(ctx context.Context, membershipID int64, req domain.RenewRequest) error {
	status := domain.Status(req.Status)
	if status == "" {
		status = domain.StatusActive
	}
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}

	var (
		out domain.Membership
		lvl *leveldomain.Level
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if m.LevelID == 0 {
			return domain.ErrNoLevel
		}
		if m.IsPaymentPlanComplete() || m.AtMaximumRenewals() {
			return domain.ErrPaymentPlanComplete
		}

		lvl, err = s.levelRepo.FindByID(ctx, tx, m.LevelID)
		if err != nil {
			return err
		}
		if lvl == nil {
			return domain.ErrNoLevel
		}

		now := s.clock.Now()
		expiration := req.Expiration
		switch {
		case expiration == nil:
			expiration = domain.CalculateExpiration(now, m, lvl, false, false)
		case expiration.IsZero():
			// Explicit zero time is the legacy "no expiration" sentinel.
			expiration = nil
		}

		m.Status = status
		m.ExpirationAt = expiration
		m.RenewedAt = &now
		m.AutoRenew = req.Recurring
		m.ExpirationReminderSent = false
		m.Notes = appendNote(m.Notes, "membership renewed", now)
		m.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, m); err != nil {
			return err
		}
		out = *m
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TopicMembershipRenewed, &out, lvl)
	s.log.Info("membership renewed",
		zap.Int64("membership_id", out.ID),
		zap.Timep("expiration_at", out.ExpirationAt),
	)
	return nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*domain.Response, error) {
	membershipID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := s.CancelByID(ctx, membershipID); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) CancelByID(ctx context.Context, membershipID int64) error {
	var (
		cancelled bool
		out       domain.Membership
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if m.Status == domain.StatusCancelled {
			out = *m
			return nil
		}

		now := s.clock.Now()
		m.Status = domain.StatusCancelled
		m.CancelledAt = &now
		m.AutoRenew = false
		m.Notes = appendNote(m.Notes, "membership cancelled", now)
		m.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, m); err != nil {
			return err
		}
		cancelled = true
		out = *m
		return nil
	})
	if err != nil {
		return err
	}

	if cancelled {
		s.publish(ctx, events.TopicMembershipCancelled, &out, nil)
		s.log.Info("membership cancelled", zap.Int64("membership_id", out.ID))
	}
	return nil
}

func (s *Service) CancelAtGateway(ctx context.Context, id string) (*domain.Response, error) {
	membershipID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindByID(ctx, s.db, membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}

	lvl, err := s.levelRepo.FindByID(ctx, s.db, m.LevelID)
	if err != nil {
		return nil, err
	}
	var levelPrice float64
	if lvl != nil {
		levelPrice = lvl.Price
	}
	if !s.canCancelAtGateway(m, levelPrice) {
		return nil, domain.ErrNotCancellable
	}

	if err := s.canceller.CancelSubscription(ctx, m.Gateway, m.GatewayCustomerID, m.GatewaySubscriptionID); err != nil {
		return nil, err
	}
	if err := s.CancelByID(ctx, membershipID); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Expire(ctx context.Context, id string) (*domain.Response, error) {
	membershipID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := s.ExpireByID(ctx, membershipID); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) ExpireByID(ctx context.Context, membershipID int64) error {
	var out domain.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}

		// Backdating the expiration keeps the access predicate false even
		// when clocks disagree by a few hours.
		now := s.clock.Now()
		expiredAt := now.Add(-24 * time.Hour)
		m.Status = domain.StatusExpired
		m.ExpirationAt = &expiredAt
		m.Notes = appendNote(m.Notes, "membership expired", now)
		m.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, m); err != nil {
			return err
		}
		out = *m
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TopicMembershipExpired, &out, nil)
	s.log.Info("membership expired", zap.Int64("membership_id", out.ID))
	return nil
}

func (s *Service) Disable(ctx context.Context, id string) error {
	membershipID, err := parseID(id)
	if err != nil {
		return err
	}

	m, err := s.repo.FindByID(ctx, s.db, membershipID)
	if err != nil {
		return err
	}
	if m == nil {
		return domain.ErrNotFound
	}

	lvl, err := s.levelRepo.FindByID(ctx, s.db, m.LevelID)
	if err != nil {
		return err
	}
	var levelPrice float64
	role := s.cfg.DefaultRole
	if lvl != nil {
		levelPrice = lvl.Price
		if lvl.Role != "" {
			role = lvl.Role
		}
	}

	if s.canCancelAtGateway(m, levelPrice) {
		if err := s.canceller.CancelSubscription(ctx, m.Gateway, m.GatewayCustomerID, m.GatewaySubscriptionID); err != nil {
			s.log.Warn("gateway profile cancel failed",
				zap.Int64("membership_id", m.ID),
				zap.String("gateway", m.Gateway),
				zap.Error(err),
			)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.disableOther(ctx, tx, membershipID, s.clock.Now())
	})
	if err != nil {
		return err
	}

	if err := s.customers.RevokeRole(ctx, m.CustomerID, role); err != nil {
		s.log.Warn("revoke role failed", zap.Int64("customer_id", m.CustomerID), zap.Error(err))
	}
	s.log.Info("membership disabled", zap.Int64("membership_id", membershipID))
	return nil
}

func (s *Service) Enable(ctx context.Context, id string) error {
	membershipID, err := parseID(id)
	if err != nil {
		return err
	}

	var out domain.Membership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if !m.Disabled {
			out = *m
			return nil
		}
		now := s.clock.Now()
		m.Disabled = false
		m.Notes = appendNote(m.Notes, "membership enabled", now)
		m.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, m); err != nil {
			return err
		}
		out = *m
		return nil
	})
	if err != nil {
		return err
	}

	if out.IsActive(s.clock.Now()) {
		lvl, err := s.levelRepo.FindByID(ctx, s.db, out.LevelID)
		if err == nil && lvl != nil {
			role := lvl.Role
			if role == "" {
				role = s.cfg.DefaultRole
			}
			if err := s.customers.GrantRole(ctx, out.CustomerID, role); err != nil {
				s.log.Warn("grant role failed", zap.Int64("customer_id", out.CustomerID), zap.Error(err))
			}
		}
	}
	return nil
}

func (s *Service) AddNote(ctx context.Context, id string, note string) error {
	membershipID, err := parseID(id)
	if err != nil {
		return err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		now := s.clock.Now()
		m.Notes = appendNote(m.Notes, note, now)
		m.UpdatedAt = now
		return s.repo.Update(ctx, tx, m)
	})
}

func (s *Service) IncrementTimesBilled(ctx context.Context, membershipID int64) error {
	var completeDue bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		m.TimesBilled++
		m.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, m); err != nil {
			return err
		}
		completeDue = m.AtMaximumRenewals() && !m.IsPaymentPlanComplete()
		return nil
	})
	if err != nil {
		return err
	}
	if completeDue {
		return s.CompletePaymentPlan(ctx, membershipID)
	}
	return nil
}

func (s *Service) CompletePaymentPlan(ctx context.Context, membershipID int64) error {
	m, err := s.repo.FindByID(ctx, s.db, membershipID)
	if err != nil {
		return err
	}
	if m == nil {
		return domain.ErrNotFound
	}
	if m.IsPaymentPlanComplete() {
		return nil
	}

	lvl, err := s.levelRepo.FindByID(ctx, s.db, m.LevelID)
	if err != nil {
		return err
	}
	if lvl == nil {
		return domain.ErrNoLevel
	}

	if s.canCancelAtGateway(m, lvl.Price) {
		if err := s.canceller.CancelSubscription(ctx, m.Gateway, m.GatewayCustomerID, m.GatewaySubscriptionID); err != nil {
			s.log.Warn("gateway profile cancel failed",
				zap.Int64("membership_id", m.ID),
				zap.String("gateway", m.Gateway),
				zap.Error(err),
			)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrNotFound
		}
		if locked.IsPaymentPlanComplete() {
			return nil
		}
		now := s.clock.Now()
		locked.PaymentPlanCompletedAt = &now
		locked.Notes = appendNote(locked.Notes, "payment plan completed", now)
		locked.UpdatedAt = now
		return s.repo.Update(ctx, tx, locked)
	})
	if err != nil {
		return err
	}

	s.log.Info("payment plan completed",
		zap.Int64("membership_id", membershipID),
		zap.String("after_final_payment", string(lvl.AfterFinalPayment)),
	)

	switch lvl.AfterFinalPayment {
	case leveldomain.AfterFinalExpireNow:
		return s.ExpireByID(ctx, membershipID)
	case leveldomain.AfterFinalExpireTermEnd:
		return s.CancelByID(ctx, membershipID)
	default:
		// Lifetime: the member keeps access forever, nothing left to bill.
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
			if err != nil {
				return err
			}
			if locked == nil {
				return domain.ErrNotFound
			}
			locked.AutoRenew = false
			locked.ExpirationAt = nil
			locked.UpdatedAt = s.clock.Now()
			return s.repo.Update(ctx, tx, locked)
		})
	}
}

func (s *Service) ResolveByGateway(ctx context.Context, gateway, subscriptionID, customerID string) (*domain.Membership, error) {
	if subscriptionID != "" {
		m, err := s.repo.FindByGatewaySubscription(ctx, s.db, gateway, subscriptionID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}
	if customerID != "" {
		return s.repo.LatestForGatewayCustomer(ctx, s.db, gateway, customerID)
	}
	return nil, nil
}

func (s *Service) canCancelAtGateway(m *domain.Membership, levelPrice float64) bool {
	if s.canceller == nil || !s.canceller.Supports(m.Gateway) {
		return false
	}
	now := s.clock.Now()
	return m.AutoRenew &&
		m.EffectiveStatus(now) == domain.StatusActive &&
		m.IsPaid(now, levelPrice) &&
		!m.IsExpired(now)
}

func (s *Service) disableOther(ctx context.Context, tx *gorm.DB, membershipID int64, now time.Time) error {
	m, err := s.repo.FindByIDForUpdate(ctx, tx, membershipID)
	if err != nil {
		return err
	}
	if m == nil || m.Disabled {
		return nil
	}
	m.Disabled = true
	m.AutoRenew = false
	m.Notes = appendNote(m.Notes, "membership disabled", now)
	m.UpdatedAt = now
	return s.repo.Update(ctx, tx, m)
}

func (s *Service) publish(ctx context.Context, topic string, m *domain.Membership, lvl *leveldomain.Level) {
	event := events.MembershipEvent{
		Topic:        topic,
		MembershipID: m.ID,
		CustomerID:   m.CustomerID,
		LevelID:      m.LevelID,
		ExpiresAt:    m.ExpirationAt,
		OccurredAt:   s.clock.Now(),
	}
	if lvl != nil {
		event.LevelName = lvl.Name
	}
	s.bus.Publish(ctx, event)
}

func (s *Service) find(ctx context.Context, id string) (*domain.Membership, error) {
	membershipID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindByID(ctx, s.db, membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *Service) toResponse(m *domain.Membership, lvl *leveldomain.Level) domain.Response {
	now := s.clock.Now()
	resp := domain.Response{
		ID:                     snowflake.ID(m.ID).String(),
		CustomerID:             snowflake.ID(m.CustomerID).String(),
		LevelID:                snowflake.ID(m.LevelID).String(),
		Currency:               m.Currency,
		InitialAmount:          m.InitialAmount,
		RecurringAmount:        m.RecurringAmount,
		TrialEndAt:             m.TrialEndAt,
		RenewedAt:              m.RenewedAt,
		CancelledAt:            m.CancelledAt,
		ExpirationAt:           m.ExpirationAt,
		PaymentPlanCompletedAt: m.PaymentPlanCompletedAt,
		TimesBilled:            m.TimesBilled,
		MaximumRenewals:        m.MaximumRenewals,
		Status:                 string(m.Status),
		EffectiveStatus:        string(m.EffectiveStatus(now)),
		Active:                 m.IsActive(now),
		AutoRenew:              m.AutoRenew,
		Gateway:                m.Gateway,
		GatewayCustomerID:      m.GatewayCustomerID,
		GatewaySubscriptionID:  m.GatewaySubscriptionID,
		SignupMethod:           m.SignupMethod,
		SubscriptionKey:        m.SubscriptionKey,
		Disabled:               m.Disabled,
		Notes:                  m.Notes,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
	if m.UpgradedFrom != 0 {
		resp.UpgradedFrom = snowflake.ID(m.UpgradedFrom).String()
	}
	if lvl != nil {
		resp.CanRenew = m.CanRenew(now, lvl.Price, lvl.Status == leveldomain.StatusActive)
	}
	return resp
}

// levelFor resolves the membership's level for response enrichment. A
// membership without a level yields nil rather than an error.
func (s *Service) levelFor(ctx context.Context, m *domain.Membership) (*leveldomain.Level, error) {
	if m.LevelID == 0 {
		return nil, nil
	}
	return s.levelRepo.FindByID(ctx, s.db, m.LevelID)
}

func parseID(id string) (int64, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return parsed.Int64(), nil
}

func newSubscriptionKey() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func appendNote(notes, note string, at time.Time) string {
	line := at.Format("2006-01-02 15:04:05") + " - " + note
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
