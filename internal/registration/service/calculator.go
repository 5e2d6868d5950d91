package service

import (
	"context"
	"math"
	"strings"
	"time"

	"memberd/internal/clock"
	"memberd/internal/config"
	customerdomain "memberd/internal/customer/domain"
	discountdomain "memberd/internal/discount/domain"
	leveldomain "memberd/internal/level/domain"
	membershipdomain "memberd/internal/membership/domain"
	paymentdomain "memberd/internal/payment/domain"
	"memberd/internal/registration/domain"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	Cfg            config.Config
	LevelRepo      leveldomain.Repository
	MembershipRepo membershipdomain.Repository
	Discounts      discountdomain.Service
	Payments       paymentdomain.Service
	Customers      customerdomain.Service
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	cfg            config.Config
	levelRepo      leveldomain.Repository
	membershipRepo membershipdomain.Repository
	discounts      discountdomain.Service
	payments       paymentdomain.Service
	customers      customerdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("registration.service"),
		clock:          p.Clock,
		cfg:            p.Cfg,
		levelRepo:      p.LevelRepo,
		membershipRepo: p.MembershipRepo,
		discounts:      p.Discounts,
		payments:       p.Payments,
		customers:      p.Customers,
	}
}

func (s *Service) Preview(ctx context.Context, req domain.Request) (*domain.Response, error) {
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

	now := s.clock.Now()

	var (
		customer     *customerdomain.Response
		current      *membershipdomain.Membership
		currentLevel *leveldomain.Level
	)
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customer, err = s.customers.Get(ctx, raw)
		if err != nil {
			return nil, domain.ErrInvalidCustomer
		}
		customerID, _ := snowflake.ParseString(raw)
		current, currentLevel, err = s.currentMembership(ctx, customerID.Int64(), now)
		if err != nil {
			return nil, err
		}
	}

	applied := make([]*discountdomain.Discount, 0, len(req.DiscountCodes))
	for _, code := range req.DiscountCodes {
		d, err := s.discounts.Validate(ctx, code, lvl.ID)
		if err != nil {
			return nil, err
		}
		applied = append(applied, d)
	}

	// The discounted recurring total decides upgrade versus downgrade, so it
	// is computed before the registration is classified.
	recurringTotal := recurringPrice(lvl, applied, s.decimals())
	regType := classify(current, currentLevel, lvl, recurringTotal)

	fees := make([]domain.Fee, 0, 2)
	seen := make(map[string]struct{})
	addFee := func(f domain.Fee) {
		key := f.Hash()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		fees = append(fees, f)
	}

	if lvl.Fee != 0 && regType != domain.TypeRenewal {
		desc := "signup fee"
		if lvl.Fee < 0 {
			desc = "signup credit"
		}
		addFee(domain.Fee{Description: desc, Amount: lvl.Fee})
	}

	var prorationCredit float64
	if current != nil && (regType == domain.TypeUpgrade || regType == domain.TypeDowngrade) {
		prorationCredit = s.prorationCredit(ctx, now, current, currentLevel)
		if prorationCredit > 0 {
			addFee(domain.Fee{Description: "proration credit", Amount: -prorationCredit, Proration: true})
		}
	}

	trialEligible := lvl.HasTrial() && customer != nil && !customer.HasTrialed

	total := lvl.Price
	for _, d := range applied {
		total = d.ApplyTo(total)
	}
	discountTotal := s.round(lvl.Price - total)

	for _, f := range fees {
		if !f.Recurring {
			total += f.Amount
		}
	}
	if total < 0 {
		total = 0
	}
	total = s.round(total)
	if trialEligible {
		total = 0
	}

	for _, f := range fees {
		if f.Recurring {
			recurringTotal += f.Amount
		}
	}
	if recurringTotal < 0 {
		recurringTotal = 0
	}
	recurringTotal = s.round(recurringTotal)

	resp := &domain.Response{
		Type:            regType,
		LevelID:         snowflake.ID(lvl.ID).String(),
		Currency:        s.cfg.Currency,
		Subtotal:        lvl.Price,
		Fees:            fees,
		DiscountTotal:   discountTotal,
		ProrationCredit: prorationCredit,
		TotalDueToday:   total,
		RecurringTotal:  recurringTotal,
		TrialEligible:   trialEligible,
	}
	for _, d := range applied {
		resp.Discounts = append(resp.Discounts, domain.AppliedDiscount{
			Code:    d.Code,
			Amount:  d.Amount,
			Unit:    string(d.Unit),
			OneTime: d.OneTime,
		})
	}

	s.log.Debug("registration priced",
		zap.String("type", string(regType)),
		zap.Float64("total_due_today", resp.TotalDueToday),
		zap.Float64("recurring_total", resp.RecurringTotal),
	)
	return resp, nil
}

func (s *Service) currentMembership(ctx context.Context, customerID int64, now time.Time) (*membershipdomain.Membership, *leveldomain.Level, error) {
	disabled := false
	items, err := s.membershipRepo.List(ctx, s.db, membershipdomain.ListFilter{
		CustomerID: customerID,
		Disabled:   &disabled,
	})
	if err != nil {
		return nil, nil, err
	}

	var current *membershipdomain.Membership
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].IsActive(now) {
			current = &items[i]
			break
		}
	}
	if current == nil {
		return nil, nil, nil
	}

	lvl, err := s.levelRepo.FindByID(ctx, s.db, current.LevelID)
	if err != nil {
		return nil, nil, err
	}
	return current, lvl, nil
}

// prorationCredit is the unused value of the current term: the last
// complete payment's subtotal scaled by the fraction of the billing cycle
// still remaining. Unpaid, trialing, lifetime and expired memberships earn
// no credit.
func (s *Service) prorationCredit(ctx context.Context, now time.Time, m *membershipdomain.Membership, lvl *leveldomain.Level) float64 {
	if lvl == nil || m.ExpirationAt == nil || m.IsExpired(now) || m.IsTrialing(now) {
		return 0
	}
	totalDays := lvl.DaysInCycle()
	if totalDays <= 0 {
		return 0
	}

	last, err := s.payments.LastComplete(ctx, m.ID)
	if err != nil || last == nil || last.Subtotal <= 0 {
		return 0
	}

	remaining := m.ExpirationAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	ratio := remaining.Seconds() / (totalDays * 86400)
	if ratio > 1 {
		ratio = 1
	}
	return math.Round(last.Subtotal*ratio*100) / 100
}

// classify labels the registration. Moving to a level with a lower
// effective price per day is a downgrade; the comparison is strict, so
// equal rates count as an upgrade.
func classify(current *membershipdomain.Membership, currentLevel, newLevel *leveldomain.Level, discountedRecurring float64) domain.Type {
	if current == nil {
		return domain.TypeNew
	}
	if current.LevelID == newLevel.ID {
		return domain.TypeRenewal
	}
	if currentLevel == nil {
		return domain.TypeUpgrade
	}
	oldRate := pricePerDay(currentLevel.Price, currentLevel.DaysInCycle())
	newRate := pricePerDay(discountedRecurring, newLevel.DaysInCycle())
	if oldRate > newRate {
		return domain.TypeDowngrade
	}
	return domain.TypeUpgrade
}

// pricePerDay normalizes a cycle price to a daily rate. Lifetime levels
// have no cycle, so the whole price stands in.
func pricePerDay(price, daysInCycle float64) float64 {
	if daysInCycle <= 0 {
		return price
	}
	return price / daysInCycle
}

func recurringPrice(lvl *leveldomain.Level, discounts []*discountdomain.Discount, decimals int) float64 {
	if lvl.IsLifetime() {
		return 0
	}
	total := lvl.Price
	for _, d := range discounts {
		if d.OneTime {
			continue
		}
		total = d.ApplyTo(total)
	}
	if total < 0 {
		total = 0
	}
	return roundTo(total, decimals)
}

func (s *Service) decimals() int {
	if s.cfg.CurrencyDecimals > 0 {
		return s.cfg.CurrencyDecimals
	}
	return 2
}

func (s *Service) round(v float64) float64 {
	return roundTo(v, s.decimals())
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
