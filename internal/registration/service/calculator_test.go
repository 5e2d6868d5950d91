package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"memberd/internal/clock"
	"memberd/internal/config"
	customerdomain "memberd/internal/customer/domain"
	customerrepo "memberd/internal/customer/repository"
	customerservice "memberd/internal/customer/service"
	discountdomain "memberd/internal/discount/domain"
	discountrepo "memberd/internal/discount/repository"
	discountservice "memberd/internal/discount/service"
	leveldomain "memberd/internal/level/domain"
	levelrepo "memberd/internal/level/repository"
	membershipdomain "memberd/internal/membership/domain"
	membershiprepo "memberd/internal/membership/repository"
	paymentdomain "memberd/internal/payment/domain"
	paymentrepo "memberd/internal/payment/repository"
	paymentservice "memberd/internal/payment/service"
	"memberd/internal/registration/domain"
	"memberd/internal/registration/service"
)

type fixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	clk         *clock.FakeClock
	levels      leveldomain.Repository
	memberships membershipdomain.Repository
	discounts   discountdomain.Repository
	payments    paymentdomain.Repository
	customers   customerdomain.Service
	svc         domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:regdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&leveldomain.Level{},
		&membershipdomain.Membership{},
		&discountdomain.Discount{},
		&paymentdomain.Payment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))

	customers := customerservice.New(customerservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: customerrepo.Provide(),
	})
	discounts := discountservice.New(discountservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: discountrepo.Provide(),
	})
	payments := paymentservice.New(paymentservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: paymentrepo.Provide(),
	})

	levels := levelrepo.Provide()
	memberships := membershiprepo.Provide()
	svc := service.New(service.Params{
		DB:             db,
		Log:            zap.NewNop(),
		Clock:          clk,
		Cfg:            config.Config{Currency: "USD", CurrencyDecimals: 2},
		LevelRepo:      levels,
		MembershipRepo: memberships,
		Discounts:      discounts,
		Payments:       payments,
		Customers:      customers,
	})

	return &fixture{
		db:          db,
		node:        node,
		clk:         clk,
		levels:      levels,
		memberships: memberships,
		discounts:   discountrepo.Provide(),
		payments:    paymentrepo.Provide(),
		customers:   customers,
		svc:         svc,
	}
}

func (f *fixture) seedLevel(t *testing.T, lvl leveldomain.Level) *leveldomain.Level {
	t.Helper()
	if lvl.ID == 0 {
		lvl.ID = f.node.Generate().Int64()
	}
	if lvl.Name == "" {
		lvl.Name = "Gold"
	}
	if lvl.DurationUnit == "" {
		lvl.DurationUnit = leveldomain.UnitMonth
	}
	if lvl.TrialDurationUnit == "" {
		lvl.TrialDurationUnit = leveldomain.UnitDay
	}
	if lvl.Status == "" {
		lvl.Status = leveldomain.StatusActive
	}
	now := f.clk.Now()
	lvl.CreatedAt = now
	lvl.UpdatedAt = now
	if err := f.levels.Create(context.Background(), f.db, &lvl); err != nil {
		t.Fatalf("seed level: %v", err)
	}
	return &lvl
}

func (f *fixture) seedCustomer(t *testing.T, email string) string {
	t.Helper()
	resp, err := f.customers.Create(context.Background(), customerdomain.CreateRequest{Email: email})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return resp.ID
}

func (f *fixture) seedActiveMembership(t *testing.T, customerID string, lvl *leveldomain.Level, expires time.Time) *membershipdomain.Membership {
	t.Helper()
	cid, err := snowflake.ParseString(customerID)
	if err != nil {
		t.Fatalf("parse customer id: %v", err)
	}
	now := f.clk.Now()
	m := &membershipdomain.Membership{
		ID:           f.node.Generate().Int64(),
		CustomerID:   cid.Int64(),
		LevelID:      lvl.ID,
		Currency:     "USD",
		Status:       membershipdomain.StatusActive,
		ExpirationAt: &expires,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.memberships.Create(context.Background(), f.db, m); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return m
}

func (f *fixture) seedDiscount(t *testing.T, d discountdomain.Discount) {
	t.Helper()
	if d.ID == 0 {
		d.ID = f.node.Generate().Int64()
	}
	if d.Unit == "" {
		d.Unit = discountdomain.UnitPercent
	}
	if d.Status == "" {
		d.Status = discountdomain.StatusActive
	}
	now := f.clk.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	if err := f.discounts.Create(context.Background(), f.db, &d); err != nil {
		t.Fatalf("seed discount: %v", err)
	}
}

func TestPreviewNewSignupWithDiscountAndFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t, leveldomain.Level{Price: 100, Fee: 10, Duration: 1})
	f.seedDiscount(t, discountdomain.Discount{Code: "save20", Amount: 20, OneTime: true})

	resp, err := f.svc.Preview(ctx, domain.Request{
		LevelID:       snowflake.ID(lvl.ID).String(),
		DiscountCodes: []string{"save20"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeNew, resp.Type)
	assert.Equal(t, 100.0, resp.Subtotal)
	assert.Equal(t, 20.0, resp.DiscountTotal)
	// 100 - 20% + 10 signup fee.
	assert.Equal(t, 90.0, resp.TotalDueToday)
	// One-time code never touches the recurring price.
	assert.Equal(t, 100.0, resp.RecurringTotal)
	require.Len(t, resp.Fees, 1)
	assert.Equal(t, "signup fee", resp.Fees[0].Description)
}

func TestPreviewTrialEligibleOwesNothingToday(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t, leveldomain.Level{Price: 50, Duration: 1, TrialDuration: 14})
	customerID := f.seedCustomer(t, "ann@example.com")

	resp, err := f.svc.Preview(ctx, domain.Request{
		CustomerID: customerID,
		LevelID:    snowflake.ID(lvl.ID).String(),
	})
	require.NoError(t, err)
	assert.True(t, resp.TrialEligible)
	assert.Equal(t, 0.0, resp.TotalDueToday)
	assert.Equal(t, 50.0, resp.RecurringTotal)
}

func TestPreviewRenewalSkipsSignupFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t, leveldomain.Level{Price: 50, Fee: 10, Duration: 1})
	customerID := f.seedCustomer(t, "bob@example.com")
	f.seedActiveMembership(t, customerID, lvl, f.clk.Now().AddDate(0, 0, 10))

	resp, err := f.svc.Preview(ctx, domain.Request{
		CustomerID: customerID,
		LevelID:    snowflake.ID(lvl.ID).String(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeRenewal, resp.Type)
	assert.Empty(t, resp.Fees, "renewals pay no signup fee")
	assert.Equal(t, 50.0, resp.TotalDueToday)
}

func TestPreviewClassifiesDowngradeByDailyRate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gold := f.seedLevel(t, leveldomain.Level{Name: "Gold", Price: 30, Duration: 1})
	bronze := f.seedLevel(t, leveldomain.Level{Name: "Bronze", Price: 10, Duration: 1})
	sameRate := f.seedLevel(t, leveldomain.Level{Name: "Gold Monthly", Price: 30, Duration: 1})
	customerID := f.seedCustomer(t, "carol@example.com")
	f.seedActiveMembership(t, customerID, gold, f.clk.Now().AddDate(0, 0, 20))

	resp, err := f.svc.Preview(ctx, domain.Request{
		CustomerID: customerID,
		LevelID:    snowflake.ID(bronze.ID).String(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeDowngrade, resp.Type)

	// Equal daily rates count as an upgrade, the comparison is strict.
	resp, err = f.svc.Preview(ctx, domain.Request{
		CustomerID: customerID,
		LevelID:    snowflake.ID(sameRate.ID).String(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeUpgrade, resp.Type)
}

func TestPreviewUpgradeCreditsUnusedTerm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	monthly := f.seedLevel(t, leveldomain.Level{Name: "Monthly", Price: 30, Duration: 1})
	premium := f.seedLevel(t, leveldomain.Level{Name: "Premium", Price: 60, Duration: 1})
	customerID := f.seedCustomer(t, "dave@example.com")

	// Half the 30-day cycle remains.
	m := f.seedActiveMembership(t, customerID, monthly, f.clk.Now().AddDate(0, 0, 15))
	cid, err := snowflake.ParseString(customerID)
	require.NoError(t, err)
	now := f.clk.Now()
	p := &paymentdomain.Payment{
		ID:           f.node.Generate().Int64(),
		MembershipID: m.ID,
		CustomerID:   cid.Int64(),
		LevelID:      monthly.ID,
		Amount:       30,
		Subtotal:     30,
		Status:       paymentdomain.StatusComplete,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.payments.Create(ctx, f.db, p))

	resp, err := f.svc.Preview(ctx, domain.Request{
		CustomerID: customerID,
		LevelID:    snowflake.ID(premium.ID).String(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeUpgrade, resp.Type)
	assert.Equal(t, 15.0, resp.ProrationCredit)
	// 60 minus the 15.00 credit.
	assert.Equal(t, 45.0, resp.TotalDueToday)
}

func TestPreviewRejectsInactiveLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t, leveldomain.Level{Price: 50, Duration: 1, Status: leveldomain.StatusInactive})

	_, err := f.svc.Preview(ctx, domain.Request{LevelID: snowflake.ID(lvl.ID).String()})
	assert.ErrorIs(t, err, domain.ErrLevelInactive)
}
