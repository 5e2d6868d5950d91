package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"memberd/internal/clock"
	customerdomain "memberd/internal/customer/domain"
	customerrepo "memberd/internal/customer/repository"
	leveldomain "memberd/internal/level/domain"
	levelrepo "memberd/internal/level/repository"
	membershipdomain "memberd/internal/membership/domain"
	membershiprepo "memberd/internal/membership/repository"
	"memberd/internal/restriction/domain"
	restrictionrepo "memberd/internal/restriction/repository"
	"memberd/internal/restriction/service"
)

type fixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	clk         *clock.FakeClock
	customers   customerdomain.Repository
	levels      leveldomain.Repository
	memberships membershipdomain.Repository
	svc         domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:restrictdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&leveldomain.Level{},
		&membershipdomain.Membership{},
		&domain.ContentRestriction{},
		&domain.TermRestriction{},
		&domain.TermAssignment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))

	customers := customerrepo.Provide()
	levels := levelrepo.Provide()
	memberships := membershiprepo.Provide()

	svc := service.New(service.Params{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          clk,
		Repo:           restrictionrepo.Provide(),
		LevelRepo:      levels,
		MembershipRepo: memberships,
		CustomerRepo:   customers,
	})

	return &fixture{
		db:          db,
		node:        node,
		clk:         clk,
		customers:   customers,
		levels:      levels,
		memberships: memberships,
		svc:         svc,
	}
}

func (f *fixture) seedCustomer(t *testing.T, email, role string) int64 {
	t.Helper()
	now := f.clk.Now()
	c := &customerdomain.Customer{
		ID:           f.node.Generate().Int64(),
		Email:        email,
		GrantedRole:  role,
		RegisteredAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.customers.Create(context.Background(), f.db, c); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c.ID
}

func (f *fixture) seedLevel(t *testing.T, name string, price float64, accessLevel int) *leveldomain.Level {
	t.Helper()
	now := f.clk.Now()
	lvl := &leveldomain.Level{
		ID:                f.node.Generate().Int64(),
		Name:              name,
		Price:             price,
		Duration:          1,
		DurationUnit:      leveldomain.UnitMonth,
		TrialDurationUnit: leveldomain.UnitDay,
		AccessLevel:       accessLevel,
		Status:            leveldomain.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := f.levels.Create(context.Background(), f.db, lvl); err != nil {
		t.Fatalf("seed level: %v", err)
	}
	return lvl
}

func (f *fixture) seedActiveMembership(t *testing.T, customerID int64, lvl *leveldomain.Level) *membershipdomain.Membership {
	t.Helper()
	now := f.clk.Now()
	expires := now.AddDate(0, 1, 0)
	m := &membershipdomain.Membership{
		ID:              f.node.Generate().Int64(),
		CustomerID:      customerID,
		LevelID:         lvl.ID,
		Currency:        "USD",
		RecurringAmount: lvl.Price,
		Status:          membershipdomain.StatusActive,
		ExpirationAt:    &expires,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := f.memberships.Create(context.Background(), f.db, m); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return m
}

func (f *fixture) id(v int64) string { return snowflake.ID(v).String() }

func TestCanAccessUnrestrictedContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.CanAccess(ctx, "", "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !res.Allowed || res.Restricted {
		t.Fatalf("result = %+v, unrestricted content is open to everyone", res)
	}
}

func TestCanAccessLevelsMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gold := f.seedLevel(t, "Gold", 10, 0)
	bronze := f.seedLevel(t, "Bronze", 5, 0)

	_, err := f.svc.SetContentRestriction(ctx, domain.ContentRequest{
		ContentID: "post-1",
		Mode:      string(domain.ModeLevels),
		LevelIDs:  []string{f.id(gold.ID)},
	})
	if err != nil {
		t.Fatalf("set restriction: %v", err)
	}

	// Anonymous visitor.
	res, err := f.svc.CanAccess(ctx, "", "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if res.Allowed {
		t.Fatal("anonymous visitor got through a level restriction")
	}
	if res.Reason != "no_customer" {
		t.Fatalf("reason = %q, want no_customer", res.Reason)
	}

	// Member of the wrong level.
	bronzeMember := f.seedCustomer(t, "bronze@example.com", "member")
	f.seedActiveMembership(t, bronzeMember, bronze)
	res, err = f.svc.CanAccess(ctx, f.id(bronzeMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if res.Allowed {
		t.Fatal("bronze member got through a gold-only restriction")
	}
	if res.Reason != "membership_required" {
		t.Fatalf("reason = %q, want membership_required", res.Reason)
	}

	// Member of the allowed level.
	goldMember := f.seedCustomer(t, "gold@example.com", "member")
	f.seedActiveMembership(t, goldMember, gold)
	res, err = f.svc.CanAccess(ctx, f.id(goldMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !res.Allowed || !res.Restricted {
		t.Fatalf("result = %+v, gold member should pass", res)
	}
}

func TestCanAccessAnyPaidMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	free := f.seedLevel(t, "Free", 0, 0)
	paid := f.seedLevel(t, "Paid", 10, 0)

	_, err := f.svc.SetContentRestriction(ctx, domain.ContentRequest{
		ContentID: "post-1",
		Mode:      string(domain.ModeAnyPaid),
	})
	if err != nil {
		t.Fatalf("set restriction: %v", err)
	}

	freeMember := f.seedCustomer(t, "free@example.com", "member")
	f.seedActiveMembership(t, freeMember, free)
	res, err := f.svc.CanAccess(ctx, f.id(freeMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if res.Allowed {
		t.Fatal("free member got through a paid-only restriction")
	}

	paidMember := f.seedCustomer(t, "paid@example.com", "member")
	f.seedActiveMembership(t, paidMember, paid)
	res, err = f.svc.CanAccess(ctx, f.id(paidMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !res.Allowed {
		t.Fatal("paid member should pass an any-paid restriction")
	}
}

func TestCanAccessAccessLevelThreshold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	low := f.seedLevel(t, "Low", 10, 1)
	high := f.seedLevel(t, "High", 20, 5)

	_, err := f.svc.SetContentRestriction(ctx, domain.ContentRequest{
		ContentID:   "post-1",
		Mode:        string(domain.ModeAny),
		AccessLevel: 3,
	})
	if err != nil {
		t.Fatalf("set restriction: %v", err)
	}

	lowMember := f.seedCustomer(t, "low@example.com", "member")
	f.seedActiveMembership(t, lowMember, low)
	res, err := f.svc.CanAccess(ctx, f.id(lowMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if res.Allowed {
		t.Fatal("access level 1 got past a threshold of 3")
	}

	highMember := f.seedCustomer(t, "high@example.com", "member")
	f.seedActiveMembership(t, highMember, high)
	res, err = f.svc.CanAccess(ctx, f.id(highMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !res.Allowed {
		t.Fatal("access level 5 should clear a threshold of 3")
	}
}

func TestCanAccessTermOverlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	free := f.seedLevel(t, "Free", 0, 0)
	paid := f.seedLevel(t, "Paid", 10, 0)

	// The content itself carries no rules; the term does.
	if _, err := f.svc.SetTermRestriction(ctx, domain.TermRequest{
		TermID:   "premium-category",
		PaidOnly: true,
	}); err != nil {
		t.Fatalf("set term restriction: %v", err)
	}
	if err := f.svc.AssignTerm(ctx, "post-1", "premium-category"); err != nil {
		t.Fatalf("assign term: %v", err)
	}

	freeMember := f.seedCustomer(t, "free@example.com", "member")
	f.seedActiveMembership(t, freeMember, free)
	res, err := f.svc.CanAccess(ctx, f.id(freeMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if res.Allowed {
		t.Fatal("free member got into a paid-only category")
	}

	paidMember := f.seedCustomer(t, "paid@example.com", "member")
	f.seedActiveMembership(t, paidMember, paid)
	res, err = f.svc.CanAccess(ctx, f.id(paidMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !res.Allowed {
		t.Fatal("paid member should get into a paid-only category")
	}

	// Unassigning the term lifts the restriction.
	if err := f.svc.UnassignTerm(ctx, "post-1", "premium-category"); err != nil {
		t.Fatalf("unassign term: %v", err)
	}
	res, err = f.svc.CanAccess(ctx, f.id(freeMember), "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !res.Allowed {
		t.Fatal("content with no remaining rules should be open")
	}
}

func TestRemoveContentRestriction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.SetContentRestriction(ctx, domain.ContentRequest{
		ContentID: "post-1",
		Mode:      string(domain.ModeNone),
	}); err != nil {
		t.Fatalf("set restriction: %v", err)
	}

	res, err := f.svc.CanAccess(ctx, "", "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if res.Allowed {
		t.Fatal("mode none locks the content for everyone")
	}

	if err := f.svc.RemoveContentRestriction(ctx, "post-1"); err != nil {
		t.Fatalf("remove restriction: %v", err)
	}
	res, err = f.svc.CanAccess(ctx, "", "post-1")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !res.Allowed {
		t.Fatal("removing the restriction should reopen the content")
	}
}

func TestCanAccessWithMultipleMemberships(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gold := f.seedLevel(t, "Gold", 10, 0)
	silver := f.seedLevel(t, "Silver", 5, 0)

	for contentID, lvl := range map[string]*leveldomain.Level{
		"gold-post":   gold,
		"silver-post": silver,
	} {
		_, err := f.svc.SetContentRestriction(ctx, domain.ContentRequest{
			ContentID: contentID,
			Mode:      string(domain.ModeLevels),
			LevelIDs:  []string{f.id(lvl.ID)},
		})
		if err != nil {
			t.Fatalf("set restriction %s: %v", contentID, err)
		}
	}

	member := f.seedCustomer(t, "multi@example.com", "member")
	f.seedActiveMembership(t, member, gold)
	silverMembership := f.seedActiveMembership(t, member, silver)

	for _, contentID := range []string{"gold-post", "silver-post"} {
		res, err := f.svc.CanAccess(ctx, f.id(member), contentID)
		if err != nil {
			t.Fatalf("can access %s: %v", contentID, err)
		}
		if !res.Allowed {
			t.Fatalf("a member of both levels should reach %s", contentID)
		}
	}

	// Only the silver membership lapses; gold keeps its own gate open.
	past := f.clk.Now().Add(-time.Hour)
	silverMembership.ExpirationAt = &past
	if err := f.memberships.Update(ctx, f.db, silverMembership); err != nil {
		t.Fatalf("expire silver membership: %v", err)
	}

	res, err := f.svc.CanAccess(ctx, f.id(member), "gold-post")
	if err != nil {
		t.Fatalf("can access gold-post: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expiring the silver membership must not touch gold content")
	}

	res, err = f.svc.CanAccess(ctx, f.id(member), "silver-post")
	if err != nil {
		t.Fatalf("can access silver-post: %v", err)
	}
	if res.Allowed {
		t.Fatal("silver content should close once its membership expires")
	}
	if res.Reason != "membership_required" {
		t.Fatalf("reason = %q, want membership_required", res.Reason)
	}
}
