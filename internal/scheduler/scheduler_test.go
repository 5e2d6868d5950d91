package scheduler_test

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
	"memberd/internal/config"
	customerdomain "memberd/internal/customer/domain"
	customerrepo "memberd/internal/customer/repository"
	customerservice "memberd/internal/customer/service"
	"memberd/internal/events"
	leveldomain "memberd/internal/level/domain"
	levelrepo "memberd/internal/level/repository"
	membershipdomain "memberd/internal/membership/domain"
	membershiprepo "memberd/internal/membership/repository"
	membershipservice "memberd/internal/membership/service"
	"memberd/internal/observability/metrics"
	"memberd/internal/scheduler"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clk   *clock.FakeClock
	bus   *events.Bus
	repo  membershipdomain.Repository
	lvls  leveldomain.Repository
	svc   membershipdomain.Service
	sched *scheduler.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	metrics.ResetSchedulerMetricsForTest()

	dsn := fmt.Sprintf("file:scheddb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&leveldomain.Level{},
		&membershipdomain.Membership{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
	bus := events.NewBus()

	customers := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  customerrepo.Provide(),
	})
	repo := membershiprepo.Provide()
	lvls := levelrepo.Provide()
	svc := membershipservice.New(membershipservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Cfg:       config.Config{Currency: "USD"},
		Repo:      repo,
		LevelRepo: lvls,
		Customers: customers,
		Bus:       bus,
	})

	sched, err := scheduler.New(scheduler.Params{
		DB:            db,
		Log:           zap.NewNop(),
		Clock:         clk,
		MembershipSvc: svc,
		Memberships:   repo,
		Levels:        lvls,
		Bus:           bus,
		Holder:        &config.SchedulerConfigHolder{},
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	return &fixture{db: db, node: node, clk: clk, bus: bus, repo: repo, lvls: lvls, svc: svc, sched: sched}
}

func (f *fixture) seedLevel(t *testing.T) *leveldomain.Level {
	t.Helper()
	now := f.clk.Now()
	lvl := &leveldomain.Level{
		ID:                f.node.Generate().Int64(),
		Name:              "Gold",
		Price:             9.99,
		Duration:          1,
		DurationUnit:      leveldomain.UnitMonth,
		TrialDurationUnit: leveldomain.UnitDay,
		Status:            leveldomain.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := f.lvls.Create(context.Background(), f.db, lvl); err != nil {
		t.Fatalf("seed level: %v", err)
	}
	return lvl
}

func (f *fixture) seedMembership(t *testing.T, m membershipdomain.Membership) *membershipdomain.Membership {
	t.Helper()
	if m.ID == 0 {
		m.ID = f.node.Generate().Int64()
	}
	if m.CustomerID == 0 {
		m.CustomerID = f.node.Generate().Int64()
	}
	if m.Currency == "" {
		m.Currency = "USD"
	}
	now := f.clk.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := f.repo.Create(context.Background(), f.db, &m); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return &m
}

func TestExpireMembershipsJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t)

	overdue := f.clk.Now().Add(-1 * time.Hour)
	future := f.clk.Now().Add(48 * time.Hour)
	lapsed := f.seedMembership(t, membershipdomain.Membership{
		LevelID:      lvl.ID,
		Status:       membershipdomain.StatusActive,
		ExpirationAt: &overdue,
	})
	current := f.seedMembership(t, membershipdomain.Membership{
		LevelID:      lvl.ID,
		Status:       membershipdomain.StatusActive,
		ExpirationAt: &future,
	})

	if err := f.sched.ExpireMembershipsJob(ctx, 50); err != nil {
		t.Fatalf("run job: %v", err)
	}

	got, err := f.repo.FindByID(ctx, f.db, lapsed.ID)
	if err != nil {
		t.Fatalf("find lapsed: %v", err)
	}
	if got.Status != membershipdomain.StatusExpired {
		t.Fatalf("lapsed status = %s, want expired", got.Status)
	}

	got, err = f.repo.FindByID(ctx, f.db, current.ID)
	if err != nil {
		t.Fatalf("find current: %v", err)
	}
	if got.Status != membershipdomain.StatusActive {
		t.Fatalf("current status = %s, want active", got.Status)
	}
}

func TestExpireMembershipsJobSkipsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t)

	overdue := f.clk.Now().Add(-1 * time.Hour)
	pending := f.seedMembership(t, membershipdomain.Membership{
		LevelID:      lvl.ID,
		Status:       membershipdomain.StatusPending,
		ExpirationAt: &overdue,
	})

	if err := f.sched.ExpireMembershipsJob(ctx, 50); err != nil {
		t.Fatalf("run job: %v", err)
	}

	got, err := f.repo.FindByID(ctx, f.db, pending.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != membershipdomain.StatusPending {
		t.Fatalf("status = %s, abandoned signups are not expired", got.Status)
	}
}

func TestCompletePaymentPlansJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t)

	capped := f.seedMembership(t, membershipdomain.Membership{
		LevelID:         lvl.ID,
		Status:          membershipdomain.StatusActive,
		TimesBilled:     3,
		MaximumRenewals: 2,
		AutoRenew:       true,
	})

	if err := f.sched.CompletePaymentPlansJob(ctx, 50); err != nil {
		t.Fatalf("run job: %v", err)
	}

	got, err := f.repo.FindByID(ctx, f.db, capped.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.PaymentPlanCompletedAt == nil {
		t.Fatal("payment plan should be marked complete")
	}
	if got.AutoRenew {
		t.Fatal("completed plan must stop auto renewal")
	}
}

func TestSendExpirationRemindersJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t)

	var published []events.MembershipEvent
	f.bus.Subscribe(events.TopicMembershipExpiringSoon, func(_ context.Context, e events.MembershipEvent) {
		published = append(published, e)
	})

	inWindow := f.clk.Now().Add(48 * time.Hour)
	outOfWindow := f.clk.Now().AddDate(0, 0, 10)
	soon := f.seedMembership(t, membershipdomain.Membership{
		LevelID:      lvl.ID,
		Status:       membershipdomain.StatusActive,
		ExpirationAt: &inWindow,
	})
	f.seedMembership(t, membershipdomain.Membership{
		LevelID:      lvl.ID,
		Status:       membershipdomain.StatusActive,
		ExpirationAt: &outOfWindow,
	})
	renewing := f.seedMembership(t, membershipdomain.Membership{
		LevelID:      lvl.ID,
		Status:       membershipdomain.StatusActive,
		ExpirationAt: &inWindow,
		AutoRenew:    true,
	})

	if err := f.sched.SendExpirationRemindersJob(ctx, 50, 3); err != nil {
		t.Fatalf("run job: %v", err)
	}

	if len(published) != 1 {
		t.Fatalf("published %d events, want 1", len(published))
	}
	e := published[0]
	if e.MembershipID != soon.ID {
		t.Fatalf("event membership = %d, want %d", e.MembershipID, soon.ID)
	}
	if e.LevelName != "Gold" {
		t.Fatalf("event level name = %q, want Gold", e.LevelName)
	}
	if e.MembershipID == renewing.ID {
		t.Fatal("auto-renewing memberships get no reminder")
	}

	got, err := f.repo.FindByID(ctx, f.db, soon.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.ExpirationReminderSent {
		t.Fatal("reminder flag should be set")
	}

	// A second run finds nothing: one reminder per term.
	published = published[:0]
	if err := f.sched.SendExpirationRemindersJob(ctx, 50, 3); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(published) != 0 {
		t.Fatalf("published %d events on second run, want 0", len(published))
	}
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lvl := f.seedLevel(t)

	holder := &config.SchedulerConfigHolder{}
	cfg := config.DefaultSchedulerConfig()
	cfg.EnabledJobs = []string{"complete_payment_plans"}
	holder.Set(cfg)

	sched, err := scheduler.New(scheduler.Params{
		DB:            f.db,
		Log:           zap.NewNop(),
		Clock:         f.clk,
		MembershipSvc: f.svc,
		Memberships:   f.repo,
		Levels:        f.lvls,
		Bus:           f.bus,
		Holder:        holder,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	overdue := f.clk.Now().Add(-1 * time.Hour)
	lapsed := f.seedMembership(t, membershipdomain.Membership{
		LevelID:      lvl.ID,
		Status:       membershipdomain.StatusActive,
		ExpirationAt: &overdue,
	})

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}

	got, err := f.repo.FindByID(ctx, f.db, lapsed.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != membershipdomain.StatusActive {
		t.Fatal("expire job was disabled and should not have run")
	}
}
