package webhook_test

import (
	"context"
	"fmt"
	"net/http"
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
	"memberd/internal/gateway/adapters"
	gatewaydomain "memberd/internal/gateway/domain"
	"memberd/internal/gateway/webhook"
	leveldomain "memberd/internal/level/domain"
	levelrepo "memberd/internal/level/repository"
	membershipdomain "memberd/internal/membership/domain"
	membershiprepo "memberd/internal/membership/repository"
	membershipservice "memberd/internal/membership/service"
	paymentdomain "memberd/internal/payment/domain"
	paymentrepo "memberd/internal/payment/repository"
	paymentservice "memberd/internal/payment/service"
)

// fakeAdapter trusts every delivery and replays a canned event, standing in
// for a real gateway in ingest tests.
type fakeAdapter struct {
	event *gatewaydomain.Event
	err   error
}

func (f *fakeAdapter) Provider() string { return "fakepay" }

func (f *fakeAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return nil
}

func (f *fakeAdapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*gatewaydomain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

type fixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	clk         *clock.FakeClock
	adapter     *fakeAdapter
	svc         *webhook.Service
	memberships membershipdomain.Service
	payments    paymentdomain.Service
	levels      leveldomain.Repository
	repo        membershipdomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:webhookdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&leveldomain.Level{},
		&membershipdomain.Membership{},
		&paymentdomain.Payment{},
		&gatewaydomain.WebhookEvent{},
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
	payments := paymentservice.New(paymentservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: paymentrepo.Provide(),
	})
	repo := membershiprepo.Provide()
	levels := levelrepo.Provide()
	memberships := membershipservice.New(membershipservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Cfg:       config.Config{Currency: "USD"},
		Repo:      repo,
		LevelRepo: levels,
		Customers: customers,
		Bus:       events.NewBus(),
	})

	adapter := &fakeAdapter{}
	svc := webhook.NewService(webhook.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Adapters:    adapters.NewRegistry(adapter),
		Memberships: memberships,
		Payments:    payments,
	})

	return &fixture{
		db:          db,
		node:        node,
		clk:         clk,
		adapter:     adapter,
		svc:         svc,
		memberships: memberships,
		payments:    payments,
		levels:      levels,
		repo:        repo,
	}
}

func (f *fixture) seedMembership(t *testing.T) *membershipdomain.Membership {
	t.Helper()
	now := f.clk.Now()
	lvl := &leveldomain.Level{
		ID:                f.node.Generate().Int64(),
		Name:              "Gold",
		Price:             29.99,
		Duration:          1,
		DurationUnit:      leveldomain.UnitMonth,
		TrialDurationUnit: leveldomain.UnitDay,
		Status:            leveldomain.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := f.levels.Create(context.Background(), f.db, lvl); err != nil {
		t.Fatalf("seed level: %v", err)
	}

	expires := now.AddDate(0, 1, 0)
	m := &membershipdomain.Membership{
		ID:                    f.node.Generate().Int64(),
		CustomerID:            f.node.Generate().Int64(),
		LevelID:               lvl.ID,
		Currency:              "USD",
		RecurringAmount:       29.99,
		Status:                membershipdomain.StatusActive,
		AutoRenew:             true,
		Gateway:               "fakepay",
		GatewayCustomerID:     "cus_1",
		GatewaySubscriptionID: "sub_1",
		ExpirationAt:          &expires,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := f.repo.Create(context.Background(), f.db, m); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return m
}

func renewalEvent(id, txn string) *gatewaydomain.Event {
	return &gatewaydomain.Event{
		Provider:       "fakepay",
		EventID:        id,
		Type:           gatewaydomain.EventTypeRenewalPayment,
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
		TransactionID:  txn,
		Amount:         29.99,
		Currency:       "USD",
	}
}

func TestIngestRenewalCreatesPaymentAndRenews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.seedMembership(t)
	f.adapter.event = renewalEvent("evt_1", "txn_1")

	result, err := f.svc.Ingest(ctx, "fakepay", []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Status != webhook.StatusProcessed {
		t.Fatalf("status = %s, want processed", result.Status)
	}

	got, err := f.repo.FindByID(ctx, f.db, m.ID)
	if err != nil {
		t.Fatalf("find membership: %v", err)
	}
	if got.TimesBilled != 1 {
		t.Fatalf("times billed = %d, want 1", got.TimesBilled)
	}
	if got.RenewedAt == nil {
		t.Fatal("renewal should stamp renewed_at")
	}
	want := time.Date(2024, time.August, 1, 23, 59, 59, 0, time.UTC)
	if got.ExpirationAt == nil || !got.ExpirationAt.Equal(want) {
		t.Fatalf("expiration = %v, want %v", got.ExpirationAt, want)
	}

	has, err := f.payments.HasTransaction(ctx, "fakepay", "txn_1")
	if err != nil {
		t.Fatalf("has transaction: %v", err)
	}
	if !has {
		t.Fatal("renewal payment was not recorded")
	}
}

func TestIngestReplayIsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.seedMembership(t)
	f.adapter.event = renewalEvent("evt_1", "txn_1")

	if _, err := f.svc.Ingest(ctx, "fakepay", []byte(`{}`), http.Header{}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	result, err := f.svc.Ingest(ctx, "fakepay", []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if result.Status != webhook.StatusDuplicate {
		t.Fatalf("status = %s, want duplicate", result.Status)
	}

	got, err := f.repo.FindByID(ctx, f.db, m.ID)
	if err != nil {
		t.Fatalf("find membership: %v", err)
	}
	if got.TimesBilled != 1 {
		t.Fatalf("times billed = %d after replay, want 1", got.TimesBilled)
	}
}

func TestIngestSameTransactionDifferentEventIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedMembership(t)

	f.adapter.event = renewalEvent("evt_1", "txn_1")
	if _, err := f.svc.Ingest(ctx, "fakepay", []byte(`{}`), http.Header{}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// A fresh event id for a transaction already on file.
	f.adapter.event = renewalEvent("evt_2", "txn_1")
	result, err := f.svc.Ingest(ctx, "fakepay", []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if result.Status != webhook.StatusIgnored {
		t.Fatalf("status = %s, want ignored", result.Status)
	}
}

func TestIngestSubscriptionCancelled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.seedMembership(t)
	f.adapter.event = &gatewaydomain.Event{
		Provider:       "fakepay",
		EventID:        "evt_3",
		Type:           gatewaydomain.EventTypeSubscriptionCancelled,
		SubscriptionID: "sub_1",
	}

	result, err := f.svc.Ingest(ctx, "fakepay", []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Status != webhook.StatusProcessed {
		t.Fatalf("status = %s, want processed", result.Status)
	}

	got, err := f.repo.FindByID(ctx, f.db, m.ID)
	if err != nil {
		t.Fatalf("find membership: %v", err)
	}
	if got.Status != membershipdomain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	// The member keeps access until the paid-through date.
	if got.ExpirationAt == nil || !got.ExpirationAt.After(f.clk.Now()) {
		t.Fatal("cancellation must not cut the current term short")
	}
}

func TestIngestUnknownMembershipIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.adapter.event = renewalEvent("evt_4", "txn_9")

	result, err := f.svc.Ingest(ctx, "fakepay", []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Status != webhook.StatusIgnored {
		t.Fatalf("status = %s, want ignored", result.Status)
	}
}

func TestIngestUnknownProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Ingest(ctx, "nopay", []byte(`{}`), http.Header{})
	if err != gatewaydomain.ErrProviderNotFound {
		t.Fatalf("err = %v, want %v", err, gatewaydomain.ErrProviderNotFound)
	}
}

func TestIngestIgnoredEventType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.adapter.err = gatewaydomain.ErrEventIgnored

	result, err := f.svc.Ingest(ctx, "fakepay", []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Status != webhook.StatusIgnored {
		t.Fatalf("status = %s, want ignored", result.Status)
	}
}
