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
	"memberd/internal/customer/domain"
	"memberd/internal/customer/repository"
	"memberd/internal/customer/service"
)

func newService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	dsn := fmt.Sprintf("file:customerdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Customer{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
	svc := service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestCreateNormalizesEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	resp, err := svc.Create(ctx, domain.CreateRequest{Email: "  Ann@Example.COM "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Email != "ann@example.com" {
		t.Fatalf("email = %q, want lowercased", resp.Email)
	}

	got, err := svc.GetByEmail(ctx, "ANN@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != resp.ID {
		t.Fatalf("lookup returned %s, want %s", got.ID, resp.ID)
	}
}

func TestCreateRejectsInvalidEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	if _, err := svc.Create(ctx, domain.CreateRequest{Email: "not-an-email"}); err != domain.ErrInvalidEmail {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidEmail)
	}
	if _, err := svc.Create(ctx, domain.CreateRequest{Email: "   "}); err != domain.ErrInvalidEmail {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidEmail)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	if _, err := svc.Create(ctx, domain.CreateRequest{Email: "ann@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, domain.CreateRequest{Email: "Ann@Example.com"}); err != domain.ErrEmailTaken {
		t.Fatalf("err = %v, want %v", err, domain.ErrEmailTaken)
	}
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	resp, err := svc.Create(ctx, domain.CreateRequest{Email: "ann@example.com", EmailVerification: "pending"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.VerifyEmail(ctx, resp.ID); err != nil {
		t.Fatalf("verify email: %v", err)
	}

	got, err := svc.Get(ctx, resp.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EmailVerification != string(domain.VerificationVerified) {
		t.Fatalf("verification = %q, want verified", got.EmailVerification)
	}
}

func TestRecordLoginDeduplicatesIPs(t *testing.T) {
	ctx := context.Background()
	svc, clk := newService(t)

	resp, err := svc.Create(ctx, domain.CreateRequest{Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, ip := range []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"} {
		clk.Advance(time.Minute)
		if err := svc.RecordLogin(ctx, resp.ID, ip); err != nil {
			t.Fatalf("record login: %v", err)
		}
	}

	got, err := svc.Get(ctx, resp.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(clk.Now()) {
		t.Fatalf("last login = %v, want %v", got.LastLoginAt, clk.Now())
	}
	if len(got.IPs) != 2 {
		t.Fatalf("ips = %v, want two distinct entries", got.IPs)
	}
}

func TestGetUnknownCustomer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	if _, err := svc.Get(ctx, "123456789"); err != domain.ErrNotFound {
		t.Fatalf("err = %v, want %v", err, domain.ErrNotFound)
	}
}
