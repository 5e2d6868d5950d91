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
	"memberd/internal/level/domain"
	"memberd/internal/level/repository"
	"memberd/internal/level/service"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	dsn := fmt.Sprintf("file:leveldb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Level{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	resp, err := svc.Create(ctx, domain.CreateRequest{Name: "Gold", Price: 9.99, Duration: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.DurationUnit != string(domain.UnitMonth) {
		t.Fatalf("duration unit = %q, want month", resp.DurationUnit)
	}
	if resp.Status != string(domain.StatusActive) {
		t.Fatalf("status = %q, want active", resp.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"blank name", domain.CreateRequest{Name: "  "}, domain.ErrInvalidName},
		{"negative duration", domain.CreateRequest{Name: "x", Duration: -1}, domain.ErrInvalidDuration},
		{"bad unit", domain.CreateRequest{Name: "x", DurationUnit: "fortnight"}, domain.ErrInvalidUnit},
		{"bad status", domain.CreateRequest{Name: "x", Status: "archived"}, domain.ErrInvalidStatus},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.req); err != tc.want {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestCreateClampsAccessLevel(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	resp, err := svc.Create(ctx, domain.CreateRequest{Name: "VIP", AccessLevel: 99})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.AccessLevel != 10 {
		t.Fatalf("access level = %d, want clamped to 10", resp.AccessLevel)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Gold", Price: 9.99, Duration: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	price := 14.99
	status := "inactive"
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Price: &price, Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 14.99 {
		t.Fatalf("price = %v, want 14.99", updated.Price)
	}
	if updated.Status != "inactive" {
		t.Fatalf("status = %q, want inactive", updated.Status)
	}
	// Untouched fields survive.
	if updated.Name != "Gold" || updated.Duration != 1 {
		t.Fatalf("unchanged fields drifted: %+v", updated)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	if _, err := svc.Create(ctx, domain.CreateRequest{Name: "Active"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, domain.CreateRequest{Name: "Retired", Status: "inactive"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	active, err := svc.List(ctx, domain.ListRequest{Status: "active"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Active" {
		t.Fatalf("active levels = %+v, want just Active", active)
	}

	all, err := svc.List(ctx, domain.ListRequest{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all levels = %d, want 2", len(all))
	}
}
