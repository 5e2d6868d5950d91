package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	CustomerID int64
	LevelID    int64
	Status     Status
	Disabled   *bool
	Limit      int
	AfterID    int64
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, membership *Membership) error
	Update(ctx context.Context, db *gorm.DB, membership *Membership) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Membership, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*Membership, error)
	FindBySubscriptionKey(ctx context.Context, db *gorm.DB, key string) (*Membership, error)
	FindByGatewaySubscription(ctx context.Context, db *gorm.DB, gateway, subscriptionID string) (*Membership, error)
	LatestForGatewayCustomer(ctx context.Context, db *gorm.DB, gateway, customerID string) (*Membership, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Membership, error)

	// Scheduler scans. Each returns at most limit rows ordered by id.
	ExpiredBefore(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Membership, error)
	DuePaymentPlans(ctx context.Context, db *gorm.DB, limit int) ([]Membership, error)
	ExpiringBetween(ctx context.Context, db *gorm.DB, from, until time.Time, limit int) ([]Membership, error)
}
