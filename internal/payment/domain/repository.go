package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	MembershipID int64
	CustomerID   int64
	Status       Status
	Limit        int
	AfterID      int64
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, payment *Payment) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status Status) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Payment, error)
	FindByTransaction(ctx context.Context, db *gorm.DB, gateway, transactionID string) (*Payment, error)
	LastCompleteForMembership(ctx context.Context, db *gorm.DB, membershipID int64) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Payment, error)
}
