package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	Email        string
	Verification EmailVerification
	Limit        int
	AfterID      int64
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, customer *Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Customer, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*Customer, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Customer, error)
}
