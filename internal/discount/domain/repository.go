package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, discount *Discount) error
	Update(ctx context.Context, db *gorm.DB, discount *Discount) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Discount, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Discount, error)
	FindByCodeForUpdate(ctx context.Context, db *gorm.DB, code string) (*Discount, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Discount, error)
}
