package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, level *Level) error
	Update(ctx context.Context, db *gorm.DB, level *Level) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Level, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Level, error)
}
