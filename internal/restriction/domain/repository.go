package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	UpsertContent(ctx context.Context, db *gorm.DB, restriction *ContentRestriction) error
	FindContent(ctx context.Context, db *gorm.DB, contentID string) (*ContentRestriction, error)
	DeleteContent(ctx context.Context, db *gorm.DB, contentID string) error

	UpsertTerm(ctx context.Context, db *gorm.DB, restriction *TermRestriction) error
	FindTerm(ctx context.Context, db *gorm.DB, termID string) (*TermRestriction, error)
	DeleteTerm(ctx context.Context, db *gorm.DB, termID string) error

	AssignTerm(ctx context.Context, db *gorm.DB, contentID, termID string) error
	UnassignTerm(ctx context.Context, db *gorm.DB, contentID, termID string) error
	TermsForContent(ctx context.Context, db *gorm.DB, contentID string) ([]TermRestriction, error)
}
