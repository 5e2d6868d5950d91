package repository

import (
	"context"

	"memberd/internal/restriction/domain"

	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertContent(ctx context.Context, db *gorm.DB, restriction *domain.ContentRestriction) error {
	existing, err := r.FindContent(ctx, db, restriction.ContentID)
	if err != nil {
		return err
	}
	if existing == nil {
		return db.WithContext(ctx).Exec(
			`INSERT INTO content_restrictions (
				id, content_id, mode, level_ids, access_level, allowed_roles, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			restriction.ID,
			restriction.ContentID,
			restriction.Mode,
			restriction.LevelIDs,
			restriction.AccessLevel,
			restriction.AllowedRoles,
			restriction.CreatedAt,
			restriction.UpdatedAt,
		).Error
	}
	restriction.ID = existing.ID
	restriction.CreatedAt = existing.CreatedAt
	return db.WithContext(ctx).Exec(
		`UPDATE content_restrictions
		 SET mode = ?, level_ids = ?, access_level = ?, allowed_roles = ?, updated_at = ?
		 WHERE content_id = ?`,
		restriction.Mode,
		restriction.LevelIDs,
		restriction.AccessLevel,
		restriction.AllowedRoles,
		restriction.UpdatedAt,
		restriction.ContentID,
	).Error
}

func (r *repo) FindContent(ctx context.Context, db *gorm.DB, contentID string) (*domain.ContentRestriction, error) {
	var c domain.ContentRestriction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM content_restrictions WHERE content_id = ?`, contentID,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) DeleteContent(ctx context.Context, db *gorm.DB, contentID string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM content_restrictions WHERE content_id = ?`, contentID,
	).Error
}

func (r *repo) UpsertTerm(ctx context.Context, db *gorm.DB, restriction *domain.TermRestriction) error {
	existing, err := r.FindTerm(ctx, db, restriction.TermID)
	if err != nil {
		return err
	}
	if existing == nil {
		return db.WithContext(ctx).Exec(
			`INSERT INTO term_restrictions (
				id, term_id, paid_only, level_ids, access_level, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			restriction.ID,
			restriction.TermID,
			restriction.PaidOnly,
			restriction.LevelIDs,
			restriction.AccessLevel,
			restriction.CreatedAt,
			restriction.UpdatedAt,
		).Error
	}
	restriction.ID = existing.ID
	restriction.CreatedAt = existing.CreatedAt
	return db.WithContext(ctx).Exec(
		`UPDATE term_restrictions
		 SET paid_only = ?, level_ids = ?, access_level = ?, updated_at = ?
		 WHERE term_id = ?`,
		restriction.PaidOnly,
		restriction.LevelIDs,
		restriction.AccessLevel,
		restriction.UpdatedAt,
		restriction.TermID,
	).Error
}

func (r *repo) FindTerm(ctx context.Context, db *gorm.DB, termID string) (*domain.TermRestriction, error) {
	var t domain.TermRestriction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM term_restrictions WHERE term_id = ?`, termID,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) DeleteTerm(ctx context.Context, db *gorm.DB, termID string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM term_restrictions WHERE term_id = ?`, termID,
	).Error
}

func (r *repo) AssignTerm(ctx context.Context, db *gorm.DB, contentID, termID string) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO term_assignments (content_id, term_id)
		 SELECT ?, ? WHERE NOT EXISTS (
			SELECT 1 FROM term_assignments WHERE content_id = ? AND term_id = ?)`,
		contentID, termID, contentID, termID,
	).Error
}

func (r *repo) UnassignTerm(ctx context.Context, db *gorm.DB, contentID, termID string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM term_assignments WHERE content_id = ? AND term_id = ?`,
		contentID, termID,
	).Error
}

func (r *repo) TermsForContent(ctx context.Context, db *gorm.DB, contentID string) ([]domain.TermRestriction, error) {
	var items []domain.TermRestriction
	err := db.WithContext(ctx).Raw(
		`SELECT tr.* FROM term_restrictions tr
		 JOIN term_assignments ta ON ta.term_id = tr.term_id
		 WHERE ta.content_id = ?
		 ORDER BY tr.term_id ASC`,
		contentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
