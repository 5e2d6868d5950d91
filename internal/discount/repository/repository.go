package repository

import (
	"context"

	"memberd/internal/discount/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, discount *domain.Discount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO discounts (
			id, code, description, amount, unit, one_time, level_ids,
			expires_at, max_uses, use_count, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		discount.ID,
		discount.Code,
		discount.Description,
		discount.Amount,
		discount.Unit,
		discount.OneTime,
		discount.LevelIDs,
		discount.ExpiresAt,
		discount.MaxUses,
		discount.UseCount,
		discount.Status,
		discount.CreatedAt,
		discount.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, discount *domain.Discount) error {
	if discount == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE discounts
		 SET description = ?, amount = ?, unit = ?, one_time = ?, level_ids = ?,
		     expires_at = ?, max_uses = ?, use_count = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		discount.Description,
		discount.Amount,
		discount.Unit,
		discount.OneTime,
		discount.LevelIDs,
		discount.ExpiresAt,
		discount.MaxUses,
		discount.UseCount,
		discount.Status,
		discount.UpdatedAt,
		discount.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Discount, error) {
	var d domain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM discounts WHERE id = ?`, id,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Discount, error) {
	var d domain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM discounts WHERE code = ?`, code,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) FindByCodeForUpdate(ctx context.Context, db *gorm.DB, code string) (*domain.Discount, error) {
	var d domain.Discount
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Discount, error) {
	var items []domain.Discount
	stmt := db.WithContext(ctx).Model(&domain.Discount{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if err := stmt.Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
