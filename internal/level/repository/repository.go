package repository

import (
	"context"

	"memberd/internal/level/domain"

	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, level *domain.Level) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO membership_levels (
			id, name, description, price, fee, duration, duration_unit,
			trial_duration, trial_duration_unit, maximum_renewals, after_final_payment,
			access_level, role, status, list_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		level.ID,
		level.Name,
		level.Description,
		level.Price,
		level.Fee,
		level.Duration,
		level.DurationUnit,
		level.TrialDuration,
		level.TrialDurationUnit,
		level.MaximumRenewals,
		level.AfterFinalPayment,
		level.AccessLevel,
		level.Role,
		level.Status,
		level.ListOrder,
		level.CreatedAt,
		level.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, level *domain.Level) error {
	if level == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE membership_levels
		 SET name = ?, description = ?, price = ?, fee = ?, duration = ?, duration_unit = ?,
		     trial_duration = ?, trial_duration_unit = ?, maximum_renewals = ?,
		     after_final_payment = ?, access_level = ?, role = ?, status = ?, list_order = ?,
		     updated_at = ?
		 WHERE id = ?`,
		level.Name,
		level.Description,
		level.Price,
		level.Fee,
		level.Duration,
		level.DurationUnit,
		level.TrialDuration,
		level.TrialDurationUnit,
		level.MaximumRenewals,
		level.AfterFinalPayment,
		level.AccessLevel,
		level.Role,
		level.Status,
		level.ListOrder,
		level.UpdatedAt,
		level.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Level, error) {
	var l domain.Level
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM membership_levels WHERE id = ?`, id,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Level, error) {
	var items []domain.Level
	stmt := db.WithContext(ctx).Model(&domain.Level{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if err := stmt.Order("list_order ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
