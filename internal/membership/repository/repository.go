package repository

import (
	"context"
	"time"

	"memberd/internal/membership/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Legacy rows encoded "no expiration" as a zero timestamp. Zero times are
// normalized to NULL on both read and write so a lifetime membership never
// reads as expired in year one.
func normalizeTimes(m *domain.Membership) {
	m.TrialEndAt = dropZeroTime(m.TrialEndAt)
	m.RenewedAt = dropZeroTime(m.RenewedAt)
	m.CancelledAt = dropZeroTime(m.CancelledAt)
	m.ExpirationAt = dropZeroTime(m.ExpirationAt)
	m.PaymentPlanCompletedAt = dropZeroTime(m.PaymentPlanCompletedAt)
}

func dropZeroTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, m *domain.Membership) error {
	normalizeTimes(m)
	return db.WithContext(ctx).Exec(
		`INSERT INTO memberships (
			id, customer_id, level_id, currency, initial_amount, recurring_amount,
			trial_end_at, renewed_at, cancelled_at, expiration_at, payment_plan_completed_at,
			times_billed, maximum_renewals, status, auto_renew, gateway,
			gateway_customer_id, gateway_subscription_id, signup_method, subscription_key,
			upgraded_from, disabled, expiration_reminder_sent, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.CustomerID,
		m.LevelID,
		m.Currency,
		m.InitialAmount,
		m.RecurringAmount,
		m.TrialEndAt,
		m.RenewedAt,
		m.CancelledAt,
		m.ExpirationAt,
		m.PaymentPlanCompletedAt,
		m.TimesBilled,
		m.MaximumRenewals,
		m.Status,
		m.AutoRenew,
		m.Gateway,
		m.GatewayCustomerID,
		m.GatewaySubscriptionID,
		m.SignupMethod,
		m.SubscriptionKey,
		m.UpgradedFrom,
		m.Disabled,
		m.ExpirationReminderSent,
		m.Notes,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, m *domain.Membership) error {
	if m == nil {
		return gorm.ErrInvalidData
	}
	normalizeTimes(m)
	return db.WithContext(ctx).Exec(
		`UPDATE memberships
		 SET level_id = ?, currency = ?, initial_amount = ?, recurring_amount = ?,
		     trial_end_at = ?, renewed_at = ?, cancelled_at = ?, expiration_at = ?,
		     payment_plan_completed_at = ?, times_billed = ?, maximum_renewals = ?,
		     status = ?, auto_renew = ?, gateway = ?, gateway_customer_id = ?,
		     gateway_subscription_id = ?, signup_method = ?, upgraded_from = ?,
		     disabled = ?, expiration_reminder_sent = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		m.LevelID,
		m.Currency,
		m.InitialAmount,
		m.RecurringAmount,
		m.TrialEndAt,
		m.RenewedAt,
		m.CancelledAt,
		m.ExpirationAt,
		m.PaymentPlanCompletedAt,
		m.TimesBilled,
		m.MaximumRenewals,
		m.Status,
		m.AutoRenew,
		m.Gateway,
		m.GatewayCustomerID,
		m.GatewaySubscriptionID,
		m.SignupMethod,
		m.UpgradedFrom,
		m.Disabled,
		m.ExpirationReminderSent,
		m.Notes,
		m.UpdatedAt,
		m.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM memberships WHERE id = ?`, id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	normalizeTimes(&m)
	return &m, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Find(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	normalizeTimes(&m)
	return &m, nil
}

func (r *repo) FindBySubscriptionKey(ctx context.Context, db *gorm.DB, key string) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM memberships WHERE subscription_key = ?`, key,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	normalizeTimes(&m)
	return &m, nil
}

func (r *repo) FindByGatewaySubscription(ctx context.Context, db *gorm.DB, gateway, subscriptionID string) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM memberships
		 WHERE gateway = ? AND gateway_subscription_id = ?
		 ORDER BY id DESC LIMIT 1`,
		gateway, subscriptionID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	normalizeTimes(&m)
	return &m, nil
}

func (r *repo) LatestForGatewayCustomer(ctx context.Context, db *gorm.DB, gateway, customerID string) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM memberships
		 WHERE gateway = ? AND gateway_customer_id = ?
		 ORDER BY id DESC LIMIT 1`,
		gateway, customerID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	normalizeTimes(&m)
	return &m, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Membership, error) {
	var items []domain.Membership
	stmt := db.WithContext(ctx).Model(&domain.Membership{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.LevelID != 0 {
		stmt = stmt.Where("level_id = ?", filter.LevelID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Disabled != nil {
		stmt = stmt.Where("disabled = ?", *filter.Disabled)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		normalizeTimes(&items[i])
	}
	return items, nil
}

func (r *repo) ExpiredBefore(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Membership, error) {
	var items []domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM memberships
		 WHERE expiration_at IS NOT NULL AND expiration_at < ?
		   AND status NOT IN (?, ?) AND disabled = ?
		 ORDER BY id ASC LIMIT ?`,
		now, domain.StatusExpired, domain.StatusPending, false, limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for i := range items {
		normalizeTimes(&items[i])
	}
	return items, nil
}

func (r *repo) DuePaymentPlans(ctx context.Context, db *gorm.DB, limit int) ([]domain.Membership, error) {
	var items []domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM memberships
		 WHERE maximum_renewals > 0
		   AND times_billed - 1 >= maximum_renewals
		   AND payment_plan_completed_at IS NULL
		   AND disabled = ?
		 ORDER BY id ASC LIMIT ?`,
		false, limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for i := range items {
		normalizeTimes(&items[i])
	}
	return items, nil
}

func (r *repo) ExpiringBetween(ctx context.Context, db *gorm.DB, from, until time.Time, limit int) ([]domain.Membership, error) {
	var items []domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM memberships
		 WHERE expiration_at IS NOT NULL AND expiration_at >= ? AND expiration_at <= ?
		   AND status = ? AND auto_renew = ? AND disabled = ?
		   AND expiration_reminder_sent = ?
		 ORDER BY id ASC LIMIT ?`,
		from, until, domain.StatusActive, false, false, false, limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for i := range items {
		normalizeTimes(&items[i])
	}
	return items, nil
}
