package repository

import (
	"context"

	"memberd/internal/payment/domain"

	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, membership_id, customer_id, level_id, level_name, amount, subtotal,
			discount_amount, fees, credits, transaction_id, gateway, status,
			payment_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.MembershipID,
		payment.CustomerID,
		payment.LevelID,
		payment.LevelName,
		payment.Amount,
		payment.Subtotal,
		payment.DiscountAmount,
		payment.Fees,
		payment.Credits,
		payment.TransactionID,
		payment.Gateway,
		payment.Status,
		payment.PaymentType,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status domain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payments WHERE id = ?`, id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByTransaction(ctx context.Context, db *gorm.DB, gateway, transactionID string) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payments WHERE gateway = ? AND transaction_id = ?`,
		gateway, transactionID,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) LastCompleteForMembership(ctx context.Context, db *gorm.DB, membershipID int64) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payments
		 WHERE membership_id = ? AND status = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		membershipID, domain.StatusComplete,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Payment, error) {
	var items []domain.Payment
	stmt := db.WithContext(ctx).Model(&domain.Payment{})
	if filter.MembershipID != 0 {
		stmt = stmt.Where("membership_id = ?", filter.MembershipID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
