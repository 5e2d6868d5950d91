package domain

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusRefunded Status = "refunded"
	StatusFailed   Status = "failed"
)

// Payment is one billing record against a membership. The level name and
// amounts are snapshotted so later level edits never rewrite history.
type Payment struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	MembershipID   int64     `json:"membership_id" gorm:"not null;index"`
	CustomerID     int64     `json:"customer_id" gorm:"not null;index"`
	LevelID        int64     `json:"level_id" gorm:"not null;default:0"`
	LevelName      string    `json:"level_name" gorm:"type:text"`
	Amount         float64   `json:"amount" gorm:"not null;default:0"`
	Subtotal       float64   `json:"subtotal" gorm:"not null;default:0"`
	DiscountAmount float64   `json:"discount_amount" gorm:"not null;default:0"`
	Fees           float64   `json:"fees" gorm:"not null;default:0"`
	Credits        float64   `json:"credits" gorm:"not null;default:0"`
	TransactionID  *string   `json:"transaction_id,omitempty"`
	Gateway        string    `json:"gateway" gorm:"type:text"`
	Status         Status    `json:"status" gorm:"not null;default:pending"`
	PaymentType    string    `json:"payment_type" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }
