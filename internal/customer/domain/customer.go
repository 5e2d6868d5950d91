package domain

import (
	"time"

	"gorm.io/datatypes"
)

type EmailVerification string

const (
	VerificationNone     EmailVerification = "none"
	VerificationPending  EmailVerification = "pending"
	VerificationVerified EmailVerification = "verified"
)

// Customer is the billing identity behind one or more memberships.
// Rows are never hard-deleted; membership history must stay auditable.
type Customer struct {
	ID                int64                       `json:"id" gorm:"primaryKey"`
	Email             string                      `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Name              string                      `json:"name" gorm:"type:text"`
	EmailVerification EmailVerification           `json:"email_verification" gorm:"not null;default:none"`
	GrantedRole       string                      `json:"granted_role" gorm:"type:text"`
	HasTrialed        bool                        `json:"has_trialed" gorm:"not null;default:false"`
	RegisteredAt      time.Time                   `json:"registered_at" gorm:"not null"`
	LastLoginAt       *time.Time                  `json:"last_login_at,omitempty"`
	Notes             string                      `json:"notes" gorm:"type:text"`
	IPs               datatypes.JSONSlice[string] `json:"ips,omitempty" gorm:"column:ips"`
	CreatedAt         time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time                   `json:"updated_at" gorm:"not null"`
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) IsVerified() bool { return c.EmailVerification == VerificationVerified }

func (c *Customer) IsPendingVerification() bool { return c.EmailVerification == VerificationPending }

// HasRole reports whether the customer currently carries the given role.
func (c *Customer) HasRole(role string) bool {
	return role != "" && c.GrantedRole == role
}
