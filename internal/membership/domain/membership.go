package domain

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Membership ties a customer to a level with billing amounts snapshotted at
// signup. Rows are never deleted; Disabled hides a membership while keeping
// its payment history intact.
type Membership struct {
	ID                     int64      `json:"id" gorm:"primaryKey"`
	CustomerID             int64      `json:"customer_id" gorm:"not null;index"`
	LevelID                int64      `json:"level_id" gorm:"not null"`
	Currency               string     `json:"currency" gorm:"not null;default:USD"`
	InitialAmount          float64    `json:"initial_amount" gorm:"not null;default:0"`
	RecurringAmount        float64    `json:"recurring_amount" gorm:"not null;default:0"`
	TrialEndAt             *time.Time `json:"trial_end_at,omitempty"`
	RenewedAt              *time.Time `json:"renewed_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	ExpirationAt           *time.Time `json:"expiration_at,omitempty"`
	PaymentPlanCompletedAt *time.Time `json:"payment_plan_completed_at,omitempty"`
	TimesBilled            int        `json:"times_billed" gorm:"not null;default:0"`
	MaximumRenewals        int        `json:"maximum_renewals" gorm:"not null;default:0"`
	Status                 Status     `json:"status" gorm:"not null;default:pending"`
	AutoRenew              bool       `json:"auto_renew" gorm:"not null;default:false"`
	Gateway                string     `json:"gateway" gorm:"type:text"`
	GatewayCustomerID      string     `json:"gateway_customer_id" gorm:"type:text"`
	GatewaySubscriptionID  string     `json:"gateway_subscription_id" gorm:"type:text"`
	SignupMethod           string     `json:"signup_method" gorm:"type:text"`
	SubscriptionKey        string     `json:"subscription_key" gorm:"type:text"`
	UpgradedFrom           int64      `json:"upgraded_from" gorm:"not null;default:0"`
	Disabled               bool       `json:"disabled" gorm:"not null;default:false"`
	ExpirationReminderSent bool       `json:"expiration_reminder_sent" gorm:"not null;default:false"`
	Notes                  string     `json:"notes" gorm:"type:text"`
	CreatedAt              time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt              time.Time  `json:"updated_at" gorm:"not null"`
}

func (Membership) TableName() string { return "memberships" }

// IsExpired reports whether the expiration date has passed. A nil
// expiration means the membership never expires.
func (m *Membership) IsExpired(now time.Time) bool {
	return m.ExpirationAt != nil && m.ExpirationAt.Before(now)
}

// IsActive is the access predicate. Cancelled memberships stay active
// until their paid-through date passes.
func (m *Membership) IsActive(now time.Time) bool {
	if m.Disabled {
		return false
	}
	if m.IsExpired(now) {
		return false
	}
	return m.Status == StatusActive || m.Status == StatusCancelled
}

func (m *Membership) IsLifetime() bool { return m.ExpirationAt == nil }

func (m *Membership) IsTrialing(now time.Time) bool {
	return m.TrialEndAt != nil && now.Before(*m.TrialEndAt)
}

// IsPaid reports whether real money is (or will be) involved. Trialing
// memberships count as paid, as do free signups onto a priced level.
func (m *Membership) IsPaid(now time.Time, levelPrice float64) bool {
	if m.IsTrialing(now) {
		return true
	}
	return m.InitialAmount > 0 || m.RecurringAmount > 0 || levelPrice > 0
}

func (m *Membership) IsRecurring() bool { return m.AutoRenew }

func (m *Membership) HasPaymentPlan() bool { return m.MaximumRenewals > 0 }

// AtMaximumRenewals reports whether the plan's last billing has happened.
// The first payment is not a renewal, hence the minus one.
func (m *Membership) AtMaximumRenewals() bool {
	return m.HasPaymentPlan() && m.TimesBilled-1 >= m.MaximumRenewals
}

func (m *Membership) IsPaymentPlanComplete() bool { return m.PaymentPlanCompletedAt != nil }

// EffectiveStatus overlays expiration onto the stored status without
// mutating it. Pending memberships are left alone so an unfinished signup
// never reads as expired.
func (m *Membership) EffectiveStatus(now time.Time) Status {
	if m.IsExpired(now) && m.Status != StatusExpired && m.Status != StatusPending {
		return StatusExpired
	}
	return m.Status
}

// CanRenew gates manual renewal. Recurring active memberships renew through
// the gateway, lifetime memberships have nothing to renew.
func (m *Membership) CanRenew(now time.Time, levelPrice float64, levelActive bool) bool {
	if m.Status == StatusActive && m.IsRecurring() && !m.IsExpired(now) {
		return false
	}
	if m.IsLifetime() && m.Status == StatusActive {
		return false
	}
	if !m.IsPaid(now, levelPrice) {
		return false
	}
	if m.IsPaymentPlanComplete() {
		return false
	}
	return levelActive
}
