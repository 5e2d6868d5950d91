package domain

import (
	"time"
)

type DurationUnit string

const (
	UnitDay   DurationUnit = "day"
	UnitWeek  DurationUnit = "week"
	UnitMonth DurationUnit = "month"
	UnitYear  DurationUnit = "year"
)

func (u DurationUnit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// Days returns the calendar-day weight of one unit, used for
// price-per-day comparisons between levels.
func (u DurationUnit) Days() int {
	switch u {
	case UnitDay:
		return 1
	case UnitWeek:
		return 7
	case UnitMonth:
		return 30
	case UnitYear:
		return 365
	}
	return 0
}

type AfterFinalPayment string

const (
	AfterFinalLifetime      AfterFinalPayment = "lifetime"
	AfterFinalExpireNow     AfterFinalPayment = "expire_immediately"
	AfterFinalExpireTermEnd AfterFinalPayment = "expire_term_end"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Level is a purchasable membership tier. Price and fee are snapshotted
// onto memberships at signup time, so editing a level never changes what
// existing members are billed.
type Level struct {
	ID                int64             `json:"id" gorm:"primaryKey"`
	Name              string            `json:"name" gorm:"type:text;not null"`
	Description       string            `json:"description" gorm:"type:text"`
	Price             float64           `json:"price" gorm:"not null;default:0"`
	Fee               float64           `json:"fee" gorm:"not null;default:0"`
	Duration          int               `json:"duration" gorm:"not null;default:0"`
	DurationUnit      DurationUnit      `json:"duration_unit" gorm:"not null;default:month"`
	TrialDuration     int               `json:"trial_duration" gorm:"not null;default:0"`
	TrialDurationUnit DurationUnit      `json:"trial_duration_unit" gorm:"not null;default:day"`
	MaximumRenewals   int               `json:"maximum_renewals" gorm:"not null;default:0"`
	AfterFinalPayment AfterFinalPayment `json:"after_final_payment" gorm:"type:text"`
	AccessLevel       int               `json:"access_level" gorm:"not null;default:0"`
	Role              string            `json:"role" gorm:"type:text"`
	Status            Status            `json:"status" gorm:"not null;default:active"`
	ListOrder         int               `json:"list_order" gorm:"not null;default:0"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
}

func (Level) TableName() string { return "membership_levels" }

// IsLifetime reports whether the level never expires. Duration zero means
// members keep access forever after a single payment.
func (l *Level) IsLifetime() bool { return l.Duration == 0 }

func (l *Level) IsFree() bool { return l.Price == 0 }

func (l *Level) HasTrial() bool { return l.TrialDuration > 0 }

// DaysInCycle is the billing cycle length in days, zero for lifetime.
func (l *Level) DaysInCycle() float64 {
	if l.Duration <= 0 {
		return 0
	}
	return float64(l.Duration * l.DurationUnit.Days())
}
