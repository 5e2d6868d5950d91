package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Unit string

const (
	UnitPercent Unit = "percent"
	UnitFlat    Unit = "flat"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Discount is a signup code. Codes are stored lowercased and matched
// case-insensitively.
type Discount struct {
	ID          int64                      `json:"id" gorm:"primaryKey"`
	Code        string                     `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Description string                     `json:"description" gorm:"type:text"`
	Amount      float64                    `json:"amount" gorm:"not null;default:0"`
	Unit        Unit                       `json:"unit" gorm:"not null;default:percent"`
	OneTime     bool                       `json:"one_time" gorm:"not null;default:false"`
	LevelIDs    datatypes.JSONSlice[int64] `json:"level_ids,omitempty" gorm:"column:level_ids"`
	ExpiresAt   *time.Time                 `json:"expires_at,omitempty"`
	MaxUses     int                        `json:"max_uses" gorm:"not null;default:0"`
	UseCount    int                        `json:"use_count" gorm:"not null;default:0"`
	Status      Status                     `json:"status" gorm:"not null;default:active"`
	CreatedAt   time.Time                  `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time                  `json:"updated_at" gorm:"not null"`
}

func (Discount) TableName() string { return "discounts" }

func (d *Discount) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

func (d *Discount) IsMaxedOut() bool {
	return d.MaxUses > 0 && d.UseCount >= d.MaxUses
}

// AppliesToLevel reports whether the code is usable with the given level.
// An empty level list means the code applies to every level.
func (d *Discount) AppliesToLevel(levelID int64) bool {
	if len(d.LevelIDs) == 0 {
		return true
	}
	for _, id := range d.LevelIDs {
		if id == levelID {
			return true
		}
	}
	return false
}

// ApplyTo subtracts the discount from a running total. Percent codes take
// a fraction of the current total, flat codes a fixed amount. The result
// never goes below zero.
func (d *Discount) ApplyTo(total float64) float64 {
	switch d.Unit {
	case UnitPercent:
		total -= total * d.Amount / 100
	case UnitFlat:
		total -= d.Amount
	}
	if total < 0 {
		return 0
	}
	return total
}
