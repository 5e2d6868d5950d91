package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Mode string

const (
	// ModeLevels restricts to an explicit level list, ModeAny to any active
	// membership, ModeAnyPaid to any active paid membership. ModeNone locks
	// the content entirely.
	ModeLevels  Mode = "levels"
	ModeAny     Mode = "any"
	ModeAnyPaid Mode = "any_paid"
	ModeNone    Mode = "none"
)

// ContentRestriction gates a piece of content by membership level, access
// level threshold and customer role. ContentID is an external key, the
// content itself lives elsewhere.
type ContentRestriction struct {
	ID           int64                       `json:"id" gorm:"primaryKey"`
	ContentID    string                      `json:"content_id" gorm:"type:text;not null;uniqueIndex"`
	Mode         Mode                        `json:"mode" gorm:"type:text"`
	LevelIDs     datatypes.JSONSlice[int64]  `json:"level_ids,omitempty" gorm:"column:level_ids"`
	AccessLevel  int                         `json:"access_level" gorm:"not null;default:0"`
	AllowedRoles datatypes.JSONSlice[string] `json:"allowed_roles,omitempty" gorm:"column:allowed_roles"`
	CreatedAt    time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time                   `json:"updated_at" gorm:"not null"`
}

func (ContentRestriction) TableName() string { return "content_restrictions" }

// TermRestriction gates every piece of content assigned to a term, such as
// a category or tag.
type TermRestriction struct {
	ID          int64                      `json:"id" gorm:"primaryKey"`
	TermID      string                     `json:"term_id" gorm:"type:text;not null;uniqueIndex"`
	PaidOnly    bool                       `json:"paid_only" gorm:"not null;default:false"`
	LevelIDs    datatypes.JSONSlice[int64] `json:"level_ids,omitempty" gorm:"column:level_ids"`
	AccessLevel int                        `json:"access_level" gorm:"not null;default:0"`
	CreatedAt   time.Time                  `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time                  `json:"updated_at" gorm:"not null"`
}

func (TermRestriction) TableName() string { return "term_restrictions" }

type TermAssignment struct {
	ContentID string `json:"content_id" gorm:"primaryKey"`
	TermID    string `json:"term_id" gorm:"primaryKey"`
}

func (TermAssignment) TableName() string { return "term_assignments" }

func containsLevel(ids []int64, levelID int64) bool {
	for _, id := range ids {
		if id == levelID {
			return true
		}
	}
	return false
}

// Allows evaluates the restriction's own rules against one membership.
func (r *ContentRestriction) Allows(levelID int64, levelAccess int, paid bool, grantedRole string) bool {
	switch r.Mode {
	case ModeNone:
		return false
	case ModeAnyPaid:
		if !paid {
			return false
		}
	case ModeLevels:
		if !containsLevel(r.LevelIDs, levelID) {
			return false
		}
	case ModeAny:
		// Any active membership passes the mode gate.
	default:
		if len(r.LevelIDs) > 0 && !containsLevel(r.LevelIDs, levelID) {
			return false
		}
	}
	if r.AccessLevel > 0 && levelAccess < r.AccessLevel {
		return false
	}
	if len(r.AllowedRoles) > 0 {
		found := false
		for _, role := range r.AllowedRoles {
			if role == grantedRole {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *TermRestriction) Allows(levelID int64, levelAccess int, paid bool) bool {
	if r.PaidOnly && !paid {
		return false
	}
	if len(r.LevelIDs) > 0 && !containsLevel(r.LevelIDs, levelID) {
		return false
	}
	if r.AccessLevel > 0 && levelAccess < r.AccessLevel {
		return false
	}
	return true
}
