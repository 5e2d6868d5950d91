package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, code string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)

	// Validate checks a code against a level and returns the discount when
	// it can be used. IncrementUse records a successful redemption.
	Validate(ctx context.Context, code string, levelID int64) (*Discount, error)
	IncrementUse(ctx context.Context, code string) error
}

type CreateRequest struct {
	Code        string     `json:"code"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Unit        string     `json:"unit"`
	OneTime     bool       `json:"one_time"`
	LevelIDs    []string   `json:"level_ids"`
	ExpiresAt   *time.Time `json:"expires_at"`
	MaxUses     int        `json:"max_uses"`
	Status      string     `json:"status"`
}

type UpdateRequest struct {
	Code        string     `json:"-"`
	Description *string    `json:"description"`
	Amount      *float64   `json:"amount"`
	Unit        *string    `json:"unit"`
	OneTime     *bool      `json:"one_time"`
	LevelIDs    *[]string  `json:"level_ids"`
	ExpiresAt   *time.Time `json:"expires_at"`
	MaxUses     *int       `json:"max_uses"`
	Status      *string    `json:"status"`
}

type ListRequest struct {
	Status string `form:"status"`
}

type Response struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Description string     `json:"description,omitempty"`
	Amount      float64    `json:"amount"`
	Unit        string     `json:"unit"`
	OneTime     bool       `json:"one_time"`
	LevelIDs    []string   `json:"level_ids,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MaxUses     int        `json:"max_uses"`
	UseCount    int        `json:"use_count"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var (
	ErrInvalidCode   = errors.New("invalid_code")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidUnit   = errors.New("invalid_unit")
	ErrCodeTaken     = errors.New("code_taken")
	ErrNotFound      = errors.New("not_found")
	ErrExpired       = errors.New("discount_expired")
	ErrMaxedOut      = errors.New("discount_maxed_out")
	ErrInactive      = errors.New("discount_inactive")
	ErrLevelMismatch = errors.New("discount_level_mismatch")
)
