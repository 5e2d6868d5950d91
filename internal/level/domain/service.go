package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type CreateRequest struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Price             float64 `json:"price"`
	Fee               float64 `json:"fee"`
	Duration          int     `json:"duration"`
	DurationUnit      string  `json:"duration_unit"`
	TrialDuration     int     `json:"trial_duration"`
	TrialDurationUnit string  `json:"trial_duration_unit"`
	MaximumRenewals   int     `json:"maximum_renewals"`
	AfterFinalPayment string  `json:"after_final_payment"`
	AccessLevel       int     `json:"access_level"`
	Role              string  `json:"role"`
	Status            string  `json:"status"`
	ListOrder         int     `json:"list_order"`
}

type UpdateRequest struct {
	ID                string   `json:"-"`
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Price             *float64 `json:"price"`
	Fee               *float64 `json:"fee"`
	Duration          *int     `json:"duration"`
	DurationUnit      *string  `json:"duration_unit"`
	TrialDuration     *int     `json:"trial_duration"`
	TrialDurationUnit *string  `json:"trial_duration_unit"`
	MaximumRenewals   *int     `json:"maximum_renewals"`
	AfterFinalPayment *string  `json:"after_final_payment"`
	AccessLevel       *int     `json:"access_level"`
	Role              *string  `json:"role"`
	Status            *string  `json:"status"`
	ListOrder         *int     `json:"list_order"`
}

type ListRequest struct {
	Status string `form:"status"`
}

type Response struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Price             float64   `json:"price"`
	Fee               float64   `json:"fee"`
	Duration          int       `json:"duration"`
	DurationUnit      string    `json:"duration_unit"`
	TrialDuration     int       `json:"trial_duration"`
	TrialDurationUnit string    `json:"trial_duration_unit"`
	MaximumRenewals   int       `json:"maximum_renewals"`
	AfterFinalPayment string    `json:"after_final_payment,omitempty"`
	AccessLevel       int       `json:"access_level"`
	Role              string    `json:"role,omitempty"`
	Status            string    `json:"status"`
	ListOrder         int       `json:"list_order"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidDuration = errors.New("invalid_duration")
	ErrInvalidUnit     = errors.New("invalid_duration_unit")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
