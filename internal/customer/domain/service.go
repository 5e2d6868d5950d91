package domain

import (
	"context"
	"errors"
	"time"

	"memberd/pkg/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	GetByEmail(ctx context.Context, email string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	VerifyEmail(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, ip string) error
	AddNote(ctx context.Context, id string, note string) error

	// Role bookkeeping, driven by membership lifecycle transitions.
	GrantRole(ctx context.Context, customerID int64, role string) error
	RevokeRole(ctx context.Context, customerID int64, role string) error
	MarkTrialed(ctx context.Context, customerID int64) error
}

type CreateRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	EmailVerification string `json:"email_verification"`
}

type ListRequest struct {
	pagination.Pagination

	Email        string `form:"email"`
	Verification string `form:"verification"`
}

type Response struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name,omitempty"`
	EmailVerification string     `json:"email_verification"`
	GrantedRole       string     `json:"granted_role,omitempty"`
	HasTrialed        bool       `json:"has_trialed"`
	RegisteredAt      time.Time  `json:"registered_at"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	IPs               []string   `json:"ips,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ListResponse struct {
	Customers []Response          `json:"customers"`
	PageInfo  pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
	ErrEmailTaken   = errors.New("email_taken")
)
