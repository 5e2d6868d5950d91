package domain

import (
	"context"
	"errors"
	"time"

	"memberd/pkg/pagination"
)

type Service interface {
	Insert(ctx context.Context, req InsertRequest) (*Payment, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	MarkRefunded(ctx context.Context, gateway, transactionID string) (*Payment, error)
	HasTransaction(ctx context.Context, gateway, transactionID string) (bool, error)
	LastComplete(ctx context.Context, membershipID int64) (*Payment, error)
}

type InsertRequest struct {
	MembershipID   int64
	CustomerID     int64
	LevelID        int64
	LevelName      string
	Amount         float64
	Subtotal       float64
	DiscountAmount float64
	Fees           float64
	Credits        float64
	TransactionID  string
	Gateway        string
	Status         Status
	PaymentType    string
}

type ListRequest struct {
	pagination.Pagination

	MembershipID string `form:"membership_id"`
	CustomerID   string `form:"customer_id"`
	Status       string `form:"status"`
}

type Response struct {
	ID             string    `json:"id"`
	MembershipID   string    `json:"membership_id"`
	CustomerID     string    `json:"customer_id"`
	LevelID        string    `json:"level_id,omitempty"`
	LevelName      string    `json:"level_name,omitempty"`
	Amount         float64   `json:"amount"`
	Subtotal       float64   `json:"subtotal"`
	DiscountAmount float64   `json:"discount_amount"`
	Fees           float64   `json:"fees"`
	Credits        float64   `json:"credits"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	Gateway        string    `json:"gateway,omitempty"`
	Status         string    `json:"status"`
	PaymentType    string    `json:"payment_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ListResponse struct {
	Payments []Response          `json:"payments"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidMembership    = errors.New("invalid_membership")
	ErrNotFound             = errors.New("not_found")
	ErrDuplicateTransaction = errors.New("duplicate_transaction")
)
