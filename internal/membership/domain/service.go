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
	GetBySubscriptionKey(ctx context.Context, key string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)

	Activate(ctx context.Context, id string) (*Response, error)
	Renew(ctx context.Context, id string, req RenewRequest) (*Response, error)
	Cancel(ctx context.Context, id string) (*Response, error)
	CancelAtGateway(ctx context.Context, id string) (*Response, error)
	Expire(ctx context.Context, id string) (*Response, error)
	Disable(ctx context.Context, id string) error
	Enable(ctx context.Context, id string) error
	AddNote(ctx context.Context, id string, note string) error

	// Billing hooks used by the webhook ingest path. IncrementTimesBilled
	// completes the payment plan once the final renewal has been billed.
	IncrementTimesBilled(ctx context.Context, membershipID int64) error
	CompletePaymentPlan(ctx context.Context, membershipID int64) error

	// ResolveByGateway locates the membership a gateway event belongs to,
	// preferring the subscription id and falling back to the most recent
	// membership for the gateway customer.
	ResolveByGateway(ctx context.Context, gateway, subscriptionID, customerID string) (*Membership, error)

	RenewByID(ctx context.Context, membershipID int64, req RenewRequest) error
	CancelByID(ctx context.Context, membershipID int64) error
	ExpireByID(ctx context.Context, membershipID int64) error
}

// ProfileCanceller cancels a recurring billing profile at the remote
// gateway. Implemented by the gateway HTTP clients.
type ProfileCanceller interface {
	Supports(gateway string) bool
	CancelSubscription(ctx context.Context, gateway, gatewayCustomerID, gatewaySubscriptionID string) error
}

type CreateRequest struct {
	CustomerID            string   `json:"customer_id"`
	LevelID               string   `json:"level_id"`
	Currency              string   `json:"currency"`
	InitialAmount         *float64 `json:"initial_amount"`
	RecurringAmount       *float64 `json:"recurring_amount"`
	AutoRenew             bool     `json:"auto_renew"`
	Gateway               string   `json:"gateway"`
	GatewayCustomerID     string   `json:"gateway_customer_id"`
	GatewaySubscriptionID string   `json:"gateway_subscription_id"`
	SignupMethod          string   `json:"signup_method"`
	UpgradedFrom          string   `json:"upgraded_from"`
}

type RenewRequest struct {
	Recurring  bool       `json:"recurring"`
	Status     string     `json:"status"`
	Expiration *time.Time `json:"expiration"`
}

type ListRequest struct {
	pagination.Pagination

	CustomerID string `form:"customer_id"`
	LevelID    string `form:"level_id"`
	Status     string `form:"status"`
}

type Response struct {
	ID                     string     `json:"id"`
	CustomerID             string     `json:"customer_id"`
	LevelID                string     `json:"level_id"`
	Currency               string     `json:"currency"`
	InitialAmount          float64    `json:"initial_amount"`
	RecurringAmount        float64    `json:"recurring_amount"`
	TrialEndAt             *time.Time `json:"trial_end_at,omitempty"`
	RenewedAt              *time.Time `json:"renewed_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	ExpirationAt           *time.Time `json:"expiration_at,omitempty"`
	PaymentPlanCompletedAt *time.Time `json:"payment_plan_completed_at,omitempty"`
	TimesBilled            int        `json:"times_billed"`
	MaximumRenewals        int        `json:"maximum_renewals"`
	Status                 string     `json:"status"`
	EffectiveStatus        string     `json:"effective_status"`
	Active                 bool       `json:"active"`
	CanRenew               bool       `json:"can_renew"`
	AutoRenew              bool       `json:"auto_renew"`
	Gateway                string     `json:"gateway,omitempty"`
	GatewayCustomerID      string     `json:"gateway_customer_id,omitempty"`
	GatewaySubscriptionID  string     `json:"gateway_subscription_id,omitempty"`
	SignupMethod           string     `json:"signup_method,omitempty"`
	SubscriptionKey        string     `json:"subscription_key,omitempty"`
	UpgradedFrom           string     `json:"upgraded_from,omitempty"`
	Disabled               bool       `json:"disabled"`
	Notes                  string     `json:"notes,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

type ListResponse struct {
	Memberships []Response          `json:"memberships"`
	PageInfo    pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidLevel        = errors.New("invalid_level")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrNotFound            = errors.New("not_found")
	ErrLevelInactive       = errors.New("level_inactive")
	ErrNoLevel             = errors.New("membership_has_no_level")
	ErrPaymentPlanComplete = errors.New("payment_plan_complete")
	ErrNotCancellable      = errors.New("not_cancellable")
)
