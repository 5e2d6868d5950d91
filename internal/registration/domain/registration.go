package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
)

type Type string

const (
	TypeNew       Type = "new"
	TypeRenewal   Type = "renewal"
	TypeUpgrade   Type = "upgrade"
	TypeDowngrade Type = "downgrade"
)

type Service interface {
	// Preview prices a signup without creating anything.
	Preview(ctx context.Context, req Request) (*Response, error)
}

type Request struct {
	CustomerID    string   `json:"customer_id"`
	LevelID       string   `json:"level_id"`
	DiscountCodes []string `json:"discount_codes"`
}

// Fee is a one-off or recurring adjustment on top of the level price.
// Negative amounts are credits.
type Fee struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Recurring   bool    `json:"recurring"`
	Proration   bool    `json:"proration"`
}

// Hash identifies a fee by content so the same fee cannot be applied twice.
func (f Fee) Hash() string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatFloat(f.Amount, 'f', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(f.Description))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(f.Recurring)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(f.Proration)))
	return hex.EncodeToString(h.Sum(nil))
}

type AppliedDiscount struct {
	Code    string  `json:"code"`
	Amount  float64 `json:"amount"`
	Unit    string  `json:"unit"`
	OneTime bool    `json:"one_time"`
}

type Response struct {
	Type            Type              `json:"type"`
	LevelID         string            `json:"level_id"`
	Currency        string            `json:"currency"`
	Subtotal        float64           `json:"subtotal"`
	Fees            []Fee             `json:"fees,omitempty"`
	Discounts       []AppliedDiscount `json:"discounts,omitempty"`
	DiscountTotal   float64           `json:"discount_total"`
	ProrationCredit float64           `json:"proration_credit"`
	TotalDueToday   float64           `json:"total_due_today"`
	RecurringTotal  float64           `json:"recurring_total"`
	TrialEligible   bool              `json:"trial_eligible"`
}

var (
	ErrInvalidLevel    = errors.New("invalid_level")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrLevelInactive   = errors.New("level_inactive")
)
