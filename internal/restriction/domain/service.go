package domain

import (
	"context"
	"errors"
)

type Service interface {
	SetContentRestriction(ctx context.Context, req ContentRequest) (*ContentRestriction, error)
	GetContentRestriction(ctx context.Context, contentID string) (*ContentRestriction, error)
	RemoveContentRestriction(ctx context.Context, contentID string) error

	SetTermRestriction(ctx context.Context, req TermRequest) (*TermRestriction, error)
	RemoveTermRestriction(ctx context.Context, termID string) error
	AssignTerm(ctx context.Context, contentID, termID string) error
	UnassignTerm(ctx context.Context, contentID, termID string) error

	// CanAccess decides whether the customer may view the content. A
	// customer with several memberships gets in when any one of them
	// qualifies.
	CanAccess(ctx context.Context, customerID, contentID string) (*AccessResult, error)
}

type ContentRequest struct {
	ContentID    string   `json:"content_id"`
	Mode         string   `json:"mode"`
	LevelIDs     []string `json:"level_ids"`
	AccessLevel  int      `json:"access_level"`
	AllowedRoles []string `json:"allowed_roles"`
}

type TermRequest struct {
	TermID      string   `json:"term_id"`
	PaidOnly    bool     `json:"paid_only"`
	LevelIDs    []string `json:"level_ids"`
	AccessLevel int      `json:"access_level"`
}

type AccessResult struct {
	Allowed    bool   `json:"allowed"`
	Restricted bool   `json:"restricted"`
	Reason     string `json:"reason,omitempty"`
}

var (
	ErrInvalidContent = errors.New("invalid_content")
	ErrInvalidTerm    = errors.New("invalid_term")
	ErrInvalidMode    = errors.New("invalid_mode")
	ErrInvalidLevel   = errors.New("invalid_level")
	ErrNotFound       = errors.New("not_found")
)
