package service

import (
	"context"
	"strings"

	"memberd/internal/clock"
	"memberd/internal/payment/domain"
	"memberd/pkg/db"
	"memberd/pkg/pagination"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Insert(ctx context.Context, req domain.InsertRequest) (*domain.Payment, error) {
	if req.MembershipID == 0 {
		return nil, domain.ErrInvalidMembership
	}

	status := req.Status
	if status == "" {
		status = domain.StatusComplete
	}

	var txnID *string
	if txn := strings.TrimSpace(req.TransactionID); txn != "" {
		existing, err := s.repo.FindByTransaction(ctx, s.db, req.Gateway, txn)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrDuplicateTransaction
		}
		txnID = &txn
	}

	now := s.clock.Now()
	p := &domain.Payment{
		ID:             s.genID.Generate().Int64(),
		MembershipID:   req.MembershipID,
		CustomerID:     req.CustomerID,
		LevelID:        req.LevelID,
		LevelName:      req.LevelName,
		Amount:         req.Amount,
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		Fees:           req.Fees,
		Credits:        req.Credits,
		TransactionID:  txnID,
		Gateway:        req.Gateway,
		Status:         status,
		PaymentType:    req.PaymentType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		// The unique index closes the race the read-before-write leaves open.
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateTransaction
		}
		return nil, err
	}

	s.log.Info("payment recorded",
		zap.Int64("payment_id", p.ID),
		zap.Int64("membership_id", p.MembershipID),
		zap.Float64("amount", p.Amount),
		zap.String("status", string(p.Status)),
	)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	paymentID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	p, err := s.repo.FindByID(ctx, s.db, paymentID.Int64())
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(p)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}

	filter := domain.ListFilter{
		Status: domain.Status(strings.TrimSpace(req.Status)),
		Limit:  limit + 1,
	}
	if req.MembershipID != "" {
		id, err := snowflake.ParseString(req.MembershipID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		filter.MembershipID = id.Int64()
	}
	if req.CustomerID != "" {
		id, err := snowflake.ParseString(req.CustomerID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		filter.CustomerID = id.Int64()
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, err
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		filter.AfterID = afterID.Int64()
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(p domain.Payment) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: snowflake.ID(p.ID).String()})
		return token
	})
	if len(items) > limit {
		items = items[:limit]
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return &domain.ListResponse{Payments: resp, PageInfo: pageInfo}, nil
}

func (s *Service) MarkRefunded(ctx context.Context, gateway, transactionID string) (*domain.Payment, error) {
	p, err := s.repo.FindByTransaction(ctx, s.db, gateway, strings.TrimSpace(transactionID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if p.Status == domain.StatusRefunded {
		return p, nil
	}
	if err := s.repo.UpdateStatus(ctx, s.db, p.ID, domain.StatusRefunded); err != nil {
		return nil, err
	}
	p.Status = domain.StatusRefunded

	s.log.Info("payment refunded",
		zap.Int64("payment_id", p.ID),
		zap.String("gateway", gateway),
		zap.String("transaction_id", transactionID),
	)
	return p, nil
}

func (s *Service) HasTransaction(ctx context.Context, gateway, transactionID string) (bool, error) {
	txn := strings.TrimSpace(transactionID)
	if txn == "" {
		return false, nil
	}
	p, err := s.repo.FindByTransaction(ctx, s.db, gateway, txn)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

func (s *Service) LastComplete(ctx context.Context, membershipID int64) (*domain.Payment, error) {
	return s.repo.LastCompleteForMembership(ctx, s.db, membershipID)
}

func toResponse(p *domain.Payment) domain.Response {
	resp := domain.Response{
		ID:             snowflake.ID(p.ID).String(),
		MembershipID:   snowflake.ID(p.MembershipID).String(),
		CustomerID:     snowflake.ID(p.CustomerID).String(),
		LevelName:      p.LevelName,
		Amount:         p.Amount,
		Subtotal:       p.Subtotal,
		DiscountAmount: p.DiscountAmount,
		Fees:           p.Fees,
		Credits:        p.Credits,
		Gateway:        p.Gateway,
		Status:         string(p.Status),
		PaymentType:    p.PaymentType,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.LevelID != 0 {
		resp.LevelID = snowflake.ID(p.LevelID).String()
	}
	if p.TransactionID != nil {
		resp.TransactionID = *p.TransactionID
	}
	return resp
}
