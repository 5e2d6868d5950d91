package service

import (
	"context"
	"strings"
	"time"

	"memberd/internal/level/domain"

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
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("level.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Duration < 0 {
		return nil, domain.ErrInvalidDuration
	}

	unit := domain.DurationUnit(req.DurationUnit)
	if unit == "" {
		unit = domain.UnitMonth
	}
	if !unit.Valid() {
		return nil, domain.ErrInvalidUnit
	}

	trialUnit := domain.DurationUnit(req.TrialDurationUnit)
	if trialUnit == "" {
		trialUnit = domain.UnitDay
	}
	if !trialUnit.Valid() {
		return nil, domain.ErrInvalidUnit
	}

	status := domain.Status(req.Status)
	if status == "" {
		status = domain.StatusActive
	}
	if status != domain.StatusActive && status != domain.StatusInactive {
		return nil, domain.ErrInvalidStatus
	}

	now := time.Now().UTC()
	l := &domain.Level{
		ID:                s.genID.Generate().Int64(),
		Name:              name,
		Description:       strings.TrimSpace(req.Description),
		Price:             req.Price,
		Fee:               req.Fee,
		Duration:          req.Duration,
		DurationUnit:      unit,
		TrialDuration:     req.TrialDuration,
		TrialDurationUnit: trialUnit,
		MaximumRenewals:   req.MaximumRenewals,
		AfterFinalPayment: domain.AfterFinalPayment(req.AfterFinalPayment),
		AccessLevel:       clampAccessLevel(req.AccessLevel),
		Role:              strings.TrimSpace(req.Role),
		Status:            status,
		ListOrder:         req.ListOrder,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, s.db, l); err != nil {
		return nil, err
	}

	s.log.Info("membership level created",
		zap.Int64("level_id", l.ID),
		zap.String("name", l.Name),
	)

	resp := toResponse(l)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	levelID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	l, err := s.repo.FindByID(ctx, s.db, levelID.Int64())
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		l.Name = name
	}
	if req.Description != nil {
		l.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		l.Price = *req.Price
	}
	if req.Fee != nil {
		l.Fee = *req.Fee
	}
	if req.Duration != nil {
		if *req.Duration < 0 {
			return nil, domain.ErrInvalidDuration
		}
		l.Duration = *req.Duration
	}
	if req.DurationUnit != nil {
		unit := domain.DurationUnit(*req.DurationUnit)
		if !unit.Valid() {
			return nil, domain.ErrInvalidUnit
		}
		l.DurationUnit = unit
	}
	if req.TrialDuration != nil {
		l.TrialDuration = *req.TrialDuration
	}
	if req.TrialDurationUnit != nil {
		unit := domain.DurationUnit(*req.TrialDurationUnit)
		if !unit.Valid() {
			return nil, domain.ErrInvalidUnit
		}
		l.TrialDurationUnit = unit
	}
	if req.MaximumRenewals != nil {
		l.MaximumRenewals = *req.MaximumRenewals
	}
	if req.AfterFinalPayment != nil {
		l.AfterFinalPayment = domain.AfterFinalPayment(*req.AfterFinalPayment)
	}
	if req.AccessLevel != nil {
		l.AccessLevel = clampAccessLevel(*req.AccessLevel)
	}
	if req.Role != nil {
		l.Role = strings.TrimSpace(*req.Role)
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		if status != domain.StatusActive && status != domain.StatusInactive {
			return nil, domain.ErrInvalidStatus
		}
		l.Status = status
	}
	if req.ListOrder != nil {
		l.ListOrder = *req.ListOrder
	}
	l.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, l); err != nil {
		return nil, err
	}

	resp := toResponse(l)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	levelID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	l, err := s.repo.FindByID(ctx, s.db, levelID.Int64())
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(l)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status: domain.Status(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

// Access levels run 0 through 10, matching the tiered content gate.
func clampAccessLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func toResponse(l *domain.Level) domain.Response {
	return domain.Response{
		ID:                snowflake.ID(l.ID).String(),
		Name:              l.Name,
		Description:       l.Description,
		Price:             l.Price,
		Fee:               l.Fee,
		Duration:          l.Duration,
		DurationUnit:      string(l.DurationUnit),
		TrialDuration:     l.TrialDuration,
		TrialDurationUnit: string(l.TrialDurationUnit),
		MaximumRenewals:   l.MaximumRenewals,
		AfterFinalPayment: string(l.AfterFinalPayment),
		AccessLevel:       l.AccessLevel,
		Role:              l.Role,
		Status:            string(l.Status),
		ListOrder:         l.ListOrder,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}
