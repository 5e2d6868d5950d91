package service

import (
	"context"
	"strings"

	"memberd/internal/clock"
	"memberd/internal/discount/domain"
	"memberd/pkg/db"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:   p.Log.Named("discount.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	unit := domain.Unit(req.Unit)
	if unit == "" {
		unit = domain.UnitPercent
	}
	if unit != domain.UnitPercent && unit != domain.UnitFlat {
		return nil, domain.ErrInvalidUnit
	}
	if unit == domain.UnitPercent && req.Amount > 100 {
		return nil, domain.ErrInvalidAmount
	}

	levelIDs, err := parseLevelIDs(req.LevelIDs)
	if err != nil {
		return nil, err
	}

	status := domain.Status(req.Status)
	if status == "" {
		status = domain.StatusActive
	}

	now := s.clock.Now()
	d := &domain.Discount{
		ID:          s.genID.Generate().Int64(),
		Code:        code,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Unit:        unit,
		OneTime:     req.OneTime,
		LevelIDs:    levelIDs,
		ExpiresAt:   req.ExpiresAt,
		MaxUses:     req.MaxUses,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, s.db, d); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrCodeTaken
		}
		return nil, err
	}

	s.log.Info("discount created",
		zap.String("code", d.Code),
		zap.Float64("amount", d.Amount),
		zap.String("unit", string(d.Unit)),
	)

	resp := toResponse(d)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	var out domain.Response
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.repo.FindByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		if d == nil {
			return domain.ErrNotFound
		}

		if req.Description != nil {
			d.Description = strings.TrimSpace(*req.Description)
		}
		if req.Amount != nil {
			if *req.Amount <= 0 {
				return domain.ErrInvalidAmount
			}
			d.Amount = *req.Amount
		}
		if req.Unit != nil {
			unit := domain.Unit(*req.Unit)
			if unit != domain.UnitPercent && unit != domain.UnitFlat {
				return domain.ErrInvalidUnit
			}
			d.Unit = unit
		}
		if req.OneTime != nil {
			d.OneTime = *req.OneTime
		}
		if req.LevelIDs != nil {
			levelIDs, err := parseLevelIDs(*req.LevelIDs)
			if err != nil {
				return err
			}
			d.LevelIDs = levelIDs
		}
		if req.ExpiresAt != nil {
			d.ExpiresAt = req.ExpiresAt
		}
		if req.MaxUses != nil {
			d.MaxUses = *req.MaxUses
		}
		if req.Status != nil {
			d.Status = domain.Status(*req.Status)
		}
		d.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, d); err != nil {
			return err
		}
		out = toResponse(d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Get(ctx context.Context, code string) (*domain.Response, error) {
	d, err := s.repo.FindByCode(ctx, s.db, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(d)
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

func (s *Service) Validate(ctx context.Context, code string, levelID int64) (*domain.Discount, error) {
	d, err := s.repo.FindByCode(ctx, s.db, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	if d.Status != domain.StatusActive {
		return nil, domain.ErrInactive
	}
	if d.IsExpired(s.clock.Now()) {
		return nil, domain.ErrExpired
	}
	if d.IsMaxedOut() {
		return nil, domain.ErrMaxedOut
	}
	if !d.AppliesToLevel(levelID) {
		return nil, domain.ErrLevelMismatch
	}
	return d, nil
}

func (s *Service) IncrementUse(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.repo.FindByCodeForUpdate(ctx, tx, normalizeCode(code))
		if err != nil {
			return err
		}
		if d == nil {
			return domain.ErrNotFound
		}
		d.UseCount++
		d.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, d)
	})
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func parseLevelIDs(ids []string) (datatypes.JSONSlice[int64], error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make(datatypes.JSONSlice[int64], 0, len(ids))
	for _, raw := range ids {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return nil, domain.ErrInvalidCode
		}
		out = append(out, id.Int64())
	}
	return out, nil
}

func toResponse(d *domain.Discount) domain.Response {
	var levelIDs []string
	for _, id := range d.LevelIDs {
		levelIDs = append(levelIDs, snowflake.ID(id).String())
	}
	return domain.Response{
		ID:          snowflake.ID(d.ID).String(),
		Code:        d.Code,
		Description: d.Description,
		Amount:      d.Amount,
		Unit:        string(d.Unit),
		OneTime:     d.OneTime,
		LevelIDs:    levelIDs,
		ExpiresAt:   d.ExpiresAt,
		MaxUses:     d.MaxUses,
		UseCount:    d.UseCount,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
