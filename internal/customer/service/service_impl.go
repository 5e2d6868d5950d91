package service

import (
	"context"
	"strings"
	"time"

	"memberd/internal/clock"
	"memberd/internal/customer/domain"
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
		log:   p.Log.Named("customer.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	verification := domain.EmailVerification(req.EmailVerification)
	if verification == "" {
		verification = domain.VerificationNone
	}

	now := s.clock.Now()
	c := &domain.Customer{
		ID:                s.genID.Generate().Int64(),
		Email:             email,
		Name:              strings.TrimSpace(req.Name),
		EmailVerification: verification,
		RegisteredAt:      now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, s.db, c); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}

	s.log.Info("customer registered",
		zap.Int64("customer_id", c.ID),
		zap.String("email", c.Email),
	)

	resp := toResponse(c)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(c)
	return &resp, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.Response, error) {
	c, err := s.repo.FindByEmail(ctx, s.db, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(c)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}

	filter := domain.ListFilter{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Verification: domain.EmailVerification(req.Verification),
		Limit:        limit + 1,
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

	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(c domain.Customer) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: snowflake.ID(c.ID).String()})
		return token
	})
	if len(items) > limit {
		items = items[:limit]
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return &domain.ListResponse{Customers: resp, PageInfo: pageInfo}, nil
}

func (s *Service) VerifyEmail(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.findForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if c.EmailVerification == domain.VerificationVerified {
			return nil
		}
		c.EmailVerification = domain.VerificationVerified
		c.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, c)
	})
}

func (s *Service) RecordLogin(ctx context.Context, id string, ip string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.findForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		c.LastLoginAt = &now
		ip = strings.TrimSpace(ip)
		if ip != "" && !containsIP(c.IPs, ip) {
			c.IPs = append(c.IPs, ip)
		}
		c.UpdatedAt = now
		return s.repo.Update(ctx, tx, c)
	})
}

func (s *Service) AddNote(ctx context.Context, id string, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.findForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		c.Notes = appendNote(c.Notes, note, now)
		c.UpdatedAt = now
		return s.repo.Update(ctx, tx, c)
	})
}

func (s *Service) GrantRole(ctx context.Context, customerID int64, role string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.repo.FindByIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		if c.GrantedRole == role {
			return nil
		}
		c.GrantedRole = role
		c.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, c)
	})
}

func (s *Service) RevokeRole(ctx context.Context, customerID int64, role string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.repo.FindByIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		if role != "" && c.GrantedRole != role {
			return nil
		}
		c.GrantedRole = ""
		c.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, c)
	})
}

func (s *Service) MarkTrialed(ctx context.Context, customerID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.repo.FindByIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		if c.HasTrialed {
			return nil
		}
		c.HasTrialed = true
		c.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, c)
	})
}

func (s *Service) find(ctx context.Context, id string) (*domain.Customer, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	c, err := s.repo.FindByID(ctx, s.db, customerID.Int64())
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *Service) findForUpdate(ctx context.Context, tx *gorm.DB, id string) (*domain.Customer, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	c, err := s.repo.FindByIDForUpdate(ctx, tx, customerID.Int64())
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func containsIP(ips []string, ip string) bool {
	for _, v := range ips {
		if v == ip {
			return true
		}
	}
	return false
}

func appendNote(notes, note string, at time.Time) string {
	line := at.Format("2006-01-02 15:04:05") + " - " + note
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

func toResponse(c *domain.Customer) domain.Response {
	return domain.Response{
		ID:                snowflake.ID(c.ID).String(),
		Email:             c.Email,
		Name:              c.Name,
		EmailVerification: string(c.EmailVerification),
		GrantedRole:       c.GrantedRole,
		HasTrialed:        c.HasTrialed,
		RegisteredAt:      c.RegisteredAt,
		LastLoginAt:       c.LastLoginAt,
		Notes:             c.Notes,
		IPs:               c.IPs,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}
