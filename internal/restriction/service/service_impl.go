package service

import (
	"context"
	"strings"
	"time"

	"memberd/internal/clock"
	customerdomain "memberd/internal/customer/domain"
	leveldomain "memberd/internal/level/domain"
	membershipdomain "memberd/internal/membership/domain"
	"memberd/internal/restriction/domain"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	LevelRepo      leveldomain.Repository
	MembershipRepo membershipdomain.Repository
	CustomerRepo   customerdomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	repo           domain.Repository
	levelRepo      leveldomain.Repository
	membershipRepo membershipdomain.Repository
	customerRepo   customerdomain.Repository
	genID          *snowflake.Node
	clock          clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("restriction.service"),
		repo:           p.Repo,
		levelRepo:      p.LevelRepo,
		membershipRepo: p.MembershipRepo,
		customerRepo:   p.CustomerRepo,
		genID:          p.GenID,
		clock:          p.Clock,
	}
}

func (s *Service) SetContentRestriction(ctx context.Context, req domain.ContentRequest) (*domain.ContentRestriction, error) {
	contentID := strings.TrimSpace(req.ContentID)
	if contentID == "" {
		return nil, domain.ErrInvalidContent
	}
	mode := domain.Mode(req.Mode)
	switch mode {
	case "", domain.ModeLevels, domain.ModeAny, domain.ModeAnyPaid, domain.ModeNone:
	default:
		return nil, domain.ErrInvalidMode
	}

	levelIDs, err := parseLevelIDs(req.LevelIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	restriction := &domain.ContentRestriction{
		ID:           s.genID.Generate().Int64(),
		ContentID:    contentID,
		Mode:         mode,
		LevelIDs:     levelIDs,
		AccessLevel:  req.AccessLevel,
		AllowedRoles: datatypes.NewJSONSlice(req.AllowedRoles),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertContent(ctx, s.db, restriction); err != nil {
		return nil, err
	}
	return restriction, nil
}

func (s *Service) GetContentRestriction(ctx context.Context, contentID string) (*domain.ContentRestriction, error) {
	restriction, err := s.repo.FindContent(ctx, s.db, strings.TrimSpace(contentID))
	if err != nil {
		return nil, err
	}
	if restriction == nil {
		return nil, domain.ErrNotFound
	}
	return restriction, nil
}

func (s *Service) RemoveContentRestriction(ctx context.Context, contentID string) error {
	return s.repo.DeleteContent(ctx, s.db, strings.TrimSpace(contentID))
}

func (s *Service) SetTermRestriction(ctx context.Context, req domain.TermRequest) (*domain.TermRestriction, error) {
	termID := strings.TrimSpace(req.TermID)
	if termID == "" {
		return nil, domain.ErrInvalidTerm
	}

	levelIDs, err := parseLevelIDs(req.LevelIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	restriction := &domain.TermRestriction{
		ID:          s.genID.Generate().Int64(),
		TermID:      termID,
		PaidOnly:    req.PaidOnly,
		LevelIDs:    levelIDs,
		AccessLevel: req.AccessLevel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.UpsertTerm(ctx, s.db, restriction); err != nil {
		return nil, err
	}
	return restriction, nil
}

func (s *Service) RemoveTermRestriction(ctx context.Context, termID string) error {
	return s.repo.DeleteTerm(ctx, s.db, strings.TrimSpace(termID))
}

func (s *Service) AssignTerm(ctx context.Context, contentID, termID string) error {
	contentID = strings.TrimSpace(contentID)
	termID = strings.TrimSpace(termID)
	if contentID == "" {
		return domain.ErrInvalidContent
	}
	if termID == "" {
		return domain.ErrInvalidTerm
	}
	return s.repo.AssignTerm(ctx, s.db, contentID, termID)
}

func (s *Service) UnassignTerm(ctx context.Context, contentID, termID string) error {
	return s.repo.UnassignTerm(ctx, s.db, strings.TrimSpace(contentID), strings.TrimSpace(termID))
}

func (s *Service) CanAccess(ctx context.Context, customerID, contentID string) (*domain.AccessResult, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, domain.ErrInvalidContent
	}

	restriction, err := s.repo.FindContent(ctx, s.db, contentID)
	if err != nil {
		return nil, err
	}
	terms, err := s.repo.TermsForContent(ctx, s.db, contentID)
	if err != nil {
		return nil, err
	}
	if restriction == nil && len(terms) == 0 {
		return &domain.AccessResult{Allowed: true}, nil
	}

	parsedID, err := snowflake.ParseString(strings.TrimSpace(customerID))
	if err != nil {
		return &domain.AccessResult{Restricted: true, Reason: "no_customer"}, nil
	}
	customer, err := s.customerRepo.FindByID(ctx, s.db, parsedID.Int64())
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return &domain.AccessResult{Restricted: true, Reason: "no_customer"}, nil
	}

	disabled := false
	memberships, err := s.membershipRepo.List(ctx, s.db, membershipdomain.ListFilter{
		CustomerID: customer.ID,
		Disabled:   &disabled,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for i := range memberships {
		m := &memberships[i]
		if !m.IsActive(now) {
			continue
		}
		lvl, err := s.levelRepo.FindByID(ctx, s.db, m.LevelID)
		if err != nil {
			return nil, err
		}
		if lvl == nil {
			continue
		}
		if s.membershipAllows(now, m, lvl, customer, restriction, terms) {
			return &domain.AccessResult{Allowed: true, Restricted: true}, nil
		}
	}
	return &domain.AccessResult{Restricted: true, Reason: "membership_required"}, nil
}

// membershipAllows applies the content's own rules first, then the term
// overlay. Term rules can rescue content the own rules denied, and they can
// deny content that carries no rules of its own.
func (s *Service) membershipAllows(
	now time.Time,
	m *membershipdomain.Membership,
	lvl *leveldomain.Level,
	customer *customerdomain.Customer,
	restriction *domain.ContentRestriction,
	terms []domain.TermRestriction,
) bool {
	paid := m.IsPaid(now, lvl.Price)

	ownAllowed := restriction == nil ||
		restriction.Allows(lvl.ID, lvl.AccessLevel, paid, customer.GrantedRole)

	if restriction != nil && ownAllowed {
		return true
	}
	if len(terms) > 0 {
		for i := range terms {
			if terms[i].Allows(lvl.ID, lvl.AccessLevel, paid) {
				return true
			}
		}
		return false
	}
	return ownAllowed
}

func parseLevelIDs(ids []string) (datatypes.JSONSlice[int64], error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make(datatypes.JSONSlice[int64], 0, len(ids))
	for _, raw := range ids {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return nil, domain.ErrInvalidLevel
		}
		out = append(out, id.Int64())
	}
	return out, nil
}
