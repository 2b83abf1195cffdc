package schools

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/classpulse/classpulse/internal/authz"
	"github.com/classpulse/classpulse/internal/shared"
)

// Service orchestrates school reads and writes behind the policy engine.
type Service struct {
	repo     Repository
	engine   *authz.Engine
	guard    *authz.Guard
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, engine *authz.Engine, guard *authz.Guard, audit *shared.AuditLogger) *Service {
	return &Service{
		repo:     repo,
		engine:   engine,
		guard:    guard,
		audit:    audit,
		validate: validator.New(),
	}
}

// List returns all schools. Schools are not secret; the engine grants every
// authenticated principal an unrestricted scope.
func (s *Service) List(ctx context.Context, p authz.Principal) ([]School, error) {
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceSchool, authz.OpList, authz.Target{}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return s.repo.List(ctx)
}

// Get returns a single school.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*School, error) {
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceSchool, authz.OpRead, authz.Target{SchoolID: id}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new school.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateSchoolRequest) (*School, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("schools: validate create: %w", err)
	}
	approved, dec, err := s.guard.Approve(p, authz.Describe(authz.ResourceSchool, authz.OpCreate, authz.Target{}), authz.MutationState{})
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, authz.Denial(dec)
	}

	school, err := s.repo.Create(ctx, shared.NormalizeDisplayName(req.Name))
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p, "school.create", school.ID)
	return school, nil
}

// Update renames a school.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateSchoolRequest) (*School, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("schools: validate update: %w", err)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	approved, dec, err := s.guard.Approve(p,
		authz.Describe(authz.ResourceSchool, authz.OpUpdate, authz.Target{SchoolID: id}),
		authz.MutationState{School: &authz.SchoolRef{ID: current.ID}},
	)
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, authz.Denial(dec)
	}

	school, err := s.repo.Update(ctx, id, shared.NormalizeDisplayName(req.Name))
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p, "school.update", school.ID)
	return school, nil
}

// Exists reports whether a school row exists. It is internal plumbing for
// mutation guards in other modules, not an access-controlled read.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) recordAudit(ctx context.Context, p authz.Principal, action string, schoolID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   "school",
		EntityID: strconv.FormatInt(schoolID, 10),
	})
}
