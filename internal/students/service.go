package students

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/classpulse/classpulse/internal/authz"
	"github.com/classpulse/classpulse/internal/shared"
)

// SchoolDirectory answers whether a referenced school exists. Satisfied by
// the schools service.
type SchoolDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates student profile reads and writes behind the policy
// engine.
type Service struct {
	repo     Repository
	schools  SchoolDirectory
	engine   *authz.Engine
	guard    *authz.Guard
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, schools SchoolDirectory, engine *authz.Engine, guard *authz.Guard, audit *shared.AuditLogger) *Service {
	return &Service{
		repo:     repo,
		schools:  schools,
		engine:   engine,
		guard:    guard,
		audit:    audit,
		validate: validator.New(),
	}
}

// Get returns a single student profile when visible to the principal. The
// profile's class goes into the request so class-scoped teachers are
// checked against it.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*StudentProfile, error) {
	profile, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceStudentProfile, authz.OpRead, authz.Target{
		SchoolID:         profile.SchoolID,
		OwnerPrincipalID: profile.PrincipalID,
		StudentID:        profile.ID,
		ClassName:        profile.ClassName,
	}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return profile, nil
}

// List returns the profiles visible to the principal. Heads see the whole
// school, teachers their classes, students only themselves.
func (s *Service) List(ctx context.Context, p authz.Principal) ([]StudentProfile, error) {
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceStudentProfile, authz.OpList, authz.Target{}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return s.repo.List(ctx, dec.Scope)
}

// Create registers a student profile owned by the calling principal. The
// referenced school must exist; the guard enforces that.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateStudentRequest) (*StudentProfile, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("students: validate create: %w", err)
	}
	schoolRef, err := s.schoolRef(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}
	approved, dec, err := s.guard.Approve(p,
		authz.Describe(authz.ResourceStudentProfile, authz.OpCreate, authz.Target{
			SchoolID:         req.SchoolID,
			OwnerPrincipalID: p.ID,
		}),
		authz.MutationState{School: schoolRef},
	)
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, authz.Denial(dec)
	}

	profile, err := s.repo.Create(ctx, StudentProfile{
		PrincipalID: p.ID,
		SchoolID:    req.SchoolID,
		DisplayName: shared.NormalizeDisplayName(req.DisplayName),
		ClassName:   req.ClassName,
		YearGroup:   req.YearGroup,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p, "student_profile.create", profile.ID)
	return profile, nil
}

// Update edits a profile. Only the owning principal may update it.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateStudentRequest) (*StudentProfile, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("students: validate update: %w", err)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	approved, dec, err := s.guard.Approve(p,
		authz.Describe(authz.ResourceStudentProfile, authz.OpUpdate, authz.Target{
			SchoolID:         current.SchoolID,
			OwnerPrincipalID: current.PrincipalID,
			StudentID:        current.ID,
			ClassName:        current.ClassName,
		}),
		authz.MutationState{School: &authz.SchoolRef{ID: current.SchoolID}},
	)
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, authz.Denial(dec)
	}

	displayName := current.DisplayName
	if req.DisplayName != nil {
		displayName = shared.NormalizeDisplayName(*req.DisplayName)
	}
	className := current.ClassName
	if req.ClassName != nil {
		className = *req.ClassName
	}
	yearGroup := current.YearGroup
	if req.YearGroup != nil {
		yearGroup = *req.YearGroup
	}

	profile, err := s.repo.Update(ctx, id, displayName, className, yearGroup)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p, "student_profile.update", profile.ID)
	return profile, nil
}

// Lookup returns a profile without an access decision. Internal plumbing
// for mutation guards in other modules; never expose it on a route.
func (s *Service) Lookup(ctx context.Context, id int64) (*StudentProfile, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) schoolRef(ctx context.Context, schoolID int64) (*authz.SchoolRef, error) {
	ok, err := s.schools.Exists(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("students: check school: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &authz.SchoolRef{ID: schoolID}, nil
}

func (s *Service) recordAudit(ctx context.Context, p authz.Principal, action string, profileID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   "student_profile",
		EntityID: strconv.FormatInt(profileID, 10),
	})
}
