package teachers

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

// Service orchestrates teacher profile reads and writes behind the policy
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

// Get returns a single teacher profile when visible to the principal.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*TeacherProfile, error) {
	profile, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceTeacherProfile, authz.OpRead, authz.Target{
		SchoolID:         profile.SchoolID,
		OwnerPrincipalID: profile.PrincipalID,
	}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return profile, nil
}

// List returns the profiles visible to the principal. Teaching roles see
// their whole school; everyone else sees only their own profile.
func (s *Service) List(ctx context.Context, p authz.Principal) ([]TeacherProfile, error) {
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceTeacherProfile, authz.OpList, authz.Target{}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return s.repo.List(ctx, dec.Scope)
}

// Create registers a teacher profile owned by the calling principal. The
// referenced school must exist; the guard enforces that.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateTeacherRequest) (*TeacherProfile, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("teachers: validate create: %w", err)
	}
	schoolRef, err := s.schoolRef(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}
	approved, dec, err := s.guard.Approve(p,
		authz.Describe(authz.ResourceTeacherProfile, authz.OpCreate, authz.Target{
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

	profile, err := s.repo.Create(ctx, TeacherProfile{
		PrincipalID: p.ID,
		SchoolID:    req.SchoolID,
		DisplayName: shared.NormalizeDisplayName(req.DisplayName),
		Head:        req.Head,
		Classes:     req.Classes,
		Subjects:    req.Subjects,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p, "teacher_profile.create", profile.ID)
	return profile, nil
}

// Update edits a profile. Only the owning principal may update it.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateTeacherRequest) (*TeacherProfile, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("teachers: validate update: %w", err)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	approved, dec, err := s.guard.Approve(p,
		authz.Describe(authz.ResourceTeacherProfile, authz.OpUpdate, authz.Target{
			SchoolID:         current.SchoolID,
			OwnerPrincipalID: current.PrincipalID,
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
	classes := current.Classes
	if req.Classes != nil {
		classes = req.Classes
	}
	subjects := current.Subjects
	if req.Subjects != nil {
		subjects = req.Subjects
	}

	profile, err := s.repo.Update(ctx, id, displayName, classes, subjects)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p, "teacher_profile.update", profile.ID)
	return profile, nil
}

func (s *Service) schoolRef(ctx context.Context, schoolID int64) (*authz.SchoolRef, error) {
	ok, err := s.schools.Exists(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("teachers: check school: %w", err)
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
		Entity:   "teacher_profile",
		EntityID: strconv.FormatInt(profileID, 10),
	})
}
