package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/classpulse/classpulse/internal/authz"
	"github.com/classpulse/classpulse/internal/shared"
)

// ErrScoreRange rejects entries whose score exceeds the maximum.
var ErrScoreRange = errors.New("progress: score exceeds max score")

// StudentSnapshot is the slice of a student profile a progress mutation
// needs: tenancy and class membership of the target student.
type StudentSnapshot struct {
	ID        int64
	SchoolID  int64
	ClassName string
}

// StudentDirectory resolves the student a mutation references. Satisfied
// by an adapter over the students repository.
type StudentDirectory interface {
	Snapshot(ctx context.Context, id int64) (*StudentSnapshot, error)
}

// Service orchestrates progress entry reads and writes behind the policy
// engine.
type Service struct {
	repo     Repository
	students StudentDirectory
	engine   *authz.Engine
	guard    *authz.Guard
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, students StudentDirectory, engine *authz.Engine, guard *authz.Guard, audit *shared.AuditLogger) *Service {
	return &Service{
		repo:     repo,
		students: students,
		engine:   engine,
		guard:    guard,
		audit:    audit,
		validate: validator.New(),
	}
}

// Get returns a single entry when visible to the principal. The related
// student's class rides on the request so class-scoped teachers are checked
// against it.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*ProgressEntry, error) {
	detail, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceProgressEntry, authz.OpRead, authz.Target{
		SchoolID:  detail.SchoolID,
		StudentID: detail.StudentID,
		TeacherID: detail.TeacherID,
		ClassName: detail.StudentClass,
		Subject:   detail.Subject,
	}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return &detail.ProgressEntry, nil
}

// List returns one page of the entries visible to the principal. Students
// see their own entries, heads their whole school, teachers their classes.
func (s *Service) List(ctx context.Context, p authz.Principal, page, perPage int) ([]ProgressEntry, shared.Pagination, error) {
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceProgressEntry, authz.OpList, authz.Target{}))
	if !dec.Allow {
		return nil, shared.Pagination{}, authz.Denial(dec)
	}
	total, err := s.repo.Count(ctx, dec.Scope)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	pg := shared.NewPagination(page, perPage, int(total))
	entries, err := s.repo.List(ctx, dec.Scope, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, pg, nil
}

// Create records an entry for a student. The calling teacher becomes the
// entry's recorded teacher; the target student's school and class drive the
// decision and the tenant invariants.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateProgressRequest) (*ProgressEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("progress: validate create: %w", err)
	}
	if req.Score > req.MaxScore {
		return nil, ErrScoreRange
	}

	student, err := s.students.Snapshot(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	approved, dec, err := s.guard.Approve(p,
		authz.Describe(authz.ResourceProgressEntry, authz.OpCreate, authz.Target{
			SchoolID:  student.SchoolID,
			StudentID: student.ID,
			TeacherID: p.TeacherID,
			ClassName: student.ClassName,
			Subject:   req.Subject,
		}),
		authz.MutationState{
			School:  &authz.SchoolRef{ID: student.SchoolID},
			Student: &authz.StudentRef{ID: student.ID, SchoolID: student.SchoolID, ClassName: student.ClassName},
			Teacher: &authz.TeacherRef{ID: p.TeacherID, SchoolID: p.SchoolID},
		},
	)
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, authz.Denial(dec)
	}

	entry, err := s.repo.Create(ctx, ProgressEntry{
		StudentID:   student.ID,
		TeacherID:   p.TeacherID,
		SchoolID:    student.SchoolID,
		Subject:     req.Subject,
		Score:       req.Score,
		MaxScore:    req.MaxScore,
		CompletedAt: req.CompletedAt,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p, "progress_entry.create", entry.ID)
	return entry, nil
}

// Update edits an entry. Heads may edit any entry in their school; a plain
// teacher only those they recorded.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateProgressRequest) (*ProgressEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("progress: validate update: %w", err)
	}
	detail, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	approved, dec, err := s.approveMutation(p, authz.OpUpdate, detail)
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, authz.Denial(dec)
	}

	subject := detail.Subject
	if req.Subject != nil {
		subject = *req.Subject
	}
	score := detail.Score
	if req.Score != nil {
		score = *req.Score
	}
	maxScore := detail.MaxScore
	if req.MaxScore != nil {
		maxScore = *req.MaxScore
	}
	if score > maxScore {
		return nil, ErrScoreRange
	}
	completedAt := detail.CompletedAt
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	entry, err := s.repo.Update(ctx, id, subject, score, maxScore, completedAt)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p, "progress_entry.update", entry.ID)
	return entry, nil
}

// Delete removes an entry under the same ownership rules as Update.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	detail, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	approved, dec, err := s.approveMutation(p, authz.OpDelete, detail)
	if err != nil {
		return err
	}
	if approved == nil {
		return authz.Denial(dec)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, p, "progress_entry.delete", id)
	return nil
}

func (s *Service) approveMutation(p authz.Principal, op authz.Operation, detail *EntryDetail) (*authz.ApprovedMutation, authz.AccessDecision, error) {
	return s.guard.Approve(p,
		authz.Describe(authz.ResourceProgressEntry, op, authz.Target{
			SchoolID:  detail.SchoolID,
			StudentID: detail.StudentID,
			TeacherID: detail.TeacherID,
			ClassName: detail.StudentClass,
			Subject:   detail.Subject,
		}),
		authz.MutationState{School: &authz.SchoolRef{ID: detail.SchoolID}},
	)
}

func (s *Service) recordAudit(ctx context.Context, p authz.Principal, action string, entryID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   "progress_entry",
		EntityID: strconv.FormatInt(entryID, 10),
	})
}
