package authz

import (
	"context"
	"errors"
	"fmt"
)

// TeacherProfile is the resolver's view of a teacher record.
type TeacherProfile struct {
	ID          int64
	PrincipalID int64
	SchoolID    int64
	Head        bool
	Classes     []string
	Subjects    []string
}

// StudentProfile is the resolver's view of a student record.
type StudentProfile struct {
	ID          int64
	PrincipalID int64
	SchoolID    int64
	ClassName   string
	YearGroup   int
}

// ProfileStore loads the profile rows a principal may own. Implementations
// return ErrNotFound when no row exists.
type ProfileStore interface {
	TeacherByPrincipal(ctx context.Context, principalID int64) (*TeacherProfile, error)
	StudentByPrincipal(ctx context.Context, principalID int64) (*StudentProfile, error)
}

// Resolver maps an authenticated principal id to a fully populated
// Principal snapshot. It performs pure lookup and holds no decision logic.
type Resolver struct {
	store ProfileStore
}

// NewResolver constructs a Resolver.
func NewResolver(store ProfileStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks up exactly one of the two profile types. A principal with
// both profiles is rejected with ErrIntegrity rather than merged or
// silently narrowed; one with neither fails with ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, principalID int64) (Principal, error) {
	teacher, err := r.store.TeacherByPrincipal(ctx, principalID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Principal{}, fmt.Errorf("authz: resolve teacher profile: %w", err)
	}
	student, err := r.store.StudentByPrincipal(ctx, principalID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Principal{}, fmt.Errorf("authz: resolve student profile: %w", err)
	}

	switch {
	case teacher != nil && student != nil:
		return Principal{}, fmt.Errorf("principal %d has both teacher and student profiles: %w", principalID, ErrIntegrity)
	case teacher != nil:
		role := RoleTeacher
		if teacher.Head {
			role = RoleHeadTeacher
		}
		return Principal{
			ID:        principalID,
			Role:      role,
			SchoolID:  teacher.SchoolID,
			TeacherID: teacher.ID,
			Classes:   append([]string(nil), teacher.Classes...),
			Subjects:  append([]string(nil), teacher.Subjects...),
		}, nil
	case student != nil:
		return Principal{
			ID:        principalID,
			Role:      RoleStudent,
			SchoolID:  student.SchoolID,
			StudentID: student.ID,
			ClassName: student.ClassName,
			YearGroup: student.YearGroup,
		}, nil
	}
	return Principal{}, ErrNotFound
}
