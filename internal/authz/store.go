package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGProfileStore implements ProfileStore against PostgreSQL.
type PGProfileStore struct {
	pool *pgxpool.Pool
}

// NewPGProfileStore constructs a PGProfileStore.
func NewPGProfileStore(pool *pgxpool.Pool) *PGProfileStore {
	return &PGProfileStore{pool: pool}
}

// TeacherByPrincipal fetches the teacher profile owned by the principal.
func (s *PGProfileStore) TeacherByPrincipal(ctx context.Context, principalID int64) (*TeacherProfile, error) {
	const query = `
		SELECT id, principal_id, school_id, is_head, classes, subjects
		FROM teacher_profiles
		WHERE principal_id = $1`
	var p TeacherProfile
	err := s.pool.QueryRow(ctx, query, principalID).
		Scan(&p.ID, &p.PrincipalID, &p.SchoolID, &p.Head, &p.Classes, &p.Subjects)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// StudentByPrincipal fetches the student profile owned by the principal.
func (s *PGProfileStore) StudentByPrincipal(ctx context.Context, principalID int64) (*StudentProfile, error) {
	const query = `
		SELECT id, principal_id, school_id, class_name, year_group
		FROM student_profiles
		WHERE principal_id = $1`
	var p StudentProfile
	err := s.pool.QueryRow(ctx, query, principalID).
		Scan(&p.ID, &p.PrincipalID, &p.SchoolID, &p.ClassName, &p.YearGroup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ ProfileStore = (*PGProfileStore)(nil)
