package teachers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/classpulse/internal/authz"
)

var (
	ErrNotFound      = errors.New("teachers: not found")
	ErrAlreadyExists = errors.New("teachers: profile already exists")
)

const selectColumns = `id, principal_id, school_id, display_name, is_head, classes, subjects, created_at, updated_at`

// Repository defines persistence operations for teacher profiles.
type Repository interface {
	Get(ctx context.Context, id int64) (*TeacherProfile, error)
	GetByPrincipal(ctx context.Context, principalID int64) (*TeacherProfile, error)
	List(ctx context.Context, scope *authz.ScopePredicate) ([]TeacherProfile, error)
	Create(ctx context.Context, profile TeacherProfile) (*TeacherProfile, error)
	Update(ctx context.Context, id int64, displayName string, classes, subjects []string) (*TeacherProfile, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*TeacherProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM teacher_profiles WHERE id = $1`, selectColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) GetByPrincipal(ctx context.Context, principalID int64) (*TeacherProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM teacher_profiles WHERE principal_id = $1`, selectColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, principalID))
}

// List applies the engine's scope predicate as SQL conjuncts. The predicate
// only ever references columns of teacher_profiles itself.
func (r *repository) List(ctx context.Context, scope *authz.ScopePredicate) ([]TeacherProfile, error) {
	where, args := scopeWhere(scope)
	query := fmt.Sprintf(`SELECT %s FROM teacher_profiles %s ORDER BY display_name`, selectColumns, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeacherProfile
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, profile TeacherProfile) (*TeacherProfile, error) {
	query := fmt.Sprintf(`
		INSERT INTO teacher_profiles (principal_id, school_id, display_name, is_head, classes, subjects, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING %s`, selectColumns)
	row := r.pool.QueryRow(ctx, query,
		profile.PrincipalID, profile.SchoolID, profile.DisplayName, profile.Head, profile.Classes, profile.Subjects)
	created, err := r.scanOne(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, displayName string, classes, subjects []string) (*TeacherProfile, error) {
	query := fmt.Sprintf(`
		UPDATE teacher_profiles
		SET display_name = $2, classes = $3, subjects = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, selectColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id, displayName, classes, subjects))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *repository) scanOne(row pgx.Row) (*TeacherProfile, error) {
	p, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) scanRow(row rowScanner) (*TeacherProfile, error) {
	var p TeacherProfile
	if err := row.Scan(&p.ID, &p.PrincipalID, &p.SchoolID, &p.DisplayName, &p.Head, &p.Classes, &p.Subjects, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scopeWhere(scope *authz.ScopePredicate) (string, []any) {
	if scope == nil || scope.All {
		return "", nil
	}
	var conditions []string
	var args []any
	argPos := 1
	for _, column := range []string{"school_id", "principal_id"} {
		if value, ok := scope.Equals[column]; ok {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argPos))
			args = append(args, value)
			argPos++
		}
	}
	if len(conditions) == 0 {
		// Fail closed: an empty predicate must not widen into a full scan.
		return "WHERE FALSE", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
