package students

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
	ErrNotFound      = errors.New("students: not found")
	ErrAlreadyExists = errors.New("students: profile already exists")
)

const selectColumns = `id, principal_id, school_id, display_name, class_name, year_group, created_at, updated_at`

// Repository defines persistence operations for student profiles.
type Repository interface {
	Get(ctx context.Context, id int64) (*StudentProfile, error)
	GetByPrincipal(ctx context.Context, principalID int64) (*StudentProfile, error)
	List(ctx context.Context, scope *authz.ScopePredicate) ([]StudentProfile, error)
	Create(ctx context.Context, profile StudentProfile) (*StudentProfile, error)
	Update(ctx context.Context, id int64, displayName, className string, yearGroup int) (*StudentProfile, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles WHERE id = $1`, selectColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) GetByPrincipal(ctx context.Context, principalID int64) (*StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles WHERE principal_id = $1`, selectColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, principalID))
}

// List applies the engine's scope predicate. For student profiles the
// predicate's class_name membership references this table's own column, so
// it translates directly without joins.
func (r *repository) List(ctx context.Context, scope *authz.ScopePredicate) ([]StudentProfile, error) {
	where, args := scopeWhere(scope)
	query := fmt.Sprintf(`SELECT %s FROM student_profiles %s ORDER BY class_name, display_name`, selectColumns, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StudentProfile
	for rows.Next() {
		p, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, profile StudentProfile) (*StudentProfile, error) {
	query := fmt.Sprintf(`
		INSERT INTO student_profiles (principal_id, school_id, display_name, class_name, year_group, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING %s`, selectColumns)
	row := r.pool.QueryRow(ctx, query,
		profile.PrincipalID, profile.SchoolID, profile.DisplayName, profile.ClassName, profile.YearGroup)
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

func (r *repository) Update(ctx context.Context, id int64, displayName, className string, yearGroup int) (*StudentProfile, error) {
	query := fmt.Sprintf(`
		UPDATE student_profiles
		SET display_name = $2, class_name = $3, year_group = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, selectColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id, displayName, className, yearGroup))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *repository) scanOne(row pgx.Row) (*StudentProfile, error) {
	p, err := scanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanRow(row rowScanner) (*StudentProfile, error) {
	var p StudentProfile
	if err := row.Scan(&p.ID, &p.PrincipalID, &p.SchoolID, &p.DisplayName, &p.ClassName, &p.YearGroup, &p.CreatedAt, &p.UpdatedAt); err != nil {
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
	if classes, ok := scope.In["class_name"]; ok {
		conditions = append(conditions, fmt.Sprintf("class_name = ANY($%d)", argPos))
		args = append(args, classes)
		argPos++
	}
	if len(conditions) == 0 {
		return "WHERE FALSE", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
