package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/classpulse/internal/authz"
)

var ErrNotFound = errors.New("progress: not found")

const selectColumns = `e.id, e.student_id, e.teacher_id, e.school_id, e.subject, e.score, e.max_score, e.completed_at, e.created_at, e.updated_at`

// Repository defines persistence operations for progress entries.
type Repository interface {
	Get(ctx context.Context, id int64) (*EntryDetail, error)
	List(ctx context.Context, scope *authz.ScopePredicate, limit, offset int) ([]ProgressEntry, error)
	Count(ctx context.Context, scope *authz.ScopePredicate) (int64, error)
	Create(ctx context.Context, entry ProgressEntry) (*ProgressEntry, error)
	Update(ctx context.Context, id int64, subject string, score, maxScore float64, completedAt time.Time) (*ProgressEntry, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Get loads one entry together with the class of the student it belongs
// to, so the caller can decide access without a second query.
func (r *repository) Get(ctx context.Context, id int64) (*EntryDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s, s.class_name
		FROM progress_entries e
		JOIN student_profiles s ON s.id = e.student_id
		WHERE e.id = $1`, selectColumns)
	var d EntryDetail
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.StudentID, &d.TeacherID, &d.SchoolID, &d.Subject,
		&d.Score, &d.MaxScore, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt,
		&d.StudentClass,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List applies the engine's scope predicate. The class_name conjunct lives
// on the related student, so the query joins student_profiles rather than
// filtering the entries table alone.
func (r *repository) List(ctx context.Context, scope *authz.ScopePredicate, limit, offset int) ([]ProgressEntry, error) {
	where, args := scopeWhere(scope)
	query := fmt.Sprintf(`
		SELECT %s
		FROM progress_entries e
		JOIN student_profiles s ON s.id = e.student_id
		%s
		ORDER BY e.completed_at DESC, e.id DESC
		LIMIT $%d OFFSET $%d`, selectColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProgressEntry
	for rows.Next() {
		var e ProgressEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.TeacherID, &e.SchoolID, &e.Subject,
			&e.Score, &e.MaxScore, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count reports how many entries fall inside the scope, for pagination
// metadata.
func (r *repository) Count(ctx context.Context, scope *authz.ScopePredicate) (int64, error) {
	where, args := scopeWhere(scope)
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM progress_entries e
		JOIN student_profiles s ON s.id = e.student_id
		%s`, where)
	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) Create(ctx context.Context, entry ProgressEntry) (*ProgressEntry, error) {
	query := `
		INSERT INTO progress_entries (student_id, teacher_id, school_id, subject, score, max_score, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, student_id, teacher_id, school_id, subject, score, max_score, completed_at, created_at, updated_at`
	var e ProgressEntry
	err := r.pool.QueryRow(ctx, query,
		entry.StudentID, entry.TeacherID, entry.SchoolID, entry.Subject,
		entry.Score, entry.MaxScore, entry.CompletedAt,
	).Scan(&e.ID, &e.StudentID, &e.TeacherID, &e.SchoolID, &e.Subject,
		&e.Score, &e.MaxScore, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) Update(ctx context.Context, id int64, subject string, score, maxScore float64, completedAt time.Time) (*ProgressEntry, error) {
	query := `
		UPDATE progress_entries
		SET subject = $2, score = $3, max_score = $4, completed_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING id, student_id, teacher_id, school_id, subject, score, max_score, completed_at, created_at, updated_at`
	var e ProgressEntry
	err := r.pool.QueryRow(ctx, query, id, subject, score, maxScore, completedAt).
		Scan(&e.ID, &e.StudentID, &e.TeacherID, &e.SchoolID, &e.Subject,
			&e.Score, &e.MaxScore, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM progress_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scopeWhere(scope *authz.ScopePredicate) (string, []any) {
	if scope == nil || scope.All {
		return "", nil
	}
	columns := map[string]string{
		"school_id":  "e.school_id",
		"student_id": "e.student_id",
		"class_name": "s.class_name",
	}
	var conditions []string
	var args []any
	argPos := 1
	for _, column := range []string{"school_id", "student_id"} {
		if value, ok := scope.Equals[column]; ok {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", columns[column], argPos))
			args = append(args, value)
			argPos++
		}
	}
	if classes, ok := scope.In["class_name"]; ok {
		conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", columns["class_name"], argPos))
		args = append(args, classes)
		argPos++
	}
	if len(conditions) == 0 {
		return "WHERE FALSE", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
