package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/classpulse/internal/authz"
)

// SubjectStat aggregates the recorded entries of one subject.
type SubjectStat struct {
	Subject      string  `json:"subject"`
	Entries      int64   `json:"entries"`
	AveragePct   float64 `json:"average_pct"`
	StudentCount int64   `json:"student_count"`
}

// Repository computes aggregates over progress entries.
type Repository interface {
	SubjectStats(ctx context.Context, scope *authz.ScopePredicate) ([]SubjectStat, error)
	Totals(ctx context.Context, scope *authz.ScopePredicate) (entries, students int64, err error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// SubjectStats groups entries by subject under the given visibility scope.
// Scores are normalised to a percentage of max_score before averaging so
// assessments on different scales compare.
func (r *repository) SubjectStats(ctx context.Context, scope *authz.ScopePredicate) ([]SubjectStat, error) {
	where, args := scopeWhere(scope)
	query := fmt.Sprintf(`
		SELECT e.subject,
		       COUNT(*),
		       COALESCE(AVG(e.score / NULLIF(e.max_score, 0) * 100), 0),
		       COUNT(DISTINCT e.student_id)
		FROM progress_entries e
		JOIN student_profiles s ON s.id = e.student_id
		%s
		GROUP BY e.subject
		ORDER BY e.subject`, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubjectStat
	for rows.Next() {
		var stat SubjectStat
		if err := rows.Scan(&stat.Subject, &stat.Entries, &stat.AveragePct, &stat.StudentCount); err != nil {
			return nil, err
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

// Totals counts the entries and distinct students under the scope.
func (r *repository) Totals(ctx context.Context, scope *authz.ScopePredicate) (int64, int64, error) {
	where, args := scopeWhere(scope)
	query := fmt.Sprintf(`
		SELECT COUNT(*), COUNT(DISTINCT e.student_id)
		FROM progress_entries e
		JOIN student_profiles s ON s.id = e.student_id
		%s`, where)
	var entries, students int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&entries, &students); err != nil {
		return 0, 0, err
	}
	return entries, students, nil
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
