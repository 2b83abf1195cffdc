package analytics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/classpulse/classpulse/internal/authz"
)

// Overview is the dashboard aggregate for whatever slice of a school the
// principal may see.
type Overview struct {
	SchoolID    int64         `json:"school_id"`
	Entries     int64         `json:"entries"`
	Students    int64         `json:"students"`
	Subjects    []SubjectStat `json:"subjects"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Service computes progress aggregates behind the policy engine. Visibility
// follows the same scope predicate as entry listings, so a student's
// overview covers only their own entries and a teacher's only their
// classes.
type Service struct {
	repo   Repository
	engine *authz.Engine
	cache  *Cache
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository, engine *authz.Engine, cache *Cache) *Service {
	return &Service{repo: repo, engine: engine, cache: cache}
}

// Overview returns the aggregate visible to the principal, served from the
// versioned cache when warm. Concurrent cold hits for the same scope
// collapse into one computation.
func (s *Service) Overview(ctx context.Context, p authz.Principal) (*Overview, error) {
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceProgressEntry, authz.OpList, authz.Target{}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return s.overview(ctx, p.SchoolID, dec.Scope)
}

// Warm recomputes the whole-school aggregate through the service principal
// and stores it under the current cache version. The rollup job calls this
// after bumping the version.
func (s *Service) Warm(ctx context.Context, schoolID int64) (*Overview, error) {
	p := authz.ServicePrincipal(schoolID)
	dec := s.engine.Decide(p, authz.Describe(authz.ResourceProgressEntry, authz.OpList, authz.Target{}))
	if !dec.Allow {
		return nil, authz.Denial(dec)
	}
	return s.overview(ctx, schoolID, dec.Scope)
}

func (s *Service) overview(ctx context.Context, schoolID int64, scope *authz.ScopePredicate) (*Overview, error) {
	key, err := s.cache.BuildKey(ctx, keyOverview(schoolID, scopeToken(scope)))
	if err != nil {
		return nil, fmt.Errorf("analytics: build cache key: %w", err)
	}

	result := s.group.DoChan(key, func() (interface{}, error) {
		var out Overview
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
			return s.compute(ctx, schoolID, scope)
		})
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Overview), nil
	}
}

func (s *Service) compute(ctx context.Context, schoolID int64, scope *authz.ScopePredicate) (*Overview, error) {
	out := Overview{SchoolID: schoolID, GeneratedAt: time.Now().UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.repo.SubjectStats(ctx, scope)
		if err != nil {
			return fmt.Errorf("analytics: subject stats: %w", err)
		}
		out.Subjects = stats
		return nil
	})
	g.Go(func() error {
		entries, students, err := s.repo.Totals(ctx, scope)
		if err != nil {
			return fmt.Errorf("analytics: totals: %w", err)
		}
		out.Entries = entries
		out.Students = students
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// scopeToken renders a predicate into a stable cache key fragment so
// principals with different visibility never share an entry.
func scopeToken(scope *authz.ScopePredicate) string {
	if scope == nil || scope.All {
		return "all"
	}
	var parts []string
	for _, column := range []string{"school_id", "student_id"} {
		if value, ok := scope.Equals[column]; ok {
			parts = append(parts, column+"="+strconv.FormatInt(value, 10))
		}
	}
	if classes, ok := scope.In["class_name"]; ok {
		sorted := append([]string(nil), classes...)
		sort.Strings(sorted)
		parts = append(parts, "classes="+strings.Join(sorted, ","))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
