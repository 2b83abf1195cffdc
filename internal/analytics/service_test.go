package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/classpulse/internal/authz"
)

type countingRepo struct {
	stats      []SubjectStat
	entries    int64
	students   int64
	statCalls  int
	totalCalls int
	lastScope  *authz.ScopePredicate
}

func (r *countingRepo) SubjectStats(_ context.Context, scope *authz.ScopePredicate) ([]SubjectStat, error) {
	r.statCalls++
	r.lastScope = scope
	return r.stats, nil
}

func (r *countingRepo) Totals(_ context.Context, scope *authz.ScopePredicate) (int64, int64, error) {
	r.totalCalls++
	return r.entries, r.students, nil
}

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestOverviewComputesAndCaches(t *testing.T) {
	repo := &countingRepo{
		stats:    []SubjectStat{{Subject: "maths", Entries: 3, AveragePct: 64.5, StudentCount: 2}},
		entries:  3,
		students: 2,
	}
	svc := NewService(repo, authz.NewEngine(), testCache(t))
	p := authz.Principal{ID: 30, Role: authz.RoleHeadTeacher, SchoolID: 1, TeacherID: 300}

	first, err := svc.Overview(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.SchoolID)
	assert.Equal(t, int64(3), first.Entries)
	require.Len(t, first.Subjects, 1)
	assert.Equal(t, "maths", first.Subjects[0].Subject)

	// Second call for the same scope is served from the cache.
	second, err := svc.Overview(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, 1, repo.statCalls)
	assert.Equal(t, 1, repo.totalCalls)
}

func TestOverviewScopesFollowRole(t *testing.T) {
	repo := &countingRepo{}
	svc := NewService(repo, authz.NewEngine(), testCache(t))

	teacher := authz.Principal{ID: 20, Role: authz.RoleTeacher, SchoolID: 1, TeacherID: 200, Classes: []string{"5A"}}
	_, err := svc.Overview(context.Background(), teacher)
	require.NoError(t, err)
	require.NotNil(t, repo.lastScope)
	assert.Equal(t, int64(1), repo.lastScope.Equals["school_id"])
	assert.Equal(t, []string{"5A"}, repo.lastScope.In["class_name"])

	student := authz.Principal{ID: 10, Role: authz.RoleStudent, SchoolID: 1, StudentID: 100, ClassName: "5A"}
	_, err = svc.Overview(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, int64(100), repo.lastScope.Equals["student_id"])
}

func TestOverviewDeniesUnknownRole(t *testing.T) {
	svc := NewService(&countingRepo{}, authz.NewEngine(), testCache(t))

	_, err := svc.Overview(context.Background(), authz.Principal{ID: 1, Role: authz.Role("visitor"), SchoolID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, authz.ErrDenied))
}

func TestWarmUsesServicePrincipalScope(t *testing.T) {
	repo := &countingRepo{entries: 7, students: 4}
	svc := NewService(repo, authz.NewEngine(), testCache(t))

	out, err := svc.Warm(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.SchoolID)
	assert.Equal(t, int64(7), out.Entries)
	require.NotNil(t, repo.lastScope)
	assert.Equal(t, int64(3), repo.lastScope.Equals["school_id"])
}

func TestBumpInvalidatesCachedOverview(t *testing.T) {
	repo := &countingRepo{entries: 1}
	cache := testCache(t)
	svc := NewService(repo, authz.NewEngine(), cache)

	_, err := svc.Warm(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(context.Background()))

	repo.entries = 2
	out, err := svc.Warm(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Entries)
	assert.Equal(t, 2, repo.totalCalls)
}

func TestScopeTokenStable(t *testing.T) {
	a := authz.ScopeEquals("school_id", 1).AndIn("class_name", []string{"5B", "5A"})
	b := authz.ScopeEquals("school_id", 1).AndIn("class_name", []string{"5A", "5B"})
	assert.Equal(t, scopeToken(a), scopeToken(b))
	assert.NotEqual(t, scopeToken(a), scopeToken(authz.ScopeEquals("school_id", 2)))
	assert.Equal(t, "all", scopeToken(authz.ScopeAll()))
}
