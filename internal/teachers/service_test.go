package teachers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/classpulse/internal/authz"
)

type memoryRepo struct {
	profiles map[int64]*TeacherProfile
	nextID   int64
	scope    *authz.ScopePredicate
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{profiles: make(map[int64]*TeacherProfile)}
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*TeacherProfile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return profile, nil
}

func (r *memoryRepo) GetByPrincipal(_ context.Context, principalID int64) (*TeacherProfile, error) {
	for _, profile := range r.profiles {
		if profile.PrincipalID == principalID {
			return profile, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepo) List(_ context.Context, scope *authz.ScopePredicate) ([]TeacherProfile, error) {
	r.scope = scope
	out := make([]TeacherProfile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		out = append(out, *profile)
	}
	return out, nil
}

func (r *memoryRepo) Create(_ context.Context, profile TeacherProfile) (*TeacherProfile, error) {
	for _, existing := range r.profiles {
		if existing.PrincipalID == profile.PrincipalID {
			return nil, ErrAlreadyExists
		}
	}
	r.nextID++
	profile.ID = r.nextID
	profile.CreatedAt = time.Now().UTC()
	profile.UpdatedAt = profile.CreatedAt
	r.profiles[profile.ID] = &profile
	return &profile, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, displayName string, classes, subjects []string) (*TeacherProfile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	profile.DisplayName = displayName
	profile.Classes = classes
	profile.Subjects = subjects
	profile.UpdatedAt = time.Now().UTC()
	return profile, nil
}

type stubSchools struct {
	known map[int64]bool
}

func (s stubSchools) Exists(_ context.Context, id int64) (bool, error) {
	return s.known[id], nil
}

func newTestService(repo Repository) *Service {
	engine := authz.NewEngine()
	return NewService(repo, stubSchools{known: map[int64]bool{1: true}}, engine, authz.NewGuard(engine), nil)
}

func createRequest() CreateTeacherRequest {
	return CreateTeacherRequest{
		SchoolID:    1,
		DisplayName: "jordan smith",
		Classes:     []string{"5A"},
		Subjects:    []string{"maths"},
	}
}

func TestCreateNormalizesDisplayName(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	p := authz.Principal{ID: 20, Role: authz.RoleTeacher, SchoolID: 1, TeacherID: 0}

	profile, err := svc.Create(context.Background(), p, createRequest())
	require.NoError(t, err)
	assert.Equal(t, "Jordan Smith", profile.DisplayName)
	assert.Equal(t, p.ID, profile.PrincipalID)
}

func TestCreateRejectsUnknownSchool(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	p := authz.Principal{ID: 20, Role: authz.RoleTeacher, SchoolID: 9}

	req := createRequest()
	req.SchoolID = 9
	_, err := svc.Create(context.Background(), p, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, authz.ErrNotFound))
}

func TestCreateRejectsSecondProfile(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	p := authz.Principal{ID: 20, Role: authz.RoleTeacher, SchoolID: 1}

	_, err := svc.Create(context.Background(), p, createRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), p, createRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestUpdateIsOwnerOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := authz.Principal{ID: 20, Role: authz.RoleTeacher, SchoolID: 1}

	created, err := svc.Create(context.Background(), owner, createRequest())
	require.NoError(t, err)

	name := "jordan m smith"
	updated, err := svc.Update(context.Background(), owner, created.ID, UpdateTeacherRequest{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jordan M Smith", updated.DisplayName)

	head := authz.Principal{ID: 30, Role: authz.RoleHeadTeacher, SchoolID: 1, TeacherID: 300}
	_, err = svc.Update(context.Background(), head, created.ID, UpdateTeacherRequest{DisplayName: &name})
	require.Error(t, err)
	var denial *authz.DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, authz.ReasonSelfOnly, denial.Reason)
}

func TestListScopeFollowsRole(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	teacher := authz.Principal{ID: 20, Role: authz.RoleTeacher, SchoolID: 1, TeacherID: 200}
	_, err := svc.List(context.Background(), teacher)
	require.NoError(t, err)
	require.NotNil(t, repo.scope)
	assert.Equal(t, int64(1), repo.scope.Equals["school_id"])

	student := authz.Principal{ID: 10, Role: authz.RoleStudent, SchoolID: 1, StudentID: 100}
	_, err = svc.List(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, int64(10), repo.scope.Equals["principal_id"])
}
