package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProfileStore struct {
	teacher *TeacherProfile
	student *StudentProfile
	err     error
}

func (s stubProfileStore) TeacherByPrincipal(context.Context, int64) (*TeacherProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.teacher == nil {
		return nil, ErrNotFound
	}
	return s.teacher, nil
}

func (s stubProfileStore) StudentByPrincipal(context.Context, int64) (*StudentProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.student == nil {
		return nil, ErrNotFound
	}
	return s.student, nil
}

func TestResolveTeacher(t *testing.T) {
	r := NewResolver(stubProfileStore{teacher: &TeacherProfile{
		ID: 200, PrincipalID: 20, SchoolID: 1, Classes: []string{"5A", "5B"}, Subjects: []string{"maths"},
	}})

	p, err := r.Resolve(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, p.Role)
	assert.Equal(t, int64(20), p.ID)
	assert.Equal(t, int64(1), p.SchoolID)
	assert.Equal(t, int64(200), p.TeacherID)
	assert.Equal(t, []string{"5A", "5B"}, p.Classes)
}

func TestResolveHeadTeacher(t *testing.T) {
	r := NewResolver(stubProfileStore{teacher: &TeacherProfile{
		ID: 300, PrincipalID: 30, SchoolID: 1, Head: true,
	}})

	p, err := r.Resolve(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, RoleHeadTeacher, p.Role)
}

func TestResolveStudent(t *testing.T) {
	r := NewResolver(stubProfileStore{student: &StudentProfile{
		ID: 100, PrincipalID: 10, SchoolID: 1, ClassName: "5A", YearGroup: 5,
	}})

	p, err := r.Resolve(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, p.Role)
	assert.Equal(t, int64(100), p.StudentID)
	assert.Equal(t, "5A", p.ClassName)
	assert.Equal(t, 5, p.YearGroup)
}

func TestResolveDualProfileIsIntegrityError(t *testing.T) {
	r := NewResolver(stubProfileStore{
		teacher: &TeacherProfile{ID: 200, PrincipalID: 7, SchoolID: 1},
		student: &StudentProfile{ID: 100, PrincipalID: 7, SchoolID: 1},
	})

	_, err := r.Resolve(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIntegrity))
}

func TestResolveMissingProfile(t *testing.T) {
	r := NewResolver(stubProfileStore{})

	_, err := r.Resolve(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolveStorePassthroughError(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewResolver(stubProfileStore{err: boom})

	_, err := r.Resolve(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}
