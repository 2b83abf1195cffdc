package authz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardReturnsPolicyDenialWithoutError(t *testing.T) {
	g := NewGuard(NewEngine())
	p := studentPrincipal()

	approved, dec, err := g.Approve(p,
		Describe(ResourceProgressEntry, OpCreate, Target{SchoolID: 1, StudentID: 100, ClassName: "5A"}),
		MutationState{School: &SchoolRef{ID: 1}},
	)
	require.NoError(t, err)
	assert.Nil(t, approved)
	assert.False(t, dec.Allow)
	assert.Equal(t, ReasonOutOfScope, dec.Reason)
}

func TestGuardRejectsMissingSchoolOnCreate(t *testing.T) {
	g := NewGuard(NewEngine())
	p := headPrincipal()

	approved, _, err := g.Approve(p,
		Describe(ResourceTeacherProfile, OpCreate, Target{SchoolID: 1, OwnerPrincipalID: p.ID}),
		MutationState{},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Nil(t, approved)
}

func TestGuardRejectsCrossSchoolReferences(t *testing.T) {
	g := NewGuard(NewEngine())
	p := headPrincipal()
	req := Describe(ResourceProgressEntry, OpCreate, Target{SchoolID: 1, StudentID: 400, TeacherID: 300, ClassName: "9Z"})

	t.Run("student in another school", func(t *testing.T) {
		_, _, err := g.Approve(p, req, MutationState{
			School:  &SchoolRef{ID: 1},
			Student: &StudentRef{ID: 400, SchoolID: 2, ClassName: "9Z"},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIntegrity))
	})

	t.Run("teacher in another school", func(t *testing.T) {
		_, _, err := g.Approve(p, req, MutationState{
			School:  &SchoolRef{ID: 1},
			Student: &StudentRef{ID: 400, SchoolID: 1, ClassName: "9Z"},
			Teacher: &TeacherRef{ID: 300, SchoolID: 2},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIntegrity))
	})

	t.Run("school ref disagrees with request", func(t *testing.T) {
		_, _, err := g.Approve(p, req, MutationState{School: &SchoolRef{ID: 2}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIntegrity))
	})
}

func TestGuardApprovesConsistentMutation(t *testing.T) {
	g := NewGuard(NewEngine())
	p := headPrincipal()
	req := Describe(ResourceProgressEntry, OpCreate, Target{SchoolID: 1, StudentID: 400, TeacherID: 300, ClassName: "9Z"})

	approved, dec, err := g.Approve(p, req, MutationState{
		School:  &SchoolRef{ID: 1},
		Student: &StudentRef{ID: 400, SchoolID: 1, ClassName: "9Z"},
		Teacher: &TeacherRef{ID: 300, SchoolID: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, approved)
	assert.True(t, dec.Allow)
	assert.Equal(t, p.ID, approved.PrincipalID)
	assert.Equal(t, req, approved.Request)
	assert.False(t, approved.ApprovedAt.IsZero())
}

func TestDenialErrorUnwrapsToSentinel(t *testing.T) {
	err := Denial(AccessDecision{Reason: ReasonTenantMismatch})
	assert.True(t, errors.Is(err, ErrDenied))

	var denial *DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, ReasonTenantMismatch, denial.Reason)
}
