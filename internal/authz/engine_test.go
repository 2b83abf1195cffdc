package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentPrincipal() Principal {
	return Principal{ID: 10, Role: RoleStudent, SchoolID: 1, StudentID: 100, ClassName: "5A", YearGroup: 5}
}

func teacherPrincipal() Principal {
	return Principal{ID: 20, Role: RoleTeacher, SchoolID: 1, TeacherID: 200, Classes: []string{"5A"}, Subjects: []string{"maths"}}
}

func headPrincipal() Principal {
	return Principal{ID: 30, Role: RoleHeadTeacher, SchoolID: 1, TeacherID: 300}
}

func TestDecideIsDeterministic(t *testing.T) {
	e := NewEngine()
	req := Describe(ResourceProgressEntry, OpRead, Target{SchoolID: 1, StudentID: 100, ClassName: "5A"})
	first := e.Decide(studentPrincipal(), req)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Decide(studentPrincipal(), req))
	}
}

func TestUnknownRoleAlwaysDenied(t *testing.T) {
	e := NewEngine()
	p := Principal{ID: 1, Role: Role("governor"), SchoolID: 1}
	for _, res := range []Resource{ResourceSchool, ResourceTeacherProfile, ResourceStudentProfile, ResourceProgressEntry} {
		for _, op := range []Operation{OpRead, OpList, OpCreate, OpUpdate, OpDelete} {
			dec := e.Decide(p, Describe(res, op, Target{SchoolID: 1}))
			require.False(t, dec.Allow, "%s %s", res, op)
			assert.Equal(t, ReasonUnknownRole, dec.Reason)
		}
	}
}

func TestTenantIsolationIsAbsolute(t *testing.T) {
	e := NewEngine()
	otherSchool := Target{SchoolID: 2, StudentID: 500, ClassName: "5A"}
	principals := []Principal{
		studentPrincipal(),
		teacherPrincipal(),
		headPrincipal(),
		ServicePrincipal(1),
	}
	for _, p := range principals {
		dec := e.Decide(p, Describe(ResourceProgressEntry, OpRead, otherSchool))
		require.False(t, dec.Allow, "role %s", p.Role)
		assert.Equal(t, ReasonTenantMismatch, dec.Reason, "role %s", p.Role)
	}
	for _, p := range []Principal{teacherPrincipal(), headPrincipal()} {
		dec := e.Decide(p, Describe(ResourceProgressEntry, OpCreate, otherSchool))
		require.False(t, dec.Allow)
		assert.Equal(t, ReasonTenantMismatch, dec.Reason)
	}
}

func TestStudentSeesOnlyOwnEntries(t *testing.T) {
	e := NewEngine()
	p := studentPrincipal()

	own := e.Decide(p, Describe(ResourceProgressEntry, OpRead, Target{SchoolID: 1, StudentID: 100, ClassName: "5A"}))
	assert.True(t, own.Allow)

	// A classmate's entry stays invisible even though the class matches.
	classmate := e.Decide(p, Describe(ResourceProgressEntry, OpRead, Target{SchoolID: 1, StudentID: 101, ClassName: "5A"}))
	require.False(t, classmate.Allow)
	assert.Equal(t, ReasonSelfOnly, classmate.Reason)

	list := e.Decide(p, Describe(ResourceProgressEntry, OpList, Target{}))
	require.True(t, list.Allow)
	require.NotNil(t, list.Scope)
	assert.Equal(t, int64(100), list.Scope.Equals["student_id"])
}

func TestStudentCannotWriteEntries(t *testing.T) {
	e := NewEngine()
	p := studentPrincipal()
	for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
		dec := e.Decide(p, Describe(ResourceProgressEntry, op, Target{SchoolID: 1, StudentID: 100, ClassName: "5A"}))
		require.False(t, dec.Allow, "%s", op)
		assert.Equal(t, ReasonOutOfScope, dec.Reason)
	}
}

func TestTeacherBoundToTheirClasses(t *testing.T) {
	e := NewEngine()
	p := teacherPrincipal()

	inClass := e.Decide(p, Describe(ResourceProgressEntry, OpCreate, Target{SchoolID: 1, StudentID: 101, TeacherID: 200, ClassName: "5A"}))
	assert.True(t, inClass.Allow)

	outOfClass := e.Decide(p, Describe(ResourceProgressEntry, OpCreate, Target{SchoolID: 1, StudentID: 102, TeacherID: 200, ClassName: "5B"}))
	require.False(t, outOfClass.Allow)
	assert.Equal(t, ReasonOutOfScope, outOfClass.Reason)

	list := e.Decide(p, Describe(ResourceProgressEntry, OpList, Target{}))
	require.True(t, list.Allow)
	require.NotNil(t, list.Scope)
	assert.Equal(t, int64(1), list.Scope.Equals["school_id"])
	assert.Equal(t, []string{"5A"}, list.Scope.In["class_name"])
}

func TestTeacherOwnsTheirEntries(t *testing.T) {
	e := NewEngine()
	p := teacherPrincipal()

	mine := e.Decide(p, Describe(ResourceProgressEntry, OpUpdate, Target{SchoolID: 1, StudentID: 101, TeacherID: 200, ClassName: "5A"}))
	assert.True(t, mine.Allow)

	theirs := e.Decide(p, Describe(ResourceProgressEntry, OpDelete, Target{SchoolID: 1, StudentID: 101, TeacherID: 999, ClassName: "5A"}))
	require.False(t, theirs.Allow)
	assert.Equal(t, ReasonOutOfScope, theirs.Reason)
}

func TestHeadTeacherHasWholeSchoolAuthority(t *testing.T) {
	e := NewEngine()
	p := headPrincipal()

	// Entry recorded by a different teacher in a class the head does not
	// teach.
	crossTeacher := e.Decide(p, Describe(ResourceProgressEntry, OpUpdate, Target{SchoolID: 1, StudentID: 400, TeacherID: 200, ClassName: "9Z"}))
	assert.True(t, crossTeacher.Allow)

	create := e.Decide(p, Describe(ResourceProgressEntry, OpCreate, Target{SchoolID: 1, StudentID: 400, TeacherID: 300, ClassName: "9Z"}))
	assert.True(t, create.Allow)

	list := e.Decide(p, Describe(ResourceProgressEntry, OpList, Target{}))
	require.True(t, list.Allow)
	require.NotNil(t, list.Scope)
	assert.Equal(t, int64(1), list.Scope.Equals["school_id"])
	assert.Empty(t, list.Scope.In)
}

func TestServicePrincipalReadsButNeverWrites(t *testing.T) {
	e := NewEngine()
	p := ServicePrincipal(1)

	read := e.Decide(p, Describe(ResourceProgressEntry, OpRead, Target{SchoolID: 1, StudentID: 100, ClassName: "5A"}))
	assert.True(t, read.Allow)

	list := e.Decide(p, Describe(ResourceProgressEntry, OpList, Target{}))
	require.True(t, list.Allow)
	assert.Equal(t, int64(1), list.Scope.Equals["school_id"])

	for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
		dec := e.Decide(p, Describe(ResourceProgressEntry, op, Target{SchoolID: 1}))
		require.False(t, dec.Allow, "%s", op)
		assert.Equal(t, ReasonOutOfScope, dec.Reason)
	}
}

func TestStudentProfileVisibility(t *testing.T) {
	e := NewEngine()

	t.Run("student reads self only", func(t *testing.T) {
		p := studentPrincipal()
		own := e.Decide(p, Describe(ResourceStudentProfile, OpRead, Target{SchoolID: 1, OwnerPrincipalID: 10, StudentID: 100, ClassName: "5A"}))
		assert.True(t, own.Allow)

		other := e.Decide(p, Describe(ResourceStudentProfile, OpRead, Target{SchoolID: 1, OwnerPrincipalID: 11, StudentID: 101, ClassName: "5A"}))
		require.False(t, other.Allow)
		assert.Equal(t, ReasonSelfOnly, other.Reason)
	})

	t.Run("teacher reads own classes", func(t *testing.T) {
		p := teacherPrincipal()
		inClass := e.Decide(p, Describe(ResourceStudentProfile, OpRead, Target{SchoolID: 1, OwnerPrincipalID: 11, StudentID: 101, ClassName: "5A"}))
		assert.True(t, inClass.Allow)

		outOfClass := e.Decide(p, Describe(ResourceStudentProfile, OpRead, Target{SchoolID: 1, OwnerPrincipalID: 12, StudentID: 102, ClassName: "5B"}))
		require.False(t, outOfClass.Allow)
		assert.Equal(t, ReasonOutOfScope, outOfClass.Reason)
	})

	t.Run("list scopes narrow by role", func(t *testing.T) {
		studentList := e.Decide(studentPrincipal(), Describe(ResourceStudentProfile, OpList, Target{}))
		require.True(t, studentList.Allow)
		assert.Equal(t, int64(10), studentList.Scope.Equals["principal_id"])

		teacherList := e.Decide(teacherPrincipal(), Describe(ResourceStudentProfile, OpList, Target{}))
		require.True(t, teacherList.Allow)
		assert.Equal(t, int64(1), teacherList.Scope.Equals["school_id"])
		assert.Equal(t, []string{"5A"}, teacherList.Scope.In["class_name"])

		headList := e.Decide(headPrincipal(), Describe(ResourceStudentProfile, OpList, Target{}))
		require.True(t, headList.Allow)
		assert.Equal(t, int64(1), headList.Scope.Equals["school_id"])
		assert.Empty(t, headList.Scope.In)
	})
}

func TestTeacherProfileVisibility(t *testing.T) {
	e := NewEngine()

	t.Run("student reads only own profile record", func(t *testing.T) {
		p := studentPrincipal()
		dec := e.Decide(p, Describe(ResourceTeacherProfile, OpRead, Target{SchoolID: 1, OwnerPrincipalID: 20, TeacherID: 200}))
		require.False(t, dec.Allow)
		assert.Equal(t, ReasonSelfOnly, dec.Reason)
	})

	t.Run("teacher reads colleagues in school", func(t *testing.T) {
		p := teacherPrincipal()
		same := e.Decide(p, Describe(ResourceTeacherProfile, OpRead, Target{SchoolID: 1, OwnerPrincipalID: 30, TeacherID: 300}))
		assert.True(t, same.Allow)

		cross := e.Decide(p, Describe(ResourceTeacherProfile, OpRead, Target{SchoolID: 2, OwnerPrincipalID: 40, TeacherID: 400}))
		require.False(t, cross.Allow)
		assert.Equal(t, ReasonTenantMismatch, cross.Reason)
	})

	t.Run("only the owner updates", func(t *testing.T) {
		p := teacherPrincipal()
		own := e.Decide(p, Describe(ResourceTeacherProfile, OpUpdate, Target{SchoolID: 1, OwnerPrincipalID: 20, TeacherID: 200}))
		assert.True(t, own.Allow)

		other := e.Decide(p, Describe(ResourceTeacherProfile, OpUpdate, Target{SchoolID: 1, OwnerPrincipalID: 30, TeacherID: 300}))
		require.False(t, other.Allow)
		assert.Equal(t, ReasonSelfOnly, other.Reason)
	})
}

func TestSchoolOperations(t *testing.T) {
	e := NewEngine()

	read := e.Decide(studentPrincipal(), Describe(ResourceSchool, OpRead, Target{SchoolID: 2}))
	assert.True(t, read.Allow)

	list := e.Decide(studentPrincipal(), Describe(ResourceSchool, OpList, Target{}))
	require.True(t, list.Allow)
	require.NotNil(t, list.Scope)
	assert.True(t, list.Scope.All)

	del := e.Decide(headPrincipal(), Describe(ResourceSchool, OpDelete, Target{SchoolID: 1}))
	require.False(t, del.Allow)
	assert.Equal(t, ReasonUnsupported, del.Reason)
}

func TestObserverSeesEveryDecision(t *testing.T) {
	var calls int
	var lastAllow bool
	e := NewEngine(func(req AccessRequest, dec AccessDecision) {
		calls++
		lastAllow = dec.Allow
	})

	e.Decide(studentPrincipal(), Describe(ResourceSchool, OpRead, Target{SchoolID: 1}))
	e.Decide(studentPrincipal(), Describe(ResourceProgressEntry, OpDelete, Target{SchoolID: 1}))

	assert.Equal(t, 2, calls)
	assert.False(t, lastAllow)
}
