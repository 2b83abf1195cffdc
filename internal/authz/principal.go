// Package authz decides, for an authenticated principal and an intended
// operation on a record, whether the operation is allowed and which rows a
// listing may return. The engine is a pure function of its inputs: the
// principal is fully resolved before any rule runs, so no rule ever queries
// the entity class it is deciding access to.
package authz

// Role classifies an authenticated actor. The set is closed; anything else
// is denied outright.
type Role string

const (
	RoleStudent     Role = "student"
	RoleTeacher     Role = "teacher"
	RoleHeadTeacher Role = "head_teacher"
	// RoleService is the pseudo-role used by trusted background consumers
	// (analytics rollups). It is scoped to a single school and never writes.
	RoleService Role = "service"
)

// Known reports whether the role belongs to the closed set.
func (r Role) Known() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleHeadTeacher, RoleService:
		return true
	}
	return false
}

// Teaching reports whether the role carries teaching authority.
func (r Role) Teaching() bool {
	return r == RoleTeacher || r == RoleHeadTeacher
}

// Principal is an immutable snapshot of the caller, resolved once per
// request. It is never cached across requests so a role change takes effect
// on the next request at the latest.
type Principal struct {
	ID       int64
	Role     Role
	SchoolID int64

	// Teaching roles only.
	TeacherID int64
	Classes   []string
	Subjects  []string

	// Students only.
	StudentID int64
	ClassName string
	YearGroup int
}

// InClass reports whether the principal teaches the given class.
func (p Principal) InClass(class string) bool {
	for _, c := range p.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// ServicePrincipal builds the read-only pseudo-principal used by background
// jobs. It is constructed directly rather than resolved from profile
// storage, and is always scoped to exactly one school.
func ServicePrincipal(schoolID int64) Principal {
	return Principal{
		ID:       -1,
		Role:     RoleService,
		SchoolID: schoolID,
	}
}
