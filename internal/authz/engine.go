package authz

// Observer is notified of every decision. Observers must not influence the
// outcome; they exist for metrics.
type Observer func(req AccessRequest, dec AccessDecision)

// Engine evaluates access requests against a fixed, statically ordered rule
// set per resource type. Evaluation terminates on the first matching rule,
// is strictly sequential, and holds no mutable state: identical inputs
// always produce identical decisions, so the engine is safe for concurrent
// use without coordination.
type Engine struct {
	observers []Observer
}

// NewEngine constructs an Engine.
func NewEngine(observers ...Observer) *Engine {
	return &Engine{observers: observers}
}

// Decide evaluates the request. Unknown roles and undefined
// resource/operation combinations are denied, never silently allowed.
func (e *Engine) Decide(p Principal, req AccessRequest) AccessDecision {
	dec := e.decide(p, req)
	for _, obs := range e.observers {
		obs(req, dec)
	}
	return dec
}

func (e *Engine) decide(p Principal, req AccessRequest) AccessDecision {
	if !p.Role.Known() {
		return denied(ReasonUnknownRole)
	}
	// The service pseudo-role is read-only regardless of resource.
	if p.Role == RoleService && req.Operation != OpRead && req.Operation != OpList {
		return denied(ReasonOutOfScope)
	}
	switch req.Resource {
	case ResourceSchool:
		return e.decideSchool(p, req)
	case ResourceTeacherProfile:
		return e.decideTeacherProfile(p, req)
	case ResourceStudentProfile:
		return e.decideStudentProfile(p, req)
	case ResourceProgressEntry:
		return e.decideProgressEntry(p, req)
	}
	return denied(ReasonUnsupported)
}

// Schools are not secret: any authenticated principal reads them, and any
// non-service principal may create or update one. There is no ownership
// concept for schools and the engine never approves deleting one.
func (e *Engine) decideSchool(p Principal, req AccessRequest) AccessDecision {
	switch req.Operation {
	case OpRead:
		return allowed()
	case OpList:
		return allowedScope(ScopeAll())
	case OpCreate, OpUpdate:
		return allowed()
	}
	return denied(ReasonUnsupported)
}

func (e *Engine) decideTeacherProfile(p Principal, req AccessRequest) AccessDecision {
	switch req.Operation {
	case OpRead:
		if req.OwnerPrincipalID == p.ID {
			return allowed()
		}
		if p.Role.Teaching() || p.Role == RoleService {
			if req.SchoolID != p.SchoolID {
				return denied(ReasonTenantMismatch)
			}
			return allowed()
		}
		return denied(ReasonSelfOnly)
	case OpList:
		if p.Role.Teaching() || p.Role == RoleService {
			return allowedScope(ScopeEquals("school_id", p.SchoolID))
		}
		return allowedScope(ScopeEquals("principal_id", p.ID))
	case OpUpdate:
		if req.OwnerPrincipalID == p.ID {
			return allowed()
		}
		return denied(ReasonSelfOnly)
	case OpCreate:
		// The referenced school must exist; the Guard checks that.
		return allowed()
	}
	return denied(ReasonUnsupported)
}

func (e *Engine) decideStudentProfile(p Principal, req AccessRequest) AccessDecision {
	switch req.Operation {
	case OpRead:
		if req.OwnerPrincipalID == p.ID {
			return allowed()
		}
		if p.Role.Teaching() || p.Role == RoleService {
			if req.SchoolID != p.SchoolID {
				return denied(ReasonTenantMismatch)
			}
			if p.Role == RoleTeacher && req.ClassName != "" && !p.InClass(req.ClassName) {
				return denied(ReasonOutOfScope)
			}
			return allowed()
		}
		return denied(ReasonSelfOnly)
	case OpList:
		switch {
		case p.Role == RoleHeadTeacher || p.Role == RoleService:
			return allowedScope(ScopeEquals("school_id", p.SchoolID))
		case p.Role == RoleTeacher:
			// Same-school scope narrowed to the teacher's classes; a plain
			// teacher is not denied outright, they just see less.
			return allowedScope(ScopeEquals("school_id", p.SchoolID).AndIn("class_name", p.Classes))
		default:
			return allowedScope(ScopeEquals("principal_id", p.ID))
		}
	case OpUpdate:
		if req.OwnerPrincipalID == p.ID {
			return allowed()
		}
		return denied(ReasonSelfOnly)
	case OpCreate:
		return allowed()
	}
	return denied(ReasonUnsupported)
}

func (e *Engine) decideProgressEntry(p Principal, req AccessRequest) AccessDecision {
	switch req.Operation {
	case OpRead:
		// Tenant isolation is absolute: no role crosses a school boundary.
		if req.SchoolID != p.SchoolID {
			return denied(ReasonTenantMismatch)
		}
		if p.Role == RoleStudent {
			// A student never sees another student's entry, even within the
			// same class.
			if req.StudentID == p.StudentID {
				return allowed()
			}
			return denied(ReasonSelfOnly)
		}
		if p.Role == RoleHeadTeacher || p.Role == RoleService {
			return allowed()
		}
		// Plain teacher: the related student's class must be one of theirs.
		if p.InClass(req.ClassName) {
			return allowed()
		}
		return denied(ReasonOutOfScope)
	case OpList:
		switch p.Role {
		case RoleStudent:
			return allowedScope(ScopeEquals("student_id", p.StudentID))
		case RoleHeadTeacher, RoleService:
			return allowedScope(ScopeEquals("school_id", p.SchoolID))
		default:
			return allowedScope(ScopeEquals("school_id", p.SchoolID).AndIn("class_name", p.Classes))
		}
	case OpCreate:
		if !p.Role.Teaching() {
			return denied(ReasonOutOfScope)
		}
		if req.SchoolID != p.SchoolID {
			return denied(ReasonTenantMismatch)
		}
		if p.Role == RoleHeadTeacher || p.InClass(req.ClassName) {
			return allowed()
		}
		return denied(ReasonOutOfScope)
	case OpUpdate, OpDelete:
		if !p.Role.Teaching() {
			return denied(ReasonOutOfScope)
		}
		if req.SchoolID != p.SchoolID {
			return denied(ReasonTenantMismatch)
		}
		// A head teacher has whole-school authority over entries, including
		// ones created by other teachers. A plain teacher only touches
		// entries they created.
		if p.Role == RoleHeadTeacher || req.TeacherID == p.TeacherID {
			return allowed()
		}
		return denied(ReasonOutOfScope)
	}
	return denied(ReasonUnsupported)
}
