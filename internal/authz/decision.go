package authz

// Reason explains a decision. The set is closed; callers may switch on it.
type Reason string

const (
	ReasonAllowed Reason = "allowed"
	// ReasonSelfOnly denies access to records the principal may only touch
	// when they own them.
	ReasonSelfOnly Reason = "self_only"
	// ReasonOutOfScope denies access to records outside the principal's
	// class or role scope.
	ReasonOutOfScope Reason = "out_of_scope"
	// ReasonUnknownRole denies principals whose role is not in the closed
	// role set.
	ReasonUnknownRole Reason = "unknown_role"
	// ReasonUnsupported denies resource/operation combinations the rule set
	// does not define. Unknown combinations are never silently allowed.
	ReasonUnsupported Reason = "unsupported"
	// ReasonTenantMismatch denies any request crossing a school boundary.
	ReasonTenantMismatch Reason = "tenant_mismatch"
)

// ScopePredicate describes which records a listing may return, independent
// of any storage technology. Repositories translate it into their native
// filter language.
type ScopePredicate struct {
	// All marks an unrestricted scope.
	All bool
	// Equals are column = value conjuncts.
	Equals map[string]int64
	// In are column IN (values) conjuncts. The column may belong to a
	// related record (class_name lives on the student a progress entry
	// points to); the repository resolves that with a join, never with a
	// subquery against the rows being filtered.
	In map[string][]string
}

// ScopeAll returns the unrestricted scope.
func ScopeAll() *ScopePredicate {
	return &ScopePredicate{All: true}
}

// ScopeEquals returns a scope with a single equality conjunct.
func ScopeEquals(column string, value int64) *ScopePredicate {
	return &ScopePredicate{Equals: map[string]int64{column: value}}
}

// AndIn adds a membership conjunct and returns the predicate.
func (s *ScopePredicate) AndIn(column string, values []string) *ScopePredicate {
	if s.In == nil {
		s.In = make(map[string][]string, 1)
	}
	s.In[column] = append([]string(nil), values...)
	return s
}

// AccessDecision is the outcome of evaluating one AccessRequest. Scope is
// set only for allowed list operations.
type AccessDecision struct {
	Allow  bool
	Reason Reason
	Scope  *ScopePredicate
}

func allowed() AccessDecision {
	return AccessDecision{Allow: true, Reason: ReasonAllowed}
}

func allowedScope(scope *ScopePredicate) AccessDecision {
	return AccessDecision{Allow: true, Reason: ReasonAllowed, Scope: scope}
}

func denied(reason Reason) AccessDecision {
	return AccessDecision{Allow: false, Reason: reason}
}
