package authz

import "errors"

// ErrDenied is the sentinel all policy denials unwrap to. A denial is the
// expected, recoverable outcome of normal operation, distinct from the data
// problems below.
var ErrDenied = errors.New("authz: denied")

// DenialError carries the closed-enum reason of a policy denial.
type DenialError struct {
	Reason Reason
}

func (e *DenialError) Error() string {
	return "authz: denied: " + string(e.Reason)
}

func (e *DenialError) Unwrap() error {
	return ErrDenied
}

// Denial wraps a deny decision into an error for service-layer returns.
func Denial(dec AccessDecision) error {
	return &DenialError{Reason: dec.Reason}
}

var (
	// ErrNotFound indicates the principal has no profile at all. This is an
	// authentication-layer problem surfaced upward, never downgraded to a
	// policy denial.
	ErrNotFound = errors.New("authz: principal not found")
	// ErrIntegrity indicates inconsistent data discovered while resolving,
	// such as a principal with both a teacher and a student profile, or
	// related records disagreeing on school_id.
	ErrIntegrity = errors.New("authz: integrity violation")
)
