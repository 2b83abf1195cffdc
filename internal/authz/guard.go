package authz

import (
	"fmt"
	"time"
)

// SchoolRef identifies an existing school referenced by a mutation.
type SchoolRef struct {
	ID int64
}

// StudentRef carries the fields of a referenced student the guard checks.
type StudentRef struct {
	ID        int64
	SchoolID  int64
	ClassName string
}

// TeacherRef carries the fields of a referenced teacher the guard checks.
type TeacherRef struct {
	ID       int64
	SchoolID int64
}

// MutationState holds the already-loaded records a mutation references.
// Callers load them up front; the guard itself issues no queries.
type MutationState struct {
	School  *SchoolRef
	Student *StudentRef
	Teacher *TeacherRef
}

// ApprovedMutation is the token handed to the storage collaborator once a
// write has cleared both the policy decision and the tenant invariants.
type ApprovedMutation struct {
	PrincipalID int64
	Request     AccessRequest
	ApprovedAt  time.Time
}

// Guard gates every write. It combines the engine's decision with the
// cross-record invariants a pure access rule cannot express: every record a
// mutation references must carry the same school_id. Value-range validation
// (scores and the like) is a data concern and does not belong here.
type Guard struct {
	engine *Engine
}

// NewGuard constructs a Guard around the engine.
func NewGuard(engine *Engine) *Guard {
	return &Guard{engine: engine}
}

// Approve runs the policy decision and the tenant invariants. A policy
// denial is returned untouched in the decision; invariant breaches surface
// as errors (ErrNotFound for a missing school, ErrIntegrity for records
// that disagree on school_id) because they indicate a data problem, not a
// legitimate access rule.
func (g *Guard) Approve(p Principal, req AccessRequest, state MutationState) (*ApprovedMutation, AccessDecision, error) {
	dec := g.engine.Decide(p, req)
	if !dec.Allow {
		return nil, dec, nil
	}

	if req.Operation == OpCreate && req.SchoolID != 0 && state.School == nil {
		return nil, dec, fmt.Errorf("authz: school %d does not exist: %w", req.SchoolID, ErrNotFound)
	}
	if state.School != nil && state.School.ID != req.SchoolID {
		return nil, dec, fmt.Errorf("authz: school %d does not match request school %d: %w", state.School.ID, req.SchoolID, ErrIntegrity)
	}
	if state.Student != nil && state.Student.SchoolID != req.SchoolID {
		return nil, dec, fmt.Errorf("authz: student %d belongs to school %d, not %d: %w", state.Student.ID, state.Student.SchoolID, req.SchoolID, ErrIntegrity)
	}
	if state.Teacher != nil && state.Teacher.SchoolID != req.SchoolID {
		return nil, dec, fmt.Errorf("authz: teacher %d belongs to school %d, not %d: %w", state.Teacher.ID, state.Teacher.SchoolID, req.SchoolID, ErrIntegrity)
	}

	return &ApprovedMutation{
		PrincipalID: p.ID,
		Request:     req,
		ApprovedAt:  time.Now().UTC(),
	}, dec, nil
}
