package teachers

import "time"

// TeacherProfile describes a teaching member of staff. Head is a flag
// widening scope within the same school, not a separate hierarchy level.
type TeacherProfile struct {
	ID          int64     `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	SchoolID    int64     `json:"school_id"`
	DisplayName string    `json:"display_name"`
	Head        bool      `json:"head"`
	Classes     []string  `json:"classes"`
	Subjects    []string  `json:"subjects"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
