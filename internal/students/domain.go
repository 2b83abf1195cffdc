package students

import "time"

// StudentProfile describes an enrolled student.
type StudentProfile struct {
	ID          int64     `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	SchoolID    int64     `json:"school_id"`
	DisplayName string    `json:"display_name"`
	ClassName   string    `json:"class_name"`
	YearGroup   int       `json:"year_group"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
