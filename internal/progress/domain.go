package progress

import "time"

// ProgressEntry is one recorded assessment result for a student. TeacherID
// is the profile of the teacher who recorded it and never changes after
// creation.
type ProgressEntry struct {
	ID          int64     `json:"id"`
	StudentID   int64     `json:"student_id"`
	TeacherID   int64     `json:"teacher_id"`
	SchoolID    int64     `json:"school_id"`
	Subject     string    `json:"subject"`
	Score       float64   `json:"score"`
	MaxScore    float64   `json:"max_score"`
	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntryDetail is an entry joined with the class of the student it belongs
// to. The class feeds single-entry access decisions and is not part of the
// API shape.
type EntryDetail struct {
	ProgressEntry
	StudentClass string `json:"-"`
}
