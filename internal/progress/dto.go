package progress

import "time"

// CreateProgressRequest records a new assessment result.
type CreateProgressRequest struct {
	StudentID   int64     `json:"student_id" validate:"required"`
	Subject     string    `json:"subject" validate:"required,max=120"`
	Score       float64   `json:"score" validate:"gte=0"`
	MaxScore    float64   `json:"max_score" validate:"gt=0"`
	CompletedAt time.Time `json:"completed_at" validate:"required"`
}

// UpdateProgressRequest edits an existing entry. Nil fields keep their
// current value.
type UpdateProgressRequest struct {
	Subject     *string    `json:"subject" validate:"omitempty,max=120"`
	Score       *float64   `json:"score" validate:"omitempty,gte=0"`
	MaxScore    *float64   `json:"max_score" validate:"omitempty,gt=0"`
	CompletedAt *time.Time `json:"completed_at"`
}
