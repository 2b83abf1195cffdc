package teachers

// CreateTeacherRequest registers a teacher profile for the calling
// principal.
type CreateTeacherRequest struct {
	SchoolID    int64    `json:"school_id" validate:"required,gt=0"`
	DisplayName string   `json:"display_name" validate:"required,max=200"`
	Head        bool     `json:"head"`
	Classes     []string `json:"classes" validate:"dive,required,max=20"`
	Subjects    []string `json:"subjects" validate:"dive,required,max=100"`
}

// UpdateTeacherRequest carries the self-editable profile fields.
type UpdateTeacherRequest struct {
	DisplayName *string  `json:"display_name,omitempty" validate:"omitempty,max=200"`
	Classes     []string `json:"classes,omitempty" validate:"omitempty,dive,required,max=20"`
	Subjects    []string `json:"subjects,omitempty" validate:"omitempty,dive,required,max=100"`
}
