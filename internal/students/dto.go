package students

// CreateStudentRequest registers a student profile for the calling
// principal.
type CreateStudentRequest struct {
	SchoolID    int64  `json:"school_id" validate:"required,gt=0"`
	DisplayName string `json:"display_name" validate:"required,max=200"`
	ClassName   string `json:"class_name" validate:"required,max=20"`
	YearGroup   int    `json:"year_group" validate:"required,gte=1,lte=13"`
}

// UpdateStudentRequest carries the self-editable profile fields.
type UpdateStudentRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=200"`
	ClassName   *string `json:"class_name,omitempty" validate:"omitempty,max=20"`
	YearGroup   *int    `json:"year_group,omitempty" validate:"omitempty,gte=1,lte=13"`
}
