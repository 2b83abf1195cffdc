package schools

// CreateSchoolRequest carries the fields required to register a school.
type CreateSchoolRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// UpdateSchoolRequest carries the mutable school fields.
type UpdateSchoolRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}
