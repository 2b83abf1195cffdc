package authz

// Resource identifies the record class an operation targets.
type Resource string

const (
	ResourceSchool         Resource = "school"
	ResourceTeacherProfile Resource = "teacher_profile"
	ResourceStudentProfile Resource = "student_profile"
	ResourceProgressEntry  Resource = "progress_entry"
)

// Operation identifies the intended action. OpRead targets a single record;
// OpList asks for the visibility scope of a collection.
type Operation string

const (
	OpRead   Operation = "read"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Target carries the record attributes the rules need. Zero values mean
// "not applicable" for the resource in question.
type Target struct {
	SchoolID int64
	// OwnerPrincipalID is the principal owning a profile record.
	OwnerPrincipalID int64
	// TeacherID is the teacher profile that created a progress entry.
	TeacherID int64
	// StudentID is the student profile a progress entry belongs to.
	StudentID int64
	// ClassName is the class of the (related) student record.
	ClassName string
	Subject   string
}

// AccessRequest is the canonical shape every resource/operation pair is
// normalized into before evaluation.
type AccessRequest struct {
	Resource  Resource
	Operation Operation
	Target
}

// Describe normalizes a target record and operation into an AccessRequest.
func Describe(resource Resource, op Operation, target Target) AccessRequest {
	return AccessRequest{Resource: resource, Operation: op, Target: target}
}
