package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/classpulse/internal/authz"
)

type memoryRepo struct {
	entries map[int64]*EntryDetail
	nextID  int64
	scope   *authz.ScopePredicate
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: make(map[int64]*EntryDetail)}
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*EntryDetail, error) {
	detail, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return detail, nil
}

func (r *memoryRepo) List(_ context.Context, scope *authz.ScopePredicate, limit, offset int) ([]ProgressEntry, error) {
	r.scope = scope
	var out []ProgressEntry
	for _, detail := range r.entries {
		out = append(out, detail.ProgressEntry)
	}
	return out, nil
}

func (r *memoryRepo) Count(_ context.Context, scope *authz.ScopePredicate) (int64, error) {
	return int64(len(r.entries)), nil
}

func (r *memoryRepo) Create(_ context.Context, entry ProgressEntry) (*ProgressEntry, error) {
	r.nextID++
	entry.ID = r.nextID
	entry.CreatedAt = time.Now().UTC()
	entry.UpdatedAt = entry.CreatedAt
	r.entries[entry.ID] = &EntryDetail{ProgressEntry: entry}
	return &entry, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, subject string, score, maxScore float64, completedAt time.Time) (*ProgressEntry, error) {
	detail, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	detail.Subject = subject
	detail.Score = score
	detail.MaxScore = maxScore
	detail.CompletedAt = completedAt
	detail.UpdatedAt = time.Now().UTC()
	return &detail.ProgressEntry, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.entries[id]; !ok {
		return ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

type stubDirectory struct {
	students map[int64]*StudentSnapshot
}

func (d stubDirectory) Snapshot(_ context.Context, id int64) (*StudentSnapshot, error) {
	snap, ok := d.students[id]
	if !ok {
		return nil, authz.ErrNotFound
	}
	return snap, nil
}

func newTestService(repo *memoryRepo) *Service {
	engine := authz.NewEngine()
	directory := stubDirectory{students: map[int64]*StudentSnapshot{
		101: {ID: 101, SchoolID: 1, ClassName: "5A"},
		102: {ID: 102, SchoolID: 1, ClassName: "5B"},
		500: {ID: 500, SchoolID: 2, ClassName: "5A"},
	}}
	return NewService(repo, directory, engine, authz.NewGuard(engine), nil)
}

func teacher5A() authz.Principal {
	return authz.Principal{ID: 20, Role: authz.RoleTeacher, SchoolID: 1, TeacherID: 200, Classes: []string{"5A"}}
}

func head() authz.Principal {
	return authz.Principal{ID: 30, Role: authz.RoleHeadTeacher, SchoolID: 1, TeacherID: 300}
}

func student101() authz.Principal {
	return authz.Principal{ID: 10, Role: authz.RoleStudent, SchoolID: 1, StudentID: 101, ClassName: "5A"}
}

func createRequest(studentID int64) CreateProgressRequest {
	return CreateProgressRequest{
		StudentID:   studentID,
		Subject:     "maths",
		Score:       72,
		MaxScore:    100,
		CompletedAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateEntryInOwnClass(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	entry, err := svc.Create(context.Background(), teacher5A(), createRequest(101))
	require.NoError(t, err)
	assert.Equal(t, int64(200), entry.TeacherID)
	assert.Equal(t, int64(1), entry.SchoolID)
	assert.Equal(t, int64(101), entry.StudentID)
}

func TestCreateEntryOutsideClassDenied(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), teacher5A(), createRequest(102))
	require.Error(t, err)
	var denial *authz.DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, authz.ReasonOutOfScope, denial.Reason)
}

func TestCreateEntryCrossSchoolDenied(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), teacher5A(), createRequest(500))
	require.Error(t, err)
	var denial *authz.DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, authz.ReasonTenantMismatch, denial.Reason)
}

func TestCreateEntryMissingStudent(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), head(), createRequest(999))
	require.Error(t, err)
	assert.True(t, errors.Is(err, authz.ErrNotFound))
}

func TestCreateEntryScoreAboveMaxRejected(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	req := createRequest(101)
	req.Score = 110
	_, err := svc.Create(context.Background(), teacher5A(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScoreRange))
}

func TestStudentReadsOwnEntryOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), teacher5A(), createRequest(101))
	require.NoError(t, err)
	repo.entries[created.ID].StudentClass = "5A"

	got, err := svc.Get(context.Background(), student101(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	other := authz.Principal{ID: 11, Role: authz.RoleStudent, SchoolID: 1, StudentID: 102, ClassName: "5A"}
	_, err = svc.Get(context.Background(), other, created.ID)
	require.Error(t, err)
	var denial *authz.DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, authz.ReasonSelfOnly, denial.Reason)
}

func TestUpdateOwnershipRules(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), teacher5A(), createRequest(101))
	require.NoError(t, err)
	repo.entries[created.ID].StudentClass = "5A"

	newScore := 90.0
	updated, err := svc.Update(context.Background(), teacher5A(), created.ID, UpdateProgressRequest{Score: &newScore})
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.Score)

	// A head teacher edits entries recorded by other teachers.
	_, err = svc.Update(context.Background(), head(), created.ID, UpdateProgressRequest{Score: &newScore})
	require.NoError(t, err)

	// A different plain teacher does not.
	otherTeacher := authz.Principal{ID: 21, Role: authz.RoleTeacher, SchoolID: 1, TeacherID: 201, Classes: []string{"5A"}}
	_, err = svc.Update(context.Background(), otherTeacher, created.ID, UpdateProgressRequest{Score: &newScore})
	require.Error(t, err)
	var denial *authz.DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, authz.ReasonOutOfScope, denial.Reason)
}

func TestDeleteFollowsSameRules(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), teacher5A(), createRequest(101))
	require.NoError(t, err)
	repo.entries[created.ID].StudentClass = "5A"

	err = svc.Delete(context.Background(), student101(), created.ID)
	require.Error(t, err)
	var denial *authz.DenialError
	require.True(t, errors.As(err, &denial))

	require.NoError(t, svc.Delete(context.Background(), teacher5A(), created.ID))
	_, err = svc.Get(context.Background(), teacher5A(), created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListPassesScopeToRepository(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, pg, err := svc.List(context.Background(), teacher5A(), 0, 0)
	require.NoError(t, err)
	require.NotNil(t, repo.scope)
	assert.Equal(t, int64(1), repo.scope.Equals["school_id"])
	assert.Equal(t, []string{"5A"}, repo.scope.In["class_name"])
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 20, pg.PerPage)

	_, _, err = svc.List(context.Background(), student101(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(101), repo.scope.Equals["student_id"])
}
