package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

// fakeStore is an in-memory studentStore. onCall runs before every operation,
// which lets tests flip the active backend mid-flight.
type fakeStore struct {
	kind     models.BackendKind
	students map[string]models.Student
	calls    int
	err      error
	onCall   func()
}

func newFakeStore(kind models.BackendKind, students ...models.Student) *fakeStore {
	m := make(map[string]models.Student, len(students))
	for _, s := range students {
		m[s.ID] = s
	}
	return &fakeStore{kind: kind, students: m}
}

func (f *fakeStore) hook() error {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	return f.err
}

func (f *fakeStore) Kind() models.BackendKind { return f.kind }

func (f *fakeStore) Create(_ context.Context, record models.Student) (models.Student, error) {
	if err := f.hook(); err != nil {
		return models.Student{}, err
	}
	record.ID = string(f.kind) + "-id"
	record.SubmittedAt = time.Now().UTC()
	f.students[record.ID] = record
	return record, nil
}

func (f *fakeStore) List(context.Context) ([]models.Student, error) {
	if err := f.hook(); err != nil {
		return nil, err
	}
	out := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (models.Student, error) {
	if err := f.hook(); err != nil {
		return models.Student{}, err
	}
	s, ok := f.students[id]
	if !ok {
		return models.Student{}, appErrors.Clone(appErrors.ErrNotFound, "not found")
	}
	return s, nil
}

func (f *fakeStore) Update(_ context.Context, id string, record models.Student) (models.Student, error) {
	if err := f.hook(); err != nil {
		return models.Student{}, err
	}
	if _, ok := f.students[id]; !ok {
		return models.Student{}, appErrors.Clone(appErrors.ErrNotFound, "not found")
	}
	record.ID = id
	f.students[id] = record
	return record, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if err := f.hook(); err != nil {
		return err
	}
	if _, ok := f.students[id]; !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "not found")
	}
	delete(f.students, id)
	return nil
}

func (f *fakeStore) BulkDelete(_ context.Context, ids []string) (int, error) {
	if err := f.hook(); err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		if _, ok := f.students[id]; ok {
			delete(f.students, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeSelector struct {
	active models.BackendKind
}

func (f *fakeSelector) Active() models.BackendKind { return f.active }

func (f *fakeSelector) Fallback(context.Context, string) {
	f.active = models.BackendFirestore
}

func validCreateRequest() CreateStudentRequest {
	return CreateStudentRequest{
		FirstName:     "Asha",
		Surname:       "Patil",
		RollNumber:    "42",
		ZPRNNumber:    "ZP-1001",
		Branch:        models.BranchIT,
		Year:          models.YearSY,
		Division:      "a",
		Email:         "asha@college.edu",
		ContactNumber: "9876543210",
	}
}

func TestCreateValidatesBeforeTouchingBackend(t *testing.T) {
	store := newFakeStore(models.BackendFirestore)
	registry := NewRegistryService(&fakeSelector{active: models.BackendFirestore}, nil, nil, store)

	cases := []struct {
		name   string
		mutate func(*CreateStudentRequest)
	}{
		{"missing first name", func(r *CreateStudentRequest) { r.FirstName = "" }},
		{"bad email", func(r *CreateStudentRequest) { r.Email = "not-an-email" }},
		{"short contact number", func(r *CreateStudentRequest) { r.ContactNumber = "12345" }},
		{"non-numeric contact number", func(r *CreateStudentRequest) { r.ContactNumber = "98765x3210" }},
		{"unknown branch", func(r *CreateStudentRequest) { r.Branch = "Astrology" }},
		{"other branch without detail", func(r *CreateStudentRequest) { r.Branch = models.BranchOther }},
		{"unknown year", func(r *CreateStudentRequest) { r.Year = "5Y" }},
		{"multi letter division", func(r *CreateStudentRequest) { r.Division = "AB" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)

			_, err := registry.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
	assert.Zero(t, store.calls, "invalid payloads must never reach a backend")
}

func TestCreateNormalisesDivision(t *testing.T) {
	store := newFakeStore(models.BackendFirestore)
	registry := NewRegistryService(&fakeSelector{active: models.BackendFirestore}, nil, nil, store)

	created, err := registry.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "A", created.Division)
}

func TestCreateClearsStaleBranchOther(t *testing.T) {
	store := newFakeStore(models.BackendFirestore)
	registry := NewRegistryService(&fakeSelector{active: models.BackendFirestore}, nil, nil, store)

	req := validCreateRequest()
	req.BranchOther = "Chemical" // inconsistent with a non-Other branch

	created, err := registry.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, created.BranchOther)
}

func TestOperationsRouteToActiveBackend(t *testing.T) {
	primary := newFakeStore(models.BackendFirestore, models.Student{ID: "p-1", FirstName: "Primary", Surname: "Only"})
	secondary := newFakeStore(models.BackendMongo, models.Student{ID: "m-1", FirstName: "Mongo", Surname: "Only"})
	selector := &fakeSelector{active: models.BackendFirestore}
	registry := NewRegistryService(selector, nil, nil, primary, secondary)

	students, origin, err := registry.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BackendFirestore, origin)
	require.Len(t, students, 1)
	assert.Equal(t, "p-1", students[0].ID)

	selector.active = models.BackendMongo

	students, origin, err = registry.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BackendMongo, origin)
	require.Len(t, students, 1)
	assert.Equal(t, "m-1", students[0].ID)
}

func TestListDiscardsStaleResponse(t *testing.T) {
	selector := &fakeSelector{active: models.BackendMongo}
	secondary := newFakeStore(models.BackendMongo, models.Student{ID: "m-1", FirstName: "Mongo", Surname: "Only"})
	// The backend switches away while the list request is in flight.
	secondary.onCall = func() { selector.active = models.BackendFirestore }
	primary := newFakeStore(models.BackendFirestore)
	registry := NewRegistryService(selector, nil, nil, primary, secondary)

	_, _, err := registry.ListAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleResponse.Code, appErrors.FromError(err).Code)
}

func TestUpdateMergesPartialEdit(t *testing.T) {
	existing := models.Student{
		ID:            "p-1",
		FirstName:     "Asha",
		Surname:       "Patil",
		RollNumber:    "42",
		ZPRNNumber:    "ZP-1001",
		Branch:        models.BranchIT,
		Year:          models.YearSY,
		Division:      "A",
		Email:         "asha@college.edu",
		ContactNumber: "9876543210",
		SubmittedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	store := newFakeStore(models.BackendFirestore, existing)
	registry := NewRegistryService(&fakeSelector{active: models.BackendFirestore}, nil, nil, store)

	year := models.YearTY
	division := "b"
	updated, err := registry.Update(context.Background(), "p-1", UpdateStudentRequest{
		Year:     &year,
		Division: &division,
	})
	require.NoError(t, err)

	assert.Equal(t, models.YearTY, updated.Year)
	assert.Equal(t, "B", updated.Division)
	// untouched fields survive
	assert.Equal(t, "Asha", updated.FirstName)
	assert.Equal(t, "9876543210", updated.ContactNumber)
	assert.Equal(t, existing.SubmittedAt, updated.SubmittedAt)
}

func TestUpdateRejectsInvalidMergedRecord(t *testing.T) {
	existing := models.Student{
		ID: "p-1", FirstName: "Asha", Surname: "Patil", RollNumber: "42", ZPRNNumber: "Z1",
		Branch: models.BranchIT, Year: models.YearSY, Division: "A",
		Email: "asha@college.edu", ContactNumber: "9876543210",
	}
	store := newFakeStore(models.BackendFirestore, existing)
	registry := NewRegistryService(&fakeSelector{active: models.BackendFirestore}, nil, nil, store)

	branch := "Astrology"
	_, err := registry.Update(context.Background(), "p-1", UpdateStudentRequest{Branch: &branch})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateSurfacesBackendErrorWithoutFallback(t *testing.T) {
	selector := &fakeSelector{active: models.BackendMongo}
	secondary := newFakeStore(models.BackendMongo)
	secondary.err = appErrors.Clone(appErrors.ErrBackend, "connection refused")
	primary := newFakeStore(models.BackendFirestore)
	registry := NewRegistryService(selector, nil, nil, primary, secondary)

	year := models.YearTY
	_, err := registry.Update(context.Background(), "m-1", UpdateStudentRequest{Year: &year})
	require.Error(t, err)
	assert.True(t, appErrors.IsBackend(err))
	// CRUD failures never trigger the silent fallback reserved for login.
	assert.Equal(t, models.BackendMongo, selector.active)
	assert.Zero(t, primary.calls)
}

func TestBulkDeleteRejectsEmptyIDs(t *testing.T) {
	store := newFakeStore(models.BackendFirestore)
	registry := NewRegistryService(&fakeSelector{active: models.BackendFirestore}, nil, nil, store)

	_, err := registry.BulkDelete(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, store.calls)
}

func TestListFiltersSortsAndPaginates(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	students := []models.Student{
		{ID: "1", FirstName: "Asha", Surname: "Patil", RollNumber: "3", Branch: models.BranchIT, Year: models.YearSY, Division: "A", Email: "asha@x.edu", SubmittedAt: base.Add(3 * time.Hour)},
		{ID: "2", FirstName: "Ravi", Surname: "Shah", RollNumber: "1", Branch: models.BranchIT, Year: models.YearFY, Division: "A", Email: "ravi@x.edu", SubmittedAt: base.Add(1 * time.Hour)},
		{ID: "3", FirstName: "Meera", Surname: "Joshi", RollNumber: "2", Branch: models.BranchCivil, Year: models.YearSY, Division: "B", Email: "meera@x.edu", SubmittedAt: base.Add(2 * time.Hour)},
	}
	store := newFakeStore(models.BackendFirestore, students...)
	registry := NewRegistryService(&fakeSelector{active: models.BackendFirestore}, nil, nil, store)
	ctx := context.Background()

	t.Run("default sort is newest first", func(t *testing.T) {
		got, pagination, err := registry.List(ctx, models.StudentQuery{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "2", got[2].ID)
		assert.Equal(t, 3, pagination.TotalCount)
	})

	t.Run("filter by branch", func(t *testing.T) {
		got, _, err := registry.List(ctx, models.StudentQuery{Branch: models.BranchCivil})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "3", got[0].ID)
	})

	t.Run("division filter is case insensitive", func(t *testing.T) {
		got, _, err := registry.List(ctx, models.StudentQuery{Division: "b"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "3", got[0].ID)
	})

	t.Run("search matches name", func(t *testing.T) {
		got, _, err := registry.List(ctx, models.StudentQuery{Search: "meera"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "3", got[0].ID)
	})

	t.Run("sort by roll number ascending", func(t *testing.T) {
		got, _, err := registry.List(ctx, models.StudentQuery{SortBy: "rollNumber", SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "2", got[0].ID)
		assert.Equal(t, "1", got[2].ID)
	})

	t.Run("pagination clamps to the record set", func(t *testing.T) {
		got, pagination, err := registry.List(ctx, models.StudentQuery{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, 3, pagination.TotalCount)

		got, _, err = registry.List(ctx, models.StudentQuery{Page: 9, PageSize: 2})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
