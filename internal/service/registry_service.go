package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

// studentStore is implemented by both backend repositories. The registry is
// the only component that talks to more than one of them.
type studentStore interface {
	Kind() models.BackendKind
	Create(ctx context.Context, record models.Student) (models.Student, error)
	List(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (models.Student, error)
	Update(ctx context.Context, id string, record models.Student) (models.Student, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) (int, error)
}

type activeBackendSource interface {
	Active() models.BackendKind
}

// CreateStudentRequest holds the registration form payload.
type CreateStudentRequest struct {
	FirstName     string `json:"firstName" validate:"required"`
	MiddleName    string `json:"middleName"`
	Surname       string `json:"surname" validate:"required"`
	RollNumber    string `json:"rollNumber" validate:"required,max=15"`
	ZPRNNumber    string `json:"zprnNumber" validate:"required,max=15"`
	Branch        string `json:"branch" validate:"required"`
	BranchOther   string `json:"branchOther"`
	Year          string `json:"year" validate:"required"`
	Division      string `json:"division" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	ContactNumber string `json:"contactNumber" validate:"required,len=10,numeric"`
	Address       string `json:"address"`
}

// UpdateStudentRequest holds a partial edit: nil fields are preserved
// unchanged on the stored record.
type UpdateStudentRequest struct {
	FirstName     *string `json:"firstName"`
	MiddleName    *string `json:"middleName"`
	Surname       *string `json:"surname"`
	RollNumber    *string `json:"rollNumber" validate:"omitempty,max=15"`
	ZPRNNumber    *string `json:"zprnNumber" validate:"omitempty,max=15"`
	Branch        *string `json:"branch"`
	BranchOther   *string `json:"branchOther"`
	Year          *string `json:"year"`
	Division      *string `json:"division"`
	Email         *string `json:"email" validate:"omitempty,email"`
	ContactNumber *string `json:"contactNumber" validate:"omitempty,len=10,numeric"`
	Address       *string `json:"address"`
}

// RegistryService is the single CRUD entry point. It validates before any
// network call, delegates to whichever store the selector marks active, and
// discards responses that arrive after the active backend changed mid-flight.
type RegistryService struct {
	stores    map[models.BackendKind]studentStore
	selector  activeBackendSource
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistryService constructs the registry over the given stores.
func NewRegistryService(selector activeBackendSource, validate *validator.Validate, logger *zap.Logger, stores ...studentStore) *RegistryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[models.BackendKind]studentStore, len(stores))
	for _, store := range stores {
		m[store.Kind()] = store
	}
	return &RegistryService{stores: m, selector: selector, validator: validate, logger: logger}
}

func (s *RegistryService) activeStore() (studentStore, models.BackendKind, error) {
	kind := s.selector.Active()
	store, ok := s.stores[kind]
	if !ok {
		return nil, kind, appErrors.Clone(appErrors.ErrInternal, "no store registered for backend "+string(kind))
	}
	return store, kind, nil
}

// guardStale fails the call when the active backend changed while the request
// was in flight. A response from backend A must not be surfaced once B is
// active: the record ids are not portable between backends.
func (s *RegistryService) guardStale(origin models.BackendKind) error {
	if current := s.selector.Active(); current != origin {
		s.logger.Warn("discarding stale backend response",
			zap.String("origin", string(origin)),
			zap.String("active", string(current)))
		return appErrors.Clone(appErrors.ErrStaleResponse,
			"backend switched from "+string(origin)+" to "+string(current)+" mid-request")
	}
	return nil
}

// Create validates and submits a new registration. The backend assigns the
// id and submission timestamp.
func (s *RegistryService) Create(ctx context.Context, req CreateStudentRequest) (models.Student, error) {
	record, err := s.buildRecord(req)
	if err != nil {
		return models.Student{}, err
	}

	store, origin, err := s.activeStore()
	if err != nil {
		return models.Student{}, err
	}
	created, err := store.Create(ctx, record)
	if err != nil {
		return models.Student{}, err
	}
	if err := s.guardStale(origin); err != nil {
		return models.Student{}, err
	}
	return created, nil
}

// ListAll returns the full record set of the active backend, newest first,
// along with the backend it came from. The aggregator and exporters consume
// this directly.
func (s *RegistryService) ListAll(ctx context.Context) ([]models.Student, models.BackendKind, error) {
	store, origin, err := s.activeStore()
	if err != nil {
		return nil, origin, err
	}
	students, err := store.List(ctx)
	if err != nil {
		return nil, origin, err
	}
	if err := s.guardStale(origin); err != nil {
		return nil, origin, err
	}
	return students, origin, nil
}

// List applies the dashboard's filter, sort and pagination over the active
// backend's record set.
func (s *RegistryService) List(ctx context.Context, query models.StudentQuery) ([]models.Student, *models.Pagination, error) {
	students, _, err := s.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	filtered := filterStudents(students, query)
	sortStudents(filtered, query)

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(filtered)}

	start := (page - 1) * size
	if start >= len(filtered) {
		return []models.Student{}, pagination, nil
	}
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], pagination, nil
}

// Get fetches one record from the active backend.
func (s *RegistryService) Get(ctx context.Context, id string) (models.Student, error) {
	store, origin, err := s.activeStore()
	if err != nil {
		return models.Student{}, err
	}
	student, err := store.FindByID(ctx, id)
	if err != nil {
		return models.Student{}, err
	}
	if err := s.guardStale(origin); err != nil {
		return models.Student{}, err
	}
	return student, nil
}

// Update merges the partial edit onto the stored record. The id and the
// submission timestamp never change.
func (s *RegistryService) Update(ctx context.Context, id string, req UpdateStudentRequest) (models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Student{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	store, origin, err := s.activeStore()
	if err != nil {
		return models.Student{}, err
	}
	existing, err := store.FindByID(ctx, id)
	if err != nil {
		return models.Student{}, err
	}

	merged := mergeStudent(existing, req)
	if err := validateEnums(&merged); err != nil {
		return models.Student{}, err
	}

	updated, err := store.Update(ctx, id, merged)
	if err != nil {
		return models.Student{}, err
	}
	if err := s.guardStale(origin); err != nil {
		return models.Student{}, err
	}
	return updated, nil
}

// Delete removes one record. Deleting an id that is already gone fails with
// NOT_FOUND; there is no soft delete.
func (s *RegistryService) Delete(ctx context.Context, id string) error {
	store, origin, err := s.activeStore()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	return s.guardStale(origin)
}

// BulkDelete removes the given ids best-effort and reports how many records
// were actually removed, which may be fewer than requested.
func (s *RegistryService) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "ids must be a non-empty array")
	}
	store, origin, err := s.activeStore()
	if err != nil {
		return 0, err
	}
	count, err := store.BulkDelete(ctx, ids)
	if err != nil {
		return count, err
	}
	if err := s.guardStale(origin); err != nil {
		return count, err
	}
	return count, nil
}

func (s *RegistryService) buildRecord(req CreateStudentRequest) (models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Student{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	record := models.Student{
		FirstName:     strings.TrimSpace(req.FirstName),
		MiddleName:    strings.TrimSpace(req.MiddleName),
		Surname:       strings.TrimSpace(req.Surname),
		RollNumber:    strings.TrimSpace(req.RollNumber),
		ZPRNNumber:    strings.TrimSpace(req.ZPRNNumber),
		Branch:        strings.TrimSpace(req.Branch),
		BranchOther:   strings.TrimSpace(req.BranchOther),
		Year:          strings.TrimSpace(req.Year),
		Division:      models.NormalizeDivision(req.Division),
		Email:         strings.TrimSpace(req.Email),
		ContactNumber: strings.TrimSpace(req.ContactNumber),
		Address:       strings.TrimSpace(req.Address),
	}
	if err := validateEnums(&record); err != nil {
		return models.Student{}, err
	}
	return record, nil
}

func validateEnums(record *models.Student) error {
	if !models.ValidBranch(record.Branch) {
		return appErrors.Clone(appErrors.ErrValidation, "branch must be one of: "+strings.Join(models.Branches, ", "))
	}
	if record.Branch == models.BranchOther && record.BranchOther == "" {
		return appErrors.Clone(appErrors.ErrValidation, "branchOther is required when branch is Other")
	}
	if record.Branch != models.BranchOther {
		record.BranchOther = ""
	}
	if !models.ValidYear(record.Year) {
		return appErrors.Clone(appErrors.ErrValidation, "year must be one of: "+strings.Join(models.Years, ", "))
	}
	record.Division = models.NormalizeDivision(record.Division)
	if len(record.Division) != 1 || record.Division[0] < 'A' || record.Division[0] > 'Z' {
		return appErrors.Clone(appErrors.ErrValidation, "division must be a single letter")
	}
	return nil
}

func mergeStudent(existing models.Student, req UpdateStudentRequest) models.Student {
	merged := existing
	if req.FirstName != nil {
		merged.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.MiddleName != nil {
		merged.MiddleName = strings.TrimSpace(*req.MiddleName)
	}
	if req.Surname != nil {
		merged.Surname = strings.TrimSpace(*req.Surname)
	}
	if req.RollNumber != nil {
		merged.RollNumber = strings.TrimSpace(*req.RollNumber)
	}
	if req.ZPRNNumber != nil {
		merged.ZPRNNumber = strings.TrimSpace(*req.ZPRNNumber)
	}
	if req.Branch != nil {
		merged.Branch = strings.TrimSpace(*req.Branch)
	}
	if req.BranchOther != nil {
		merged.BranchOther = strings.TrimSpace(*req.BranchOther)
	}
	if req.Year != nil {
		merged.Year = strings.TrimSpace(*req.Year)
	}
	if req.Division != nil {
		merged.Division = models.NormalizeDivision(*req.Division)
	}
	if req.Email != nil {
		merged.Email = strings.TrimSpace(*req.Email)
	}
	if req.ContactNumber != nil {
		merged.ContactNumber = strings.TrimSpace(*req.ContactNumber)
	}
	if req.Address != nil {
		merged.Address = strings.TrimSpace(*req.Address)
	}
	return merged
}

func filterStudents(students []models.Student, query models.StudentQuery) []models.Student {
	search := strings.ToLower(strings.TrimSpace(query.Search))
	division := models.NormalizeDivision(query.Division)

	filtered := make([]models.Student, 0, len(students))
	for _, student := range students {
		if query.Branch != "" && student.Branch != query.Branch {
			continue
		}
		if query.Year != "" && student.Year != query.Year {
			continue
		}
		if division != "" && student.Division != division {
			continue
		}
		if search != "" && !matchesSearch(student, search) {
			continue
		}
		filtered = append(filtered, student)
	}
	return filtered
}

func matchesSearch(student models.Student, search string) bool {
	for _, field := range []string{student.FullName(), student.RollNumber, student.ZPRNNumber, student.Email} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func sortStudents(students []models.Student, query models.StudentQuery) {
	desc := !strings.EqualFold(query.SortOrder, "asc")
	less := func(a, b models.Student) bool {
		switch query.SortBy {
		case "name":
			return strings.ToLower(a.FullName()) < strings.ToLower(b.FullName())
		case "rollNumber":
			return a.RollNumber < b.RollNumber
		default:
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
	}
	sort.SliceStable(students, func(i, j int) bool {
		if desc {
			return less(students[j], students[i])
		}
		return less(students[i], students[j])
	})
}
