package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
	"github.com/campusforms/registry-api/pkg/export"
)

var exportHeaders = []string{
	"First Name", "Middle Name", "Surname", "Roll Number", "ZPRN",
	"Branch", "Year", "Division", "Email", "Contact Number", "Submitted At",
}

// ExportService renders the active backend's roster as a downloadable file,
// the same columns the dashboard table shows.
type ExportService struct {
	roster rosterSource
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger

	now func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(roster rosterSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		roster: roster,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
		now:    time.Now,
	}
}

// CSV renders the roster as CSV. The filename carries the export date,
// matching the dashboard's download naming.
func (s *ExportService) CSV(ctx context.Context) (string, []byte, error) {
	dataset, err := s.dataset(ctx)
	if err != nil {
		return "", nil, err
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return fmt.Sprintf("students_data_%s.csv", s.now().UTC().Format("2006-01-02")), payload, nil
}

// PDF renders the roster as a tabular PDF.
func (s *ExportService) PDF(ctx context.Context) (string, []byte, error) {
	dataset, err := s.dataset(ctx)
	if err != nil {
		return "", nil, err
	}
	payload, err := s.pdf.Render(dataset, "Registered Students")
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return fmt.Sprintf("students_data_%s.pdf", s.now().UTC().Format("2006-01-02")), payload, nil
}

func (s *ExportService) dataset(ctx context.Context) (export.Dataset, error) {
	students, _, err := s.roster.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, err
	}

	rows := make([][]string, 0, len(students))
	for _, student := range students {
		rows = append(rows, exportRow(student))
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}, nil
}

func exportRow(student models.Student) []string {
	branch := student.Branch
	if branch == models.BranchOther && student.BranchOther != "" {
		branch = student.BranchOther
	}
	submitted := ""
	if !student.SubmittedAt.IsZero() {
		submitted = student.SubmittedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		student.FirstName,
		student.MiddleName,
		student.Surname,
		student.RollNumber,
		student.ZPRNNumber,
		branch,
		student.Year,
		student.Division,
		student.Email,
		student.ContactNumber,
		submitted,
	}
}
