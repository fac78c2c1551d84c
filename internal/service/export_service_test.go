package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

func exportFixture() []models.Student {
	return []models.Student{
		{
			FirstName: "Asha", Surname: "Patil", RollNumber: "42", ZPRNNumber: "ZP-1001",
			Branch: models.BranchIT, Year: models.YearSY, Division: "A",
			Email: "asha@college.edu", ContactNumber: "9876543210",
			SubmittedAt: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			FirstName: "Ravi", Surname: "Shah", RollNumber: "43", ZPRNNumber: "ZP-1002",
			Branch: models.BranchOther, BranchOther: "Chemical", Year: models.YearFY, Division: "B",
			Email: "ravi@college.edu", ContactNumber: "9876543211",
		},
	}
}

func TestExportCSV(t *testing.T) {
	roster := &fakeRoster{students: exportFixture(), origin: models.BackendFirestore}
	svc := NewExportService(roster, nil)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }

	filename, payload, err := svc.CSV(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "students_data_2026-06-01.csv", filename)
	content := string(payload)
	assert.Contains(t, content, "First Name,Middle Name,Surname")
	assert.Contains(t, content, "Asha")
	assert.Contains(t, content, "2026-01-15T10:30:00Z")
	// Other branches export their free-text value, not the literal "Other".
	assert.Contains(t, content, "Chemical")
	assert.Equal(t, 3, strings.Count(content, "\n"), "header plus one line per record")
}

func TestExportPDF(t *testing.T) {
	roster := &fakeRoster{students: exportFixture(), origin: models.BackendFirestore}
	svc := NewExportService(roster, nil)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }

	filename, payload, err := svc.PDF(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "students_data_2026-06-01.pdf", filename)
	require.NotEmpty(t, payload)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportPropagatesRosterError(t *testing.T) {
	roster := &fakeRoster{err: appErrors.Clone(appErrors.ErrBackend, "down")}
	svc := NewExportService(roster, nil)

	_, _, err := svc.CSV(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.IsBackend(err))
}
