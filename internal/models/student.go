package models

import (
	"strings"
	"time"
)

// Branch values accepted by the registration form.
const (
	BranchComputer    = "Computer"
	BranchIT          = "IT"
	BranchMechanical  = "Mechanical"
	BranchElectrical  = "Electrical"
	BranchElectronics = "Electronics"
	BranchCivil       = "Civil"
	BranchAIML        = "AI ML"
	BranchAIDS        = "AI DS"
	BranchOther       = "Other"
)

// Year values accepted by the registration form.
const (
	YearFY    = "FY"
	YearSY    = "SY"
	YearTY    = "TY"
	YearFinal = "Final Year"
)

// Branches lists every accepted branch value in form order.
var Branches = []string{
	BranchComputer, BranchIT, BranchMechanical, BranchElectrical,
	BranchElectronics, BranchCivil, BranchAIML, BranchAIDS, BranchOther,
}

// Years lists every accepted year value in form order.
var Years = []string{YearFY, YearSY, YearTY, YearFinal}

// Student is the canonical, backend-agnostic registration record. Each concrete
// backend stores its own native shape; translation lives in internal/adapter.
type Student struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstName"`
	MiddleName    string    `json:"middleName,omitempty"`
	Surname       string    `json:"surname"`
	RollNumber    string    `json:"rollNumber"`
	ZPRNNumber    string    `json:"zprnNumber"`
	Branch        string    `json:"branch"`
	BranchOther   string    `json:"branchOther,omitempty"`
	Year          string    `json:"year"`
	Division      string    `json:"division"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contactNumber"`
	Address       string    `json:"address,omitempty"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// FullName joins the discrete name fields with single spaces, skipping empty
// parts. Exact inverse of SplitFullName for single-token surnames.
func (s Student) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.FirstName, s.MiddleName, s.Surname} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// SplitFullName applies the fixed splitting rule: first token becomes the first
// name, the second token becomes the middle name when three or more tokens are
// present, and the remaining tokens join into the surname. The rule is lossy
// for multi-word surnames once a record has been through the fullName shape.
func SplitFullName(fullName string) (first, middle, surname string) {
	tokens := strings.Fields(fullName)
	switch len(tokens) {
	case 0:
		return "", "", ""
	case 1:
		return tokens[0], "", ""
	case 2:
		return tokens[0], "", tokens[1]
	default:
		return tokens[0], tokens[1], strings.Join(tokens[2:], " ")
	}
}

// NormalizeDivision upper-cases and trims a division value. Idempotent.
func NormalizeDivision(division string) string {
	return strings.ToUpper(strings.TrimSpace(division))
}

// ValidBranch reports whether the value is one of the accepted branches.
func ValidBranch(branch string) bool {
	for _, b := range Branches {
		if b == branch {
			return true
		}
	}
	return false
}

// ValidYear reports whether the value is one of the accepted years.
func ValidYear(year string) bool {
	for _, y := range Years {
		if y == year {
			return true
		}
	}
	return false
}

// StudentQuery encapsulates the dashboard's list parameters. Filtering, sorting
// and pagination run over the canonical record set after it has been fetched
// from the active backend.
type StudentQuery struct {
	Search    string
	Branch    string
	Year      string
	Division  string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
