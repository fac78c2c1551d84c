// Package adapter translates between the canonical student record and the
// native document shapes of the two backends. All functions are pure and
// total: every valid native document maps to some canonical record and back.
package adapter

import (
	"time"

	"github.com/campusforms/registry-api/internal/models"
)

// AddressPlaceholder is synthesised when a record without an address crosses
// into the legacy shape, which requires one.
const AddressPlaceholder = "Not provided"

// RestDoc is the legacy Express/MongoDB document shape: a single fullName
// string, a mandatory address, and Mongo-style field names.
type RestDoc struct {
	ID        string          `json:"_id,omitempty"`
	FullName  string          `json:"fullName"`
	RollNo    string          `json:"rollNo"`
	ZPRN      string          `json:"zprn"`
	Branch    string          `json:"branch"`
	Year      string          `json:"year"`
	Division  string          `json:"division"`
	Email     string          `json:"email"`
	PhoneNo   string          `json:"phoneNo"`
	Address   string          `json:"address"`
	CreatedAt models.FlexTime `json:"createdAt,omitempty"`
}

// StoreDoc is the primary document-store shape: discrete name fields and no
// address column. Carries db tags for the sqlx-backed store.
type StoreDoc struct {
	ID          string    `db:"id"`
	FirstName   string    `db:"first_name"`
	MiddleName  string    `db:"middle_name"`
	Surname     string    `db:"surname"`
	RollNumber  string    `db:"roll_number"`
	ZPRNNumber  string    `db:"zprn_number"`
	Branch      string    `db:"branch"`
	BranchOther string    `db:"branch_other"`
	Year        string    `db:"year"`
	Division    string    `db:"division"`
	Email       string    `db:"email"`
	ContactNo   string    `db:"contact_number"`
	SubmittedAt time.Time `db:"submitted_at"`
}

// ToRest produces the legacy document for a canonical record. Name parts are
// joined by the fixed rule, the address placeholder is synthesised when the
// record has none, and a free-text branch travels as the branch value itself
// because the legacy schema has a single branch string.
func ToRest(record models.Student) RestDoc {
	branch := record.Branch
	if branch == models.BranchOther && record.BranchOther != "" {
		branch = record.BranchOther
	}
	address := record.Address
	if address == "" {
		address = AddressPlaceholder
	}
	return RestDoc{
		ID:        record.ID,
		FullName:  record.FullName(),
		RollNo:    record.RollNumber,
		ZPRN:      record.ZPRNNumber,
		Branch:    branch,
		Year:      record.Year,
		Division:  models.NormalizeDivision(record.Division),
		Email:     record.Email,
		PhoneNo:   record.ContactNumber,
		Address:   address,
		CreatedAt: models.FlexTime{Time: record.SubmittedAt},
	}
}

// FromRest reconstructs a canonical record from the legacy document. The
// fullName split is lossy for multi-word surnames; a branch value outside the
// enumeration maps back to Other with the value as the free-text companion.
func FromRest(doc RestDoc) models.Student {
	first, middle, surname := models.SplitFullName(doc.FullName)
	branch := doc.Branch
	branchOther := ""
	if !models.ValidBranch(branch) {
		branchOther = branch
		branch = models.BranchOther
	}
	return models.Student{
		ID:            doc.ID,
		FirstName:     first,
		MiddleName:    middle,
		Surname:       surname,
		RollNumber:    doc.RollNo,
		ZPRNNumber:    doc.ZPRN,
		Branch:        branch,
		BranchOther:   branchOther,
		Year:          doc.Year,
		Division:      models.NormalizeDivision(doc.Division),
		Email:         doc.Email,
		ContactNumber: doc.PhoneNo,
		Address:       doc.Address,
		SubmittedAt:   doc.CreatedAt.Time,
	}
}

// ToStore produces the primary-store document. Discrete name fields pass
// through unchanged; the address is dropped because the store has no column
// for it.
func ToStore(record models.Student) StoreDoc {
	return StoreDoc{
		ID:          record.ID,
		FirstName:   record.FirstName,
		MiddleName:  record.MiddleName,
		Surname:     record.Surname,
		RollNumber:  record.RollNumber,
		ZPRNNumber:  record.ZPRNNumber,
		Branch:      record.Branch,
		BranchOther: record.BranchOther,
		Year:        record.Year,
		Division:    models.NormalizeDivision(record.Division),
		Email:       record.Email,
		ContactNo:   record.ContactNumber,
		SubmittedAt: record.SubmittedAt,
	}
}

// FromStore reconstructs a canonical record from the primary-store document.
// Fields the store does not carry come back empty, never undefined.
func FromStore(doc StoreDoc) models.Student {
	return models.Student{
		ID:            doc.ID,
		FirstName:     doc.FirstName,
		MiddleName:    doc.MiddleName,
		Surname:       doc.Surname,
		RollNumber:    doc.RollNumber,
		ZPRNNumber:    doc.ZPRNNumber,
		Branch:        doc.Branch,
		BranchOther:   doc.BranchOther,
		Year:          doc.Year,
		Division:      models.NormalizeDivision(doc.Division),
		Email:         doc.Email,
		ContactNumber: doc.ContactNo,
		Address:       "",
		SubmittedAt:   doc.SubmittedAt,
	}
}
