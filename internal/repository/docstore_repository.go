package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusforms/registry-api/internal/adapter"
	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

const studentColumns = "id, first_name, middle_name, surname, roll_number, zprn_number, branch, branch_other, year, division, email, contact_number, submitted_at"

// DocstoreRepository is the primary backend: a Postgres-backed document store
// holding the discrete-name-field shape. It is always expected to be
// reachable; failures surface as BACKEND_ERROR like any other store.
type DocstoreRepository struct {
	db *sqlx.DB
}

// NewDocstoreRepository constructs the primary store.
func NewDocstoreRepository(db *sqlx.DB) *DocstoreRepository {
	return &DocstoreRepository{db: db}
}

// Kind identifies the backend this store serves.
func (r *DocstoreRepository) Kind() models.BackendKind {
	return models.BackendFirestore
}

// Create inserts a new record. The store assigns the id and submission time;
// anything the caller set on those fields is ignored.
func (r *DocstoreRepository) Create(ctx context.Context, record models.Student) (models.Student, error) {
	doc := adapter.ToStore(record)
	doc.ID = uuid.NewString()
	doc.SubmittedAt = time.Now().UTC()

	const query = `INSERT INTO students (id, first_name, middle_name, surname, roll_number, zprn_number, branch, branch_other, year, division, email, contact_number, submitted_at)
        VALUES (:id, :first_name, :middle_name, :surname, :roll_number, :zprn_number, :branch, :branch_other, :year, :division, :email, :contact_number, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return models.Student{}, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "firestore backend: create failed")
	}
	return adapter.FromStore(doc), nil
}

// List returns every record ordered by submission time, newest first.
func (r *DocstoreRepository) List(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY submitted_at DESC", studentColumns)
	var docs []adapter.StoreDoc
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "firestore backend: list failed")
	}
	students := make([]models.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, adapter.FromStore(doc))
	}
	return students, nil
}

// FindByID fetches a single record.
func (r *DocstoreRepository) FindByID(ctx context.Context, id string) (models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var doc adapter.StoreDoc
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Student{}, appErrors.Clone(appErrors.ErrNotFound, "student not found in firestore backend")
		}
		return models.Student{}, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "firestore backend: fetch failed")
	}
	return adapter.FromStore(doc), nil
}

// Update replaces the mutable fields of an existing record. The id and
// submission time never change.
func (r *DocstoreRepository) Update(ctx context.Context, id string, record models.Student) (models.Student, error) {
	doc := adapter.ToStore(record)
	doc.ID = id

	const query = `UPDATE students SET first_name = :first_name, middle_name = :middle_name, surname = :surname,
        roll_number = :roll_number, zprn_number = :zprn_number, branch = :branch, branch_other = :branch_other,
        year = :year, division = :division, email = :email, contact_number = :contact_number
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, doc)
	if err != nil {
		return models.Student{}, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "firestore backend: update failed")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return models.Student{}, appErrors.Clone(appErrors.ErrNotFound, "student not found in firestore backend")
	}
	return r.FindByID(ctx, id)
}

// Delete removes a record. Deleting an absent id fails with NOT_FOUND, so a
// retried delete is not idempotent.
func (r *DocstoreRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "firestore backend: delete failed")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found in firestore backend")
	}
	return nil
}

// BulkDelete issues one delete per id concurrently and joins the results.
// A single failure fails the join, but deletes that already landed are not
// rolled back; the returned count reports what actually succeeded.
func (r *DocstoreRepository) BulkDelete(ctx context.Context, ids []string) (int, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		deleted  int
		firstErr error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := r.Delete(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			deleted++
		}(id)
	}
	wg.Wait()

	if firstErr != nil {
		return deleted, appErrors.Wrap(firstErr, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status,
			fmt.Sprintf("firestore backend: bulk delete incomplete, %d of %d removed", deleted, len(ids)))
	}
	return deleted, nil
}
