package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusforms/registry-api/internal/adapter"
	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

// restEnvelope is the response contract of the legacy Express backend.
type restEnvelope struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message,omitempty"`
	Count        int             `json:"count,omitempty"`
	DeletedCount int             `json:"deletedCount,omitempty"`
	Error        string          `json:"error,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// RestRepository is the secondary backend: the legacy Express/MongoDB API
// consumed over HTTP. It may vanish at any time; every failure maps to
// BACKEND_ERROR and the selector decides what to do about it.
type RestRepository struct {
	baseURL      string
	client       *http.Client
	probeTimeout time.Duration
	logger       *zap.Logger
}

// NewRestRepository constructs the legacy store client. baseURL points at the
// API prefix, e.g. http://localhost:5000/api.
func NewRestRepository(baseURL string, probeTimeout time.Duration, logger *zap.Logger) *RestRepository {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestRepository{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: 15 * time.Second},
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Kind identifies the backend this store serves.
func (r *RestRepository) Kind() models.BackendKind {
	return models.BackendMongo
}

// Probe answers whether the legacy backend is reachable right now. It issues
// a lightweight read against the listing endpoint with a bounded timeout and
// never returns an error: any network failure, non-success status or timeout
// counts as unreachable.
func (r *RestRepository) Probe(ctx context.Context) models.ProbeResult {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	result := models.ProbeResult{}
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, r.baseURL+"/students", nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Reachable = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !result.Reachable {
		result.Error = fmt.Sprintf("received status %d", resp.StatusCode)
	}
	return result
}

// Create submits a new record. The legacy backend assigns _id and createdAt.
func (r *RestRepository) Create(ctx context.Context, record models.Student) (models.Student, error) {
	doc := adapter.ToRest(record)
	doc.ID = ""
	doc.CreatedAt = models.FlexTime{}

	envelope, err := r.do(ctx, http.MethodPost, "/students", doc, http.StatusCreated, http.StatusOK)
	if err != nil {
		return models.Student{}, err
	}
	return r.decodeStudent(envelope.Data)
}

// List fetches every record. The legacy backend already orders by createdAt
// descending; the sort is re-applied locally in case it does not.
func (r *RestRepository) List(ctx context.Context) ([]models.Student, error) {
	envelope, err := r.do(ctx, http.MethodGet, "/students", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var docs []adapter.RestDoc
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &docs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "mongodb backend: malformed list response")
		}
	}

	students := make([]models.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, adapter.FromRest(doc))
	}
	sort.SliceStable(students, func(i, j int) bool {
		return students[i].SubmittedAt.After(students[j].SubmittedAt)
	})
	return students, nil
}

// FindByID fetches a single record.
func (r *RestRepository) FindByID(ctx context.Context, id string) (models.Student, error) {
	envelope, err := r.do(ctx, http.MethodGet, "/students/"+id, nil, http.StatusOK)
	if err != nil {
		return models.Student{}, err
	}
	return r.decodeStudent(envelope.Data)
}

// Update sends the merged record. The legacy backend rejects unknown ids
// with 404.
func (r *RestRepository) Update(ctx context.Context, id string, record models.Student) (models.Student, error) {
	doc := adapter.ToRest(record)
	doc.ID = ""
	doc.CreatedAt = models.FlexTime{}

	envelope, err := r.do(ctx, http.MethodPut, "/students/"+id, doc, http.StatusOK)
	if err != nil {
		return models.Student{}, err
	}
	return r.decodeStudent(envelope.Data)
}

// Delete removes a record.
func (r *RestRepository) Delete(ctx context.Context, id string) error {
	_, err := r.do(ctx, http.MethodDelete, "/students/"+id, nil, http.StatusOK)
	return err
}

// BulkDelete removes matching ids in one request. The backend reports how
// many documents it actually removed, which may be fewer than len(ids).
func (r *RestRepository) BulkDelete(ctx context.Context, ids []string) (int, error) {
	payload := map[string][]string{"ids": ids}
	envelope, err := r.do(ctx, http.MethodPost, "/students/bulk-delete", payload, http.StatusOK)
	if err != nil {
		return 0, err
	}
	return envelope.DeletedCount, nil
}

// Login performs the legacy admin credential check.
func (r *RestRepository) Login(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}
	resp, err := r.send(ctx, http.MethodPost, "/admin/login", payload)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "mongodb backend: login request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	default:
		return appErrors.New(appErrors.ErrBackend.Code, appErrors.ErrBackend.Status,
			fmt.Sprintf("mongodb backend: login returned status %d", resp.StatusCode))
	}
}

func (r *RestRepository) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.client.Do(req)
}

func (r *RestRepository) do(ctx context.Context, method, path string, body interface{}, wantStatus ...int) (*restEnvelope, error) {
	resp, err := r.send(ctx, method, path, body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "mongodb backend: request failed")
	}
	defer resp.Body.Close()

	var envelope restEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "mongodb backend: malformed response")
	}

	if resp.StatusCode == http.StatusNotFound {
		message := envelope.Message
		if message == "" {
			message = "student not found in mongodb backend"
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, message)
	}

	for _, status := range wantStatus {
		if resp.StatusCode == status {
			return &envelope, nil
		}
	}

	message := envelope.Message
	if message == "" {
		message = fmt.Sprintf("mongodb backend: unexpected status %d", resp.StatusCode)
	}
	r.logger.Warn("legacy backend request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return nil, appErrors.New(appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, message)
}

func (r *RestRepository) decodeStudent(raw json.RawMessage) (models.Student, error) {
	var doc adapter.RestDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.Student{}, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "mongodb backend: malformed student document")
	}
	return adapter.FromRest(doc), nil
}
