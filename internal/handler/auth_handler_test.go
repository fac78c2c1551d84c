package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

type stubAuthenticator struct {
	result *models.LoginResponse
	err    error
}

func (s stubAuthenticator) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return s.result, s.err
}

func TestLoginSuccess(t *testing.T) {
	handler := NewAuthHandler(stubAuthenticator{result: &models.LoginResponse{
		Email:   "admin@college.edu",
		Token:   "token",
		Backend: models.BackendFirestore,
	}})

	recorder := postJSON(t, handler.Login, "/admin/login", `{"email": "admin@college.edu", "password": "admin123"}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	var envelope struct {
		Data models.LoginResponse   `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Token != "token" {
		t.Fatalf("token missing from response: %+v", envelope.Data)
	}
	if envelope.Meta != nil {
		t.Fatalf("no warning expected, got meta: %+v", envelope.Meta)
	}
}

func TestLoginSurfacesFallbackWarning(t *testing.T) {
	handler := NewAuthHandler(stubAuthenticator{result: &models.LoginResponse{
		Email:   "admin@college.edu",
		Token:   "token",
		Backend: models.BackendFirestore,
		Warning: "mongodb backend unreachable, logged in against firestore backend",
	}})

	recorder := postJSON(t, handler.Login, "/admin/login", `{"email": "admin@college.edu", "password": "admin123"}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Meta["warning"] == "" {
		t.Fatalf("warning missing from meta: %+v", envelope.Meta)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(stubAuthenticator{err: appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")})

	recorder := postJSON(t, handler.Login, "/admin/login", `{"email": "admin@college.edu", "password": "wrong"}`)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestLoginMalformedPayload(t *testing.T) {
	handler := NewAuthHandler(stubAuthenticator{})

	recorder := postJSON(t, handler.Login, "/admin/login", `{"email": `)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
