package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusforms/registry-api/internal/service"
	"github.com/campusforms/registry-api/pkg/config"
)

func newSessionRouter(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := service.NewAuthService(
		config.AdminConfig{Email: "admin@college.edu", Password: "admin123"},
		config.SessionConfig{Secret: "test-secret", InactivityTimeout: 30 * time.Minute},
		nil, nil, nil, nil,
	)

	r := gin.New()
	r.GET("/protected", Session(auth), func(c *gin.Context) {
		claims := SessionClaims(c)
		if claims == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "claims missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": claims.Email})
	})
	return r, auth
}

func TestSessionRejectsMissingHeader(t *testing.T) {
	r, _ := newSessionRouter(t)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestSessionRejectsMalformedHeader(t *testing.T) {
	r, _ := newSessionRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestSessionRejectsInvalidToken(t *testing.T) {
	r, _ := newSessionRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestSessionAcceptsValidTokenAndSlidesWindow(t *testing.T) {
	r, auth := newSessionRouter(t)

	token, _, err := auth.IssueToken("admin@college.edu")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", recorder.Code, recorder.Body.String())
	}

	renewed := recorder.Header().Get(SessionTokenHeader)
	if renewed == "" {
		t.Fatal("expected a re-issued session token header")
	}
	if _, err := auth.ValidateToken(renewed); err != nil {
		t.Fatalf("re-issued token must validate: %v", err)
	}
}
