package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusforms/registry-api/internal/models"
	"github.com/campusforms/registry-api/pkg/config"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

type fakeLegacyAuth struct {
	err   error
	calls int
}

func (f *fakeLegacyAuth) Login(context.Context, string, string) error {
	f.calls++
	return f.err
}

func testAuthConfig() (config.AdminConfig, config.SessionConfig) {
	return config.AdminConfig{Email: "admin@college.edu", Password: "admin123"},
		config.SessionConfig{Secret: "test-secret", InactivityTimeout: 30 * time.Minute}
}

func TestLoginAgainstFirestore(t *testing.T) {
	admin, session := testAuthConfig()
	legacy := &fakeLegacyAuth{}
	svc := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, legacy, nil, nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "admin123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, models.BackendFirestore, result.Backend)
	assert.Empty(t, result.Warning)
	assert.Zero(t, legacy.calls)
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	admin, session := testAuthConfig()
	svc := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, &fakeLegacyAuth{}, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ADMIN@College.EDU", Password: "admin123"})
	assert.NoError(t, err)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	admin, session := testAuthConfig()
	svc := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, &fakeLegacyAuth{}, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginValidatesPayload(t *testing.T) {
	admin, session := testAuthConfig()
	svc := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, &fakeLegacyAuth{}, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginHonoursBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	admin, session := testAuthConfig()
	admin.Password = string(hash)
	svc := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, &fakeLegacyAuth{}, nil, nil)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "s3cret"})
	assert.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "wrong"})
	assert.Error(t, err)
}

func TestLoginAgainstMongo(t *testing.T) {
	admin, session := testAuthConfig()
	legacy := &fakeLegacyAuth{}
	selector := &fakeSelector{active: models.BackendMongo}
	svc := NewAuthService(admin, session, selector, legacy, nil, nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, models.BackendMongo, result.Backend)
	assert.Equal(t, 1, legacy.calls)
	assert.Equal(t, models.BackendMongo, selector.active, "a successful mongodb login must not move the selector")
}

func TestLoginFallsBackOnce(t *testing.T) {
	admin, session := testAuthConfig()
	legacy := &fakeLegacyAuth{err: appErrors.Clone(appErrors.ErrBackend, "connection refused")}
	selector := &fakeSelector{active: models.BackendMongo}
	svc := NewAuthService(admin, session, selector, legacy, nil, nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "admin123"})
	require.NoError(t, err)

	assert.Equal(t, 1, legacy.calls, "the legacy backend is tried exactly once")
	assert.Equal(t, models.BackendFirestore, selector.active, "the fallback persists on the selector")
	assert.Equal(t, models.BackendFirestore, result.Backend)
	assert.NotEmpty(t, result.Warning)
}

func TestLoginDoesNotFallBackOnBadMongoCredentials(t *testing.T) {
	admin, session := testAuthConfig()
	legacy := &fakeLegacyAuth{err: appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")}
	selector := &fakeSelector{active: models.BackendMongo}
	svc := NewAuthService(admin, session, selector, legacy, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.BackendMongo, selector.active, "rejected credentials are not a backend failure")
}

func TestIssueAndValidateToken(t *testing.T) {
	admin, session := testAuthConfig()
	svc := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, &fakeLegacyAuth{}, nil, nil)

	token, expiresAt, err := svc.IssueToken("admin@college.edu")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(session.InactivityTimeout), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@college.edu", claims.Email)
}

func TestValidateTokenRejectsTamperedToken(t *testing.T) {
	admin, session := testAuthConfig()
	svc := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, &fakeLegacyAuth{}, nil, nil)

	token, _, err := svc.IssueToken("admin@college.edu")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	admin, session := testAuthConfig()
	svc := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, &fakeLegacyAuth{}, nil, nil)
	token, _, err := svc.IssueToken("admin@college.edu")
	require.NoError(t, err)

	session.Secret = "other-secret"
	other := NewAuthService(admin, session, &fakeSelector{active: models.BackendFirestore}, &fakeLegacyAuth{}, nil, nil)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
