package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusforms/registry-api/internal/models"
	"github.com/campusforms/registry-api/pkg/config"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

type legacyAuthenticator interface {
	Login(ctx context.Context, email, password string) error
}

type authSelector interface {
	Active() models.BackendKind
	Fallback(ctx context.Context, reason string)
}

// AuthService performs the admin credential check and manages session
// tokens. The credential check itself is a flat equality match against the
// configured account, mirroring the reference dashboards; a bcrypt hash in
// config is honoured when present.
type AuthService struct {
	admin     config.AdminConfig
	session   config.SessionConfig
	selector  authSelector
	legacy    legacyAuthenticator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs the auth service.
func NewAuthService(admin config.AdminConfig, session config.SessionConfig, selector authSelector, legacy legacyAuthenticator, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{admin: admin, session: session, selector: selector, legacy: legacy, validator: validate, logger: logger}
}

// Login authenticates against the active backend. When the mongodb backend
// fails with a backend error, the selector silently falls back to the
// primary backend, the check retries once there, and the response carries a
// warning. This fallback is deliberately confined to the login path; CRUD
// operations surface mongodb failures untouched.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	warning := ""
	backend := s.selector.Active()

	if backend == models.BackendMongo {
		err := s.legacy.Login(ctx, req.Email, req.Password)
		switch {
		case err == nil:
			return s.issueSession(req.Email, backend, "")
		case appErrors.IsBackend(err):
			s.selector.Fallback(ctx, "login against mongodb backend failed: "+err.Error())
			backend = models.BackendFirestore
			warning = "mongodb backend unreachable, logged in against firestore backend"
		default:
			return nil, err
		}
	}

	if err := s.checkConfigured(req.Email, req.Password); err != nil {
		return nil, err
	}
	return s.issueSession(req.Email, backend, warning)
}

func (s *AuthService) checkConfigured(email, password string) error {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(s.admin.Email))) == 1

	var passwordOK bool
	if strings.HasPrefix(s.admin.Password, "$2") {
		passwordOK = bcrypt.CompareHashAndPassword([]byte(s.admin.Password), []byte(password)) == nil
	} else {
		passwordOK = subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	}

	if !emailOK || !passwordOK {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	return nil
}

func (s *AuthService) issueSession(email string, backend models.BackendKind, warning string) (*models.LoginResponse, error) {
	token, expiresAt, err := s.IssueToken(email)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{
		Email:     email,
		Token:     token,
		ExpiresAt: expiresAt,
		Backend:   backend,
		Warning:   warning,
	}, nil
}

// IssueToken creates a session token whose expiry is the inactivity
// deadline. The session middleware re-issues tokens on every authenticated
// request, giving the 30-minute window its sliding behaviour.
func (s *AuthService) IssueToken(email string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.session.InactivityTimeout)

	claims := models.SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.session.Secret))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	return token, expiresAt, nil
}

// ValidateToken parses and verifies a session token.
func (s *AuthService) ValidateToken(raw string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(s.session.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired or invalid")
	}
	return claims, nil
}
