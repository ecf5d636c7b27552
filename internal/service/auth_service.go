package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
)

// AuthService verifies staff credentials and manages server-side sessions
type AuthService struct {
	users     UserRepository
	sessions  SessionStore
	ttl       time.Duration
	dummyHash []byte
	logger    *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepository, sessions SessionStore, ttl time.Duration) *AuthService {
	// compared against when the user does not exist so both paths cost one bcrypt check
	dummy, _ := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)

	return &AuthService{
		users:     users,
		sessions:  sessions,
		ttl:       ttl,
		dummyHash: dummy,
		logger:    util.Named("auth"),
	}
}

// ValidateLoginInput checks the shape of the login form
func ValidateLoginInput(username, password string) error {
	n := len(strings.TrimSpace(username))
	if n < minUsernameLen || n > maxUsernameLen {
		return invalid(ErrInvalidLogin, "username must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return invalid(ErrInvalidLogin, "password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// Login checks the credentials and opens a session. Unknown users and wrong passwords
// fail with the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	// length rules apply when accounts are created; here every mismatch looks the same
	username = strings.TrimSpace(username)
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		util.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = []byte(user.Password)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil || user == nil {
		util.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		return "", nil, ErrInvalidCredentials
	}

	id := uuid.New().String()
	sess := &models.Session{LoggedIn: true, Username: user.Username}
	if err := s.sessions.SaveSession(ctx, id, sess, s.ttl); err != nil {
		util.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("failed to save session: %w", err)
	}

	util.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info("User logged in", zap.String("username", user.Username))
	return id, sess, nil
}

// Logout destroys the session
func (s *AuthService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, id)
}

// Session returns the logged-in session behind id, or nil
func (s *AuthService) Session(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil || !sess.LoggedIn {
		return nil, nil
	}
	return sess, nil
}

// CreateUser stores a new staff account with a bcrypt hash of password
func (s *AuthService) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateLoginInput(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, Password: string(hash)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return nil, err
	}

	s.logger.Info("User created", zap.String("username", username))
	return user, nil
}

// EnsureAdmin creates the bootstrap account when it does not exist yet
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	if _, err := s.CreateUser(ctx, username, password); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	s.logger.Info("Admin user created", zap.String("username", username))
	return nil
}
