package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"runlog/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPassword indicates the provided password was incorrect.
	ErrInvalidPassword = errors.New("incorrect password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
)

const sessionTTL = 24 * time.Hour

// AuthService handles the single-user password login and sessions. The
// site has one owner; the password hash comes from configuration, there is
// no user table.
type AuthService struct {
	sessions     domain.SessionRepository
	passwordHash string
	now          func() time.Time
}

// NewAuthService creates an AuthService checking against the given bcrypt
// password hash.
func NewAuthService(sessions domain.SessionRepository, passwordHash string) *AuthService {
	return &AuthService{sessions: sessions, passwordHash: passwordHash, now: time.Now}
}

// Login verifies the password and creates a session, returning its token.
func (s *AuthService) Login(ctx context.Context, password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	return s.createSession(ctx)
}

// LoginVerified creates a session for an owner already authenticated
// upstream (SSO callback).
func (s *AuthService) LoginVerified(ctx context.Context) (string, error) {
	return s.createSession(ctx)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// ValidateSession checks that a session token exists and has not expired.
func (s *AuthService) ValidateSession(ctx context.Context, token string) error {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return ErrSessionExpired
	}
	return nil
}

func (s *AuthService) createSession(ctx context.Context) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, token, s.now().Add(sessionTTL)); err != nil {
		return "", err
	}
	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
