package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doormanhub/doorman-core/internal/infrastructure/logging"
)

// TokenVerifier exchanges an external identity token for a verified
// email address. Implementations must return ErrInvalidToken for any
// token that cannot be fully verified.
type TokenVerifier interface {
	VerifyExternalToken(ctx context.Context, token string) (email string, err error)
}

// Service implements the session and authorisation lifecycle:
// credential checks, session issue/validate/end, first-admin bootstrap
// and external identity login.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	verifier TokenVerifier // nil when external login is disabled
	ttl      time.Duration
	logger   *logging.Logger
}

// NewService creates an auth service. verifier may be nil, in which
// case LoginExternal always fails with ErrInvalidToken.
func NewService(users UserRepository, sessions SessionRepository, verifier TokenVerifier, ttl time.Duration, logger *logging.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		verifier: verifier,
		ttl:      ttl,
		logger:   logger.With("component", "auth"),
	}
}

// Authenticate checks an email/password pair and returns the matching
// active user. Unknown email, wrong password and inactive accounts all
// produce the same ErrInvalidCredentials, so a caller cannot probe
// which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !user.IsActive || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		// A malformed stored hash is an operator problem, not the
		// caller's. Log it, fail the login generically.
		s.logger.Error("password verification failed", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates and opens a new session in one step.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, *User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.Create(ctx, user.ID, s.ttl)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session: %w", err)
	}

	s.logger.Info("login", "user_id", user.ID, "expires_at", session.ExpiresAt)
	return session, user, nil
}

// LoginExternal verifies an identity-provider token and opens a session
// for the matching local account. The token is a black box here; the
// verifier owns its format. Accounts are never auto-created: a verified
// email without a local active account fails like a bad password.
func (s *Service) LoginExternal(ctx context.Context, token string) (*Session, *User, error) {
	if s.verifier == nil {
		return nil, nil, ErrInvalidToken
	}

	email, err := s.verifier.VerifyExternalToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, nil, err
		}
		// Provider or network trouble. Details stay in the logs.
		s.logger.Error("external token verification failed", "error", err)
		return nil, nil, ErrInvalidToken
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.sessions.Create(ctx, user.ID, s.ttl)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session: %w", err)
	}

	s.logger.Info("external login", "user_id", user.ID)
	return session, user, nil
}

// Validate resolves a bearer token to its session and user. Expired,
// missing and orphaned sessions are all reported as ErrSessionNotFound;
// callers cannot distinguish them, but expired hits are logged so
// operators can tell churn from probing.
func (s *Service) Validate(ctx context.Context, sessionID string) (*Session, *User, error) {
	if sessionID == "" {
		return nil, nil, ErrSessionNotFound
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("getting session: %w", err)
	}

	if session.Expired(time.Now().UTC()) {
		s.logger.Debug("expired session presented", "user_id", session.UserID)
		return nil, nil, ErrSessionNotFound
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("getting session user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrSessionNotFound
	}

	return session, user, nil
}

// End terminates a session. Ending an absent or already-ended session
// succeeds; logout is idempotent.
func (s *Service) End(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// Bootstrap creates the first admin account. It fails with
// ErrAdminExists whenever an active admin already exists, regardless of
// the payload, which closes the endpoint for good once setup is done.
func (s *Service) Bootstrap(ctx context.Context, email, fullName, password string) (*User, error) {
	// Fast path: skip the password hash when the door is already shut.
	// The authoritative check lives inside CreateFirstAdmin, where the
	// admin test and the insert are a single atomic statement.
	exists, err := s.users.HasActiveAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking bootstrap state: %w", err)
	}
	if exists {
		return nil, ErrAdminExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing bootstrap password: %w", err)
	}

	admin := &User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		IsAdmin:      true,
		IsActive:     true,
	}

	if err := s.users.CreateFirstAdmin(ctx, admin); err != nil {
		if errors.Is(err, ErrAdminExists) || errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("creating bootstrap admin: %w", err)
	}

	s.logger.Warn("bootstrap admin created", "user_id", admin.ID, "email", admin.Email)
	return admin, nil
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}
