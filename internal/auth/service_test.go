package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/doormanhub/doorman-core/internal/infrastructure/logging"
)

// stubVerifier is a TokenVerifier with canned responses.
type stubVerifier struct {
	email string
	err   error
}

func (v *stubVerifier) VerifyExternalToken(_ context.Context, _ string) (string, error) {
	return v.email, v.err
}

func newTestService(t *testing.T, verifier TokenVerifier) (*Service, *SQLiteUserRepository) {
	t.Helper()
	db := testDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)
	return NewService(users, sessions, verifier, time.Hour, logging.Default()), users
}

func TestService_Authenticate(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	hash, _ := HashPassword("correct-horse")
	active := &User{Email: "user@example.com", PasswordHash: hash, IsActive: true}
	if err := users.Create(ctx, active); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	inactive := &User{Email: "gone@example.com", PasswordHash: hash, IsActive: false}
	if err := users.Create(ctx, inactive); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	passwordless := &User{Email: "oauth@example.com", IsActive: true}
	if err := users.Create(ctx, passwordless); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, "user@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if user.ID != active.ID {
			t.Errorf("user ID = %q, want %q", user.ID, active.ID)
		}
	})

	// Unknown email, wrong password, inactive account and a
	// password-less account must be indistinguishable to the caller.
	failures := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "correct-horse"},
		{"wrong password", "user@example.com", "wrong"},
		{"inactive account", "gone@example.com", "correct-horse"},
		{"password-less account", "oauth@example.com", "anything"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestService_Login(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	hash, _ := HashPassword("secret")
	user := &User{Email: "login@example.com", PasswordHash: hash, IsActive: true}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	session, got, err := svc.Login(ctx, "login@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("user ID = %q, want %q", got.ID, user.ID)
	}
	if session.UserID != user.ID {
		t.Errorf("session UserID = %q, want %q", session.UserID, user.ID)
	}

	// The issued token validates straight back to the same identity
	vs, vu, err := svc.Validate(ctx, session.ID)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if vs.ID != session.ID || vu.ID != user.ID {
		t.Error("Validate() should return the issued session and user")
	}
}

func TestService_Validate_Failures(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	hash, _ := HashPassword("secret")
	user := &User{Email: "val@example.com", PasswordHash: hash, IsActive: true}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("empty token", func(t *testing.T) {
		_, _, err := svc.Validate(ctx, "")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		_, _, err := svc.Validate(ctx, "not-a-real-token")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		db := testDB(t)
		u := seedTestUser(t, db, "exp-val@example.com", false)
		sessions := NewSessionRepository(db)
		expired, err := sessions.Create(ctx, u.ID, -time.Minute)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		s := NewService(NewUserRepository(db), sessions, nil, time.Hour, logging.Default())
		_, _, err = s.Validate(ctx, expired.ID)
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("deactivated user", func(t *testing.T) {
		session, _, err := svc.Login(ctx, "val@example.com", "secret")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		user.IsActive = false
		if err := users.Update(ctx, user); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		t.Cleanup(func() {
			user.IsActive = true
			_ = users.Update(ctx, user)
		})

		_, _, err = svc.Validate(ctx, session.ID)
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestService_End(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	hash, _ := HashPassword("secret")
	user := &User{Email: "end@example.com", PasswordHash: hash, IsActive: true}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	session, _, err := svc.Login(ctx, "end@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.End(ctx, session.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	if _, _, err := svc.Validate(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ended session should not validate, got err = %v", err)
	}

	// Ending again, or ending garbage, is fine
	if err := svc.End(ctx, session.ID); err != nil {
		t.Errorf("second End() error = %v, want nil", err)
	}
	if err := svc.End(ctx, ""); err != nil {
		t.Errorf("End(\"\") error = %v, want nil", err)
	}
}

func TestService_Bootstrap(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	admin, err := svc.Bootstrap(ctx, "first@example.com", "First Admin", "bootstrap-pw")
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if !admin.IsAdmin || !admin.IsActive {
		t.Error("bootstrap account should be an active admin")
	}

	// The freshly bootstrapped admin can log in
	if _, _, err := svc.Login(ctx, "first@example.com", "bootstrap-pw"); err != nil {
		t.Errorf("bootstrap admin login error = %v", err)
	}

	// A second bootstrap fails regardless of payload
	if _, err := svc.Bootstrap(ctx, "other@example.com", "Other", "other-pw"); !errors.Is(err, ErrAdminExists) {
		t.Errorf("error = %v, want ErrAdminExists", err)
	}

	// Deactivating the only admin reopens the gate
	admin.IsActive = false
	if err := users.Update(ctx, admin); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := svc.Bootstrap(ctx, "second@example.com", "Second Admin", "pw"); err != nil {
		t.Errorf("Bootstrap() after admin deactivation error = %v", err)
	}
}

// Racing bootstrap calls must produce exactly one admin. The admin
// check and the insert are a single statement in the repository, so
// there is no window for a second caller to slip through.
func TestService_BootstrapRace(t *testing.T) {
	db := testDB(t)
	db.SetMaxOpenConns(1) // same single-writer pool the binary runs with

	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)
	svc := NewService(users, sessions, nil, time.Hour, logging.Default())
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Bootstrap(ctx, fmt.Sprintf("admin%d@example.com", n), "Admin", "bootstrap-pw")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var created int
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrAdminExists):
		default:
			t.Errorf("Bootstrap() error = %v", err)
		}
	}
	if created != 1 {
		t.Errorf("bootstrap succeeded %d times, want 1", created)
	}

	if count, _ := users.Count(ctx); count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestService_LoginExternal(t *testing.T) {
	ctx := context.Background()

	t.Run("verified email with local account", func(t *testing.T) {
		svc, users := newTestService(t, &stubVerifier{email: "ext@example.com"})
		user := &User{Email: "ext@example.com", IsActive: true}
		if err := users.Create(ctx, user); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		session, got, err := svc.LoginExternal(ctx, "provider-token")
		if err != nil {
			t.Fatalf("LoginExternal() error = %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("user ID = %q, want %q", got.ID, user.ID)
		}
		if session.UserID != user.ID {
			t.Errorf("session UserID = %q, want %q", session.UserID, user.ID)
		}
	})

	t.Run("verified email without local account", func(t *testing.T) {
		svc, _ := newTestService(t, &stubVerifier{email: "stranger@example.com"})
		_, _, err := svc.LoginExternal(ctx, "provider-token")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		svc, _ := newTestService(t, &stubVerifier{err: ErrInvalidToken})
		_, _, err := svc.LoginExternal(ctx, "garbage")
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("verifier failure is masked", func(t *testing.T) {
		svc, _ := newTestService(t, &stubVerifier{err: errors.New("provider unreachable")})
		_, _, err := svc.LoginExternal(ctx, "token")
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("external login disabled", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		_, _, err := svc.LoginExternal(ctx, "token")
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})
}
