package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/doormanhub/doorman-core/internal/audit"
	"github.com/doormanhub/doorman-core/internal/auth"
)

// sessionCookieName is the cookie carrying the session token.
const sessionCookieName = "sid"

// minPasswordLength applies to bootstrap and user creation alike.
const minPasswordLength = 8

// loginResponse is returned by login, oauth login and session lookup.
// SIDExpires is unix seconds, matching what wall-panel clients store.
type loginResponse struct {
	Email      string `json:"email"`
	SID        string `json:"sid"`
	SIDExpires int64  `json:"sid_expires"`
}

// setSessionCookie mirrors the session token into an HTTP-only cookie,
// so browser clients authenticate without handling the token in JS.
func setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleBootstrap creates the first admin account.
// POST /api/v1/auth/bootstrap
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeBadRequest(w, "valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}

	admin, err := s.auth.Bootstrap(r.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAdminExists) {
			writeConflict(w, "system is already bootstrapped")
			return
		}
		s.logger.Error("bootstrap failed", "error", err)
		writeInternalError(w, "bootstrap failed")
		return
	}

	s.recorder.Info(r.Context(), admin.ID, clientIP(r),
		fmt.Sprintf("bootstrap admin %s created", admin.Email))
	writeJSON(w, http.StatusCreated, admin)
}

// handleLogin authenticates an email/password pair and opens a session.
// POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	session, user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.recorder.Error(r.Context(), audit.SystemUser, clientIP(r),
				fmt.Sprintf("failed login for %s", req.Email))
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.recorder.Info(r.Context(), user.ID, clientIP(r),
		fmt.Sprintf("user %s logged in", user.Email))

	setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, loginResponse{
		Email:      user.Email,
		SID:        session.ID,
		SIDExpires: session.ExpiresAt.Unix(),
	})
}

// handleLoginOAuth exchanges an external identity token for a session.
// POST /api/v1/auth/login/oauth
func (s *Server) handleLoginOAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}

	session, user, err := s.auth.LoginExternal(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrInvalidCredentials) {
			s.recorder.Error(r.Context(), audit.SystemUser, clientIP(r), "failed external login")
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("external login failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.recorder.Info(r.Context(), user.ID, clientIP(r),
		fmt.Sprintf("user %s logged in (external)", user.Email))

	setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, loginResponse{
		Email:      user.Email,
		SID:        session.ID,
		SIDExpires: session.ExpiresAt.Unix(),
	})
}

// handleSession echoes the caller's current session. Clients restoring
// from a stored token use this to confirm it is still valid.
// POST /api/v1/auth/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r.Context())

	writeJSON(w, http.StatusOK, loginResponse{
		Email:      id.user.Email,
		SID:        id.session.ID,
		SIDExpires: id.session.ExpiresAt.Unix(),
	})
}

// handleLogout ends the caller's session. Logging out with no session,
// or an already-ended one, succeeds.
// POST /api/v1/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := s.resolveSessionToken(r)
	if err := s.auth.End(r.Context(), token); err != nil {
		s.logger.Error("logout failed", "error", err)
		writeInternalError(w, "logout failed")
		return
	}

	if id := callerIdentity(r.Context()); id != nil {
		s.recorder.Info(r.Context(), id.user.ID, clientIP(r),
			fmt.Sprintf("user %s logged out", id.user.Email))
	}

	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
