package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doormanhub/doorman-core/internal/auth"
)

// listResponse is the common envelope for paginated collections.
type listResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// handleListUsers returns a page of user accounts.
// GET /api/v1/users
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, total, err := s.users.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		writeInternalError(w, "listing users failed")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:  users,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// userRequest is the create/update payload for a user account.
type userRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"` // create only; empty means external-login-only account
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// handleCreateUser creates a user account.
// POST /api/v1/users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeBadRequest(w, "valid email is required")
		return
	}
	if req.Password != "" && len(req.Password) < minPasswordLength {
		writeBadRequest(w, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}

	user := &auth.User{
		Email:    req.Email,
		FullName: req.FullName,
		IsAdmin:  req.IsAdmin,
		IsActive: req.IsActive,
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			s.logger.Error("hashing password failed", "error", err)
			writeInternalError(w, "creating user failed")
			return
		}
		user.PasswordHash = hash
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("creating user failed", "error", err)
		writeInternalError(w, "creating user failed")
		return
	}

	s.auditAdmin(r, fmt.Sprintf("user %s created", user.Email))
	writeJSON(w, http.StatusCreated, user)
}

// handleUpdateUser replaces a user's profile fields wholesale.
// PUT /api/v1/users/{id}
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeBadRequest(w, "valid email is required")
		return
	}

	user := &auth.User{
		ID:       chi.URLParam(r, "id"),
		Email:    req.Email,
		FullName: req.FullName,
		IsAdmin:  req.IsAdmin,
		IsActive: req.IsActive,
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			writeNotFound(w, "user not found")
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already registered")
		default:
			s.logger.Error("updating user failed", "user_id", user.ID, "error", err)
			writeInternalError(w, "updating user failed")
		}
		return
	}

	s.auditAdmin(r, fmt.Sprintf("user %s updated", user.Email))
	writeJSON(w, http.StatusOK, user)
}

// removeRequest is the bulk-remove payload shared by the collections.
type removeRequest struct {
	IDs []string `json:"ids"`
}

// removedResponse reports how many rows a bulk delete removed.
type removedResponse struct {
	Removed int64 `json:"removed"`
}

// handleRemoveUsers deletes the listed user accounts. Absent IDs are
// ignored.
// POST /api/v1/users/remove
func (s *Server) handleRemoveUsers(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	count, err := s.users.Remove(r.Context(), req.IDs...)
	if err != nil {
		s.logger.Error("removing users failed", "error", err)
		writeInternalError(w, "removing users failed")
		return
	}

	s.auditAdmin(r, fmt.Sprintf("%d users removed", count))
	writeJSON(w, http.StatusOK, removedResponse{Removed: count})
}

// handleRemoveAllUsers deletes every user account.
// DELETE /api/v1/users
func (s *Server) handleRemoveAllUsers(w http.ResponseWriter, r *http.Request) {
	count, err := s.users.RemoveAll(r.Context())
	if err != nil {
		s.logger.Error("removing all users failed", "error", err)
		writeInternalError(w, "removing users failed")
		return
	}

	s.auditAdmin(r, fmt.Sprintf("all users removed (%d)", count))
	writeJSON(w, http.StatusOK, removedResponse{Removed: count})
}

// auditAdmin records an info event attributed to the calling admin.
func (s *Server) auditAdmin(r *http.Request, text string) {
	id := callerIdentity(r.Context())
	if id == nil {
		return
	}
	s.recorder.Info(r.Context(), id.user.ID, clientIP(r), text)
}
