package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"penguinims.org/internal/audit"
	"penguinims.org/internal/obs"
	"penguinims.org/internal/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireSuperAdmin(w, r); !ok {
		return
	}
	profiles, err := a.users.List(r.Context())
	if err != nil {
		handleUsersError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(profiles),
		"users": profiles,
	})
}

func (a *API) handleUsersScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	switch path {
	case "":
		a.handleUsersCollection(w, r)
	case "login":
		a.handleLogin(w, r, false)
	case "super-admin/login":
		a.handleLogin(w, r, true)
	case "create":
		a.handleCreateUser(w, r)
	case "change-password":
		a.handleChangePassword(w, r)
	default:
		if strings.Contains(path, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.handleUserResource(w, r, path)
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request, superAdminOnly bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var (
		session users.Session
		err     error
		event   = "users.login"
	)
	if superAdminOnly {
		event = "users.super_admin_login"
		session, err = a.users.SuperAdminLogin(r.Context(), req.Email, req.Password)
	} else {
		session, err = a.users.Login(r.Context(), req.Email, req.Password)
	}
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) || errors.Is(err, users.ErrAccountDeactivated) {
			obs.AuthFailure("login_rejected")
		}
		handleUsersError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"user_id":    session.User.ID,
		"role":       session.User.Role,
		"expires_at": session.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := a.requireSuperAdmin(w, r)
	if !ok {
		return
	}
	var req users.CreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := a.users.Create(r.Context(), caller, req)
	if err != nil {
		handleUsersError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.create", map[string]any{
		"user_id":  profile.ID,
		"username": profile.Username,
		"role":     profile.Role,
	})
	w.Header().Set("Location", fmt.Sprintf("/api/users/%s", profile.ID))
	writeJSON(w, http.StatusCreated, profile)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	caller, ok := users.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.users.ChangePassword(r.Context(), caller, req.CurrentPassword, req.NewPassword); err != nil {
		handleUsersError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.password_changed", map[string]any{
		"user_id": caller.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "password changed successfully",
	})
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request, id string) {
	caller, ok := a.requireSuperAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		profile, err := a.users.Get(r.Context(), id)
		if err != nil {
			handleUsersError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var req users.UpdateInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		profile, err := a.users.Update(r.Context(), caller, id, req)
		if err != nil {
			handleUsersError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "users.update", map[string]any{
			"user_id": profile.ID,
		})
		writeJSON(w, http.StatusOK, profile)
	case http.MethodDelete:
		if err := a.users.Deactivate(r.Context(), caller, id); err != nil {
			handleUsersError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "users.deactivate", map[string]any{
			"user_id": id,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "user deactivated successfully",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func handleUsersError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, users.ErrInvalidInput),
		errors.Is(err, users.ErrInvalidRole),
		errors.Is(err, users.ErrDuplicateIdentity):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials),
		errors.Is(err, users.ErrAccountDeactivated),
		errors.Is(err, users.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, users.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, users.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
