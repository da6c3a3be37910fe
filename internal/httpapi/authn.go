package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"penguinims.org/internal/auth"
	"penguinims.org/internal/obs"
	"penguinims.org/internal/users"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/",
	"/healthz",
	"/readyz",
	"/metrics",
	"/api/users/login",
	"/api/users/super-admin/login",
}

// withAuth enforces the authentication check on every non-public route:
// bearer token extraction, token verification, then a live user load so that
// role changes and deactivation take effect immediately. The resolved user is
// attached to the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.AuthFailure("missing_token")
			writeError(w, r, http.StatusUnauthorized, "access denied: no token provided")
			return
		}

		user, err := a.users.AuthenticateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				obs.AuthFailure("token_expired")
				writeError(w, r, http.StatusUnauthorized, "token expired")
			case errors.Is(err, auth.ErrInvalidToken):
				obs.AuthFailure("invalid_token")
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			case errors.Is(err, users.ErrUnauthenticated):
				obs.AuthFailure("unknown_subject")
				writeError(w, r, http.StatusUnauthorized, "invalid token: user not found")
			case errors.Is(err, users.ErrAccountDeactivated):
				obs.AuthFailure("account_deactivated")
				writeError(w, r, http.StatusUnauthorized, "user account is deactivated")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(users.ContextWithUser(r.Context(), user)))
	})
}

// requireSuperAdmin applies the authorization check on management routes.
func (a *API) requireSuperAdmin(w http.ResponseWriter, r *http.Request) (*users.User, bool) {
	caller, ok := users.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if caller.Role != users.RoleSuperAdmin {
		obs.AuthFailure("forbidden")
		writeError(w, r, http.StatusForbidden, "access denied: super admin privileges required")
		return nil, false
	}
	return caller, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
