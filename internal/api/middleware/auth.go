package middleware

import (
	"net/http"
	"strings"

	"github.com/craftlinkhq/craftlink/internal/api/response"
	"github.com/craftlinkhq/craftlink/internal/auth"
	"github.com/google/uuid"
)

// Auth provides authentication and role-checking middleware backed by the
// JWT issuer.
type Auth struct {
	issuer *auth.Issuer
}

// NewAuth creates a new Auth middleware.
func NewAuth(issuer *auth.Issuer) *Auth {
	return &Auth{issuer: issuer}
}

// Authenticate validates the Bearer access token and sets the principal id
// and role in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Failure(w, http.StatusUnauthorized, "Missing or invalid Authorization header.")
			return
		}

		claims, err := a.issuer.ParseAccess(token)
		if err != nil {
			response.Failure(w, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}

		principalID, err := uuid.Parse(claims.Subject)
		if err != nil {
			response.Failure(w, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}

		ctx := SetPrincipalID(r.Context(), principalID)
		ctx = setRole(ctx, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns middleware that checks whether the authenticated
// principal has the specified role.
func (a *Auth) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if getRole(r) != role {
				response.Failure(w, http.StatusForbidden, "Insufficient permissions.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return ""
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
