package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	principalIDKey contextKey = "principal_id"
	roleKey        contextKey = "role"
)

func SetPrincipalID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, principalIDKey, id)
}

func GetPrincipalID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(principalIDKey).(uuid.UUID)
	return id, ok
}

func setRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

func getRole(r *http.Request) string {
	role, _ := r.Context().Value(roleKey).(string)
	return role
}

// SetRoleForTest exposes role injection for tests.
func SetRoleForTest(ctx context.Context, role string) context.Context {
	return setRole(ctx, role)
}
