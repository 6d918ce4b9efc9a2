package rbac

import "callcenter-api/internal/store"

// Role names. Keep these stable; they are stored on users.role and carried
// in access tokens.
const (
	RoleAdmin = store.RoleAdmin
	RoleAgent = store.RoleAgent
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsKnownRole(role string) bool { return role == RoleAdmin || role == RoleAgent }
