package auth

import (
	"context"
	"errors"
)

type ctxKey struct{}

// Identity is the authenticated caller. Handlers never take user or agent
// ids for the caller from request bodies; they read them from here.
type Identity struct {
	UserID int64
	Role   string
}

var ErrNoIdentity = errors.New("identity not in context")

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, error) {
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok && id.UserID != 0 {
		return id, nil
	}
	return Identity{}, ErrNoIdentity
}

func UserID(ctx context.Context) (int64, error) {
	id, err := IdentityFrom(ctx)
	return id.UserID, err
}

func Role(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", err
	}
	if id.Role == "" {
		return "", errors.New("role not in context")
	}
	return id.Role, nil
}
