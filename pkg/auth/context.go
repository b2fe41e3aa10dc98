// Package auth checks the login cookie sent with REST requests. Requests
// without a valid cookie run as the guest user.
package auth

import (
	"context"
	"slices"
)

// contextKey is a private type for context keys.
type contextKey int

const (
	userContextKey contextKey = iota
)

// GuestID is the user id of requests that carry no valid login cookie.
const GuestID = "guest"

// UserContext holds the user a request runs as.
type UserContext struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Guest    bool     `json:"guest"`
	Remember bool     `json:"remember,omitempty"`
}

// Guest returns a fresh guest user.
func Guest() *UserContext {
	return &UserContext{UserID: GuestID, Guest: true}
}

// WithUserContext adds user context to the context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// GetUserContext retrieves user context from the context. Returns the
// guest user when none was set.
func GetUserContext(ctx context.Context) *UserContext {
	if uc, ok := ctx.Value(userContextKey).(*UserContext); ok && uc != nil {
		return uc
	}
	return Guest()
}

// HasRole checks if the user has a specific role.
func (uc *UserContext) HasRole(role string) bool {
	return slices.Contains(uc.Roles, role)
}
