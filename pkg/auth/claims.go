package auth

import (
	"fmt"
	"strings"
)

// ClaimsExtractor reads user fields from login token claims.
type ClaimsExtractor struct {
	// RoleClaimPath is the dot-separated path to roles in claims.
	// e.g., "realm_access.roles" or "roles"
	RoleClaimPath string

	// EmailClaimPath is the path to the email claim.
	EmailClaimPath string

	// NameClaimPath is the path to the name claim.
	NameClaimPath string

	// SubjectClaimPath is the path to the subject claim.
	SubjectClaimPath string

	// RememberClaimPath is the path to the boolean "keep me logged in"
	// claim.
	RememberClaimPath string
}

// DefaultClaimsExtractor returns an extractor for tokens minted by IssueToken.
func DefaultClaimsExtractor() *ClaimsExtractor {
	return &ClaimsExtractor{
		RoleClaimPath:     "roles",
		EmailClaimPath:    "email",
		NameClaimPath:     "name",
		SubjectClaimPath:  "sub",
		RememberClaimPath: "remember",
	}
}

// Extract builds the user from claims. A token without a subject names no
// user.
func (e *ClaimsExtractor) Extract(claims map[string]any) (*UserContext, error) {
	uc := &UserContext{
		UserID: getStringValue(claims, e.SubjectClaimPath),
		Email:  getStringValue(claims, e.EmailClaimPath),
		Name:   getStringValue(claims, e.NameClaimPath),
	}
	if uc.UserID == "" {
		return nil, fmt.Errorf("missing claim: %s", e.SubjectClaimPath)
	}
	if e.RoleClaimPath != "" {
		uc.Roles = getStringSlice(claims, e.RoleClaimPath)
	}
	if remember, ok := getValue(claims, e.RememberClaimPath).(bool); ok {
		uc.Remember = remember
	}
	return uc, nil
}

// getStringValue gets a string value at a dot-separated path.
func getStringValue(claims map[string]any, path string) string {
	if s, ok := getValue(claims, path).(string); ok {
		return s
	}
	return ""
}

// getStringSlice gets a string slice at a dot-separated path.
func getStringSlice(claims map[string]any, path string) []string {
	switch arr := getValue(claims, path).(type) {
	case []any:
		result := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case []string:
		return arr
	default:
		return nil
	}
}

// getValue gets a value at a dot-separated path.
func getValue(claims map[string]any, path string) any {
	if path == "" {
		return nil
	}

	var current any = claims
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}
