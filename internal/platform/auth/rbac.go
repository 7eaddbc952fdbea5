package auth

import (
	"errors"
	"net/http"
	"strings"
)

var ErrForbidden = errors.New("forbidden")

const (
	RoleViewer  = "viewer"
	RoleEditor  = "editor"
	RoleQuality = "quality"
	RoleAdmin   = "admin"
)

var roleLevels = map[string]int{
	RoleViewer:  1,
	RoleEditor:  2,
	RoleQuality: 3,
	RoleAdmin:   4,
}

func HasAtLeast(roles []string, required string) bool {
	requiredLevel := roleLevels[strings.ToLower(required)]
	if requiredLevel == 0 {
		return false
	}
	maxLevel := 0
	for _, role := range roles {
		level := roleLevels[strings.ToLower(strings.TrimSpace(role))]
		if level > maxLevel {
			maxLevel = level
		}
	}
	return maxLevel >= requiredLevel
}

// RequiredRoleForRequest maps HTTP methods to the minimum role: reads need
// viewer, mutations need editor. The lifecycle engine itself applies no
// per-actor gates.
func RequiredRoleForRequest(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return RoleViewer
	default:
		return RoleEditor
	}
}
