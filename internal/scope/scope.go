// Package scope matches the "resource:action" permissions carried by access tokens.
package scope

import (
	"strings"

	"github.com/quizgenius/backend/internal/database"
)

const (
	MeAll       = "me:*"
	DocumentAll = "document:*"
	TestAll     = "test:*"
	ResultRead  = "result:read"
	CatalogRead = "catalog:read"
	AttemptAll  = "attempt:*"
)

// ShouldAllow checks if a user with given scopes can access a function requiring fnScope.
//
// fnScope is "resource:action" (e.g. "test:write"), or empty for public functions.
// userScopes contains "resource:action", "resource:*", "*:action" or "*" patterns.
func ShouldAllow(fnScope string, userScopes []string) bool {
	if fnScope == "" {
		return true
	}

	fnResource, fnAction, ok := strings.Cut(fnScope, ":")
	if !ok || strings.Contains(fnAction, ":") {
		return false
	}

	for _, s := range userScopes {
		if s == "*" {
			return true
		}

		resource, action, ok := strings.Cut(s, ":")
		if !ok || strings.Contains(action, ":") {
			continue
		}

		if (resource == "*" || resource == fnResource) && (action == "*" || action == fnAction) {
			return true
		}
	}

	return false
}

// ForRole returns the scopes granted to a user of the given role.
func ForRole(role database.Role) []string {
	switch role {
	case database.RoleInstructor:
		return []string{MeAll, DocumentAll, TestAll, ResultRead}
	case database.RoleStudent:
		return []string{MeAll, CatalogRead, AttemptAll}
	default:
		return []string{}
	}
}
