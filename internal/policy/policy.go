// Package policy is the single capability gate every mutating service
// operation passes through.
package policy

import (
	"fmt"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/domain"
)

// roleRank orders roles so that a higher role satisfies a lower requirement
var roleRank = map[string]int{
	entities.RoleAuthor: 1,
	entities.RoleAdmin:  2,
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// RequireAuthenticated fails unless caller is a signed-in user
func RequireAuthenticated(caller *domain.Caller) error {
	if caller == nil || caller.UserID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

// RequireRole fails unless caller holds role or a higher one
func RequireRole(caller *domain.Caller, role string) error {
	if err := RequireAuthenticated(caller); err != nil {
		return err
	}
	need, ok := roleRank[role]
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}
	if roleRank[caller.Role] < need {
		return domain.ErrPermissionDenied
	}
	return nil
}

// RequireSelfOrRole passes when caller is the user identified by userID or holds role
func RequireSelfOrRole(caller *domain.Caller, userID, role string) error {
	if err := RequireAuthenticated(caller); err != nil {
		return err
	}
	if caller.UserID == userID {
		return nil
	}
	return RequireRole(caller, role)
}
