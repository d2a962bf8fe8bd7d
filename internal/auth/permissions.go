package auth

import "github.com/tdhoang/authcore/internal/model"

// PermissionSet is the effective authorization derived from a user's role.
type PermissionSet struct {
	IsAdmin     bool
	Permissions []string
}

// AggregatePermissions walks a fetched role→group→permission graph and
// returns the effective permission set.
//
// IsAdmin mirrors the role's all-permissions flag; when it is set the key
// list is not required to be exhaustive. Permissions is the deduplicated
// union of keys across all groups — the same key appearing in several groups
// is emitted once. A nil role, or a role with no groups, yields an empty
// (never nil) set, not an error.
func AggregatePermissions(role *model.Role) PermissionSet {
	set := PermissionSet{Permissions: []string{}}
	if role == nil {
		return set
	}

	set.IsAdmin = role.IsAllPermissions

	seen := make(map[string]struct{})
	for _, group := range role.Groups {
		for _, perm := range group.Permissions {
			if _, ok := seen[perm.Key]; ok {
				continue
			}
			seen[perm.Key] = struct{}{}
			set.Permissions = append(set.Permissions, perm.Key)
		}
	}

	return set
}
