package rbac

// Permissions gating mutations on the family data.
const (
	PermissionCreateMember = "member:create"
	PermissionUpdateMember = "member:update"
	PermissionDeleteMember = "member:delete"

	PermissionCreateEvent = "event:create"
	PermissionUpdateEvent = "event:update"
	PermissionDeleteEvent = "event:delete"

	PermissionCreateTimelineEntry = "timeline:create"
	PermissionUpdateTimelineEntry = "timeline:update"
	PermissionDeleteTimelineEntry = "timeline:delete"
)

// Roles carried in the JWT.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

var rolePermissions = map[string][]string{
	RoleMember: {
		PermissionCreateEvent,
		PermissionUpdateEvent,
		PermissionDeleteEvent,
		PermissionCreateTimelineEntry,
		PermissionUpdateTimelineEntry,
		PermissionDeleteTimelineEntry,
	},
	RoleAdmin: {
		PermissionCreateMember,
		PermissionUpdateMember,
		PermissionDeleteMember,
		PermissionCreateEvent,
		PermissionUpdateEvent,
		PermissionDeleteEvent,
		PermissionCreateTimelineEntry,
		PermissionUpdateTimelineEntry,
		PermissionDeleteTimelineEntry,
	},
}

// HasPermission reports whether the role grants the permission.
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns a typed error when the role lacks the permission.
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError signals an authorization failure.
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
