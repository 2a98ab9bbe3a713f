package types

import (
	"strings"
)

// IsValidSessionName checks the display name given at session creation.
// 1-200 characters, no leading/trailing whitespace-only names.
func IsValidSessionName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return len(trimmed) >= 1 && len(name) <= 200
}

// IsValidUserName checks a viewer display name. Uniqueness is deliberately
// not enforced; duplicates are resolved first-match-wins at accept time.
func IsValidUserName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return len(trimmed) >= 1 && len(name) <= 100
}

// IsValidRole checks a credential role string.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleViewer
}

// IsValidEventName checks an inbound event name against the known set.
// Unknown events are dropped by the router, never echoed back.
func IsValidEventName(event string) bool {
	switch event {
	case EventChangePage, EventGetAdminPage, EventAcceptUser, EventRejectUser:
		return true
	default:
		return false
	}
}
