// Package access decides what a user may do with a calendar and its events.
//
// All checks are pure functions of a calendar snapshot and a user id. Callers
// load the calendar, ask here, and write only on allow.
package access

import "github.com/cyp0633/calshare/server/storage"

// EffectiveRole returns owner when userID owns cal, the membership role when
// userID is a member, and RoleNone otherwise.
func EffectiveRole(cal *storage.Calendar, userID string) storage.Role {
	if cal == nil || userID == "" {
		return storage.RoleNone
	}
	if cal.Owner == userID {
		return storage.RoleOwner
	}
	if m, ok := cal.Member(userID); ok {
		return m.Role
	}
	return storage.RoleNone
}

// CanManageCalendar covers rename, delete, membership changes and the share token.
func CanManageCalendar(cal *storage.Calendar, userID string) bool {
	return EffectiveRole(cal, userID) == storage.RoleOwner
}

// CanReadCalendar reports whether userID may see cal, its members and its events.
func CanReadCalendar(cal *storage.Calendar, userID string) bool {
	switch EffectiveRole(cal, userID) {
	case storage.RoleOwner, storage.RoleEditor, storage.RoleViewer:
		return true
	}
	return false
}

// CanWriteEvent reports whether userID may create events in cal.
func CanWriteEvent(cal *storage.Calendar, userID string) bool {
	switch EffectiveRole(cal, userID) {
	case storage.RoleOwner, storage.RoleEditor:
		return true
	}
	return false
}

// CanMutateEvent reports whether userID may update or delete ev.
//
// The creator of an event keeps control of it regardless of their current
// role on the calendar, including after removal.
func CanMutateEvent(cal *storage.Calendar, ev *storage.Event, userID string) bool {
	if ev != nil && userID != "" && ev.Creator == userID {
		return true
	}
	return CanWriteEvent(cal, userID)
}

// CanSeeEvent reports whether userID may look ev up. Readers of cal may, and so
// may the creator, who keeps access to their own events after losing the calendar.
func CanSeeEvent(cal *storage.Calendar, ev *storage.Event, userID string) bool {
	if ev != nil && userID != "" && ev.Creator == userID {
		return true
	}
	return CanReadCalendar(cal, userID)
}

// CanLeave reports whether userID may drop their own access. The owner never can.
func CanLeave(cal *storage.Calendar, userID string) bool {
	return EffectiveRole(cal, userID) != storage.RoleOwner
}

// ParseRole accepts the roles a membership may carry.
func ParseRole(s string) (storage.Role, bool) {
	switch r := storage.Role(s); r {
	case storage.RoleViewer, storage.RoleEditor:
		return r, true
	}
	return storage.RoleNone, false
}
