package storage

import (
	"slices"
	"time"

	"github.com/samber/mo"
)

// DefaultEventColor is used when an event is saved without a display color.
const DefaultEventColor = "#A5B4FC"

// Role is the access level a user holds on a calendar.
type Role string

const (
	RoleNone   Role = ""
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	// RoleOwner is derived from Calendar.Owner and never stored in a Membership.
	RoleOwner Role = "owner"
)

// String provides a human-readable representation of the Role.
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// User is the identity record resolved through a Directory.
type User struct {
	ID    string
	Name  string
	Email string
}

// Membership grants a non-owner user access to a calendar.
type Membership struct {
	UserID string
	Role   Role
}

// Calendar is a named container of events with one owner and a list of memberships.
//
// The membership list is private to the aggregate. Members returns a copy, and
// the mutating methods keep two invariants: the owner never appears in the list,
// and no user appears twice.
type Calendar struct {
	ID         string
	Name       string
	Owner      string
	ShareToken mo.Option[string]
	Created    time.Time
	Modified   time.Time

	members []Membership
}

// NewCalendar builds a calendar aggregate. Memberships naming the owner, repeated
// user ids and memberships with a role other than viewer/editor are dropped.
func NewCalendar(id, name, owner string, members ...Membership) *Calendar {
	cal := &Calendar{
		ID:         id,
		Name:       name,
		Owner:      owner,
		ShareToken: mo.None[string](),
	}
	for _, m := range members {
		if m.Role != RoleViewer && m.Role != RoleEditor {
			continue
		}
		cal.AddMember(m)
	}
	return cal
}

// Members returns a copy of the membership list in stored order.
func (c *Calendar) Members() []Membership {
	return slices.Clone(c.members)
}

// Member looks up the membership of userID.
func (c *Calendar) Member(userID string) (Membership, bool) {
	for _, m := range c.members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Membership{}, false
}

// AddMember appends m unless the user is the owner or already a member.
// It reports whether the list changed.
func (c *Calendar) AddMember(m Membership) bool {
	if m.UserID == "" || m.UserID == c.Owner {
		return false
	}
	if _, ok := c.Member(m.UserID); ok {
		return false
	}
	c.members = append(c.members, m)
	return true
}

// RemoveMember filters userID out of the membership list.
func (c *Calendar) RemoveMember(userID string) bool {
	before := len(c.members)
	c.members = slices.DeleteFunc(c.members, func(m Membership) bool {
		return m.UserID == userID
	})
	return len(c.members) != before
}

// SetMemberRole overwrites the role of an existing member.
func (c *Calendar) SetMemberRole(userID string, role Role) bool {
	for i := range c.members {
		if c.members[i].UserID == userID {
			c.members[i].Role = role
			return true
		}
	}
	return false
}

// HasUser reports whether userID is the owner or a member.
func (c *Calendar) HasUser(userID string) bool {
	if c.Owner == userID {
		return true
	}
	_, ok := c.Member(userID)
	return ok
}

// Clone returns a deep copy safe to hand across store boundaries.
func (c *Calendar) Clone() *Calendar {
	if c == nil {
		return nil
	}
	cp := *c
	cp.members = slices.Clone(c.members)
	return &cp
}

// Event is a dated entry inside a calendar.
type Event struct {
	ID         string
	Title      string
	Notes      string
	Start      time.Time
	End        time.Time
	Creator    string
	CalendarID string
	Color      string
	Created    time.Time
	Modified   time.Time
}

// Clone returns a copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}
