// Package notify publishes change notifications for calendars and events.
//
// Delivery is best-effort: a failed publish is logged and never fails the
// operation that produced the change.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ChangeKind names what happened.
type ChangeKind string

const (
	CalendarCreated ChangeKind = "calendar.created"
	CalendarRenamed ChangeKind = "calendar.renamed"
	CalendarDeleted ChangeKind = "calendar.deleted"
	MemberAdded     ChangeKind = "member.added"
	MemberRemoved   ChangeKind = "member.removed"
	MemberRole      ChangeKind = "member.role"
	MemberLeft      ChangeKind = "member.left"
	ShareGenerated  ChangeKind = "share.generated"
	ShareRevoked    ChangeKind = "share.revoked"
	ShareRedeemed   ChangeKind = "share.redeemed"
	EventCreated    ChangeKind = "event.created"
	EventUpdated    ChangeKind = "event.updated"
	EventDeleted    ChangeKind = "event.deleted"
)

// Change is the JSON payload published for every committed mutation.
type Change struct {
	Kind       ChangeKind `json:"kind"`
	CalendarID string     `json:"calendar_id"`
	EventID    string     `json:"event_id,omitempty"`
	Actor      string     `json:"actor"`
	Subject    string     `json:"subject,omitempty"` // user affected by a membership change
	Role       string     `json:"role,omitempty"`
	At         time.Time  `json:"at"`
}

// Notifier receives committed changes.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// Nop drops every change.
type Nop struct{}

func (Nop) Notify(context.Context, Change) error { return nil }

// Emit stamps and sends change, logging instead of returning a failure.
func Emit(ctx context.Context, n Notifier, logger *slog.Logger, change Change) {
	if n == nil {
		return
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	if err := n.Notify(ctx, change); err != nil {
		logger.Warn("failed to publish change",
			"kind", change.Kind,
			"calendar_id", change.CalendarID,
			"error", err)
	}
}

// Recorder keeps changes in memory. Tests use it to assert what was emitted.
type Recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *Recorder) Notify(_ context.Context, change Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
	return nil
}

// Changes returns a copy of everything recorded so far.
func (r *Recorder) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Change, len(r.changes))
	copy(out, r.changes)
	return out
}

// Kinds lists the recorded change kinds in order.
func (r *Recorder) Kinds() []ChangeKind {
	var out []ChangeKind
	for _, c := range r.Changes() {
		out = append(out, c.Kind)
	}
	return out
}
