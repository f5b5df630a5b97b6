// Package calendars orchestrates calendar lifecycle and membership changes.
//
// Each mutation loads the calendar, asks the access package, and writes once
// on allow. Failures come back as *outcome.Failure inside the result.
package calendars

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/cyp0633/calshare/server/access"
	"github.com/cyp0633/calshare/server/notify"
	"github.com/cyp0633/calshare/server/outcome"
	"github.com/cyp0633/calshare/server/storage"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// OwnerCannotLeave is returned verbatim when an owner tries to leave.
const OwnerCannotLeave = "the owner cannot leave the calendar; ownership transfer is not supported"

// Summary is a calendar as seen by one user.
type Summary struct {
	ID    string
	Name  string
	Owner string
	Role  storage.Role
}

// Member is a resolved participant of a calendar.
type Member struct {
	UserID string
	Name   string
	Email  string
	Role   storage.Role
}

// SearchHit exposes only what the global directory lookup may reveal.
type SearchHit struct {
	ID   string
	Name string
}

// Service implements the calendar mutations.
type Service struct {
	store    storage.Storage
	users    storage.Directory
	logger   *slog.Logger
	notifier notify.Notifier
	newID    func() string
}

// Option represents a configuration option for the Service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets where committed changes are published
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithIDGenerator replaces the uuid generator for new calendars
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService creates a calendar service
func NewService(store storage.Storage, users storage.Directory, opts ...Option) *Service {
	s := &Service{
		store:    store,
		users:    users,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		notifier: notify.Nop{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) load(ctx context.Context, calendarID string) (*storage.Calendar, *outcome.Failure) {
	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, s.storeFailure(err, "calendar not found", "calendar_id", calendarID)
	}
	return cal, nil
}

// loadManaged loads a calendar the requester must own.
func (s *Service) loadManaged(ctx context.Context, requester, calendarID, action string) (*storage.Calendar, *outcome.Failure) {
	cal, f := s.load(ctx, calendarID)
	if f != nil {
		return nil, f
	}
	if !access.CanManageCalendar(cal, requester) {
		s.logger.Info("calendar management denied",
			"action", action,
			"calendar_id", calendarID,
			"user_id", requester)
		return nil, outcome.Forbiddenf("only the owner can %s", action)
	}
	return cal, nil
}

func (s *Service) save(ctx context.Context, cal *storage.Calendar) *outcome.Failure {
	if err := s.store.SaveCalendar(ctx, cal); err != nil {
		return s.storeFailure(err, "calendar not found", "calendar_id", cal.ID)
	}
	return nil
}

func (s *Service) storeFailure(err error, msg string, args ...any) *outcome.Failure {
	f := outcome.FromStore(err, msg)
	if f.Kind == outcome.Upstream {
		s.logger.Error("storage failure", append(args, "error", err)...)
	}
	return f
}

func (s *Service) emit(ctx context.Context, change notify.Change) {
	notify.Emit(ctx, s.notifier, s.logger, change)
}

// Create makes ownerID the owner of a new calendar with no members and no token.
func (s *Service) Create(ctx context.Context, ownerID, name string) mo.Result[*storage.Calendar] {
	name = strings.TrimSpace(name)
	if name == "" {
		return outcome.Fail[*storage.Calendar](outcome.Invalidf("calendar name is required"))
	}

	cal := storage.NewCalendar(s.newID(), name, ownerID)
	if f := s.save(ctx, cal); f != nil {
		return outcome.Fail[*storage.Calendar](f)
	}

	s.logger.Info("calendar created", "calendar_id", cal.ID, "user_id", ownerID)
	s.emit(ctx, notify.Change{Kind: notify.CalendarCreated, CalendarID: cal.ID, Actor: ownerID})
	return mo.Ok(cal)
}

func (s *Service) Rename(ctx context.Context, requester, calendarID, name string) mo.Result[*storage.Calendar] {
	name = strings.TrimSpace(name)
	if name == "" {
		return outcome.Fail[*storage.Calendar](outcome.Invalidf("calendar name is required"))
	}
	cal, f := s.loadManaged(ctx, requester, calendarID, "rename the calendar")
	if f != nil {
		return outcome.Fail[*storage.Calendar](f)
	}

	cal.Name = name
	if f := s.save(ctx, cal); f != nil {
		return outcome.Fail[*storage.Calendar](f)
	}

	s.emit(ctx, notify.Change{Kind: notify.CalendarRenamed, CalendarID: cal.ID, Actor: requester})
	return mo.Ok(cal)
}

// Delete removes every event of the calendar, then the calendar. A failed
// cascade leaves the calendar in place.
func (s *Service) Delete(ctx context.Context, requester, calendarID string) mo.Result[struct{}] {
	if _, f := s.loadManaged(ctx, requester, calendarID, "delete the calendar"); f != nil {
		return outcome.Fail[struct{}](f)
	}

	if err := s.store.DeleteEventsByCalendar(ctx, calendarID); err != nil {
		s.logger.Error("cascade delete failed, keeping calendar",
			"calendar_id", calendarID,
			"error", err)
		return outcome.Fail[struct{}](&outcome.Failure{Kind: outcome.Upstream, Message: "failed to delete calendar events", Err: err})
	}
	if err := s.store.DeleteCalendar(ctx, calendarID); err != nil {
		// Events are already gone; the calendar is left empty.
		return outcome.Fail[struct{}](s.storeFailure(err, "calendar not found", "calendar_id", calendarID))
	}

	s.logger.Info("calendar deleted", "calendar_id", calendarID, "user_id", requester)
	s.emit(ctx, notify.Change{Kind: notify.CalendarDeleted, CalendarID: calendarID, Actor: requester})
	return mo.Ok(struct{}{})
}

// AddMember grants the user behind email access. A missing or unknown role
// becomes viewer. Existing members and the owner are left unchanged.
func (s *Service) AddMember(ctx context.Context, requester, calendarID, email, role string) mo.Result[Member] {
	cal, f := s.loadManaged(ctx, requester, calendarID, "manage members")
	if f != nil {
		return outcome.Fail[Member](f)
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return outcome.Fail[Member](outcome.Invalidf("email is required"))
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return outcome.Fail[Member](s.storeFailure(err, "user not found", "email", email))
	}

	if current := access.EffectiveRole(cal, user.ID); current != storage.RoleNone {
		return mo.Ok(Member{UserID: user.ID, Name: user.Name, Email: user.Email, Role: current})
	}

	r, ok := access.ParseRole(role)
	if !ok {
		r = storage.RoleViewer
	}
	cal.AddMember(storage.Membership{UserID: user.ID, Role: r})
	if f := s.save(ctx, cal); f != nil {
		return outcome.Fail[Member](f)
	}

	s.logger.Info("member added", "calendar_id", calendarID, "member_id", user.ID, "role", r)
	s.emit(ctx, notify.Change{
		Kind:       notify.MemberAdded,
		CalendarID: calendarID,
		Actor:      requester,
		Subject:    user.ID,
		Role:       string(r),
	})
	return mo.Ok(Member{UserID: user.ID, Name: user.Name, Email: user.Email, Role: r})
}

// RemoveMember drops memberID from the calendar. Removing a non-member succeeds.
func (s *Service) RemoveMember(ctx context.Context, requester, calendarID, memberID string) mo.Result[struct{}] {
	cal, f := s.loadManaged(ctx, requester, calendarID, "manage members")
	if f != nil {
		return outcome.Fail[struct{}](f)
	}

	if !cal.RemoveMember(memberID) {
		return mo.Ok(struct{}{})
	}
	if f := s.save(ctx, cal); f != nil {
		return outcome.Fail[struct{}](f)
	}

	s.logger.Info("member removed", "calendar_id", calendarID, "member_id", memberID)
	s.emit(ctx, notify.Change{Kind: notify.MemberRemoved, CalendarID: calendarID, Actor: requester, Subject: memberID})
	return mo.Ok(struct{}{})
}

func (s *Service) UpdateMemberRole(ctx context.Context, requester, calendarID, memberID, role string) mo.Result[storage.Membership] {
	cal, f := s.loadManaged(ctx, requester, calendarID, "manage members")
	if f != nil {
		return outcome.Fail[storage.Membership](f)
	}

	r, ok := access.ParseRole(role)
	if !ok {
		return outcome.Fail[storage.Membership](outcome.Invalidf("invalid role %q", role))
	}
	if !cal.SetMemberRole(memberID, r) {
		return outcome.Fail[storage.Membership](outcome.NotFoundf("member not found"))
	}
	if f := s.save(ctx, cal); f != nil {
		return outcome.Fail[storage.Membership](f)
	}

	s.logger.Info("member role changed", "calendar_id", calendarID, "member_id", memberID, "role", r)
	s.emit(ctx, notify.Change{
		Kind:       notify.MemberRole,
		CalendarID: calendarID,
		Actor:      requester,
		Subject:    memberID,
		Role:       string(r),
	})
	return mo.Ok(storage.Membership{UserID: memberID, Role: r})
}

// ListMembers returns the owner first, then members in stored order. Users the
// directory no longer knows are skipped.
func (s *Service) ListMembers(ctx context.Context, requester, calendarID string) mo.Result[[]Member] {
	cal, f := s.load(ctx, calendarID)
	if f != nil {
		return outcome.Fail[[]Member](f)
	}
	if !access.CanReadCalendar(cal, requester) {
		return outcome.Fail[[]Member](outcome.Forbiddenf("no access to this calendar"))
	}

	entries := append([]storage.Membership{{UserID: cal.Owner, Role: storage.RoleOwner}}, cal.Members()...)
	out := make([]Member, 0, len(entries))
	for _, m := range entries {
		user, err := s.users.FindByID(ctx, m.UserID)
		if err != nil {
			f := outcome.FromStore(err, "")
			if f.Kind == outcome.NotFound {
				s.logger.Debug("skipping unresolvable member", "calendar_id", calendarID, "member_id", m.UserID)
				continue
			}
			s.logger.Error("directory failure", "member_id", m.UserID, "error", err)
			return outcome.Fail[[]Member](f)
		}
		out = append(out, Member{UserID: user.ID, Name: user.Name, Email: user.Email, Role: m.Role})
	}
	return mo.Ok(out)
}

// Leave removes the requester's own membership. The owner is always rejected.
func (s *Service) Leave(ctx context.Context, requester, calendarID string) mo.Result[struct{}] {
	cal, f := s.load(ctx, calendarID)
	if f != nil {
		return outcome.Fail[struct{}](f)
	}
	if !access.CanLeave(cal, requester) {
		return outcome.Fail[struct{}](outcome.New(outcome.Forbidden, OwnerCannotLeave))
	}

	if !cal.RemoveMember(requester) {
		return mo.Ok(struct{}{})
	}
	if f := s.save(ctx, cal); f != nil {
		return outcome.Fail[struct{}](f)
	}

	s.logger.Info("member left", "calendar_id", calendarID, "user_id", requester)
	s.emit(ctx, notify.Change{Kind: notify.MemberLeft, CalendarID: calendarID, Actor: requester, Subject: requester})
	return mo.Ok(struct{}{})
}

// ListForUser returns every calendar userID owns or belongs to, with their role.
func (s *Service) ListForUser(ctx context.Context, userID string) mo.Result[[]Summary] {
	cals, err := s.store.ListCalendarsForUser(ctx, userID)
	if err != nil {
		return outcome.Fail[[]Summary](s.storeFailure(err, "", "user_id", userID))
	}

	out := make([]Summary, 0, len(cals))
	for _, cal := range cals {
		out = append(out, Summary{
			ID:    cal.ID,
			Name:  cal.Name,
			Owner: cal.Owner,
			Role:  access.EffectiveRole(cal, userID),
		})
	}
	return mo.Ok(out)
}

// Search matches calendar names case-insensitively. It is a global directory
// lookup and is not filtered by membership.
func (s *Service) Search(ctx context.Context, keyword string) mo.Result[[]SearchHit] {
	cals, err := s.store.ListCalendars(ctx)
	if err != nil {
		return outcome.Fail[[]SearchHit](s.storeFailure(err, ""))
	}

	needle := strings.ToLower(strings.TrimSpace(keyword))
	out := []SearchHit{}
	for _, cal := range cals {
		if strings.Contains(strings.ToLower(cal.Name), needle) {
			out = append(out, SearchHit{ID: cal.ID, Name: cal.Name})
		}
	}
	return mo.Ok(out)
}

// DefaultCalendar picks the first calendar the user can access.
func (s *Service) DefaultCalendar(ctx context.Context, userID string) mo.Result[*storage.Calendar] {
	cals, err := s.store.ListCalendarsForUser(ctx, userID)
	if err != nil {
		return outcome.Fail[*storage.Calendar](s.storeFailure(err, "", "user_id", userID))
	}
	if len(cals) == 0 {
		return outcome.Fail[*storage.Calendar](outcome.NotFoundf("no calendar available, create one first"))
	}
	return mo.Ok(cals[0])
}
