// Package events orchestrates event reads and writes inside calendars.
package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cyp0633/calshare/server/access"
	"github.com/cyp0633/calshare/server/notify"
	"github.com/cyp0633/calshare/server/outcome"
	"github.com/cyp0633/calshare/server/recurrence"
	"github.com/cyp0633/calshare/server/storage"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Draft is the client-supplied part of a new event. The creator is always
// the requester, whatever the client sends.
type Draft struct {
	CalendarID string
	Title      string
	Notes      string
	Start      time.Time
	End        time.Time
	Color      string
}

// Patch replaces the editable fields of an event.
type Patch struct {
	Title string
	Notes string
	Start time.Time
	End   time.Time
	Color string
}

// Service implements the event mutations.
type Service struct {
	store    storage.Storage
	engine   *recurrence.Engine
	loc      *time.Location
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

// WithIDGenerator replaces the uuid generator for new events
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithRecurrence sets the engine used by CreateSeries
func WithRecurrence(engine *recurrence.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithLocation sets the zone floating ICS times are read in
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService creates an event service
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:    store,
		engine:   recurrence.NewEngine(),
		loc:      time.UTC,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		notifier: notify.Nop{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) storeFailure(err error, msg string, args ...any) *outcome.Failure {
	f := outcome.FromStore(err, msg)
	if f.Kind == outcome.Upstream {
		s.logger.Error("storage failure", append(args, "error", err)...)
	}
	return f
}

func (s *Service) emit(ctx context.Context, kind notify.ChangeKind, ev *storage.Event, actor string) {
	notify.Emit(ctx, s.notifier, s.logger, notify.Change{
		Kind:       kind,
		CalendarID: ev.CalendarID,
		EventID:    ev.ID,
		Actor:      actor,
	})
}

func validate(title string, start, end time.Time) *outcome.Failure {
	if strings.TrimSpace(title) == "" {
		return outcome.Invalidf("event title is required")
	}
	if start.IsZero() || end.IsZero() {
		return outcome.Invalidf("event start and end are required")
	}
	if end.Before(start) {
		return outcome.Invalidf("event end must not be before its start")
	}
	return nil
}

func colorOrDefault(c string) string {
	if c = strings.TrimSpace(c); c != "" {
		return c
	}
	return storage.DefaultEventColor
}

// loadWritable loads a calendar the requester may add events to.
func (s *Service) loadWritable(ctx context.Context, requester, calendarID string) (*storage.Calendar, *outcome.Failure) {
	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, s.storeFailure(err, "calendar not found", "calendar_id", calendarID)
	}
	if !access.CanWriteEvent(cal, requester) {
		s.logger.Info("event write denied", "calendar_id", calendarID, "user_id", requester)
		return nil, outcome.Forbiddenf("no write access to this calendar")
	}
	return cal, nil
}

// loadMutable loads an event and its calendar and checks the requester may change it.
func (s *Service) loadMutable(ctx context.Context, requester, eventID string) (*storage.Event, *outcome.Failure) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, s.storeFailure(err, "event not found", "event_id", eventID)
	}
	cal, err := s.store.GetCalendar(ctx, ev.CalendarID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("event references a missing calendar",
				"event_id", ev.ID,
				"calendar_id", ev.CalendarID)
			return nil, &outcome.Failure{Kind: outcome.NotFound, Message: "calendar of event not found", Err: err}
		}
		return nil, s.storeFailure(err, "", "calendar_id", ev.CalendarID)
	}
	if !access.CanMutateEvent(cal, ev, requester) {
		s.logger.Info("event mutation denied", "event_id", eventID, "user_id", requester)
		return nil, outcome.Forbiddenf("only the creator or a calendar editor can change this event")
	}
	return ev, nil
}

// List returns the events of one readable calendar, or of every calendar the
// requester can read when calendarID is absent.
func (s *Service) List(ctx context.Context, requester string, calendarID mo.Option[string]) mo.Result[[]*storage.Event] {
	cals, err := s.store.ListCalendarsForUser(ctx, requester)
	if err != nil {
		return outcome.Fail[[]*storage.Event](s.storeFailure(err, "", "user_id", requester))
	}
	readable := make([]string, 0, len(cals))
	for _, cal := range cals {
		if access.CanReadCalendar(cal, requester) {
			readable = append(readable, cal.ID)
		}
	}

	ids := readable
	if id, ok := calendarID.Get(); ok {
		if !slices.Contains(readable, id) {
			return outcome.Fail[[]*storage.Event](outcome.Forbiddenf("no access to this calendar"))
		}
		ids = []string{id}
	}
	if len(ids) == 0 {
		return mo.Ok([]*storage.Event{})
	}

	evs, err := s.store.ListEventsIn(ctx, ids)
	if err != nil {
		return outcome.Fail[[]*storage.Event](s.storeFailure(err, ""))
	}
	if evs == nil {
		evs = []*storage.Event{}
	}
	return mo.Ok(evs)
}

func (s *Service) Create(ctx context.Context, requester string, draft Draft) mo.Result[*storage.Event] {
	if f := validate(draft.Title, draft.Start, draft.End); f != nil {
		return outcome.Fail[*storage.Event](f)
	}
	if _, f := s.loadWritable(ctx, requester, draft.CalendarID); f != nil {
		return outcome.Fail[*storage.Event](f)
	}

	ev := s.newEvent(requester, draft, draft.Start, draft.End)
	if err := s.store.SaveEvent(ctx, ev); err != nil {
		return outcome.Fail[*storage.Event](s.storeFailure(err, "", "event_id", ev.ID))
	}

	s.logger.Info("event created", "event_id", ev.ID, "calendar_id", ev.CalendarID, "user_id", requester)
	s.emit(ctx, notify.EventCreated, ev, requester)
	return mo.Ok(ev)
}

func (s *Service) newEvent(requester string, draft Draft, start, end time.Time) *storage.Event {
	return &storage.Event{
		ID:         s.newID(),
		Title:      strings.TrimSpace(draft.Title),
		Notes:      draft.Notes,
		Start:      start,
		End:        end,
		Creator:    requester,
		CalendarID: draft.CalendarID,
		Color:      colorOrDefault(draft.Color),
	}
}

// CreateSeries creates one event per occurrence of rule, each keeping the
// draft's duration. Access is checked once; nothing is saved if the rule fails.
func (s *Service) CreateSeries(ctx context.Context, requester string, draft Draft, rule recurrence.Rule) mo.Result[[]*storage.Event] {
	if f := validate(draft.Title, draft.Start, draft.End); f != nil {
		return outcome.Fail[[]*storage.Event](f)
	}
	if _, f := s.loadWritable(ctx, requester, draft.CalendarID); f != nil {
		return outcome.Fail[[]*storage.Event](f)
	}

	occurrences, err := s.engine.Expand(draft.Start, draft.End, rule)
	if err != nil {
		return outcome.Fail[[]*storage.Event](&outcome.Failure{Kind: outcome.Invalid, Message: "invalid repetition", Err: err})
	}

	out := make([]*storage.Event, 0, len(occurrences))
	for _, occ := range occurrences {
		ev := s.newEvent(requester, draft, occ.Start, occ.End)
		if err := s.store.SaveEvent(ctx, ev); err != nil {
			s.logger.Error("series interrupted", "saved", len(out), "total", len(occurrences), "error", err)
			return outcome.Fail[[]*storage.Event](s.storeFailure(err, "", "event_id", ev.ID))
		}
		s.emit(ctx, notify.EventCreated, ev, requester)
		out = append(out, ev)
	}

	s.logger.Info("event series created",
		"calendar_id", draft.CalendarID,
		"count", len(out),
		"user_id", requester)
	return mo.Ok(out)
}

// Update overwrites title, notes, times and color. Creator and calendar never change.
func (s *Service) Update(ctx context.Context, requester, eventID string, patch Patch) mo.Result[*storage.Event] {
	if f := validate(patch.Title, patch.Start, patch.End); f != nil {
		return outcome.Fail[*storage.Event](f)
	}
	ev, f := s.loadMutable(ctx, requester, eventID)
	if f != nil {
		return outcome.Fail[*storage.Event](f)
	}

	ev.Title = strings.TrimSpace(patch.Title)
	ev.Notes = patch.Notes
	ev.Start = patch.Start
	ev.End = patch.End
	ev.Color = colorOrDefault(patch.Color)
	if err := s.store.SaveEvent(ctx, ev); err != nil {
		return outcome.Fail[*storage.Event](s.storeFailure(err, "event not found", "event_id", ev.ID))
	}

	s.logger.Info("event updated", "event_id", ev.ID, "user_id", requester)
	s.emit(ctx, notify.EventUpdated, ev, requester)
	return mo.Ok(ev)
}

func (s *Service) Delete(ctx context.Context, requester, eventID string) mo.Result[struct{}] {
	ev, f := s.loadMutable(ctx, requester, eventID)
	if f != nil {
		return outcome.Fail[struct{}](f)
	}

	if err := s.store.DeleteEvent(ctx, ev.ID); err != nil {
		return outcome.Fail[struct{}](s.storeFailure(err, "event not found", "event_id", ev.ID))
	}

	s.logger.Info("event deleted", "event_id", ev.ID, "user_id", requester)
	s.emit(ctx, notify.EventDeleted, ev, requester)
	return mo.Ok(struct{}{})
}

// FindByTitleAndStart resolves an event inside one calendar by its exact title
// and start. Readers of the calendar and the event's creator may look it up;
// anyone else gets Forbidden whether or not the event exists.
func (s *Service) FindByTitleAndStart(ctx context.Context, requester, calendarID, title string, start time.Time) mo.Result[*storage.Event] {
	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return outcome.Fail[*storage.Event](s.storeFailure(err, "calendar not found", "calendar_id", calendarID))
	}
	readable := access.CanReadCalendar(cal, requester)

	ev, err := s.store.FindEventByTitleAndStart(ctx, calendarID, strings.TrimSpace(title), start)
	if err != nil {
		if !readable && errors.Is(err, storage.ErrNotFound) {
			return outcome.Fail[*storage.Event](outcome.Forbiddenf("no access to this calendar"))
		}
		return outcome.Fail[*storage.Event](s.storeFailure(err, "event not found", "calendar_id", calendarID))
	}
	if !access.CanSeeEvent(cal, ev, requester) {
		return outcome.Fail[*storage.Event](outcome.Forbiddenf("no access to this calendar"))
	}
	return mo.Ok(ev)
}
