// Package assistant executes structured commands produced by a chat front end.
//
// The command arrives with a resolved date and time; turning free text into
// those fields happens upstream. Every command runs through the calendar and
// event services, so the usual access rules apply.
package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cyp0633/calshare/server/events"
	"github.com/cyp0633/calshare/server/outcome"
	"github.com/cyp0633/calshare/server/recurrence"
	"github.com/cyp0633/calshare/server/storage"
	"github.com/samber/mo"
)

// Action names what a command does.
type Action string

const (
	ActionAdd            Action = "add"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionRecommend      Action = "recommend"
	ActionCreateCalendar Action = "createCalendar"
)

// EventDuration is the length of every event the assistant creates.
const EventDuration = time.Hour

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
	// defaultClock is used when a command carries a date but no time.
	defaultClock = "09:00"

	recommendation = "Your free slot is between 3 PM and 5 PM. How about a meeting then?"
)

// Command is one structured instruction.
type Command struct {
	Action      Action `json:"action"`
	Title       string `json:"title"`
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM
	CalendarID  string `json:"calendarId"`
	Details     string `json:"details"`
	Repeat      string `json:"repeat"` // none | weekly
	RepeatCount int    `json:"repeatCount"`
}

// Reply is the result of a command.
type Reply struct {
	Message  string
	Events   []*storage.Event
	Calendar *storage.Calendar
}

// Calendars is the part of the calendar service the assistant uses.
type Calendars interface {
	Create(ctx context.Context, ownerID, name string) mo.Result[*storage.Calendar]
	DefaultCalendar(ctx context.Context, userID string) mo.Result[*storage.Calendar]
}

// Events is the part of the event service the assistant uses.
type Events interface {
	Create(ctx context.Context, requester string, draft events.Draft) mo.Result[*storage.Event]
	CreateSeries(ctx context.Context, requester string, draft events.Draft, rule recurrence.Rule) mo.Result[[]*storage.Event]
	Update(ctx context.Context, requester, eventID string, patch events.Patch) mo.Result[*storage.Event]
	Delete(ctx context.Context, requester, eventID string) mo.Result[struct{}]
	FindByTitleAndStart(ctx context.Context, requester, calendarID, title string, start time.Time) mo.Result[*storage.Event]
}

// Assistant dispatches commands.
type Assistant struct {
	calendars Calendars
	events    Events
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// Option represents a configuration option for the Assistant
type Option func(*Assistant)

// WithLogger sets the logger for the assistant
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLocation sets the zone command dates and times are read in
func WithLocation(loc *time.Location) Option {
	return func(a *Assistant) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithClock replaces time.Now, used for commands without a date
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an assistant over the given services
func New(cals Calendars, evs Events, opts ...Option) *Assistant {
	a := &Assistant{
		calendars: cals,
		events:    evs,
		loc:       time.UTC,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// When resolves the command's date and time in loc. A missing date means
// today; a missing time means 09:00.
func (c Command) When(loc *time.Location, now time.Time) (time.Time, error) {
	date := strings.TrimSpace(c.Date)
	if date == "" {
		date = now.In(loc).Format(dateLayout)
	}
	clock := strings.TrimSpace(c.Time)
	if clock == "" {
		clock = defaultClock
	}

	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q and time %q: %w", date, clock, err)
	}
	return t, nil
}

// Execute runs cmd on behalf of requester.
func (a *Assistant) Execute(ctx context.Context, requester string, cmd Command) mo.Result[Reply] {
	a.logger.Debug("assistant command received", "action", cmd.Action, "user_id", requester)

	switch cmd.Action {
	case ActionRecommend:
		return mo.Ok(Reply{Message: recommendation})
	case ActionCreateCalendar:
		cal, err := a.calendars.Create(ctx, requester, cmd.Title).Get()
		if err != nil {
			return mo.Err[Reply](err)
		}
		return mo.Ok(Reply{Message: "calendar created", Calendar: cal})
	case ActionAdd, ActionUpdate, ActionDelete:
	default:
		return outcome.Fail[Reply](outcome.Invalidf("unknown command: %s", cmd.Action))
	}

	start, err := cmd.When(a.loc, a.now())
	if err != nil {
		return outcome.Fail[Reply](&outcome.Failure{Kind: outcome.Invalid, Message: "invalid date or time", Err: err})
	}

	calendarID := strings.TrimSpace(cmd.CalendarID)
	if calendarID == "" {
		cal, err := a.calendars.DefaultCalendar(ctx, requester).Get()
		if err != nil {
			return mo.Err[Reply](err)
		}
		calendarID = cal.ID
	}

	switch cmd.Action {
	case ActionAdd:
		return a.add(ctx, requester, calendarID, start, cmd)
	case ActionUpdate:
		return a.update(ctx, requester, calendarID, start, cmd)
	default:
		return a.remove(ctx, requester, calendarID, start, cmd)
	}
}

func (a *Assistant) add(ctx context.Context, requester, calendarID string, start time.Time, cmd Command) mo.Result[Reply] {
	draft := events.Draft{
		CalendarID: calendarID,
		Title:      cmd.Title,
		Notes:      cmd.Details,
		Start:      start,
		End:        start.Add(EventDuration),
	}

	if strings.EqualFold(cmd.Repeat, "weekly") && cmd.RepeatCount > 1 {
		evs, err := a.events.CreateSeries(ctx, requester, draft, recurrence.Weekly(cmd.RepeatCount)).Get()
		if err != nil {
			return mo.Err[Reply](err)
		}
		return mo.Ok(Reply{Message: fmt.Sprintf("%d weekly events added", len(evs)), Events: evs})
	}

	ev, err := a.events.Create(ctx, requester, draft).Get()
	if err != nil {
		return mo.Err[Reply](err)
	}
	return mo.Ok(Reply{Message: "event added", Events: []*storage.Event{ev}})
}

// update rewrites notes and times of the event found by title and start.
func (a *Assistant) update(ctx context.Context, requester, calendarID string, start time.Time, cmd Command) mo.Result[Reply] {
	ev, err := a.events.FindByTitleAndStart(ctx, requester, calendarID, cmd.Title, start).Get()
	if err != nil {
		return mo.Err[Reply](err)
	}

	updated, err := a.events.Update(ctx, requester, ev.ID, events.Patch{
		Title: cmd.Title,
		Notes: cmd.Details,
		Start: start,
		End:   start.Add(EventDuration),
		Color: ev.Color,
	}).Get()
	if err != nil {
		return mo.Err[Reply](err)
	}
	return mo.Ok(Reply{Message: "event updated", Events: []*storage.Event{updated}})
}

func (a *Assistant) remove(ctx context.Context, requester, calendarID string, start time.Time, cmd Command) mo.Result[Reply] {
	ev, err := a.events.FindByTitleAndStart(ctx, requester, calendarID, cmd.Title, start).Get()
	if err != nil {
		return mo.Err[Reply](err)
	}
	if err := a.events.Delete(ctx, requester, ev.ID).Error(); err != nil {
		return mo.Err[Reply](err)
	}
	return mo.Ok(Reply{Message: "event deleted"})
}
