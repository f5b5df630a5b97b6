package events

import (
	"context"
	"strings"

	"github.com/cyp0633/calshare/server/access"
	"github.com/cyp0633/calshare/server/notify"
	"github.com/cyp0633/calshare/server/outcome"
	"github.com/cyp0633/calshare/server/storage"
	"github.com/samber/mo"
)

const untitled = "Untitled event"

// ExportICS renders a readable calendar as an iCalendar document.
func (s *Service) ExportICS(ctx context.Context, requester, calendarID string) mo.Result[string] {
	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return outcome.Fail[string](s.storeFailure(err, "calendar not found", "calendar_id", calendarID))
	}
	if !access.CanReadCalendar(cal, requester) {
		return outcome.Fail[string](outcome.Forbiddenf("no access to this calendar"))
	}

	evs, err := s.store.ListEvents(ctx, calendarID)
	if err != nil {
		return outcome.Fail[string](s.storeFailure(err, "", "calendar_id", calendarID))
	}

	ics, err := storage.EventsToICS(cal.Name, evs)
	if err != nil {
		s.logger.Error("failed to encode calendar", "calendar_id", calendarID, "error", err)
		return outcome.Fail[string](&outcome.Failure{Kind: outcome.Upstream, Message: "failed to encode calendar", Err: err})
	}
	return mo.Ok(ics)
}

// ImportICS creates one event per VEVENT in data, authored by the requester.
// The document is validated as a whole before anything is written.
func (s *Service) ImportICS(ctx context.Context, requester, calendarID, data string) mo.Result[[]*storage.Event] {
	if _, f := s.loadWritable(ctx, requester, calendarID); f != nil {
		return outcome.Fail[[]*storage.Event](f)
	}

	parsed, err := storage.ICSToEvents(data, s.loc)
	if err != nil {
		return outcome.Fail[[]*storage.Event](&outcome.Failure{Kind: outcome.Invalid, Message: "invalid iCalendar data", Err: err})
	}

	drafts := make([]Draft, 0, len(parsed))
	for _, p := range parsed {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = untitled
		}
		if f := validate(title, p.Start, p.End); f != nil {
			return outcome.Fail[[]*storage.Event](f)
		}
		drafts = append(drafts, Draft{
			CalendarID: calendarID,
			Title:      title,
			Notes:      p.Notes,
			Start:      p.Start,
			End:        p.End,
			Color:      p.Color,
		})
	}

	out := make([]*storage.Event, 0, len(drafts))
	for _, d := range drafts {
		ev := s.newEvent(requester, d, d.Start, d.End)
		if err := s.store.SaveEvent(ctx, ev); err != nil {
			s.logger.Error("import interrupted", "saved", len(out), "total", len(drafts), "error", err)
			return outcome.Fail[[]*storage.Event](s.storeFailure(err, "", "event_id", ev.ID))
		}
		s.emit(ctx, notify.EventCreated, ev, requester)
		out = append(out, ev)
	}

	s.logger.Info("calendar imported", "calendar_id", calendarID, "count", len(out), "user_id", requester)
	return mo.Ok(out)
}
