package storage

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const productID = "-//calshare//Shared Calendar//EN"

// EventsToICS encodes events as one VCALENDAR document named after the calendar.
func EventsToICS(calendarName string, events []*Event) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if calendarName != "" {
		cal.Props.SetText(ical.PropName, calendarName)
	}

	for _, ev := range events {
		cal.Children = append(cal.Children, EventToComponent(ev))
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}

// EventToComponent converts an event to a VEVENT component.
func EventToComponent(ev *Event) *ical.Component {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, ev.ID)
	event.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Notes != "" {
		event.Props.SetText(ical.PropDescription, ev.Notes)
	}
	if ev.Color != "" {
		event.Props.SetText(ical.PropColor, ev.Color)
	}
	stamp := ev.Modified
	if stamp.IsZero() {
		stamp = time.Now()
	}
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	return event.Component
}

// ICSToEvents decodes every VEVENT of an iCalendar document. The returned events
// carry title, notes, color and times only; ids, creator and calendar are left
// for the caller to assign.
func ICSToEvents(ics string, loc *time.Location) ([]*Event, error) {
	dec := ical.NewDecoder(strings.NewReader(ics))

	cal, err := dec.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}

	var out []*Event
	for _, e := range cal.Events() {
		start, err := e.DateTimeStart(loc)
		if err != nil {
			return nil, fmt.Errorf("invalid DTSTART: %w", err)
		}
		end, err := e.DateTimeEnd(loc)
		if err != nil {
			return nil, fmt.Errorf("invalid DTEND: %w", err)
		}
		if end.IsZero() {
			end = start
		}
		ev := &Event{Start: start, End: end}
		if ev.Title, err = textProp(e.Component, ical.PropSummary); err != nil {
			return nil, err
		}
		if ev.Notes, err = textProp(e.Component, ical.PropDescription); err != nil {
			return nil, err
		}
		if ev.Color, err = textProp(e.Component, ical.PropColor); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no events found in calendar")
	}
	return out, nil
}

// textProp returns the unescaped value of a TEXT property, or "" when absent.
// Unescaped commas from lax producers are kept rather than splitting the value.
func textProp(comp *ical.Component, name string) (string, error) {
	p := comp.Props.Get(name)
	if p == nil {
		return "", nil
	}
	parts, err := p.TextList()
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	return strings.Join(parts, ","), nil
}
