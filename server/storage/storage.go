package storage

import (
	"context"
	"errors"
	"time"
)

// Directory resolves users. The core only reads from it.
type Directory interface {
	// FindByID returns ErrNotFound when no user has the id.
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByEmail returns ErrNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// CalendarStore connects calendar aggregates with your backend storage. Please use the error values provided.
type CalendarStore interface {
	// GetCalendar retrieves a calendar by id.
	GetCalendar(ctx context.Context, id string) (*Calendar, error)
	// GetCalendarByShareToken finds the calendar currently holding token.
	GetCalendarByShareToken(ctx context.Context, token string) (*Calendar, error)
	// ListCalendars returns every calendar.
	ListCalendars(ctx context.Context) ([]*Calendar, error)
	// ListCalendarsForUser returns the calendars userID owns or is a member of.
	// Implementations should answer from an owner index and a member index rather than a scan.
	ListCalendarsForUser(ctx context.Context, userID string) ([]*Calendar, error)
	// SaveCalendar inserts or replaces a calendar.
	SaveCalendar(ctx context.Context, cal *Calendar) error
	// DeleteCalendar removes a calendar. It does not touch events.
	DeleteCalendar(ctx context.Context, id string) error
}

// EventStore connects events with your backend storage.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, calendarID string) ([]*Event, error)
	ListEventsIn(ctx context.Context, calendarIDs []string) ([]*Event, error)
	// FindEventByTitleAndStart looks up an event inside one calendar by exact title and start time.
	FindEventByTitleAndStart(ctx context.Context, calendarID, title string, start time.Time) (*Event, error)
	SaveEvent(ctx context.Context, ev *Event) error
	DeleteEvent(ctx context.Context, id string) error
	// DeleteEventsByCalendar removes every event of a calendar.
	DeleteEventsByCalendar(ctx context.Context, calendarID string) error
}

// Storage bundles both stores, as most backends keep them together.
type Storage interface {
	CalendarStore
	EventStore
}

var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when an insert collides with an existing resource
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrUnavailable is returned when the storage backend is unavailable
	ErrUnavailable = errors.New("storage unavailable")
)
