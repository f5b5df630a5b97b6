// memory based implementation for testing purposes and single-node deployments
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/calshare/server/storage"
)

// Store implements storage.Storage using in-memory maps.
//
// Besides the primary maps it keeps three secondary indexes: owner → calendars,
// member → calendars and share token → calendar. They are rebuilt for a
// calendar on every save, under the same lock as the primary write.
type Store struct {
	mu        sync.RWMutex
	calendars map[string]*storage.Calendar
	events    map[string]*storage.Event

	byOwner  map[string]map[string]struct{} // owner id -> calendar ids
	byMember map[string]map[string]struct{} // member id -> calendar ids
	byToken  map[string]string              // share token -> calendar id

	now func() time.Time
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		calendars: make(map[string]*storage.Calendar),
		events:    make(map[string]*storage.Event),
		byOwner:   make(map[string]map[string]struct{}),
		byMember:  make(map[string]map[string]struct{}),
		byToken:   make(map[string]string),
		now:       time.Now,
	}
}

func addIndex(idx map[string]map[string]struct{}, key, calendarID string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[calendarID] = struct{}{}
}

func dropIndex(idx map[string]map[string]struct{}, key, calendarID string) {
	if set, ok := idx[key]; ok {
		delete(set, calendarID)
		if len(set) == 0 {
			delete(idx, key)
		}
	}
}

// unindex removes every index entry of cal. Caller holds the write lock.
func (s *Store) unindex(cal *storage.Calendar) {
	dropIndex(s.byOwner, cal.Owner, cal.ID)
	for _, m := range cal.Members() {
		dropIndex(s.byMember, m.UserID, cal.ID)
	}
	if token, ok := cal.ShareToken.Get(); ok && s.byToken[token] == cal.ID {
		delete(s.byToken, token)
	}
}

// index adds every index entry of cal. Caller holds the write lock.
func (s *Store) index(cal *storage.Calendar) {
	addIndex(s.byOwner, cal.Owner, cal.ID)
	for _, m := range cal.Members() {
		addIndex(s.byMember, m.UserID, cal.ID)
	}
	if token, ok := cal.ShareToken.Get(); ok {
		s.byToken[token] = cal.ID
	}
}

// Calendar operations

func (s *Store) GetCalendar(_ context.Context, id string) (*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal, ok := s.calendars[id]
	if !ok {
		return nil, fmt.Errorf("calendar %s: %w", id, storage.ErrNotFound)
	}
	return cal.Clone(), nil
}

func (s *Store) GetCalendarByShareToken(_ context.Context, token string) (*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok || token == "" {
		return nil, fmt.Errorf("share token: %w", storage.ErrNotFound)
	}
	return s.calendars[id].Clone(), nil
}

func (s *Store) ListCalendars(_ context.Context) ([]*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Calendar, 0, len(s.calendars))
	for _, cal := range s.calendars {
		out = append(out, cal.Clone())
	}
	sortCalendars(out)
	return out, nil
}

func (s *Store) ListCalendarsForUser(_ context.Context, userID string) ([]*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Calendar
	seen := make(map[string]struct{})
	for _, idx := range []map[string]map[string]struct{}{s.byOwner, s.byMember} {
		for id := range idx[userID] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, s.calendars[id].Clone())
		}
	}
	sortCalendars(out)
	return out, nil
}

func (s *Store) SaveCalendar(_ context.Context, cal *storage.Calendar) error {
	if cal == nil || cal.ID == "" {
		return fmt.Errorf("save calendar: %w", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := cal.Clone()
	if old, ok := s.calendars[cal.ID]; ok {
		s.unindex(old)
		stored.Created = old.Created
	} else if stored.Created.IsZero() {
		stored.Created = now
	}
	stored.Modified = now

	s.calendars[cal.ID] = stored
	s.index(stored)

	cal.Created, cal.Modified = stored.Created, stored.Modified
	return nil
}

func (s *Store) DeleteCalendar(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cal, ok := s.calendars[id]
	if !ok {
		return fmt.Errorf("calendar %s: %w", id, storage.ErrNotFound)
	}
	s.unindex(cal)
	delete(s.calendars, id)
	return nil
}

// Event operations

func (s *Store) GetEvent(_ context.Context, id string) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	return ev.Clone(), nil
}

func (s *Store) ListEvents(ctx context.Context, calendarID string) ([]*storage.Event, error) {
	return s.ListEventsIn(ctx, []string{calendarID})
}

func (s *Store) ListEventsIn(_ context.Context, calendarIDs []string) ([]*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Event
	for _, ev := range s.events {
		if slices.Contains(calendarIDs, ev.CalendarID) {
			out = append(out, ev.Clone())
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *Store) FindEventByTitleAndStart(_ context.Context, calendarID, title string, start time.Time) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *storage.Event
	for _, ev := range s.events {
		if ev.CalendarID != calendarID || ev.Title != title || !ev.Start.Equal(start) {
			continue
		}
		// Keep the answer stable when two events share both fields.
		if match == nil || ev.Created.Before(match.Created) ||
			(ev.Created.Equal(match.Created) && ev.ID < match.ID) {
			match = ev
		}
	}
	if match == nil {
		return nil, fmt.Errorf("event %q at %s: %w", title, start.Format(time.RFC3339), storage.ErrNotFound)
	}
	return match.Clone(), nil
}

func (s *Store) SaveEvent(_ context.Context, ev *storage.Event) error {
	if ev == nil || ev.ID == "" {
		return fmt.Errorf("save event: %w", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := ev.Clone()
	if old, ok := s.events[ev.ID]; ok {
		stored.Created = old.Created
	} else if stored.Created.IsZero() {
		stored.Created = now
	}
	stored.Modified = now
	s.events[ev.ID] = stored

	ev.Created, ev.Modified = stored.Created, stored.Modified
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	delete(s.events, id)
	return nil
}

func (s *Store) DeleteEventsByCalendar(_ context.Context, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ev := range s.events {
		if ev.CalendarID == calendarID {
			delete(s.events, id)
		}
	}
	return nil
}

func sortCalendars(cals []*storage.Calendar) {
	sort.Slice(cals, func(i, j int) bool {
		if !cals[i].Created.Equal(cals[j].Created) {
			return cals[i].Created.Before(cals[j].Created)
		}
		return cals[i].ID < cals[j].ID
	})
}

func sortEvents(evs []*storage.Event) {
	sort.Slice(evs, func(i, j int) bool {
		if !evs[i].Start.Equal(evs[j].Start) {
			return evs[i].Start.Before(evs[j].Start)
		}
		return evs[i].ID < evs[j].ID
	})
}
