package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetCalendar(ctx context.Context, id string) (*Calendar, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Calendar).Clone(), args.Error(1)
}

func (m *MockStorage) GetCalendarByShareToken(ctx context.Context, token string) (*Calendar, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Calendar).Clone(), args.Error(1)
}

func (m *MockStorage) ListCalendars(ctx context.Context) ([]*Calendar, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Calendar), args.Error(1)
}

func (m *MockStorage) ListCalendarsForUser(ctx context.Context, userID string) ([]*Calendar, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Calendar), args.Error(1)
}

func (m *MockStorage) SaveCalendar(ctx context.Context, cal *Calendar) error {
	return m.Called(ctx, cal).Error(0)
}

func (m *MockStorage) DeleteCalendar(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStorage) GetEvent(ctx context.Context, id string) (*Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event).Clone(), args.Error(1)
}

func (m *MockStorage) ListEvents(ctx context.Context, calendarID string) ([]*Event, error) {
	args := m.Called(ctx, calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Event), args.Error(1)
}

func (m *MockStorage) ListEventsIn(ctx context.Context, calendarIDs []string) ([]*Event, error) {
	args := m.Called(ctx, calendarIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Event), args.Error(1)
}

func (m *MockStorage) FindEventByTitleAndStart(ctx context.Context, calendarID, title string, start time.Time) (*Event, error) {
	args := m.Called(ctx, calendarID, title, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event).Clone(), args.Error(1)
}

func (m *MockStorage) SaveEvent(ctx context.Context, ev *Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockStorage) DeleteEvent(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStorage) DeleteEventsByCalendar(ctx context.Context, calendarID string) error {
	return m.Called(ctx, calendarID).Error(0)
}

// MockDirectory implements the Directory interface for testing
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

// --- Helper methods for creating test data ---

// NewMockCalendar creates a test Calendar owned by owner with the given members
func NewMockCalendar(id, name, owner string, members ...Membership) *Calendar {
	return NewCalendar(id, name, owner, members...)
}

// NewMockEvent creates a test Event lasting one hour
func NewMockEvent(id, calendarID, creator, title string, start time.Time) *Event {
	return &Event{
		ID:         id,
		Title:      title,
		Start:      start,
		End:        start.Add(time.Hour),
		Creator:    creator,
		CalendarID: calendarID,
		Color:      DefaultEventColor,
	}
}
