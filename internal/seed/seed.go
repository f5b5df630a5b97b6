// Package seed loads a YAML fixture of users, calendars and events into the
// in-process stores. It is meant for development and demo deployments.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cyp0633/calshare/server/access"
	"github.com/cyp0633/calshare/server/recurrence"
	"github.com/cyp0633/calshare/server/storage"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"gopkg.in/yaml.v3"
)

// Fixture is the document layout.
type Fixture struct {
	Users     []User     `yaml:"users"`
	Calendars []Calendar `yaml:"calendars"`
	Events    []Event    `yaml:"events"`
}

type User struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Password     string `yaml:"password,omitempty"`
	PasswordHash string `yaml:"password_hash,omitempty"`
}

type Member struct {
	User string `yaml:"user"`
	Role string `yaml:"role"`
}

type Calendar struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Owner      string   `yaml:"owner"`
	ShareToken string   `yaml:"share_token,omitempty"`
	Members    []Member `yaml:"members,omitempty"`
}

type Event struct {
	ID       string    `yaml:"id,omitempty"`
	Calendar string    `yaml:"calendar"`
	Title    string    `yaml:"title"`
	Notes    string    `yaml:"notes,omitempty"`
	Start    time.Time `yaml:"start"`
	End      time.Time `yaml:"end"`
	Creator  string    `yaml:"creator"`
	Color    string    `yaml:"color,omitempty"`
	// Repeat is an optional RRULE expanded into one event per occurrence.
	Repeat string `yaml:"repeat,omitempty"`
}

// Users is the registry seeded accounts are added to.
type Users interface {
	AddUser(id, name, email, password string) error
	AddUserWithHash(id, name, email string, hash []byte) error
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	if path == "" {
		return nil, errors.New("seed path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a fixture and checks its references.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	users := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		if u.ID == "" || u.Email == "" {
			return fmt.Errorf("user #%d: id and email are required", i+1)
		}
		if u.Password == "" && u.PasswordHash == "" {
			return fmt.Errorf("user %s: password or password_hash is required", u.ID)
		}
		users[u.ID] = true
	}

	cals := make(map[string]bool, len(f.Calendars))
	for i, c := range f.Calendars {
		if c.ID == "" || strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("calendar #%d: id and name are required", i+1)
		}
		if !users[c.Owner] {
			return fmt.Errorf("calendar %s: unknown owner %q", c.ID, c.Owner)
		}
		for _, m := range c.Members {
			if !users[m.User] {
				return fmt.Errorf("calendar %s: unknown member %q", c.ID, m.User)
			}
			if _, ok := access.ParseRole(m.Role); !ok {
				return fmt.Errorf("calendar %s: member %s has invalid role %q", c.ID, m.User, m.Role)
			}
		}
		cals[c.ID] = true
	}

	for i, e := range f.Events {
		if !cals[e.Calendar] {
			return fmt.Errorf("event #%d: unknown calendar %q", i+1, e.Calendar)
		}
		if !users[e.Creator] {
			return fmt.Errorf("event #%d: unknown creator %q", i+1, e.Creator)
		}
		if strings.TrimSpace(e.Title) == "" {
			return fmt.Errorf("event #%d: title is required", i+1)
		}
		if e.End.Before(e.Start) {
			return fmt.Errorf("event #%d: end before start", i+1)
		}
	}
	return nil
}

// Apply writes the fixture. Events with a Repeat rule are expanded by engine.
func (f *Fixture) Apply(ctx context.Context, users Users, store storage.Storage, engine *recurrence.Engine, logger *slog.Logger) error {
	for _, u := range f.Users {
		var err error
		if u.PasswordHash != "" {
			err = users.AddUserWithHash(u.ID, u.Name, u.Email, []byte(u.PasswordHash))
		} else {
			err = users.AddUser(u.ID, u.Name, u.Email, u.Password)
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	for _, c := range f.Calendars {
		members := make([]storage.Membership, 0, len(c.Members))
		for _, m := range c.Members {
			role, _ := access.ParseRole(m.Role)
			members = append(members, storage.Membership{UserID: m.User, Role: role})
		}
		cal := storage.NewCalendar(c.ID, strings.TrimSpace(c.Name), c.Owner, members...)
		if c.ShareToken != "" {
			cal.ShareToken = mo.Some(c.ShareToken)
		}
		if err := store.SaveCalendar(ctx, cal); err != nil {
			return fmt.Errorf("seed calendar %s: %w", c.ID, err)
		}
	}

	count := 0
	for _, e := range f.Events {
		spans := []recurrence.Occurrence{{Start: e.Start, End: e.End}}
		if e.Repeat != "" {
			var err error
			spans, err = engine.Expand(e.Start, e.End, recurrence.Rule{RRULE: e.Repeat})
			if err != nil {
				return fmt.Errorf("seed event %q: %w", e.Title, err)
			}
		}
		for i, span := range spans {
			id := e.ID
			if id == "" || i > 0 {
				id = uuid.NewString()
			}
			color := e.Color
			if color == "" {
				color = storage.DefaultEventColor
			}
			ev := &storage.Event{
				ID:         id,
				Title:      strings.TrimSpace(e.Title),
				Notes:      e.Notes,
				Start:      span.Start,
				End:        span.End,
				Creator:    e.Creator,
				CalendarID: e.Calendar,
				Color:      color,
			}
			if err := store.SaveEvent(ctx, ev); err != nil {
				return fmt.Errorf("seed event %q: %w", e.Title, err)
			}
			count++
		}
	}

	logger.Info("seed applied",
		"users", len(f.Users),
		"calendars", len(f.Calendars),
		"events", count)
	return nil
}
