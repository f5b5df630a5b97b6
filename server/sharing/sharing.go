// Package sharing manages the share token of a calendar: generation,
// rotation, revocation and redemption into a viewer membership.
package sharing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cyp0633/calshare/server/access"
	"github.com/cyp0633/calshare/server/notify"
	"github.com/cyp0633/calshare/server/outcome"
	"github.com/cyp0633/calshare/server/storage"
	"github.com/samber/mo"
)

const (
	tokenBytes = 16
	// maxAttempts bounds how often Generate draws a new token after hitting
	// one that another calendar already holds.
	maxAttempts = 3
)

// Links derives the URLs handed out with a token.
type Links struct {
	// AppOrigin is the public origin of the web app, e.g. https://cal.example.com
	AppOrigin string
	// JoinPrefix is the same-origin API path the token is appended to
	JoinPrefix string
}

// InviteURL returns <origin>/invite/<token>.
func (l Links) InviteURL(token string) string {
	return strings.TrimRight(l.AppOrigin, "/") + "/invite/" + token
}

// JoinPath returns <prefix><token>.
func (l Links) JoinPath(token string) string {
	prefix := l.JoinPrefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + token
}

// Share is the public view of an active token.
type Share struct {
	CalendarID string
	Token      string
	InviteURL  string
	JoinPath   string
}

// Redemption describes the membership that resulted from redeeming a token.
type Redemption struct {
	CalendarID   string
	CalendarName string
	Role         storage.Role
	// Joined is false when the requester already had access.
	Joined bool
}

// Manager runs the share token state machine against a calendar store.
type Manager struct {
	store    storage.CalendarStore
	links    Links
	logger   *slog.Logger
	notifier notify.Notifier
	random   io.Reader
}

// Option represents a configuration option for the Manager
type Option func(*Manager)

// WithLogger sets the logger for the manager
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier sets where committed token changes are published
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithRandom replaces the entropy source used for tokens
func WithRandom(r io.Reader) Option {
	return func(m *Manager) {
		if r != nil {
			m.random = r
		}
	}
}

// NewManager creates a share token manager
func NewManager(store storage.CalendarStore, links Links, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		links:    links,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		notifier: notify.Nop{},
		random:   rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) share(cal *storage.Calendar, token string) Share {
	return Share{
		CalendarID: cal.ID,
		Token:      token,
		InviteURL:  m.links.InviteURL(token),
		JoinPath:   m.links.JoinPath(token),
	}
}

func (m *Manager) load(ctx context.Context, calendarID string) (*storage.Calendar, *outcome.Failure) {
	cal, err := m.store.GetCalendar(ctx, calendarID)
	if err != nil {
		f := outcome.FromStore(err, "calendar not found")
		if f.Kind == outcome.Upstream {
			m.logger.Error("failed to load calendar", "calendar_id", calendarID, "error", err)
		}
		return nil, f
	}
	return cal, nil
}

func (m *Manager) newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(m.random, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// freshToken draws a token that no calendar currently holds.
func (m *Manager) freshToken(ctx context.Context) (string, *outcome.Failure) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, err := m.newToken()
		if err != nil {
			return "", &outcome.Failure{Kind: outcome.Upstream, Message: "token generation failed", Err: err}
		}
		_, err = m.store.GetCalendarByShareToken(ctx, token)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return token, nil
		case err != nil:
			return "", outcome.FromStore(err, "")
		}
		m.logger.Warn("share token collision, drawing again", "attempt", attempt)
	}
	return "", outcome.Conflictf("could not generate a unique share token")
}

// Generate returns the calendar's share token, assigning a new one when none
// exists or rotate is set. The calendar is written only when the token changes.
func (m *Manager) Generate(ctx context.Context, requester, calendarID string, rotate bool) mo.Result[Share] {
	cal, f := m.load(ctx, calendarID)
	if f != nil {
		return outcome.Fail[Share](f)
	}
	if !access.CanManageCalendar(cal, requester) {
		m.logger.Info("share token generation denied", "calendar_id", calendarID, "user_id", requester)
		return outcome.Fail[Share](outcome.Forbiddenf("only the owner can manage the share link"))
	}

	if token, ok := cal.ShareToken.Get(); ok && !rotate {
		return mo.Ok(m.share(cal, token))
	}

	token, f := m.freshToken(ctx)
	if f != nil {
		return outcome.Fail[Share](f)
	}
	cal.ShareToken = mo.Some(token)
	if err := m.store.SaveCalendar(ctx, cal); err != nil {
		m.logger.Error("failed to save share token", "calendar_id", calendarID, "error", err)
		return outcome.Fail[Share](outcome.FromStore(err, "calendar not found"))
	}

	m.logger.Info("share token generated", "calendar_id", calendarID, "rotated", rotate)
	notify.Emit(ctx, m.notifier, m.logger, notify.Change{
		Kind:       notify.ShareGenerated,
		CalendarID: cal.ID,
		Actor:      requester,
	})
	return mo.Ok(m.share(cal, token))
}

// Inspect reports the current token to anyone who can read the calendar.
// It never creates a token.
func (m *Manager) Inspect(ctx context.Context, requester, calendarID string) mo.Result[mo.Option[Share]] {
	cal, f := m.load(ctx, calendarID)
	if f != nil {
		return outcome.Fail[mo.Option[Share]](f)
	}
	if !access.CanReadCalendar(cal, requester) {
		return outcome.Fail[mo.Option[Share]](outcome.Forbiddenf("no access to this calendar"))
	}

	token, ok := cal.ShareToken.Get()
	if !ok {
		return mo.Ok(mo.None[Share]())
	}
	return mo.Ok(mo.Some(m.share(cal, token)))
}

// Revoke clears the token. Revoking a calendar without a token still succeeds.
func (m *Manager) Revoke(ctx context.Context, requester, calendarID string) mo.Result[struct{}] {
	cal, f := m.load(ctx, calendarID)
	if f != nil {
		return outcome.Fail[struct{}](f)
	}
	if !access.CanManageCalendar(cal, requester) {
		m.logger.Info("share token revocation denied", "calendar_id", calendarID, "user_id", requester)
		return outcome.Fail[struct{}](outcome.Forbiddenf("only the owner can manage the share link"))
	}

	cal.ShareToken = mo.None[string]()
	if err := m.store.SaveCalendar(ctx, cal); err != nil {
		m.logger.Error("failed to revoke share token", "calendar_id", calendarID, "error", err)
		return outcome.Fail[struct{}](outcome.FromStore(err, "calendar not found"))
	}

	m.logger.Info("share token revoked", "calendar_id", calendarID)
	notify.Emit(ctx, m.notifier, m.logger, notify.Change{
		Kind:       notify.ShareRevoked,
		CalendarID: cal.ID,
		Actor:      requester,
	})
	return mo.Ok(struct{}{})
}

// Redeem joins requester to the calendar holding token as a viewer. Owners and
// existing members are left untouched. The token stays valid afterwards.
func (m *Manager) Redeem(ctx context.Context, requester, token string) mo.Result[Redemption] {
	if token == "" {
		return outcome.Fail[Redemption](outcome.NotFoundf("invite link is invalid or expired"))
	}
	cal, err := m.store.GetCalendarByShareToken(ctx, token)
	if err != nil {
		f := outcome.FromStore(err, "invite link is invalid or expired")
		if f.Kind == outcome.Upstream {
			m.logger.Error("failed to resolve share token", "error", err)
		}
		return outcome.Fail[Redemption](f)
	}

	if role := access.EffectiveRole(cal, requester); role != storage.RoleNone {
		return mo.Ok(Redemption{CalendarID: cal.ID, CalendarName: cal.Name, Role: role})
	}

	cal.AddMember(storage.Membership{UserID: requester, Role: storage.RoleViewer})
	if err := m.store.SaveCalendar(ctx, cal); err != nil {
		m.logger.Error("failed to save membership from share token", "calendar_id", cal.ID, "error", err)
		return outcome.Fail[Redemption](outcome.FromStore(err, "calendar not found"))
	}

	m.logger.Info("share token redeemed", "calendar_id", cal.ID, "user_id", requester)
	notify.Emit(ctx, m.notifier, m.logger, notify.Change{
		Kind:       notify.ShareRedeemed,
		CalendarID: cal.ID,
		Actor:      requester,
		Subject:    requester,
		Role:       string(storage.RoleViewer),
	})
	return mo.Ok(Redemption{
		CalendarID:   cal.ID,
		CalendarName: cal.Name,
		Role:         storage.RoleViewer,
		Joined:       true,
	})
}
