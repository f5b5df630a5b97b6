package assistant

import (
	"context"
	"testing"
	"time"

	authmem "github.com/cyp0633/calshare/server/auth/memory"
	"github.com/cyp0633/calshare/server/calendars"
	"github.com/cyp0633/calshare/server/events"
	"github.com/cyp0633/calshare/server/outcome"
	"github.com/cyp0633/calshare/server/storage/memory"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var seoul = time.FixedZone("KST", 9*60*60)

type fixture struct {
	assistant *Assistant
	cals      *calendars.Service
	events    *events.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := authmem.New(authmem.WithCost(bcrypt.MinCost))
	require.NoError(t, users.AddUser("alice", "Alice", "alice@example.com", "pw"))
	require.NoError(t, users.AddUser("bob", "Bob", "bob@example.com", "pw"))

	store := memory.New()
	cals := calendars.NewService(store, users)
	evs := events.NewService(store)
	now := time.Date(2025, 11, 26, 23, 30, 0, 0, time.UTC) // already the 27th in Seoul
	return &fixture{
		assistant: New(cals, evs, WithLocation(seoul), WithClock(func() time.Time { return now })),
		cals:      cals,
		events:    evs,
	}
}

func failureKind(t *testing.T, err error) outcome.Kind {
	t.Helper()
	require.Error(t, err)
	return outcome.KindOf(err)
}

func TestCommandWhen(t *testing.T) {
	now := time.Date(2025, 11, 26, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cmd     Command
		want    time.Time
		wantErr bool
	}{
		{"explicit", Command{Date: "2025-12-01", Time: "14:30"}, time.Date(2025, 12, 1, 14, 30, 0, 0, seoul), false},
		{"default time", Command{Date: "2025-12-01"}, time.Date(2025, 12, 1, 9, 0, 0, 0, seoul), false},
		{"default date is today in zone", Command{Time: "08:00"}, time.Date(2025, 11, 27, 8, 0, 0, 0, seoul), false},
		{"bad date", Command{Date: "next thursday"}, time.Time{}, true},
		{"bad time", Command{Date: "2025-12-01", Time: "25:00"}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.When(seoul, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestAddUsesDefaultCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.assistant.Execute(ctx, "alice", Command{Action: ActionAdd, Title: "Dentist", Date: "2025-12-01", Time: "10:00"}).Error()
	assert.Equal(t, outcome.NotFound, failureKind(t, err), "no calendar yet")

	cal := f.cals.Create(ctx, "alice", "Personal").MustGet()
	reply, err := f.assistant.Execute(ctx, "alice", Command{
		Action: ActionAdd, Title: "Dentist", Date: "2025-12-01", Time: "10:00", Details: "bring card",
	}).Get()
	require.NoError(t, err)
	require.Len(t, reply.Events, 1)
	ev := reply.Events[0]
	assert.Equal(t, cal.ID, ev.CalendarID)
	assert.Equal(t, "bring card", ev.Notes)
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
	assert.True(t, ev.Start.Equal(time.Date(2025, 12, 1, 10, 0, 0, 0, seoul)))
}

func TestWeeklyRepeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cal := f.cals.Create(ctx, "alice", "Gym").MustGet()

	reply, err := f.assistant.Execute(ctx, "alice", Command{
		Action: ActionAdd, Title: "Swim", Date: "2025-12-02", Time: "07:00",
		CalendarID: cal.ID, Repeat: "weekly", RepeatCount: 4,
	}).Get()
	require.NoError(t, err)
	require.Len(t, reply.Events, 4)
	assert.True(t, reply.Events[3].Start.Equal(time.Date(2025, 12, 23, 7, 0, 0, 0, seoul)))

	evs := f.events.List(ctx, "alice", mo.Some(cal.ID)).MustGet()
	assert.Len(t, evs, 4)
}

func TestUpdateAndDeleteRespectAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cal := f.cals.Create(ctx, "alice", "Team").MustGet()
	f.cals.AddMember(ctx, "alice", cal.ID, "bob@example.com", "viewer").MustGet()

	base := Command{Title: "Standup", Date: "2025-12-01", Time: "09:30", CalendarID: cal.ID}
	add := base
	add.Action = ActionAdd
	f.assistant.Execute(ctx, "alice", add).MustGet()

	upd := base
	upd.Action = ActionUpdate
	upd.Details = "agenda attached"
	assert.Equal(t, outcome.Forbidden, failureKind(t, f.assistant.Execute(ctx, "bob", upd).Error()), "viewers cannot edit through the assistant")

	reply, err := f.assistant.Execute(ctx, "alice", upd).Get()
	require.NoError(t, err)
	assert.Equal(t, "agenda attached", reply.Events[0].Notes)

	del := base
	del.Action = ActionDelete
	assert.Equal(t, outcome.Forbidden, failureKind(t, f.assistant.Execute(ctx, "bob", del).Error()))
	require.NoError(t, f.assistant.Execute(ctx, "alice", del).Error())
	assert.Equal(t, outcome.NotFound, failureKind(t, f.assistant.Execute(ctx, "alice", del).Error()))
}

func TestRemovedCreatorKeepsOwnEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cal := f.cals.Create(ctx, "alice", "Team").MustGet()
	f.cals.AddMember(ctx, "alice", cal.ID, "bob@example.com", "editor").MustGet()

	base := Command{Title: "Retro", Date: "2025-12-02", Time: "16:00", CalendarID: cal.ID}
	add := base
	add.Action = ActionAdd
	f.assistant.Execute(ctx, "bob", add).MustGet()
	f.cals.RemoveMember(ctx, "alice", cal.ID, "bob").MustGet()

	upd := base
	upd.Action = ActionUpdate
	upd.Details = "moved online"
	reply, err := f.assistant.Execute(ctx, "bob", upd).Get()
	require.NoError(t, err)
	assert.Equal(t, "moved online", reply.Events[0].Notes)

	del := base
	del.Action = ActionDelete
	require.NoError(t, f.assistant.Execute(ctx, "bob", del).Error())

	missing := base
	missing.Action = ActionDelete
	missing.Title = "Nothing here"
	assert.Equal(t, outcome.Forbidden, failureKind(t, f.assistant.Execute(ctx, "bob", missing).Error()))
}

func TestOtherActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.assistant.Execute(ctx, "alice", Command{Action: ActionRecommend}).Get()
	require.NoError(t, err)
	assert.Equal(t, recommendation, reply.Message)

	reply, err = f.assistant.Execute(ctx, "alice", Command{Action: ActionCreateCalendar, Title: "Trips"}).Get()
	require.NoError(t, err)
	require.NotNil(t, reply.Calendar)
	assert.Equal(t, "alice", reply.Calendar.Owner)

	assert.Equal(t, outcome.Invalid, failureKind(t, f.assistant.Execute(ctx, "alice", Command{Action: "dance"}).Error()))
	assert.Equal(t, outcome.Invalid, failureKind(t, f.assistant.Execute(ctx, "alice", Command{Action: ActionAdd, Title: "x", Date: "tomorrow"}).Error()))
}
