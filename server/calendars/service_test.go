package calendars

import (
	"context"
	"fmt"
	"testing"
	"time"

	authmem "github.com/cyp0633/calshare/server/auth/memory"
	"github.com/cyp0633/calshare/server/notify"
	"github.com/cyp0633/calshare/server/outcome"
	"github.com/cyp0633/calshare/server/storage"
	"github.com/cyp0633/calshare/server/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc   *Service
	store *memory.Store
	users *authmem.Store
	rec   *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := authmem.New(authmem.WithCost(bcrypt.MinCost))
	for _, u := range []struct{ id, name string }{
		{"owner", "Olivia"}, {"editor", "Eli"}, {"viewer", "Vera"}, {"stranger", "Sam"},
	} {
		require.NoError(t, users.AddUser(u.id, u.name, u.id+"@example.com", "pw"))
	}

	store := memory.New()
	rec := &notify.Recorder{}
	n := 0
	svc := NewService(store, users, WithNotifier(rec), WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("cal-%d", n)
	}))
	return &fixture{svc: svc, store: store, users: users, rec: rec}
}

// team creates "Team" owned by owner with an editor and a viewer.
func (f *fixture) team(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	cal := f.svc.Create(ctx, "owner", "Team").MustGet()
	f.svc.AddMember(ctx, "owner", cal.ID, "editor@example.com", "editor").MustGet()
	f.svc.AddMember(ctx, "owner", cal.ID, "viewer@example.com", "viewer").MustGet()
	return cal.ID
}

func failureKind(t *testing.T, err error) outcome.Kind {
	t.Helper()
	require.Error(t, err)
	return outcome.KindOf(err)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cal, err := f.svc.Create(ctx, "owner", "  Team  ").Get()
	require.NoError(t, err)
	assert.Equal(t, "cal-1", cal.ID)
	assert.Equal(t, "Team", cal.Name)
	assert.Equal(t, "owner", cal.Owner)
	assert.Empty(t, cal.Members())
	assert.True(t, cal.ShareToken.IsAbsent())

	assert.Equal(t, outcome.Invalid, failureKind(t, f.svc.Create(ctx, "owner", "   ").Error()))
	assert.Equal(t, []notify.ChangeKind{notify.CalendarCreated}, f.rec.Kinds())
}

func TestOwnerOnlyAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.team(t)

	ops := map[string]func(user string) error{
		"rename":      func(u string) error { return f.svc.Rename(ctx, u, id, "Hijacked").Error() },
		"delete":      func(u string) error { return f.svc.Delete(ctx, u, id).Error() },
		"add member":  func(u string) error { return f.svc.AddMember(ctx, u, id, "stranger@example.com", "editor").Error() },
		"remove":      func(u string) error { return f.svc.RemoveMember(ctx, u, id, "viewer").Error() },
		"update role": func(u string) error { return f.svc.UpdateMemberRole(ctx, u, id, "viewer", "editor").Error() },
	}

	for name, op := range ops {
		for _, user := range []string{"editor", "viewer", "stranger"} {
			t.Run(name+"/"+user, func(t *testing.T) {
				assert.Equal(t, outcome.Forbidden, failureKind(t, op(user)))
			})
		}
	}

	cal, err := f.store.GetCalendar(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Team", cal.Name)
	assert.Len(t, cal.Members(), 2)
	m, _ := cal.Member("viewer")
	assert.Equal(t, storage.RoleViewer, m.Role)
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.team(t)

	cal, err := f.svc.Rename(ctx, "owner", id, "Core Team").Get()
	require.NoError(t, err)
	assert.Equal(t, "Core Team", cal.Name)

	assert.Equal(t, outcome.NotFound, failureKind(t, f.svc.Rename(ctx, "owner", "missing", "x").Error()))
	assert.Equal(t, outcome.Invalid, failureKind(t, f.svc.Rename(ctx, "owner", id, "").Error()))
}

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.svc.Create(ctx, "owner", "Team").MustGet().ID

	tests := []struct {
		name     string
		email    string
		role     string
		wantRole storage.Role
		wantKind outcome.Kind
	}{
		{"editor", "editor@example.com", "editor", storage.RoleEditor, ""},
		{"repeat keeps role", "editor@example.com", "viewer", storage.RoleEditor, ""},
		{"missing role defaults to viewer", "viewer@example.com", "", storage.RoleViewer, ""},
		{"invalid role defaults to viewer", "stranger@example.com", "admin", storage.RoleViewer, ""},
		{"owner's own email is a no-op", "owner@example.com", "viewer", storage.RoleOwner, ""},
		{"unknown email", "ghost@example.com", "viewer", "", outcome.NotFound},
		{"blank email", " ", "viewer", "", outcome.Invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := f.svc.AddMember(ctx, "owner", id, tt.email, tt.role).Get()
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, failureKind(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, m.Role)
		})
	}

	cal, err := f.store.GetCalendar(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []storage.Membership{
		{UserID: "editor", Role: storage.RoleEditor},
		{UserID: "viewer", Role: storage.RoleViewer},
		{UserID: "stranger", Role: storage.RoleViewer},
	}, cal.Members())
}

func TestRemoveAndUpdateMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.team(t)

	m, err := f.svc.UpdateMemberRole(ctx, "owner", id, "viewer", "editor").Get()
	require.NoError(t, err)
	assert.Equal(t, storage.RoleEditor, m.Role)

	err = f.svc.UpdateMemberRole(ctx, "owner", id, "stranger", "editor").Error()
	assert.Equal(t, outcome.NotFound, failureKind(t, err))
	assert.Contains(t, err.Error(), "member not found")

	assert.Equal(t, outcome.Invalid, failureKind(t, f.svc.UpdateMemberRole(ctx, "owner", id, "viewer", "owner").Error()))

	require.NoError(t, f.svc.RemoveMember(ctx, "owner", id, "viewer").Error())
	require.NoError(t, f.svc.RemoveMember(ctx, "owner", id, "viewer").Error(), "removing twice is a no-op")

	cal, err := f.store.GetCalendar(ctx, id)
	require.NoError(t, err)
	assert.False(t, cal.HasUser("viewer"))
}

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.team(t)

	// A member the directory no longer knows is skipped.
	cal, err := f.store.GetCalendar(ctx, id)
	require.NoError(t, err)
	cal.AddMember(storage.Membership{UserID: "deleted-user", Role: storage.RoleViewer})
	require.NoError(t, f.store.SaveCalendar(ctx, cal))

	members, err := f.svc.ListMembers(ctx, "viewer", id).Get()
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, Member{UserID: "owner", Name: "Olivia", Email: "owner@example.com", Role: storage.RoleOwner}, members[0])
	assert.Equal(t, "editor", members[1].UserID)
	assert.Equal(t, "viewer", members[2].UserID)

	assert.Equal(t, outcome.Forbidden, failureKind(t, f.svc.ListMembers(ctx, "stranger", id).Error()))
}

func TestLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.team(t)

	err := f.svc.Leave(ctx, "owner", id).Error()
	assert.Equal(t, outcome.Forbidden, failureKind(t, err))
	assert.Equal(t, OwnerCannotLeave, outcome.As(err).Message)

	solo := f.svc.Create(ctx, "owner", "Solo").MustGet()
	err = f.svc.Leave(ctx, "owner", solo.ID).Error()
	assert.Equal(t, OwnerCannotLeave, outcome.As(err).Message, "rejected regardless of membership size")

	require.NoError(t, f.svc.Leave(ctx, "editor", id).Error())
	require.NoError(t, f.svc.Leave(ctx, "stranger", id).Error(), "leaving without membership is a no-op")

	cal, err := f.store.GetCalendar(ctx, id)
	require.NoError(t, err)
	assert.False(t, cal.HasUser("editor"))
	assert.True(t, cal.HasUser("viewer"))
}

func TestListForUserAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.team(t)
	f.svc.Create(ctx, "stranger", "Sam's Garden").MustGet()

	list, err := f.svc.ListForUser(ctx, "editor").Get()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, Summary{ID: id, Name: "Team", Owner: "owner", Role: storage.RoleEditor}, list[0])

	list, err = f.svc.ListForUser(ctx, "nobody").Get()
	require.NoError(t, err)
	assert.Empty(t, list)

	hits, err := f.svc.Search(ctx, "gARD").Get()
	require.NoError(t, err)
	assert.Equal(t, []SearchHit{{ID: "cal-2", Name: "Sam's Garden"}}, hits)

	hits, err = f.svc.Search(ctx, "nothing matches").Get()
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDefaultCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, outcome.NotFound, failureKind(t, f.svc.DefaultCalendar(ctx, "owner").Error()))

	id := f.team(t)
	cal, err := f.svc.DefaultCalendar(ctx, "viewer").Get()
	require.NoError(t, err)
	assert.Equal(t, id, cal.ID)
}

func TestDeleteCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.team(t)
	start := time.Date(2025, 11, 26, 16, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ev := storage.NewMockEvent(fmt.Sprintf("e%d", i), id, "owner", "Standup", start.AddDate(0, 0, i))
		require.NoError(t, f.store.SaveEvent(ctx, ev))
	}

	require.NoError(t, f.svc.Delete(ctx, "owner", id).Error())

	evs, err := f.store.ListEvents(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, evs)
	list := f.svc.ListForUser(ctx, "owner").MustGet()
	assert.Empty(t, list)
	assert.Equal(t, outcome.NotFound, failureKind(t, f.svc.Delete(ctx, "owner", id).Error()))
}

func TestDeleteStopsWhenCascadeFails(t *testing.T) {
	ctx := context.Background()
	st := new(storage.MockStorage)
	st.On("GetCalendar", ctx, "team").Return(storage.NewMockCalendar("team", "Team", "owner"), nil)
	st.On("DeleteEventsByCalendar", ctx, "team").Return(storage.ErrUnavailable)

	svc := NewService(st, new(storage.MockDirectory))
	err := svc.Delete(ctx, "owner", "team").Error()
	assert.Equal(t, outcome.Upstream, failureKind(t, err))
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	st.AssertExpectations(t)
	st.AssertNotCalled(t, "DeleteCalendar", mock.Anything, mock.Anything)
}

func TestDirectoryFailureIsUpstream(t *testing.T) {
	ctx := context.Background()
	st := new(storage.MockStorage)
	st.On("GetCalendar", ctx, "team").Return(storage.NewMockCalendar("team", "Team", "owner"), nil)
	dir := new(storage.MockDirectory)
	dir.On("FindByEmail", ctx, "x@example.com").Return(nil, storage.ErrUnavailable)

	svc := NewService(st, dir)
	assert.Equal(t, outcome.Upstream, failureKind(t, svc.AddMember(ctx, "owner", "team", "x@example.com", "viewer").Error()))
	st.AssertNotCalled(t, "SaveCalendar", mock.Anything, mock.Anything)
}
