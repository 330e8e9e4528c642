// ABOUTME: Tests for the access control engine over the mock platform
// ABOUTME: Covers room location, validation, lock toggling, claim, and two-phase kicks

package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/tempvoice/internal/platform"
	"github.com/2389/tempvoice/internal/store"
)

const guildID = "guild-1"

type staticConfigs map[string]store.CommunityConfig

func (s staticConfigs) Get(id string) (store.CommunityConfig, bool) {
	cfg, ok := s[id]
	return cfg, ok
}

type fixture struct {
	engine *Engine
	mock   *platform.MockPlatform
	cfg    store.CommunityConfig
	roomID string
}

// newFixture builds a community with one provisioned room owned by "owner",
// occupied by owner, guest, and a bot.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	mock := platform.NewMockPlatform()
	mock.AddChannel(&platform.Channel{ID: "cat", GuildID: guildID, Kind: platform.KindCategory})
	mock.AddChannel(&platform.Channel{ID: "join", GuildID: guildID, ParentID: "cat", Kind: platform.KindVoice})
	mock.AddChannel(&platform.Channel{ID: "iface", GuildID: guildID, ParentID: "cat", Kind: platform.KindText})
	mock.AddChannel(&platform.Channel{ID: "elsewhere", GuildID: guildID, Kind: platform.KindVoice})
	mock.AddChannel(&platform.Channel{
		ID:       "room",
		GuildID:  guildID,
		ParentID: "cat",
		Name:     "Owner's Room",
		Kind:     platform.KindVoice,
		Overwrites: []platform.Overwrite{
			{PrincipalID: "owner", Kind: platform.PrincipalMember, Allow: OwnerGrant()},
			{PrincipalID: guildID, Kind: platform.PrincipalRole, Allow: platform.PermView | platform.PermConnect},
		},
	})

	for _, m := range []platform.Member{
		{ID: "owner", DisplayName: "Owner"},
		{ID: "guest", DisplayName: "Guest"},
		{ID: "third", DisplayName: "Third"},
		{ID: "robot", DisplayName: "Robot", Bot: true},
	} {
		mock.AddMember(guildID, m)
	}
	mock.Join(guildID, "owner", "room")
	mock.Join(guildID, "guest", "room")
	mock.Join(guildID, "robot", "room")

	cfg := store.CommunityConfig{CategoryID: "cat", JoinChannelID: "join", InterfaceChannelID: "iface"}
	engine := NewEngine(staticConfigs{guildID: cfg}, mock, nil)

	return &fixture{engine: engine, mock: mock, cfg: cfg, roomID: "room"}
}

func (f *fixture) locate(t *testing.T, userID string) *Room {
	t.Helper()
	room, err := f.engine.Locate(context.Background(), guildID, userID)
	require.NoError(t, err)
	return room
}

func TestLocate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room := f.locate(t, "guest")
	assert.Equal(t, "room", room.Channel.ID)
	assert.Equal(t, f.cfg, room.Config)

	tests := []struct {
		name    string
		guild   string
		user    string
		channel string
	}{
		{"not in voice", guildID, "third", ""},
		{"in spawner", guildID, "third", "join"},
		{"outside category", guildID, "third", "elsewhere"},
		{"unconfigured community", "guild-2", "third", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.mock.Join(guildID, "third", tt.channel)
			_, err := f.engine.Locate(ctx, tt.guild, tt.user)
			assert.ErrorIs(t, err, ErrNotInRoom)
		})
	}
}

func TestLocate_PlatformFailure(t *testing.T) {
	f := newFixture(t)
	f.mock.FailOn("MemberChannel", errors.New("gateway down"))

	_, err := f.engine.Locate(context.Background(), guildID, "guest")
	assert.True(t, platform.IsCollaboratorError(err))
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.locate(t, "owner")

	name, err := f.engine.Rename(ctx, room, "  Late Night  ")
	require.NoError(t, err)
	assert.Equal(t, "Late Night", name)

	ch, err := f.mock.Channel(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, "Late Night", ch.Name)
}

func TestRename_Validation(t *testing.T) {
	f := newFixture(t)
	room := f.locate(t, "owner")

	for _, name := range []string{"", "x", " y ", string(make([]rune, 101))} {
		_, err := f.engine.Rename(context.Background(), room, name)
		assert.True(t, IsValidation(err), "name %q", name)
	}
	assert.Equal(t, 0, f.mock.Calls("EditChannelName"), "no platform call on invalid input")
}

func TestRename_PlatformFailure(t *testing.T) {
	f := newFixture(t)
	room := f.locate(t, "owner")
	f.mock.FailOn("EditChannelName", errors.New("missing access"))

	_, err := f.engine.Rename(context.Background(), room, "New Name")
	assert.True(t, platform.IsCollaboratorError(err))
}

func TestSetLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.locate(t, "owner")

	for _, raw := range []string{"0", "99", " 7 "} {
		_, err := f.engine.SetLimit(ctx, room, raw)
		require.NoError(t, err, "limit %q", raw)
	}

	ch, err := f.mock.Channel(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, 7, ch.UserLimit)
}

func TestSetLimit_RejectsOutOfRange(t *testing.T) {
	f := newFixture(t)
	room := f.locate(t, "owner")

	for _, raw := range []string{"-1", "100", "abc", "", "4.5"} {
		_, err := f.engine.SetLimit(context.Background(), room, raw)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "limit %q", raw)
		assert.Equal(t, "limit", ve.Field)
	}
	assert.Equal(t, 0, f.mock.Calls("EditChannelLimit"))
}

func TestToggleLock_IsItsOwnInverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room := f.locate(t, "owner")
	require.False(t, IsLocked(room.Channel, guildID))

	locked, err := f.engine.ToggleLock(ctx, room)
	require.NoError(t, err)
	assert.True(t, locked)

	room = f.locate(t, "owner")
	assert.True(t, IsLocked(room.Channel, guildID))
	perms, err := f.mock.PermissionsFor(ctx, "room", "third")
	require.NoError(t, err)
	assert.False(t, perms.Has(platform.PermConnect), "everyone lost connect")

	locked, err = f.engine.ToggleLock(ctx, room)
	require.NoError(t, err)
	assert.False(t, locked)

	room = f.locate(t, "owner")
	assert.False(t, IsLocked(room.Channel, guildID))
	ow, _ := room.Channel.Overwrite(guildID)
	assert.True(t, ow.Allow.Has(platform.PermView), "unrelated grants survive")
}

func TestToggleLock_WithoutEveryoneOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mock.AddChannel(&platform.Channel{ID: "bare", GuildID: guildID, ParentID: "cat", Kind: platform.KindVoice})
	f.mock.Join(guildID, "third", "bare")

	room := f.locate(t, "third")
	locked, err := f.engine.ToggleLock(ctx, room)
	require.NoError(t, err)
	assert.True(t, locked)

	room = f.locate(t, "third")
	ow, ok := room.Channel.Overwrite(guildID)
	require.True(t, ok)
	assert.Equal(t, platform.PrincipalRole, ow.Kind)
}

func TestClaim_GrantsKickAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mock.Join(guildID, "third", "room")

	room := f.locate(t, "guest")
	_, err := f.engine.ExecuteKick(ctx, room, "guest", "third")
	assert.ErrorIs(t, err, ErrNotAuthorized, "unclaimed occupant cannot kick")

	require.NoError(t, f.engine.Claim(ctx, room, "guest"))

	room = f.locate(t, "guest")
	target, err := f.engine.ExecuteKick(ctx, room, "guest", "third")
	require.NoError(t, err)
	assert.Equal(t, "Third", target.DisplayName)

	// Claim does not take anything away from the original owner.
	perms, err := f.mock.PermissionsFor(ctx, "room", "owner")
	require.NoError(t, err)
	assert.True(t, perms.Has(OwnerGrant()))
}

func TestClaim_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room := f.locate(t, "guest")
	require.NoError(t, f.engine.Claim(ctx, room, "guest"))
	room = f.locate(t, "guest")
	require.NoError(t, f.engine.Claim(ctx, room, "guest"))

	room = f.locate(t, "guest")
	ow, ok := room.Channel.Overwrite("guest")
	require.True(t, ok)
	assert.Equal(t, OwnerGrant(), ow.Allow)
	assert.Len(t, room.Channel.Overwrites, 3)
}

func TestKickCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.locate(t, "owner")

	candidates, err := f.engine.KickCandidates(ctx, room, "owner")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "guest", candidates[0].ID, "bots and the caller are excluded")

	f.mock.Join(guildID, "guest", "")
	_, err = f.engine.KickCandidates(ctx, room, "owner")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestExecuteKick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mock.Join(guildID, "third", "room")

	room := f.locate(t, "owner")
	_, err := f.engine.ExecuteKick(ctx, room, "owner", "third")
	require.NoError(t, err)

	cur, err := f.mock.MemberChannel(ctx, guildID, "third")
	require.NoError(t, err)
	assert.Empty(t, cur)
}

func TestExecuteKick_TargetLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mock.Join(guildID, "third", "room")
	room := f.locate(t, "owner")

	// Target wanders off between list and select.
	f.mock.Join(guildID, "third", "elsewhere")

	_, err := f.engine.ExecuteKick(ctx, room, "owner", "third")
	assert.ErrorIs(t, err, ErrTargetGone)
	assert.Equal(t, 0, f.mock.Calls("MoveMember"), "no retry, no move")
}

func TestExecuteKick_MoveFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.locate(t, "owner")
	f.mock.FailOn("MoveMember", errors.New("missing permissions"))

	_, err := f.engine.ExecuteKick(ctx, room, "owner", "guest")
	assert.True(t, platform.IsCollaboratorError(err))
	assert.Equal(t, 1, f.mock.Calls("MoveMember"))
}

func TestParseLimitAndValidateName(t *testing.T) {
	limit, err := ParseLimit("42")
	require.NoError(t, err)
	assert.Equal(t, 42, limit)

	name, err := ValidateName("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", name)

	_, err = ValidateName("é")
	assert.True(t, IsValidation(err), "length counts characters, not bytes")
}

func TestConfigured(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.engine.Configured(guildID))
	assert.False(t, f.engine.Configured("guild-2"))
}
