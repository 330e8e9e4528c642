// ABOUTME: Tests for room provisioning and reaping over the mock platform
// ABOUTME: Uses an injected clock for cooldowns and a move hook to sweep while a room awaits its creator

package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/2389/tempvoice/internal/access"
	"github.com/2389/tempvoice/internal/cooldown"
	"github.com/2389/tempvoice/internal/metrics"
	"github.com/2389/tempvoice/internal/platform"
	"github.com/2389/tempvoice/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const guildID = "guild-1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	manager *Manager
	mock    *platform.MockPlatform
	clock   *fakeClock
	cfg     store.CommunityConfig
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	mock := platform.NewMockPlatform()
	mock.AddChannel(&platform.Channel{ID: "cat", GuildID: guildID, Kind: platform.KindCategory})
	mock.AddChannel(&platform.Channel{ID: "join", GuildID: guildID, ParentID: "cat", Kind: platform.KindVoice})
	mock.AddChannel(&platform.Channel{ID: "iface", GuildID: guildID, ParentID: "cat", Kind: platform.KindText})
	mock.AddMember(guildID, platform.Member{ID: "alice", DisplayName: "Alice"})
	mock.AddMember(guildID, platform.Member{ID: "bob", DisplayName: "Bob"})

	cfg := store.CommunityConfig{CategoryID: "cat", JoinChannelID: "join", InterfaceChannelID: "iface"}
	configs := store.Open(ctx, store.NewMockBackend(map[string]store.CommunityConfig{guildID: cfg}), nil)

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	limiter := cooldown.New(cooldown.DefaultWindows(), cooldown.WithClock(clock.Now))
	t.Cleanup(limiter.Close)

	return &fixture{
		manager: NewManager(configs, mock, limiter, nil, append([]Option{WithClock(clock.Now)}, opts...)...),
		mock:    mock,
		clock:   clock,
		cfg:     cfg,
	}
}

// enterSpawner mimics the platform: the member is in the spawner when the
// event is delivered, and the event for the new room follows a successful move.
func (f *fixture) enterSpawner(t *testing.T, userID, display string) error {
	t.Helper()
	if err := f.requestRoom(t, userID, display); err != nil {
		return err
	}
	return f.arrive(userID, f.channelOf(t, userID))
}

// requestRoom delivers only the spawner event.
func (f *fixture) requestRoom(t *testing.T, userID, display string) error {
	t.Helper()
	f.mock.Join(guildID, userID, "join")
	return f.manager.HandleJoin(context.Background(), VoiceStateEvent{
		GuildID:     guildID,
		UserID:      userID,
		ChannelID:   "join",
		DisplayName: display,
	})
}

func (f *fixture) arrive(userID, channelID string) error {
	return f.manager.HandleJoin(context.Background(), VoiceStateEvent{GuildID: guildID, UserID: userID, ChannelID: channelID})
}

func (f *fixture) rooms() []*platform.Channel {
	var out []*platform.Channel
	for _, ch := range f.mock.Channels(guildID) {
		if ch.Kind == platform.KindVoice && ch.ParentID == "cat" && ch.ID != "join" {
			out = append(out, ch)
		}
	}
	return out
}

func (f *fixture) channelOf(t *testing.T, userID string) string {
	t.Helper()
	id, err := f.mock.MemberChannel(context.Background(), guildID, userID)
	require.NoError(t, err)
	return id
}

func TestHandleJoin_IgnoresIrrelevantEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events := []VoiceStateEvent{
		{GuildID: "guild-2", UserID: "alice", ChannelID: "join"},
		{GuildID: guildID, UserID: "alice", ChannelID: "iface"},
		{GuildID: guildID, UserID: "alice", ChannelID: ""},
	}
	for _, ev := range events {
		require.NoError(t, f.manager.HandleJoin(ctx, ev))
	}

	assert.Empty(t, f.rooms())
	assert.Equal(t, 0, f.mock.Calls("CreateVoiceChannel"))
}

func TestHandleJoin_CreatesRoomAndMovesCreator(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.enterSpawner(t, "alice", "Alice"))

	rooms := f.rooms()
	require.Len(t, rooms, 1)
	room := rooms[0]
	assert.Equal(t, "Alice's Room", room.Name)
	assert.Equal(t, "cat", room.ParentID)
	assert.Equal(t, room.ID, f.channelOf(t, "alice"))

	owner, ok := room.Overwrite("alice")
	require.True(t, ok)
	assert.Equal(t, access.OwnerGrant(), owner.Allow)
	assert.Equal(t, platform.PrincipalMember, owner.Kind)

	everyone, ok := room.Overwrite(platform.Everyone(guildID))
	require.True(t, ok)
	assert.Equal(t, platform.PermView|platform.PermConnect, everyone.Allow)
	assert.Zero(t, everyone.Deny)
}

func TestHandleJoin_NameTemplateAndFallbacks(t *testing.T) {
	f := newFixture(t, WithNameTemplate("🔊 %s"))

	// No display name on the event: looked up from the member.
	require.NoError(t, f.enterSpawner(t, "bob", ""))
	rooms := f.rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, "🔊 Bob", rooms[0].Name)

	long := strings.Repeat("x", 150)
	require.NoError(t, f.enterSpawner(t, "alice", long))
	for _, ch := range f.rooms() {
		assert.LessOrEqual(t, len([]rune(ch.Name)), access.MaxNameLength)
	}
}

func TestHandleJoin_ThrottlesRepeatCreation(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.enterSpawner(t, "alice", "Alice"))
	first := f.channelOf(t, "alice")

	f.clock.Advance(5 * time.Second)
	err := f.enterSpawner(t, "alice", "Alice")

	var throttled *cooldown.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Equal(t, 10, throttled.Remaining)

	assert.Len(t, f.rooms(), 1, "no second room")
	assert.Empty(t, f.channelOf(t, "alice"), "moved out of the spawner")
	assert.Equal(t, []string{"⏳ Please wait 10 seconds before creating another voice channel!"}, f.mock.Notices("alice"))
	assert.NotEqual(t, first, f.channelOf(t, "alice"))

	f.clock.Advance(10 * time.Second)
	require.NoError(t, f.enterSpawner(t, "alice", "Alice"))
	assert.Len(t, f.rooms(), 2)
}

func TestHandleJoin_ThrottleNoticeFailureStillEvicts(t *testing.T) {
	f := newFixture(t)
	f.mock.FailOn("SendPrivateNotice", errors.New("cannot send messages to this user"))

	require.NoError(t, f.enterSpawner(t, "alice", "Alice"))
	err := f.enterSpawner(t, "alice", "Alice")

	var throttled *cooldown.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Empty(t, f.channelOf(t, "alice"))
}

func TestHandleJoin_CooldownIsPerUser(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.enterSpawner(t, "alice", "Alice"))
	require.NoError(t, f.enterSpawner(t, "bob", "Bob"))
	assert.Len(t, f.rooms(), 2)
}

func TestHandleJoin_CreateFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, WithMetrics(metrics.New(reg)))
	f.mock.FailOn("CreateVoiceChannel", errors.New("missing permissions"))

	err := f.enterSpawner(t, "alice", "Alice")
	assert.True(t, platform.IsCollaboratorError(err))
	assert.Equal(t, "join", f.channelOf(t, "alice"), "left in place")
	assert.Equal(t, 0, f.mock.Calls("MoveMember"), "no retry")
	assert.Equal(t, 1, f.mock.Calls("CreateVoiceChannel"))

	expected := `
# HELP tempvoice_room_create_failures_total room provisioning attempts that failed at the platform
# TYPE tempvoice_room_create_failures_total counter
tempvoice_room_create_failures_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tempvoice_room_create_failures_total"))
}

func TestHandleJoin_MoveFailureLeavesRoomForReaper(t *testing.T) {
	f := newFixture(t)
	f.mock.FailOn("MoveMember:alice", errors.New("member left voice"))

	err := f.enterSpawner(t, "alice", "Alice")
	assert.True(t, platform.IsCollaboratorError(err))
	require.Len(t, f.rooms(), 1)

	res := f.manager.Sweep(context.Background())
	assert.Equal(t, 1, res.Deleted)
	assert.Empty(t, f.rooms())
}

func TestSweep_DeletesOnlyEmptyRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.enterSpawner(t, "alice", "Alice"))
	require.NoError(t, f.enterSpawner(t, "bob", "Bob"))
	bobRoom := f.channelOf(t, "bob")

	// Bob leaves; his room is now empty. Nobody is in the spawner.
	f.mock.Join(guildID, "bob", "")

	res := f.manager.Sweep(ctx)
	assert.Equal(t, SweepResult{Deleted: 1}, res)

	_, err := f.mock.Channel(ctx, bobRoom)
	assert.ErrorIs(t, err, platform.ErrUnknownChannel)
	_, err = f.mock.Channel(ctx, "join")
	assert.NoError(t, err, "spawner is never reaped")
	_, err = f.mock.Channel(ctx, "iface")
	assert.NoError(t, err, "text channels are never reaped")
	assert.Len(t, f.rooms(), 1)
}

func TestSweep_BotOccupantKeepsRoom(t *testing.T) {
	f := newFixture(t)
	f.mock.AddChannel(&platform.Channel{ID: "music", GuildID: guildID, ParentID: "cat", Kind: platform.KindVoice})
	f.mock.AddMember(guildID, platform.Member{ID: "dj", DisplayName: "DJ", Bot: true})
	f.mock.Join(guildID, "dj", "music")

	res := f.manager.Sweep(context.Background())
	assert.Zero(t, res.Deleted)
}

func TestSweep_FailureDoesNotAbortScan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		f.mock.AddChannel(&platform.Channel{ID: id, GuildID: guildID, ParentID: "cat", Kind: platform.KindVoice})
	}
	f.mock.FailOn("DeleteChannel:r2", errors.New("unknown channel"))

	res := f.manager.Sweep(ctx)
	assert.Equal(t, SweepResult{Deleted: 2, Failed: 1}, res)

	_, err := f.mock.Channel(ctx, "r2")
	assert.NoError(t, err)
	_, err = f.mock.Channel(ctx, "r3")
	assert.ErrorIs(t, err, platform.ErrUnknownChannel)
}

func TestSweep_SkipsRoomAwaitingCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var during SweepResult
	f.mock.SetMoveHook(func(_, userID, channelID string) {
		if channelID != "" {
			during = f.manager.Sweep(ctx)
		}
	})

	require.NoError(t, f.enterSpawner(t, "alice", "Alice"))
	assert.Zero(t, during.Deleted, "room was not reaped before its creator arrived")
	assert.NotEmpty(t, f.channelOf(t, "alice"))
	assert.Len(t, f.rooms(), 1)
}

func TestSweep_LaggingMemberCacheKeepsRoomUntilCreatorEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.requestRoom(t, "alice", "Alice"))
	room := f.channelOf(t, "alice")

	// The cache has not caught up with the move yet.
	f.mock.Join(guildID, "alice", "")
	assert.Zero(t, f.manager.Sweep(ctx).Deleted)

	// Someone else's event for the room does not release it.
	require.NoError(t, f.arrive("bob", room))
	assert.Zero(t, f.manager.Sweep(ctx).Deleted)

	require.NoError(t, f.arrive("alice", room))
	f.mock.Join(guildID, "alice", "")
	assert.Equal(t, 1, f.manager.Sweep(ctx).Deleted)
	assert.Empty(t, f.rooms())
}

func TestSweep_PendingRoomExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.requestRoom(t, "alice", "Alice"))
	f.mock.Join(guildID, "alice", "")

	f.clock.Advance(PendingGrace - time.Second)
	assert.Zero(t, f.manager.Sweep(ctx).Deleted)

	f.clock.Advance(time.Second)
	assert.Equal(t, 1, f.manager.Sweep(ctx).Deleted)
}

func TestSweep_MissingCategory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mock.DeleteChannel(context.Background(), "cat"))

	res := f.manager.Sweep(context.Background())
	assert.Equal(t, SweepResult{}, res)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.mock.AddChannel(&platform.Channel{ID: "stale", GuildID: guildID, ParentID: "cat", Kind: platform.KindVoice})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.manager.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := f.mock.Channel(context.Background(), "stale")
		return errors.Is(err, platform.ErrUnknownChannel)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
