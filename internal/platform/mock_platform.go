// ABOUTME: In-memory Platform implementation for testing
// ABOUTME: Models channels, voice presence, overwrites, and injectable call failures

package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultBasePermissions is what a member holds community-wide unless a test
// says otherwise.
const DefaultBasePermissions = PermView | PermConnect | PermSendMessages

// MockPlatform is an in-memory Platform for tests. Failures can be injected
// per operation with FailOn.
type MockPlatform struct {
	mu       sync.Mutex
	nextID   int
	channels map[string]*Channel          // keyed by channel ID
	members  map[string]map[string]Member // guildID -> userID -> member
	voice    map[string]map[string]string // guildID -> userID -> channelID
	base     map[string]Permission        // userID -> community-wide permissions
	notices  map[string][]string          // userID -> private notices
	panels   map[string]string            // channelID -> current panel message ID
	failures map[string]error             // operation key -> error
	calls    map[string]int               // operation name -> call count
	moveHook func(guildID, userID, channelID string)
}

// NewMockPlatform creates an empty MockPlatform.
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		channels: make(map[string]*Channel),
		members:  make(map[string]map[string]Member),
		voice:    make(map[string]map[string]string),
		base:     make(map[string]Permission),
		notices:  make(map[string][]string),
		panels:   make(map[string]string),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Test setup helpers

// AddMember registers a member of guildID.
func (m *MockPlatform) AddMember(guildID string, member Member) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.members[guildID] == nil {
		m.members[guildID] = make(map[string]Member)
	}
	m.members[guildID][member.ID] = member
}

// AddChannel inserts a channel as-is, bypassing the create calls.
func (m *MockPlatform) AddChannel(ch *Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.ID] = cloneChannel(ch)
}

// SetBasePermissions overrides the community-wide permissions of userID.
func (m *MockPlatform) SetBasePermissions(userID string, perms Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base[userID] = perms
}

// Join places userID into a voice channel without going through MoveMember
// and without firing the move hook. An empty channelID leaves voice.
func (m *MockPlatform) Join(guildID, userID, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setVoiceLocked(guildID, userID, channelID)
}

// FailOn makes the operation identified by key return err. Keys are either
// an operation name ("DeleteChannel") or an operation scoped to an id
// ("DeleteChannel:chan-3"). A nil err clears the failure.
func (m *MockPlatform) FailOn(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

// SetMoveHook registers fn to run (outside the lock) before every MoveMember.
func (m *MockPlatform) SetMoveHook(fn func(guildID, userID, channelID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveHook = fn
}

// Inspection helpers

// Notices returns the private notices sent to userID.
func (m *MockPlatform) Notices(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.notices[userID]...)
}

// Calls returns how many times op was invoked, failed calls included.
func (m *MockPlatform) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// PanelMessage returns the current panel message ID for channelID.
func (m *MockPlatform) PanelMessage(channelID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.panels[channelID]
}

// Channels returns every channel of guildID, ordered by ID.
func (m *MockPlatform) Channels(guildID string) []*Channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Channel
	for _, ch := range m.channels {
		if ch.GuildID == guildID {
			out = append(out, cloneChannel(ch))
		}
	}
	sortChannels(out)
	return out
}

// Platform implementation

func (m *MockPlatform) CreateCategory(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error) {
	return m.create("CreateCategory", guildID, KindCategory, spec)
}

func (m *MockPlatform) CreateVoiceChannel(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error) {
	return m.create("CreateVoiceChannel", guildID, KindVoice, spec)
}

func (m *MockPlatform) CreateTextChannel(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error) {
	return m.create("CreateTextChannel", guildID, KindText, spec)
}

func (m *MockPlatform) create(op, guildID string, kind ChannelKind, spec ChannelSpec) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked(op, guildID); err != nil {
		return nil, err
	}
	if spec.ParentID != "" {
		if _, ok := m.channels[spec.ParentID]; !ok {
			return nil, ErrUnknownChannel
		}
	}

	m.nextID++
	ch := &Channel{
		ID:         fmt.Sprintf("chan-%d", m.nextID),
		GuildID:    guildID,
		ParentID:   spec.ParentID,
		Name:       spec.Name,
		Kind:       kind,
		Overwrites: append([]Overwrite(nil), spec.Overwrites...),
	}
	m.channels[ch.ID] = ch
	return cloneChannel(ch), nil
}

func (m *MockPlatform) DeleteChannel(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("DeleteChannel", channelID); err != nil {
		return err
	}
	ch, ok := m.channels[channelID]
	if !ok {
		return nil
	}
	delete(m.channels, channelID)
	for userID, cur := range m.voice[ch.GuildID] {
		if cur == channelID {
			delete(m.voice[ch.GuildID], userID)
		}
	}
	return nil
}

func (m *MockPlatform) Channel(ctx context.Context, channelID string) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("Channel", channelID); err != nil {
		return nil, err
	}
	ch, ok := m.channels[channelID]
	if !ok {
		return nil, ErrUnknownChannel
	}
	return cloneChannel(ch), nil
}

func (m *MockPlatform) ChildChannels(ctx context.Context, guildID, parentID string) ([]*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("ChildChannels", parentID); err != nil {
		return nil, err
	}
	if _, ok := m.channels[parentID]; !ok {
		return nil, ErrUnknownChannel
	}

	var out []*Channel
	for _, ch := range m.channels {
		if ch.GuildID == guildID && ch.ParentID == parentID {
			out = append(out, cloneChannel(ch))
		}
	}
	sortChannels(out)
	return out, nil
}

func (m *MockPlatform) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	m.mu.Lock()
	hook := m.moveHook
	m.mu.Unlock()
	if hook != nil {
		hook(guildID, userID, channelID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("MoveMember", userID); err != nil {
		return err
	}
	if _, ok := m.members[guildID][userID]; !ok {
		return ErrUnknownMember
	}
	if channelID != "" {
		ch, ok := m.channels[channelID]
		if !ok || ch.Kind != KindVoice {
			return ErrUnknownChannel
		}
	}
	m.setVoiceLocked(guildID, userID, channelID)
	return nil
}

func (m *MockPlatform) MemberChannel(ctx context.Context, guildID, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("MemberChannel", userID); err != nil {
		return "", err
	}
	return m.voice[guildID][userID], nil
}

func (m *MockPlatform) Member(ctx context.Context, guildID, userID string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("Member", userID); err != nil {
		return nil, err
	}
	member, ok := m.members[guildID][userID]
	if !ok {
		return nil, ErrUnknownMember
	}
	return &member, nil
}

func (m *MockPlatform) ListOccupants(ctx context.Context, guildID, channelID string) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("ListOccupants", channelID); err != nil {
		return nil, err
	}

	var out []Member
	for userID, cur := range m.voice[guildID] {
		if cur != channelID {
			continue
		}
		member, ok := m.members[guildID][userID]
		if !ok {
			member = Member{ID: userID, DisplayName: userID}
		}
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockPlatform) EditChannelName(ctx context.Context, channelID, name string) error {
	return m.edit("EditChannelName", channelID, func(ch *Channel) { ch.Name = name })
}

func (m *MockPlatform) EditChannelLimit(ctx context.Context, channelID string, limit int) error {
	return m.edit("EditChannelLimit", channelID, func(ch *Channel) { ch.UserLimit = limit })
}

func (m *MockPlatform) EditPermissionOverwrite(ctx context.Context, channelID string, ow Overwrite) error {
	return m.edit("EditPermissionOverwrite", channelID, func(ch *Channel) {
		for i := range ch.Overwrites {
			if ch.Overwrites[i].PrincipalID == ow.PrincipalID {
				ch.Overwrites[i] = ow
				return
			}
		}
		ch.Overwrites = append(ch.Overwrites, ow)
	})
}

func (m *MockPlatform) edit(op, channelID string, apply func(*Channel)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked(op, channelID); err != nil {
		return err
	}
	ch, ok := m.channels[channelID]
	if !ok {
		return ErrUnknownChannel
	}
	apply(ch)
	return nil
}

func (m *MockPlatform) PermissionsFor(ctx context.Context, channelID, userID string) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("PermissionsFor", channelID); err != nil {
		return 0, err
	}
	ch, ok := m.channels[channelID]
	if !ok {
		return 0, ErrUnknownChannel
	}

	perms, ok := m.base[userID]
	if !ok {
		perms = DefaultBasePermissions
	}
	if ow, ok := ch.Overwrite(Everyone(ch.GuildID)); ok {
		perms &^= ow.Deny
		perms |= ow.Allow
	}
	if ow, ok := ch.Overwrite(userID); ok {
		perms &^= ow.Deny
		perms |= ow.Allow
	}
	return perms, nil
}

func (m *MockPlatform) SendPrivateNotice(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("SendPrivateNotice", userID); err != nil {
		return err
	}
	m.notices[userID] = append(m.notices[userID], text)
	return nil
}

func (m *MockPlatform) PostInterfacePanel(ctx context.Context, channelID string, panel Panel) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.callLocked("PostInterfacePanel", channelID); err != nil {
		return "", err
	}
	if _, ok := m.channels[channelID]; !ok {
		return "", ErrUnknownChannel
	}
	m.nextID++
	msgID := fmt.Sprintf("msg-%d", m.nextID)
	m.panels[channelID] = msgID
	return msgID, nil
}

// callLocked counts the call and returns any injected failure. Must be called with mu held.
func (m *MockPlatform) callLocked(op, id string) error {
	m.calls[op]++
	if err, ok := m.failures[op+":"+id]; ok {
		return err
	}
	if err, ok := m.failures[op]; ok {
		return err
	}
	return nil
}

// setVoiceLocked updates voice presence. Must be called with mu held.
func (m *MockPlatform) setVoiceLocked(guildID, userID, channelID string) {
	if m.voice[guildID] == nil {
		m.voice[guildID] = make(map[string]string)
	}
	if channelID == "" {
		delete(m.voice[guildID], userID)
		return
	}
	m.voice[guildID][userID] = channelID
}

func cloneChannel(ch *Channel) *Channel {
	c := *ch
	c.Overwrites = append([]Overwrite(nil), ch.Overwrites...)
	return &c
}

func sortChannels(chs []*Channel) {
	sort.Slice(chs, func(i, j int) bool { return chs[i].ID < chs[j].ID })
}
