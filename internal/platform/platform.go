// ABOUTME: Collaborator contract for the chat platform that hosts provisioned rooms
// ABOUTME: Defines capability bits, channel/member types, and the Platform interface

package platform

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownChannel is returned when a channel does not exist on the platform.
var ErrUnknownChannel = errors.New("unknown channel")

// ErrUnknownMember is returned when a member is not part of the community.
var ErrUnknownMember = errors.New("unknown member")

// Permission is a set of channel capabilities.
type Permission int64

// Capability bits. The platform adapter maps these onto its native flags.
const (
	PermView Permission = 1 << iota
	PermConnect
	PermManage
	PermMoveMembers
	PermSendMessages
)

// Has reports whether every bit of want is present in p.
func (p Permission) Has(want Permission) bool {
	return p&want == want
}

// ChannelKind distinguishes containers from voice and text channels.
type ChannelKind int

const (
	KindCategory ChannelKind = iota + 1
	KindVoice
	KindText
)

func (k ChannelKind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindVoice:
		return "voice"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// PrincipalKind says whether an overwrite targets a role or a single member.
type PrincipalKind int

const (
	PrincipalRole PrincipalKind = iota + 1
	PrincipalMember
)

// Overwrite is a per-channel grant for one principal. A bit set in Deny wins
// over the same bit set in Allow.
type Overwrite struct {
	PrincipalID string
	Kind        PrincipalKind
	Allow       Permission
	Deny        Permission
}

// Everyone returns the overwrite principal that stands for every member of
// the community. Its id equals the community id.
func Everyone(guildID string) string {
	return guildID
}

// Channel is a snapshot of platform channel state.
type Channel struct {
	ID         string
	GuildID    string
	ParentID   string
	Name       string
	Kind       ChannelKind
	UserLimit  int
	Overwrites []Overwrite
}

// Overwrite returns the grant for principalID, or a zero grant with found=false.
func (c *Channel) Overwrite(principalID string) (Overwrite, bool) {
	for _, ow := range c.Overwrites {
		if ow.PrincipalID == principalID {
			return ow, true
		}
	}
	return Overwrite{PrincipalID: principalID}, false
}

// Member is a community member as seen by the platform.
type Member struct {
	ID          string
	DisplayName string
	Bot         bool
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	ParentID   string
	Name       string
	Overwrites []Overwrite
}

// Panel describes the control panel posted into the interface channel.
// Rendering is left to the adapter.
type Panel struct {
	Title       string
	Description string
	Fields      []PanelField
	Rows        [][]PanelButton
	Footer      string
}

// PanelField is a labelled line of panel text.
type PanelField struct {
	Name  string
	Value string
}

// ButtonStyle hints at how a panel button should look.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// PanelButton is one control-panel button.
type PanelButton struct {
	ID    string
	Label string
	Style ButtonStyle
}

// Platform is everything the core needs from the chat platform. Every call
// may block for an unbounded time and may fail; implementations are expected
// to be safe for concurrent use.
type Platform interface {
	CreateCategory(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error)
	CreateVoiceChannel(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error)
	CreateTextChannel(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error)

	// DeleteChannel is idempotent: deleting a channel that is already gone succeeds.
	DeleteChannel(ctx context.Context, channelID string) error

	Channel(ctx context.Context, channelID string) (*Channel, error)
	ChildChannels(ctx context.Context, guildID, parentID string) ([]*Channel, error)

	// MoveMember moves userID into channelID, or out of voice when channelID is "".
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	// MemberChannel returns the voice channel userID currently occupies, or "".
	MemberChannel(ctx context.Context, guildID, userID string) (string, error)
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	ListOccupants(ctx context.Context, guildID, channelID string) ([]Member, error)

	EditChannelName(ctx context.Context, channelID, name string) error
	EditChannelLimit(ctx context.Context, channelID string, limit int) error
	EditPermissionOverwrite(ctx context.Context, channelID string, ow Overwrite) error
	// PermissionsFor evaluates the effective capabilities of userID on channelID.
	PermissionsFor(ctx context.Context, channelID, userID string) (Permission, error)

	SendPrivateNotice(ctx context.Context, userID, text string) error
	// PostInterfacePanel clears the channel's previous messages and posts panel,
	// returning the new message id.
	PostInterfacePanel(ctx context.Context, channelID string, panel Panel) (string, error)
}

// Error wraps a failed platform call with the operation that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns nil for a nil err, otherwise an *Error for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsCollaboratorError reports whether err came from a platform call.
func IsCollaboratorError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
