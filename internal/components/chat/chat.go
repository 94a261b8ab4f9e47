// Package chat defines the transport boundary: outbound messages, workspace
// lookups, and inbound message routing. Concrete transports live in
// sub-packages; nothing transport-specific crosses this boundary.
package chat

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnknownUser is returned when a user id cannot be resolved.
	ErrUnknownUser = errors.New("unknown user")

	// ErrChannelNotFound is returned for channels the workspace does not have.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotInChannel is returned when the bot is not a member of the channel.
	ErrNotInChannel = errors.New("bot is not a member of the channel")
)

// Message is an outbound message. Exactly one of UserID (direct message) and
// Channel is set.
type Message struct {
	Text    string
	UserID  string
	Channel string
}

// Direct builds a direct message to a user.
func Direct(userID, text string) Message {
	return Message{UserID: userID, Text: text}
}

// ToChannel builds a channel post.
func ToChannel(channel, text string) Message {
	return Message{Channel: NormalizeChannel(channel), Text: text}
}

// IsDirect reports whether m targets a single user.
func (m Message) IsDirect() bool { return m.UserID != "" }

// User is a workspace directory entry.
type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsBot         bool   `json:"is_bot"`
	IsDeactivated bool   `json:"is_deactivated"`
}

// Gateway is the chat transport.
type Gateway interface {
	// SendMessage delivers m. Unknown or deactivated recipients yield
	// ErrUnknownUser.
	SendMessage(ctx context.Context, m Message) error

	// ChannelMembers lists the user ids in channel. ErrNotInChannel means the
	// bot cannot see the channel's members.
	ChannelMembers(ctx context.Context, channel string) ([]string, error)

	// LookupUser resolves a user id.
	LookupUser(ctx context.Context, userID string) (User, error)
}

// NormalizeChannel strips a leading '#'.
func NormalizeChannel(channel string) string {
	return strings.TrimPrefix(strings.TrimSpace(channel), "#")
}
