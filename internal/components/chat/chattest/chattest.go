// Package chattest provides an in-memory chat.Gateway for tests.
package chattest

import (
	"context"
	"slices"
	"sync"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat"
)

// Gateway is a fake workspace that records every message sent through it.
type Gateway struct {
	mu       sync.Mutex
	botID    string
	users    map[string]chat.User
	channels map[string][]string
	failFor  map[string]error
	sent     []chat.Message
	lookups  int
}

// New creates a fake workspace whose bot user is botID.
func New(botID string) *Gateway {
	g := &Gateway{
		botID:    botID,
		users:    make(map[string]chat.User),
		channels: make(map[string][]string),
		failFor:  make(map[string]error),
	}
	if botID != "" {
		g.users[botID] = chat.User{ID: botID, Name: "pizzabot", IsBot: true}
	}
	return g
}

// AddUser adds or replaces a directory entry.
func (g *Gateway) AddUser(u chat.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[u.ID] = u
}

// AddChannel creates channel with the given members plus the bot.
func (g *Gateway) AddChannel(channel string, members ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.botID != "" {
		members = append([]string{g.botID}, members...)
	}
	g.channels[chat.NormalizeChannel(channel)] = members
}

// AddChannelWithoutBot creates a channel the bot cannot see.
func (g *Gateway) AddChannelWithoutBot(channel string, members ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[chat.NormalizeChannel(channel)] = members
}

// FailDeliveryTo makes SendMessage to userID return err. A nil err clears it.
func (g *Gateway) FailDeliveryTo(userID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failFor, userID)
		return
	}
	g.failFor[userID] = err
}

// SendMessage implements chat.Gateway.
func (g *Gateway) SendMessage(ctx context.Context, m chat.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m.IsDirect() {
		if err, ok := g.failFor[m.UserID]; ok {
			return err
		}
		u, ok := g.users[m.UserID]
		if !ok || u.IsDeactivated {
			return chat.ErrUnknownUser
		}
	} else if _, ok := g.channels[m.Channel]; !ok {
		return chat.ErrChannelNotFound
	}

	g.sent = append(g.sent, m)
	return nil
}

// ChannelMembers implements chat.Gateway.
func (g *Gateway) ChannelMembers(ctx context.Context, channel string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, ok := g.channels[chat.NormalizeChannel(channel)]
	if !ok {
		return nil, chat.ErrChannelNotFound
	}
	if g.botID != "" && !slices.Contains(members, g.botID) {
		return nil, chat.ErrNotInChannel
	}
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}

// LookupUser implements chat.Gateway.
func (g *Gateway) LookupUser(ctx context.Context, userID string) (chat.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups++

	u, ok := g.users[userID]
	if !ok {
		return chat.User{}, chat.ErrUnknownUser
	}
	return u, nil
}

// Lookups returns how many LookupUser calls were made.
func (g *Gateway) Lookups() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lookups
}

// Sent returns every delivered message in order.
func (g *Gateway) Sent() []chat.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]chat.Message, len(g.sent))
	copy(out, g.sent)
	return out
}

// SentTo returns the direct messages delivered to userID.
func (g *Gateway) SentTo(userID string) []chat.Message {
	var out []chat.Message
	for _, m := range g.Sent() {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// PostedIn returns the messages posted in channel.
func (g *Gateway) PostedIn(channel string) []chat.Message {
	channel = chat.NormalizeChannel(channel)
	var out []chat.Message
	for _, m := range g.Sent() {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

// Reset forgets every sent message.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = nil
}
