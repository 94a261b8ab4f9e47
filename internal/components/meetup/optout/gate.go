package optout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/activity"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/clock"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

// pending is an opt-out waiting for its confirming repeat.
type pending struct {
	person      meetup.Person
	channel     string
	requestedAt time.Time
}

// Gate handles "opt out" and "opt in" commands. An opt-out takes effect only
// when the same command is repeated within the confirmation window.
type Gate struct {
	room     string
	window   time.Duration
	state    *State
	gateway  chat.Gateway
	messages meetup.Messages
	now      clock.Func
	activity activity.Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]pending
}

// NewGate creates a Gate for room.
func NewGate(
	room string,
	window time.Duration,
	state *State,
	gateway chat.Gateway,
	messages meetup.Messages,
	now clock.Func,
	rec activity.Recorder,
	logger *slog.Logger,
) *Gate {
	logger = logutil.NoopIfNil(logger)
	if now == nil {
		now = clock.System
	}
	if rec == nil {
		rec = activity.Discard{}
	}
	return &Gate{
		room:     chat.NormalizeChannel(room),
		window:   window,
		state:    state,
		gateway:  gateway,
		messages: messages,
		now:      now,
		activity: rec,
		logger:   logger.With("component", "optout"),
		pending:  make(map[string]pending),
	}
}

// Handle implements chat.Handler.
func (g *Gate) Handle(ctx context.Context, in chat.Incoming) (bool, error) {
	return g.HandleMessage(ctx, meetup.Person{UserID: in.UserID, UserName: in.UserName}, in.Text)
}

// HandleMessage applies an opt command from person. Text not starting with
// "opt" is left for other handlers.
func (g *Gate) HandleMessage(ctx context.Context, person meetup.Person, text string) (bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(normalized, "opt") {
		return false, nil
	}

	fields := strings.Fields(normalized)
	switch {
	case len(fields) >= 2 && fields[0] == "opt" && fields[1] == "out":
		if len(fields) == 2 {
			g.reply(ctx, person, g.messages.OptOutOptions(g.room))
			return true, nil
		}
		return true, g.optOut(ctx, person, fields[2])
	case len(fields) >= 3 && fields[0] == "opt" && fields[1] == "in":
		return true, g.optIn(ctx, person, fields[2])
	default:
		g.reply(ctx, person, g.messages.OptUsage(g.room))
		return true, nil
	}
}

// resolveChannel maps a command argument to a channel name. "all" is the
// room. The second result is false for channels the bot does not serve.
func (g *Gate) resolveChannel(arg string) (string, bool) {
	channel := chat.NormalizeChannel(arg)
	if channel == "all" {
		return g.room, true
	}
	return channel, channel == g.room
}

func (g *Gate) optOut(ctx context.Context, person meetup.Person, arg string) error {
	channel, ok := g.resolveChannel(arg)
	if !ok {
		g.reply(ctx, person, g.messages.ChannelUnrecognised(channel))
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	prev, found := g.pending[person.UserID]
	delete(g.pending, person.UserID)
	if !found || prev.channel != channel || !now.Before(prev.requestedAt.Add(g.window)) {
		g.pending[person.UserID] = pending{person: person, channel: channel, requestedAt: now}
		g.reply(ctx, person, g.messages.OptOutRepeat(channel))
		return nil
	}

	if _, err := g.state.Add(ctx, channel, person); err != nil {
		return err
	}
	g.reply(ctx, person, g.messages.OptOutConfirmed(channel))
	g.activity.Log(fmt.Sprintf("User %s has opted out of pizza plans in channel %s.", person.UserName, channel))
	return nil
}

func (g *Gate) optIn(ctx context.Context, person meetup.Person, arg string) error {
	channel, ok := g.resolveChannel(arg)
	if !ok || !g.state.Known(channel) {
		g.reply(ctx, person, g.messages.ChannelUnrecognised(channel))
		return nil
	}

	g.mu.Lock()
	delete(g.pending, person.UserID)
	g.mu.Unlock()

	removed, err := g.state.Remove(ctx, channel, person.UserID)
	if err != nil {
		return err
	}
	g.reply(ctx, person, g.messages.OptedIn(channel))
	if removed {
		g.activity.Log(fmt.Sprintf("User %s has opted into pizza plans in channel %s.", person.UserName, channel))
	}
	return nil
}

func (g *Gate) reply(ctx context.Context, person meetup.Person, text string) {
	if err := g.gateway.SendMessage(ctx, chat.Direct(person.UserID, text)); err != nil {
		g.logger.Warn("could not deliver reply", "user_id", person.UserID, "error", err)
	}
}
