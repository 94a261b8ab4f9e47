package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

// Handler consumes an inbound message. Handle reports whether the message
// was handled; unhandled messages are offered to the next handler.
type Handler interface {
	Handle(ctx context.Context, in Incoming) (bool, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, in Incoming) (bool, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, in Incoming) (bool, error) {
	return f(ctx, in)
}

// Dispatcher routes inbound messages to handlers in registration order.
type Dispatcher struct {
	gateway  Gateway
	bot      BotIdentity
	handlers []Handler
	help     string
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. help, when non-empty, is sent back for
// direct messages no handler claimed.
func NewDispatcher(gateway Gateway, bot BotIdentity, help string, logger *slog.Logger, handlers ...Handler) *Dispatcher {
	logger = logutil.NoopIfNil(logger)
	return &Dispatcher{
		gateway:  gateway,
		bot:      bot,
		handlers: handlers,
		help:     help,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Dispatch normalizes in and offers it to each handler until one claims it.
// Handler errors are logged and stop the chain.
func (d *Dispatcher) Dispatch(ctx context.Context, in Incoming) (bool, error) {
	if in.UserID == "" || (d.bot.ID != "" && in.UserID == d.bot.ID) {
		return false, nil
	}

	text, ok := TargetedText(in, d.bot)
	if !ok || text == "" {
		return false, nil
	}
	in.Text = text

	if in.UserName == "" {
		u, err := d.gateway.LookupUser(ctx, in.UserID)
		if err != nil {
			d.logger.Warn("dropping message from unresolvable user", "user_id", in.UserID, "error", err)
			return false, nil
		}
		in.UserName = u.Name
	}

	for i, h := range d.handlers {
		handled, err := h.Handle(ctx, in)
		if err != nil {
			d.logger.Error("message handler failed", "handler", i, "user_id", in.UserID, "error", err)
			return true, fmt.Errorf("handler %d: %w", i, err)
		}
		if handled {
			return true, nil
		}
	}

	if d.help != "" && in.IsDirect() {
		if err := d.gateway.SendMessage(ctx, Direct(in.UserID, d.help)); err != nil {
			d.logger.Warn("failed to send help reply", "user_id", in.UserID, "error", err)
		}
	}
	return false, nil
}
