package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cache"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

const userKeyPrefix = "chat:user:"

// CachedGateway wraps a Gateway and caches LookupUser results. Candidate
// selection resolves every room member on every tick; the cache keeps that
// off the transport.
type CachedGateway struct {
	Gateway
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedGateway wraps gw. A zero ttl uses cache.TTLUserDirectory.
func NewCachedGateway(gw Gateway, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedGateway {
	logger = logutil.NoopIfNil(logger)
	if ttl <= 0 {
		ttl = cache.TTLUserDirectory
	}
	return &CachedGateway{
		Gateway: gw,
		cache:   c,
		ttl:     ttl,
		logger:  logger.With("component", "chat_cache"),
	}
}

// LookupUser returns the cached user, falling through to the wrapped gateway.
// Lookup failures are not cached.
func (g *CachedGateway) LookupUser(ctx context.Context, userID string) (User, error) {
	key := userKeyPrefix + userID

	if raw, err := g.cache.Get(ctx, key); err == nil {
		var u User
		if err := json.Unmarshal(raw, &u); err == nil {
			return u, nil
		}
		_ = g.cache.Delete(ctx, key)
	}

	u, err := g.Gateway.LookupUser(ctx, userID)
	if err != nil {
		return User{}, err
	}

	raw, err := json.Marshal(u)
	if err == nil {
		err = g.cache.Set(ctx, key, raw, g.ttl)
	}
	if err != nil {
		g.logger.Debug("failed to cache user", "user_id", userID, "error", err)
	}
	return u, nil
}

// SendMessage delivers m and drops the recipient from the cache when the
// transport no longer knows them.
func (g *CachedGateway) SendMessage(ctx context.Context, m Message) error {
	err := g.Gateway.SendMessage(ctx, m)
	if errors.Is(err, ErrUnknownUser) && m.IsDirect() {
		g.Forget(ctx, m.UserID)
	}
	return err
}

// Forget drops a cached user.
func (g *CachedGateway) Forget(ctx context.Context, userID string) {
	_ = g.cache.Delete(ctx, userKeyPrefix+userID)
}
