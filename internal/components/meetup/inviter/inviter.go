// Package inviter delivers invitations, reminds invitees who have not
// answered, expires invitations nobody answered, and relays yes/no replies.
//
// The active set holds exactly the outstanding invitations. Every mutation
// is persisted before the next one starts, so a crash loses at most one
// step; duplicate delivery after a crash is possible and tolerated.
//
// Resolved invitations are reported to the RosterUpdater after the inviter
// has persisted the removal and released its lock. The updater therefore
// sees notifications for invitations that are already gone from the store.
package inviter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/activity"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/clock"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
)

// RosterUpdater receives resolved invitations.
type RosterUpdater interface {
	OnInvitationResolved(ctx context.Context, inv meetup.Invitation) error
}

// Config holds invitation timings.
type Config struct {
	// RemindAfter is measured from InvitedAt.
	RemindAfter time.Duration

	// ExpireAfter is measured from RemindedAt.
	ExpireAfter time.Duration
}

var (
	acceptTokens = []string{"yes", "yes.", "yes!"}
	rejectTokens = []string{"no", "no.", "no!"}
)

// Inviter owns the active invitations of the room.
type Inviter struct {
	cfg      Config
	docs     store.Documents
	gateway  chat.Gateway
	messages meetup.Messages
	now      clock.Func
	activity activity.Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	active  []*meetup.Invitation
	updater RosterUpdater
}

// New creates an Inviter. Call Start before anything else.
func New(
	cfg Config,
	docs store.Documents,
	gateway chat.Gateway,
	messages meetup.Messages,
	now clock.Func,
	rec activity.Recorder,
	logger *slog.Logger,
) *Inviter {
	logger = logutil.NoopIfNil(logger)
	if now == nil {
		now = clock.System
	}
	if rec == nil {
		rec = activity.Discard{}
	}
	return &Inviter{
		cfg:      cfg,
		docs:     docs,
		gateway:  gateway,
		messages: messages,
		now:      now,
		activity: rec,
		logger:   logger.With("component", "inviter"),
	}
}

// SetRosterUpdater registers the receiver of resolved invitations.
func (i *Inviter) SetRosterUpdater(u RosterUpdater) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.updater = u
}

// Start loads the active invitations. Resolved records found in the store
// are dropped.
func (i *Inviter) Start(ctx context.Context) error {
	loaded, err := store.ReadArray[meetup.Invitation](ctx, i.docs, store.KeyActiveInvitations)
	if err != nil {
		return fmt.Errorf("inviter: load invitations: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.active = i.active[:0]
	for idx := range loaded {
		inv := loaded[idx]
		if !inv.Outstanding() {
			i.logger.Warn("dropping resolved invitation found in active set",
				"event_id", inv.EventID, "user_id", inv.UserID, "response", inv.Response)
			continue
		}
		inv.Response = meetup.NoResponse
		i.active = append(i.active, &inv)
	}
	i.logger.Info("inviter started", "active_invitations", len(i.active))
	return nil
}

// Tick sends new invitations, then reminders, then expires stale ones.
// The first persistence failure aborts the tick.
func (i *Inviter) Tick(ctx context.Context) error {
	if err := i.SendInvites(ctx); err != nil {
		return err
	}
	if err := i.SendReminders(ctx); err != nil {
		return err
	}
	return i.CancelExpired(ctx)
}

// SendInvites delivers every invitation not yet sent.
func (i *Inviter) SendInvites(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, inv := range i.active {
		if inv.InvitedAt != nil {
			continue
		}
		if err := i.gateway.SendMessage(ctx, chat.Direct(inv.UserID, i.messages.Invitation(inv))); err != nil {
			i.logger.Warn("could not deliver invitation, will retry",
				"event_id", inv.EventID, "user_id", inv.UserID, "error", err)
			continue
		}
		now := i.now()
		inv.InvitedAt = &now
		if err := i.persistLocked(ctx); err != nil {
			return err
		}
		i.activity.Log(fmt.Sprintf("Invited %s to '%s'.", inv.UserName, inv.EventID))
	}
	return nil
}

// SendReminders reminds invitees who have not answered within RemindAfter.
func (i *Inviter) SendReminders(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	for _, inv := range i.active {
		if inv.InvitedAt == nil || inv.RemindedAt != nil {
			continue
		}
		if !inv.InvitedAt.Add(i.cfg.RemindAfter).Before(now) {
			continue
		}
		if err := i.gateway.SendMessage(ctx, chat.Direct(inv.UserID, i.messages.Reminder(inv))); err != nil {
			i.logger.Warn("could not deliver reminder, will retry",
				"event_id", inv.EventID, "user_id", inv.UserID, "error", err)
			continue
		}
		at := i.now()
		inv.RemindedAt = &at
		if err := i.persistLocked(ctx); err != nil {
			return err
		}
		i.logger.Info("sent reminder", "event_id", inv.EventID, "user_id", inv.UserID)
	}
	return nil
}

// CancelExpired expires invitations left unanswered ExpireAfter past their
// reminder. The expiry notice is best effort: an undeliverable notice does
// not keep the invitation alive.
func (i *Inviter) CancelExpired(ctx context.Context) error {
	resolved, err := i.cancelExpired(ctx)
	i.notify(ctx, resolved)
	return err
}

func (i *Inviter) cancelExpired(ctx context.Context) ([]meetup.Invitation, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	var resolved []meetup.Invitation
	for _, inv := range slices.Clone(i.active) {
		if inv.RemindedAt == nil || !inv.RemindedAt.Add(i.cfg.ExpireAfter).Before(now) {
			continue
		}
		inv.Resolve(meetup.Expired)
		i.removeLocked(inv)
		if err := i.persistLocked(ctx); err != nil {
			return resolved, err
		}
		resolved = append(resolved, *inv)

		if err := i.gateway.SendMessage(ctx, chat.Direct(inv.UserID, i.messages.Expired(inv))); err != nil {
			i.logger.Warn("could not deliver expiry notice",
				"event_id", inv.EventID, "user_id", inv.UserID, "error", err)
		}
		i.activity.Log(fmt.Sprintf("Invitation for %s to '%s' expired.", inv.UserName, inv.EventID))
	}
	return resolved, nil
}

// Invite adds new invitations to the active set. They are delivered on the
// next tick. Invitations already active for the same event and user are
// skipped.
func (i *Inviter) Invite(ctx context.Context, invitations []meetup.Invitation) error {
	if len(invitations) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	added := 0
	for idx := range invitations {
		inv := invitations[idx]
		if i.findLocked(func(a *meetup.Invitation) bool {
			return a.EventID == inv.EventID && a.UserID == inv.UserID
		}) != nil {
			continue
		}
		inv.Response = meetup.NoResponse
		inv.InvitedAt, inv.RemindedAt = nil, nil
		i.active = append(i.active, &inv)
		added++
	}
	if added == 0 {
		return nil
	}
	return i.persistLocked(ctx)
}

// HandleReply applies a reply from userID. It returns false when the user has
// no outstanding invitation so other handlers can look at the message.
// Anything but yes or no gets a re-prompt and still counts as handled.
func (i *Inviter) HandleReply(ctx context.Context, userID, text string) (bool, error) {
	resolved, handled, err := i.handleReply(ctx, userID, text)
	if resolved != nil {
		i.notify(ctx, []meetup.Invitation{*resolved})
	}
	return handled, err
}

// Handle implements chat.Handler.
func (i *Inviter) Handle(ctx context.Context, in chat.Incoming) (bool, error) {
	return i.HandleReply(ctx, in.UserID, in.Text)
}

func (i *Inviter) handleReply(ctx context.Context, userID, text string) (*meetup.Invitation, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	inv := i.findLocked(func(a *meetup.Invitation) bool { return a.UserID == userID })
	if inv == nil {
		return nil, false, nil
	}

	var (
		response meetup.Response
		reply    string
	)
	switch normalized := strings.ToLower(strings.TrimSpace(text)); {
	case slices.Contains(acceptTokens, normalized):
		response, reply = meetup.Accepted, i.messages.Accepted()
	case slices.Contains(rejectTokens, normalized):
		response, reply = meetup.Rejected, i.messages.Rejected()
	default:
		i.reply(ctx, userID, i.messages.Reprompt(inv))
		return nil, true, nil
	}

	inv.Resolve(response)
	i.removeLocked(inv)
	if err := i.persistLocked(ctx); err != nil {
		return inv, true, err
	}
	i.reply(ctx, userID, reply)
	i.activity.Log(fmt.Sprintf("User %s %s the invitation to '%s'.", inv.UserName, response, inv.EventID))
	return inv, true, nil
}

// Withdraw silently resolves every outstanding invitation for eventID as
// expired. No notice is sent and the RosterUpdater is not called.
func (i *Inviter) Withdraw(ctx context.Context, eventID string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	n := 0
	for _, inv := range slices.Clone(i.active) {
		if inv.EventID != eventID {
			continue
		}
		inv.Resolve(meetup.Expired)
		i.removeLocked(inv)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	i.logger.Info("withdrew invitations", "event_id", eventID, "count", n)
	return n, i.persistLocked(ctx)
}

// Outstanding returns a copy of the active invitations.
func (i *Inviter) Outstanding() []meetup.Invitation {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]meetup.Invitation, len(i.active))
	for idx, inv := range i.active {
		out[idx] = *inv
	}
	return out
}

func (i *Inviter) reply(ctx context.Context, userID, text string) {
	if err := i.gateway.SendMessage(ctx, chat.Direct(userID, text)); err != nil {
		i.logger.Warn("could not deliver reply", "user_id", userID, "error", err)
	}
}

func (i *Inviter) findLocked(match func(*meetup.Invitation) bool) *meetup.Invitation {
	for _, inv := range i.active {
		if match(inv) {
			return inv
		}
	}
	return nil
}

func (i *Inviter) removeLocked(target *meetup.Invitation) {
	i.active = slices.DeleteFunc(i.active, func(a *meetup.Invitation) bool { return a == target })
}

func (i *Inviter) persistLocked(ctx context.Context) error {
	snapshot := make([]meetup.Invitation, len(i.active))
	for idx, inv := range i.active {
		snapshot[idx] = *inv
	}
	if err := store.SaveArray(ctx, i.docs, store.KeyActiveInvitations, snapshot); err != nil {
		return fmt.Errorf("inviter: persist invitations: %w", err)
	}
	return nil
}

// notify reports resolved invitations. Updater errors and panics are logged
// and swallowed; the inviter's own state change stands.
func (i *Inviter) notify(ctx context.Context, resolved []meetup.Invitation) {
	if len(resolved) == 0 {
		return
	}
	i.mu.Lock()
	u := i.updater
	i.mu.Unlock()
	if u == nil {
		return
	}
	for _, inv := range resolved {
		i.notifyOne(ctx, u, inv)
	}
}

func (i *Inviter) notifyOne(ctx context.Context, u RosterUpdater, inv meetup.Invitation) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("roster updater panicked",
				"event_id", inv.EventID, "user_id", inv.UserID, "panic", fmt.Sprint(r))
		}
	}()
	if err := u.OnInvitationResolved(ctx, inv); err != nil {
		i.logger.Error("roster updater failed",
			"event_id", inv.EventID, "user_id", inv.UserID, "error", err)
	}
}
