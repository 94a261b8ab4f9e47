// Package planner owns the active meetup plans. It turns resolved
// invitations into roster changes and drives each plan from creation through
// lock-in, role nomination and reminders to closure or cancellation.
//
// Plans leave the active set only by being archived first. Archived plans
// are never modified again.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/activity"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup/inviter"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/clock"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
)

var (
	// ErrConfig is returned by Start when the planner cannot run with its
	// configuration.
	ErrConfig = errors.New("planner: invalid configuration")

	// ErrAlreadyArchived is returned when a plan id is already in the archive.
	ErrAlreadyArchived = errors.New("planner: plan already archived")
)

// Config holds the room and plan timings.
type Config struct {
	Room string
	City string

	// PerEvent is the target number of guests per plan.
	PerEvent int

	// MinimumParticipants is the smallest roster locked at the deadline.
	MinimumParticipants int

	DaysBeforeEventToCancel int
	HoursBeforeRemind       int

	// EventHour is the local hour new plans start at.
	EventHour int

	// WeeksAhead is how many weeks past the current one new plans go.
	WeeksAhead int

	Location *time.Location
}

func (c Config) validate() error {
	switch {
	case c.Room == "":
		return fmt.Errorf("%w: room is required", ErrConfig)
	case c.City == "":
		return fmt.Errorf("%w: city is required", ErrConfig)
	case c.PerEvent < 2:
		return fmt.Errorf("%w: per_event must be at least 2", ErrConfig)
	case c.MinimumParticipants < 2 || c.MinimumParticipants > c.PerEvent:
		return fmt.Errorf("%w: minimum_participants must be between 2 and per_event", ErrConfig)
	case c.EventHour < 0 || c.EventHour > 23:
		return fmt.Errorf("%w: event_hour must be 0-23", ErrConfig)
	case c.WeeksAhead < 1:
		return fmt.Errorf("%w: weeks_ahead must be at least 1", ErrConfig)
	}
	return nil
}

// Invitations is the part of the inviter the planner drives.
type Invitations interface {
	Invite(ctx context.Context, invitations []meetup.Invitation) error
	Outstanding() []meetup.Invitation
	Withdraw(ctx context.Context, eventID string) (int, error)
	SetRosterUpdater(u inviter.RosterUpdater)
}

// OptOuts reports who opted out of a channel.
type OptOuts interface {
	OptedOut(channel string) []meetup.Person
}

// Deps are the planner's collaborators. Docs, Gateway and Inviter are
// required.
type Deps struct {
	Docs     store.Documents
	Gateway  chat.Gateway
	Inviter  Invitations
	OptOuts  OptOuts
	Messages meetup.Messages
	Now      clock.Func
	Rand     *rand.Rand
	Activity activity.Recorder
	Logger   *slog.Logger
}

// Planner owns the active plans of the room.
type Planner struct {
	cfg      Config
	docs     store.Documents
	gateway  chat.Gateway
	inviter  Invitations
	optOuts  OptOuts
	messages meetup.Messages
	now      clock.Func
	rand     *rand.Rand
	activity activity.Recorder
	logger   *slog.Logger
	newID    func() (uuid.UUID, error)

	mu    sync.Mutex
	plans []*meetup.Plan
}

// New creates a Planner. Call Start before Tick.
func New(cfg Config, deps Deps) *Planner {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = clock.System
	}
	if deps.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		deps.Rand = rand.New(rand.NewPCG(seed, seed>>17))
	}
	if deps.Activity == nil {
		deps.Activity = activity.Discard{}
	}
	logger := logutil.NoopIfNil(deps.Logger)
	return &Planner{
		cfg:      cfg,
		docs:     deps.Docs,
		gateway:  deps.Gateway,
		inviter:  deps.Inviter,
		optOuts:  deps.OptOuts,
		messages: deps.Messages,
		now:      deps.Now,
		rand:     deps.Rand,
		activity: deps.Activity,
		logger:   logger.With("component", "planner", "room", cfg.Room),
		newID:    uuid.NewV7,
	}
}

// Start validates the configuration, checks the bot can see the room, loads
// the active plans and subscribes to resolved invitations. Any failure means
// the planner must not run.
func (p *Planner) Start(ctx context.Context) error {
	if err := p.cfg.validate(); err != nil {
		return err
	}
	if _, err := p.gateway.ChannelMembers(ctx, p.cfg.Room); err != nil {
		return fmt.Errorf("%w: no access to room #%s: %w", ErrConfig, p.cfg.Room, err)
	}

	loaded, err := store.ReadArray[meetup.Plan](ctx, p.docs, store.KeyActivePlans)
	if err != nil {
		return fmt.Errorf("planner: load plans: %w", err)
	}

	p.mu.Lock()
	p.plans = p.plans[:0]
	for idx := range loaded {
		pl := loaded[idx]
		p.plans = append(p.plans, &pl)
	}
	p.mu.Unlock()

	p.inviter.SetRosterUpdater(p)
	p.logger.Info("planner started", "active_plans", len(loaded), "city", p.cfg.City)
	return nil
}

// Tick runs the plan maintenance steps in a fixed order. The first error
// aborts the tick; the remaining steps run on the next one.
func (p *Planner) Tick(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"close finished plans", p.closeFinished},
		{"lock in or cancel", p.lockInOrCancel},
		{"nominate reservation owners", p.nominateReservationOwners},
		{"nominate expense owners", p.nominateExpenseOwners},
		{"remind participants", p.remindParticipants},
		{"schedule new plan", p.scheduleNewPlan},
		{"announce in room", p.announce},
		{"backfill", p.backfill},
	}
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("planner: %s: %w", s.name, err)
		}
	}
	return nil
}

// OnInvitationResolved moves the invitee from invited to accepted or
// rejected. Expired counts as rejected. Notifications for unknown plans or
// people no longer invited are ignored.
func (p *Planner) OnInvitationResolved(ctx context.Context, inv meetup.Invitation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pl := p.findLocked(inv.EventID)
	if pl == nil {
		p.logger.Debug("ignoring invitation for inactive plan", "event_id", inv.EventID, "user_id", inv.UserID)
		return nil
	}
	if !pl.IsInvited(inv.UserID) {
		p.logger.Debug("ignoring invitation for person not invited", "plan_id", pl.ID, "user_id", inv.UserID)
		return nil
	}

	switch inv.Response {
	case meetup.Accepted:
		pl.MoveToAccepted(inv.UserID)
	case meetup.Rejected, meetup.Expired:
		pl.MoveToRejected(inv.UserID)
	default:
		return fmt.Errorf("planner: invitation %s/%s is not resolved", inv.EventID, inv.UserID)
	}
	if err := p.persistLocked(ctx); err != nil {
		return err
	}
	p.logger.Info("roster updated", "plan_id", pl.ID, "user_id", inv.UserID, "response", inv.Response,
		"accepted", len(pl.Accepted), "invited", len(pl.Invited))
	return nil
}

// ActivePlans returns copies of the active plans.
func (p *Planner) ActivePlans() []meetup.Plan {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]meetup.Plan, len(p.plans))
	for i, pl := range p.plans {
		out[i] = clonePlan(pl)
	}
	return out
}

// ArchivedPlans reads the archive.
func (p *Planner) ArchivedPlans(ctx context.Context) ([]meetup.Plan, error) {
	return store.ReadArray[meetup.Plan](ctx, p.docs, store.KeyArchivedPlans)
}

func (p *Planner) closeFinished(ctx context.Context) error {
	now := p.now()
	for _, pl := range slices.Clone(p.plans) {
		if pl.Finished || !pl.TimeOfEvent.Before(now) {
			continue
		}
		final := clonePlan(pl)
		final.Finished = true
		if err := p.retireLocked(ctx, pl, final); err != nil {
			return err
		}
		p.activity.Log(fmt.Sprintf("Plan '%s' on %s is finished.", pl.ID, pl.TimeOfEvent.In(p.cfg.Location).Format(time.DateOnly)))
	}
	return nil
}

func (p *Planner) lockInOrCancel(ctx context.Context) error {
	for _, pl := range slices.Clone(p.plans) {
		if pl.Open() && len(pl.Accepted) >= p.cfg.PerEvent {
			if err := p.lockLocked(ctx, pl); err != nil {
				return err
			}
		}
	}

	deadline := p.now().Add(time.Duration(p.cfg.DaysBeforeEventToCancel) * 24 * time.Hour)
	for _, pl := range slices.Clone(p.plans) {
		if !pl.Open() || deadline.Before(pl.TimeOfEvent) {
			continue
		}
		var err error
		if len(pl.Accepted) >= p.cfg.MinimumParticipants {
			err = p.lockLocked(ctx, pl)
		} else {
			err = p.cancelLocked(ctx, pl)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// lockLocked finalizes the roster and tells every participant. Invitations
// still outstanding stay alive; a late yes joins the locked plan.
func (p *Planner) lockLocked(ctx context.Context, pl *meetup.Plan) error {
	if !pl.Lock() {
		return nil
	}
	if err := p.persistLocked(ctx); err != nil {
		return err
	}
	text := p.messages.Locked(pl)
	for _, person := range pl.Accepted {
		p.direct(ctx, person, text)
	}
	p.activity.Log(fmt.Sprintf("Locked plan '%s' with %s.", pl.ID, meetup.PeopleList(pl.Accepted)))
	return nil
}

func (p *Planner) cancelLocked(ctx context.Context, pl *meetup.Plan) error {
	now := p.now()
	final := clonePlan(pl)
	final.CancelledAt = &now
	if err := p.retireLocked(ctx, pl, final); err != nil {
		return err
	}
	for _, person := range final.Accepted {
		p.direct(ctx, person, p.messages.Cancelled(&final, person))
	}
	p.activity.Log(fmt.Sprintf("Cancelled plan '%s': only %d accepted.", pl.ID, len(pl.Accepted)))
	return nil
}

// retireLocked archives final as the last state of pl, drops pl from the
// active set and withdraws its outstanding invitations. pl is untouched if
// archiving fails.
func (p *Planner) retireLocked(ctx context.Context, pl *meetup.Plan, final meetup.Plan) error {
	if err := p.addToArchive(ctx, final); err != nil {
		return err
	}
	p.plans = slices.DeleteFunc(p.plans, func(a *meetup.Plan) bool { return a == pl })
	if err := p.persistLocked(ctx); err != nil {
		return err
	}
	if _, err := p.inviter.Withdraw(ctx, pl.ID); err != nil {
		return err
	}
	return nil
}

func (p *Planner) addToArchive(ctx context.Context, pl meetup.Plan) error {
	archived, err := store.ReadArray[meetup.Plan](ctx, p.docs, store.KeyArchivedPlans)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	if slices.ContainsFunc(archived, func(a meetup.Plan) bool { return a.ID == pl.ID }) {
		return fmt.Errorf("%w: %s", ErrAlreadyArchived, pl.ID)
	}
	archived = append(archived, pl)
	if err := store.SaveArray(ctx, p.docs, store.KeyArchivedPlans, archived); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}

func (p *Planner) nominateReservationOwners(ctx context.Context) error {
	return p.nominate(ctx, "reservation",
		func(pl *meetup.Plan) *meetup.Person { return pl.ReservationOwner },
		func(pl *meetup.Plan) *meetup.Person { return pl.ExpenseOwner },
		(*meetup.Plan).AssignReservationOwner,
		p.messages.ReservationOwner,
	)
}

func (p *Planner) nominateExpenseOwners(ctx context.Context) error {
	return p.nominate(ctx, "expense",
		func(pl *meetup.Plan) *meetup.Person { return pl.ExpenseOwner },
		func(pl *meetup.Plan) *meetup.Person { return pl.ReservationOwner },
		(*meetup.Plan).AssignExpenseOwner,
		p.messages.ExpenseOwner,
	)
}

func (p *Planner) nominate(
	ctx context.Context,
	role string,
	owner, other func(*meetup.Plan) *meetup.Person,
	assign func(*meetup.Plan, meetup.Person) error,
	message func(*meetup.Plan, meetup.Person) string,
) error {
	for _, pl := range p.plans {
		if !pl.ParticipantsLocked || owner(pl) != nil {
			continue
		}
		candidates := pl.RoleCandidates(other(pl))
		if len(candidates) == 0 {
			p.logger.Warn("no candidate for role", "plan_id", pl.ID, "role", role)
			continue
		}
		chosen := candidates[p.rand.IntN(len(candidates))]
		if err := assign(pl, chosen); err != nil {
			return fmt.Errorf("assign %s owner on %s: %w", role, pl.ID, err)
		}
		if err := p.persistLocked(ctx); err != nil {
			return err
		}
		p.direct(ctx, chosen, message(pl, chosen))
		p.activity.Log(fmt.Sprintf("%s is the %s owner of '%s'.", chosen.UserName, role, pl.ID))
	}
	return nil
}

func (p *Planner) remindParticipants(ctx context.Context) error {
	horizon := p.now().Add(time.Duration(p.cfg.HoursBeforeRemind) * time.Hour)
	for _, pl := range p.plans {
		if pl.ReminderSentAt != nil || horizon.Before(pl.TimeOfEvent) {
			continue
		}
		now := p.now()
		pl.ReminderSentAt = &now
		if err := p.persistLocked(ctx); err != nil {
			return err
		}
		for _, person := range pl.Accepted {
			p.direct(ctx, person, p.messages.ParticipantReminder(pl, person))
		}
		p.logger.Info("reminded participants", "plan_id", pl.ID, "participants", len(pl.Accepted))
	}
	return nil
}

func (p *Planner) scheduleNewPlan(ctx context.Context) error {
	monday := TargetWeek(p.now(), p.cfg.Location, p.cfg.WeeksAhead)
	if slices.ContainsFunc(p.plans, func(pl *meetup.Plan) bool { return inWeek(pl.TimeOfEvent, monday) }) {
		return nil
	}

	slots, err := EventSlots(monday, p.cfg.EventHour)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		return fmt.Errorf("no event slot in week of %s", monday.Format(time.DateOnly))
	}
	id, err := p.newID()
	if err != nil {
		return fmt.Errorf("generate plan id: %w", err)
	}

	guests, err := p.selectCandidates(ctx, p.cfg.PerEvent, p.baseExclusion())
	if err != nil {
		return err
	}

	pl := &meetup.Plan{
		ID:          id.String(),
		TimeOfEvent: slots[p.rand.IntN(len(slots))],
		Channel:     p.cfg.Room,
		City:        p.cfg.City,
	}
	pl.AddInvited(guests...)
	p.plans = append(p.plans, pl)
	if err := p.persistLocked(ctx); err != nil {
		return err
	}
	if err := p.invite(ctx, pl, pl.Invited); err != nil {
		return err
	}
	p.activity.Log(fmt.Sprintf("Created plan '%s' on %s, inviting %s.",
		pl.ID, pl.TimeOfEvent.In(p.cfg.Location).Format(time.DateTime), meetup.PeopleList(pl.Invited)))
	return nil
}

func (p *Planner) announce(ctx context.Context) error {
	for _, pl := range p.plans {
		if !pl.ParticipantsLocked || !pl.HasRoles() || pl.AnnouncedInRoom {
			continue
		}
		if err := p.gateway.SendMessage(ctx, chat.ToChannel(p.cfg.Room, p.messages.RoomAnnouncement(pl))); err != nil {
			p.logger.Warn("could not announce plan, will retry", "plan_id", pl.ID, "error", err)
			continue
		}
		pl.AnnouncedInRoom = true
		if err := p.persistLocked(ctx); err != nil {
			return err
		}
	}
	return nil
}

// backfill tops up every active plan, locked or not, whose roster fell short
// of PerEvent.
func (p *Planner) backfill(ctx context.Context) error {
	for _, pl := range p.plans {
		shortfall := p.cfg.PerEvent - len(pl.Accepted) - len(pl.Invited)
		if shortfall <= 0 {
			continue
		}

		ex := p.baseExclusion()
		ex.add(pl.Everyone()...)
		guests, err := p.selectCandidates(ctx, shortfall, ex)
		if err != nil {
			return err
		}
		added := pl.AddInvited(guests...)
		if len(added) == 0 {
			p.logger.Debug("no candidates left to backfill", "plan_id", pl.ID, "shortfall", shortfall)
			continue
		}
		if err := p.persistLocked(ctx); err != nil {
			return err
		}
		if err := p.invite(ctx, pl, added); err != nil {
			return err
		}
		p.activity.Log(fmt.Sprintf("Invited %s to fill up '%s'.", meetup.PeopleList(added), pl.ID))
	}
	return nil
}

func (p *Planner) invite(ctx context.Context, pl *meetup.Plan, people []meetup.Person) error {
	invitations := make([]meetup.Invitation, len(people))
	for i, person := range people {
		invitations[i] = pl.Invitation(person)
	}
	if err := p.inviter.Invite(ctx, invitations); err != nil {
		return fmt.Errorf("invite to %s: %w", pl.ID, err)
	}
	return nil
}

func (p *Planner) direct(ctx context.Context, person meetup.Person, text string) {
	if err := p.gateway.SendMessage(ctx, chat.Direct(person.UserID, text)); err != nil {
		p.logger.Warn("could not deliver message", "user_id", person.UserID, "error", err)
	}
}

func (p *Planner) findLocked(id string) *meetup.Plan {
	for _, pl := range p.plans {
		if pl.ID == id {
			return pl
		}
	}
	return nil
}

func (p *Planner) persistLocked(ctx context.Context) error {
	snapshot := make([]meetup.Plan, len(p.plans))
	for i, pl := range p.plans {
		snapshot[i] = *pl
	}
	if err := store.SaveArray(ctx, p.docs, store.KeyActivePlans, snapshot); err != nil {
		return fmt.Errorf("planner: persist plans: %w", err)
	}
	return nil
}

func clonePlan(pl *meetup.Plan) meetup.Plan {
	c := *pl
	c.Invited = slices.Clone(pl.Invited)
	c.Accepted = slices.Clone(pl.Accepted)
	c.Rejected = slices.Clone(pl.Rejected)
	return c
}
