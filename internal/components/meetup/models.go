// Package meetup holds the invitation and plan data model shared by the
// inviter, the planner and the opt-out gate. The state-transition helpers
// here are the only code that mutates roster sets and role owners.
package meetup

import (
	"errors"
	"time"
)

var (
	// ErrRoleAssigned is returned when a role owner is already set.
	ErrRoleAssigned = errors.New("role already assigned")

	// ErrNotAccepted is returned when a role goes to someone outside the accepted roster.
	ErrNotAccepted = errors.New("person has not accepted the plan")

	// ErrSameOwner is returned when both roles would go to the same person.
	ErrSameOwner = errors.New("reservation and expense owners must differ")
)

// Person identifies a workspace user.
type Person struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// Mention renders the person the way messages address them.
func (p Person) Mention() string { return "@" + p.UserName }

// Response is an invitee's answer.
type Response string

const (
	NoResponse Response = "no_response"
	Accepted   Response = "accepted"
	Rejected   Response = "rejected"
	Expired    Response = "expired"
)

// Terminal reports whether r ends the invitation.
func (r Response) Terminal() bool {
	return r == Accepted || r == Rejected || r == Expired
}

// Invitation is one person's invitation to one plan.
type Invitation struct {
	EventID    string     `json:"event_id"`
	UserID     string     `json:"user_id"`
	UserName   string     `json:"user_name"`
	EventTime  time.Time  `json:"event_time"`
	Room       string     `json:"room"`
	City       string     `json:"city"`
	InvitedAt  *time.Time `json:"invited_at,omitempty"`
	RemindedAt *time.Time `json:"reminded_at,omitempty"`
	Response   Response   `json:"response"`
}

// Person returns the invitee.
func (i *Invitation) Person() Person {
	return Person{UserID: i.UserID, UserName: i.UserName}
}

// Outstanding reports whether the invitation still awaits an answer.
// An empty response is read as NoResponse.
func (i *Invitation) Outstanding() bool {
	return i.Response == NoResponse || i.Response == ""
}

// Resolve moves an outstanding invitation to a terminal response. It returns
// false, leaving i untouched, if i was already resolved or r is not terminal.
func (i *Invitation) Resolve(r Response) bool {
	if !i.Outstanding() || !r.Terminal() {
		return false
	}
	i.Response = r
	return true
}

// Plan is one scheduled meetup and its roster.
type Plan struct {
	ID                 string     `json:"id"`
	TimeOfEvent        time.Time  `json:"time_of_event"`
	Channel            string     `json:"channel"`
	City               string     `json:"city"`
	Invited            []Person   `json:"invited"`
	Accepted           []Person   `json:"accepted"`
	Rejected           []Person   `json:"rejected"`
	ParticipantsLocked bool       `json:"participants_locked"`
	ReservationOwner   *Person    `json:"reservation_owner,omitempty"`
	ExpenseOwner       *Person    `json:"expense_owner,omitempty"`
	ReminderSentAt     *time.Time `json:"reminder_sent_at,omitempty"`
	AnnouncedInRoom    bool       `json:"announced_in_room"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	Finished           bool       `json:"finished"`
}

// Invitation builds the invitation record for p on this plan.
func (pl *Plan) Invitation(p Person) Invitation {
	return Invitation{
		EventID:   pl.ID,
		UserID:    p.UserID,
		UserName:  p.UserName,
		EventTime: pl.TimeOfEvent,
		Room:      pl.Channel,
		City:      pl.City,
		Response:  NoResponse,
	}
}

// IsInvited reports whether userID awaits an answer on this plan.
func (pl *Plan) IsInvited(userID string) bool { return indexOf(pl.Invited, userID) >= 0 }

// HasAccepted reports whether userID is on the accepted roster.
func (pl *Plan) HasAccepted(userID string) bool { return indexOf(pl.Accepted, userID) >= 0 }

// Involves reports whether userID is in any roster set of this plan.
func (pl *Plan) Involves(userID string) bool {
	return pl.IsInvited(userID) || pl.HasAccepted(userID) || indexOf(pl.Rejected, userID) >= 0
}

// Everyone returns every person in any roster set.
func (pl *Plan) Everyone() []Person {
	out := make([]Person, 0, len(pl.Invited)+len(pl.Accepted)+len(pl.Rejected))
	out = append(out, pl.Invited...)
	out = append(out, pl.Accepted...)
	out = append(out, pl.Rejected...)
	return out
}

// AddInvited adds people to the invited set, skipping anyone already on the
// plan. It returns the people actually added.
func (pl *Plan) AddInvited(people ...Person) []Person {
	var added []Person
	for _, p := range people {
		if pl.Involves(p.UserID) {
			continue
		}
		pl.Invited = append(pl.Invited, p)
		added = append(added, p)
	}
	return added
}

// MoveToAccepted moves userID from invited to accepted.
func (pl *Plan) MoveToAccepted(userID string) bool {
	return pl.moveFromInvited(userID, &pl.Accepted)
}

// MoveToRejected moves userID from invited to rejected.
func (pl *Plan) MoveToRejected(userID string) bool {
	return pl.moveFromInvited(userID, &pl.Rejected)
}

func (pl *Plan) moveFromInvited(userID string, to *[]Person) bool {
	i := indexOf(pl.Invited, userID)
	if i < 0 {
		return false
	}
	p := pl.Invited[i]
	pl.Invited = append(pl.Invited[:i], pl.Invited[i+1:]...)
	*to = append(*to, p)
	return true
}

// Lock finalizes the roster. It returns false if the plan was already locked.
func (pl *Plan) Lock() bool {
	if pl.ParticipantsLocked {
		return false
	}
	pl.ParticipantsLocked = true
	return true
}

// Cancelled reports whether the plan was cancelled.
func (pl *Plan) Cancelled() bool { return pl.CancelledAt != nil }

// Open reports whether the plan still needs roster work.
func (pl *Plan) Open() bool {
	return !pl.ParticipantsLocked && !pl.Cancelled() && !pl.Finished
}

// HasRoles reports whether both role owners are assigned.
func (pl *Plan) HasRoles() bool {
	return pl.ReservationOwner != nil && pl.ExpenseOwner != nil
}

// AssignReservationOwner sets the reservation owner once.
func (pl *Plan) AssignReservationOwner(p Person) error {
	return pl.assignRole(&pl.ReservationOwner, pl.ExpenseOwner, p)
}

// AssignExpenseOwner sets the expense owner once.
func (pl *Plan) AssignExpenseOwner(p Person) error {
	return pl.assignRole(&pl.ExpenseOwner, pl.ReservationOwner, p)
}

func (pl *Plan) assignRole(slot **Person, other *Person, p Person) error {
	if *slot != nil {
		return ErrRoleAssigned
	}
	if !pl.HasAccepted(p.UserID) {
		return ErrNotAccepted
	}
	if other != nil && other.UserID == p.UserID {
		return ErrSameOwner
	}
	*slot = &p
	return nil
}

// RoleCandidates returns the accepted people not holding excluded's role.
func (pl *Plan) RoleCandidates(excluded *Person) []Person {
	out := make([]Person, 0, len(pl.Accepted))
	for _, p := range pl.Accepted {
		if excluded != nil && excluded.UserID == p.UserID {
			continue
		}
		out = append(out, p)
	}
	return out
}

func indexOf(people []Person, userID string) int {
	for i, p := range people {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}
