package meetup

import (
	"fmt"
	"strings"
	"time"
)

const (
	dayLayout  = "Monday, January 02"
	timeLayout = "15:04"
)

// Messages renders user-facing texts. Times are shown in Location.
type Messages struct {
	Location *time.Location
	BotRoom  string
	PerEvent int
}

// NewMessages creates a message renderer. A nil loc uses time.Local.
func NewMessages(loc *time.Location, botRoom string, perEvent int) Messages {
	if loc == nil {
		loc = time.Local
	}
	return Messages{Location: loc, BotRoom: botRoom, PerEvent: perEvent}
}

func (m Messages) when(t time.Time) (day, clock string) {
	local := t.In(m.Location)
	return local.Format(dayLayout), local.Format(timeLayout)
}

// PeopleList renders "@a, @b and @c".
func PeopleList(people []Person) string {
	names := make([]string, len(people))
	for i, p := range people {
		names[i] = p.Mention()
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// Invitation is the first message an invitee receives.
func (m Messages) Invitation(inv *Invitation) string {
	day, clock := m.when(inv.EventTime)
	others := "Other"
	if m.PerEvent > 1 {
		others = fmt.Sprintf("%d other", m.PerEvent-1)
	}
	return fmt.Sprintf("Hello @%s \n"+
		"Do you want to meet up for a social gathering and eat some tasty pizza with other colleagues in %s on *%s at %s*? \n"+
		"%s random colleagues from #%s have also been invited, and if you want to get to know them better all you have to do is reply yes if you want to accept this invitation or no if you can't make it and I will invite someone else in your stead. And don't worry, you will get a new chance in the future even if you can't make it this time.\n"+
		"If you have any questions please direct them to #%s and we will try to help. \n"+
		"Please reply `yes` or `no`. Or if you rather I don't bother you again try typing `opt out`",
		inv.UserName, inv.City, day, clock, others, inv.Room, m.BotRoom)
}

// Reminder nudges an invitee who has not answered.
func (m Messages) Reminder(inv *Invitation) string {
	day, clock := m.when(inv.EventTime)
	return fmt.Sprintf("Hello @%s \n"+
		"I recently sent you an invitation for a social pizza event on *%s at %s*. \n"+
		"Since you haven't responded yet I'm sending you this friendly reminder. If you don't respond promptly I will assume that you cannot make it and will invite someone else instead. \n"+
		"Please reply `yes` or `no` to indicate whether you can make it.",
		inv.UserName, day, clock)
}

// Expired tells an invitee their invitation lapsed.
func (m Messages) Expired(inv *Invitation) string {
	return fmt.Sprintf("Hello @%s \n"+
		"Sadly, you didn't respond to my invitation and I will now invite someone else instead. \n"+
		"Don't worry, I will try again sometime later. Maybe we will have better luck then.",
		inv.UserName)
}

// Accepted confirms a yes.
func (m Messages) Accepted() string {
	return "Thank you. I will keep you informed when the other guests have accepted!"
}

// Rejected confirms a no.
func (m Messages) Rejected() string {
	return "That is too bad, I will try to find someone else. \n" +
		"If you don't want to receive any more invitations from me try typing `opt out`"
}

// Reprompt answers anything but yes or no while an invitation is open.
func (m Messages) Reprompt(inv *Invitation) string {
	day, clock := m.when(inv.EventTime)
	return fmt.Sprintf("I didn't quite get that. I'm still waiting for your answer to the pizza invitation on *%s at %s*. \n"+
		"Please reply `yes` or `no`.", day, clock)
}

// Locked tells an accepted person the roster is final.
func (m Messages) Locked(pl *Plan) string {
	day, clock := m.when(pl.TimeOfEvent)
	return fmt.Sprintf("*Great news!* \n"+
		"This amazing group of people has accepted the invitation for pizza on *%s at %s* \n"+
		"%s \n"+
		"If you don't know them all yet, now is an excellent opportunity. Please have a fantastic time!",
		day, clock, PeopleList(pl.Accepted))
}

// ReservationOwner asks the chosen person to book a venue.
func (m Messages) ReservationOwner(pl *Plan, owner Person) string {
	day, clock := m.when(pl.TimeOfEvent)
	return fmt.Sprintf("Hello again, @%s \n"+
		"I need someone to help me make a reservation at a suitable location for the upcoming pizza dinner planned on *%s at %s*.\n"+
		"I have chosen you for this honor and wish you the best of luck to find a suitable location and make the necessary arrangements. If you need help finding a venue or have any questions please head over to #%s. \n"+
		"Someone else has been chosen to pay for the event and handling the expensing part, all you have to do is to make a reservation. \n"+
		"Also remember to inform or invite the other participants once you have made the reservation. The other participants are %s \n"+
		"Thank you!",
		owner.UserName, day, clock, m.BotRoom, PeopleList(pl.Accepted))
}

// ExpenseOwner asks the chosen person to pay and expense the bill.
func (m Messages) ExpenseOwner(pl *Plan, owner Person) string {
	day, clock := m.when(pl.TimeOfEvent)
	return fmt.Sprintf("Hello again, @%s \n"+
		"I need someone to help me handle the expenses for the upcoming pizza dinner planned on *%s at %s*.\n"+
		"I have chosen you for this honor. What you have to do is pay the bill for the dinner and file for the expenses. Someone else will choose a venue and make a reservation, all you have to do is show up and be ready to pay. \n"+
		"If you have any questions please ask someone else in your group or head over to #%s.\n"+
		"The other participants are %s \n"+
		"Thank you!",
		owner.UserName, day, clock, m.BotRoom, PeopleList(pl.Accepted))
}

// Cancelled tells an accepted person the plan is off.
func (m Messages) Cancelled(pl *Plan, p Person) string {
	day, clock := m.when(pl.TimeOfEvent)
	return fmt.Sprintf("Hello again @%s. \n"+
		"Unfortunately due to lack of interest the *pizza dinner on %s at %s will have to be cancelled.* \n"+
		"I'll make sure to invite you to another dinner at another time.",
		p.UserName, day, clock)
}

// ParticipantReminder is the final reminder before the event.
func (m Messages) ParticipantReminder(pl *Plan, p Person) string {
	day, clock := m.when(pl.TimeOfEvent)
	return fmt.Sprintf("Hello again @%s. \n"+
		"I'm sending you this message to remind you that you have an upcoming *pizza dinner on %s at %s* together with %s",
		p.UserName, day, clock, PeopleList(pl.Accepted))
}

// RoomAnnouncement is posted in the room once a plan is locked with roles.
func (m Messages) RoomAnnouncement(pl *Plan) string {
	day, clock := m.when(pl.TimeOfEvent)
	var reservation, expense string
	if pl.ReservationOwner != nil {
		reservation = pl.ReservationOwner.Mention()
	}
	if pl.ExpenseOwner != nil {
		expense = pl.ExpenseOwner.Mention()
	}
	return fmt.Sprintf("*Pizza is on!* \n"+
		"%s are meeting up for pizza in %s on *%s at %s*. \n"+
		"%s is finding a place and making the reservation, and %s is taking care of the bill. \n"+
		"Everyone else: keep an eye on your messages, I pick new random guests every week. Questions go to #%s.",
		PeopleList(pl.Accepted), pl.City, day, clock, reservation, expense, m.BotRoom)
}

// OptOutOptions lists the channels a person can opt out of.
func (m Messages) OptOutOptions(room string) string {
	return "To opt out of receiving invitations from me, please specify which channel you want me to ignore you in. \n" +
		"Use `opt out [Channel]`, " +
		fmt.Sprintf("where options for Channel include: `%s` or `all`", room)
}

// OptOutRepeat asks for the confirming repeat.
func (m Messages) OptOutRepeat(channel string) string {
	return fmt.Sprintf("Please confirm your choice by repeating `opt out %s`", channel)
}

// OptOutConfirmed confirms a committed opt-out.
func (m Messages) OptOutConfirmed(channel string) string {
	return fmt.Sprintf("You have now opted out of any and all upcoming pizza plans in the channel '%s'.\n"+
		"If you should change your mind you can always opt in again by typing `opt in %s`.", channel, channel)
}

// OptedIn confirms an opt-in.
func (m Messages) OptedIn(channel string) string {
	return fmt.Sprintf("You have now opted in for any upcoming pizza plans in the channel `%s`.\n"+
		"I am really happy you have chosen to do so. Perhaps you will be selected soon to eat some delicious pizza.", channel)
}

// ChannelUnrecognised answers an unknown channel name.
func (m Messages) ChannelUnrecognised(channel string) string {
	return fmt.Sprintf("I don't recognise that channel name: %s", channel)
}

// OptUsage answers an opt command in no known form.
func (m Messages) OptUsage(room string) string {
	return fmt.Sprintf("I didn't understand that. Use `opt out %s` to stop receiving invitations or `opt in %s` to start again.", room, room)
}

// Help is the reply to direct messages nobody handled.
func (m Messages) Help() string {
	return "Hi! I organize pizza meetups by inviting random colleagues. " +
		"When you get an invitation, reply `yes` or `no`. " +
		fmt.Sprintf("Type `opt out` to stop receiving invitations. Questions go to #%s.", m.BotRoom)
}
