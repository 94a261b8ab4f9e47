package meetup

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var (
	alice = Person{UserID: "U1", UserName: "alice"}
	bob   = Person{UserID: "U2", UserName: "bob"}
	carol = Person{UserID: "U3", UserName: "carol"}
)

func TestInvitation_Resolve(t *testing.T) {
	tests := []struct {
		name  string
		from  Response
		to    Response
		want  bool
		final Response
	}{
		{"accept", NoResponse, Accepted, true, Accepted},
		{"reject", NoResponse, Rejected, true, Rejected},
		{"expire", NoResponse, Expired, true, Expired},
		{"empty reads as no response", "", Accepted, true, Accepted},
		{"not terminal", NoResponse, NoResponse, false, NoResponse},
		{"accepted stays accepted", Accepted, Rejected, false, Accepted},
		{"expired stays expired", Expired, Accepted, false, Expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invitation{Response: tt.from}
			if got := inv.Resolve(tt.to); got != tt.want {
				t.Errorf("Resolve(%s) = %v, want %v", tt.to, got, tt.want)
			}
			if inv.Response != tt.final && !(tt.final == NoResponse && inv.Response == "") {
				t.Errorf("response = %s, want %s", inv.Response, tt.final)
			}
		})
	}
}

func assertDisjoint(t *testing.T, pl *Plan) {
	t.Helper()
	seen := map[string]string{}
	for name, set := range map[string][]Person{"invited": pl.Invited, "accepted": pl.Accepted, "rejected": pl.Rejected} {
		for _, p := range set {
			if other, ok := seen[p.UserID]; ok {
				t.Fatalf("%s is in both %s and %s", p.UserID, other, name)
			}
			seen[p.UserID] = name
		}
	}
}

func TestPlan_RosterStaysDisjoint(t *testing.T) {
	pl := &Plan{ID: "p1"}

	added := pl.AddInvited(alice, bob, alice)
	if len(added) != 2 {
		t.Fatalf("expected 2 added, got %d", len(added))
	}
	assertDisjoint(t, pl)

	if !pl.MoveToAccepted("U1") {
		t.Fatal("MoveToAccepted failed")
	}
	if pl.MoveToAccepted("U1") {
		t.Error("second MoveToAccepted must be a no-op")
	}
	if pl.MoveToRejected("U1") {
		t.Error("an accepted person cannot be moved to rejected")
	}
	if !pl.MoveToRejected("U2") {
		t.Fatal("MoveToRejected failed")
	}
	assertDisjoint(t, pl)

	if got := pl.AddInvited(alice, bob, carol); len(got) != 1 || got[0] != carol {
		t.Errorf("expected only carol to be added, got %+v", got)
	}
	assertDisjoint(t, pl)

	if len(pl.Everyone()) != 3 {
		t.Errorf("expected 3 people on the plan, got %d", len(pl.Everyone()))
	}
}

func TestPlan_LockIsMonotonic(t *testing.T) {
	pl := &Plan{}
	if !pl.Lock() {
		t.Fatal("first Lock should succeed")
	}
	if pl.Lock() {
		t.Error("second Lock should report no change")
	}
	if !pl.ParticipantsLocked {
		t.Error("plan must stay locked")
	}
	if pl.Open() {
		t.Error("locked plan is not open")
	}
}

func TestPlan_RoleAssignment(t *testing.T) {
	pl := &Plan{Accepted: []Person{alice, bob}}

	if err := pl.AssignReservationOwner(carol); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("expected ErrNotAccepted, got %v", err)
	}
	if err := pl.AssignReservationOwner(alice); err != nil {
		t.Fatalf("AssignReservationOwner: %v", err)
	}
	if err := pl.AssignReservationOwner(bob); !errors.Is(err, ErrRoleAssigned) {
		t.Errorf("expected ErrRoleAssigned, got %v", err)
	}
	if err := pl.AssignExpenseOwner(alice); !errors.Is(err, ErrSameOwner) {
		t.Errorf("expected ErrSameOwner, got %v", err)
	}
	if cands := pl.RoleCandidates(pl.ReservationOwner); len(cands) != 1 || cands[0] != bob {
		t.Errorf("expected bob as the only expense candidate, got %+v", cands)
	}
	if err := pl.AssignExpenseOwner(bob); err != nil {
		t.Fatalf("AssignExpenseOwner: %v", err)
	}
	if !pl.HasRoles() {
		t.Error("expected both roles assigned")
	}
	if pl.ReservationOwner.UserID != "U1" || pl.ExpenseOwner.UserID != "U2" {
		t.Errorf("unexpected owners: %+v / %+v", pl.ReservationOwner, pl.ExpenseOwner)
	}
}

func TestPlan_Invitation(t *testing.T) {
	at := time.Date(2024, 5, 14, 17, 0, 0, 0, time.UTC)
	pl := &Plan{ID: "p1", TimeOfEvent: at, Channel: "general", City: "Oslo"}
	inv := pl.Invitation(alice)
	if inv.EventID != "p1" || inv.UserID != "U1" || !inv.EventTime.Equal(at) || inv.Room != "general" || inv.City != "Oslo" {
		t.Errorf("unexpected invitation: %+v", inv)
	}
	if !inv.Outstanding() || inv.InvitedAt != nil {
		t.Errorf("new invitation must be unsent and outstanding: %+v", inv)
	}
}

func TestPeopleList(t *testing.T) {
	tests := []struct {
		people []Person
		want   string
	}{
		{nil, ""},
		{[]Person{alice}, "@alice"},
		{[]Person{alice, bob}, "@alice and @bob"},
		{[]Person{alice, bob, carol}, "@alice, @bob and @carol"},
	}
	for _, tt := range tests {
		if got := PeopleList(tt.people); got != tt.want {
			t.Errorf("PeopleList(%v) = %q, want %q", tt.people, got, tt.want)
		}
	}
}

func TestMessages_FormatEventTimeInLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	m := NewMessages(loc, "pizzalight", 5)
	inv := &Invitation{
		UserName:  "alice",
		EventTime: time.Date(2024, 5, 14, 16, 0, 0, 0, time.UTC),
		Room:      "general",
		City:      "Oslo",
	}

	text := m.Invitation(inv)
	for _, want := range []string{"@alice", "Oslo", "*Tuesday, May 14 at 17:00*", "4 other random colleagues from #general", "#pizzalight", "`opt out`"} {
		if !strings.Contains(text, want) {
			t.Errorf("invitation text missing %q:\n%s", want, text)
		}
	}

	pl := &Plan{
		TimeOfEvent:      inv.EventTime,
		City:             "Oslo",
		Accepted:         []Person{alice, bob},
		ReservationOwner: &alice,
		ExpenseOwner:     &bob,
	}
	announcement := m.RoomAnnouncement(pl)
	for _, want := range []string{"@alice and @bob", "@alice is finding a place", "@bob is taking care of the bill"} {
		if !strings.Contains(announcement, want) {
			t.Errorf("announcement missing %q:\n%s", want, announcement)
		}
	}
}
