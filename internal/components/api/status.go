package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/activity"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/appctx"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

// eventLength is the duration calendar entries are given.
const eventLength = 2 * time.Hour

// ActivitySource exposes the activity feed.
type ActivitySource interface {
	Entries() []activity.Entry
}

// PlanSource exposes active and archived plans.
type PlanSource interface {
	ActivePlans() []meetup.Plan
	ArchivedPlans(ctx context.Context) ([]meetup.Plan, error)
}

// Handlers serves the status endpoints.
type Handlers struct {
	activity ActivitySource
	plans    PlanSource
	logger   *slog.Logger
}

// NewHandlers creates the status handlers.
func NewHandlers(activity ActivitySource, plans PlanSource, logger *slog.Logger) *Handlers {
	return &Handlers{
		activity: activity,
		plans:    plans,
		logger:   logutil.NoopIfNil(logger),
	}
}

// ActivityResponse is the body of GET /api/activity.
type ActivityResponse struct {
	Entries []activity.Entry `json:"entries"`
}

// PlansResponse is the body of the plan listings.
type PlansResponse struct {
	Plans []meetup.Plan `json:"plans"`
}

// Activity handles GET /api/activity.
func (h *Handlers) Activity(w http.ResponseWriter, r *http.Request) {
	entries := h.activity.Entries()
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, ActivityResponse{Entries: entries})
}

// ActivePlans handles GET /api/plans.
func (h *Handlers) ActivePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, PlansResponse{Plans: nonNil(h.plans.ActivePlans())})
}

// ArchivedPlans handles GET /api/plans/archived.
func (h *Handlers) ArchivedPlans(w http.ResponseWriter, r *http.Request) {
	archived, err := h.plans.ArchivedPlans(r.Context())
	if err != nil {
		appctx.GetLogger(r.Context()).Error("failed to read archived plans", "error", err)
		WriteInternalError(w, "could not read archived plans")
		return
	}
	audit(r, "archived plans served", len(archived))
	writeJSON(w, PlansResponse{Plans: nonNil(archived)})
}

// Calendar handles GET /api/plans.ics. Active and archived plans are
// exported; cancelled plans keep their entry with a cancelled status.
func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	archived, err := h.plans.ArchivedPlans(r.Context())
	if err != nil {
		appctx.GetLogger(r.Context()).Error("failed to read archived plans", "error", err)
		WriteInternalError(w, "could not read archived plans")
		return
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//pizzabot-go//plans//EN")
	all := append(archived, h.plans.ActivePlans()...)
	for _, pl := range all {
		addEvent(cal, pl)
	}
	audit(r, "calendar exported", len(all))

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, cal.Serialize())
}

func addEvent(cal *ical.Calendar, pl meetup.Plan) {
	event := cal.AddEvent(pl.ID + "@pizzabot-go")
	event.SetDtStampTime(pl.TimeOfEvent)
	event.SetStartAt(pl.TimeOfEvent)
	event.SetEndAt(pl.TimeOfEvent.Add(eventLength))
	event.SetSummary("Pizza in " + pl.City)
	event.SetLocation(pl.City)
	event.SetDescription(fmt.Sprintf("Pizza meetup for #%s.", pl.Channel))

	switch {
	case pl.Cancelled():
		event.SetStatus(ical.ObjectStatusCancelled)
	case pl.ParticipantsLocked:
		event.SetStatus(ical.ObjectStatusConfirmed)
	default:
		event.SetStatus(ical.ObjectStatusTentative)
	}

	for _, p := range pl.Accepted {
		event.AddAttendee(p.UserName, ical.WithCN(p.UserName), ical.ParticipationStatusAccepted)
	}
	for _, p := range pl.Invited {
		event.AddAttendee(p.UserName, ical.WithCN(p.UserName), ical.ParticipationStatusNeedsAction)
	}
}

// audit records who read plan history. operator is empty when auth is off.
func audit(r *http.Request, msg string, count int) {
	appctx.GetLogger(r.Context()).Debug(msg, "plans", count, "operator", appctx.Operator(r.Context()))
}

func nonNil(plans []meetup.Plan) []meetup.Plan {
	if plans == nil {
		return []meetup.Plan{}
	}
	return plans
}
