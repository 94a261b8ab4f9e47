package planner

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

var eventWeekdays = []rrule.Weekday{rrule.TU, rrule.WE, rrule.TH}

// WeekStart returns midnight on the Monday of t's week in loc. Sunday belongs
// to the week that started six days earlier.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	return time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
}

// TargetWeek returns the Monday weeksAhead weeks after the current week.
func TargetWeek(now time.Time, loc *time.Location, weeksAhead int) time.Time {
	start := WeekStart(now, loc)
	return time.Date(start.Year(), start.Month(), start.Day()+7*weeksAhead, 0, 0, 0, 0, loc)
}

// EventSlots lists the Tuesday, Wednesday and Thursday of the week starting
// at monday, each at hour:00.
func EventSlots(monday time.Time, hour int) ([]time.Time, error) {
	end := time.Date(monday.Year(), monday.Month(), monday.Day()+7, 0, 0, 0, 0, monday.Location())
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: eventWeekdays,
		Byhour:    []int{hour},
		Byminute:  []int{0},
		Bysecond:  []int{0},
		Dtstart:   monday,
		Until:     end,
	})
	if err != nil {
		return nil, fmt.Errorf("event slots: %w", err)
	}
	return r.All(), nil
}

func inWeek(t, monday time.Time) bool {
	end := time.Date(monday.Year(), monday.Month(), monday.Day()+7, 0, 0, 0, 0, monday.Location())
	return !t.Before(monday) && t.Before(end)
}
