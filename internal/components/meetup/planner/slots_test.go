package planner

import (
	"testing"
	"time"
)

func TestWeekStart(t *testing.T) {
	oslo := time.FixedZone("CEST", 2*3600)
	monday := time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		loc  *time.Location
		want time.Time
	}{
		{"monday", time.Date(2024, 4, 29, 8, 0, 0, 0, time.UTC), time.UTC, monday},
		{"wednesday", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), time.UTC, monday},
		{"sunday belongs to previous week", time.Date(2024, 5, 5, 23, 0, 0, 0, time.UTC), time.UTC, monday},
		{"local zone decides the day", time.Date(2024, 5, 5, 23, 30, 0, 0, time.UTC), oslo,
			time.Date(2024, 5, 6, 0, 0, 0, 0, oslo)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.at, tt.loc); !got.Equal(tt.want) {
				t.Errorf("WeekStart(%s) = %s, want %s", tt.at, got, tt.want)
			}
		})
	}
}

func TestTargetWeek(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	want := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	if got := TargetWeek(now, time.UTC, 2); !got.Equal(want) {
		t.Errorf("TargetWeek() = %s, want %s", got, want)
	}
}

func TestEventSlots(t *testing.T) {
	monday := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	slots, err := EventSlots(monday, 17)
	if err != nil {
		t.Fatalf("EventSlots: %v", err)
	}
	want := []time.Time{
		time.Date(2024, 5, 14, 17, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 15, 17, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 16, 17, 0, 0, 0, time.UTC),
	}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots %v, want %v", len(slots), slots, want)
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Errorf("slot %d = %s, want %s", i, slots[i], want[i])
		}
		if !inWeek(slots[i], monday) {
			t.Errorf("slot %s outside its week", slots[i])
		}
	}
	if inWeek(monday.AddDate(0, 0, 7), monday) {
		t.Error("next monday is not in the week")
	}
}
