package clock

import (
	"testing"
	"time"
)

func TestFake(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)

	var now Func = f.Now
	if !now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", now(), start)
	}

	f.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", now(), want)
	}

	later := start.Add(72 * time.Hour)
	f.Set(later)
	if !now().Equal(later) {
		t.Errorf("after Set, Now() = %v, want %v", now(), later)
	}
}
