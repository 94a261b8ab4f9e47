package activity

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/clock"
)

func TestFeed_RecordsInOrder(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	f := NewFeed(nil, fake.Now)

	f.Log("first")
	fake.Advance(time.Minute)
	f.Logf("second %d", 2)

	entries := f.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "first" || entries[1].Message != "second 2" {
		t.Errorf("unexpected messages: %+v", entries)
	}
	if !entries[1].Time.Equal(fake.Now()) {
		t.Errorf("expected second entry stamped %s, got %s", fake.Now(), entries[1].Time)
	}
}

func TestFeed_TrimsOldestWhenFull(t *testing.T) {
	f := NewFeed(nil, nil)
	for i := 0; i < DefaultCapacity; i++ {
		f.Log(fmt.Sprintf("entry %d", i))
	}
	if got := len(f.Entries()); got != DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultCapacity, got)
	}

	f.Log("overflow")

	entries := f.Entries()
	if len(entries) != DefaultCapacity-trimCount+1 {
		t.Fatalf("expected %d entries after trim, got %d", DefaultCapacity-trimCount+1, len(entries))
	}
	if entries[0].Message != fmt.Sprintf("entry %d", trimCount) {
		t.Errorf("expected oldest surviving entry to be entry %d, got %q", trimCount, entries[0].Message)
	}
	if entries[len(entries)-1].Message != "overflow" {
		t.Errorf("expected newest entry last, got %q", entries[len(entries)-1].Message)
	}
}

func TestFeed_EntriesIsACopy(t *testing.T) {
	f := NewFeed(nil, nil)
	f.Log("original")

	entries := f.Entries()
	entries[0].Message = "mutated"

	if f.Entries()[0].Message != "original" {
		t.Error("Entries() must not expose internal storage")
	}
}

func TestFeed_WritesToLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	f := NewFeed(logger, nil)

	f.Log("plan created")

	if !strings.Contains(buf.String(), "plan created") {
		t.Errorf("expected message in log output, got: %s", buf.String())
	}
}
