// Package activity keeps a short, human-readable feed of what the bot did.
// The feed is not authoritative state; it exists for operators.
package activity

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/clock"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

const (
	// DefaultCapacity is the number of entries kept before trimming.
	DefaultCapacity = 100

	// trimCount entries are dropped from the front when the feed is full.
	trimCount = 25
)

// Recorder accepts activity messages.
type Recorder interface {
	Log(message string)
}

// Entry is one feed line.
type Entry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Feed is a bounded in-memory Recorder that also writes every message to slog.
type Feed struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	now      clock.Func
	logger   *slog.Logger
}

// NewFeed creates a Feed. A nil now uses the system clock.
func NewFeed(logger *slog.Logger, now clock.Func) *Feed {
	logger = logutil.NoopIfNil(logger)
	if now == nil {
		now = clock.System
	}
	return &Feed{
		entries:  make([]Entry, 0, DefaultCapacity),
		capacity: DefaultCapacity,
		now:      now,
		logger:   logger.With("component", "activity"),
	}
}

// Log records message.
func (f *Feed) Log(message string) {
	f.logger.Info(message)

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) >= f.capacity {
		f.entries = append(f.entries[:0], f.entries[trimCount:]...)
	}
	f.entries = append(f.entries, Entry{Time: f.now(), Message: message})
}

// Logf records a formatted message.
func (f *Feed) Logf(format string, args ...any) {
	f.Log(fmt.Sprintf(format, args...))
}

// Entries returns a copy of the feed, oldest first.
func (f *Feed) Entries() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Discard is a Recorder that drops everything.
type Discard struct{}

// Log implements Recorder.
func (Discard) Log(string) {}
