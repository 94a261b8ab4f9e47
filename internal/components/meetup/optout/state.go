// Package optout records who asked not to be invited in a channel and runs
// the two-step confirmation that sets that preference.
package optout

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
)

// State maps channel names to the people opted out of them. A channel that
// ever had an opt-out stays known even when its list is empty.
type State struct {
	docs store.Documents

	mu       sync.RWMutex
	channels map[string][]meetup.Person
}

// NewState creates a State persisted in docs. Call Load before use.
func NewState(docs store.Documents) *State {
	return &State{docs: docs, channels: map[string][]meetup.Person{}}
}

// Load reads the persisted state. A missing document is an empty state.
func (s *State) Load(ctx context.Context) error {
	loaded, _, err := store.ReadObject[map[string][]meetup.Person](ctx, s.docs, store.KeyOptOuts)
	if err != nil {
		return fmt.Errorf("optout: load state: %w", err)
	}
	if loaded == nil {
		loaded = map[string][]meetup.Person{}
	}
	s.mu.Lock()
	s.channels = loaded
	s.mu.Unlock()
	return nil
}

// OptedOut returns a copy of the people opted out of channel.
func (s *State) OptedOut(channel string) []meetup.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.channels[channel])
}

// Has reports whether userID opted out of channel.
func (s *State) Has(channel, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.channels[channel], func(p meetup.Person) bool { return p.UserID == userID })
}

// Known reports whether channel has any recorded opt-out state.
func (s *State) Known(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[channel]
	return ok
}

// Add opts p out of channel. It reports false if p already was.
func (s *State) Add(ctx context.Context, channel string, p meetup.Person) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	people := s.channels[channel]
	if slices.ContainsFunc(people, func(o meetup.Person) bool { return o.UserID == p.UserID }) {
		return false, nil
	}
	s.channels[channel] = append(people, p)
	return true, s.persistLocked(ctx)
}

// Remove opts userID back into channel. It reports false if userID was not
// opted out.
func (s *State) Remove(ctx context.Context, channel, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	people := s.channels[channel]
	kept := slices.DeleteFunc(slices.Clone(people), func(o meetup.Person) bool { return o.UserID == userID })
	if len(kept) == len(people) {
		return false, nil
	}
	s.channels[channel] = kept
	return true, s.persistLocked(ctx)
}

func (s *State) persistLocked(ctx context.Context) error {
	if err := store.SaveObject(ctx, s.docs, store.KeyOptOuts, s.channels); err != nil {
		return fmt.Errorf("optout: persist state: %w", err)
	}
	return nil
}
