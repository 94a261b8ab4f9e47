package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup"
)

// exclusion is a set of user ids that must not be drawn.
type exclusion map[string]struct{}

func (e exclusion) add(people ...meetup.Person) {
	for _, p := range people {
		e[p.UserID] = struct{}{}
	}
}

func (e exclusion) has(userID string) bool {
	_, ok := e[userID]
	return ok
}

// baseExclusion holds everyone with an outstanding invitation and everyone
// opted out of the room. Callers lock p.mu.
func (p *Planner) baseExclusion() exclusion {
	ex := exclusion{}
	for _, inv := range p.inviter.Outstanding() {
		ex[inv.UserID] = struct{}{}
	}
	if p.optOuts != nil {
		ex.add(p.optOuts.OptedOut(p.cfg.Room)...)
	}
	return ex
}

// selectCandidates draws up to count distinct people from the room, uniformly
// and without replacement. Bots, deactivated accounts and excluded ids never
// qualify. A short pool is returned whole.
func (p *Planner) selectCandidates(ctx context.Context, count int, ex exclusion) ([]meetup.Person, error) {
	if count <= 0 {
		return nil, nil
	}
	members, err := p.gateway.ChannelMembers(ctx, p.cfg.Room)
	if err != nil {
		return nil, fmt.Errorf("list members of #%s: %w", p.cfg.Room, err)
	}

	pool := make([]meetup.Person, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, id := range members {
		if _, dup := seen[id]; dup || ex.has(id) {
			continue
		}
		seen[id] = struct{}{}

		u, err := p.gateway.LookupUser(ctx, id)
		if err != nil {
			if !errors.Is(err, chat.ErrUnknownUser) {
				p.logger.Warn("could not look up room member", "user_id", id, "error", err)
			}
			continue
		}
		if u.IsBot || u.IsDeactivated {
			continue
		}
		pool = append(pool, meetup.Person{UserID: u.ID, UserName: u.Name})
	}

	p.rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}
