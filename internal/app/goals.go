package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"studysphere/internal/domain"
)

// Goals stores per-user daily targets. Accumulation belongs to a single
// calendar date: any read or write on a later date first resets it and
// advances the stored date.
type Goals struct {
	mu    sync.Mutex
	clock clockwork.Clock
	goals map[domain.UserID]*domain.Goal
}

func NewGoals(clock clockwork.Clock) *Goals {
	return &Goals{
		clock: clock,
		goals: make(map[domain.UserID]*domain.Goal),
	}
}

// Set installs or replaces the user's daily target. The target must be
// positive; validation happens before any mutation.
func (g *Goals) Set(ctx context.Context, user domain.UserID, target time.Duration) (domain.Goal, error) {
	if target <= 0 {
		return domain.Goal{}, domain.ErrInvalidGoal
	}
	today := domain.DayOf(g.clock.Now())

	g.mu.Lock()
	defer g.mu.Unlock()
	goal, ok := g.goals[user]
	if !ok {
		goal = &domain.Goal{User: user, EffectiveDate: today}
		g.goals[user] = goal
	}
	g.rollover(goal, today)
	goal.Target = target
	log.Info().Str("module", "app.goals").Str("user", string(user)).Dur("target", target).Msg("goal set")
	return *goal, nil
}

// Clear destroys the user's goal. Idempotent.
func (g *Goals) Clear(ctx context.Context, user domain.UserID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.goals, user)
}

// Apply adds a finalized duration to the user's goal for today and
// reports whether this addition crossed the target.
func (g *Goals) Apply(ctx context.Context, user domain.UserID, dur time.Duration) bool {
	today := domain.DayOf(g.clock.Now())

	g.mu.Lock()
	defer g.mu.Unlock()
	goal, ok := g.goals[user]
	if !ok {
		return false
	}
	g.rollover(goal, today)
	before := goal.Accumulated
	goal.Accumulated += dur
	return before < goal.Target && goal.Accumulated >= goal.Target
}

// Progress returns a copy of the user's goal after the lazy date
// rollover.
func (g *Goals) Progress(ctx context.Context, user domain.UserID) (domain.Goal, bool) {
	today := domain.DayOf(g.clock.Now())

	g.mu.Lock()
	defer g.mu.Unlock()
	goal, ok := g.goals[user]
	if !ok {
		return domain.Goal{}, false
	}
	g.rollover(goal, today)
	return *goal, true
}

func (g *Goals) rollover(goal *domain.Goal, today domain.Day) {
	if goal.EffectiveDate != today {
		goal.Accumulated = 0
		goal.EffectiveDate = today
	}
}
