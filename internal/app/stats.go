package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"studysphere/internal/core"
	"studysphere/internal/domain"
)

// Stats aggregates finalized session durations: lifetime totals, session
// counts, the rolling history, day streaks, and the goal feed-through.
type Stats struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	goals    *Goals
	platform core.Platform
	users    map[domain.UserID]*domain.UserStats
}

func NewStats(goals *Goals, platform core.Platform, clock clockwork.Clock) *Stats {
	return &Stats{
		clock:    clock,
		goals:    goals,
		platform: platform,
		users:    make(map[domain.UserID]*domain.UserStats),
	}
}

// Finalize folds one closed session into the user's stats.
func (s *Stats) Finalize(ctx context.Context, user domain.UserID, dur time.Duration) {
	today := domain.DayOf(s.clock.Now())

	s.mu.Lock()
	st, ok := s.users[user]
	if !ok {
		st = &domain.UserStats{User: user}
		s.users[user] = st
	}
	st.Lifetime += dur
	st.Sessions++
	st.History = append(st.History, dur)
	if len(st.History) > domain.HistorySize {
		st.History = st.History[1:]
	}

	streakGrew := false
	switch st.LastActive {
	case today:
		// Already counted today.
	case today.Prev():
		st.Streak++
		streakGrew = true
	default:
		st.Streak = 1
		streakGrew = st.LastActive == "" // first-ever session
	}
	st.LastActive = today
	streak := st.Streak
	s.mu.Unlock()

	log.Info().Str("module", "app.stats").Str("user", string(user)).Dur("duration", dur).Int("streak", streak).Msg("session finalized")

	if reached := s.goals.Apply(ctx, user, dur); reached {
		s.platform.Notify(ctx, user, "goal_reached", map[string]any{
			"message": "daily goal reached, nice work",
		})
	}
	if streakGrew && streak > 1 {
		s.platform.Notify(ctx, user, "streak", map[string]any{
			"days": streak,
		})
	}
}

// Snapshot returns a copy of the user's stats. Zero-valued for a user
// with no finalized sessions.
func (s *Stats) Snapshot(user domain.UserID) domain.UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[user]
	if !ok {
		return domain.UserStats{User: user}
	}
	cp := *st
	cp.History = append([]time.Duration(nil), st.History...)
	return cp
}

// Top returns the n users with the greatest lifetime totals, ties broken
// by earliest last-active date then by id for determinism. Recomputed on
// every call, never cached.
func (s *Stats) Top(n int) []domain.UserStats {
	s.mu.Lock()
	out := make([]domain.UserStats, 0, len(s.users))
	for _, st := range s.users {
		cp := *st
		cp.History = append([]time.Duration(nil), st.History...)
		out = append(out, cp)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Lifetime != out[j].Lifetime {
			return out[i].Lifetime > out[j].Lifetime
		}
		if out[i].LastActive != out[j].LastActive {
			return out[i].LastActive < out[j].LastActive
		}
		return out[i].User < out[j].User
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}
