package app

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"studysphere/internal/domain"
)

// Tracker converts raw presence transitions into finalized session
// durations. It runs before the lifecycle manager so a room being
// destroyed in the same transition cannot hide the session close.
type Tracker struct {
	mu    sync.Mutex
	reg   *Registry
	stats *Stats
	clock clockwork.Clock
	open  map[domain.UserID]*domain.OpenSession
}

func NewTracker(reg *Registry, stats *Stats, clock clockwork.Clock) *Tracker {
	return &Tracker{
		reg:   reg,
		stats: stats,
		clock: clock,
		open:  make(map[domain.UserID]*domain.OpenSession),
	}
}

// OnPresence opens, continues or closes the user's session. The rules:
// entering a tracked room opens one; hopping between tracked rooms keeps
// it (no double counting); leaving tracked space closes it; duplicate
// enters are no-ops. Whether a destination qualifies comes from the
// registry's stored kind, never from room naming.
func (t *Tracker) OnPresence(ctx context.Context, user domain.UserID, from, to domain.RoomID) {
	toRoom, toTracked := t.reg.Get(to)
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	sess, hasOpen := t.open[user]

	switch {
	case toTracked && !hasOpen:
		t.open[user] = &domain.OpenSession{User: user, Kind: toRoom.Kind, StartedAt: now}
		log.Info().Str("module", "app.tracker").Str("user", string(user)).Str("kind", string(toRoom.Kind)).Msg("session opened")

	case toTracked && hasOpen:
		// Continuous stay within tracked rooms, or a duplicate enter.

	case hasOpen:
		dur := now.Sub(sess.StartedAt)
		if dur < 0 {
			// Clock went backwards; never account negative time.
			dur = 0
		}
		delete(t.open, user)
		log.Info().Str("module", "app.tracker").Str("user", string(user)).Dur("duration", dur).Msg("session closed")
		t.stats.Finalize(ctx, user, dur)
	}
}

// OpenSession reports the user's current open session, if any.
func (t *Tracker) OpenSession(user domain.UserID) (domain.OpenSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.open[user]
	if !ok {
		return domain.OpenSession{}, false
	}
	return *sess, true
}
