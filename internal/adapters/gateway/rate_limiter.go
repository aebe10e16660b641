package gateway

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"studysphere/internal/domain"
)

// CreateRateLimiter bounds portal-triggered room creation per user over
// a sliding window.
type CreateRateLimiter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
}

func NewCreateRateLimiter(clock clockwork.Clock, limit int, interval time.Duration) *CreateRateLimiter {
	return &CreateRateLimiter{
		clock:    clock,
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *CreateRateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[uid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[uid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[uid] = fresh
	return true
}
