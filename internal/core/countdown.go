package core

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown is a single-shot cancelable delay. Cancel and natural expiry
// race for the same flag under one mutex, so a cancel requested at the
// same instant as the expiry suppresses the fire callback: stop wins.
type Countdown struct {
	mu   sync.Mutex
	done bool
	stop chan struct{}
}

// StartCountdown schedules fire after d on the given clock. fire runs on
// its own goroutine at most once.
func StartCountdown(clock clockwork.Clock, d time.Duration, fire func()) *Countdown {
	c := &Countdown{stop: make(chan struct{})}
	timer := clock.NewTimer(d)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.Chan():
			c.mu.Lock()
			if c.done {
				c.mu.Unlock()
				return
			}
			c.done = true
			c.mu.Unlock()
			fire()
		case <-c.stop:
		}
	}()
	return c
}

// Cancel suppresses the pending fire. It reports false when the
// countdown already fired or was already canceled.
func (c *Countdown) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	c.done = true
	close(c.stop)
	return true
}
