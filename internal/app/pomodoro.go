package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"studysphere/internal/core"
	"studysphere/internal/domain"
)

// Pomodoro runs one work/break state machine per user. The component
// mutex serializes every operation and phase advance for a user, which
// keeps the invariant of at most one outstanding countdown per user:
// anything that schedules first cancels.
type Pomodoro struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	platform core.Platform
	work     time.Duration
	brk      time.Duration
	timers   map[domain.UserID]*pomodoroTimer
}

type pomodoroTimer struct {
	state domain.TimerState
	cd    *core.Countdown
	gen   uint64
}

func NewPomodoro(platform core.Platform, clock clockwork.Clock, work, brk time.Duration) *Pomodoro {
	return &Pomodoro{
		clock:    clock,
		platform: platform,
		work:     work,
		brk:      brk,
		timers:   make(map[domain.UserID]*pomodoroTimer),
	}
}

// Start begins a fresh work phase, or resumes a paused one in place
// without resetting the remainder.
func (p *Pomodoro) Start(ctx context.Context, user domain.UserID) (domain.TimerState, error) {
	now := p.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.timers[user]
	switch {
	case ok && t.state.Running:
		return t.state, domain.ErrAlreadyRunning
	case ok:
		t.state.Running = true
		t.state.AnchorAt = now
		p.schedule(ctx, user, t, t.state.Remaining)
		log.Info().Str("module", "app.pomodoro").Str("user", string(user)).Dur("remaining", t.state.Remaining).Msg("resumed")
	default:
		t = &pomodoroTimer{state: domain.TimerState{
			User:      user,
			Phase:     domain.PhaseWork,
			Remaining: p.work,
			Running:   true,
			AnchorAt:  now,
		}}
		p.timers[user] = t
		p.schedule(ctx, user, t, p.work)
		log.Info().Str("module", "app.pomodoro").Str("user", string(user)).Msg("started")
	}
	return t.state, nil
}

// Pause freezes the countdown, keeping the computed remainder.
func (p *Pomodoro) Pause(ctx context.Context, user domain.UserID) (domain.TimerState, error) {
	now := p.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.timers[user]
	if !ok || !t.state.Running {
		return domain.TimerState{}, domain.ErrNotRunning
	}
	if t.cd != nil {
		t.cd.Cancel()
		t.cd = nil
	}
	remaining := t.state.Remaining - now.Sub(t.state.AnchorAt)
	if remaining < 0 {
		remaining = 0
	}
	t.state.Remaining = remaining
	t.state.Running = false
	log.Info().Str("module", "app.pomodoro").Str("user", string(user)).Dur("remaining", remaining).Msg("paused")
	return t.state, nil
}

// Stop cancels any in-flight countdown and forgets the state. Idempotent.
func (p *Pomodoro) Stop(ctx context.Context, user domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.timers[user]
	if !ok {
		return
	}
	if t.cd != nil {
		t.cd.Cancel()
	}
	delete(p.timers, user)
	log.Info().Str("module", "app.pomodoro").Str("user", string(user)).Msg("stopped")
}

// Status reports the live state, with the remainder projected to now
// while running.
func (p *Pomodoro) Status(user domain.UserID) (domain.TimerState, error) {
	now := p.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.timers[user]
	if !ok {
		return domain.TimerState{}, domain.ErrNotRunning
	}
	st := t.state
	if st.Running {
		st.Remaining -= now.Sub(st.AnchorAt)
		if st.Remaining < 0 {
			st.Remaining = 0
		}
	}
	return st, nil
}

// schedule arms the phase countdown. Callers hold p.mu. Any previous
// countdown is canceled first so two can never overlap for one user.
// The generation stamp lets a fire that already left the countdown
// goroutine identify itself as stale.
func (p *Pomodoro) schedule(ctx context.Context, user domain.UserID, t *pomodoroTimer, d time.Duration) {
	if t.cd != nil {
		t.cd.Cancel()
	}
	t.gen++
	gen := t.gen
	t.cd = core.StartCountdown(p.clock, d, func() {
		p.advance(ctx, user, t, gen)
	})
}

// advance flips the phase when a countdown expires. The cycle repeats
// until an explicit stop; there is no fixed cycle count. An expiry that
// raced a stop, pause or restart carries a stale timer or generation
// and must leave the current state alone: stop wins.
func (p *Pomodoro) advance(ctx context.Context, user domain.UserID, t *pomodoroTimer, gen uint64) {
	now := p.clock.Now()

	p.mu.Lock()
	cur, ok := p.timers[user]
	if !ok || cur != t || t.gen != gen || !t.state.Running {
		p.mu.Unlock()
		return
	}
	t.state.Phase = t.state.Phase.Next()
	t.state.Remaining = p.durationFor(t.state.Phase)
	t.state.AnchorAt = now
	p.schedule(ctx, user, t, t.state.Remaining)
	st := t.state
	p.mu.Unlock()

	log.Info().Str("module", "app.pomodoro").Str("user", string(user)).Str("phase", string(st.Phase)).Msg("phase change")
	p.platform.Notify(ctx, user, "phase_change", map[string]any{
		"phase":    st.Phase,
		"duration": st.Remaining.Seconds(),
	})
}

func (p *Pomodoro) durationFor(phase domain.Phase) time.Duration {
	if phase == domain.PhaseBreak {
		return p.brk
	}
	return p.work
}
