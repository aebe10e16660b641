package orch

import (
	"context"

	"studysphere/internal/app"
	"studysphere/internal/domain"
)

// Orchestrator composes the core components and fans the presence feed
// out to them.
type Orchestrator struct {
	Registry  *app.Registry
	Lifecycle *app.Lifecycle
	Tracker   *app.Tracker
	Stats     *app.Stats
	Goals     *app.Goals
	Pomodoro  *app.Pomodoro

	dispatch map[string]command
}

func New(reg *app.Registry, lc *app.Lifecycle, tr *app.Tracker, st *app.Stats, gl *app.Goals, pd *app.Pomodoro) *Orchestrator {
	o := &Orchestrator{
		Registry:  reg,
		Lifecycle: lc,
		Tracker:   tr,
		Stats:     st,
		Goals:     gl,
		Pomodoro:  pd,
	}
	o.dispatch = buildDispatch(o)
	return o
}

// OnPresence handles one transition from the feed. The tracker runs
// first: it must see the session close before the lifecycle manager can
// unregister an emptied room. Neither consumer depends on the other's
// outcome beyond that ordering.
func (o *Orchestrator) OnPresence(ctx context.Context, user domain.UserID, from, to domain.RoomID) {
	o.Tracker.OnPresence(ctx, user, from, to)
	o.Lifecycle.OnPresence(ctx, user, from, to)
}
