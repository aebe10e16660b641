package orch

import (
	"context"
	"errors"
	"time"

	"studysphere/internal/domain"
)

// Request is one user-initiated command: an action identifier plus the
// actor's identity, with an optional target user and free-form argument.
type Request struct {
	Action string
	Actor  domain.UserID
	Target domain.UserID
	Arg    string
}

// ErrUnknownAction marks an action id with no dispatch entry.
var ErrUnknownAction = errors.New("unknown action")

type command func(ctx context.Context, o *Orchestrator, req Request) (any, error)

// Dispatch routes a command to its operation. All domain errors come
// back for the transport adapter to render; nothing here touches the
// wire format.
func (o *Orchestrator) Dispatch(ctx context.Context, req Request) (any, error) {
	cmd, ok := o.dispatch[req.Action]
	if !ok {
		return nil, ErrUnknownAction
	}
	return cmd(ctx, o, req)
}

type roomResult struct {
	Room   domain.RoomID   `json:"room"`
	Name   domain.RoomName `json:"name"`
	Locked bool            `json:"locked"`
	Target domain.UserID   `json:"target,omitempty"`
}

type statsResult struct {
	User     domain.UserID `json:"user"`
	Lifetime float64       `json:"lifetime_seconds"`
	Sessions int           `json:"sessions"`
	Average  float64       `json:"average_seconds"`
	Streak   int           `json:"streak_days"`
}

type progressResult struct {
	Target      float64 `json:"target_seconds"`
	Accumulated float64 `json:"accumulated_seconds"`
	Date        string  `json:"date"`
}

func buildDispatch(o *Orchestrator) map[string]command {
	return map[string]command{
		"trust": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			room, err := o.Lifecycle.Trust(ctx, req.Actor, req.Target)
			if err != nil {
				return nil, err
			}
			return roomResult{Room: room.ID, Name: room.Name, Locked: room.Locked, Target: req.Target}, nil
		},
		"kick": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			room, err := o.Lifecycle.Kick(ctx, req.Actor, req.Target)
			if err != nil {
				return nil, err
			}
			return roomResult{Room: room.ID, Name: room.Name, Locked: room.Locked, Target: req.Target}, nil
		},
		"lock": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			room, err := o.Lifecycle.Lock(ctx, req.Actor)
			if err != nil {
				return nil, err
			}
			return roomResult{Room: room.ID, Name: room.Name, Locked: room.Locked}, nil
		},
		"unlock": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			room, err := o.Lifecycle.Unlock(ctx, req.Actor)
			if err != nil {
				return nil, err
			}
			return roomResult{Room: room.ID, Name: room.Name, Locked: room.Locked}, nil
		},
		"delete": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			room, err := o.Lifecycle.Delete(ctx, req.Actor)
			if err != nil {
				return nil, err
			}
			return roomResult{Room: room.ID, Name: room.Name}, nil
		},
		"timer-start": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			return o.Pomodoro.Start(ctx, req.Actor)
		},
		"timer-pause": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			return o.Pomodoro.Pause(ctx, req.Actor)
		},
		"timer-stop": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			o.Pomodoro.Stop(ctx, req.Actor)
			return map[string]any{"stopped": true}, nil
		},
		"timer-status": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			return o.Pomodoro.Status(req.Actor)
		},
		"goal-set": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			target, err := time.ParseDuration(req.Arg)
			if err != nil {
				return nil, domain.ErrInvalidGoal
			}
			goal, err := o.Goals.Set(ctx, req.Actor, target)
			if err != nil {
				return nil, err
			}
			return progressResult{
				Target:      goal.Target.Seconds(),
				Accumulated: goal.Accumulated.Seconds(),
				Date:        string(goal.EffectiveDate),
			}, nil
		},
		"goal-clear": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			o.Goals.Clear(ctx, req.Actor)
			return map[string]any{"cleared": true}, nil
		},
		"stats": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			st := o.Stats.Snapshot(req.Actor)
			return statsResult{
				User:     st.User,
				Lifetime: st.Lifetime.Seconds(),
				Sessions: st.Sessions,
				Average:  st.Average().Seconds(),
				Streak:   st.Streak,
			}, nil
		},
		"progress": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			goal, ok := o.Goals.Progress(ctx, req.Actor)
			if !ok {
				return map[string]any{"goal": false}, nil
			}
			return progressResult{
				Target:      goal.Target.Seconds(),
				Accumulated: goal.Accumulated.Seconds(),
				Date:        string(goal.EffectiveDate),
			}, nil
		},
		"leaderboard": func(ctx context.Context, o *Orchestrator, req Request) (any, error) {
			top := o.Stats.Top(10)
			entries := make([]statsResult, 0, len(top))
			for _, st := range top {
				entries = append(entries, statsResult{
					User:     st.User,
					Lifetime: st.Lifetime.Seconds(),
					Sessions: st.Sessions,
					Average:  st.Average().Seconds(),
					Streak:   st.Streak,
				})
			}
			return entries, nil
		},
	}
}
