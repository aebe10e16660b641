package orch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"studysphere/internal/app"
	"studysphere/internal/domain"
)

type stubPlatform struct {
	nextID int
}

func (s *stubPlatform) CreateRoom(ctx context.Context, name domain.RoomName, kind domain.RoomKind) (domain.RoomID, error) {
	s.nextID++
	return domain.RoomID(fmt.Sprintf("room-%d", s.nextID)), nil
}

func (s *stubPlatform) DeleteRoom(ctx context.Context, id domain.RoomID) error { return nil }

func (s *stubPlatform) SetConnectPolicy(ctx context.Context, id domain.RoomID, target domain.UserID, allow bool) error {
	return nil
}

func (s *stubPlatform) MoveUser(ctx context.Context, user domain.UserID, to domain.RoomID) error {
	return nil
}

func (s *stubPlatform) MemberCount(ctx context.Context, id domain.RoomID) (int, error) {
	return 0, domain.ErrRoomNotFound
}

func (s *stubPlatform) Notify(ctx context.Context, user domain.UserID, kind string, payload any) {}

func newOrchestrator(t *testing.T) (*Orchestrator, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	platform := &stubPlatform{}
	reg := app.NewRegistry()
	goals := app.NewGoals(clock)
	stats := app.NewStats(goals, platform, clock)
	tracker := app.NewTracker(reg, stats, clock)
	lc := app.NewLifecycle(reg, platform, clock, app.LifecycleOptions{
		Portals:  map[domain.RoomID]domain.RoomKind{"portal": domain.KindGeneral},
		Prefixes: map[domain.RoomKind]string{domain.KindGeneral: "Study Room"},
		Grace:    time.Minute,
	})
	pd := app.NewPomodoro(platform, clock, 25*time.Minute, 5*time.Minute)
	return New(reg, lc, tracker, stats, goals, pd), clock
}

func TestDispatchUnknownAction(t *testing.T) {
	o, _ := newOrchestrator(t)
	if _, err := o.Dispatch(context.Background(), Request{Action: "self-destruct"}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestDispatchGoalSetParsesDuration(t *testing.T) {
	o, _ := newOrchestrator(t)
	ctx := context.Background()

	res, err := o.Dispatch(ctx, Request{Action: "goal-set", Actor: "alice", Arg: "2h"})
	if err != nil {
		t.Fatalf("goal-set: %v", err)
	}
	progress, ok := res.(progressResult)
	if !ok {
		t.Fatalf("unexpected result type %T", res)
	}
	if progress.Target != (2 * time.Hour).Seconds() {
		t.Fatalf("expected 2h target, got %v", progress.Target)
	}

	if _, err := o.Dispatch(ctx, Request{Action: "goal-set", Actor: "alice", Arg: "soon"}); !errors.Is(err, domain.ErrInvalidGoal) {
		t.Fatalf("expected ErrInvalidGoal for garbage input, got %v", err)
	}
	if _, err := o.Dispatch(ctx, Request{Action: "goal-set", Actor: "alice", Arg: "-1h"}); !errors.Is(err, domain.ErrInvalidGoal) {
		t.Fatalf("expected ErrInvalidGoal for negative target, got %v", err)
	}
}

func TestDispatchSurfacesDomainErrors(t *testing.T) {
	o, _ := newOrchestrator(t)
	ctx := context.Background()

	if _, err := o.Dispatch(ctx, Request{Action: "lock", Actor: "nobody"}); !errors.Is(err, domain.ErrNotInRoom) {
		t.Fatalf("expected ErrNotInRoom, got %v", err)
	}
	if _, err := o.Dispatch(ctx, Request{Action: "timer-pause", Actor: "nobody"}); !errors.Is(err, domain.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestPresenceFeedClosesSessionBeforeRoomTeardown(t *testing.T) {
	o, clock := newOrchestrator(t)
	ctx := context.Background()

	o.OnPresence(ctx, "alice", "", "portal")
	room := o.Registry.Rooms()
	if len(room) != 1 {
		t.Fatalf("expected one room, got %d", len(room))
	}
	id := room[0].ID

	o.OnPresence(ctx, "alice", "portal", id)
	clock.Advance(40 * time.Minute)

	// Leaving empties the room; the session must still be credited.
	o.OnPresence(ctx, "alice", id, "")

	if _, ok := o.Registry.Get(id); ok {
		t.Fatal("expected room destroyed once empty")
	}
	st := o.Stats.Snapshot("alice")
	if st.Lifetime != 40*time.Minute {
		t.Fatalf("expected 40m credited, got %v", st.Lifetime)
	}
	if st.Sessions != 1 {
		t.Fatalf("expected one session, got %d", st.Sessions)
	}
}
