package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"studysphere/internal/domain"
)

func TestGoalRejectsInvalidTarget(t *testing.T) {
	g := NewGoals(clockwork.NewFakeClock())
	ctx := context.Background()

	for _, target := range []time.Duration{0, -time.Minute} {
		if _, err := g.Set(ctx, "u", target); !errors.Is(err, domain.ErrInvalidGoal) {
			t.Fatalf("expected ErrInvalidGoal for %v, got %v", target, err)
		}
	}
	if _, ok := g.Progress(ctx, "u"); ok {
		t.Fatal("rejected set must not create a goal")
	}
}

func TestGoalAccumulationSameDay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGoals(clock)
	ctx := context.Background()

	if _, err := g.Set(ctx, "u", time.Hour); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	g.Apply(ctx, "u", 20*time.Minute)
	clock.Advance(time.Hour)
	g.Apply(ctx, "u", 10*time.Minute)

	goal, ok := g.Progress(ctx, "u")
	if !ok {
		t.Fatal("expected a goal")
	}
	if goal.Accumulated != 30*time.Minute {
		t.Fatalf("expected 30m accumulated, got %v", goal.Accumulated)
	}
}

func TestGoalResetsOnNewDateOnFirstTouch(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGoals(clock)
	ctx := context.Background()

	if _, err := g.Set(ctx, "u", time.Hour); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	g.Apply(ctx, "u", 40*time.Minute)

	clock.Advance(24 * time.Hour)

	goal, _ := g.Progress(ctx, "u")
	if goal.Accumulated != 0 {
		t.Fatalf("expected reset on first touch of a new date, got %v", goal.Accumulated)
	}
	if goal.EffectiveDate != domain.DayOf(clock.Now()) {
		t.Fatalf("expected date advanced to today, got %s", goal.EffectiveDate)
	}
	if goal.Target != time.Hour {
		t.Fatalf("target must survive the rollover, got %v", goal.Target)
	}
}

func TestGoalApplyCrossesTargetOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGoals(clock)
	ctx := context.Background()

	if _, err := g.Set(ctx, "u", time.Hour); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	if g.Apply(ctx, "u", 30*time.Minute) {
		t.Fatal("halfway should not report reached")
	}
	if !g.Apply(ctx, "u", 31*time.Minute) {
		t.Fatal("crossing the target should report reached")
	}
	if g.Apply(ctx, "u", time.Minute) {
		t.Fatal("already past the target should not report again")
	}
}

func TestGoalClearIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGoals(clock)
	ctx := context.Background()

	if _, err := g.Set(ctx, "u", time.Hour); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	g.Clear(ctx, "u")
	g.Clear(ctx, "u")

	if g.Apply(ctx, "u", time.Hour) {
		t.Fatal("apply after clear must be a no-op")
	}
	if _, ok := g.Progress(ctx, "u"); ok {
		t.Fatal("cleared goal should be gone")
	}
}
