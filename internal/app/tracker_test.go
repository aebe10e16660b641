package app

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"studysphere/internal/domain"
)

func newTrackerStack(t *testing.T) (*Registry, *Tracker, *Stats, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	fp := newFakePlatform()
	goals := NewGoals(clock)
	stats := NewStats(goals, fp, clock)
	reg := NewRegistry()
	return reg, NewTracker(reg, stats, clock), stats, clock
}

func TestSingleSessionAccounting(t *testing.T) {
	reg, tr, stats, clock := newTrackerStack(t)
	ctx := context.Background()
	reg.Put(domain.Room{ID: "r1", Owner: "u", Kind: domain.KindGeneral})

	tr.OnPresence(ctx, "u", "", "r1")
	clock.Advance(600 * time.Second)
	tr.OnPresence(ctx, "u", "r1", "")

	st := stats.Snapshot("u")
	if st.Lifetime != 600*time.Second {
		t.Fatalf("expected lifetime 600s, got %v", st.Lifetime)
	}
	if st.Sessions != 1 {
		t.Fatalf("expected 1 session, got %d", st.Sessions)
	}
	if len(st.History) != 1 || st.History[0] != 600*time.Second {
		t.Fatalf("expected history [600s], got %v", st.History)
	}
}

func TestDuplicateEnterKeepsOneOpenSession(t *testing.T) {
	reg, tr, stats, clock := newTrackerStack(t)
	ctx := context.Background()
	reg.Put(domain.Room{ID: "r1", Owner: "u", Kind: domain.KindGeneral})

	start := clock.Now()
	tr.OnPresence(ctx, "u", "", "r1")
	clock.Advance(time.Minute)
	tr.OnPresence(ctx, "u", "", "r1")
	tr.OnPresence(ctx, "u", "", "r1")

	sess, ok := tr.OpenSession("u")
	if !ok {
		t.Fatal("expected an open session")
	}
	if !sess.StartedAt.Equal(start) {
		t.Fatalf("duplicate enter must not restart the session: got %v want %v", sess.StartedAt, start)
	}

	clock.Advance(time.Minute)
	tr.OnPresence(ctx, "u", "r1", "")
	if st := stats.Snapshot("u"); st.Sessions != 1 || st.Lifetime != 2*time.Minute {
		t.Fatalf("expected one 2m session, got %d sessions, %v lifetime", st.Sessions, st.Lifetime)
	}
}

func TestRoomHopKeepsSessionContinuous(t *testing.T) {
	reg, tr, stats, clock := newTrackerStack(t)
	ctx := context.Background()
	reg.Put(domain.Room{ID: "r1", Owner: "u", Kind: domain.KindGeneral})
	reg.Put(domain.Room{ID: "r2", Owner: "v", Kind: domain.KindFocus})

	tr.OnPresence(ctx, "u", "", "r1")
	clock.Advance(5 * time.Minute)
	tr.OnPresence(ctx, "u", "r1", "r2")
	clock.Advance(5 * time.Minute)
	tr.OnPresence(ctx, "u", "r2", "")

	st := stats.Snapshot("u")
	if st.Sessions != 1 {
		t.Fatalf("room hop should not split the session, got %d sessions", st.Sessions)
	}
	if st.Lifetime != 10*time.Minute {
		t.Fatalf("expected 10m lifetime, got %v", st.Lifetime)
	}
}

func TestLeaveWithoutOpenSessionIsNoop(t *testing.T) {
	_, tr, stats, _ := newTrackerStack(t)
	ctx := context.Background()

	tr.OnPresence(ctx, "u", "r1", "")
	if st := stats.Snapshot("u"); st.Sessions != 0 {
		t.Fatalf("expected no sessions, got %d", st.Sessions)
	}
}

func TestUntrackedRoomDoesNotOpenSession(t *testing.T) {
	_, tr, _, _ := newTrackerStack(t)
	ctx := context.Background()

	tr.OnPresence(ctx, "u", "", "lobby")
	if _, ok := tr.OpenSession("u"); ok {
		t.Fatal("unregistered room must not open a session")
	}
}

func TestSessionCloseSurvivesRoomDestruction(t *testing.T) {
	reg, tr, stats, clock := newTrackerStack(t)
	ctx := context.Background()
	reg.Put(domain.Room{ID: "r1", Owner: "u", Kind: domain.KindGeneral})

	tr.OnPresence(ctx, "u", "", "r1")
	clock.Advance(time.Minute)

	// Lifecycle may have already unregistered the emptied room by the
	// time the close is processed.
	reg.Remove("r1")
	tr.OnPresence(ctx, "u", "r1", "")

	if st := stats.Snapshot("u"); st.Sessions != 1 {
		t.Fatalf("expected session close despite destroyed room, got %d", st.Sessions)
	}
}

func TestLifetimeSumsAcrossSessions(t *testing.T) {
	reg, tr, stats, clock := newTrackerStack(t)
	ctx := context.Background()
	reg.Put(domain.Room{ID: "r1", Owner: "u", Kind: domain.KindGeneral})

	durations := []time.Duration{90 * time.Second, 45 * time.Second, 10 * time.Minute}
	var want time.Duration
	for _, d := range durations {
		tr.OnPresence(ctx, "u", "", "r1")
		clock.Advance(d)
		tr.OnPresence(ctx, "u", "r1", "")
		want += d
	}

	st := stats.Snapshot("u")
	if st.Lifetime != want {
		t.Fatalf("expected lifetime %v, got %v", want, st.Lifetime)
	}
	if st.Sessions != len(durations) {
		t.Fatalf("expected %d sessions, got %d", len(durations), st.Sessions)
	}
}
