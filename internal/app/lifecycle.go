package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"studysphere/internal/core"
	"studysphere/internal/domain"
)

// LifecycleOptions carries the portal wiring. A nil or empty Portals map
// is not fatal: creation simply never triggers (logged once at startup).
type LifecycleOptions struct {
	Portals  map[domain.RoomID]domain.RoomKind
	Prefixes map[domain.RoomKind]string
	Grace    time.Duration
}

// Lifecycle creates ephemeral rooms from portal entries and destroys
// them when they empty out. All platform calls happen outside the
// component lock: they are the suspension points where other work may
// interleave.
type Lifecycle struct {
	reg      *Registry
	platform core.Platform
	clock    clockwork.Clock
	opts     LifecycleOptions

	mu      sync.Mutex
	pending map[domain.RoomID]*core.Countdown
}

func NewLifecycle(reg *Registry, platform core.Platform, clock clockwork.Clock, opts LifecycleOptions) *Lifecycle {
	if len(opts.Portals) == 0 {
		log.Warn().Str("module", "app.lifecycle").Msg("no portals configured, room creation disabled")
	}
	return &Lifecycle{
		reg:      reg,
		platform: platform,
		clock:    clock,
		opts:     opts,
		pending:  make(map[domain.RoomID]*core.Countdown),
	}
}

// OnPresence consumes one transition from the presence feed. Events are
// at-least-once and unordered across users; every branch here tolerates
// duplicates.
func (l *Lifecycle) OnPresence(ctx context.Context, user domain.UserID, from, to domain.RoomID) {
	if kind, ok := l.opts.Portals[to]; ok && from != to {
		l.createFor(ctx, user, kind)
	}

	if from != "" && from != to {
		if remaining := l.reg.Leave(from, user); remaining == 0 {
			l.Destroy(ctx, from)
		}
	}
	if to != "" {
		l.reg.Enter(to, user)
		l.cancelPending(to)
	}
}

func (l *Lifecycle) createFor(ctx context.Context, user domain.UserID, kind domain.RoomKind) {
	seq := l.reg.NextSeq(kind)
	name := domain.RoomName(fmt.Sprintf("%s %d", l.opts.Prefixes[kind], seq))

	id, err := l.platform.CreateRoom(ctx, name, kind)
	if err != nil {
		// Recoverable: the portal stays usable, the registry untouched.
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("user", string(user)).Str("kind", string(kind)).Msg("room creation rejected")
		l.platform.Notify(ctx, user, "error", map[string]any{
			"error":   "permission_denied",
			"message": "could not create your room, try the portal again later",
		})
		return
	}

	// New general rooms default to open; lock is an explicit owner action.
	l.reg.Put(domain.Room{ID: id, Name: name, Owner: user, Kind: kind, Seq: seq})
	log.Info().Str("module", "app.lifecycle").Str("room", string(id)).Str("owner", string(user)).Msg("created room")

	// The owner keeps connect access through any later lock.
	if err := l.platform.SetConnectPolicy(ctx, id, user, true); err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("room", string(id)).Msg("owner overwrite failed")
	}

	if err := l.platform.MoveUser(ctx, user, id); err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("user", string(user)).Msg("move into new room failed")
	}
}

// Destroy removes a room from the registry and requests platform
// deletion. Idempotent: a room already destroyed concurrently is a no-op.
func (l *Lifecycle) Destroy(ctx context.Context, id domain.RoomID) {
	room, ok := l.reg.Remove(id)
	if !ok {
		return
	}
	l.cancelPending(id)
	if err := l.platform.DeleteRoom(ctx, id); err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("room", string(id)).Msg("platform delete failed")
	}
	log.Info().Str("module", "app.lifecycle").Str("room", string(id)).Str("name", string(room.Name)).Msg("destroyed room")
}

// ScheduleDelete arms a grace countdown for a room observed empty. A
// re-entry cancels it; firing destroys the room only if still empty.
func (l *Lifecycle) ScheduleDelete(ctx context.Context, id domain.RoomID) {
	l.mu.Lock()
	if cd, ok := l.pending[id]; ok {
		cd.Cancel()
	}
	cd := core.StartCountdown(l.clock, l.opts.Grace, func() {
		l.mu.Lock()
		delete(l.pending, id)
		l.mu.Unlock()
		if l.reg.Occupancy(id) == 0 {
			l.Destroy(ctx, id)
		}
	})
	l.pending[id] = cd
	l.mu.Unlock()
	log.Info().Str("module", "app.lifecycle").Str("room", string(id)).Dur("grace", l.opts.Grace).Msg("scheduled auto-delete")
}

func (l *Lifecycle) cancelPending(id domain.RoomID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cd, ok := l.pending[id]; ok {
		cd.Cancel()
		delete(l.pending, id)
	}
}

// Sweep schedules deletion for registered rooms the platform reports
// empty. Covers a leave event the feed dropped.
func (l *Lifecycle) Sweep(ctx context.Context) {
	for _, room := range l.reg.Rooms() {
		n, err := l.platform.MemberCount(ctx, room.ID)
		if err != nil {
			// Room gone platform-side: reconcile the registry.
			l.Destroy(ctx, room.ID)
			continue
		}
		if n == 0 {
			l.ScheduleDelete(ctx, room.ID)
		}
	}
}

// Trust grants the target a connect override that survives lock state.
// Platform call first: a rejected overwrite mutates nothing.
func (l *Lifecycle) Trust(ctx context.Context, caller, target domain.UserID) (domain.Room, error) {
	room, err := l.reg.Authorize(caller)
	if err != nil {
		return domain.Room{}, err
	}
	if err := l.platform.SetConnectPolicy(ctx, room.ID, target, true); err != nil {
		return domain.Room{}, domain.ErrPermissionDenied
	}
	l.reg.SetOverride(room.ID, target, domain.OverrideTrusted)
	log.Info().Str("module", "app.lifecycle").Str("room", string(room.ID)).Str("target", string(target)).Msg("trusted user")
	return room, nil
}

// Kick denies the target regardless of lock state.
func (l *Lifecycle) Kick(ctx context.Context, caller, target domain.UserID) (domain.Room, error) {
	room, err := l.reg.Authorize(caller)
	if err != nil {
		return domain.Room{}, err
	}
	if err := l.platform.SetConnectPolicy(ctx, room.ID, target, false); err != nil {
		return domain.Room{}, domain.ErrPermissionDenied
	}
	l.reg.SetOverride(room.ID, target, domain.OverrideKicked)
	log.Info().Str("module", "app.lifecycle").Str("room", string(room.ID)).Str("target", string(target)).Msg("kicked user")
	return room, nil
}

// Lock closes the room's default connect policy. Per-user overrides are
// untouched: trusted users keep access, kicked users stay out.
func (l *Lifecycle) Lock(ctx context.Context, caller domain.UserID) (domain.Room, error) {
	return l.setLocked(ctx, caller, true)
}

func (l *Lifecycle) Unlock(ctx context.Context, caller domain.UserID) (domain.Room, error) {
	return l.setLocked(ctx, caller, false)
}

func (l *Lifecycle) setLocked(ctx context.Context, caller domain.UserID, locked bool) (domain.Room, error) {
	room, err := l.reg.Authorize(caller)
	if err != nil {
		return domain.Room{}, err
	}
	if err := l.platform.SetConnectPolicy(ctx, room.ID, "", !locked); err != nil {
		return domain.Room{}, domain.ErrPermissionDenied
	}
	l.reg.SetLocked(room.ID, locked)
	room.Locked = locked
	return room, nil
}

// Delete destroys the caller's room on demand.
func (l *Lifecycle) Delete(ctx context.Context, caller domain.UserID) (domain.Room, error) {
	room, err := l.reg.Authorize(caller)
	if err != nil {
		return domain.Room{}, err
	}
	l.Destroy(ctx, room.ID)
	return room, nil
}
