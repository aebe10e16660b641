package app

import (
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"studysphere/internal/domain"
)

// Registry is the single source of truth for ephemeral rooms: owner,
// kind, lock state, per-user overrides and occupancy. Commands resolve
// ownership here, never through channel metadata.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[domain.RoomID]*domain.Room
	occupants map[domain.RoomID]map[domain.UserID]struct{}
	byUser    map[domain.UserID]domain.RoomID
	overrides map[domain.RoomID]map[domain.UserID]domain.Override
	seq       map[domain.RoomKind]int
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:     make(map[domain.RoomID]*domain.Room),
		occupants: make(map[domain.RoomID]map[domain.UserID]struct{}),
		byUser:    make(map[domain.UserID]domain.RoomID),
		overrides: make(map[domain.RoomID]map[domain.UserID]domain.Override),
		seq:       make(map[domain.RoomKind]int),
	}
}

// NextSeq allocates the next sequence number for a kind. Numbers are
// strictly increasing for the process lifetime and never reused, even
// when a creation later fails.
func (r *Registry) NextSeq(kind domain.RoomKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[kind]++
	return r.seq[kind]
}

// SeedSequences re-derives the counter for a kind from existing room
// names so a restart cannot hand out a colliding number. Names are
// expected to end in a numeric suffix; anything else is skipped.
func (r *Registry) SeedSequences(kind domain.RoomKind, names []domain.RoomName) {
	highest := 0
	for _, name := range names {
		fields := strings.Fields(string(name))
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if highest > r.seq[kind] {
		r.seq[kind] = highest
	}
	log.Info().Str("module", "app.registry").Str("kind", string(kind)).Int("seq", highest).Msg("seeded sequence")
}

func (r *Registry) Put(room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = &room
	log.Info().Str("module", "app.registry").Str("room", string(room.ID)).Str("owner", string(room.Owner)).Str("kind", string(room.Kind)).Msg("registered room")
}

func (r *Registry) Get(id domain.RoomID) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	return *room, true
}

// Remove unregisters a room. Idempotent: removing an absent room is not
// an error. Returns the removed record when one existed.
func (r *Registry) Remove(id domain.RoomID) (domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	delete(r.rooms, id)
	for u := range r.occupants[id] {
		delete(r.byUser, u)
	}
	delete(r.occupants, id)
	delete(r.overrides, id)
	log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("unregistered room")
	return *room, true
}

// Enter records occupancy for a registered room. Unregistered ids
// (portals, outside rooms) are ignored.
func (r *Registry) Enter(id domain.RoomID, user domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; !ok {
		return
	}
	if r.occupants[id] == nil {
		r.occupants[id] = make(map[domain.UserID]struct{})
	}
	r.occupants[id][user] = struct{}{}
	r.byUser[user] = id
}

// Leave removes occupancy and reports the remaining occupant count.
// Returns -1 for an unregistered room.
func (r *Registry) Leave(id domain.RoomID, user domain.UserID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; !ok {
		return -1
	}
	if occ := r.occupants[id]; occ != nil {
		delete(occ, user)
	}
	if r.byUser[user] == id {
		delete(r.byUser, user)
	}
	return len(r.occupants[id])
}

func (r *Registry) Occupancy(id domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.occupants[id])
}

// RoomOf returns the registered room the user currently occupies.
func (r *Registry) RoomOf(user domain.UserID) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUser[user]
	if !ok {
		return domain.Room{}, false
	}
	room, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	return *room, true
}

// Authorize is the single predicate behind every owner-gated command:
// the caller must occupy a registered room and be its recorded owner.
func (r *Registry) Authorize(user domain.UserID) (domain.Room, error) {
	room, ok := r.RoomOf(user)
	if !ok {
		return domain.Room{}, domain.ErrNotInRoom
	}
	if room.Owner != user {
		return domain.Room{}, domain.ErrNotOwner
	}
	return room, nil
}

func (r *Registry) SetLocked(id domain.RoomID, locked bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return false
	}
	room.Locked = locked
	log.Info().Str("module", "app.registry").Str("room", string(id)).Bool("locked", locked).Msg("lock state changed")
	return true
}

func (r *Registry) SetOverride(id domain.RoomID, user domain.UserID, o domain.Override) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; !ok {
		return false
	}
	if r.overrides[id] == nil {
		r.overrides[id] = make(map[domain.UserID]domain.Override)
	}
	if o == domain.OverrideNone {
		delete(r.overrides[id], user)
	} else {
		r.overrides[id][user] = o
	}
	return true
}

func (r *Registry) OverrideOf(id domain.RoomID, user domain.UserID) domain.Override {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overrides[id][user]
}

// Rooms returns a snapshot of all registered rooms.
func (r *Registry) Rooms() []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, *room)
	}
	return out
}
