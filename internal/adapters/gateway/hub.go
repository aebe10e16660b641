package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"studysphere/internal/app/orch"
	"studysphere/internal/core"
	"studysphere/internal/domain"
)

// Hub is the platform side of the study space: it owns every live room
// (portals included), the connected member sessions, and the connect
// policies the bot installs. It implements core.Platform for the app
// layer and feeds the presence stream into the orchestrator.
//
// Locking rule: membership mutations happen under h.mu, presence events
// are emitted only after the lock is released. Emitting re-enters the
// app layer, which may call straight back into the hub.
type Hub struct {
	mu       sync.RWMutex
	orch     *orch.Orchestrator
	maxRooms int
	rooms    map[domain.RoomID]*hubRoom
	clients  map[core.SessionID]*client
	byUser   map[domain.UserID]core.SessionID
	users    map[core.SessionID]*domain.User
}

type hubRoom struct {
	id           domain.RoomID
	name         domain.RoomName
	kind         domain.RoomKind
	portal       bool
	defaultAllow bool
	perUser      map[domain.UserID]bool
	members      map[domain.UserID]core.SessionID
}

type client struct {
	sid  core.SessionID
	sess core.MemberSession
	room domain.RoomID
}

type presenceEvent struct {
	user domain.UserID
	from domain.RoomID
	to   domain.RoomID
}

func NewHub(maxRooms int) *Hub {
	return &Hub{
		maxRooms: maxRooms,
		rooms:    make(map[domain.RoomID]*hubRoom),
		clients:  make(map[core.SessionID]*client),
		byUser:   make(map[domain.UserID]core.SessionID),
		users:    make(map[core.SessionID]*domain.User),
	}
}

// GetOrCreateUser keys identity by the session token, so a reconnect
// keeps the same user id. The token middleware regenerates tokens that
// would not pass id validation.
func (h *Hub) GetOrCreateUser(sid core.SessionID) *domain.User {
	h.mu.Lock()
	defer h.mu.Unlock()
	if u, ok := h.users[sid]; ok {
		return u
	}
	u, err := domain.NewUser(domain.UserID(sid), "guest")
	if err != nil {
		log.Warn().Err(err).Str("module", "gateway.hub").Str("sid", string(sid)).Msg("invalid session token as user id")
		u = &domain.User{ID: domain.UserID(sid), Username: "guest"}
	}
	h.users[sid] = u
	log.Info().Str("module", "gateway.hub").Str("sid", string(sid)).Msg("created new user")
	return u
}

// Bind wires the orchestrator in after construction; the app components
// need the hub as their Platform before the orchestrator exists.
func (h *Hub) Bind(o *orch.Orchestrator) { h.orch = o }

// EnsurePortal registers a well-known portal room at startup.
func (h *Hub) EnsurePortal(id domain.RoomID, name domain.RoomName, kind domain.RoomKind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[id]; ok {
		return
	}
	h.rooms[id] = &hubRoom{
		id:           id,
		name:         name,
		kind:         kind,
		portal:       true,
		defaultAllow: true,
		perUser:      make(map[domain.UserID]bool),
		members:      make(map[domain.UserID]core.SessionID),
	}
	log.Info().Str("module", "gateway.hub").Str("room", string(id)).Str("kind", string(kind)).Msg("portal ready")
}

// RoomNames lists current room names of one kind, for sequence seeding.
func (h *Hub) RoomNames(kind domain.RoomKind) []domain.RoomName {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []domain.RoomName
	for _, r := range h.rooms {
		if !r.portal && r.kind == kind {
			out = append(out, r.name)
		}
	}
	return out
}

// RoomList is a read-only snapshot for the HTTP API.
func (h *Hub) RoomList() []core.RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, core.RoomInfo{
			ID:          r.id,
			Name:        r.name,
			Kind:        r.kind,
			Locked:      !r.defaultAllow,
			MemberCount: len(r.members),
		})
	}
	return out
}

// CreateRoom implements core.Platform. The room cap models the platform
// refusing creation; the registry stays untouched on refusal.
func (h *Hub) CreateRoom(ctx context.Context, name domain.RoomName, kind domain.RoomKind) (domain.RoomID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := 0
	for _, r := range h.rooms {
		if !r.portal {
			live++
		}
	}
	if live >= h.maxRooms {
		return "", domain.ErrPermissionDenied
	}
	id := domain.RoomID(uuid.NewString())
	h.rooms[id] = &hubRoom{
		id:           id,
		name:         name,
		kind:         kind,
		defaultAllow: true,
		perUser:      make(map[domain.UserID]bool),
		members:      make(map[domain.UserID]core.SessionID),
	}
	log.Info().Str("module", "gateway.hub").Str("room", string(id)).Str("name", string(name)).Msg("room created")
	return id, nil
}

// DeleteRoom implements core.Platform. Idempotent: deleting an absent
// room is not an error. Remaining members are ejected, each ejection
// feeding a leave transition back into the orchestrator.
func (h *Hub) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	h.mu.Lock()
	r, ok := h.rooms[id]
	if !ok || r.portal {
		h.mu.Unlock()
		return nil
	}
	delete(h.rooms, id)
	var events []presenceEvent
	for user, sid := range r.members {
		if c, ok := h.clients[sid]; ok && c.room == id {
			c.room = ""
			h.send(c, "room_deleted", map[string]any{"room": id})
			events = append(events, presenceEvent{user: user, from: id})
		}
	}
	h.mu.Unlock()

	log.Info().Str("module", "gateway.hub").Str("room", string(id)).Msg("room deleted")
	h.emit(ctx, events)
	return nil
}

// SetConnectPolicy implements core.Platform. An empty target addresses
// the default group. Denying someone already inside ejects them.
func (h *Hub) SetConnectPolicy(ctx context.Context, id domain.RoomID, target domain.UserID, allow bool) error {
	h.mu.Lock()
	r, ok := h.rooms[id]
	if !ok {
		h.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	var events []presenceEvent
	if target == "" {
		r.defaultAllow = allow
	} else {
		r.perUser[target] = allow
		if !allow {
			if sid, inside := r.members[target]; inside {
				delete(r.members, target)
				if c, ok := h.clients[sid]; ok && c.room == id {
					c.room = ""
					h.send(c, "removed", map[string]any{"room": id})
					events = append(events, presenceEvent{user: target, from: id})
				}
			}
		}
	}
	h.mu.Unlock()
	h.emit(ctx, events)
	return nil
}

// MoveUser implements core.Platform. Bot-initiated moves bypass the
// connect policy; the owner always lands in their fresh room.
func (h *Hub) MoveUser(ctx context.Context, user domain.UserID, to domain.RoomID) error {
	h.mu.Lock()
	sid, ok := h.byUser[user]
	if !ok {
		h.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	c := h.clients[sid]
	dest, ok := h.rooms[to]
	if !ok {
		h.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	from := c.room
	if from == to {
		h.mu.Unlock()
		return nil
	}
	if prev, ok := h.rooms[from]; ok {
		delete(prev.members, user)
	}
	dest.members[user] = sid
	c.room = to
	h.send(c, "moved", map[string]any{"room": to, "name": dest.name})
	h.mu.Unlock()

	h.emit(ctx, []presenceEvent{{user: user, from: from, to: to}})
	return nil
}

// MemberCount implements core.Platform.
func (h *Hub) MemberCount(ctx context.Context, id domain.RoomID) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	return len(r.members), nil
}

// Notify implements core.Platform. Best effort private delivery.
func (h *Hub) Notify(ctx context.Context, user domain.UserID, kind string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sid, ok := h.byUser[user]
	if !ok {
		return
	}
	if c, ok := h.clients[sid]; ok {
		h.send(c, kind, payload)
	}
}

func (h *Hub) emit(ctx context.Context, events []presenceEvent) {
	if h.orch == nil {
		return
	}
	for _, ev := range events {
		h.orch.OnPresence(ctx, ev.user, ev.from, ev.to)
	}
}
