package gateway

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"studysphere/internal/core"
	"studysphere/internal/domain"
)

// Register binds a connected member session to the hub.
func (h *Hub) Register(sid core.SessionID, sess core.MemberSession) {
	user := sess.Meta().User.ID
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[sid] = &client{sid: sid, sess: sess}
	h.byUser[user] = sid
	log.Info().Str("module", "gateway.hub").Str("sid", string(sid)).Msg("client registered")
}

// Unregister drops a disconnected session. Leaving a room this way is a
// presence transition like any other.
func (h *Hub) Unregister(ctx context.Context, sid core.SessionID) {
	h.mu.Lock()
	c, ok := h.clients[sid]
	if !ok {
		h.mu.Unlock()
		return
	}
	user := c.sess.Meta().User.ID
	from := c.room
	if r, ok := h.rooms[from]; ok {
		delete(r.members, user)
	}
	delete(h.clients, sid)
	if h.byUser[user] == sid {
		delete(h.byUser, user)
	}
	h.mu.Unlock()

	log.Info().Str("module", "gateway.hub").Str("sid", string(sid)).Msg("client unregistered")
	if from != "" {
		h.emit(ctx, []presenceEvent{{user: user, from: from}})
	}
}

// Join connects a member to a room, enforcing the connect policy: a
// per-user override wins over the default group policy, portals always
// admit. Success feeds the transition into the presence stream.
func (h *Hub) Join(ctx context.Context, sid core.SessionID, to domain.RoomID) error {
	h.mu.Lock()
	c, ok := h.clients[sid]
	if !ok {
		h.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	dest, ok := h.rooms[to]
	if !ok {
		h.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	user := c.sess.Meta().User.ID
	if !dest.portal {
		allowed := dest.defaultAllow
		if v, ok := dest.perUser[user]; ok {
			allowed = v
		}
		if !allowed {
			h.mu.Unlock()
			return domain.ErrPermissionDenied
		}
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
	h.mu.Unlock()

	h.emit(ctx, []presenceEvent{{user: user, from: from, to: to}})
	return nil
}

// Leave disconnects a member from their current room.
func (h *Hub) Leave(ctx context.Context, sid core.SessionID) {
	h.mu.Lock()
	c, ok := h.clients[sid]
	if !ok || c.room == "" {
		h.mu.Unlock()
		return
	}
	user := c.sess.Meta().User.ID
	from := c.room
	if r, ok := h.rooms[from]; ok {
		delete(r.members, user)
	}
	c.room = ""
	h.mu.Unlock()

	h.emit(ctx, []presenceEvent{{user: user, from: from}})
}

// SetFocusMode flips the focus flag on the member session.
func (h *Hub) SetFocusMode(sid core.SessionID, enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[sid]; ok {
		c.sess.Meta().FocusMode = enabled
	}
}

// RoomOfSession reports the room the session currently occupies.
func (h *Hub) RoomOfSession(sid core.SessionID) (domain.RoomID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[sid]
	if !ok || c.room == "" {
		return "", false
	}
	return c.room, true
}

// MembersSnapshot lists a room's members for room_state payloads.
func (h *Hub) MembersSnapshot(id domain.RoomID) []core.MemberDTO {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	if !ok {
		return nil
	}
	out := make([]core.MemberDTO, 0, len(r.members))
	for _, sid := range r.members {
		if c, ok := h.clients[sid]; ok {
			m := c.sess.Meta()
			out = append(out, core.MemberDTO{ID: m.User.ID, Username: m.User.Username, FocusMode: m.FocusMode})
		}
	}
	return out
}

// send marshals and hands the frame to the session's transport. Callers
// hold h.mu; TrySend never blocks.
func (h *Hub) send(c *client, kind string, payload any) {
	msg := map[string]any{"type": kind, "payload": payload}
	b, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway.hub").Msg("send marshal")
		return
	}
	if err := c.sess.Signal().TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "gateway.hub").Str("sid", string(c.sid)).Msg("send dropped")
	}
}
