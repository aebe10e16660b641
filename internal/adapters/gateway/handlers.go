package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"studysphere/internal/app/orch"
	"studysphere/internal/core"
	"studysphere/internal/domain"
)

func (ctl *Controller) handleJoin(ctx context.Context, sid core.SessionID, c *wsConn, data []byte) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Name string `json:"name,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Name != "" {
		user := ctl.Hub.GetOrCreateUser(sid)
		if err := user.SetUsername(p.Name); err != nil {
			ctl.sendError(c, "invalid_name")
			return
		}
	}

	to := domain.RoomID(p.Room)
	user := ctl.Hub.GetOrCreateUser(sid)

	// Portal entries trigger room creation downstream; cap the rate so
	// a looping client cannot churn the category.
	if _, isPortal := ctl.Portals[to]; isPortal && !ctl.Creates.Allow(user.ID) {
		ctl.sendError(c, "too_many_rooms")
		return
	}

	if err := ctl.Hub.Join(ctx, sid, to); err != nil {
		switch {
		case errors.Is(err, domain.ErrPermissionDenied):
			ctl.sendError(c, "room is locked")
		case errors.Is(err, domain.ErrRoomNotFound):
			ctl.sendError(c, "room is not exists")
		default:
			ctl.sendError(c, "join failed")
		}
		return
	}

	room, ok := ctl.Hub.RoomOfSession(sid)
	if !ok {
		// Portal join may have ejected us into a fresh room already
		// reported through a "moved" message.
		return
	}
	ctl.sendJSON(c, struct {
		Type    string           `json:"type"`
		Room    domain.RoomID    `json:"room"`
		Members []core.MemberDTO `json:"members"`
	}{
		Type:    "room_state",
		Room:    room,
		Members: ctl.Hub.MembersSnapshot(room),
	})
}

func (ctl *Controller) handleLeave(ctx context.Context, sid core.SessionID) {
	log.Info().Str("module", "gateway").Str("sid", string(sid)).Msg("leave")
	ctl.Hub.Leave(ctx, sid)
}

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

func (ctl *Controller) handleRename(sid core.SessionID, c *wsConn, data []byte) {
	type renamePayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p renamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	user := ctl.Hub.GetOrCreateUser(sid)
	if err := user.SetUsername(p.Name); err != nil {
		ctl.sendError(c, "invalid_name")
		return
	}
	log.Info().Str("module", "gateway").Str("sid", string(sid)).Str("name", p.Name).Msg("rename")
	ctl.handleWhoAmI(sid, c)
}

func (ctl *Controller) handleWhoAmI(sid core.SessionID, c *wsConn) {
	user := ctl.Hub.GetOrCreateUser(sid)
	resp := struct {
		Type     string        `json:"type"`
		ID       domain.UserID `json:"id"`
		Username string        `json:"username"`
		Room     domain.RoomID `json:"room,omitempty"`
	}{
		Type:     "whoami",
		ID:       user.ID,
		Username: user.Username,
	}
	if room, ok := ctl.Hub.RoomOfSession(sid); ok {
		resp.Room = room
	}
	ctl.sendJSON(c, resp)
}

// handleFocusMode flips the member's focus flag. Purely presentation
// state on the identity; nothing downstream branches on it.
func (ctl *Controller) handleFocusMode(sid core.SessionID, c *wsConn, data []byte) {
	type focusPayload struct {
		Type    string `json:"type"`
		Enabled bool   `json:"enabled"`
	}
	var p focusPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Hub.SetFocusMode(sid, p.Enabled)
	ctl.sendJSON(c, struct {
		Type    string `json:"type"`
		Enabled bool   `json:"enabled"`
	}{Type: "focus_mode", Enabled: p.Enabled})
}

func (ctl *Controller) handleTargeted(ctx context.Context, sid core.SessionID, c *wsConn, action string, data []byte) {
	type targetPayload struct {
		Type   string `json:"type"`
		Target string `json:"target"`
	}
	var p targetPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.runCommand(ctx, sid, c, orch.Request{
		Action: action,
		Actor:  ctl.Hub.GetOrCreateUser(sid).ID,
		Target: domain.UserID(p.Target),
	})
}

func (ctl *Controller) handleGoalSet(ctx context.Context, sid core.SessionID, c *wsConn, data []byte) {
	type goalPayload struct {
		Type     string `json:"type"`
		Duration string `json:"duration"`
	}
	var p goalPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.runCommand(ctx, sid, c, orch.Request{
		Action: "goal-set",
		Actor:  ctl.Hub.GetOrCreateUser(sid).ID,
		Arg:    p.Duration,
	})
}

func (ctl *Controller) handleCommand(ctx context.Context, sid core.SessionID, c *wsConn, action, arg string) {
	ctl.runCommand(ctx, sid, c, orch.Request{
		Action: action,
		Actor:  ctl.Hub.GetOrCreateUser(sid).ID,
		Arg:    arg,
	})
}

func (ctl *Controller) runCommand(ctx context.Context, sid core.SessionID, c *wsConn, req orch.Request) {
	result, err := ctl.Orch.Dispatch(ctx, req)
	if err != nil {
		ctl.sendJSON(c, struct {
			Type   string `json:"type"`
			Action string `json:"action"`
			Error  string `json:"error"`
		}{Type: "command_error", Action: req.Action, Error: userMessage(err)})
		return
	}
	ctl.sendJSON(c, struct {
		Type   string `json:"type"`
		Action string `json:"action"`
		Result any    `json:"result"`
	}{Type: "command_result", Action: req.Action, Result: result})
}

// userMessage maps domain errors to the strings members see. Every error
// is handled here at the boundary; none crash the process.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotOwner):
		return "only the room owner can do that"
	case errors.Is(err, domain.ErrNotInRoom):
		return "you are not in a study room"
	case errors.Is(err, domain.ErrAlreadyRunning):
		return "you already have a pomodoro running, stop it first"
	case errors.Is(err, domain.ErrNotRunning):
		return "no active pomodoro"
	case errors.Is(err, domain.ErrInvalidGoal):
		return "could not parse that goal duration, try something like 2h30m"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "the platform rejected that, try again later"
	case errors.Is(err, orch.ErrUnknownAction):
		return "unknown command"
	default:
		return "something went wrong"
	}
}
