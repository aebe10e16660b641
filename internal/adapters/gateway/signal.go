package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"studysphere/internal/app/orch"
	"studysphere/internal/config"
	"studysphere/internal/core"
	"studysphere/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller speaks the typed-JSON control protocol over a websocket:
// presence messages (join/leave) and the user command surface.
type Controller struct {
	Hub     *Hub
	Orch    *orch.Orchestrator
	Portals map[domain.RoomID]domain.RoomKind
	Creates *CreateRateLimiter
	Cfg     *config.Config
}

func NewController(hub *Hub, o *orch.Orchestrator, portals map[domain.RoomID]domain.RoomKind, creates *CreateRateLimiter, cfg *config.Config) *Controller {
	return &Controller{Hub: hub, Orch: o, Portals: portals, Creates: creates, Cfg: cfg}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "gateway").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(ctl.Cfg.PingPeriod + 10*time.Second))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(ctl.Cfg.PingPeriod + 10*time.Second))
	})

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	user := ctl.Hub.GetOrCreateUser(sid)
	sess := core.NewMemberSession(domain.NewMember(user), conn)
	ctl.Hub.Register(sid, sess)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
		ctl.Hub.Unregister(context.Background(), sid)
	}()
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "gateway").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "gateway").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "gateway").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "gateway").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "gateway").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "gateway").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "gateway").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

func (ctl *Controller) handleSignal(ctx context.Context, sid core.SessionID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad json")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(ctx, sid, c, data)
	case "leave":
		ctl.handleLeave(ctx, sid)
	case "ping":
		ctl.handlePing(c)
	case "rename":
		ctl.handleRename(sid, c, data)
	case "whoami":
		ctl.handleWhoAmI(sid, c)
	case "focus_mode":
		ctl.handleFocusMode(sid, c, data)
	case "trust", "kick":
		ctl.handleTargeted(ctx, sid, c, env.Type, data)
	case "lock", "unlock", "delete", "timer-start", "timer-pause",
		"timer-stop", "timer-status", "goal-clear", "stats", "progress",
		"leaderboard":
		ctl.handleCommand(ctx, sid, c, env.Type, "")
	case "goal-set":
		ctl.handleGoalSet(ctx, sid, c, data)
	default:
		log.Warn().Str("module", "gateway").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendJSON(c, map[string]any{"type": "error", "error": msg})
}
