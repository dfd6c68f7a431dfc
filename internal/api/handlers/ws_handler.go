package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/doccast/doccast/internal/events"
	"github.com/doccast/doccast/internal/services"
	"github.com/doccast/doccast/internal/utils"
)

// WSHandler streams a session's live log events to the browser: the engine
// publishes to Redis pub/sub, this handler forwards to the socket.
type WSHandler struct {
	svc      services.PodcastService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(svc services.PodcastService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		svc:   svc,
		redis: rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) SessionEvents(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.SessionEvents", "missing session_id", nil))
		return
	}

	// the session must exist before anyone can watch it
	if _, err := h.svc.Get(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, events.Channel(sessionID))
	defer pubsub.Close()

	// reader goroutine only notices the client going away; cancelling the
	// context unblocks ReceiveMessage below
	go func() {
		defer cancel()
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	for {
		m, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		if werr := wc.writeText([]byte(m.Payload)); werr != nil {
			return
		}
	}
}
