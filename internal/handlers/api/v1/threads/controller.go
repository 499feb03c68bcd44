// Package threads exposes the thread read endpoint and the websocket
// subscription that streams rebuilt trees to clients.
package threads

import (
	"net/http"
	"strconv"
	"time"

	"threadhub/internal/contextutils"
	"threadhub/internal/response"
	"threadhub/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Controller handles thread endpoints.
type Controller struct {
	services *services.Collection
	builder  *response.Builder
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewController creates a thread controller.
func NewController(collection *services.Collection, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		services: collection,
		builder:  builder,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the platform gateway in
			// front of the engine.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Get handles GET /api/v1/posts/{postID}/thread: one snapshot of the
// rebuilt comment tree.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	postID, ok := c.pathPostID(w, r)
	if !ok {
		return
	}

	snapshot, err := c.services.Comments.GetThread(r.Context(), contextutils.GetCompanyID(r.Context()), postID)
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.Success(w, r, snapshot)
}

// Subscribe handles GET /api/v1/posts/{postID}/thread/subscribe: upgrades
// to a websocket and streams a fresh snapshot on every comment change
// until the client disconnects.
func (c *Controller) Subscribe(w http.ResponseWriter, r *http.Request) {
	postID, ok := c.pathPostID(w, r)
	if !ok {
		return
	}

	sub, err := c.services.Threads.Subscribe(r.Context(), contextutils.GetCompanyID(r.Context()), postID)
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		c.services.Threads.Unsubscribe(sub.ID)
		c.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c.logger.Info("thread websocket connected",
		zap.String("subscription_id", sub.ID),
		zap.Int64("post_id", postID),
		zap.Int64("user_id", contextutils.GetUserID(r.Context())),
	)

	go c.readLoop(conn, sub.ID)
	c.writeLoop(conn, sub)
}

// readLoop drains client frames so pongs and close frames are processed;
// a read error means the client is gone.
func (c *Controller) readLoop(conn *websocket.Conn, subscriptionID string) {
	defer c.services.Threads.Unsubscribe(subscriptionID)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type wsEnvelope struct {
	Type     string                   `json:"type"`
	Snapshot *services.ThreadSnapshot `json:"snapshot,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

func (c *Controller) writeLoop(conn *websocket.Conn, sub *services.ThreadSubscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		c.services.Threads.Unsubscribe(sub.ID)
	}()

	for {
		select {
		case snapshot, ok := <-sub.Snapshots:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsEnvelope{Type: "snapshot", Snapshot: snapshot}); err != nil {
				return
			}
		case err, ok := <-sub.Errors:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if writeErr := conn.WriteJSON(wsEnvelope{Type: "error", Error: err.Error()}); writeErr != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Controller) pathPostID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil || id <= 0 {
		c.builder.BadRequest(w, r, "invalid postID")
		return 0, false
	}
	return id, true
}
