package wsserver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-connect4/internal/match"
	"github.com/park285/cheese-connect4/pkg/wire"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	pingTimeout  = 3 * time.Second
)

// Hub maps connection ids to live sockets and implements the arena notifier.
type Hub struct {
	mu     sync.RWMutex
	conns  map[match.ConnID]*client
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{conns: make(map[match.ConnID]*client), logger: logger}
}

// Send queues msg for conn. A full queue closes the slow connection instead
// of blocking the caller.
func (h *Hub) Send(conn match.ConnID, msg wire.Message) {
	h.mu.RLock()
	c := h.conns[conn]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.out <- msg:
	default:
		h.logger.Warn("ws_send_overflow", zap.String("conn", string(conn)), zap.String("type", string(msg.Kind())))
		c.cancel()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(id match.ConnID) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// closeAll cancels every connection; handlers finish their own cleanup.
func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		c.cancel()
	}
}

type client struct {
	id     match.ConnID
	ws     *websocket.Conn
	out    chan wire.Message
	cancel context.CancelFunc
}

func newClient(id match.ConnID, ws *websocket.Conn, cancel context.CancelFunc) *client {
	return &client{id: id, ws: ws, out: make(chan wire.Message, sendBuffer), cancel: cancel}
}

func (c *client) writeLoop(ctx context.Context, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.ws, msg)
			cancel()
			if err != nil {
				logger.Debug("ws_write_error", zap.String("conn", string(c.id)), zap.Error(err))
				c.cancel()
				return
			}
		}
	}
}

func (c *client) pingLoop(ctx context.Context) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				c.cancel()
				return
			}
		}
	}
}
