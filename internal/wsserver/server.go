package wsserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-connect4/internal/arena"
	"github.com/park285/cheese-connect4/internal/match"
	"github.com/park285/cheese-connect4/internal/render"
	"github.com/park285/cheese-connect4/internal/store"
)

const (
	readLimit      = 4096
	maxBoardWidth  = 1024
	maxLeaderboard = 100
	queryTimeout   = 5 * time.Second
)

// Arena is the orchestrator surface the transport drives.
type Arena interface {
	Dispatch(conn match.ConnID, raw []byte) error
	Disconnect(conn match.ConnID)
	Snapshot(matchID string) (arena.Snapshot, bool)
	Stats() arena.Stats
}

// Deps wires the server. Store, Renderer and Gatherer are optional.
type Deps struct {
	Arena            Arena
	Hub              *Hub
	Store            store.Repository
	Renderer         render.Renderer
	Gatherer         prometheus.Gatherer
	Logger           *zap.Logger
	AllowedOrigins   []string
	LeaderboardLimit int
}

type Server struct {
	deps   Deps
	engine *gin.Engine
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Hub == nil {
		d.Hub = NewHub(d.Logger)
	}
	if d.LeaderboardLimit <= 0 {
		d.LeaderboardLimit = 10
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{deps: d, engine: gin.New()}
	s.engine.Use(gin.Recovery(), s.accessLog())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Shutdown drops every live socket; the arena sees them as disconnects.
func (s *Server) Shutdown() { s.deps.Hub.closeAll() }

func (s *Server) routes() {
	r := s.engine
	r.GET("/health", s.health)
	r.GET("/ws", s.serveWS)
	api := r.Group("/api")
	api.GET("/leaderboard", s.leaderboard)
	api.GET("/stats", s.stats)
	api.GET("/matches/:id/board.png", s.boardPNG)
	if s.deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			return
		}
		s.deps.Logger.Debug("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "live": s.deps.Arena.Stats()})
}

func (s *Server) serveWS(c *gin.Context) {
	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: s.deps.AllowedOrigins,
	})
	if err != nil {
		s.deps.Logger.Debug("ws_accept_error", zap.Error(err))
		return
	}
	ws.SetReadLimit(readLimit)

	id := match.ConnID(uuid.NewString())
	ctx, cancel := context.WithCancel(c.Request.Context())
	cl := newClient(id, ws, cancel)
	s.deps.Hub.add(cl)
	s.deps.Logger.Debug("ws_open", zap.String("conn", string(id)))

	defer func() {
		cancel()
		s.deps.Hub.remove(id)
		s.deps.Arena.Disconnect(id)
		_ = ws.Close(websocket.StatusNormalClosure, "")
		s.deps.Logger.Debug("ws_close", zap.String("conn", string(id)))
	}()

	go cl.writeLoop(ctx, s.deps.Logger)
	go cl.pingLoop(ctx)

	for {
		typ, raw, err := ws.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		_ = s.deps.Arena.Dispatch(id, raw)
	}
}

func (s *Server) leaderboard(c *gin.Context) {
	if s.deps.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard unavailable"})
		return
	}
	limit := s.deps.LeaderboardLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLeaderboard)
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()
	rows, err := s.deps.Store.FetchLeaderboard(ctx, limit)
	if err != nil {
		s.deps.Logger.Warn("leaderboard_error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}
	if rows == nil {
		rows = []store.Standing{}
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
}

func (s *Server) stats(c *gin.Context) {
	out := gin.H{"live": s.deps.Arena.Stats()}
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
		defer cancel()
		st, err := s.deps.Store.FetchStats(ctx)
		if err != nil {
			s.deps.Logger.Warn("stats_error", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
			return
		}
		out["games"] = st
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) boardPNG(c *gin.Context) {
	if s.deps.Renderer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rendering unavailable"})
		return
	}
	snap, ok := s.deps.Arena.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	opts := render.Options{LastMove: snap.LastMove}
	if raw := c.Query("width"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w <= 0 || w > maxBoardWidth {
			c.JSON(http.StatusBadRequest, gin.H{"error": "width out of range"})
			return
		}
		opts.Width = w
	}
	png, err := s.deps.Renderer.RenderPNG(c.Request.Context(), snap.Board, opts)
	if err != nil {
		s.deps.Logger.Warn("board_render_error", zap.String("match_id", snap.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
