// Package statusapi exposes the link's shared state over HTTP: JSON
// snapshots, Prometheus metrics and a websocket push feed.
package statusapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/cslink/internal/observability"
	"github.com/danmuck/cslink/internal/protocol"
	"github.com/danmuck/cslink/internal/protocol/session"
)

// StateReader is the read side of a link. *session.Link satisfies it.
type StateReader interface {
	Read() session.Snapshot
}

const defaultPushInterval = 500 * time.Millisecond

// Server serves link state on one listen address.
type Server struct {
	addr         string
	source       StateReader
	router       *gin.Engine
	appeared     time.Time
	pushInterval time.Duration

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { _ = c.conn.Close() })
}

// New builds a server over source. corsOrigins falls back to localhost
// when empty.
func New(addr string, source StateReader, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		addr:         addr,
		source:       source,
		router:       r,
		appeared:     time.Now(),
		pushInterval: defaultPushInterval,
		clients:      make(map[*wsClient]struct{}),
	}
	s.registerRoutes()
	return s
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// statusView is the wire form of a snapshot; Fault flattens to text.
type statusView struct {
	Connected bool                        `json:"connected"`
	Measured  protocol.Color              `json:"measured"`
	Shapes    []protocol.ShapeInstruction `json:"shapes"`
	X         *float64                    `json:"x,omitempty"`
	Y         *float64                    `json:"y,omitempty"`
	YLum      *float64                    `json:"luminance,omitempty"`
	Fault     string                      `json:"fault,omitempty"`
}

func viewOf(snap session.Snapshot) statusView {
	v := statusView{
		Connected: snap.Connected,
		Measured:  snap.Measured,
		Shapes:    snap.Shapes,
		X:         snap.X,
		Y:         snap.Y,
		YLum:      snap.YLum,
	}
	if snap.Shapes == nil {
		v.Shapes = []protocol.ShapeInstruction{}
	}
	if snap.Fault != nil {
		v.Fault = snap.Fault.Error()
	}
	return v
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": "cslink",
			"version": "0.0.1",
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, viewOf(s.source.Read()))
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ws", s.handleWS)
}

func (s *Server) handleWS(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &wsClient{conn: conn}
	s.addClient(client)
	defer func() {
		client.close()
		s.removeClient(client)
	}()

	// Drain the read side so pings and client closes are observed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				client.close()
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteJSON(viewOf(s.source.Read())); err != nil {
			return
		}
	}
}

func (s *Server) addClient(c *wsClient) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	for c := range s.clients {
		c.close()
	}
	s.mu.Unlock()
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
