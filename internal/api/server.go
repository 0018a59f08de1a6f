package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"wormarena/internal/game"
)

// ServerConfig configures NewServer. Zero values fall back to defaults.
type ServerConfig struct {
	BroadcastHz     int
	CORSOrigins     []string
	StaticFilesDir  string
	RateLimitConfig *RateLimitConfig
	DisableLogging  bool
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      *game.Engine
	cfg         ServerConfig
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *RouteLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// Background workers do NOT start until Start() is called, so tests can
// construct the server and use Router() without goroutines running.
func NewServer(engine *game.Engine, cfg ServerConfig) *Server {
	var rlCfg RateLimitConfig
	if cfg.RateLimitConfig != nil {
		rlCfg = *cfg.RateLimitConfig
	}
	origins := NewOriginChecker(cfg.CORSOrigins)

	s := &Server{
		engine:      engine,
		cfg:         cfg,
		wsHub:       NewWebSocketHub(engine, origins),
		rateLimiter: NewRouteLimiter(rlCfg),
	}

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		RateLimiter:    s.rateLimiter,
		Origins:        origins,
		StaticFilesDir: cfg.StaticFilesDir,
		DisableLogging: cfg.DisableLogging,
	})

	// The WebSocket route needs the hub instance, so it can't be part of
	// the generic NewRouter factory.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)
	s.router.With(s.rateLimiter.Limit(ClassQuery)).Get("/ws/stats", s.wsHub.handleStats)

	return s
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// StartBackground wires engine hooks into the hub and starts the broadcast
// workers without opening a listener.
func (s *Server) StartBackground() {
	s.engine.SubscribeEvents(func(ev game.Event) {
		RecordEvent(ev.Type)
		s.wsHub.Broadcast(MsgEvent, newEventFrame(ev))
	})
	s.engine.OnNotify(func(n game.Notification) {
		s.wsHub.Broadcast(MsgNotify, n)
	})
	s.engine.SetCallbacks(
		func(sum game.RunSummary) {
			RecordRunFinished()
			s.wsHub.Broadcast(MsgGameOver, sum)
		},
		func(cost time.Duration, snap *game.GameSnapshot) {
			RecordTick(cost, snap)
		},
	)

	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.cfg.BroadcastHz)
}

// Start begins the HTTP server AND starts background workers. It blocks
// until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.StartBackground()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🐛 WebSocket: ws://localhost%s/ws", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.Stop()
	return err
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	s.wsHub.Stop()
}
