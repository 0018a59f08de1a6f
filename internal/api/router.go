package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"wormarena/internal/game"
	"wormarena/internal/store"
)

// EngineInterface defines the game engine methods used by the API.
// This interface enables mocking for tests without spinning up the full game loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	Commands

	// GetSnapshot returns the latest lock-free immutable snapshot
	GetSnapshot() *game.GameSnapshot
	Stats() game.EngineStats
	Summary() game.RunSummary
	LastSummary() (game.RunSummary, bool)
	Leaderboard(n int) []game.LeaderboardEntry
	SkillOffer() []game.SkillDef
	Records() store.Records
	Achievements() []game.AchievementStatus
	Notifications() []game.Notification
	Muted() bool
}

var _ EngineInterface = (*game.Engine)(nil)

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        Query: api.RateBudget{PerSecond: 1000, Burst: 1000}, // High limit for tests
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *RouteLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. Zero budgets take the config defaults.
	RateLimitConfig *RateLimitConfig

	// Origins checks CORS origins. Nil uses DefaultAllowedOrigins.
	Origins *OriginChecker

	// StaticFilesDir serves the browser client. Empty disables it.
	StaticFilesDir string

	// MinimapSize is the default /api/minimap.png edge in pixels.
	MinimapSize int

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine      EngineInterface
	limiter     *RouteLimiter
	minimapSize int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It has no side effects: no listeners, no broadcast loop, no background
// goroutines. This makes it safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		var rlCfg RateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewRouteLimiter(rlCfg)
	}

	origins := cfg.Origins
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins.Patterns(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	minimapSize := cfg.MinimapSize
	if minimapSize <= 0 {
		minimapSize = defaultMinimapSize
	}
	h := &routerHandlers{
		engine:      cfg.Engine,
		limiter:     rateLimiter,
		minimapSize: minimapSize,
	}

	// Each route class has its own per-IP bucket.
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.Limit(ClassQuery))
			r.Get("/state", h.handleGetState)
			r.Get("/stats", h.handleGetStats)
			r.Get("/leaderboard", h.handleGetLeaderboard)
			r.Get("/records", h.handleGetRecords)
			r.Get("/achievements", h.handleGetAchievements)
			r.Get("/minimap.png", h.handleGetMinimap)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.Limit(ClassCommand))
			r.Post("/run/start", h.command(MsgStart))
			r.Post("/run/minions", h.command(MsgMinions))
			r.Post("/run/skill", h.command(MsgSkill))
			r.Post("/audio/mute", h.command(MsgMute))
		})

		r.With(rateLimiter.Limit(ClassInput)).Post("/run/input", h.command(MsgInput))
	})

	if cfg.StaticFilesDir != "" {
		r.With(rateLimiter.Limit(ClassQuery)).Handle("/*", http.FileServer(http.Dir(cfg.StaticFilesDir)))
	}

	return r
}
