// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for world, server and storage settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// WorldConfig holds the arena dimensions and simulation rate.
type WorldConfig struct {
	Width    float64 // Arena width in world units
	Height   float64 // Arena height in world units
	TickRate int     // Simulation steps per second
	Seed     int64   // RNG seed (0 = time based)
	CellSize float64 // Spatial hash cell size
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		Width:    5000,
		Height:   5000,
		TickRate: 60, // movement constants are tuned for 60 steps per second
		CellSize: 100,
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if w := getEnvFloat("WORLD_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvFloat("WORLD_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if s := getEnvInt("WORLD_SEED", 0); s != 0 {
		cfg.Seed = int64(s)
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits caps per-frame entity counts and snapshot sizes.
type ResourceLimits struct {
	MaxWorms         int // Snapshot worm cap
	MaxFoods         int // Snapshot food cap
	MaxItems         int // Snapshot item cap
	MaxParticles     int // Live particle cap (cosmetic emitters stop at this)
	MaxSegments      int // Total segments copied per snapshot
	MaxNotifications int // Pending HUD notifications kept per run
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxWorms:         128,
		MaxFoods:         1200,
		MaxItems:         64,
		MaxParticles:     600,
		MaxSegments:      20000,
		MaxNotifications: 16,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	BroadcastHz    int      // WebSocket state frames per second
	CORSOrigins    []string // nil = router defaults
	EventLogPath   string
	StaticFilesDir string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		BroadcastHz:    20,
		EventLogPath:   "events.jsonl",
		StaticFilesDir: "./web",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if hz := getEnvInt("BROADCAST_HZ", 0); hz > 0 {
		cfg.BroadcastHz = hz
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	cfg.EventLogPath = getEnvString("EVENT_LOG_PATH", cfg.EventLogPath)
	cfg.StaticFilesDir = getEnvString("STATIC_DIR", cfg.StaticFilesDir)

	return cfg
}

// =============================================================================
// RATE LIMIT CONFIGURATION
// =============================================================================

// RateBudget is one per-IP token bucket.
type RateBudget struct {
	PerSecond float64
	Burst     int
}

// RateLimitConfig gives each HTTP route class its own per-IP budget.
// Steering posts arrive at frame rate; everything else is human paced.
type RateLimitConfig struct {
	Input   RateBudget    // POST /api/run/input
	Command RateBudget    // start, minions, skill, mute
	Query   RateBudget    // GET reads, the minimap PNG included
	IdleTTL time.Duration // Buckets idle this long are dropped
}

// DefaultRateLimits returns the default per-class budgets.
func DefaultRateLimits() RateLimitConfig {
	return RateLimitConfig{
		Input:   RateBudget{PerSecond: 60, Burst: 90},
		Command: RateBudget{PerSecond: 4, Burst: 8},
		Query:   RateBudget{PerSecond: 10, Burst: 20},
		IdleTTL: 10 * time.Minute,
	}
}

// RateLimitsFromEnv returns rate limits with environment variable overrides.
func RateLimitsFromEnv() RateLimitConfig {
	cfg := DefaultRateLimits()

	budget := func(prefix string, b *RateBudget) {
		if v := getEnvFloat(prefix+"_RPS", 0); v > 0 {
			b.PerSecond = v
		}
		if v := getEnvInt(prefix+"_BURST", 0); v > 0 {
			b.Burst = v
		}
	}
	budget("RATE_INPUT", &cfg.Input)
	budget("RATE_COMMAND", &cfg.Command)
	budget("RATE_QUERY", &cfg.Query)

	if d, err := time.ParseDuration(os.Getenv("RATE_IDLE_TTL")); err == nil && d > 0 {
		cfg.IdleTTL = d
	}

	return cfg
}

// =============================================================================
// STORE CONFIGURATION
// =============================================================================

// StoreConfig holds persistence settings for records and achievements.
type StoreConfig struct {
	Path    string // SQLite file path
	Enabled bool   // false = in-memory only
}

// DefaultStore returns the default store configuration.
func DefaultStore() StoreConfig {
	return StoreConfig{
		Path:    "wormarena.db",
		Enabled: true,
	}
}

// StoreFromEnv returns store configuration with environment variable overrides.
func StoreFromEnv() StoreConfig {
	cfg := DefaultStore()

	cfg.Path = getEnvString("STORE_PATH", cfg.Path)
	cfg.Enabled = getEnvBool("STORE_ENABLED", cfg.Enabled)

	return cfg
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds cue synthesizer settings.
type AudioConfig struct {
	SampleRate int     // Audio sample rate in Hz
	Volume     float64 // Master volume (0.0 to 1.0)
	Enabled    bool    // Whether speaker output is attempted
	Muted      bool    // Start muted
	MusicPath  string  // Optional OGG Vorbis background track
}

// DefaultAudio returns the default audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		SampleRate: 44100,
		Volume:     0.6,
		Enabled:    true,
	}
}

// AudioFromEnv returns audio configuration with environment variable overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if v := getEnvFloat("AUDIO_VOLUME", -1); v >= 0 {
		cfg.Volume = v
	}
	cfg.Enabled = getEnvBool("AUDIO_ENABLED", cfg.Enabled)
	cfg.Muted = getEnvBool("AUDIO_MUTED", cfg.Muted)
	cfg.MusicPath = getEnvString("MUSIC_PATH", cfg.MusicPath)

	return cfg
}

// =============================================================================
// DEBUG CONFIGURATION
// =============================================================================

// DebugConfig controls the localhost pprof/metrics server.
type DebugConfig struct {
	Enabled    bool
	ListenAddr string
}

// DefaultDebug returns the default debug server configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	cfg.ListenAddr = getEnvString("DEBUG_ADDR", cfg.ListenAddr)

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World     WorldConfig
	Limits    ResourceLimits
	Server    ServerConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Audio     AudioConfig
	Debug     DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:     WorldFromEnv(),
		Limits:    DefaultLimits(),
		Server:    ServerFromEnv(),
		RateLimit: RateLimitsFromEnv(),
		Store:     StoreFromEnv(),
		Audio:     AudioFromEnv(),
		Debug:     DebugFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
