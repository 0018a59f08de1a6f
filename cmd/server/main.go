package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"wormarena/internal/api"
	"wormarena/internal/audio"
	"wormarena/internal/config"
	"wormarena/internal/game"
	"wormarena/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🐛 ================================")
	log.Println("🐛  WORM ARENA - GO ENGINE")
	log.Println("🐛 ================================")

	appConfig := config.Load()
	worldCfg := appConfig.World
	serverCfg := appConfig.Server
	audioCfg := appConfig.Audio

	log.Printf("🎮 Config: %.0fx%.0f arena, %d TPS, %d Hz broadcast",
		worldCfg.Width, worldCfg.Height, worldCfg.TickRate, serverCfg.BroadcastHz)

	// Records and achievements
	storePath := ""
	if appConfig.Store.Enabled {
		storePath = appConfig.Store.Path
	}
	db := store.Open(storePath)

	// A headless server only plays through the speaker when asked to.
	player := audio.New(audio.Config{
		SampleRate: audioCfg.SampleRate,
		Volume:     audioCfg.Volume,
		Output:     audioCfg.Enabled && os.Getenv("SERVER_AUDIO") == "true",
		Muted:      audioCfg.Muted,
		MusicPath:  audioCfg.MusicPath,
	})
	if err := player.Start(); err != nil {
		log.Printf("⚠️ Audio disabled: %v", err)
	}

	engine := game.NewEngine(game.EngineOptions{
		Width:    worldCfg.Width,
		Height:   worldCfg.Height,
		TickRate: worldCfg.TickRate,
		Seed:     worldCfg.Seed,
		CellSize: worldCfg.CellSize,
		Limits:   game.ResourceLimits(appConfig.Limits),
		Audio:    player,
		Store:    db,
	})
	limits := engine.GetLimits()
	log.Printf("🛡️ Resource limits: %d worms, %d food, %d particles, %d segments",
		limits.MaxWorms, limits.MaxFoods, limits.MaxParticles, limits.MaxSegments)

	// Start event log
	if err := engine.StartEventLog(serverCfg.EventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else {
		log.Printf("📝 Event log: %s", serverCfg.EventLogPath)
	}

	// Start debug server
	if appConfig.Debug.Enabled {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = appConfig.Debug.ListenAddr
		debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
		debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	server := api.NewServer(engine, api.ServerConfig{
		BroadcastHz:     serverCfg.BroadcastHz,
		CORSOrigins:     serverCfg.CORSOrigins,
		StaticFilesDir:  serverCfg.StaticFilesDir,
		RateLimitConfig: &appConfig.RateLimit,
	})

	// Start game engine
	engine.Start()
	log.Println("✅ Game Engine started")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	engine.StopEventLog()
	engine.Stop()
	player.Close()
	if err := db.Close(); err != nil {
		log.Printf("⚠️ Store close: %v", err)
	}
	log.Println("👋 Goodbye!")
}
