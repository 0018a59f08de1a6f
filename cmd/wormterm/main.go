package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"wormarena/internal/audio"
	"wormarena/internal/config"
	"wormarena/internal/game"
	"wormarena/internal/store"
)

const frameInterval = 33 * time.Millisecond

// Term is a single-player arena running in-process and drawn with tcell.
type Term struct {
	screen tcell.Screen
	engine *game.Engine
	audio  *audio.Player
	store  store.Store
	steer  steering
	name   string
	color  int
}

func NewTerm(cfg config.AppConfig, name string, color int) (*Term, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("new screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}

	player := audio.New(audio.Config{
		SampleRate: cfg.Audio.SampleRate,
		Volume:     cfg.Audio.Volume,
		Output:     cfg.Audio.Enabled,
		Muted:      cfg.Audio.Muted,
		MusicPath:  cfg.Audio.MusicPath,
	})
	if err := player.Start(); err != nil {
		// Non-fatal, the arena runs without sound
		log.Printf("Audio initialization failed: %v", err)
	}

	storePath := ""
	if cfg.Store.Enabled {
		storePath = cfg.Store.Path
	}
	db := store.Open(storePath)

	engine := game.NewEngine(game.EngineOptions{
		Width:    cfg.World.Width,
		Height:   cfg.World.Height,
		TickRate: cfg.World.TickRate,
		Seed:     cfg.World.Seed,
		CellSize: cfg.World.CellSize,
		Limits:   game.ResourceLimits(cfg.Limits),
		Audio:    player,
		Store:    db,
	})

	return &Term{
		screen: screen,
		engine: engine,
		audio:  player,
		store:  db,
		name:   name,
		color:  color,
	}, nil
}

// handleInput applies one terminal event. It returns false to quit.
func (t *Term) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		now := time.Now()
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			t.steer.press(0, -1, now)
		case tcell.KeyDown:
			t.steer.press(0, 1, now)
		case tcell.KeyLeft:
			t.steer.press(-1, 0, now)
		case tcell.KeyRight:
			t.steer.press(1, 0, now)
		case tcell.KeyRune:
			r := ev.Rune()
			if dx, dy, ok := keyDirection(r); ok {
				t.steer.press(dx, dy, now)
				break
			}
			switch r {
			case 'q', 'Q':
				return false
			case ' ':
				t.steer.toggleBoost()
			case 'm', 'M':
				t.engine.SpawnMinions()
			case '1', '2', '3':
				t.engine.ChooseSkill(int(r - '1'))
			case 'n', 'N':
				t.engine.ToggleMute()
			case 'r', 'R':
				t.restart()
			}
		}
		t.pushInput()

	case *tcell.EventResize:
		t.screen.Sync()
	}
	return true
}

func (t *Term) pushInput() {
	if !t.steer.hasHeading {
		if p, ok := t.engine.GetSnapshot().Player(); ok {
			t.steer.aim = p.Angle
		}
	}
	t.engine.SetInput(t.steer.aim, t.steer.boost)
}

func (t *Term) restart() {
	t.steer.reset()
	t.engine.StartRun(t.name, t.color)
}

func (t *Term) draw() {
	snap := t.engine.GetSnapshot()
	draw(t.screen, snap, t.engine.SkillOffer(), t.engine.Notifications(), t.engine.Muted())
	if sum, ok := t.engine.LastSummary(); ok {
		drawGameOver(t.screen, sum)
	}
	t.screen.Show()
}

func (t *Term) run() {
	t.restart()
	t.engine.Start()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !t.handleInput(ev) {
				return
			}
		case <-ticker.C:
			t.draw()
		}
	}
}

func (t *Term) cleanup() {
	t.engine.Stop()
	t.audio.Close()
	t.screen.Fini()
	if err := t.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "store close: %v\n", err)
	}
}

func main() {
	name := flag.String("name", "Player", "worm name")
	color := flag.Int("color", 0, fmt.Sprintf("palette index 0-%d", len(game.Palette)-1))
	logPath := flag.String("log", "", "write logs to this file instead of discarding them")
	flag.Parse()

	// Log lines would scribble over the screen.
	log.SetOutput(io.Discard)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	_ = godotenv.Load(".env")

	term, err := NewTerm(config.Load(), *name, *color)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer term.cleanup()

	term.run()
}
