package audio

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"wormarena/internal/game"
)

const (
	// MaxVoices caps concurrently sounding cues.
	MaxVoices = 8

	ambienceFreq = 80
	ambienceVol  = 0.03
)

// Config selects the output and levels.
type Config struct {
	SampleRate int
	Volume     float64
	Output     bool // open the system speaker on Start
	Muted      bool
	MusicPath  string // optional OGG track played instead of the drone
}

// Player synthesizes game cues under a low ambience drone or a music track.
// It implements game.Audio, and it is itself a beep.Streamer so the speaker
// (or a test) can pull mixed samples from it.
type Player struct {
	mu sync.Mutex

	rate   beep.SampleRate
	volume float64
	output bool

	mixer    beep.Mixer
	ambience *beep.Ctrl
	music    *Music
	buf      [][2]float64
	rng      *rand.Rand

	muted   bool
	started bool
	played  uint64
	dropped uint64
}

// New creates a player. Nothing is opened until Start.
func New(cfg Config) *Player {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Volume <= 0 || cfg.Volume > 1 {
		cfg.Volume = 0.6
	}
	p := &Player{
		rate:   beep.SampleRate(cfg.SampleRate),
		volume: cfg.Volume,
		output: cfg.Output,
		muted:  cfg.Muted,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.MusicPath != "" {
		m, err := LoadMusic(cfg.MusicPath)
		if err != nil {
			// Cues still play, the drone stands in for the track
			log.Printf("⚠️ Background music disabled: %v", err)
		} else {
			p.music = m
		}
	}
	return p
}

// Start opens the speaker when output is enabled. A machine without an audio
// device keeps running silently.
func (p *Player) Start() error {
	if !p.output {
		return nil
	}
	if err := speaker.Init(p.rate, p.rate.N(100*time.Millisecond)); err != nil {
		log.Printf("⚠️ Audio output unavailable: %v", err)
		p.output = false
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(p)

	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	log.Printf("🔊 Audio started (%d Hz)", p.rate)
	return nil
}

// Close stops speaker playback.
func (p *Player) Close() {
	p.mu.Lock()
	started := p.started
	p.started = false
	p.mixer.Clear()
	p.ambience = nil
	music := p.music
	p.music = nil
	p.mu.Unlock()

	if started {
		speaker.Clear()
	}
	if music != nil {
		music.Close()
	}
}

// Play queues a cue. Muted players and full mixers drop it.
func (p *Player) Play(c game.Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.muted {
		return
	}
	if p.mixer.Len() >= MaxVoices {
		p.dropped++
		return
	}
	s, ok := buildCue(c, p.rate, p.volume, p.rng)
	if !ok {
		return
	}
	p.mixer.Add(s)
	p.played++
}

// StartAmbience starts the music track, or the drone without one, unless
// muted or already running.
func (p *Player) StartAmbience() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.muted || p.ambience != nil {
		return
	}
	if p.music != nil {
		s, err := p.music.loop(p.rate)
		if err == nil {
			p.ambience = &beep.Ctrl{Streamer: newVolume(s, musicVol*p.volume)}
			return
		}
		log.Printf("⚠️ Music unavailable, using drone: %v", err)
		p.music = nil
	}
	sine, err := generators.SineTone(p.rate, ambienceFreq)
	if err != nil {
		log.Printf("⚠️ Ambience unavailable: %v", err)
		return
	}
	p.ambience = &beep.Ctrl{Streamer: newVolume(sine, ambienceVol*p.volume)}
}

// StopAmbience silences the drone.
func (p *Player) StopAmbience() {
	p.mu.Lock()
	p.ambience = nil
	p.mu.Unlock()
}

// ToggleMute flips mute and returns the new state. Muting cuts everything
// currently playing.
func (p *Player) ToggleMute() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted = !p.muted
	if p.muted {
		p.mixer.Clear()
		p.ambience = nil
	}
	return p.muted
}

// Muted reports the mute state.
func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Active returns the number of cues still sounding.
func (p *Player) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mixer.Len()
}

// AmbienceOn reports whether the drone is running.
func (p *Player) AmbienceOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ambience != nil
}

// Stats returns cue counters.
func (p *Player) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{
		"played":   p.played,
		"dropped":  p.dropped,
		"active":   p.mixer.Len(),
		"muted":    p.muted,
		"ambience": p.ambience != nil,
		"music":    p.music != nil,
	}
}

// Stream fills samples with the mixed cues and ambience. It never ends, so
// the speaker keeps pulling silence between cues.
func (p *Player) Stream(samples [][2]float64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	if p.mixer.Len() > 0 {
		n, _ = p.mixer.Stream(samples)
	}
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}

	if p.ambience != nil {
		if cap(p.buf) < len(samples) {
			p.buf = make([][2]float64, len(samples))
		}
		buf := p.buf[:len(samples)]
		an, _ := p.ambience.Stream(buf)
		for i := 0; i < an; i++ {
			samples[i][0] += buf[i][0]
			samples[i][1] += buf[i][1]
		}
	}
	return len(samples), true
}

func (p *Player) Err() error { return nil }

var _ game.Audio = (*Player)(nil)
