package audio

import (
	"math/rand"
	"time"

	"github.com/gopxl/beep"

	"wormarena/internal/game"
)

// step is one oscillator note within a cue.
type step struct {
	Delay   time.Duration
	Wave    Wave
	Freq    float64
	FreqEnd float64 // 0 holds Freq
	Jitter  float64 // random extra Hz added to Freq
	Dur     time.Duration
	Vol     float64
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

var recipes = map[game.Cue][]step{
	game.CueEat: {
		{Wave: WaveSine, Freq: 600, Jitter: 400, Dur: ms(80), Vol: 0.15},
	},
	game.CueBoost: {
		{Wave: WaveSaw, Freq: 200, FreqEnd: 400, Dur: ms(150), Vol: 0.08},
	},
	game.CueKill: {
		{Wave: WaveSquare, Freq: 300, FreqEnd: 100, Dur: ms(300), Vol: 0.15},
		{Delay: ms(100), Wave: WaveSine, Freq: 500, Dur: ms(200), Vol: 0.12},
	},
	game.CueDeath: {
		{Wave: WaveSaw, Freq: 400, FreqEnd: 80, Dur: ms(500), Vol: 0.2},
		{Delay: ms(100), Wave: WaveNoise, Dur: ms(300), Vol: 0.08},
	},
	game.CueItemPickup: {
		{Wave: WaveSine, Freq: 800, FreqEnd: 1200, Dur: ms(100), Vol: 0.15},
		{Delay: ms(80), Wave: WaveSine, Freq: 1200, FreqEnd: 1600, Dur: ms(100), Vol: 0.12},
	},
	game.CueShield: {
		{Wave: WaveTriangle, Freq: 500, FreqEnd: 800, Dur: ms(200), Vol: 0.1},
	},
	game.CueFreeze: {
		{Wave: WaveSine, Freq: 2000, FreqEnd: 500, Dur: ms(300), Vol: 0.1},
	},
	game.CueMinionSpawn: {
		{Wave: WaveTriangle, Freq: 400, Dur: ms(100), Vol: 0.1},
		{Delay: ms(60), Wave: WaveTriangle, Freq: 600, Dur: ms(100), Vol: 0.1},
		{Delay: ms(120), Wave: WaveTriangle, Freq: 800, Dur: ms(100), Vol: 0.1},
	},
	game.CueAchievement: {
		{Wave: WaveSine, Freq: 600, FreqEnd: 900, Dur: ms(150), Vol: 0.12},
		{Delay: ms(100), Wave: WaveSine, Freq: 900, FreqEnd: 1200, Dur: ms(150), Vol: 0.12},
		{Delay: ms(200), Wave: WaveTriangle, Freq: 1200, FreqEnd: 1600, Dur: ms(200), Vol: 0.1},
	},
	game.CueEvolution: {
		{Wave: WaveTriangle, Freq: 300, Dur: ms(150), Vol: 0.12},
		{Delay: ms(80), Wave: WaveTriangle, Freq: 450, Dur: ms(150), Vol: 0.12},
		{Delay: ms(160), Wave: WaveTriangle, Freq: 600, Dur: ms(150), Vol: 0.12},
		{Delay: ms(240), Wave: WaveTriangle, Freq: 750, Dur: ms(150), Vol: 0.12},
		{Delay: ms(350), Wave: WaveSine, Freq: 900, FreqEnd: 1200, Dur: ms(300), Vol: 0.15},
	},
	game.CueWaveStart: {
		{Wave: WaveSquare, Freq: 200, FreqEnd: 400, Dur: ms(200), Vol: 0.08},
		{Delay: ms(150), Wave: WaveSquare, Freq: 400, FreqEnd: 600, Dur: ms(200), Vol: 0.08},
	},
	game.CueBossSpawn: {
		{Wave: WaveSaw, Freq: 100, FreqEnd: 60, Dur: ms(400), Vol: 0.15},
		{Delay: ms(200), Wave: WaveSquare, Freq: 80, FreqEnd: 120, Dur: ms(300), Vol: 0.1},
		{Delay: ms(300), Wave: WaveNoise, Dur: ms(200), Vol: 0.06},
	},
	game.CueSkillSelect: {
		{Wave: WaveSine, Freq: 500, FreqEnd: 700, Dur: ms(100), Vol: 0.1},
		{Delay: ms(80), Wave: WaveTriangle, Freq: 700, FreqEnd: 900, Dur: ms(150), Vol: 0.1},
	},
	game.CuePortal: {
		{Wave: WaveSine, Freq: 1000, FreqEnd: 500, Dur: ms(200), Vol: 0.1},
		{Delay: ms(100), Wave: WaveSine, Freq: 500, FreqEnd: 1000, Dur: ms(150), Vol: 0.08},
	},
}

// buildCue renders a recipe into a single streamer. Each step is delayed
// with leading silence and the steps are mixed.
func buildCue(c game.Cue, sr beep.SampleRate, master float64, rng *rand.Rand) (beep.Streamer, bool) {
	steps, ok := recipes[c]
	if !ok {
		return nil, false
	}

	voices := make([]beep.Streamer, 0, len(steps))
	for _, s := range steps {
		freq := s.Freq
		if s.Jitter > 0 {
			freq += rng.Float64() * s.Jitter
		}
		if s.Wave == WaveNoise {
			freq = 1
		}
		var v beep.Streamer = newTone(s.Wave, freq, s.FreqEnd, s.Dur, sr, rng)
		v = newVolume(v, s.Vol*master)
		if s.Delay > 0 {
			v = beep.Seq(beep.Silence(sr.N(s.Delay)), v)
		}
		voices = append(voices, v)
	}
	if len(voices) == 1 {
		return voices[0], true
	}
	return beep.Mix(voices...), true
}

// cueLength is how long a cue plays, including its last delayed step.
func cueLength(c game.Cue) time.Duration {
	var end time.Duration
	for _, s := range recipes[c] {
		if d := s.Delay + s.Dur; d > end {
			end = d
		}
	}
	return end
}
