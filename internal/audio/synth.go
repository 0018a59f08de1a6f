package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Wave is an oscillator shape.
type Wave uint8

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
	WaveTriangle
	WaveNoise
)

// floorGain is where the exponential decay ends.
const floorGain = 0.001

// tone is a single oscillator note: the pitch ramps exponentially from f0 to
// f1 and the amplitude decays exponentially from 1 to floorGain.
type tone struct {
	wave  Wave
	f0    float64
	f1    float64
	rate  float64
	n     int
	pos   int
	phase float64
	rng   *rand.Rand
}

// newTone creates a note of the given duration. f1 <= 0 holds the pitch.
func newTone(wave Wave, f0, f1 float64, d time.Duration, sr beep.SampleRate, rng *rand.Rand) *tone {
	if f1 <= 0 {
		f1 = f0
	}
	return &tone{
		wave: wave,
		f0:   f0,
		f1:   math.Max(f1, 20),
		rate: float64(sr),
		n:    sr.N(d),
		rng:  rng,
	}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	if t.pos >= t.n {
		return 0, false
	}
	for i := range samples {
		if t.pos >= t.n {
			return i, true
		}
		p := float64(t.pos) / float64(t.n)
		freq := t.f0 * math.Pow(t.f1/t.f0, p)
		gain := math.Pow(floorGain, p)

		v := t.sample() * gain
		samples[i][0] = v
		samples[i][1] = v

		t.phase += freq / t.rate
		t.phase -= math.Floor(t.phase)
		t.pos++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

func (t *tone) sample() float64 {
	switch t.wave {
	case WaveSquare:
		if t.phase < 0.5 {
			return 1
		}
		return -1
	case WaveSaw:
		return 2 * (t.phase - 0.5)
	case WaveTriangle:
		return 1 - 4*math.Abs(t.phase-0.5)
	case WaveNoise:
		return t.rng.Float64()*2 - 1
	default:
		return math.Sin(2 * math.Pi * t.phase)
	}
}

// newVolume scales s linearly. beep's Volume effect works in powers of Base,
// so a zero volume has to be expressed as Silent.
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}
