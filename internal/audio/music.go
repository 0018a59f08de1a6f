package audio

import (
	"fmt"
	"log"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/vorbis"
)

// musicVol sits under the cues so hits stay audible.
const musicVol = 0.25

// Music is a looping OGG Vorbis track decoded on demand. Only the decoder
// state is held in memory, never the whole PCM.
type Music struct {
	path     string
	streamer beep.StreamSeekCloser
	format   beep.Format
}

// LoadMusic opens path and prepares the streaming decoder.
func LoadMusic(path string) (*Music, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open music: %w", err)
	}
	streamer, format, err := vorbis.Decode(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("decode music %s: %w", path, err)
	}

	log.Printf("✅ Background music loaded: %s", path)
	log.Printf("   Sample rate: %d Hz, Channels: %d", format.SampleRate, format.NumChannels)
	return &Music{path: path, streamer: streamer, format: format}, nil
}

// loop rewinds the track and returns an endless stream at rate.
func (m *Music) loop(rate beep.SampleRate) (beep.Streamer, error) {
	if err := m.streamer.Seek(0); err != nil {
		return nil, fmt.Errorf("rewind music: %w", err)
	}
	var s beep.Streamer = beep.Loop(-1, m.streamer)
	if m.format.SampleRate != rate {
		s = beep.Resample(4, m.format.SampleRate, rate, s)
	}
	return s, nil
}

// Close releases the decoder and the file.
func (m *Music) Close() error {
	return m.streamer.Close()
}
