package game

import (
	"fmt"
	"log"
	"math"
	"slices"
	"sync"

	"wormarena/internal/store"
)

// Record field names, as reported by NewRecords.
const (
	RecordHighScore       = "highScore"
	RecordMaxLength       = "maxLength"
	RecordMaxKills        = "maxKills"
	RecordLongestSurvival = "longestSurvival"
)

// RecordBook tracks personal bests on top of a store. Store failures are
// logged and otherwise ignored; the book keeps working from memory.
type RecordBook struct {
	mu      sync.RWMutex
	store   store.Store
	records store.Records
	loaded  bool
	broken  []string
}

// NewRecordBook wraps s. A nil store keeps records in memory only.
func NewRecordBook(s store.Store) *RecordBook {
	if s == nil {
		s = store.NewMemory()
	}
	return &RecordBook{store: s}
}

// Load reads records from the store, falling back to zero values.
func (rb *RecordBook) Load() store.Records {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.loadLocked()
	return rb.records
}

func (rb *RecordBook) loadLocked() {
	r, err := rb.store.LoadRecords()
	if err != nil {
		log.Printf("⚠️ Load records: %v", err)
		r = store.Records{}
	}
	rb.records = r
	rb.loaded = true
	rb.broken = rb.broken[:0]
}

// Save writes the current records to the store.
func (rb *RecordBook) Save() {
	rb.mu.RLock()
	r, loaded := rb.records, rb.loaded
	rb.mu.RUnlock()
	if !loaded {
		return
	}
	if err := rb.store.SaveRecords(r); err != nil {
		log.Printf("⚠️ Save records: %v", err)
	}
}

// IncrementGameCount bumps TotalGames and saves immediately.
func (rb *RecordBook) IncrementGameCount() {
	rb.mu.Lock()
	if !rb.loaded {
		rb.loadLocked()
	}
	rb.records.TotalGames++
	rb.mu.Unlock()
	rb.Save()
}

// CheckBroken raises any best the run has beaten. It returns true only when
// a field breaks for the first time this run.
func (rb *RecordBook) CheckBroken(v ProgressView) bool {
	if !v.HasPlayer {
		return false
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if !rb.loaded {
		return false
	}

	r := &rb.records
	broken := false
	mark := func(field string) {
		if !slices.Contains(rb.broken, field) {
			rb.broken = append(rb.broken, field)
			broken = true
		}
	}

	if score := v.PlayerScore; score > r.HighScore {
		r.HighScore = score
		mark(RecordHighScore)
	}
	if length := int(math.Floor(v.PlayerLength)); length > r.MaxLength {
		r.MaxLength = length
		mark(RecordMaxLength)
	}
	if v.KillCount > r.MaxKills {
		r.MaxKills = v.KillCount
		mark(RecordMaxKills)
	}
	if v.SurvivalTime > r.LongestSurvival {
		r.LongestSurvival = v.SurvivalTime
		mark(RecordLongestSurvival)
	}
	return broken
}

// NewRecords lists the fields broken this run, in the order they broke.
func (rb *RecordBook) NewRecords() []string {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return slices.Clone(rb.broken)
}

func (rb *RecordBook) ClearNewRecords() {
	rb.mu.Lock()
	rb.broken = rb.broken[:0]
	rb.mu.Unlock()
}

// Records returns a copy of the current bests, loading them on first use.
func (rb *RecordBook) Records() store.Records {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if !rb.loaded {
		rb.loadLocked()
	}
	return rb.records
}

// FormatTime renders seconds as m:ss.
func FormatTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	s := int(sec)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
