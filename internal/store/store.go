// Package store persists personal records and unlocked achievements.
//
// Both are small JSON blobs. The SQLite store keeps them in a key/value
// table; the memory store is used in tests and as a fallback when the
// database cannot be opened.
package store

import (
	"errors"
	"log"
	"sync"
)

// Records are the per-device best results across runs.
type Records struct {
	HighScore       int     `json:"highScore"`
	MaxLength       int     `json:"maxLength"`
	MaxKills        int     `json:"maxKills"`
	LongestSurvival float64 `json:"longestSurvival"` // seconds
	TotalGames      int     `json:"totalGames"`
}

// Store is the persistence contract used by the game's record books.
type Store interface {
	LoadRecords() (Records, error)
	SaveRecords(Records) error
	LoadAchievements() (map[string]bool, error)
	SaveAchievements(map[string]bool) error
	Close() error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Open returns a SQLite store at path, or an in-memory store if path is
// empty or the database cannot be opened. It never fails.
func Open(path string) Store {
	if path == "" {
		return NewMemory()
	}
	db, err := OpenSQLite(path)
	if err != nil {
		log.Printf("⚠️ Store unavailable (%v), records kept in memory", err)
		return NewMemory()
	}
	log.Printf("💾 Store: %s", path)
	return db
}

// Memory is a map-backed Store.
type Memory struct {
	mu           sync.Mutex
	records      Records
	achievements map[string]bool
	closed       bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{achievements: make(map[string]bool)}
}

func (m *Memory) LoadRecords() (Records, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Records{}, ErrClosed
	}
	return m.records, nil
}

func (m *Memory) SaveRecords(r Records) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records = r
	return nil
}

func (m *Memory) LoadAchievements() (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return copyAchievements(m.achievements), nil
}

func (m *Memory) SaveAchievements(a map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.achievements = copyAchievements(a)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func copyAchievements(a map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a))
	for k, v := range a {
		if v {
			out[k] = true
		}
	}
	return out
}
