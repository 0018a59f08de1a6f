package game

import (
	"log"
	"sync"

	"wormarena/internal/store"
)

// AchievementDef is one unlockable. Check is evaluated against a read-only
// view of the run.
type AchievementDef struct {
	ID    string                  `json:"id"`
	Name  string                  `json:"name"`
	Icon  string                  `json:"icon"`
	Desc  string                  `json:"desc"`
	Check func(ProgressView) bool `json:"-"`
}

// AchievementDefs is the full table, in display order.
var AchievementDefs = []AchievementDef{
	{ID: "firstKill", Icon: "🗡️", Name: "First Hunt", Desc: "Defeat your first enemy",
		Check: func(v ProgressView) bool { return v.KillCount >= 1 }},
	{ID: "kill10", Icon: "⚔️", Name: "Hunter", Desc: "10 kills in one run",
		Check: func(v ProgressView) bool { return v.KillCount >= 10 }},
	{ID: "length100", Icon: "📏", Name: "Long Body", Desc: "Reach length 100",
		Check: func(v ProgressView) bool { return v.HasPlayer && v.PlayerLength >= 100 }},
	{ID: "length300", Icon: "🐲", Name: "Worm Chief", Desc: "Reach length 300",
		Check: func(v ProgressView) bool { return v.HasPlayer && v.PlayerLength >= 300 }},
	{ID: "survive3m", Icon: "⏱️", Name: "Three Minutes", Desc: "Survive for 3 minutes",
		Check: func(v ProgressView) bool { return v.SurvivalTime >= 180 }},
	{ID: "survive5m", Icon: "🕐", Name: "Five Minutes", Desc: "Survive for 5 minutes",
		Check: func(v ProgressView) bool { return v.SurvivalTime >= 300 }},
	{ID: "score1000", Icon: "⭐", Name: "Grand", Desc: "Reach 1000 points",
		Check: func(v ProgressView) bool { return v.HasPlayer && v.PlayerScore >= 1000 }},
	{ID: "score5000", Icon: "🌟", Name: "High Roller", Desc: "Reach 5000 points",
		Check: func(v ProgressView) bool { return v.HasPlayer && v.PlayerScore >= 5000 }},
	{ID: "evolveDragon", Icon: "🐉", Name: "Dragonborn", Desc: "Evolve into a dragon",
		Check: func(v ProgressView) bool { return v.HasPlayer && v.PlayerStage >= 4 }},
	{ID: "wave5", Icon: "🌊", Name: "Wave 5", Desc: "Reach wave 5",
		Check: func(v ProgressView) bool { return v.Wave >= 5 }},
	{ID: "bossKill", Icon: "💀", Name: "Boss Slayer", Desc: "Defeat a boss",
		Check: func(v ProgressView) bool { return v.BossKilled }},
	{ID: "skillMaster", Icon: "🎓", Name: "Skill Master", Desc: "Pick 5 or more skills",
		Check: func(v ProgressView) bool { return v.SkillsSelected >= 5 }},
}

// AchievementBook holds the unlocked set and persists it on every unlock.
type AchievementBook struct {
	mu       sync.RWMutex
	store    store.Store
	unlocked map[string]bool
}

func NewAchievementBook(s store.Store) *AchievementBook {
	if s == nil {
		s = store.NewMemory()
	}
	return &AchievementBook{store: s, unlocked: make(map[string]bool)}
}

// Load replaces the unlocked set with the stored one.
func (ab *AchievementBook) Load() {
	a, err := ab.store.LoadAchievements()
	if err != nil {
		log.Printf("⚠️ Load achievements: %v", err)
		a = nil
	}
	if a == nil {
		a = make(map[string]bool)
	}
	ab.mu.Lock()
	ab.unlocked = a
	ab.mu.Unlock()
}

// Check evaluates every locked achievement and returns the ones that
// unlocked now.
func (ab *AchievementBook) Check(v ProgressView) []AchievementDef {
	if !v.HasPlayer {
		return nil
	}
	ab.mu.Lock()
	var fresh []AchievementDef
	for _, def := range AchievementDefs {
		if ab.unlocked[def.ID] || !def.Check(v) {
			continue
		}
		ab.unlocked[def.ID] = true
		fresh = append(fresh, def)
	}
	var snapshot map[string]bool
	if len(fresh) > 0 {
		snapshot = make(map[string]bool, len(ab.unlocked))
		for k, ok := range ab.unlocked {
			snapshot[k] = ok
		}
	}
	ab.mu.Unlock()

	if snapshot != nil {
		if err := ab.store.SaveAchievements(snapshot); err != nil {
			log.Printf("⚠️ Save achievements: %v", err)
		}
	}
	return fresh
}

// Unlocked reports whether id has been unlocked.
func (ab *AchievementBook) Unlocked(id string) bool {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.unlocked[id]
}

// UnlockedCount is the number of unlocked achievements.
func (ab *AchievementBook) UnlockedCount() int {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	n := 0
	for _, ok := range ab.unlocked {
		if ok {
			n++
		}
	}
	return n
}
