package game

import "math/rand"

// Modifier keys. Numeric effects are summed value*level; flags are stored
// as 1.
const (
	ModSpeedMult        = "speedMult"
	ModBoostDrainMult   = "boostDrainMult"
	ModEatRadiusMult    = "eatRadiusMult"
	ModMinionCountBonus = "minionCountBonus"
	ModMinionCdMult     = "minionCdMult"
	ModAutoMagnet       = "autoMagnet"
	ModRegenPerSec      = "regenPerSec"
	ModRevive           = "revive"
	ModScoreMult        = "scoreMult"
	ModFreezeAura       = "freezeAura"
)

const (
	FirstSkillScore = 500
	SkillScoreStep  = 500
	SkillChoices    = 3
)

// Modifiers is the flat table derived from the selected skills.
type Modifiers map[string]float64

// Get returns the modifier value, zero when absent. Safe on a nil map.
func (m Modifiers) Get(key string) float64 { return m[key] }

// Has reports whether a flag or non-zero modifier is set.
func (m Modifiers) Has(key string) bool { return m[key] != 0 }

// SkillEffect is one contribution of a skill to the modifier table.
type SkillEffect struct {
	Key   string
	Value float64
	Flag  bool
}

// SkillDef describes a selectable skill.
type SkillDef struct {
	ID       string
	Name     string
	Icon     string
	Desc     string
	MaxLevel int
	Effect   SkillEffect
}

// SkillDefs is the full skill table.
var SkillDefs = []SkillDef{
	{"speedUp", "Cruise Boost", "💨", "Base speed +10%", 3, SkillEffect{Key: ModSpeedMult, Value: 0.1}},
	{"fastMove", "Lean Boost", "⚡", "Boost drain -20%", 3, SkillEffect{Key: ModBoostDrainMult, Value: -0.2}},
	{"wideEat", "Wide Mouth", "👄", "Eat range +15%", 3, SkillEffect{Key: ModEatRadiusMult, Value: 0.15}},
	{"moreMinions", "Reinforcements", "👥", "Summon +2 minions", 2, SkillEffect{Key: ModMinionCountBonus, Value: 2}},
	{"fastSummon", "Quick Summon", "🔄", "Summon cooldown -25%", 2, SkillEffect{Key: ModMinionCdMult, Value: -0.25}},
	{"autoMagnet", "Auto Magnet", "🧲", "Pull nearby food", 1, SkillEffect{Key: ModAutoMagnet, Flag: true}},
	{"regen", "Regeneration", "💚", "Regain 0.5 length per second", 3, SkillEffect{Key: ModRegenPerSec, Value: 0.5}},
	{"shield", "Second Life", "🛡️", "Revive once at 50% length", 1, SkillEffect{Key: ModRevive, Flag: true}},
	{"scoreBoost", "Score Boost", "💰", "Score gain +20%", 3, SkillEffect{Key: ModScoreMult, Value: 0.2}},
	{"freezeAura", "Frost Aura", "❄️", "Slow nearby enemies", 2, SkillEffect{Key: ModFreezeAura, Value: 0.1}},
}

// FindSkill looks a skill up by id.
func FindSkill(id string) (SkillDef, bool) {
	for _, d := range SkillDefs {
		if d.ID == id {
			return d, true
		}
	}
	return SkillDef{}, false
}

// SkillLevel is a selected skill and how many times it was taken.
type SkillLevel struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// SkillState is the player's progression through the skill table.
type SkillState struct {
	Selected  []SkillLevel
	Mods      Modifiers
	NextScore int
	Choices   []SkillDef // non-nil while a choice is pending
	revived   bool
}

func newSkillState() SkillState {
	return SkillState{Mods: Modifiers{}, NextScore: FirstSkillScore}
}

func (s *SkillState) level(id string) int {
	for _, sl := range s.Selected {
		if sl.ID == id {
			return sl.Level
		}
	}
	return 0
}

// Pending reports whether a skill choice is waiting to be resolved.
func (s *SkillState) Pending() bool { return s.Choices != nil }

// roll picks up to three random skills that are not yet maxed.
func (s *SkillState) roll(rng *rand.Rand) []SkillDef {
	available := make([]SkillDef, 0, len(SkillDefs))
	for _, d := range SkillDefs {
		if s.level(d.ID) < d.MaxLevel {
			available = append(available, d)
		}
	}
	if len(available) == 0 {
		return nil
	}
	rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	if len(available) > SkillChoices {
		available = available[:SkillChoices]
	}
	return available
}

// apply takes a skill (or levels it up) and recomputes the modifiers.
// It returns false for unknown or maxed skills.
func (s *SkillState) apply(id string) bool {
	def, ok := FindSkill(id)
	if !ok {
		return false
	}
	found := false
	for i := range s.Selected {
		if s.Selected[i].ID == id {
			if s.Selected[i].Level >= def.MaxLevel {
				return false
			}
			s.Selected[i].Level++
			found = true
			break
		}
	}
	if !found {
		s.Selected = append(s.Selected, SkillLevel{ID: id, Level: 1})
	}
	s.recompute()
	return true
}

func (s *SkillState) recompute() {
	mods := Modifiers{}
	for _, sl := range s.Selected {
		def, ok := FindSkill(sl.ID)
		if !ok {
			continue
		}
		if def.Effect.Flag {
			mods[def.Effect.Key] = 1
			continue
		}
		mods[def.Effect.Key] += def.Effect.Value * float64(sl.Level)
	}
	s.Mods = mods
}

// trigger offers a new set of choices once score reaches the threshold.
// A threshold with nothing left to offer is skipped.
func (s *SkillState) trigger(score int, rng *rand.Rand) bool {
	if s.Choices != nil || score < s.NextScore {
		return false
	}
	s.NextScore += SkillScoreStep
	choices := s.roll(rng)
	if len(choices) == 0 {
		return false
	}
	s.Choices = choices
	return true
}
