package game

import "math/rand"

// Movement and sizing constants. Speeds are per 1/60 s frame and scaled by
// dt*60 so motion is frame-rate independent.
const (
	DefaultWorldW = 5000.0
	DefaultWorldH = 5000.0

	FoodCount = 400
	ItemCount = 15
	AICount   = 12

	SegmentDist    = 6.0
	BaseSpeed      = 2.8
	BoostSpeed     = 5.2
	BoostDrain     = 0.15
	MinBoostLength = 8.0
	InitialLength  = 20.0
	GrowPerFood    = 2.0

	HeadRadiusBase = 14.0
	MinRadius      = 5.0
	FoodRadius     = 5.0
	ItemRadius     = 12.0
	EatDistance    = 1.3
	BorderMargin   = 80.0
	SpawnMargin    = 200.0
	CameraSmooth   = 0.08

	MinionCount    = 5
	MinionDuration = 12.0 // seconds
	MinionCooldown = 25.0 // seconds
	ItemDuration   = 8.0  // seconds

	// MaxStep is the hard ceiling on a single frame's dt.
	MaxStep = 0.05

	// SegmentHysteresis is how far the segment count may run ahead of
	// floor(length) before it is trimmed.
	SegmentHysteresis = 5
)

// WormColor is one palette entry: head, body and highlight colours.
type WormColor struct {
	Head  string
	Body  string
	Light string
}

// Palette is the selectable worm colour set.
var Palette = [...]WormColor{
	{"#ff6b9d", "#ff4477", "#ffaac8"},
	{"#c44dff", "#9933dd", "#dd88ff"},
	{"#4d8bff", "#2266dd", "#88bbff"},
	{"#44ddff", "#22aadd", "#88eeff"},
	{"#44dd88", "#22aa66", "#88ffbb"},
	{"#ffdd44", "#ddaa22", "#ffee88"},
	{"#ff8844", "#dd6622", "#ffbb88"},
	{"#ff4455", "#dd2233", "#ff8899"},
}

// ColorAt returns the palette entry for idx, wrapping out-of-range values.
func ColorAt(idx int) WormColor {
	n := len(Palette)
	return Palette[((idx%n)+n)%n]
}

// AINames are assigned to spawned AI worms.
var AINames = []string{
	"Star", "Moon", "Happy", "Lucky", "Coco", "Momo", "Tofu", "Bean",
	"Moth", "Spring", "Day", "Sky", "Cloud", "Ocean", "Leaf", "Petal",
}

// =============================================================================
// ITEMS
// =============================================================================

// ItemKind identifies a power-up.
type ItemKind uint8

const (
	ItemSpeed ItemKind = iota
	ItemShield
	ItemMagnet
	ItemGrowth
	ItemFreeze
	itemKindCount
)

// ItemDef describes a power-up type.
type ItemDef struct {
	ID    string
	Name  string
	Icon  string
	Color string
}

var itemDefs = [itemKindCount]ItemDef{
	ItemSpeed:  {"speed", "Speed", "⚡", "#ffdd44"},
	ItemShield: {"shield", "Shield", "🛡️", "#44ddff"},
	ItemMagnet: {"magnet", "Magnet", "🧲", "#ff4455"},
	ItemGrowth: {"growth", "Growth", "⭐", "#44dd88"},
	ItemFreeze: {"freeze", "Freeze", "❄️", "#aaddff"},
}

// Def returns the static description of the kind.
func (k ItemKind) Def() ItemDef {
	if k >= itemKindCount {
		return ItemDef{ID: "unknown", Color: "#ffffff"}
	}
	return itemDefs[k]
}

func (k ItemKind) String() string { return k.Def().ID }

// =============================================================================
// FOOD TIERS
// =============================================================================

// FoodTier is the weighted food category.
type FoodTier uint8

const (
	TierSmall FoodTier = iota
	TierMedium
	TierLarge
	TierGolden
	tierCount
)

// FoodTierDef holds a tier's weight, size range and rewards.
type FoodTierDef struct {
	ID        string
	Weight    int
	RadiusMin float64
	RadiusMax float64
	Score     int
	Grow      float64
	Golden    bool
}

var foodTiers = [tierCount]FoodTierDef{
	TierSmall:  {"small", 60, 2.5, 4, 5, 1, false},
	TierMedium: {"medium", 25, 4.5, 6.5, 10, 2, false},
	TierLarge:  {"large", 10, 7, 9, 25, 4, false},
	TierGolden: {"golden", 5, 5, 7, 50, 6, true},
}

var foodTierTotalWeight = func() int {
	total := 0
	for _, t := range foodTiers {
		total += t.Weight
	}
	return total
}()

// Def returns the tier's static description.
func (t FoodTier) Def() FoodTierDef {
	if t >= tierCount {
		return foodTiers[TierSmall]
	}
	return foodTiers[t]
}

func (t FoodTier) String() string { return t.Def().ID }

// PickFoodTier draws a tier by cumulative weight.
func PickFoodTier(rng *rand.Rand) FoodTier {
	r := rng.Float64() * float64(foodTierTotalWeight)
	for i, t := range foodTiers {
		r -= float64(t.Weight)
		if r < 0 {
			return FoodTier(i)
		}
	}
	return TierSmall
}

// =============================================================================
// EVOLUTION
// =============================================================================

// EvolutionStage is a score-gated tier modifying turning, eating and size.
type EvolutionStage struct {
	Name           string
	Icon           string
	MinScore       float64
	TurnMod        float64
	EatMod         float64
	HeadScale      float64
	TrailParticles bool
}

// EvolutionStages is ordered by ascending MinScore.
var EvolutionStages = [...]EvolutionStage{
	{"Wormling", "🐛", 0, 1.0, 1.0, 1.0, false},
	{"Worm", "🪱", 10, 1.05, 1.05, 1.06, false},
	{"Big Worm", "🐍", 30, 1.1, 1.1, 1.15, false},
	{"Serpent", "👑", 60, 1.2, 1.2, 1.25, false},
	{"Dragon", "🐉", 120, 1.3, 1.3, 1.35, true},
}

// StageAt returns the stage table entry, clamping out-of-range indices.
func StageAt(i int) EvolutionStage {
	if i < 0 {
		i = 0
	}
	if i >= len(EvolutionStages) {
		i = len(EvolutionStages) - 1
	}
	return EvolutionStages[i]
}

// =============================================================================
// WAVES & MAP OBJECTS
// =============================================================================

const (
	WaveDuration       = 60.0 // seconds
	FoodPerWave        = 30
	AIPerWave          = 2
	AILengthPerWave    = 10
	BossLengthMult     = 3.0
	BossSpeedMult      = 1.15
	WaveBonusMult      = 20
	AIInitialLengthMin = 15
	AIInitialLengthMax = 60

	ObstaclesPerWave   = 3
	MaxObstacles       = 30
	ObstacleRadiusMin  = 20.0
	ObstacleRadiusMax  = 60.0
	ObstacleMargin     = 300.0
	PortalsEveryNWaves = 2
	MaxPortalPairs     = 5
	PortalRadius       = 25.0
	PortalCooldown     = 3.0 // seconds
	PortalMargin       = 400.0

	DangerZoneStartWave = 5
	DangerZoneShrink    = 2.0 // units per second
	DangerZoneMinRadius = 800.0
	DangerZoneDamage    = 0.5 // length per second
	DangerZoneDeathLen  = 5.0
)

// BossWaves are the waves that queue a boss spawn.
var BossWaves = []int{3, 6, 9, 12}

// IsBossWave reports whether wave spawns a boss.
func IsBossWave(wave int) bool {
	for _, w := range BossWaves {
		if w == wave {
			return true
		}
	}
	return false
}

// Difficulty holds the spawn targets for a wave.
type Difficulty struct {
	FoodCount int
	AICount   int
	AILenMin  float64
	AILenMax  float64
}

// DifficultyFor returns spawn targets for the given wave.
func DifficultyFor(wave int) Difficulty {
	return Difficulty{
		FoodCount: FoodCount + wave*FoodPerWave,
		AICount:   AICount + wave*AIPerWave,
		AILenMin:  float64(AIInitialLengthMin + wave*AILengthPerWave),
		AILenMax:  float64(AIInitialLengthMax + wave*AILengthPerWave),
	}
}
