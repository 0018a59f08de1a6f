package game

import (
	"sync/atomic"
	"time"
)

// ResourceLimits caps what a snapshot copies out of the world
type ResourceLimits struct {
	MaxWorms         int // Worms per snapshot
	MaxFoods         int // Food pieces per snapshot
	MaxItems         int // Items per snapshot
	MaxParticles     int // Live particle cap and snapshot particle cap
	MaxSegments      int // Total body segments across all worms
	MaxNotifications int // Queued HUD notifications
}

// DefaultLimits provides production-safe default limits
var DefaultLimits = ResourceLimits{
	MaxWorms:         128,
	MaxFoods:         1200,
	MaxItems:         64,
	MaxParticles:     600,
	MaxSegments:      20000,
	MaxNotifications: 16,
}

const (
	LeaderboardSize = 6
	maxHUDEffects   = 4
)

// WormSnapshot is an immutable copy of a worm. Its body lives in the
// snapshot's segment arena at [SegStart, SegStart+SegCount).
type WormSnapshot struct {
	ID           string    `msgpack:"id"`
	Name         string    `msgpack:"n"`
	Color        WormColor `msgpack:"c"`
	Angle        float64   `msgpack:"a"`
	Length       float64   `msgpack:"l"`
	Radius       float64   `msgpack:"r"`
	Score        int       `msgpack:"s"`
	Kills        int       `msgpack:"k"`
	Stage        int       `msgpack:"st"`
	IsPlayer     bool      `msgpack:"p,omitempty"`
	IsBoss       bool      `msgpack:"b,omitempty"`
	IsMinion     bool      `msgpack:"m,omitempty"`
	Boosting     bool      `msgpack:"bo,omitempty"`
	Shielded     bool      `msgpack:"sh,omitempty"`
	Frozen       bool      `msgpack:"fr,omitempty"`
	SpeedBoosted bool      `msgpack:"sp,omitempty"`
	Magnetized   bool      `msgpack:"mg,omitempty"`
	SegStart     int       `msgpack:"ss"`
	SegCount     int       `msgpack:"sc"`
}

// SegmentSnapshot is one body circle
type SegmentSnapshot struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
	R float64 `msgpack:"r"`
}

type FoodSnapshot struct {
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
	Size   float64 `msgpack:"s"`
	Color  string  `msgpack:"c"`
	Glow   string  `msgpack:"g"`
	Golden bool    `msgpack:"au,omitempty"`
	Phase  float64 `msgpack:"ph"`
}

type ItemSnapshot struct {
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	Kind  string  `msgpack:"k"`
	Icon  string  `msgpack:"i"`
	Color string  `msgpack:"c"`
	Phase float64 `msgpack:"ph"`
}

type ObstacleSnapshot struct {
	X    float64 `msgpack:"x"`
	Y    float64 `msgpack:"y"`
	Size float64 `msgpack:"s"`
}

type PortalSnapshot struct {
	AX    float64 `msgpack:"ax"`
	AY    float64 `msgpack:"ay"`
	BX    float64 `msgpack:"bx"`
	BY    float64 `msgpack:"by"`
	Size  float64 `msgpack:"s"`
	Hue   float64 `msgpack:"h"`
	Phase float64 `msgpack:"ph"`
	Ready bool    `msgpack:"rd"`
}

// ParticleSnapshot is an immutable particle for rendering
type ParticleSnapshot struct {
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	Size  float64 `msgpack:"s"`
	Color string  `msgpack:"c"`
	Alpha float64 `msgpack:"a"`
}

// CameraSnapshot includes the shake offset
type CameraSnapshot struct {
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
	Zoom   float64 `msgpack:"z"`
	ShakeX float64 `msgpack:"sx"`
	ShakeY float64 `msgpack:"sy"`
}

type EffectSnapshot struct {
	Kind      string  `msgpack:"k"`
	Icon      string  `msgpack:"i"`
	Remaining float64 `msgpack:"r"`
}

// HUDSnapshot is the player-facing summary
type HUDSnapshot struct {
	Score          int              `msgpack:"score"`
	Length         int              `msgpack:"len"`
	Kills          int              `msgpack:"kills"`
	Wave           int              `msgpack:"wave"`
	WaveProgress   float64          `msgpack:"wp"`
	Stage          int              `msgpack:"stage"`
	StageName      string           `msgpack:"sn"`
	StageIcon      string           `msgpack:"si"`
	MinionCooldown float64          `msgpack:"mcd"`
	EvolutionFlash float64          `msgpack:"flash"`
	FreezeEffect   float64          `msgpack:"frz"`
	Survival       float64          `msgpack:"surv"`
	BossesAlive    int              `msgpack:"boss"`
	NextSkillScore int              `msgpack:"nss"`
	Effects        []EffectSnapshot `msgpack:"fx"`
	SkillChoices   []string         `msgpack:"skills"`
}

// GameSnapshot is a complete immutable game state for rendering.
// All slices are pre-allocated and capped.
type GameSnapshot struct {
	Sequence  uint64    `msgpack:"seq"`
	Timestamp time.Time `msgpack:"-"`
	Frame     uint64    `msgpack:"f"`
	RunID     string    `msgpack:"run"`
	State     string    `msgpack:"state"`
	Paused    bool      `msgpack:"paused"`
	WorldW    float64   `msgpack:"ww"`
	WorldH    float64   `msgpack:"wh"`

	Worms       []WormSnapshot     `msgpack:"worms"`
	Segments    []SegmentSnapshot  `msgpack:"segs"`
	Foods       []FoodSnapshot     `msgpack:"food"`
	Items       []ItemSnapshot     `msgpack:"items"`
	Obstacles   []ObstacleSnapshot `msgpack:"obs"`
	Portals     []PortalSnapshot   `msgpack:"portals"`
	Particles   []ParticleSnapshot `msgpack:"parts"`
	Leaderboard []LeaderboardEntry `msgpack:"lb"`

	Danger DangerZone     `msgpack:"danger"`
	Camera CameraSnapshot `msgpack:"cam"`
	HUD    HUDSnapshot    `msgpack:"hud"`

	// Aggregate stats
	WormCount  int `msgpack:"wc"`
	AliveCount int `msgpack:"ac"`
	FoodCount  int `msgpack:"fc"`
}

// Body returns the segment slice for w.
func (s *GameSnapshot) Body(w *WormSnapshot) []SegmentSnapshot {
	return s.Segments[w.SegStart : w.SegStart+w.SegCount]
}

// Player returns the player's worm snapshot, if present.
func (s *GameSnapshot) Player() (*WormSnapshot, bool) {
	for i := range s.Worms {
		if s.Worms[i].IsPlayer {
			return &s.Worms[i], true
		}
	}
	return nil, false
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Triple buffering: a published slot is not rewritten for two more ticks, so
// readers must finish with it (or copy it) within that window.
type SnapshotPool struct {
	snapshots [3]GameSnapshot
	limits    ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}

	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Worms:       make([]WormSnapshot, 0, limits.MaxWorms),
			Segments:    make([]SegmentSnapshot, 0, limits.MaxSegments),
			Foods:       make([]FoodSnapshot, 0, limits.MaxFoods),
			Items:       make([]ItemSnapshot, 0, limits.MaxItems),
			Obstacles:   make([]ObstacleSnapshot, 0, MaxObstacles),
			Portals:     make([]PortalSnapshot, 0, MaxPortalPairs),
			Particles:   make([]ParticleSnapshot, 0, limits.MaxParticles),
			Leaderboard: make([]LeaderboardEntry, 0, LeaderboardSize),
			HUD: HUDSnapshot{
				Effects:      make([]EffectSnapshot, 0, maxHUDEffects),
				SkillChoices: make([]string, 0, SkillChoices),
			},
		}
	}
	return pool
}

// AcquireWrite gets the next write slot (producer only, called from game tick)
// Returns a snapshot with reset slices but preserved capacity
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Worms = snap.Worms[:0]
	snap.Segments = snap.Segments[:0]
	snap.Foods = snap.Foods[:0]
	snap.Items = snap.Items[:0]
	snap.Obstacles = snap.Obstacles[:0]
	snap.Portals = snap.Portals[:0]
	snap.Particles = snap.Particles[:0]
	snap.Leaderboard = snap.Leaderboard[:0]
	effects, choices := snap.HUD.Effects[:0], snap.HUD.SkillChoices[:0]
	snap.HUD = HUDSnapshot{Effects: effects, SkillChoices: choices}
	snap.Danger = DangerZone{}
	snap.Camera = CameraSnapshot{}

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks write complete and advances read pointer
// Called after snapshot is fully populated
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only).
// Before the first publish it returns an empty snapshot.
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() ResourceLimits {
	return p.limits
}
