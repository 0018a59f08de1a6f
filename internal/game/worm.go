package game

import (
	"math"
	"math/rand"
)

// AIState is the decision state of a computer-controlled worm.
type AIState uint8

const (
	AIWander AIState = iota
	AIChase
	AIFlee
	AIFood
	AIItem
)

func (s AIState) String() string {
	switch s {
	case AIChase:
		return "chase"
	case AIFlee:
		return "flee"
	case AIFood:
		return "food"
	case AIItem:
		return "item"
	default:
		return "wander"
	}
}

// Worm is a player, AI, minion or boss worm. Segments[0] is the head.
type Worm struct {
	ID         string
	Name       string
	ColorIndex int
	Color      WormColor

	Segments    []Vec2
	Length      float64
	Angle       float64
	TargetAngle float64
	Speed       float64
	SpeedScale  float64
	Boosting    bool
	Score       int
	Kills       int

	IsPlayer bool
	IsMinion bool
	IsBoss   bool

	Shielded     bool
	Magnetized   bool
	SpeedBoosted bool
	Frozen       bool

	// Countdowns in seconds.
	FrozenTimer float64
	ShieldTimer float64
	MagnetTimer float64
	SpeedTimer  float64
	MinionTimer float64

	EvolutionStage int
	Wobble         float64

	owner      Handle
	aiState    AIState
	aiTimer    float64
	aiTarget   Handle
	aiToCenter bool
	flameTimer float64

	alive  bool
	serial uint64
}

func newWorm(rng *rand.Rand, serial uint64, x, y float64, colorIdx int, name string) *Worm {
	w := &Worm{
		Name:       name,
		ColorIndex: colorIdx,
		Color:      ColorAt(colorIdx),
		Length:     InitialLength,
		Angle:      rng.Float64() * math.Pi * 2,
		Speed:      BaseSpeed,
		SpeedScale: 1,
		Wobble:     rng.Float64() * 100,
		alive:      true,
		serial:     serial,
	}
	w.TargetAngle = w.Angle
	w.layOut(x, y)
	return w
}

// layOut places floor(Length) segments trailing back from (x, y).
func (w *Worm) layOut(x, y float64) {
	n := int(w.Length)
	if n < 1 {
		n = 1
	}
	cos, sin := math.Cos(w.Angle), math.Sin(w.Angle)
	w.Segments = w.Segments[:0]
	for i := 0; i < n; i++ {
		d := float64(i) * SegmentDist
		w.Segments = append(w.Segments, Vec2{x - d*cos, y - d*sin})
	}
}

func (w *Worm) Pos() Vec2     { return w.Segments[0] }
func (w *Worm) Alive() bool   { return w.alive }
func (w *Worm) Serial() uint64 { return w.serial }

// Head returns the head position.
func (w *Worm) Head() Vec2 { return w.Segments[0] }

// Owner returns the owning worm of a minion, or nil once the owner is gone.
func (w *Worm) Owner() *Worm { return w.owner.Worm() }

// AIState returns the current decision state.
func (w *Worm) AIState() AIState { return w.aiState }

// Radius is derived from length and evolution stage only.
func (w *Worm) Radius() float64 {
	return (HeadRadiusBase + math.Min(w.Length*0.12, 20)) * StageAt(w.EvolutionStage).HeadScale
}

// BodyRadius returns the tapered radius of segment i.
func (w *Worm) BodyRadius(i int) float64 {
	r := w.Radius()
	t := float64(i) / float64(len(w.Segments))
	if t < 0.08 {
		return r * lerp(0.85, 1.0, t/0.08)
	}
	if t > 0.65 {
		tt := (t - 0.65) / 0.35
		return r * lerp(0.95, 0.25, tt*tt)
	}
	breath := math.Sin(w.Wobble*10+float64(i)*0.5) * 0.02
	return r * (0.95 + breath)
}

// isMinionOf reports whether w is a minion owned by other.
func (w *Worm) isMinionOf(other *Worm) bool {
	return w.IsMinion && w.owner.ent == Entity(other) && w.owner.Valid()
}

// allied reports whether two worms must never fight: a worm and its own
// minions, or two minions of the same owner.
func allied(a, b *Worm) bool {
	if a.isMinionOf(b) || b.isMinionOf(a) {
		return true
	}
	if a.IsMinion && b.IsMinion {
		ao, bo := a.Owner(), b.Owner()
		return ao != nil && ao == bo
	}
	return false
}

// playerSide reports whether the worm is the player or one of its minions.
func (w *Worm) playerSide() bool {
	if w.IsPlayer {
		return true
	}
	if w.IsMinion {
		if o := w.Owner(); o != nil && o.IsPlayer {
			return true
		}
	}
	return false
}

// advanceTimers runs the countdowns that do not depend on movement.
func (w *Worm) advanceTimers(dt float64) {
	w.Wobble += dt * 3

	if w.FrozenTimer > 0 {
		w.FrozenTimer = math.Max(0, w.FrozenTimer-dt)
		w.Frozen = w.FrozenTimer > 0
	}
	if w.SpeedTimer > 0 {
		w.SpeedTimer = math.Max(0, w.SpeedTimer-dt)
		w.SpeedBoosted = w.SpeedTimer > 0
	}
	if w.ShieldTimer > 0 {
		w.ShieldTimer = math.Max(0, w.ShieldTimer-dt)
		w.Shielded = w.ShieldTimer > 0
	}
	if w.MagnetTimer > 0 {
		w.MagnetTimer = math.Max(0, w.MagnetTimer-dt)
		w.Magnetized = w.MagnetTimer > 0
	}
}

// update steps locomotion for one frame. Skill modifiers only apply to the
// player.
func (w *Worm) update(dt float64, wd *World) {
	if !w.alive {
		return
	}

	w.advanceTimers(dt)

	var mods Modifiers
	if w.IsPlayer {
		mods = wd.skills.Mods
	}
	speedSkill := 1 + mods.Get(ModSpeedMult)
	drainSkill := math.Max(0.1, 1+mods.Get(ModBoostDrainMult))

	speedMult := 1.0
	if w.Frozen {
		speedMult = 0.4
	} else if w.SpeedBoosted {
		speedMult = 1.4
	}
	base := BaseSpeed
	if w.Boosting {
		base = BoostSpeed
	}
	w.Speed = base * speedMult * speedSkill * w.SpeedScale

	if w.Boosting && w.Length > MinBoostLength {
		sizeMult := 1 + math.Max(0, w.Length-100)*0.002
		w.Length -= BoostDrain * drainSkill * sizeMult * dt
		if w.Length < MinBoostLength {
			w.Length = MinBoostLength
			w.Boosting = false
		}
	}

	if regen := mods.Get(ModRegenPerSec); regen > 0 {
		w.Length += regen * dt
	}

	turn := 0.1
	if w.IsMinion {
		turn = 0.15
	}
	turn *= StageAt(w.EvolutionStage).TurnMod
	w.Angle += angleDiff(w.Angle, w.TargetAngle) * turn

	step := w.Speed * dt * 60
	bm := BorderMargin
	head := &w.Segments[0]
	head.X = clamp(head.X+math.Cos(w.Angle)*step, bm, wd.W-bm)
	head.Y = clamp(head.Y+math.Sin(w.Angle)*step, bm, wd.H-bm)

	w.follow()
	w.resize()

	h := w.Segments[0]
	if h.X <= bm || h.X >= wd.W-bm || h.Y <= bm || h.Y >= wd.H-bm {
		w.TargetAngle = h.AngleTo(wd.Center())
	}

	if w.IsMinion {
		w.MinionTimer -= dt
		if w.MinionTimer <= 0 || !w.owner.Valid() {
			w.alive = false
			return
		}
	}

	if StageAt(w.EvolutionStage).TrailParticles && len(w.Segments) > 5 {
		w.flameTimer += dt
		if w.flameTimer > 0.1 && len(wd.particles) < FlameParticleCap {
			w.flameTimer = 0
			seg := w.Segments[4]
			c := flameColors[wd.rng.Intn(len(flameColors))]
			wd.emitParticle(seg.X+(wd.rng.Float64()-0.5)*10, seg.Y+(wd.rng.Float64()-0.5)*10, c, 3+wd.rng.Float64()*4)
		}
	}
}

// FlameParticleCap gates trail particles on the live particle count.
const FlameParticleCap = 200

var flameColors = []string{"#ff4400", "#ff6600", "#ff8800", "#ffaa00", "#ffcc00"}

// follow drags every segment to within SegmentDist of its predecessor in a
// single pass.
func (w *Worm) follow() {
	segs := w.Segments
	for i := 1; i < len(segs); i++ {
		prev, seg := segs[i-1], &segs[i]
		dx, dy := prev.X-seg.X, prev.Y-seg.Y
		d := math.Hypot(dx, dy)
		if d > SegmentDist {
			a := math.Atan2(dy, dx)
			seg.X = prev.X - math.Cos(a)*SegmentDist
			seg.Y = prev.Y - math.Sin(a)*SegmentDist
		}
	}
}

// resize grows the body to floor(Length) and trims only past the
// hysteresis band.
func (w *Worm) resize() {
	target := int(math.Floor(w.Length))
	if target < 1 {
		target = 1
	}
	for len(w.Segments) < target {
		w.Segments = append(w.Segments, w.Segments[len(w.Segments)-1])
	}
	if len(w.Segments) > target+SegmentHysteresis {
		w.Segments = w.Segments[:target+SegmentHysteresis]
	}
}
