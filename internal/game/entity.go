package game

import (
	"math"
	"math/rand"
	"time"
)

// Entity is the common view the collision and AI code takes of anything
// that occupies space in the world.
type Entity interface {
	Pos() Vec2
	Radius() float64
	Alive() bool
	Serial() uint64
}

// Handle is a non-owning reference to an entity. It resolves only while the
// entity is alive and still carries the serial it had when the handle was
// taken, so a pooled object that was recycled never satisfies a stale handle.
type Handle struct {
	ent    Entity
	serial uint64
}

// HandleOf takes a handle to e. A nil entity yields the zero handle.
func HandleOf(e Entity) Handle {
	if e == nil {
		return Handle{}
	}
	return Handle{ent: e, serial: e.Serial()}
}

// Get returns the entity if the handle still resolves.
func (h Handle) Get() (Entity, bool) {
	if h.ent == nil || !h.ent.Alive() || h.ent.Serial() != h.serial {
		return nil, false
	}
	return h.ent, true
}

// Valid reports whether the handle still resolves.
func (h Handle) Valid() bool {
	_, ok := h.Get()
	return ok
}

// Worm returns the referenced worm, or nil if the handle is stale or does
// not point at a worm.
func (h Handle) Worm() *Worm {
	e, ok := h.Get()
	if !ok {
		return nil
	}
	w, _ := e.(*Worm)
	return w
}

// =============================================================================
// FOOD
// =============================================================================

// Food is a pooled edible pellet.
type Food struct {
	X, Y   float64
	Size   float64
	Tier   FoodTier
	Color  string
	Glow   string
	Phase  float64
	alive  bool
	serial uint64
}

func (f *Food) Pos() Vec2       { return Vec2{f.X, f.Y} }
func (f *Food) Radius() float64 { return f.Size }
func (f *Food) Alive() bool     { return f.alive }
func (f *Food) Serial() uint64  { return f.serial }

// Kill marks the food eaten. It is released to the pool at compaction.
func (f *Food) Kill() { f.alive = false }

// reset scrubs a food coming back out of the pool.
func (f *Food) reset() { *f = Food{} }

// place readies a food for play. A nil pos picks a random spot.
func (f *Food) place(rng *rand.Rand, serial uint64, worldW, worldH float64, pos *Vec2, tier FoodTier) {
	def := tier.Def()
	f.Tier = tier
	if pos != nil {
		f.X, f.Y = pos.X, pos.Y
	} else {
		f.X = randRange(rng, 100, worldW-100)
		f.Y = randRange(rng, 100, worldH-100)
	}
	f.Size = randRange(rng, def.RadiusMin, def.RadiusMax)
	f.Phase = rng.Float64() * math.Pi * 2
	f.alive = true
	f.serial = serial

	if def.Golden {
		f.Color = hslHex(45, 0.9, 0.65)
		f.Glow = hslHex(45, 0.95, 0.75)
	} else {
		hue := randRange(rng, 0, 360)
		f.Color = hslHex(hue, 0.8, 0.65)
		f.Glow = hslHex(hue, 0.8, 0.75)
	}
}

// =============================================================================
// ITEMS & MAP OBJECTS
// =============================================================================

// Item is a collectable power-up. Its effect is tracked on the worm that
// picks it up.
type Item struct {
	X, Y      float64
	Kind      ItemKind
	Phase     float64
	SpawnedAt time.Time
	alive     bool
	serial    uint64
}

func (it *Item) Pos() Vec2       { return Vec2{it.X, it.Y} }
func (it *Item) Radius() float64 { return ItemRadius }
func (it *Item) Alive() bool     { return it.alive }
func (it *Item) Serial() uint64  { return it.serial }

// Obstacle is a static rock. It is never removed during a run.
type Obstacle struct {
	X, Y   float64
	Size   float64
	serial uint64
}

func (o *Obstacle) Pos() Vec2       { return Vec2{o.X, o.Y} }
func (o *Obstacle) Radius() float64 { return o.Size }
func (o *Obstacle) Alive() bool     { return true }
func (o *Obstacle) Serial() uint64  { return o.serial }

// PortalEnd is one side of a portal pair. Cooldown is in seconds.
type PortalEnd struct {
	X, Y     float64
	Cooldown float64
}

// PortalPair links two endpoints; entering one exits the other.
type PortalPair struct {
	A, B   PortalEnd
	Size   float64
	Hue    float64
	Phase  float64
	serial uint64
}

func (p *PortalPair) update(dt float64) {
	p.Phase += dt * 3
	if p.A.Cooldown > 0 {
		p.A.Cooldown = math.Max(0, p.A.Cooldown-dt)
	}
	if p.B.Cooldown > 0 {
		p.B.Cooldown = math.Max(0, p.B.Cooldown-dt)
	}
}

// DangerZone is the shrinking safe circle centred on the world.
type DangerZone struct {
	Active bool
	Radius float64
}

// =============================================================================
// PARTICLES
// =============================================================================

// Particle is a pooled cosmetic spark.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Color  string
	Size   float64
	Life   float64
	Decay  float64
}

func (p *Particle) reset() { *p = Particle{} }

// launch fires a particle from (x, y) with a random drift.
func (p *Particle) launch(rng *rand.Rand, x, y float64, color string, size float64) {
	p.X, p.Y = x, y
	p.VX = randRange(rng, -3, 3)
	p.VY = randRange(rng, -3, 3)
	p.Color = color
	p.Size = size
	p.Life = 1
	p.Decay = randRange(rng, 0.02, 0.05)
}

// update advances the particle and reports whether it is still alive.
func (p *Particle) update(dt float64) bool {
	p.X += p.VX * dt * 60
	p.Y += p.VY * dt * 60
	p.VX *= 0.96
	p.VY *= 0.96
	p.Life -= p.Decay * dt * 60
	return p.Life > 0
}
