package game

import "math"

// AI perception ranges.
const (
	aiFoodRange     = 300.0
	aiItemRange     = 400.0
	aiPreyRange     = 250.0
	aiThreatRange   = 200.0
	aiObstacleAvoid = 80.0
	aiZoneEdge      = 100.0
	aiBoostMinLen   = 15.0
	aiChaseBoost    = 100.0

	bossTargetRange = 500.0
	bossFoodRange   = 400.0
	bossBoostRange  = 100.0
	bossBoostMinLen = 30.0

	minionFoodRange  = 250.0
	minionPreyRange  = 200.0
	minionBoostRange = 80.0
	minionLeash      = 200.0
)

// nearestFood returns the closest live food strictly within r of pos.
func (wd *World) nearestFood(pos Vec2, r float64) *Food {
	var best *Food
	bestD := r
	for _, id := range wd.foodGrid.Query(pos.X, pos.Y, r) {
		if int(id) >= len(wd.foods) {
			continue
		}
		f := wd.foods[id]
		if !f.alive {
			continue
		}
		if d := pos.Dist(f.Pos()); d < bestD {
			best, bestD = f, d
		}
	}
	return best
}

func (wd *World) updateAI(w *Worm, dt float64) {
	if w.IsPlayer || !w.alive {
		return
	}
	switch {
	case w.IsMinion:
		wd.updateMinionAI(w)
	case w.IsBoss:
		wd.updateBossAI(w, dt)
	default:
		wd.updateWormAI(w, dt)
	}
}

func (wd *World) updateWormAI(w *Worm, dt float64) {
	w.aiTimer -= dt
	decided := false
	head := w.Head()

	if w.aiTimer <= 0 {
		decided = true
		w.aiTimer = randRange(wd.rng, 0.5, 2)
		w.aiState = AIWander
		w.aiTarget = Handle{}
		w.aiToCenter = false

		for _, o := range wd.obstacles {
			if head.Dist(o.Pos()) < o.Size+aiObstacleAvoid {
				w.aiState = AIFlee
				w.aiTarget = HandleOf(o)
				break
			}
		}

		if wd.danger.Active && head.Dist(wd.Center()) > wd.danger.Radius-aiZoneEdge {
			w.aiState = AIFlee
			w.aiTarget = Handle{}
			w.aiToCenter = true
		}

		if w.aiState == AIWander {
			wd.decide(w, head)
		}
	}

	switch w.aiState {
	case AIFlee:
		if w.aiToCenter {
			w.TargetAngle = head.AngleTo(wd.Center())
			w.Boosting = false
			return
		}
		e, ok := w.aiTarget.Get()
		if !ok {
			w.aiState = AIWander
			w.Boosting = false
			return
		}
		w.TargetAngle = e.Pos().AngleTo(head)
		_, isWorm := e.(*Worm)
		w.Boosting = isWorm && w.Length > aiBoostMinLen
	case AIChase:
		prey := w.aiTarget.Worm()
		if prey == nil {
			w.aiState = AIWander
			w.Boosting = false
			return
		}
		w.TargetAngle = head.AngleTo(prey.Head())
		w.Boosting = head.Dist(prey.Head()) < aiChaseBoost && w.Length > aiBoostMinLen
	case AIFood, AIItem:
		e, ok := w.aiTarget.Get()
		if !ok {
			w.aiState = AIWander
			w.Boosting = false
			return
		}
		w.TargetAngle = head.AngleTo(e.Pos())
		w.Boosting = false
	default:
		if decided {
			w.TargetAngle = w.Angle + randRange(wd.rng, -0.8, 0.8)
		}
		w.Boosting = false
	}
}

// decide runs the threat/prey/item/food priority chain.
func (wd *World) decide(w *Worm, head Vec2) {
	var threat, prey *Worm
	threatD, preyD := aiThreatRange, aiPreyRange
	for _, o := range wd.worms {
		if o == w || !o.alive {
			continue
		}
		d := head.Dist(o.Head())
		if o.Length > w.Length*1.3 && d < threatD {
			threat, threatD = o, d
		}
		if !o.IsMinion && o.Length < w.Length*0.7 && d < preyD {
			prey, preyD = o, d
		}
	}

	var item *Item
	itemD := aiItemRange
	for _, it := range wd.items {
		if !it.alive {
			continue
		}
		if d := head.Dist(it.Pos()); d < itemD {
			item, itemD = it, d
		}
	}

	switch {
	case threat != nil:
		w.aiState = AIFlee
		w.aiTarget = HandleOf(threat)
	case prey != nil && wd.rng.Float64() > 0.3:
		w.aiState = AIChase
		w.aiTarget = HandleOf(prey)
	case item != nil && wd.rng.Float64() > 0.4:
		w.aiState = AIItem
		w.aiTarget = HandleOf(item)
	default:
		if f := wd.nearestFood(head, aiFoodRange); f != nil {
			w.aiState = AIFood
			w.aiTarget = HandleOf(f)
		}
	}
}

func (wd *World) updateBossAI(w *Worm, dt float64) {
	w.aiTimer -= dt
	head := w.Head()

	if w.aiTimer <= 0 || !w.aiTarget.Valid() {
		w.aiTimer = randRange(wd.rng, 0.3, 1)
		w.aiState = AIWander
		w.aiTarget = Handle{}

		var target *Worm
		targetD := bossTargetRange
		for _, o := range wd.worms {
			if o == w || !o.alive || o.IsMinion || o.IsBoss {
				continue
			}
			d := head.Dist(o.Head())
			if o.IsPlayer && d < bossTargetRange {
				target = o
				break
			}
			if d < targetD {
				target, targetD = o, d
			}
		}

		if target != nil {
			w.aiState = AIChase
			w.aiTarget = HandleOf(target)
		} else if f := wd.nearestFood(head, bossFoodRange); f != nil {
			w.aiState = AIFood
			w.aiTarget = HandleOf(f)
		}
	}

	switch w.aiState {
	case AIChase:
		prey := w.aiTarget.Worm()
		if prey == nil {
			w.aiState = AIWander
			return
		}
		w.TargetAngle = head.AngleTo(prey.Head())
		w.Boosting = head.Dist(prey.Head()) < bossBoostRange && w.Length > bossBoostMinLen
	case AIFood:
		e, ok := w.aiTarget.Get()
		if !ok {
			w.aiState = AIWander
			return
		}
		w.TargetAngle = head.AngleTo(e.Pos())
		w.Boosting = false
	default:
		w.TargetAngle = w.Angle + randRange(wd.rng, -0.5, 0.5)
		w.Boosting = false
	}
}

// updateMinionAI re-evaluates every frame: weaker prey, then food, then
// the owner.
func (wd *World) updateMinionAI(w *Worm) {
	owner := w.Owner()
	if owner == nil {
		w.alive = false
		return
	}
	head := w.Head()

	var prey *Worm
	preyD := minionPreyRange
	for _, o := range wd.worms {
		if o == w || o == owner || !o.alive || o.IsMinion {
			continue
		}
		if o.Length >= w.Length*0.8 {
			continue
		}
		if d := head.Dist(o.Head()); d < preyD {
			prey, preyD = o, d
		}
	}

	if prey != nil {
		w.aiState = AIChase
		w.aiTarget = HandleOf(prey)
		w.TargetAngle = head.AngleTo(prey.Head())
		w.Boosting = preyD < minionBoostRange
		return
	}
	w.Boosting = false

	if f := wd.nearestFood(head, minionFoodRange); f != nil {
		w.aiState = AIFood
		w.aiTarget = HandleOf(f)
		w.TargetAngle = head.AngleTo(f.Pos())
		return
	}

	w.aiState = AIWander
	w.aiTarget = Handle{}
	if head.Dist(owner.Head()) > minionLeash {
		w.TargetAngle = head.AngleTo(owner.Head())
	} else {
		w.TargetAngle = math.Mod(w.TargetAngle+randRange(wd.rng, -0.1, 0.1), 2*math.Pi)
	}
}
