package game

import (
	"fmt"
	"math"
)

const (
	magnetItemRange  = 200.0
	magnetSkillRange = 120.0
	magnetPull       = 4.0
	freezeAuraRange  = 150.0
	freezeAuraTime   = 0.5
	freezeItemRange  = 250.0
	headHitFactor    = 0.8
	bodyHitFactor    = 0.6
	bodyQueryPad     = 40.0
	obstacleBoostHit = 2.0
	reviveShieldTime = 3.0
)

// checkCollisions resolves eating, item pickup and worm-vs-worm combat.
// The spatial hashes must already hold this frame's food and segments.
func (wd *World) checkCollisions() {
	for _, w := range wd.worms {
		if !w.alive {
			continue
		}
		wd.feed(w)
	}

	for _, w := range wd.worms {
		if !w.alive {
			continue
		}
		wd.headToHead(w)
		if !w.alive {
			continue
		}
		wd.headToBody(w)
	}
}

// feed handles magnet drift, the freeze aura, food and item pickup for w.
func (wd *World) feed(w *Worm) {
	var mods Modifiers
	if w.IsPlayer {
		mods = wd.skills.Mods
	}
	scoreMult := 1 + mods.Get(ModScoreMult)
	eatR := w.Radius() * EatDistance * (1 + mods.Get(ModEatRadiusMult))
	head := w.Head()

	if w.Magnetized || mods.Has(ModAutoMagnet) {
		reach := magnetSkillRange
		if w.Magnetized {
			reach = magnetItemRange
		}
		for _, id := range wd.foodGrid.Query(head.X, head.Y, reach) {
			f := wd.foods[id]
			if !f.alive {
				continue
			}
			if head.Dist(f.Pos()) < reach {
				a := f.Pos().AngleTo(head)
				f.X += math.Cos(a) * magnetPull
				f.Y += math.Sin(a) * magnetPull
			}
		}
	}

	if mods.Has(ModFreezeAura) {
		for _, o := range wd.worms {
			if o == w || !o.alive || o.isMinionOf(w) {
				continue
			}
			if head.Dist(o.Head()) < freezeAuraRange && !o.Frozen {
				o.FrozenTimer = math.Max(o.FrozenTimer, freezeAuraTime)
				o.Frozen = true
			}
		}
	}

	// Only the player grows faster with evolution.
	eatMod := 1.0
	if w.IsPlayer {
		eatMod = StageAt(w.EvolutionStage).EatMod
	}
	for _, id := range wd.foodGrid.Query(head.X, head.Y, eatR) {
		f := wd.foods[id]
		if !f.alive || head.Dist(f.Pos()) >= eatR {
			continue
		}
		f.Kill()
		def := f.Tier.Def()
		w.Length += def.Grow * eatMod
		gained := int(math.Floor(float64(def.Score) * scoreMult))
		w.Score += gained

		size := 3.0
		if def.Golden {
			size = 5
		} else if def.Grow > 2 {
			size = 4
		}
		wd.emitParticle(f.X, f.Y, f.Color, size)
		wd.emitParticle(f.X, f.Y, f.Color, size-1)

		if w.IsPlayer {
			wd.audio.Play(CueEat)
			wd.notifier.Absorb(f.Pos(), head, f.Color)
			if def.Score >= 25 {
				wd.notifier.FloatText(f.Pos(), fmt.Sprintf("+%d", gained), f.Glow)
			}
		}
	}

	for _, it := range wd.items {
		if !it.alive || head.Dist(it.Pos()) >= eatR+ItemRadius {
			continue
		}
		it.alive = false
		wd.applyItem(w, it.Kind)
		color := it.Kind.Def().Color
		for j := 0; j < 12; j++ {
			wd.emitParticle(it.X, it.Y, color, 4)
		}
	}
}

func (wd *World) headToHead(w *Worm) {
	for _, o := range wd.worms {
		if o == w || !o.alive || allied(w, o) {
			continue
		}
		if w.Head().Dist(o.Head()) >= (w.Radius()+o.Radius())*headHitFactor {
			continue
		}
		switch {
		case w.Shielded && !o.Shielded:
			wd.killWorm(o, w)
		case o.Shielded && !w.Shielded:
			wd.killWorm(w, o)
		case w.Length > o.Length*1.1:
			wd.killWorm(o, w)
		case o.Length > w.Length*1.1:
			wd.killWorm(w, o)
		}
		if !w.alive {
			return
		}
	}
}

// headToBody kills w when its head runs into a longer worm's body. It stops
// at the first hit.
func (wd *World) headToBody(w *Worm) {
	if w.Shielded {
		return
	}
	head := w.Head()
	r := w.Radius()
	for _, id := range wd.segGrid.Query(head.X, head.Y, r+bodyQueryPad) {
		ref := wd.segRefs[id]
		o := ref.worm
		if o == w || !o.alive || allied(w, o) || w.Length >= o.Length {
			continue
		}
		if ref.idx >= len(o.Segments) {
			continue
		}
		if head.Dist(o.Segments[ref.idx]) < (r+o.BodyRadius(ref.idx))*bodyHitFactor {
			wd.killWorm(w, o)
			return
		}
	}
}

// killWorm resolves a death. It is a no-op for a worm that is already dead.
// killer may be nil.
func (wd *World) killWorm(victim, killer *Worm) {
	if !victim.alive {
		return
	}
	if victim.IsPlayer && wd.tryRevive(victim) {
		return
	}
	victim.alive = false

	segs := victim.Segments
	n := len(segs)
	drops := int(math.Min(math.Floor(victim.Length/2), 30))
	for i := 0; i < drops; i++ {
		s := segs[min(i*2, n-1)]
		tier := TierMedium
		if i%4 == 0 {
			tier = TierLarge
		}
		pos := Vec2{s.X + randRange(wd.rng, -15, 15), s.Y + randRange(wd.rng, -15, 15)}
		f := wd.spawnFood(&pos, tier)
		f.Color = victim.Color.Head
		f.Glow = victim.Color.Light
	}

	burst := min(30+int(victim.Length/10), 50)
	colors := [3]string{victim.Color.Light, victim.Color.Head, "#ffffff"}
	for i := 0; i < burst; i++ {
		s := segs[wd.rng.Intn(n)]
		wd.emitParticle(s.X+randRange(wd.rng, -20, 20), s.Y+randRange(wd.rng, -20, 20),
			colors[wd.rng.Intn(len(colors))], randRange(wd.rng, 2, 8))
	}

	bonus := victim.Score/2 + 50
	if killer != nil {
		killer.Length += victim.Length * 0.2
		killer.Score += bonus
		killer.Kills++
		if killer.IsMinion {
			if owner := killer.Owner(); owner != nil {
				owner.Score += 30
				owner.Length += victim.Length * 0.15
			}
		}
	}

	if victim.IsBoss {
		wd.BossesAlive = max(0, wd.BossesAlive-1)
	}

	if killer != nil && killer.playerSide() {
		wd.KillCount++
		if victim.IsBoss {
			wd.bossKilled = true
			wd.notifier.Notify(fmt.Sprintf("💀 Boss defeated! +%d", bonus), "#ff4444", EmphasisNormal)
			wd.camera.AddShake(0.6)
		} else {
			wd.notifier.Notify(fmt.Sprintf("🍴 %s eaten!", victim.Name), killer.Color.Light, EmphasisNormal)
			wd.camera.AddShake(0.3)
		}
		wd.audio.Play(CueKill)
	}

	payload := KillPayload{VictimID: victim.ID, VictimName: victim.Name, VictimLength: victim.Length, Boss: victim.IsBoss}
	if killer != nil {
		payload.KillerID = killer.ID
		payload.KillerName = killer.Name
		payload.Bonus = bonus
		wd.emit(EventTypeKill, killer.ID, payload)
	} else {
		wd.emit(EventTypeDeath, victim.ID, payload)
	}

	if victim.IsPlayer {
		wd.gameOver()
	}
}

// tryRevive spends the one-time revive skill: the player survives at half
// length behind a short shield.
func (wd *World) tryRevive(p *Worm) bool {
	if !wd.skills.Mods.Has(ModRevive) || wd.skills.revived {
		return false
	}
	wd.skills.revived = true
	p.Length = math.Max(p.Length*0.5, MinBoostLength)
	p.Shielded = true
	p.ShieldTimer = math.Max(p.ShieldTimer, reviveShieldTime)
	wd.notifier.Notify("🛡️ Second life!", "#44ddff", EmphasisLarge)
	wd.audio.Play(CueShield)
	wd.camera.AddShake(0.5)
	return true
}

// applyItem grants an item's effect to w.
func (wd *World) applyItem(w *Worm, kind ItemKind) {
	own := w.playerSide()

	switch kind {
	case ItemSpeed:
		w.SpeedBoosted = true
		w.SpeedTimer = ItemDuration
	case ItemShield:
		w.Shielded = true
		w.ShieldTimer = ItemDuration
		if own {
			wd.audio.Play(CueShield)
		}
	case ItemMagnet:
		w.Magnetized = true
		w.MagnetTimer = ItemDuration
	case ItemGrowth:
		w.Length += 15
		w.Score += 30
	case ItemFreeze:
		owner := w.Owner()
		for _, o := range wd.worms {
			if o == w || !o.alive || (owner != nil && o == owner) {
				continue
			}
			if w.Head().Dist(o.Head()) < freezeItemRange {
				o.FrozenTimer = ItemDuration
				o.Frozen = true
			}
		}
		if own {
			wd.audio.Play(CueFreeze)
			wd.freezeEffect = ItemDuration
		}
	}

	if own {
		def := kind.Def()
		if kind != ItemShield && kind != ItemFreeze {
			wd.audio.Play(CueItemPickup)
		}
		wd.notifier.Notify(fmt.Sprintf("%s %s!", def.Icon, def.Name), def.Color, EmphasisNormal)
	}
	wd.emit(EventTypeItemPickup, w.ID, ItemPickupPayload{WormID: w.ID, Item: kind.String()})
}

// checkObstacleCollisions pushes heads out of rocks by the overlap.
func (wd *World) checkObstacleCollisions() {
	for _, w := range wd.worms {
		if !w.alive {
			continue
		}
		for _, o := range wd.obstacles {
			head := &w.Segments[0]
			d := head.Dist(o.Pos())
			minD := w.Radius() + o.Size
			if d >= minD {
				continue
			}
			a := o.Pos().AngleTo(*head)
			overlap := minD - d
			head.X += math.Cos(a) * overlap
			head.Y += math.Sin(a) * overlap
			w.TargetAngle = a
			if w.Boosting && w.Length > 10 {
				w.Length -= obstacleBoostHit
			}
		}
	}
}

// checkPortalTeleport moves at most one worm through each pair per frame.
func (wd *World) checkPortalTeleport() {
	for _, pp := range wd.portals {
		for _, w := range wd.worms {
			if !w.alive {
				continue
			}
			head := &w.Segments[0]
			var exit *PortalEnd
			switch {
			case pp.A.Cooldown <= 0 && head.Dist(Vec2{pp.A.X, pp.A.Y}) < pp.Size:
				exit = &pp.B
			case pp.B.Cooldown <= 0 && head.Dist(Vec2{pp.B.X, pp.B.Y}) < pp.Size:
				exit = &pp.A
			default:
				continue
			}
			off := pp.Size + 10
			head.X = exit.X + math.Cos(w.Angle)*off
			head.Y = exit.Y + math.Sin(w.Angle)*off
			pp.A.Cooldown = PortalCooldown
			pp.B.Cooldown = PortalCooldown
			if w.IsPlayer {
				wd.audio.Play(CuePortal)
			}
			wd.emit(EventTypePortal, w.ID, PortalPayload{WormID: w.ID, X: head.X, Y: head.Y})
			break
		}
	}
}
