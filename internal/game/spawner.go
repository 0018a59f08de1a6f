package game

import (
	"fmt"
	"math"
	"time"
)

func (wd *World) spawnItem() {
	p := wd.randPos(SpawnMargin)
	wd.items = append(wd.items, &Item{
		X:         p.X,
		Y:         p.Y,
		Kind:      ItemKind(wd.rng.Intn(int(itemKindCount))),
		Phase:     wd.rng.Float64() * math.Pi * 2,
		SpawnedAt: time.Now(),
		alive:     true,
		serial:    wd.serial(),
	})
}

func (wd *World) spawnAI() *Worm {
	diff := wd.Difficulty()
	p := wd.randPos(SpawnMargin)
	w := newWorm(wd.rng, wd.serial(), p.X, p.Y, wd.rng.Intn(len(Palette)), AINames[wd.rng.Intn(len(AINames))])
	w.ID = fmt.Sprintf("ai-%d", w.serial)
	w.Length = randRange(wd.rng, diff.AILenMin, diff.AILenMax)
	w.layOut(p.X, p.Y)
	wd.worms = append(wd.worms, w)
	wd.emit(EventTypeWormSpawn, w.ID, WormSpawnPayload{ID: w.ID, Name: w.Name, Length: w.Length, X: p.X, Y: p.Y})
	return w
}

func (wd *World) spawnBoss() *Worm {
	diff := wd.Difficulty()
	p := wd.randPos(SpawnMargin)
	w := newWorm(wd.rng, wd.serial(), p.X, p.Y, wd.rng.Intn(len(Palette)), "🔥 BOSS")
	w.ID = fmt.Sprintf("boss-%d", w.serial)
	w.IsBoss = true
	w.Length = diff.AILenMax * BossLengthMult
	w.SpeedScale = BossSpeedMult
	w.Score = wd.Wave * 200
	w.EvolutionStage = StageForScore(w.Score)
	w.layOut(p.X, p.Y)
	wd.worms = append(wd.worms, w)
	wd.BossesAlive++
	wd.emit(EventTypeBossSpawn, w.ID, WormSpawnPayload{ID: w.ID, Name: w.Name, Length: w.Length, X: p.X, Y: p.Y, Boss: true})
	return w
}

// SpawnMinions summons the player's minions in a ring around its head.
// It returns false while on cooldown or when there is no live player.
func (wd *World) SpawnMinions() bool {
	p := wd.player
	if wd.State != StatePlaying || p == nil || !p.alive || wd.MinionCooldown > 0 {
		return false
	}
	mods := wd.skills.Mods
	wd.MinionCooldown = MinionCooldown * math.Max(0.1, 1+mods.Get(ModMinionCdMult))

	count := MinionCount + int(mods.Get(ModMinionCountBonus))
	head := p.Head()
	for i := 0; i < count; i++ {
		a := math.Pi * 2 / float64(count) * float64(i)
		x, y := head.X+math.Cos(a)*60, head.Y+math.Sin(a)*60
		m := newWorm(wd.rng, wd.serial(), x, y, wd.ColorIndex, "Minion")
		m.ID = fmt.Sprintf("minion-%d", m.serial)
		m.IsMinion = true
		m.Length = math.Max(10, p.Length*0.25)
		m.owner = HandleOf(p)
		m.MinionTimer = MinionDuration
		m.layOut(x, y)
		wd.worms = append(wd.worms, m)
		for j := 0; j < 8; j++ {
			wd.emitParticle(x, y, p.Color.Light, 4)
		}
	}
	wd.audio.Play(CueMinionSpawn)
	wd.notifier.Notify(fmt.Sprintf("👥 %d minions summoned!", count), "#ff9944", EmphasisNormal)
	wd.emit(EventTypeMinionSpawn, p.ID, MinionSpawnPayload{Count: count, Cooldown: wd.MinionCooldown})
	return true
}

func (wd *World) respawnFood() {
	target := wd.Difficulty().FoodCount
	alive := 0
	for _, f := range wd.foods {
		if f.alive {
			alive++
		}
	}
	for ; alive < target; alive++ {
		wd.spawnFood(nil, PickFoodTier(wd.rng))
	}
}

// respawnItems adds at most one item per frame.
func (wd *World) respawnItems() {
	alive := 0
	for _, it := range wd.items {
		if it.alive {
			alive++
		}
	}
	if alive < ItemCount {
		wd.spawnItem()
	}
}

// respawnAI tops the population up by at most one worm per frame. A big
// player thins the field out.
func (wd *World) respawnAI() {
	diff := wd.Difficulty()
	alive := 0
	for _, w := range wd.worms {
		if w.alive && !w.IsPlayer && !w.IsMinion && !w.IsBoss {
			alive++
		}
	}

	target := diff.AICount
	if p := wd.player; p != nil && p.alive {
		switch {
		case p.Length > 150:
			target = max(3, int(float64(diff.AICount)*0.7))
		case p.Length > 100:
			target = max(4, int(float64(diff.AICount)*0.85))
		}
	}
	if alive < target {
		wd.spawnAI()
	}

	if wd.pendingBoss {
		wd.pendingBoss = false
		wd.spawnBoss()
	}
}
