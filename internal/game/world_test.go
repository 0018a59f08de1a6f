package game

import (
	"math"
	"testing"
)

// startShielded starts a run with a player that cannot die by collision.
func startShielded(wd *World) *Worm {
	wd.StartRun("tester", 2)
	p := wd.Player()
	p.Shielded = true
	p.ShieldTimer = 1e9
	return p
}

func TestStartRunPopulation(t *testing.T) {
	wd := newTestWorld()
	wd.StartRun("", 3)

	if wd.State != StatePlaying {
		t.Errorf("Expected playing state, got %s", wd.State)
	}
	if len(wd.Worms()) != AICount+1 {
		t.Errorf("Expected %d worms, got %d", AICount+1, len(wd.Worms()))
	}
	if len(wd.Foods()) != FoodCount {
		t.Errorf("Expected %d food, got %d", FoodCount, len(wd.Foods()))
	}
	if len(wd.Items()) != ItemCount {
		t.Errorf("Expected %d items, got %d", ItemCount, len(wd.Items()))
	}

	p := wd.Player()
	if p == nil || !p.IsPlayer || wd.Worms()[0] != p {
		t.Fatal("Player should be the first worm")
	}
	if p.Name != "You" {
		t.Errorf("Expected default name, got %q", p.Name)
	}
	if p.Color != Palette[3] {
		t.Errorf("Expected palette colour 3, got %+v", p.Color)
	}
	if p.Head() != wd.Center() {
		t.Errorf("Player should spawn at the centre, got %+v", p.Head())
	}
}

func TestStartRunResets(t *testing.T) {
	wd := newTestWorld()
	p := startShielded(wd)
	p.Score = 700
	wd.KillCount = 4
	wd.Wave = 3
	wd.skills.apply("speedUp")
	wd.scaleMapForWave(6)

	wd.StartRun("again", 0)

	if wd.KillCount != 0 || wd.Wave != 0 || wd.Player().Score != 0 {
		t.Error("Run counters should reset")
	}
	if len(wd.skills.Selected) != 0 || wd.skills.NextScore != FirstSkillScore {
		t.Error("Skills should reset")
	}
	if len(wd.Obstacles()) != 0 || len(wd.Portals()) != 0 || wd.Danger().Active {
		t.Error("Map objects should reset")
	}
}

func TestStepClampsDelta(t *testing.T) {
	wd := newTestWorld()
	startShielded(wd)

	wd.Step(1)

	if wd.SurvivalTime != MaxStep {
		t.Errorf("Expected dt clamped to %v, survival %v", MaxStep, wd.SurvivalTime)
	}
	if wd.Frame != 1 {
		t.Errorf("Expected frame 1, got %d", wd.Frame)
	}
}

func TestStepIdleWorld(t *testing.T) {
	wd := newTestWorld()
	wd.Step(frameDt)
	if wd.Frame != 0 {
		t.Error("Step before StartRun must be a no-op")
	}
}

func TestFoodTargetMaintained(t *testing.T) {
	wd := newTestWorld()
	startShielded(wd)

	for i := 0; i < 120; i++ {
		wd.SetInput(float64(i)*0.05, i%3 == 0)
		wd.Step(frameDt)
		if n := len(wd.Foods()); n < wd.Difficulty().FoodCount {
			t.Fatalf("frame %d: %d food below target %d", i, n, wd.Difficulty().FoodCount)
		}
	}
}

func TestSkillOfferPausesLoop(t *testing.T) {
	wd := newTestWorld()
	p := startShielded(wd)
	p.Score = FirstSkillScore

	wd.Step(frameDt)
	if !wd.Paused() {
		t.Fatal("Reaching the threshold should offer skills")
	}
	if n := len(wd.Skills().Choices); n != SkillChoices {
		t.Errorf("Expected %d choices, got %d", SkillChoices, n)
	}

	frame := wd.Frame
	wd.Step(frameDt)
	if wd.Frame != frame {
		t.Error("Step must not advance while a choice is pending")
	}

	if wd.ChooseSkill(5) {
		t.Error("Out-of-range choice should be rejected")
	}
	if !wd.ChooseSkill(0) {
		t.Fatal("Expected first choice accepted")
	}
	if wd.Paused() {
		t.Error("Loop should resume after choosing")
	}
	if wd.Skills().NextScore != FirstSkillScore+SkillScoreStep {
		t.Errorf("Expected next threshold %d, got %d", FirstSkillScore+SkillScoreStep, wd.Skills().NextScore)
	}
	if wd.ChooseSkill(0) {
		t.Error("Choosing without an offer should fail")
	}
}

func TestGameOverFiresOnce(t *testing.T) {
	calls := 0
	var got RunSummary
	wd := NewWorld(WorldOptions{Seed: 42, OnGameOver: func(s RunSummary) {
		calls++
		got = s
	}})
	wd.StartRun("tester", 0)
	p := wd.Player()
	p.Score = 321
	wd.KillCount = 2

	wd.killWorm(p, nil)
	wd.killWorm(p, nil)
	wd.gameOver()

	if calls != 1 {
		t.Fatalf("Expected one game-over callback, got %d", calls)
	}
	if wd.State != StateGameOver {
		t.Errorf("Expected game over state, got %s", wd.State)
	}
	if got.Score != 321 || got.Kills != 2 || got.PlayerName != "tester" {
		t.Errorf("Unexpected summary %+v", got)
	}

	frame := wd.Frame
	wd.Step(frameDt)
	if wd.Frame != frame {
		t.Error("Step must not advance after game over")
	}
	if wd.Worms()[0] != p {
		t.Error("Dead player should stay readable")
	}
}

func TestReviveSkill(t *testing.T) {
	wd := newTestWorld()
	wd.StartRun("tester", 0)
	p := wd.Player()
	p.Length = 60
	wd.skills.apply("shield")

	wd.killWorm(p, nil)
	if !p.alive {
		t.Fatal("Revive should save the player once")
	}
	if p.Length != 30 || !p.Shielded || p.ShieldTimer < reviveShieldTime {
		t.Errorf("Expected half length behind a shield, got length=%v shield=%v", p.Length, p.ShieldTimer)
	}

	wd.killWorm(p, nil)
	if p.alive || wd.State != StateGameOver {
		t.Error("Revive only works once")
	}
}

func TestStaleHandleAfterRecycle(t *testing.T) {
	wd := newTestWorld()
	f := wd.spawnFood(nil, TierSmall)
	h := HandleOf(f)
	if !h.Valid() {
		t.Fatal("Fresh handle should resolve")
	}

	f.Kill()
	wd.compact()
	if h.Valid() {
		t.Error("Handle to eaten food should not resolve")
	}

	g := wd.spawnFood(nil, TierMedium)
	if g != f {
		t.Fatal("Expected the pool to recycle the released food")
	}
	if h.Valid() {
		t.Error("Handle must not resolve to a recycled object")
	}
	if !HandleOf(g).Valid() {
		t.Error("Handle to the new food should resolve")
	}
}

func TestPoolsScrubRecycledObjects(t *testing.T) {
	wd := newTestWorld()
	f := wd.spawnFood(&Vec2{100, 100}, TierGolden)
	f.Kill()
	wd.compact()

	got := wd.foodPool.Acquire()
	if got != f {
		t.Fatal("Expected the released food back")
	}
	if *got != (Food{}) {
		t.Errorf("Expected a scrubbed food, got %+v", *got)
	}

	wd.emitParticle(50, 50, "#ffffff", 4)
	p := wd.particles[0]
	wd.particles = wd.particles[:0]
	wd.particlePool.Release(p)
	if q := wd.particlePool.Acquire(); q != p || *q != (Particle{}) {
		t.Errorf("Expected a scrubbed particle, got %+v", *q)
	}

	if _, reused := wd.foodPool.Stats(); reused != 1 {
		t.Errorf("Expected 1 food reuse, got %d", reused)
	}
}

func TestHandleWorm(t *testing.T) {
	wd := newTestWorld()
	w := addWorm(wd, 1000, 1000, 0, 20)
	f := wd.spawnFood(nil, TierSmall)

	if HandleOf(w).Worm() != w {
		t.Error("Handle should resolve to its worm")
	}
	if HandleOf(f).Worm() != nil {
		t.Error("Food handle is not a worm")
	}
	if HandleOf(nil).Valid() {
		t.Error("Zero handle should not resolve")
	}
}

func TestCompactKeepsDeadPlayer(t *testing.T) {
	wd := newTestWorld()
	wd.StartRun("tester", 0)
	p := wd.Player()
	p.alive = false
	ai := wd.Worms()[1]
	ai.alive = false

	wd.compact()

	if wd.Worms()[0] != p {
		t.Error("Dead player should survive compaction")
	}
	for _, w := range wd.Worms() {
		if w == ai {
			t.Error("Dead AI should be compacted away")
		}
	}
}

func TestWaveRollover(t *testing.T) {
	wd := newTestWorld()
	p := startShielded(wd)
	score := p.Score

	wd.WaveTimer = WaveDuration - 0.01
	wd.updateWave(0.02)

	if wd.Wave != 1 {
		t.Fatalf("Expected wave 1, got %d", wd.Wave)
	}
	if math.Abs(wd.WaveTimer-0.01) > 1e-9 {
		t.Errorf("Expected timer carried over, got %v", wd.WaveTimer)
	}
	if len(wd.Obstacles()) != ObstaclesPerWave {
		t.Errorf("Expected %d obstacles, got %d", ObstaclesPerWave, len(wd.Obstacles()))
	}
	if len(wd.Portals()) != 0 {
		t.Errorf("No portals on odd waves, got %d", len(wd.Portals()))
	}
	if p.Score != score+WaveBonusMult {
		t.Errorf("Expected wave bonus %d, got %d", WaveBonusMult, p.Score-score)
	}

	wd.WaveTimer = WaveDuration
	wd.updateWave(0)
	if wd.Wave != 2 || len(wd.Portals()) != 1 || len(wd.Obstacles()) != 2*ObstaclesPerWave {
		t.Errorf("Wave 2: expected 1 portal pair and %d obstacles, got %d and %d",
			2*ObstaclesPerWave, len(wd.Portals()), len(wd.Obstacles()))
	}

	wd.WaveTimer = WaveDuration
	wd.updateWave(0)
	if !wd.pendingBoss || wd.bossAlert != bossAlertDelay {
		t.Fatal("Wave 3 should queue a boss")
	}

	wd.respawnAI()
	var boss *Worm
	for _, w := range wd.Worms() {
		if w.IsBoss {
			boss = w
		}
	}
	if boss == nil {
		t.Fatal("Expected a boss to spawn")
	}
	if boss.Length != 270 || boss.Score != 600 || boss.SpeedScale != BossSpeedMult {
		t.Errorf("Unexpected boss length=%v score=%d speed=%v", boss.Length, boss.Score, boss.SpeedScale)
	}
	if wd.BossesAlive != 1 {
		t.Errorf("Expected 1 boss alive, got %d", wd.BossesAlive)
	}

	wd.killWorm(boss, p)
	if wd.BossesAlive != 0 || !wd.bossKilled {
		t.Error("Killing the boss should be tracked")
	}
}

func TestPortalPlacement(t *testing.T) {
	wd := newTestWorld()
	for i := 0; i < 50; i++ {
		pp := wd.newPortalPair()
		if pp.A.X < PortalMargin || pp.A.X > wd.W/2-200 {
			t.Fatalf("A.x out of the left half: %v", pp.A.X)
		}
		if pp.B.X < wd.W/2+200 || pp.B.X > wd.W-PortalMargin {
			t.Fatalf("B.x out of the right half: %v", pp.B.X)
		}
	}
}

func TestDangerZone(t *testing.T) {
	wd := newTestWorld()
	p := startShielded(wd)
	wd.scaleMapForWave(DangerZoneStartWave)

	if !wd.Danger().Active || wd.Danger().Radius != 2500 {
		t.Fatalf("Expected active zone of radius 2500, got %+v", wd.Danger())
	}

	inside := addWorm(wd, 2500, 2600, 0, 30)
	outside := addWorm(wd, 150, 150, 0, 30)
	dying := addWorm(wd, 150, 4850, 0, 5.2)
	foods := len(wd.Foods())

	wd.updateDangerZone(1)

	if wd.Danger().Radius != 2500-DangerZoneShrink {
		t.Errorf("Expected radius shrink to %v, got %v", 2500-DangerZoneShrink, wd.Danger().Radius)
	}
	if inside.Length != 30 {
		t.Errorf("Worms inside take no damage, got %v", inside.Length)
	}
	if outside.Length != 30-DangerZoneDamage {
		t.Errorf("Expected outside worm drained to %v, got %v", 30-DangerZoneDamage, outside.Length)
	}
	if dying.alive {
		t.Error("Worm below the death length should die")
	}
	if len(wd.Foods()) != foods {
		t.Error("Danger zone deaths drop no food")
	}
	if !p.alive {
		t.Error("Player at the centre should be safe")
	}

	wd.danger.Radius = DangerZoneMinRadius + 1
	wd.updateDangerZone(1)
	if wd.Danger().Radius != DangerZoneMinRadius {
		t.Errorf("Radius should floor at %v, got %v", DangerZoneMinRadius, wd.Danger().Radius)
	}

	p.Segments[0] = Vec2{100, 100}
	p.Length = 5.1
	wd.updateDangerZone(1)
	if p.alive || wd.State != StateGameOver {
		t.Error("Player killed by the zone should end the run")
	}
}

func TestSpawnMinions(t *testing.T) {
	tests := []struct {
		name         string
		skills       []string
		wantCount    int
		wantCooldown float64
	}{
		{"base", nil, MinionCount, MinionCooldown},
		{"more minions", []string{"moreMinions"}, MinionCount + 2, MinionCooldown},
		{"fast summon", []string{"fastSummon"}, MinionCount, MinionCooldown * 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wd := newTestWorld()
			p := startShielded(wd)
			for _, id := range tt.skills {
				wd.skills.apply(id)
			}
			before := len(wd.Worms())

			if !wd.SpawnMinions() {
				t.Fatal("Expected minions to spawn")
			}

			minions := 0
			for _, w := range wd.Worms()[before:] {
				if !w.IsMinion || w.Owner() != p || w.Length != 10 || w.MinionTimer != MinionDuration {
					t.Errorf("Unexpected minion %+v", w)
				}
				minions++
			}
			if minions != tt.wantCount {
				t.Errorf("Expected %d minions, got %d", tt.wantCount, minions)
			}
			if wd.MinionCooldown != tt.wantCooldown {
				t.Errorf("Expected cooldown %v, got %v", tt.wantCooldown, wd.MinionCooldown)
			}
			if wd.SpawnMinions() {
				t.Error("Summon should be on cooldown")
			}
		})
	}
}

func TestLeaderboard(t *testing.T) {
	wd := newTestWorld()
	scores := []int{40, 90, 10, 90, 70}
	worms := make([]*Worm, len(scores))
	for i, s := range scores {
		worms[i] = addWorm(wd, 1000+float64(i)*100, 1000, 0, 20)
		worms[i].Score = s
	}
	dead := addWorm(wd, 3000, 3000, 0, 20)
	dead.Score = 1000
	dead.alive = false
	minion := addWorm(wd, 3500, 3000, 0, 20)
	minion.Score = 500
	minion.IsMinion = true

	lb := wd.Leaderboard(3)

	if len(lb) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(lb))
	}
	want := []string{worms[1].ID, worms[3].ID, worms[4].ID}
	for i, id := range want {
		if lb[i].ID != id {
			t.Errorf("Row %d: expected %s, got %s (score %d)", i, id, lb[i].ID, lb[i].Score)
		}
	}

	if all := wd.Leaderboard(10); len(all) != len(scores) {
		t.Errorf("Expected %d rows, got %d", len(scores), len(all))
	}
}

func TestEvolutionFiresOnce(t *testing.T) {
	evolutions := 0
	wd := NewWorld(WorldOptions{Seed: 42, Events: func(et EventType, _ string, _ interface{}) {
		if et == EventTypeEvolution {
			evolutions++
		}
	}})
	p := addWorm(wd, 2500, 2500, 0, 20)
	p.IsPlayer = true
	p.Score = 35

	wd.evolve(p)
	wd.evolve(p)

	if evolutions != 1 {
		t.Errorf("Expected one evolution event, got %d", evolutions)
	}
	if p.EvolutionStage != 2 {
		t.Errorf("Expected stage 2, got %d", p.EvolutionStage)
	}
	if wd.EvolutionFlash != 1 {
		t.Errorf("Expected evolution flash, got %v", wd.EvolutionFlash)
	}
}

func TestActiveEffects(t *testing.T) {
	wd := newTestWorld()
	p := startShielded(wd)
	p.ShieldTimer = ItemDuration / 2
	p.MagnetTimer = ItemDuration

	fx := wd.ActiveEffects()
	if len(fx) != 2 {
		t.Fatalf("Expected 2 effects, got %d", len(fx))
	}
	if fx[0].Kind != ItemShield || fx[0].Remaining != 0.5 {
		t.Errorf("Unexpected shield effect %+v", fx[0])
	}
	if fx[1].Kind != ItemMagnet || fx[1].Remaining != 1 {
		t.Errorf("Unexpected magnet effect %+v", fx[1])
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() (Vec2, int, int) {
		wd := NewWorld(WorldOptions{Seed: 99})
		startShielded(wd)
		for i := 0; i < 300; i++ {
			wd.SetInput(float64(i%50)*0.1, i%7 == 0)
			wd.Step(frameDt)
		}
		return wd.Player().Head(), len(wd.Worms()), len(wd.Foods())
	}

	h1, w1, f1 := run()
	h2, w2, f2 := run()
	if h1 != h2 || w1 != w2 || f1 != f2 {
		t.Errorf("Same seed and input diverged: %+v/%d/%d vs %+v/%d/%d", h1, w1, f1, h2, w2, f2)
	}
}

func TestLongRunInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping long run in short mode")
	}

	wd := NewWorld(WorldOptions{Seed: 1234})
	startShielded(wd)

	for i := 0; i < 3600; i++ {
		wd.SetInput(math.Sin(float64(i)*0.01)*math.Pi, i%90 < 10)
		wd.Step(frameDt)
		if wd.Paused() {
			wd.ChooseSkill(0)
		}
		if i%600 == 0 && wd.MinionCooldown == 0 {
			wd.SpawnMinions()
		}

		for _, w := range wd.Worms() {
			if !w.alive {
				if !w.IsPlayer {
					t.Fatalf("frame %d: dead worm %s left after compaction", i, w.ID)
				}
				continue
			}
			lo := max(1, int(math.Floor(w.Length)))
			if n := len(w.Segments); n < lo || n > lo+SegmentHysteresis {
				t.Fatalf("frame %d: worm %s has %d segments for length %.2f", i, w.ID, n, w.Length)
			}
			h := w.Head()
			if math.IsNaN(h.X) || math.IsNaN(h.Y) {
				t.Fatalf("frame %d: worm %s has a NaN head", i, w.ID)
			}
		}
		for _, f := range wd.Foods() {
			if !f.alive {
				t.Fatalf("frame %d: eaten food left after compaction", i)
			}
		}
		if n := len(wd.Particles()); n > wd.maxParticles {
			t.Fatalf("frame %d: %d particles over cap", i, n)
		}
	}
}

func BenchmarkWorldStep(b *testing.B) {
	wd := NewWorld(WorldOptions{Seed: 7})
	startShielded(wd)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		wd.Step(frameDt)
		if wd.Paused() {
			wd.ChooseSkill(0)
		}
	}
}
