package game

import (
	"math"
	"testing"
)

const cx, cy = DefaultWorldW / 2, DefaultWorldH / 2

func sameAngle(a, b float64) bool {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	return d < 1e-9 || 2*math.Pi-d < 1e-9
}

func TestWormAIFleePriority(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(wd *World)
		wantFlee  bool
		wantAngle float64 // checked only when fleeing
		wantBoost bool
		toCenter  bool
	}{
		{
			name: "obstacle beats prey",
			setup: func(wd *World) {
				wd.obstacles = append(wd.obstacles, &Obstacle{X: cx + 210, Y: cy, Size: 30})
				addWorm(wd, cx+110, cy, 0, 5)
			},
			wantFlee:  true,
			wantAngle: math.Pi,
		},
		{
			name: "zone edge beats obstacle and threat",
			setup: func(wd *World) {
				wd.danger = DangerZone{Active: true, Radius: 200}
				wd.obstacles = append(wd.obstacles, &Obstacle{X: cx + 150, Y: cy + 60, Size: 30})
				addWorm(wd, cx+150, cy+100, 0, 200)
			},
			wantFlee:  true,
			wantAngle: math.Pi,
			toCenter:  true,
		},
		{
			name: "larger worm in range",
			setup: func(wd *World) {
				addWorm(wd, cx+150, cy+150, 0, 60)
			},
			wantFlee:  true,
			wantAngle: -math.Pi / 2,
			wantBoost: true,
		},
		{
			name: "larger worm out of range",
			setup: func(wd *World) {
				addWorm(wd, cx+150, cy+210, 0, 60)
			},
		},
		{
			name: "worm not large enough",
			setup: func(wd *World) {
				addWorm(wd, cx+150, cy+150, 0, 50)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wd := newTestWorld()
			w := addWorm(wd, cx+150, cy, 0, 40)
			w.aiTimer = 0
			tt.setup(wd)

			wd.updateWormAI(w, frameDt)

			if (w.aiState == AIFlee) != tt.wantFlee {
				t.Fatalf("Expected flee=%v, got state %s", tt.wantFlee, w.aiState)
			}
			if !tt.wantFlee {
				return
			}
			if w.aiToCenter != tt.toCenter {
				t.Errorf("Expected toCenter=%v", tt.toCenter)
			}
			if !sameAngle(w.TargetAngle, tt.wantAngle) {
				t.Errorf("Expected heading %v, got %v", tt.wantAngle, w.TargetAngle)
			}
			if w.Boosting != tt.wantBoost {
				t.Errorf("Expected boosting=%v", tt.wantBoost)
			}
		})
	}
}

func TestWormAIBoost(t *testing.T) {
	tests := []struct {
		name      string
		state     AIState
		length    float64
		dist      float64
		wantBoost bool
	}{
		{"flee long", AIFlee, 40, 150, true},
		{"flee short", AIFlee, 12, 150, false},
		{"chase close", AIChase, 40, 80, true},
		{"chase far", AIChase, 40, 150, false},
		{"chase close but short", AIChase, 12, 80, false},
		{"food", AIFood, 40, 50, false},
		{"item", AIItem, 40, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wd := newTestWorld()
			w := addWorm(wd, cx, cy, 0, tt.length)
			w.aiTimer = 10
			w.aiState = tt.state

			switch tt.state {
			case AIFlee:
				w.aiTarget = HandleOf(addWorm(wd, cx+tt.dist, cy, 0, tt.length*2))
			case AIChase:
				w.aiTarget = HandleOf(addWorm(wd, cx+tt.dist, cy, 0, 4))
			case AIFood:
				w.aiTarget = HandleOf(wd.spawnFood(&Vec2{cx + tt.dist, cy}, TierSmall))
			case AIItem:
				it := &Item{X: cx + tt.dist, Y: cy, alive: true, serial: wd.serial()}
				wd.items = append(wd.items, it)
				w.aiTarget = HandleOf(it)
			}

			wd.updateWormAI(w, frameDt)

			if w.aiState != tt.state {
				t.Fatalf("Expected state %s kept, got %s", tt.state, w.aiState)
			}
			if w.Boosting != tt.wantBoost {
				t.Errorf("Expected boosting=%v, got %v", tt.wantBoost, w.Boosting)
			}
		})
	}
}

func TestWormAIDeadTargetWanders(t *testing.T) {
	for _, state := range []AIState{AIFlee, AIChase, AIFood} {
		t.Run(state.String(), func(t *testing.T) {
			wd := newTestWorld()
			w := addWorm(wd, cx, cy, 0, 40)
			w.aiTimer = 10
			w.aiState = state
			w.Boosting = true

			if state == AIFood {
				f := wd.spawnFood(&Vec2{cx + 50, cy}, TierSmall)
				w.aiTarget = HandleOf(f)
				f.Kill()
			} else {
				o := addWorm(wd, cx+50, cy, 0, 80)
				w.aiTarget = HandleOf(o)
				o.alive = false
			}

			wd.updateWormAI(w, frameDt)

			if w.aiState != AIWander || w.Boosting {
				t.Errorf("Expected wander without boost, got %s boosting=%v", w.aiState, w.Boosting)
			}
		})
	}
}

func TestBossTargeting(t *testing.T) {
	tests := []struct {
		name       string
		playerDist float64
		wantPlayer bool
	}{
		{"player in range beats closer worm", 400, true},
		{"player out of range", 600, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wd := newTestWorld()
			boss := addWorm(wd, cx, cy, 0, 120)
			boss.IsBoss = true
			near := addWorm(wd, cx+50, cy, 0, 30)
			player := addWorm(wd, cx, cy+tt.playerDist, 0, 30)
			player.IsPlayer = true

			wd.updateBossAI(boss, frameDt)

			if boss.aiState != AIChase {
				t.Fatalf("Expected chase, got %s", boss.aiState)
			}
			want, wantAngle := near, 0.0
			if tt.wantPlayer {
				want, wantAngle = player, math.Pi/2
			}
			if boss.aiTarget.Worm() != want {
				t.Errorf("Expected target %s, got %v", want.Name, boss.aiTarget.Worm())
			}
			if !sameAngle(boss.TargetAngle, wantAngle) {
				t.Errorf("Expected heading %v, got %v", wantAngle, boss.TargetAngle)
			}
		})
	}
}

func TestMinionAI(t *testing.T) {
	tests := []struct {
		name       string
		ownerDist  float64
		ownerDead  bool
		preyDist   float64 // zero means no prey
		wantAlive  bool
		wantState  AIState
		wantAngle  float64
		wantBoost  bool
		checkAngle bool
	}{
		{name: "owner gone", ownerDist: 100, ownerDead: true},
		{name: "returns to far owner", ownerDist: 300, wantAlive: true, wantState: AIWander, wantAngle: math.Pi / 2, checkAngle: true},
		{name: "chases weaker prey", ownerDist: 300, preyDist: 60, wantAlive: true, wantState: AIChase, wantAngle: 0, wantBoost: true, checkAngle: true},
		{name: "prey beyond boost range", ownerDist: 300, preyDist: 150, wantAlive: true, wantState: AIChase, wantAngle: 0, checkAngle: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wd := newTestWorld()
			owner := addWorm(wd, cx, cy+tt.ownerDist, 0, 60)
			owner.IsPlayer = true
			m := addWorm(wd, cx, cy, math.Pi, 12)
			m.IsMinion = true
			m.owner = HandleOf(owner)
			m.MinionTimer = MinionDuration
			if tt.preyDist > 0 {
				addWorm(wd, cx+tt.preyDist, cy, 0, 5)
			}
			if tt.ownerDead {
				owner.alive = false
			}

			wd.updateMinionAI(m)

			if m.alive != tt.wantAlive {
				t.Fatalf("Expected alive=%v", tt.wantAlive)
			}
			if !tt.wantAlive {
				return
			}
			if m.aiState != tt.wantState {
				t.Errorf("Expected state %s, got %s", tt.wantState, m.aiState)
			}
			if tt.checkAngle && !sameAngle(m.TargetAngle, tt.wantAngle) {
				t.Errorf("Expected heading %v, got %v", tt.wantAngle, m.TargetAngle)
			}
			if m.Boosting != tt.wantBoost {
				t.Errorf("Expected boosting=%v", tt.wantBoost)
			}
		})
	}
}

func TestMinionNearOwnerDrifts(t *testing.T) {
	wd := newTestWorld()
	owner := addWorm(wd, cx, cy+100, 0, 60)
	m := addWorm(wd, cx, cy, 1, 12)
	m.IsMinion = true
	m.owner = HandleOf(owner)

	wd.updateMinionAI(m)

	if m.aiState != AIWander {
		t.Fatalf("Expected wander, got %s", m.aiState)
	}
	if math.Abs(m.TargetAngle-1) > 0.1 {
		t.Errorf("Expected a small drift from 1, got %v", m.TargetAngle)
	}
}
