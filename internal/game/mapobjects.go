package game

import "math"

func (wd *World) newObstacle() *Obstacle {
	p := wd.randPos(ObstacleMargin)
	return &Obstacle{
		X:      p.X,
		Y:      p.Y,
		Size:   randRange(wd.rng, ObstacleRadiusMin, ObstacleRadiusMax),
		serial: wd.serial(),
	}
}

// newPortalPair places A in the left half and B in the right half.
func (wd *World) newPortalPair() *PortalPair {
	m := PortalMargin
	return &PortalPair{
		A: PortalEnd{
			X: randRange(wd.rng, m, wd.W/2-200),
			Y: randRange(wd.rng, m, wd.H-m),
		},
		B: PortalEnd{
			X: randRange(wd.rng, wd.W/2+200, wd.W-m),
			Y: randRange(wd.rng, m, wd.H-m),
		},
		Size:   PortalRadius,
		Hue:    randRange(wd.rng, 0, 360),
		Phase:  randRange(wd.rng, 0, math.Pi*2),
		serial: wd.serial(),
	}
}

// scaleMapForWave adds obstacles and portal pairs up to the wave's targets
// and switches on the danger zone once its wave is reached.
func (wd *World) scaleMapForWave(wave int) {
	target := min(wave*ObstaclesPerWave, MaxObstacles)
	for len(wd.obstacles) < target {
		wd.obstacles = append(wd.obstacles, wd.newObstacle())
	}

	if wave > 0 && wave%PortalsEveryNWaves == 0 {
		pairs := min(wave/PortalsEveryNWaves, MaxPortalPairs)
		for len(wd.portals) < pairs {
			wd.portals = append(wd.portals, wd.newPortalPair())
		}
	}

	if wave >= DangerZoneStartWave && !wd.danger.Active {
		wd.danger.Active = true
		wd.danger.Radius = math.Max(wd.W, wd.H) / 2
	}
}

// updateDangerZone shrinks the safe circle and drains worms outside it.
// Only the player's death ends the run; everyone else dies silently.
func (wd *World) updateDangerZone(dt float64) {
	if !wd.danger.Active {
		return
	}
	wd.danger.Radius = math.Max(DangerZoneMinRadius, wd.danger.Radius-DangerZoneShrink*dt)

	c := wd.Center()
	for _, w := range wd.worms {
		if !w.alive || w.Head().Dist(c) <= wd.danger.Radius {
			continue
		}
		w.Length -= DangerZoneDamage * dt
		if w.Length >= DangerZoneDeathLen {
			continue
		}
		if w.IsPlayer {
			wd.killWorm(w, nil)
			continue
		}
		w.alive = false
		if w.IsBoss {
			wd.BossesAlive = max(0, wd.BossesAlive-1)
		}
	}
}
