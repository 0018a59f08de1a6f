package game

import "fmt"

// bossAlertDelay separates the wave banner from the boss warning.
const bossAlertDelay = 1.5

// Difficulty returns the spawn targets for the current wave.
func (wd *World) Difficulty() Difficulty { return DifficultyFor(wd.Wave) }

// updateWave advances the wave clock and escalates on rollover.
func (wd *World) updateWave(dt float64) {
	if wd.bossAlert > 0 {
		wd.bossAlert -= dt
		if wd.bossAlert <= 0 {
			wd.bossAlert = 0
			wd.notifier.Notify("💀 A boss appears!", "#ff4444", EmphasisLarge)
			wd.audio.Play(CueBossSpawn)
			wd.camera.AddShake(0.6)
		}
	}

	wd.WaveTimer += dt
	if wd.WaveTimer < WaveDuration {
		return
	}
	wd.WaveTimer -= WaveDuration
	wd.Wave++

	wd.scaleMapForWave(wd.Wave)

	bonus := 0
	if p := wd.player; p != nil && p.alive {
		bonus = wd.Wave * WaveBonusMult
		p.Score += bonus
	}

	wd.notifier.Notify(fmt.Sprintf("🌊 Wave %d!", wd.Wave), "#88bbff", EmphasisLarge)
	wd.audio.Play(CueWaveStart)

	boss := IsBossWave(wd.Wave)
	if boss {
		wd.pendingBoss = true
		wd.bossAlert = bossAlertDelay
	}
	wd.emit(EventTypeWaveStart, "", WaveStartPayload{
		Wave:      wd.Wave,
		Bonus:     bonus,
		Boss:      boss,
		Obstacles: len(wd.obstacles),
		Portals:   len(wd.portals),
		Danger:    wd.danger.Active,
	})
}

// WaveProgress is the fraction of the current wave elapsed.
func (wd *World) WaveProgress() float64 { return wd.WaveTimer / WaveDuration }
