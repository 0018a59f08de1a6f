package game

import (
	"math"
	"math/rand"
)

// Camera follows the player's head and zooms out as it grows.
type Camera struct {
	X, Y       float64
	Zoom       float64
	TargetZoom float64
	Shake      float64
	ShakeX     float64
	ShakeY     float64
}

// ZoomForLength maps player length to the target zoom.
func ZoomForLength(l float64) float64 {
	switch {
	case l < 30:
		return 1
	case l < 80:
		return 1 - (l-30)*0.004
	case l < 200:
		return 0.8 - (l-80)*0.002
	default:
		return math.Max(0.35, 0.56-(l-200)*0.001)
	}
}

// AddShake bumps the shake intensity, saturating at 1.
func (c *Camera) AddShake(amount float64) {
	c.Shake = math.Min(1, c.Shake+amount)
}

func (c *Camera) update(player *Worm, rng *rand.Rand) {
	tx, ty := c.X, c.Y
	if player != nil && player.alive {
		h := player.Head()
		tx, ty = h.X, h.Y
		c.TargetZoom = ZoomForLength(player.Length)
	}
	c.X = lerp(c.X, tx, CameraSmooth)
	c.Y = lerp(c.Y, ty, CameraSmooth)
	c.Zoom = lerp(c.Zoom, c.TargetZoom, 0.03)

	if c.Shake > 0 {
		intensity := c.Shake * 15
		c.ShakeX = (rng.Float64() - 0.5) * intensity
		c.ShakeY = (rng.Float64() - 0.5) * intensity
		c.Shake -= 0.02
		if c.Shake <= 0 {
			c.Shake, c.ShakeX, c.ShakeY = 0, 0, 0
		}
	}
}
