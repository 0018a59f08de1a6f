package render

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"wormarena/internal/game"
)

const (
	maxMinimapFood = 300
	minMinimapSize = 32
)

// Minimap draws the whole arena scaled into a size×size square.
func Minimap(snap *game.GameSnapshot, size int) image.Image {
	if size < minMinimapSize {
		size = minMinimapSize
	}
	dc := gg.NewContext(size, size)

	dc.SetColor(color.RGBA{0, 0, 0, 180})
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	if snap == nil || snap.WorldW <= 0 || snap.WorldH <= 0 {
		return dc.Image()
	}

	scale := float64(size) / math.Max(snap.WorldW, snap.WorldH)
	ox := (float64(size) - snap.WorldW*scale) / 2
	oy := (float64(size) - snap.WorldH*scale) / 2
	at := func(x, y float64) (float64, float64) {
		return ox + x*scale, oy + y*scale
	}

	dc.SetColor(withAlpha(colorBorder, 0.6))
	dc.SetLineWidth(1)
	dc.DrawRectangle(ox, oy, snap.WorldW*scale, snap.WorldH*scale)
	dc.Stroke()

	if snap.Danger.Active {
		cx, cy := at(snap.WorldW/2, snap.WorldH/2)
		dc.SetColor(withAlpha(colorBoss, 0.7))
		dc.SetLineWidth(1.5)
		dc.DrawCircle(cx, cy, snap.Danger.Radius*scale)
		dc.Stroke()
	}

	// Food is sampled, one dot per stride.
	stride := 1
	if len(snap.Foods) > maxMinimapFood {
		stride = (len(snap.Foods) + maxMinimapFood - 1) / maxMinimapFood
	}
	for i := 0; i < len(snap.Foods); i += stride {
		f := &snap.Foods[i]
		x, y := at(f.X, f.Y)
		dc.SetColor(withAlpha(parseHexColor(f.Color), 0.5))
		dc.DrawRectangle(x, y, 1, 1)
		dc.Fill()
	}

	dc.SetColor(colorObstacle)
	for _, o := range snap.Obstacles {
		x, y := at(o.X, o.Y)
		dc.DrawCircle(x, y, math.Max(1.5, o.Size*scale))
		dc.Fill()
	}

	dc.SetColor(colorPortal)
	for _, p := range snap.Portals {
		ax, ay := at(p.AX, p.AY)
		bx, by := at(p.BX, p.BY)
		dc.DrawCircle(ax, ay, 2)
		dc.DrawCircle(bx, by, 2)
		dc.Fill()
	}

	for i := range snap.Worms {
		w := &snap.Worms[i]
		if w.IsPlayer {
			continue
		}
		body := snap.Body(w)
		if len(body) == 0 {
			continue
		}
		x, y := at(body[0].X, body[0].Y)
		r := 1.5
		c := parseHexColor(w.Color.Head)
		if w.IsBoss {
			r, c = 3.5, colorBoss
		} else if w.IsMinion {
			r = 1
		}
		dc.SetColor(c)
		dc.DrawCircle(x, y, r)
		dc.Fill()
	}

	// The player goes on top.
	if p, ok := snap.Player(); ok {
		if body := snap.Body(p); len(body) > 0 {
			x, y := at(body[0].X, body[0].Y)
			dc.SetColor(color.White)
			dc.DrawCircle(x, y, 3)
			dc.Fill()
			dc.SetColor(parseHexColor(p.Color.Head))
			dc.DrawCircle(x, y, 2)
			dc.Fill()
		}
	}

	return dc.Image()
}
