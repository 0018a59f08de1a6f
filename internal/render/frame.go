package render

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"

	"wormarena/internal/game"
)

const gridSpacing = 50

var (
	fontOnce sync.Once
	fontFile string
)

// labelFont returns a system font for worm names, or "" when none exists.
func labelFont() string {
	fontOnce.Do(func() { fontFile = fontPath() })
	return fontFile
}

// Frame draws the camera's view of the arena into a w×h image.
func Frame(snap *game.GameSnapshot, w, h int) image.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dc := gg.NewContext(w, h)
	drawFrame(dc, snap, float64(w), float64(h))
	return dc.Image()
}

func drawFrame(dc *gg.Context, snap *game.GameSnapshot, w, h float64) {
	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	if snap == nil || snap.WorldW <= 0 {
		return
	}

	cam := snap.Camera
	zoom := cam.Zoom
	if zoom <= 0 {
		zoom = 1
	}

	// Visible world rectangle.
	halfW, halfH := w/2/zoom, h/2/zoom
	minX, minY := cam.X-halfW, cam.Y-halfH
	maxX, maxY := cam.X+halfW, cam.Y+halfH
	visible := func(x, y, r float64) bool {
		return x+r >= minX && x-r <= maxX && y+r >= minY && y-r <= maxY
	}

	dc.Push()
	dc.Translate(w/2+cam.ShakeX, h/2+cam.ShakeY)
	dc.Scale(zoom, zoom)
	dc.Translate(-cam.X, -cam.Y)

	drawGrid(dc, snap, minX, minY, maxX, maxY)
	drawDanger(dc, snap)

	for i := range snap.Foods {
		f := &snap.Foods[i]
		if !visible(f.X, f.Y, f.Size*2) {
			continue
		}
		pulse := 1 + 0.15*math.Sin(f.Phase)
		dc.SetColor(withAlpha(parseHexColor(f.Glow), 0.25))
		dc.DrawCircle(f.X, f.Y, f.Size*1.8*pulse)
		dc.Fill()
		dc.SetColor(parseHexColor(f.Color))
		dc.DrawCircle(f.X, f.Y, f.Size*pulse)
		dc.Fill()
	}

	for _, o := range snap.Obstacles {
		if !visible(o.X, o.Y, o.Size) {
			continue
		}
		dc.SetColor(colorObstacle)
		dc.DrawCircle(o.X, o.Y, o.Size)
		dc.Fill()
		dc.SetColor(color.RGBA{140, 140, 160, 255})
		dc.SetLineWidth(3)
		dc.DrawCircle(o.X, o.Y, o.Size)
		dc.Stroke()
	}

	for _, p := range snap.Portals {
		alpha := 0.35
		if p.Ready {
			alpha = 0.9
		}
		c := withAlpha(colorPortal, alpha)
		for _, end := range [2][2]float64{{p.AX, p.AY}, {p.BX, p.BY}} {
			if !visible(end[0], end[1], p.Size) {
				continue
			}
			dc.SetColor(c)
			dc.SetLineWidth(4)
			dc.DrawCircle(end[0], end[1], p.Size*(1+0.1*math.Sin(p.Phase)))
			dc.Stroke()
		}
	}

	for _, it := range snap.Items {
		if !visible(it.X, it.Y, 20) {
			continue
		}
		c := parseHexColor(it.Color)
		dc.SetColor(withAlpha(c, 0.3))
		dc.DrawCircle(it.X, it.Y, 18+2*math.Sin(it.Phase))
		dc.Fill()
		dc.SetColor(c)
		dc.DrawCircle(it.X, it.Y, 12)
		dc.Fill()
	}

	// Player last so it is never hidden.
	for i := range snap.Worms {
		if !snap.Worms[i].IsPlayer {
			drawWorm(dc, snap, &snap.Worms[i], visible)
		}
	}
	if p, ok := snap.Player(); ok {
		drawWorm(dc, snap, p, visible)
	}
	drawLabels(dc, snap, visible)

	for _, p := range snap.Particles {
		if !visible(p.X, p.Y, p.Size) {
			continue
		}
		dc.SetColor(withAlpha(parseHexColor(p.Color), p.Alpha))
		dc.DrawCircle(p.X, p.Y, p.Size)
		dc.Fill()
	}

	dc.Pop()

	if snap.HUD.EvolutionFlash > 0 {
		dc.SetColor(withAlpha(color.RGBA{255, 255, 255, 255}, snap.HUD.EvolutionFlash*0.3))
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
	}
	if snap.HUD.FreezeEffect > 0 {
		dc.SetColor(withAlpha(color.RGBA{100, 180, 255, 255}, snap.HUD.FreezeEffect*0.2))
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
	}
}

func drawGrid(dc *gg.Context, snap *game.GameSnapshot, minX, minY, maxX, maxY float64) {
	x0 := math.Max(0, math.Floor(minX/gridSpacing)*gridSpacing)
	y0 := math.Max(0, math.Floor(minY/gridSpacing)*gridSpacing)
	x1 := math.Min(snap.WorldW, maxX)
	y1 := math.Min(snap.WorldH, maxY)

	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	for x := x0; x <= x1; x += gridSpacing {
		dc.DrawLine(x, math.Max(0, minY), x, y1)
	}
	for y := y0; y <= y1; y += gridSpacing {
		dc.DrawLine(math.Max(0, minX), y, x1, y)
	}
	dc.Stroke()

	dc.SetColor(colorBorder)
	dc.SetLineWidth(4)
	dc.DrawRectangle(0, 0, snap.WorldW, snap.WorldH)
	dc.Stroke()
}

func drawDanger(dc *gg.Context, snap *game.GameSnapshot) {
	if !snap.Danger.Active {
		return
	}
	cx, cy := snap.WorldW/2, snap.WorldH/2
	// A thick ring from the safe radius out past the arena corners.
	outer := math.Hypot(cx, cy)
	width := outer - snap.Danger.Radius
	if width <= 0 {
		return
	}
	dc.SetColor(colorDanger)
	dc.SetLineWidth(width)
	dc.DrawCircle(cx, cy, snap.Danger.Radius+width/2)
	dc.Stroke()

	dc.SetColor(withAlpha(colorBoss, 0.8))
	dc.SetLineWidth(3)
	dc.DrawCircle(cx, cy, snap.Danger.Radius)
	dc.Stroke()
}

func drawWorm(dc *gg.Context, snap *game.GameSnapshot, w *game.WormSnapshot, visible func(x, y, r float64) bool) {
	body := snap.Body(w)
	if len(body) == 0 || !visible(body[0].X, body[0].Y, 400) && !visible(body[len(body)-1].X, body[len(body)-1].Y, 400) {
		return
	}

	head := parseHexColor(w.Color.Head)
	main := parseHexColor(w.Color.Body)
	light := parseHexColor(w.Color.Light)
	if w.IsBoss {
		head, main, light = colorBoss, color.RGBA{180, 20, 20, 255}, color.RGBA{255, 120, 120, 255}
	}

	// Tail first so the head overlaps.
	for i := len(body) - 1; i >= 1; i-- {
		s := body[i]
		if !visible(s.X, s.Y, s.R) {
			continue
		}
		c := main
		if i%4 < 2 {
			c = light
		}
		if w.IsMinion {
			c = withAlpha(c, 0.7)
		}
		dc.SetColor(c)
		dc.DrawCircle(s.X, s.Y, s.R)
		dc.Fill()
	}

	h := body[0]
	if w.Boosting {
		dc.SetColor(withAlpha(light, 0.35))
		dc.DrawCircle(h.X, h.Y, h.R*1.6)
		dc.Fill()
	}
	dc.SetColor(head)
	dc.DrawCircle(h.X, h.Y, h.R)
	dc.Fill()

	// Eyes look along the heading.
	sin, cos := math.Sincos(w.Angle)
	for _, side := range [2]float64{-1, 1} {
		ex := h.X + cos*h.R*0.4 - sin*h.R*0.45*side
		ey := h.Y + sin*h.R*0.4 + cos*h.R*0.45*side
		dc.SetColor(color.White)
		dc.DrawCircle(ex, ey, h.R*0.3)
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawCircle(ex+cos*h.R*0.1, ey+sin*h.R*0.1, h.R*0.15)
		dc.Fill()
	}

	if w.Shielded {
		dc.SetColor(colorShield)
		dc.SetLineWidth(3)
		dc.DrawCircle(h.X, h.Y, h.R+8)
		dc.Stroke()
	}
	if w.Frozen {
		dc.SetColor(colorFrozen)
		dc.DrawCircle(h.X, h.Y, h.R+4)
		dc.Fill()
	}
}

func drawLabels(dc *gg.Context, snap *game.GameSnapshot, visible func(x, y, r float64) bool) {
	f := labelFont()
	if f == "" {
		return
	}
	if err := dc.LoadFontFace(f, 14); err != nil {
		return
	}
	for i := range snap.Worms {
		w := &snap.Worms[i]
		body := snap.Body(w)
		if w.IsMinion || len(body) == 0 || !visible(body[0].X, body[0].Y, 0) {
			continue
		}
		h := body[0]
		dc.SetColor(color.RGBA{0, 0, 0, 160})
		dc.DrawStringAnchored(w.Name, h.X+1, h.Y-h.R-11, 0.5, 0.5)
		dc.SetColor(color.White)
		if w.IsBoss {
			dc.SetColor(colorBoss)
		}
		dc.DrawStringAnchored(w.Name, h.X, h.Y-h.R-12, 0.5, 0.5)
	}
}
