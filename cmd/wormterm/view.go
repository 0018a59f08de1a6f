package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"wormarena/internal/game"
)

// World units per terminal cell. Cells are roughly twice as tall as wide.
const (
	unitsPerCol = 14.0
	unitsPerRow = 28.0
	hudRows     = 2
)

var (
	styleHUD      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleOutside  = tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	styleDanger   = tcell.StyleDefault.Background(tcell.NewRGBColor(60, 0, 0))
	styleObstacle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleNotice   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleBox      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkRed)
)

// viewport maps world coordinates to terminal cells around the camera.
type viewport struct {
	w, h   int
	cx, cy float64
}

func (v viewport) cell(x, y float64) (int, int, bool) {
	col := int(math.Floor((x-v.cx)/unitsPerCol)) + v.w/2
	row := int(math.Floor((y-v.cy)/unitsPerRow)) + (v.h-hudRows)/2 + hudRows
	return col, row, col >= 0 && col < v.w && row >= hudRows && row < v.h
}

func (v viewport) world(col, row int) (float64, float64) {
	x := v.cx + (float64(col-v.w/2)+0.5)*unitsPerCol
	y := v.cy + (float64(row-hudRows-(v.h-hudRows)/2)+0.5)*unitsPerRow
	return x, y
}

func hexStyle(hex string) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.GetColor(hex))
}

// draw paints one frame of snap onto screen.
func draw(screen tcell.Screen, snap *game.GameSnapshot, offer []game.SkillDef, notes []game.Notification, muted bool) {
	screen.Clear()
	w, h := screen.Size()
	v := viewport{w: w, h: h, cx: snap.Camera.X, cy: snap.Camera.Y}

	drawField(screen, v, snap)

	for _, o := range snap.Obstacles {
		fillDisc(screen, v, o.X, o.Y, o.Size/2, '#', styleObstacle)
	}
	for _, p := range snap.Portals {
		st := hexStyle("#aa66ff")
		if !p.Ready {
			st = st.Dim(true)
		}
		putWorld(screen, v, p.AX, p.AY, 'O', st)
		putWorld(screen, v, p.BX, p.BY, 'O', st)
	}
	for _, f := range snap.Foods {
		r := '·'
		if f.Golden {
			r = '*'
		}
		putWorld(screen, v, f.X, f.Y, r, hexStyle(f.Color))
	}
	for _, it := range snap.Items {
		r := '?'
		if it.Kind != "" {
			r = []rune(strings.ToUpper(it.Kind))[0]
		}
		putWorld(screen, v, it.X, it.Y, r, hexStyle(it.Color).Bold(true))
	}

	var player *game.WormSnapshot
	for i := range snap.Worms {
		wm := &snap.Worms[i]
		if wm.IsPlayer {
			player = wm
			continue
		}
		drawWorm(screen, v, snap, wm)
	}
	if player != nil {
		drawWorm(screen, v, snap, player)
	}

	drawHUD(screen, w, snap, offer, muted)
	for i, n := range notes {
		if i >= 3 {
			break
		}
		drawText(screen, 1, h-1-i, styleNotice, n.Text)
	}
}

func drawField(screen tcell.Screen, v viewport, snap *game.GameSnapshot) {
	mx, my := snap.WorldW/2, snap.WorldH/2
	for row := hudRows; row < v.h; row++ {
		for col := 0; col < v.w; col++ {
			x, y := v.world(col, row)
			switch {
			case x < 0 || y < 0 || x > snap.WorldW || y > snap.WorldH:
				screen.SetContent(col, row, '░', nil, styleOutside)
			case snap.Danger.Active && math.Hypot(x-mx, y-my) > snap.Danger.Radius:
				screen.SetContent(col, row, ' ', nil, styleDanger)
			}
		}
	}
}

func drawWorm(screen tcell.Screen, v viewport, snap *game.GameSnapshot, wm *game.WormSnapshot) {
	body := hexStyle(wm.Color.Body)
	head := hexStyle(wm.Color.Head).Bold(true)
	switch {
	case wm.Frozen:
		body = hexStyle("#88ddff")
	case wm.Shielded:
		head = head.Reverse(true)
	}

	bodyRune := 'o'
	if wm.IsMinion {
		bodyRune = '.'
	} else if wm.IsBoss {
		bodyRune = 'O'
	}

	segs := snap.Body(wm)
	for i := len(segs) - 1; i > 0; i-- {
		putWorld(screen, v, segs[i].X, segs[i].Y, bodyRune, body)
	}
	if len(segs) > 0 {
		headRune := '@'
		if wm.IsBoss {
			headRune = 'B'
		}
		putWorld(screen, v, segs[0].X, segs[0].Y, headRune, head)
	}
}

func drawHUD(screen tcell.Screen, w int, snap *game.GameSnapshot, offer []game.SkillDef, muted bool) {
	for col := 0; col < w; col++ {
		screen.SetContent(col, 0, ' ', nil, styleHUD)
		screen.SetContent(col, 1, ' ', nil, styleHUD)
	}
	hud := snap.HUD

	minions := "ready"
	if hud.MinionCooldown > 0 {
		minions = fmt.Sprintf("%.0fs", hud.MinionCooldown)
	}
	sound := "on"
	if muted {
		sound = "off"
	}
	drawText(screen, 1, 0, styleHUD.Bold(true), fmt.Sprintf(
		"Score %d  Len %d  Kills %d  Wave %d (%.0f%%)  %s  %s  Minions %s  Sound %s",
		hud.Score, hud.Length, hud.Kills, hud.Wave, hud.WaveProgress*100,
		hud.StageName, game.FormatTime(hud.Survival), minions, sound))

	if len(offer) > 0 {
		parts := make([]string, len(offer))
		for i, s := range offer {
			parts[i] = fmt.Sprintf("%d) %s: %s", i+1, s.Name, s.Desc)
		}
		drawText(screen, 1, 1, styleHUD.Foreground(tcell.ColorYellow), "Level up! "+strings.Join(parts, "   "))
		return
	}

	var line strings.Builder
	for _, fx := range hud.Effects {
		fmt.Fprintf(&line, "%s %.0f%%  ", fx.Kind, fx.Remaining*100)
	}
	if hud.BossesAlive > 0 {
		fmt.Fprintf(&line, "BOSS x%d  ", hud.BossesAlive)
	}
	line.WriteString("arrows/wasd steer  space boost  m minions  n mute  q quit")
	drawText(screen, 1, 1, styleHUD, line.String())
}

func drawGameOver(screen tcell.Screen, sum game.RunSummary) {
	w, h := screen.Size()
	lines := []string{
		"GAME OVER",
		"",
		fmt.Sprintf("Score    %d", sum.Score),
		fmt.Sprintf("Length   %d", sum.Length),
		fmt.Sprintf("Kills    %d", sum.Kills),
		fmt.Sprintf("Wave     %d", sum.Wave),
		fmt.Sprintf("Survived %s", sum.Survival),
	}
	if len(sum.NewRecords) > 0 {
		lines = append(lines, "", "New record: "+strings.Join(sum.NewRecords, ", "))
	}
	lines = append(lines, "", "r restart   q quit")

	boxW := 0
	for _, l := range lines {
		boxW = max(boxW, len(l))
	}
	boxW += 4
	x0, y0 := (w-boxW)/2, (h-len(lines))/2-1
	for row := y0; row < y0+len(lines)+2; row++ {
		for col := x0; col < x0+boxW; col++ {
			screen.SetContent(col, row, ' ', nil, styleBox)
		}
	}
	for i, l := range lines {
		drawText(screen, x0+2, y0+1+i, styleBox.Bold(i == 0), l)
	}
}

func putWorld(screen tcell.Screen, v viewport, x, y float64, r rune, st tcell.Style) {
	if col, row, ok := v.cell(x, y); ok {
		screen.SetContent(col, row, r, nil, st)
	}
}

func fillDisc(screen tcell.Screen, v viewport, x, y, radius float64, r rune, st tcell.Style) {
	c0, r0, _ := v.cell(x-radius, y-radius)
	c1, r1, _ := v.cell(x+radius, y+radius)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if col < 0 || col >= v.w || row < hudRows || row >= v.h {
				continue
			}
			wx, wy := v.world(col, row)
			if math.Hypot(wx-x, wy-y) <= radius {
				screen.SetContent(col, row, r, nil, st)
			}
		}
	}
	putWorld(screen, v, x, y, r, st)
}

func drawText(screen tcell.Screen, x, y int, st tcell.Style, s string) {
	for _, r := range s {
		screen.SetContent(x, y, r, nil, st)
		x++
	}
}
