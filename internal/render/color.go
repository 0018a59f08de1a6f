package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
)

var (
	colorBackground = color.RGBA{10, 10, 26, 255}
	colorGrid       = color.RGBA{30, 30, 55, 255}
	colorBorder     = color.RGBA{255, 68, 119, 255}
	colorObstacle   = color.RGBA{90, 90, 110, 255}
	colorPortal     = color.RGBA{180, 100, 255, 255}
	colorDanger     = color.RGBA{255, 40, 40, 60}
	colorShield     = color.RGBA{80, 200, 255, 140}
	colorFrozen     = color.RGBA{150, 220, 255, 120}
	colorBoss       = color.RGBA{255, 50, 50, 255}
)

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}

	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}

// withAlpha returns c with alpha a in [0,1], premultiplied as color.RGBA expects.
func withAlpha(c color.RGBA, a float64) color.RGBA {
	if a <= 0 {
		return color.RGBA{}
	}
	if a > 1 {
		a = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(255 * a),
	}
}

func fontPath() string {
	paths := []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
		"C:\\Windows\\Fonts\\arial.ttf",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	matches, _ := filepath.Glob("*.ttf")
	if len(matches) > 0 {
		return matches[0]
	}

	return ""
}
