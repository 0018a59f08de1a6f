package main

import (
	"math"
	"time"
)

// comboWindow is how long a direction key keeps counting towards a diagonal.
const comboWindow = 180 * time.Millisecond

// steering turns discrete key presses into a heading. Terminals report no
// key releases, so a horizontal and a vertical press close together make a
// diagonal and the last heading holds until the next press.
type steering struct {
	dx, dy     int
	hAt, vAt   time.Time
	aim        float64
	boost      bool
	hasHeading bool
}

func (s *steering) press(dx, dy int, now time.Time) {
	if dx != 0 {
		s.dx, s.hAt = dx, now
		if now.Sub(s.vAt) > comboWindow {
			s.dy = 0
		}
	}
	if dy != 0 {
		s.dy, s.vAt = dy, now
		if now.Sub(s.hAt) > comboWindow {
			s.dx = 0
		}
	}
	s.aim = math.Atan2(float64(s.dy), float64(s.dx))
	s.hasHeading = true
}

func (s *steering) toggleBoost() {
	s.boost = !s.boost
}

func (s *steering) reset() {
	*s = steering{}
}

// keyDirection maps a steering key to a unit step, screen down is +y.
func keyDirection(r rune) (dx, dy int, ok bool) {
	switch r {
	case 'w', 'W':
		return 0, -1, true
	case 's', 'S':
		return 0, 1, true
	case 'a', 'A':
		return -1, 0, true
	case 'd', 'D':
		return 1, 0, true
	}
	return 0, 0, false
}
