package engine

import (
	"math"

	"github.com/talgya/dotarena/internal/dots"
)

const (
	colorSections = 5
	colorStep     = 1.0 / (colorSections - 1)
)

// colorStage snaps each impacted dot's team colour to the dominant mix of its
// accumulated colour. Because team identity is colour equality, a dot that
// absorbs enough of another team drifts toward it.
func colorStage() Stage {
	return NewStage("color", FlagImpact, func(s *Simulation) error {
		slots := s.arena.Slots()
		return s.forEachRange(len(slots), func(lo, hi, _ int) error {
			for i := lo; i < hi; i++ {
				d := &slots[i]
				if d.State != dots.Live || !d.ScoreChanged {
					continue
				}
				if c, ok := quantizeColor(d.RGB); ok && c != d.Team {
					d.Team = c
				}
			}
			return nil
		})
	})
}

// quantizeColor normalizes rgb by its largest channel and rounds each channel
// to one of colorSections steps. Pure white is not a team, so when every
// channel lands on 1 the first largest one is stepped down.
func quantizeColor(rgb dots.RGB) (dots.Color, bool) {
	maxValue := max(rgb.R, rgb.G, rgb.B)
	if maxValue <= 0 {
		return dots.Color{}, false
	}

	r := section(rgb.R / maxValue)
	g := section(rgb.G / maxValue)
	b := section(rgb.B / maxValue)

	if r >= 1 && g >= 1 && b >= 1 {
		switch {
		case r >= g && r >= b:
			r -= colorStep
		case g >= r && g >= b:
			g -= colorStep
		default:
			b -= colorStep
		}
	}
	return dots.Color{R: r, G: g, B: b, A: 1}, true
}

// section snaps v to the nearest step. Halves round to even.
func section(v float64) float64 {
	return math.RoundToEven(v*(colorSections-1)) * colorStep
}
