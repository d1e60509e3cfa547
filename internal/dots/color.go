package dots

// Color is an RGBA team colour. Two dots are on the same team when their
// colours are exactly equal.
type Color struct {
	R, G, B, A float64
}

// RGB is the colour accumulator a dot collects from impacts.
type RGB struct {
	R, G, B float64
}

func (c RGB) Add(o RGB) RGB { return RGB{c.R + o.R, c.G + o.G, c.B + o.B} }

// Team is one of the spawnable teams.
type Team uint8

const (
	TeamRed Team = iota
	TeamGreen
	TeamBlue
	TeamCount = 3
)

// TeamColor returns the starting colour for a team.
func TeamColor(t Team) Color {
	switch t {
	case TeamRed:
		return Color{1, 0, 0, 1}
	case TeamGreen:
		return Color{0, 1, 0, 1}
	case TeamBlue:
		return Color{0, 0, 1, 1}
	default:
		return Color{0, 0, 0, 1}
	}
}

// ColorImpact spreads an integer colour impact over the source's team
// channels in proportion to their share of the total.
func ColorImpact(c Color, impact int) RGB {
	total := c.R + c.G + c.B
	if total <= 0 {
		return RGB{}
	}
	f := float64(impact) / total
	return RGB{c.R * f, c.G * f, c.B * f}
}
