package engine

import "github.com/talgya/dotarena/internal/dots"

// DotView is the per-dot state a renderer needs.
type DotView struct {
	Handle   dots.Handle `json:"h" msgpack:"h"`
	X        float64     `json:"x" msgpack:"x"`
	Z        float64     `json:"z" msgpack:"z"`
	Yaw      float64     `json:"yaw" msgpack:"y"`
	Scale    float64     `json:"scale" msgpack:"s"`
	Level    int         `json:"level" msgpack:"l"`
	Score    int         `json:"score" msgpack:"p"`
	Color    [3]float32  `json:"color" msgpack:"c"`
	Strategy string      `json:"strategy" msgpack:"t"`
}

// Frame is a copy of all live dots taken between ticks.
type Frame struct {
	Tick    uint64    `json:"tick" msgpack:"tick"`
	Elapsed float64   `json:"elapsed" msgpack:"elapsed"`
	Alive   int       `json:"alive" msgpack:"alive"`
	Dots    []DotView `json:"dots" msgpack:"dots"`
}

// Frame copies the live dots into buf, reusing its storage.
func (s *Simulation) Frame(buf []DotView) Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf = buf[:0]
	for i := range s.arena.Slots() {
		d := s.arena.Slot(uint32(i))
		if d.State != dots.Live {
			continue
		}
		buf = append(buf, DotView{
			Handle:   d.Handle,
			X:        d.Position.X,
			Z:        d.Position.Z,
			Yaw:      d.Yaw,
			Scale:    d.Scale,
			Level:    d.Level,
			Score:    d.Score,
			Color:    [3]float32{float32(d.Team.R), float32(d.Team.G), float32(d.Team.B)},
			Strategy: d.Strategy.String(),
		})
	}
	return Frame{Tick: s.tick, Elapsed: s.elapsed, Alive: s.alive, Dots: buf}
}
