package physics

import (
	"github.com/talgya/dotarena/internal/dots"
	"github.com/talgya/dotarena/internal/engine"
)

// DefaultCellSize is about twice the radius of the largest default level.
const DefaultCellSize = 4.0

// World integrates dot motion inside a walled arena and finds overlaps.
type World struct {
	halfW, halfD float64
	grid         *Grid
	query        []uint32
	arena        *dots.Arena // Arena of the last Contacts call
}

// NewWorld creates a world for an arena of the given half extents.
func NewWorld(halfW, halfD, cellSize float64) *World {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &World{
		halfW: halfW,
		halfD: halfD,
		grid:  NewGrid(halfW, halfD, cellSize),
		query: make([]uint32, 0, 64),
	}
}

// Integrate moves live dots by their velocity and bounces them off the arena
// walls. Wandering dots also turn around; Manual dots keep the direction the
// player gave them. Dots face the way they move.
func (w *World) Integrate(a *dots.Arena, dt float64) {
	slots := a.Slots()
	for i := range slots {
		d := &slots[i]
		if d.State != dots.Live {
			continue
		}
		d.Position = d.Position.Add(d.Velocity.Scale(dt))
		r := d.Scale / 2

		if lim := w.halfW - r; d.Position.X > lim || d.Position.X < -lim {
			d.Position.X = dots.Clamp(d.Position.X, -lim, lim)
			d.Velocity.X = -d.Velocity.X
			if d.Strategy != dots.Manual {
				d.Direction.X = -d.Direction.X
			}
		}
		if lim := w.halfD - r; d.Position.Z > lim || d.Position.Z < -lim {
			d.Position.Z = dots.Clamp(d.Position.Z, -lim, lim)
			d.Velocity.Z = -d.Velocity.Z
			if d.Strategy != dots.Manual {
				d.Direction.Z = -d.Direction.Z
			}
		}

		if v := d.Velocity.Horizontal(); v.LenSq() > 1e-12 {
			d.Yaw = dots.Yaw(v)
		}
	}
}

// Contacts rebuilds the grid and appends one contact per overlapping pair to
// buf. Pairs may be reported more than once; the normal points from A to B.
func (w *World) Contacts(a *dots.Arena, buf []engine.Contact) []engine.Contact {
	w.arena = a
	w.grid.Clear()

	slots := a.Slots()
	for i := range slots {
		d := &slots[i]
		if d.State == dots.Live {
			w.grid.InsertCircle(d.Position.X, d.Position.Z, d.Scale/2, uint32(i))
		}
	}

	for i := range slots {
		d := &slots[i]
		if d.State != dots.Live {
			continue
		}
		r := d.Scale / 2
		w.query = w.grid.QueryBuf(d.Position.X, d.Position.Z, r, w.query[:0])
		for _, j := range w.query {
			if j <= uint32(i) {
				continue
			}
			o := &slots[j]
			delta := o.Position.Sub(d.Position).Horizontal()
			reach := r + o.Scale/2
			if delta.LenSq() >= reach*reach {
				continue
			}
			buf = append(buf, engine.Contact{A: d.Handle, B: o.Handle, Normal: delta.Normalize()})
		}
	}
	return buf
}

// Occupied reports whether a circle at pos overlaps any live dot known to the
// last Contacts call.
func (w *World) Occupied(pos dots.Vec3, radius float64) bool {
	if w.arena == nil {
		return false
	}
	w.query = w.grid.QueryBuf(pos.X, pos.Z, radius, w.query[:0])
	for _, j := range w.query {
		d := w.arena.Slot(j)
		if d.State != dots.Live {
			continue
		}
		reach := radius + d.Scale/2
		if d.Position.Sub(pos).Horizontal().LenSq() < reach*reach {
			return true
		}
	}
	return false
}
