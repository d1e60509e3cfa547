package engine

import "github.com/talgya/dotarena/internal/dots"

// ForceStrength scales the steering impulse.
const ForceStrength = 20.0

func velocityStage() Stage {
	return NewStage("velocity", 0, func(s *Simulation) error {
		slots := s.arena.Slots()
		dt := s.dt
		return s.forEachRange(len(slots), func(lo, hi, _ int) error {
			for i := lo; i < hi; i++ {
				d := &slots[i]
				if d.State != dots.Live {
					continue
				}
				steer(d, s.tables.Ladder.Get(d.Level).Speed, dt)
			}
			return nil
		})
	})
}

// steer pushes d's velocity toward its direction at the given speed without
// ever exceeding that speed. A dot at rest jumps straight to full speed.
func steer(d *dots.Dot, speed, dt float64) {
	desired := d.Direction.Normalize().Scale(speed)
	if d.Velocity.IsZero() {
		d.Velocity = desired
		return
	}

	impulse := desired.Sub(d.Velocity)
	if impulse.LenSq() > 1e-4 {
		impulse = impulse.Normalize()
	}
	d.Velocity = d.Velocity.Add(impulse.Scale(ForceStrength * dt * d.InverseMass))

	if v := d.Velocity.Len(); v > speed {
		d.Velocity = d.Velocity.Scale(speed / v)
	}
}
