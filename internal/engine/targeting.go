package engine

import (
	"math"
	"math/rand"

	"github.com/talgya/dotarena/internal/dots"
)

// targetingStage reacts to this tick's collisions. It runs sequentially
// because it draws from the simulation's random source.
func targetingStage() Stage {
	return NewStage("targeting", FlagCollision, func(s *Simulation) error {
		slots := s.arena.Slots()
		for i := range slots {
			d := &slots[i]
			if d.State != dots.Live || !d.Collided {
				continue
			}
			retarget(d, s.rng)
		}
		return nil
	})
}

// retarget is the single dispatch point for targeting strategies. The
// collision is consumed either way; Manual dots keep the direction the input
// layer gave them.
func retarget(d *dots.Dot, rng *rand.Rand) {
	switch d.Strategy {
	case dots.RandomWander:
		d.Direction = randomHeading(rng)
	case dots.DirectedShot:
		d.Strategy = dots.RandomWander
	case dots.Manual:
	}
	d.Collided = false
}

// randomHeading returns a uniformly random unit vector in the XZ plane.
func randomHeading(rng *rand.Rand) dots.Vec3 {
	return dots.FromYaw(rng.Float64() * 2 * math.Pi)
}
