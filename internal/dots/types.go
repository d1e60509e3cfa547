// Package dots provides the dot data model: handles, per-dot state, spawn
// requests, and the slot arena dots live in for the whole process.
package dots

import (
	"errors"
	"fmt"
)

// ErrStaleHandle is returned when a handle refers to a slot that has since
// been recycled or was never allocated.
var ErrStaleHandle = errors.New("stale dot handle")

// Handle identifies one incarnation of an arena slot. The generation changes
// every time the slot is reinitialized, so a handle held across a recycle is
// detectably stale. The zero Handle is never valid.
type Handle struct {
	Index uint32 `json:"i" msgpack:"i"`
	Gen   uint32 `json:"g" msgpack:"g"`
}

// Valid reports whether h could refer to an allocated slot.
func (h Handle) Valid() bool {
	return h.Gen != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("dot#%d.%d", h.Index, h.Gen)
}

// Strategy is the closed set of targeting behaviours.
type Strategy uint8

const (
	Manual       Strategy = iota // Direction written by the input layer only
	RandomWander                 // New random heading after each hit
	DirectedShot                 // Travels straight until its first hit
)

func (s Strategy) String() string {
	switch s {
	case Manual:
		return "manual"
	case RandomWander:
		return "random"
	case DirectedShot:
		return "shot"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of an arena slot.
type State uint8

const (
	Live          State = iota
	PooledRemoved       // Score dropped to zero this tick
	PooledReserve       // Disabled in an earlier tick
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case PooledRemoved:
		return "removed"
	case PooledReserve:
		return "reserve"
	default:
		return "unknown"
	}
}

// Dot is the per-slot gameplay state.
type Dot struct {
	Handle Handle
	State  State

	Score int
	Level int // Index into the ladder
	RGB   RGB // Colour accumulator
	Team  Color

	Position Vec3
	Yaw      float64 // Heading around the Y axis; forward is +Z at yaw 0
	Scale    float64

	Velocity    Vec3
	InverseMass float64
	Direction   Vec3
	Strategy    Strategy

	NextShootTime float64 // Elapsed seconds at which the dot may fire again

	// Per-tick markers written by the impact resolver.
	Collided     bool
	ScoreChanged bool
}

// Alive reports whether the dot takes part in the simulation.
func (d *Dot) Alive() bool {
	return d.State == Live
}

// Forward returns the unit vector the dot is facing.
func (d *Dot) Forward() Vec3 {
	return FromYaw(d.Yaw)
}

// Request asks the lifecycle manager to bring a dot to life.
type Request struct {
	Level     int // Ladder index
	Strategy  Strategy
	Position  Vec3
	Color     Color
	Direction Vec3
}
