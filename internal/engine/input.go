package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/dotarena/internal/dots"
)

// ErrNotManual is returned when steering a dot the input layer does not own.
var ErrNotManual = errors.New("dot is not manually steered")

type directionInput struct {
	h   dots.Handle
	dir dots.Vec3
}

// SetDirection queues a new heading for a Manual dot. It is applied at the
// start of the next tick; the simulation never writes Manual directions
// itself.
func (s *Simulation) SetDirection(h dots.Handle, dir dots.Vec3) error {
	s.mu.RLock()
	d, err := s.arena.Get(h)
	manual := err == nil && d.Strategy == dots.Manual
	s.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("set direction %s: %w", h, err)
	}
	if !manual {
		return fmt.Errorf("set direction %s: %w", h, ErrNotManual)
	}

	s.inputMu.Lock()
	s.inputs = append(s.inputs, directionInput{h: h, dir: dir.Horizontal()})
	s.inputMu.Unlock()
	return nil
}

// SpawnPlayer queues a Manual dot at pos. Its handle is available from
// Player once the next tick has fulfilled it.
func (s *Simulation) SpawnPlayer(pos dots.Vec3, team dots.Team, level int) {
	s.Spawn(dots.Request{
		Level:     level,
		Strategy:  dots.Manual,
		Position:  pos,
		Color:     dots.TeamColor(team),
		Direction: dots.FromYaw(0),
	})
}

// Player returns the most recently spawned Manual dot and whether it is still
// alive.
func (s *Simulation) Player() (dots.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player, s.arena.Live(s.player)
}

// applyInputs drains queued inputs into the tick. Handles that went stale
// since they were queued are skipped.
func (s *Simulation) applyInputs() {
	s.inputMu.Lock()
	defer s.inputMu.Unlock()

	for _, in := range s.inputs {
		d, err := s.arena.Get(in.h)
		if err != nil || d.Strategy != dots.Manual {
			s.stats.StaleInputs++
			continue
		}
		d.Direction = in.dir
		if !in.dir.IsZero() {
			d.Yaw = dots.Yaw(in.dir)
		}
	}
	s.inputs = s.inputs[:0]

	s.spawnQueue = append(s.spawnQueue, s.pending...)
	s.stats.Requested += len(s.pending)
	s.pending = s.pending[:0]
}
