package engine

import (
	"github.com/talgya/dotarena/internal/config"
	"github.com/talgya/dotarena/internal/dots"
)

// The lifecycle stages are the only code that changes a slot's State, the
// removed and reserve pools, or the alive counter. Both run sequentially.

// deathStage moves every live dot whose score dropped to zero or below into
// the removed-this-tick pool. It also consumes the ScoreChanged marker, so it
// must run after every stage that reads it.
func deathStage() Stage {
	return NewStage("death", FlagImpact, func(s *Simulation) error {
		slots := s.arena.Slots()
		for i := range slots {
			d := &slots[i]
			if d.State != dots.Live || !d.ScoreChanged {
				continue
			}
			d.ScoreChanged = false
			if d.Score <= 0 {
				s.remove(d)
			}
		}
		if s.stats.Removed > 0 {
			s.flags.Set(FlagKill)
		}
		return nil
	})
}

func (s *Simulation) remove(d *dots.Dot) {
	d.State = dots.PooledRemoved
	s.removed = append(s.removed, d.Handle.Index)
	s.alive--
	s.stats.Removed++
}

// fulfilStage turns queued shoot and spawn requests into live dots, then
// retires whatever is left in the removed pool to the reserve pool.
func fulfilStage() Stage {
	return NewStage("fulfil", FlagKill|FlagSpawnRequest, func(s *Simulation) error {
		for i := range s.shootQueue {
			s.fulfil(&s.shootQueue[i], false)
		}
		for i := range s.spawnQueue {
			s.fulfil(&s.spawnQueue[i], true)
		}
		s.shootQueue = s.shootQueue[:0]
		s.spawnQueue = s.spawnQueue[:0]

		for _, idx := range s.removed {
			s.arena.Slot(idx).State = dots.PooledReserve
			s.reserve = append(s.reserve, idx)
		}
		s.removed = s.removed[:0]
		return nil
	})
}

// fulfil brings one dot to life for req. Requests over the population cap
// are dropped, and spawn requests whose site is occupied are blocked.
func (s *Simulation) fulfil(req *dots.Request, checkSite bool) bool {
	if s.alive >= s.tables.Game.MaxDots {
		s.stats.Dropped++
		return false
	}

	lv := s.tables.Ladder.Get(req.Level)
	if checkSite && s.sites != nil && s.sites.Occupied(req.Position, dots.HalfScale(lv.Size)) {
		s.stats.Blocked++
		return false
	}

	d := s.arena.Slot(s.takeSlot())
	reinit(d, lv, req)
	s.alive++
	s.stats.Spawned++

	if req.Strategy == dots.Manual {
		s.player = d.Handle
	}
	return true
}

// takeSlot picks the slot for the next reinit: the most recently removed
// dot first, then the most recently retired reserve dot, then a new slot.
func (s *Simulation) takeSlot() uint32 {
	if n := len(s.removed); n > 0 {
		idx := s.removed[n-1]
		s.removed = s.removed[:n-1]
		return idx
	}
	if n := len(s.reserve); n > 0 {
		idx := s.reserve[n-1]
		s.reserve = s.reserve[:n-1]
		return idx
	}
	return s.arena.Alloc()
}

// reinit overwrites every field of d. The generation moves on so that
// handles to the previous incarnation go stale.
func reinit(d *dots.Dot, lv *config.Level, req *dots.Request) {
	gen := d.Handle.Gen + 1
	if gen == 0 {
		gen = 1
	}
	size := float64(lv.Size)
	c := req.Color

	*d = dots.Dot{
		Handle:      dots.Handle{Index: d.Handle.Index, Gen: gen},
		State:       dots.Live,
		Score:       lv.Size,
		Level:       lv.Index,
		RGB:         dots.RGB{R: c.R * size, G: c.G * size, B: c.B * size},
		Team:        c,
		Position:    req.Position,
		Yaw:         dots.Yaw(req.Direction),
		Scale:       dots.Scale(lv.Size),
		InverseMass: 1 / size,
		Direction:   req.Direction,
		Strategy:    req.Strategy,
	}
}
