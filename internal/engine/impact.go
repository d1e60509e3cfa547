package engine

import (
	"sync/atomic"

	"github.com/talgya/dotarena/internal/dots"
)

// impactStage resolves the tick's collision events in two phases. Fill maps
// each event through the relationship table into the impact map; apply then
// folds every target's impacts into its state. Apply only starts once fill
// and seal have returned, so no dot is written while others still read it.
func impactStage() Stage {
	return NewStage("impact", FlagCollision, func(s *Simulation) error {
		if err := s.fillImpacts(); err != nil {
			return err
		}
		s.impacts.Seal()
		if s.impacts.Len() == 0 {
			return nil
		}
		if err := s.applyImpacts(); err != nil {
			return err
		}
		s.flags.Set(FlagImpact)
		return nil
	})
}

func (s *Simulation) fillImpacts() error {
	n := len(s.events)
	s.impacts.Reset(s.shards(n), s.arena.Len())

	var stale atomic.Int64
	err := s.forEachRange(n, func(lo, hi, shard int) error {
		for _, ev := range s.events[lo:hi] {
			tgt, err := s.arena.Get(ev.Target)
			if err != nil {
				stale.Add(1)
				continue
			}
			if !ev.Source.Valid() {
				// Something that carries no level or team: the target
				// still registers the hit.
				s.impacts.Add(shard, ev.Target.Index, Impact{})
				continue
			}
			src, err := s.arena.Get(ev.Source)
			if err != nil {
				stale.Add(1)
				continue
			}
			s.impacts.Add(shard, ev.Target.Index, s.resolve(src, tgt))
		}
		return nil
	})
	s.stats.StaleEvents += int(stale.Load())
	return err
}

// resolve computes the impact src has on tgt.
func (s *Simulation) resolve(src, tgt *dots.Dot) Impact {
	rel := s.tables.Relationships.Get(src.Level, tgt.Level, src.Team == tgt.Team)
	return Impact{
		XP:    rel.XPImpact,
		Color: dots.ColorImpact(src.Team, rel.ColorImpact),
	}
}

func (s *Simulation) applyImpacts() error {
	slots := s.arena.Slots()

	var hit atomic.Int64
	err := s.forEachRange(len(slots), func(lo, hi, _ int) error {
		for i := lo; i < hi; i++ {
			imps := s.impacts.For(uint32(i))
			if len(imps) == 0 {
				continue
			}
			d := &slots[i]
			for _, imp := range imps {
				d.Score += imp.XP
				d.RGB = d.RGB.Add(imp.Color)
			}
			d.Collided = true
			d.ScoreChanged = true
			hit.Add(1)
		}
		return nil
	})
	s.stats.Impacted = int(hit.Load())
	return err
}
