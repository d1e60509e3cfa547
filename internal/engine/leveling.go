package engine

import (
	"sync/atomic"

	"github.com/talgya/dotarena/internal/dots"
)

// levelingStage recomputes the level of every dot whose score changed. The
// dot is only written when the level actually moves.
func levelingStage() Stage {
	return NewStage("leveling", FlagImpact, func(s *Simulation) error {
		slots := s.arena.Slots()
		var changed atomic.Int64
		err := s.forEachRange(len(slots), func(lo, hi, _ int) error {
			for i := lo; i < hi; i++ {
				d := &slots[i]
				if d.State != dots.Live || !d.ScoreChanged {
					continue
				}
				if s.relevel(d) {
					changed.Add(1)
				}
			}
			return nil
		})
		s.stats.LevelChanges = int(changed.Load())
		return err
	})
}

// relevel applies the score-to-level policy and reports whether d changed.
func (s *Simulation) relevel(d *dots.Dot) bool {
	lv := s.tables.Ladder.FromScore(d.Score)
	if lv.Index == d.Level {
		return false
	}
	d.Level = lv.Index
	d.Scale = dots.Scale(lv.Size)
	return true
}
