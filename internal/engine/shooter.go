package engine

import "github.com/talgya/dotarena/internal/dots"

// shotGap is the clearance between a shooter and its projectile at spawn.
const shotGap = 0.2

// shooterStage lets every ready dot whose level has a shoot target fire a
// projectile dot. At the population cap the shot still uses up the cooldown
// but is dropped instead of queued.
func shooterStage() Stage {
	return NewStage("shooter", 0, func(s *Simulation) error {
		g := s.tables.Game
		full := s.alive >= g.MaxDots
		interval := g.ShootInterval()

		slots := s.arena.Slots()
		for i := range slots {
			d := &slots[i]
			if d.State != dots.Live || s.elapsed < d.NextShootTime {
				continue
			}
			lv := s.tables.Ladder.Get(d.Level)
			if lv.ShootTarget == nil {
				continue
			}

			d.NextShootTime = s.elapsed + interval
			if full {
				s.stats.Dropped++
				continue
			}

			forward := d.Forward()
			offset := dots.HalfScale(lv.Size) + dots.HalfScale(lv.ShootTarget.Size) + shotGap

			s.shootQueue = append(s.shootQueue, dots.Request{
				Level:     lv.ShootTarget.Index,
				Strategy:  dots.DirectedShot,
				Position:  d.Position.Add(forward.Scale(offset)),
				Color:     d.Team,
				Direction: forward,
			})
			s.stats.Shots++
		}
		if len(s.shootQueue) > 0 {
			s.flags.Set(FlagSpawnRequest)
		}
		return nil
	})
}
