package engine

import "github.com/talgya/dotarena/internal/dots"

// Contact is one raw contact reported by the physics layer. A physical pair
// may produce many contacts per tick, in any order.
type Contact struct {
	A, B   dots.Handle
	Normal dots.Vec3
}

// CollisionEvent is a directed collision: Source hit Target.
type CollisionEvent struct {
	Source dots.Handle
	Target dots.Handle
}

type pairKey struct {
	lo, hi dots.Handle
}

func makePairKey(a, b dots.Handle) pairKey {
	if b.Index < a.Index || (b.Index == a.Index && b.Gen < a.Gen) {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Aggregator collapses raw contacts into directed collision events. The seen
// set is cleared, not reallocated, between ticks.
type Aggregator struct {
	seen map[pairKey]struct{}
}

// NewAggregator returns an aggregator sized for about capacity pairs.
func NewAggregator(capacity int) *Aggregator {
	return &Aggregator{seen: make(map[pairKey]struct{}, capacity)}
}

// Aggregate appends to out exactly two events, A→B and B→A, for every
// unordered pair present in contacts, in the order pairs were first seen.
// Self contacts are ignored.
func (a *Aggregator) Aggregate(contacts []Contact, out []CollisionEvent) []CollisionEvent {
	clear(a.seen)
	for _, c := range contacts {
		if c.A == c.B {
			continue
		}
		k := makePairKey(c.A, c.B)
		if _, ok := a.seen[k]; ok {
			continue
		}
		a.seen[k] = struct{}{}
		out = append(out,
			CollisionEvent{Source: c.A, Target: c.B},
			CollisionEvent{Source: c.B, Target: c.A},
		)
	}
	return out
}

func collisionStage() Stage {
	return NewStage("collision", 0, func(s *Simulation) error {
		s.events = s.aggregator.Aggregate(s.contacts, s.events[:0])
		s.stats.Contacts = len(s.contacts)
		s.stats.Events = len(s.events)
		if len(s.events) > 0 {
			s.flags.Set(FlagCollision)
		}
		return nil
	})
}
