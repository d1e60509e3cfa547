package config

// Relationship is the outcome one collision has on its target.
type Relationship struct {
	XPImpact    int
	ColorImpact int
}

// RelationshipTable is a dense lookup of collision outcomes indexed by
// (source level, target level, same team). It is built once and never
// mutated, so concurrent readers need no locking.
type RelationshipTable struct {
	rels       []Relationship
	levelCount int
}

// NewRelationshipTable precomputes every (source, target, sameTeam) outcome
// for the ladder.
func NewRelationshipTable(ladder *Ladder) *RelationshipTable {
	n := ladder.Len()
	t := &RelationshipTable{
		rels:       make([]Relationship, 2*n*n),
		levelCount: n,
	}

	i := 0
	for src := 0; src < n; src++ {
		srcSize := ladder.Get(src).Size
		for tgt := 0; tgt < n; tgt++ {
			tgtSize := ladder.Get(tgt).Size
			for s := 0; s < 2; s++ {
				t.rels[i] = impactOnTarget(s == 0, srcSize, tgtSize)
				i++
			}
		}
	}
	return t
}

// impactOnTarget encodes the collision rules:
//   - equal sizes: no XP change, colour reward equal to the source size;
//   - same team, larger source: the source absorbs the target;
//   - same team, smaller source: the target absorbs the source;
//   - different teams damage each other.
func impactOnTarget(sameTeam bool, srcSize, tgtSize int) Relationship {
	if srcSize == tgtSize {
		return Relationship{XPImpact: 0, ColorImpact: srcSize}
	}
	if sameTeam {
		if srcSize > tgtSize {
			return Relationship{XPImpact: -srcSize, ColorImpact: 0}
		}
		return Relationship{XPImpact: srcSize, ColorImpact: srcSize}
	}
	return Relationship{XPImpact: -srcSize, ColorImpact: srcSize}
}

// LevelCount returns the ladder size the table was built for.
func (t *RelationshipTable) LevelCount() int {
	return t.levelCount
}

// Get looks up the outcome of source hitting target. Levels are clamped to
// the table bounds, so the lookup is total.
func (t *RelationshipTable) Get(src, tgt int, sameTeam bool) Relationship {
	return t.rels[t.index(t.clamp(src), t.clamp(tgt), sameTeam)]
}

func (t *RelationshipTable) index(src, tgt int, sameTeam bool) int {
	team := 1
	if sameTeam {
		team = 0
	}
	return src*t.levelCount*2 + tgt*2 + team
}

func (t *RelationshipTable) clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level >= t.levelCount {
		return t.levelCount - 1
	}
	return level
}
