package engine

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/dotarena/internal/dots"
)

const (
	spawnAttempts    = 6
	densityOctaves   = 3
	densityFrequency = 1.0 / 160
)

// Spawner enqueues waves of wandering dots. Sites are drawn uniformly over
// the arena and accepted with a probability given by a slowly varying noise
// field, so waves cluster instead of spreading evenly.
type Spawner struct {
	rng       *rand.Rand
	density   opensimplex.Noise
	nextSpawn float64 // Elapsed seconds
}

// NewSpawner creates a spawner with a deterministic random source.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:     rand.New(rand.NewSource(seed + 300)),
		density: opensimplex.NewNormalized(seed),
	}
}

// Wave enqueues the next wave if it is due and there is room. It returns the
// number of requests queued.
func (sp *Spawner) Wave(s *Simulation) int {
	g := s.tables.Game
	if s.elapsed < sp.nextSpawn || s.alive >= g.MaxDots {
		return 0
	}
	sp.nextSpawn = s.elapsed + g.WaveInterval.Seconds()

	n := 0
	for i := 0; i < g.DotsPerWave && s.alive+s.queued() < g.MaxDots; i++ {
		s.spawnQueue = append(s.spawnQueue, sp.request(s))
		n++
	}
	return n
}

func (sp *Spawner) request(s *Simulation) dots.Request {
	levelNumber := 1 + sp.rng.Intn(max(s.tables.Game.MaxSpawnLevel, 1))
	return dots.Request{
		Level:     levelNumber - 1,
		Strategy:  dots.RandomWander,
		Position:  sp.site(s.tables.Settings.ArenaHalfWidth, s.tables.Settings.ArenaHalfDepth),
		Color:     dots.TeamColor(dots.Team(sp.rng.Intn(dots.TeamCount))),
		Direction: randomHeading(sp.rng),
	}
}

func (sp *Spawner) site(halfW, halfD float64) dots.Vec3 {
	var p dots.Vec3
	for range spawnAttempts {
		p = dots.Vec3{
			X: (sp.rng.Float64()*2 - 1) * halfW,
			Z: (sp.rng.Float64()*2 - 1) * halfD,
		}
		if sp.rng.Float64() < sp.densityAt(p.X, p.Z) {
			break
		}
	}
	return p
}

// densityAt samples octave noise in [0, 1].
func (sp *Spawner) densityAt(x, z float64) float64 {
	total, amplitude, maxVal := 0.0, 1.0, 0.0
	frequency := densityFrequency
	for range densityOctaves {
		total += sp.density.Eval2(x*frequency, z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	return total / maxVal
}

func spawnerStage() Stage {
	return NewStage("spawner", 0, func(s *Simulation) error {
		if n := s.spawner.Wave(s); n > 0 {
			s.stats.Requested += n
			s.flags.Set(FlagSpawnRequest)
		}
		return nil
	})
}
