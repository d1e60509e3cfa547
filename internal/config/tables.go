package config

import "time"

// GameSettings are the global tuning constants the tick stages read.
type GameSettings struct {
	FireRate      float64
	WaveInterval  time.Duration
	DotsPerWave   int
	MaxDots       int
	MaxSpawnLevel int // Highest spawnable level number, 1-based
}

// ShootInterval is the cooldown between two shots of the same dot.
func (g GameSettings) ShootInterval() float64 {
	return 1 / g.FireRate
}

// Tables bundles the three immutable tables built at startup.
type Tables struct {
	Settings      Settings
	Game          GameSettings
	Ladder        *Ladder
	Relationships *RelationshipTable
}

// Build validates s and precomputes all tables. It is the only place invalid
// configuration is rejected; the simulation assumes validated tables after.
func Build(s Settings) (*Tables, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	maxSpawn := s.DotMaxSpawnLevel
	if maxSpawn > s.LevelCount-1 {
		maxSpawn = s.LevelCount - 1
	}

	ladder := NewLadder(s)
	return &Tables{
		Settings: s,
		Game: GameSettings{
			FireRate:      s.FireRate,
			WaveInterval:  s.WaveInterval,
			DotsPerWave:   s.DotsPerWave,
			MaxDots:       s.MaxDots,
			MaxSpawnLevel: maxSpawn,
		},
		Ladder:        ladder,
		Relationships: NewRelationshipTable(ladder),
	}, nil
}
