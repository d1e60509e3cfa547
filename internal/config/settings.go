// Package config builds the immutable tables the simulation reads every tick:
// global tuning constants, the level ladder, and the level relationship table.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrInvalidSettings is returned when authoring input cannot produce a usable
// set of tables.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the authoring-time input. It is read once at startup.
type Settings struct {
	// Spawn settings.
	WaveInterval     time.Duration // Time between spawn waves
	DotMaxSpawnLevel int           // Highest level number a wave may spawn (1-based)
	DotsPerWave      int
	MaxDots          int     // Population cap
	FireRate         float64 // Shots per second per dot

	// Level settings.
	LevelCount        int
	ShootLevelPercent int
	StartSpeed        float64 // Speed of level 0
	MinSpeed          float64 // Speed the ladder interpolates toward

	// Arena spawn area, centered on the origin in the XZ plane.
	ArenaHalfWidth float64
	ArenaHalfDepth float64

	Seed int64
}

// Default returns the stock arena tuning.
func Default() Settings {
	return Settings{
		WaveInterval:      time.Second,
		DotMaxSpawnLevel:  2,
		DotsPerWave:       3,
		MaxDots:           50,
		FireRate:          3,
		LevelCount:        30,
		ShootLevelPercent: 25,
		StartSpeed:        20,
		MinSpeed:          5,
		ArenaHalfWidth:    400,
		ArenaHalfDepth:    150,
		Seed:              12345,
	}
}

// Validate rejects settings that would produce a degenerate ladder or an
// unusable population cap.
func (s Settings) Validate() error {
	switch {
	case s.LevelCount < 1:
		return fmt.Errorf("%w: level count %d, need at least 1", ErrInvalidSettings, s.LevelCount)
	case s.MaxDots < 0:
		return fmt.Errorf("%w: negative population cap %d", ErrInvalidSettings, s.MaxDots)
	case s.DotsPerWave < 0:
		return fmt.Errorf("%w: negative wave size %d", ErrInvalidSettings, s.DotsPerWave)
	case s.FireRate <= 0:
		return fmt.Errorf("%w: fire rate must be positive, got %g", ErrInvalidSettings, s.FireRate)
	case s.WaveInterval <= 0:
		return fmt.Errorf("%w: wave interval must be positive, got %s", ErrInvalidSettings, s.WaveInterval)
	case s.MinSpeed < 0 || s.StartSpeed < s.MinSpeed:
		return fmt.Errorf("%w: speeds must satisfy start >= min >= 0, got start=%g min=%g",
			ErrInvalidSettings, s.StartSpeed, s.MinSpeed)
	case s.ShootLevelPercent < 0 || s.ShootLevelPercent > 100:
		return fmt.Errorf("%w: shoot level percent %d outside [0,100]", ErrInvalidSettings, s.ShootLevelPercent)
	case s.ArenaHalfWidth <= 0 || s.ArenaHalfDepth <= 0:
		return fmt.Errorf("%w: arena extents must be positive", ErrInvalidSettings)
	}
	return nil
}

// FromEnv overlays DOTARENA_* environment variables on base.
func FromEnv(base Settings) (Settings, error) {
	s := base
	var err error

	if s.WaveInterval, err = envDuration("DOTARENA_WAVE_INTERVAL", s.WaveInterval); err != nil {
		return s, err
	}
	if s.DotMaxSpawnLevel, err = envInt("DOTARENA_MAX_SPAWN_LEVEL", s.DotMaxSpawnLevel); err != nil {
		return s, err
	}
	if s.DotsPerWave, err = envInt("DOTARENA_DOTS_PER_WAVE", s.DotsPerWave); err != nil {
		return s, err
	}
	if s.MaxDots, err = envInt("DOTARENA_MAX_DOTS", s.MaxDots); err != nil {
		return s, err
	}
	if s.FireRate, err = envFloat("DOTARENA_FIRE_RATE", s.FireRate); err != nil {
		return s, err
	}
	if s.LevelCount, err = envInt("DOTARENA_LEVEL_COUNT", s.LevelCount); err != nil {
		return s, err
	}
	if s.ShootLevelPercent, err = envInt("DOTARENA_SHOOT_LEVEL_PERCENT", s.ShootLevelPercent); err != nil {
		return s, err
	}
	if s.StartSpeed, err = envFloat("DOTARENA_START_SPEED", s.StartSpeed); err != nil {
		return s, err
	}
	if s.MinSpeed, err = envFloat("DOTARENA_MIN_SPEED", s.MinSpeed); err != nil {
		return s, err
	}
	if s.ArenaHalfWidth, err = envFloat("DOTARENA_ARENA_HALF_WIDTH", s.ArenaHalfWidth); err != nil {
		return s, err
	}
	if s.ArenaHalfDepth, err = envFloat("DOTARENA_ARENA_HALF_DEPTH", s.ArenaHalfDepth); err != nil {
		return s, err
	}
	seed, err := envInt("DOTARENA_SEED", int(s.Seed))
	if err != nil {
		return s, err
	}
	s.Seed = int64(seed)
	return s, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
