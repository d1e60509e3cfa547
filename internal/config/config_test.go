package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeLevels() Settings {
	s := Default()
	s.LevelCount = 3
	return s
}

func TestRelationshipTableRules(t *testing.T) {
	tables, err := Build(Default())
	require.NoError(t, err)

	ladder := tables.Ladder
	n := ladder.Len()
	require.Equal(t, 2*n*n, len(tables.Relationships.rels))

	for src := 0; src < n; src++ {
		srcSize := ladder.Get(src).Size
		for tgt := 0; tgt < n; tgt++ {
			tgtSize := ladder.Get(tgt).Size
			for _, same := range []bool{true, false} {
				rel := tables.Relationships.Get(src, tgt, same)
				switch {
				case srcSize == tgtSize:
					assert.Equal(t, Relationship{0, srcSize}, rel)
				case !same:
					assert.Equal(t, Relationship{-srcSize, srcSize}, rel)
				case srcSize > tgtSize:
					assert.Equal(t, Relationship{-srcSize, 0}, rel)
				default:
					assert.Equal(t, Relationship{srcSize, srcSize}, rel)
				}
			}
		}
	}
}

func TestRelationshipScenarioSmallHitsLarge(t *testing.T) {
	tables, err := Build(threeLevels())
	require.NoError(t, err)

	// Level index 0 has size 1, index 2 has size 3.
	onLarge := tables.Relationships.Get(0, 2, true)
	onSmall := tables.Relationships.Get(2, 0, true)

	assert.Equal(t, Relationship{XPImpact: 1, ColorImpact: 1}, onLarge)
	assert.Equal(t, Relationship{XPImpact: -3, ColorImpact: 0}, onSmall)
}

func TestRelationshipLookupClamps(t *testing.T) {
	tables, err := Build(threeLevels())
	require.NoError(t, err)

	rel := tables.Relationships.Get(-7, 99, false)
	assert.Equal(t, tables.Relationships.Get(0, 2, false), rel)
}

func TestLadderSpeedsAndSizes(t *testing.T) {
	s := Default()
	ladder := NewLadder(s)

	require.Equal(t, s.LevelCount, ladder.Len())
	assert.Equal(t, s.StartSpeed, ladder.Get(0).Speed)

	for i := 1; i < ladder.Len(); i++ {
		prev, cur := ladder.Get(i-1), ladder.Get(i)
		assert.Equal(t, i+1, cur.Size)
		assert.Greater(t, cur.Size, prev.Size)
		assert.LessOrEqual(t, cur.Speed, prev.Speed)
		assert.GreaterOrEqual(t, cur.Speed, s.MinSpeed)
	}
}

func TestLadderShootTargets(t *testing.T) {
	ladder := NewLadder(Default())

	// 25%: i/4 rounded half-to-even, minus one.
	cases := map[int]int{0: -1, 1: -1, 2: -1, 3: 0, 4: 0, 6: 1, 10: 1, 12: 2, 29: 6}
	for idx, want := range cases {
		lv := ladder.Get(idx)
		if want < 0 {
			assert.Nil(t, lv.ShootTarget, "level %d", idx)
			continue
		}
		require.NotNil(t, lv.ShootTarget, "level %d", idx)
		assert.Equal(t, want, lv.ShootTarget.Index, "level %d", idx)
		assert.Same(t, ladder.Get(want), lv.ShootTarget)
	}
}

func TestLadderClampAndScore(t *testing.T) {
	ladder := NewLadder(threeLevels())

	assert.Equal(t, 0, ladder.Get(-3).Index)
	assert.Equal(t, 2, ladder.Get(10).Index)
	assert.Equal(t, 0, ladder.FromScore(-5).Index)
	assert.Equal(t, 1, ladder.FromScore(1).Index)
	assert.Equal(t, 2, ladder.FromScore(50).Index)
}

func TestLevelsInfo(t *testing.T) {
	info := NewLadder(Default()).Levels()
	assert.Equal(t, -1, info[0].ShootTarget)
	assert.Equal(t, 0, info[3].ShootTarget)
}

func TestBuildRejectsDegenerateSettings(t *testing.T) {
	cases := map[string]func(*Settings){
		"zero levels":       func(s *Settings) { s.LevelCount = 0 },
		"negative cap":      func(s *Settings) { s.MaxDots = -1 },
		"negative wave":     func(s *Settings) { s.DotsPerWave = -2 },
		"zero fire rate":    func(s *Settings) { s.FireRate = 0 },
		"zero interval":     func(s *Settings) { s.WaveInterval = 0 },
		"inverted speeds":   func(s *Settings) { s.StartSpeed, s.MinSpeed = 1, 5 },
		"percent too large": func(s *Settings) { s.ShootLevelPercent = 101 },
		"empty arena":       func(s *Settings) { s.ArenaHalfWidth = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := Default()
			mutate(&s)
			_, err := Build(s)
			require.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestBuildClampsMaxSpawnLevel(t *testing.T) {
	s := threeLevels()
	s.DotMaxSpawnLevel = 10

	tables, err := Build(s)
	require.NoError(t, err)
	assert.Equal(t, 2, tables.Game.MaxSpawnLevel)
	assert.InDelta(t, 1.0/3.0, tables.Game.ShootInterval(), 1e-12)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DOTARENA_MAX_DOTS", "7")
	t.Setenv("DOTARENA_WAVE_INTERVAL", "250ms")
	t.Setenv("DOTARENA_FIRE_RATE", "1.5")
	t.Setenv("DOTARENA_SEED", "99")

	s, err := FromEnv(Default())
	require.NoError(t, err)
	assert.Equal(t, 7, s.MaxDots)
	assert.Equal(t, 250*time.Millisecond, s.WaveInterval)
	assert.Equal(t, 1.5, s.FireRate)
	assert.Equal(t, int64(99), s.Seed)
	assert.Equal(t, Default().LevelCount, s.LevelCount)
}

func TestFromEnvParseError(t *testing.T) {
	t.Setenv("DOTARENA_LEVEL_COUNT", "many")

	_, err := FromEnv(Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOTARENA_LEVEL_COUNT")
}
