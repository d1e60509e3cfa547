package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dotarena/internal/config"
	"github.com/talgya/dotarena/internal/dots"
)

func TestZeroScoreIsRemovedSameTick(t *testing.T) {
	p := &stageHook{after: "death"}
	s := newTestSim(t, nil, Options{Observer: p})
	hs := spawnNow(t, s,
		request(0, dots.TeamRed, dots.RandomWander),
		request(4, dots.TeamRed, dots.RandomWander), // size 5, absorbs for -5
	)
	victim, absorber := hs[0], hs[1]
	dot(t, s, victim).Score = 5

	var stateAfterDeath dots.State
	var removedAfterDeath []uint32
	p.fn = func() {
		stateAfterDeath = s.arena.Slot(victim.Index).State
		removedAfterDeath = append([]uint32(nil), s.removed...)
	}

	require.NoError(t, s.Step(dt, []Contact{contact(absorber, victim)}))

	assert.Equal(t, dots.PooledRemoved, stateAfterDeath)
	assert.Equal(t, []uint32{victim.Index}, removedAfterDeath)

	// Unused removed dots retire to the reserve pool by the end of the tick.
	assert.Equal(t, dots.PooledReserve, s.arena.Slot(victim.Index).State)
	assert.Equal(t, []uint32{victim.Index}, s.reserve)
	assert.Empty(t, s.removed)
	assert.Equal(t, 0, s.arena.Slot(victim.Index).Score)
	assert.Equal(t, 6, dot(t, s, absorber).Score)
	assert.Equal(t, 1, s.Status().Alive)
	require.NoError(t, s.CheckInvariants())
}

func TestPopulationCapDropsExcessRequests(t *testing.T) {
	s := newTestSim(t, func(c *config.Settings) { c.MaxDots = 2 }, Options{})
	for range 3 {
		s.Spawn(request(0, dots.TeamGreen, dots.RandomWander))
	}
	require.NoError(t, s.Step(dt, nil))

	st := s.Status()
	assert.Equal(t, 2, st.Alive)
	assert.Equal(t, 2, st.Last.Spawned)
	assert.Equal(t, 1, st.Last.Dropped)
	assert.Equal(t, 2, st.Slots)
	require.NoError(t, s.CheckInvariants())
}

func TestReinitReusesReserveBeforeAllocating(t *testing.T) {
	s := newTestSim(t, nil, Options{})
	hs := spawnNow(t, s,
		request(0, dots.TeamRed, dots.RandomWander),
		request(4, dots.TeamBlue, dots.RandomWander),
	)
	victim := hs[0]
	require.NoError(t, s.Step(dt, []Contact{contact(hs[1], victim)}))
	require.False(t, s.arena.Live(victim))
	require.Equal(t, 2, s.arena.Len())

	req := request(3, dots.TeamGreen, dots.Manual)
	req.Position = dots.Vec3{X: 7, Z: -2}
	req.Direction = dots.Vec3{X: 1}
	reborn := spawnNow(t, s, req)[0]

	assert.Equal(t, victim.Index, reborn.Index)
	assert.Equal(t, victim.Gen+1, reborn.Gen)
	assert.Equal(t, 2, s.arena.Len())
	assert.Empty(t, s.reserve)

	_, err := s.arena.Get(victim)
	assert.ErrorIs(t, err, dots.ErrStaleHandle)

	// Nothing from the previous incarnation survives.
	d := dot(t, s, reborn)
	assert.Equal(t, 4, d.Score)
	assert.Equal(t, 3, d.Level)
	assert.Equal(t, dots.TeamColor(dots.TeamGreen), d.Team)
	assert.Equal(t, dots.RGB{G: 4}, d.RGB)
	assert.Equal(t, dots.Manual, d.Strategy)
	assert.Equal(t, req.Position, d.Position)
	assert.InDelta(t, dots.Scale(4), d.Scale, 1e-12)
	assert.InDelta(t, 0.25, d.InverseMass, 1e-12)
	assert.Zero(t, d.NextShootTime)
	assert.False(t, d.Collided)
	assert.False(t, d.ScoreChanged)
}

func TestReinitPrefersRemovedThisTick(t *testing.T) {
	s := newTestSim(t, nil, Options{})
	hs := spawnNow(t, s,
		request(0, dots.TeamRed, dots.RandomWander),
		request(4, dots.TeamBlue, dots.RandomWander),
	)
	victim := hs[0]

	s.Spawn(request(1, dots.TeamRed, dots.RandomWander))
	require.NoError(t, s.Step(dt, []Contact{contact(hs[1], victim)}))

	assert.Equal(t, 2, s.arena.Len())
	assert.Empty(t, s.reserve)
	assert.Empty(t, s.removed)
	d := s.arena.Slot(victim.Index)
	assert.Equal(t, dots.Live, d.State)
	assert.Equal(t, victim.Gen+1, d.Handle.Gen)
	assert.Equal(t, 2, s.Status().Alive)
	require.NoError(t, s.CheckInvariants())
}

func TestSiteCheckBlocksSpawnsOnly(t *testing.T) {
	s := newTestSim(t, nil, Options{Sites: occupiedEverywhere{}})
	s.Spawn(request(0, dots.TeamRed, dots.RandomWander))
	require.NoError(t, s.Step(dt, nil))

	assert.Equal(t, 1, s.stats.Blocked)
	assert.Equal(t, 0, s.Status().Alive)

	// Shots bypass the site check.
	s.shootQueue = append(s.shootQueue, request(0, dots.TeamRed, dots.DirectedShot))
	s.flags = FlagSpawnRequest
	require.NoError(t, fulfilStage().Run(s))
	assert.Equal(t, 1, s.alive)
}

type occupiedEverywhere struct{}

func (occupiedEverywhere) Occupied(dots.Vec3, float64) bool { return true }

func TestPoolsStayConsistentUnderLoad(t *testing.T) {
	for _, workers := range []int{1, 4} {
		s := newTestSim(t, func(c *config.Settings) {
			c.DotsPerWave = 4
			c.MaxDots = 40
			c.LevelCount = 12
			c.ShootLevelPercent = 25
			c.DotMaxSpawnLevel = 6
		}, Options{Workers: workers, ParallelMin: 1})

		rng := rand.New(rand.NewSource(7))
		var buf []Contact
		for range 400 {
			buf = randomContacts(rng, s, buf)
			require.NoError(t, s.Step(dt, buf))
			require.NoError(t, s.CheckInvariants())
		}

		st := s.Status()
		assert.LessOrEqual(t, st.Alive, 40)
		assert.LessOrEqual(t, st.Slots, 40)
		assert.Positive(t, st.Totals.Removed)
		assert.Positive(t, st.Totals.Spawned)
		assert.Positive(t, st.Totals.Shots)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	run := func(workers int) Frame {
		s := newTestSim(t, func(c *config.Settings) {
			c.DotsPerWave = 5
			c.MaxDots = 60
			c.ShootLevelPercent = 25
			c.DotMaxSpawnLevel = 8
		}, Options{Workers: workers, ParallelMin: 1})

		rng := rand.New(rand.NewSource(99))
		var buf []Contact
		for range 150 {
			buf = randomContacts(rng, s, buf)
			require.NoError(t, s.Step(dt, buf))
		}
		return s.Frame(nil)
	}

	seq := run(1)
	require.NotEmpty(t, seq.Dots)
	assert.Equal(t, seq, run(4))
	assert.Equal(t, seq, run(3))
}
