package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talgya/dotarena/internal/config"
	"github.com/talgya/dotarena/internal/dots"
)

const dt = 0.1

// quietSettings disables waves and shooting so tests control every dot.
func quietSettings() config.Settings {
	s := config.Default()
	s.DotsPerWave = 0
	s.ShootLevelPercent = 0
	return s
}

func newTestSim(t *testing.T, mut func(*config.Settings), opts Options) *Simulation {
	t.Helper()
	s := quietSettings()
	if mut != nil {
		mut(&s)
	}
	tables, err := config.Build(s)
	require.NoError(t, err)
	return NewSimulation(tables, opts)
}

func request(level int, team dots.Team, strategy dots.Strategy) dots.Request {
	return dots.Request{
		Level:     level,
		Strategy:  strategy,
		Color:     dots.TeamColor(team),
		Direction: dots.FromYaw(0),
	}
}

// spawnNow queues reqs and runs one empty tick so they become live. It
// returns the handles in request order.
func spawnNow(t *testing.T, s *Simulation, reqs ...dots.Request) []dots.Handle {
	t.Helper()
	before := liveHandles(s)
	for _, r := range reqs {
		s.Spawn(r)
	}
	require.NoError(t, s.Step(dt, nil))

	known := make(map[dots.Handle]bool, len(before))
	for _, h := range before {
		known[h] = true
	}
	var out []dots.Handle
	for _, h := range liveHandles(s) {
		if !known[h] {
			out = append(out, h)
		}
	}
	require.Len(t, out, len(reqs))
	return out
}

func liveHandles(s *Simulation) []dots.Handle {
	var out []dots.Handle
	for _, d := range s.arena.Slots() {
		if d.State == dots.Live {
			out = append(out, d.Handle)
		}
	}
	return out
}

func dot(t *testing.T, s *Simulation, h dots.Handle) *dots.Dot {
	t.Helper()
	d, err := s.arena.Get(h)
	require.NoError(t, err)
	return d
}

func contact(a, b dots.Handle) Contact {
	return Contact{A: a, B: b}
}

// randomContacts pairs up random live dots.
func randomContacts(rng *rand.Rand, s *Simulation, buf []Contact) []Contact {
	buf = buf[:0]
	live := liveHandles(s)
	if len(live) < 2 {
		return buf
	}
	for i := 0; i < len(live)/2; i++ {
		a := live[rng.Intn(len(live))]
		b := live[rng.Intn(len(live))]
		buf = append(buf, contact(a, b))
		if rng.Intn(3) == 0 {
			buf = append(buf, contact(b, a))
		}
	}
	return buf
}

// stageHook runs fn right after the named stage finishes.
type stageHook struct {
	after string
	fn    func()
	ran   []string
	skip  []string
	ticks int
}

func (p *stageHook) StageDone(_ uint64, stage string, _ time.Duration, skipped bool) {
	if skipped {
		p.skip = append(p.skip, stage)
		return
	}
	p.ran = append(p.ran, stage)
	if stage == p.after && p.fn != nil {
		p.fn()
	}
}

func (p *stageHook) TickDone(uint64, time.Duration, TickStats) {
	p.ticks++
}
