// Simulation owns all dot state and runs the tick pipeline over it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/dotarena/internal/config"
	"github.com/talgya/dotarena/internal/dots"
)

// PhysicsWorld is the collision layer the simulation consumes. Integrate
// moves live dots by their velocity; Contacts appends the tick's raw contacts
// to buf.
type PhysicsWorld interface {
	Integrate(a *dots.Arena, dt float64)
	Contacts(a *dots.Arena, buf []Contact) []Contact
}

// SiteChecker reports whether a spawn site is already occupied.
type SiteChecker interface {
	Occupied(pos dots.Vec3, radius float64) bool
}

// Options tune how a Simulation executes. The zero value runs every stage
// inline with no physics attached.
type Options struct {
	Workers     int // Parallel workers per stage; <= 1 runs inline
	ParallelMin int // Items below which stages stay inline (0 = default)
	Physics     PhysicsWorld
	Sites       SiteChecker
	Observer    StageObserver
}

// Simulation is the explicit context every stage receives. The removed and
// reserve pools and the alive counter are written only by the lifecycle
// stages.
type Simulation struct {
	mu sync.RWMutex

	tables *config.Tables
	arena  *dots.Arena

	flags   Flags
	tick    uint64
	elapsed float64 // Simulated seconds
	dt      float64

	workers     int
	parallelMin int
	rng         *rand.Rand

	contacts   []Contact
	events     []CollisionEvent
	aggregator *Aggregator
	impacts    ImpactMap

	spawnQueue []dots.Request
	shootQueue []dots.Request
	removed    []uint32
	reserve    []uint32
	alive      int

	inputMu sync.Mutex
	inputs  []directionInput
	pending []dots.Request
	player  dots.Handle

	physics  PhysicsWorld
	sites    SiteChecker
	spawner  *Spawner
	pipeline *Pipeline
	observer StageObserver

	stats  TickStats
	totals Totals
}

// TickStats counts what happened during the last tick.
type TickStats struct {
	Tick         uint64 `json:"tick"`
	Contacts     int    `json:"contacts"`
	Events       int    `json:"events"`
	StaleEvents  int    `json:"stale_events"`
	Impacted     int    `json:"impacted"`
	LevelChanges int    `json:"level_changes"`
	Removed      int    `json:"removed"`
	Requested    int    `json:"requested"`
	Shots        int    `json:"shots"`
	Spawned      int    `json:"spawned"`
	Dropped      int    `json:"dropped"`
	Blocked      int    `json:"blocked"`
	StaleInputs  int    `json:"stale_inputs"`
	Alive        int    `json:"alive"`
	Flags        Flags  `json:"flags"`
}

// Totals accumulates TickStats over the whole run.
type Totals struct {
	Ticks   uint64 `json:"ticks"`
	Events  uint64 `json:"events"`
	Removed uint64 `json:"removed"`
	Shots   uint64 `json:"shots"`
	Spawned uint64 `json:"spawned"`
	Dropped uint64 `json:"dropped"`
	Blocked uint64 `json:"blocked"`
}

func (t *Totals) add(st TickStats) {
	t.Ticks++
	t.Events += uint64(st.Events)
	t.Removed += uint64(st.Removed)
	t.Shots += uint64(st.Shots)
	t.Spawned += uint64(st.Spawned)
	t.Dropped += uint64(st.Dropped)
	t.Blocked += uint64(st.Blocked)
}

// NewSimulation creates an empty arena for the given tables. Dots only appear
// through spawn requests.
func NewSimulation(t *config.Tables, opts Options) *Simulation {
	maxDots := t.Game.MaxDots
	s := &Simulation{
		tables:      t,
		arena:       dots.NewArena(maxDots),
		workers:     opts.Workers,
		parallelMin: opts.ParallelMin,
		rng:         rand.New(rand.NewSource(t.Settings.Seed)),
		aggregator:  NewAggregator(maxDots * 4),
		removed:     make([]uint32, 0, maxDots),
		reserve:     make([]uint32, 0, maxDots),
		spawnQueue:  make([]dots.Request, 0, t.Game.DotsPerWave+1),
		shootQueue:  make([]dots.Request, 0, maxDots),
		physics:     opts.Physics,
		sites:       opts.Sites,
		spawner:     NewSpawner(t.Settings.Seed),
		observer:    opts.Observer,
	}
	if s.parallelMin <= 0 {
		s.parallelMin = defaultParallelMin
	}

	s.pipeline = NewPipeline().
		Then(collisionStage()).
		Then(impactStage()).
		Then(levelingStage()).
		Then(colorStage()).
		Then(deathStage()).
		Then(targetingStage()).
		Then(spawnerStage()).
		Then(shooterStage()).
		Then(fulfilStage()).
		Then(velocityStage())
	s.pipeline.Observe(opts.Observer)
	return s
}

// Tables returns the immutable tables the simulation was built from.
func (s *Simulation) Tables() *config.Tables {
	return s.tables
}

// Stages lists the pipeline stages in execution order.
func (s *Simulation) Stages() []string {
	return s.pipeline.Names()
}

// Advance runs one tick of length dt, using the attached physics world to
// move dots and produce the tick's contacts.
func (s *Simulation) Advance(dt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.physics != nil {
		s.physics.Integrate(s.arena, dt)
		s.contacts = s.physics.Contacts(s.arena, s.contacts[:0])
	} else {
		s.contacts = s.contacts[:0]
	}
	return s.runTick(dt)
}

// Step runs one tick of length dt with an explicit contact list, bypassing
// the physics world.
func (s *Simulation) Step(dt float64, contacts []Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contacts = append(s.contacts[:0], contacts...)
	return s.runTick(dt)
}

func (s *Simulation) runTick(dt float64) error {
	start := time.Now()

	s.tick++
	s.dt = dt
	s.elapsed += dt
	s.flags = 0
	s.stats = TickStats{Tick: s.tick}

	s.applyInputs()
	if len(s.spawnQueue) > 0 {
		s.flags.Set(FlagSpawnRequest)
	}

	if err := s.pipeline.Run(s); err != nil {
		return fmt.Errorf("tick %d: %w", s.tick, err)
	}

	s.stats.Alive = s.alive
	s.stats.Flags = s.flags
	s.totals.add(s.stats)

	if s.observer != nil {
		s.observer.TickDone(s.tick, time.Since(start), s.stats)
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("tick",
			"tick", s.tick,
			"flags", s.flags.String(),
			"alive", s.alive,
			"events", s.stats.Events,
			"removed", s.stats.Removed,
			"spawned", s.stats.Spawned,
			"dropped", s.stats.Dropped,
		)
	}
	return nil
}

// Spawn queues a spawn request for the next tick.
func (s *Simulation) Spawn(req dots.Request) {
	s.inputMu.Lock()
	s.pending = append(s.pending, req)
	s.inputMu.Unlock()
}

// queued counts requests waiting for the lifecycle manager this tick.
func (s *Simulation) queued() int {
	return len(s.spawnQueue) + len(s.shootQueue)
}

// Status is a point-in-time summary of the simulation.
type Status struct {
	Tick    uint64    `json:"tick" msgpack:"tick"`
	Elapsed float64   `json:"elapsed" msgpack:"elapsed"`
	Alive   int       `json:"alive" msgpack:"alive"`
	MaxDots int       `json:"max_dots" msgpack:"max_dots"`
	Slots   int       `json:"slots" msgpack:"slots"`
	Reserve int       `json:"reserve" msgpack:"reserve"`
	Last    TickStats `json:"last" msgpack:"last"`
	Totals  Totals    `json:"totals" msgpack:"totals"`
}

// Status returns the current summary.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Tick:    s.tick,
		Elapsed: s.elapsed,
		Alive:   s.alive,
		MaxDots: s.tables.Game.MaxDots,
		Slots:   s.arena.Len(),
		Reserve: len(s.reserve),
		Last:    s.stats,
		Totals:  s.totals,
	}
}

// CheckInvariants verifies the pool bookkeeping: the alive counter matches the
// live slots, the cap holds, and every pooled slot sits in exactly one pool.
func (s *Simulation) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := s.arena.CountLive()
	if live != s.alive {
		return fmt.Errorf("alive counter %d, live slots %d", s.alive, live)
	}
	if s.alive > s.tables.Game.MaxDots {
		return fmt.Errorf("alive %d over cap %d", s.alive, s.tables.Game.MaxDots)
	}

	seen := make([]bool, s.arena.Len())
	check := func(pool []uint32, want dots.State) error {
		for _, idx := range pool {
			if int(idx) >= len(seen) {
				return fmt.Errorf("pool entry %d out of range", idx)
			}
			if seen[idx] {
				return fmt.Errorf("slot %d pooled twice", idx)
			}
			seen[idx] = true
			if st := s.arena.Slot(idx).State; st != want {
				return fmt.Errorf("slot %d in %s pool has state %s", idx, want, st)
			}
		}
		return nil
	}
	if err := check(s.removed, dots.PooledRemoved); err != nil {
		return err
	}
	if err := check(s.reserve, dots.PooledReserve); err != nil {
		return err
	}
	for i, d := range s.arena.Slots() {
		if d.State != dots.Live && !seen[i] {
			return fmt.Errorf("slot %d is %s but in no pool", i, d.State)
		}
	}
	return nil
}
