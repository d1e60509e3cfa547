// Package engine provides the fixed-tick simulation pipeline and the loop
// that drives it.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the fixed simulation step (50 ticks per second).
const DefaultInterval = 20 * time.Millisecond

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Fixed tick interval; also the simulated dt

	// Callbacks populated during setup.
	OnTick       func(tick uint64) error // Every tick
	OnSummary    func(tick uint64)       // Every SummaryEvery ticks
	SummaryEvery uint64

	mu      sync.Mutex
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	running bool
	cancel  context.CancelFunc
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval:     DefaultInterval,
		SummaryEvery: 500,
		speed:        1.0,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the loop. It blocks until ctx is done, Stop is called, or a
// tick fails.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.running = true
	e.cancel = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
	}()

	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed(), "interval", e.Interval)

	for {
		speed := e.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		if err := e.Step(); err != nil {
			slog.Error("tick failed", "tick", e.Tick, "error", err)
			return err
		}

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			if !sleep(ctx, target-elapsed) {
				break
			}
		} else if ctx.Err() != nil {
			break
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick)
	return nil
}

// Stop halts a running loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Step advances the engine by one tick.
func (e *Engine) Step() error {
	e.Tick++

	if e.OnTick != nil {
		if err := e.OnTick(e.Tick); err != nil {
			return err
		}
	}

	if e.SummaryEvery > 0 && e.Tick%e.SummaryEvery == 0 && e.OnSummary != nil {
		e.OnSummary(e.Tick)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
