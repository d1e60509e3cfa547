package engine

import (
	"log/slog"
	"time"
)

// StageObserver is told how long each stage and each tick took. It is called
// from inside the tick and must not call back into the simulation.
type StageObserver interface {
	StageDone(tick uint64, stage string, d time.Duration, skipped bool)
	TickDone(tick uint64, d time.Duration, stats TickStats)
}

// StageSample is one stage's timing for one tick.
type StageSample struct {
	Tick    uint64
	Stage   string
	Nanos   int64
	Skipped bool
}

// TickSample is one tick's total timing and counters.
type TickSample struct {
	Tick  uint64
	Nanos int64
	Stats TickStats
}

// TimingSink stores flushed samples.
type TimingSink interface {
	SaveTimings(stages []StageSample, ticks []TickSample) error
}

// TimingRecorder buffers samples and hands them to a sink every FlushEvery
// ticks.
type TimingRecorder struct {
	sink       TimingSink
	flushEvery uint64

	stages []StageSample
	ticks  []TickSample
	err    error
}

// NewTimingRecorder returns a recorder flushing to sink every flushEvery ticks.
func NewTimingRecorder(sink TimingSink, flushEvery int) *TimingRecorder {
	if flushEvery < 1 {
		flushEvery = 1
	}
	return &TimingRecorder{
		sink:       sink,
		flushEvery: uint64(flushEvery),
		stages:     make([]StageSample, 0, flushEvery*12),
		ticks:      make([]TickSample, 0, flushEvery),
	}
}

func (r *TimingRecorder) StageDone(tick uint64, stage string, d time.Duration, skipped bool) {
	r.stages = append(r.stages, StageSample{Tick: tick, Stage: stage, Nanos: d.Nanoseconds(), Skipped: skipped})
}

func (r *TimingRecorder) TickDone(tick uint64, d time.Duration, stats TickStats) {
	r.ticks = append(r.ticks, TickSample{Tick: tick, Nanos: d.Nanoseconds(), Stats: stats})
	if tick%r.flushEvery == 0 {
		first := r.err == nil
		if err := r.Flush(); err != nil && first {
			slog.Warn("timing flush failed", "tick", tick, "error", err)
		}
	}
}

// Flush writes buffered samples to the sink. The first flush error is kept
// and returned by Err.
func (r *TimingRecorder) Flush() error {
	if len(r.stages) == 0 && len(r.ticks) == 0 {
		return nil
	}
	err := r.sink.SaveTimings(r.stages, r.ticks)
	r.stages = r.stages[:0]
	r.ticks = r.ticks[:0]
	if err != nil && r.err == nil {
		r.err = err
	}
	return err
}

// Err returns the first flush error, if any.
func (r *TimingRecorder) Err() error {
	return r.err
}
