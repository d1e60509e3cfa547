package engine

import (
	"fmt"
	"time"
)

// Stage is one step of the tick pipeline. Gate is evaluated against the flags
// raised by earlier stages of the same tick; a stage whose gate is closed is
// skipped entirely.
type Stage interface {
	Name() string
	Gate(f Flags) bool
	Run(s *Simulation) error
}

// funcStage adapts a function into a Stage. A zero gate means the stage runs
// every tick.
type funcStage struct {
	name string
	gate Flags
	run  func(s *Simulation) error
}

func (st funcStage) Name() string { return st.name }

func (st funcStage) Gate(f Flags) bool {
	return st.gate == 0 || f.Has(st.gate)
}

func (st funcStage) Run(s *Simulation) error { return st.run(s) }

// NewStage builds a Stage from a name, a gate and a run function.
func NewStage(name string, gate Flags, run func(s *Simulation) error) Stage {
	return funcStage{name: name, gate: gate, run: run}
}

// Pipeline runs stages in a strict chain: each stage starts only after the
// previous one, including all of its parallel work, has returned.
type Pipeline struct {
	stages   []Stage
	observer StageObserver
}

// NewPipeline returns a pipeline running stages in order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Then appends st so it depends on every stage already in the pipeline.
func (p *Pipeline) Then(st Stage) *Pipeline {
	p.stages = append(p.stages, st)
	return p
}

// Observe installs an observer that is told how long each stage took.
func (p *Pipeline) Observe(o StageObserver) {
	p.observer = o
}

// Names lists the stages in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.Name()
	}
	return names
}

// Run executes one tick's worth of stages against s.
func (p *Pipeline) Run(s *Simulation) error {
	for _, st := range p.stages {
		if !st.Gate(s.flags) {
			if p.observer != nil {
				p.observer.StageDone(s.tick, st.Name(), 0, true)
			}
			continue
		}

		start := time.Now()
		if err := st.Run(s); err != nil {
			return fmt.Errorf("stage %s: %w", st.Name(), err)
		}
		if p.observer != nil {
			p.observer.StageDone(s.tick, st.Name(), time.Since(start), false)
		}
	}
	return nil
}
