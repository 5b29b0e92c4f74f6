package engine

import (
	"errors"
	"time"

	"github.com/razeghi71/wrangle/logger"
	"github.com/razeghi71/wrangle/table"
)

// Pipeline is an ordered sequence of stages. It is a value: Append returns
// a new pipeline and leaves the receiver as it was, so a common prefix can
// be extended in several directions.
type Pipeline struct {
	name   string
	stages []Stage
}

// NewPipeline creates a pipeline from stages in evaluation order.
func NewPipeline(stages ...Stage) Pipeline {
	return Pipeline{stages: append([]Stage(nil), stages...)}
}

// Named returns a copy of the pipeline carrying a name for logging.
func (p Pipeline) Named(name string) Pipeline {
	p.name = name
	return p
}

// Name returns the pipeline name, if any.
func (p Pipeline) Name() string {
	return p.name
}

// Append returns a new pipeline with s added at the end.
func (p Pipeline) Append(s Stage) Pipeline {
	stages := make([]Stage, len(p.stages), len(p.stages)+1)
	copy(stages, p.stages)
	return Pipeline{name: p.name, stages: append(stages, s)}
}

// Stages returns the stages in evaluation order.
func (p Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Len returns the number of stages.
func (p Pipeline) Len() int {
	return len(p.stages)
}

// Evaluate threads t through every stage in order. Each stage sees only the
// previous stage's output. The first failing stage stops evaluation and its
// error is returned as is, with no partial result.
func (p Pipeline) Evaluate(t *table.Table) (*table.Table, error) {
	if t == nil {
		return nil, errors.New("evaluate: nil input table")
	}
	log := logger.WithPipeline(p.name, len(p.stages))

	current := t
	for i, s := range p.stages {
		start := time.Now()
		next, err := s.Transform(current)
		if err != nil {
			logger.StageError(log, i, s.Name(), err)
			return nil, err
		}
		logger.StageEnd(log, i, s.Name(), current.NumRows(), next.NumRows(), time.Since(start))
		current = next
	}
	return current, nil
}
