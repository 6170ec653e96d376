package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-phases/pkg/pipeline/model"
)

// collector gathers the outcomes of a phase run. Options are called under its lock,
// so they never see two outcomes at the same time.
type collector struct {
	mu       sync.Mutex
	info     *model.PhaseInfo
	opts     []model.PipelineOption
	logger   zerolog.Logger
	state    model.PhaseState
	outcomes []Outcome
	done     []bool
	optErr   error
}

func newCollector(info *model.PhaseInfo, opts []model.PipelineOption, logger zerolog.Logger) *collector {
	return &collector{
		info:     info,
		opts:     opts,
		logger:   logger,
		state:    model.Pending,
		outcomes: make([]Outcome, len(info.Steps)),
		done:     make([]bool, len(info.Steps)),
	}
}

func (c *collector) transition(state model.PhaseState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug().Str("from", string(c.state)).Str("to", string(state)).Msg("phase state")
	c.state = state
}

func (c *collector) record(idx int, outcome Outcome, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outcomes[idx] = outcome
	c.done[idx] = true

	step := c.info.Steps[idx]
	if outcome.Kind == model.Degraded && step.Policy == model.Continue {
		c.logger.Warn().Str("step", step.Key).Msg(outcome.Fault.Diagnostic())
	}

	for _, opt := range c.opts {
		err := opt.OnStepOutcome(c.info, step, outcome.Kind, elapsed)
		if err != nil && c.optErr == nil {
			c.optErr = errors.Wrap(err, "unable to run on step outcome function")
		}
	}
}

// result folds the outcomes into a Result. Any fatal outcome fails the whole phase.
func (c *collector) result(phase string, strategy Strategy) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var failure *PhaseFailure

	builder := newResultBuilder(len(c.outcomes))

	for idx, outcome := range c.outcomes {
		if !c.done[idx] {
			continue
		}

		key := c.info.Steps[idx].Key
		if outcome.Kind == model.Fatal {
			if failure == nil {
				failure = &PhaseFailure{Phase: phase, Strategy: strategy}
			}

			failure.Keys = append(failure.Keys, key)
			failure.Faults = append(failure.Faults, outcome.Fault)

			continue
		}

		builder.add(key, outcome.Value)
	}

	if failure != nil {
		return Result{}, failure
	}

	if c.optErr != nil {
		return Result{}, c.optErr
	}

	return builder.build(), nil
}

// runSequential runs the steps in declaration order and stops at the first fatal outcome.
func (p *Phase) runSequential(ctx context.Context, col *collector, previous Result) error {
	col.transition(model.Collecting)

	for idx := range p.steps {
		outcome, elapsed := p.startStep(ctx, idx, previous)
		col.record(idx, outcome, elapsed)

		if outcome.Kind == model.Fatal {
			return nil
		}
	}

	return nil
}

// runThreads submits every step to a pool of goroutines and waits for all of them.
// A fatal outcome does not stop the other steps.
func (p *Phase) runThreads(ctx context.Context, col *collector, previous Result) error {
	var grp errgroup.Group

	grp.SetLimit(p.threads)

	for idx := range p.steps {
		grp.Go(func() error {
			outcome, elapsed := p.startStep(ctx, idx, previous)
			col.record(idx, outcome, elapsed)

			if outcome.Kind == model.Fatal {
				return outcome.Fault
			}

			return nil
		})
	}

	col.transition(model.Collecting)

	// fatal outcomes are reported by the collector in declaration order
	_ = grp.Wait()

	return nil
}
