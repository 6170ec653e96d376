package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-phases/pkg/pipeline/model"
)

const defaultPhaseName = "phase"

// Phase is an ordered set of steps run under one strategy.
type Phase struct {
	name     string
	strategy Strategy
	steps    []*Step

	threads    int
	processes  int
	registry   *Registry
	workerPath string
	workerArgs []string
	logger     zerolog.Logger
}

// NewPhase creates a phase. Worker counts are resolved here and never change afterwards.
// Steps of a Process phase must be built by the phase registry, and their arguments must be
// gob-encodable.
func NewPhase(name string, strategy Strategy, steps []*Step, opts ...PhaseOption) (*Phase, error) {
	if name == "" {
		name = defaultPhaseName
	}

	phase := &Phase{
		name:     name,
		strategy: strategy,
		steps:    append([]*Step{}, steps...),
		registry: DefaultRegistry,
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(phase)
	}

	err := phase.resolve()
	if err != nil {
		return nil, err
	}

	return phase, nil
}

func (p *Phase) resolve() error {
	if len(p.steps) == 0 {
		return newConfigurationError(p.name, ErrNoSteps)
	}

	for i, step := range p.steps {
		if step == nil {
			return newConfigurationError(fmt.Sprintf("%s.steps[%d]", p.name, i), ErrNilStep)
		}
	}

	if p.threads < 0 {
		return newConfigurationError(p.name+".threads", ErrInvalidWorkers)
	}

	if p.processes < 0 {
		return newConfigurationError(p.name+".processes", ErrInvalidWorkers)
	}

	if p.threads == 0 {
		p.threads = len(p.steps)
	}

	if p.processes == 0 {
		p.processes = runtime.NumCPU()
	}

	p.processes = min(p.processes, len(p.steps))

	switch p.strategy {
	case Sequential, Thread:
	case Process:
		if p.registry == nil {
			p.registry = DefaultRegistry
		}

		for i, step := range p.steps {
			field := fmt.Sprintf("%s.steps[%d]", p.name, i)

			if !p.registry.Has(step.name) {
				return newConfigurationError(field, errors.Wrapf(ErrUnregisteredFunction, "%q", step.name))
			}

			if step.registry != p.registry {
				return newConfigurationError(field, errors.Wrapf(ErrForeignFunction, "%q", step.name))
			}

			if err := encodable(step.args); err != nil {
				return newConfigurationError(field+".args", errors.Wrapf(ErrArgsNotEncodable, "%v", err))
			}
		}
	default:
		return newConfigurationError(p.name+".strategy", errors.Wrapf(ErrUnknownStrategy, "%q", p.strategy))
	}

	return nil
}

// Name returns the phase name.
func (p *Phase) Name() string {
	return p.name
}

// Strategy returns the strategy the phase runs its steps with.
func (p *Phase) Strategy() Strategy {
	return p.strategy
}

// Steps returns the steps of the phase in declaration order.
func (p *Phase) Steps() []*Step {
	return append([]*Step{}, p.steps...)
}

// Workers returns the pool size used by the phase strategy: 1 for Sequential.
func (p *Phase) Workers() int {
	switch p.strategy {
	case Thread:
		return p.threads
	case Process:
		return p.processes
	}

	return 1
}

func (p *Phase) info(idx int) *model.PhaseInfo {
	info := &model.PhaseInfo{
		Name:     p.name,
		Key:      stepKey(p.name, idx),
		Index:    idx,
		Strategy: p.strategy,
		Workers:  p.Workers(),
		Steps:    make([]*model.StepInfo, len(p.steps)),
	}

	for i, step := range p.steps {
		info.Steps[i] = step.info(i)
	}

	return info
}

// Run runs every step and returns one entry per step, or a *PhaseFailure when a Stop step failed.
// A zero previous is treated as an empty mapping.
func (p *Phase) Run(ctx context.Context, previous Result) (Result, error) {
	return p.run(ctx, phaseRun{info: p.info(0), logger: p.logger}, previous)
}

type phaseRun struct {
	info   *model.PhaseInfo
	parent *model.PhaseInfo
	opts   []model.PipelineOption
	logger zerolog.Logger
}

func (p *Phase) run(ctx context.Context, run phaseRun, previous Result) (Result, error) {
	log := run.logger.With().Str("phase", run.info.Key).Str("strategy", string(p.strategy)).Logger()

	for _, opt := range run.opts {
		err := opt.PreparePhase(run.parent, run.info)
		if err != nil {
			return Result{}, errors.Wrap(err, "unable to run before phase function")
		}
	}

	col := newCollector(run.info, run.opts, log)
	start := time.Now()

	col.transition(model.Dispatching)

	var err error

	switch p.strategy {
	case Sequential:
		err = p.runSequential(ctx, col, previous)
	case Thread:
		err = p.runThreads(ctx, col, previous)
	case Process:
		err = p.runProcesses(ctx, col, previous)
	default:
		err = newConfigurationError(p.name+".strategy", ErrUnknownStrategy)
	}

	res, resErr := col.result(p.name, p.strategy)
	if err == nil {
		err = resErr
	}

	state := model.Completed
	if err != nil {
		state = model.Failed
	}

	col.transition(state)

	for _, opt := range run.opts {
		optErr := opt.AfterPhase(run.info, state, time.Since(start))
		if optErr != nil && err == nil {
			err = errors.Wrap(optErr, "unable to run after phase function")
		}
	}

	if err != nil {
		return Result{}, err
	}

	return res, nil
}

// startStep runs the step at idx against its own copy of the previous mapping.
func (p *Phase) startStep(ctx context.Context, idx int, previous Result) (Outcome, time.Duration) {
	start := time.Now()
	outcome := p.steps[idx].Execute(ctx, previous.Map())

	return outcome, time.Since(start)
}
