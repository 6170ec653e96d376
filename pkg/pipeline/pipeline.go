package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-phases/pkg/pipeline/model"
)

const defaultPipelineName = "pipeline"

// Pipeline is an ordered sequence of phases.
type Pipeline struct {
	name      string
	phases    []*Phase
	retainAll bool
	sinks     []Sink
	opts      []model.PipelineOption
	logger    zerolog.Logger
}

// New creates a new pipeline. Every phase result is retained unless WithRetainAllPhaseResults(false) is used.
func New(phases []*Phase, opts ...Option) (*Pipeline, error) {
	if len(phases) == 0 {
		return nil, newConfigurationError("phases", ErrNoPhases)
	}

	for _, phase := range phases {
		if phase == nil {
			return nil, newConfigurationError("phases", ErrNilPhase)
		}
	}

	pipe := &Pipeline{
		name:      defaultPipelineName,
		phases:    append([]*Phase{}, phases...),
		retainAll: true,
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(pipe)
	}

	if pipe.name == "" {
		pipe.name = defaultPipelineName
	}

	return pipe, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Phases returns the phases in run order.
func (p *Pipeline) Phases() []*Phase {
	return append([]*Phase{}, p.phases...)
}

// Run runs the phases in order, each one receiving the result of the previous one.
// On failure it returns an empty RunResult and a *PipelineAbort.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	runID := uuid.New()
	started := time.Now()
	log := p.logger.With().Str("pipeline", p.name).Str("run_id", runID.String()).Logger()

	for _, opt := range p.opts {
		err := opt.New()
		if err != nil {
			return RunResult{}, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	p.beginRun(log, runID, started)

	log.Info().Int("phases", len(p.phases)).Msg("pipeline started")

	run := newRunResult()
	completed := newRunResult()

	var (
		previous Result
		parent   *model.PhaseInfo
	)

	for idx, phase := range p.phases {
		info := phase.info(idx)

		res, err := phase.run(ctx, phaseRun{info: info, parent: parent, opts: p.opts, logger: log}, previous)
		if err != nil {
			log.Error().Err(err).Str("phase", info.Key).Msg("pipeline aborted")

			abort := &PipelineAbort{
				Pipeline:  p.name,
				RunID:     runID,
				Phase:     phase.name,
				Index:     idx,
				Completed: completed,
				Err:       err,
			}

			finishErr := p.finishRun()
			if finishErr != nil {
				log.Error().Err(finishErr).Msg("unable to finish pipeline options")
			}

			return RunResult{}, abort
		}

		p.publish(ctx, log, phase, res)

		completed.add(info.Key, res)

		if p.retainAll || idx == len(p.phases)-1 {
			run.add(info.Key, res)
		}

		previous = res
		parent = info
	}

	log.Info().Dur("elapsed", time.Since(started)).Msg("pipeline finished")

	err := p.finishRun()
	if err != nil {
		return RunResult{}, err
	}

	return run, nil
}

func (p *Pipeline) beginRun(log zerolog.Logger, runID uuid.UUID, started time.Time) {
	for _, sink := range p.sinks {
		starter, ok := sink.(RunStarter)
		if !ok {
			continue
		}

		err := starter.BeginRun(p.name, runID, started)
		if err != nil {
			log.Error().Err(err).Msg("unable to begin run on sink")
		}
	}
}

// publish hands the phase outcome to every sink. Sinks are best effort.
func (p *Pipeline) publish(ctx context.Context, log zerolog.Logger, phase *Phase, res Result) {
	for _, sink := range p.sinks {
		err := sink.Consume(ctx, phase.name, res, phase.strategy)
		if err != nil {
			log.Error().Err(err).Str("phase", phase.name).Msg("unable to consume phase result")
		}
	}
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
