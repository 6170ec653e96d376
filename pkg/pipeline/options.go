package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/askiada/go-phases/pkg/pipeline/model"
)

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithName sets the pipeline name used in logs and sinks.
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// WithRetainAllPhaseResults keeps every phase result in the run result when retain is true,
// otherwise only the last phase result is kept.
func WithRetainAllPhaseResults(retain bool) Option {
	return func(p *Pipeline) {
		p.retainAll = retain
	}
}

// WithSink adds sinks that receive every completed phase.
func WithSink(sinks ...Sink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithLogger sets the logger of the pipeline and of its phases.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithOptions adds pipeline options such as a measure or a drawer.
func WithOptions(opts ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		p.opts = append(p.opts, opts...)
	}
}

// PhaseOption configures a Phase.
type PhaseOption func(p *Phase)

// WithThreads sets the size of the goroutine pool of a Thread phase. 0 means one per step.
func WithThreads(threads int) PhaseOption {
	return func(p *Phase) {
		p.threads = threads
	}
}

// WithProcesses sets the number of worker processes of a Process phase.
// 0 means the number of CPUs. The count is capped at the number of steps.
func WithProcesses(processes int) PhaseOption {
	return func(p *Phase) {
		p.processes = processes
	}
}

// WithRegistry sets the registry the step functions of a Process phase are resolved from.
// Worker processes run the function registered under the step name.
func WithRegistry(registry *Registry) PhaseOption {
	return func(p *Phase) {
		p.registry = registry
	}
}

// WithWorkerCommand overrides the command started for each worker process.
// By default the current executable is started again without arguments.
func WithWorkerCommand(path string, args ...string) PhaseOption {
	return func(p *Phase) {
		p.workerPath = path
		p.workerArgs = args
	}
}

// WithPhaseLogger sets the logger used when the phase is run on its own.
func WithPhaseLogger(logger zerolog.Logger) PhaseOption {
	return func(p *Phase) {
		p.logger = logger
	}
}

// StepOption configures a Step.
type StepOption func(s *Step)

// WithPreviousResult injects the previous phase result under PreviousResultArg.
func WithPreviousResult() StepOption {
	return func(s *Step) {
		s.wantsPrevious = true
	}
}
