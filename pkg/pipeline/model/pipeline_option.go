package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option at the start of a run.
	New() error

	pipelinePhaseOption
	pipelineStepOption

	// Finish runs after the pipeline is finished, whether it succeeded or not.
	Finish() error
}

// pipelinePhaseOption defines the interface for phase options at the pipeline level.
type pipelinePhaseOption interface {
	// PreparePhase runs before the phase is dispatched. parentPhase is nil for the first phase.
	PreparePhase(parentPhase, phase *PhaseInfo) error
	// AfterPhase runs once the phase reached Completed or Failed.
	AfterPhase(phase *PhaseInfo, state PhaseState, totalDuration time.Duration) error
}

// pipelineStepOption defines the interface for step options at the pipeline level.
type pipelineStepOption interface {
	// OnStepOutcome runs everytime a step of the phase produced an outcome.
	OnStepOutcome(phase *PhaseInfo, step *StepInfo, kind OutcomeKind, computationDuration time.Duration) error
}
