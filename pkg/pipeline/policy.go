package pipeline

import (
	"github.com/askiada/go-phases/pkg/pipeline/model"
)

type (
	// ErrorPolicy is the per-step choice of behaviour on failure.
	ErrorPolicy = model.ErrorPolicy
	// Strategy is the execution strategy of a phase.
	Strategy = model.Strategy
	// OutcomeKind tags an Outcome.
	OutcomeKind = model.OutcomeKind
	// PhaseState is the lifecycle state of a phase run.
	PhaseState = model.PhaseState
)

const (
	Stop             = model.Stop
	Continue         = model.Continue
	SilentlyContinue = model.SilentlyContinue

	Sequential = model.Sequential
	Thread     = model.Thread
	Process    = model.Process

	Success  = model.Success
	Degraded = model.Degraded
	Fatal    = model.Fatal
)

// ParseErrorPolicy converts a policy name such as "stop" or "silentlycontinue".
func ParseErrorPolicy(name string) (ErrorPolicy, error) {
	policy, err := model.ParseErrorPolicy(name)
	if err != nil {
		return "", newConfigurationError("on_error", err)
	}

	return policy, nil
}

// ParseStrategy converts a strategy name such as "sequential", "thread" or "multiprocessing".
func ParseStrategy(name string) (Strategy, error) {
	strategy, err := model.ParseStrategy(name)
	if err != nil {
		return "", newConfigurationError("strategy", err)
	}

	return strategy, nil
}
