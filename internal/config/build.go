package config

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-phases/pkg/pipeline"
)

// Build turns a definition into a pipeline whose steps are resolved in reg.
// opts are applied after the options derived from the definition.
func Build(cfg *Config, reg *pipeline.Registry, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	err := Validate(cfg)
	if err != nil {
		return nil, err
	}

	if reg == nil {
		reg = pipeline.DefaultRegistry
	}

	phases := make([]*pipeline.Phase, 0, len(cfg.Phases))

	for i, def := range cfg.Phases {
		phase, phaseErr := buildPhase(def, i, reg)
		if phaseErr != nil {
			return nil, phaseErr
		}

		phases = append(phases, phase)
	}

	allOpts := []pipeline.Option{
		pipeline.WithName(cfg.Name),
		pipeline.WithRetainAllPhaseResults(cfg.RetainAll()),
	}

	pipe, err := pipeline.New(phases, append(allOpts, opts...)...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to build pipeline %s", cfg.Name)
	}

	return pipe, nil
}

func buildPhase(def Phase, idx int, reg *pipeline.Registry) (*pipeline.Phase, error) {
	strategy, err := pipeline.ParseStrategy(def.Strategy)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("phases[%d].strategy", idx), err.Error(), err)
	}

	steps := make([]*pipeline.Step, 0, len(def.Steps))

	for j, stepDef := range def.Steps {
		field := fmt.Sprintf("phases[%d].steps[%d]", idx, j)

		policy, policyErr := pipeline.ParseErrorPolicy(stepDef.OnError)
		if policyErr != nil {
			return nil, NewValidationError(field+".on_error", policyErr.Error(), policyErr)
		}

		step, stepErr := reg.NewStep(stepDef.Function, stepDef.Args, policy)
		if stepErr != nil {
			return nil, NewValidationError(field+".function", stepErr.Error(), stepErr)
		}

		steps = append(steps, step)
	}

	phase, err := pipeline.NewPhase(def.Name, strategy, steps,
		pipeline.WithThreads(def.Threads),
		pipeline.WithProcesses(def.Processes),
		pipeline.WithRegistry(reg),
	)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("phases[%d]", idx), err.Error(), err)
	}

	return phase, nil
}
