package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/askiada/go-phases/pkg/pipeline/model"
)

// Func is the logic of a step.
type Func func(ctx context.Context, args Args) (any, error)

// Step is a function bound to its arguments and error policy. It is never modified once built,
// so the same step can be used by several phases.
type Step struct {
	name          string
	fn            Func
	args          Args
	policy        ErrorPolicy
	wantsPrevious bool
	// registry is set when the step was built by Registry.NewStep.
	registry *Registry
}

// NewStep creates a step. args is copied.
func NewStep(name string, fn Func, args Args, policy ErrorPolicy, opts ...StepOption) (*Step, error) {
	if name == "" {
		return nil, newConfigurationError("function", ErrEmptyStepName)
	}

	if fn == nil {
		return nil, newConfigurationError(name, ErrNilFunc)
	}

	if policy == "" {
		policy = Stop
	}

	if !policy.Valid() {
		return nil, newConfigurationError(name, ErrUnknownPolicy)
	}

	step := &Step{
		name:   name,
		fn:     fn,
		args:   args.clone(),
		policy: policy,
	}

	for _, opt := range opts {
		opt(step)
	}

	return step, nil
}

// Name returns the function name used in result keys.
func (s *Step) Name() string {
	return s.name
}

// Policy returns the error policy of the step.
func (s *Step) Policy() ErrorPolicy {
	return s.policy
}

// WantsPrevious reports whether the previous phase result is injected into the arguments.
func (s *Step) WantsPrevious() bool {
	return s.wantsPrevious
}

// Args returns a copy of the step arguments.
func (s *Step) Args() Args {
	return s.args.clone()
}

func (s *Step) info(idx int) *model.StepInfo {
	return &model.StepInfo{
		Name:          s.name,
		Key:           stepKey(s.name, idx),
		Index:         idx,
		Policy:        s.policy,
		WantsPrevious: s.wantsPrevious,
	}
}

func stepKey(name string, idx int) string {
	return fmt.Sprintf("%s%d", name, idx)
}

// Execute runs the step logic once and resolves a failure with the step policy.
// previous is only injected when the step wants it.
func (s *Step) Execute(ctx context.Context, previous map[string]any) Outcome {
	args := s.args.clone()
	if s.wantsPrevious {
		if previous == nil {
			previous = map[string]any{}
		}

		args[PreviousResultArg] = previous
	}

	value, err := call(ctx, s.fn, args)
	if err == nil {
		return succeeded(value)
	}

	return resolveFault(newStepFault(s.name, args, s.policy, err))
}

func resolveFault(fault *StepFault) Outcome {
	if fault.Policy == Stop {
		return failed(fault)
	}

	return degraded(fault)
}

func call(ctx context.Context, fn Func, args Args) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec, stack: debug.Stack()}
		}
	}()

	return fn(ctx, args)
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Format(state fmt.State, verb rune) {
	switch verb {
	case 'v':
		if state.Flag('+') {
			fmt.Fprintf(state, "%s\n%s", e.Error(), e.stack)

			return
		}

		fallthrough
	case 's':
		fmt.Fprint(state, e.Error())
	case 'q':
		fmt.Fprintf(state, "%q", e.Error())
	}
}
