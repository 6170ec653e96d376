package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-phases/internal/procpool"
	"github.com/askiada/go-phases/pkg/pipeline/model"
)

var (
	ErrNilStep              = errors.New("step must be set")
	ErrNilFunc              = errors.New("step function must be set")
	ErrEmptyStepName        = errors.New("step name must be set")
	ErrNoSteps              = errors.New("phase must have at least one step")
	ErrNilPhase             = errors.New("phase must be set")
	ErrNoPhases             = errors.New("pipeline must have at least one phase")
	ErrInvalidWorkers       = errors.New("worker count must not be negative")
	ErrUnregisteredFunction = errors.New("function is not registered")
	ErrDuplicateFunction    = errors.New("function is already registered")
	ErrForeignFunction      = errors.New("step was not built by the phase registry")
	ErrArgsNotEncodable     = errors.New("step arguments cannot be sent to a worker process")
	ErrNestedProcessPhase   = procpool.ErrNestedPool
	ErrUnknownStrategy      = model.ErrUnknownStrategy
	ErrUnknownPolicy        = model.ErrUnknownPolicy
)

const separator = "--------------------"

// StepFault is a failure of a step function, wrapped with the context needed to diagnose it.
// Its fields survive the process boundary; the original error does not.
type StepFault struct {
	Function string
	ArgKeys  []string
	Policy   ErrorPolicy
	Message  string
	Trace    string

	cause error
}

func newStepFault(function string, args Args, policy ErrorPolicy, cause error) *StepFault {
	return &StepFault{
		Function: function,
		ArgKeys:  args.Keys(),
		Policy:   policy,
		Message:  cause.Error(),
		Trace:    fmt.Sprintf("%+v", cause),
		cause:    cause,
	}
}

// Diagnostic renders the function name, argument keys, policy and trace of the fault.
func (f *StepFault) Diagnostic() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "function= %s\n%s\n", f.Function, separator)
	fmt.Fprintf(&builder, "kwargs= [%s]\n%s\n", strings.Join(f.ArgKeys, " "), separator)
	fmt.Fprintf(&builder, "on_error= %s\n%s\n", f.Policy, separator)
	fmt.Fprintf(&builder, "Traceback=\n%s", f.Trace)

	return builder.String()
}

func (f *StepFault) Error() string {
	if f == nil {
		return ""
	}

	return f.Diagnostic()
}

// Unwrap exposes the original error. It is nil for faults decoded from a worker process.
func (f *StepFault) Unwrap() error {
	if f == nil {
		return nil
	}

	return f.cause
}

// PhaseFailure reports that at least one Stop step of a phase failed. No result is produced.
type PhaseFailure struct {
	Phase    string
	Strategy Strategy
	// Keys holds the result keys of the failed steps, in declaration order.
	Keys   []string
	Faults []*StepFault
}

func (e *PhaseFailure) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("phase %s (%s) failed on %s:\n%s", e.Phase, e.Strategy, strings.Join(e.Keys, ", "), e.Faults[0].Error())
}

// Unwrap exposes the first fault in declaration order.
func (e *PhaseFailure) Unwrap() error {
	if e == nil || len(e.Faults) == 0 {
		return nil
	}

	return e.Faults[0]
}

// ConfigurationError reports an invalid phase, step or pipeline definition.
type ConfigurationError struct {
	Field string
	Err   error
}

func newConfigurationError(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}

	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
	}

	return fmt.Sprintf("configuration error: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// PipelineAbort is returned by Pipeline.Run when a phase fails. Later phases were not run.
type PipelineAbort struct {
	Pipeline string
	RunID    uuid.UUID
	Phase    string
	Index    int
	// Completed holds the results of every phase that finished before the failure,
	// regardless of the retain-all setting.
	Completed RunResult
	Err       error
}

func (e *PipelineAbort) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("pipeline %s aborted at phase %s%d: %v", e.Pipeline, e.Phase, e.Index, e.Err)
}

// Unwrap exposes the phase error, usually a *PhaseFailure.
func (e *PipelineAbort) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}
