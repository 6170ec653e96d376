package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Sink receives every completed phase of a pipeline run, synchronously and before the next phase
// starts. Sink errors are logged and do not fail the run.
type Sink interface {
	Consume(ctx context.Context, phase string, result Result, strategy Strategy) error
}

// RunStarter is implemented by sinks that need to know when a new run starts.
type RunStarter interface {
	BeginRun(pipeline string, runID uuid.UUID, started time.Time) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, phase string, result Result, strategy Strategy) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, phase string, result Result, strategy Strategy) error {
	return f(ctx, phase, result, strategy)
}
