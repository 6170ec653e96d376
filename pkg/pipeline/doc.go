// Package pipeline runs an ordered sequence of phases, each phase being a set of independent steps.
//
// A Step binds a function to a fixed argument mapping and an error policy. When the function fails,
// the policy decides whether the failure is fatal (Stop) or degraded into a diagnostic value that is
// kept as the step result (Continue, SilentlyContinue). Panics are treated as failures.
//
// A Phase runs its steps under one strategy: Sequential runs them one after the other and stops on the
// first fatal failure, Thread dispatches them to a bounded pool of goroutines and Process dispatches
// them to a pool of worker processes that share no memory with the caller. Both parallel strategies
// run every dispatched step to completion before reporting a fatal failure. Each phase produces an
// ordered Result keyed by "<function-name><index>".
//
// A Pipeline runs its phases in order, hands the Result of each phase to the next one (steps opt in
// with WithPreviousResult) and reports every completed phase to its sinks before the next phase starts.
// The first failed phase aborts the run.
//
// The Process strategy re-executes the current binary. Programs using it must call ServeWorker early
// in main when IsWorkerProcess reports true, after registering their step functions in a Registry.
package pipeline
