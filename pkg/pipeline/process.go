package pipeline

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-phases/internal/procpool"
	"github.com/askiada/go-phases/pkg/pipeline/model"
)

// workerRequest carries everything a worker process needs to run one step.
type workerRequest struct {
	Function      string
	Args          Args
	Policy        ErrorPolicy
	WantsPrevious bool
	Previous      map[string]any
}

// gobValue holds a value the way it travels inside a request or an outcome.
type gobValue struct {
	Value any
}

func encodable(value any) error {
	return gob.NewEncoder(io.Discard).Encode(gobValue{Value: value})
}

// runProcesses dispatches every step to a pool of worker processes and waits for all of them.
// Each worker decodes its own copy of the arguments and of the previous mapping.
func (p *Phase) runProcesses(ctx context.Context, col *collector, previous Result) error {
	pool, err := procpool.Start[workerRequest, Outcome](procpool.Config{
		Path:    p.workerPath,
		Args:    p.workerArgs,
		Workers: p.processes,
	})
	if err != nil {
		return errors.Wrapf(err, "unable to start %d worker processes", p.processes)
	}

	var grp errgroup.Group

	grp.SetLimit(p.processes)

	for idx, step := range p.steps {
		req := workerRequest{
			Function:      step.name,
			Args:          step.args.clone(),
			Policy:        step.policy,
			WantsPrevious: step.wantsPrevious,
			Previous:      previous.Map(),
		}

		grp.Go(func() error {
			start := time.Now()

			outcome, doErr := pool.Do(ctx, req)
			if doErr != nil {
				outcome = failed(newStepFault(step.name, req.Args, step.policy, doErr))
			}

			col.record(idx, outcome, time.Since(start))

			if outcome.Kind == model.Fatal {
				return outcome.Fault
			}

			return nil
		})
	}

	col.transition(model.Collecting)

	_ = grp.Wait()

	err = pool.Close()
	if err != nil {
		col.logger.Warn().Err(err).Msg("worker processes did not exit cleanly")
	}

	return nil
}

// IsWorkerProcess reports whether the current process was started as a worker of a Process phase.
func IsWorkerProcess() bool {
	return procpool.IsWorker()
}

// ServeWorker answers the step requests of the parent process until it closes the stream, resolving
// functions in registry. It returns the exit code the worker process should exit with.
func ServeWorker(registry *Registry) int {
	if registry == nil {
		registry = DefaultRegistry
	}

	err := procpool.Serve(func(req workerRequest) Outcome {
		outcome := registry.execute(req)

		encErr := encodable(outcome.Value)
		if encErr != nil {
			cause := errors.Wrap(encErr, "unable to send result to the parent process")
			outcome = resolveFault(newStepFault(req.Function, req.Args, req.Policy, cause))
		}

		return outcome
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker %d: %+v\n", os.Getpid(), err)

		return 1
	}

	return 0
}

func (r *Registry) execute(req workerRequest) Outcome {
	fn, err := r.lookup(req.Function)
	if err != nil {
		return failed(newStepFault(req.Function, req.Args, req.Policy, err))
	}

	step := &Step{
		name:          req.Function,
		fn:            fn,
		args:          req.Args,
		policy:        req.Policy,
		wantsPrevious: req.WantsPrevious,
	}

	return step.Execute(context.Background(), req.Previous)
}
