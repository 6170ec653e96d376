package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-phases/pkg/pipeline"
)

// testRegistry is shared with the worker processes started by Process phases,
// which run this test binary again.
var testRegistry = pipeline.NewRegistry()

func TestMain(m *testing.M) {
	registerTestFuncs(testRegistry)

	if pipeline.IsWorkerProcess() {
		os.Exit(pipeline.ServeWorker(testRegistry))
	}

	os.Exit(m.Run())
}

var errBoom = errors.New("boom")

// opaque is never registered with gob, so it cannot leave a worker process.
type opaque struct {
	N int
}

func registerTestFuncs(reg *pipeline.Registry) {
	reg.MustRegister("f", func(context.Context, pipeline.Args) (any, error) {
		return 9, nil
	})

	reg.MustRegister("g", func(_ context.Context, args pipeline.Args) (any, error) {
		n, ok := args.Previous()["f0"].(int)
		if !ok {
			return nil, errors.Errorf("f0 is %v", args.Previous()["f0"])
		}

		return n * 3, nil
	}, pipeline.WithPreviousResult())

	reg.MustRegister("index", index)

	reg.MustRegister("fail", func(context.Context, pipeline.Args) (any, error) {
		return nil, errors.WithStack(errBoom)
	})

	reg.MustRegister("explode", func(context.Context, pipeline.Args) (any, error) {
		panic("kaboom")
	})

	reg.MustRegister("opaque", func(context.Context, pipeline.Args) (any, error) {
		return opaque{N: 1}, nil
	})

	reg.MustRegister("touch", func(_ context.Context, args pipeline.Args) (any, error) {
		path, ok := args["path"].(string)
		if !ok {
			return nil, errors.New("path is missing")
		}

		time.Sleep(50 * time.Millisecond)

		err := os.WriteFile(path, []byte("done"), 0o600)
		if err != nil {
			return nil, errors.Wrap(err, "unable to write marker")
		}

		return path, nil
	})

	reg.MustRegister("pid", func(context.Context, pipeline.Args) (any, error) {
		return os.Getpid(), nil
	})

	// mutate and inspect share the nested "shared" mapping of their arguments.
	reg.MustRegister("mutate", func(_ context.Context, args pipeline.Args) (any, error) {
		shared, ok := args["shared"].(map[string]any)
		if !ok {
			return nil, errors.New("shared is missing")
		}

		shared["touched"] = true

		return len(shared), nil
	})

	reg.MustRegister("inspect", func(_ context.Context, args pipeline.Args) (any, error) {
		time.Sleep(100 * time.Millisecond)

		shared, ok := args["shared"].(map[string]any)
		if !ok {
			return nil, errors.New("shared is missing")
		}

		_, touched := shared["touched"]

		return touched, nil
	})
}

func index(_ context.Context, args pipeline.Args) (any, error) {
	return args["i"], nil
}

func mustStep(t *testing.T, name string, fn pipeline.Func, args pipeline.Args, policy pipeline.ErrorPolicy, opts ...pipeline.StepOption) *pipeline.Step {
	t.Helper()

	step, err := pipeline.NewStep(name, fn, args, policy, opts...)
	if err != nil {
		t.Fatalf("unable to create step %s: %v", name, err)
	}

	return step
}

func mustRegisteredStep(t *testing.T, name string, args pipeline.Args, policy pipeline.ErrorPolicy) *pipeline.Step {
	t.Helper()

	step, err := testRegistry.NewStep(name, args, policy)
	if err != nil {
		t.Fatalf("unable to create step %s: %v", name, err)
	}

	return step
}

func indexSteps(t *testing.T, total int) []*pipeline.Step {
	t.Helper()

	steps := make([]*pipeline.Step, 0, total)
	for i := 0; i < total; i++ {
		steps = append(steps, mustRegisteredStep(t, "index", pipeline.Args{"i": i}, pipeline.Stop))
	}

	return steps
}

func indexResult(total int) map[string]any {
	want := make(map[string]any, total)
	for i := 0; i < total; i++ {
		want[fmt.Sprintf("index%d", i)] = i
	}

	return want
}
