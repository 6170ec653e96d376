// Package steps holds the step functions shipped with phaserun.
package steps

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-phases/pkg/pipeline"
)

var (
	ErrMissingArg = errors.New("missing argument")
	ErrNotNumber  = errors.New("argument is not a number")
	ErrFailed     = errors.New("step failed")
)

// Register adds every built-in function to reg.
func Register(reg *pipeline.Registry) error {
	builtins := []struct {
		name string
		fn   pipeline.Func
		opts []pipeline.StepOption
	}{
		{name: "echo", fn: Echo},
		{name: "multiply", fn: Multiply},
		{name: "scale_previous", fn: ScalePrevious, opts: []pipeline.StepOption{pipeline.WithPreviousResult()}},
		{name: "sum_previous", fn: SumPrevious, opts: []pipeline.StepOption{pipeline.WithPreviousResult()}},
		{name: "sleep", fn: Sleep},
		{name: "fail", fn: Fail},
		{name: "pid", fn: PID},
	}

	for _, builtin := range builtins {
		err := reg.Register(builtin.name, builtin.fn, builtin.opts...)
		if err != nil {
			return errors.Wrapf(err, "unable to register %s", builtin.name)
		}
	}

	return nil
}

// Echo returns the "value" argument.
func Echo(_ context.Context, args pipeline.Args) (any, error) {
	value, ok := args["value"]
	if !ok {
		return nil, errors.Wrap(ErrMissingArg, "value")
	}

	return value, nil
}

// Multiply returns x * factor. factor defaults to 1.
func Multiply(_ context.Context, args pipeline.Args) (any, error) {
	x, err := number(args, "x")
	if err != nil {
		return nil, err
	}

	factor, err := optionalNumber(args, "factor", 1)
	if err != nil {
		return nil, err
	}

	return normalize(x * factor), nil
}

// ScalePrevious multiplies every numeric entry of the previous phase result by factor.
// Entries that are not numbers are dropped.
func ScalePrevious(_ context.Context, args pipeline.Args) (any, error) {
	factor, err := optionalNumber(args, "factor", 1)
	if err != nil {
		return nil, err
	}

	scaled := map[string]any{}

	for key, value := range args.Previous() {
		n, ok := toFloat(value)
		if !ok {
			continue
		}

		scaled[key] = normalize(n * factor)
	}

	return scaled, nil
}

// SumPrevious returns the sum of the numeric entries of the previous phase result, times factor.
func SumPrevious(_ context.Context, args pipeline.Args) (any, error) {
	factor, err := optionalNumber(args, "factor", 1)
	if err != nil {
		return nil, err
	}

	var sum float64

	for _, value := range args.Previous() {
		if n, ok := toFloat(value); ok {
			sum += n
		}
	}

	return normalize(sum * factor), nil
}

// Sleep waits for "seconds" and returns "value" if set, otherwise the number of seconds.
func Sleep(ctx context.Context, args pipeline.Args) (any, error) {
	seconds, err := number(args, "seconds")
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "sleep interrupted")
	case <-timer.C:
	}

	if value, ok := args["value"]; ok {
		return value, nil
	}

	return normalize(seconds), nil
}

// Fail always returns an error, with the "message" argument when set.
func Fail(_ context.Context, args pipeline.Args) (any, error) {
	if message, ok := args["message"].(string); ok && message != "" {
		return nil, errors.Wrap(ErrFailed, message)
	}

	return nil, errors.WithStack(ErrFailed)
}

// PID returns the id of the process the step runs in.
func PID(context.Context, pipeline.Args) (any, error) {
	return os.Getpid(), nil
}

func number(args pipeline.Args, name string) (float64, error) {
	value, ok := args[name]
	if !ok {
		return 0, errors.Wrap(ErrMissingArg, name)
	}

	n, ok := toFloat(value)
	if !ok {
		return 0, errors.Wrapf(ErrNotNumber, "%s=%v", name, value)
	}

	return n, nil
}

func optionalNumber(args pipeline.Args, name string, fallback float64) (float64, error) {
	if _, ok := args[name]; !ok {
		return fallback, nil
	}

	return number(args, name)
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}

	return 0, false
}

// normalize returns whole numbers as int so that results read like their inputs.
func normalize(n float64) any {
	if n == float64(int64(n)) {
		return int(n)
	}

	return n
}
