package pipeline

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepExecute(t *testing.T) {
	t.Parallel()

	errNope := errors.New("nope")

	tcs := map[string]struct {
		fn       Func
		policy   ErrorPolicy
		wantKind OutcomeKind
		want     any
	}{
		"success": {
			fn:       func(context.Context, Args) (any, error) { return 1, nil },
			policy:   Stop,
			wantKind: Success,
			want:     1,
		},
		"stop": {
			fn:       func(context.Context, Args) (any, error) { return nil, errNope },
			policy:   Stop,
			wantKind: Fatal,
		},
		"continue": {
			fn:       func(context.Context, Args) (any, error) { return nil, errNope },
			policy:   Continue,
			wantKind: Degraded,
		},
		"silently continue": {
			fn:       func(context.Context, Args) (any, error) { return nil, errNope },
			policy:   SilentlyContinue,
			wantKind: Degraded,
		},
		"panic": {
			fn:       func(context.Context, Args) (any, error) { panic("oops") },
			policy:   Continue,
			wantKind: Degraded,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			step, err := NewStep("logic", tc.fn, Args{"a": 1}, tc.policy)
			require.NoError(t, err)

			outcome := step.Execute(context.Background(), nil)
			assert.Equal(t, tc.wantKind, outcome.Kind)

			switch tc.wantKind {
			case Success:
				assert.Nil(t, outcome.Fault)
				assert.Equal(t, tc.want, outcome.Value)
			case Degraded:
				require.NotNil(t, outcome.Fault)
				assert.Equal(t, outcome.Fault.Diagnostic(), outcome.Value)
			case Fatal:
				require.NotNil(t, outcome.Fault)
				assert.Nil(t, outcome.Value)
				assert.ErrorIs(t, outcome.Fault, errNope)
			}
		})
	}
}

func TestStepInjectsPrevious(t *testing.T) {
	t.Parallel()

	var seen Args

	fn := func(_ context.Context, args Args) (any, error) {
		seen = args

		return nil, nil
	}

	step, err := NewStep("prev", fn, Args{"a": 1}, Stop, WithPreviousResult())
	require.NoError(t, err)

	step.Execute(context.Background(), map[string]any{"f0": 9})
	assert.Equal(t, map[string]any{"f0": 9}, seen.Previous())
	assert.NotContains(t, step.args, PreviousResultArg)

	step.Execute(context.Background(), nil)
	assert.Equal(t, map[string]any{}, seen[PreviousResultArg])

	plain, err := NewStep("plain", fn, nil, Stop)
	require.NoError(t, err)

	plain.Execute(context.Background(), map[string]any{"f0": 9})
	assert.NotContains(t, seen, PreviousResultArg)
}

func TestNewStepCopiesArgs(t *testing.T) {
	t.Parallel()

	args := Args{"x": 1}

	step, err := NewStep("copy", func(_ context.Context, args Args) (any, error) {
		return args["x"], nil
	}, args, "")
	require.NoError(t, err)

	args["x"] = 2

	assert.Equal(t, Stop, step.Policy())
	assert.Equal(t, 1, step.Execute(context.Background(), nil).Value)
	assert.Equal(t, Args{"x": 1}, step.Args())
}

func TestNewStepErrors(t *testing.T) {
	t.Parallel()

	fn := func(context.Context, Args) (any, error) { return nil, nil }

	tcs := map[string]struct {
		name   string
		fn     Func
		policy ErrorPolicy
		want   error
	}{
		"empty name":     {fn: fn, policy: Stop, want: ErrEmptyStepName},
		"nil function":   {name: "nil", policy: Stop, want: ErrNilFunc},
		"unknown policy": {name: "bad", fn: fn, policy: ErrorPolicy("ignore"), want: ErrUnknownPolicy},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := NewStep(tc.name, tc.fn, nil, tc.policy)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStepFaultDiagnostic(t *testing.T) {
	t.Parallel()

	fault := newStepFault("compute", Args{"b": 1, "a": 2}, Continue, errors.New("bad input"))

	diagnostic := fault.Diagnostic()
	assert.Contains(t, diagnostic, "function= compute\n--------------------\n")
	assert.Contains(t, diagnostic, "kwargs= [a b]\n")
	assert.Contains(t, diagnostic, "on_error= continue\n")
	assert.Contains(t, diagnostic, "Traceback=\nbad input")
	assert.Equal(t, diagnostic, fault.Error())
	assert.Equal(t, "bad input", fault.Message)
}

func TestPhaseFailureError(t *testing.T) {
	t.Parallel()

	first := newStepFault("a", nil, Stop, errors.New("first"))
	second := newStepFault("b", nil, Stop, errors.New("second"))

	failure := &PhaseFailure{Phase: "p", Strategy: Thread, Keys: []string{"a0", "b1"}, Faults: []*StepFault{first, second}}

	assert.Contains(t, failure.Error(), "phase p (thread) failed on a0, b1")
	assert.Contains(t, failure.Error(), "function= a")
	assert.Equal(t, first, errors.Cause(errors.Unwrap(failure)))
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	fn := func(context.Context, Args) (any, error) { return "ok", nil }

	require.NoError(t, reg.Register("b", fn))
	require.NoError(t, reg.Register("a", fn, WithPreviousResult()))
	require.ErrorIs(t, reg.Register("a", fn), ErrDuplicateFunction)
	require.ErrorIs(t, reg.Register("", fn), ErrEmptyStepName)
	require.ErrorIs(t, reg.Register("c", nil), ErrNilFunc)
	assert.Panics(t, func() { reg.MustRegister("a", fn) })

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.True(t, reg.Has("a"))
	assert.False(t, reg.Has("c"))

	step, err := reg.NewStep("a", Args{"x": 1}, Continue)
	require.NoError(t, err)
	assert.True(t, step.WantsPrevious())
	assert.Equal(t, Continue, step.Policy())

	_, err = reg.NewStep("c", nil, Stop)
	require.ErrorIs(t, err, ErrUnregisteredFunction)

	outcome := reg.execute(workerRequest{Function: "b", Policy: Stop})
	assert.Equal(t, Success, outcome.Kind)
	assert.Equal(t, "ok", outcome.Value)

	outcome = reg.execute(workerRequest{Function: "c", Policy: SilentlyContinue})
	assert.Equal(t, Fatal, outcome.Kind)
	assert.Contains(t, outcome.Fault.Message, "not registered")
}
