package config

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-phases/pkg/pipeline"
)

func testRegistry(t *testing.T) *pipeline.Registry {
	t.Helper()

	reg := pipeline.NewRegistry()

	require.NoError(t, reg.Register("multiply", func(_ context.Context, args pipeline.Args) (any, error) {
		return args["x"].(int) * args["factor"].(int), nil
	}))

	require.NoError(t, reg.Register("sum_previous", func(_ context.Context, args pipeline.Args) (any, error) {
		sum := 0
		for _, value := range args.Previous() {
			if n, ok := value.(int); ok {
				sum += n
			}
		}

		return sum, nil
	}, pipeline.WithPreviousResult()))

	require.NoError(t, reg.Register("fail", func(context.Context, pipeline.Args) (any, error) {
		return nil, errors.New("boom")
	}))

	return reg
}

func TestBuild(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(validYAML), "inline")
	require.NoError(t, err)

	pipe, err := Build(cfg, testRegistry(t))
	require.NoError(t, err)
	require.Equal(t, "demo", pipe.Name())

	phases := pipe.Phases()
	require.Len(t, phases, 2)
	assert.Equal(t, "load", phases[0].Name())
	assert.Equal(t, pipeline.Thread, phases[0].Strategy())
	assert.Equal(t, 2, phases[0].Workers())
	assert.Equal(t, "phase", phases[1].Name())
	assert.True(t, phases[1].Steps()[0].WantsPrevious())

	run, err := pipe.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"load0", "phase1"}, run.Keys())

	last, ok := run.Last()
	require.True(t, ok)

	value, ok := last.Get("sum_previous0")
	require.True(t, ok)
	assert.Equal(t, 11, value)
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contents string
		field    string
	}{
		{
			name:     "unregistered function",
			contents: "name: demo\nphases:\n  - strategy: thread\n    steps:\n      - function: unknown\n",
			field:    "phases[0].steps[0].function",
		},
		{
			name:     "process phase resolves functions in the registry",
			contents: "name: demo\nphases:\n  - strategy: process\n    processes: 2\n    steps:\n      - function: fail\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load([]byte(tc.contents), "inline")
			require.NoError(t, err)

			_, err = Build(cfg, testRegistry(t))
			if tc.field == "" {
				require.NoError(t, err)

				return
			}

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
			assert.ErrorIs(t, err, pipeline.ErrUnregisteredFunction)
		})
	}
}

func TestBuildOptionsOverride(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(validYAML), "inline")
	require.NoError(t, err)

	pipe, err := Build(cfg, testRegistry(t), pipeline.WithRetainAllPhaseResults(false), pipeline.WithName("other"))
	require.NoError(t, err)
	assert.Equal(t, "other", pipe.Name())

	run, err := pipe.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"phase1"}, run.Keys())
}
