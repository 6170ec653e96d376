package measure_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-phases/pkg/pipeline/measure"
	"github.com/askiada/go-phases/pkg/pipeline/model"
)

func phaseInfo() *model.PhaseInfo {
	return &model.PhaseInfo{
		Name:     "load",
		Key:      "load0",
		Strategy: model.Thread,
		Workers:  2,
		Steps: []*model.StepInfo{
			{Name: "f", Key: "f0", Policy: model.Stop},
			{Name: "f", Key: "f1", Index: 1, Policy: model.Continue},
		},
	}
}

func TestDefaultMeasure(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()

	first := msr.AddMetric("load0", 2)
	assert.Same(t, first, msr.AddMetric("load0", 5))
	assert.Equal(t, 2, first.Concurrent())
	assert.Nil(t, msr.GetMetric("missing"))

	first.AddDuration(10 * time.Millisecond)
	first.AddDuration(30 * time.Millisecond)
	first.AddStepDuration("f0", 10*time.Millisecond)
	first.AddStepDuration("f0", 20*time.Millisecond)
	first.AddStepDuration("f1", 30*time.Millisecond)
	first.SetTotalDuration(time.Second)

	assert.Equal(t, 20*time.Millisecond, first.AVGDuration())
	assert.Equal(t, time.Second, first.GetTotalDuration())

	avg := first.AVGStepDuration()
	assert.Equal(t, 15*time.Millisecond, avg["f0"].Elapsed)
	assert.EqualValues(t, 2, avg["f0"].Total())
	assert.Equal(t, 30*time.Millisecond, avg["f1"].Elapsed)

	// averaging does not change the accumulated values
	assert.Equal(t, 30*time.Millisecond, first.AllSteps()["f0"].Elapsed)
	assert.Len(t, msr.AllMetrics(), 1)
}

func TestPipelineMeasure(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	opt := measure.PipelineMeasure(msr)
	info := phaseInfo()

	require.NoError(t, opt.New())
	require.NoError(t, opt.PreparePhase(nil, info))
	require.NoError(t, opt.OnStepOutcome(info, info.Steps[0], model.Success, 4*time.Millisecond))
	require.NoError(t, opt.OnStepOutcome(info, info.Steps[1], model.Degraded, 2*time.Millisecond))
	require.NoError(t, opt.AfterPhase(info, model.Completed, 5*time.Millisecond))
	require.NoError(t, opt.Finish())

	mt := msr.GetMetric("load0")
	require.NotNil(t, mt)
	assert.Equal(t, 2, mt.Concurrent())
	assert.Equal(t, 3*time.Millisecond, mt.AVGDuration())
	assert.Equal(t, 5*time.Millisecond, mt.GetTotalDuration())
	assert.Len(t, mt.AllSteps(), 2)
}

func TestPipelineMeasureResetsBetweenRuns(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	opt := measure.PipelineMeasure(msr)
	info := phaseInfo()

	for _, elapsed := range []time.Duration{10 * time.Millisecond, 2 * time.Millisecond} {
		require.NoError(t, opt.New())
		require.NoError(t, opt.PreparePhase(nil, info))
		require.NoError(t, opt.OnStepOutcome(info, info.Steps[0], model.Success, elapsed))
		require.NoError(t, opt.AfterPhase(info, model.Completed, elapsed))
		require.NoError(t, opt.Finish())
	}

	mt := msr.GetMetric("load0")
	require.NotNil(t, mt)
	assert.Equal(t, 2*time.Millisecond, mt.AVGDuration())
	assert.Equal(t, 2*time.Millisecond, mt.AllSteps()["f0"].Elapsed)
	assert.Len(t, msr.AllMetrics(), 1)
}

func TestPrometheus(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	prom := measure.NewPrometheus("demo", reg)
	info := phaseInfo()

	require.NoError(t, prom.New())
	require.NoError(t, prom.PreparePhase(nil, info))
	require.NoError(t, prom.OnStepOutcome(info, info.Steps[0], model.Success, time.Millisecond))
	require.NoError(t, prom.OnStepOutcome(info, info.Steps[1], model.Degraded, time.Millisecond))
	require.NoError(t, prom.OnStepOutcome(info, info.Steps[1], model.Degraded, time.Millisecond))
	require.NoError(t, prom.AfterPhase(info, model.Completed, time.Millisecond))
	require.NoError(t, prom.Finish())

	expected := `
# HELP phases_step_outcomes_total Step executions by outcome.
# TYPE phases_step_outcomes_total counter
phases_step_outcomes_total{outcome="degraded",phase="load0",pipeline="demo"} 2
phases_step_outcomes_total{outcome="success",phase="load0",pipeline="demo"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "phases_step_outcomes_total"))

	count, err := testutil.GatherAndCount(reg, "phases_step_duration_seconds", "phases_phase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Panics(t, func() { measure.NewPrometheus("demo", reg) })
}
