package measure

import "time"

// Measure holds one Metric per phase of a pipeline.
type Measure interface {
	AddMetric(name string, concurrent int) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
	// Reset drops every metric.
	Reset()
}

// Metric collects the durations of the steps of one phase.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddStepDuration(stepKey string, elapsed time.Duration)
	AVGDuration() time.Duration
	AVGStepDuration() map[string]*Timing
	SetTotalDuration(totalDuration time.Duration)
	GetTotalDuration() time.Duration
	AllSteps() map[string]*Timing
	Concurrent() int
}
