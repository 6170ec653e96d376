package measure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/askiada/go-phases/pkg/pipeline/model"
)

// Prometheus exports step and phase metrics of a pipeline.
type Prometheus struct {
	pipeline      string
	stepDuration  *prometheus.HistogramVec
	stepOutcomes  *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
}

// NewPrometheus registers the collectors on reg and returns a pipeline option feeding them.
// Like promauto, it panics when the collectors are already registered on reg.
func NewPrometheus(pipeline string, reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		pipeline: pipeline,
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phases_step_duration_seconds",
			Help:    "Duration of step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline", "phase", "step"}),
		stepOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phases_step_outcomes_total",
			Help: "Step executions by outcome.",
		}, []string{"pipeline", "phase", "outcome"}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phases_phase_duration_seconds",
			Help:    "Duration of phase runs by final state.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline", "phase", "state"}),
	}
}

func (p *Prometheus) New() error {
	return nil
}

func (p *Prometheus) PreparePhase(parentPhase, phase *model.PhaseInfo) error {
	return nil
}

func (p *Prometheus) OnStepOutcome(phase *model.PhaseInfo, step *model.StepInfo, kind model.OutcomeKind, computationDuration time.Duration) error {
	p.stepDuration.WithLabelValues(p.pipeline, phase.Key, step.Key).Observe(computationDuration.Seconds())
	p.stepOutcomes.WithLabelValues(p.pipeline, phase.Key, kind.String()).Inc()

	return nil
}

func (p *Prometheus) AfterPhase(phase *model.PhaseInfo, state model.PhaseState, totalDuration time.Duration) error {
	p.phaseDuration.WithLabelValues(p.pipeline, phase.Key, string(state)).Observe(totalDuration.Seconds())

	return nil
}

func (p *Prometheus) Finish() error {
	return nil
}

var _ model.PipelineOption = (*Prometheus)(nil)
