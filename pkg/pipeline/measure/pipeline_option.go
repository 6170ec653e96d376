package measure

import (
	"time"

	"github.com/askiada/go-phases/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

// New starts every run from empty metrics.
func (pm *pipelineMeasure) New() error {
	pm.Reset()

	return nil
}

func (pm *pipelineMeasure) PreparePhase(parentPhase, phase *model.PhaseInfo) error {
	pm.AddMetric(phase.Key, phase.Workers)

	return nil
}

func (pm *pipelineMeasure) OnStepOutcome(phase *model.PhaseInfo, step *model.StepInfo, kind model.OutcomeKind, computationDuration time.Duration) error {
	mt := pm.AddMetric(phase.Key, phase.Workers)
	mt.AddDuration(computationDuration)
	mt.AddStepDuration(step.Key, computationDuration)

	return nil
}

func (pm *pipelineMeasure) AfterPhase(phase *model.PhaseInfo, state model.PhaseState, totalDuration time.Duration) error {
	pm.AddMetric(phase.Key, phase.Workers).SetTotalDuration(totalDuration)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

// PipelineMeasure records the durations of every phase and step of a pipeline into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{measure}
}
