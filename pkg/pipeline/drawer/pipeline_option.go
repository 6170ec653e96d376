package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-phases/pkg/pipeline/measure"
	"github.com/askiada/go-phases/pkg/pipeline/model"
)

const (
	startVertex = "start"
	endVertex   = "end"
)

// pipelineDrawer draws start -> phase -> steps -> next phase ... -> end.
type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
	last      *model.PhaseInfo
}

func (pd *pipelineDrawer) New() error {
	pd.Reset()
	pd.last = nil
	pd.startTime = time.Now()

	err := pd.AddStep(startVertex)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}

	err = pd.AddStep(endVertex)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PreparePhase(parentPhase, phase *model.PhaseInfo) error {
	err := pd.AddStep(phase.Key)
	if err != nil {
		return err
	}

	err = pd.linkFrom(parentPhase, phase.Key)
	if err != nil {
		return err
	}

	for _, step := range phase.Steps {
		name := stepVertex(phase.Key, step.Key)

		err := pd.AddStep(name)
		if err != nil {
			return err
		}

		err = pd.AddLink(phase.Key, name)
		if err != nil {
			return err
		}
	}

	pd.last = phase

	return nil
}

// linkFrom links every step of parentPhase, or the start vertex, to target.
func (pd *pipelineDrawer) linkFrom(parentPhase *model.PhaseInfo, target string) error {
	if parentPhase == nil {
		return pd.AddLink(startVertex, target)
	}

	for _, step := range parentPhase.Steps {
		err := pd.AddLink(stepVertex(parentPhase.Key, step.Key), target)
		if err != nil {
			return err
		}
	}

	return nil
}

func (pd *pipelineDrawer) OnStepOutcome(phase *model.PhaseInfo, step *model.StepInfo, kind model.OutcomeKind, computationDuration time.Duration) error {
	return pd.SetOutcome(stepVertex(phase.Key, step.Key), kind)
}

func (pd *pipelineDrawer) AfterPhase(phase *model.PhaseInfo, state model.PhaseState, totalDuration time.Duration) error {
	return pd.SetState(phase.Key, state)
}

func (pd *pipelineDrawer) Finish() error {
	if pd.last != nil {
		err := pd.linkFrom(pd.last, endVertex)
		if err != nil {
			return errors.Wrap(err, "unable to link end step")
		}
	}

	if pd.m != nil {
		err := pd.SetTotalTime(endVertex, pd.startTime)
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}

		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws every run of the pipeline with drawer. When measure is set, it must also be
// given to the pipeline (see measure.PipelineMeasure) and placed before the drawer.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure, startTime: time.Now()}
}
