package drawer

import (
	"time"

	"github.com/askiada/go-phases/pkg/pipeline/measure"
	"github.com/askiada/go-phases/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline run.
type Drawer interface {
	// Reset removes every vertex before a new run is drawn.
	Reset()
	// AddStep adds a vertex to the pipeline drawer.
	AddStep(stepName string) error
	// AddLink adds a link between parent and children vertices.
	AddLink(parentStepName, childrenStepName string) error
	// Draw writes the pipeline graph.
	Draw() error
	// SetTotalTime sets the time elapsed since startTime on the vertex.
	SetTotalTime(stepName string, startTime time.Time) error
	// SetOutcome colours the vertex after the step outcome.
	SetOutcome(stepName string, kind model.OutcomeKind) error
	// SetState colours the vertex after the phase final state.
	SetState(phaseName string, state model.PhaseState) error
	// AddMeasure adds a measure to the pipeline drawer.
	AddMeasure(measure measure.Measure) error
}
