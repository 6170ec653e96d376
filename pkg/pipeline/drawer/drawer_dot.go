package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-phases/pkg/pipeline/measure"
	"github.com/askiada/go-phases/pkg/pipeline/model"
)

// DOTDrawer writes the pipeline graph in the Graphviz DOT language.
type DOTDrawer struct {
	graph    graph.Graph[string, string]
	fileName string
	writer   io.Writer
}

// NewDOTDrawer creates a drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	return &DOTDrawer{
		fileName: fileName,
		graph:    graph.New(graph.StringHash, graph.Directed()),
	}
}

// NewDOTWriterDrawer creates a drawer writing to wrt.
func NewDOTWriterDrawer(wrt io.Writer) *DOTDrawer {
	return &DOTDrawer{
		writer: wrt,
		graph:  graph.New(graph.StringHash, graph.Directed()),
	}
}

// Reset drops every vertex and edge.
func (d *DOTDrawer) Reset() {
	d.graph = graph.New(graph.StringHash, graph.Directed())
}

// AddStep adds a vertex to the pipeline graph.
func (d *DOTDrawer) AddStep(name string) error {
	err := d.graph.AddVertex(name)
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", name)
	}

	return nil
}

// AddLink adds a link between parent and children vertices.
func (d *DOTDrawer) AddLink(parentName, childrenName string) error {
	err := d.graph.AddEdge(parentName, childrenName)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childrenName)
	}

	return nil
}

// Draw writes the pipeline graph to the file or writer of the drawer.
func (d *DOTDrawer) Draw() error {
	if d.writer != nil {
		return dot(d.graph, d.writer)
	}

	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}
	defer file.Close()

	err = dot(d.graph, file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.fileName)
	}

	return nil
}

// SetTotalTime sets the total time for the vertex.
func (d *DOTDrawer) SetTotalTime(stepName string, startTime time.Time) error {
	_, properties, err := d.graph.VertexWithProperties(stepName)
	if err != nil {
		return errors.Wrapf(err, "unable to get %s vertex properties", stepName)
	}

	properties.Attributes["xlabel"] = time.Since(startTime).Round(time.Millisecond).String()

	return nil
}

var (
	outcomeColours = map[model.OutcomeKind][3]uint8{
		model.Success:  {46, 160, 67},
		model.Degraded: {230, 145, 56},
		model.Fatal:    {215, 58, 73},
	}
	stateColours = map[model.PhaseState][3]uint8{
		model.Completed: {46, 160, 67},
		model.Failed:    {215, 58, 73},
	}
)

// SetOutcome fills the vertex with the colour of the outcome.
func (d *DOTDrawer) SetOutcome(stepName string, kind model.OutcomeKind) error {
	rgb, ok := outcomeColours[kind]
	if !ok {
		return nil
	}

	return d.fill(stepName, rgb)
}

// SetState outlines the vertex with the colour of the phase state.
func (d *DOTDrawer) SetState(phaseName string, state model.PhaseState) error {
	rgb, ok := stateColours[state]
	if !ok {
		return nil
	}

	colour, err := colors.RGB(rgb[0], rgb[1], rgb[2])
	if err != nil {
		return errors.Wrap(err, "unable to get colour")
	}

	_, properties, err := d.graph.VertexWithProperties(phaseName)
	if err != nil {
		return errors.Wrapf(err, "unable to get %s vertex properties", phaseName)
	}

	properties.Attributes["color"] = colour.ToHEX().String()
	properties.Attributes["penwidth"] = "2"

	return nil
}

func (d *DOTDrawer) fill(name string, rgb [3]uint8) error {
	colour, err := colors.RGB(rgb[0], rgb[1], rgb[2])
	if err != nil {
		return errors.Wrap(err, "unable to get colour")
	}

	_, properties, err := d.graph.VertexWithProperties(name)
	if err != nil {
		return errors.Wrapf(err, "unable to get %s vertex properties", name)
	}

	properties.Attributes["style"] = "filled"
	properties.Attributes["fillcolor"] = colour.ToHEX().String()

	return nil
}

const maxRGB = 240

// AddMeasure labels each phase to step edge with the average step duration, the slowest in red.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	allElapsed := make(map[time.Duration]string)
	sortedElapsed := []time.Duration{}

	for _, mt := range msr.AllMetrics() {
		for _, info := range mt.AVGStepDuration() {
			if info.Elapsed == 0 {
				continue
			}

			if _, ok := allElapsed[info.Elapsed]; ok {
				continue
			}

			allElapsed[info.Elapsed] = ""

			sortedElapsed = append(sortedElapsed, info.Elapsed)
		}
	}

	if len(sortedElapsed) > 0 {
		sort.Slice(sortedElapsed, func(i, j int) bool {
			return sortedElapsed[i] > sortedElapsed[j]
		})

		maxValue := sortedElapsed[0]
		minValue := sortedElapsed[len(sortedElapsed)-1]

		for curr := range allElapsed {
			fraction := 1.0
			if maxValue > minValue {
				fraction = float64(curr-minValue) / float64(maxValue-minValue)
			}

			red := maxRGB * fraction
			blue := maxRGB - maxRGB*fraction

			colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
			if err != nil {
				return errors.Wrap(err, "unable to get colour")
			}

			allElapsed[curr] = colour.ToHEX().String()
		}
	}

	err := d.updateMetrics(msr, allElapsed)
	if err != nil {
		return errors.Wrap(err, "unable to update metrics")
	}

	return nil
}

func (d *DOTDrawer) updateMetrics(msr measure.Measure, allElapsed map[time.Duration]string) error {
	for phaseKey, mt := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(phaseKey)
		if err != nil {
			return errors.Wrap(err, "unable to get vertex properties")
		}

		if avg := mt.AVGDuration(); avg != 0 {
			properties.Attributes["xlabel"] = "avg: " + avg.String()
		}

		if total := mt.GetTotalDuration(); total > 0 {
			properties.Attributes["xlabel"] += ", end: " + total.String()
		}

		for stepKey, info := range mt.AVGStepDuration() {
			if info.Elapsed == 0 {
				continue
			}

			err := d.graph.UpdateEdge(phaseKey, stepVertex(phaseKey, stepKey),
				graph.EdgeAttribute("label", info.Elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", allElapsed[info.Elapsed]), //nolint
			)
			if err != nil {
				return errors.Wrap(err, "unable to update edge")
			}
		}
	}

	return nil
}

func stepVertex(phaseKey, stepKey string) string {
	return phaseKey + "/" + stepKey
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot[K comparable, T any](g graph.Graph[K, T], wrt io.Writer, options ...func(*description)) error {
	desc, err := generateDOT(g, options...)
	if err != nil {
		return fmt.Errorf("failed to generate DOT description: %w", err)
	}

	return renderDOT(wrt, desc)
}

// GraphAttribute is a functional option for the [DOT] method.
func GraphAttribute(key, value string) func(*description) {
	return func(d *description) {
		d.Attributes[key] = value
	}
}

func generateDOT[K comparable, T any](gra graph.Graph[K, T], options ...func(*description)) (description, error) {
	desc := description{
		GraphType:    "graph",
		Attributes:   make(map[string]string),
		EdgeOperator: "--",
		Statements:   make([]statement, 0),
	}

	for _, option := range options {
		option(&desc)
	}

	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]K, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}

	// stable output
	sort.Slice(vertices, func(i, j int) bool {
		return fmt.Sprint(vertices[i]) < fmt.Sprint(vertices[j])
	})

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)
		sourceAttributes := make(map[string]string, len(sourceProperties.Attributes))

		for key, value := range sourceProperties.Attributes {
			if key == "xlabel" {
				htmlAttributes["label"] = fmt.Sprintf(`<%+v <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, value)

				continue
			}

			sourceAttributes[key] = value
		}

		stmt := statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		}
		desc.Statements = append(desc.Statements, stmt)

		targets := make([]K, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}

		sort.Slice(targets, func(i, j int) bool {
			return fmt.Sprint(targets[i]) < fmt.Sprint(targets[j])
		})

		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			stmt := statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			}
			desc.Statements = append(desc.Statements, stmt)
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
