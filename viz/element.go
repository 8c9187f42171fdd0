// Package viz serves a browser visualization of a running model. A
// set of elements renders model state into JSON payloads, and a
// websocket protocol steps the client through cached frames.
package viz

import (
	"fmt"

	"github.com/steppesim/steppe/collect"
	"github.com/steppesim/steppe/sim"
	"github.com/steppesim/steppe/space"
)

// Element renders one piece of the visualization. Render is called
// once per model step and its result is sent to the client as JSON.
type Element interface {
	Kind() string
	Render(model sim.Runnable) any
}

// Portrayal describes how a single agent is drawn on a canvas grid.
type Portrayal struct {
	Shape string  `json:"shape"`
	Color string  `json:"color"`
	Layer int     `json:"layer"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
	R     float64 `json:"r,omitempty"`
	Text  string  `json:"text,omitempty"`
}

// GridModel is implemented by models that expose a grid to draw.
type GridModel interface {
	VizGrid() *space.Grid
}

// CanvasGrid draws every agent on a grid using a portrayal function.
// Agents whose portrayal function returns nil are skipped.
type CanvasGrid struct {
	Portray      func(agent space.Agent) *Portrayal
	GridWidth    int
	GridHeight   int
	CanvasWidth  int
	CanvasHeight int
}

// NewCanvasGrid creates a canvas element with a 500x500 pixel canvas.
func NewCanvasGrid(portray func(space.Agent) *Portrayal, gridWidth, gridHeight int) *CanvasGrid {
	return &CanvasGrid{
		Portray:      portray,
		GridWidth:    gridWidth,
		GridHeight:   gridHeight,
		CanvasWidth:  500,
		CanvasHeight: 500,
	}
}

func (c *CanvasGrid) Kind() string { return "canvas" }

func (c *CanvasGrid) Render(model sim.Runnable) any {
	gridModel, ok := model.(GridModel)
	if !ok {
		return nil
	}
	grid := gridModel.VizGrid()
	if grid == nil {
		return nil
	}

	layers := map[int][]Portrayal{}
	grid.EachCell(func(coord space.Coord, agents []space.Agent) bool {
		for _, agent := range agents {
			portrayal := c.Portray(agent)
			if portrayal == nil {
				continue
			}
			portrayal.X = coord.X
			portrayal.Y = coord.Y
			layers[portrayal.Layer] = append(layers[portrayal.Layer], *portrayal)
		}
		return true
	})
	return layers
}

// CollectorModel is implemented by models that expose their data
// collector for charting.
type CollectorModel interface {
	VizCollector() *collect.Collector
}

// ChartSeries names one model reporter to chart and the color to use.
type ChartSeries struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// ChartModule charts the latest value of model reporters over time.
type ChartModule struct {
	Series       []ChartSeries
	CanvasWidth  int
	CanvasHeight int
}

// NewChartModule creates a chart element with a 500x200 pixel canvas.
func NewChartModule(series []ChartSeries) *ChartModule {
	return &ChartModule{
		Series:       series,
		CanvasWidth:  500,
		CanvasHeight: 200,
	}
}

func (c *ChartModule) Kind() string { return "chart" }

func (c *ChartModule) Render(model sim.Runnable) any {
	collectorModel, ok := model.(CollectorModel)
	if !ok {
		return nil
	}
	collector := collectorModel.VizCollector()
	if collector == nil {
		return nil
	}

	values := make([]any, len(c.Series))
	for i, series := range c.Series {
		values[i] = any(0)
		if samples := collector.ModelSeries(series.Label); len(samples) > 0 {
			values[i] = samples[len(samples)-1]
		}
	}
	return values
}

// TextElement renders an arbitrary line of text per step.
type TextElement struct {
	Text func(model sim.Runnable) string
}

func (t *TextElement) Kind() string { return "text" }

func (t *TextElement) Render(model sim.Runnable) any {
	if t.Text == nil {
		return ""
	}
	return t.Text(model)
}

// StepCounter is a TextElement showing the schedule's step count.
func StepCounter() *TextElement {
	return &TextElement{Text: func(model sim.Runnable) string {
		return fmt.Sprintf("Step %d", model.Base().Schedule.Steps())
	}}
}
