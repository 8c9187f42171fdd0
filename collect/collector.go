// Package collect gathers time series from running models: model-level
// reporters, per-agent reporters, and free-form tables, with CSV export.
package collect

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/steppesim/steppe/sim"
)

// ModelReporter computes one model-level value per collection.
type ModelReporter func() any

// AgentReporter computes one value for a single agent per collection.
type AgentReporter func(agent sim.Agent) any

// AgentRow is one collected agent measurement.
type AgentRow struct {
	Step    int
	AgentID int64
	Values  map[string]any
}

// Collector accumulates model and agent series keyed by scheduler step.
type Collector struct {
	modelOrder     []string
	modelReporters map[string]ModelReporter
	agentOrder     []string
	agentReporters map[string]AgentReporter

	steps       []int
	modelSeries map[string][]any
	agentRows   []AgentRow

	tableOrder []string
	tables     map[string]*table
}

type table struct {
	columns []string
	rows    []map[string]any
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{
		modelReporters: make(map[string]ModelReporter),
		agentReporters: make(map[string]AgentReporter),
		modelSeries:    make(map[string][]any),
		tables:         make(map[string]*table),
	}
}

// ModelReporter registers a model-level reporter. Registering a name twice
// replaces the reporter but keeps its column position.
func (c *Collector) ModelReporter(name string, fn ModelReporter) {
	if fn == nil {
		return
	}
	if _, ok := c.modelReporters[name]; !ok {
		c.modelOrder = append(c.modelOrder, name)
	}
	c.modelReporters[name] = fn
}

// AgentReporter registers a per-agent reporter.
func (c *Collector) AgentReporter(name string, fn AgentReporter) {
	if fn == nil {
		return
	}
	if _, ok := c.agentReporters[name]; !ok {
		c.agentOrder = append(c.agentOrder, name)
	}
	c.agentReporters[name] = fn
}

// AddTable declares a free-form table with fixed columns.
func (c *Collector) AddTable(name string, columns ...string) error {
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s needs at least one column", name)
	}
	if _, ok := c.tables[name]; ok {
		return fmt.Errorf("table %s already exists", name)
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	c.tables[name] = &table{columns: cols}
	c.tableOrder = append(c.tableOrder, name)
	return nil
}

// AddTableRow appends a row to a declared table. The row must cover exactly
// the declared columns.
func (c *Collector) AddTableRow(name string, row map[string]any) error {
	tbl, ok := c.tables[name]
	if !ok {
		return fmt.Errorf("table %s does not exist", name)
	}
	if len(row) != len(tbl.columns) {
		return fmt.Errorf("table %s row has %d values, want %d", name, len(row), len(tbl.columns))
	}
	stored := make(map[string]any, len(tbl.columns))
	for _, col := range tbl.columns {
		value, ok := row[col]
		if !ok {
			return fmt.Errorf("table %s row is missing column %s", name, col)
		}
		stored[col] = value
	}
	tbl.rows = append(tbl.rows, stored)
	return nil
}

// Collect records one model row and one row per scheduled agent at the
// model's current step.
func (c *Collector) Collect(model sim.Runnable) {
	if model == nil || model.Base() == nil {
		return
	}
	step := 0
	var agents []sim.Agent
	if schedule := model.Base().Schedule; schedule != nil {
		step = schedule.Steps()
		agents = schedule.Agents()
	}

	if len(c.modelReporters) > 0 {
		for _, name := range c.modelOrder {
			c.modelSeries[name] = append(c.modelSeries[name], c.modelReporters[name]())
		}
	}
	c.steps = append(c.steps, step)

	if len(c.agentReporters) == 0 {
		return
	}
	for _, agent := range agents {
		values := make(map[string]any, len(c.agentOrder))
		for _, name := range c.agentOrder {
			values[name] = c.agentReporters[name](agent)
		}
		c.agentRows = append(c.agentRows, AgentRow{Step: step, AgentID: agent.ID(), Values: values})
	}
}

// Collections returns how many rows Collect has recorded.
func (c *Collector) Collections() int { return len(c.steps) }

// Steps returns the step value of every collection, in collection order.
func (c *Collector) Steps() []int {
	out := make([]int, len(c.steps))
	copy(out, c.steps)
	return out
}

// ModelReporterNames returns registered model reporter names in column order.
func (c *Collector) ModelReporterNames() []string {
	out := make([]string, len(c.modelOrder))
	copy(out, c.modelOrder)
	return out
}

// AgentReporterNames returns registered agent reporter names in column order.
func (c *Collector) AgentReporterNames() []string {
	out := make([]string, len(c.agentOrder))
	copy(out, c.agentOrder)
	return out
}

// ModelSeries returns the collected values for one model reporter.
func (c *Collector) ModelSeries(name string) []any {
	series := c.modelSeries[name]
	out := make([]any, len(series))
	copy(out, series)
	return out
}

// AgentRows returns every collected agent measurement.
func (c *Collector) AgentRows() []AgentRow {
	out := make([]AgentRow, len(c.agentRows))
	copy(out, c.agentRows)
	return out
}

// AgentRowsAt returns agent measurements for one step, ordered by agent ID.
func (c *Collector) AgentRowsAt(step int) []AgentRow {
	var out []AgentRow
	for _, row := range c.agentRows {
		if row.Step == step {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// TableColumns returns the declared columns of a table.
func (c *Collector) TableColumns(name string) ([]string, error) {
	tbl, ok := c.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", name)
	}
	out := make([]string, len(tbl.columns))
	copy(out, tbl.columns)
	return out, nil
}

// TableRows returns the rows of a table in insertion order.
func (c *Collector) TableRows(name string) ([]map[string]any, error) {
	tbl, ok := c.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", name)
	}
	out := make([]map[string]any, len(tbl.rows))
	for i, row := range tbl.rows {
		copied := make(map[string]any, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out[i] = copied
	}
	return out, nil
}

// WriteModelCSV writes the model series as CSV with a step column.
func (c *Collector) WriteModelCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"step"}, c.modelOrder...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write model csv header: %w", err)
	}
	for i, step := range c.steps {
		record := make([]string, 0, len(header))
		record = append(record, fmt.Sprint(step))
		for _, name := range c.modelOrder {
			record = append(record, formatValue(c.modelSeries[name], i))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write model csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAgentCSV writes agent measurements as CSV with step and agent
// columns.
func (c *Collector) WriteAgentCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"step", "agent_id"}, c.agentOrder...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write agent csv header: %w", err)
	}
	for _, row := range c.agentRows {
		record := make([]string, 0, len(header))
		record = append(record, fmt.Sprint(row.Step), fmt.Sprint(row.AgentID))
		for _, name := range c.agentOrder {
			record = append(record, fmt.Sprint(row.Values[name]))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write agent csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTableCSV writes one declared table as CSV.
func (c *Collector) WriteTableCSV(name string, w io.Writer) error {
	tbl, ok := c.tables[name]
	if !ok {
		return fmt.Errorf("table %s does not exist", name)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.columns); err != nil {
		return fmt.Errorf("write table csv header: %w", err)
	}
	for _, row := range tbl.rows {
		record := make([]string, 0, len(tbl.columns))
		for _, col := range tbl.columns {
			record = append(record, fmt.Sprint(row[col]))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write table csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(series []any, i int) string {
	if i >= len(series) {
		return ""
	}
	return fmt.Sprint(series[i])
}
