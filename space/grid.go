package space

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Agent is the minimal contract spaces require from placed objects.
type Agent interface {
	ID() int64
}

// Coord addresses one grid cell. (0, 0) is the bottom-left cell.
type Coord struct {
	X, Y int
}

var (
	// ErrOutOfBounds indicates a coordinate outside a non-toroidal space.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
	// ErrCellOccupied indicates a single-occupancy cell already holds an agent.
	ErrCellOccupied = errors.New("cell already occupied")
	// ErrNoEmptyCells indicates the space has no empty cell left.
	ErrNoEmptyCells = errors.New("no empty cells")
	// ErrNotPlaced indicates the agent has no position in this space.
	ErrNotPlaced = errors.New("agent is not placed")
)

// Grid is a width×height cell grid. A single-occupancy grid holds at most
// one agent per cell; a multi-occupancy grid holds any number. When the grid
// is toroidal, opposite edges wrap to each other.
//
// The grid keeps an empties ledger mirroring cell contents, so random
// placement does not scan the full grid.
type Grid struct {
	width  int
	height int
	torus  bool
	multi  bool

	cells     [][][]Agent
	positions map[int64]Coord
	empties   map[Coord]struct{}

	// cutoffEmpties is the break-even point between rejection sampling and
	// sorting the empties ledger when picking a random empty cell.
	cutoffEmpties int
}

// NewSingleGrid creates a grid that enforces one agent per cell.
func NewSingleGrid(width, height int, torus bool) *Grid {
	return newGrid(width, height, torus, false)
}

// NewMultiGrid creates a grid whose cells hold any number of agents.
func NewMultiGrid(width, height int, torus bool) *Grid {
	return newGrid(width, height, torus, true)
}

func newGrid(width, height int, torus, multi bool) *Grid {
	g := &Grid{
		width:     width,
		height:    height,
		torus:     torus,
		multi:     multi,
		cells:     make([][][]Agent, width),
		positions: make(map[int64]Coord),
		empties:   make(map[Coord]struct{}, width*height),
	}
	for x := 0; x < width; x++ {
		g.cells[x] = make([][]Agent, height)
		for y := 0; y < height; y++ {
			g.empties[Coord{x, y}] = struct{}{}
		}
	}
	g.cutoffEmpties = int(7.953 * math.Pow(float64(width*height), 0.384))
	return g
}

// Width returns the grid width in cells.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in cells.
func (g *Grid) Height() int { return g.height }

// Torus reports whether the grid edges wrap.
func (g *Grid) Torus() bool { return g.torus }

// OutOfBounds reports whether the coordinate falls outside the grid before
// torus adjustment.
func (g *Grid) OutOfBounds(c Coord) bool {
	return c.X < 0 || c.X >= g.width || c.Y < 0 || c.Y >= g.height
}

// TorusAdjust wraps a coordinate onto the grid. On a non-toroidal grid an
// out-of-bounds coordinate is an error.
func (g *Grid) TorusAdjust(c Coord) (Coord, error) {
	if !g.OutOfBounds(c) {
		return c, nil
	}
	if !g.torus {
		return Coord{}, fmt.Errorf("adjust (%d, %d): %w", c.X, c.Y, ErrOutOfBounds)
	}
	x := ((c.X % g.width) + g.width) % g.width
	y := ((c.Y % g.height) + g.height) % g.height
	return Coord{x, y}, nil
}

// PlaceAgent puts an agent at the given cell. Placing onto an occupied cell
// of a single-occupancy grid returns ErrCellOccupied. An agent already on
// the grid must be moved, not placed again.
func (g *Grid) PlaceAgent(agent Agent, c Coord) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	if _, ok := g.positions[agent.ID()]; ok {
		return fmt.Errorf("agent %d is already placed", agent.ID())
	}
	adjusted, err := g.TorusAdjust(c)
	if err != nil {
		return err
	}
	if !g.multi && len(g.cells[adjusted.X][adjusted.Y]) > 0 {
		return fmt.Errorf("place agent %d at (%d, %d): %w", agent.ID(), adjusted.X, adjusted.Y, ErrCellOccupied)
	}
	g.cells[adjusted.X][adjusted.Y] = append(g.cells[adjusted.X][adjusted.Y], agent)
	g.positions[agent.ID()] = adjusted
	delete(g.empties, adjusted)
	return nil
}

// PlaceAgentRandom puts an agent on a random empty cell drawn from rng.
func (g *Grid) PlaceAgentRandom(agent Agent, rng *rand.Rand) (Coord, error) {
	c, err := g.randomEmpty(rng)
	if err != nil {
		return Coord{}, err
	}
	if err := g.PlaceAgent(agent, c); err != nil {
		return Coord{}, err
	}
	return c, nil
}

// MoveAgent relocates a placed agent to a new cell, vacating its old cell.
func (g *Grid) MoveAgent(agent Agent, c Coord) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	old, ok := g.positions[agent.ID()]
	if !ok {
		return fmt.Errorf("move agent %d: %w", agent.ID(), ErrNotPlaced)
	}
	adjusted, err := g.TorusAdjust(c)
	if err != nil {
		return err
	}
	if adjusted == old {
		return nil
	}
	if !g.multi && len(g.cells[adjusted.X][adjusted.Y]) > 0 {
		return fmt.Errorf("move agent %d to (%d, %d): %w", agent.ID(), adjusted.X, adjusted.Y, ErrCellOccupied)
	}
	g.removeFromCell(agent, old)
	g.cells[adjusted.X][adjusted.Y] = append(g.cells[adjusted.X][adjusted.Y], agent)
	g.positions[agent.ID()] = adjusted
	delete(g.empties, adjusted)
	return nil
}

// MoveToEmpty relocates a placed agent to a random empty cell.
func (g *Grid) MoveToEmpty(agent Agent, rng *rand.Rand) (Coord, error) {
	if agent == nil {
		return Coord{}, fmt.Errorf("agent is required")
	}
	if _, ok := g.positions[agent.ID()]; !ok {
		return Coord{}, fmt.Errorf("move agent %d: %w", agent.ID(), ErrNotPlaced)
	}
	c, err := g.randomEmpty(rng)
	if err != nil {
		return Coord{}, err
	}
	if err := g.MoveAgent(agent, c); err != nil {
		return Coord{}, err
	}
	return c, nil
}

// RemoveAgent takes an agent off the grid.
func (g *Grid) RemoveAgent(agent Agent) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	pos, ok := g.positions[agent.ID()]
	if !ok {
		return fmt.Errorf("remove agent %d: %w", agent.ID(), ErrNotPlaced)
	}
	g.removeFromCell(agent, pos)
	delete(g.positions, agent.ID())
	return nil
}

func (g *Grid) removeFromCell(agent Agent, pos Coord) {
	cell := g.cells[pos.X][pos.Y]
	for i, got := range cell {
		if got.ID() == agent.ID() {
			g.cells[pos.X][pos.Y] = append(cell[:i], cell[i+1:]...)
			break
		}
	}
	if len(g.cells[pos.X][pos.Y]) == 0 {
		g.empties[pos] = struct{}{}
	}
}

// PositionOf returns the agent's cell, if placed.
func (g *Grid) PositionOf(agent Agent) (Coord, bool) {
	if agent == nil {
		return Coord{}, false
	}
	c, ok := g.positions[agent.ID()]
	return c, ok
}

// CellContents returns the agents at the given cell.
func (g *Grid) CellContents(c Coord) ([]Agent, error) {
	adjusted, err := g.TorusAdjust(c)
	if err != nil {
		return nil, err
	}
	contents := g.cells[adjusted.X][adjusted.Y]
	out := make([]Agent, len(contents))
	copy(out, contents)
	return out, nil
}

// IsCellEmpty reports whether the cell holds no agents. Out-of-bounds cells
// on a non-toroidal grid report false.
func (g *Grid) IsCellEmpty(c Coord) bool {
	adjusted, err := g.TorusAdjust(c)
	if err != nil {
		return false
	}
	return len(g.cells[adjusted.X][adjusted.Y]) == 0
}

// ExistsEmptyCells reports whether any cell is empty.
func (g *Grid) ExistsEmptyCells() bool { return len(g.empties) > 0 }

// EmptyCount returns the number of empty cells.
func (g *Grid) EmptyCount() int { return len(g.empties) }

// AgentCount returns the number of placed agents.
func (g *Grid) AgentCount() int { return len(g.positions) }

// EachCell calls fn for every cell in column-major order with a copy of its
// contents. Returning false stops the iteration.
func (g *Grid) EachCell(fn func(c Coord, contents []Agent) bool) {
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			contents := make([]Agent, len(g.cells[x][y]))
			copy(contents, g.cells[x][y])
			if !fn(Coord{x, y}, contents) {
				return
			}
		}
	}
}

// Neighborhood returns the cells around c within radius. A Moore
// neighborhood includes diagonals; a von Neumann neighborhood keeps cells
// within Manhattan distance. On non-toroidal grids out-of-bounds cells are
// skipped. Cells are returned in deterministic scan order.
func (g *Grid) Neighborhood(c Coord, moore bool, radius int, includeCenter bool) ([]Coord, error) {
	center, err := g.TorusAdjust(c)
	if err != nil {
		return nil, err
	}

	var cells []Coord
	seen := make(map[Coord]struct{})
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			if dx == 0 && dy == 0 && !includeCenter {
				continue
			}
			if !moore && abs(dx)+abs(dy) > radius {
				continue
			}
			adjusted, err := g.TorusAdjust(Coord{center.X + dx, center.Y + dy})
			if err != nil {
				continue
			}
			if _, ok := seen[adjusted]; ok {
				continue
			}
			seen[adjusted] = struct{}{}
			cells = append(cells, adjusted)
		}
	}
	return cells, nil
}

// Neighbors returns the agents in the neighborhood of c.
func (g *Grid) Neighbors(c Coord, moore bool, radius int, includeCenter bool) ([]Agent, error) {
	cells, err := g.Neighborhood(c, moore, radius, includeCenter)
	if err != nil {
		return nil, err
	}
	var agents []Agent
	for _, cell := range cells {
		agents = append(agents, g.cells[cell.X][cell.Y]...)
	}
	return agents, nil
}

// randomEmpty picks a random empty cell. With plenty of empties it uses
// rejection sampling; with few it sorts the ledger and draws once. The
// cutoff follows the break-even measured for Agents.jl's random_empty.
func (g *Grid) randomEmpty(rng *rand.Rand) (Coord, error) {
	if len(g.empties) == 0 {
		return Coord{}, ErrNoEmptyCells
	}
	if rng == nil {
		return Coord{}, fmt.Errorf("random source is required")
	}
	if len(g.empties) > g.cutoffEmpties {
		for {
			c := Coord{rng.IntN(g.width), rng.IntN(g.height)}
			if _, ok := g.empties[c]; ok {
				return c, nil
			}
		}
	}
	sorted := make([]Coord, 0, len(g.empties))
	for c := range g.empties {
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})
	return sorted[rng.IntN(len(sorted))], nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
