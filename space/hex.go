package space

import "fmt"

// HexGrid is a hexagonal grid following odd-q offset rules: odd columns are
// shifted down relative to even columns. Storage and occupancy semantics are
// those of the embedded Grid; only the neighborhood shape differs.
//
// See http://www.redblobgames.com/grids/hexagons/#coordinates for the
// coordinate system.
type HexGrid struct {
	Grid
}

// NewHexGrid creates a multi-occupancy hexagonal grid.
func NewHexGrid(width, height int, torus bool) *HexGrid {
	return &HexGrid{Grid: *newGrid(width, height, torus, true)}
}

// NewSingleHexGrid creates a hexagonal grid enforcing one agent per cell.
func NewSingleHexGrid(width, height int, torus bool) *HexGrid {
	return &HexGrid{Grid: *newGrid(width, height, torus, false)}
}

// Neighborhood returns the hexagonal cells within radius of c, expanding
// ring by ring. Out-of-bounds cells are skipped on non-toroidal grids.
func (g *HexGrid) Neighborhood(c Coord, radius int, includeCenter bool) ([]Coord, error) {
	center, err := g.TorusAdjust(c)
	if err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, fmt.Errorf("radius %d is negative", radius)
	}

	seen := map[Coord]struct{}{center: {}}
	frontier := []Coord{center}
	var cells []Coord
	if includeCenter {
		cells = append(cells, center)
	}

	for ring := 0; ring < radius; ring++ {
		var next []Coord
		for _, cell := range frontier {
			for _, adjacent := range g.adjacent(cell) {
				if _, ok := seen[adjacent]; ok {
					continue
				}
				seen[adjacent] = struct{}{}
				cells = append(cells, adjacent)
				next = append(next, adjacent)
			}
		}
		frontier = next
	}
	return cells, nil
}

// Neighbors returns the agents in the hexagonal neighborhood of c.
func (g *HexGrid) Neighbors(c Coord, radius int, includeCenter bool) ([]Agent, error) {
	cells, err := g.Neighborhood(c, radius, includeCenter)
	if err != nil {
		return nil, err
	}
	var agents []Agent
	for _, cell := range cells {
		agents = append(agents, g.cells[cell.X][cell.Y]...)
	}
	return agents, nil
}

// adjacent returns the up-to-six in-bounds cells touching c under odd-q
// offset rules.
func (g *HexGrid) adjacent(c Coord) []Coord {
	candidates := []Coord{
		{c.X, c.Y - 1},
		{c.X, c.Y + 1},
	}
	if c.X%2 == 0 {
		candidates = append(candidates,
			Coord{c.X - 1, c.Y + 1}, Coord{c.X - 1, c.Y},
			Coord{c.X + 1, c.Y + 1}, Coord{c.X + 1, c.Y},
		)
	} else {
		candidates = append(candidates,
			Coord{c.X - 1, c.Y}, Coord{c.X - 1, c.Y - 1},
			Coord{c.X + 1, c.Y}, Coord{c.X + 1, c.Y - 1},
		)
	}

	var cells []Coord
	for _, candidate := range candidates {
		adjusted, err := g.TorusAdjust(candidate)
		if err != nil {
			continue
		}
		cells = append(cells, adjusted)
	}
	return cells
}
