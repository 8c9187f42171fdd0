package space

import (
	"errors"
	"math/rand/v2"
	"testing"
)

type gridAgent struct {
	id int64
}

func (a *gridAgent) ID() int64 { return a.id }

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestGridPlaceAndPosition(t *testing.T) {
	g := NewSingleGrid(5, 5, false)
	agent := &gridAgent{id: 1}

	if err := g.PlaceAgent(agent, Coord{2, 3}); err != nil {
		t.Fatalf("place: %v", err)
	}
	pos, ok := g.PositionOf(agent)
	if !ok {
		t.Fatal("expected agent to be placed")
	}
	if pos != (Coord{2, 3}) {
		t.Fatalf("position = %v, want {2 3}", pos)
	}
	if g.AgentCount() != 1 {
		t.Fatalf("AgentCount() = %d, want 1", g.AgentCount())
	}
	if g.EmptyCount() != 24 {
		t.Fatalf("EmptyCount() = %d, want 24", g.EmptyCount())
	}
}

func TestGridPlaceTwiceFails(t *testing.T) {
	g := NewMultiGrid(5, 5, false)
	agent := &gridAgent{id: 1}
	if err := g.PlaceAgent(agent, Coord{0, 0}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := g.PlaceAgent(agent, Coord{1, 1}); err == nil {
		t.Fatal("expected error placing the same agent twice")
	}
}

func TestSingleGridOccupancy(t *testing.T) {
	g := NewSingleGrid(5, 5, false)
	if err := g.PlaceAgent(&gridAgent{id: 1}, Coord{2, 2}); err != nil {
		t.Fatalf("place: %v", err)
	}
	err := g.PlaceAgent(&gridAgent{id: 2}, Coord{2, 2})
	if !errors.Is(err, ErrCellOccupied) {
		t.Fatalf("expected ErrCellOccupied, got %v", err)
	}
}

func TestMultiGridStacksAgents(t *testing.T) {
	g := NewMultiGrid(5, 5, false)
	for id := int64(1); id <= 3; id++ {
		if err := g.PlaceAgent(&gridAgent{id: id}, Coord{2, 2}); err != nil {
			t.Fatalf("place %d: %v", id, err)
		}
	}
	contents, err := g.CellContents(Coord{2, 2})
	if err != nil {
		t.Fatalf("cell contents: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 agents in cell, got %d", len(contents))
	}
}

func TestGridMoveAgentUpdatesEmpties(t *testing.T) {
	g := NewSingleGrid(5, 5, false)
	agent := &gridAgent{id: 1}
	if err := g.PlaceAgent(agent, Coord{0, 0}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := g.MoveAgent(agent, Coord{4, 4}); err != nil {
		t.Fatalf("move: %v", err)
	}

	if !g.IsCellEmpty(Coord{0, 0}) {
		t.Fatal("expected vacated cell to be empty")
	}
	if g.IsCellEmpty(Coord{4, 4}) {
		t.Fatal("expected target cell to be occupied")
	}
	if g.EmptyCount() != 24 {
		t.Fatalf("EmptyCount() = %d, want 24", g.EmptyCount())
	}
}

func TestGridMoveUnplacedAgent(t *testing.T) {
	g := NewSingleGrid(5, 5, false)
	err := g.MoveAgent(&gridAgent{id: 1}, Coord{1, 1})
	if !errors.Is(err, ErrNotPlaced) {
		t.Fatalf("expected ErrNotPlaced, got %v", err)
	}
}

func TestGridRemoveAgent(t *testing.T) {
	g := NewSingleGrid(5, 5, false)
	agent := &gridAgent{id: 1}
	if err := g.PlaceAgent(agent, Coord{2, 2}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := g.RemoveAgent(agent); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if g.AgentCount() != 0 {
		t.Fatalf("AgentCount() = %d, want 0", g.AgentCount())
	}
	if !g.IsCellEmpty(Coord{2, 2}) {
		t.Fatal("expected cell to be empty after removal")
	}
	if err := g.RemoveAgent(agent); !errors.Is(err, ErrNotPlaced) {
		t.Fatalf("expected ErrNotPlaced, got %v", err)
	}
}

func TestTorusAdjustWraps(t *testing.T) {
	g := NewSingleGrid(5, 5, true)
	cases := []struct {
		in, want Coord
	}{
		{Coord{5, 0}, Coord{0, 0}},
		{Coord{-1, 0}, Coord{4, 0}},
		{Coord{0, -1}, Coord{0, 4}},
		{Coord{7, 12}, Coord{2, 2}},
	}
	for _, tc := range cases {
		got, err := g.TorusAdjust(tc.in)
		if err != nil {
			t.Fatalf("adjust %v: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("adjust %v = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTorusAdjustErrorsOffGrid(t *testing.T) {
	g := NewSingleGrid(5, 5, false)
	_, err := g.TorusAdjust(Coord{5, 0})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestNeighborhoodMoore(t *testing.T) {
	g := NewSingleGrid(5, 5, true)
	cells, err := g.Neighborhood(Coord{2, 2}, true, 1, false)
	if err != nil {
		t.Fatalf("neighborhood: %v", err)
	}
	if len(cells) != 8 {
		t.Fatalf("Moore radius 1 = %d cells, want 8", len(cells))
	}

	cells, err = g.Neighborhood(Coord{2, 2}, true, 1, true)
	if err != nil {
		t.Fatalf("neighborhood: %v", err)
	}
	if len(cells) != 9 {
		t.Fatalf("Moore radius 1 with center = %d cells, want 9", len(cells))
	}
}

func TestNeighborhoodVonNeumann(t *testing.T) {
	g := NewSingleGrid(9, 9, false)
	cells, err := g.Neighborhood(Coord{4, 4}, false, 1, false)
	if err != nil {
		t.Fatalf("neighborhood: %v", err)
	}
	if len(cells) != 4 {
		t.Fatalf("von Neumann radius 1 = %d cells, want 4", len(cells))
	}

	cells, err = g.Neighborhood(Coord{4, 4}, false, 2, false)
	if err != nil {
		t.Fatalf("neighborhood: %v", err)
	}
	// Manhattan ball of radius 2 minus the center.
	if len(cells) != 12 {
		t.Fatalf("von Neumann radius 2 = %d cells, want 12", len(cells))
	}
}

func TestNeighborhoodClipsAtEdges(t *testing.T) {
	g := NewSingleGrid(5, 5, false)
	cells, err := g.Neighborhood(Coord{0, 0}, true, 1, false)
	if err != nil {
		t.Fatalf("neighborhood: %v", err)
	}
	if len(cells) != 3 {
		t.Fatalf("corner Moore neighborhood = %d cells, want 3", len(cells))
	}
}

func TestNeighborhoodWrapsOnTorus(t *testing.T) {
	g := NewSingleGrid(5, 5, true)
	cells, err := g.Neighborhood(Coord{0, 0}, true, 1, false)
	if err != nil {
		t.Fatalf("neighborhood: %v", err)
	}
	if len(cells) != 8 {
		t.Fatalf("torus corner Moore neighborhood = %d cells, want 8", len(cells))
	}
}

func TestNeighborsReturnsAgents(t *testing.T) {
	g := NewSingleGrid(5, 5, false)
	if err := g.PlaceAgent(&gridAgent{id: 1}, Coord{1, 2}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := g.PlaceAgent(&gridAgent{id: 2}, Coord{3, 3}); err != nil {
		t.Fatalf("place: %v", err)
	}

	agents, err := g.Neighbors(Coord{2, 2}, true, 1, false)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(agents))
	}
}

func TestPlaceAgentRandomFillsGrid(t *testing.T) {
	g := NewSingleGrid(3, 3, false)
	rng := testRand(1)
	for id := int64(1); id <= 9; id++ {
		if _, err := g.PlaceAgentRandom(&gridAgent{id: id}, rng); err != nil {
			t.Fatalf("place %d: %v", id, err)
		}
	}
	if g.ExistsEmptyCells() {
		t.Fatal("expected a full grid")
	}
	if _, err := g.PlaceAgentRandom(&gridAgent{id: 10}, rng); !errors.Is(err, ErrNoEmptyCells) {
		t.Fatalf("expected ErrNoEmptyCells, got %v", err)
	}
}

func TestMoveToEmptyVacatesCell(t *testing.T) {
	g := NewSingleGrid(4, 4, false)
	agent := &gridAgent{id: 1}
	if err := g.PlaceAgent(agent, Coord{0, 0}); err != nil {
		t.Fatalf("place: %v", err)
	}

	rng := testRand(2)
	c, err := g.MoveToEmpty(agent, rng)
	if err != nil {
		t.Fatalf("move to empty: %v", err)
	}
	pos, _ := g.PositionOf(agent)
	if pos != c {
		t.Fatalf("position = %v, want %v", pos, c)
	}
	if g.EmptyCount() != 15 {
		t.Fatalf("EmptyCount() = %d, want 15", g.EmptyCount())
	}
}

func TestEachCellVisitsAllCells(t *testing.T) {
	g := NewSingleGrid(3, 2, false)
	visited := 0
	g.EachCell(func(c Coord, contents []Agent) bool {
		visited++
		return true
	})
	if visited != 6 {
		t.Fatalf("visited %d cells, want 6", visited)
	}

	visited = 0
	g.EachCell(func(c Coord, contents []Agent) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("early stop visited %d cells, want 1", visited)
	}
}
