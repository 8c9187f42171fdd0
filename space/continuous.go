package space

import (
	"fmt"
	"math"
)

// ContinuousSpace is a bounded 2D space where agents hold arbitrary float
// positions. Agents are point objects; the space keeps the position index so
// neighborhood queries do not depend on agent internals.
type ContinuousSpace struct {
	xMin, xMax float64
	yMin, yMax float64
	torus      bool

	order     []int64
	agents    map[int64]Agent
	positions map[int64][2]float64
}

// NewContinuousSpace creates a continuous space spanning [0, xMax) × [0, yMax).
func NewContinuousSpace(xMax, yMax float64, torus bool) *ContinuousSpace {
	return NewContinuousSpaceWithOrigin(0, xMax, 0, yMax, torus)
}

// NewContinuousSpaceWithOrigin creates a continuous space with explicit
// minimum bounds.
func NewContinuousSpaceWithOrigin(xMin, xMax, yMin, yMax float64, torus bool) *ContinuousSpace {
	return &ContinuousSpace{
		xMin:      xMin,
		xMax:      xMax,
		yMin:      yMin,
		yMax:      yMax,
		torus:     torus,
		agents:    make(map[int64]Agent),
		positions: make(map[int64][2]float64),
	}
}

// Width returns the horizontal extent of the space.
func (s *ContinuousSpace) Width() float64 { return s.xMax - s.xMin }

// Height returns the vertical extent of the space.
func (s *ContinuousSpace) Height() float64 { return s.yMax - s.yMin }

// Torus reports whether the space edges wrap.
func (s *ContinuousSpace) Torus() bool { return s.torus }

// OutOfBounds reports whether a point falls outside the space.
func (s *ContinuousSpace) OutOfBounds(x, y float64) bool {
	return x < s.xMin || x >= s.xMax || y < s.yMin || y >= s.yMax
}

// TorusAdjust wraps a point into the space. On a non-toroidal space an
// out-of-bounds point is an error.
func (s *ContinuousSpace) TorusAdjust(x, y float64) (float64, float64, error) {
	if !s.OutOfBounds(x, y) {
		return x, y, nil
	}
	if !s.torus {
		return 0, 0, fmt.Errorf("adjust (%g, %g): %w", x, y, ErrOutOfBounds)
	}
	wrappedX := s.xMin + mod(x-s.xMin, s.Width())
	wrappedY := s.yMin + mod(y-s.yMin, s.Height())
	return wrappedX, wrappedY, nil
}

// PlaceAgent puts an agent at a point in the space.
func (s *ContinuousSpace) PlaceAgent(agent Agent, x, y float64) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	if _, ok := s.positions[agent.ID()]; ok {
		return fmt.Errorf("agent %d is already placed", agent.ID())
	}
	adjX, adjY, err := s.TorusAdjust(x, y)
	if err != nil {
		return err
	}
	s.order = append(s.order, agent.ID())
	s.agents[agent.ID()] = agent
	s.positions[agent.ID()] = [2]float64{adjX, adjY}
	return nil
}

// MoveAgent relocates a placed agent.
func (s *ContinuousSpace) MoveAgent(agent Agent, x, y float64) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	if _, ok := s.positions[agent.ID()]; !ok {
		return fmt.Errorf("move agent %d: %w", agent.ID(), ErrNotPlaced)
	}
	adjX, adjY, err := s.TorusAdjust(x, y)
	if err != nil {
		return err
	}
	s.positions[agent.ID()] = [2]float64{adjX, adjY}
	return nil
}

// RemoveAgent takes an agent out of the space.
func (s *ContinuousSpace) RemoveAgent(agent Agent) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	if _, ok := s.positions[agent.ID()]; !ok {
		return fmt.Errorf("remove agent %d: %w", agent.ID(), ErrNotPlaced)
	}
	delete(s.positions, agent.ID())
	delete(s.agents, agent.ID())
	for i, id := range s.order {
		if id == agent.ID() {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// PositionOf returns the agent's position, if placed.
func (s *ContinuousSpace) PositionOf(agent Agent) (x, y float64, ok bool) {
	if agent == nil {
		return 0, 0, false
	}
	pos, ok := s.positions[agent.ID()]
	return pos[0], pos[1], ok
}

// AgentCount returns the number of placed agents.
func (s *ContinuousSpace) AgentCount() int { return len(s.positions) }

// Agents returns placed agents in placement order.
func (s *ContinuousSpace) Agents() []Agent {
	out := make([]Agent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id])
	}
	return out
}

// GetNeighbors returns all agents within radius of the point, in placement
// order. With includeCenter false, agents at the exact point are excluded.
func (s *ContinuousSpace) GetNeighbors(x, y, radius float64, includeCenter bool) []Agent {
	var neighbors []Agent
	for _, id := range s.order {
		pos := s.positions[id]
		d := s.GetDistance(x, y, pos[0], pos[1])
		if d > radius {
			continue
		}
		if !includeCenter && d == 0 {
			continue
		}
		neighbors = append(neighbors, s.agents[id])
	}
	return neighbors
}

// GetDistance returns the distance between two points, taking torus
// shortcuts into account.
func (s *ContinuousSpace) GetDistance(x1, y1, x2, y2 float64) float64 {
	dx := math.Abs(x1 - x2)
	dy := math.Abs(y1 - y2)
	if s.torus {
		dx = math.Min(dx, s.Width()-dx)
		dy = math.Min(dy, s.Height()-dy)
	}
	return math.Hypot(dx, dy)
}

// GetHeading returns the displacement vector from one point to another,
// taking the shortest torus path when the space wraps.
func (s *ContinuousSpace) GetHeading(x1, y1, x2, y2 float64) (dx, dy float64) {
	dx = x2 - x1
	dy = y2 - y1
	if s.torus {
		if math.Abs(dx) > s.Width()/2 {
			dx -= math.Copysign(s.Width(), dx)
		}
		if math.Abs(dy) > s.Height()/2 {
			dy -= math.Copysign(s.Height(), dy)
		}
	}
	return dx, dy
}

// mod is a floor modulus: the result has the sign of the divisor.
func mod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}
