package sim

import "math"

// Turtle is an embeddable agent base carrying a position and a heading in
// degrees, with the usual turtle-graphics movement helpers. Spaces stay in
// charge of collision and wrapping rules: movement methods compute target
// coordinates and the embedding agent asks its space to perform the move.
type Turtle struct {
	AgentID int64
	X, Y    float64
	// Heading is measured in degrees, counterclockwise from east.
	Heading float64
}

// NewTurtle creates a turtle with the given ID facing north.
func NewTurtle(id int64) Turtle {
	return Turtle{AgentID: id, Heading: 90}
}

// ID returns the agent identifier.
func (t *Turtle) ID() int64 { return t.AgentID }

// SetXY moves the turtle to the given coordinates without changing heading.
func (t *Turtle) SetXY(x, y float64) {
	t.X = x
	t.Y = y
}

// Ahead returns the coordinates the given distance in front of the turtle.
func (t *Turtle) Ahead(distance float64) (x, y float64) {
	rad := t.Heading * math.Pi / 180
	return t.X + math.Cos(rad)*distance, t.Y + math.Sin(rad)*distance
}

// Behind returns the coordinates the given distance behind the turtle.
func (t *Turtle) Behind(distance float64) (x, y float64) {
	return t.Ahead(-distance)
}

// TurnLeft rotates the turtle counterclockwise by degrees.
func (t *Turtle) TurnLeft(degrees float64) {
	t.Heading = normalizeDegrees(t.Heading + degrees)
}

// TurnRight rotates the turtle clockwise by degrees.
func (t *Turtle) TurnRight(degrees float64) {
	t.Heading = normalizeDegrees(t.Heading - degrees)
}

// DistanceToXY returns the Euclidean distance to the given coordinates.
func (t *Turtle) DistanceToXY(x, y float64) float64 {
	return math.Hypot(x-t.X, y-t.Y)
}

// DistanceTo returns the Euclidean distance to another turtle.
func (t *Turtle) DistanceTo(other *Turtle) float64 {
	return t.DistanceToXY(other.X, other.Y)
}

// TowardsXY returns the heading from the turtle to the given coordinates.
func (t *Turtle) TowardsXY(x, y float64) float64 {
	dx := x - t.X
	dy := y - t.Y
	if dx == 0 && dy == 0 {
		return t.Heading
	}
	return normalizeDegrees(math.Atan2(dy, dx) * 180 / math.Pi)
}

// FaceXY turns the turtle towards the given coordinates.
func (t *Turtle) FaceXY(x, y float64) {
	t.Heading = t.TowardsXY(x, y)
}

// Face turns the turtle towards another turtle.
func (t *Turtle) Face(other *Turtle) {
	t.FaceXY(other.X, other.Y)
}

func normalizeDegrees(degrees float64) float64 {
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}
	return degrees
}
