// Package world provides the square grid, terrain cells, roads, rivers, and
// spatial helpers the simulation runs on.
package world

import "fmt"

// Position is an integer cell coordinate on the grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// P is shorthand for constructing a Position.
func P(x, y int) Position {
	return Position{X: x, Y: y}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Less orders positions lexicographically (x then y). Used wherever equal-cost
// choices must be broken deterministically.
func (p Position) Less(other Position) bool {
	if p.X != other.X {
		return p.X < other.X
	}
	return p.Y < other.Y
}

// Edge is an unordered pair of positions sharing a cardinal side, stored in
// canonical orientation so Edge{a,b} and Edge{b,a} compare equal as map keys.
type Edge struct {
	A Position `json:"a"`
	B Position `json:"b"`
}

// NewEdge canonicalizes the pair. Panics on a diagonal pair: edges only exist
// between cells sharing a side.
func NewEdge(from, to Position) Edge {
	if from.X != to.X && from.Y != to.Y {
		panic(fmt.Sprintf("diagonal edge %v -> %v", from, to))
	}
	if to.X > from.X || to.Y > from.Y {
		return Edge{A: from, B: to}
	}
	return Edge{A: to, B: from}
}

// Horizontal reports whether the edge runs along the x axis.
func (e Edge) Horizontal() bool {
	return e.A.Y == e.B.Y
}

func (e Edge) String() string {
	return fmt.Sprintf("%v-%v", e.A, e.B)
}

// PathEdges returns the consecutive edges of a path.
func PathEdges(path []Position) []Edge {
	if len(path) < 2 {
		return nil
	}
	out := make([]Edge, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		out = append(out, NewEdge(path[i-1], path[i]))
	}
	return out
}

// Corners returns the four corner positions of the tile rooted at p, in
// clockwise order starting at p. The tile occupies [p, p+(1,1)].
func Corners(p Position) [4]Position {
	return [4]Position{
		p,
		{X: p.X + 1, Y: p.Y},
		{X: p.X + 1, Y: p.Y + 1},
		{X: p.X, Y: p.Y + 1},
	}
}

var cardinalOffsets = [4]Position{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}}

var adjacentTileOffsets = [4]Position{{X: 0, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}}
