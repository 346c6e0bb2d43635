// Package visibility reveals world cells by line of sight from view points.
// Rays are cast from the view point to a Bresenham circle at the view
// distance; along each ray a cell is visible while its slope from the eye
// exceeds every slope seen before it, with a planet-curvature drop applied.
package visibility

import (
	"math"

	"github.com/halvard/tradewinds/internal/world"
)

// Computer performs line-of-sight sweeps and remembers which view points it
// has already processed so repeat visits are free.
type Computer struct {
	headHeight   float64
	planetRadius float64
	maxDistance  int

	processed map[world.Position]bool
	active    bool
}

// New returns a computer with the standard view parameters.
func New() *Computer {
	return &Computer{
		headHeight:   0.002,
		planetRadius: 6371.0,
		maxDistance:  310,
		processed:    make(map[world.Position]bool),
		active:       true,
	}
}

// NewWithDistance overrides the view distance, mainly for tests and small
// demo worlds.
func NewWithDistance(maxDistance int) *Computer {
	c := New()
	c.maxDistance = maxDistance
	return c
}

// Disable turns the computer off, for reveal-all worlds.
func (c *Computer) Disable() {
	c.active = false
}

// Active reports whether sweeps run.
func (c *Computer) Active() bool {
	return c.active
}

// Reveal marks everything visible from origin and returns the positions that
// changed from hidden to visible. A view point is only ever processed once.
func (c *Computer) Reveal(w *world.World, origin world.Position) []world.Position {
	if !c.active || !w.InBounds(origin) || c.processed[origin] {
		return nil
	}
	c.processed[origin] = true

	var newly []world.Position
	for p := range c.visibleFrom(w, origin) {
		if cell := w.GetCell(p); cell != nil && !cell.Visible {
			w.SetVisible(p)
			newly = append(newly, p)
		}
	}
	return newly
}

func (c *Computer) visibleFrom(w *world.World, origin world.Position) map[world.Position]bool {
	out := map[world.Position]bool{origin: true}
	for _, rim := range bresenhamCircle(origin.X, origin.Y, c.maxDistance) {
		c.sweepLine(w, origin, rim, out)
	}
	return out
}

// sweepLine walks the ray from origin towards rim, adding each cell whose
// slope from the eye beats the running maximum.
func (c *Computer) sweepLine(w *world.World, origin world.Position, rim point, out map[world.Position]bool) {
	eye, ok := c.eyeElevation(w, origin)
	if !ok {
		return
	}
	maxSlope := math.Inf(-1)
	for _, pt := range bresenhamLine(origin.X, origin.Y, rim.x, rim.y) {
		if pt.x == origin.X && pt.y == origin.Y {
			continue
		}
		p := world.P(pt.x, pt.y)
		cell := w.GetCell(p)
		if cell == nil {
			return
		}
		dx := float64(pt.x - origin.X)
		dy := float64(pt.y - origin.Y)
		run := math.Sqrt(dx*dx + dy*dy)
		z := c.surfaceElevation(w, cell) - c.planetCurveAdjustment(run)
		slope := (z - eye) / run
		if slope > maxSlope {
			maxSlope = slope
			out[p] = true
		}
	}
}

func (c *Computer) eyeElevation(w *world.World, origin world.Position) (float64, bool) {
	cell := w.GetCell(origin)
	if cell == nil {
		return 0, false
	}
	return c.surfaceElevation(w, cell) + c.headHeight, true
}

// surfaceElevation clamps to sea level so sight lines skim the water rather
// than diving below it.
func (c *Computer) surfaceElevation(w *world.World, cell *world.Cell) float64 {
	return math.Max(cell.Elevation, w.SeaLevel())
}

func (c *Computer) planetCurveAdjustment(distance float64) float64 {
	if c.planetRadius <= 0 {
		return 0
	}
	return c.planetRadius - math.Sqrt(c.planetRadius*c.planetRadius-distance*distance)
}

type point struct {
	x, y int
}

// bresenhamCircle returns the integer perimeter of a circle of the given
// radius around (cx, cy).
func bresenhamCircle(cx, cy, radius int) []point {
	var out []point
	x, y := radius, 0
	err := 1 - radius
	for x >= y {
		out = append(out,
			point{cx + x, cy + y}, point{cx + y, cy + x},
			point{cx - y, cy + x}, point{cx - x, cy + y},
			point{cx - x, cy - y}, point{cx - y, cy - x},
			point{cx + y, cy - x}, point{cx + x, cy - y},
		)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
	return out
}

// bresenhamLine returns the cells on the segment from (x0, y0) to (x1, y1),
// endpoints included.
func bresenhamLine(x0, y0, x1, y1 int) []point {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	var out []point
	for {
		out = append(out, point{x0, y0})
		if x0 == x1 && y0 == y1 {
			return out
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
