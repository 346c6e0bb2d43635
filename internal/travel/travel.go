// Package travel defines edge travel-duration policies: pure functions from
// (world, from, to) to an optional duration, for orthogonally adjacent cells.
package travel

import (
	"fmt"
	"math"
	"time"

	"github.com/halvard/tradewinds/internal/world"
)

// Duration is the policy interface. GetDuration returns ok=false when the
// edge is impassable. MinDuration and MaxDuration bound every duration the
// policy can return; MaxDuration anchors cost quantization.
type Duration interface {
	GetDuration(w *world.World, from, to world.Position) (time.Duration, bool)
	MinDuration() time.Duration
	MaxDuration() time.Duration
}

// Cost quantizes a duration into the graph weight range [0, 255]:
// round(duration / maxDuration * 255). A duration above MaxDuration is a
// policy bug and panics.
func Cost(td Duration, w *world.World, from, to world.Position) (uint8, bool) {
	d, ok := td.GetDuration(w, from, to)
	if !ok {
		return 0, false
	}
	max := td.MaxDuration()
	if d > max {
		panic(fmt.Sprintf("duration %v for %v -> %v exceeds max %v", d, from, to, max))
	}
	return uint8(math.Round(float64(d) / float64(max) * 255)), true
}

// scale is a linear map between two ranges.
type scale struct {
	inMin, inMax   float64
	outMin, outMax float64
}

func (s scale) contains(v float64) bool {
	return v >= s.inMin && v <= s.inMax
}

func (s scale) apply(v float64) float64 {
	return s.outMin + (v-s.inMin)/(s.inMax-s.inMin)*(s.outMax-s.outMin)
}

// Constant returns the same duration for every passable edge.
type Constant struct {
	d time.Duration
}

func NewConstant(d time.Duration) *Constant {
	return &Constant{d: d}
}

func (c *Constant) GetDuration(_ *world.World, _, _ world.Position) (time.Duration, bool) {
	return c.d, true
}

func (c *Constant) MinDuration() time.Duration { return c.d }
func (c *Constant) MaxDuration() time.Duration { return c.d }

// Gradient maps the elevation rise of an edge linearly onto a millisecond
// range. Rises outside the input range are impassable. With absoluteRise the
// sign of the rise is ignored, so uphill and downhill cost the same.
type Gradient struct {
	riseToMillis scale
	absoluteRise bool
}

func NewGradient(minRise, maxRise, minMillis, maxMillis float64, absoluteRise bool) *Gradient {
	return &Gradient{
		riseToMillis: scale{inMin: minRise, inMax: maxRise, outMin: minMillis, outMax: maxMillis},
		absoluteRise: absoluteRise,
	}
}

func (g *Gradient) GetDuration(w *world.World, from, to world.Position) (time.Duration, bool) {
	rise, ok := w.Rise(from, to)
	if !ok {
		return 0, false
	}
	if g.absoluteRise && rise < 0 {
		rise = -rise
	}
	if !g.riseToMillis.contains(rise) {
		return 0, false
	}
	return time.Duration(g.riseToMillis.apply(rise)) * time.Millisecond, true
}

func (g *Gradient) MinDuration() time.Duration {
	return time.Duration(g.riseToMillis.outMin) * time.Millisecond
}

func (g *Gradient) MaxDuration() time.Duration {
	return time.Duration(g.riseToMillis.outMax) * time.Millisecond
}

// NoRiverCorners forbids moves touching a cell where rivers meet at an
// angle, delegating everything else to the base policy.
type NoRiverCorners struct {
	base Duration
}

func NewNoRiverCorners(base Duration) *NoRiverCorners {
	return &NoRiverCorners{base: base}
}

func (n *NoRiverCorners) GetDuration(w *world.World, from, to world.Position) (time.Duration, bool) {
	if w.IsRiverCornerHere(from) || w.IsRiverCornerHere(to) {
		return 0, false
	}
	return n.base.GetDuration(w, from, to)
}

func (n *NoRiverCorners) MinDuration() time.Duration { return n.base.MinDuration() }
func (n *NoRiverCorners) MaxDuration() time.Duration { return n.base.MaxDuration() }

func maxDuration(ds ...time.Duration) time.Duration {
	max := ds[0]
	for _, d := range ds[1:] {
		if d > max {
			max = d
		}
	}
	return max
}

func minDuration(ds ...time.Duration) time.Duration {
	min := ds[0]
	for _, d := range ds[1:] {
		if d < min {
			min = d
		}
	}
	return min
}
