package travel

import (
	"time"

	"github.com/halvard/tradewinds/internal/world"
)

// AutoRoadParams configures the cost of building a road across an edge.
type AutoRoadParams struct {
	MaxGradient        float64 `yaml:"max_gradient"`
	CostAtLevel        float64 `yaml:"cost_at_level"`
	CostAtMaxGradient  float64 `yaml:"cost_at_max_gradient"`
	CostOnExistingRoad float64 `yaml:"cost_on_existing_road"`
}

func DefaultAutoRoadParams() AutoRoadParams {
	return AutoRoadParams{
		MaxGradient:        0.5,
		CostAtLevel:        500,
		CostAtMaxGradient:  1000,
		CostOnExistingRoad: 100,
	}
}

// AutoRoad prices road construction across an edge. It forbids sea, river
// corners, runs along rivers, and unexplored cells; rivers crossed at ninety
// degrees are allowed (that is a bridge site).
type AutoRoad struct {
	offRoad *Gradient
	road    *Constant
}

func NewAutoRoad(p AutoRoadParams) *AutoRoad {
	return &AutoRoad{
		offRoad: NewGradient(0, p.MaxGradient, p.CostAtLevel, p.CostAtMaxGradient, true),
		road:    NewConstant(time.Duration(p.CostOnExistingRoad) * time.Millisecond),
	}
}

func (a *AutoRoad) GetDuration(w *world.World, from, to world.Position) (time.Duration, bool) {
	fromCell, toCell := w.GetCell(from), w.GetCell(to)
	if fromCell == nil || toCell == nil {
		return 0, false
	}
	if w.IsSea(from) || w.IsSea(to) {
		return 0, false
	}
	if !fromCell.Visible || !toCell.Visible {
		return 0, false
	}
	if w.IsRiverCornerHere(from) || w.IsRiverCornerHere(to) {
		return 0, false
	}
	if w.IsRiverHere(from) && w.IsRiverHere(to) {
		return 0, false
	}
	if w.IsRoad(world.NewEdge(from, to)) {
		return a.road.GetDuration(w, from, to)
	}
	return a.offRoad.GetDuration(w, from, to)
}

func (a *AutoRoad) MinDuration() time.Duration {
	return minDuration(a.offRoad.MinDuration(), a.road.MinDuration())
}

func (a *AutoRoad) MaxDuration() time.Duration {
	return maxDuration(a.offRoad.MaxDuration(), a.road.MaxDuration())
}
