package travel

import (
	"time"

	"github.com/halvard/tradewinds/internal/world"
)

// AvatarParams configures avatar movement speed by travel mode.
type AvatarParams struct {
	// MaxGradient bounds off-road walking; steeper edges are impassable.
	MaxGradient float64 `yaml:"max_gradient"`
	// Walk duration scales linearly from the downhill to the uphill extreme
	// across [-MaxGradient, MaxGradient].
	WalkMillisDownhill float64 `yaml:"walk_millis_downhill"`
	WalkMillisUphill   float64 `yaml:"walk_millis_uphill"`
	RoadMillis         float64 `yaml:"road_millis"`
	RiverMillis        float64 `yaml:"river_millis"`
	SeaMillis          float64 `yaml:"sea_millis"`
	// PortMillis is the cost of stepping between water and land.
	PortMillis float64 `yaml:"port_millis"`
	// MinNavigableRiverWidth is the narrowest river a boat can use.
	MinNavigableRiverWidth float64 `yaml:"min_navigable_river_width"`
	// MaxNavigableRiverGradient keeps boats off waterfalls.
	MaxNavigableRiverGradient float64 `yaml:"max_navigable_river_gradient"`
}

// DefaultAvatarParams mirrors the tuning the simulation ships with.
func DefaultAvatarParams() AvatarParams {
	return AvatarParams{
		MaxGradient:               0.5,
		WalkMillisDownhill:        2_400,
		WalkMillisUphill:          4_800,
		RoadMillis:                1_200,
		RiverMillis:               900,
		SeaMillis:                 600,
		PortMillis:                4_800,
		MinNavigableRiverWidth:    0.1,
		MaxNavigableRiverGradient: 0.1,
	}
}

// Avatar is the ground-truth movement policy: sea sailing, port crossings,
// roads, navigable rivers, and gradient-scaled walking. The planning variant
// additionally treats planned roads as built.
type Avatar struct {
	walk  *Gradient
	road  *Constant
	river *Constant
	sea   *Constant
	port  *Constant

	minNavigableRiverWidth    float64
	maxNavigableRiverGradient float64
	includePlannedRoads       bool
}

// NewAvatar builds the policy that ignores planned roads.
func NewAvatar(p AvatarParams) *Avatar {
	return newAvatar(p, false)
}

// NewAvatarWithPlannedRoads builds the origin-side planning policy: planned
// roads count as built, so routes anticipate near-future construction.
func NewAvatarWithPlannedRoads(p AvatarParams) *Avatar {
	return newAvatar(p, true)
}

func newAvatar(p AvatarParams, includePlannedRoads bool) *Avatar {
	return &Avatar{
		walk:                      NewGradient(-p.MaxGradient, p.MaxGradient, p.WalkMillisDownhill, p.WalkMillisUphill, false),
		road:                      NewConstant(time.Duration(p.RoadMillis) * time.Millisecond),
		river:                     NewConstant(time.Duration(p.RiverMillis) * time.Millisecond),
		sea:                       NewConstant(time.Duration(p.SeaMillis) * time.Millisecond),
		port:                      NewConstant(time.Duration(p.PortMillis) * time.Millisecond),
		minNavigableRiverWidth:    p.MinNavigableRiverWidth,
		maxNavigableRiverGradient: p.MaxNavigableRiverGradient,
		includePlannedRoads:       includePlannedRoads,
	}
}

func (a *Avatar) GetDuration(w *world.World, from, to world.Position) (time.Duration, bool) {
	if !w.InBounds(from) || !w.InBounds(to) {
		return 0, false
	}
	fromSea, toSea := w.IsSea(from), w.IsSea(to)
	switch {
	case fromSea && toSea:
		return a.sea.GetDuration(w, from, to)
	case fromSea != toSea:
		return a.port.GetDuration(w, from, to)
	}
	e := world.NewEdge(from, to)
	if w.IsRoad(e) {
		return a.road.GetDuration(w, from, to)
	}
	if a.includePlannedRoads {
		if _, planned := w.RoadPlanned(e); planned {
			return a.road.GetDuration(w, from, to)
		}
	}
	if w.IsRiver(e) {
		if !a.isNavigableRiver(w, from, to) {
			return 0, false
		}
		return a.river.GetDuration(w, from, to)
	}
	return a.walk.GetDuration(w, from, to)
}

func (a *Avatar) isNavigableRiver(w *world.World, from, to world.Position) bool {
	if w.MaxRiverWidthHere(from) < a.minNavigableRiverWidth ||
		w.MaxRiverWidthHere(to) < a.minNavigableRiverWidth {
		return false
	}
	rise, ok := w.Rise(from, to)
	if !ok {
		return false
	}
	if rise < 0 {
		rise = -rise
	}
	return rise <= a.maxNavigableRiverGradient
}

func (a *Avatar) MinDuration() time.Duration {
	return minDuration(a.walk.MinDuration(), a.road.MinDuration(),
		a.river.MinDuration(), a.sea.MinDuration(), a.port.MinDuration())
}

func (a *Avatar) MaxDuration() time.Duration {
	return maxDuration(a.walk.MaxDuration(), a.road.MaxDuration(),
		a.river.MaxDuration(), a.sea.MaxDuration(), a.port.MaxDuration())
}

// ClassHere classifies the movement medium at a position.
func (a *Avatar) ClassHere(w *world.World, p world.Position) Class {
	if w.IsSea(p) {
		return Water
	}
	if w.MaxRiverWidthHere(p) >= a.minNavigableRiverWidth {
		return Water
	}
	return Land
}

// Class of a travel mode: water-borne or ground.
type Class uint8

const (
	Land Class = iota
	Water
)

// CheckForPort reports the landing position when the step between from and
// to crosses the water/land boundary. The port is the land-side position.
func (a *Avatar) CheckForPort(w *world.World, from, to world.Position) (world.Position, bool) {
	fromWater := a.ClassHere(w, from) == Water
	toWater := a.ClassHere(w, to) == Water
	switch {
	case fromWater && !toWater:
		return to, true
	case !fromWater && toWater:
		return from, true
	}
	return world.Position{}, false
}
