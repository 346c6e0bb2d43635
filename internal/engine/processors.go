package engine

import (
	"log/slog"

	"github.com/halvard/tradewinds/internal/build"
	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/trade"
	"github.com/halvard/tradewinds/internal/world"
)

// processEdge runs the edge-level build decisions: plan a road under
// sustained traffic, tear one down when the traffic is gone.
func (e *Engine) processEdge(edge world.Edge) {
	keys := e.traffic.EdgeTraffic(edge)
	if len(keys) == 0 {
		e.tryRemoveRoad(edge)
		return
	}
	e.tryBuildRoad(edge, keys)
}

// tryBuildRoad plans a road across the edge when its traffic reaches the
// threshold, scheduled for the earliest first visit. An earlier existing
// plan wins.
func (e *Engine) tryBuildRoad(edge world.Edge, keys []trade.RouteKey) {
	if e.world.IsRoad(edge) {
		return
	}
	if _, ok := e.avatar.GetDuration(e.world, edge.A, edge.B); !ok {
		return
	}
	if _, ok := e.autoRoad.GetDuration(e.world, edge.A, edge.B); !ok {
		return
	}

	trafficSum := 0
	when := int64(-1)
	for _, key := range keys {
		route, ok := e.routes.Get(key)
		if !ok {
			continue
		}
		trafficSum += route.Traffic
		if first := route.FirstVisitMicros(); when == -1 || first < when {
			when = first
		}
	}
	if trafficSum < e.params.Simulation.RoadBuildThreshold || when == -1 {
		return
	}
	if existing, planned := e.world.RoadPlanned(edge); planned && existing <= when {
		return
	}

	e.world.PlanRoad(edge, when, true)
	e.planning.UpdateEdge(e.world, edge.A, edge.B)
	e.planning.UpdateEdge(e.world, edge.B, edge.A)
	e.queue.Insert(build.Instruction{When: when, What: build.Road(edge, true)})
}

// tryRemoveRoad unwinds a road, or a road plan, on an edge whose traffic has
// dropped to nothing.
func (e *Engine) tryRemoveRoad(edge world.Edge) {
	_, planned := e.world.RoadPlanned(edge)
	if !e.world.IsRoad(edge) && !planned {
		return
	}
	e.queue.Remove(build.Road(edge, true).BuildKey())
	e.world.PlanRoad(edge, 0, false)
	e.planning.UpdateEdge(e.world, edge.A, edge.B)
	e.planning.UpdateEdge(e.world, edge.B, edge.A)
	if e.world.IsRoad(edge) {
		e.queue.Insert(build.Instruction{When: e.micros, What: build.Road(edge, false)})
	}
}

// processPosition runs the position-level build decisions.
func (e *Engine) processPosition(p world.Position) {
	e.tryBuildTown(p)
	e.tryBuildCrops(p)
	e.tryBuildMines(p)
	e.tryRemoveCrops(p)
}

// tryBuildTown founds a town where routes terminate or land through ports,
// on uncontrolled ground. One instruction is queued per adjacent buildable
// tile; execution-time checks collapse them to one town.
func (e *Engine) tryBuildTown(p world.Position) {
	var candidates []trade.RouteKey
	for _, key := range e.traffic.TileTraffic(p) {
		if key.Destination == p || e.ports.Has(key, p) {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 || e.territory.AnyoneControls(p) {
		return
	}

	var tiles []world.Position
	for _, tile := range e.world.AdjacentTilesInBounds(p) {
		if cell := e.world.GetCell(tile); cell != nil && cell.Visible && !e.world.IsSea(tile) {
			tiles = append(tiles, tile)
		}
	}
	if len(tiles) == 0 {
		return
	}

	trafficSum := 0
	when := int64(-1)
	var founder trade.RouteKey
	for _, key := range candidates {
		route, ok := e.routes.Get(key)
		if !ok {
			continue
		}
		trafficSum += route.Traffic
		if first := route.FirstVisitMicros(); when == -1 || first < when {
			when = first
			founder = key
		}
	}
	if trafficSum == 0 {
		return
	}

	origin, ok := e.store.SettlementWithCorner(founder.Settlement)
	if !ok {
		return
	}
	name, err := e.store.RandomTownName(origin.Nation)
	if err != nil {
		slog.Debug("no town name available", "nation", origin.Nation, "error", err)
		return
	}

	for _, tile := range tiles {
		e.queue.Insert(build.Instruction{When: when, What: build.Town(social.Settlement{
			Position:                   tile,
			Class:                      social.Town,
			Name:                       name,
			Nation:                     origin.Nation,
			CurrentPopulation:          e.params.Simulation.InitialTownPopulation,
			TargetPopulation:           e.params.Simulation.InitialTownPopulation,
			GapHalfLife:                0,
			LastPopulationUpdateMicros: when,
		})})
	}
}

// tryBuildCrops schedules a farm where a crop route ends on a free cell.
func (e *Engine) tryBuildCrops(p world.Position) {
	cell := e.world.GetCell(p)
	if cell == nil || !cell.Object.IsNone() {
		return
	}

	when := int64(-1)
	for _, key := range e.traffic.TileTraffic(p) {
		if key.Resource != resource.Crops || key.Destination != p {
			continue
		}
		route, ok := e.routes.Get(key)
		if !ok {
			continue
		}
		if first := route.FirstVisitMicros(); when == -1 || first < when {
			when = first
		}
	}
	if when == -1 {
		return
	}
	e.queue.Insert(build.Instruction{When: when, What: build.Crops(p, e.cropsRNG.Intn(2) == 0)})
}

// tryBuildMines reconciles the cell's object with the mine table: the first
// rule whose resource has a route ending at p decides the planned object,
// and a mismatch schedules the change immediately.
func (e *Engine) tryBuildMines(p world.Position) {
	cell := e.world.GetCell(p)
	if cell == nil {
		return
	}

	ending := make(map[resource.Resource]bool)
	for _, key := range e.traffic.TileTraffic(p) {
		if key.Destination == p {
			ending[key.Resource] = true
		}
	}

	planned := world.NoObject
	for _, rule := range e.params.Mines {
		if ending[rule.Resource] {
			planned = rule.Object
			break
		}
	}
	if sameObjectKind(cell.Object, planned) {
		return
	}
	// Crops builds and removals are owned by their own processors. A standing
	// farm yields to a mine only once no crop route ends here.
	if planned.Kind == world.ObjectCrop {
		return
	}
	if cell.Object.Kind == world.ObjectCrop && (planned.IsNone() || ending[resource.Crops]) {
		return
	}
	e.queue.Insert(build.Instruction{When: e.micros, What: build.Object(p, planned)})
}

func sameObjectKind(a, b world.Object) bool {
	return a.Kind == b.Kind && a.Resource == b.Resource
}

// tryRemoveCrops tears down a farm whose crop traffic has gone.
func (e *Engine) tryRemoveCrops(p world.Position) {
	for _, key := range e.traffic.TileTraffic(p) {
		if key.Resource == resource.Crops && key.Destination == p {
			return
		}
	}
	e.queue.Remove(build.Crops(p, false).BuildKey())
	cell := e.world.GetCell(p)
	if cell != nil && cell.Object.Kind == world.ObjectCrop {
		e.world.SetObject(p, world.NoObject)
		slog.Debug("crops removed", "position", p)
	}
}
