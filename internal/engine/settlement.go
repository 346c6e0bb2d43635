package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/trade"
	"github.com/halvard/tradewinds/internal/world"
)

// simulateSettlement runs the per-settlement pipeline. Homelands update
// their land-share target then trade; towns additionally refresh territory,
// derive their target from territory traffic, and may be removed.
func (e *Engine) simulateSettlement(position world.Position) {
	s, ok := e.store.GetSettlement(position)
	if !ok {
		return
	}
	switch s.Class {
	case social.Homeland:
		s = e.updateHomeland(s)
		s = e.updatePopulation(s)
		e.commitRoutes(s)
	case social.Town:
		e.updateTerritory(s.Position)
		summaries := e.townTraffic(s)
		s = e.updateTown(s, summaries)
		s = e.updatePopulation(s)
		if e.removeTown(s, summaries) {
			return
		}
		e.commitRoutes(s)
	}
}

// updateHomeland sets the homeland's target to its share of the visible
// land.
func (e *Engine) updateHomeland(s social.Settlement) social.Settlement {
	s.TargetPopulation = float64(e.world.VisibleLandPositions()) / float64(e.params.Simulation.HomelandCount)
	e.store.UpdateSettlement(s)
	return s
}

// updatePopulation moves current population toward the target by the gap
// half-life, clamped per class. Idempotent at a given simulated time.
func (e *Engine) updatePopulation(s social.Settlement) social.Settlement {
	if s.LastPopulationUpdateMicros >= e.micros {
		return s
	}
	maxChange := e.params.Simulation.MaxAbsPopulationChange.Homeland
	if s.Class == social.Town {
		maxChange = e.params.Simulation.MaxAbsPopulationChange.Town
	}

	var change float64
	if s.GapHalfLife == 0 {
		change = s.TargetPopulation - s.CurrentPopulation
	} else {
		elapsed := float64(e.micros - s.LastPopulationUpdateMicros)
		halfLife := float64(s.GapHalfLife.Microseconds())
		gapDecay := 1 - math.Pow(0.5, elapsed/halfLife)
		change = (s.TargetPopulation - s.CurrentPopulation) * gapDecay
	}
	change = math.Max(-maxChange, math.Min(maxChange, change))

	s.CurrentPopulation += change
	s.LastPopulationUpdateMicros = e.micros
	e.store.UpdateSettlement(s)
	return s
}

// updateTerritory recomputes the positions the town reaches within the
// territory duration, searching without planned roads.
func (e *Engine) updateTerritory(town world.Position) {
	origins := e.world.CornersInBounds(town)
	within := e.actual.PositionsWithin(origins, e.params.Simulation.TerritoryDuration())
	positions := make([]world.Position, 0, len(within))
	for p := range within {
		positions = append(positions, p)
	}
	e.territory.Set(town, positions)
}

// townTrafficSummary aggregates the traffic share a nation sends through a
// town's territory.
type townTrafficSummary struct {
	nation        string
	trafficShare  float64
	totalDuration time.Duration
}

// townTraffic summarizes, per origin nation, the route traffic crossing the
// town's territory. Routes originating inside the territory are excluded; a
// route's share scales with how strongly it engages the territory (ending
// there, or entering through ports).
func (e *Engine) townTraffic(s social.Settlement) []townTrafficSummary {
	territory := e.territory.ControlledSet(s.Position)

	keySet := make(map[trade.RouteKey]bool)
	for p := range territory {
		for _, key := range e.traffic.TileTraffic(p) {
			keySet[key] = true
		}
	}
	// Shares are summed in key order so the float totals are reproducible.
	keys := make([]trade.RouteKey, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	byNation := make(map[string]*townTrafficSummary)
	for _, key := range keys {
		if territory[key.Settlement] {
			continue
		}
		origin, ok := e.store.SettlementWithCorner(key.Settlement)
		if !ok {
			continue
		}
		route, ok := e.routes.Get(key)
		if !ok {
			continue
		}

		gatesIn, gatesTotal := 0, 0
		for _, gate := range e.ports.Get(key) {
			gatesTotal++
			if territory[gate] {
				gatesIn++
			}
		}
		multiplier := gatesIn
		if territory[key.Destination] {
			multiplier += 2
		}
		if multiplier == 0 {
			continue
		}
		share := float64(route.Traffic*multiplier) / float64(gatesTotal+2)

		agg, ok := byNation[origin.Nation]
		if !ok {
			agg = &townTrafficSummary{nation: origin.Nation}
			byNation[origin.Nation] = agg
		}
		agg.trafficShare += share
		agg.totalDuration += time.Duration(float64(route.Duration) * share)
	}

	out := make([]townTrafficSummary, 0, len(byNation))
	for _, agg := range byNation {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].nation < out[j].nation })
	return out
}

// updateTown derives the town's target population, nation, and gap half-life
// from the territory traffic.
func (e *Engine) updateTown(s social.Settlement, summaries []townTrafficSummary) social.Settlement {
	s.TargetPopulation = targetPopulation(summaries, e.params.Simulation.TrafficToPopulation)
	s.Nation = townNation(s.Nation, summaries, e.params.Simulation.NationFlipTrafficPercentage)
	s.GapHalfLife = gapHalfLife(s.GapHalfLife, summaries)
	e.store.UpdateSettlement(s)
	return s
}

func targetPopulation(summaries []townTrafficSummary, trafficToPopulation float64) float64 {
	total := 0.0
	for _, summary := range summaries {
		total += summary.trafficShare
	}
	return total * trafficToPopulation
}

func townNation(original string, summaries []townTrafficSummary, flipPercentage float64) string {
	total := 0.0
	best := townTrafficSummary{trafficShare: math.Inf(-1)}
	for _, summary := range summaries {
		total += summary.trafficShare
		if summary.trafficShare > best.trafficShare {
			best = summary
		}
	}
	if total == 0 {
		return original
	}
	if best.trafficShare/total >= flipPercentage {
		return best.nation
	}
	return original
}

// gapHalfLife converts the traffic-weighted mean route duration into a
// population half-life. The 2.41 factor converts a three-quarter life to a
// half life.
func gapHalfLife(original time.Duration, summaries []townTrafficSummary) time.Duration {
	if len(summaries) == 0 {
		return original
	}
	var totalDuration time.Duration
	totalShare := 0.0
	for _, summary := range summaries {
		totalDuration += summary.totalDuration
		totalShare += summary.trafficShare
	}
	return time.Duration(float64(totalDuration*2) / totalShare * 2.41)
}

// removeTown drops a town whose population fell below the removal threshold
// and whose territory carries no traffic. Its formerly controlled positions
// are refreshed so the land can be resettled.
func (e *Engine) removeTown(s social.Settlement, summaries []townTrafficSummary) bool {
	if s.CurrentPopulation >= e.params.Simulation.TownRemovalPopulation || len(summaries) > 0 {
		return false
	}
	controlled := e.territory.Remove(s.Position)
	e.store.RemoveSettlement(s.Position)
	e.clearRoutes(s)
	e.RefreshPositions(controlled)
	slog.Info("town removed", "position", s.Position, "name", s.Name)
	return true
}

// clearRoutes empties every route set the settlement owns and folds the
// removals through the traffic and port indexes.
func (e *Engine) clearRoutes(s social.Settlement) {
	for _, r := range resource.All {
		setKey := trade.RouteSetKey{Settlement: s.Position, Resource: r}
		changes := e.routes.Replace(setKey, nil)
		if len(changes) == 0 {
			continue
		}
		e.applyRouteChanges(changes)
	}
}

// commitRoutes runs demand, route computation, and the route-set swap, then
// folds the resulting changes through traffic, ports, and targets, and posts
// refreshes. Every resource is swapped, so a demand that vanished retracts
// its routes with an empty set.
func (e *Engine) commitRoutes(s social.Settlement) {
	demands := make(map[resource.Resource]Demand)
	for _, demand := range demandFor(s) {
		demands[demand.Resource] = demand
	}
	for _, r := range resource.All {
		var entries []trade.Entry
		if demand, ok := demands[r]; ok {
			entries = e.routesFor(demand)
		}
		setKey := trade.RouteSetKey{Settlement: s.Position, Resource: r}
		changes := e.routes.Replace(setKey, entries)
		if len(changes) == 0 {
			continue
		}
		e.applyRouteChanges(changes)
	}
}

func (e *Engine) applyRouteChanges(changes []trade.Change) {
	positions, edges := e.traffic.Apply(changes)
	e.ports.Update(e.world, e.avatar, changes)
	e.refreshCropsTargets(changes)

	positionList := make([]world.Position, 0, len(positions))
	for p := range positions {
		positionList = append(positionList, p)
	}
	e.RefreshPositions(positionList)
	edgeList := make([]world.Edge, 0, len(edges))
	for edge := range edges {
		edgeList = append(edgeList, edge)
	}
	e.RefreshEdges(edgeList)
}

// routesFor finds up to sources supply sites for the demand. Discovery runs
// on the planning pathfinder so routes anticipate near-future roads; the
// committed duration is recomputed without planned roads.
func (e *Engine) routesFor(demand Demand) []trade.Entry {
	if demand.Sources == 0 || demand.Quantity == 0 {
		return nil
	}
	origins := e.world.CornersInBounds(demand.Position)
	targets := e.planning.ClosestTargets(origins, demand.Resource.Name(), demand.Sources)

	entries := make([]trade.Entry, 0, len(targets))
	for _, target := range targets {
		entries = append(entries, trade.Entry{
			Key: trade.RouteKey{
				Settlement:  demand.Position,
				Resource:    demand.Resource,
				Destination: target.Position,
			},
			Route: trade.Route{
				Path:        target.Path,
				StartMicros: e.micros,
				Duration:    e.pathDuration(target.Path),
				Traffic:     demand.Quantity,
			},
		})
	}
	return entries
}

// pathDuration recomputes the authoritative duration of a path. A path the
// planning pathfinder returned must be passable without planned roads too.
func (e *Engine) pathDuration(path []world.Position) time.Duration {
	var total time.Duration
	for i := 1; i < len(path); i++ {
		d, ok := e.avatar.GetDuration(e.world, path[i-1], path[i])
		if !ok {
			panic(fmt.Sprintf("impassable step %v -> %v in planned path", path[i-1], path[i]))
		}
		total += d
	}
	return total
}

// refreshCropsTargets unloads the wood target where a new crop route ends
// (the farm clears the forest) and restores it when the last crop route to
// that position goes away.
func (e *Engine) refreshCropsTargets(changes []trade.Change) {
	for _, change := range changes {
		if change.Key.Resource != resource.Crops {
			continue
		}
		destination := change.Key.Destination
		switch change.Kind {
		case trade.New:
			if e.deposits[destination] == resource.Wood {
				e.planning.LoadTarget(resource.Wood.Name(), destination, false)
			}
		case trade.Removed:
			if e.hasCropTraffic(destination) {
				continue
			}
			if e.deposits[destination] == resource.Wood {
				e.planning.LoadTarget(resource.Wood.Name(), destination, true)
			}
		}
	}
}

func (e *Engine) hasCropTraffic(p world.Position) bool {
	for _, key := range e.traffic.TileTraffic(p) {
		if key.Resource == resource.Crops {
			return true
		}
	}
	return false
}
