package engine

import (
	"log/slog"

	"github.com/halvard/tradewinds/internal/build"
	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/world"
)

// apply dispatches a due instruction to its builder. Builders are total for
// their variant; a violated precondition is a logged no-op.
func (e *Engine) apply(instr build.Instruction) {
	switch instr.What.Kind {
	case build.KindRoad:
		e.applyRoad(instr.What.Edge, instr.What.RoadSet)
	case build.KindCrops:
		e.applyCrops(instr.What.Position, instr.What.Rotated)
	case build.KindObject:
		e.applyObject(instr.What.Position, instr.What.Object)
	case build.KindTown:
		e.applyTown(instr.What.Town)
	}
}

func (e *Engine) applyRoad(edge world.Edge, set bool) {
	if e.world.IsRoad(edge) == set {
		slog.Debug("road state already as built", "edge", edge, "set", set)
		return
	}
	e.world.SetRoad(edge, set)
	e.updatePathfinderEdge(edge)
	slog.Info("road changed", "edge", edge, "set", set, "when", e.micros)
}

// updatePathfinderEdge refreshes both pathfinders in both directions after a
// world edge changed under them.
func (e *Engine) updatePathfinderEdge(edge world.Edge) {
	e.planning.UpdateEdge(e.world, edge.A, edge.B)
	e.planning.UpdateEdge(e.world, edge.B, edge.A)
	e.actual.UpdateEdge(e.world, edge.A, edge.B)
	e.actual.UpdateEdge(e.world, edge.B, edge.A)
}

func (e *Engine) applyCrops(p world.Position, rotated bool) {
	cell := e.world.GetCell(p)
	if cell == nil || !cell.Object.IsNone() {
		slog.Debug("crops site occupied", "position", p)
		return
	}
	e.world.SetObject(p, world.Crop(rotated))
	slog.Info("crops built", "position", p, "when", e.micros)
}

func (e *Engine) applyObject(p world.Position, o world.Object) {
	cell := e.world.GetCell(p)
	if cell == nil {
		return
	}
	if !o.IsNone() && !cell.Object.IsNone() && !sameObjectKind(cell.Object, o) {
		slog.Debug("object site occupied", "position", p, "kind", cell.Object.Kind)
		return
	}
	e.world.SetObject(p, o)
	slog.Info("object changed", "position", p, "kind", o.Kind, "resource", o.Resource)
}

func (e *Engine) applyTown(town social.Settlement) {
	if _, exists := e.store.GetSettlement(town.Position); exists {
		slog.Debug("town site already settled", "position", town.Position)
		return
	}
	if e.territory.AnyoneControls(town.Position) {
		slog.Debug("town site controlled", "position", town.Position)
		return
	}
	if cell := e.world.GetCell(town.Position); cell == nil || !cell.Visible || e.world.IsSea(town.Position) {
		slog.Debug("town site unbuildable", "position", town.Position)
		return
	}
	e.store.UpdateSettlement(town)
	e.updateTerritory(town.Position)
	e.PostReveal(town.Position)
	slog.Info("town founded", "position", town.Position, "name", town.Name, "nation", town.Nation)
}
