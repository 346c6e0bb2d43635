package engine

import (
	"sort"

	"github.com/halvard/tradewinds/internal/world"
)

// Territory tracks which positions each town controls. A town controls the
// positions reachable from its tile corners within the territory duration.
type Territory struct {
	byTown     map[world.Position]map[world.Position]bool
	byPosition map[world.Position]map[world.Position]bool
}

func NewTerritory() *Territory {
	return &Territory{
		byTown:     make(map[world.Position]map[world.Position]bool),
		byPosition: make(map[world.Position]map[world.Position]bool),
	}
}

// Set replaces the positions controlled by a town.
func (t *Territory) Set(town world.Position, positions []world.Position) {
	t.clear(town)
	set := make(map[world.Position]bool, len(positions))
	for _, p := range positions {
		set[p] = true
		towns, ok := t.byPosition[p]
		if !ok {
			towns = make(map[world.Position]bool)
			t.byPosition[p] = towns
		}
		towns[town] = true
	}
	t.byTown[town] = set
}

// Remove forgets a town and returns the positions it controlled.
func (t *Territory) Remove(town world.Position) []world.Position {
	controlled := t.Controlled(town)
	t.clear(town)
	delete(t.byTown, town)
	return controlled
}

func (t *Territory) clear(town world.Position) {
	for p := range t.byTown[town] {
		if towns, ok := t.byPosition[p]; ok {
			delete(towns, town)
			if len(towns) == 0 {
				delete(t.byPosition, p)
			}
		}
	}
}

// AnyoneControls reports whether any town controls p.
func (t *Territory) AnyoneControls(p world.Position) bool {
	return len(t.byPosition[p]) > 0
}

// Controls reports whether the given town controls p.
func (t *Territory) Controls(town, p world.Position) bool {
	return t.byTown[town][p]
}

// Controlled returns the positions a town controls in lexicographic order.
func (t *Territory) Controlled(town world.Position) []world.Position {
	set := t.byTown[town]
	if len(set) == 0 {
		return nil
	}
	out := make([]world.Position, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ControlledSet returns the controlled positions as a set for membership
// tests during the town traffic summary.
func (t *Territory) ControlledSet(town world.Position) map[world.Position]bool {
	set := t.byTown[town]
	out := make(map[world.Position]bool, len(set))
	for p := range set {
		out[p] = true
	}
	return out
}
