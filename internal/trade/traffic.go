package trade

import (
	"sort"
	"sync"

	"github.com/halvard/tradewinds/internal/world"
)

// Traffic indexes which route keys cross each tile and each edge. Empty sets
// are pruned so absence means no traffic.
type Traffic struct {
	mu    sync.Mutex
	tiles map[world.Position]map[RouteKey]bool
	edges map[world.Edge]map[RouteKey]bool
}

func NewTraffic() *Traffic {
	return &Traffic{
		tiles: make(map[world.Position]map[RouteKey]bool),
		edges: make(map[world.Edge]map[RouteKey]bool),
	}
}

// Apply folds a route-change list into the index and returns the positions
// and edges whose traffic may have changed, for the refresh queue. The list
// is applied atomically; refreshes are posted by the caller only after it
// has been.
func (t *Traffic) Apply(changes []Change) (map[world.Position]bool, map[world.Edge]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	positions := make(map[world.Position]bool)
	edges := make(map[world.Edge]bool)
	for _, c := range changes {
		t.applyOne(c, positions, edges)
	}
	return positions, edges
}

func (t *Traffic) applyOne(c Change, positions map[world.Position]bool, edges map[world.Edge]bool) {
	switch c.Kind {
	case New:
		for _, p := range c.Route.Path {
			t.addTile(p, c.Key)
			positions[p] = true
		}
		for _, e := range world.PathEdges(c.Route.Path) {
			t.addEdge(e, c.Key)
			edges[e] = true
		}
	case Updated:
		oldP, newP := positionSet(c.Old.Path), positionSet(c.Route.Path)
		for p := range newP {
			if !oldP[p] {
				t.addTile(p, c.Key)
			}
			positions[p] = true
		}
		for p := range oldP {
			if !newP[p] {
				t.removeTile(p, c.Key)
			}
			positions[p] = true
		}
		oldE, newE := edgeSet(c.Old.Path), edgeSet(c.Route.Path)
		for e := range newE {
			if !oldE[e] {
				t.addEdge(e, c.Key)
			}
			edges[e] = true
		}
		for e := range oldE {
			if !newE[e] {
				t.removeEdge(e, c.Key)
			}
			edges[e] = true
		}
	case Removed:
		for _, p := range c.Old.Path {
			t.removeTile(p, c.Key)
			positions[p] = true
		}
		for _, e := range world.PathEdges(c.Old.Path) {
			t.removeEdge(e, c.Key)
			edges[e] = true
		}
	case NoChange:
		// Downstream processors may still need to react to unrelated world
		// changes along the path.
		for _, p := range c.Route.Path {
			positions[p] = true
		}
		for _, e := range world.PathEdges(c.Route.Path) {
			edges[e] = true
		}
	}
}

func (t *Traffic) addTile(p world.Position, key RouteKey) {
	set, ok := t.tiles[p]
	if !ok {
		set = make(map[RouteKey]bool)
		t.tiles[p] = set
	}
	set[key] = true
}

func (t *Traffic) removeTile(p world.Position, key RouteKey) {
	if set, ok := t.tiles[p]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(t.tiles, p)
		}
	}
}

func (t *Traffic) addEdge(e world.Edge, key RouteKey) {
	set, ok := t.edges[e]
	if !ok {
		set = make(map[RouteKey]bool)
		t.edges[e] = set
	}
	set[key] = true
}

func (t *Traffic) removeEdge(e world.Edge, key RouteKey) {
	if set, ok := t.edges[e]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(t.edges, e)
		}
	}
}

// TileTraffic returns a copy of the route keys crossing p.
func (t *Traffic) TileTraffic(p world.Position) []RouteKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.tiles[p])
}

// EdgeTraffic returns a copy of the route keys crossing e.
func (t *Traffic) EdgeTraffic(e world.Edge) []RouteKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.edges[e])
}

// HasTileTraffic reports whether any route crosses p.
func (t *Traffic) HasTileTraffic(p world.Position) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tiles[p]) > 0
}

// EdgeCount returns how many edges currently carry traffic.
func (t *Traffic) EdgeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.edges)
}

func sortedKeys(set map[RouteKey]bool) []RouteKey {
	if len(set) == 0 {
		return nil
	}
	out := make([]RouteKey, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func positionSet(path []world.Position) map[world.Position]bool {
	out := make(map[world.Position]bool, len(path))
	for _, p := range path {
		out[p] = true
	}
	return out
}

func edgeSet(path []world.Position) map[world.Edge]bool {
	out := make(map[world.Edge]bool)
	for _, e := range world.PathEdges(path) {
		out[e] = true
	}
	return out
}
