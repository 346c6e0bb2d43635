package trade

import (
	"sort"
	"sync"

	"github.com/halvard/tradewinds/internal/world"
)

// Ports maps each route to the positions where it transitions between water
// and land. Empty sets are removed.
type Ports struct {
	mu      sync.Mutex
	byRoute map[RouteKey]map[world.Position]bool
}

func NewPorts() *Ports {
	return &Ports{byRoute: make(map[RouteKey]map[world.Position]bool)}
}

// PortChecker reports the landing position, if any, for one step of a path.
type PortChecker interface {
	CheckForPort(w *world.World, from, to world.Position) (world.Position, bool)
}

// Update folds a route-change list into the index: removed routes lose their
// entry; new and updated routes get theirs recomputed from the path.
func (p *Ports) Update(w *world.World, checker PortChecker, changes []Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range changes {
		switch c.Kind {
		case Removed:
			delete(p.byRoute, c.Key)
		case New, Updated:
			ports := portsOfPath(w, checker, c.Route.Path)
			if len(ports) == 0 {
				delete(p.byRoute, c.Key)
			} else {
				p.byRoute[c.Key] = ports
			}
		}
	}
}

func portsOfPath(w *world.World, checker PortChecker, path []world.Position) map[world.Position]bool {
	var out map[world.Position]bool
	for i := 1; i < len(path); i++ {
		if port, ok := checker.CheckForPort(w, path[i-1], path[i]); ok {
			if out == nil {
				out = make(map[world.Position]bool)
			}
			out[port] = true
		}
	}
	return out
}

// Get returns the route's ports in lexicographic order.
func (p *Ports) Get(key RouteKey) []world.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.byRoute[key]
	if len(set) == 0 {
		return nil
	}
	out := make([]world.Position, 0, len(set))
	for pos := range set {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Has reports whether pos is a port of the route.
func (p *Ports) Has(key RouteKey, pos world.Position) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byRoute[key][pos]
}
