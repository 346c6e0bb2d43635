package trade

import (
	"fmt"
	"sort"
	"sync"

	"github.com/halvard/tradewinds/internal/world"
)

// Routes is the two-level route store: RouteSetKey -> RouteKey -> Route.
// Replace is the only mutator; everything downstream consumes its diff.
type Routes struct {
	mu   sync.Mutex
	sets map[RouteSetKey]map[RouteKey]Route
}

func NewRoutes() *Routes {
	return &Routes{sets: make(map[RouteSetKey]map[RouteKey]Route)}
}

// Get returns the stored route for a key.
func (r *Routes) Get(key RouteKey) (Route, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sets[RouteSetKey{Settlement: key.Settlement, Resource: key.Resource}]
	if !ok {
		return Route{}, false
	}
	route, ok := set[key]
	return route, ok
}

// Replace atomically swaps the route set for setKey and returns the diff:
// additions and changes first in input order, then removals in key order.
func (r *Routes) Replace(setKey RouteSetKey, entries []Entry) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.sets[setKey]
	if !ok {
		old = make(map[RouteKey]Route)
	}

	newSet := make(map[RouteKey]Route, len(entries))
	changes := make([]Change, 0, len(entries))
	for _, e := range entries {
		if e.Key.Settlement != setKey.Settlement || e.Key.Resource != setKey.Resource {
			panic(fmt.Sprintf("route key %+v does not belong to set %+v", e.Key, setKey))
		}
		newSet[e.Key] = e.Route
		if existing, present := old[e.Key]; !present {
			changes = append(changes, Change{Kind: New, Key: e.Key, Route: e.Route})
		} else if existing.Equal(e.Route) {
			changes = append(changes, Change{Kind: NoChange, Key: e.Key, Route: e.Route})
		} else {
			changes = append(changes, Change{Kind: Updated, Key: e.Key, Old: existing, Route: e.Route})
		}
	}

	var removedKeys []RouteKey
	for key := range old {
		if _, present := newSet[key]; !present {
			removedKeys = append(removedKeys, key)
		}
	}
	sort.Slice(removedKeys, func(i, j int) bool { return removedKeys[i].Less(removedKeys[j]) })
	for _, key := range removedKeys {
		changes = append(changes, Change{Kind: Removed, Key: key, Old: old[key]})
	}

	if len(newSet) == 0 {
		delete(r.sets, setKey)
	} else {
		r.sets[setKey] = newSet
	}
	return changes
}

// RoutesEndingAt returns the keys of stored routes with the given
// destination. Used by the town and crops processors.
func (r *Routes) RoutesEndingAt(p world.Position) []RouteKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RouteKey
	for _, set := range r.sets {
		for key := range set {
			if key.Destination == p {
				out = append(out, key)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Count returns the total number of stored routes.
func (r *Routes) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, set := range r.sets {
		n += len(set)
	}
	return n
}
