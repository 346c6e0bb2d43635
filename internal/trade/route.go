// Package trade holds routes, the route store with its diffing mutator, the
// tile/edge traffic index, and the route port index.
package trade

import (
	"time"

	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/world"
)

// RouteKey uniquely identifies a route: who trades what to where.
type RouteKey struct {
	Settlement  world.Position    `json:"settlement"`
	Resource    resource.Resource `json:"resource"`
	Destination world.Position    `json:"destination"`
}

// Less orders keys deterministically: settlement, then resource, then
// destination.
func (k RouteKey) Less(other RouteKey) bool {
	if k.Settlement != other.Settlement {
		return k.Settlement.Less(other.Settlement)
	}
	if k.Resource != other.Resource {
		return k.Resource < other.Resource
	}
	return k.Destination.Less(other.Destination)
}

// RouteSetKey identifies all routes of one settlement for one resource.
type RouteSetKey struct {
	Settlement world.Position    `json:"settlement"`
	Resource   resource.Resource `json:"resource"`
}

// Route is a concrete path with timing and traffic. Routes are never mutated
// in place; an update is an atomic replace through the store's diff.
type Route struct {
	Path        []world.Position `json:"path"`
	StartMicros int64            `json:"start_micros"`
	Duration    time.Duration    `json:"duration"`
	Traffic     int              `json:"traffic"`
}

// FirstVisitMicros is the earliest simulated time a caravan following the
// route reaches its destination.
func (r Route) FirstVisitMicros() int64 {
	return r.StartMicros + r.Duration.Microseconds()
}

// Equal compares routes including the full path.
func (r Route) Equal(other Route) bool {
	if r.StartMicros != other.StartMicros || r.Duration != other.Duration ||
		r.Traffic != other.Traffic || len(r.Path) != len(other.Path) {
		return false
	}
	for i := range r.Path {
		if r.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// ChangeKind discriminates the outcome of diffing one route key.
type ChangeKind uint8

const (
	New ChangeKind = iota
	Updated
	NoChange
	Removed
)

// Change is one entry of a route-set diff. Old is set for Updated and
// Removed; Route is the new (or unchanged) route for the other kinds.
type Change struct {
	Kind  ChangeKind
	Key   RouteKey
	Old   Route
	Route Route
}

// Entry pairs a key with its route, preserving the caller's ordering into
// the diff.
type Entry struct {
	Key   RouteKey
	Route Route
}
