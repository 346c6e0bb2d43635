// Package pathfind implements least-cost search over a directed graph with
// one node per grid position and quantized u8 edge weights.
package pathfind

import (
	"container/heap"
	"math"
	"time"

	"github.com/halvard/tradewinds/internal/travel"
	"github.com/halvard/tradewinds/internal/world"
)

type edge struct {
	to   int
	cost uint8
}

// Pathfinder owns the graph derived from a world via a travel-duration
// policy. Edges are recomputed on demand with UpdateEdge/UpdatePositions
// when the world changes under it.
type Pathfinder struct {
	width, height int
	td            travel.Duration
	out           [][]edge
	targets       map[string]map[int]bool
}

// ClosestTarget is one result of a closest-targets query.
type ClosestTarget struct {
	Position world.Position
	Path     []world.Position
	Duration time.Duration
}

func New(w *world.World, td travel.Duration) *Pathfinder {
	pf := &Pathfinder{
		width:   w.Width(),
		height:  w.Height(),
		td:      td,
		targets: make(map[string]map[int]bool),
	}
	pf.ResetEdges(w)
	return pf
}

// TravelDuration exposes the policy the graph was derived from, so callers
// can recompute authoritative durations over returned paths.
func (pf *Pathfinder) TravelDuration() travel.Duration {
	return pf.td
}

func (pf *Pathfinder) index(p world.Position) int {
	return p.X*pf.height + p.Y
}

func (pf *Pathfinder) position(i int) world.Position {
	return world.P(i/pf.height, i%pf.height)
}

func (pf *Pathfinder) nodes() int {
	return pf.width * pf.height
}

// ResetEdges rebuilds the whole graph from the world.
func (pf *Pathfinder) ResetEdges(w *world.World) {
	pf.out = make([][]edge, pf.nodes())
	for x := 0; x < pf.width; x++ {
		for y := 0; y < pf.height; y++ {
			from := world.P(x, y)
			for _, to := range []world.Position{world.P(x+1, y), world.P(x, y+1)} {
				if !w.InBounds(to) {
					continue
				}
				pf.setEdge(w, from, to)
				pf.setEdge(w, to, from)
			}
		}
	}
}

func (pf *Pathfinder) setEdge(w *world.World, from, to world.Position) {
	fi, ti := pf.index(from), pf.index(to)
	kept := pf.out[fi][:0]
	for _, e := range pf.out[fi] {
		if e.to != ti {
			kept = append(kept, e)
		}
	}
	pf.out[fi] = kept
	if cost, ok := travel.Cost(pf.td, w, from, to); ok {
		pf.out[fi] = append(pf.out[fi], edge{to: ti, cost: cost})
	}
}

// UpdateEdge recomputes the directed edge from -> to against the current
// world.
func (pf *Pathfinder) UpdateEdge(w *world.World, from, to world.Position) {
	if !w.InBounds(from) || !w.InBounds(to) {
		return
	}
	pf.setEdge(w, from, to)
}

// UpdatePositions recomputes, in both directions, every edge incident to
// each of the given positions.
func (pf *Pathfinder) UpdatePositions(w *world.World, positions []world.Position) {
	for _, p := range positions {
		for _, n := range w.Neighbours(p) {
			pf.setEdge(w, p, n)
			pf.setEdge(w, n, p)
		}
	}
}

// InitTargets creates (or clears) a named target set.
func (pf *Pathfinder) InitTargets(name string) {
	pf.targets[name] = make(map[int]bool)
}

// LoadTarget adds or removes a position from a named target set.
func (pf *Pathfinder) LoadTarget(name string, p world.Position, present bool) {
	set, ok := pf.targets[name]
	if !ok {
		set = make(map[int]bool)
		pf.targets[name] = set
	}
	if present {
		set[pf.index(p)] = true
	} else {
		delete(set, pf.index(p))
	}
}

func (pf *Pathfinder) costFromDuration(d time.Duration) uint32 {
	max := pf.td.MaxDuration()
	return uint32(math.Round(float64(d) / float64(max) * 255))
}

func (pf *Pathfinder) durationFromCost(cost uint32) time.Duration {
	max := pf.td.MaxDuration()
	return time.Duration(float64(cost) / 255 * float64(max))
}

// node is a heap entry carrying the node it was reached from, so the
// predecessor is only committed when the node settles. Ties on estimate
// break on index so equal-cost searches settle nodes in lexicographic
// position order.
type node struct {
	index int
	from  int
	cost  uint32
	est   uint32
}

type nodeHeap []node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].est != h[j].est {
		return h[i].est < h[j].est
	}
	return h[i].index < h[j].index
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)   { *h = append(*h, x.(node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	out := old[n-1]
	*h = old[:n-1]
	return out
}

// FindPath returns the least-cost path from from to to, inclusive of both
// endpoints. Returns nil when unreachable or when from == to.
func (pf *Pathfinder) FindPath(from, to world.Position) []world.Position {
	if from == to {
		return nil
	}
	fi, ti := pf.index(from), pf.index(to)
	minCost := pf.costFromDuration(pf.td.MinDuration())
	heuristic := func(i int) uint32 {
		p := pf.position(i)
		dx, dy := p.X-to.X, p.Y-to.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		return uint32(dx+dy) * minCost
	}

	closed := make([]bool, pf.nodes())
	prev := make([]int, pf.nodes())
	for i := range prev {
		prev[i] = -1
	}
	h := &nodeHeap{{index: fi, from: -1, cost: 0, est: heuristic(fi)}}
	heap.Init(h)
	for h.Len() > 0 {
		n := heap.Pop(h).(node)
		if closed[n.index] {
			continue
		}
		closed[n.index] = true
		prev[n.index] = n.from
		if n.index == ti {
			return pf.reconstruct(ti, prev)
		}
		for _, e := range pf.out[n.index] {
			if closed[e.to] {
				continue
			}
			cost := n.cost + uint32(e.cost)
			heap.Push(h, node{index: e.to, from: n.index, cost: cost, est: cost + heuristic(e.to)})
		}
	}
	return nil
}

func (pf *Pathfinder) reconstruct(to int, prev []int) []world.Position {
	var rev []int
	for cur := to; cur != -1; cur = prev[cur] {
		rev = append(rev, cur)
	}
	out := make([]world.Position, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, pf.position(rev[i]))
	}
	return out
}

// ClosestTargets runs a multi-source least-cost search from the origins and
// returns up to n members of the named target set in ascending cost order,
// each with its reconstructed path and duration.
func (pf *Pathfinder) ClosestTargets(origins []world.Position, targets string, n int) []ClosestTarget {
	set := pf.targets[targets]
	if len(set) == 0 || len(origins) == 0 || n == 0 {
		return nil
	}

	closed := make([]bool, pf.nodes())
	prev := make([]int, pf.nodes())
	for i := range prev {
		prev[i] = -1
	}
	h := &nodeHeap{}
	heap.Init(h)
	for _, origin := range origins {
		heap.Push(h, node{index: pf.index(origin), from: -1, cost: 0, est: 0})
	}

	var out []ClosestTarget
	for h.Len() > 0 && len(out) < n {
		nd := heap.Pop(h).(node)
		if closed[nd.index] {
			continue
		}
		closed[nd.index] = true
		prev[nd.index] = nd.from
		if set[nd.index] {
			out = append(out, ClosestTarget{
				Position: pf.position(nd.index),
				Path:     pf.reconstruct(nd.index, prev),
				Duration: pf.durationFromCost(nd.cost),
			})
		}
		for _, e := range pf.out[nd.index] {
			if closed[e.to] {
				continue
			}
			cost := nd.cost + uint32(e.cost)
			heap.Push(h, node{index: e.to, from: nd.index, cost: cost, est: cost})
		}
	}
	return out
}

// PositionsWithin returns every position reachable from the origins within
// the given duration, with the least duration to reach each.
func (pf *Pathfinder) PositionsWithin(origins []world.Position, d time.Duration) map[world.Position]time.Duration {
	maxCost := pf.costFromDuration(d)
	closed := make([]bool, pf.nodes())
	h := &nodeHeap{}
	heap.Init(h)
	for _, origin := range origins {
		heap.Push(h, node{index: pf.index(origin), from: -1, cost: 0, est: 0})
	}
	out := make(map[world.Position]time.Duration)
	for h.Len() > 0 {
		nd := heap.Pop(h).(node)
		if closed[nd.index] {
			continue
		}
		if nd.cost > maxCost {
			break
		}
		closed[nd.index] = true
		out[pf.position(nd.index)] = pf.durationFromCost(nd.cost)
		for _, e := range pf.out[nd.index] {
			if !closed[e.to] {
				heap.Push(h, node{index: e.to, from: nd.index, cost: nd.cost + uint32(e.cost), est: nd.cost + uint32(e.cost)})
			}
		}
	}
	return out
}
