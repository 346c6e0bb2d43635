package pathfind

import (
	"sync"
	"time"

	"github.com/halvard/tradewinds/internal/travel"
	"github.com/halvard/tradewinds/internal/world"
)

// Shared wraps a Pathfinder in a reader-writer lock: route queries may run
// concurrently, graph mutations are exclusive. The graph is mutated rarely
// (a road built, a cell revealed), so a plain RWMutex is plenty.
type Shared struct {
	mu sync.RWMutex
	pf *Pathfinder
}

func NewShared(pf *Pathfinder) *Shared {
	return &Shared{pf: pf}
}

func (s *Shared) FindPath(from, to world.Position) []world.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pf.FindPath(from, to)
}

func (s *Shared) ClosestTargets(origins []world.Position, targets string, n int) []ClosestTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pf.ClosestTargets(origins, targets, n)
}

func (s *Shared) PositionsWithin(origins []world.Position, d time.Duration) map[world.Position]time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pf.PositionsWithin(origins, d)
}

func (s *Shared) TravelDuration() travel.Duration {
	return s.pf.TravelDuration()
}

func (s *Shared) UpdateEdge(w *world.World, from, to world.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pf.UpdateEdge(w, from, to)
}

func (s *Shared) UpdatePositions(w *world.World, positions []world.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pf.UpdatePositions(w, positions)
}

func (s *Shared) ResetEdges(w *world.World) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pf.ResetEdges(w)
}

func (s *Shared) InitTargets(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pf.InitTargets(name)
}

func (s *Shared) LoadTarget(name string, p world.Position, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pf.LoadTarget(name, p, present)
}
