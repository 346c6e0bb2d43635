package social

import (
	"sort"
	"sync"

	"github.com/halvard/tradewinds/internal/world"
)

// Store is the settlement and nation registry. All access is mediated by a
// single mutex; no caller holds it across other subsystems.
type Store struct {
	mu          sync.Mutex
	settlements map[world.Position]Settlement
	nations     map[string]*Nation
	nationOrder []string
}

func NewStore(nations []*Nation) *Store {
	s := &Store{
		settlements: make(map[world.Position]Settlement),
		nations:     make(map[string]*Nation),
	}
	for _, n := range nations {
		s.nations[n.Name] = n
		s.nationOrder = append(s.nationOrder, n.Name)
	}
	return s
}

// GetSettlement returns the settlement at exactly p.
func (s *Store) GetSettlement(p world.Position) (Settlement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.settlements[p]
	return out, ok
}

// SettlementWithCorner returns the settlement whose tile has p among its
// corners. Used when attributing traffic at a position to its settlement.
func (s *Store) SettlementWithCorner(p world.Position) (Settlement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found Settlement
	ok := false
	for _, settlement := range s.settlements {
		for _, c := range world.Corners(settlement.Position) {
			if c == p {
				// Smallest position wins so the lookup is deterministic.
				if !ok || settlement.Position.Less(found.Position) {
					found = settlement
					ok = true
				}
			}
		}
	}
	return found, ok
}

// UpdateSettlement inserts or replaces the settlement keyed by its position.
func (s *Store) UpdateSettlement(settlement Settlement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements[settlement.Position] = settlement
}

func (s *Store) RemoveSettlement(p world.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settlements[p]; !ok {
		return false
	}
	delete(s.settlements, p)
	return true
}

// Settlements returns every settlement in lexicographic position order.
func (s *Store) Settlements() []Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Settlement, 0, len(s.settlements))
	for _, settlement := range s.settlements {
		out = append(out, settlement)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position.Less(out[j].Position) })
	return out
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.settlements)
}

// Nations returns the nation roster in registration order.
func (s *Store) Nations() []*Nation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Nation, 0, len(s.nationOrder))
	for _, name := range s.nationOrder {
		out = append(out, s.nations[name])
	}
	return out
}

func (s *Store) GetNation(name string) (*Nation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nations[name]
	return n, ok
}

// RandomTownName draws the next town name from the nation's pool.
func (s *Store) RandomTownName(nation string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nations[nation]
	if !ok {
		return "", ErrNationNotFound
	}
	return n.NextTownName()
}
