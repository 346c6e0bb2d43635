// Package social holds settlements, nations, and the settlement store.
package social

import (
	"time"

	"github.com/halvard/tradewinds/internal/world"
)

// Class partitions settlements by behaviour: homelands are the seeded origin
// nations, towns are founded by traffic.
type Class uint8

const (
	Homeland Class = iota
	Town
)

func (c Class) String() string {
	if c == Homeland {
		return "homeland"
	}
	return "town"
}

// Settlement is one populated position. Position is stable for the
// settlement's lifetime and no two settlements share one.
type Settlement struct {
	Position                   world.Position `json:"position"`
	Class                      Class          `json:"class"`
	Name                       string         `json:"name"`
	Nation                     string         `json:"nation"`
	CurrentPopulation          float64        `json:"current_population"`
	TargetPopulation           float64        `json:"target_population"`
	GapHalfLife                time.Duration  `json:"gap_half_life"`
	LastPopulationUpdateMicros int64          `json:"last_population_update_micros"`
}
