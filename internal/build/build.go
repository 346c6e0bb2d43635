// Package build holds deferred world mutations: the Build variants, the
// dedup key, the priority queue, and its on-disk form.
package build

import (
	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/world"
)

// Kind discriminates the Build variants.
type Kind uint8

const (
	KindRoad Kind = iota
	KindCrops
	KindObject
	KindTown
)

func (k Kind) String() string {
	switch k {
	case KindRoad:
		return "road"
	case KindCrops:
		return "crops"
	case KindObject:
		return "object"
	case KindTown:
		return "town"
	}
	return "unknown"
}

// Build is a tagged variant. Only the fields of the active kind are
// meaningful.
type Build struct {
	Kind Kind `json:"kind"`

	// Road
	Edge    world.Edge `json:"edge,omitempty"`
	RoadSet bool       `json:"road_set,omitempty"`

	// Crops and Object
	Position world.Position `json:"position,omitempty"`
	Rotated  bool           `json:"rotated,omitempty"`
	Object   world.Object   `json:"object,omitempty"`

	// Town
	Town social.Settlement `json:"town,omitempty"`
}

// Road builds (or, with set=false, removes) a road across an edge.
func Road(e world.Edge, set bool) Build {
	return Build{Kind: KindRoad, Edge: e, RoadSet: set}
}

// Crops places a crop at a position.
func Crops(p world.Position, rotated bool) Build {
	return Build{Kind: KindCrops, Position: p, Rotated: rotated}
}

// Object places (or, with the zero object, clears) the object at a position.
func Object(p world.Position, o world.Object) Build {
	return Build{Kind: KindObject, Position: p, Object: o}
}

// Town founds a settlement.
func Town(s social.Settlement) Build {
	return Build{Kind: KindTown, Town: s}
}

// Key is the dedup identity of a pending build.
type Key struct {
	Kind     Kind           `json:"kind"`
	Position world.Position `json:"position"`
	Edge     world.Edge     `json:"edge"`
}

// BuildKey derives the dedup key of a build.
func (b Build) BuildKey() Key {
	switch b.Kind {
	case KindRoad:
		return Key{Kind: KindRoad, Edge: b.Edge}
	case KindTown:
		return Key{Kind: KindTown, Position: b.Town.Position}
	default:
		return Key{Kind: b.Kind, Position: b.Position}
	}
}

// Less orders keys deterministically for equal-when execution.
func (k Key) Less(other Key) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.Position != other.Position {
		return k.Position.Less(other.Position)
	}
	if k.Edge.A != other.Edge.A {
		return k.Edge.A.Less(other.Edge.A)
	}
	return k.Edge.B.Less(other.Edge.B)
}

// Instruction schedules a build for a simulated time.
type Instruction struct {
	When int64 `json:"when"`
	What Build `json:"what"`
}
