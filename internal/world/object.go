package world

import "github.com/halvard/tradewinds/internal/resource"

// ObjectKind discriminates what occupies a tile.
type ObjectKind uint8

const (
	ObjectNone ObjectKind = iota
	ObjectHouse
	ObjectCrop
	ObjectMine
)

// Object is the thing standing on a tile, if any. Rotated only applies to
// crops; Resource only to mines.
type Object struct {
	Kind     ObjectKind        `json:"kind"`
	Rotated  bool              `json:"rotated,omitempty"`
	Resource resource.Resource `json:"resource,omitempty"`
}

// NoObject is the empty tile.
var NoObject = Object{Kind: ObjectNone}

// Crop returns a crop object with the given rotation.
func Crop(rotated bool) Object {
	return Object{Kind: ObjectCrop, Rotated: rotated}
}

// MineOf returns a mine extracting the given resource.
func MineOf(r resource.Resource) Object {
	return Object{Kind: ObjectMine, Resource: r}
}

// IsNone reports whether the tile is free.
func (o Object) IsNone() bool {
	return o.Kind == ObjectNone
}
