// Package resource defines the closed set of tradeable resources and the
// mine configuration table.
package resource

// Resource enumerates everything a settlement can demand or a tile can yield.
type Resource uint8

const (
	None Resource = iota
	Bananas
	Bison
	Coal
	Crabs
	Crops
	Deer
	Fur
	Gems
	Gold
	Iron
	Ivory
	Pasture
	Spice
	Stone
	Truffles
	Whales
	Wood
)

// All lists every real resource (excludes None). Order is fixed and doubles
// as the iteration order wherever per-resource determinism matters.
var All = [...]Resource{
	Bananas, Bison, Coal, Crabs, Crops, Deer, Fur, Gems, Gold,
	Iron, Ivory, Pasture, Spice, Stone, Truffles, Whales, Wood,
}

var names = map[Resource]string{
	None:     "none",
	Bananas:  "bananas",
	Bison:    "bison",
	Coal:     "coal",
	Crabs:    "crabs",
	Crops:    "crops",
	Deer:     "deer",
	Fur:      "fur",
	Gems:     "gems",
	Gold:     "gold",
	Iron:     "iron",
	Ivory:    "ivory",
	Pasture:  "pasture",
	Spice:    "spice",
	Stone:    "stone",
	Truffles: "truffles",
	Whales:   "whales",
	Wood:     "wood",
}

// Name returns the stable name used as a pathfinder target-set key.
func (r Resource) Name() string {
	return names[r]
}

// FromName resolves a resource by its stable name.
func FromName(name string) (Resource, bool) {
	for r, n := range names {
		if n == name {
			return r, true
		}
	}
	return None, false
}

func (r Resource) String() string {
	return r.Name()
}
