// Package worldgen builds demo worlds from layered simplex noise: elevation,
// rivers traced by steepest descent, resource deposits, and homeland sites.
package worldgen

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/halvard/tradewinds/internal/params"
	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/world"
)

// Result is a generated world plus the layers the simulation seeds from.
type Result struct {
	World     *world.World
	Deposits  map[world.Position]resource.Resource
	Homelands []world.Position
}

// Generate creates a world from the configuration. Equal seeds give equal
// worlds.
func Generate(cfg params.WorldGen, homelandCount int, seed int64) *Result {
	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)

	elevations := make([][]float64, cfg.Width)
	cx, cy := float64(cfg.Width)/2, float64(cfg.Height)/2
	maxDist := math.Sqrt(cx*cx + cy*cy)
	for x := range elevations {
		col := make([]float64, cfg.Height)
		for y := range col {
			elev := octaveNoise(elevNoise, float64(x), float64(y), cfg.Octaves, 0.04, cfg.Persistence)

			// Continental shaping: sink the map edges so the world is an
			// island surrounded by sea.
			dx, dy := float64(x)-cx, float64(y)-cy
			falloff := 1.0 - math.Pow(math.Sqrt(dx*dx+dy*dy)/maxDist, 3.0)
			if falloff < 0 {
				falloff = 0
			}
			col[y] = elev * falloff * cfg.PeakElevation
		}
		elevations[x] = col
	}

	w := world.New(elevations, cfg.SeaLevel)
	placeRivers(w, cfg, seed)
	deposits := placeDeposits(w, cfg, rainNoise, seed)
	homelands := pickHomelands(w, homelandCount, seed)

	if cfg.RevealAll {
		w.RevealAll()
	}

	return &Result{World: w, Deposits: deposits, Homelands: homelands}
}

// placeRivers traces steepest-descent paths from highland sources to the sea,
// widening as they go.
func placeRivers(w *world.World, cfg params.WorldGen, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))

	threshold := cfg.PeakElevation * 0.6
	var sources []world.Position
	for x := 0; x < w.Width(); x++ {
		for y := 0; y < w.Height(); y++ {
			p := world.P(x, y)
			if elev, ok := w.GetElevation(p); ok && elev > threshold {
				sources = append(sources, p)
			}
		}
	}

	rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})
	if len(sources) > cfg.Rivers {
		sources = sources[:cfg.Rivers]
	}
	for _, start := range sources {
		traceRiver(w, start)
	}
}

func traceRiver(w *world.World, start world.Position) {
	current := start
	visited := map[world.Position]bool{current: true}
	width := 0.05
	for steps := 0; steps < 200; steps++ {
		if w.IsSea(current) {
			return
		}
		elev, _ := w.GetElevation(current)

		var next world.Position
		found := false
		for _, n := range w.Neighbours(current) {
			if visited[n] {
				continue
			}
			if nElev, ok := w.GetElevation(n); ok && nElev < elev {
				elev = nElev
				next = n
				found = true
			}
		}
		if !found {
			return
		}
		w.AddRiver(world.NewEdge(current, next), width)
		width += 0.02
		visited[next] = true
		current = next
	}
}

// placeDeposits scatters resource deposits over land, with the resource
// picked from the cell's elevation and moisture band.
func placeDeposits(w *world.World, cfg params.WorldGen, rainNoise opensimplex.Noise, seed int64) map[world.Position]resource.Resource {
	rng := rand.New(rand.NewSource(seed + 200))
	deposits := make(map[world.Position]resource.Resource)

	for x := 0; x < w.Width(); x++ {
		for y := 0; y < w.Height(); y++ {
			p := world.P(x, y)
			if w.IsSea(p) {
				// Sea yields come from the shallows.
				if rng.Float64() < cfg.DepositChance/4 && coastal(w, p) {
					deposits[p] = pickOne(rng, resource.Crabs, resource.Whales)
				}
				continue
			}
			if rng.Float64() >= cfg.DepositChance {
				continue
			}
			elev, _ := w.GetElevation(p)
			rain := octaveNoise(rainNoise, float64(x), float64(y), 3, 0.06, 0.5)
			deposits[p] = pickDeposit(rng, elev/cfg.PeakElevation, rain)
		}
	}
	return deposits
}

func pickDeposit(rng *rand.Rand, elev, rain float64) resource.Resource {
	switch {
	case elev > 0.7:
		return pickOne(rng, resource.Stone, resource.Coal, resource.Iron, resource.Gold, resource.Gems)
	case rain > 0.6:
		return pickOne(rng, resource.Wood, resource.Deer, resource.Fur, resource.Truffles)
	case rain < 0.3:
		return pickOne(rng, resource.Bananas, resource.Spice, resource.Ivory)
	default:
		return pickOne(rng, resource.Crops, resource.Pasture, resource.Bison)
	}
}

func pickOne(rng *rand.Rand, options ...resource.Resource) resource.Resource {
	return options[rng.Intn(len(options))]
}

// pickHomelands spreads homeland sites around the coastline by taking evenly
// spaced candidates from the sorted coastal land positions.
func pickHomelands(w *world.World, count int, seed int64) []world.Position {
	var coast []world.Position
	for x := 0; x < w.Width(); x++ {
		for y := 0; y < w.Height(); y++ {
			p := world.P(x, y)
			if !w.IsSea(p) && coastal(w, p) {
				coast = append(coast, p)
			}
		}
	}
	sort.Slice(coast, func(i, j int) bool { return coast[i].Less(coast[j]) })
	if count <= 0 || len(coast) == 0 {
		return nil
	}
	if count >= len(coast) {
		return coast
	}

	rng := rand.New(rand.NewSource(seed + 300))
	offset := rng.Intn(len(coast))
	out := make([]world.Position, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, coast[(offset+i*len(coast)/count)%len(coast)])
	}
	return out
}

func coastal(w *world.World, p world.Position) bool {
	sea := w.IsSea(p)
	for _, n := range w.Neighbours(p) {
		if w.IsSea(n) != sea {
			return true
		}
	}
	return false
}

// octaveNoise layers multiple frequencies of simplex noise.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
