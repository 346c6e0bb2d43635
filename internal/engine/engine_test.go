package engine

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/halvard/tradewinds/internal/build"
	"github.com/halvard/tradewinds/internal/params"
	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/trade"
	"github.com/halvard/tradewinds/internal/world"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	p := params.Default()
	p.WorldGen.RevealAll = true
	w := world.NewFlat(3, 3, 1.0, 0.5)
	w.RevealAll()
	store := social.NewStore(social.DefaultNations())
	return New(p, w, store, nil)
}

// installRoute commits a route directly into the engine's stores.
func installRoute(e *Engine, key trade.RouteKey, path []world.Position, start int64, d time.Duration, traffic int) {
	setKey := trade.RouteSetKey{Settlement: key.Settlement, Resource: key.Resource}
	changes := e.Routes().Replace(setKey, []trade.Entry{{Key: key, Route: trade.Route{
		Path:        path,
		StartMicros: start,
		Duration:    d,
		Traffic:     traffic,
	}}})
	e.Traffic().Apply(changes)
}

func TestRoadBuildOnSufficientTraffic(t *testing.T) {
	e := testEngine(t)
	edge := world.NewEdge(world.P(1, 0), world.P(1, 1))

	installRoute(e, trade.RouteKey{Settlement: world.P(0, 0), Resource: resource.Wood, Destination: world.P(1, 1)},
		[]world.Position{world.P(0, 0), world.P(1, 0), world.P(1, 1)}, 1, 10*time.Microsecond, 4)
	installRoute(e, trade.RouteKey{Settlement: world.P(2, 0), Resource: resource.Iron, Destination: world.P(1, 1)},
		[]world.Position{world.P(2, 0), world.P(1, 0), world.P(1, 1)}, 1, 10*time.Microsecond, 4)

	e.RefreshEdges([]world.Edge{edge})
	e.Tick()

	when, planned := e.World().RoadPlanned(edge)
	if !planned || when != 11 {
		t.Fatalf("road plan = (%d, %v), want (11, true)", when, planned)
	}
	instr, ok := e.Queue().Get(build.Road(edge, true).BuildKey())
	if !ok || instr.When != 11 {
		t.Fatalf("road instruction = %+v ok=%v, want when=11", instr, ok)
	}

	// The executor builds the road once the clock reaches the plan.
	for e.Micros() < 11 {
		e.Tick()
	}
	if !e.World().IsRoad(edge) {
		t.Fatal("road should be built at when=11")
	}
}

func TestRoadNotBuiltWhenEarlierPlanWins(t *testing.T) {
	e := testEngine(t)
	edge := world.NewEdge(world.P(1, 0), world.P(1, 1))
	e.World().PlanRoad(edge, 1, true)

	installRoute(e, trade.RouteKey{Settlement: world.P(0, 0), Resource: resource.Wood, Destination: world.P(1, 1)},
		[]world.Position{world.P(0, 0), world.P(1, 0), world.P(1, 1)}, 1, 10*time.Microsecond, 8)

	e.RefreshEdges([]world.Edge{edge})
	e.Tick()

	if when, _ := e.World().RoadPlanned(edge); when != 1 {
		t.Fatalf("existing plan should win, got when=%d", when)
	}
	if _, ok := e.Queue().Get(build.Road(edge, true).BuildKey()); ok {
		t.Fatal("no instruction should be queued over an earlier plan")
	}
}

func TestRoadBelowThresholdNotPlanned(t *testing.T) {
	e := testEngine(t)
	edge := world.NewEdge(world.P(1, 0), world.P(1, 1))

	installRoute(e, trade.RouteKey{Settlement: world.P(0, 0), Resource: resource.Wood, Destination: world.P(1, 1)},
		[]world.Position{world.P(0, 0), world.P(1, 0), world.P(1, 1)}, 1, 10*time.Microsecond, 7)

	e.RefreshEdges([]world.Edge{edge})
	e.Tick()

	if _, planned := e.World().RoadPlanned(edge); planned {
		t.Fatal("traffic below threshold should not plan a road")
	}
}

func TestTownBuiltAtDestination(t *testing.T) {
	e := testEngine(t)
	e.Store().UpdateSettlement(social.Settlement{
		Position: world.P(0, 0),
		Class:    social.Homeland,
		Name:     "Aragon",
		Nation:   "Aragon",
	})

	// The route starts from one of the homeland's tile corners; the founder
	// is resolved by corner containment.
	installRoute(e, trade.RouteKey{Settlement: world.P(1, 0), Resource: resource.Bananas, Destination: world.P(1, 1)},
		[]world.Position{world.P(1, 0), world.P(1, 1)}, 1, 10*time.Microsecond, 1)

	e.RefreshPositions([]world.Position{world.P(1, 1)})
	e.Tick()

	towns := 0
	for _, tile := range []world.Position{world.P(0, 0), world.P(0, 1), world.P(1, 0), world.P(1, 1)} {
		instr, ok := e.Queue().Get(build.Key{Kind: build.KindTown, Position: tile})
		if !ok {
			continue
		}
		towns++
		if instr.When != 11 {
			t.Errorf("town at %v scheduled for %d, want 11", tile, instr.When)
		}
		if instr.What.Town.Nation != "Aragon" {
			t.Errorf("town at %v founded by %q, want Aragon", tile, instr.What.Town.Nation)
		}
		if instr.What.Town.CurrentPopulation != e.params.Simulation.InitialTownPopulation {
			t.Errorf("town at %v population %v", tile, instr.What.Town.CurrentPopulation)
		}
	}
	if towns != 4 {
		t.Fatalf("want 4 town instructions, got %d", towns)
	}
}

func TestTownNotBuiltWhenControlled(t *testing.T) {
	e := testEngine(t)
	e.Store().UpdateSettlement(social.Settlement{
		Position: world.P(0, 0),
		Class:    social.Homeland,
		Nation:   "Aragon",
	})
	e.Territory().Set(world.P(2, 2), []world.Position{world.P(1, 1)})

	installRoute(e, trade.RouteKey{Settlement: world.P(1, 0), Resource: resource.Bananas, Destination: world.P(1, 1)},
		[]world.Position{world.P(1, 0), world.P(1, 1)}, 1, 10*time.Microsecond, 1)

	e.RefreshPositions([]world.Position{world.P(1, 1)})
	e.Tick()

	for _, tile := range []world.Position{world.P(0, 0), world.P(0, 1), world.P(1, 0), world.P(1, 1)} {
		if _, ok := e.Queue().Get(build.Key{Kind: build.KindTown, Position: tile}); ok {
			t.Fatalf("no town should be queued at %v on controlled ground", tile)
		}
	}
}

func TestCropsBuiltAtFreeDestination(t *testing.T) {
	e := testEngine(t)

	installRoute(e, trade.RouteKey{Settlement: world.P(0, 0), Resource: resource.Crops, Destination: world.P(1, 1)},
		[]world.Position{world.P(0, 0), world.P(0, 1), world.P(1, 1)}, 1, 10*time.Microsecond, 7)

	e.RefreshPositions([]world.Position{world.P(1, 1)})
	e.Tick()

	instr, ok := e.Queue().Get(build.Key{Kind: build.KindCrops, Position: world.P(1, 1)})
	if !ok || instr.When != 11 {
		t.Fatalf("crops instruction = %+v ok=%v, want when=11", instr, ok)
	}
}

func TestCropsNotBuiltOnOccupiedCell(t *testing.T) {
	e := testEngine(t)
	e.World().SetObject(world.P(1, 1), world.MineOf(resource.Iron))

	installRoute(e, trade.RouteKey{Settlement: world.P(0, 0), Resource: resource.Crops, Destination: world.P(1, 1)},
		[]world.Position{world.P(0, 0), world.P(0, 1), world.P(1, 1)}, 1, 10*time.Microsecond, 7)

	e.RefreshPositions([]world.Position{world.P(1, 1)})
	e.Tick()

	if _, ok := e.Queue().Get(build.Key{Kind: build.KindCrops, Position: world.P(1, 1)}); ok {
		t.Fatal("crops should not be planned on an occupied cell")
	}
}

func TestCropsRemovedWithoutCropTraffic(t *testing.T) {
	e := testEngine(t)
	e.World().SetObject(world.P(1, 1), world.Crop(true))
	e.Queue().Insert(build.Instruction{When: 99, What: build.Crops(world.P(1, 1), true)})

	e.RefreshPositions([]world.Position{world.P(1, 1)})
	e.Tick()

	if cell := e.World().GetCell(world.P(1, 1)); !cell.Object.IsNone() {
		t.Fatal("crop object should be removed")
	}
	if _, ok := e.Queue().Get(build.Key{Kind: build.KindCrops, Position: world.P(1, 1)}); ok {
		t.Fatal("queued crops instruction should be cleared")
	}
}

func TestPopulationClampAndIdempotence(t *testing.T) {
	e := testEngine(t)
	e.params.Simulation.MaxAbsPopulationChange.Town = 1
	e.SetMicros(33)

	s := social.Settlement{
		Position:                   world.P(0, 0),
		Class:                      social.Town,
		CurrentPopulation:          1,
		TargetPopulation:           100,
		GapHalfLife:                10 * time.Microsecond,
		LastPopulationUpdateMicros: 11,
	}
	e.Store().UpdateSettlement(s)

	updated := e.updatePopulation(s)
	if updated.CurrentPopulation != 2.0 {
		t.Fatalf("population = %v, want 2.0", updated.CurrentPopulation)
	}
	if updated.LastPopulationUpdateMicros != 33 {
		t.Fatalf("last update = %d, want 33", updated.LastPopulationUpdateMicros)
	}

	// Running again at the same simulated time is a no-op.
	again := e.updatePopulation(updated)
	if again != updated {
		t.Fatalf("second update at same time changed the settlement: %+v", again)
	}
}

func TestTownTrafficShareAndTarget(t *testing.T) {
	e := testEngine(t)
	town := world.P(0, 0)
	e.Store().UpdateSettlement(social.Settlement{Position: town, Class: social.Town, Nation: "Aragon"})
	e.Store().UpdateSettlement(social.Settlement{Position: world.P(2, 2), Class: social.Homeland, Nation: "Kalmar"})
	e.Territory().Set(town, []world.Position{world.P(1, 0), world.P(1, 1)})

	// Route from outside the territory ending inside it: share =
	// traffic * 2 / (0 gates + 2) = traffic.
	installRoute(e, trade.RouteKey{Settlement: world.P(2, 2), Resource: resource.Wood, Destination: world.P(1, 1)},
		[]world.Position{world.P(2, 2), world.P(2, 1), world.P(1, 1)}, 1, 10*time.Microsecond, 3)

	summaries := e.townTraffic(social.Settlement{Position: town, Class: social.Town, Nation: "Aragon"})
	if len(summaries) != 1 {
		t.Fatalf("want one nation summary, got %+v", summaries)
	}
	if summaries[0].nation != "Kalmar" || summaries[0].trafficShare != 3.0 {
		t.Fatalf("summary = %+v, want Kalmar share 3", summaries[0])
	}

	p := e.params.Simulation
	if got := targetPopulation(summaries, p.TrafficToPopulation); got != 3.0*p.TrafficToPopulation {
		t.Fatalf("target = %v", got)
	}
	if got := townNation("Aragon", summaries, p.NationFlipTrafficPercentage); got != "Kalmar" {
		t.Fatalf("nation = %q, want flip to Kalmar", got)
	}
}

func TestTownTrafficExcludesRoutesFromInsideTerritory(t *testing.T) {
	e := testEngine(t)
	town := world.P(0, 0)
	e.Store().UpdateSettlement(social.Settlement{Position: world.P(1, 0), Class: social.Town, Nation: "Kalmar"})
	e.Territory().Set(town, []world.Position{world.P(1, 0), world.P(1, 1)})

	installRoute(e, trade.RouteKey{Settlement: world.P(1, 0), Resource: resource.Wood, Destination: world.P(1, 1)},
		[]world.Position{world.P(1, 0), world.P(1, 1)}, 1, 10*time.Microsecond, 5)

	summaries := e.townTraffic(social.Settlement{Position: town, Class: social.Town})
	if len(summaries) != 0 {
		t.Fatalf("routes from inside the territory must be excluded, got %+v", summaries)
	}
}

func TestTownRemovedWhenSmallAndQuiet(t *testing.T) {
	e := testEngine(t)
	town := social.Settlement{
		Position:          world.P(1, 1),
		Class:             social.Town,
		Name:              "Aarhus",
		Nation:            "Kalmar",
		CurrentPopulation: 0.1,
	}
	e.Store().UpdateSettlement(town)
	e.Territory().Set(town.Position, []world.Position{world.P(1, 1), world.P(2, 1)})

	if !e.removeTown(town, nil) {
		t.Fatal("small quiet town should be removed")
	}
	if _, ok := e.Store().GetSettlement(town.Position); ok {
		t.Fatal("settlement should be gone")
	}
	if e.Territory().AnyoneControls(world.P(2, 1)) {
		t.Fatal("territory should be released")
	}
	if !e.pendingPos[world.P(2, 1)] {
		t.Fatal("released positions should be refreshed")
	}
}

func TestTownKeptWhenTrafficExists(t *testing.T) {
	e := testEngine(t)
	town := social.Settlement{Position: world.P(1, 1), Class: social.Town, CurrentPopulation: 0.1}
	e.Store().UpdateSettlement(town)

	summaries := []townTrafficSummary{{nation: "Aragon", trafficShare: 1}}
	if e.removeTown(town, summaries) {
		t.Fatal("town with traffic should be kept")
	}
}

func TestDemandSkipsPathfinderWhenEmpty(t *testing.T) {
	e := testEngine(t)
	if got := e.routesFor(Demand{Position: world.P(0, 0), Resource: resource.Wood, Sources: 0, Quantity: 5}); got != nil {
		t.Fatalf("zero sources should yield no routes, got %v", got)
	}
	if got := e.routesFor(Demand{Position: world.P(0, 0), Resource: resource.Wood, Sources: 5, Quantity: 0}); got != nil {
		t.Fatalf("zero quantity should yield no routes, got %v", got)
	}
}

func TestHomelandTargetIsShareOfVisibleLand(t *testing.T) {
	e := testEngine(t)
	e.params.Simulation.HomelandCount = 2
	s := social.Settlement{Position: world.P(0, 0), Class: social.Homeland, Nation: "Aragon"}
	e.Store().UpdateSettlement(s)

	updated := e.updateHomeland(s)
	if updated.TargetPopulation != 4.5 {
		t.Fatalf("homeland target = %v, want 9 visible land / 2 homelands = 4.5", updated.TargetPopulation)
	}
}

func TestRoutePipelineEndToEnd(t *testing.T) {
	p := params.Default()
	p.WorldGen.RevealAll = true
	p.Simulation.HomelandCount = 1
	w := world.NewFlat(5, 5, 1.0, 0.5)
	w.RevealAll()
	store := social.NewStore(social.DefaultNations())
	deposits := map[world.Position]resource.Resource{
		world.P(4, 4): resource.Wood,
	}
	e := New(p, w, store, deposits)

	SeedHomeland(store, world.P(0, 0), "Aragon", 0)
	s, _ := store.GetSettlement(world.P(0, 0))
	s.CurrentPopulation = 40
	store.UpdateSettlement(s)

	e.Tick()

	key := trade.RouteKey{Settlement: world.P(0, 0), Resource: resource.Wood, Destination: world.P(4, 4)}
	route, ok := e.Routes().Get(key)
	if !ok {
		t.Fatal("homeland should route to the wood deposit")
	}
	if route.Path[0] == route.Path[len(route.Path)-1] {
		t.Fatal("route path endpoints should differ")
	}
	if route.Duration <= 0 {
		t.Fatal("route duration should be recomputed over the path")
	}
	if got := e.Traffic().TileTraffic(world.P(4, 4)); len(got) != 1 || got[0] != key {
		t.Fatalf("destination tile traffic = %v", got)
	}
}

func TestDeterministicRuns(t *testing.T) {
	run := func() []social.Settlement {
		p := params.Default()
		p.WorldGen.RevealAll = true
		w := world.NewFlat(6, 6, 1.0, 0.5)
		w.RevealAll()
		store := social.NewStore(social.DefaultNations())
		deposits := map[world.Position]resource.Resource{
			world.P(5, 5): resource.Wood,
			world.P(5, 0): resource.Iron,
			world.P(0, 5): resource.Crops,
		}
		e := New(p, w, store, deposits)
		SeedHomeland(store, world.P(0, 0), "Aragon", time.Millisecond)
		for i := 0; i < 200; i++ {
			e.Tick()
		}
		return store.Settlements()
	}

	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("equal seeds and ticks should give equal stores:\n%+v\n%+v", a, b)
	}
}

func TestPauseAndDrain(t *testing.T) {
	e := testEngine(t)
	e.Pause()
	e.Tick()
	if e.Micros() != 0 {
		t.Fatal("paused engine should not advance the clock")
	}
	e.Resume()
	e.Tick()
	if e.Micros() != 1 {
		t.Fatal("resumed engine should tick")
	}

	e.Drain()
	e.RefreshPositions([]world.Position{world.P(0, 0), world.P(1, 1)})
	e.RefreshEdges([]world.Edge{world.NewEdge(world.P(0, 0), world.P(1, 0))})
	e.PostReveal(world.P(0, 0))
	if e.Discarded() != 4 {
		t.Fatalf("drain should discard and count messages, got %d", e.Discarded())
	}
	if len(e.pendingPos) != 0 || len(e.pendingEdges) != 0 || len(e.pendingReveals) != 0 {
		t.Fatal("drained messages must not be queued")
	}
}

func TestRoutesRetractedWhenDemandVanishes(t *testing.T) {
	e := testEngine(t)
	e.planning.LoadTarget(resource.Wood.Name(), world.P(2, 2), true)

	town := social.Settlement{
		Position:          world.P(0, 0),
		Class:             social.Town,
		Name:              "Nyhavn",
		Nation:            "Kalmar",
		CurrentPopulation: 2,
	}
	e.Store().UpdateSettlement(town)
	e.commitRoutes(town)

	key := trade.RouteKey{Settlement: world.P(0, 0), Resource: resource.Wood, Destination: world.P(2, 2)}
	if _, ok := e.Routes().Get(key); !ok {
		t.Fatal("wood route should exist at population 2")
	}

	// Below the wood threshold the demand is gone; the next commit must
	// retract the route, not leave it behind.
	town.CurrentPopulation = 1
	e.Store().UpdateSettlement(town)
	e.commitRoutes(town)

	if _, ok := e.Routes().Get(key); ok {
		t.Fatal("wood route should be retracted when the demand ends")
	}
	for _, k := range e.Traffic().TileTraffic(world.P(2, 2)) {
		if k == key {
			t.Fatal("traffic index kept an entry for the retracted route")
		}
	}
}

func TestTownTrafficSummariesRepeatable(t *testing.T) {
	p := params.Default()
	p.WorldGen.RevealAll = true
	elevations := make([][]float64, 5)
	for x := range elevations {
		elevations[x] = make([]float64, 5)
		for y := range elevations[x] {
			elevations[x][y] = 1.0
			if x == 4 {
				elevations[x][y] = 0.2
			}
		}
	}
	w := world.New(elevations, 0.5)
	w.RevealAll()
	store := social.NewStore(social.DefaultNations())
	e := New(p, w, store, nil)
	SeedHomeland(store, world.P(0, 0), "Aragon", 0)

	e.Territory().Set(world.P(1, 1), []world.Position{world.P(4, 0), world.P(4, 1), world.P(4, 2)})

	install := func(r resource.Resource, dest world.Position, path []world.Position, traffic int) {
		key := trade.RouteKey{Settlement: world.P(0, 0), Resource: r, Destination: dest}
		setKey := trade.RouteSetKey{Settlement: key.Settlement, Resource: key.Resource}
		changes := e.Routes().Replace(setKey, []trade.Entry{{Key: key, Route: trade.Route{
			Path:        path,
			StartMicros: 1,
			Duration:    10 * time.Microsecond,
			Traffic:     traffic,
		}}})
		e.Traffic().Apply(changes)
		e.Ports().Update(e.World(), e.avatar, changes)
	}

	// Fishing routes landing in the territory, each entering the sea through
	// one port, so every share is traffic*2/3 and the total is fractional.
	row0 := []world.Position{world.P(0, 0), world.P(1, 0), world.P(2, 0), world.P(3, 0), world.P(4, 0)}
	row1 := []world.Position{world.P(0, 0), world.P(1, 0), world.P(2, 0), world.P(3, 0), world.P(3, 1), world.P(4, 1)}
	row2 := []world.Position{world.P(0, 0), world.P(1, 0), world.P(2, 0), world.P(3, 0), world.P(3, 1), world.P(3, 2), world.P(4, 2)}
	install(resource.Crabs, world.P(4, 0), row0, 1)
	install(resource.Whales, world.P(4, 1), row1, 2)
	install(resource.Wood, world.P(4, 2), row2, 4)
	install(resource.Stone, world.P(4, 0), row0, 5)
	install(resource.Coal, world.P(4, 1), row1, 7)
	install(resource.Iron, world.P(4, 2), row2, 8)

	town := social.Settlement{Position: world.P(1, 1), Class: social.Town, Nation: "Kalmar"}
	first := e.townTraffic(town)
	if len(first) != 1 || first[0].nation != "Aragon" {
		t.Fatalf("summaries = %+v, want one Aragon entry", first)
	}
	if math.Abs(first[0].trafficShare-18) > 1e-9 {
		t.Fatalf("trafficShare = %v, want 18", first[0].trafficShare)
	}
	for i := 0; i < 40; i++ {
		if got := e.townTraffic(town); !reflect.DeepEqual(got, first) {
			t.Fatalf("summaries changed on identical state at call %d:\n%+v\n%+v", i, got, first)
		}
	}
}

func TestMineReplacesIdleCrop(t *testing.T) {
	e := testEngine(t)
	p := world.P(1, 1)
	e.World().SetObject(p, world.Crop(false))

	installRoute(e, trade.RouteKey{Settlement: world.P(0, 0), Resource: resource.Iron, Destination: p},
		[]world.Position{world.P(0, 0), world.P(1, 0), p}, 1, 10*time.Microsecond, 1)

	e.RefreshPositions([]world.Position{p})
	e.Tick()

	cell := e.World().GetCell(p)
	if cell.Object.Kind != world.ObjectMine || cell.Object.Resource != resource.Iron {
		t.Fatalf("object = %+v, want an iron mine", cell.Object)
	}
}
