// Package engine runs the economic simulation: per-settlement pipelines that
// plan trade routes, the traffic-driven build decision layer, and the
// deferred build executor, all advanced by a monotonic micros clock.
package engine

import (
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/halvard/tradewinds/internal/build"
	"github.com/halvard/tradewinds/internal/params"
	"github.com/halvard/tradewinds/internal/pathfind"
	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/trade"
	"github.com/halvard/tradewinds/internal/travel"
	"github.com/halvard/tradewinds/internal/visibility"
	"github.com/halvard/tradewinds/internal/world"
)

// Engine owns the simulation state and advances it tick by tick. All state
// mutation happens inside Tick; external readers should only look between
// ticks.
type Engine struct {
	params params.Parameters

	world     *world.World
	store     *social.Store
	routes    *trade.Routes
	traffic   *trade.Traffic
	ports     *trade.Ports
	queue     *build.Queue
	territory *Territory

	// avatar recomputes authoritative route durations; planning is the
	// pathfinder that treats planned roads as built, actual the one that
	// does not. autoRoad prices road construction and gates road plans.
	avatar   *travel.Avatar
	autoRoad *travel.AutoRoad
	planning *pathfind.Shared
	actual   *pathfind.Shared

	visibility *visibility.Computer
	deposits   map[world.Position]resource.Resource

	cropsRNG *rand.Rand

	micros     int64
	tickMicros int64

	simQueue       []world.Position
	pendingPos     map[world.Position]bool
	pendingEdges   map[world.Edge]bool
	pendingReveals []world.Position

	paused    bool
	draining  bool
	discarded int
}

// New wires an engine over a world and its resource deposits. The store
// should already hold the homeland settlements.
func New(p params.Parameters, w *world.World, store *social.Store, deposits map[world.Position]resource.Resource) *Engine {
	e := &Engine{
		params:       p,
		world:        w,
		store:        store,
		routes:       trade.NewRoutes(),
		traffic:      trade.NewTraffic(),
		ports:        trade.NewPorts(),
		queue:        build.NewQueue(),
		territory:    NewTerritory(),
		avatar:       travel.NewAvatar(p.Avatar),
		autoRoad:     travel.NewAutoRoad(p.AutoRoad),
		planning:     pathfind.NewShared(pathfind.New(w, travel.NewAvatarWithPlannedRoads(p.Avatar))),
		actual:       pathfind.NewShared(pathfind.New(w, travel.NewAvatar(p.Avatar))),
		visibility:   visibility.New(),
		deposits:     deposits,
		cropsRNG:     rand.New(rand.NewSource(p.Seed + 400)),
		tickMicros:   1,
		pendingPos:   make(map[world.Position]bool),
		pendingEdges: make(map[world.Edge]bool),
	}
	if p.WorldGen.RevealAll {
		e.visibility.Disable()
	}
	e.loadTargets()
	return e
}

// Accessors for inspection between ticks.
func (e *Engine) World() *world.World              { return e.world }
func (e *Engine) Store() *social.Store             { return e.store }
func (e *Engine) Routes() *trade.Routes            { return e.routes }
func (e *Engine) Traffic() *trade.Traffic          { return e.traffic }
func (e *Engine) Ports() *trade.Ports              { return e.ports }
func (e *Engine) Queue() *build.Queue              { return e.queue }
func (e *Engine) Territory() *Territory            { return e.territory }
func (e *Engine) Visibility() *visibility.Computer { return e.visibility }

// Micros returns the current simulated time.
func (e *Engine) Micros() int64 { return e.micros }

// SetMicros restores the clock, for loading saves.
func (e *Engine) SetMicros(micros int64) { e.micros = micros }

// SetTickMicros sets how far the clock advances per tick.
func (e *Engine) SetTickMicros(micros int64) { e.tickMicros = micros }

// loadTargets seeds the planning pathfinder's target sets from the deposit
// layer. Crops targets additionally require visible, farmable land.
func (e *Engine) loadTargets() {
	for _, r := range resource.All {
		e.planning.InitTargets(r.Name())
	}
	for p, r := range e.deposits {
		if r == resource.Crops && !e.farmable(p) {
			continue
		}
		e.planning.LoadTarget(r.Name(), p, true)
	}
}

func (e *Engine) farmable(p world.Position) bool {
	cell := e.world.GetCell(p)
	if cell == nil || !cell.Visible || e.world.IsSea(p) {
		return false
	}
	return e.world.MaxAbsRise(p) <= e.params.Avatar.MaxGradient
}

// Pause stops ticks from doing work until Resume.
func (e *Engine) Pause()  { e.paused = true }
func (e *Engine) Resume() { e.paused = false }

// Drain makes the engine count and discard queued work instead of running
// it, for shutdown.
func (e *Engine) Drain() { e.draining = true }

// Discarded reports how many messages drain mode has dropped.
func (e *Engine) Discarded() int { return e.discarded }

// PostReveal queues a visibility sweep from a view point, to be drained at
// the start of the next tick.
func (e *Engine) PostReveal(p world.Position) {
	if e.draining {
		e.discarded++
		return
	}
	e.pendingReveals = append(e.pendingReveals, p)
}

// RefreshPositions queues positions for the build decision layer.
func (e *Engine) RefreshPositions(positions []world.Position) {
	if e.draining {
		e.discarded += len(positions)
		return
	}
	for _, p := range positions {
		e.pendingPos[p] = true
	}
}

// RefreshEdges queues edges for the build decision layer.
func (e *Engine) RefreshEdges(edges []world.Edge) {
	if e.draining {
		e.discarded += len(edges)
		return
	}
	for _, edge := range edges {
		e.pendingEdges[edge] = true
	}
}

// Tick advances the clock and runs one simulation step: drain reveals,
// simulate the next settlement, run the refresh processors, then execute due
// builds.
func (e *Engine) Tick() {
	if e.paused || e.draining {
		return
	}
	e.micros += e.tickMicros

	e.drainReveals()
	e.simulateNext()
	e.processRefreshes()
	e.executeDue()
}

// drainReveals runs queued visibility sweeps and refreshes what they expose.
func (e *Engine) drainReveals() {
	reveals := e.pendingReveals
	e.pendingReveals = nil
	for _, viewPoint := range reveals {
		newly := e.visibility.Reveal(e.world, viewPoint)
		if len(newly) == 0 {
			continue
		}
		// Newly visible cells can change travel durations (invisible cells
		// are forbidden to the road planner) and open crops targets.
		e.planning.UpdatePositions(e.world, newly)
		e.actual.UpdatePositions(e.world, newly)
		for _, p := range newly {
			if e.deposits[p] == resource.Crops && e.farmable(p) {
				e.planning.LoadTarget(resource.Crops.Name(), p, true)
			}
		}
		e.RefreshPositions(newly)
	}
}

// simulateNext runs the settlement pipeline for the next settlement in the
// round-robin queue, replenishing the queue from the store when empty.
func (e *Engine) simulateNext() {
	for len(e.simQueue) == 0 {
		settlements := e.store.Settlements()
		if len(settlements) == 0 {
			return
		}
		for _, s := range settlements {
			e.simQueue = append(e.simQueue, s.Position)
		}
	}
	position := e.simQueue[0]
	e.simQueue = e.simQueue[1:]
	e.simulateSettlement(position)
}

// processRefreshes runs the build decision layer over the pending refresh
// sets, edges first, in deterministic order.
func (e *Engine) processRefreshes() {
	edges := make([]world.Edge, 0, len(e.pendingEdges))
	for edge := range e.pendingEdges {
		edges = append(edges, edge)
	}
	e.pendingEdges = make(map[world.Edge]bool)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A.Less(edges[j].A)
		}
		return edges[i].B.Less(edges[j].B)
	})
	for _, edge := range edges {
		e.processEdge(edge)
	}

	positions := make([]world.Position, 0, len(e.pendingPos))
	for p := range e.pendingPos {
		positions = append(positions, p)
	}
	e.pendingPos = make(map[world.Position]bool)
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	for _, p := range positions {
		e.processPosition(p)
	}
}

// executeDue pops and applies every instruction scheduled at or before the
// current time. Equal-when instructions run in key order.
func (e *Engine) executeDue() {
	for _, instr := range e.queue.TakeBefore(e.micros) {
		e.apply(instr)
	}
}

// SeedHomeland creates a homeland settlement with a nation from the store's
// rotation.
func SeedHomeland(store *social.Store, p world.Position, nation string, gapHalfLife time.Duration) social.Settlement {
	s := social.Settlement{
		Position:          p,
		Class:             social.Homeland,
		Name:              nation,
		Nation:            nation,
		CurrentPopulation: 0,
		TargetPopulation:  0,
		GapHalfLife:       gapHalfLife,
	}
	store.UpdateSettlement(s)
	slog.Info("homeland seeded", "position", p, "nation", nation)
	return s
}
