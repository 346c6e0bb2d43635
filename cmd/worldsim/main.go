// Command worldsim runs the tradewinds economic world simulation.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/halvard/tradewinds/internal/engine"
	"github.com/halvard/tradewinds/internal/params"
	"github.com/halvard/tradewinds/internal/persistence"
	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/worldgen"
)

func main() {
	paramsPath := flag.String("params", "", "YAML parameter overrides")
	dataDir := flag.String("data", "data", "save directory")
	tickMicros := flag.Int64("tick-micros", 1000, "simulated microseconds per tick")
	saveEvery := flag.Duration("save-every", time.Minute, "autosave interval")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	p, err := params.Load(*paramsPath)
	if err != nil {
		slog.Error("failed to load parameters", "path", *paramsPath, "error", err)
		os.Exit(1)
	}

	os.MkdirAll(*dataDir, 0755)
	dbPath := filepath.Join(*dataDir, "state.db")
	queuePath := filepath.Join(*dataDir, "world.build_service")
	visibilityPath := filepath.Join(*dataDir, "world.visibility")

	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// The map is always regenerated, deterministic from the seed. Only the
	// mutable simulation state is persisted.
	slog.Info("generating world", "seed", p.Seed,
		"width", p.WorldGen.Width, "height", p.WorldGen.Height)
	gen := worldgen.Generate(p.WorldGen, p.Simulation.HomelandCount, p.Seed)

	store := social.NewStore(social.DefaultNations())
	micros, loaded, err := db.LoadState(store)
	if err != nil {
		slog.Error("failed to load state", "error", err)
		os.Exit(1)
	}

	eng := engine.New(p, gen.World, store, gen.Deposits)
	eng.SetTickMicros(*tickMicros)

	if loaded {
		eng.SetMicros(micros)
		if err := eng.Queue().Load(queuePath); err != nil {
			slog.Warn("build queue not restored", "path", queuePath, "error", err)
		}
		if err := eng.Visibility().Load(visibilityPath); err != nil {
			slog.Warn("visibility not restored", "path", visibilityPath, "error", err)
		}
		for _, s := range store.Settlements() {
			eng.PostReveal(s.Position)
		}
		slog.Info("state restored", "settlements", store.Count(), "micros", micros)
	} else {
		nations := store.Nations()
		for i, home := range gen.Homelands {
			nation := nations[i%len(nations)]
			engine.SeedHomeland(store, home, nation.Name, 0)
			eng.PostReveal(home)
		}
		if err := db.SaveState(store, eng.Micros()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	save := func() {
		if err := db.SaveState(store, eng.Micros()); err != nil {
			slog.Error("save failed", "error", err)
		}
		if err := eng.Queue().Save(queuePath); err != nil {
			slog.Error("build queue save failed", "error", err)
		}
		if err := eng.Visibility().Save(visibilityPath); err != nil {
			slog.Error("visibility save failed", "error", err)
		}
	}

	autosave := time.NewTicker(*saveEvery)
	defer autosave.Stop()

	slog.Info("simulation running", "tick_micros", *tickMicros)
	for {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			eng.Drain()
			save()
			slog.Info("shutdown complete", "discarded", eng.Discarded())
			return
		case <-autosave.C:
			save()
		default:
			eng.Tick()
		}
	}
}
