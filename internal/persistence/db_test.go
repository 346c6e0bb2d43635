package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	db := openTestDB(t)

	store := social.NewStore(social.DefaultNations())
	store.UpdateSettlement(social.Settlement{
		Position:          world.P(2, 3),
		Class:             social.Homeland,
		Name:              "Aragon",
		Nation:            "Aragon",
		CurrentPopulation: 12.5,
		TargetPopulation:  40,
		GapHalfLife:       90 * time.Second,
	})
	store.UpdateSettlement(social.Settlement{
		Position:                   world.P(7, 1),
		Class:                      social.Town,
		Name:                       "Nyhavn",
		Nation:                     "Kalmar",
		CurrentPopulation:          0.5,
		TargetPopulation:           1.5,
		GapHalfLife:                417 * time.Microsecond,
		LastPopulationUpdateMicros: 99,
	})
	if _, err := store.RandomTownName("Kalmar"); err != nil {
		t.Fatalf("draw name: %v", err)
	}

	if err := db.SaveState(store, 12345); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := social.NewStore(social.DefaultNations())
	micros, ok, err := db.LoadState(restored)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected a saved state")
	}
	if micros != 12345 {
		t.Errorf("micros = %d, want 12345", micros)
	}

	town, ok := restored.GetSettlement(world.P(7, 1))
	if !ok {
		t.Fatal("town not restored")
	}
	if town.Class != social.Town || town.Nation != "Kalmar" {
		t.Errorf("town restored wrong: %+v", town)
	}
	if town.GapHalfLife != 417*time.Microsecond {
		t.Errorf("gap half life = %v, want 417µs", town.GapHalfLife)
	}
	if town.LastPopulationUpdateMicros != 99 {
		t.Errorf("last update = %d, want 99", town.LastPopulationUpdateMicros)
	}

	homeland, ok := restored.GetSettlement(world.P(2, 3))
	if !ok {
		t.Fatal("homeland not restored")
	}
	if homeland.CurrentPopulation != 12.5 {
		t.Errorf("population = %v, want 12.5", homeland.CurrentPopulation)
	}

	// Name pool progress carries over, so the next draw differs from a
	// fresh roster's first name.
	kalmar, _ := restored.GetNation("Kalmar")
	if kalmar.NamesUsed() != 1 {
		t.Errorf("names used = %d, want 1", kalmar.NamesUsed())
	}
}

func TestLoadStateEmptyDatabase(t *testing.T) {
	db := openTestDB(t)

	store := social.NewStore(social.DefaultNations())
	micros, ok, err := db.LoadState(store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok || micros != 0 {
		t.Errorf("expected no state, got ok=%v micros=%d", ok, micros)
	}
	if store.Count() != 0 {
		t.Errorf("store should stay empty, has %d", store.Count())
	}
}

func TestSaveIDStableAcrossSaves(t *testing.T) {
	db := openTestDB(t)
	store := social.NewStore(social.DefaultNations())

	if err := db.SaveState(store, 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	first, err := db.GetMeta(MetaSaveID)
	if err != nil || first == "" {
		t.Fatalf("save id missing: %q %v", first, err)
	}

	if err := db.SaveState(store, 2); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, _ := db.GetMeta(MetaSaveID)
	if second != first {
		t.Errorf("save id changed: %q -> %q", first, second)
	}
}

func TestSaveSettlementsReplaces(t *testing.T) {
	db := openTestDB(t)

	first := []social.Settlement{{Position: world.P(0, 0), Nation: "Aragon", Name: "Aragon"}}
	if err := db.SaveSettlements(first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := []social.Settlement{{Position: world.P(5, 5), Nation: "Kalmar", Name: "Kalmar"}}
	if err := db.SaveSettlements(second); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := db.LoadSettlements()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Position != world.P(5, 5) {
		t.Errorf("replace failed: %+v", loaded)
	}
}
