package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/world"
)

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Simulation.RoadBuildThreshold != 8 {
		t.Errorf("road build threshold = %d, want 8", p.Simulation.RoadBuildThreshold)
	}
	if p.Avatar.MaxGradient != 0.5 {
		t.Errorf("avatar max gradient = %v, want 0.5", p.Avatar.MaxGradient)
	}
	if len(p.Mines) == 0 || p.Mines[0].Resource != resource.Crops {
		t.Errorf("mine table should start with crops, got %+v", p.Mines)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	doc := `
seed: 42
simulation:
  road_build_threshold: 3
  homeland_count: 2
avatar_travel:
  road_millis: 700
mines:
  - resource: iron
    object: mine
  - resource: crops
    object: crop
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Seed != 42 {
		t.Errorf("seed = %d, want 42", p.Seed)
	}
	if p.Simulation.RoadBuildThreshold != 3 {
		t.Errorf("road build threshold = %d, want 3", p.Simulation.RoadBuildThreshold)
	}
	if p.Simulation.HomelandCount != 2 {
		t.Errorf("homeland count = %d, want 2", p.Simulation.HomelandCount)
	}
	// Untouched options keep their defaults.
	if p.Simulation.TrafficToPopulation != 0.5 {
		t.Errorf("traffic to population = %v, want default 0.5", p.Simulation.TrafficToPopulation)
	}
	if p.Avatar.RoadMillis != 700 {
		t.Errorf("road millis = %v, want 700", p.Avatar.RoadMillis)
	}
	want := []MineRule{
		{Resource: resource.Iron, Object: world.MineOf(resource.Iron)},
		{Resource: resource.Crops, Object: world.Crop(false)},
	}
	if len(p.Mines) != 2 || p.Mines[0] != want[0] || p.Mines[1] != want[1] {
		t.Errorf("mines = %+v, want %+v", p.Mines, want)
	}
}

func TestLoadUnknownResourceFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	doc := "mines:\n  - resource: mithril\n    object: mine\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown resource should fail to load")
	}
}
