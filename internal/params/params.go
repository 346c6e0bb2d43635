// Package params holds the simulation configuration with defaults and YAML
// file loading.
package params

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/travel"
	"github.com/halvard/tradewinds/internal/world"
)

// Parameters is the full simulation configuration. Zero values are never
// meaningful; start from Default and override.
type Parameters struct {
	Seed int64 `yaml:"seed"`

	WorldGen   WorldGen              `yaml:"world_gen"`
	Simulation Simulation            `yaml:"simulation"`
	Mines      []MineRule            `yaml:"mines"`
	Avatar     travel.AvatarParams   `yaml:"avatar_travel"`
	AutoRoad   travel.AutoRoadParams `yaml:"auto_road_travel"`
}

// WorldGen configures procedural terrain for cmd/worldsim.
type WorldGen struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	SeaLevel      float64 `yaml:"sea_level"`
	Octaves       int     `yaml:"octaves"`
	Persistence   float64 `yaml:"persistence"`
	PeakElevation float64 `yaml:"peak_elevation"`
	Rivers        int     `yaml:"rivers"`
	DepositChance float64 `yaml:"deposit_chance"`
	ViewRadius    int     `yaml:"view_radius"`
	RevealAll     bool    `yaml:"reveal_all"`
}

// Simulation configures the economic loop.
type Simulation struct {
	RoadBuildThreshold          int     `yaml:"road_build_threshold"`
	InitialTownPopulation       float64 `yaml:"initial_town_population"`
	TownRemovalPopulation       float64 `yaml:"town_removal_population"`
	TrafficToPopulation         float64 `yaml:"traffic_to_population"`
	NationFlipTrafficPercentage float64 `yaml:"nation_flip_traffic_pc"`
	HomelandCount               int     `yaml:"homeland_count"`

	MaxAbsPopulationChange PopulationChange `yaml:"max_abs_population_change"`

	// TerritoryMillis bounds the travel time from a town's corners that
	// still counts as its territory.
	TerritoryMillis int64 `yaml:"territory_millis"`
}

// PopulationChange clamps per-update population movement by class.
type PopulationChange struct {
	Town     float64 `yaml:"town"`
	Homeland float64 `yaml:"homeland"`
}

// TerritoryDuration returns the territory bound as a Duration.
func (s Simulation) TerritoryDuration() time.Duration {
	return time.Duration(s.TerritoryMillis) * time.Millisecond
}

// MineRule maps a demanded resource to the object built where routes for it
// terminate. Rules are checked in order; the first match wins.
type MineRule struct {
	Resource resource.Resource
	Object   world.Object
}

type yamlMineRule struct {
	Resource string `yaml:"resource"`
	Object   string `yaml:"object"`
}

func (m *MineRule) UnmarshalYAML(value *yaml.Node) error {
	var raw yamlMineRule
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r, ok := resource.FromName(raw.Resource)
	if !ok {
		return fmt.Errorf("unknown resource %q", raw.Resource)
	}
	m.Resource = r
	switch raw.Object {
	case "house":
		m.Object = world.Object{Kind: world.ObjectHouse}
	case "crop":
		m.Object = world.Crop(false)
	case "mine":
		m.Object = world.MineOf(r)
	default:
		return fmt.Errorf("unknown mine object %q", raw.Object)
	}
	return nil
}

func (m MineRule) MarshalYAML() (interface{}, error) {
	raw := yamlMineRule{Resource: m.Resource.Name()}
	switch m.Object.Kind {
	case world.ObjectHouse:
		raw.Object = "house"
	case world.ObjectCrop:
		raw.Object = "crop"
	default:
		raw.Object = "mine"
	}
	return raw, nil
}

// Default returns the tuning the simulation ships with.
func Default() Parameters {
	return Parameters{
		Seed: 0,
		WorldGen: WorldGen{
			Width:         128,
			Height:        128,
			SeaLevel:      0.5,
			Octaves:       5,
			Persistence:   0.55,
			PeakElevation: 4.0,
			Rivers:        24,
			DepositChance: 0.02,
			ViewRadius:    16,
			RevealAll:     false,
		},
		Simulation: Simulation{
			RoadBuildThreshold:          8,
			InitialTownPopulation:       0.5,
			TownRemovalPopulation:       0.3,
			TrafficToPopulation:         0.5,
			NationFlipTrafficPercentage: 0.67,
			HomelandCount:               8,
			MaxAbsPopulationChange: PopulationChange{
				Town:     2.0,
				Homeland: 16.0,
			},
			TerritoryMillis: (6 * time.Hour).Milliseconds(),
		},
		Mines: []MineRule{
			{Resource: resource.Crops, Object: world.Crop(false)},
			{Resource: resource.Pasture, Object: world.MineOf(resource.Pasture)},
			{Resource: resource.Wood, Object: world.MineOf(resource.Wood)},
			{Resource: resource.Stone, Object: world.MineOf(resource.Stone)},
			{Resource: resource.Coal, Object: world.MineOf(resource.Coal)},
			{Resource: resource.Iron, Object: world.MineOf(resource.Iron)},
			{Resource: resource.Gold, Object: world.MineOf(resource.Gold)},
			{Resource: resource.Gems, Object: world.MineOf(resource.Gems)},
		},
		Avatar:   travel.DefaultAvatarParams(),
		AutoRoad: travel.DefaultAutoRoadParams(),
	}
}

// Load reads overrides from a YAML file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Parameters, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parameters: %w", err)
	}
	return p, nil
}
