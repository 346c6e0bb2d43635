package engine

import (
	"github.com/halvard/tradewinds/internal/resource"
	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/world"
)

// Demand is a settlement's request for a resource: how many supply sites to
// route to and how much traffic each route carries.
type Demand struct {
	Position world.Position
	Resource resource.Resource
	Sources  int
	Quantity int
}

// maxSources caps how many parallel supply routes one demand maintains.
const maxSources = 8

// homelandDemand emits one demand per trade resource. Homelands import
// everything except the farmed resources, with route count and traffic
// growing with population.
func homelandDemand(s social.Settlement) []Demand {
	current := int(s.CurrentPopulation)
	if current <= 0 {
		return nil
	}
	sources := 1 + current/16
	if sources > maxSources {
		sources = maxSources
	}
	quantity := 1 + current/32

	var out []Demand
	for _, r := range resource.All {
		if r == resource.Crops || r == resource.Pasture {
			continue
		}
		out = append(out, Demand{Position: s.Position, Resource: r, Sources: sources, Quantity: quantity})
	}
	return out
}

// townDemand emits food demands scaled by population plus one unit of each
// craft resource once the town is big enough to work it.
func townDemand(s social.Settlement) []Demand {
	current := int(s.CurrentPopulation)
	if current <= 0 {
		return nil
	}
	foodSources := 1 + current/4
	if foodSources > maxSources {
		foodSources = maxSources
	}

	out := []Demand{
		{Position: s.Position, Resource: resource.Crops, Sources: foodSources, Quantity: current},
		{Position: s.Position, Resource: resource.Pasture, Sources: 1 + foodSources/2, Quantity: current / 2},
	}
	for _, craft := range []struct {
		resource  resource.Resource
		threshold int
	}{
		{resource.Wood, 2},
		{resource.Stone, 4},
		{resource.Coal, 8},
		{resource.Iron, 16},
	} {
		if current >= craft.threshold {
			out = append(out, Demand{Position: s.Position, Resource: craft.resource, Sources: 1, Quantity: 1})
		}
	}
	return out
}

func demandFor(s social.Settlement) []Demand {
	if s.Class == social.Homeland {
		return homelandDemand(s)
	}
	return townDemand(s)
}
