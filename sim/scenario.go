package sim

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// Scenario bundles a validated configuration with the network and population
// built from it.
type Scenario struct {
	Config     *Config
	Network    *Network
	Population *Population
}

// LoadScenario reads, validates and builds a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return BuildScenario(cfg)
}

// BuildScenario creates the network and population described by cfg.
func BuildScenario(cfg *Config) (*Scenario, error) {
	net, err := buildNetwork(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	pop := NewPopulation()
	for i, pc := range cfg.Population {
		person, err := buildPerson(net, pc)
		if err != nil {
			return nil, fmt.Errorf("population[%d]: %w", i, err)
		}
		if err := pop.Add(person); err != nil {
			return nil, fmt.Errorf("population[%d]: %w", i, err)
		}
	}
	logrus.Infof("Scenario: %d nodes, %d links, %d persons", net.NumNodes(), net.NumLinks(), pop.Len())
	return &Scenario{Config: cfg, Network: net, Population: pop}, nil
}

func buildNetwork(nc NetworkConfig) (*Network, error) {
	net := NewNetwork()
	for _, n := range nc.Nodes {
		if _, err := net.AddNode(NodeID(n.ID), orb.Point{n.X, n.Y}); err != nil {
			return nil, err
		}
	}
	for _, l := range nc.Links {
		if _, err := net.AddLink(LinkID(l.ID), NodeID(l.From), NodeID(l.To), l.Length, l.FreeSpeed, l.Capacity, l.Lanes); err != nil {
			return nil, err
		}
	}
	return net, nil
}

func buildPerson(net *Network, pc PersonConfig) (*Person, error) {
	person := &Person{ID: PersonID(pc.ID)}
	if len(pc.KnownLinks) > 0 {
		person.KnownLinks = make(map[LinkID]struct{}, len(pc.KnownLinks))
		for _, id := range pc.KnownLinks {
			if net.Link(LinkID(id)) == nil {
				return nil, fmt.Errorf("person %s: unknown known link %s", pc.ID, id)
			}
			person.KnownLinks[LinkID(id)] = struct{}{}
		}
	}
	plan := &Plan{}
	for i, el := range pc.Plan {
		switch {
		case el.Activity != nil && el.Leg != nil:
			return nil, fmt.Errorf("person %s: plan element %d has both activity and leg", pc.ID, i)
		case el.Activity != nil:
			act, err := buildActivity(net, el.Activity)
			if err != nil {
				return nil, fmt.Errorf("person %s: plan element %d: %w", pc.ID, i, err)
			}
			plan.Elements = append(plan.Elements, act)
		case el.Leg != nil:
			leg, err := buildLeg(net, el.Leg)
			if err != nil {
				return nil, fmt.Errorf("person %s: plan element %d: %w", pc.ID, i, err)
			}
			plan.Elements = append(plan.Elements, leg)
		default:
			return nil, fmt.Errorf("person %s: plan element %d is empty", pc.ID, i)
		}
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("person %s: %w", pc.ID, err)
	}
	person.Plans = []*Plan{plan}
	return person, nil
}

func buildActivity(net *Network, ac *ActivityConfig) (*Activity, error) {
	link := net.Link(LinkID(ac.Link))
	if link == nil {
		return nil, fmt.Errorf("activity %s: unknown link %q", ac.Type, ac.Link)
	}
	coord := link.Coord()
	if ac.X != nil && ac.Y != nil {
		coord = orb.Point{*ac.X, *ac.Y}
	}
	act := NewActivity(ac.Type, link.ID, coord)
	act.FacilityID = FacilityID(ac.Facility)
	var err error
	if act.EndTime, err = ParseTime(ac.EndTime); err != nil {
		return nil, err
	}
	if act.Duration, err = ParseTime(ac.Duration); err != nil {
		return nil, err
	}
	return act, nil
}

func buildLeg(net *Network, lc *LegConfig) (*Leg, error) {
	if lc.Mode == "" {
		return nil, fmt.Errorf("leg mode must not be empty")
	}
	leg := &Leg{Mode: lc.Mode, DepartureTime: UndefinedTime, TravelTime: UndefinedTime}
	tt, err := ParseTime(lc.TravelTime)
	if err != nil {
		return nil, err
	}
	leg.TravelTime = tt
	if len(lc.Route) == 0 {
		return leg, nil
	}
	ids := make([]LinkID, len(lc.Route))
	dist := 0.0
	for i, id := range lc.Route {
		link := net.Link(LinkID(id))
		if link == nil {
			return nil, fmt.Errorf("route: unknown link %q", id)
		}
		if i > 0 && net.Link(ids[i-1]).To != link.From {
			return nil, fmt.Errorf("route: link %s does not continue link %s", id, ids[i-1])
		}
		ids[i] = link.ID
		if i > 0 {
			dist += link.Length
		}
	}
	route := &Route{Distance: dist, TravelTime: UndefinedTime}
	if len(ids) == 1 {
		route.SetLinkIDs(ids[0], nil, ids[0])
	} else {
		route.SetLinkIDs(ids[0], ids[1:len(ids)-1], ids[len(ids)-1])
	}
	leg.Route = route
	return leg, nil
}
