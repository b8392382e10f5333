package output

import (
	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/filter"
)

// Filters builds the event filters selected by cfg. Persons whose routed
// plans touch an excluded link or node are dropped, so pop must be routed
// first. Returns nil when nothing is selected.
func Filters(cfg sim.OutputConfig, net *sim.Network, pop *sim.Population) []filter.EventFilter {
	var filters []filter.EventFilter

	var persons []sim.PersonID
	switch {
	case len(cfg.ExcludeLinks) > 0 || len(cfg.ExcludeNodes) > 0:
		links := make([]sim.LinkID, len(cfg.ExcludeLinks))
		for i, id := range cfg.ExcludeLinks {
			links[i] = sim.LinkID(id)
		}
		nodes := make([]sim.NodeID, len(cfg.ExcludeNodes))
		for i, id := range cfg.ExcludeNodes {
			nodes[i] = sim.NodeID(id)
		}
		wanted := make(map[sim.PersonID]bool, len(cfg.Persons))
		for _, id := range cfg.Persons {
			wanted[sim.PersonID(id)] = true
		}
		persons = []sim.PersonID{}
		for _, p := range filter.FilterPersons(pop, filter.NewPersonRouteFilter(net, links, nodes)) {
			if len(wanted) == 0 || wanted[p.ID] {
				persons = append(persons, p.ID)
			}
		}
	case len(cfg.Persons) > 0:
		for _, id := range cfg.Persons {
			persons = append(persons, sim.PersonID(id))
		}
	}
	if persons != nil {
		filters = append(filters, filter.NewPersonSpecific(persons))
	}

	if len(cfg.EventTypes) > 0 {
		types := make([]sim.EventType, len(cfg.EventTypes))
		for i, t := range cfg.EventTypes {
			types[i] = sim.EventType(t)
		}
		filters = append(filters, filter.NewTypeFilter(types...))
	}
	return filters
}
