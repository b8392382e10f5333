package filter

import (
	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// PersonFilter decides whether a person is kept.
type PersonFilter interface {
	Judge(p *sim.Person) bool
}

// PersonRouteFilter drops persons whose selected plan stays on a criterion link
// or travels over a criterion link or node.
type PersonRouteFilter struct {
	net   *sim.Network
	links map[sim.LinkID]struct{}
	nodes map[sim.NodeID]struct{}
}

// NewPersonRouteFilter creates a filter for the given links and nodes. net
// resolves the nodes a route passes; it may be nil when nodeIDs is empty.
func NewPersonRouteFilter(net *sim.Network, linkIDs []sim.LinkID, nodeIDs []sim.NodeID) *PersonRouteFilter {
	f := &PersonRouteFilter{
		net:   net,
		links: make(map[sim.LinkID]struct{}, len(linkIDs)),
		nodes: make(map[sim.NodeID]struct{}, len(nodeIDs)),
	}
	for _, id := range linkIDs {
		f.links[id] = struct{}{}
	}
	for _, id := range nodeIDs {
		f.nodes[id] = struct{}{}
	}
	return f
}

// Judge implements PersonFilter.
func (f *PersonRouteFilter) Judge(p *sim.Person) bool {
	plan := p.SelectedPlan()
	if plan == nil {
		return true
	}
	for i := range plan.Elements {
		if act := plan.ActivityAt(i); act != nil {
			if f.hasLink(act.LinkID) {
				return false
			}
			continue
		}
		route := plan.LegAt(i).Route
		if route == nil {
			continue
		}
		for _, id := range route.LinkIDs {
			if f.hasLink(id) {
				return false
			}
		}
		for _, id := range f.routeNodes(route) {
			if _, ok := f.nodes[id]; ok {
				return false
			}
		}
	}
	return true
}

func (f *PersonRouteFilter) hasLink(id sim.LinkID) bool {
	_, ok := f.links[id]
	return ok
}

// routeNodes lists the nodes passed between the start and the end link.
func (f *PersonRouteFilter) routeNodes(route *sim.Route) []sim.NodeID {
	if f.net == nil || len(f.nodes) == 0 {
		return nil
	}
	start := f.net.Link(route.StartLinkID)
	if start == nil {
		return nil
	}
	if route.StartLinkID == route.EndLinkID && len(route.LinkIDs) == 0 {
		return nil
	}
	nodes := []sim.NodeID{start.To.ID}
	for _, id := range route.LinkIDs {
		if l := f.net.Link(id); l != nil {
			nodes = append(nodes, l.To.ID)
		}
	}
	return nodes
}

// FilterPersons returns the persons of pop accepted by every filter, sorted by
// id. The population itself is not modified.
func FilterPersons(pop *sim.Population, filters ...PersonFilter) []*sim.Person {
	var kept []*sim.Person
	for _, p := range pop.Persons() {
		ok := true
		for _, f := range filters {
			if !f.Judge(p) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, p)
		}
	}
	logrus.Infof("Person filter kept %d of %d persons", len(kept), pop.Len())
	return kept
}
