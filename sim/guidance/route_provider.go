package guidance

import (
	"fmt"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/router"
)

// RouteProvider proposes the links to drive after from, ending with to.
type RouteProvider interface {
	RequestRoute(person *sim.Person, from, to sim.LinkID, now float64) ([]sim.LinkID, error)
}

// ReactRouteGuidance computes least-cost routes over reactive travel times.
type ReactRouteGuidance struct {
	net      *sim.Network
	dijkstra *router.Dijkstra
}

// NewReactRouteGuidance routes over tt, with travel time as the cost.
func NewReactRouteGuidance(net *sim.Network, tt router.TravelTime) *ReactRouteGuidance {
	return &ReactRouteGuidance{
		net:      net,
		dijkstra: router.NewDijkstra(net, tt, router.NewTimeDistanceDisutility(tt)),
	}
}

// RequestRoute implements RouteProvider.
func (g *ReactRouteGuidance) RequestRoute(person *sim.Person, from, to sim.LinkID, now float64) ([]sim.LinkID, error) {
	fromLink, toLink := g.net.Link(from), g.net.Link(to)
	if fromLink == nil || toLink == nil {
		return nil, fmt.Errorf("guidance route %s -> %s: unknown link", from, to)
	}
	links, _, err := g.dijkstra.LinkPath(fromLink, toLink, now, person)
	return links, err
}
