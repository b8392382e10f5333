package router

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mobsim/mobsim/sim"
)

// PlanRouter routes the legs of plans. Network modes use the main least-cost
// path calculator; pt uses the free-flow calculator scaled by the pt speed
// factor; other modes travel the beeline distance, scaled by the beeline
// factor, at their mode speed.
type PlanRouter struct {
	net          *sim.Network
	main         *Dijkstra
	freeflow     *Dijkstra
	cfg          sim.RoutingConfig
	networkModes map[string]bool
}

// NewPlanRouter creates a plan router. main and freeflow may be the same
// calculator.
func NewPlanRouter(net *sim.Network, main, freeflow *Dijkstra, cfg sim.RoutingConfig, networkModes []string) *PlanRouter {
	modes := make(map[string]bool, len(networkModes))
	for _, m := range networkModes {
		modes[m] = true
	}
	return &PlanRouter{net: net, main: main, freeflow: freeflow, cfg: cfg, networkModes: modes}
}

// NewScenarioPlanRouter builds the plan router a scenario asks for: free-flow
// travel times, restricted to each person's known links when use_knowledge is
// set.
func NewScenarioPlanRouter(sc *sim.Scenario) *PlanRouter {
	var tt TravelTime = FreeSpeedTravelTime{}
	freeflow := NewDijkstra(sc.Network, tt, NewTimeDistanceDisutility(tt))
	main := freeflow
	if sc.Config.Routing.UseKnowledge {
		ktt := KnowledgeTravelTime{Inner: tt, Knowledge: PersonKnowledge{}}
		kcost := KnowledgeTravelCost{Inner: NewTimeDistanceDisutility(tt), Knowledge: PersonKnowledge{}}
		main = NewDijkstra(sc.Network, ktt, kcost)
	}
	return NewPlanRouter(sc.Network, main, freeflow, sc.Config.Routing, sc.Config.QSim.NetworkModes)
}

// RoutePerson routes the selected plan of p.
func (r *PlanRouter) RoutePerson(p *sim.Person) error {
	plan := p.SelectedPlan()
	if plan == nil {
		return fmt.Errorf("person %s has no selected plan", p.ID)
	}
	return r.RoutePlan(p, plan)
}

// RoutePlan routes every leg of plan, estimating departure times from the
// activity end times and the computed travel times.
func (r *PlanRouter) RoutePlan(p *sim.Person, plan *sim.Plan) error {
	now := 0.0
	for i := range plan.Elements {
		if act := plan.ActivityAt(i); act != nil {
			switch {
			case sim.IsDefined(act.EndTime):
				if act.EndTime > now {
					now = act.EndTime
				}
			case sim.IsDefined(act.Duration):
				now += act.Duration
			}
			continue
		}
		leg := plan.LegAt(i)
		from, to := plan.ActivityAt(i-1), plan.ActivityAt(i+1)
		if from == nil || to == nil {
			return fmt.Errorf("person %s: leg %d is not between two activities", p.ID, i)
		}
		if err := r.routeLeg(p, leg, from, to, now); err != nil {
			return fmt.Errorf("person %s leg %d: %w", p.ID, i, err)
		}
		if sim.IsDefined(leg.TravelTime) {
			now += leg.TravelTime
		}
	}
	return nil
}

func (r *PlanRouter) routeLeg(p *sim.Person, leg *sim.Leg, from, to *sim.Activity, now float64) error {
	leg.DepartureTime = now
	switch {
	case r.networkModes[leg.Mode]:
		if leg.Route != nil && len(leg.Route.LinkIDs) > 0 && !r.cfg.RouteAll {
			return nil
		}
		route, err := r.RouteLinks(p, from.LinkID, to.LinkID, now)
		if err != nil {
			return err
		}
		leg.Route = route
		leg.TravelTime = route.TravelTime
	case leg.Mode == sim.ModePt:
		route, err := r.routeWith(r.freeflow, p, from.LinkID, to.LinkID, now)
		if err != nil {
			return err
		}
		route.LinkIDs = nil
		route.TravelTime *= r.cfg.PtSpeedFactor
		leg.Route = route
		leg.TravelTime = route.TravelTime
	default:
		speed, ok := r.cfg.TeleportedModeSpeeds[leg.Mode]
		if !ok || speed <= 0 {
			logrus.Warnf("person %s: no speed for mode %s, leaving leg unrouted", p.ID, leg.Mode)
			return nil
		}
		dist := sim.Distance(from.Coord, to.Coord) * r.cfg.BeelineFactor
		leg.Route = &sim.Route{StartLinkID: from.LinkID, EndLinkID: to.LinkID, Distance: dist, TravelTime: dist / speed}
		leg.TravelTime = leg.Route.TravelTime
	}
	return nil
}

// RouteLinks computes a network route between two links departing at time.
func (r *PlanRouter) RouteLinks(p *sim.Person, from, to sim.LinkID, time float64) (*sim.Route, error) {
	return r.routeWith(r.main, p, from, to, time)
}

func (r *PlanRouter) routeWith(d *Dijkstra, p *sim.Person, from, to sim.LinkID, time float64) (*sim.Route, error) {
	fromLink, toLink := r.net.Link(from), r.net.Link(to)
	if fromLink == nil || toLink == nil {
		return nil, fmt.Errorf("route %s -> %s: unknown link", from, to)
	}
	links, path, err := d.LinkPath(fromLink, toLink, time, p)
	if err != nil {
		return nil, err
	}
	route := &sim.Route{TravelTime: path.TravelTime}
	if len(links) == 0 {
		route.SetLinkIDs(from, nil, to)
		return route, nil
	}
	route.SetLinkIDs(from, links[:len(links)-1], to)
	route.Distance = path.Distance() + toLink.Length
	return route, nil
}

// RoutePopulation routes every person's selected plan with up to workers
// concurrent goroutines. It stops at the first error.
func RoutePopulation(ctx context.Context, r *PlanRouter, pop *sim.Population, workers int) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range pop.Persons() {
		p := p // per-iteration copy; module builds with go 1.21 loop semantics
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.RoutePerson(p)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("routing population: %w", err)
	}
	logrus.Infof("Routed %d persons with %d workers", pop.Len(), workers)
	return nil
}
