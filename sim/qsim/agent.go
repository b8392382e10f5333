package qsim

import (
	"math"

	"github.com/mobsim/mobsim/sim"
)

// State is the agent's position in its activity/leg cycle.
type State int

const (
	StateActivity State = iota
	StateLeg
	StateFinished
	StateAbort
)

func (s State) String() string {
	switch s {
	case StateActivity:
		return "activity"
	case StateLeg:
		return "leg"
	case StateFinished:
		return "finished"
	default:
		return "abort"
	}
}

// Replanner changes an agent's remaining route while it travels. It is called
// at departure and each time the vehicle approaches a node.
type Replanner interface {
	Replan(a *Agent, now float64)
}

// RouteEndHook is consulted when a network leg reaches its end link. It
// returns true if the agent arrives, false if it extended the route.
type RouteEndHook interface {
	OnRouteEnd(a *Agent, now float64) bool
}

// ActivityStartHook runs after an activity started and before its end time is
// computed.
type ActivityStartHook interface {
	OnActivityStart(a *Agent, now float64)
}

// ActivityEndHook runs when an activity ends, before the next leg starts.
type ActivityEndHook interface {
	OnActivityEnd(a *Agent, now float64)
}

// Agent executes the selected plan of a person. The person's vehicle has the
// person's id.
type Agent struct {
	person *sim.Person
	plan   *sim.Plan

	index           int
	state           State
	currentLinkID   sim.LinkID
	activityEndTime float64
	// routePos indexes the current link in the full route [start, links..., end].
	routePos int

	Replanner     Replanner
	RouteEnd      RouteEndHook
	ActivityStart ActivityStartHook
	ActivityEnd   ActivityEndHook
}

// NewAgent creates an agent positioned at the first activity of the person's
// selected plan.
func NewAgent(p *sim.Person) *Agent {
	a := &Agent{person: p, plan: p.SelectedPlan(), state: StateAbort}
	if a.plan == nil || len(a.plan.Elements) == 0 {
		return a
	}
	first := a.plan.ActivityAt(0)
	if first == nil {
		return a
	}
	a.state = StateActivity
	a.currentLinkID = first.LinkID
	return a
}

// ID returns the person id.
func (a *Agent) ID() sim.PersonID { return a.person.ID }

// VehicleID returns the id of the agent's vehicle.
func (a *Agent) VehicleID() sim.VehicleID { return sim.VehicleID(a.person.ID) }

// Person returns the simulated person.
func (a *Agent) Person() *sim.Person { return a.person }

// Plan returns the executed plan.
func (a *Agent) Plan() *sim.Plan { return a.plan }

// State returns the agent state.
func (a *Agent) State() State { return a.state }

// PlanElementIndex returns the index of the current plan element.
func (a *Agent) PlanElementIndex() int { return a.index }

// CurrentLinkID returns the link the agent is on.
func (a *Agent) CurrentLinkID() sim.LinkID { return a.currentLinkID }

// CurrentActivity returns the current activity, or nil during a leg.
func (a *Agent) CurrentActivity() *sim.Activity { return a.plan.ActivityAt(a.index) }

// CurrentLeg returns the current leg, or nil during an activity.
func (a *Agent) CurrentLeg() *sim.Leg { return a.plan.LegAt(a.index) }

// ActivityEndTime returns the end time of the current activity; +Inf if the
// activity never ends.
func (a *Agent) ActivityEndTime() float64 { return a.activityEndTime }

// Abort marks the agent for removal from the simulation.
func (a *Agent) Abort() { a.state = StateAbort }

// startActivity computes the end time of the current activity.
func (a *Agent) startActivity(now float64) {
	act := a.CurrentActivity()
	if act == nil {
		a.state = StateAbort
		return
	}
	a.state = StateActivity
	act.StartTime = now
	if a.index == len(a.plan.Elements)-1 {
		a.activityEndTime = math.Inf(1)
		return
	}
	switch {
	case sim.IsDefined(act.EndTime):
		a.activityEndTime = math.Max(act.EndTime, now)
	case sim.IsDefined(act.Duration):
		a.activityEndTime = now + act.Duration
	default:
		a.activityEndTime = math.Inf(1)
	}
}

// EndActivityAndComputeNextState moves the agent from its activity to the
// following leg.
func (a *Agent) EndActivityAndComputeNextState(now float64) {
	act := a.CurrentActivity()
	if act != nil {
		act.EndTime = now
	}
	a.index++
	leg := a.CurrentLeg()
	if leg == nil {
		a.state = StateAbort
		return
	}
	leg.DepartureTime = now
	a.state = StateLeg
	a.routePos = 0
	if leg.Route != nil {
		a.currentLinkID = leg.Route.StartLinkID
	}
}

// EndLegAndComputeNextState moves the agent from its leg to the following
// activity.
func (a *Agent) EndLegAndComputeNextState(now float64) {
	if leg := a.CurrentLeg(); leg != nil && sim.IsDefined(leg.DepartureTime) {
		leg.TravelTime = now - leg.DepartureTime
	}
	a.index++
	if a.CurrentActivity() == nil {
		a.state = StateAbort
		return
	}
	a.state = StateActivity
}

// Destination returns the link a leg ends on: the route's end link, or the
// link of the following activity.
func (a *Agent) Destination() sim.LinkID {
	if leg := a.CurrentLeg(); leg != nil && leg.Route != nil {
		return leg.Route.EndLinkID
	}
	if next := a.plan.ActivityAt(a.index + 1); next != nil {
		return next.LinkID
	}
	return a.currentLinkID
}

func (a *Agent) teleportTo(linkID sim.LinkID) { a.currentLinkID = linkID }

// fullRoute returns [start, links..., end]; a route that starts and ends on
// the same link without intermediate links is just [start].
func fullRoute(r *sim.Route) []sim.LinkID {
	if r.StartLinkID == r.EndLinkID && len(r.LinkIDs) == 0 {
		return []sim.LinkID{r.StartLinkID}
	}
	out := make([]sim.LinkID, 0, len(r.LinkIDs)+2)
	out = append(out, r.StartLinkID)
	out = append(out, r.LinkIDs...)
	return append(out, r.EndLinkID)
}

func (a *Agent) route() *sim.Route {
	if leg := a.CurrentLeg(); leg != nil {
		return leg.Route
	}
	return nil
}

// CurrentLinkIndex returns the index of the current link in the route's
// intermediate links; -1 on the start link.
func (a *Agent) CurrentLinkIndex() int { return a.routePos - 1 }

// ChooseNextLinkID returns the next link of the route, or "" on the end link.
func (a *Agent) ChooseNextLinkID() sim.LinkID {
	r := a.route()
	if r == nil {
		return ""
	}
	full := fullRoute(r)
	if a.routePos+1 >= len(full) {
		return ""
	}
	return full[a.routePos+1]
}

// NotifyMoveOverNode records that the vehicle entered linkID.
func (a *Agent) NotifyMoveOverNode(linkID sim.LinkID) {
	a.routePos++
	a.currentLinkID = linkID
}

// RemainingLinkIDs returns the links after the current one, ending with the
// route's end link.
func (a *Agent) RemainingLinkIDs() []sim.LinkID {
	r := a.route()
	if r == nil {
		return nil
	}
	full := fullRoute(r)
	if a.routePos+1 >= len(full) {
		return nil
	}
	return append([]sim.LinkID(nil), full[a.routePos+1:]...)
}

// ExtendRoute appends next to the current route: the old end link becomes an
// intermediate link and next becomes the end link.
func (a *Agent) ExtendRoute(next sim.LinkID) {
	r := a.route()
	if r == nil {
		return
	}
	full := fullRoute(r)
	r.SetLinkIDs(r.StartLinkID, full[1:], next)
}

// ReplaceRemainingRoute replaces everything after the current link with path;
// the last element of path becomes the end link. An empty path ends the route
// on the current link.
func (a *Agent) ReplaceRemainingRoute(path []sim.LinkID) {
	r := a.route()
	if r == nil {
		return
	}
	full := fullRoute(r)
	if len(path) == 0 {
		if a.routePos == 0 {
			r.SetLinkIDs(r.StartLinkID, nil, r.StartLinkID)
			return
		}
		r.SetLinkIDs(r.StartLinkID, full[1:a.routePos], full[a.routePos])
		return
	}
	links := append(append([]sim.LinkID(nil), full[1:a.routePos+1]...), path[:len(path)-1]...)
	r.SetLinkIDs(r.StartLinkID, links, path[len(path)-1])
}
