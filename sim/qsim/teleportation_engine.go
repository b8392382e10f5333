package qsim

import (
	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// TeleportationEngine moves agents of any mode from departure to destination
// after the leg's travel time. Without a travel time it uses the beeline
// distance between the surrounding activities, scaled by the beeline factor
// and divided by the mode speed.
type TeleportationEngine struct {
	q             *QSim
	agents        *agentHeap
	speeds        map[string]float64
	beelineFactor float64
}

// NewTeleportationEngine creates a teleportation engine with the routing
// section's mode speeds.
func NewTeleportationEngine(cfg sim.RoutingConfig) *TeleportationEngine {
	return &TeleportationEngine{
		agents:        newAgentHeap(),
		speeds:        cfg.TeleportedModeSpeeds,
		beelineFactor: cfg.BeelineFactor,
	}
}

// SetInternalInterface implements InternalInterfaceAware.
func (e *TeleportationEngine) SetInternalInterface(q *QSim) { e.q = q }

// OnPrepareSim implements MobsimEngine.
func (e *TeleportationEngine) OnPrepareSim() {}

// HandleDeparture implements DepartureHandler.
func (e *TeleportationEngine) HandleDeparture(now float64, a *Agent, linkID sim.LinkID) bool {
	e.agents.schedule(now+e.travelTime(a), a)
	return true
}

func (e *TeleportationEngine) travelTime(a *Agent) float64 {
	leg := a.CurrentLeg()
	if sim.IsDefined(leg.TravelTime) {
		return leg.TravelTime
	}
	if leg.Route != nil && sim.IsDefined(leg.Route.TravelTime) {
		return leg.Route.TravelTime
	}
	plan := a.Plan()
	from := plan.ActivityAt(a.PlanElementIndex() - 1)
	to := plan.ActivityAt(a.PlanElementIndex() + 1)
	speed, ok := e.speeds[leg.Mode]
	if from == nil || to == nil || !ok || speed <= 0 {
		logrus.Warnf("agent %s: no travel time for %s leg, teleporting instantly", a.ID(), leg.Mode)
		return 0
	}
	return sim.Distance(from.Coord, to.Coord) * e.beelineFactor / speed
}

// DoSimStep implements MobsimEngine.
func (e *TeleportationEngine) DoSimStep(now float64) {
	for a := e.agents.popDue(now); a != nil; a = e.agents.popDue(now) {
		a.teleportTo(a.Destination())
		e.q.ArriveAgent(a, now)
	}
}

// AfterSim implements MobsimEngine. Agents still travelling are reported stuck.
func (e *TeleportationEngine) AfterSim() {
	for _, a := range e.agents.drain() {
		a.Abort()
		e.q.AbortAgent(a)
	}
}
