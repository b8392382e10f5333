package qsim

import "github.com/mobsim/mobsim/sim"

// MobsimEngine advances part of the simulation state once per step.
type MobsimEngine interface {
	OnPrepareSim()
	DoSimStep(now float64)
	AfterSim()
}

// ActivityHandler takes agents that start or continue an activity.
// It returns false if it does not handle the agent.
type ActivityHandler interface {
	HandleActivity(a *Agent) bool
}

// DepartureHandler takes agents that start a leg on linkID.
// It returns false if it does not handle the leg.
type DepartureHandler interface {
	HandleDeparture(now float64, a *Agent, linkID sim.LinkID) bool
}

// AgentSource inserts agents before the simulation starts.
type AgentSource interface {
	InsertAgentsIntoMobsim(q *QSim) error
}

// InternalInterfaceAware components receive the QSim they are added to.
type InternalInterfaceAware interface {
	SetInternalInterface(q *QSim)
}

// InitializedListener is notified once all agents are placed.
type InitializedListener interface {
	NotifySimulationInitialized(q *QSim)
}

// BeforeSimStepListener is notified before the engines run a step.
type BeforeSimStepListener interface {
	NotifyBeforeSimStep(q *QSim, now float64)
}

// AfterSimStepListener is notified after the engines ran a step.
type AfterSimStepListener interface {
	NotifyAfterSimStep(q *QSim, now float64)
}

// BeforeCleanupListener is notified after the last step.
type BeforeCleanupListener interface {
	NotifyBeforeCleanup(q *QSim)
}

// NetworkView exposes per-link vehicle counts of the network engine.
type NetworkView interface {
	LinkIDs() []sim.LinkID
	// AllVehicles counts parked, waiting, queued and buffered vehicles.
	AllVehicles(id sim.LinkID) int
}

// VehicleParker places a vehicle on a link before the simulation starts.
type VehicleParker interface {
	ParkVehicle(vehicle sim.VehicleID, linkID sim.LinkID) error
}
