package qsim

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// ErrAlreadyRun is returned when Run is called twice on the same QSim.
var ErrAlreadyRun = errors.New("qsim: already run")

// statusPeriod is the sim-time interval between progress log lines.
const statusPeriod = 3600.0

// QSim runs one mobility simulation over a scenario.
type QSim struct {
	scenario *sim.Scenario
	events   *sim.EventsManager

	engines           []MobsimEngine
	activityHandlers  []ActivityHandler
	departureHandlers []DepartureHandler
	agentSources      []AgentSource

	initializedListeners []InitializedListener
	beforeStepListeners  []BeforeSimStepListener
	afterStepListeners   []AfterSimStepListener
	cleanupListeners     []BeforeCleanupListener

	agentFactory AgentFactory
	networkView  NetworkView
	parker       VehicleParker

	agents []*Agent
	now    float64
	living int
	lost   int
	ran    bool
}

// New creates a QSim without components.
func New(scenario *sim.Scenario, events *sim.EventsManager) *QSim {
	return &QSim{
		scenario:     scenario,
		events:       events,
		agentFactory: DefaultAgentFactory{},
		now:          scenario.Config.QSim.Start,
	}
}

// Scenario returns the simulated scenario.
func (q *QSim) Scenario() *sim.Scenario { return q.scenario }

// Events returns the events manager.
func (q *QSim) Events() *sim.EventsManager { return q.events }

// Now returns the current simulation time.
func (q *QSim) Now() float64 { return q.now }

// Living returns the number of agents that have not finished or aborted.
func (q *QSim) Living() int { return q.living }

// Lost returns the number of aborted agents.
func (q *QSim) Lost() int { return q.lost }

// Agents returns the inserted agents.
func (q *QSim) Agents() []*Agent { return q.agents }

// NetworkView returns the view of the network engine, or nil.
func (q *QSim) NetworkView() NetworkView { return q.networkView }

// SetAgentFactory replaces the factory used by agent sources.
func (q *QSim) SetAgentFactory(f AgentFactory) { q.agentFactory = f }

// AgentFactory returns the factory used by agent sources.
func (q *QSim) AgentFactory() AgentFactory { return q.agentFactory }

// AddMobsimEngine adds an engine. Engines run in the order they are added.
func (q *QSim) AddMobsimEngine(e MobsimEngine) {
	q.setInternalInterface(e)
	if nv, ok := e.(NetworkView); ok && q.networkView == nil {
		q.networkView = nv
	}
	if p, ok := e.(VehicleParker); ok && q.parker == nil {
		q.parker = p
	}
	q.engines = append(q.engines, e)
}

func (q *QSim) setInternalInterface(c any) {
	if aware, ok := c.(InternalInterfaceAware); ok {
		aware.SetInternalInterface(q)
	}
}

// AddActivityHandler adds an activity handler.
func (q *QSim) AddActivityHandler(h ActivityHandler) {
	q.setInternalInterface(h)
	q.activityHandlers = append(q.activityHandlers, h)
}

// AddDepartureHandler adds a departure handler.
func (q *QSim) AddDepartureHandler(h DepartureHandler) {
	q.setInternalInterface(h)
	q.departureHandlers = append(q.departureHandlers, h)
}

// AddAgentSource adds an agent source.
func (q *QSim) AddAgentSource(s AgentSource) {
	q.setInternalInterface(s)
	q.agentSources = append(q.agentSources, s)
}

// AddListener registers l for every listener interface it implements.
func (q *QSim) AddListener(l any) error {
	matched := false
	if x, ok := l.(InitializedListener); ok {
		q.initializedListeners = append(q.initializedListeners, x)
		matched = true
	}
	if x, ok := l.(BeforeSimStepListener); ok {
		q.beforeStepListeners = append(q.beforeStepListeners, x)
		matched = true
	}
	if x, ok := l.(AfterSimStepListener); ok {
		q.afterStepListeners = append(q.afterStepListeners, x)
		matched = true
	}
	if x, ok := l.(BeforeCleanupListener); ok {
		q.cleanupListeners = append(q.cleanupListeners, x)
		matched = true
	}
	if !matched {
		return fmt.Errorf("%T implements no simulation listener interface", l)
	}
	return nil
}

// InsertAgent adds an agent to the simulation.
func (q *QSim) InsertAgent(a *Agent) {
	q.agents = append(q.agents, a)
	q.living++
}

// ParkVehicle places a vehicle through the network engine.
func (q *QSim) ParkVehicle(vehicle sim.VehicleID, linkID sim.LinkID) error {
	if q.parker == nil {
		return fmt.Errorf("no engine accepts parked vehicles")
	}
	return q.parker.ParkVehicle(vehicle, linkID)
}

// Run executes the simulation from start to end time or until no agent is
// alive. A QSim can run only once.
func (q *QSim) Run(ctx context.Context) error {
	if q.ran {
		return ErrAlreadyRun
	}
	q.ran = true
	cfg := q.scenario.Config.QSim
	q.now = cfg.Start

	for _, src := range q.agentSources {
		if err := src.InsertAgentsIntoMobsim(q); err != nil {
			return fmt.Errorf("inserting agents: %w", err)
		}
	}
	for _, e := range q.engines {
		e.OnPrepareSim()
	}
	for _, a := range q.agents {
		if a.State() == StateActivity {
			a.startActivity(q.now)
		}
		q.ArrangeNextAgentState(a)
	}
	for _, l := range q.initializedListeners {
		l.NotifySimulationInitialized(q)
	}
	logrus.Infof("QSim: %d agents inserted, running %s to %s", len(q.agents), sim.FormatTime(cfg.Start), sim.FormatTime(cfg.End))

	nextStatus := cfg.Start
	for q.now <= cfg.End && q.living > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.now >= nextStatus {
			logrus.Infof("SIMULATION AT %s: living=%d lost=%d events=%d", sim.FormatTime(q.now), q.living, q.lost, q.events.Count())
			nextStatus += statusPeriod
		}
		for _, l := range q.beforeStepListeners {
			l.NotifyBeforeSimStep(q, q.now)
		}
		for _, e := range q.engines {
			e.DoSimStep(q.now)
		}
		for _, l := range q.afterStepListeners {
			l.NotifyAfterSimStep(q, q.now)
		}
		q.now += cfg.TimeStep
	}

	for _, e := range q.engines {
		e.AfterSim()
	}
	for _, l := range q.cleanupListeners {
		l.NotifyBeforeCleanup(q)
	}
	logrus.Infof("QSim finished at %s: living=%d lost=%d", sim.FormatTime(q.now), q.living, q.lost)
	return nil
}

// ArrangeNextAgentState hands the agent to the component responsible for its
// current state.
func (q *QSim) ArrangeNextAgentState(a *Agent) {
	switch a.State() {
	case StateActivity:
		for _, h := range q.activityHandlers {
			if h.HandleActivity(a) {
				return
			}
		}
		logrus.Warnf("no activity handler for agent %s", a.ID())
		a.Abort()
		q.AbortAgent(a)
	case StateLeg:
		q.departAgent(a)
	case StateFinished:
		q.AgentFinished(a)
	default:
		q.AbortAgent(a)
	}
}

func (q *QSim) departAgent(a *Agent) {
	leg := a.CurrentLeg()
	linkID := a.CurrentLinkID()
	q.events.ProcessEvent(sim.NewDepartureEvent(q.now, a.ID(), linkID, leg.Mode))
	for _, h := range q.departureHandlers {
		if h.HandleDeparture(q.now, a, linkID) {
			return
		}
	}
	logrus.Warnf("no departure handler for agent %s with mode %s", a.ID(), leg.Mode)
	a.Abort()
	q.AbortAgent(a)
}

// EndActivity ends the agent's current activity at now and arranges its next
// state.
func (q *QSim) EndActivity(a *Agent, now float64) {
	act := a.CurrentActivity()
	q.events.ProcessEvent(sim.NewActivityEndEvent(now, a.ID(), act.LinkID, act.FacilityID, act.Type))
	if a.ActivityEnd != nil {
		a.ActivityEnd.OnActivityEnd(a, now)
	}
	a.EndActivityAndComputeNextState(now)
	q.ArrangeNextAgentState(a)
}

// ArriveAgent ends the agent's current leg on its current link at now, starts
// the following activity and arranges its next state.
func (q *QSim) ArriveAgent(a *Agent, now float64) {
	leg := a.CurrentLeg()
	q.events.ProcessEvent(sim.NewArrivalEvent(now, a.ID(), a.CurrentLinkID(), leg.Mode))
	a.EndLegAndComputeNextState(now)
	if act := a.CurrentActivity(); act != nil {
		q.events.ProcessEvent(sim.NewActivityStartEvent(now, a.ID(), act.LinkID, act.FacilityID, act.Type))
		if a.ActivityStart != nil {
			a.ActivityStart.OnActivityStart(a, now)
		}
		a.startActivity(now)
	}
	q.ArrangeNextAgentState(a)
}

// AbortAgent removes the agent from the simulation and counts it as lost.
func (q *QSim) AbortAgent(a *Agent) {
	mode := ""
	if leg := a.CurrentLeg(); leg != nil {
		mode = leg.Mode
	}
	q.events.ProcessEvent(sim.NewStuckEvent(q.now, a.ID(), a.CurrentLinkID(), mode))
	q.living--
	q.lost++
}

// AgentFinished removes an agent that completed its plan.
func (q *QSim) AgentFinished(a *Agent) {
	a.state = StateFinished
	q.living--
}
