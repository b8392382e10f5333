package qsim

import "math"

// ActivityEngine holds agents during activities and ends each activity at its
// end time.
type ActivityEngine struct {
	q      *QSim
	agents *agentHeap
}

// NewActivityEngine creates an activity engine.
func NewActivityEngine() *ActivityEngine {
	return &ActivityEngine{agents: newAgentHeap()}
}

// SetInternalInterface implements InternalInterfaceAware.
func (e *ActivityEngine) SetInternalInterface(q *QSim) { e.q = q }

// OnPrepareSim implements MobsimEngine.
func (e *ActivityEngine) OnPrepareSim() {}

// HandleActivity implements ActivityHandler. Agents whose activity never ends
// are finished.
func (e *ActivityEngine) HandleActivity(a *Agent) bool {
	end := a.ActivityEndTime()
	if math.IsInf(end, 1) {
		e.q.AgentFinished(a)
		return true
	}
	e.agents.schedule(end, a)
	return true
}

// DoSimStep implements MobsimEngine.
func (e *ActivityEngine) DoSimStep(now float64) {
	for a := e.agents.popDue(now); a != nil; a = e.agents.popDue(now) {
		e.q.EndActivity(a, now)
	}
}

// AfterSim implements MobsimEngine. Agents still performing a finite activity
// are reported stuck.
func (e *ActivityEngine) AfterSim() {
	for _, a := range e.agents.drain() {
		a.Abort()
		e.q.AbortAgent(a)
	}
}
