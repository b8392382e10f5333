// Package counter keeps per-link vehicle counts up to date from simulation
// events, so that travel time estimators can react to the live network state
// between two simulation steps.
package counter

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/qsim"
)

// DefaultInfoPeriod is the sim-time interval between consistency checks.
const DefaultInfoPeriod = 3600.0

// VehicleCountSink receives the driving vehicle count of links whose count
// changed during the last step.
type VehicleCountSink interface {
	SetVehicleCount(id sim.LinkID, count int)
}

// LinkVehiclesCounter counts parked, waiting, queued and buffered vehicles per
// link from events. Vehicles move from queue to buffer without an event, so
// only the per-link sum is exact; the split between queue and buffer is not.
type LinkVehiclesCounter struct {
	mu sync.Mutex

	infoPeriod   int64
	networkModes map[string]bool
	view         qsim.NetworkView
	sink         VehicleCountSink

	parking map[sim.LinkID]int
	waiting map[sim.LinkID]int
	queue   map[sim.LinkID]int
	buffer  map[sim.LinkID]int

	// driving count per link changed during the current step
	countChanged map[sim.LinkID]int
	// links whose count changed during the last completed step
	changedInStep map[sim.LinkID]int
	countLastStep map[sim.LinkID]int

	initialVehicles int
	lostVehicles    int
	inconsistencies int
}

// New creates a counter publishing changes to sink, which may be nil. Only
// departures of networkModes enter the counts. The info period is rounded to
// whole seconds; non-positive periods select the default and sub-second
// periods check every second.
func New(infoPeriod float64, networkModes []string, sink VehicleCountSink) *LinkVehiclesCounter {
	if infoPeriod <= 0 {
		infoPeriod = DefaultInfoPeriod
	}
	period := int64(math.Round(infoPeriod))
	if period < 1 {
		period = 1
	}
	modes := make(map[string]bool, len(networkModes))
	for _, m := range networkModes {
		modes[m] = true
	}
	c := &LinkVehiclesCounter{
		infoPeriod:   period,
		networkModes: modes,
		sink:         sink,
	}
	c.clear()
	return c
}

func (c *LinkVehiclesCounter) clear() {
	c.parking = make(map[sim.LinkID]int)
	c.waiting = make(map[sim.LinkID]int)
	c.queue = make(map[sim.LinkID]int)
	c.buffer = make(map[sim.LinkID]int)
	c.countChanged = make(map[sim.LinkID]int)
	c.changedInStep = make(map[sim.LinkID]int)
	c.countLastStep = make(map[sim.LinkID]int)
	c.initialVehicles = 0
	c.lostVehicles = 0
}

// createInitialCounts treats every vehicle on a link as parked.
func (c *LinkVehiclesCounter) createInitialCounts() {
	c.clear()
	if c.view == nil {
		return
	}
	for _, id := range c.view.LinkIDs() {
		n := c.view.AllVehicles(id)
		c.initialVehicles += n
		c.parking[id] = n
		c.waiting[id] = 0
		c.queue[id] = 0
		c.buffer[id] = 0
		c.countChanged[id] = 0
		c.countLastStep[id] = 0
	}
}

func (c *LinkVehiclesCounter) changeDriving(id sim.LinkID, delta int) {
	count, ok := c.countChanged[id]
	if !ok {
		count = c.countLastStep[id]
	}
	c.countChanged[id] = count + delta
}

// HandleEvent implements sim.EventHandler.
func (c *LinkVehiclesCounter) HandleEvent(e sim.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := e.LinkID
	switch e.Type {
	case sim.EventLinkEnter:
		c.queue[id]++
		c.changeDriving(id, 1)
	case sim.EventLinkLeave:
		c.buffer[id]--
		c.changeDriving(id, -1)
	case sim.EventArrival:
		if !c.networkModes[e.LegMode] {
			return
		}
		c.queue[id]--
		c.parking[id]++
		c.changeDriving(id, -1)
	case sim.EventDeparture:
		if !c.networkModes[e.LegMode] {
			logrus.Debugf("counter: ignoring %s departure of %s", e.LegMode, e.PersonID)
			return
		}
		c.parking[id]--
		c.waiting[id]++
		c.changeDriving(id, 1)
	case sim.EventWait2Link:
		c.waiting[id]--
		c.buffer[id]++
	case sim.EventStuck:
		c.lostVehicles++
	}
}

// NotifySimulationInitialized implements qsim.InitializedListener.
func (c *LinkVehiclesCounter) NotifySimulationInitialized(q *qsim.QSim) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = q.NetworkView()
	c.createInitialCounts()
	c.filterChangedLinks()
	c.publish()
}

// NotifyAfterSimStep implements qsim.AfterSimStepListener.
func (c *LinkVehiclesCounter) NotifyAfterSimStep(q *qsim.QSim, now float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int64(now)%c.infoPeriod == 0 {
		c.checkVehicleCount(now, q.Lost())
	}
	c.filterChangedLinks()
	c.publish()
}

// checkVehicleCount compares the counts with the network and logs every
// mismatch.
func (c *LinkVehiclesCounter) checkVehicleCount(now float64, simLost int) {
	if simLost != c.lostVehicles {
		c.inconsistencies++
		logrus.Errorf("%s wrong lost count: expected %d, found %d", sim.FormatTime(now), simLost, c.lostVehicles)
	}
	if c.view != nil {
		for _, id := range c.view.LinkIDs() {
			expected := c.view.AllVehicles(id)
			found := c.parking[id] + c.waiting[id] + c.queue[id] + c.buffer[id]
			if expected != found {
				c.inconsistencies++
				logrus.Errorf("%s wrong vehicle count on link %s: expected %d, found %d", sim.FormatTime(now), id, expected, found)
			}
		}
	}
	total := 0
	for _, m := range []map[sim.LinkID]int{c.parking, c.waiting, c.queue, c.buffer} {
		for _, n := range m {
			total += n
		}
	}
	if diff := c.initialVehicles - c.lostVehicles - total; diff != 0 {
		c.inconsistencies++
		logrus.Errorf("%s wrong number of vehicles in the simulation, probably missed some events: difference %d", sim.FormatTime(now), diff)
	}
}

// filterChangedLinks drops links whose count equals the previous step and
// rolls the step maps forward.
func (c *LinkVehiclesCounter) filterChangedLinks() {
	for id, n := range c.countChanged {
		if last, ok := c.countLastStep[id]; ok && last == n {
			delete(c.countChanged, id)
		}
	}
	c.changedInStep = c.countChanged
	for id, n := range c.countChanged {
		c.countLastStep[id] = n
	}
	c.countChanged = make(map[sim.LinkID]int)
}

func (c *LinkVehiclesCounter) publish() {
	if c.sink == nil {
		return
	}
	for _, id := range sim.SortedLinkIDs(c.changedInStep) {
		c.sink.SetVehicleCount(id, c.changedInStep[id])
	}
}

// ChangedLinkVehiclesCounts returns the driving vehicle counts of links that
// changed during the last completed step.
func (c *LinkVehiclesCounter) ChangedLinkVehiclesCounts() map[sim.LinkID]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[sim.LinkID]int, len(c.changedInStep))
	for id, n := range c.changedInStep {
		out[id] = n
	}
	return out
}

// LinkDrivingVehiclesCount returns the waiting, queued and buffered vehicles
// on a link.
func (c *LinkVehiclesCounter) LinkDrivingVehiclesCount(id sim.LinkID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting[id] + c.queue[id] + c.buffer[id]
}

// LinkParkingCount returns the parked vehicles on a link.
func (c *LinkVehiclesCounter) LinkParkingCount(id sim.LinkID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parking[id]
}

// LostVehicles returns the number of stuck events seen.
func (c *LinkVehiclesCounter) LostVehicles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lostVehicles
}

// Inconsistencies returns how many mismatches the checks found.
func (c *LinkVehiclesCounter) Inconsistencies() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inconsistencies
}

// Reset implements sim.Resettable.
func (c *LinkVehiclesCounter) Reset(int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createInitialCounts()
	c.publish()
}

// Name is the listener name the counter binds under.
const Name = "LinkVehiclesCounter"

// Module binds a counter as a QSim listener. The counter is created once per
// QSim through build, so callers can keep a reference.
func Module(build func(ctx *qsim.Context) *LinkVehiclesCounter) qsim.Module {
	return qsim.ModuleFunc(func(b *qsim.Binder) {
		b.BindListener(Name, func(ctx *qsim.Context) (any, error) {
			return build(ctx), nil
		})
	})
}
