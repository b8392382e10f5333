package qsim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// vehicleLength is the storage a vehicle occupies on one lane, in meters.
const vehicleLength = 7.5

type queueVehicle struct {
	agent        *Agent
	earliestExit float64
	bufferSince  float64
}

// queueLink models a link as a waiting list of departing vehicles, a FIFO
// queue of vehicles travelling the link and a buffer of vehicles waiting to
// cross the downstream node.
type queueLink struct {
	link    *sim.Link
	waiting []*queueVehicle
	queue   []*queueVehicle
	buffer  []*queueVehicle
	parked  map[sim.VehicleID]struct{}

	flowPerStep float64
	flowAcc     float64
	flowMax     float64
	bufferCap   int
	storageCap  float64
}

func newQueueLink(l *sim.Link, cfg sim.QSimConfig) *queueLink {
	flow := l.Capacity / 3600 * cfg.TimeStep * cfg.FlowCapacityFactor
	bufferCap := math.Max(1, math.Ceil(flow))
	storage := l.Length * l.Lanes * cfg.StorageCapacityFactor / vehicleLength
	return &queueLink{
		link:        l,
		parked:      make(map[sim.VehicleID]struct{}),
		flowPerStep: flow,
		flowMax:     math.Max(flow, 1),
		flowAcc:     math.Max(flow, 1),
		bufferCap:   int(bufferCap),
		storageCap:  math.Max(storage, bufferCap),
	}
}

func (ql *queueLink) hasSpace() bool {
	return float64(len(ql.queue)+len(ql.buffer)) < ql.storageCap
}

func (ql *queueLink) allVehicles() int {
	return len(ql.parked) + len(ql.waiting) + len(ql.queue) + len(ql.buffer)
}

// LinkOccupancy is a snapshot of the vehicles on one link.
type LinkOccupancy struct {
	Parked, Waiting, Queue, Buffer int
}

// NetsimEngine moves vehicles of network modes through queue links. Within a
// step nodes move first, then links, both in network insertion order.
type NetsimEngine struct {
	q            *QSim
	net          *sim.Network
	cfg          sim.QSimConfig
	networkModes map[string]bool
	links        map[sim.LinkID]*queueLink
	linkOrder    []*queueLink
	nodes        []*sim.Node
}

// NewNetsimEngine creates a queue network over net.
func NewNetsimEngine(net *sim.Network, cfg sim.QSimConfig) *NetsimEngine {
	e := &NetsimEngine{
		net:          net,
		cfg:          cfg,
		networkModes: make(map[string]bool, len(cfg.NetworkModes)),
		links:        make(map[sim.LinkID]*queueLink, net.NumLinks()),
	}
	for _, m := range cfg.NetworkModes {
		e.networkModes[m] = true
	}
	for _, id := range net.LinkIDs() {
		ql := newQueueLink(net.Link(id), cfg)
		e.links[id] = ql
		e.linkOrder = append(e.linkOrder, ql)
	}
	for _, id := range net.NodeIDs() {
		e.nodes = append(e.nodes, net.Node(id))
	}
	return e
}

// SetInternalInterface implements InternalInterfaceAware.
func (e *NetsimEngine) SetInternalInterface(q *QSim) { e.q = q }

// IsNetworkMode reports whether legs of mode are simulated on the network.
func (e *NetsimEngine) IsNetworkMode(mode string) bool { return e.networkModes[mode] }

// LinkIDs implements NetworkView.
func (e *NetsimEngine) LinkIDs() []sim.LinkID { return e.net.LinkIDs() }

// AllVehicles implements NetworkView.
func (e *NetsimEngine) AllVehicles(id sim.LinkID) int {
	if ql := e.links[id]; ql != nil {
		return ql.allVehicles()
	}
	return 0
}

// Occupancy returns the vehicles on a link by position.
func (e *NetsimEngine) Occupancy(id sim.LinkID) LinkOccupancy {
	ql := e.links[id]
	if ql == nil {
		return LinkOccupancy{}
	}
	return LinkOccupancy{Parked: len(ql.parked), Waiting: len(ql.waiting), Queue: len(ql.queue), Buffer: len(ql.buffer)}
}

// ParkVehicle implements VehicleParker.
func (e *NetsimEngine) ParkVehicle(vehicle sim.VehicleID, linkID sim.LinkID) error {
	ql := e.links[linkID]
	if ql == nil {
		return fmt.Errorf("cannot park vehicle %s: unknown link %s", vehicle, linkID)
	}
	ql.parked[vehicle] = struct{}{}
	return nil
}

// OnPrepareSim implements MobsimEngine.
func (e *NetsimEngine) OnPrepareSim() {}

// HandleDeparture implements DepartureHandler for network modes.
func (e *NetsimEngine) HandleDeparture(now float64, a *Agent, linkID sim.LinkID) bool {
	leg := a.CurrentLeg()
	if !e.networkModes[leg.Mode] {
		return false
	}
	ql := e.links[linkID]
	if leg.Route == nil || ql == nil {
		logrus.Warnf("agent %s: %s leg without a usable route from link %q", a.ID(), leg.Mode, linkID)
		a.Abort()
		e.q.AbortAgent(a)
		return true
	}
	vid := a.VehicleID()
	if _, ok := ql.parked[vid]; ok {
		delete(ql.parked, vid)
	} else {
		logrus.Warnf("vehicle %s not found on link %s at departure", vid, linkID)
	}
	if a.Replanner != nil {
		a.Replanner.Replan(a, now)
	}
	if a.ChooseNextLinkID() == "" && e.arrivesHere(a, now) {
		e.arrive(ql, a, now)
		return true
	}
	ql.waiting = append(ql.waiting, &queueVehicle{agent: a})
	return true
}

// DoSimStep implements MobsimEngine.
func (e *NetsimEngine) DoSimStep(now float64) {
	e.moveNodes(now)
	e.moveLinks(now)
}

func (e *NetsimEngine) moveNodes(now float64) {
	for _, node := range e.nodes {
		for _, in := range node.InLinks {
			ql := e.links[in.ID]
			for len(ql.buffer) > 0 {
				if !e.moveOverNode(ql, now) {
					break
				}
			}
		}
	}
}

// moveOverNode tries to move the buffer head of from onto its next link. It
// returns false if the vehicle has to wait.
func (e *NetsimEngine) moveOverNode(from *queueLink, now float64) bool {
	v := from.buffer[0]
	a := v.agent
	next := a.ChooseNextLinkID()
	if next == "" {
		if e.arrivesHere(a, now) {
			from.buffer = from.buffer[1:]
			e.arrive(from, a, now)
			return true
		}
		next = a.ChooseNextLinkID()
	}
	to := e.links[next]
	if to == nil || to.link.From != from.link.To {
		logrus.Warnf("agent %s: link %q does not continue link %s", a.ID(), next, from.link.ID)
		from.buffer = from.buffer[1:]
		e.q.Events().ProcessEvent(sim.NewLinkLeaveEvent(now, a.ID(), from.link.ID, a.VehicleID()))
		a.Abort()
		e.q.AbortAgent(a)
		return true
	}
	if to.hasSpace() {
		e.moveToLink(from, to, now)
		return true
	}
	if now-v.bufferSince < e.cfg.StuckTime {
		return false
	}
	if e.cfg.RemoveStuckVehicles {
		logrus.Debugf("removing stuck vehicle %s from link %s", a.VehicleID(), from.link.ID)
		from.buffer = from.buffer[1:]
		e.q.Events().ProcessEvent(sim.NewLinkLeaveEvent(now, a.ID(), from.link.ID, a.VehicleID()))
		a.Abort()
		e.q.AbortAgent(a)
		return true
	}
	e.moveToLink(from, to, now)
	return true
}

func (e *NetsimEngine) moveToLink(from, to *queueLink, now float64) {
	v := from.buffer[0]
	from.buffer = from.buffer[1:]
	a := v.agent
	events := e.q.Events()
	events.ProcessEvent(sim.NewLinkLeaveEvent(now, a.ID(), from.link.ID, a.VehicleID()))
	a.NotifyMoveOverNode(to.link.ID)
	events.ProcessEvent(sim.NewLinkEnterEvent(now, a.ID(), to.link.ID, a.VehicleID()))
	v.earliestExit = now + to.link.FreeSpeedTravelTime()
	to.queue = append(to.queue, v)
}

func (e *NetsimEngine) moveLinks(now float64) {
	for _, ql := range e.linkOrder {
		ql.flowAcc = math.Min(ql.flowAcc+ql.flowPerStep, ql.flowMax)

		for len(ql.queue) > 0 {
			v := ql.queue[0]
			if v.earliestExit > now {
				break
			}
			a := v.agent
			if a.ChooseNextLinkID() == "" && e.arrivesHere(a, now) {
				ql.queue = ql.queue[1:]
				e.arrive(ql, a, now)
				continue
			}
			if len(ql.buffer) >= ql.bufferCap || ql.flowAcc < 1 {
				break
			}
			ql.queue = ql.queue[1:]
			ql.flowAcc--
			v.bufferSince = now
			ql.buffer = append(ql.buffer, v)
			if a.Replanner != nil {
				a.Replanner.Replan(a, now)
			}
		}

		for len(ql.waiting) > 0 && len(ql.buffer) < ql.bufferCap && ql.flowAcc >= 1 {
			v := ql.waiting[0]
			ql.waiting = ql.waiting[1:]
			ql.flowAcc--
			v.bufferSince = now
			ql.buffer = append(ql.buffer, v)
			e.q.Events().ProcessEvent(sim.NewWait2LinkEvent(now, v.agent.ID(), ql.link.ID, v.agent.VehicleID()))
		}
	}
}

// arrivesHere consults the agent's route end hook; it reports whether the
// agent leaves the network on its current link.
func (e *NetsimEngine) arrivesHere(a *Agent, now float64) bool {
	if a.RouteEnd == nil {
		return true
	}
	if a.RouteEnd.OnRouteEnd(a, now) {
		return true
	}
	return a.ChooseNextLinkID() == ""
}

func (e *NetsimEngine) arrive(ql *queueLink, a *Agent, now float64) {
	ql.parked[a.VehicleID()] = struct{}{}
	e.q.ArriveAgent(a, now)
}

// AfterSim implements MobsimEngine. Vehicles still in traffic are reported
// stuck.
func (e *NetsimEngine) AfterSim() {
	for _, ql := range e.linkOrder {
		for _, group := range [][]*queueVehicle{ql.waiting, ql.queue, ql.buffer} {
			for _, v := range group {
				v.agent.Abort()
				e.q.AbortAgent(v.agent)
			}
		}
		ql.waiting, ql.queue, ql.buffer = nil, nil, nil
	}
}
