package parking

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/qsim"
	"github.com/mobsim/mobsim/sim/trace"
)

const (
	// RandomSearchName is the strategy name recorded with scores.
	RandomSearchName = "RandomParkingSearch"

	// ParkingActivityDuration is how long parking and unparking takes.
	ParkingActivityDuration = 120.0
	// WalkSpeed between the parking and the activity, in m/s.
	WalkSpeed = 3.0 / 3.6
)

// RouteLinker reroutes car legs after the parking link changed.
type RouteLinker interface {
	RouteLinks(person *sim.Person, from, to sim.LinkID, time float64) (*sim.Route, error)
}

// RandomSearch parks at the end link of a car leg if a facility there is
// free, and otherwise keeps driving over random out-links. Once the vehicle is
// farther than MaxDistance from the destination, it takes the out-link leading
// closest to the destination instead.
type RandomSearch struct {
	net       *sim.Network
	manager   *Manager
	rng       *rand.Rand
	router    RouteLinker
	evaluator ScoreEvaluator
	scores    ScoreSink
	trace     *trace.SimulationTrace

	MaxDistance float64
	ParkingType string

	startSearchTime map[sim.PersonID]float64
	attributes      map[sim.PersonID]*Attributes
	personType      map[sim.PersonID]string
	details         []EventDetails
}

// NewRandomSearch creates the strategy. router, scores and st may be nil.
func NewRandomSearch(net *sim.Network, manager *Manager, rng *rand.Rand, router RouteLinker, evaluator ScoreEvaluator, scores ScoreSink, st *trace.SimulationTrace) *RandomSearch {
	s := &RandomSearch{
		net:         net,
		manager:     manager,
		rng:         rng,
		router:      router,
		evaluator:   evaluator,
		scores:      scores,
		trace:       st,
		MaxDistance: 300,
	}
	s.ResetForNewIteration()
	return s
}

// Name returns the strategy name.
func (s *RandomSearch) Name() string { return RandomSearchName }

// ResetForNewIteration forgets all per-person search state.
func (s *RandomSearch) ResetForNewIteration() {
	s.startSearchTime = make(map[sim.PersonID]float64)
	s.attributes = make(map[sim.PersonID]*Attributes)
	s.personType = make(map[sim.PersonID]string)
	s.details = nil
}

// UseParkingType restricts a person to facilities of one type, overriding
// ParkingType.
func (s *RandomSearch) UseParkingType(person sim.PersonID, parkingType string) {
	s.personType[person] = parkingType
}

// Details returns the scored parking events.
func (s *RandomSearch) Details() []EventDetails { return s.details }

func (s *RandomSearch) attributesFor(person sim.PersonID) *Attributes {
	attrs, ok := s.attributes[person]
	if !ok {
		attrs = &Attributes{PersonID: person}
		s.attributes[person] = attrs
	}
	return attrs
}

// OnRouteEnd implements qsim.RouteEndHook.
func (s *RandomSearch) OnRouteEnd(a *qsim.Agent, now float64) bool {
	leg := a.CurrentLeg()
	if leg == nil || leg.Mode != sim.ModeCar || leg.Route == nil {
		return true
	}
	id := a.ID()
	endLink := s.net.Link(leg.Route.EndLinkID)
	if endLink == nil {
		return true
	}

	filterType := s.ParkingType
	if t, ok := s.personType[id]; ok {
		filterType = t
	}
	facility := s.manager.FreeFacilityOnLink(endLink.ID, filterType)
	if _, searching := s.startSearchTime[id]; !searching {
		s.startSearchTime[id] = now
	}
	dest := s.destinationCoord(a)

	if facility == nil {
		next := s.nextSearchLink(endLink, dest)
		if next == nil {
			logrus.Warnf("Parking search of %s ends at dead end %s", id, endLink.ID)
			delete(s.startSearchTime, id)
			return true
		}
		logrus.Debugf("No parking for %s on %s, continuing on %s", id, endLink.ID, next.ID)
		s.trace.RecordParking(trace.ParkingRecord{
			PersonID: string(id),
			Time:     now,
			LinkID:   string(endLink.ID),
			Action:   trace.ParkingActionExtend,
			Distance: sim.Distance(endLink.To.Coord, dest),
		})
		a.ExtendRoute(next.ID)
		return false
	}

	s.park(a, endLink, facility, now, dest)
	return true
}

// destinationCoord is the location of the activity after the parking activity
// and walk leg that follow the current leg.
func (s *RandomSearch) destinationCoord(a *qsim.Agent) orb.Point {
	plan, i := a.Plan(), a.PlanElementIndex()
	if act := plan.ActivityAt(i + 3); act != nil {
		return act.Coord
	}
	if act := plan.ActivityAt(i + 1); act != nil {
		return act.Coord
	}
	return s.net.Link(a.CurrentLinkID()).Coord()
}

func (s *RandomSearch) nextSearchLink(link *sim.Link, dest orb.Point) *sim.Link {
	out := link.To.OutLinks
	if len(out) == 0 {
		return nil
	}
	if sim.Distance(link.To.Coord, dest) <= s.MaxDistance {
		return out[s.rng.Intn(len(out))]
	}
	var best *sim.Link
	bestDist := math.Inf(1)
	for _, l := range out {
		if d := sim.Distance(l.To.Coord, dest); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

func (s *RandomSearch) park(a *qsim.Agent, parkingLink *sim.Link, facility *Facility, now float64, dest orb.Point) {
	id := a.ID()
	plan, i := a.Plan(), a.PlanElementIndex()
	attrs := s.attributesFor(id)

	if parkingAct := plan.ActivityAt(i + 1); parkingAct != nil && parkingAct.Type == sim.ParkingActivityType {
		parkingAct.LinkID = parkingLink.ID
		parkingAct.Coord = parkingLink.Coord()
	}
	if walk, act := plan.LegAt(i+2), plan.ActivityAt(i+3); walk != nil && act != nil {
		dist := sim.Distance(parkingLink.Coord(), dest)
		d := dist / WalkSpeed
		walk.TravelTime = d
		if walk.Route == nil {
			walk.Route = &sim.Route{EndLinkID: act.LinkID}
		}
		walk.Route.StartLinkID = parkingLink.ID
		walk.Route.Distance = dist
		walk.Route.TravelTime = d
		attrs.ToActWalkDuration = d
		attrs.ToParkWalkDuration = d
	}
	attrs.ParkingArrivalTime = now

	if k := plan.NextCarLegIndex(i); k != -1 {
		s.moveNextCarLeg(a, k, parkingLink, plan.ActivityAt(i+3))
	}

	searchDuration := sim.IntervalDuration(s.startSearchTime[id], now)
	if searchDuration == sim.SecondsPerDay {
		searchDuration = 0
	}
	attrs.SearchDuration = searchDuration
	delete(s.startSearchTime, id)

	if err := s.manager.Park(a.VehicleID(), facility.ID); err != nil {
		logrus.Warnf("Parking %s at %s: %v", id, facility.ID, err)
	}
	attrs.FacilityID = facility.ID
	s.trace.RecordParking(trace.ParkingRecord{
		PersonID:       string(id),
		Time:           now,
		LinkID:         string(parkingLink.ID),
		Action:         trace.ParkingActionPark,
		FacilityID:     string(facility.ID),
		SearchDuration: searchDuration,
		Distance:       sim.Distance(parkingLink.To.Coord, dest),
	})
	logrus.Debugf("%s parked at %s after %.0fs search", id, facility.ID, searchDuration)

	if i == plan.LastCarLegIndex() {
		s.scoreLastParking(a, now)
	}
}

// moveNextCarLeg moves the walk to the parking, the parking activity and the
// start of car leg k to the parking link.
func (s *RandomSearch) moveNextCarLeg(a *qsim.Agent, k int, parkingLink *sim.Link, nextAct *sim.Activity) {
	plan := a.Plan()
	if before := plan.ActivityAt(k - 3); before != nil {
		if walk := plan.LegAt(k - 2); walk != nil {
			dist := sim.Distance(parkingLink.Coord(), before.Coord)
			walk.TravelTime = dist / WalkSpeed
			if walk.Route == nil {
				walk.Route = &sim.Route{StartLinkID: before.LinkID}
			}
			walk.Route.EndLinkID = parkingLink.ID
			walk.Route.Distance = dist
			walk.Route.TravelTime = walk.TravelTime
		}
	}
	if parkingAct := plan.ActivityAt(k - 1); parkingAct != nil {
		parkingAct.LinkID = parkingLink.ID
		parkingAct.Coord = parkingLink.Coord()
	}
	if s.router == nil {
		return
	}
	carLeg := plan.LegAt(k)
	end := plan.ActivityAt(k + 1)
	if end == nil {
		return
	}
	to := end.LinkID
	if carLeg.Route != nil {
		to = carLeg.Route.EndLinkID
	}
	departure := sim.UndefinedTime
	if nextAct != nil {
		departure = nextAct.EndTime
	}
	if !sim.IsDefined(departure) {
		departure = 0
	}
	route, err := s.router.RouteLinks(a.Person(), parkingLink.ID, to, departure)
	if err != nil {
		logrus.Warnf("Rerouting car leg %d of %s from %s: %v", k, a.ID(), parkingLink.ID, err)
		return
	}
	carLeg.Route = route
}

// scoreLastParking scores the overnight parking of the last car leg, which
// lasts until the first activity of the day ends.
func (s *RandomSearch) scoreLastParking(a *qsim.Agent, now float64) {
	plan := a.Plan()
	first := plan.ActivityAt(plan.FirstCarLegIndex() - 3)
	if first == nil {
		first = plan.ActivityAt(0)
	}
	attrs := s.attributesFor(a.ID())
	if fid, ok := s.manager.CurrentFacility(a.VehicleID()); ok {
		attrs.FacilityID = fid
	}
	attrs.ParkingDuration = sim.IntervalDuration(now, first.EndTime)
	attrs.ActivityDuration = attrs.ParkingDuration
	s.score(a.ID(), a.PlanElementIndex(), attrs)
}

func (s *RandomSearch) score(person sim.PersonID, legIndex int, attrs *Attributes) {
	score := s.evaluator.Score(*attrs)
	if s.scores != nil {
		s.scores.UpdateScore(person, legIndex, s.Name(), score)
	}
	s.details = append(s.details, EventDetails{LegIndex: legIndex, Score: score, Strategy: s.Name(), Attributes: *attrs})
	delete(s.attributes, person)
}

// OnActivityStart implements qsim.ActivityStartHook.
func (s *RandomSearch) OnActivityStart(a *qsim.Agent, now float64) {
	if act := a.CurrentActivity(); act != nil && act.Type == sim.ParkingActivityType {
		act.EndTime = now + ParkingActivityDuration
	}
}

// OnActivityEnd implements qsim.ActivityEndHook. Leaving a parking activity
// by car frees the facility and scores the car leg that parked there.
func (s *RandomSearch) OnActivityEnd(a *qsim.Agent, now float64) {
	act := a.CurrentActivity()
	if act == nil || act.Type != sim.ParkingActivityType {
		return
	}
	plan, i := a.Plan(), a.PlanElementIndex()
	next := plan.LegAt(i + 1)
	if next == nil || next.Mode != sim.ModeCar {
		return
	}
	fid, parked := s.manager.Unpark(a.VehicleID())
	prev := plan.PreviousCarLegIndex(i)
	if !parked || prev == -1 {
		return
	}
	attrs := s.attributesFor(a.ID())
	attrs.FacilityID = fid
	attrs.ParkingDuration = sim.IntervalDuration(attrs.ParkingArrivalTime, now)
	attrs.ActivityDuration = attrs.ParkingDuration
	s.score(a.ID(), prev, attrs)
}
