package parking

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/internal/testutil"
	"github.com/mobsim/mobsim/sim/qsim"
	"github.com/mobsim/mobsim/sim/trace"
)

// parkingNetwork is the corridor network with a commuter whose car legs are
// wrapped in parking activities.
const parkingNetwork = `
seed: 42
qsim:
  start_time: "06:00:00"
  end_time: "12:00:00"
network:
  nodes:
    - {id: A, x: 0, y: 0}
    - {id: B, x: 1000, y: 0}
    - {id: C, x: 2000, y: 0}
    - {id: D, x: 3000, y: 0}
    - {id: E, x: 2000, y: 1000}
  links:
    - {id: a, from: A, to: B, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: b, from: B, to: C, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: c, from: C, to: D, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: b2, from: B, to: E, length: 1500, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: e2, from: E, to: C, length: 1500, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: back, from: D, to: A, length: 3000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: dr, from: D, to: C, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: cb, from: C, to: B, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
population:
  - id: p1
    plan:
      - activity: {type: home, link: a, end_time: "07:00:00"}
      - leg: {mode: walk}
      - activity: {type: parking, link: a}
      - leg: {mode: car, route: [a, b, c]}
      - activity: {type: parking, link: c}
      - leg: {mode: walk}
      - activity: {type: work, link: c, end_time: "08:00:00"}
      - leg: {mode: walk}
      - activity: {type: parking, link: c}
      - leg: {mode: car, route: [c, back, a]}
      - activity: {type: parking, link: a}
      - leg: {mode: walk}
      - activity: {type: home, link: a}
`

const facilitiesAtEnds = `
parking:
  enabled: true
  facilities:
    - {id: fa, link: a, capacity: 1, type: street}
    - {id: fc, link: c, capacity: 1, type: street, hourly_rate: 2}
`

const facilityOffRoute = `
parking:
  enabled: true
  facilities:
    - {id: fa, link: a, capacity: 1}
    - {id: fd, link: dr, capacity: 1}
`

type parkingRun struct {
	scenario  *sim.Scenario
	collector *sim.EventCollector
	strategy  *RandomSearch
	scores    *StrategyScores
	trace     *trace.SimulationTrace
	qsim      *qsim.QSim
}

func runParking(t *testing.T, yaml string) *parkingRun {
	t.Helper()
	sc := testutil.Scenario(t, yaml)
	events := sim.NewEventsManager()
	r := &parkingRun{
		scenario:  sc,
		collector: &sim.EventCollector{},
		scores:    NewStrategyScores(),
		trace:     trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions}),
	}
	events.AddHandler(r.collector)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sc.Config.Seed))
	build := func(ctx *qsim.Context) (*RandomSearch, error) {
		s, err := NewFromContext(ctx, r.scores, r.trace)
		r.strategy = s
		return s, err
	}
	q, err := qsim.NewProvider(sc, events, rng, qsim.StandardModule(), Module(build)).Get()
	require.NoError(t, err)
	require.NoError(t, q.Run(context.Background()))
	r.qsim = q
	return r
}

func (r *parkingRun) enteredLinks(person sim.PersonID) []sim.LinkID {
	var out []sim.LinkID
	for _, e := range r.collector.OfType(sim.EventLinkEnter) {
		if e.PersonID == person {
			out = append(out, e.LinkID)
		}
	}
	return out
}

func TestRandomSearch_ParksAtEndLink(t *testing.T) {
	// GIVEN free facilities on both end links
	r := runParking(t, parkingNetwork+facilitiesAtEnds)

	// THEN p1 drives its planned routes and finishes the day
	assert.Equal(t, []sim.LinkID{"b", "c", "back", "a"}, r.enteredLinks("p1"))
	assert.Zero(t, r.qsim.Lost())

	// AND both car legs are scored without search time
	assert.Equal(t, []int{3, 9}, r.scores.Legs("p1"))
	assert.Equal(t, RandomSearchName, r.scores.Strategy("p1", 3))
	details := r.strategy.Details()
	require.Len(t, details, 2)
	for _, d := range details {
		assert.Zero(t, d.Attributes.SearchDuration)
		assert.LessOrEqual(t, d.Score, 0.0)
	}
	assert.Equal(t, sim.FacilityID("fc"), details[0].Attributes.FacilityID)
	assert.Equal(t, 3, details[0].LegIndex)

	// AND the work parking cost the hourly rate for the time parked
	parked := details[0].Attributes.ParkingDuration
	assert.Greater(t, parked, 3000.0)
	assert.InDelta(t, -parked/3600*2, details[0].Score, 1e-6)

	// AND the overnight parking lasts until the home activity ends
	last := details[1]
	assert.Equal(t, 9, last.LegIndex)
	assert.Equal(t, sim.FacilityID("fa"), last.Attributes.FacilityID)
	arrival := last.Attributes.ParkingArrivalTime
	assert.InDelta(t, 25200+sim.SecondsPerDay-arrival, last.Attributes.ParkingDuration, 1e-9)

	// AND the vehicle stays parked at home
	assert.Equal(t, 1, r.strategy.manager.Occupancy("fa"))
	assert.Zero(t, r.strategy.manager.Occupancy("fc"))
}

func TestRandomSearch_ParkingActivityDuration(t *testing.T) {
	r := runParking(t, parkingNetwork+facilitiesAtEnds)

	var starts, ends []float64
	for _, e := range r.collector.Events {
		if e.PersonID != "p1" || e.ActType != sim.ParkingActivityType {
			continue
		}
		switch e.Type {
		case sim.EventActivityStart:
			starts = append(starts, e.Time)
		case sim.EventActivityEnd:
			ends = append(ends, e.Time)
		}
	}
	// the final parking activity ends too; only the home activity never does
	require.Len(t, starts, 4)
	require.Len(t, ends, 4)
	for i := range starts {
		assert.InDelta(t, ParkingActivityDuration, ends[i]-starts[i], 1, "parking activity %d", i)
	}
}

func TestRandomSearch_SearchesBeyondEndLink(t *testing.T) {
	// GIVEN no facility on the work link but one on dr, which leads back
	r := runParking(t, parkingNetwork+facilityOffRoute)

	// THEN p1 extends its route over dr, parks there and starts home from dr
	assert.Equal(t, []sim.LinkID{"b", "c", "dr", "c", "back", "a"}, r.enteredLinks("p1"))
	plan := r.scenario.Population.Get("p1").SelectedPlan()
	assert.Equal(t, sim.LinkID("dr"), plan.ActivityAt(4).LinkID)
	assert.Equal(t, sim.LinkID("dr"), plan.ActivityAt(8).LinkID)
	assert.Equal(t, sim.LinkID("dr"), plan.LegAt(9).Route.StartLinkID)

	// AND the walk to work starts on dr and the walk back to the car ends there
	assert.Equal(t, sim.LinkID("dr"), plan.LegAt(5).Route.StartLinkID)
	assert.Equal(t, sim.LinkID("c"), plan.LegAt(5).Route.EndLinkID)
	walk := plan.LegAt(7)
	require.NotNil(t, walk.Route)
	assert.Equal(t, sim.LinkID("c"), walk.Route.StartLinkID)
	assert.Equal(t, sim.LinkID("dr"), walk.Route.EndLinkID)
	assert.InDelta(t, walk.Route.Distance/WalkSpeed, walk.TravelTime, 1e-9)

	// AND the search took about one link traversal
	details := r.strategy.Details()
	require.NotEmpty(t, details)
	assert.Equal(t, sim.FacilityID("fd"), details[0].Attributes.FacilityID)
	assert.InDelta(t, 100.0, details[0].Attributes.SearchDuration, 2)

	summary := trace.Summarize(r.trace)
	assert.Equal(t, 1, summary.SearchExtensions)
	assert.Equal(t, 2, summary.ParkedVehicles)
}

func TestRandomSearch_NextSearchLink(t *testing.T) {
	sc := testutil.Scenario(t, parkingNetwork)
	m, err := NewManager(nil)
	require.NoError(t, err)
	s := NewRandomSearch(sc.Network, m, rand.New(rand.NewSource(1)), nil, LinearScore{}, nil, nil)
	c := sc.Network.Link("c")

	// far from the destination: the out-link closest to it
	s.MaxDistance = 100
	next := s.nextSearchLink(c, sc.Network.Node("C").Coord)
	assert.Equal(t, sim.LinkID("dr"), next.ID)

	// close to the destination: any out-link of D
	s.MaxDistance = 10000
	seen := map[sim.LinkID]bool{}
	for i := 0; i < 50; i++ {
		seen[s.nextSearchLink(c, sc.Network.Node("C").Coord).ID] = true
	}
	assert.Equal(t, map[sim.LinkID]bool{"back": true, "dr": true}, seen)
}

func TestManager_ParkUnpark(t *testing.T) {
	m, err := NewManager([]*Facility{
		{ID: "g", LinkID: "x", Capacity: 1, Type: "garage"},
		{ID: "s", LinkID: "x", Capacity: 2, Type: "street"},
	})
	require.NoError(t, err)

	assert.Equal(t, sim.FacilityID("g"), m.FreeFacilityOnLink("x", "").ID)
	assert.Equal(t, sim.FacilityID("s"), m.FreeFacilityOnLink("x", "street").ID)
	assert.Nil(t, m.FreeFacilityOnLink("y", ""))

	require.NoError(t, m.Park("v1", "g"))
	assert.Error(t, m.Park("v1", "s"), "already parked")
	assert.Error(t, m.Park("v2", "g"), "full")
	assert.Error(t, m.Park("v2", "nope"))
	assert.Nil(t, m.FreeFacilityOnLink("x", "garage"))
	assert.Equal(t, sim.FacilityID("s"), m.FreeFacilityOnLink("x", "").ID)

	fid, ok := m.Unpark("v1")
	assert.True(t, ok)
	assert.Equal(t, sim.FacilityID("g"), fid)
	_, ok = m.Unpark("v1")
	assert.False(t, ok)
	assert.Zero(t, m.Occupancy("g"))

	require.NoError(t, m.Park("v3", "s"))
	m.Reset()
	assert.Zero(t, m.Occupancy("s"))
	assert.Equal(t, []sim.FacilityID{"g", "s"}, m.FacilityIDs())
}

func TestNewManager_Errors(t *testing.T) {
	_, err := NewManager([]*Facility{{ID: "f", Capacity: 1}, {ID: "f", Capacity: 1}})
	assert.ErrorContains(t, err, "already exists")

	_, err = NewManager([]*Facility{{ID: "f"}})
	assert.ErrorContains(t, err, "capacity")

	sc := testutil.Scenario(t, parkingNetwork)
	_, err = NewManagerFromConfig(sim.ParkingConfig{Facilities: []sim.ParkingFacilityConfig{{ID: "f", Link: "zz", Capacity: 1}}}, sc.Network)
	assert.ErrorContains(t, err, "unknown link")
}

func TestLinearScore(t *testing.T) {
	m, err := NewManager([]*Facility{{ID: "f", LinkID: "x", Capacity: 1, HourlyRate: 3}})
	require.NoError(t, err)
	s := LinearScore{SearchCostPerHour: 6, WalkCostPerHour: 12, Facilities: m}

	got := s.Score(Attributes{
		FacilityID:         "f",
		SearchDuration:     600,
		ToActWalkDuration:  300,
		ToParkWalkDuration: 300,
		ParkingDuration:    7200,
	})

	assert.InDelta(t, -(1.0 + 2.0 + 6.0), got, 1e-9)
}

func TestStrategyScores(t *testing.T) {
	s := NewStrategyScores()
	s.UpdateScore("p1", 3, RandomSearchName, -1)
	s.UpdateScore("p1", 9, RandomSearchName, -2)
	s.UpdateScore("p2", 3, RandomSearchName, -5)

	v, ok := s.Score("p1", 9)
	assert.True(t, ok)
	assert.Equal(t, -2.0, v)
	assert.Equal(t, -3.0, s.Total("p1"))
	assert.Equal(t, []int{3, 9}, s.Legs("p1"))
	_, ok = s.Score("p3", 1)
	assert.False(t, ok)
}
