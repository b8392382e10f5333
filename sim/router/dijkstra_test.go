package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/internal/testutil"
)

func freeflowDijkstra(net *sim.Network) *Dijkstra {
	tt := FreeSpeedTravelTime{}
	return NewDijkstra(net, tt, NewTimeDistanceDisutility(tt))
}

func TestDijkstra_CalcLeastCostPath_FreeFlow(t *testing.T) {
	// GIVEN the corridor network with free-flow costs
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	d := freeflowDijkstra(sc.Network)

	// WHEN routing from A to D
	path, err := d.CalcLeastCostPath(sc.Network.Node("A"), sc.Network.Node("D"), 0, nil)

	// THEN the direct corridor is chosen
	require.NoError(t, err)
	assert.Equal(t, []sim.LinkID{"a", "b", "c"}, path.LinkIDs())
	assert.InDelta(t, 300.0, path.TravelTime, 1e-9)
	assert.InDelta(t, 300.0, path.Cost, 1e-9)
	assert.InDelta(t, 3000.0, path.Distance(), 1e-9)
}

func TestDijkstra_CalcLeastCostPath_SameNode(t *testing.T) {
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	d := freeflowDijkstra(sc.Network)

	path, err := d.CalcLeastCostPath(sc.Network.Node("B"), sc.Network.Node("B"), 0, nil)

	require.NoError(t, err)
	assert.Empty(t, path.LinkIDs())
	assert.Zero(t, path.TravelTime)
}

func TestDijkstra_IncidentForcesDetour(t *testing.T) {
	// GIVEN link b blocked by an incident
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	incidents := NewIncidentTravelTime(FreeSpeedTravelTime{})
	incidents.AddIncidentLink("b")
	d := NewDijkstra(sc.Network, incidents, NewTimeDistanceDisutility(incidents))

	// WHEN routing from link a to link c
	links, path, err := d.LinkPath(sc.Network.Link("a"), sc.Network.Link("c"), 0, nil)

	// THEN the detour via E is taken
	require.NoError(t, err)
	assert.Equal(t, []sim.LinkID{"b2", "e2", "c"}, links)
	assert.InDelta(t, 300.0, path.TravelTime, 1e-9)

	// WHEN the incident is cleared
	incidents.RemoveIncidentLink("b")
	links, _, err = d.LinkPath(sc.Network.Link("a"), sc.Network.Link("c"), 0, nil)

	// THEN the corridor is used again
	require.NoError(t, err)
	assert.Equal(t, []sim.LinkID{"b", "c"}, links)
}

func TestDijkstra_LinkPath_SameLink(t *testing.T) {
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	d := freeflowDijkstra(sc.Network)

	links, path, err := d.LinkPath(sc.Network.Link("b"), sc.Network.Link("b"), 0, nil)

	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Zero(t, path.Cost)
}

func TestDijkstra_NoPath(t *testing.T) {
	// GIVEN a person who only knows links a and c
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	k := PersonKnowledge{}
	tt := KnowledgeTravelTime{Inner: FreeSpeedTravelTime{}, Knowledge: k}
	d := NewDijkstra(sc.Network, tt, KnowledgeTravelCost{Inner: NewTimeDistanceDisutility(FreeSpeedTravelTime{}), Knowledge: k})
	person := &sim.Person{ID: "x", KnownLinks: map[sim.LinkID]struct{}{"a": {}, "c": {}}}

	// WHEN routing from a to c
	_, _, err := d.LinkPath(sc.Network.Link("a"), sc.Network.Link("c"), 0, person)

	// THEN no path exists
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestDijkstra_KnowledgeRestrictsRoute(t *testing.T) {
	// GIVEN a person who knows the detour but not link b
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	k := PersonKnowledge{}
	tt := KnowledgeTravelTime{Inner: FreeSpeedTravelTime{}, Knowledge: k}
	d := NewDijkstra(sc.Network, tt, KnowledgeTravelCost{Inner: NewTimeDistanceDisutility(FreeSpeedTravelTime{}), Knowledge: k})
	person := &sim.Person{ID: "x", KnownLinks: map[sim.LinkID]struct{}{"a": {}, "b2": {}, "e2": {}, "c": {}}}

	links, _, err := d.LinkPath(sc.Network.Link("a"), sc.Network.Link("c"), 0, person)

	require.NoError(t, err)
	assert.Equal(t, []sim.LinkID{"b2", "e2", "c"}, links)

	// AND a person without knowledge takes the corridor
	links, _, err = d.LinkPath(sc.Network.Link("a"), sc.Network.Link("c"), 0, &sim.Person{ID: "y"})
	require.NoError(t, err)
	assert.Equal(t, []sim.LinkID{"b", "c"}, links)
}

func TestCurrentTravelTime_UsesLoad(t *testing.T) {
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	load := NewLinkLoad()
	tt := &CurrentTravelTime{Load: load, FlowCapacityFactor: 1}
	link := sc.Network.Link("b")

	// empty link travels at free speed
	assert.InDelta(t, 100.0, tt.LinkTravelTime(link, 0, nil), 1e-9)

	// 3600 veh/h discharges one vehicle per second
	load.SetVehicleCount("b", 250)
	assert.InDelta(t, 250.0, tt.LinkTravelTime(link, 0, nil), 1e-9)
	assert.Equal(t, 250, load.VehicleCount("b"))

	load.SetVehicleCount("b", 0)
	assert.Zero(t, load.VehicleCount("b"))
	assert.InDelta(t, 100.0, tt.LinkTravelTime(link, 0, nil), 1e-9)
}

func TestTimeDistanceDisutility(t *testing.T) {
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	d := &TimeDistanceDisutility{TravelTime: FreeSpeedTravelTime{}, CostPerSecond: 2, CostPerMeter: 0.5}

	assert.InDelta(t, 2*100.0+0.5*1000, d.LinkTravelDisutility(sc.Network.Link("a"), 0, nil), 1e-9)
}
