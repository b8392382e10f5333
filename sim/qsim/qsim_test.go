package qsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/internal/testutil"
)

// newStandardQSim builds a QSim with the standard module and an event
// collector.
func newStandardQSim(t *testing.T, sc *sim.Scenario, modules ...Module) (*QSim, *sim.EventCollector) {
	t.Helper()
	events := sim.NewEventsManager()
	collector := &sim.EventCollector{}
	events.AddHandler(collector)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sc.Config.Seed))
	q, err := NewProvider(sc, events, rng, append([]Module{StandardModule()}, modules...)...).Get()
	require.NoError(t, err)
	return q, collector
}

func eventsOf(c *sim.EventCollector, person sim.PersonID) []sim.Event {
	var out []sim.Event
	for _, e := range c.Events {
		if e.PersonID == person {
			out = append(out, e)
		}
	}
	return out
}

func TestQSim_Corridor_CarLegTimeline(t *testing.T) {
	// GIVEN the corridor scenario
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	q, c := newStandardQSim(t, sc)

	// WHEN the simulation runs
	require.NoError(t, q.Run(context.Background()))

	// THEN p1 drives a-b-c at free speed and back via d-a
	var got []string
	var times []float64
	for _, e := range eventsOf(c, "p1") {
		got = append(got, string(e.Type)+":"+string(e.LinkID))
		times = append(times, e.Time)
	}
	assert.Equal(t, []string{
		"actend:a", "departure:a", "wait2link:a",
		"left link:a", "entered link:b", "left link:b", "entered link:c",
		"arrival:c", "actstart:c",
		"actend:c", "departure:c", "wait2link:c",
		"left link:c", "entered link:back", "left link:back", "entered link:a",
		"arrival:a", "actstart:a",
	}, got)
	assert.Equal(t, 25200.0, times[0])
	assert.Equal(t, 25201.0, times[3], "vehicle crosses node B one step after entering traffic")
	assert.Equal(t, 25302.0, times[5])
	assert.Equal(t, 25402.0, times[7], "arrival after free-flow time of link c")
	assert.Equal(t, 28800.0, times[9])
	assert.Equal(t, 29202.0, times[16])

	assert.Equal(t, 0, q.Living())
	assert.Equal(t, 0, q.Lost())
}

func TestQSim_Corridor_WalkLegTeleported(t *testing.T) {
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	q, c := newStandardQSim(t, sc)
	require.NoError(t, q.Run(context.Background()))

	evs := eventsOf(c, "p2")
	require.Len(t, evs, 4)
	assert.Equal(t, sim.EventDeparture, evs[1].Type)
	assert.Equal(t, sim.ModeWalk, evs[1].LegMode)
	assert.Equal(t, sim.EventArrival, evs[2].Type)
	assert.Equal(t, sim.LinkID("c"), evs[2].LinkID)
	// 2000 m beeline × 1.3 at 3 km/h
	assert.InDelta(t, 25200.0+3120.0, evs[2].Time, 1.0)
}

func TestQSim_EndTime_ReportsStuckAgents(t *testing.T) {
	// GIVEN a simulation ending shortly after both agents departed
	cfg := testutil.Config(t, testutil.CorridorScenario)
	cfg.QSim.End = 25260
	sc, err := sim.BuildScenario(cfg)
	require.NoError(t, err)
	q, c := newStandardQSim(t, sc)

	// WHEN it runs
	require.NoError(t, q.Run(context.Background()))

	// THEN both travelling agents are reported stuck
	stuck := c.OfType(sim.EventStuck)
	require.Len(t, stuck, 2)
	assert.Equal(t, 2, q.Lost())
	assert.Equal(t, 0, q.Living())
}

func TestQSim_RunTwice_ReturnsErrAlreadyRun(t *testing.T) {
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	q, _ := newStandardQSim(t, sc)
	require.NoError(t, q.Run(context.Background()))
	assert.ErrorIs(t, q.Run(context.Background()), ErrAlreadyRun)
}

func TestQSim_CancelledContext(t *testing.T) {
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	q, _ := newStandardQSim(t, sc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Run(ctx), context.Canceled)
}

const stuckScenario = `
qsim:
  start_time: "06:00:00"
  end_time: "10:00:00"
  remove_stuck_vehicles: %v
network:
  nodes:
    - {id: A, x: 0, y: 0}
    - {id: B, x: 1000, y: 0}
    - {id: C, x: 2000, y: 0}
    - {id: D, x: 2007.5, y: 0}
  links:
    - {id: a, from: A, to: B, length: 1000, freespeed: 10, capacity: 3600}
    - {id: b, from: B, to: C, length: 1000, freespeed: 10, capacity: 3600}
    - {id: c, from: C, to: D, length: 7.5, freespeed: 0.01, capacity: 3600}
population:
  - id: p1
    plan:
      - activity: {type: home, link: a, end_time: "07:00:00"}
      - leg: {mode: car, route: [a, b, c]}
      - activity: {type: work, link: c}
  - id: p3
    plan:
      - activity: {type: home, link: a, end_time: "07:00:00"}
      - leg: {mode: car, route: [a, b, c]}
      - activity: {type: work, link: c}
`

func TestNetsim_StuckVehicleRemoved(t *testing.T) {
	// GIVEN a one-vehicle link c occupied by p1 for 750 s
	sc := testutil.Scenario(t, fmtScenario(stuckScenario, true))
	q, c := newStandardQSim(t, sc)

	// WHEN p3 waits at the end of link b longer than the stuck time
	require.NoError(t, q.Run(context.Background()))

	// THEN p3 leaves link b as stuck and p1 still arrives
	stuck := c.OfType(sim.EventStuck)
	require.Len(t, stuck, 1)
	assert.Equal(t, sim.PersonID("p3"), stuck[0].PersonID)
	assert.Equal(t, sim.LinkID("b"), stuck[0].LinkID)
	assert.Equal(t, 25312.0, stuck[0].Time)
	arrivals := c.OfType(sim.EventArrival)
	require.Len(t, arrivals, 1)
	assert.Equal(t, sim.PersonID("p1"), arrivals[0].PersonID)
	assert.Equal(t, 1, q.Lost())
}

func TestNetsim_StuckVehiclePushedThrough(t *testing.T) {
	sc := testutil.Scenario(t, fmtScenario(stuckScenario, false))
	q, c := newStandardQSim(t, sc)
	require.NoError(t, q.Run(context.Background()))

	assert.Empty(t, c.OfType(sim.EventStuck))
	assert.Len(t, c.OfType(sim.EventArrival), 2)
	assert.Equal(t, 0, q.Lost())
}
