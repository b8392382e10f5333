package guidance

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/internal/testutil"
	"github.com/mobsim/mobsim/sim/qsim"
	"github.com/mobsim/mobsim/sim/router"
	"github.com/mobsim/mobsim/sim/trace"
)

const incidentOnB = `
guidance:
  enabled: true
  equipment_fraction: 1
  incident_links: [b]
`

func runGuided(t *testing.T, yaml string, opts Options) *sim.EventCollector {
	t.Helper()
	sc := testutil.Scenario(t, yaml)
	events := sim.NewEventsManager()
	collector := &sim.EventCollector{}
	events.AddHandler(collector)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sc.Config.Seed))
	q, err := qsim.NewProvider(sc, events, rng, qsim.StandardModule(), Module(opts)).Get()
	require.NoError(t, err)
	require.NoError(t, q.Run(context.Background()))
	return collector
}

func enteredLinks(c *sim.EventCollector, person sim.PersonID) []sim.LinkID {
	var out []sim.LinkID
	for _, e := range c.OfType(sim.EventLinkEnter) {
		if e.PersonID == person {
			out = append(out, e.LinkID)
		}
	}
	return out
}

func TestModule_EquippedAgentAvoidsIncident(t *testing.T) {
	// GIVEN every agent equipped and an incident on link b
	analyzer := NewAnalyzer()
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// WHEN the corridor scenario runs
	c := runGuided(t, testutil.CorridorScenario+incidentOnB, Options{Analyzer: analyzer, Trace: st})

	// THEN p1 detours via E on the way to work and drives home unchanged
	assert.Equal(t, []sim.LinkID{"b2", "e2", "c", "back", "a"}, enteredLinks(c, "p1"))
	assert.Equal(t, []sim.PersonID{"p1", "p2"}, analyzer.GuidedPersons())
	assert.Equal(t, 1, analyzer.ChangedRoutes())
	assert.Greater(t, analyzer.Replans(), 1)

	summary := trace.Summarize(st)
	assert.Equal(t, analyzer.Replans(), summary.TotalReplans)
	assert.Equal(t, 1, summary.ChangedRoutes)
}

func TestModule_UnequippedAgentKeepsRoute(t *testing.T) {
	// GIVEN no agent equipped
	yaml := testutil.CorridorScenario + `
guidance:
  enabled: true
  equipment_fraction: 0
  incident_links: [b]
`
	analyzer := NewAnalyzer()

	c := runGuided(t, yaml, Options{Analyzer: analyzer})

	// THEN p1 drives through the incident link
	assert.Equal(t, []sim.LinkID{"b", "c", "back", "a"}, enteredLinks(c, "p1"))
	assert.Empty(t, analyzer.GuidedPersons())
	assert.Zero(t, analyzer.Replans())
}

func TestAgentFactory_EquipmentFraction(t *testing.T) {
	// GIVEN many persons and a fraction of 0.3
	rng := rand.New(rand.NewSource(7))
	analyzer := NewAnalyzer()
	f := NewAgentFactory(qsim.DefaultAgentFactory{}, rng, nil, analyzer, nil)
	f.EquipmentFraction = 0.3

	// WHEN agents are created
	const n = 2000
	for i := 0; i < n; i++ {
		p := &sim.Person{ID: sim.PersonID(fmt.Sprintf("p%04d", i))}
		p.Plans = []*sim.Plan{{Elements: []sim.PlanElement{sim.NewActivity("home", "a", orb.Point{})}}}
		a, err := f.CreateAgent(p)
		require.NoError(t, err)
		require.NotNil(t, a.Replanner)
	}

	// THEN roughly 30% are equipped
	share := float64(len(analyzer.GuidedPersons())) / n
	assert.InDelta(t, 0.3, share, 0.05)
}

type failingProvider struct{}

func (failingProvider) RequestRoute(*sim.Person, sim.LinkID, sim.LinkID, float64) ([]sim.LinkID, error) {
	return nil, errors.New("no route")
}

type fixedProvider []sim.LinkID

func (f fixedProvider) RequestRoute(*sim.Person, sim.LinkID, sim.LinkID, float64) ([]sim.LinkID, error) {
	return f, nil
}

func carAgent(t *testing.T) *qsim.Agent {
	t.Helper()
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	a := qsim.NewAgent(sc.Population.Get("p1"))
	a.EndActivityAndComputeNextState(25200)
	require.Equal(t, qsim.StateLeg, a.State())
	return a
}

func TestReplanner_ProviderErrorKeepsRoute(t *testing.T) {
	a := carAgent(t)
	analyzer := NewAnalyzer()
	r := &replanner{contentment: ForceReplan{}, provider: failingProvider{}, analyzer: analyzer}

	r.Replan(a, 25200)

	assert.Equal(t, []sim.LinkID{"b", "c"}, a.RemainingLinkIDs())
	assert.Zero(t, analyzer.Replans())
}

func TestReplanner_ContentAgentDoesNotAsk(t *testing.T) {
	a := carAgent(t)
	analyzer := NewAnalyzer()
	r := &replanner{contentment: PreventReplan{}, provider: fixedProvider{"b2", "e2", "c"}, analyzer: analyzer}

	r.Replan(a, 25200)

	assert.Equal(t, []sim.LinkID{"b", "c"}, a.RemainingLinkIDs())
	assert.Zero(t, analyzer.Replans())
}

func TestReplanner_ReplacesRemainingRoute(t *testing.T) {
	a := carAgent(t)
	analyzer := NewAnalyzer()
	r := &replanner{contentment: ForceReplan{}, provider: fixedProvider{"b2", "e2", "c"}, analyzer: analyzer}

	r.Replan(a, 25200)

	assert.Equal(t, []sim.LinkID{"b2", "e2", "c"}, a.RemainingLinkIDs())
	assert.Equal(t, 1, analyzer.ChangedRoutes())
}

func TestReactRouteGuidance_RequestRoute(t *testing.T) {
	sc := testutil.Scenario(t, testutil.CorridorScenario)
	tt := router.NewIncidentTravelTime(router.FreeSpeedTravelTime{})
	g := NewReactRouteGuidance(sc.Network, tt)

	links, err := g.RequestRoute(nil, "a", "c", 0)
	require.NoError(t, err)
	assert.Equal(t, []sim.LinkID{"b", "c"}, links)

	tt.AddIncidentLink("b")
	links, err = g.RequestRoute(nil, "a", "c", 0)
	require.NoError(t, err)
	assert.Equal(t, []sim.LinkID{"b2", "e2", "c"}, links)

	_, err = g.RequestRoute(nil, "a", "missing", 0)
	assert.Error(t, err)
}
