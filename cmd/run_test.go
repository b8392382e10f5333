package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/trace"
)

func loadExample(t *testing.T, name string) *sim.Config {
	t.Helper()
	cfg, err := sim.LoadConfig(filepath.Join("..", "examples", name))
	require.NoError(t, err)
	return cfg
}

func TestRunSimulation_Commute(t *testing.T) {
	// GIVEN the commute example writing events into a temp dir
	cfg := loadExample(t, "commute.yaml")
	cfg.Output.EventsFile = filepath.Join(t.TempDir(), "events.jsonl")
	sc, err := sim.BuildScenario(cfg)
	require.NoError(t, err)

	// WHEN it is run
	var out bytes.Buffer
	res, err := runSimulation(context.Background(), sc, &out, nil)
	require.NoError(t, err)

	// THEN every leg arrives
	assert.Equal(t, 8, res.Metrics.Departures)
	assert.Equal(t, 8, res.Metrics.Arrivals)
	assert.Equal(t, 0, res.Metrics.Stuck)
	assert.Equal(t, 2, res.Metrics.LegsByMode[sim.ModeCar])
	assert.Equal(t, 5, res.Metrics.LegsByMode[sim.ModeWalk])
	assert.Equal(t, 1, res.Metrics.LegsByMode[sim.ModePt])
	assert.Equal(t, 0, res.Counter.LostVehicles())

	// AND the car parked at both ends without searching
	summary := trace.Summarize(res.Trace)
	assert.Equal(t, 2, summary.ParkedVehicles)
	assert.Equal(t, 0, summary.SearchExtensions)
	assert.Equal(t, 1, summary.FacilityDistribution["office-garage"])
	assert.Equal(t, 1, summary.FacilityDistribution["home-street"])
	assert.Equal(t, []int{3, 9}, res.Scores.Legs("p1"))

	// AND the summary is printed
	assert.Contains(t, out.String(), res.RunID)
	assert.Contains(t, out.String(), "=== Simulation Metrics ===")
	assert.Contains(t, out.String(), "=== Parking Scores ===")
	assert.Contains(t, out.String(), "=== Decision Trace ===")

	// AND the events file holds one JSON object per line
	f, err := os.Open(cfg.Output.EventsFile)
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines++
	}
	assert.Equal(t, int(res.QSim.Events().Count()), lines)
}

func TestRunSimulation_PlainNetwork(t *testing.T) {
	// GIVEN the commute example with every optional module disabled
	cfg := loadExample(t, "commute.yaml")
	cfg.Counter.Enabled = false
	cfg.Guidance.Enabled = false
	cfg.Parking.Enabled = false
	cfg.Trace = string(trace.TraceLevelNone)
	cfg.Output = sim.OutputConfig{}
	sc, err := sim.BuildScenario(cfg)
	require.NoError(t, err)

	// WHEN it is run with a progress bar
	var out, progress bytes.Buffer
	res, err := runSimulation(context.Background(), sc, &out, &progress)
	require.NoError(t, err)

	// THEN the optional results are absent
	assert.Nil(t, res.Counter)
	assert.Nil(t, res.Analyzer)
	assert.Nil(t, res.Scores)
	assert.Nil(t, res.Trace)
	assert.Equal(t, 8, res.Metrics.Arrivals)
	assert.NotContains(t, out.String(), "=== Parking Scores ===")
}

func TestRunSimulation_FilteredEvents(t *testing.T) {
	// GIVEN the commute example writing departures of p1 only
	cfg := loadExample(t, "commute.yaml")
	cfg.Output = sim.OutputConfig{
		EventsFile: filepath.Join(t.TempDir(), "events.jsonl"),
		Persons:    []string{"p1"},
		EventTypes: []string{string(sim.EventDeparture)},
	}
	sc, err := sim.BuildScenario(cfg)
	require.NoError(t, err)

	// WHEN it is run
	var out bytes.Buffer
	res, err := runSimulation(context.Background(), sc, &out, nil)
	require.NoError(t, err)

	// THEN the simulation is unaffected
	assert.Equal(t, 8, res.Metrics.Departures)

	// AND the events file holds only the selected events
	f, err := os.Open(cfg.Output.EventsFile)
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		assert.Equal(t, "p1", m["person"])
		assert.Equal(t, string(sim.EventDeparture), m["type"])
		lines++
	}
	assert.Positive(t, lines)
	assert.Less(t, lines, 8)
}

func TestRunSimulation_RunIDsDiffer(t *testing.T) {
	run := func() string {
		cfg := loadExample(t, "commute.yaml")
		cfg.Output = sim.OutputConfig{}
		sc, err := sim.BuildScenario(cfg)
		require.NoError(t, err)
		var out bytes.Buffer
		res, err := runSimulation(context.Background(), sc, &out, nil)
		require.NoError(t, err)
		return res.RunID
	}
	assert.NotEqual(t, run(), run())
}

func TestApplyRunOverrides(t *testing.T) {
	// GIVEN a loaded scenario and explicitly set flags
	cfg := loadExample(t, "commute.yaml")
	require.NoError(t, runCmd.Flags().Set("end-time", "10:00:00"))
	require.NoError(t, runCmd.Flags().Set("events-out", "out.jsonl"))

	// WHEN the overrides are applied
	require.NoError(t, applyRunOverrides(runCmd, cfg))

	// THEN flags win and times are parsed again
	assert.Equal(t, 36000.0, cfg.QSim.End)
	assert.Equal(t, "out.jsonl", cfg.Output.EventsFile)
	assert.Equal(t, int64(42), cfg.Seed)

	// WHEN the end time precedes the start
	require.NoError(t, runCmd.Flags().Set("end-time", "05:00:00"))

	// THEN validation fails
	assert.Error(t, applyRunOverrides(runCmd, cfg))
}
