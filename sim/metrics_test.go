package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTripMetrics_TravelTimePerMode(t *testing.T) {
	// GIVEN a car leg of 100 s and a stuck walk leg
	m := NewTripMetrics()
	m.HandleEvent(NewDepartureEvent(0, "a", "l1", ModeCar))
	m.HandleEvent(NewDepartureEvent(5, "b", "l1", ModeWalk))
	m.HandleEvent(NewArrivalEvent(100, "a", "l2", ModeCar))
	m.HandleEvent(NewStuckEvent(200, "b", "l1", ModeWalk))

	// THEN only the completed leg counts
	assert.Equal(t, 2, m.Departures)
	assert.Equal(t, 1, m.Arrivals)
	assert.Equal(t, 1, m.Stuck)
	assert.Equal(t, 100.0, m.AverageTravelTime(ModeCar))
	assert.Equal(t, 0.0, m.AverageTravelTime(ModeWalk))
	assert.Equal(t, 100.0, m.LastArrival)

	var buf bytes.Buffer
	m.Print(&buf)
	assert.Contains(t, buf.String(), "=== Simulation Metrics ===")
	assert.Contains(t, buf.String(), "Stuck agents         : 1")
}
