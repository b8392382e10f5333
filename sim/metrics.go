// Tracks simulation-wide trip statistics such as:
// departures, arrivals, stuck agents and travel time per mode.

package sim

import (
	"fmt"
	"io"
	"sort"
)

// TripMetrics aggregates leg statistics from departure, arrival and stuck
// events for final reporting.
type TripMetrics struct {
	Departures int
	Arrivals   int
	Stuck      int

	TravelTimeByMode map[string]float64 // Sum of completed leg travel times (seconds)
	LegsByMode       map[string]int     // Number of completed legs
	LastArrival      float64

	departures map[PersonID]float64 // person → departure time of the leg in progress
}

// NewTripMetrics creates empty trip metrics.
func NewTripMetrics() *TripMetrics {
	m := &TripMetrics{}
	m.Reset(0)
	return m
}

// HandleEvent implements EventHandler.
func (m *TripMetrics) HandleEvent(e Event) {
	switch e.Type {
	case EventDeparture:
		m.Departures++
		m.departures[e.PersonID] = e.Time
	case EventArrival:
		m.Arrivals++
		if dep, ok := m.departures[e.PersonID]; ok {
			m.TravelTimeByMode[e.LegMode] += e.Time - dep
			m.LegsByMode[e.LegMode]++
			delete(m.departures, e.PersonID)
		}
		if e.Time > m.LastArrival {
			m.LastArrival = e.Time
		}
	case EventStuck:
		m.Stuck++
		delete(m.departures, e.PersonID)
	}
}

// Reset implements Resettable.
func (m *TripMetrics) Reset(int) {
	m.Departures = 0
	m.Arrivals = 0
	m.Stuck = 0
	m.LastArrival = 0
	m.TravelTimeByMode = make(map[string]float64)
	m.LegsByMode = make(map[string]int)
	m.departures = make(map[PersonID]float64)
}

// AverageTravelTime returns the mean travel time of completed legs of a mode.
func (m *TripMetrics) AverageTravelTime(mode string) float64 {
	n := m.LegsByMode[mode]
	if n == 0 {
		return 0
	}
	return m.TravelTimeByMode[mode] / float64(n)
}

// Print writes the aggregated metrics.
func (m *TripMetrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Departures           : %d\n", m.Departures)
	fmt.Fprintf(w, "Arrivals             : %d\n", m.Arrivals)
	fmt.Fprintf(w, "Stuck agents         : %d\n", m.Stuck)
	fmt.Fprintf(w, "Last arrival         : %s\n", FormatTime(m.LastArrival))

	modes := make([]string, 0, len(m.LegsByMode))
	for mode := range m.LegsByMode {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	for _, mode := range modes {
		fmt.Fprintf(w, "Avg travel time %-5s: %.1f s (%d legs)\n", mode, m.AverageTravelTime(mode), m.LegsByMode[mode])
	}
}
