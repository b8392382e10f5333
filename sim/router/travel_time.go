package router

import (
	"math"
	"sync"

	"github.com/mobsim/mobsim/sim"
)

// TravelTime estimates the time to traverse a link entered at time.
type TravelTime interface {
	LinkTravelTime(link *sim.Link, time float64, person *sim.Person) float64
}

// TravelDisutility is the generalized cost of traversing a link.
type TravelDisutility interface {
	LinkTravelDisutility(link *sim.Link, time float64, person *sim.Person) float64
}

// Impassable reports whether a cost or travel time blocks a link.
func Impassable(v float64) bool {
	return math.IsInf(v, 1) || math.IsNaN(v) || v >= math.MaxFloat64
}

// FreeSpeedTravelTime is the traversal time at free speed.
type FreeSpeedTravelTime struct{}

// LinkTravelTime implements TravelTime.
func (FreeSpeedTravelTime) LinkTravelTime(link *sim.Link, _ float64, _ *sim.Person) float64 {
	return link.FreeSpeedTravelTime()
}

// TimeDistanceDisutility weighs travel time and distance.
type TimeDistanceDisutility struct {
	TravelTime    TravelTime
	CostPerSecond float64
	CostPerMeter  float64
}

// NewTimeDistanceDisutility returns a disutility equal to travel time.
func NewTimeDistanceDisutility(tt TravelTime) *TimeDistanceDisutility {
	return &TimeDistanceDisutility{TravelTime: tt, CostPerSecond: 1}
}

// LinkTravelDisutility implements TravelDisutility.
func (d *TimeDistanceDisutility) LinkTravelDisutility(link *sim.Link, time float64, person *sim.Person) float64 {
	tt := d.TravelTime.LinkTravelTime(link, time, person)
	if Impassable(tt) {
		return math.Inf(1)
	}
	return tt*d.CostPerSecond + link.Length*d.CostPerMeter
}

// LinkLoad stores the number of vehicles driving on each link. Safe for
// concurrent use.
type LinkLoad struct {
	mu     sync.RWMutex
	counts map[sim.LinkID]int
}

// NewLinkLoad creates an empty link load.
func NewLinkLoad() *LinkLoad {
	return &LinkLoad{counts: make(map[sim.LinkID]int)}
}

// SetVehicleCount records the driving vehicles on a link.
func (l *LinkLoad) SetVehicleCount(id sim.LinkID, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if count == 0 {
		delete(l.counts, id)
		return
	}
	l.counts[id] = count
}

// VehicleCount returns the driving vehicles on a link.
func (l *LinkLoad) VehicleCount(id sim.LinkID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[id]
}

// CurrentTravelTime estimates travel time from the live vehicle count: the
// larger of the free-flow time and the time the link needs to discharge the
// vehicles on it. Links without counts travel at free speed.
type CurrentTravelTime struct {
	Load               *LinkLoad
	FlowCapacityFactor float64
}

// LinkTravelTime implements TravelTime.
func (c *CurrentTravelTime) LinkTravelTime(link *sim.Link, _ float64, _ *sim.Person) float64 {
	free := link.FreeSpeedTravelTime()
	n := c.Load.VehicleCount(link.ID)
	if n <= 0 {
		return free
	}
	factor := c.FlowCapacityFactor
	if factor <= 0 {
		factor = 1
	}
	discharge := float64(n) / (link.Capacity * factor / 3600)
	return math.Max(free, discharge)
}

// IncidentTravelTime reports incident links as impassable and delegates all
// other links to the mean travel times.
type IncidentTravelTime struct {
	mu        sync.RWMutex
	mean      TravelTime
	incidents map[sim.LinkID]struct{}
}

// NewIncidentTravelTime wraps mean.
func NewIncidentTravelTime(mean TravelTime) *IncidentTravelTime {
	return &IncidentTravelTime{mean: mean, incidents: make(map[sim.LinkID]struct{})}
}

// SetMeanTravelTimes replaces the wrapped travel times.
func (t *IncidentTravelTime) SetMeanTravelTimes(mean TravelTime) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mean = mean
}

// AddIncidentLink marks a link as blocked.
func (t *IncidentTravelTime) AddIncidentLink(id sim.LinkID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.incidents[id] = struct{}{}
}

// RemoveIncidentLink clears an incident.
func (t *IncidentTravelTime) RemoveIncidentLink(id sim.LinkID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.incidents, id)
}

// LinkTravelTime implements TravelTime.
func (t *IncidentTravelTime) LinkTravelTime(link *sim.Link, time float64, person *sim.Person) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, blocked := t.incidents[link.ID]; blocked {
		return math.MaxFloat64
	}
	return t.mean.LinkTravelTime(link, time, person)
}
