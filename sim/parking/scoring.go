package parking

import (
	"sort"
	"sync"

	"github.com/mobsim/mobsim/sim"
)

// Attributes describe one parking event of a person for scoring.
type Attributes struct {
	PersonID           sim.PersonID
	FacilityID         sim.FacilityID
	ParkingArrivalTime float64
	ParkingDuration    float64
	ActivityDuration   float64
	SearchDuration     float64
	ToActWalkDuration  float64
	ToParkWalkDuration float64
}

// ScoreEvaluator scores a parking event. Higher is better.
type ScoreEvaluator interface {
	Score(attrs Attributes) float64
}

// LinearScore charges search time, walking time and the facility's hourly
// rate linearly.
type LinearScore struct {
	SearchCostPerHour float64
	WalkCostPerHour   float64
	Facilities        *Manager
}

// Score implements ScoreEvaluator.
func (s LinearScore) Score(attrs Attributes) float64 {
	cost := attrs.SearchDuration / 3600 * s.SearchCostPerHour
	cost += (attrs.ToActWalkDuration + attrs.ToParkWalkDuration) / 3600 * s.WalkCostPerHour
	if s.Facilities != nil {
		if f := s.Facilities.Facility(attrs.FacilityID); f != nil {
			cost += attrs.ParkingDuration / 3600 * f.HourlyRate
		}
	}
	return -cost
}

// ScoreSink receives the parking score of a car leg.
type ScoreSink interface {
	UpdateScore(person sim.PersonID, legIndex int, strategy string, score float64)
}

// EventDetails records one scored parking event.
type EventDetails struct {
	LegIndex   int
	Score      float64
	Strategy   string
	Attributes Attributes
}

type legKey struct {
	person   sim.PersonID
	legIndex int
}

// StrategyScores keeps the latest score per person and car leg.
type StrategyScores struct {
	mu         sync.Mutex
	scores     map[legKey]float64
	strategies map[legKey]string
}

// NewStrategyScores creates an empty score table.
func NewStrategyScores() *StrategyScores {
	return &StrategyScores{scores: make(map[legKey]float64), strategies: make(map[legKey]string)}
}

// UpdateScore implements ScoreSink.
func (s *StrategyScores) UpdateScore(person sim.PersonID, legIndex int, strategy string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := legKey{person, legIndex}
	s.scores[k] = score
	s.strategies[k] = strategy
}

// Score returns the score of a car leg.
func (s *StrategyScores) Score(person sim.PersonID, legIndex int) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.scores[legKey{person, legIndex}]
	return v, ok
}

// Strategy returns the strategy that produced the score of a car leg.
func (s *StrategyScores) Strategy(person sim.PersonID, legIndex int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategies[legKey{person, legIndex}]
}

// Total sums all scores of a person.
func (s *StrategyScores) Total(person sim.PersonID) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for k, v := range s.scores {
		if k.person == person {
			total += v
		}
	}
	return total
}

// Legs returns the scored car leg indices of a person, ascending.
func (s *StrategyScores) Legs(person sim.PersonID) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var legs []int
	for k := range s.scores {
		if k.person == person {
			legs = append(legs, k.legIndex)
		}
	}
	sort.Ints(legs)
	return legs
}
