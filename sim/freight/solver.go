package freight

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
)

// IterationInfo describes one ruin-and-recreate iteration.
type IterationInfo struct {
	Iteration     int
	Warmup        bool
	CandidateCost float64
	CurrentCost   float64
	BestCost      float64
	Threshold     float64
	Accepted      bool
}

// Listener observes the search.
type Listener interface {
	IterationEnded(info IterationInfo)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(info IterationInfo)

// IterationEnded implements Listener.
func (f ListenerFunc) IterationEnded(info IterationInfo) { f(info) }

// Solver is a ruin-and-recreate search with threshold acceptance.
type Solver struct {
	shipments  []*Shipment
	vehicles   []*CarrierVehicle
	costs      Costs
	constraint Constraint
	rng        *rand.Rand
	listeners  []Listener

	Iterations       int
	WarmupIterations int
	// RuinShare is the share of shipments removed per iteration.
	RuinShare float64
}

// NewSolver creates a solver. Shipments and vehicles are processed in id order.
func NewSolver(shipments []*Shipment, vehicles []*CarrierVehicle, costs Costs, constraint Constraint, rng *rand.Rand) *Solver {
	s := &Solver{
		shipments:        append([]*Shipment(nil), shipments...),
		vehicles:         append([]*CarrierVehicle(nil), vehicles...),
		costs:            costs,
		constraint:       constraint,
		rng:              rng,
		Iterations:       200,
		WarmupIterations: 20,
		RuinShare:        0.3,
	}
	sort.Slice(s.shipments, func(i, j int) bool { return s.shipments[i].ID < s.shipments[j].ID })
	sort.Slice(s.vehicles, func(i, j int) bool { return s.vehicles[i].ID < s.vehicles[j].ID })
	return s
}

// AddListener registers a listener.
func (s *Solver) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// InitialSolution inserts every shipment at its cheapest feasible position.
func (s *Solver) InitialSolution() *Solution {
	sol := &Solution{Tours: make([]*Tour, len(s.vehicles))}
	for i, v := range s.vehicles {
		sol.Tours[i] = &Tour{Vehicle: v}
		sol.Tours[i].Schedule(s.costs)
	}
	s.recreate(sol, s.shipments)
	return sol
}

// Solve runs warm-up and search iterations and returns the best solution.
func (s *Solver) Solve(ctx context.Context) (*Solution, error) {
	current := s.InitialSolution()
	best := current.clone()
	logrus.Infof("Freight: initial solution cost %.1f, %d unassigned", current.Cost(), len(current.Unassigned))

	threshold, err := s.warmup(ctx, current.clone())
	if err != nil {
		return nil, err
	}
	logrus.Debugf("Freight: initial threshold %.3f", threshold)

	halfLife := math.Max(1, 0.1*float64(s.Iterations))
	for i := 0; i < s.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := threshold * math.Pow(0.5, float64(i)/halfLife)
		candidate := s.ruinAndRecreate(current)
		accepted := candidate.Cost() < current.Cost()+t
		if accepted {
			current = candidate
			if current.Cost() < best.Cost() {
				best = current.clone()
			}
		}
		s.notify(IterationInfo{
			Iteration:     i,
			CandidateCost: candidate.Cost(),
			CurrentCost:   current.Cost(),
			BestCost:      best.Cost(),
			Threshold:     t,
			Accepted:      accepted,
		})
	}
	logrus.Infof("Freight: best solution cost %.1f with %d tours, %d unassigned", best.Cost(), len(best.UsedTours()), len(best.Unassigned))
	return best, nil
}

// warmup performs a random walk and returns the standard deviation of the
// visited solution costs as the initial acceptance threshold.
func (s *Solver) warmup(ctx context.Context, sol *Solution) (float64, error) {
	if s.WarmupIterations <= 0 {
		return 0, nil
	}
	costs := make([]float64, 0, s.WarmupIterations)
	for i := 0; i < s.WarmupIterations; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		sol = s.ruinAndRecreate(sol)
		costs = append(costs, sol.Cost())
		s.notify(IterationInfo{Iteration: i, Warmup: true, CandidateCost: sol.Cost(), CurrentCost: sol.Cost(), Accepted: true})
	}
	mean := 0.0
	for _, c := range costs {
		mean += c
	}
	mean /= float64(len(costs))
	variance := 0.0
	for _, c := range costs {
		variance += (c - mean) * (c - mean)
	}
	return math.Sqrt(variance / float64(len(costs))), nil
}

func (s *Solver) notify(info IterationInfo) {
	for _, l := range s.listeners {
		l.IterationEnded(info)
	}
}

func (s *Solver) ruinAndRecreate(sol *Solution) *Solution {
	candidate := sol.clone()
	var removed []*Shipment
	if s.rng.Float64() < 0.5 {
		removed = s.randomRuin(candidate)
	} else {
		removed = s.radialRuin(candidate)
	}
	removed = append(removed, candidate.Unassigned...)
	candidate.Unassigned = nil
	s.rng.Shuffle(len(removed), func(i, j int) { removed[i], removed[j] = removed[j], removed[i] })
	s.recreate(candidate, removed)
	return candidate
}

func (s *Solver) assigned(sol *Solution) []*Shipment {
	var out []*Shipment
	for _, t := range sol.Tours {
		out = append(out, t.Shipments()...)
	}
	return out
}

func (s *Solver) ruinCount(n int) int {
	k := int(math.Ceil(s.RuinShare * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

func (s *Solver) randomRuin(sol *Solution) []*Shipment {
	assigned := s.assigned(sol)
	if len(assigned) == 0 {
		return nil
	}
	s.rng.Shuffle(len(assigned), func(i, j int) { assigned[i], assigned[j] = assigned[j], assigned[i] })
	removed := assigned[:s.ruinCount(len(assigned))]
	s.removeAll(sol, removed)
	return removed
}

// radialRuin removes a random shipment and the shipments delivered closest to it.
func (s *Solver) radialRuin(sol *Solution) []*Shipment {
	assigned := s.assigned(sol)
	if len(assigned) == 0 {
		return nil
	}
	seed := assigned[s.rng.Intn(len(assigned))]
	sort.SliceStable(assigned, func(i, j int) bool {
		return s.costs.TransportCost(seed.To, assigned[i].To, 0) < s.costs.TransportCost(seed.To, assigned[j].To, 0)
	})
	removed := assigned[:s.ruinCount(len(assigned))]
	s.removeAll(sol, removed)
	return removed
}

func (s *Solver) removeAll(sol *Solution, shipments []*Shipment) {
	for _, sh := range shipments {
		for _, t := range sol.Tours {
			if t.remove(sh) {
				t.Schedule(s.costs)
				break
			}
		}
	}
}

// recreate inserts shipments one by one at their cheapest feasible position.
func (s *Solver) recreate(sol *Solution, shipments []*Shipment) {
	for _, sh := range shipments {
		bestTour, bestCost := -1, math.Inf(1)
		var bestActs []*TourActivity
		for ti, t := range sol.Tours {
			acts, cost, ok := s.bestInsertion(t, sh)
			if ok && cost < bestCost {
				bestTour, bestCost, bestActs = ti, cost, acts
			}
		}
		if bestTour == -1 {
			sol.Unassigned = append(sol.Unassigned, sh)
			continue
		}
		t := sol.Tours[bestTour]
		t.Activities = bestActs
		t.Schedule(s.costs)
	}
}

// bestInsertion returns the cheapest feasible activity order with sh inserted
// into t and its additional cost.
func (s *Solver) bestInsertion(t *Tour, sh *Shipment) ([]*TourActivity, float64, bool) {
	if sh.Size > t.Vehicle.Capacity {
		return nil, 0, false
	}
	base := 0.0
	if len(t.Activities) > 0 {
		base = t.Cost
	}
	n := len(t.Activities)
	var best []*TourActivity
	bestCost := math.Inf(1)
	for i := 0; i <= n; i++ {
		for j := i; j <= n; j++ {
			trial := &Tour{Vehicle: t.Vehicle, Activities: make([]*TourActivity, 0, n+2)}
			for k := 0; k <= n; k++ {
				if k == i {
					trial.Activities = append(trial.Activities, &TourActivity{Kind: Pickup, Shipment: sh})
				}
				if k == j {
					trial.Activities = append(trial.Activities, &TourActivity{Kind: Delivery, Shipment: sh})
				}
				if k < n {
					cp := *t.Activities[k]
					trial.Activities = append(trial.Activities, &cp)
				}
			}
			trial.Schedule(s.costs)
			if math.IsInf(trial.Cost, 1) || !s.constraint.Feasible(trial) {
				continue
			}
			if extra := trial.Cost - base; extra < bestCost {
				best, bestCost = trial.Activities, extra
			}
		}
	}
	return best, bestCost, best != nil
}
