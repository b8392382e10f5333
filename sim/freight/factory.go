package freight

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mobsim/mobsim/sim"
)

// ErrNotDistributionProblem is returned when vehicles or shipments do not all
// start at one depot.
var ErrNotDistributionProblem = errors.New("not a single-depot distribution problem")

// DTWSolverFactory configures solvers for the single-depot distribution
// problem with time windows.
type DTWSolverFactory struct {
	Listeners        []Listener
	Iterations       int
	WarmupIterations int
	rng              *rand.Rand
}

// NewDTWSolverFactory creates a factory with 200 iterations and 20 warm-up
// iterations.
func NewDTWSolverFactory() *DTWSolverFactory {
	return &DTWSolverFactory{Iterations: 200, WarmupIterations: 20, rng: rand.New(rand.NewSource(4711))}
}

// SetRandom replaces the random source handed to solvers.
func (f *DTWSolverFactory) SetRandom(rng *rand.Rand) { f.rng = rng }

// CreateSolver verifies the problem and returns a configured solver.
func (f *DTWSolverFactory) CreateSolver(shipments []*Shipment, vehicles []*CarrierVehicle, costs Costs) (*Solver, error) {
	if err := verifyDistributionProblem(shipments, vehicles); err != nil {
		return nil, err
	}
	s := NewSolver(shipments, vehicles, costs, CapacityAndTimeWindowConstraint{}, f.rng)
	s.Iterations = f.Iterations
	s.WarmupIterations = f.WarmupIterations
	for _, l := range f.Listeners {
		s.AddListener(l)
	}
	return s, nil
}

// verifyDistributionProblem requires one depot for all vehicles and every
// shipment to start there. Without vehicles there is nothing to check.
func verifyDistributionProblem(shipments []*Shipment, vehicles []*CarrierVehicle) error {
	var depot sim.LinkID
	for i, v := range vehicles {
		if i == 0 {
			depot = v.Location
			continue
		}
		if v.Location != depot {
			return fmt.Errorf("%w: vehicle %s is at %s, not at depot %s", ErrNotDistributionProblem, v.ID, v.Location, depot)
		}
	}
	if len(vehicles) == 0 {
		return nil
	}
	for _, s := range shipments {
		if s.From != depot {
			return fmt.Errorf("%w: shipment %s starts at %s, not at depot %s", ErrNotDistributionProblem, s.ID, s.From, depot)
		}
	}
	return nil
}
