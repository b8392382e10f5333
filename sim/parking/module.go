package parking

import (
	"fmt"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/qsim"
	"github.com/mobsim/mobsim/sim/router"
	"github.com/mobsim/mobsim/sim/trace"
)

// Name is the singleton key of the parking strategy.
const Name = "ParkingSearch"

// AgentFactory attaches a strategy's hooks to every agent.
type AgentFactory struct {
	inner    qsim.AgentFactory
	strategy *RandomSearch
}

// NewAgentFactory decorates inner with strategy.
func NewAgentFactory(inner qsim.AgentFactory, strategy *RandomSearch) *AgentFactory {
	return &AgentFactory{inner: inner, strategy: strategy}
}

// CreateAgent implements qsim.AgentFactory.
func (f *AgentFactory) CreateAgent(p *sim.Person) (*qsim.Agent, error) {
	a, err := f.inner.CreateAgent(p)
	if err != nil {
		return nil, err
	}
	a.RouteEnd = f.strategy
	a.ActivityStart = f.strategy
	a.ActivityEnd = f.strategy
	return a, nil
}

// NewFromContext builds a random search from the scenario's parking section.
// Car legs are rerouted over free-flow travel times.
func NewFromContext(ctx *qsim.Context, scores ScoreSink, st *trace.SimulationTrace) (*RandomSearch, error) {
	cfg := ctx.Scenario.Config.Parking
	manager, err := NewManagerFromConfig(cfg, ctx.Scenario.Network)
	if err != nil {
		return nil, err
	}
	evaluator := LinearScore{
		SearchCostPerHour: cfg.SearchCostPerHour,
		WalkCostPerHour:   cfg.WalkCostPerHour,
		Facilities:        manager,
	}
	s := NewRandomSearch(ctx.Scenario.Network, manager, ctx.RNG.ForSubsystem(sim.SubsystemParking),
		router.NewScenarioPlanRouter(ctx.Scenario), evaluator, scores, st)
	s.MaxDistance = cfg.MaxDistance
	s.ParkingType = cfg.ParkingType
	return s, nil
}

// Module decorates the QSim agent factory with the strategy returned by build.
func Module(build func(ctx *qsim.Context) (*RandomSearch, error)) qsim.Module {
	return qsim.ModuleFunc(func(b *qsim.Binder) {
		b.DecorateAgentFactory(func(ctx *qsim.Context, inner qsim.AgentFactory) (qsim.AgentFactory, error) {
			strategy, err := qsim.Singleton(ctx, Name, func() (*RandomSearch, error) { return build(ctx) })
			if err != nil {
				return nil, fmt.Errorf("building parking search: %w", err)
			}
			return NewAgentFactory(inner, strategy), nil
		})
	})
}
