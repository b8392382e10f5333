package guidance

import (
	"math/rand"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/qsim"
	"github.com/mobsim/mobsim/sim/trace"
)

// DefaultEquipmentFraction is the share of equipped agents when none is configured.
const DefaultEquipmentFraction = 0.05

var (
	forceReplan   Contentment = ForceReplan{}
	preventReplan Contentment = PreventReplan{}
)

// AgentFactory decorates agents created by an inner factory with a guidance
// replanner. Each agent is equipped with probability EquipmentFraction.
type AgentFactory struct {
	inner             qsim.AgentFactory
	rng               *rand.Rand
	provider          RouteProvider
	analyzer          *Analyzer
	trace             *trace.SimulationTrace
	EquipmentFraction float64
}

// NewAgentFactory creates a guided agent factory. analyzer and st may be nil.
func NewAgentFactory(inner qsim.AgentFactory, rng *rand.Rand, provider RouteProvider, analyzer *Analyzer, st *trace.SimulationTrace) *AgentFactory {
	return &AgentFactory{
		inner:             inner,
		rng:               rng,
		provider:          provider,
		analyzer:          analyzer,
		trace:             st,
		EquipmentFraction: DefaultEquipmentFraction,
	}
}

// CreateAgent implements qsim.AgentFactory.
func (f *AgentFactory) CreateAgent(p *sim.Person) (*qsim.Agent, error) {
	a, err := f.inner.CreateAgent(p)
	if err != nil {
		return nil, err
	}
	a.Replanner = &replanner{contentment: f.createContentment(a), provider: f.provider, analyzer: f.analyzer, trace: f.trace}
	return a, nil
}

// createContentment consumes two draws per agent; only the second decides.
func (f *AgentFactory) createContentment(a *qsim.Agent) Contentment {
	f.rng.Float64()
	if f.rng.Float64() < f.EquipmentFraction {
		if f.analyzer != nil {
			f.analyzer.AddGuidedPerson(a.Person())
		}
		logrus.Debugf("Agent %s is equipped with route guidance", a.ID())
		return forceReplan
	}
	return preventReplan
}

type replanner struct {
	contentment Contentment
	provider    RouteProvider
	analyzer    *Analyzer
	trace       *trace.SimulationTrace
}

// Replan implements qsim.Replanner.
func (r *replanner) Replan(a *qsim.Agent, now float64) {
	if r.contentment.Contentment(a, now) >= 0 {
		return
	}
	old := a.RemainingLinkIDs()
	path, err := r.provider.RequestRoute(a.Person(), a.CurrentLinkID(), a.Destination(), now)
	if err != nil {
		logrus.Warnf("Guidance for agent %s on link %s failed: %v", a.ID(), a.CurrentLinkID(), err)
		return
	}
	changed := !slices.Equal(old, path)
	if changed {
		logrus.Debugf("Agent %s switches route at %s: %v -> %v", a.ID(), sim.FormatTime(now), old, path)
		a.ReplaceRemainingRoute(path)
	}
	if r.analyzer != nil {
		r.analyzer.AddReplan(changed)
	}
	r.trace.RecordReplan(trace.ReplanRecord{
		PersonID: string(a.ID()),
		Time:     now,
		LinkID:   string(a.CurrentLinkID()),
		Changed:  changed,
		OldLinks: len(old),
		NewLinks: len(path),
	})
}
