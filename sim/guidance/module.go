package guidance

import (
	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/qsim"
	"github.com/mobsim/mobsim/sim/router"
	"github.com/mobsim/mobsim/sim/trace"
)

// Options configures the guidance module.
type Options struct {
	// Mean are the travel times guidance routes over; incident links from
	// the scenario are layered on top. Free speed if nil.
	Mean     router.TravelTime
	Analyzer *Analyzer
	Trace    *trace.SimulationTrace
}

// Module decorates the QSim agent factory with guided agents.
func Module(opts Options) qsim.Module {
	return qsim.ModuleFunc(func(b *qsim.Binder) {
		b.DecorateAgentFactory(func(ctx *qsim.Context, inner qsim.AgentFactory) (qsim.AgentFactory, error) {
			cfg := ctx.Scenario.Config.Guidance
			mean := opts.Mean
			if mean == nil {
				mean = router.FreeSpeedTravelTime{}
			}
			react := router.NewIncidentTravelTime(mean)
			for _, id := range cfg.IncidentLinks {
				react.AddIncidentLink(sim.LinkID(id))
			}
			f := NewAgentFactory(inner, ctx.RNG.ForSubsystem(sim.SubsystemGuidance),
				NewReactRouteGuidance(ctx.Scenario.Network, react), opts.Analyzer, opts.Trace)
			if cfg.EquipmentFraction != nil {
				f.EquipmentFraction = *cfg.EquipmentFraction
			}
			logrus.Infof("Route guidance: equipment fraction %.3f, %d incident links", f.EquipmentFraction, len(cfg.IncidentLinks))
			return f, nil
		})
	})
}
