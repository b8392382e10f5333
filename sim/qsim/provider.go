package qsim

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// Standard component names.
const (
	ActivityEngineName        = "ActivityEngine"
	NetsimEngineName          = "NetsimEngine"
	TeleportationEngineName   = "TeleportationEngine"
	PopulationAgentSourceName = "PopulationAgentSource"
)

// DefaultComponents activates the standard engines, handlers and agent
// source.
func DefaultComponents() sim.ComponentsConfig {
	return sim.ComponentsConfig{
		Engines:           []string{ActivityEngineName, NetsimEngineName, TeleportationEngineName},
		ActivityHandlers:  []string{ActivityEngineName},
		DepartureHandlers: []string{NetsimEngineName, TeleportationEngineName},
		AgentSources:      []string{PopulationAgentSourceName},
	}
}

// StandardModule binds the standard components. The activity, network and
// teleportation engines are singletons serving both their engine and handler
// roles.
func StandardModule() Module {
	return ModuleFunc(func(b *Binder) {
		activity := func(ctx *Context) (*ActivityEngine, error) {
			return Singleton(ctx, ActivityEngineName, func() (*ActivityEngine, error) {
				return NewActivityEngine(), nil
			})
		}
		netsim := func(ctx *Context) (*NetsimEngine, error) {
			return Singleton(ctx, NetsimEngineName, func() (*NetsimEngine, error) {
				return NewNetsimEngine(ctx.Scenario.Network, ctx.Scenario.Config.QSim), nil
			})
		}
		teleport := func(ctx *Context) (*TeleportationEngine, error) {
			return Singleton(ctx, TeleportationEngineName, func() (*TeleportationEngine, error) {
				return NewTeleportationEngine(ctx.Scenario.Config.Routing), nil
			})
		}

		b.BindMobsimEngine(ActivityEngineName, func(ctx *Context) (MobsimEngine, error) { return activity(ctx) })
		b.BindActivityHandler(ActivityEngineName, func(ctx *Context) (ActivityHandler, error) { return activity(ctx) })
		b.BindMobsimEngine(NetsimEngineName, func(ctx *Context) (MobsimEngine, error) { return netsim(ctx) })
		b.BindDepartureHandler(NetsimEngineName, func(ctx *Context) (DepartureHandler, error) { return netsim(ctx) })
		b.BindMobsimEngine(TeleportationEngineName, func(ctx *Context) (MobsimEngine, error) { return teleport(ctx) })
		b.BindDepartureHandler(TeleportationEngineName, func(ctx *Context) (DepartureHandler, error) { return teleport(ctx) })
		b.BindAgentSource(PopulationAgentSourceName, func(ctx *Context) (AgentSource, error) {
			return NewPopulationAgentSource(ctx.Scenario.Population, ctx.Scenario.Config.QSim.NetworkModes), nil
		})
	})
}

// Provider builds QSims from modules and the configured active components.
type Provider struct {
	scenario *sim.Scenario
	events   *sim.EventsManager
	rng      *sim.PartitionedRNG
	modules  []Module

	// listenerEvents is registered with events once and forwards to the
	// event handling listeners of the most recent QSim.
	listenerEvents *listenerEvents
}

type listenerEvents struct {
	mu       sync.Mutex
	handlers []sim.EventHandler
}

func (l *listenerEvents) set(handlers []sim.EventHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = handlers
}

// HandleEvent implements sim.EventHandler.
func (l *listenerEvents) HandleEvent(e sim.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, h := range l.handlers {
		h.HandleEvent(e)
	}
}

// Reset implements sim.Resettable.
func (l *listenerEvents) Reset(iteration int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, h := range l.handlers {
		if r, ok := h.(sim.Resettable); ok {
			r.Reset(iteration)
		}
	}
}

// NewProvider creates a provider.
func NewProvider(scenario *sim.Scenario, events *sim.EventsManager, rng *sim.PartitionedRNG, modules ...Module) *Provider {
	return &Provider{scenario: scenario, events: events, rng: rng, modules: modules}
}

// activeComponents returns the configured active names, falling back to the
// defaults per role.
func (p *Provider) activeComponents() sim.ComponentsConfig {
	active := p.scenario.Config.QSim.Components
	def := DefaultComponents()
	if len(active.Engines) == 0 {
		active.Engines = def.Engines
	}
	if len(active.ActivityHandlers) == 0 {
		active.ActivityHandlers = def.ActivityHandlers
	}
	if len(active.DepartureHandlers) == 0 {
		active.DepartureHandlers = def.DepartureHandlers
	}
	if len(active.AgentSources) == 0 {
		active.AgentSources = def.AgentSources
	}
	return active
}

// Get configures all modules and returns a QSim with the active components
// added in configured order and every bound listener attached. Listeners that
// handle events receive them from the events manager until the next Get.
func (p *Provider) Get() (*QSim, error) {
	b := NewBinder()
	for _, m := range p.modules {
		m.Configure(b)
	}
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("configuring modules: %w", err)
	}

	q := New(p.scenario, p.events)
	ctx := NewContext(q, p.rng)

	var factory AgentFactory = DefaultAgentFactory{}
	for _, d := range b.decorators {
		f, err := d(ctx, factory)
		if err != nil {
			return nil, fmt.Errorf("decorating agent factory: %w", err)
		}
		factory = f
	}
	q.SetAgentFactory(factory)

	active := p.activeComponents()
	logrus.Infof("Engines: registered %v, active %v", b.engines.Names(), active.Engines)
	logrus.Infof("Activity handlers: registered %v, active %v", b.activityHandlers.Names(), active.ActivityHandlers)
	logrus.Infof("Departure handlers: registered %v, active %v", b.departureHandlers.Names(), active.DepartureHandlers)
	logrus.Infof("Agent sources: registered %v, active %v", b.agentSources.Names(), active.AgentSources)
	logrus.Infof("Listeners: %v", sortedListenerNames(b.listeners))

	engines, err := b.engines.OrderedComponents(ctx, active.Engines)
	if err != nil {
		return nil, err
	}
	for _, e := range engines {
		q.AddMobsimEngine(e)
	}
	activityHandlers, err := b.activityHandlers.OrderedComponents(ctx, active.ActivityHandlers)
	if err != nil {
		return nil, err
	}
	for _, h := range activityHandlers {
		q.AddActivityHandler(h)
	}
	departureHandlers, err := b.departureHandlers.OrderedComponents(ctx, active.DepartureHandlers)
	if err != nil {
		return nil, err
	}
	for _, h := range departureHandlers {
		q.AddDepartureHandler(h)
	}
	sources, err := b.agentSources.OrderedComponents(ctx, active.AgentSources)
	if err != nil {
		return nil, err
	}
	for _, s := range sources {
		q.AddAgentSource(s)
	}

	listeners, err := b.listeners.OrderedComponents(ctx, sortedListenerNames(b.listeners))
	if err != nil {
		return nil, err
	}
	var handlers []sim.EventHandler
	for _, l := range listeners {
		handler, isHandler := l.(sim.EventHandler)
		if isHandler {
			handlers = append(handlers, handler)
		}
		if err := q.AddListener(l); err != nil && !isHandler {
			return nil, err
		}
	}
	if p.listenerEvents == nil {
		p.listenerEvents = &listenerEvents{}
		p.events.AddHandler(p.listenerEvents)
	}
	p.listenerEvents.set(handlers)
	return q, nil
}
