package qsim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mobsim/mobsim/sim"
)

// ErrComponentNotRegistered is returned when an active component name has no
// registered factory.
var ErrComponentNotRegistered = errors.New("component not registered")

// Factory builds a component for one QSim.
type Factory[T any] func(ctx *Context) (T, error)

// Context is handed to component factories.
type Context struct {
	Scenario *sim.Scenario
	Events   *sim.EventsManager
	RNG      *sim.PartitionedRNG
	QSim     *QSim

	singletons map[string]any
}

// NewContext creates a factory context for q.
func NewContext(q *QSim, rng *sim.PartitionedRNG) *Context {
	return &Context{
		Scenario:   q.Scenario(),
		Events:     q.Events(),
		RNG:        rng,
		QSim:       q,
		singletons: make(map[string]any),
	}
}

// Singleton returns the value cached under key, building it on first use. It
// lets one object serve several component roles of the same QSim.
func Singleton[T any](ctx *Context, key string, build func() (T, error)) (T, error) {
	if v, ok := ctx.singletons[key]; ok {
		t, ok := v.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("singleton %q is %T, not the requested type", key, v)
		}
		return t, nil
	}
	v, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	ctx.singletons[key] = v
	return v, nil
}

// ComponentRegistry maps component names of one role to factories.
type ComponentRegistry[T any] struct {
	role      string
	factories map[string]Factory[T]
	order     []string
}

// NewComponentRegistry creates an empty registry for role.
func NewComponentRegistry[T any](role string) *ComponentRegistry[T] {
	return &ComponentRegistry[T]{role: role, factories: make(map[string]Factory[T])}
}

// Register adds a named factory. Names are unique per role.
func (r *ComponentRegistry[T]) Register(name string, f Factory[T]) error {
	if name == "" {
		return fmt.Errorf("%s: component name must not be empty", r.role)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%s: component %q registered twice", r.role, name)
	}
	r.factories[name] = f
	r.order = append(r.order, name)
	return nil
}

// Names returns the registered names in registration order.
func (r *ComponentRegistry[T]) Names() []string {
	return append([]string(nil), r.order...)
}

// OrderedComponents builds the active components in the order given by
// active. Registered names missing from active are skipped.
func (r *ComponentRegistry[T]) OrderedComponents(ctx *Context, active []string) ([]T, error) {
	out := make([]T, 0, len(active))
	for _, name := range active {
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%s %q: %w", r.role, name, ErrComponentNotRegistered)
		}
		c, err := f(ctx)
		if err != nil {
			return nil, fmt.Errorf("building %s %q: %w", r.role, name, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// AgentFactoryDecorator wraps the agent factory of a QSim.
type AgentFactoryDecorator func(ctx *Context, inner AgentFactory) (AgentFactory, error)

// Binder collects component registrations from modules.
type Binder struct {
	engines           *ComponentRegistry[MobsimEngine]
	activityHandlers  *ComponentRegistry[ActivityHandler]
	departureHandlers *ComponentRegistry[DepartureHandler]
	agentSources      *ComponentRegistry[AgentSource]
	listeners         *ComponentRegistry[any]
	decorators        []AgentFactoryDecorator
	errs              []error
}

// NewBinder creates an empty binder.
func NewBinder() *Binder {
	return &Binder{
		engines:           NewComponentRegistry[MobsimEngine]("engine"),
		activityHandlers:  NewComponentRegistry[ActivityHandler]("activity handler"),
		departureHandlers: NewComponentRegistry[DepartureHandler]("departure handler"),
		agentSources:      NewComponentRegistry[AgentSource]("agent source"),
		listeners:         NewComponentRegistry[any]("listener"),
	}
}

func (b *Binder) record(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// BindMobsimEngine registers a named engine factory.
func (b *Binder) BindMobsimEngine(name string, f Factory[MobsimEngine]) {
	b.record(b.engines.Register(name, f))
}

// BindActivityHandler registers a named activity handler factory.
func (b *Binder) BindActivityHandler(name string, f Factory[ActivityHandler]) {
	b.record(b.activityHandlers.Register(name, f))
}

// BindDepartureHandler registers a named departure handler factory.
func (b *Binder) BindDepartureHandler(name string, f Factory[DepartureHandler]) {
	b.record(b.departureHandlers.Register(name, f))
}

// BindAgentSource registers a named agent source factory.
func (b *Binder) BindAgentSource(name string, f Factory[AgentSource]) {
	b.record(b.agentSources.Register(name, f))
}

// BindListener registers a named listener factory. Every bound listener is
// added to the QSim; listeners that also handle events join the events
// manager.
func (b *Binder) BindListener(name string, f Factory[any]) {
	b.record(b.listeners.Register(name, f))
}

// DecorateAgentFactory wraps the agent factory. Decorators apply in binding
// order, the last one outermost.
func (b *Binder) DecorateAgentFactory(d AgentFactoryDecorator) {
	b.decorators = append(b.decorators, d)
}

// Err returns the registration errors collected so far.
func (b *Binder) Err() error {
	return errors.Join(b.errs...)
}

// Module contributes component bindings.
type Module interface {
	Configure(b *Binder)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(b *Binder)

// Configure implements Module.
func (f ModuleFunc) Configure(b *Binder) { f(b) }

// sortedListenerNames returns the bound listener names sorted.
func sortedListenerNames(r *ComponentRegistry[any]) []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
