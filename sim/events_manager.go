package sim

import "sync"

// EventHandler receives simulation events.
type EventHandler interface {
	HandleEvent(e Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(e Event)

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(e Event) { f(e) }

// Resettable handlers are told when a new iteration starts.
type Resettable interface {
	Reset(iteration int)
}

// EventsManager dispatches events synchronously to all handlers in the order
// they were added. Safe for concurrent use.
type EventsManager struct {
	mu       sync.Mutex
	handlers []EventHandler
	count    int64
}

// NewEventsManager creates an events manager without handlers.
func NewEventsManager() *EventsManager {
	return &EventsManager{}
}

// AddHandler registers a handler.
func (m *EventsManager) AddHandler(h EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// ProcessEvent delivers e to every handler.
func (m *EventsManager) ProcessEvent(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	for _, h := range m.handlers {
		h.HandleEvent(e)
	}
}

// ResetHandlers calls Reset on every handler implementing Resettable.
func (m *EventsManager) ResetHandlers(iteration int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = 0
	for _, h := range m.handlers {
		if r, ok := h.(Resettable); ok {
			r.Reset(iteration)
		}
	}
}

// Count returns the number of events processed since the last reset.
func (m *EventsManager) Count() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// EventCollector stores every event it receives. Mostly useful in tests and
// for small scenarios.
type EventCollector struct {
	Events []Event
}

// HandleEvent implements EventHandler.
func (c *EventCollector) HandleEvent(e Event) {
	c.Events = append(c.Events, e)
}

// Reset implements Resettable.
func (c *EventCollector) Reset(int) {
	c.Events = nil
}

// OfType returns the collected events of the given type.
func (c *EventCollector) OfType(t EventType) []Event {
	var out []Event
	for _, e := range c.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
