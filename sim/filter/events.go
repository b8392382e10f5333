package filter

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// EventFilter decides whether an event passes.
type EventFilter interface {
	Judge(e sim.Event) bool
}

// EventFilterFunc adapts a function to EventFilter.
type EventFilterFunc func(e sim.Event) bool

// Judge implements EventFilter.
func (f EventFilterFunc) Judge(e sim.Event) bool { return f(e) }

// PersonSpecific passes events of the given persons.
type PersonSpecific struct {
	persons map[sim.PersonID]struct{}
}

// NewPersonSpecific creates a filter for the given person ids.
func NewPersonSpecific(ids []sim.PersonID) *PersonSpecific {
	f := &PersonSpecific{}
	f.SetPersonIDs(ids)
	logrus.Infof("Importing %d person IDs into event filter", len(f.persons))
	return f
}

// SetPersonIDs replaces the accepted persons.
func (f *PersonSpecific) SetPersonIDs(ids []sim.PersonID) {
	f.persons = make(map[sim.PersonID]struct{}, len(ids))
	for _, id := range ids {
		f.persons[id] = struct{}{}
	}
}

// Judge implements EventFilter.
func (f *PersonSpecific) Judge(e sim.Event) bool {
	_, ok := f.persons[e.PersonID]
	return ok
}

// TypeFilter passes events of the given types.
type TypeFilter map[sim.EventType]struct{}

// NewTypeFilter creates a filter for the given event types.
func NewTypeFilter(types ...sim.EventType) TypeFilter {
	f := make(TypeFilter, len(types))
	for _, t := range types {
		f[t] = struct{}{}
	}
	return f
}

// Judge implements EventFilter.
func (f TypeFilter) Judge(e sim.Event) bool {
	_, ok := f[e.Type]
	return ok
}

// Handler forwards events accepted by all filters to Next.
type Handler struct {
	Next    sim.EventHandler
	filters []EventFilter
	judged  atomic.Int64
	passed  atomic.Int64
}

// NewHandler chains filters in front of next.
func NewHandler(next sim.EventHandler, filters ...EventFilter) *Handler {
	return &Handler{Next: next, filters: filters}
}

// AddFilter appends a filter to the chain.
func (h *Handler) AddFilter(f EventFilter) {
	h.filters = append(h.filters, f)
}

// HandleEvent implements sim.EventHandler.
func (h *Handler) HandleEvent(e sim.Event) {
	h.judged.Add(1)
	for _, f := range h.filters {
		if !f.Judge(e) {
			return
		}
	}
	h.passed.Add(1)
	h.Next.HandleEvent(e)
}

// Judged returns the number of events seen.
func (h *Handler) Judged() int64 { return h.judged.Load() }

// Passed returns the number of events forwarded.
func (h *Handler) Passed() int64 { return h.passed.Load() }

// Reset clears the counters and resets the downstream handler if it supports it.
func (h *Handler) Reset(iteration int) {
	h.judged.Store(0)
	h.passed.Store(0)
	if r, ok := h.Next.(sim.Resettable); ok {
		r.Reset(iteration)
	}
}
