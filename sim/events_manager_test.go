package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventsManager_DispatchesInOrder(t *testing.T) {
	// GIVEN two handlers
	em := NewEventsManager()
	var order []string
	em.AddHandler(EventHandlerFunc(func(Event) { order = append(order, "first") }))
	em.AddHandler(EventHandlerFunc(func(Event) { order = append(order, "second") }))

	// WHEN an event is processed
	em.ProcessEvent(NewDepartureEvent(10, "p", "l1", ModeCar))

	// THEN both handlers see it in registration order
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, int64(1), em.Count())
}

func TestEventsManager_ResetHandlers(t *testing.T) {
	em := NewEventsManager()
	c := &EventCollector{}
	em.AddHandler(c)
	em.ProcessEvent(NewArrivalEvent(10, "p", "l1", ModeCar))
	em.ProcessEvent(NewStuckEvent(11, "q", "l1", ModeCar))

	assert.Len(t, c.OfType(EventArrival), 1)

	em.ResetHandlers(1)
	assert.Empty(t, c.Events)
	assert.Equal(t, int64(0), em.Count())
}
