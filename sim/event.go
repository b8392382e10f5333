package sim

import "fmt"

// EventType names the kind of a simulation event.
type EventType string

const (
	EventLinkEnter     EventType = "entered link"
	EventLinkLeave     EventType = "left link"
	EventDeparture     EventType = "departure"
	EventArrival       EventType = "arrival"
	EventWait2Link     EventType = "wait2link"
	EventStuck         EventType = "stuck"
	EventActivityStart EventType = "actstart"
	EventActivityEnd   EventType = "actend"
)

// ValidEventTypes is the set of recognized event type names.
var ValidEventTypes = map[string]bool{
	string(EventLinkEnter):     true,
	string(EventLinkLeave):     true,
	string(EventDeparture):     true,
	string(EventArrival):       true,
	string(EventWait2Link):     true,
	string(EventStuck):         true,
	string(EventActivityStart): true,
	string(EventActivityEnd):   true,
}

// Event is an observable state change emitted by the simulation.
// Fields that do not apply to an event type are left empty.
type Event struct {
	Time       float64
	Type       EventType
	PersonID   PersonID
	LinkID     LinkID
	VehicleID  VehicleID
	LegMode    string
	ActType    string
	FacilityID FacilityID
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s person=%s link=%s", FormatTime(e.Time), e.Type, e.PersonID, e.LinkID)
}

// NewLinkEnterEvent creates a link enter event.
func NewLinkEnterEvent(time float64, person PersonID, link LinkID, vehicle VehicleID) Event {
	return Event{Time: time, Type: EventLinkEnter, PersonID: person, LinkID: link, VehicleID: vehicle}
}

// NewLinkLeaveEvent creates a link leave event.
func NewLinkLeaveEvent(time float64, person PersonID, link LinkID, vehicle VehicleID) Event {
	return Event{Time: time, Type: EventLinkLeave, PersonID: person, LinkID: link, VehicleID: vehicle}
}

// NewDepartureEvent creates a departure event.
func NewDepartureEvent(time float64, person PersonID, link LinkID, mode string) Event {
	return Event{Time: time, Type: EventDeparture, PersonID: person, LinkID: link, LegMode: mode}
}

// NewArrivalEvent creates an arrival event.
func NewArrivalEvent(time float64, person PersonID, link LinkID, mode string) Event {
	return Event{Time: time, Type: EventArrival, PersonID: person, LinkID: link, LegMode: mode}
}

// NewWait2LinkEvent creates the event of a departing vehicle entering traffic.
func NewWait2LinkEvent(time float64, person PersonID, link LinkID, vehicle VehicleID) Event {
	return Event{Time: time, Type: EventWait2Link, PersonID: person, LinkID: link, VehicleID: vehicle}
}

// NewStuckEvent creates the event of an agent removed from the simulation.
func NewStuckEvent(time float64, person PersonID, link LinkID, mode string) Event {
	return Event{Time: time, Type: EventStuck, PersonID: person, LinkID: link, LegMode: mode}
}

// NewActivityStartEvent creates an activity start event.
func NewActivityStartEvent(time float64, person PersonID, link LinkID, facility FacilityID, actType string) Event {
	return Event{Time: time, Type: EventActivityStart, PersonID: person, LinkID: link, FacilityID: facility, ActType: actType}
}

// NewActivityEndEvent creates an activity end event.
func NewActivityEndEvent(time float64, person PersonID, link LinkID, facility FacilityID, actType string) Event {
	return Event{Time: time, Type: EventActivityEnd, PersonID: person, LinkID: link, FacilityID: facility, ActType: actType}
}
