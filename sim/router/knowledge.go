package router

import (
	"math"

	"github.com/mobsim/mobsim/sim"
)

// Knowledge tells which links a person knows.
type Knowledge interface {
	Knows(person *sim.Person, id sim.LinkID) bool
}

// PersonKnowledge reads Person.KnownLinks. A person without known links, or no
// person at all, knows the whole network.
type PersonKnowledge struct{}

// Knows implements Knowledge.
func (PersonKnowledge) Knows(person *sim.Person, id sim.LinkID) bool {
	if person == nil || person.KnownLinks == nil {
		return true
	}
	_, ok := person.KnownLinks[id]
	return ok
}

// KnowledgeTravelTime makes links unknown to the person impassable.
type KnowledgeTravelTime struct {
	Inner     TravelTime
	Knowledge Knowledge
}

// LinkTravelTime implements TravelTime.
func (k KnowledgeTravelTime) LinkTravelTime(link *sim.Link, time float64, person *sim.Person) float64 {
	if !k.Knowledge.Knows(person, link.ID) {
		return math.Inf(1)
	}
	return k.Inner.LinkTravelTime(link, time, person)
}

// KnowledgeTravelCost makes links unknown to the person impassable.
type KnowledgeTravelCost struct {
	Inner     TravelDisutility
	Knowledge Knowledge
}

// LinkTravelDisutility implements TravelDisutility.
func (k KnowledgeTravelCost) LinkTravelDisutility(link *sim.Link, time float64, person *sim.Person) float64 {
	if !k.Knowledge.Knows(person, link.ID) {
		return math.Inf(1)
	}
	return k.Inner.LinkTravelDisutility(link, time, person)
}
