package sim

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// Transport modes
const (
	ModeCar  = "car"
	ModePt   = "pt"
	ModeWalk = "walk"
	ModeBike = "bike"
)

// ParkingActivityType marks the short activity between a car leg and the walk
// leg to or from the actual destination.
const ParkingActivityType = "parking"

// PlanElement is either an *Activity or a *Leg.
type PlanElement interface {
	isPlanElement()
}

// Activity is a stay at a location.
type Activity struct {
	Type       string
	LinkID     LinkID
	Coord      orb.Point
	FacilityID FacilityID
	StartTime  float64
	EndTime    float64 // UndefinedTime if the activity ends by Duration or never
	Duration   float64 // UndefinedTime if unset
}

func (*Activity) isPlanElement() {}

// NewActivity creates an activity without start, end or duration.
func NewActivity(actType string, linkID LinkID, coord orb.Point) *Activity {
	return &Activity{
		Type:      actType,
		LinkID:    linkID,
		Coord:     coord,
		StartTime: UndefinedTime,
		EndTime:   UndefinedTime,
		Duration:  UndefinedTime,
	}
}

// Leg is a trip between two activities.
type Leg struct {
	Mode          string
	Route         *Route
	DepartureTime float64
	TravelTime    float64
}

func (*Leg) isPlanElement() {}

// Route is a network route. LinkIDs holds the links between start and end link,
// exclusive on both sides.
type Route struct {
	StartLinkID LinkID
	LinkIDs     []LinkID
	EndLinkID   LinkID
	Distance    float64
	TravelTime  float64
}

// SetLinkIDs replaces start, intermediate and end links of the route.
func (r *Route) SetLinkIDs(start LinkID, links []LinkID, end LinkID) {
	r.StartLinkID = start
	r.LinkIDs = append([]LinkID(nil), links...)
	r.EndLinkID = end
}

// Plan is an alternating sequence of activities and legs, starting and ending
// with an activity.
type Plan struct {
	Elements []PlanElement
	Score    float64
}

// ActivityAt returns the activity at index i, or nil if i is out of range or a leg.
func (p *Plan) ActivityAt(i int) *Activity {
	if i < 0 || i >= len(p.Elements) {
		return nil
	}
	act, _ := p.Elements[i].(*Activity)
	return act
}

// LegAt returns the leg at index i, or nil if i is out of range or an activity.
func (p *Plan) LegAt(i int) *Leg {
	if i < 0 || i >= len(p.Elements) {
		return nil
	}
	leg, _ := p.Elements[i].(*Leg)
	return leg
}

// NextCarLegIndex returns the index of the first car leg after index from, or -1.
func (p *Plan) NextCarLegIndex(from int) int {
	for i := from + 1; i < len(p.Elements); i++ {
		if leg := p.LegAt(i); leg != nil && leg.Mode == ModeCar {
			return i
		}
	}
	return -1
}

// PreviousCarLegIndex returns the index of the last car leg before index from, or -1.
func (p *Plan) PreviousCarLegIndex(from int) int {
	for i := from - 1; i >= 0; i-- {
		if leg := p.LegAt(i); leg != nil && leg.Mode == ModeCar {
			return i
		}
	}
	return -1
}

// FirstCarLegIndex returns the index of the first car leg, or -1.
func (p *Plan) FirstCarLegIndex() int {
	return p.NextCarLegIndex(-1)
}

// LastCarLegIndex returns the index of the last car leg, or -1.
func (p *Plan) LastCarLegIndex() int {
	return p.PreviousCarLegIndex(len(p.Elements))
}

// Validate checks the activity/leg alternation.
func (p *Plan) Validate() error {
	if len(p.Elements) == 0 {
		return fmt.Errorf("plan is empty")
	}
	for i, el := range p.Elements {
		_, isAct := el.(*Activity)
		if i%2 == 0 && !isAct {
			return fmt.Errorf("plan element %d: expected activity", i)
		}
		if i%2 == 1 && isAct {
			return fmt.Errorf("plan element %d: expected leg", i)
		}
	}
	if len(p.Elements)%2 == 0 {
		return fmt.Errorf("plan must end with an activity")
	}
	return nil
}

// Person is a simulated traveller.
type Person struct {
	ID       PersonID
	Plans    []*Plan
	Selected int
	// KnownLinks is the part of the network the person knows. Nil means the
	// whole network.
	KnownLinks map[LinkID]struct{}
}

// SelectedPlan returns the selected plan, or nil if the person has none.
func (p *Person) SelectedPlan() *Plan {
	if p.Selected < 0 || p.Selected >= len(p.Plans) {
		return nil
	}
	return p.Plans[p.Selected]
}

// Population holds all persons of a scenario.
type Population struct {
	persons map[PersonID]*Person
}

// NewPopulation creates an empty population.
func NewPopulation() *Population {
	return &Population{persons: make(map[PersonID]*Person)}
}

// Add inserts a person.
func (pop *Population) Add(p *Person) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("person must have an id")
	}
	if _, exists := pop.persons[p.ID]; exists {
		return fmt.Errorf("person %s already exists", p.ID)
	}
	pop.persons[p.ID] = p
	return nil
}

// Get returns the person with the given id, or nil.
func (pop *Population) Get(id PersonID) *Person {
	return pop.persons[id]
}

// Len returns the number of persons.
func (pop *Population) Len() int { return len(pop.persons) }

// Persons returns all persons sorted by id.
func (pop *Population) Persons() []*Person {
	out := make([]*Person, 0, len(pop.persons))
	for _, p := range pop.persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
