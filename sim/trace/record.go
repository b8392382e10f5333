// Package trace provides decision-trace recording for route guidance and
// parking search. This package has no dependencies on sim/; it stores pure
// data types.
package trace

// ReplanRecord captures one route-guidance decision of an equipped agent.
type ReplanRecord struct {
	PersonID string
	Time     float64
	LinkID   string // link the vehicle was on when it replanned
	Changed  bool   // true if the remaining route differs from the old one
	OldLinks int    // remaining links before the decision
	NewLinks int    // remaining links after the decision
}

// ParkingAction names a parking-search step.
type ParkingAction string

const (
	// ParkingActionExtend means no facility was free and the route grew by one link.
	ParkingActionExtend ParkingAction = "extend"
	// ParkingActionPark means the vehicle parked at a facility.
	ParkingActionPark ParkingAction = "park"
)

// ParkingRecord captures one parking-search step.
type ParkingRecord struct {
	PersonID       string
	Time           float64
	LinkID         string
	Action         ParkingAction
	FacilityID     string  // set for ParkingActionPark
	SearchDuration float64 // seconds since the search started; set for ParkingActionPark
	Distance       float64 // meters from the link to the destination
}
