package freight

// Constraint decides whether a scheduled tour is feasible.
type Constraint interface {
	Feasible(t *Tour) bool
}

// CapacityAndTimeWindowConstraint requires loads within the vehicle capacity,
// every activity starting within its time window, each delivery after its
// pickup, and the vehicle back by its latest end.
type CapacityAndTimeWindowConstraint struct{}

// Feasible implements Constraint.
func (CapacityAndTimeWindowConstraint) Feasible(t *Tour) bool {
	picked := make(map[*Shipment]bool, len(t.Activities)/2)
	for _, a := range t.Activities {
		if a.Load < 0 || a.Load > t.Vehicle.Capacity {
			return false
		}
		if a.Start > a.TimeWindow().End {
			return false
		}
		switch a.Kind {
		case Pickup:
			picked[a.Shipment] = true
		case Delivery:
			if !picked[a.Shipment] {
				return false
			}
		}
	}
	return t.End <= t.Vehicle.LatestEnd
}
