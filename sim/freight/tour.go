package freight

import (
	"fmt"
	"math"
	"strings"

	"github.com/mobsim/mobsim/sim"
)

// ActivityKind distinguishes pickups from deliveries.
type ActivityKind int

const (
	Pickup ActivityKind = iota
	Delivery
)

func (k ActivityKind) String() string {
	if k == Pickup {
		return "pickup"
	}
	return "delivery"
}

// TourActivity is a scheduled pickup or delivery.
type TourActivity struct {
	Kind     ActivityKind
	Shipment *Shipment
	Arrival  float64
	Start    float64
	End      float64
	Load     int // load after the activity
}

// Location returns the link the activity takes place on.
func (a *TourActivity) Location() sim.LinkID {
	if a.Kind == Pickup {
		return a.Shipment.From
	}
	return a.Shipment.To
}

// TimeWindow returns the activity's allowed start times.
func (a *TourActivity) TimeWindow() TimeWindow {
	if a.Kind == Pickup {
		return a.Shipment.PickupTimeWindow
	}
	return a.Shipment.DeliveryTimeWindow
}

func (a *TourActivity) serviceTime() float64 {
	if a.Kind == Pickup {
		return a.Shipment.PickupServiceTime
	}
	return a.Shipment.DeliveryServiceTime
}

// Tour is the schedule of one vehicle, starting and ending at its location.
type Tour struct {
	Vehicle    *CarrierVehicle
	Activities []*TourActivity
	Start      float64
	End        float64
	Cost       float64
}

// Schedule computes arrival, start and end times, loads and transport cost of
// the activities in their current order. Activities wait for their time
// window to open.
func (t *Tour) Schedule(costs Costs) {
	now := t.Vehicle.EarliestStart
	loc := t.Vehicle.Location
	load := 0
	t.Start = now
	t.Cost = 0
	for _, a := range t.Activities {
		to := a.Location()
		t.Cost += costs.TransportCost(loc, to, now)
		a.Arrival = now + costs.TransportTime(loc, to, now)
		a.Start = math.Max(a.Arrival, a.TimeWindow().Start)
		a.End = a.Start + a.serviceTime()
		if a.Kind == Pickup {
			load += a.Shipment.Size
		} else {
			load -= a.Shipment.Size
		}
		a.Load = load
		now, loc = a.End, to
	}
	t.Cost += costs.TransportCost(loc, t.Vehicle.Location, now)
	t.End = now + costs.TransportTime(loc, t.Vehicle.Location, now)
}

// Shipments returns the shipments on the tour, in pickup order.
func (t *Tour) Shipments() []*Shipment {
	var out []*Shipment
	for _, a := range t.Activities {
		if a.Kind == Pickup {
			out = append(out, a.Shipment)
		}
	}
	return out
}

func (t *Tour) clone() *Tour {
	c := *t
	c.Activities = make([]*TourActivity, len(t.Activities))
	for i, a := range t.Activities {
		cp := *a
		c.Activities[i] = &cp
	}
	return &c
}

func (t *Tour) remove(s *Shipment) bool {
	kept := t.Activities[:0]
	removed := false
	for _, a := range t.Activities {
		if a.Shipment == s {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	t.Activities = kept
	return removed
}

func (t *Tour) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s-%s] cost=%.1f:", t.Vehicle.ID, sim.FormatTime(t.Start), sim.FormatTime(t.End), t.Cost)
	for _, a := range t.Activities {
		fmt.Fprintf(&b, " %s(%s@%s)", a.Kind, a.Shipment.ID, sim.FormatTime(a.Start))
	}
	return b.String()
}

// Solution is a set of tours plus the shipments no vehicle could take.
type Solution struct {
	Tours      []*Tour
	Unassigned []*Shipment
}

// UnassignedPenalty is added to the cost of a solution per unassigned shipment.
const UnassignedPenalty = 1e6

// Cost returns the total tour cost plus the penalty for unassigned shipments.
func (s *Solution) Cost() float64 {
	total := 0.0
	for _, t := range s.Tours {
		if len(t.Activities) > 0 {
			total += t.Cost
		}
	}
	return total + float64(len(s.Unassigned))*UnassignedPenalty
}

// UsedTours returns the tours that serve at least one shipment.
func (s *Solution) UsedTours() []*Tour {
	var out []*Tour
	for _, t := range s.Tours {
		if len(t.Activities) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func (s *Solution) clone() *Solution {
	c := &Solution{Tours: make([]*Tour, len(s.Tours)), Unassigned: append([]*Shipment(nil), s.Unassigned...)}
	for i, t := range s.Tours {
		c.Tours[i] = t.clone()
	}
	return c
}
