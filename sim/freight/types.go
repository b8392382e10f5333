package freight

import (
	"fmt"
	"math"

	"github.com/mobsim/mobsim/sim"
)

// TimeWindow is an interval of allowed service start times.
type TimeWindow struct {
	Start float64
	End   float64
}

// OpenTimeWindow places no restriction.
var OpenTimeWindow = TimeWindow{Start: 0, End: math.MaxFloat64}

// Shipment is a load to carry from one link to another.
type Shipment struct {
	ID                  string
	From                sim.LinkID
	To                  sim.LinkID
	Size                int
	PickupTimeWindow    TimeWindow
	DeliveryTimeWindow  TimeWindow
	PickupServiceTime   float64
	DeliveryServiceTime float64
}

// CarrierVehicle is a vehicle starting and ending its tour at Location.
type CarrierVehicle struct {
	ID            string
	Location      sim.LinkID
	Capacity      int
	EarliestStart float64
	LatestEnd     float64
}

// FromConfig converts the scenario's freight section. Links must exist in
// net.
func FromConfig(cfg sim.FreightConfig, net *sim.Network) ([]*Shipment, []*CarrierVehicle, error) {
	vehicles := make([]*CarrierVehicle, 0, len(cfg.Vehicles))
	for _, vc := range cfg.Vehicles {
		if net.Link(sim.LinkID(vc.Location)) == nil {
			return nil, nil, fmt.Errorf("vehicle %s: unknown location %s", vc.ID, vc.Location)
		}
		window, err := parseWindow(vc.EarliestStart, vc.LatestEnd)
		if err != nil {
			return nil, nil, fmt.Errorf("vehicle %s: %w", vc.ID, err)
		}
		vehicles = append(vehicles, &CarrierVehicle{
			ID:            vc.ID,
			Location:      sim.LinkID(vc.Location),
			Capacity:      vc.Capacity,
			EarliestStart: window.Start,
			LatestEnd:     window.End,
		})
	}
	shipments := make([]*Shipment, 0, len(cfg.Shipments))
	for _, sc := range cfg.Shipments {
		for _, l := range []string{sc.From, sc.To} {
			if net.Link(sim.LinkID(l)) == nil {
				return nil, nil, fmt.Errorf("shipment %s: unknown link %s", sc.ID, l)
			}
		}
		pickup, err := parseWindow(sc.PickupStart, sc.PickupEnd)
		if err != nil {
			return nil, nil, fmt.Errorf("shipment %s pickup: %w", sc.ID, err)
		}
		delivery, err := parseWindow(sc.DeliveryStart, sc.DeliveryEnd)
		if err != nil {
			return nil, nil, fmt.Errorf("shipment %s delivery: %w", sc.ID, err)
		}
		shipments = append(shipments, &Shipment{
			ID:                  sc.ID,
			From:                sim.LinkID(sc.From),
			To:                  sim.LinkID(sc.To),
			Size:                sc.Size,
			PickupTimeWindow:    pickup,
			DeliveryTimeWindow:  delivery,
			PickupServiceTime:   sc.PickupServiceTime,
			DeliveryServiceTime: sc.DeliveryServiceTime,
		})
	}
	return shipments, vehicles, nil
}

func parseWindow(start, end string) (TimeWindow, error) {
	w := OpenTimeWindow
	s, err := sim.ParseTime(start)
	if err != nil {
		return w, err
	}
	e, err := sim.ParseTime(end)
	if err != nil {
		return w, err
	}
	if sim.IsDefined(s) {
		w.Start = s
	}
	if sim.IsDefined(e) {
		w.End = e
	}
	if w.End < w.Start {
		return w, fmt.Errorf("time window ends before it starts")
	}
	return w, nil
}
