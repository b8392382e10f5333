package parking

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// Facility is a set of parking spaces on a link.
type Facility struct {
	ID         sim.FacilityID
	LinkID     sim.LinkID
	Capacity   int
	Type       string
	HourlyRate float64
}

// Manager tracks facility occupancy and where each vehicle is parked.
type Manager struct {
	mu         sync.Mutex
	facilities map[sim.FacilityID]*Facility
	byLink     map[sim.LinkID][]*Facility
	occupancy  map[sim.FacilityID]int
	parkedAt   map[sim.VehicleID]sim.FacilityID
}

// NewManager creates a manager. Facilities on the same link are searched in
// the given order.
func NewManager(facilities []*Facility) (*Manager, error) {
	m := &Manager{
		facilities: make(map[sim.FacilityID]*Facility, len(facilities)),
		byLink:     make(map[sim.LinkID][]*Facility),
		occupancy:  make(map[sim.FacilityID]int),
		parkedAt:   make(map[sim.VehicleID]sim.FacilityID),
	}
	for _, f := range facilities {
		if _, dup := m.facilities[f.ID]; dup {
			return nil, fmt.Errorf("parking facility %s already exists", f.ID)
		}
		if f.Capacity <= 0 {
			return nil, fmt.Errorf("parking facility %s: capacity must be positive, got %d", f.ID, f.Capacity)
		}
		m.facilities[f.ID] = f
		m.byLink[f.LinkID] = append(m.byLink[f.LinkID], f)
	}
	return m, nil
}

// NewManagerFromConfig builds facilities from the scenario and checks that
// their links exist.
func NewManagerFromConfig(cfg sim.ParkingConfig, net *sim.Network) (*Manager, error) {
	facilities := make([]*Facility, 0, len(cfg.Facilities))
	for _, fc := range cfg.Facilities {
		if net.Link(sim.LinkID(fc.Link)) == nil {
			return nil, fmt.Errorf("parking facility %s: unknown link %s", fc.ID, fc.Link)
		}
		facilities = append(facilities, &Facility{
			ID:         sim.FacilityID(fc.ID),
			LinkID:     sim.LinkID(fc.Link),
			Capacity:   fc.Capacity,
			Type:       fc.Type,
			HourlyRate: fc.HourlyRate,
		})
	}
	m, err := NewManager(facilities)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Parking: %d facilities on %d links", len(facilities), len(m.byLink))
	return m, nil
}

// Facility returns the facility with the given id, or nil.
func (m *Manager) Facility(id sim.FacilityID) *Facility {
	return m.facilities[id]
}

// FreeFacilityOnLink returns the first facility on the link with a free space
// and matching type; an empty type matches every facility.
func (m *Manager) FreeFacilityOnLink(id sim.LinkID, parkingType string) *Facility {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.byLink[id] {
		if parkingType != "" && f.Type != parkingType {
			continue
		}
		if m.occupancy[f.ID] < f.Capacity {
			return f
		}
	}
	return nil
}

// Park puts a vehicle into a facility.
func (m *Manager) Park(vehicle sim.VehicleID, id sim.FacilityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facilities[id]
	if !ok {
		return fmt.Errorf("unknown parking facility %s", id)
	}
	if cur, parked := m.parkedAt[vehicle]; parked {
		return fmt.Errorf("vehicle %s is already parked at %s", vehicle, cur)
	}
	if m.occupancy[id] >= f.Capacity {
		return fmt.Errorf("parking facility %s is full", id)
	}
	m.occupancy[id]++
	m.parkedAt[vehicle] = id
	return nil
}

// Unpark frees the space of a vehicle. It reports the facility the vehicle
// left, if any.
func (m *Manager) Unpark(vehicle sim.VehicleID) (sim.FacilityID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.parkedAt[vehicle]
	if !ok {
		return "", false
	}
	delete(m.parkedAt, vehicle)
	m.occupancy[id]--
	return id, true
}

// CurrentFacility returns where a vehicle is parked.
func (m *Manager) CurrentFacility(vehicle sim.VehicleID) (sim.FacilityID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.parkedAt[vehicle]
	return id, ok
}

// Occupancy returns the number of vehicles parked at a facility.
func (m *Manager) Occupancy(id sim.FacilityID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupancy[id]
}

// FacilityIDs returns all facility ids, sorted.
func (m *Manager) FacilityIDs() []sim.FacilityID {
	ids := make([]sim.FacilityID, 0, len(m.facilities))
	for id := range m.facilities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Reset empties every facility.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupancy = make(map[sim.FacilityID]int)
	m.parkedAt = make(map[sim.VehicleID]sim.FacilityID)
}
