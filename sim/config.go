package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mobsim/mobsim/sim/trace"
)

// Config represents a full scenario YAML file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Seed       int64          `yaml:"seed"`
	QSim       QSimConfig     `yaml:"qsim"`
	Network    NetworkConfig  `yaml:"network"`
	Population []PersonConfig `yaml:"population"`
	Routing    RoutingConfig  `yaml:"routing"`
	Counter    CounterConfig  `yaml:"counter"`
	Guidance   GuidanceConfig `yaml:"guidance"`
	Parking    ParkingConfig  `yaml:"parking"`
	Output     OutputConfig   `yaml:"output"`
	Trace      string         `yaml:"trace"` // "none" (default) or "decisions"
	Freight    FreightConfig  `yaml:"freight"`
}

// QSimConfig groups queue simulation parameters.
type QSimConfig struct {
	StartTime             string           `yaml:"start_time"`              // HH:MM:SS, default 00:00:00
	EndTime               string           `yaml:"end_time"`                // HH:MM:SS, default 30:00:00
	TimeStep              float64          `yaml:"time_step"`               // seconds per sim step (default 1)
	FlowCapacityFactor    float64          `yaml:"flow_capacity_factor"`    // scales link flow capacity (default 1)
	StorageCapacityFactor float64          `yaml:"storage_capacity_factor"` // scales link storage capacity (default 1)
	StuckTime             float64          `yaml:"stuck_time"`              // seconds at a buffer head before a vehicle counts as stuck (default 10)
	RemoveStuckVehicles   bool             `yaml:"remove_stuck_vehicles"`   // false = push stuck vehicles through
	NetworkModes          []string         `yaml:"network_modes"`           // modes simulated on the network (default [car])
	Components            ComponentsConfig `yaml:"components"`

	Start float64 `yaml:"-"` // parsed StartTime
	End   float64 `yaml:"-"` // parsed EndTime
}

// ComponentsConfig lists the active named QSim components in activation order.
// Empty lists select the standard components.
type ComponentsConfig struct {
	Engines           []string `yaml:"engines"`
	ActivityHandlers  []string `yaml:"activity_handlers"`
	DepartureHandlers []string `yaml:"departure_handlers"`
	AgentSources      []string `yaml:"agent_sources"`
}

// NetworkConfig describes the road network.
type NetworkConfig struct {
	Nodes []NodeConfig `yaml:"nodes"`
	Links []LinkConfig `yaml:"links"`
}

type NodeConfig struct {
	ID string  `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

type LinkConfig struct {
	ID        string  `yaml:"id"`
	From      string  `yaml:"from"`
	To        string  `yaml:"to"`
	Length    float64 `yaml:"length"`    // meters
	FreeSpeed float64 `yaml:"freespeed"` // m/s
	Capacity  float64 `yaml:"capacity"`  // veh/h
	Lanes     float64 `yaml:"lanes"`
}

// PersonConfig describes one person and its single plan.
type PersonConfig struct {
	ID         string              `yaml:"id"`
	KnownLinks []string            `yaml:"known_links"` // empty = knows the whole network
	Plan       []PlanElementConfig `yaml:"plan"`
}

// PlanElementConfig holds exactly one of Activity or Leg.
type PlanElementConfig struct {
	Activity *ActivityConfig `yaml:"activity"`
	Leg      *LegConfig      `yaml:"leg"`
}

type ActivityConfig struct {
	Type     string   `yaml:"type"`
	Link     string   `yaml:"link"`
	X        *float64 `yaml:"x"` // defaults to the link midpoint
	Y        *float64 `yaml:"y"`
	Facility string   `yaml:"facility"`
	EndTime  string   `yaml:"end_time"`
	Duration string   `yaml:"duration"`
}

type LegConfig struct {
	Mode       string   `yaml:"mode"`
	Route      []string `yaml:"route"`       // start link, intermediate links, end link
	TravelTime string   `yaml:"travel_time"` // teleported legs
}

// RoutingConfig groups plan routing parameters.
type RoutingConfig struct {
	PtSpeedFactor        float64            `yaml:"pt_speed_factor"`        // pt travel time = factor × car free-flow time (default 2)
	BeelineFactor        float64            `yaml:"beeline_factor"`         // teleported distance = factor × beeline (default 1.3)
	TeleportedModeSpeeds map[string]float64 `yaml:"teleported_mode_speeds"` // m/s per mode
	Workers              int                `yaml:"workers"`                // parallel routing workers (default 4)
	RouteAll             bool               `yaml:"route_all"`              // reroute legs that already have a route
	UseKnowledge         bool               `yaml:"use_knowledge"`          // restrict car routes to known links
}

// CounterConfig controls the link vehicles counter.
type CounterConfig struct {
	Enabled    bool    `yaml:"enabled"`
	InfoPeriod float64 `yaml:"info_period"` // seconds between consistency checks (default 3600)
}

// GuidanceConfig controls route-guided agents.
type GuidanceConfig struct {
	Enabled           bool     `yaml:"enabled"`
	EquipmentFraction *float64 `yaml:"equipment_fraction"` // default 0.05
	IncidentLinks     []string `yaml:"incident_links"`     // links guidance treats as blocked
}

// ParkingConfig controls parking search.
type ParkingConfig struct {
	Enabled           bool                    `yaml:"enabled"`
	Strategy          string                  `yaml:"strategy"`             // "random" (default)
	MaxDistance       float64                 `yaml:"max_distance"`         // meters around the destination (default 300)
	ParkingType       string                  `yaml:"parking_type"`         // facility type filter, empty = any
	SearchCostPerHour float64                 `yaml:"search_cost_per_hour"` // default 6
	WalkCostPerHour   float64                 `yaml:"walk_cost_per_hour"`   // default 6
	Facilities        []ParkingFacilityConfig `yaml:"facilities"`
}

type ParkingFacilityConfig struct {
	ID         string  `yaml:"id"`
	Link       string  `yaml:"link"`
	Capacity   int     `yaml:"capacity"`
	Type       string  `yaml:"type"`
	HourlyRate float64 `yaml:"hourly_rate"`
}

// OutputConfig selects event sinks.
type OutputConfig struct {
	EventsFile  string      `yaml:"events_file"`  // JSON lines
	ParquetFile string      `yaml:"parquet_file"` // Parquet
	Kafka       KafkaConfig `yaml:"kafka"`
	S3          S3Config    `yaml:"s3"`

	// Event selection applied to every sink. Empty lists select everything.
	Persons      []string `yaml:"persons"`       // record only these persons
	EventTypes   []string `yaml:"event_types"`   // record only these event types
	ExcludeLinks []string `yaml:"exclude_links"` // drop persons whose plan uses these links
	ExcludeNodes []string `yaml:"exclude_nodes"` // drop persons whose routes pass these nodes
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// FreightConfig describes a carrier's distribution problem.
type FreightConfig struct {
	Iterations       int                    `yaml:"iterations"`        // default 200
	WarmupIterations int                    `yaml:"warmup_iterations"` // default 20
	CostPerSecond    float64                `yaml:"cost_per_second"`   // default 1
	CostPerMeter     float64                `yaml:"cost_per_meter"`
	Vehicles         []CarrierVehicleConfig `yaml:"vehicles"`
	Shipments        []ShipmentConfig       `yaml:"shipments"`
}

type CarrierVehicleConfig struct {
	ID            string `yaml:"id"`
	Location      string `yaml:"location"`
	Capacity      int    `yaml:"capacity"`
	EarliestStart string `yaml:"earliest_start"`
	LatestEnd     string `yaml:"latest_end"`
}

type ShipmentConfig struct {
	ID                  string  `yaml:"id"`
	From                string  `yaml:"from"`
	To                  string  `yaml:"to"`
	Size                int     `yaml:"size"`
	PickupStart         string  `yaml:"pickup_start"`
	PickupEnd           string  `yaml:"pickup_end"`
	DeliveryStart       string  `yaml:"delivery_start"`
	DeliveryEnd         string  `yaml:"delivery_end"`
	PickupServiceTime   float64 `yaml:"pickup_service_time"`
	DeliveryServiceTime float64 `yaml:"delivery_service_time"`
}

// ValidParkingStrategies is the set of recognized parking strategy names.
var ValidParkingStrategies = map[string]bool{"": true, "random": true}

// LoadConfig reads a scenario YAML file, applies defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes scenario YAML with strict field checking, applies
// defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	q := &c.QSim
	if q.StartTime == "" {
		q.StartTime = "00:00:00"
	}
	if q.EndTime == "" {
		q.EndTime = "30:00:00"
	}
	if q.TimeStep == 0 {
		q.TimeStep = 1
	}
	if q.FlowCapacityFactor == 0 {
		q.FlowCapacityFactor = 1
	}
	if q.StorageCapacityFactor == 0 {
		q.StorageCapacityFactor = 1
	}
	if q.StuckTime == 0 {
		q.StuckTime = 10
	}
	if len(q.NetworkModes) == 0 {
		q.NetworkModes = []string{ModeCar}
	}

	r := &c.Routing
	if r.PtSpeedFactor == 0 {
		r.PtSpeedFactor = 2
	}
	if r.BeelineFactor == 0 {
		r.BeelineFactor = 1.3
	}
	if r.TeleportedModeSpeeds == nil {
		r.TeleportedModeSpeeds = make(map[string]float64)
	}
	if _, ok := r.TeleportedModeSpeeds[ModeWalk]; !ok {
		r.TeleportedModeSpeeds[ModeWalk] = 3.0 / 3.6
	}
	if _, ok := r.TeleportedModeSpeeds[ModeBike]; !ok {
		r.TeleportedModeSpeeds[ModeBike] = 15.0 / 3.6
	}
	if r.Workers == 0 {
		r.Workers = 4
	}

	if c.Counter.InfoPeriod == 0 {
		c.Counter.InfoPeriod = 3600
	}
	if c.Guidance.EquipmentFraction == nil {
		f := 0.05
		c.Guidance.EquipmentFraction = &f
	}

	p := &c.Parking
	if p.Strategy == "" {
		p.Strategy = "random"
	}
	if p.MaxDistance == 0 {
		p.MaxDistance = 300
	}
	if p.SearchCostPerHour == 0 {
		p.SearchCostPerHour = 6
	}
	if p.WalkCostPerHour == 0 {
		p.WalkCostPerHour = 6
	}

	if c.Trace == "" {
		c.Trace = string(trace.TraceLevelNone)
	}

	f := &c.Freight
	if f.Iterations == 0 {
		f.Iterations = 200
	}
	if f.WarmupIterations == 0 {
		f.WarmupIterations = 20
	}
	if f.CostPerSecond == 0 {
		f.CostPerSecond = 1
	}
}

// Validate checks parameter ranges and parses time fields.
func (c *Config) Validate() error {
	var err error
	q := &c.QSim
	if q.Start, err = ParseTime(q.StartTime); err != nil {
		return fmt.Errorf("qsim.start_time: %w", err)
	}
	if q.End, err = ParseTime(q.EndTime); err != nil {
		return fmt.Errorf("qsim.end_time: %w", err)
	}
	if q.End <= q.Start {
		return fmt.Errorf("qsim.end_time %s must be after start_time %s", q.EndTime, q.StartTime)
	}
	if q.TimeStep <= 0 {
		return fmt.Errorf("qsim.time_step must be > 0, got %v", q.TimeStep)
	}
	if q.FlowCapacityFactor <= 0 || q.StorageCapacityFactor <= 0 {
		return fmt.Errorf("qsim capacity factors must be > 0")
	}
	if q.StuckTime <= 0 {
		return fmt.Errorf("qsim.stuck_time must be > 0, got %v", q.StuckTime)
	}
	if c.Routing.PtSpeedFactor <= 0 || c.Routing.BeelineFactor <= 0 {
		return fmt.Errorf("routing factors must be > 0")
	}
	for mode, speed := range c.Routing.TeleportedModeSpeeds {
		if speed <= 0 {
			return fmt.Errorf("routing.teleported_mode_speeds[%s] must be > 0, got %v", mode, speed)
		}
	}
	if c.Routing.Workers < 1 {
		return fmt.Errorf("routing.workers must be >= 1, got %d", c.Routing.Workers)
	}
	if p := c.Counter.InfoPeriod; p < 1 || p != math.Trunc(p) {
		return fmt.Errorf("counter.info_period must be a whole number of seconds >= 1, got %v", p)
	}
	if f := *c.Guidance.EquipmentFraction; f < 0 || f > 1 {
		return fmt.Errorf("guidance.equipment_fraction must be in [0,1], got %v", f)
	}
	if !ValidParkingStrategies[c.Parking.Strategy] {
		return fmt.Errorf("unknown parking strategy %q", c.Parking.Strategy)
	}
	if c.Parking.MaxDistance < 0 {
		return fmt.Errorf("parking.max_distance must be >= 0, got %v", c.Parking.MaxDistance)
	}
	for _, t := range c.Output.EventTypes {
		if !ValidEventTypes[t] {
			return fmt.Errorf("output.event_types: unknown event type %q", t)
		}
	}
	if !trace.IsValidTraceLevel(c.Trace) {
		return fmt.Errorf("unknown trace level %q", c.Trace)
	}
	if c.Freight.Iterations < 0 || c.Freight.WarmupIterations < 0 {
		return fmt.Errorf("freight iterations must be >= 0")
	}
	if c.Freight.CostPerSecond < 0 || c.Freight.CostPerMeter < 0 {
		return fmt.Errorf("freight costs must be >= 0, got cost_per_second %v, cost_per_meter %v",
			c.Freight.CostPerSecond, c.Freight.CostPerMeter)
	}
	return nil
}
