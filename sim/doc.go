// Package sim holds the scenario kernel shared by every mobsim component:
// the road network, the synthetic population and its plans, simulation
// events and the synchronous events manager that dispatches them.
//
// # Reading Guide
//
// Start with these files:
//   - network.go: nodes and links, the graph every engine and router walks
//   - population.go: persons, plans, activities, legs and routes
//   - event.go / events_manager.go: event types and the dispatch bus
//   - config.go / scenario.go: YAML scenario loading and validation
//
// # Architecture
//
// The sim package defines data and small interfaces; behaviour lives in
// sub-packages:
//   - sim/qsim/: queue simulation, its engines and named component wiring
//   - sim/router/: least-cost path search with person-aware travel times
//   - sim/counter/: per-link vehicle accounting driven by events
//   - sim/filter/: event and person filters
//   - sim/guidance/: agent factory for route-guided (equipped) agents
//   - sim/parking/: parking search strategies and scoring
//   - sim/freight/: distribution-tour VRP solver factory
//   - sim/output/: event sinks (JSON lines, Parquet, Kafka, S3)
//   - sim/trace/: decision trace recording
//
// Time is simulation seconds after midnight, as float64. Times past 24:00:00
// are valid.
package sim
