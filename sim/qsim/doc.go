// Package qsim implements a queue-based mobility simulation with pluggable
// engines.
//
// A QSim advances a fixed-step clock. On every step each MobsimEngine runs
// DoSimStep in activation order; activity handlers hold agents that perform
// activities, departure handlers take agents that start a leg. The standard
// engines are:
//   - ActivityEngine: ends activities at their end time
//   - NetsimEngine: moves vehicles through FIFO link queues
//   - TeleportationEngine: moves non-network legs by travel time alone
//
// Components are named and wired through a Provider: modules register
// factories on a Binder, the configuration selects which names are active and
// in which order.
package qsim
