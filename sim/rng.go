package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible run: the same key and scenario
// produce the same event stream.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Subsystems drawing random numbers.
const (
	// SubsystemGuidance draws route-guidance equipment.
	SubsystemGuidance = "guidance"

	// SubsystemParking draws random search directions.
	SubsystemParking = "parking"

	// SubsystemFreight drives ruin-and-recreate.
	SubsystemFreight = "freight"
)

// PartitionedRNG hands out one isolated stream per subsystem, seeded with
// key XOR fnv1a64(name), so adding draws in one subsystem leaves the others
// unchanged. Not safe for concurrent use.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the stream of name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derivedSeed := int64(p.key) ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the run key.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
