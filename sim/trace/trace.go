package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures guidance replans and parking-search steps.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during a simulation run.
// A nil *SimulationTrace accepts and drops all records.
type SimulationTrace struct {
	Config  TraceConfig
	Replans []ReplanRecord
	Parking []ParkingRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
// It returns nil for TraceLevelNone, so callers can record unconditionally.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	if config.Level == TraceLevelNone || config.Level == "" {
		return nil
	}
	return &SimulationTrace{
		Config:  config,
		Replans: make([]ReplanRecord, 0),
		Parking: make([]ParkingRecord, 0),
	}
}

// RecordReplan appends a guidance replan record.
func (st *SimulationTrace) RecordReplan(record ReplanRecord) {
	if st == nil {
		return
	}
	st.Replans = append(st.Replans, record)
}

// RecordParking appends a parking-search record.
func (st *SimulationTrace) RecordParking(record ParkingRecord) {
	if st == nil {
		return
	}
	st.Parking = append(st.Parking, record)
}
