package trace

import (
	"testing"
)

func TestNewSimulationTrace_LevelNone_ReturnsNil(t *testing.T) {
	// GIVEN tracing disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN records are added to the nil trace
	st.RecordReplan(ReplanRecord{PersonID: "p1"})
	st.RecordParking(ParkingRecord{PersonID: "p1"})

	// THEN nothing panics and the trace stays nil
	if st != nil {
		t.Fatalf("expected nil trace for level none, got %+v", st)
	}
}

func TestSimulationTrace_RecordReplan_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a replan record is recorded
	st.RecordReplan(ReplanRecord{
		PersonID: "p1",
		Time:     25200,
		LinkID:   "a",
		Changed:  true,
		OldLinks: 2,
		NewLinks: 3,
	})

	// THEN the trace contains one replan record with correct data
	if len(st.Replans) != 1 {
		t.Fatalf("expected 1 replan, got %d", len(st.Replans))
	}
	if st.Replans[0].PersonID != "p1" {
		t.Errorf("expected person p1, got %s", st.Replans[0].PersonID)
	}
	if !st.Replans[0].Changed {
		t.Error("expected changed=true")
	}
}

func TestSimulationTrace_RecordParking_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN multiple parking steps are added
	st.RecordParking(ParkingRecord{PersonID: "p1", Time: 100, LinkID: "c", Action: ParkingActionExtend})
	st.RecordParking(ParkingRecord{PersonID: "p1", Time: 200, LinkID: "dr", Action: ParkingActionExtend})
	st.RecordParking(ParkingRecord{PersonID: "p1", Time: 300, LinkID: "cb", Action: ParkingActionPark, FacilityID: "f1"})

	// THEN order is preserved
	if len(st.Parking) != 3 {
		t.Fatalf("expected 3 parking records, got %d", len(st.Parking))
	}
	if st.Parking[0].LinkID != "c" || st.Parking[2].LinkID != "cb" {
		t.Error("parking records out of order")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
		}
	}
}
