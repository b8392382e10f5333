package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalReplans         int
	ChangedRoutes        int
	GuidedPersons        int
	ParkedVehicles       int
	SearchExtensions     int
	MeanSearchDuration   float64
	MaxSearchDuration    float64
	UniqueFacilities     int
	FacilityDistribution map[string]int // facility ID → vehicles parked
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		FacilityDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalReplans = len(st.Replans)
	guided := make(map[string]struct{})
	for _, r := range st.Replans {
		guided[r.PersonID] = struct{}{}
		if r.Changed {
			summary.ChangedRoutes++
		}
	}
	summary.GuidedPersons = len(guided)

	totalSearch := 0.0
	for _, p := range st.Parking {
		switch p.Action {
		case ParkingActionExtend:
			summary.SearchExtensions++
		case ParkingActionPark:
			summary.ParkedVehicles++
			summary.FacilityDistribution[p.FacilityID]++
			totalSearch += p.SearchDuration
			if p.SearchDuration > summary.MaxSearchDuration {
				summary.MaxSearchDuration = p.SearchDuration
			}
		}
	}
	if summary.ParkedVehicles > 0 {
		summary.MeanSearchDuration = totalSearch / float64(summary.ParkedVehicles)
	}

	summary.UniqueFacilities = len(summary.FacilityDistribution)

	return summary
}
