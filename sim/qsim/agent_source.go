package qsim

import (
	"fmt"

	"github.com/mobsim/mobsim/sim"
)

// PopulationAgentSource creates one agent per person through the QSim's agent
// factory and parks each person's vehicle on the departure link of its first
// network leg.
type PopulationAgentSource struct {
	population   *sim.Population
	networkModes map[string]bool
}

// NewPopulationAgentSource creates an agent source for pop.
func NewPopulationAgentSource(pop *sim.Population, networkModes []string) *PopulationAgentSource {
	modes := make(map[string]bool, len(networkModes))
	for _, m := range networkModes {
		modes[m] = true
	}
	return &PopulationAgentSource{population: pop, networkModes: modes}
}

// InsertAgentsIntoMobsim implements AgentSource.
func (s *PopulationAgentSource) InsertAgentsIntoMobsim(q *QSim) error {
	for _, p := range s.population.Persons() {
		a, err := q.AgentFactory().CreateAgent(p)
		if err != nil {
			return fmt.Errorf("creating agent %s: %w", p.ID, err)
		}
		q.InsertAgent(a)
		linkID, ok := s.firstDepartureLink(p.SelectedPlan())
		if !ok {
			continue
		}
		if err := q.ParkVehicle(a.VehicleID(), linkID); err != nil {
			return fmt.Errorf("parking vehicle of %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *PopulationAgentSource) firstDepartureLink(plan *sim.Plan) (sim.LinkID, bool) {
	if plan == nil {
		return "", false
	}
	for i := range plan.Elements {
		leg := plan.LegAt(i)
		if leg == nil || !s.networkModes[leg.Mode] {
			continue
		}
		if leg.Route != nil {
			return leg.Route.StartLinkID, true
		}
		if prev := plan.ActivityAt(i - 1); prev != nil {
			return prev.LinkID, true
		}
	}
	return "", false
}
