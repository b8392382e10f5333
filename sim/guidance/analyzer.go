package guidance

import (
	"sort"
	"sync"

	"github.com/mobsim/mobsim/sim"
)

// Analyzer collects guidance statistics.
type Analyzer struct {
	mu      sync.Mutex
	guided  map[sim.PersonID]struct{}
	replans int
	changed int
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{guided: make(map[sim.PersonID]struct{})}
}

// AddGuidedPerson records an equipped person.
func (an *Analyzer) AddGuidedPerson(p *sim.Person) {
	an.mu.Lock()
	defer an.mu.Unlock()
	an.guided[p.ID] = struct{}{}
}

// AddReplan records a guidance request and whether it changed the route.
func (an *Analyzer) AddReplan(changed bool) {
	an.mu.Lock()
	defer an.mu.Unlock()
	an.replans++
	if changed {
		an.changed++
	}
}

// GuidedPersons returns the equipped persons sorted by id.
func (an *Analyzer) GuidedPersons() []sim.PersonID {
	an.mu.Lock()
	defer an.mu.Unlock()
	out := make([]sim.PersonID, 0, len(an.guided))
	for id := range an.guided {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsGuided reports whether a person is equipped.
func (an *Analyzer) IsGuided(id sim.PersonID) bool {
	an.mu.Lock()
	defer an.mu.Unlock()
	_, ok := an.guided[id]
	return ok
}

// Replans returns the number of guidance requests.
func (an *Analyzer) Replans() int {
	an.mu.Lock()
	defer an.mu.Unlock()
	return an.replans
}

// ChangedRoutes returns the number of requests that changed a route.
func (an *Analyzer) ChangedRoutes() int {
	an.mu.Lock()
	defer an.mu.Unlock()
	return an.changed
}
