package guidance

import "github.com/mobsim/mobsim/sim/qsim"

// Contentment tells whether an agent is satisfied with its current route.
// Negative values make the agent replan.
type Contentment interface {
	Contentment(a *qsim.Agent, now float64) float64
}

// ForceReplan is never content.
type ForceReplan struct{}

// Contentment implements Contentment.
func (ForceReplan) Contentment(*qsim.Agent, float64) float64 { return -1 }

// PreventReplan is always content.
type PreventReplan struct{}

// Contentment implements Contentment.
func (PreventReplan) Contentment(*qsim.Agent, float64) float64 { return 1 }
