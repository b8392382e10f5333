package qsim

import (
	"fmt"

	"github.com/mobsim/mobsim/sim"
)

// AgentFactory creates the agent executing a person's plan.
type AgentFactory interface {
	CreateAgent(p *sim.Person) (*Agent, error)
}

// AgentFactoryFunc adapts a function to AgentFactory.
type AgentFactoryFunc func(p *sim.Person) (*Agent, error)

// CreateAgent implements AgentFactory.
func (f AgentFactoryFunc) CreateAgent(p *sim.Person) (*Agent, error) { return f(p) }

// DefaultAgentFactory creates plain agents without hooks.
type DefaultAgentFactory struct{}

// CreateAgent implements AgentFactory.
func (DefaultAgentFactory) CreateAgent(p *sim.Person) (*Agent, error) {
	if p.SelectedPlan() == nil {
		return nil, fmt.Errorf("person %s has no selected plan", p.ID)
	}
	return NewAgent(p), nil
}
