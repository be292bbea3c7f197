package hsatest

import "github.com/wippyai/hsa-runtime/hsa"

// Agent is a fake accelerator with a fixed architecture key.
type Agent struct {
	name string
	isa  hsa.ISA
}

// NewAgent returns an agent reporting the given name and ISA.
func NewAgent(name string, isa hsa.ISA) *Agent {
	return &Agent{name: name, isa: isa}
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) ISA() hsa.ISA { return a.isa }

// Source is a fixed hsa.AgentSource.
type Source struct {
	agents []hsa.Agent
	err    error
}

// NewSource returns a source enumerating the given agents.
func NewSource(agents ...hsa.Agent) *Source {
	return &Source{agents: agents}
}

// NewFailingSource returns a source whose enumeration fails.
func NewFailingSource(err error) *Source {
	return &Source{err: err}
}

func (s *Source) Agents() ([]hsa.Agent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.agents, nil
}
