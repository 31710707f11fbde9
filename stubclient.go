package surveillance

import "sync"

type (
	// StubProject is the scriptable state behind one resource in a StubClient.
	// A non-nil Err makes every query for this project fail.
	StubProject struct {
		Name   string
		Status string
		Nodes  []Node
		Stats  map[string]*NodeStats
		Err    error
	}

	// StubClient is a ResourceClient and ResourceRepository with stubbed
	// methods for testing. Errors are injected per operation and calls with
	// side effects are recorded.
	StubClient struct {
		mu       sync.Mutex
		projects map[string]*StubProject

		ListErr   error
		StatsErr  error
		StatusErr error
		OpenErr   error
		StartErr  error

		OpenCalls  []string
		StartCalls []string
	}
)

// NewStubClient creates a new StubClient with no projects
func NewStubClient() *StubClient {
	return &StubClient{
		projects: make(map[string]*StubProject),
	}
}

// AddProject registers a scriptable project under resourceID
func (c *StubClient) AddProject(resourceID string, p *StubProject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.Stats == nil {
		p.Stats = make(map[string]*NodeStats)
	}
	c.projects[resourceID] = p
}

func (c *StubClient) project(resourceID string) (*StubProject, error) {
	p, ok := c.projects[resourceID]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p, nil
}

// SetProjectError makes every query for resourceID fail with err, simulating
// an unreachable or broken project. A nil err heals it.
func (c *StubClient) SetProjectError(resourceID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.projects[resourceID]; ok {
		p.Err = err
	}
}

// ListNodes is a stub for retrieving a resource's nodes
func (c *StubClient) ListNodes(resourceID string) ([]Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ListErr != nil {
		return nil, c.ListErr
	}
	p, err := c.project(resourceID)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, len(p.Nodes))
	copy(nodes, p.Nodes)
	return nodes, nil
}

// GetNodeStats is a stub for retrieving one node's interface counters
func (c *StubClient) GetNodeStats(resourceID, nodeID string) (*NodeStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.StatsErr != nil {
		return nil, c.StatsErr
	}
	p, err := c.project(resourceID)
	if err != nil {
		return nil, err
	}
	stats, ok := p.Stats[nodeID]
	if !ok {
		return &NodeStats{NodeID: nodeID, Interfaces: map[string]InterfaceStats{}}, nil
	}
	return stats, nil
}

// Open is a stub for opening a resource. It records the call and flips the
// stubbed status.
func (c *StubClient) Open(resourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.OpenErr != nil {
		return c.OpenErr
	}
	p, err := c.project(resourceID)
	if err != nil {
		return err
	}
	p.Status = StatusOpened
	c.OpenCalls = append(c.OpenCalls, resourceID)
	return nil
}

// StartNode is a stub for starting a node. It records the call and flips the
// stubbed node status.
func (c *StubClient) StartNode(resourceID, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.StartErr != nil {
		return c.StartErr
	}
	p, err := c.project(resourceID)
	if err != nil {
		return err
	}
	for i := range p.Nodes {
		if p.Nodes[i].ID == nodeID {
			p.Nodes[i].Status = NodeStarted
		}
	}
	c.StartCalls = append(c.StartCalls, resourceID+"/"+nodeID)
	return nil
}

// Status is a stub for reporting whether a resource is opened
func (c *StubClient) Status(resourceID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.StatusErr != nil {
		return "", c.StatusErr
	}
	p, err := c.project(resourceID)
	if err != nil {
		return "", err
	}
	return p.Status, nil
}

// Exists is a stub existence check
func (c *StubClient) Exists(resourceID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.projects[resourceID]
	return ok, nil
}

// Name is a stub name lookup
func (c *StubClient) Name(resourceID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.project(resourceID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}
