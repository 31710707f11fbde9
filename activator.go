package surveillance

import "errors"

type (
	// ActivationResult records what one activation actually did. A resource
	// with some nodes failed to start is still considered activated; the
	// failures are reported here instead of retried.
	ActivationResult struct {
		ResourceID    string            `json:"resource_id"`
		AlreadyActive bool              `json:"already_active"`
		Opened        bool              `json:"opened"`
		Started       []string          `json:"started"`
		Failed        map[string]string `json:"failed,omitempty"`
	}

	// Activator performs the side-effecting promotion of a selection: it
	// marks it active in the store, then opens the resource and starts its
	// nodes through the client.
	Activator struct {
		ctx    *Context
		client ResourceClient
	}
)

// NewActivator creates an Activator within the context
func (c *Context) NewActivator(client ResourceClient) *Activator {
	return &Activator{
		ctx:    c,
		client: client,
	}
}

// Activate promotes target to the single active selection. It is a no-op for
// an already active target. The store transition happens first; if it fails
// the previous active selection is left untouched. A failure while opening or
// starting afterwards leaves the selection marked active, since a resource
// can be legitimately active but still starting, and is surfaced to the
// caller instead of rolled back.
func (a *Activator) Activate(target *Selection) (*ActivationResult, error) {
	if target == nil {
		return nil, errors.New("no selection to activate")
	}

	result := &ActivationResult{
		ResourceID: target.ResourceID,
		Failed:     map[string]string{},
	}

	if target.IsActive {
		result.AlreadyActive = true
		return result, nil
	}

	if err := a.ctx.SetActive(target.ResourceID); err != nil {
		return nil, err
	}
	target.IsActive = true

	// the client already returns typed errors; pass them through so a
	// transport failure stays a ConnectionError
	status, err := a.client.Status(target.ResourceID)
	if err != nil {
		return result, err
	}
	if status != StatusOpened {
		if err := a.client.Open(target.ResourceID); err != nil {
			return result, err
		}
		result.Opened = true
	}

	nodes, err := a.client.ListNodes(target.ResourceID)
	if err != nil {
		return result, err
	}

	for _, node := range nodes {
		if node.Status == NodeStarted {
			continue
		}
		if err := a.client.StartNode(target.ResourceID, node.ID); err != nil {
			result.Failed[node.ID] = err.Error()
			continue
		}
		result.Started = append(result.Started, node.ID)
	}

	return result, nil
}

// Deactivate clears the active flag on every selection
func (a *Activator) Deactivate() error {
	return a.ctx.SetActive("")
}

// SwitchToNextPriority promotes the best auto-activate selection by priority
// alone, ignoring observed activity. It returns the activation result, or
// (nil, nil) when there is nothing to switch to.
func (a *Activator) SwitchToNextPriority() (*ActivationResult, error) {
	selections, err := a.ctx.Selections()
	if err != nil {
		return nil, err
	}

	currentActive, err := a.ctx.ActiveSelection()
	if err != nil {
		return nil, err
	}

	target := NextByPriority(selections, currentActive)
	if target == nil {
		return nil, nil
	}
	if currentActive != nil && target.ResourceID == currentActive.ResourceID {
		return &ActivationResult{ResourceID: target.ResourceID, AlreadyActive: true}, nil
	}
	return a.Activate(target)
}
