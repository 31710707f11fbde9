package surveillance

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/Iram04hack/network-management-system-sub001/pkg/kv"
	log "github.com/sirupsen/logrus"
)

// SelectionPath is the path in the config store
var SelectionPath = "surveillance/selections/"

// Priority bounds. 1 is the highest priority, 5 the lowest.
const (
	MinPriority = 1
	MaxPriority = 5
)

type (
	// Selection is a project under surveillance. At most one selection is
	// active at any time; the monitor promotes one based on observed traffic.
	Selection struct {
		context          *Context
		modifiedIndex    uint64
		ResourceID       string            `json:"resource_id"`
		DisplayName      string            `json:"display_name"`
		Priority         int               `json:"priority"`
		AutoActivate     bool              `json:"auto_activate"`
		IsActive         bool              `json:"is_active"`
		ActivityDetected bool              `json:"activity_detected"`
		LastActivityAt   *time.Time        `json:"last_activity_at"`
		SelectedAt       time.Time         `json:"selected_at"`
		Metadata         map[string]string `json:"metadata"`
	}

	// Selections is an alias to a slice of *Selection
	Selections []*Selection
)

// key is a helper to generate the config store key
func (s *Selection) key() string {
	return filepath.Join(SelectionPath, s.ResourceID, "metadata")
}

// Validate ensures a Selection has reasonable data
func (s *Selection) Validate() error {
	if s.ResourceID == "" {
		return &ValidationError{Field: "resource_id", Reason: "must not be empty"}
	}
	if s.Priority < MinPriority || s.Priority > MaxPriority {
		return &ValidationError{
			Field:  "priority",
			Reason: fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority),
		}
	}
	return nil
}

// Refresh reloads the Selection from the data store
func (s *Selection) Refresh() error {
	v, err := s.context.kv.Get(s.key())
	if err != nil {
		if s.context.kv.IsKeyNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	if err := json.Unmarshal(v.Data, s); err != nil {
		return err
	}
	s.modifiedIndex = v.Index
	return nil
}

// Save persists the Selection to the data store. A stale modifiedIndex will
// not clobber newer writes.
func (s *Selection) Save() error {
	if err := s.Validate(); err != nil {
		return err
	}

	v, err := json.Marshal(s)
	if err != nil {
		return err
	}

	index, err := s.context.kv.Update(s.key(), kv.Value{Data: v, Index: s.modifiedIndex})
	if err != nil {
		return err
	}

	s.modifiedIndex = index
	return nil
}

// Delete removes the Selection from the data store
func (s *Selection) Delete() error {
	return s.context.kv.Delete(filepath.Join(SelectionPath, s.ResourceID), true)
}

// NewSelection creates a new blank Selection
func (c *Context) NewSelection() *Selection {
	return &Selection{
		context:  c,
		Priority: MaxPriority,
		Metadata: make(map[string]string),
	}
}

// Selection fetches a Selection from the config store
func (c *Context) Selection(resourceID string) (*Selection, error) {
	s := &Selection{
		context:    c,
		ResourceID: resourceID,
	}

	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Selections fetches the set of Selections from the config store, ordered by
// priority then selection time.
func (c *Context) Selections() (Selections, error) {
	selections := make(Selections, 0)
	err := c.ForEachSelection(func(s *Selection) error {
		selections = append(selections, s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(selections, func(i, j int) bool {
		if selections[i].Priority != selections[j].Priority {
			return selections[i].Priority < selections[j].Priority
		}
		return selections[i].SelectedAt.Before(selections[j].SelectedAt)
	})
	return selections, nil
}

// ForEachSelection will run f on each Selection. It will stop iteration if f
// returns an error.
func (c *Context) ForEachSelection(f func(*Selection) error) error {
	keys, err := c.kv.Keys(SelectionPath)
	if err != nil {
		if c.kv.IsKeyNotFound(err) {
			return nil
		}
		return err
	}
	for _, k := range keys {
		s, err := c.Selection(filepath.Base(k))
		if err != nil {
			return err
		}

		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// AddSelection places a resource under surveillance. It upserts: adding an
// already selected resource updates priority, auto-activate and metadata and
// refreshes the selection time. The resource must exist according to repo.
func (c *Context) AddSelection(repo ResourceRepository, resourceID string, priority int, autoActivate bool, metadata map[string]string) (*Selection, error) {
	if priority < MinPriority || priority > MaxPriority {
		return nil, &ValidationError{
			Field:  "priority",
			Reason: fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority),
		}
	}

	exists, err := repo.Exists(resourceID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	s, err := c.Selection(resourceID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		s = c.NewSelection()
		s.ResourceID = resourceID
	}

	s.Priority = priority
	s.AutoActivate = autoActivate
	if metadata != nil {
		s.Metadata = metadata
	}
	s.SelectedAt = time.Now().UTC()

	// best effort; the id is a fine display name when the lookup fails
	if name, err := repo.Name(resourceID); err == nil && name != "" {
		s.DisplayName = name
	} else if s.DisplayName == "" {
		s.DisplayName = resourceID
	}

	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// RemoveSelection takes a resource out of surveillance. The active pointer is
// derived from the stored is_active flags, so removing the active selection
// deactivates everything, same as SetActive("").
func (c *Context) RemoveSelection(resourceID string) (bool, error) {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()

	s, err := c.Selection(resourceID)
	if err != nil {
		if IsNotFound(err) {
			return false, ErrNotFound
		}
		return false, err
	}

	if err := s.Delete(); err != nil {
		return false, err
	}
	return true, nil
}

// SetActive marks the selection for resourceID as the single active one,
// clearing the flag on all others. An empty resourceID deactivates
// everything. Transitions are serialized per Context.
func (c *Context) SetActive(resourceID string) error {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	return c.setActive(resourceID)
}

// setActive is SetActive without the lock, for callers already holding it
func (c *Context) setActive(resourceID string) error {
	selections, err := c.Selections()
	if err != nil {
		return err
	}

	var target *Selection
	if resourceID != "" {
		for _, s := range selections {
			if s.ResourceID == resourceID {
				target = s
				break
			}
		}
		if target == nil {
			return ErrNotFound
		}
	}

	// clear others before setting the target so a partial failure can never
	// leave two selections active
	var demoted Selections
	for _, s := range selections {
		if s.IsActive && s != target {
			s.IsActive = false
			if err := s.Save(); err != nil {
				return err
			}
			demoted = append(demoted, s)
		}
	}

	if target != nil && !target.IsActive {
		target.IsActive = true
		if err := target.Save(); err != nil {
			// a failed promotion leaves the previous active selection in
			// place rather than nothing active
			target.IsActive = false
			for _, d := range demoted {
				d.IsActive = true
				if rerr := d.Save(); rerr != nil {
					log.WithFields(log.Fields{
						"error":    rerr,
						"func":     "surveillance.Context.setActive",
						"resource": d.ResourceID,
					}).Error("failed to restore active selection")
				}
			}
			return err
		}
	}
	return nil
}

// ActiveSelection returns the selection currently marked active, or nil when
// there is none.
func (c *Context) ActiveSelection() (*Selection, error) {
	var active *Selection
	err := c.ForEachSelection(func(s *Selection) error {
		if s.IsActive && active == nil {
			active = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return active, nil
}
