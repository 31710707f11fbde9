package surveillance_test

import (
	"errors"
	"path"
	"testing"
	"time"

	surveillance "github.com/Iram04hack/network-management-system-sub001"
	"github.com/Iram04hack/network-management-system-sub001/internal/tests/common"
	"github.com/Iram04hack/network-management-system-sub001/pkg/kv"
	"github.com/pborman/uuid"
	"github.com/stretchr/testify/suite"
)

// flakyKV fails every atomic update of one key, leaving the rest of the
// store working
type flakyKV struct {
	kv.KV
	FailKey string
}

func (f *flakyKV) Update(key string, value kv.Value) (uint64, error) {
	if key == f.FailKey {
		return 0, errors.New("injected update failure")
	}
	return f.KV.Update(key, value)
}

type SelectionTestSuite struct {
	common.Suite
}

func TestSelectionTestSuite(t *testing.T) {
	suite.Run(t, new(SelectionTestSuite))
}

func (s *SelectionTestSuite) TestAddSelection() {
	known := s.NewProject(surveillance.StatusOpened)

	tests := []struct {
		description string
		resourceID  string
		priority    int
		expectedErr bool
	}{
		{"unknown resource", uuid.New(), 1, true},
		{"priority too low", known, 0, true},
		{"priority too high", known, 6, true},
		{"lowest priority", known, 5, false},
		{"highest priority", known, 1, false},
	}

	for _, test := range tests {
		msg := common.TestMsgFunc(test.description)
		sel, err := s.Context.AddSelection(s.Client, test.resourceID, test.priority, true, nil)
		if test.expectedErr {
			s.Error(err, msg("should error"))
			s.Nil(sel, msg("failure should not return a selection"))
		} else {
			s.NoError(err, msg("should succeed"))
			s.Equal(test.resourceID, sel.ResourceID, msg("should keep the id"))
			s.Equal(test.priority, sel.Priority, msg("should keep the priority"))
			s.NotEmpty(sel.DisplayName, msg("should pick up the project name"))
			s.False(sel.SelectedAt.IsZero(), msg("should stamp the selection time"))
		}
	}
}

func (s *SelectionTestSuite) TestAddSelectionValidationErrors() {
	known := s.NewProject(surveillance.StatusOpened)

	_, err := s.Context.AddSelection(s.Client, known, 0, true, nil)
	validationErr := &surveillance.ValidationError{}
	s.ErrorAs(err, &validationErr, "out of range priority should be a validation error")

	_, err = s.Context.AddSelection(s.Client, uuid.New(), 3, true, nil)
	s.True(surveillance.IsNotFound(err), "unknown resource should be not found")
}

func (s *SelectionTestSuite) TestAddSelectionUpsert() {
	id := s.NewProject(surveillance.StatusOpened)

	first, err := s.Context.AddSelection(s.Client, id, 3, false, map[string]string{"env": "lab"})
	s.Require().NoError(err)

	time.Sleep(5 * time.Millisecond)
	second, err := s.Context.AddSelection(s.Client, id, 1, true, map[string]string{"env": "prod"})
	s.Require().NoError(err)

	s.Equal(1, second.Priority, "upsert should update priority")
	s.True(second.AutoActivate, "upsert should update auto-activate")
	s.Equal("prod", second.Metadata["env"], "upsert should update metadata")
	s.True(second.SelectedAt.After(first.SelectedAt), "upsert should refresh the selection time")

	selections, err := s.Context.Selections()
	s.Require().NoError(err)
	s.Len(selections, 1, "upsert should not duplicate the selection")
}

func (s *SelectionTestSuite) TestSelection() {
	sel := s.NewSelection(2, true)

	tests := []struct {
		description string
		resourceID  string
		expectedErr bool
	}{
		{"missing id", "", true},
		{"nonexistent id", uuid.New(), true},
		{"real id", sel.ResourceID, false},
	}

	for _, test := range tests {
		msg := common.TestMsgFunc(test.description)
		got, err := s.Context.Selection(test.resourceID)
		if test.expectedErr {
			s.Error(err, msg("lookup should fail"))
			s.Nil(got, msg("failure should not return a selection"))
		} else {
			s.NoError(err, msg("lookup should succeed"))
			s.Equal(sel.ResourceID, got.ResourceID, msg("should return the right selection"))
			s.Equal(sel.Priority, got.Priority, msg("should round trip priority"))
		}
	}
}

func (s *SelectionTestSuite) TestSelectionsOrdering() {
	low := s.NewSelection(5, true)
	high := s.NewSelection(1, true)
	mid := s.NewSelection(3, true)

	selections, err := s.Context.Selections()
	s.Require().NoError(err)
	s.Require().Len(selections, 3)
	s.Equal(high.ResourceID, selections[0].ResourceID, "highest priority first")
	s.Equal(mid.ResourceID, selections[1].ResourceID)
	s.Equal(low.ResourceID, selections[2].ResourceID, "lowest priority last")
}

func (s *SelectionTestSuite) TestSaveClobber() {
	sel := s.NewSelection(2, true)

	stale := &surveillance.Selection{}
	*stale = *sel

	sel.Priority = 1
	s.Require().NoError(sel.Save())

	stale.Priority = 4
	s.Error(stale.Save(), "saving a stale copy should not clobber")
}

func (s *SelectionTestSuite) TestSetActive() {
	a := s.NewSelection(1, true)
	b := s.NewSelection(2, true)

	s.NoError(s.Context.SetActive(a.ResourceID))
	s.assertActive(a.ResourceID)

	s.NoError(s.Context.SetActive(b.ResourceID))
	s.assertActive(b.ResourceID)

	s.True(surveillance.IsNotFound(s.Context.SetActive(uuid.New())),
		"unknown resource should be not found")
	s.assertActive(b.ResourceID)

	s.NoError(s.Context.SetActive(""))
	active, err := s.Context.ActiveSelection()
	s.NoError(err)
	s.Nil(active, "empty id should deactivate everything")
}

func (s *SelectionTestSuite) TestSetActiveFailureKeepsPrevious() {
	a := s.NewSelection(1, true)
	b := s.NewSelection(2, true)
	s.Require().NoError(s.Context.SetActive(a.ResourceID))

	// promoting b fails at its save, after a was already demoted
	fkv := &flakyKV{
		KV:      s.KV,
		FailKey: path.Join(surveillance.SelectionPath, b.ResourceID, "metadata"),
	}
	fctx := surveillance.NewContext(fkv)

	s.Error(fctx.SetActive(b.ResourceID), "the save failure should surface")

	s.assertActive(a.ResourceID)
}

func (s *SelectionTestSuite) TestRemoveSelection() {
	sel := s.NewSelection(1, true)
	s.Require().NoError(s.Context.SetActive(sel.ResourceID))

	removed, err := s.Context.RemoveSelection(uuid.New())
	s.True(surveillance.IsNotFound(err), "unknown resource should be not found")
	s.False(removed)

	removed, err = s.Context.RemoveSelection(sel.ResourceID)
	s.NoError(err)
	s.True(removed)

	active, err := s.Context.ActiveSelection()
	s.NoError(err)
	s.Nil(active, "removing the active selection should deactivate")

	selections, err := s.Context.Selections()
	s.NoError(err)
	s.Empty(selections)
}

// assertActive checks the single-active invariant along with the expected id
func (s *SelectionTestSuite) assertActive(resourceID string) {
	activeCount := 0
	err := s.Context.ForEachSelection(func(sel *surveillance.Selection) error {
		if sel.IsActive {
			activeCount++
			s.Equal(resourceID, sel.ResourceID, "wrong selection is active")
		}
		return nil
	})
	s.NoError(err)
	s.Equal(1, activeCount, "exactly one selection should be active")
}
