package surveillance_test

import (
	"errors"
	"testing"

	surveillance "github.com/Iram04hack/network-management-system-sub001"
	"github.com/Iram04hack/network-management-system-sub001/internal/tests/common"
	"github.com/stretchr/testify/suite"
)

type ProbeTestSuite struct {
	common.Suite
}

func TestProbeTestSuite(t *testing.T) {
	suite.Run(t, new(ProbeTestSuite))
}

func (s *ProbeTestSuite) TestClassifyActivity() {
	tests := []struct {
		description string
		totalBytes  uint64
		expected    surveillance.ActivityLevel
	}{
		{"zero bytes", 0, surveillance.ActivityNone},
		{"one byte", 1, surveillance.ActivityLow},
		{"exactly the medium boundary", 100000, surveillance.ActivityLow},
		{"just over the medium boundary", 100001, surveillance.ActivityMedium},
		{"exactly the high boundary", 1000000, surveillance.ActivityMedium},
		{"just over the high boundary", 1000001, surveillance.ActivityHigh},
	}

	for _, test := range tests {
		msg := common.TestMsgFunc(test.description)
		s.Equal(test.expected, surveillance.ClassifyActivity(test.totalBytes), msg("wrong level"))
	}
}

func (s *ProbeTestSuite) TestDetect() {
	id := s.NewProjectWithTraffic(2000000)
	probe := surveillance.NewProbe(s.Client, 0)

	snap, err := probe.Detect(id)
	s.Require().NoError(err)
	s.Equal(id, snap.ResourceID)
	s.True(snap.HasActivity)
	s.Equal(surveillance.ActivityHigh, snap.ActivityLevel)
	s.NotEmpty(snap.RawStats, "per-interface counters should be reported")
	s.False(snap.ObservedAt.IsZero())
}

func (s *ProbeTestSuite) TestDetectIgnoresStoppedNodes() {
	id := s.NewProject(surveillance.StatusOpened)
	s.Client.AddProject(id, &surveillance.StubProject{
		Name:   "idle",
		Status: surveillance.StatusOpened,
		Nodes: []surveillance.Node{
			{ID: "n1", Name: "R1", Status: "stopped"},
		},
		Stats: map[string]*surveillance.NodeStats{
			"n1": {NodeID: "n1", Interfaces: map[string]surveillance.InterfaceStats{
				"eth0": {BytesReceived: 5000000},
			}},
		},
	})

	probe := surveillance.NewProbe(s.Client, 0)
	snap, err := probe.Detect(id)
	s.Require().NoError(err)
	s.False(snap.HasActivity, "stopped nodes should not count")
	s.Equal(surveillance.ActivityNone, snap.ActivityLevel)
}

func (s *ProbeTestSuite) TestDetectFallback() {
	opened := s.NewProject(surveillance.StatusOpened)
	closed := s.NewProject(surveillance.StatusClosed)
	s.Client.ListErr = errors.New("stats backend down")

	probe := surveillance.NewProbe(s.Client, 0)

	snap, err := probe.Detect(opened)
	s.Require().NoError(err, "fallback on an open resource should not error")
	s.True(snap.HasActivity, "an open resource is never treated as silent on probe failure")
	s.Equal(surveillance.ActivityLow, snap.ActivityLevel)

	snap, err = probe.Detect(closed)
	s.Require().NoError(err)
	s.False(snap.HasActivity, "a closed resource falls back to no activity")
	s.Equal(surveillance.ActivityNone, snap.ActivityLevel)

	// when even the status lookup fails the probe errors out
	s.Client.StatusErr = errors.New("unreachable")
	probe.Invalidate(opened)
	snap, err = probe.Detect(opened)
	s.Error(err)
	s.Nil(snap)
}

func (s *ProbeTestSuite) TestDetectCaches() {
	id := s.NewProjectWithTraffic(2000000)
	probe := surveillance.NewProbe(s.Client, 0)

	snap, err := probe.Detect(id)
	s.Require().NoError(err)
	s.Equal(surveillance.ActivityHigh, snap.ActivityLevel)

	// kill the traffic; a cached snapshot should still be served
	s.Client.AddProject(id, &surveillance.StubProject{
		Name:   "quiet",
		Status: surveillance.StatusOpened,
	})

	snap, err = probe.Detect(id)
	s.Require().NoError(err)
	s.Equal(surveillance.ActivityHigh, snap.ActivityLevel, "should serve from cache")

	snap, err = probe.Refresh(id)
	s.Require().NoError(err)
	s.Equal(surveillance.ActivityNone, snap.ActivityLevel, "refresh should bypass the cache")

	s.Client.AddProject(id, &surveillance.StubProject{
		Name:   "quiet",
		Status: surveillance.StatusOpened,
		Nodes: []surveillance.Node{
			{ID: "n1", Name: "R1", Status: surveillance.NodeStarted},
		},
		Stats: map[string]*surveillance.NodeStats{
			"n1": {NodeID: "n1", Interfaces: map[string]surveillance.InterfaceStats{
				"eth0": {BytesSent: 42},
			}},
		},
	})

	probe.Invalidate(id)
	snap, err = probe.Detect(id)
	s.Require().NoError(err)
	s.Equal(surveillance.ActivityLow, snap.ActivityLevel, "invalidate should force a fresh probe")
}
