package surveillance_test

import (
	"testing"

	"github.com/Iram04hack/network-management-system-sub001/internal/tests/common"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	common.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) TestGetConfig() {
	_, err := s.Context.GetConfig("monitor/interval")
	s.Error(err, "missing key should error")

	s.Require().NoError(s.Context.SetConfig("monitor/interval", "45s"))

	v, err := s.Context.GetConfig("monitor/interval")
	s.NoError(err)
	s.Equal("45s", v)
}

func (s *ConfigTestSuite) TestSetConfig() {
	s.NoError(s.Context.SetConfig("probe/workers", "8"))
	s.NoError(s.Context.SetConfig("probe/workers", "2"))

	v, err := s.Context.GetConfig("probe/workers")
	s.NoError(err)
	s.Equal("2", v)
}
