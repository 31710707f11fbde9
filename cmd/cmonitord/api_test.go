package main

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	surveillance "github.com/Iram04hack/network-management-system-sub001"
	"github.com/Iram04hack/network-management-system-sub001/internal/tests/common"
	"github.com/armon/go-metrics"
	mapsink "github.com/bakins/go-metrics-map"
	mmw "github.com/bakins/go-metrics-middleware"
	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"github.com/tylerb/graceful"
)

type APISuite struct {
	common.Suite
	Port           uint
	MetricsContext *metricsContext
	Monitor        *surveillance.Monitor
	APIServer      *graceful.Server
	Selection      *surveillance.Selection
	APIURL         string
}

func (s *APISuite) SetupSuite() {
	log.SetLevel(log.FatalLevel)
	s.Port = 51126
	s.APIURL = fmt.Sprintf("http://localhost:%d", s.Port)

	// The server holds onto one context for its lifetime, so the kv and stub
	// client are created once here and wiped between tests.
	s.Suite.SetupTest()

	// Metrics context
	sink := mapsink.New()
	fanout := metrics.FanoutSink{sink}
	conf := metrics.DefaultConfig("cmonitordTEST")
	conf.EnableHostname = false
	m, _ := metrics.New(conf, fanout)
	s.MetricsContext = &metricsContext{
		sink:    sink,
		metrics: m,
		mmw:     mmw.New(m),
	}

	s.Monitor = s.Context.NewMonitor(s.Client, surveillance.MonitorConfig{
		Interval: 10 * time.Millisecond,
		Metrics:  m,
	})

	api := &apiContext{
		ctx:     s.Context,
		repo:    s.Client,
		monitor: s.Monitor,
	}

	// Run the server
	s.APIServer = Run(s.Port, api, s.MetricsContext)
	time.Sleep(100 * time.Millisecond)
}

func (s *APISuite) SetupTest() {
	if err := s.KV.Delete(surveillance.SelectionPath, true); err != nil && !s.KV.IsKeyNotFound(err) {
		s.Require().NoError(err)
	}
	s.Selection = s.NewSelection(2, true)
}

func (s *APISuite) TearDownSuite() {
	s.Monitor.Stop()

	stopChan := s.APIServer.StopChan()
	s.APIServer.Stop(5 * time.Second)
	<-stopChan
}

func TestCMonitordAPI(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) selectionURL(resourceID string) string {
	return fmt.Sprintf("%s/selections/%s", s.APIURL, resourceID)
}

func (s *APISuite) TestSelectionsList() {
	var selections surveillance.Selections
	s.DoRequest("GET", s.APIURL+"/selections", http.StatusOK, nil, &selections)

	s.Len(selections, 1)
	s.Equal(s.Selection.ResourceID, selections[0].ResourceID)
}

func (s *APISuite) TestSelectionAdd() {
	req := selectionRequest{
		ResourceID:   s.NewProject(surveillance.StatusOpened),
		Priority:     1,
		AutoActivate: true,
	}

	var selResp surveillance.Selection
	s.DoRequest("POST", s.APIURL+"/selections", http.StatusCreated, req, &selResp)

	s.Equal(req.ResourceID, selResp.ResourceID)
	s.Equal(req.Priority, selResp.Priority)

	// Make sure it actually saved
	sel, err := s.Context.Selection(req.ResourceID)
	s.NoError(err)
	s.Equal(req.ResourceID, sel.ResourceID)
}

func (s *APISuite) TestSelectionAddUnknownResource() {
	req := selectionRequest{
		ResourceID: uuid.New(),
		Priority:   1,
	}

	var errResp map[string]string
	s.DoRequest("POST", s.APIURL+"/selections", http.StatusNotFound, req, &errResp)
	s.NotEmpty(errResp["message"])
}

func (s *APISuite) TestSelectionGet() {
	var selection surveillance.Selection
	s.DoRequest("GET", s.selectionURL(s.Selection.ResourceID), http.StatusOK, nil, &selection)

	s.Equal(s.Selection.ResourceID, selection.ResourceID)

	var errResp map[string]string
	s.DoRequest("GET", s.selectionURL(uuid.New()), http.StatusNotFound, nil, &errResp)
	s.NotEmpty(errResp["message"])
}

func (s *APISuite) TestSelectionDestroy() {
	var selResp surveillance.Selection
	s.DoRequest("DELETE", s.selectionURL(s.Selection.ResourceID), http.StatusOK, nil, &selResp)

	s.Equal(s.Selection.ResourceID, selResp.ResourceID)

	_, err := s.Context.Selection(s.Selection.ResourceID)
	s.True(surveillance.IsNotFound(err))
}

func (s *APISuite) TestSelectionActivate() {
	var result surveillance.ActivationResult
	s.DoRequest("POST", s.selectionURL(s.Selection.ResourceID)+"/activate", http.StatusOK, nil, &result)

	s.Equal(s.Selection.ResourceID, result.ResourceID)

	active, err := s.Context.ActiveSelection()
	s.NoError(err)
	s.Require().NotNil(active)
	s.Equal(s.Selection.ResourceID, active.ResourceID)
}

func (s *APISuite) TestDetectTraffic() {
	resourceID := s.NewProjectWithTraffic(2000000)
	_, err := s.Context.AddSelection(s.Client, resourceID, 1, true, nil)
	s.Require().NoError(err)

	var snapshot surveillance.ActivitySnapshot
	s.DoRequest("GET", s.selectionURL(resourceID)+"/traffic", http.StatusOK, nil, &snapshot)

	s.Equal(resourceID, snapshot.ResourceID)
	s.Equal(surveillance.ActivityHigh, snapshot.ActivityLevel)
	s.True(snapshot.HasActivity)
}

func (s *APISuite) TestTrafficSummary() {
	var summary surveillance.TrafficSummary
	s.DoRequest("GET", s.APIURL+"/traffic", http.StatusOK, nil, &summary)

	s.Len(summary.Selections, 1)
	s.Equal(s.Selection.ResourceID, summary.Selections[0].ResourceID)
	s.Equal(surveillance.MonitorStopped, summary.MonitorStatus)
}

func (s *APISuite) TestSwitchToNextPriority() {
	next := s.NewSelection(3, true)

	var result surveillance.ActivationResult
	s.DoRequest("POST", s.APIURL+"/active/next", http.StatusOK, nil, &result)
	s.Equal(s.Selection.ResourceID, result.ResourceID)

	s.DoRequest("POST", s.APIURL+"/active/next", http.StatusOK, nil, &result)
	s.Equal(next.ResourceID, result.ResourceID)

	var msg map[string]string
	s.DoRequest("DELETE", s.APIURL+"/active", http.StatusOK, nil, &msg)
	s.Equal("deactivated", msg["message"])

	active, err := s.Context.ActiveSelection()
	s.NoError(err)
	s.Nil(active)
}

func (s *APISuite) TestMonitorLifecycle() {
	var status monitorStatus
	s.DoRequest("GET", s.APIURL+"/monitor", http.StatusOK, nil, &status)
	s.Equal(string(surveillance.MonitorStopped), status.Status)

	for i := 0; i < 2; i++ {
		s.DoRequest("POST", s.APIURL+"/monitor/start", http.StatusOK, nil, &status)
		s.Equal(string(surveillance.MonitorRunning), status.Status)
	}

	s.DoRequest("POST", s.APIURL+"/monitor/stop", http.StatusOK, nil, &status)
	s.Equal(string(surveillance.MonitorStopped), status.Status)
}
