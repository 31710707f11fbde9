// Package common contains common utilities and suites to be used in other
// tests
package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	surveillance "github.com/Iram04hack/network-management-system-sub001"
	"github.com/Iram04hack/network-management-system-sub001/pkg/kv"
	_ "github.com/Iram04hack/network-management-system-sub001/pkg/kv/mock"
	"github.com/pborman/uuid"
	"github.com/stretchr/testify/suite"
)

// Suite sets up a general test suite with a fresh in-memory kv, context and
// stub client per test.
type Suite struct {
	suite.Suite
	KV      kv.KV
	Context *surveillance.Context
	Client  *surveillance.StubClient
}

// SetupTest prepares a fresh kv, context and client
func (s *Suite) SetupTest() {
	var err error
	s.KV, err = kv.New("mock://")
	s.Require().NoError(err)
	s.Context = surveillance.NewContext(s.KV)
	s.Client = surveillance.NewStubClient()
}

// NewProject registers a stub project and returns its id
func (s *Suite) NewProject(status string) string {
	id := uuid.New()
	s.Client.AddProject(id, &surveillance.StubProject{
		Name:   "project-" + id[:8],
		Status: status,
	})
	return id
}

// NewProjectWithTraffic registers an opened stub project with one started
// node carrying totalBytes across its interfaces and returns its id.
func (s *Suite) NewProjectWithTraffic(totalBytes uint64) string {
	id := uuid.New()
	nodeID := uuid.New()
	s.Client.AddProject(id, &surveillance.StubProject{
		Name:   "project-" + id[:8],
		Status: surveillance.StatusOpened,
		Nodes: []surveillance.Node{
			{ID: nodeID, Name: "R1", Status: surveillance.NodeStarted},
		},
		Stats: map[string]*surveillance.NodeStats{
			nodeID: {
				NodeID: nodeID,
				Interfaces: map[string]surveillance.InterfaceStats{
					"eth0": {BytesReceived: totalBytes / 2, BytesSent: totalBytes - totalBytes/2},
				},
			},
		},
	})
	return id
}

// NewSelection creates and saves a new Selection backed by a stub project
func (s *Suite) NewSelection(priority int, autoActivate bool) *surveillance.Selection {
	id := s.NewProject(surveillance.StatusOpened)
	sel, err := s.Context.AddSelection(s.Client, id, priority, autoActivate, nil)
	s.Require().NoError(err)
	return sel
}

// WaitFor polls condition until it holds or the timeout passes
func (s *Suite) WaitFor(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// DoRequest is a convenience method for making an http request and doing
// basic handling of the response.
func (s *Suite) DoRequest(method, url string, expectedRespCode int, postBodyStruct interface{}, respBody interface{}) *http.Response {
	var postBody io.Reader
	if postBodyStruct != nil {
		bodyBytes, _ := json.Marshal(postBodyStruct)
		postBody = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(method, url, postBody)
	s.Require().NoError(err)
	if postBody != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	s.Require().NoError(err)
	correctResponse := s.Equal(expectedRespCode, resp.StatusCode)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	s.NoError(err)

	if correctResponse {
		s.NoError(json.Unmarshal(body, respBody))
	} else {
		s.T().Log(string(body))
	}
	return resp
}

// TestMsgFunc generates a function for conveniently adding a prefix to test
// assertion messages
func TestMsgFunc(prefix string) func(...interface{}) string {
	return func(val ...interface{}) string {
		if len(val) == 0 {
			return prefix
		}
		msgPrefix := prefix + " : "
		if len(val) == 1 {
			return msgPrefix + val[0].(string)
		}
		return msgPrefix + fmt.Sprintf(val[0].(string), val[1:]...)
	}
}
