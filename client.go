package surveillance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"
)

// GNS3Port is the default port on which to attempt contacting a GNS3 server
const GNS3Port int = 3080

// Project status values reported by the GNS3 server
const (
	StatusOpened = "opened"
	StatusClosed = "closed"
)

// NodeStarted is the node status of a running node
const NodeStarted = "started"

type (
	// ResourceClient is an interface that allows for communication with the
	// server hosting the managed resources
	ResourceClient interface {
		ListNodes(resourceID string) ([]Node, error)
		GetNodeStats(resourceID, nodeID string) (*NodeStats, error)
		Open(resourceID string) error
		StartNode(resourceID, nodeID string) error
		Status(resourceID string) (string, error)
	}

	// ResourceRepository answers existence and naming lookups for resources
	ResourceRepository interface {
		Exists(resourceID string) (bool, error)
		Name(resourceID string) (string, error)
	}

	// Node is a startable sub-unit of a resource
	Node struct {
		ID     string `json:"node_id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}

	// InterfaceStats holds the byte and packet counters of one node interface
	InterfaceStats struct {
		BytesReceived   uint64 `json:"bytes_received"`
		BytesSent       uint64 `json:"bytes_sent"`
		PacketsReceived uint64 `json:"packets_received"`
		PacketsSent     uint64 `json:"packets_sent"`
	}

	// NodeStats maps a node's interface names to their counters
	NodeStats struct {
		NodeID     string                    `json:"node_id"`
		Interfaces map[string]InterfaceStats `json:"interfaces"`
	}

	// GNS3Client is a ResourceClient and ResourceRepository that talks to a
	// GNS3 server over its v2 REST API
	GNS3Client struct {
		host    string
		port    int
		timeout time.Duration
	}

	// ErrorHTTPCode should be used for errors resulting from an http response
	// code not matching the expected code
	ErrorHTTPCode struct {
		Expected int
		Code     int
	}

	// gns3Project is the subset of the project body this package reads
	gns3Project struct {
		ProjectID string `json:"project_id"`
		Name      string `json:"name"`
		Status    string `json:"status"`
	}
)

// Error returns a string error message
func (e ErrorHTTPCode) Error() string {
	return fmt.Sprintf("unexpected HTTP Response Code: Expected %d, Received %d", e.Expected, e.Code)
}

// NewGNS3Client creates a new GNS3Client for the server at host:port
func NewGNS3Client(host string, port int) *GNS3Client {
	if port <= 0 {
		port = GNS3Port
	}
	return &GNS3Client{
		host:    host,
		port:    port,
		timeout: 10 * time.Second,
	}
}

// projectURL crafts a project api url from path parts
func (c *GNS3Client) projectURL(resourceID string, parts ...string) string {
	urlPath := path.Join(append([]string{"v2", "projects", resourceID}, parts...)...)
	return fmt.Sprintf("http://%s:%d/%s", c.host, c.port, urlPath)
}

// request is the generic way to hit a server endpoint with minimal response
// checking. It returns the body for later parsing. Generally don't use
// directly; other, more convenient methods will wrap this.
func (c *GNS3Client) request(url, httpMethod string, expectedCode int, dataObj interface{}) ([]byte, error) {
	httpClient := &http.Client{
		Timeout: c.timeout,
	}

	// Make the request. POST sends JSON data, GET doesn't
	var resp *http.Response
	var reqErr error
	if httpMethod == "POST" {
		dataJSON, err := json.Marshal(dataObj)
		if err != nil {
			return nil, err
		}
		resp, reqErr = httpClient.Post(url, "application/json", bytes.NewReader(dataJSON))
	} else {
		resp, reqErr = httpClient.Get(url)
	}
	if reqErr != nil {
		return nil, &ConnectionError{Op: httpMethod + " " + url, Err: reqErr}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != expectedCode {
		return nil, ErrorHTTPCode{expectedCode, resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

// getProject fetches the project body for a resource
func (c *GNS3Client) getProject(resourceID string) (*gns3Project, error) {
	body, err := c.request(c.projectURL(resourceID), "GET", http.StatusOK, nil)
	if err != nil {
		return nil, err
	}

	var p gns3Project
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListNodes retrieves the nodes of a resource
func (c *GNS3Client) ListNodes(resourceID string) ([]Node, error) {
	body, err := c.request(c.projectURL(resourceID, "nodes"), "GET", http.StatusOK, nil)
	if err != nil {
		return nil, err
	}

	var nodes []Node
	if err := json.Unmarshal(body, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetNodeStats retrieves the per-interface counters of one node
func (c *GNS3Client) GetNodeStats(resourceID, nodeID string) (*NodeStats, error) {
	url := c.projectURL(resourceID, "nodes", nodeID, "statistics")
	body, err := c.request(url, "GET", http.StatusOK, nil)
	if err != nil {
		return nil, err
	}

	var interfaces map[string]InterfaceStats
	if err := json.Unmarshal(body, &interfaces); err != nil {
		return nil, err
	}
	return &NodeStats{NodeID: nodeID, Interfaces: interfaces}, nil
}

// Open opens a closed resource
func (c *GNS3Client) Open(resourceID string) error {
	_, err := c.request(c.projectURL(resourceID, "open"), "POST", http.StatusCreated, nil)
	if err != nil {
		if _, ok := err.(ErrorHTTPCode); ok {
			return &OperationError{Op: "open", Resource: resourceID, Err: err}
		}
		return err
	}
	return nil
}

// StartNode starts one node of a resource
func (c *GNS3Client) StartNode(resourceID, nodeID string) error {
	url := c.projectURL(resourceID, "nodes", nodeID, "start")
	_, err := c.request(url, "POST", http.StatusOK, nil)
	if err != nil {
		if _, ok := err.(ErrorHTTPCode); ok {
			return &OperationError{Op: "start node", Resource: resourceID, Err: err}
		}
		return err
	}
	return nil
}

// Status reports whether a resource is opened or closed
func (c *GNS3Client) Status(resourceID string) (string, error) {
	p, err := c.getProject(resourceID)
	if err != nil {
		return "", err
	}
	return p.Status, nil
}

// Exists reports whether the server knows the resource
func (c *GNS3Client) Exists(resourceID string) (bool, error) {
	_, err := c.getProject(resourceID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Name returns the display name of a resource
func (c *GNS3Client) Name(resourceID string) (string, error) {
	p, err := c.getProject(resourceID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}
