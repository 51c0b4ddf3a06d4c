// Package client wraps the admin HTTP API for CLI usage, the way the
// teacher's own pkg/client wraps its gRPC connection: one Client, one
// constructor, typed methods per operation, hiding wire details from the
// command implementations in cmd/dispatchctl.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/dispatch/pkg/types"
)

// Client talks to a dispatchd admin API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client targeting addr (e.g. "http://localhost:8080").
func New(addr string) *Client {
	return &Client{
		baseURL: addr,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Close is a no-op for the HTTP client; it exists to keep the same
// construct/defer Close idiom the teacher's gRPC client uses.
func (c *Client) Close() error { return nil }

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = *bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, &reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// SubmitTask submits one task partition for scheduling.
func (c *Client) SubmitTask(jobname string, partid int, mode, prefNode string, taskBlacklist []string, input, data []byte) error {
	req := map[string]interface{}{
		"jobname":        jobname,
		"partid":         partid,
		"mode":           mode,
		"pref_node":      prefNode,
		"task_blacklist": taskBlacklist,
		"input":          input,
		"data":           data,
	}
	return c.do(http.MethodPost, "/tasks", req, nil)
}

// KillJob cancels every live worker and waitlist entry for jobname.
func (c *Client) KillJob(jobname string) error {
	return c.do(http.MethodDelete, "/jobs/"+jobname, nil, nil)
}

// CleanJob is KillJob plus dropping the job's durable event log.
func (c *Client) CleanJob(jobname string) error {
	return c.do(http.MethodPost, "/jobs/"+jobname+"/clean", nil, nil)
}

// GetActive returns the nodes and partition ids currently running jobname.
func (c *Client) GetActive(jobname string) (nodes []string, partids []int, err error) {
	var out struct {
		Nodes   []string `json:"nodes"`
		Partids []int    `json:"partids"`
	}
	if err := c.do(http.MethodGet, "/jobs/"+jobname+"/active", nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Nodes, out.Partids, nil
}

// Blacklist globally disables node.
func (c *Client) Blacklist(node string) error {
	return c.do(http.MethodPost, "/nodes/"+node+"/blacklist", nil, nil)
}

// Whitelist re-enables node.
func (c *Client) Whitelist(node string) error {
	return c.do(http.MethodDelete, "/nodes/"+node+"/blacklist", nil, nil)
}

// UpdateConfig replaces the cluster's node configuration.
func (c *Client) UpdateConfig(nodes []types.Node) error {
	return c.do(http.MethodPut, "/config", map[string]interface{}{"nodes": nodes}, nil)
}

// ListNodes returns a snapshot of every configured node.
func (c *Client) ListNodes() ([]types.NodeInfo, error) {
	var out []types.NodeInfo
	if err := c.do(http.MethodGet, "/nodes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetNode returns a snapshot of one node and its active workers.
func (c *Client) GetNode(node string) (types.NodeInfo, []types.ActiveWorker, error) {
	var out struct {
		Info    types.NodeInfo        `json:"info"`
		Workers []types.ActiveWorker `json:"workers"`
	}
	if err := c.do(http.MethodGet, "/nodes/"+node, nil, &out); err != nil {
		return types.NodeInfo{}, nil, err
	}
	return out.Info, out.Workers, nil
}
