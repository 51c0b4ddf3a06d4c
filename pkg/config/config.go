// Package config loads the cluster's node configuration — the list of
// (node name, capacity) pairs the scheduler dispatches against — from a
// YAML file, following the same gopkg.in/yaml.v3 resource style the
// teacher's CLI uses for its own apply command.
package config

import (
	"fmt"
	"os"

	"github.com/cuemby/dispatch/pkg/types"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a node configuration file:
//
//	nodes:
//	  - name: a
//	    capacity: 4
//	  - name: b
//	    capacity: 2
type File struct {
	Nodes []NodeEntry `yaml:"nodes"`
}

// NodeEntry is one node's configured capacity.
type NodeEntry struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
}

// Load reads and parses a node configuration file at path.
func Load(path string) ([]types.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return toNodes(f)
}

func toNodes(f File) ([]types.Node, error) {
	seen := make(map[string]bool, len(f.Nodes))
	nodes := make([]types.Node, 0, len(f.Nodes))
	for _, e := range f.Nodes {
		if e.Name == "" {
			return nil, fmt.Errorf("config entry missing node name")
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate node name %q in config", e.Name)
		}
		if e.Capacity < 0 {
			return nil, fmt.Errorf("node %q has negative capacity %d", e.Name, e.Capacity)
		}
		seen[e.Name] = true
		nodes = append(nodes, types.Node{Name: e.Name, Capacity: e.Capacity})
	}
	return nodes, nil
}
