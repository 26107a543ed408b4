// Package graph assembles loaded plugin descriptors into a directed graph
// of nodes and links, schedules them topologically, and drives them on the
// real-time audio thread. filter-graph
// configuration schema and lifecycle (Load -> Setup -> Activate -> Run).
package graph

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// NodeConfig describes one node entry in a graph document.
type NodeConfig struct {
	Type    string         `yaml:"type"`
	Name    string         `yaml:"name"`
	Plugin  string         `yaml:"plugin"`
	Label   string         `yaml:"label"`
	Config  map[string]any `yaml:"config"`
	Control map[string]float64 `yaml:"control"`
}

// LinkConfig names one output-port -> input-port connection, each using
// a "<node>:<port>" name.
type LinkConfig struct {
	Output string `yaml:"output"`
	Input  string `yaml:"input"`
}

// VolumeConfig describes one control-backed volume knob.
type VolumeConfig struct {
	Control string  `yaml:"control"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Scale   string  `yaml:"scale"` // "linear" or "cubic"
}

// Config is the top-level "filter.graph" document.
type Config struct {
	NInputs  int      `yaml:"n_inputs"`
	NOutputs int      `yaml:"n_outputs"`
	Nodes    []NodeConfig `yaml:"nodes"`
	Links    []LinkConfig `yaml:"links"`
	Inputs   []string `yaml:"inputs"`
	Outputs  []string `yaml:"outputs"`

	InputVolumes  []VolumeConfig `yaml:"input.volumes"`
	OutputVolumes []VolumeConfig `yaml:"output.volumes"`
}

// ParseConfig decodes a graph document from YAML, the format the filter
// chain's config loader uses.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("graph: parsing config: %w", err)
	}
	return &c, nil
}
