package render

import (
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Compose Document Types
// =============================================================================

// document is the root of the rendered compose definition.
type document struct {
	Version  string             `yaml:"version"`
	Services map[string]service `yaml:"services"`
}

// service mirrors the subset of the compose v3.8 service schema we emit.
// Field order here fixes the order in the rendered text.
type service struct {
	Image       string         `yaml:"image"`
	Restart     string         `yaml:"restart"`
	ShmSize     string         `yaml:"shm_size"`
	IPC         string         `yaml:"ipc"`
	SecurityOpt []string       `yaml:"security_opt"`
	ReadOnly    bool           `yaml:"read_only,omitempty"`
	Tmpfs       []string       `yaml:"tmpfs,omitempty"`
	Ports       []string       `yaml:"ports"`
	Devices     []string       `yaml:"devices,omitempty"`
	GroupAdd    []string       `yaml:"group_add,omitempty"`
	Volumes     []string       `yaml:"volumes"`
	Environment quotedMap      `yaml:"environment"`
	Healthcheck healthcheck    `yaml:"healthcheck"`
	Logging     logging        `yaml:"logging"`
	Deploy      *deploySection `yaml:"deploy,omitempty"`
}

type healthcheck struct {
	Test        []string `yaml:"test"`
	Interval    string   `yaml:"interval"`
	Timeout     string   `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	StartPeriod string   `yaml:"start_period"`
}

type logging struct {
	Driver  string    `yaml:"driver"`
	Options quotedMap `yaml:"options"`
}

type deploySection struct {
	Resources resources `yaml:"resources"`
}

type resources struct {
	Limits       limits       `yaml:"limits"`
	Reservations reservations `yaml:"reservations"`
}

type limits struct {
	Memory string `yaml:"memory"`
}

type reservations struct {
	Devices []deviceReservation `yaml:"devices"`
}

type deviceReservation struct {
	Driver       string     `yaml:"driver"`
	Count        countValue `yaml:"count"`
	Capabilities []string   `yaml:"capabilities"`
}

// =============================================================================
// Custom Scalar Types
// =============================================================================

// quotedMap renders as a mapping with sorted keys and double-quoted values.
// Quoting keeps user-controlled strings out of structural YAML syntax and
// stops values like "0,1" or "3" from being re-typed by a loader.
type quotedMap map[string]string

func (m quotedMap) MarshalYAML() (interface{}, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: m[k], Style: yaml.DoubleQuotedStyle},
		)
	}
	return node, nil
}

// countValue is a device count: the literal "all" or a positive integer.
type countValue string

func (c countValue) MarshalYAML() (interface{}, error) {
	if c == "all" {
		return "all", nil
	}
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return nil, err
	}
	return n, nil
}
