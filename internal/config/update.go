package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const fileHeader = "# rollout deployment config. See 'rollout tasks' for what it can do.\n"

// MarshalYAML writes the timeout as a duration string instead of nanoseconds.
func (s SSHConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Timeout               string `yaml:"timeout"`
		StrictHostKeyChecking bool   `yaml:"strict_host_key_checking"`
	}{s.Timeout.String(), s.StrictHostKeyChecking}, nil
}

// Write saves cfg to path as YAML. Used by 'rollout init'.
func Write(path string, cfg *Config) error {
	var buf strings.Builder
	buf.WriteString(fileHeader)

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if err := os.WriteFile(path, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AddHost appends a host to environments.<env>.hosts in the config file.
// It preserves the existing YAML structure and comments.
// If the host is already listed, it does nothing.
func AddHost(configPath, environment, host string) error {
	return editHosts(configPath, environment, func(hosts *yaml.Node) {
		for _, item := range hosts.Content {
			if item.Kind == yaml.ScalarNode && item.Value == host {
				return
			}
		}
		hosts.Content = append(hosts.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: host,
		})
	})
}

// RemoveHost drops a host from environments.<env>.hosts in the config file.
func RemoveHost(configPath, environment, host string) error {
	return editHosts(configPath, environment, func(hosts *yaml.Node) {
		kept := hosts.Content[:0]
		for _, item := range hosts.Content {
			if item.Kind == yaml.ScalarNode && item.Value == host {
				continue
			}
			kept = append(kept, item)
		}
		hosts.Content = kept
	})
}

// editHosts loads the file as a yaml.Node tree, finds or creates the
// hosts sequence of one environment, applies edit and writes it back.
func editHosts(configPath, environment string, edit func(hosts *yaml.Node)) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid YAML document structure")
	}

	docNode := root.Content[0]
	if docNode.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at document root")
	}

	envsNode := findOrAddMapping(docNode, "environments", yaml.MappingNode)
	envNode := findOrAddMapping(envsNode, environment, yaml.MappingNode)
	hostsNode := findOrAddMapping(envNode, "hosts", yaml.SequenceNode)
	// An inline empty list would otherwise stay in flow style.
	hostsNode.Style = 0

	edit(hostsNode)

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if err := os.WriteFile(configPath, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return node.Content[i+1]
		}
	}

	return nil
}

// findOrAddMapping returns the value under key, adding an empty node of
// the given kind when the key is missing or null.
func findOrAddMapping(node *yaml.Node, key string, kind yaml.Kind) *yaml.Node {
	if value := findMapValue(node, key); value != nil {
		if value.Kind == kind {
			return value
		}
		// "hosts:" with no value parses as a null scalar
		value.Kind, value.Tag, value.Value = kind, tagFor(kind), ""
		return value
	}

	value := &yaml.Node{Kind: kind, Tag: tagFor(kind)}
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value)
	return value
}

func tagFor(kind yaml.Kind) string {
	if kind == yaml.SequenceNode {
		return "!!seq"
	}
	return "!!map"
}
