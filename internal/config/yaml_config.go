package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetYamlConfig sets key in the config file in use, or in ./.ghtrack.yaml
// when none was loaded. Dotted keys become nested mappings. Comments and
// unrelated keys are preserved.
func SetYamlConfig(key, value string) error {
	if key == "" {
		return fmt.Errorf("empty config key")
	}
	configPath := ConfigFileUsed()
	if configPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		configPath = filepath.Join(cwd, ProjectConfigFile)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 - config file path from viper or cwd
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	out, err := updateYamlKey(data, key, value)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, out, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	// Reload so the change takes effect immediately.
	if v != nil {
		if v.ConfigFileUsed() == "" {
			v.SetConfigFile(configPath)
		}
		_ = v.ReadInConfig()
	}
	return nil
}

// updateYamlKey sets the dotted key in a YAML document.
func updateYamlKey(data []byte, key, value string) ([]byte, error) {
	var root yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Handle empty or comment-only files by creating a valid document structure
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		root.Content[0] = &yaml.Node{Kind: yaml.MappingNode}
		mapping = root.Content[0]
	}

	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		mapping = childMapping(mapping, part)
	}
	setScalar(mapping, parts[len(parts)-1], value)

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encoder: %w", err)
	}
	return []byte(buf.String()), nil
}

// childMapping returns the mapping under name, creating or replacing it.
func childMapping(mapping *yaml.Node, name string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == name {
			if mapping.Content[i+1].Kind != yaml.MappingNode {
				mapping.Content[i+1] = &yaml.Node{Kind: yaml.MappingNode}
			}
			return mapping.Content[i+1]
		}
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	mapping.Content = append(mapping.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, child)
	return child
}

func setScalar(mapping *yaml.Node, name, value string) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	if needsQuoting(value) {
		node.Style = yaml.DoubleQuotedStyle
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == name {
			node.LineComment = mapping.Content[i+1].LineComment
			mapping.Content[i+1] = node
			return
		}
	}
	mapping.Content = append(mapping.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, node)
}

func needsQuoting(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return true
	}
	return strings.ContainsAny(s, ":#[]{},&*!|>'\"%@`")
}
