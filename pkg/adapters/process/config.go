package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tool describes an allow-listed external command, typically a slicer.
type Tool struct {
	Name        string            `yaml:"name" json:"name" mapstructure:"name"`
	Command     string            `yaml:"command" json:"command" mapstructure:"command"`
	Args        []string          `yaml:"args" json:"args" mapstructure:"args"`
	Environment map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	Description string            `yaml:"description" json:"description" mapstructure:"description"`
}

// ConfigFile represents the structure of tools.yaml
type ConfigFile struct {
	Tools []Tool `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON) and returns the tools by name.
// A missing file means no tools are configured.
func LoadTools(path string) (map[string]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Tool{}, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return ByName(cfg.Tools), nil
}

// ByName indexes tools by name, skipping unnamed entries.
func ByName(tools []Tool) map[string]Tool {
	m := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		if tool.Name == "" {
			continue
		}
		m[tool.Name] = tool
	}
	return m
}
