package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where `config init` writes when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".tickerlens", "config.yaml")
}

// SaveToFile writes cfg as YAML. The Gemini key is never written; it
// belongs in the environment or a .env file.
func SaveToFile(cfg *Config, path string) error {
	out := *cfg
	out.LLM.GeminiKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
