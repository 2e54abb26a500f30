// file: internal/config/persistence.go
// version: 2.0.0
// guid: 3475d985-81f0-4462-ba90-77cf14bce87e

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the file looked up in the home directory when --config is not given
const DefaultConfigName = ".cpe-resolver.yaml"

// ConfigFilePath returns explicit when set, otherwise $HOME/.cpe-resolver.yaml.
func ConfigFilePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultConfigName)
}

// LoadConfigFromFile merges the YAML file at path into viper. A missing file
// is only an error when the path was given explicitly.
func LoadConfigFromFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	log.Printf("[INFO] Loaded configuration from %s", path)
	return nil
}

// Masked returns a copy of cfg with secrets replaced by a fixed marker
func Masked(cfg Config) Config {
	if cfg.LLM.OpenAIAPIKey != "" {
		cfg.LLM.OpenAIAPIKey = maskSecret(cfg.LLM.OpenAIAPIKey)
	}
	if cfg.Server.APIToken != "" {
		cfg.Server.APIToken = maskSecret(cfg.Server.APIToken)
	}
	if cfg.NVD.APIKey != "" {
		cfg.NVD.APIKey = maskSecret(cfg.NVD.APIKey)
	}
	return cfg
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// MarshalYAML renders cfg as a config file body
func MarshalYAML(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// SaveConfigToFile writes cfg to path as YAML. Secrets are omitted unless
// includeSecrets is set; the file is created with owner-only permissions.
func SaveConfigToFile(cfg Config, path string, includeSecrets bool) error {
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}
	if !includeSecrets {
		cfg.LLM.OpenAIAPIKey = ""
		cfg.NVD.APIKey = ""
		cfg.Server.APIToken = ""
	}
	data, err := MarshalYAML(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	log.Printf("[INFO] Configuration saved to file: %s", path)
	return nil
}
