package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/giantswarm/stepflow/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigDir = ".stepflow"
	userConfigDir    = ".config/stepflow"
	configFileName   = "config.yaml"
)

// Overridable in tests.
var (
	osGetwd       = os.Getwd
	osUserHomeDir = os.UserHomeDir
)

// GetUserConfigDir returns ~/.config/stepflow.
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// SearchPaths returns the config files consulted by Discover, in order.
func SearchPaths() []string {
	var paths []string
	if wd, err := osGetwd(); err == nil {
		paths = append(paths, filepath.Join(wd, projectConfigDir, configFileName))
	}
	if dir, err := GetUserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, configFileName))
	}
	return paths
}

// Discover loads the first existing file of SearchPaths, falling back to
// defaults when none exists.
func Discover(log *logging.Logger) (Config, string, error) {
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			cfg, err := LoadConfig(p, log)
			return cfg, p, err
		}
	}
	if log != nil {
		log.With("ConfigLoader").Debug("No config.yaml found in %v, using defaults", SearchPaths())
	}
	return GetDefaultConfig(), "", nil
}

// LoadConfig loads the configuration file at path on top of the defaults.
// A missing file yields the defaults.
func LoadConfig(path string, log *logging.Logger) (Config, error) {
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("ConfigLoader")

	config := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("No config.yaml found at %s, using defaults", path)
			return config, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	if err := Validate(config); err != nil {
		return Config{}, FormatValidationError("config", path, err)
	}

	log.Info("Loaded configuration from %s", path)
	return config, nil
}

// ExecutionsDir returns the configured run record directory, defaulting to
// ~/.config/stepflow/executions.
func (c Config) ExecutionsDir() (string, error) {
	if c.Executions.Dir != "" {
		return c.Executions.Dir, nil
	}
	dir, err := GetUserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "executions"), nil
}
