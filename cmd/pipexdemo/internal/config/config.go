// Package config loads pipexdemo's optional settings file: a default PATH
// prepend, a default working directory, and default environment overrides
// applied to every pipeline the demo builds.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is pipexdemo's settings, loaded from ~/.config/pipex/config.yaml.
type Config struct {
	PathPrepend []string          `yaml:"path_prepend"`
	Cwd         string            `yaml:"cwd"`
	Env         map[string]string `yaml:"env"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() *Config {
	return &Config{}
}

// Load reads the config from the standard location using fs, an afero
// filesystem so tests can exercise Load against an in-memory tree instead
// of touching the real home directory.
func Load(fs afero.Fs) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(fs, filepath.Join(home, ".config", "pipex", "config.yaml"))
}

// LoadFrom reads the config from path, returning DefaultConfig if it does
// not exist.
func LoadFrom(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolvedEnv returns the environment overrides this config contributes,
// with PathPrepend folded into PATH ahead of the parent's own.
func (c *Config) ResolvedEnv() map[string]string {
	env := make(map[string]string, len(c.Env)+1)
	for k, v := range c.Env {
		env[k] = v
	}
	if len(c.PathPrepend) > 0 {
		prefix := ""
		for _, dir := range c.PathPrepend {
			prefix += dir + string(os.PathListSeparator)
		}
		env["PATH"] = prefix + os.Getenv("PATH")
	}
	return env
}
