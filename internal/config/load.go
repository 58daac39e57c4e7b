package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// projectConfigFiles are looked up in the working directory, in order.
var projectConfigFiles = []string{".bigtext.yml", ".bigtext.yaml"}

// LoadOptions controls where settings come from.
type LoadOptions struct {
	// ExplicitPath is a file given with --config. It must exist.
	ExplicitPath string

	// WorkingDir is searched for a project file. Defaults to the current
	// directory.
	WorkingDir string

	IgnoreUserConfig bool
	IgnoreEnv        bool
}

// LoadResult is the resolved configuration and the file it came from.
type LoadResult struct {
	Config *Config
	// LoadedFrom is empty when only defaults and environment were used.
	LoadedFrom string
}

// Load resolves settings: defaults, then the first config file found, then
// BIGTEXT_* variables. The result is validated.
func Load(opts LoadOptions) (*LoadResult, error) {
	cfg := Default()
	result := &LoadResult{Config: cfg}

	path, err := discover(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
		result.LoadedFrom = path
	}

	if !opts.IgnoreEnv {
		if err := LoadFromEnv(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, err
	}
	return result, nil
}

func discover(opts LoadOptions) (string, error) {
	if opts.ExplicitPath != "" {
		if _, err := os.Stat(opts.ExplicitPath); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return opts.ExplicitPath, nil
	}

	dir := opts.WorkingDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("working directory: %w", err)
		}
		dir = wd
	}
	for _, name := range projectConfigFiles {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	if opts.IgnoreUserConfig {
		return "", nil
	}
	if userDir := userConfigDir(); userDir != "" {
		for _, name := range []string{"config.yaml", "config.yml"} {
			candidate := filepath.Join(userDir, "bigtext", name)
			if fileExists(candidate) {
				return candidate, nil
			}
		}
	}
	return "", nil
}

// userConfigDir honours XDG_CONFIG_HOME before the platform default.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := Parse(cfg, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Parse decodes YAML over cfg. Unknown keys are rejected.
func Parse(cfg *Config, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
