// Package config loads interpreter settings from an optional gosas.toml
// file and library definitions from an optional libraries.yaml manifest.
// Manifest libraries are applied as implicit LIBNAME statements at
// session start.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Library struct {
	Ref    string `toml:"ref" yaml:"ref"`
	Path   string `toml:"path" yaml:"path"`
	Access string `toml:"access" yaml:"access"`
}

type Config struct {
	// LoopCap overrides the runaway-loop bound when positive.
	LoopCap int `toml:"loop_cap" yaml:"loop_cap"`
	// Libraries are attached before the first statement runs.
	Libraries []Library `toml:"libraries" yaml:"libraries"`
}

const (
	configFile   = "gosas.toml"
	manifestFile = "libraries.yaml"
)

// Load reads a TOML config file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadManifest reads a YAML library manifest.
func LoadManifest(path string) ([]Library, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest struct {
		Libraries []Library `yaml:"libraries"`
	}
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return manifest.Libraries, nil
}

// Discover assembles the effective configuration for a working
// directory: gosas.toml when present, plus libraries.yaml entries.
// A missing file is not an error.
func Discover(dir string) (*Config, error) {
	cfg := &Config{}
	tomlPath := filepath.Join(dir, configFile)
	if _, err := os.Stat(tomlPath); err == nil {
		loaded, err := Load(tomlPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	yamlPath := filepath.Join(dir, manifestFile)
	if _, err := os.Stat(yamlPath); err == nil {
		libs, err := LoadManifest(yamlPath)
		if err != nil {
			return nil, err
		}
		cfg.Libraries = append(cfg.Libraries, libs...)
	}
	return cfg, nil
}
