package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/regtest/internal/compare"
	"github.com/AndreyAkinshin/regtest/internal/schema"
)

// SettingsFile is the name of the optional settings file in a test directory.
const SettingsFile = "regtest.yaml"

// Settings configures how a suite is run. All fields are optional.
type Settings struct {
	Engine     EngineSettings `yaml:"engine"`
	ReportFile string         `yaml:"report_file"`
	OutputFile string         `yaml:"output_file"`
	// MetricsFile receives Prometheus text-format metrics after a run.
	MetricsFile string             `yaml:"metrics_file"`
	Tolerance   *ToleranceSettings `yaml:"tolerance"`
	Log         LogSettings        `yaml:"log"`
}

// EngineSettings configures the simulation engine command.
type EngineSettings struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// DockerImage runs Command inside a container when set.
	DockerImage string `yaml:"docker_image"`
	// FailureStatus is the largest status that still counts as a successful run.
	FailureStatus *int `yaml:"failure_status"`
}

// ToleranceSettings overrides the tolerances of config.txt.
type ToleranceSettings struct {
	Absolute *float64 `yaml:"absolute"`
	Relative *float64 `yaml:"relative"`
}

// LogSettings configures diagnostic logging.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Apply returns tol with any configured overrides.
func (t *ToleranceSettings) Apply(tol compare.Tolerance) compare.Tolerance {
	if t == nil {
		return tol
	}
	if t.Absolute != nil {
		tol.Absolute = *t.Absolute
	}
	if t.Relative != nil {
		tol.Relative = *t.Relative
	}
	return tol
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() *Settings {
	s := &Settings{}
	applyDefaults(s)
	return s
}

// LoadSettings reads, validates and applies defaults to a settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings validates YAML settings against the embedded schema and
// decodes them.
func ParseSettings(data []byte) (*Settings, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// The schema validator works on JSON values.
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := schema.ValidateSettings(jsonData); err != nil {
		return nil, err
	}

	s := &Settings{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	applyDefaults(s)
	return s, nil
}

// LoadSettingsFrom loads dir/regtest.yaml, or returns defaults when the
// file does not exist.
func LoadSettingsFrom(dir string) (*Settings, error) {
	path := filepath.Join(dir, SettingsFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	return LoadSettings(path)
}
