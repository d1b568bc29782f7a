// Package config provides configuration loading for interpolation runs.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all run configuration parameters.
type Config struct {
	Scatter   ScatterConfig   `yaml:"scatter"`
	Output    OutputConfig    `yaml:"output"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Plot      PlotConfig      `yaml:"plot"`
	Log       LogConfig       `yaml:"log"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScatterConfig holds interpolation parameters.
type ScatterConfig struct {
	Weighing          float64 `yaml:"weighing"`           // Scalar multiplier per point
	Boundary          string  `yaml:"boundary"`           // clamp | reject
	ParallelThreshold int     `yaml:"parallel_threshold"` // Min points to fan out
}

// OutputConfig holds result file settings.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	MeshFile    string `yaml:"mesh_file"`
	CopyFile    string `yaml:"copy_file"`
	Precision   int    `yaml:"precision"`
	WriteConfig bool   `yaml:"write_config"`
}

// TelemetryConfig holds perf and metrics export settings.
type TelemetryConfig struct {
	PerfWindow  int    `yaml:"perf_window"`
	PerfCSV     bool   `yaml:"perf_csv"`
	MetricsFile string `yaml:"metrics_file"`
}

// PlotConfig holds heat map settings.
type PlotConfig struct {
	Enabled  bool    `yaml:"enabled"`
	File     string  `yaml:"file"`
	WidthIn  float64 `yaml:"width_in"`
	HeightIn float64 `yaml:"height_in"`
	Colors   int     `yaml:"colors"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	LogLevel slog.Level
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Scatter.Boundary) {
	case "clamp", "reject":
	default:
		return fmt.Errorf("scatter.boundary: unknown policy %q", c.Scatter.Boundary)
	}
	if c.Scatter.ParallelThreshold < 0 {
		return fmt.Errorf("scatter.parallel_threshold: must be >= 0, got %d", c.Scatter.ParallelThreshold)
	}
	if c.Output.Precision < 0 {
		return fmt.Errorf("output.precision: must be >= 0, got %d", c.Output.Precision)
	}
	if c.Output.MeshFile == "" || c.Output.CopyFile == "" {
		return fmt.Errorf("output: mesh_file and copy_file must be set")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Telemetry.PerfWindow < 1 {
		c.Telemetry.PerfWindow = 10
	}
	if c.Plot.Colors < 2 {
		c.Plot.Colors = 64
	}

	c.Derived.LogLevel = slog.LevelInfo
	if err := c.Derived.LogLevel.UnmarshalText([]byte(c.Log.Level)); err != nil {
		c.Derived.LogLevel = slog.LevelInfo
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
