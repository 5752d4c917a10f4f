// Package config loads docweave's YAML configuration.
package config

import (
	"runtime"
	"time"
)

// Config is the complete docweave configuration.
type Config struct {
	// Source is the documentation root on disk. Ignored when Git.Repository is set.
	Source string `yaml:"source"`
	// Output is the directory rendered pages and assets are written to.
	Output string `yaml:"output"`
	// Clean removes the output directory before a build.
	Clean bool `yaml:"clean"`
	// InitialHeaderLevel is the level of the first heading marker of a document.
	InitialHeaderLevel int `yaml:"initial_header_level"`
	// Workers bounds parallel parsing and rendering; 0 means one per CPU.
	Workers int `yaml:"workers"`
	// Extensions selects source documents by file extension.
	Extensions []string `yaml:"extensions"`
	// Template replaces the built-in page template.
	Template string `yaml:"template,omitempty"`

	Git      GitConfig      `yaml:"git"`
	Registry RegistryConfig `yaml:"registry"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Watch    WatchConfig    `yaml:"watch"`
}

// GitConfig reads sources from a commit instead of the working tree.
type GitConfig struct {
	Repository string `yaml:"repository,omitempty"`
	Revision   string `yaml:"revision,omitempty"`
	// Subdir is the documentation root inside the repository.
	Subdir string `yaml:"subdir,omitempty"`
}

// Enabled reports whether a repository was configured.
func (g GitConfig) Enabled() bool { return g.Repository != "" }

// RegistryConfig configures registry persistence.
type RegistryConfig struct {
	// Database is a SQLite file the registry is saved to after each run.
	// Empty disables persistence.
	Database string `yaml:"database,omitempty"`
	// Retry applies to failed saves.
	Retry RetryConfig `yaml:"retry,omitempty"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Textfile is written after every run when set.
	Textfile string `yaml:"textfile,omitempty"`
	// Listen serves /metrics in watch mode when set, e.g. ":9464".
	Listen string `yaml:"listen,omitempty"`
}

// Enabled reports whether any metrics sink is configured.
func (m MetricsConfig) Enabled() bool { return m.Textfile != "" || m.Listen != "" }

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is how long the source tree must be quiet before a rebuild.
	Debounce time.Duration `yaml:"debounce"`
}

const (
	defaultSource   = "docs"
	defaultOutput   = "site"
	defaultDebounce = 300 * time.Millisecond
)

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{Clean: true}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = defaultSource
	}
	if c.Output == "" {
		c.Output = defaultOutput
	}
	if c.InitialHeaderLevel == 0 {
		c.InitialHeaderLevel = 1
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".md", ".markdown"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = defaultDebounce
	}
}
