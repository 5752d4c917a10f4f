// Package commands implements the docweave command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docweave/internal/config"
)

// DefaultConfigFile is read when present and --config is not given.
const DefaultConfigFile = "docweave.yaml"

// Global carries process-wide state into every command.
type Global struct {
	Context context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
}

// NewGlobal returns a Global writing to the process streams.
func NewGlobal(ctx context.Context) *Global {
	return &Global{Context: ctx, Stdout: os.Stdout, Stderr: os.Stderr, Logger: slog.Default()}
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"docweave.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text|json); overrides logging.format"`
	NoColor   bool             `name:"no-color" help:"Disable colored output" env:"NO_COLOR"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd    `cmd:"" help:"Compile the documentation tree"`
	Check      CheckCmd    `cmd:"" help:"Compile, then verify every internal link of the output"`
	Watch      WatchCmd    `cmd:"" help:"Compile, then recompile whenever a source changes"`
	Registry   RegistryCmd `cmd:"" help:"Inspect the document registry"`
	VersionCmd VersionCmd  `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; it installs a provisional logger until
// the configuration has been read.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(g.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	g.Logger = logger
	return nil
}

// loadConfig reads the configuration and installs the logger it describes.
// A missing default configuration file yields the defaults.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	path := c.Config
	if path == DefaultConfigFile && !exists(path) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if c.Verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if c.LogFormat != "" {
		format, err := config.ParseLogFormat(c.LogFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}
	g.Logger = cfg.Logging.NewLogger(g.Stderr)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
