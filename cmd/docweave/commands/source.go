package commands

import (
	"time"

	"git.home.luguber.info/inful/docweave/internal/compiler"
	"git.home.luguber.info/inful/docweave/internal/config"
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/logfields"
	"git.home.luguber.info/inful/docweave/internal/metrics"
	"git.home.luguber.info/inful/docweave/internal/origin"
	"git.home.luguber.info/inful/docweave/internal/registry"
)

// SourceFlags override the configuration for commands that compile.
type SourceFlags struct {
	Source             string `short:"s" help:"Documentation root; overrides source"`
	Output             string `short:"o" help:"Output directory; overrides output"`
	GitRepo            string `name:"git-repo" help:"Compile from this git repository instead of the working tree"`
	Revision           string `help:"Revision to compile with --git-repo (default HEAD)"`
	Subdir             string `help:"Documentation root inside the git repository"`
	Workers            int    `short:"j" help:"Documents compiled in parallel (0 = config)"`
	InitialHeaderLevel int    `name:"initial-header-level" help:"Level of the first heading marker (0 = config)"`
	Database           string `help:"SQLite file the registry is persisted to; overrides registry.database"`
	MetricsTextfile    string `name:"metrics-textfile" help:"Write Prometheus metrics to this file after the run"`
	NoClean            bool   `name:"no-clean" help:"Keep existing files in the output directory"`
}

func (f *SourceFlags) apply(cfg *config.Config) error {
	if f.Source != "" {
		cfg.Source = f.Source
	}
	if f.Output != "" {
		cfg.Output = f.Output
	}
	if f.GitRepo != "" {
		cfg.Git.Repository = f.GitRepo
	}
	if f.Revision != "" {
		cfg.Git.Revision = f.Revision
	}
	if f.Subdir != "" {
		cfg.Git.Subdir = f.Subdir
	}
	if f.Workers != 0 {
		cfg.Workers = f.Workers
	}
	if f.InitialHeaderLevel != 0 {
		cfg.InitialHeaderLevel = f.InitialHeaderLevel
	}
	if f.Database != "" {
		cfg.Registry.Database = f.Database
	}
	if f.MetricsTextfile != "" {
		cfg.Metrics.Textfile = f.MetricsTextfile
	}
	if f.NoClean {
		cfg.Clean = false
	}
	return cfg.Validate()
}

// session is everything a compiling command needs, built from the configuration.
type session struct {
	cfg      *config.Config
	compiler *compiler.Compiler
	store    *registry.SQLiteStore
	recorder *metrics.PrometheusRecorder
}

func (s *session) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// writeMetrics writes the metrics textfile when one is configured.
func (s *session) writeMetrics() error {
	if s.recorder == nil || s.cfg.Metrics.Textfile == "" {
		return nil
	}
	return s.recorder.WriteTextfile(s.cfg.Metrics.Textfile)
}

func openOrigin(cfg *config.Config) (origin.Origin, error) {
	if cfg.Git.Enabled() {
		return origin.NewGitOrigin(cfg.Git.Repository, cfg.Git.Revision, cfg.Git.Subdir, cfg.Extensions...)
	}
	return origin.NewDirOrigin(cfg.Source, cfg.Extensions...)
}

func newSession(g *Global, root *CLI, flags *SourceFlags, opts compiler.Options) (*session, error) {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return nil, err
	}
	if err := flags.apply(cfg); err != nil {
		return nil, err
	}

	src, err := openOrigin(cfg)
	if err != nil {
		return nil, err
	}
	if gitOrigin, ok := src.(*origin.GitOrigin); ok {
		g.Logger.Info("Compiling from git", logfields.Origin(src.String()), logfields.Revision(gitOrigin.Commit()))
	}

	opts.Output = cfg.Output
	opts.Clean = cfg.Clean
	opts.InitialHeaderLevel = cfg.InitialHeaderLevel
	opts.Workers = cfg.Workers
	opts.Extensions = cfg.Extensions
	opts.TemplatePath = cfg.Template
	c, err := compiler.New(src, opts)
	if err != nil {
		return nil, err
	}
	c.WithLogger(g.Logger)

	s := &session{cfg: cfg, compiler: c}
	if cfg.Metrics.Enabled() {
		s.recorder = metrics.NewPrometheusRecorder(nil)
		c.WithRecorder(s.recorder)
	}
	if cfg.Registry.Database != "" {
		store, err := registry.NewSQLiteStore(cfg.Registry.Database)
		if err != nil {
			return nil, err
		}
		s.store = store
		c.WithStore(store).WithRetryPolicy(cfg.Registry.Retry.Policy())
	}
	return s, nil
}

var (
	errWatchNeedsDirectory = errors.ValidationError("watch mode requires a source directory, not a git origin").Build()
	errNoDatabase          = errors.ValidationError("no registry database configured; set registry.database or --database").Build()
)

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
