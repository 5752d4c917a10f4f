package commands

import (
	"git.home.luguber.info/inful/docweave/internal/compiler"
	"git.home.luguber.info/inful/docweave/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SourceFlags `embed:""`

	DryRun bool `name:"dry-run" help:"Parse and render without writing output"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	result, _, err := b.build(g, root)
	if err != nil {
		return err
	}
	return result.Err()
}

// build compiles once and prints the summary. It also returns the output
// directory that was written.
func (b *BuildCmd) build(g *Global, root *CLI) (*compiler.Result, string, error) {
	s, err := newSession(g, root, &b.SourceFlags, compiler.Options{DryRun: b.DryRun})
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = s.Close() }()

	result, err := s.compiler.Run(g.Context)
	if result != nil {
		if perr := printSummary(g.Stdout, result, root.NoColor); perr != nil && err == nil {
			err = perr
		}
	}
	if merr := s.writeMetrics(); merr != nil {
		g.Logger.Warn("Failed to write metrics", logfields.Error(merr))
	}
	return result, s.cfg.Output, err
}
