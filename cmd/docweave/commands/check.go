package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docweave/internal/diagnostics"
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/linkverify"
)

// ErrBrokenLinks is returned by check when the output has broken links.
var ErrBrokenLinks = errors.LinkResolutionError("broken links in output").Build()

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	SourceFlags `embed:""`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	build := &BuildCmd{SourceFlags: c.SourceFlags}
	result, output, err := build.build(g, root)
	if err != nil {
		return err
	}

	report, err := linkverify.NewVerifier(output, c.Workers).Verify(g.Context)
	if err != nil {
		return err
	}

	collector := diagnostics.NewCollector()
	report.Diagnostics(collector)
	if !report.OK() {
		if err := diagnostics.NewTextFormatter(root.NoColor).Format(g.Stdout, collector.Items()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(g.Stdout, "checked %d links on %d pages: %d broken\n",
		report.Links, report.Pages, len(report.Broken)); err != nil {
		return err
	}

	if err := result.Err(); err != nil {
		return err
	}
	if !report.OK() {
		return ErrBrokenLinks.WithContext("broken", len(report.Broken))
	}
	return nil
}
