package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/docweave/internal/compiler"
	"git.home.luguber.info/inful/docweave/internal/diagnostics"
)

// printSummary writes the diagnostics of result and a one-line status.
func printSummary(w io.Writer, result *compiler.Result, noColor bool) error {
	if len(result.Diagnostics) > 0 {
		if err := diagnostics.NewTextFormatter(noColor).Format(w, result.Diagnostics); err != nil {
			return err
		}
	}

	c := color.New(statusColor(result.Status), color.Bold)
	if noColor {
		c.DisableColor()
	}
	_, err := fmt.Fprintf(w, "%s %d documents: %d rendered, %d failed, %d unchanged, %d assets in %s\n",
		c.Sprint(result.Status), result.Documents, result.Rendered, len(result.Failures),
		result.Unchanged, result.Assets, result.Duration.Round(time.Millisecond))
	return err
}

func statusColor(s compiler.Status) color.Attribute {
	switch {
	case s == compiler.StatusSuccess:
		return color.FgGreen
	case s.IsSuccess():
		return color.FgYellow
	default:
		return color.FgRed
	}
}
