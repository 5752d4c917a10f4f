package diagnostics

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// TextFormatter writes diagnostics as human-readable text, grouped by document.
type TextFormatter struct {
	noColor bool
}

// NewTextFormatter creates a text formatter. Colors are also disabled when the
// output is not a terminal.
func NewTextFormatter(noColor bool) *TextFormatter {
	return &TextFormatter{noColor: noColor}
}

// Format writes items followed by a one-line summary.
func (f *TextFormatter) Format(w io.Writer, items []Diagnostic) error {
	current := "\x00"
	for _, d := range items {
		if d.Document != current {
			current = d.Document
			name := current
			if name == "" {
				name = "(run)"
			}
			if _, err := f.paint(color.Bold).Fprintln(w, name); err != nil {
				return err
			}
		}
		if err := f.formatItem(w, d); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, Summary(items))
	return err
}

func (f *TextFormatter) formatItem(w io.Writer, d Diagnostic) error {
	label := f.paint(severityColor(d.Severity)).Sprintf("%-7s", d.Severity)
	line := fmt.Sprintf("  %s %s", label, d.Message)
	if d.Phase != "" {
		line += " [" + d.Phase + "]"
	}
	if d.Detail != "" {
		line += ": " + d.Detail
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func (f *TextFormatter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f.noColor {
		c.DisableColor()
	}
	return c
}

func severityColor(s Severity) color.Attribute {
	switch s {
	case SeverityError:
		return color.FgRed
	case SeverityWarning:
		return color.FgYellow
	default:
		return color.FgCyan
	}
}

// Summary returns "N errors, M warnings" for items.
func Summary(items []Diagnostic) string {
	var errs, warns int
	for _, d := range items {
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
	}
	return fmt.Sprintf("%d error%s, %d warning%s", errs, plural(errs), warns, plural(warns))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
