package config

import (
	"strings"

	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

// Validate reports the first invalid setting as a validation error.
func (c *Config) Validate() error {
	switch {
	case c.Output == "":
		return invalid("output", c.Output, "must not be empty")
	case !c.Git.Enabled() && c.Source == "":
		return invalid("source", c.Source, "must not be empty")
	case c.InitialHeaderLevel < 1 || c.InitialHeaderLevel > 6:
		return invalid("initial_header_level", c.InitialHeaderLevel, "must be between 1 and 6")
	case c.Workers < 0:
		return invalid("workers", c.Workers, "must not be negative")
	case c.Watch.Debounce < 0:
		return invalid("watch.debounce", c.Watch.Debounce, "must not be negative")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return invalid("extensions", ext, "must start with a dot")
		}
	}
	if err := c.Registry.Retry.validate(); err != nil {
		return err
	}
	if _, err := ParseLogLevel(string(c.Logging.Level)); err != nil {
		return err
	}
	if _, err := ParseLogFormat(string(c.Logging.Format)); err != nil {
		return err
	}
	return nil
}

func invalid(field string, value any, reason string) error {
	return errors.ValidationError("invalid configuration: "+field+" "+reason).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
