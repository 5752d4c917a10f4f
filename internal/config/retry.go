package config

import (
	"time"

	"git.home.luguber.info/inful/docweave/internal/foundation/normalization"
	"git.home.luguber.info/inful/docweave/internal/retry"
)

// RetryConfig tunes retries of transient registry database failures. Unset
// fields keep the retry package defaults.
type RetryConfig struct {
	Backoff    string        `yaml:"backoff,omitempty"` // fixed|linear|exponential
	Initial    time.Duration `yaml:"initial,omitempty"`
	Max        time.Duration `yaml:"max,omitempty"`
	MaxRetries *int          `yaml:"max_retries,omitempty"`
}

var backoffModes = normalization.NewNormalizer(map[string]retry.BackoffMode{
	string(retry.BackoffFixed):       retry.BackoffFixed,
	string(retry.BackoffLinear):      retry.BackoffLinear,
	string(retry.BackoffExponential): retry.BackoffExponential,
}, retry.DefaultPolicy().Mode)

// Policy builds the retry policy described by r.
func (r RetryConfig) Policy() retry.Policy {
	maxRetries := -1
	if r.MaxRetries != nil {
		maxRetries = *r.MaxRetries
	}
	return retry.NewPolicy(backoffModes.Normalize(r.Backoff), r.Initial, r.Max, maxRetries)
}

func (r RetryConfig) validate() error {
	if r.Backoff != "" {
		if _, ok := backoffModes.Lookup(r.Backoff); !ok {
			return invalid("registry.retry.backoff", r.Backoff, "must be "+backoffModes.Describe())
		}
	}
	switch {
	case r.Initial < 0:
		return invalid("registry.retry.initial", r.Initial, "must not be negative")
	case r.Max < 0:
		return invalid("registry.retry.max", r.Max, "must not be negative")
	case r.MaxRetries != nil && *r.MaxRetries < 0:
		return invalid("registry.retry.max_retries", *r.MaxRetries, "must not be negative")
	}
	return nil
}
