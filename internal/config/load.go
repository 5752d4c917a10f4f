package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

var (
	// ErrNotFound indicates the configuration file does not exist.
	ErrNotFound = errors.ConfigError("configuration file not found").Build()

	// ErrInvalid indicates the configuration file could not be decoded.
	ErrInvalid = errors.ConfigError("invalid configuration file").Build()

	// ErrEnvFile indicates a .env file exists but could not be parsed.
	ErrEnvFile = errors.ConfigError("failed to load environment file").Build()
)

// EnvFiles are loaded, when present, before the configuration is read.
// Variables already set in the environment win.
var EnvFiles = []string{".env", ".env.local"}

// Load reads path, expanding ${VAR} references from the environment, applies
// defaults and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(EnvFiles); err != nil {
		return nil, err
	}

	cfg := &Config{Clean: true}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNotFound.WithContext("path", path)
			}
			return nil, ErrInvalid.WithCause(err).WithContext("path", path)
		}
		if err := decode(data, cfg); err != nil {
			return nil, ErrInvalid.WithCause(err).WithContext("path", path)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if strings.TrimSpace(expanded) == "" {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func loadEnvFiles(paths []string) error {
	var present []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return ErrEnvFile.WithCause(err).WithContext("files", strings.Join(present, ","))
	}
	return nil
}
