package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every environment variable read by Bloomy.
const EnvPrefix = "BLOOMY_"

// ParseEnv loads the app, logging and telemetry settings from the process
// environment. Struct tags name the variable without the prefix, so
// `env:"HTTP_ADDR"` reads BLOOMY_HTTP_ADDR.
func ParseEnv(target any) error {
	return ParseEnvFrom(target, nil)
}

// ParseEnvFrom is ParseEnv over an explicit environment. A nil environ reads
// the process environment; a non-nil one is the only source, which keeps CLI
// runs in tests from seeing the developer's BLOOMY_ variables.
func ParseEnvFrom(target any, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
