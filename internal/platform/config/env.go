// Package config loads process configuration from the environment and
// provides the fatal-exit helper shared by command entry points. Commands
// declare env-tagged structs, parse them with ParseEnv, then layer flag
// overrides on top.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables declared through its env
// struct tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
