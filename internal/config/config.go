// Package config resolves ai-models configuration from the environment and
// from the per-user API config file.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds configuration read from environment variables.
type Env struct {
	// Assets is the default directory containing model weights and other
	// assets when --assets is not given.
	Assets string `env:"AI_MODELS_ASSETS" envDefault:"."`

	// Remote enables remote execution by default when set to "1".
	Remote bool `env:"AI_MODELS_REMOTE"`

	// RemoteURL overrides the remote inference API URL.
	RemoteURL string `env:"AI_MODELS_REMOTE_URL"`

	// RemoteToken overrides the remote inference API token.
	RemoteToken string `env:"AI_MODELS_REMOTE_TOKEN"`
}

// FromEnv loads configuration from environment variables.
func FromEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
