package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"AI_MODELS_ASSETS",
		"AI_MODELS_REMOTE",
		"AI_MODELS_REMOTE_URL",
		"AI_MODELS_REMOTE_TOKEN",
	} {
		// t.Setenv registers the restore, Unsetenv clears the value.
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Assets)
	assert.False(t, cfg.Remote)
	assert.Empty(t, cfg.RemoteURL)
	assert.Empty(t, cfg.RemoteToken)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("AI_MODELS_ASSETS", "/data/assets")
	t.Setenv("AI_MODELS_REMOTE", "1")
	t.Setenv("AI_MODELS_REMOTE_URL", "https://example.com/api/v1/")
	t.Setenv("AI_MODELS_REMOTE_TOKEN", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/data/assets", cfg.Assets)
	assert.True(t, cfg.Remote)
	assert.Equal(t, "https://example.com/api/v1/", cfg.RemoteURL)
	assert.Equal(t, "secret", cfg.RemoteToken)
}

func TestFromEnvBadRemote(t *testing.T) {
	t.Setenv("AI_MODELS_REMOTE", "maybe")

	_, err := FromEnv()
	assert.Error(t, err)
}
