package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.False(t, cfg.Auth.Enabled)
	require.Equal(t, "local", cfg.Auth.DevOwner)
	require.Empty(t, cfg.Discovery.ProviderURL)
	require.Equal(t, 20, cfg.Discovery.DefaultLimit)
	require.Equal(t, 3, cfg.Discovery.MaxAttempts)
	require.Equal(t, 4, cfg.Discovery.JobConcurrency)
	require.Equal(t, 4, cfg.Discovery.PageConcurrency)
	require.Equal(t, 15*time.Second, cfg.FetchTimeout())
	require.Equal(t, 10*time.Second, cfg.RobotsTimeout())
	require.Contains(t, cfg.Discovery.UserAgent, "LeadScoutBot")
	require.Equal(t, "linkly", cfg.Discovery.BotToken)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
auth:
  enabled: true
  api_keys:
    secret-key: acme-team
discovery:
  provider_url: https://search.internal/api
  default_limit: 10
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "acme-team", cfg.Auth.APIKeys["secret-key"])
	require.Equal(t, "https://search.internal/api", cfg.Discovery.ProviderURL)
	require.Equal(t, 10, cfg.Discovery.DefaultLimit)
	// Untouched keys keep their defaults.
	require.Equal(t, 3, cfg.Discovery.MaxAttempts)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Discovery: DiscoveryConfig{
				DefaultLimit:    20,
				MaxAttempts:     3,
				JobConcurrency:  4,
				PageConcurrency: 4,
				TimeoutSeconds:  15,
			},
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Discovery.DefaultLimit = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Discovery.DefaultLimit = 101
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Discovery.MaxAttempts = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Discovery.PageConcurrency = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Auth.Enabled = true
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = map[string]string{"key": "owner"}
	require.NoError(t, cfg.Validate())
}
