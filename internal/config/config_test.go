package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalValid fills in the two fields that have no default.
func minimalValid() *Config {
	cfg := Defaults()
	cfg.Scorer.APIKey = "test-key"
	cfg.Ledger.VaultAddress = "VauLt1111111111111111111111111111111111111"
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "gemini-pro", cfg.Scorer.Model)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.Ledger.RPCURL)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", cfg.Ledger.USDCMint)
	assert.Equal(t, int64(50000), cfg.Catalog.Price)
	assert.Equal(t, "USDC", cfg.Catalog.Asset)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.RefreshInterval.Duration)
	assert.Equal(t, 10, cfg.Catalog.SourceLimit)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.False(t, cfg.Postgres.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.S3.Enabled)
}

func TestValidate_MinimalValid(t *testing.T) {
	assert.NoError(t, minimalValid().Validate())
}

func TestValidate_MissingRequirements(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scorer.api_key")
	assert.Contains(t, err.Error(), "ledger.vault_address")
}

func TestValidate_BadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero price", func(c *Config) { c.Catalog.Price = 0 }, "catalog.price"},
		{"negative price", func(c *Config) { c.Catalog.Price = -5 }, "catalog.price"},
		{"zero refresh", func(c *Config) { c.Catalog.RefreshInterval.Duration = 0 }, "catalog.refresh_interval"},
		{"zero concurrency", func(c *Config) { c.Scorer.Concurrency = 0 }, "scorer.concurrency"},
		{"zero source limit", func(c *Config) { c.Catalog.SourceLimit = 0 }, "catalog.source_limit"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"postgres enabled without target", func(c *Config) { c.Postgres.Enabled = true }, "postgres"},
		{"s3 enabled without bucket", func(c *Config) { c.S3.Enabled = true }, "s3.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[scorer]
api_key = "file-key"
model = "gemini-1.5-pro"

[ledger]
vault_address = "FileVault111"

[catalog]
price = 75000
refresh_interval = "90s"

[server]
port = 8080
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "file-key", cfg.Scorer.APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.Scorer.Model)
	assert.Equal(t, "FileVault111", cfg.Ledger.VaultAddress)
	assert.Equal(t, int64(75000), cfg.Catalog.Price)
	assert.Equal(t, 90*time.Second, cfg.Catalog.RefreshInterval.Duration)
	assert.Equal(t, 8080, cfg.Server.Port)

	// Untouched sections keep their defaults.
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.Ledger.RPCURL)
	assert.Equal(t, "USDC", cfg.Catalog.Asset)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, int64(50000), cfg.Catalog.Price)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SIGNALFEED_SCORER_API_KEY", "env-key")
	t.Setenv("SIGNALFEED_LEDGER_VAULT_ADDRESS", "EnvVault111")
	t.Setenv("SIGNALFEED_CATALOG_PRICE", "60000")
	t.Setenv("SIGNALFEED_CATALOG_REFRESH_INTERVAL", "2m")
	t.Setenv("SIGNALFEED_SERVER_PORT", "9999")
	t.Setenv("SIGNALFEED_POSTGRES_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Scorer.APIKey)
	assert.Equal(t, "EnvVault111", cfg.Ledger.VaultAddress)
	assert.Equal(t, int64(60000), cfg.Catalog.Price)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.RefreshInterval.Duration)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Postgres.Enabled)
}

func TestLoad_CompatibilityAliases(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "alias-key")
	t.Setenv("SOLANA_RPC_URL", "https://rpc.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)

	assert.Equal(t, "alias-key", cfg.Scorer.APIKey)
	assert.Equal(t, "https://rpc.example.com", cfg.Ledger.RPCURL)
}

func TestLoad_EnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[scorer]
api_key = "file-key"
`), 0o600))

	t.Setenv("SIGNALFEED_SCORER_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Scorer.APIKey)
}
