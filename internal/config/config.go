// Package config defines the top-level configuration for the signal feed
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SIGNALFEED_* environment
// variables.
type Config struct {
	Scorer     ScorerConfig     `toml:"scorer"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// ScorerConfig holds credentials and tuning for the Gemini alpha scorer.
type ScorerConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Concurrency    int    `toml:"concurrency"` // max in-flight scoring calls per refresh
}

// LedgerConfig holds the Solana RPC endpoint and payment parameters.
type LedgerConfig struct {
	RPCURL         string `toml:"rpc_url"`
	VaultAddress   string `toml:"vault_address"`
	USDCMint       string `toml:"usdc_mint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CatalogConfig holds signal pricing and refresh parameters.
type CatalogConfig struct {
	Price           int64    `toml:"price"` // smallest-unit USDC per reveal
	Asset           string   `toml:"asset"`
	RefreshInterval duration `toml:"refresh_interval"`
	SourceLimit     int      `toml:"source_limit"` // markets requested per venue per refresh
}

// PolymarketConfig holds the Gamma API endpoint for market discovery.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// KalshiConfig holds the Kalshi REST endpoint for market discovery.
type KalshiConfig struct {
	BaseURL string `toml:"base_url"`
}

// PostgresConfig holds PostgreSQL connection parameters. Persistence is
// optional; when Enabled is false the service runs from the in-memory
// snapshot only.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the unlock cache.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	UnlockTTL  duration `toml:"unlock_ttl"`
}

// S3Config holds S3-compatible object storage parameters for batch archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"` // if empty, authentication is disabled
}

// NotifyConfig holds operator notification channels.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so it can be decoded from TOML strings like
// "5m" or "90s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Defaults returns the built-in configuration that a TOML file is merged on
// top of. The ledger RPC URL falls back to the public mainnet endpoint; the
// scorer key and vault address have no default and must be provided.
func Defaults() Config {
	return Config{
		Scorer: ScorerConfig{
			Model:          "gemini-pro",
			BaseURL:        "https://generativelanguage.googleapis.com",
			TimeoutSeconds: 30,
			Concurrency:    4,
		},
		Ledger: LedgerConfig{
			RPCURL:         "https://api.mainnet-beta.solana.com",
			USDCMint:       "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			TimeoutSeconds: 10,
		},
		Catalog: CatalogConfig{
			Price:           50000, // 0.05 USDC
			Asset:           "USDC",
			RefreshInterval: duration{5 * time.Minute},
			SourceLimit:     10,
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			UnlockTTL: duration{24 * time.Hour},
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Server: ServerConfig{
			Port:        4000,
			CORSOrigins: []string{"*"},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for fatal startup conditions. A missing
// scorer credential or vault address prevents the process from serving.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Scorer.APIKey) == "" {
		problems = append(problems, "scorer.api_key is required")
	}
	if strings.TrimSpace(c.Ledger.VaultAddress) == "" {
		problems = append(problems, "ledger.vault_address is required")
	}
	if strings.TrimSpace(c.Ledger.RPCURL) == "" {
		problems = append(problems, "ledger.rpc_url must not be empty")
	}
	if c.Catalog.Price <= 0 {
		problems = append(problems, "catalog.price must be positive")
	}
	if c.Catalog.RefreshInterval.Duration <= 0 {
		problems = append(problems, "catalog.refresh_interval must be positive")
	}
	if c.Scorer.Concurrency <= 0 {
		problems = append(problems, "scorer.concurrency must be positive")
	}
	if c.Catalog.SourceLimit <= 0 {
		problems = append(problems, "catalog.source_limit must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" && strings.TrimSpace(c.Postgres.Host) == "" {
		problems = append(problems, "postgres.dsn or postgres.host required when postgres.enabled")
	}
	if c.S3.Enabled && strings.TrimSpace(c.S3.Bucket) == "" {
		problems = append(problems, "s3.bucket required when s3.enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
