package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SIGNALFEED_* environment variable overrides,
// and returns the final Config. A missing file is not an error: the service
// can be configured from the environment alone. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SIGNALFEED_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// --- Scorer ---
	setStr(&cfg.Scorer.APIKey, "GEMINI_API_KEY") // compatibility alias
	setStr(&cfg.Scorer.APIKey, "SIGNALFEED_SCORER_API_KEY")
	setStr(&cfg.Scorer.Model, "SIGNALFEED_SCORER_MODEL")
	setStr(&cfg.Scorer.BaseURL, "SIGNALFEED_SCORER_BASE_URL")
	setInt(&cfg.Scorer.TimeoutSeconds, "SIGNALFEED_SCORER_TIMEOUT_SECONDS")
	setInt(&cfg.Scorer.Concurrency, "SIGNALFEED_SCORER_CONCURRENCY")

	// --- Ledger ---
	setStr(&cfg.Ledger.RPCURL, "SOLANA_RPC_URL") // compatibility alias
	setStr(&cfg.Ledger.RPCURL, "SIGNALFEED_LEDGER_RPC_URL")
	setStr(&cfg.Ledger.VaultAddress, "SIGNALFEED_LEDGER_VAULT_ADDRESS")
	setStr(&cfg.Ledger.USDCMint, "SIGNALFEED_LEDGER_USDC_MINT")
	setInt(&cfg.Ledger.TimeoutSeconds, "SIGNALFEED_LEDGER_TIMEOUT_SECONDS")

	// --- Catalog ---
	setInt64(&cfg.Catalog.Price, "SIGNALFEED_CATALOG_PRICE")
	setStr(&cfg.Catalog.Asset, "SIGNALFEED_CATALOG_ASSET")
	setDuration(&cfg.Catalog.RefreshInterval, "SIGNALFEED_CATALOG_REFRESH_INTERVAL")
	setInt(&cfg.Catalog.SourceLimit, "SIGNALFEED_CATALOG_SOURCE_LIMIT")

	// --- Market sources ---
	setStr(&cfg.Polymarket.GammaHost, "SIGNALFEED_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Kalshi.BaseURL, "SIGNALFEED_KALSHI_BASE_URL")

	// --- Postgres ---
	setBool(&cfg.Postgres.Enabled, "SIGNALFEED_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SIGNALFEED_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SIGNALFEED_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SIGNALFEED_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SIGNALFEED_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SIGNALFEED_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SIGNALFEED_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SIGNALFEED_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SIGNALFEED_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SIGNALFEED_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SIGNALFEED_POSTGRES_RUN_MIGRATIONS")

	// --- Redis ---
	setBool(&cfg.Redis.Enabled, "SIGNALFEED_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SIGNALFEED_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SIGNALFEED_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SIGNALFEED_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SIGNALFEED_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SIGNALFEED_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SIGNALFEED_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.UnlockTTL, "SIGNALFEED_REDIS_UNLOCK_TTL")

	// --- S3 ---
	setBool(&cfg.S3.Enabled, "SIGNALFEED_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SIGNALFEED_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SIGNALFEED_S3_REGION")
	setStr(&cfg.S3.Bucket, "SIGNALFEED_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SIGNALFEED_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SIGNALFEED_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "SIGNALFEED_S3_FORCE_PATH_STYLE")

	// --- Server ---
	setInt(&cfg.Server.Port, "SIGNALFEED_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SIGNALFEED_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SIGNALFEED_SERVER_API_KEY")

	// --- Notify ---
	setStr(&cfg.Notify.TelegramToken, "SIGNALFEED_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SIGNALFEED_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SIGNALFEED_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SIGNALFEED_NOTIFY_EVENTS")

	// --- Top-level ---
	setStr(&cfg.LogLevel, "SIGNALFEED_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
