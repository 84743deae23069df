package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies environment variable overrides, and returns the
// final Config. A missing file is not an error: the defaults plus the
// environment are used instead. An environment value that does not parse
// as its field's type is an ErrConfig. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w: %w", path, domain.ErrConfig, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	env := &envLoader{}
	applyLegacyEnv(&cfg, env)
	applyEnvOverrides(&cfg, env)
	if len(env.errs) > 0 {
		return nil, fmt.Errorf("config: environment: %w: %s", domain.ErrConfig, strings.Join(env.errs, "; "))
	}

	return &cfg, nil
}

// applyLegacyEnv maps the variable names older deployments use in their .env
// files. ARB_* variables are applied afterwards and win.
func applyLegacyEnv(cfg *Config, env *envLoader) {
	env.setStr(&cfg.BTCMarkets.APIKey, "BTC_MARKETS_API_KEY")
	env.setStr(&cfg.BTCMarkets.APISecret, "BTC_MARKETS_API_SECRET")
	env.setStr(&cfg.Coinbase.APIKey, "COINBASE_API_KEY")
	env.setStr(&cfg.Coinbase.APISecret, "COINBASE_API_SECRET")

	env.setBool(&cfg.Notify.DesktopEnabled, "NOTIFICATION_ENABLED")
	env.setDecimal(&cfg.Notify.DesktopThreshold, "NOTIFICATION_THRESHOLD")
	env.setBool(&cfg.Notify.PushEnabled, "PUSH_ENABLED")
	env.setDecimal(&cfg.Notify.PushThreshold, "PUSH_THRESHOLD")
	env.setStr(&cfg.Notify.PushedAppKey, "PUSHED_APP_KEY")
	env.setStr(&cfg.Notify.PushedAppSecret, "PUSHED_APP_SECRET")
	env.setDecimal(&cfg.Notify.MinBudget, "BUY_AMOUNT_THRESHOLD")

	env.setBool(&cfg.Sheets.Enabled, "APPEND_TO_GOOGLE_SHEET")
	env.setStr(&cfg.Sheets.SpreadsheetID, "GOOGLE_SHEET_ID")
	env.setStr(&cfg.Sheets.CredentialsFile, "GOOGLE_JSON_AUTH_FILE")
	env.setStr(&cfg.Sheets.CredentialsJSON, "GOOGLE_JSON_AUTH")
	env.setStr(&cfg.Sheets.AppName, "GOOGLE_API_APP_NAME")
}

// applyEnvOverrides reads well-known ARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config, env *envLoader) {
	// ── BTC Markets ──
	env.setStr(&cfg.BTCMarkets.BaseURL, "ARB_BTCMARKETS_BASE_URL")
	env.setStr(&cfg.BTCMarkets.APIKey, "ARB_BTCMARKETS_API_KEY")
	env.setStr(&cfg.BTCMarkets.APISecret, "ARB_BTCMARKETS_API_SECRET")
	env.setStr(&cfg.BTCMarkets.EncryptedSecretPath, "ARB_BTCMARKETS_ENCRYPTED_SECRET_PATH")
	env.setStr(&cfg.BTCMarkets.SecretPassword, "ARB_BTCMARKETS_SECRET_PASSWORD")

	// ── Coinbase ──
	env.setStr(&cfg.Coinbase.BaseURL, "ARB_COINBASE_BASE_URL")
	env.setStr(&cfg.Coinbase.APIKey, "ARB_COINBASE_API_KEY")
	env.setStr(&cfg.Coinbase.APISecret, "ARB_COINBASE_API_SECRET")
	env.setStr(&cfg.Coinbase.APIVersion, "ARB_COINBASE_API_VERSION")
	env.setStr(&cfg.Coinbase.EncryptedSecretPath, "ARB_COINBASE_ENCRYPTED_SECRET_PATH")
	env.setStr(&cfg.Coinbase.SecretPassword, "ARB_COINBASE_SECRET_PASSWORD")
	env.setInt(&cfg.Coinbase.PaymentMethodIndex, "ARB_COINBASE_PAYMENT_METHOD_INDEX")

	// ── CryptoCompare ──
	env.setStr(&cfg.CryptoCompare.BaseURL, "ARB_CRYPTOCOMPARE_BASE_URL")

	// ── Fees ──
	env.setDecimal(&cfg.Fees.Retail, "ARB_FEES_RETAIL")
	env.setDecimal(&cfg.Fees.Venue, "ARB_FEES_VENUE")

	// ── Cycle ──
	env.setStringSlice(&cfg.Cycle.Assets, "ARB_CYCLE_ASSETS")
	env.setStringSlice(&cfg.Cycle.ReferenceCurrencies, "ARB_CYCLE_REFERENCE_CURRENCIES")
	env.setStr(&cfg.Cycle.QuoteCurrency, "ARB_CYCLE_QUOTE_CURRENCY")
	env.setDuration(&cfg.Cycle.Interval, "ARB_CYCLE_INTERVAL")
	env.setStr(&cfg.Cycle.Timezone, "ARB_CYCLE_TIMEZONE")

	// ── Notify ──
	env.setBool(&cfg.Notify.DesktopEnabled, "ARB_NOTIFY_DESKTOP_ENABLED")
	env.setDecimal(&cfg.Notify.DesktopThreshold, "ARB_NOTIFY_DESKTOP_THRESHOLD")
	env.setBool(&cfg.Notify.PushEnabled, "ARB_NOTIFY_PUSH_ENABLED")
	env.setDecimal(&cfg.Notify.PushThreshold, "ARB_NOTIFY_PUSH_THRESHOLD")
	env.setDecimal(&cfg.Notify.MinBudget, "ARB_NOTIFY_MIN_BUDGET")
	env.setStr(&cfg.Notify.PushedAppKey, "ARB_NOTIFY_PUSHED_APP_KEY")
	env.setStr(&cfg.Notify.PushedAppSecret, "ARB_NOTIFY_PUSHED_APP_SECRET")
	env.setStr(&cfg.Notify.TelegramToken, "ARB_NOTIFY_TELEGRAM_TOKEN")
	env.setStr(&cfg.Notify.TelegramChatID, "ARB_NOTIFY_TELEGRAM_CHAT_ID")
	env.setStr(&cfg.Notify.DiscordWebhookURL, "ARB_NOTIFY_DISCORD_WEBHOOK_URL")
	env.setStringSlice(&cfg.Notify.Events, "ARB_NOTIFY_EVENTS")

	// ── Sheets ──
	env.setBool(&cfg.Sheets.Enabled, "ARB_SHEETS_ENABLED")
	env.setStr(&cfg.Sheets.SpreadsheetID, "ARB_SHEETS_SPREADSHEET_ID")
	env.setStr(&cfg.Sheets.Range, "ARB_SHEETS_RANGE")
	env.setStr(&cfg.Sheets.CredentialsFile, "ARB_SHEETS_CREDENTIALS_FILE")
	env.setStr(&cfg.Sheets.CredentialsJSON, "ARB_SHEETS_CREDENTIALS_JSON")
	env.setStr(&cfg.Sheets.AppName, "ARB_SHEETS_APP_NAME")
	env.setBool(&cfg.Sheets.RollingWindow, "ARB_SHEETS_ROLLING_WINDOW")
	env.setInt64(&cfg.Sheets.SheetID, "ARB_SHEETS_SHEET_ID")

	// ── Postgres ──
	env.setBool(&cfg.Postgres.Enabled, "ARB_POSTGRES_ENABLED")
	env.setStr(&cfg.Postgres.DSN, "ARB_POSTGRES_DSN")
	env.setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	env.setStr(&cfg.Postgres.Host, "ARB_POSTGRES_HOST")
	env.setInt(&cfg.Postgres.Port, "ARB_POSTGRES_PORT")
	env.setStr(&cfg.Postgres.Database, "ARB_POSTGRES_DATABASE")
	env.setStr(&cfg.Postgres.User, "ARB_POSTGRES_USER")
	env.setStr(&cfg.Postgres.Password, "ARB_POSTGRES_PASSWORD")
	env.setStr(&cfg.Postgres.SSLMode, "ARB_POSTGRES_SSL_MODE")
	env.setInt(&cfg.Postgres.PoolMaxConns, "ARB_POSTGRES_POOL_MAX_CONNS")
	env.setInt(&cfg.Postgres.PoolMinConns, "ARB_POSTGRES_POOL_MIN_CONNS")
	env.setBool(&cfg.Postgres.RunMigrations, "ARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	env.setBool(&cfg.Redis.Enabled, "ARB_REDIS_ENABLED")
	env.setStr(&cfg.Redis.Addr, "ARB_REDIS_ADDR")
	env.setStr(&cfg.Redis.Password, "ARB_REDIS_PASSWORD")
	env.setInt(&cfg.Redis.DB, "ARB_REDIS_DB")
	env.setInt(&cfg.Redis.PoolSize, "ARB_REDIS_POOL_SIZE")
	env.setInt(&cfg.Redis.MaxRetries, "ARB_REDIS_MAX_RETRIES")
	env.setBool(&cfg.Redis.TLSEnabled, "ARB_REDIS_TLS_ENABLED")
	env.setStr(&cfg.Redis.KeyPrefix, "ARB_REDIS_KEY_PREFIX")
	env.setDuration(&cfg.Redis.LockTTL, "ARB_REDIS_LOCK_TTL")
	env.setDuration(&cfg.Redis.ReportTTL, "ARB_REDIS_REPORT_TTL")

	// ── S3 ──
	env.setBool(&cfg.S3.Enabled, "ARB_S3_ENABLED")
	env.setStr(&cfg.S3.Endpoint, "ARB_S3_ENDPOINT")
	env.setStr(&cfg.S3.Region, "ARB_S3_REGION")
	env.setStr(&cfg.S3.Bucket, "ARB_S3_BUCKET")
	env.setStr(&cfg.S3.AccessKey, "ARB_S3_ACCESS_KEY")
	env.setStr(&cfg.S3.SecretKey, "ARB_S3_SECRET_KEY")
	env.setBool(&cfg.S3.UseSSL, "ARB_S3_USE_SSL")
	env.setBool(&cfg.S3.ForcePathStyle, "ARB_S3_FORCE_PATH_STYLE")
	env.setStr(&cfg.S3.Prefix, "ARB_S3_PREFIX")

	// ── Server ──
	env.setBool(&cfg.Server.Enabled, "ARB_SERVER_ENABLED")
	env.setInt(&cfg.Server.Port, "ARB_SERVER_PORT")
	env.setStr(&cfg.Server.APIKey, "ARB_SERVER_API_KEY")
	env.setStringSlice(&cfg.Server.CORSOrigins, "ARB_SERVER_CORS_ORIGINS")
	env.setInt(&cfg.Server.RateLimit, "ARB_SERVER_RATE_LIMIT")

	// ── Top-level ──
	env.setStr(&cfg.Mode, "ARB_MODE")
	env.setStr(&cfg.LogLevel, "ARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty. Values that do not parse are collected
// and reported by Load.
// ---------------------------------------------------------------------------

type envLoader struct {
	errs []string
}

func (e *envLoader) invalid(key, v, kind string) {
	e.errs = append(e.errs, fmt.Sprintf("%s=%q is not a valid %s", key, v, kind))
}

func (e *envLoader) setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (e *envLoader) setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			e.invalid(key, v, "integer")
			return
		}
		*dst = n
	}
}

func (e *envLoader) setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			e.invalid(key, v, "integer")
			return
		}
		*dst = n
	}
}

func (e *envLoader) setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			e.invalid(key, v, "number")
			return
		}
		*dst = d
	}
}

func (e *envLoader) setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		b, ok := parseFlag(v)
		if !ok {
			e.invalid(key, v, "boolean")
			return
		}
		*dst = b
	}
}

func (e *envLoader) setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		v = strings.TrimSpace(v)
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
			return
		}
		// Bare numbers are seconds, as in CYCLE_INTERVAL=600.
		n, err := strconv.Atoi(v)
		if err != nil {
			e.invalid(key, v, "duration")
			return
		}
		dst.Duration = time.Duration(n) * time.Second
	}
}

func (e *envLoader) setStringSlice(dst *[]string, key string) {
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

// parseFlag accepts strconv.ParseBool spellings plus yes/no and on/off, which
// older .env files use for feature switches.
func parseFlag(v string) (bool, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}
