// Package config defines the top-level configuration for arbwatch and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // report timezone must resolve on hosts without zoneinfo

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/platform/btcmarkets"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARB_* environment variables.
type Config struct {
	BTCMarkets    BTCMarketsConfig    `toml:"btcmarkets"`
	Coinbase      CoinbaseConfig      `toml:"coinbase"`
	CryptoCompare CryptoCompareConfig `toml:"cryptocompare"`
	Fees          FeesConfig          `toml:"fees"`
	Cycle         CycleConfig         `toml:"cycle"`
	Notify        NotifyConfig        `toml:"notify"`
	Sheets        SheetsConfig        `toml:"sheets"`
	Postgres      PostgresConfig      `toml:"postgres"`
	Redis         RedisConfig         `toml:"redis"`
	S3            S3Config            `toml:"s3"`
	Server        ServerConfig        `toml:"server"`
	Mode          string              `toml:"mode"`
	LogLevel      string              `toml:"log_level"`
}

// BTCMarketsConfig holds the trading venue endpoint and signing credentials.
type BTCMarketsConfig struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	APISecret           string `toml:"api_secret"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
}

// CoinbaseConfig holds the retail on-ramp endpoint and credentials.
type CoinbaseConfig struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	APISecret           string `toml:"api_secret"`
	APIVersion          string `toml:"api_version"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
	PaymentMethodIndex  int    `toml:"payment_method_index"`
}

// CryptoCompareConfig holds the reference aggregator endpoint.
type CryptoCompareConfig struct {
	BaseURL string `toml:"base_url"`
}

// FeesConfig holds the fee percentages applied to raw prices.
type FeesConfig struct {
	Retail decimal.Decimal `toml:"retail"`
	Venue  decimal.Decimal `toml:"venue"`
}

// CycleConfig controls what one cycle prices and how often the daemon runs.
type CycleConfig struct {
	Assets              []string `toml:"assets"`
	ReferenceCurrencies []string `toml:"reference_currencies"`
	QuoteCurrency       string   `toml:"quote_currency"`
	Interval            duration `toml:"interval"`
	// Timezone is the IANA zone used for report timestamps.
	Timezone string `toml:"timezone"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "10m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "10m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NotifyConfig holds alert thresholds and notification channel credentials.
type NotifyConfig struct {
	DesktopEnabled   bool            `toml:"desktop_enabled"`
	DesktopThreshold decimal.Decimal `toml:"desktop_threshold"`

	PushEnabled   bool            `toml:"push_enabled"`
	PushThreshold decimal.Decimal `toml:"push_threshold"`
	// MinBudget is the smallest budget after fee that still warrants a push.
	MinBudget decimal.Decimal `toml:"min_budget"`

	PushedAppKey      string   `toml:"pushed_app_key"`
	PushedAppSecret   string   `toml:"pushed_app_secret"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// SheetsConfig holds Google Sheets parameters.
type SheetsConfig struct {
	Enabled         bool   `toml:"enabled"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	Range           string `toml:"range"`
	CredentialsFile string `toml:"credentials_file"`
	CredentialsJSON string `toml:"credentials_json"`
	AppName         string `toml:"app_name"`
	RollingWindow   bool   `toml:"rolling_window"`
	SheetID         int64  `toml:"sheet_id"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	LockTTL    duration `toml:"lock_ttl"`
	ReportTTL  duration `toml:"report_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ServerConfig holds status server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is the number of API requests allowed per client per minute.
	// Zero disables limiting. Requires Redis.
	RateLimit int `toml:"rate_limit"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		BTCMarkets: BTCMarketsConfig{
			BaseURL: "https://api.btcmarkets.net",
		},
		Coinbase: CoinbaseConfig{
			BaseURL:    "https://api.coinbase.com",
			APIVersion: "2017-08-07",
		},
		CryptoCompare: CryptoCompareConfig{
			BaseURL: "https://min-api.cryptocompare.com",
		},
		Fees: FeesConfig{
			Retail: decimal.RequireFromString("3.99"),
			Venue:  decimal.RequireFromString("0.75"),
		},
		Cycle: CycleConfig{
			Assets:              []string{"BTC", "ETH", "LTC", "BCH"},
			ReferenceCurrencies: []string{"AUD", "USD", "GBP"},
			QuoteCurrency:       "AUD",
			Interval:            duration{10 * time.Minute},
			Timezone:            "Australia/Sydney",
		},
		Notify: NotifyConfig{
			DesktopThreshold: decimal.RequireFromString("2"),
			PushThreshold:    decimal.RequireFromString("3"),
			MinBudget:        decimal.RequireFromString("400"),
			Events:           []string{domain.EventVarianceAlert, domain.EventCycleFailed},
		},
		Sheets: SheetsConfig{
			Range:   "A2:G2",
			AppName: "arbwatch",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "arbwatch:",
			LockTTL:    duration{15 * time.Minute},
			ReportTTL:  duration{30 * time.Minute},
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "arbwatch-reports",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Mode:     "once",
		LogLevel: "info",
	}
}

// Location resolves Cycle.Timezone, falling back to UTC when it is empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Cycle.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Cycle.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w: %w", c.Cycle.Timezone, domain.ErrConfig, err)
	}
	return loc, nil
}

// Assets parses Cycle.Assets.
func (c *Config) Assets() ([]domain.Asset, error) {
	out := make([]domain.Asset, 0, len(c.Cycle.Assets))
	for _, s := range c.Cycle.Assets {
		a, err := domain.ParseAsset(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Currencies parses Cycle.ReferenceCurrencies.
func (c *Config) Currencies() ([]domain.Currency, error) {
	out := make([]domain.Currency, 0, len(c.Cycle.ReferenceCurrencies))
	for _, s := range c.Cycle.ReferenceCurrencies {
		cur, err := domain.ParseCurrency(s)
		if err != nil {
			return nil, err
		}
		out = append(out, cur)
	}
	return out, nil
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"once":           true,
	"daemon":         true,
	"test":           true,
	"encrypt-secret": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found. The error wraps
// domain.ErrConfig.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: once, daemon, test, encrypt-secret)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// encrypt-secret only reads stdin, so nothing below applies.
	if mode == "encrypt-secret" {
		return joinErrs(errs)
	}

	if c.BTCMarkets.BaseURL == "" {
		errs = append(errs, "btcmarkets: base_url must not be empty")
	}
	if c.BTCMarkets.EncryptedSecretPath != "" && c.BTCMarkets.SecretPassword == "" {
		errs = append(errs, "btcmarkets: secret_password is required when encrypted_secret_path is set")
	}
	if mode == "test" && c.BTCMarkets.APIKey == "" {
		errs = append(errs, "btcmarkets: api_key is required for mode test")
	}

	if mode != "test" {
		if c.Coinbase.BaseURL == "" {
			errs = append(errs, "coinbase: base_url must not be empty")
		}
		if c.Coinbase.APIKey == "" {
			errs = append(errs, "coinbase: api_key is required to read the purchase allowance")
		}
		if c.Coinbase.APISecret == "" && c.Coinbase.EncryptedSecretPath == "" {
			errs = append(errs, "coinbase: either api_secret or encrypted_secret_path must be set")
		}
		if c.Coinbase.EncryptedSecretPath != "" && c.Coinbase.SecretPassword == "" {
			errs = append(errs, "coinbase: secret_password is required when encrypted_secret_path is set")
		}
		if c.Coinbase.PaymentMethodIndex < 0 {
			errs = append(errs, "coinbase: payment_method_index must be >= 0")
		}
		if c.CryptoCompare.BaseURL == "" {
			errs = append(errs, "cryptocompare: base_url must not be empty")
		}
	}

	if c.Fees.Retail.IsNegative() || c.Fees.Retail.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		errs = append(errs, "fees: retail must be in [0, 100)")
	}
	if c.Fees.Venue.IsNegative() || c.Fees.Venue.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		errs = append(errs, "fees: venue must be in [0, 100)")
	}

	if len(c.Cycle.Assets) == 0 {
		errs = append(errs, "cycle: assets must not be empty")
	}
	for _, s := range c.Cycle.Assets {
		if _, err := domain.ParseAsset(s); err != nil {
			errs = append(errs, fmt.Sprintf("cycle: unknown asset %q", s))
		}
	}
	for _, s := range c.Cycle.ReferenceCurrencies {
		if _, err := domain.ParseCurrency(s); err != nil {
			errs = append(errs, fmt.Sprintf("cycle: unknown reference currency %q", s))
		}
	}
	if quote, err := domain.ParseCurrency(c.Cycle.QuoteCurrency); err != nil {
		errs = append(errs, fmt.Sprintf("cycle: unknown quote_currency %q", c.Cycle.QuoteCurrency))
	} else if quote != btcmarkets.QuoteCurrency {
		errs = append(errs, fmt.Sprintf("cycle: quote_currency %s does not match the venue market currency %s",
			quote, btcmarkets.QuoteCurrency))
	}
	if mode == "daemon" && c.Cycle.Interval.Duration <= 0 {
		errs = append(errs, "cycle: interval must be > 0 for mode daemon")
	}
	if c.Cycle.Timezone != "" {
		if _, err := time.LoadLocation(c.Cycle.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("cycle: unknown timezone %q", c.Cycle.Timezone))
		}
	}

	if c.Notify.PushEnabled {
		hasChannel := (c.Notify.PushedAppKey != "" && c.Notify.PushedAppSecret != "") ||
			(c.Notify.TelegramToken != "" && c.Notify.TelegramChatID != "") ||
			c.Notify.DiscordWebhookURL != ""
		if !hasChannel {
			errs = append(errs, "notify: push_enabled needs pushed, telegram or discord credentials")
		}
	}

	if c.Sheets.Enabled {
		if c.Sheets.SpreadsheetID == "" {
			errs = append(errs, "sheets: spreadsheet_id must be set when enabled")
		}
		if c.Sheets.CredentialsFile == "" && c.Sheets.CredentialsJSON == "" {
			errs = append(errs, "sheets: either credentials_file or credentials_json must be set")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && !c.Redis.Enabled {
			errs = append(errs, "server: rate_limit requires redis.enabled")
		}
	}

	return joinErrs(errs)
}

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: config validation failed:\n  - %s", domain.ErrConfig, strings.Join(errs, "\n  - "))
}
