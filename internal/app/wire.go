package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/cache/redis"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/crypto"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/notify"
	"github.com/alanyoungcy/arbwatch/internal/platform/btcmarkets"
	"github.com/alanyoungcy/arbwatch/internal/platform/coinbase"
	"github.com/alanyoungcy/arbwatch/internal/platform/cryptocompare"
	"github.com/alanyoungcy/arbwatch/internal/report"
	"github.com/alanyoungcy/arbwatch/internal/sheets"
	"github.com/alanyoungcy/arbwatch/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Price sources
	Venue     *btcmarkets.Client
	Retail    *coinbase.Client
	Reference *cryptocompare.Client

	Calculator arbitrage.Calculator
	Location   *time.Location
	Metrics    *metrics.Recorder

	// Report sinks in fan-out order. The console always comes first.
	Sinks []domain.ReportSink

	// Optional infrastructure; nil when not configured.
	Cycles      domain.CycleStore
	Audit       domain.AuditLog
	Reports     domain.ReportReader
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	// Notifications; nil when the channel is disabled.
	Desktop domain.Notifier
	Push    domain.Notifier
}

// needsStores returns true for modes that run report cycles.
func needsStores(mode string) bool {
	return mode == "once" || mode == "daemon"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources. The console report is written
// to stdout.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return fail(err)
	}

	deps := &Dependencies{
		Calculator: arbitrage.NewCalculator(cfg.Fees.Retail, cfg.Fees.Venue),
		Location:   loc,
		Metrics:    metrics.New(),
	}

	// --- Price sources ---
	signer, err := venueSigner(cfg)
	if err != nil {
		return fail(err)
	}
	deps.Venue = btcmarkets.NewClient(cfg.BTCMarkets.BaseURL, signer)

	retailSecret, err := crypto.LoadSecret(crypto.SecretConfig{
		Raw:           cfg.Coinbase.APISecret,
		EncryptedPath: cfg.Coinbase.EncryptedSecretPath,
		Password:      cfg.Coinbase.SecretPassword,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: coinbase secret: %w: %w", domain.ErrConfig, err))
	}
	deps.Retail = coinbase.NewClient(cfg.Coinbase.BaseURL, &crypto.HMACAuth{
		Key:     cfg.Coinbase.APIKey,
		Secret:  retailSecret,
		Version: cfg.Coinbase.APIVersion,
	})
	deps.Reference = cryptocompare.NewClient(cfg.CryptoCompare.BaseURL)

	deps.Sinks = append(deps.Sinks, report.NewConsole(stdout, loc))

	if !needsStores(cfg.Mode) {
		return deps, cleanup, nil
	}

	// --- Google Sheets ---
	if cfg.Sheets.Enabled {
		appender, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Range:           cfg.Sheets.Range,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			CredentialsJSON: cfg.Sheets.CredentialsJSON,
			AppName:         cfg.Sheets.AppName,
			RollingWindow:   cfg.Sheets.RollingWindow,
			SheetID:         cfg.Sheets.SheetID,
			Location:        loc,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: sheets: %w", err))
		}
		deps.Sinks = append(deps.Sinks, appender)
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		cycles := postgres.NewCycleStore(pool)
		deps.Cycles = cycles
		deps.Audit = postgres.NewAuditStore(pool)
		deps.Sinks = append(deps.Sinks, cycles)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		reportCache := redis.NewReportCache(redisClient, cfg.Redis.ReportTTL.Duration)
		bus := redis.NewSignalBus(redisClient)
		deps.Reports = reportCache
		deps.SignalBus = bus
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Sinks = append(deps.Sinks, reportCache, redis.NewReportPublisher(bus))
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Sinks = append(deps.Sinks, s3blob.NewReportArchiver(s3blob.NewWriter(s3Client)))
	}

	// --- Notifications ---
	if cfg.Notify.DesktopEnabled {
		deps.Desktop = notify.NewNotifier(
			[]notify.Sender{notify.NewDesktopSender()},
			[]string{domain.EventVarianceAlert},
			logger,
		)
	}
	if cfg.Notify.PushEnabled {
		if n := pushNotifier(cfg, logger); n.Len() > 0 {
			deps.Push = n
		}
	}

	return deps, cleanup, nil
}

// venueSigner builds the BTC Markets signer, or returns nil when no key is
// configured. Public endpoints work without one.
func venueSigner(cfg *config.Config) (*crypto.VenueSigner, error) {
	if cfg.BTCMarkets.APIKey == "" {
		return nil, nil
	}
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		Raw:           cfg.BTCMarkets.APISecret,
		EncryptedPath: cfg.BTCMarkets.EncryptedSecretPath,
		Password:      cfg.BTCMarkets.SecretPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: btcmarkets secret: %w: %w", domain.ErrConfig, err)
	}
	signer, err := crypto.NewVenueSigner(cfg.BTCMarkets.APIKey, secret, crypto.NewNonceSource(nil))
	if err != nil {
		return nil, fmt.Errorf("wire: btcmarkets signer: %w: %w", domain.ErrConfig, err)
	}
	return signer, nil
}

// pushNotifier collects every push channel that has credentials.
func pushNotifier(cfg *config.Config, logger *slog.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.Notify.PushedAppKey != "" && cfg.Notify.PushedAppSecret != "" {
		senders = append(senders, notify.NewPushedSender(cfg.Notify.PushedAppKey, cfg.Notify.PushedAppSecret))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	return notify.NewNotifier(senders, cfg.Notify.Events, logger)
}
