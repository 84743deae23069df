package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/crypto"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/server"
	"github.com/alanyoungcy/arbwatch/internal/server/ws"
	"github.com/alanyoungcy/arbwatch/internal/service"
)

const (
	// cycleLockKey guards the signed venue client's nonce sequence across
	// processes sharing one account.
	cycleLockKey = "cycle"

	// SecretPasswordEnv holds the password encrypt-secret encrypts with.
	SecretPasswordEnv = "ARB_SECRET_PASSWORD"

	orderHistoryLimit = 10
	maxSecretSize     = 64 << 10
	shutdownTimeout   = 10 * time.Second
)

// cycleRunner is the part of service.CycleService the daemon loop drives.
type cycleRunner interface {
	Run(ctx context.Context) (*domain.CycleReport, error)
}

// OnceMode runs a single report cycle. A cycle that produced no report is an
// error so the process exits non-zero.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	svc, err := a.cycleService(deps)
	if err != nil {
		return err
	}
	if _, err := svc.Run(ctx); err != nil {
		return fmt.Errorf("app: once: %w", err)
	}
	return nil
}

// DaemonMode runs a cycle every cycle.interval until ctx is cancelled, with
// the status server alongside when enabled. Cycle failures are logged and the
// loop waits for the next tick.
func (a *App) DaemonMode(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Cycle.Interval.Duration
	a.logger.InfoContext(ctx, "starting daemon mode", slog.Duration("interval", interval))

	g, ctx := errgroup.WithContext(ctx)

	var (
		hub   *ws.Hub
		extra []domain.ReportSink
	)
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(deps.SignalBus, a.logger)
		// With a bus the hub hears reports through it.
		if deps.SignalBus == nil {
			extra = append(extra, hub)
		}
	}

	svc, err := a.cycleService(deps, extra...)
	if err != nil {
		return err
	}

	if a.cfg.Server.Enabled {
		var reports domain.ReportReader = svc
		if deps.Reports != nil {
			reports = deps.Reports
		}
		a.startHTTPServer(ctx, g, deps, hub, reports)
	}

	g.Go(func() error {
		return a.cycleLoop(ctx, svc, deps.LockManager, interval)
	})

	return g.Wait()
}

// cycleLoop runs one cycle immediately and then one per tick.
func (a *App) cycleLoop(ctx context.Context, svc cycleRunner, locks domain.LockManager, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.runCycle(ctx, svc, locks)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runCycle runs one cycle, holding the cycle lock when a lock manager is
// configured. It reports whether the cycle ran.
func (a *App) runCycle(ctx context.Context, svc cycleRunner, locks domain.LockManager) bool {
	if locks != nil {
		unlock, err := locks.Acquire(ctx, cycleLockKey, a.cfg.Redis.LockTTL.Duration)
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "another instance holds the cycle lock, skipping")
			return false
		}
		if err != nil {
			a.logger.WarnContext(ctx, "cycle lock unavailable, skipping", slog.String("error", err.Error()))
			return false
		}
		defer unlock()
	}

	if _, err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		a.logger.ErrorContext(ctx, "cycle failed", slog.String("error", err.Error()))
	}
	return true
}

// TestMode calls the signed order-history endpoint for ETH and prints the
// result. It checks venue credentials end to end.
func (a *App) TestMode(ctx context.Context, deps *Dependencies) error {
	orders, err := deps.Venue.OrderHistory(ctx, domain.ETH, domain.AUD, orderHistoryLimit, 0)
	if err != nil {
		return fmt.Errorf("app: test: %w", err)
	}
	a.logger.InfoContext(ctx, "order history fetched", slog.Int("orders", len(orders)))

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(orders); err != nil {
		return fmt.Errorf("app: test: write orders: %w", err)
	}
	return nil
}

// EncryptSecretMode reads a secret from stdin, encrypts it with the password
// in ARB_SECRET_PASSWORD and writes the JSON envelope to stdout. The output
// is what btcmarkets.encrypted_secret_path and coinbase.encrypted_secret_path
// point at.
func (a *App) EncryptSecretMode(_ context.Context) error {
	password := os.Getenv(SecretPasswordEnv)
	if password == "" {
		return fmt.Errorf("app: encrypt-secret: %s is not set: %w", SecretPasswordEnv, domain.ErrConfig)
	}

	secret, err := io.ReadAll(io.LimitReader(a.stdin, maxSecretSize))
	if err != nil {
		return fmt.Errorf("app: encrypt-secret: read stdin: %w", err)
	}

	out, err := crypto.EncryptSecret(string(secret), password)
	if err != nil {
		return fmt.Errorf("app: encrypt-secret: %w", err)
	}
	if _, err := a.stdout.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("app: encrypt-secret: write: %w", err)
	}
	return nil
}

// cycleService builds the cycle service over deps plus any extra sinks.
func (a *App) cycleService(deps *Dependencies, extra ...domain.ReportSink) (*service.CycleService, error) {
	assets, err := a.cfg.Assets()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	currencies, err := a.cfg.Currencies()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	quote, err := domain.ParseCurrency(a.cfg.Cycle.QuoteCurrency)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	sinks := make([]domain.ReportSink, 0, len(deps.Sinks)+len(extra))
	sinks = append(sinks, deps.Sinks...)
	sinks = append(sinks, extra...)

	return service.NewCycleService(service.CycleDeps{
		Venue:      deps.Venue,
		Retail:     deps.Retail,
		Reference:  deps.Reference,
		Calculator: deps.Calculator,
		Sinks:      sinks,
		Desktop:    deps.Desktop,
		Push:       deps.Push,
		Observer:   deps.Metrics,
		Audit:      deps.Audit,
	}, service.CycleConfig{
		Assets:              assets,
		ReferenceCurrencies: currencies,
		QuoteCurrency:       quote,
		PaymentMethodIndex:  a.cfg.Coinbase.PaymentMethodIndex,
		DesktopEnabled:      a.cfg.Notify.DesktopEnabled,
		DesktopThreshold:    a.cfg.Notify.DesktopThreshold,
		PushEnabled:         a.cfg.Notify.PushEnabled,
		PushThreshold:       a.cfg.Notify.PushThreshold,
		MinBudget:           a.cfg.Notify.MinBudget,
	}, a.logger), nil
}

// startHTTPServer runs the status server and the ws hub inside g and shuts
// the server down when ctx ends.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub, reports domain.ReportReader) {
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, server.Deps{
		Reports: reports,
		Cycles:  deps.Cycles,
		Metrics: deps.Metrics.Registry(),
		Limiter: deps.RateLimiter,
		Hub:     hub,
	}, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
