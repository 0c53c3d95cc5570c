// Package app provides the top-level application lifecycle for the signal
// feed service. It wires together the market sources, scorer, assembler,
// payment verifier, access gate, and HTTP/WebSocket server, and runs them
// until the process is told to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/x402labs/signalfeed/internal/assembler"
	"github.com/x402labs/signalfeed/internal/config"
	"github.com/x402labs/signalfeed/internal/gate"
	"github.com/x402labs/signalfeed/internal/ledger/solana"
	"github.com/x402labs/signalfeed/internal/platform/kalshi"
	"github.com/x402labs/signalfeed/internal/platform/polymarket"
	"github.com/x402labs/signalfeed/internal/scorer"
	"github.com/x402labs/signalfeed/internal/server"
	"github.com/x402labs/signalfeed/internal/server/handler"
	"github.com/x402labs/signalfeed/internal/server/ws"
	"github.com/x402labs/signalfeed/internal/service"
)

// shutdownTimeout bounds how long in-flight HTTP requests may run after the
// process receives a stop signal.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// refresh loop, WebSocket hub, and HTTP server, and blocks until the
// context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfg

	a.logger.InfoContext(ctx, "starting signal feed",
		slog.String("log_level", cfg.LogLevel),
		slog.Int("port", cfg.Server.Port),
		slog.Duration("refresh_interval", cfg.Catalog.RefreshInterval.Duration),
	)

	deps, cleanup, err := Wire(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Market sources, in catalog order.
	sources := []service.MarketSource{
		polymarket.NewGammaClient(cfg.Polymarket.GammaHost),
		kalshi.NewClient(cfg.Kalshi.BaseURL),
	}

	// Scorer and assembler.
	gemini := scorer.NewGemini(scorer.GeminiConfig{
		APIKey:  cfg.Scorer.APIKey,
		Model:   cfg.Scorer.Model,
		BaseURL: cfg.Scorer.BaseURL,
		Timeout: time.Duration(cfg.Scorer.TimeoutSeconds) * time.Second,
	})
	asm := assembler.New(gemini, cfg.Catalog.Price, cfg.Scorer.Concurrency, a.logger)

	// WebSocket hub feeds refresh events to connected clients.
	hub := ws.NewHub(a.logger)

	svc := service.NewSignalService(sources, asm, service.Options{
		Store:       deps.SignalStore,
		Archiver:    deps.Archiver,
		Broadcaster: hub,
		Notifier:    deps.Notifier,
		SourceLimit: cfg.Catalog.SourceLimit,
	}, a.logger)

	// Payment verification against the Solana ledger.
	rpc := solana.NewRPCClient(cfg.Ledger.RPCURL, time.Duration(cfg.Ledger.TimeoutSeconds)*time.Second)
	verifier := solana.NewVerifier(rpc, cfg.Ledger.VaultAddress, cfg.Ledger.USDCMint, a.logger)

	accessGate := gate.New(svc, verifier, deps.UnlockStore, cfg.Ledger.VaultAddress, cfg.Catalog.Asset, a.logger)

	srv := server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(svc, a.logger),
		Signals: handler.NewSignalHandler(svc, accessGate, a.logger),
	}, hub, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		return svc.RunLoop(gctx, cfg.Catalog.RefreshInterval.Duration)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down signal feed")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
