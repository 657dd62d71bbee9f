// Command clobd runs the demo matching-core host process: it loads
// configuration, wires the market registry and its collaborators, and
// serves the transport surface until signaled to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/clobcore/matchcore/internal/config"
	"github.com/clobcore/matchcore/internal/consume"
	"github.com/clobcore/matchcore/internal/market"
	"github.com/clobcore/matchcore/internal/marketpool"
	"github.com/clobcore/matchcore/internal/metrics"
	"github.com/clobcore/matchcore/internal/paramvalidate"
	"github.com/clobcore/matchcore/internal/persistence"
	"github.com/clobcore/matchcore/internal/transport"
)

const (
	appName    = "clobd"
	appVersion = "0.1.0"
)

func main() {
	app := fx.New(
		fx.Provide(loadConfig),
		fx.Provide(config.NewLogger),
		fx.Provide(metricsAddr),
		metrics.Module,
		fx.Provide(newPersistence),
		fx.Provide(newMarketPool),
		fx.Provide(newRegistry),
		fx.Provide(newConsumer),
		fx.Provide(paramvalidate.New),
		fx.Provide(newHTTPServer),
		fx.Invoke(registerHTTPServer),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed to start: %v\n", appName, err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed to stop cleanly: %v\n", appName, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load("")
}

func metricsAddr(cfg *config.Config) metrics.Addr {
	if !cfg.Metrics.Enabled {
		return ""
	}
	return metrics.Addr(cfg.Metrics.Addr)
}

func newPersistence(cfg *config.Config, logger *zap.Logger) (*persistence.Store, error) {
	if cfg.Postgres.DSN == "" {
		logger.Warn("no postgres dsn configured; markets will not survive a restart")
		return nil, nil
	}
	return persistence.Open(cfg.Postgres.DSN, logger)
}

func newMarketPool(logger *zap.Logger) *marketpool.Pool {
	return marketpool.New(logger)
}

func newRegistry(cfg *config.Config, logger *zap.Logger, pool *marketpool.Pool, store *persistence.Store, m *metrics.MatcherMetrics) *market.Registry {
	sizing := market.Sizing{
		SlabCapacity:       cfg.Market.SlabCapacity,
		EventQueueCapacity: cfg.Market.EventQueueCapacity,
		CallbackInfoLen:    cfg.Market.CallbackInfoLen,
		FeeBudget:          0,
		EscrowBalance:      0,
	}
	return market.NewRegistry(logger, sizing, pool, store, m)
}

func newConsumer(logger *zap.Logger, m *metrics.MatcherMetrics) *consume.Consumer {
	noopPayout := func(ctx context.Context, marketID, rewardTarget string, amount uint64) error {
		return nil
	}
	settings := gobreaker.Settings{
		Name:        "consume-events-payout",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
	return consume.NewConsumer(logger, noopPayout, settings, m)
}

func newHTTPServer(cfg *config.Config, logger *zap.Logger, registry *market.Registry, consumer *consume.Consumer, validator *paramvalidate.Validator) *http.Server {
	router := transport.NewRouter(transport.Deps{
		Logger:       logger,
		Registry:     registry,
		Consumer:     consumer,
		Validator:    validator,
		JWTSecret:    cfg.Server.JWTSecret,
		RateLimitRPM: cfg.Server.RateLimitPerMinute,
	})
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func registerHTTPServer(lifecycle fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting clobd", zap.String("addr", server.Addr), zap.String("version", appVersion))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping clobd")
			return server.Shutdown(ctx)
		},
	})
}
