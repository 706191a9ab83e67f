// Command storecore runs the inventory and sales backend: a JSON-file-backed
// catalog and sale ledger behind an authenticated HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storecore/internal/api"
	"storecore/internal/auth"
	"storecore/internal/blob"
	"storecore/internal/config"
	"storecore/internal/core"
	"storecore/internal/infra/persistence/jsonfile"
	"storecore/internal/seed"
	"storecore/pkg/domain"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("storecore exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	productStore, err := jsonfile.Open(jsonfile.Config[domain.Product]{
		Entity:     domain.EntityProduct,
		Path:       filepath.Join(cfg.DataDir, "products.json"),
		Seed:       seed.Products,
		StrictLoad: cfg.StrictLoad,
		IDOf:       func(p domain.Product) int64 { return p.ID },
		Clone:      domain.Product.Clone,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	saleStore, err := jsonfile.Open(jsonfile.Config[domain.Sale]{
		Entity:     domain.EntitySale,
		Path:       filepath.Join(cfg.DataDir, "sales.json"),
		Seed:       seed.Sales,
		StrictLoad: cfg.StrictLoad,
		IDOf:       func(s domain.Sale) int64 { return s.ID },
		Clone:      domain.Sale.Clone,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := core.NewService(
		core.NewProductRepository(productStore),
		core.NewSaleRepository(saleStore),
		core.WithLogger(logger),
		core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(registry)),
	)

	users, err := auth.LoadUsersFile(cfg.UsersCSV, seed.Users)
	if err != nil {
		return err
	}
	tokens, err := newTokenManager(cfg.JWT)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	logger.Info("blob store ready", zap.String("driver", string(blobs.Driver())))

	handlers := api.NewHandlers(svc, users, tokens, blobs, logger)
	app := api.NewApp(handlers, tokens, api.RouterConfig{Gatherer: registry})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		return app.Listen(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
		return app.ShutdownWithTimeout(cfg.ShutdownTimeout)
	})
	return g.Wait()
}

func newTokenManager(cfg config.JWT) (*auth.TokenManager, error) {
	tc := auth.TokenConfig{Secret: cfg.Secret, TTL: cfg.TTL, Issuer: "storecore"}
	if cfg.PrivateKeyPath != "" {
		priv, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		pub, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		tc.PrivateKeyPEM = priv
		tc.PublicKeyPEM = pub
	}
	return auth.NewTokenManager(tc)
}
