package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpserver "github.com/lutefd/pongboard/internal/http"
	"github.com/lutefd/pongboard/internal/config"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/ingest"
	"github.com/lutefd/pongboard/internal/logging"
	"github.com/lutefd/pongboard/internal/storage/postgres"
	"github.com/lutefd/pongboard/internal/storage/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func openStore(ctx context.Context, cfg config.DatabaseConfig) (httpserver.Store, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := postgres.NewStore(ctx, cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, store.Close, nil
	}
}

func main() {
	configPath := flag.String("config", "pongboard.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := events.NewBus()
	srv := httpserver.NewServer(httpserver.Dependencies{
		Store:         store,
		Bus:           bus,
		Log:           logger,
		SessionSecret: cfg.Web.SessionSecret,
		SecureCookies: cfg.Web.SecureCookies,
		FetchTimeout:  cfg.Web.FetchTimeout,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Web.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("port", cfg.Web.Port), zap.String("driver", cfg.Database.Driver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		relay := events.NewRelay(client, bus, cfg.Redis.Channel, logger.Named("relay"))
		g.Go(func() error { return relay.Run(ctx) })
	}

	if cfg.Kafka.Enabled() {
		reader := ingest.NewReader(cfg.Kafka)
		defer reader.Close()
		consumer := ingest.NewConsumer(reader, srv.Projection(), logger.Named("ingest"))
		g.Go(func() error {
			defer func() {
				s := consumer.Stats()
				logger.Info("ingest stopped", zap.Int("recorded", s.Recorded), zap.Int("duplicates", s.Duplicates), zap.Int("rejected", s.Rejected))
			}()
			return consumer.Run(ctx)
		})
	}

	return g.Wait()
}
