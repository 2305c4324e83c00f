package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"symptomcheck/artifacts"
	"symptomcheck/config"
	"symptomcheck/db"
	qhttp "symptomcheck/http"
	"symptomcheck/logging"
	"symptomcheck/monitoring"
	"symptomcheck/predictor"
)

func main() {
	// Look for config in root even if run from cmd/
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if _, err := os.Stat(filepath.Join("..", "config.yaml")); err == nil {
			configPath = filepath.Join("..", "config.yaml")
		}
	}

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("exiting")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Load artifacts; the server refuses to start without all of them
	bundle, err := artifacts.Load(cfg.Artifacts)
	if err != nil {
		return err
	}
	logger.Info("artifacts loaded",
		zap.String("dir", cfg.Artifacts.Dir),
		zap.Int("symptoms", bundle.Index.Len()),
		zap.Int("classes", bundle.Classes.Len()))

	cache, closeCache, err := newCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	newService := func(b *artifacts.Bundle) *predictor.Service {
		opts := []predictor.Option{predictor.WithLogger(logger)}
		if cache != nil {
			opts = append(opts, predictor.WithCache(cache))
		}
		return predictor.New(b, opts...)
	}

	// 3. Optional prediction history
	hub := monitoring.NewWebSocketHub(logger)
	apiOpts := []qhttp.APIOption{
		qhttp.WithLogger(logger),
		qhttp.WithHub(hub),
		qhttp.WithMetrics(monitoring.NewMetricsCollector()),
	}
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		apiOpts = append(apiOpts, qhttp.WithStore(store))
		logger.Info("prediction history enabled", zap.String("path", cfg.Database.Path))
	}
	api := qhttp.NewAPI(newService(bundle), apiOpts...)

	// 4. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, api, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error { return hub.Run(gctx) })
	if cfg.Artifacts.Watch {
		watcher := artifacts.NewWatcher(cfg.Artifacts, logger, func(b *artifacts.Bundle) {
			api.SetService(newService(b))
			hub.Publish(monitoring.ReloadEvent, map[string]any{
				"loaded_at": b.LoadedAt,
				"symptoms":  b.Index.Len(),
				"classes":   b.Classes.Len(),
			})
		})
		g.Go(func() error { return watcher.Run(gctx) })
	}

	// 5. Handle graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return server.Stop(context.Background())
	})
	return g.Wait()
}

func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (predictor.Cache, func(), error) {
	switch cfg.Cache.Backend {
	case config.CacheLRU:
		c, err := predictor.NewLRUCache(cfg.Cache.Size)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("prediction cache", zap.String("backend", c.Name()), zap.Int("size", cfg.Cache.Size))
		return c, func() {}, nil
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.Redis.Addr,
			DB:   cfg.Cache.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Cache.Redis.Addr, err)
		}
		c := predictor.NewRedisCache(client, cfg.Cache.Redis.Prefix, cfg.Cache.Redis.TTL)
		logger.Info("prediction cache", zap.String("backend", c.Name()), zap.String("addr", cfg.Cache.Redis.Addr))
		return c, func() { c.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
