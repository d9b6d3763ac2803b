package main

import (
	"context"
	"os/signal"
	"syscall"

	"sentinel-toxicity/internal/analytics"
	"sentinel-toxicity/internal/api"
	"sentinel-toxicity/internal/bot"
	"sentinel-toxicity/internal/cache"
	"sentinel-toxicity/internal/config"
	"sentinel-toxicity/internal/modules/audit"
	"sentinel-toxicity/internal/risk"
	"sentinel-toxicity/internal/storage"
	"sentinel-toxicity/internal/toxicity"
	"sentinel-toxicity/internal/trust"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	triggers, err := toxicity.LoadTriggers(cfg.Toxicity.TriggersPath)
	if err != nil {
		logger.Fatal("trigger config invalid", zap.String("path", cfg.Toxicity.TriggersPath), zap.Error(err))
	}
	normalizer, err := toxicity.NewNormalizer(toxicity.NormalizerOptions{
		Transliteration: cfg.Toxicity.Transliteration,
		NoisePatterns:   cfg.Toxicity.NoisePatterns,
		MinLength:       cfg.Toxicity.MinLength,
	})
	if err != nil {
		logger.Fatal("normalizer config invalid", zap.Error(err))
	}

	remoteOpts := []toxicity.RemoteOption{toxicity.WithTimeout(cfg.Moderation.Timeout())}
	if cfg.Moderation.Token != "" {
		remoteOpts = append(remoteOpts, toxicity.WithBearerToken(cfg.Moderation.Token))
	}
	remote := toxicity.NewRemoteClassifier(cfg.Moderation.APIURL, remoteOpts...)

	pipelineOpts := []toxicity.PipelineOption{toxicity.WithLogger(logger)}
	if cfg.Redis.Enabled {
		verdictCache := cache.NewVerdictCache(cache.Options{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL(),
		})
		defer func() {
			_ = verdictCache.Close()
		}()
		if err := verdictCache.Ping(ctx); err != nil {
			logger.Warn("verdict cache unreachable, lookups will miss", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		pipelineOpts = append(pipelineOpts, toxicity.WithCache(verdictCache))
	}
	pipeline := toxicity.NewPipeline(normalizer, triggers, remote, pipelineOpts...)

	if err := pipeline.Probe(ctx); err != nil {
		logger.Warn("moderation model not reachable yet", zap.String("api", remote.BaseURL()), zap.Error(err))
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	auditLogger := audit.NewLogger(store, logger)
	trustEngine := trust.NewEngine(cfg.Trust)
	riskEngine := risk.NewEngine(cfg.Risk)
	analyticsService := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, pipeline, riskEngine, trustEngine, auditLogger, analyticsService)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.Strings("categories", pipeline.Categories()))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Health.Enabled {
		server := api.New(pipeline, store, analyticsService, logger)
		g.Go(func() error {
			return server.Run(gctx, cfg.Health.Addr)
		})
	}

	<-gctx.Done()
	logger.Info("shutdown requested")
	botSvc.Close()
	if err := g.Wait(); err != nil {
		logger.Error("http api stopped with error", zap.Error(err))
	}
}
