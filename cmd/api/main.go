package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"intake/internal/analysis"
	"intake/internal/dispatch"
	"intake/internal/domain"
	"intake/internal/http/handlers"
	httpapi "intake/internal/http/httpapi"
	"intake/internal/infra"
	"intake/internal/quota"
	"intake/internal/static"
	"intake/internal/storage"
	"intake/internal/upstream"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if cfg.ModelAPIKey() == "" {
		logger.Warn().Str("provider", cfg.ModelProvider).Msg("model API key is not set; analysis requests will fail")
	}
	model, err := analysis.NewModel(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build model client")
	}

	tracker := quota.NewTracker(quota.Options{
		SoftLimit:     cfg.QuotaSoftLimit,
		ProviderLimit: cfg.QuotaProviderLimit,
	})
	invoker := analysis.NewInvoker(analysis.Options{
		Model:           model,
		Quota:           tracker,
		Logger:          logger,
		ImageVariant:    domain.ImageVariant(cfg.ImageAnalysisVariant),
		SymptomsVariant: domain.SymptomsVariant(cfg.SymptomsAnalysisVariant),
	})

	store, err := storage.NewAssetStore(cfg.StaticDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve static directory")
	}
	assets := static.NewServer(store, cfg.EntryDocument, httpapi.APIPrefix)

	gateOpts := dispatch.Options{Assets: assets, APIPrefix: httpapi.APIPrefix, Logger: logger}
	appOpts := handlers.Options{
		Analyzer:     invoker,
		Quota:        tracker,
		Entry:        assets,
		DevServerURL: cfg.DevServerURL,
		BodyLimit:    cfg.BodyLimitBytes,
		Logger:       logger,
	}
	var probe *upstream.Probe
	if cfg.DevServerURL != "" {
		forwarder, err := upstream.NewForwarder(cfg.DevServerURL, cfg.DevProxyTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid dev server url")
		}
		probe = upstream.NewProbe(cfg.DevServerURL, cfg.DevProbeTimeout, nil)
		gateOpts.Probe = probe
		gateOpts.Forwarder = forwarder
		appOpts.Probe = probe
	}

	app := handlers.NewApp(appOpts)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		Dispatch:        dispatch.New(gateOpts).Middleware,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logStartupMode(ctx, logger, probe, cfg, assets.EntryPath())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Str("provider", model.Name()).Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

func logStartupMode(ctx context.Context, logger infra.Logger, probe *upstream.Probe, cfg *infra.Config, entryPath string) {
	if probe == nil {
		logger.Info().Str("static_dir", cfg.StaticDir).Msg("dev server proxy disabled; serving static files")
		return
	}
	if probe.Alive(ctx) {
		logger.Info().Str("dev_server", probe.Target()).Msg("dev server detected; proxying frontend requests")
		return
	}
	logger.Info().
		Str("dev_server", probe.Target()).
		Str("entry", entryPath).
		Msg("dev server not reachable; serving static files until it comes up")
}
