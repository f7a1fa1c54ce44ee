package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"docverify/internal/document/handler"
	docmetrics "docverify/internal/document/metrics"
	"docverify/internal/document/service"
	"docverify/internal/ocr"
	"docverify/internal/platform/config"
	"docverify/internal/platform/httpserver"
	"docverify/internal/platform/logger"
	"docverify/internal/platform/metrics"
	"docverify/internal/ratelimit"
	httptransport "docverify/internal/transport/http"
)

const shutdownTimeout = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docverify: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("docverify stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var closers closerStack
	defer closers.closeAll(log)

	records, err := newRecordStore(ctx, cfg, &closers, log)
	if err != nil {
		return err
	}
	aggregator, err := service.NewAggregator(cfg.Verification.Aggregation)
	if err != nil {
		return err
	}
	svc := service.New(
		service.WithRecordStore(records),
		service.WithAggregator(aggregator),
		service.WithThreshold(cfg.Verification.Threshold),
		service.WithParallel(cfg.Verification.Parallel),
		service.WithMetrics(docmetrics.NewWithRegistry(reg)),
		service.WithLogger(log),
	)

	auditing, err := newAuditPipeline(ctx, cfg, reg, &closers, log)
	if err != nil {
		return err
	}

	authenticators, err := newAuthenticators(cfg.Auth)
	if err != nil {
		return err
	}
	if len(authenticators) == 0 {
		log.Warn("API authentication disabled; set DOCVERIFY_API_KEY, DOCVERIFY_API_KEY_HASH or JWT_SIGNING_KEY")
	}

	limiter, err := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		MaxClients:        cfg.RateLimit.MaxClients,
	})
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	handlerOpts := []handler.Option{
		handler.WithAuditor(auditing.publisher),
		handler.WithLogger(log),
		handler.WithMaxFileSize(cfg.Upload.MaxFileSize),
		handler.WithMaxImagePixels(cfg.Upload.MaxImagePixels),
		handler.WithAllowedTypes(cfg.Upload.AllowedFileTypes),
	}
	engine, err := ocr.New(cfg.OCR.Languages)
	switch {
	case errors.Is(err, ocr.ErrNotEnabled):
		log.Info("text extraction disabled", "reason", err)
	case err != nil:
		log.Warn("text extraction unavailable", "error", err)
	default:
		closers.push("ocr", engine.Close)
		handlerOpts = append(handlerOpts, handler.WithOCR(engine))
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Documents:      handler.New(svc, handlerOpts...),
		Authenticators: authenticators,
		Limiter:        limiter,
		LimiterMetrics: ratelimit.NewMetrics(reg),
		HTTPMetrics:    metrics.New(reg),
		Gatherer:       reg,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, shutdownTimeout, log)
	})
	if auditing.materialize != nil {
		g.Go(func() error {
			return auditing.materialize(gctx)
		})
	}
	return g.Wait()
}
