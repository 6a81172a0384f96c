package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/newsflow/internal/api/handlers/render"
	"github.com/aliskhannn/newsflow/internal/api/router"
	"github.com/aliskhannn/newsflow/internal/api/server"
	"github.com/aliskhannn/newsflow/internal/config"
	"github.com/aliskhannn/newsflow/internal/infra/kafka/consumer"
	"github.com/aliskhannn/newsflow/internal/infra/kafka/producer"
	rendermsg "github.com/aliskhannn/newsflow/internal/kafka/handlers/render"
	"github.com/aliskhannn/newsflow/internal/loader"
	"github.com/aliskhannn/newsflow/internal/model"
	"github.com/aliskhannn/newsflow/internal/processor"
	rendersvc "github.com/aliskhannn/newsflow/internal/service/render"
	"github.com/aliskhannn/newsflow/internal/storage/file"
	"github.com/aliskhannn/newsflow/internal/wordpress"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Retry strategy for Kafka, WordPress and other external calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize file storage (MinIO) for rendered graphics.
	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Image loader walking the configured delivery tiers.
	imageLoader := loader.New(cfg.Loader.Tiers,
		loader.WithAttemptTimeout(cfg.Loader.AttemptTimeout),
		loader.WithOrigin(cfg.Loader.Origin),
		loader.WithMaxPixels(cfg.Loader.MaxPixels),
	)

	// Initialize producers, processor, and service layer.
	requests := producer.New(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic, strategy)
	results := producer.New(cfg.Kafka.Brokers, cfg.Kafka.ResultTopic, strategy)
	renderProcessor := processor.New(imageLoader, processor.Options{
		SiteLabel: cfg.Render.SiteLabel,
		LinkQR:    cfg.Render.LinkQR,
	})
	service := rendersvc.NewService(renderProcessor, storage, requests, results, rendersvc.Defaults{
		Template:  model.TemplateID(cfg.Render.DefaultTemplate),
		Logo:      cfg.Render.DefaultLogo,
		SiteLabel: cfg.Render.SiteLabel,
	})

	// Kafka consumer for render requests.
	c := consumer.New(&cfg.Kafka, strategy, rendermsg.NewRequestedHandler(service))

	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// WordPress poller feeding new posts into the request topic.
	if cfg.WordPress.Enabled {
		client := wordpress.NewClient(cfg.WordPress.BaseURL, cfg.WordPress.PerPage, nil)
		poller := wordpress.NewPoller(client, service, cfg.WordPress.PollInterval, strategy, cfg.WordPress.RenderExisting)

		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(ctx)
		}()
	}

	// Start HTTP server in a separate goroutine.
	r := router.Setup(render.NewHandler(service))
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for the consumer and poller goroutines to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close Kafka producer and consumer clients.
	if err = requests.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka request producer client")
	}
	if err = results.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka result producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
