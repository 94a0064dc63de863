package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ytqueue/ytqueue/internal/config"
	"github.com/ytqueue/ytqueue/internal/engine"
	"github.com/ytqueue/ytqueue/internal/engine/ytdlp"
	"github.com/ytqueue/ytqueue/internal/http/rest"
	"github.com/ytqueue/ytqueue/internal/logctx"
	"github.com/ytqueue/ytqueue/internal/notifier"
	"github.com/ytqueue/ytqueue/internal/queue"
	"github.com/ytqueue/ytqueue/internal/storage"
	"github.com/ytqueue/ytqueue/internal/storage/sqlite"
	"github.com/ytqueue/ytqueue/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("ytqueue starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	historyRepo := sqlite.NewInstrumentedHistoryRepository(database, tel)
	settingsRepo := sqlite.NewSettingsRepository(database)

	downloadDir := resolveSetting(ctx, settingsRepo, storage.KeyDownloadFolder, cfg.DownloadFolder)
	videoQuality := resolveSetting(ctx, settingsRepo, storage.KeyVideoQuality, cfg.VideoQuality)
	outputFormat := resolveSetting(ctx, settingsRepo, storage.KeyOutputFormat, cfg.OutputFormat)

	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create download folder: %w", err)
	}

	// =========================================================================
	// Start Engine
	eng := ytdlp.New(cfg.YTDLPPath, cfg.FFmpegPath)
	if !eng.HasMuxer() {
		logger.Warn("ffmpeg not found, falling back to pre-muxed formats", "ffmpeg_path", cfg.FFmpegPath)
	}

	// =========================================================================
	// Start Queue
	q := queue.New(eng, historyRepo, queue.Options{
		DownloadDir: downloadDir,
		Format:      engine.ParseFormat(outputFormat),
		Quality:     engine.ParseQuality(videoQuality),
		MaxParallel: cfg.MaxParallel,
	}, tel, buildListener(ctx, cfg))

	if err := q.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue: %w", err)
	}

	// =========================================================================
	// Start API Service

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	server := setupServer(ctx, q, historyRepo, settingsRepo, tel, cfg)

	go func() {
		logger.Info("initializing API support", "host", cfg.Web.BindAddress)
		serverErrors <- server.ListenAndServe()
	}()

	logger.Info("waiting for downloads...",
		"download_folder", downloadDir,
		"output_format", outputFormat,
		"video_quality", videoQuality,
		"max_parallel", cfg.MaxParallel,
	)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("start shutdown")

		q.CancelAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return ctx.Err()
	}
}

// resolveSetting prefers the persisted value over the environment default
// and seeds the setting on first run.
func resolveSetting(ctx context.Context, settings storage.SettingsRepository, key, fallback string) string {
	logger := logctx.LoggerFromContext(ctx)

	saved, err := settings.Get(key)
	if err == nil && saved != "" {
		return saved
	}

	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error("failed to read setting", "key", key, "err", err)
	}

	if err := settings.Set(key, fallback); err != nil {
		logger.Error("failed to seed setting", "key", key, "err", err)
	}

	return fallback
}

// buildListener forwards terminal queue transitions to the webhook, when one
// is configured.
func buildListener(ctx context.Context, cfg *config.Config) queue.Listener {
	if cfg.WebhookURL == "" {
		return nil
	}

	logger := logctx.LoggerFromContext(ctx)
	notif := &notifier.WebhookNotifier{WebhookURL: cfg.WebhookURL}

	return func(snap queue.Snapshot) {
		if !snap.Status.IsTerminal() {
			return
		}

		var content string

		switch snap.Status {
		case queue.StatusCompleted:
			content = "✅ Download finished: " + snap.Title + " (" + snap.FilePath + ")"
		default:
			content = "❌ Download failed: " + snap.URL + " (" + snap.ErrorMessage + ")"
		}

		go func() {
			if err := notif.Notify(content); err != nil {
				logger.Error("failed to send notification", "key", snap.Key, "err", err)
			}
		}()
	}
}

// setupServer prepares the handlers and services to create the http rest server.
func setupServer(
	ctx context.Context,
	q *queue.Queue,
	history storage.HistoryRepository,
	settings storage.SettingsRepository,
	tel *telemetry.Telemetry,
	cfg *config.Config,
) *http.Server {
	handler := rest.NewQueueHandler(q, history, settings)

	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(tel).Middleware)
	r.Mount("/", handler.Routes())
	r.Method(http.MethodGet, "/metrics", tel.Handler())

	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      otelhttp.NewHandler(r, "ytqueue"),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}
