package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"image-editor/internal/editor"
	"image-editor/internal/http/handlers"
	httpapi "image-editor/internal/http/httpapi"
	"image-editor/internal/http/views"
	"image-editor/internal/infra"
	"image-editor/internal/infra/credentials"
	"image-editor/internal/metrics"
	"image-editor/internal/providers/genai"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLoggerWithLevel(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiKey := cfg.GeminiAPIKey
	if apiKey == "" && cfg.SecretsDir != "" {
		apiKey, err = credentials.NewStore(cfg.SecretsDir).GeminiAPIKey(ctx)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.SecretsDir).Msg("failed to read gemini credential")
		}
	}
	if apiKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; every edit will fail until it is configured")
	}

	m := metrics.New("image_editor")

	client, err := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: &http.Client{Timeout: cfg.GeminiTimeout},
		Logger:     &logger,
		Metrics:    m,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}

	sessions := editor.NewSessions(client, editor.SessionOptions{
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
		Logger:      &logger,
		Metrics:     m,
	})
	go sessions.Run(ctx, time.Minute)

	renderer, err := views.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load templates")
	}

	app := &handlers.App{
		Views:            renderer,
		Model:            client.Model(),
		GeminiConfigured: client.HasAPIKey(),
	}
	router := httpapi.NewRouter(app, httpapi.Deps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Sessions: sessions,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("model", client.Model()).Msg("image editor listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
