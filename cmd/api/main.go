package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/aituberdev/answerd/internal/adapters/http"
	"github.com/aituberdev/answerd/internal/bootstrap"
	"github.com/aituberdev/answerd/internal/config"
	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("answerd-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewAPI(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	defaultMode, err := domain.ParseRetrievalMode(cfg.RetrievalMode)
	if err != nil {
		logger.Warn("unknown retrieval mode in config, using multi", "value", cfg.RetrievalMode)
		defaultMode = domain.RetrievalMulti
	}

	router := httpadapter.NewRouter(
		app.Gate, app.Classifier, app.Inspector, app.Chat,
		app.Templates, app.Metrics, logger,
		httpadapter.RouterConfig{
			DefaultRetrievalMode: defaultMode,
			HallucinationCheck:   cfg.HallucinationCheck,
			RateLimitPerSecond:   cfg.RateLimitPerSecond,
			RateLimitBurst:       cfg.RateLimitBurst,
			MaxConcurrentAnswers: cfg.MaxConcurrentAnswers,
		},
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
