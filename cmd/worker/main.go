package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aituberdev/answerd/internal/bootstrap"
	"github.com/aituberdev/answerd/internal/config"
	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("answerd-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Metrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeCommentBatches(ctx, func(handlerCtx context.Context, batch domain.CommentBatch) error {
		batchCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()
		return handleBatch(batchCtx, app, batch)
	})
	if err != nil {
		logger.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}

// handleBatch classifies one raw comment window and persists the answerable
// subset. Delivery is at-most-once: a failed batch is logged and dropped, and
// the next fetch window covers the gap (message ids make re-saves no-ops).
// Persistence failures are per-message and only logged.
func handleBatch(ctx context.Context, app *bootstrap.WorkerApp, batch domain.CommentBatch) error {
	app.Metrics.StartBatch()
	start := time.Now()

	if newest := newestCreatedAt(batch.Messages); !newest.IsZero() {
		app.Metrics.ObserveBatchLag(time.Since(newest))
	}

	texts := make([]string, 0, len(batch.Messages))
	for _, msg := range batch.Messages {
		texts = append(texts, msg.MessageText)
	}

	kept, err := app.Classifier.FilterComments(ctx, texts)
	if err != nil {
		app.Metrics.FinishBatch(time.Since(start), err)
		return err
	}

	// kept is an order-preserving subsequence of texts, so a single forward
	// walk pairs each kept text with its source message.
	saved := 0
	keptIdx := 0
	for _, msg := range batch.Messages {
		if keptIdx >= len(kept) {
			break
		}
		if msg.MessageText != kept[keptIdx] {
			continue
		}
		keptIdx++
		if msg.VideoID == "" {
			msg.VideoID = batch.VideoID
		}
		if err := app.Chat.SaveMessage(ctx, msg); err != nil {
			app.Logger.Error("chat message save failed",
				"video_id", msg.VideoID, "message_id", msg.MessageID, "error", err)
			continue
		}
		saved++
	}

	app.Metrics.CountComments(len(texts), len(kept))
	app.Metrics.FinishBatch(time.Since(start), nil)
	app.Logger.Info("comment batch processed",
		"video_id", batch.VideoID, "received", len(texts), "kept", len(kept), "saved", saved)
	return nil
}

func newestCreatedAt(messages []domain.ChatMessage) time.Time {
	var newest time.Time
	for _, msg := range messages {
		if msg.CreatedAt.After(newest) {
			newest = msg.CreatedAt
		}
	}
	return newest
}
