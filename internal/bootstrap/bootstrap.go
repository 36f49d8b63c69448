package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aituberdev/answerd/internal/config"
	"github.com/aituberdev/answerd/internal/core/ports"
	"github.com/aituberdev/answerd/internal/core/usecase"
	"github.com/aituberdev/answerd/internal/infrastructure/dataset"
	"github.com/aituberdev/answerd/internal/infrastructure/index/lexical"
	"github.com/aituberdev/answerd/internal/infrastructure/index/vector"
	"github.com/aituberdev/answerd/internal/infrastructure/interactionlog"
	"github.com/aituberdev/answerd/internal/infrastructure/llm/gemini"
	"github.com/aituberdev/answerd/internal/infrastructure/queue/nats"
	"github.com/aituberdev/answerd/internal/infrastructure/repository/postgres"
	"github.com/aituberdev/answerd/internal/infrastructure/resilience"
	"github.com/aituberdev/answerd/internal/observability/logging"
	"github.com/aituberdev/answerd/internal/observability/metrics"
)

// APIApp wires everything the answer server needs: retrieval indexes, the
// model client, the response gate and the chat store.
type APIApp struct {
	Config config.Config
	Logger *slog.Logger

	Gate       *usecase.ResponseGate
	Classifier *usecase.CommentClassifier
	Inspector  *usecase.KnowledgeInspector
	Chat       *usecase.ChatMessages
	Templates  []string
	Metrics    *metrics.HTTPServerMetrics

	closeFn func()
}

// WorkerApp wires the comment classification worker: the queue, the model
// client and the chat store it persists kept comments into.
type WorkerApp struct {
	Config config.Config
	Logger *slog.Logger

	Queue      *nats.Queue
	Classifier *usecase.CommentClassifier
	Chat       *usecase.ChatMessages
	Metrics    *metrics.WorkerMetrics

	closeFn func()
}

func newExecutor(logger *slog.Logger) *resilience.Executor {
	rcfg := resilience.DefaultConfig()
	rcfg.Logger = logger
	return resilience.NewExecutor(rcfg)
}

func newModelClient(ctx context.Context, cfg config.Config, executor *resilience.Executor) (*gemini.Client, error) {
	return gemini.New(ctx, gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		GenerateModel:  cfg.GeminiGenerateModel,
		EmbeddingModel: cfg.GeminiEmbeddingModel,
		Temperature:    float32(cfg.GeminiTemperature),
	}, executor)
}

func newChatService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*usecase.ChatMessages, func(), error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	messages := postgres.NewChatMessageRepository(db)
	if err := messages.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure chat schema: %w", err)
	}
	cursors := postgres.NewChatCursorRepository(db)
	chat := usecase.NewChatMessages(messages, cursors, logger)
	return chat, func() { _ = db.Close() }, nil
}

// NewAPI builds the answer server application. Index artifacts, the knowledge
// corpus and the NG table are required; template messages are optional.
func NewAPI(ctx context.Context, cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := newExecutor(logger)

	model, err := newModelClient(ctx, cfg, executor)
	if err != nil {
		return nil, fmt.Errorf("init model client: %w", err)
	}

	knowledgeStore, err := vector.Open(cfg.KnowledgeIndexPath, model)
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}
	qaStore, err := vector.Open(cfg.QAIndexPath, model)
	if err != nil {
		return nil, fmt.Errorf("open qa index: %w", err)
	}

	docs, err := dataset.LoadKnowledgeCSV(cfg.KnowledgeCSVPath)
	if err != nil {
		return nil, fmt.Errorf("load knowledge corpus: %w", err)
	}
	tok, err := lexical.NewTokenizer()
	if err != nil {
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}
	lexIndex := lexical.NewIndex(tok, dataset.ChunkDocuments(docs, 0))

	hybrid := usecase.NewHybridRetriever(lexIndex, knowledgeStore)
	reranker := usecase.NewReranker(model, logger)
	strategies := usecase.NewRetrievalStrategies(qaStore, knowledgeStore, hybrid, reranker, cfg.RetrievalTopK, cfg.RerankTopN)

	ngTable, err := dataset.LoadNGTable(cfg.NGTablePath)
	if err != nil {
		return nil, fmt.Errorf("load ng table: %w", err)
	}

	var templates []string
	if tpl, err := dataset.LoadTemplateMessages(cfg.TemplateFilePath); err != nil {
		logger.Warn("template messages unavailable", "path", cfg.TemplateFilePath, "error", err)
	} else {
		templates = tpl.Messages
	}

	var interactions ports.InteractionLog
	var closeInteractions func()
	if cfg.InteractionLogOn {
		writer, err := interactionlog.NewWriter(cfg.InteractionLogDir)
		if err != nil {
			return nil, fmt.Errorf("init interaction log: %w", err)
		}
		interactions = writer
		closeInteractions = func() { _ = writer.Close() }
	}

	httpMetrics := metrics.NewHTTPServerMetrics("answerd-api")

	chat, closeDB, err := newChatService(ctx, cfg, logger)
	if err != nil {
		if closeInteractions != nil {
			closeInteractions()
		}
		return nil, err
	}

	gate := usecase.NewResponseGate(ngTable, strategies, model, interactions, httpMetrics,
		logging.WithComponent(logger, "response_gate"))

	return &APIApp{
		Config:     cfg,
		Logger:     logger,
		Gate:       gate,
		Classifier: usecase.NewCommentClassifier(model, logging.WithComponent(logger, "comment_classifier")),
		Inspector:  usecase.NewKnowledgeInspector(hybrid, qaStore),
		Chat:       chat,
		Templates:  templates,
		Metrics:    httpMetrics,
		closeFn: func() {
			closeDB()
			if closeInteractions != nil {
				closeInteractions()
			}
			_ = model.Close()
		},
	}, nil
}

// NewWorker builds the comment classification worker application.
func NewWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*WorkerApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := newExecutor(logger)

	model, err := newModelClient(ctx, cfg, executor)
	if err != nil {
		return nil, fmt.Errorf("init model client: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init comment queue: %w", err)
	}

	chat, closeDB, err := newChatService(ctx, cfg, logger)
	if err != nil {
		queue.Close()
		return nil, err
	}

	return &WorkerApp{
		Config:     cfg,
		Logger:     logger,
		Queue:      queue,
		Classifier: usecase.NewCommentClassifier(model, logging.WithComponent(logger, "comment_classifier")),
		Chat:       chat,
		Metrics:    metrics.NewWorkerMetrics("answerd-worker"),
		closeFn: func() {
			queue.Close()
			closeDB()
			_ = model.Close()
		},
	}, nil
}

func (a *APIApp) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func (a *WorkerApp) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
