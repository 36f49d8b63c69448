package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aituberdev/answerd/internal/config"
	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/usecase"
	"github.com/aituberdev/answerd/internal/infrastructure/dataset"
	"github.com/aituberdev/answerd/internal/infrastructure/index/lexical"
	"github.com/aituberdev/answerd/internal/infrastructure/index/vector"
	"github.com/aituberdev/answerd/internal/infrastructure/llm/gemini"
	"github.com/aituberdev/answerd/internal/infrastructure/resilience"
	"github.com/aituberdev/answerd/internal/observability/logging"
)

// rageval replays the curated QA set through the full answer pipeline and
// writes one CSV row per question: the generated answer, the hallucination
// verdict and whether retrieval landed on one of the expected slides.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("answerd-rageval", cfg.LogLevel)

	qaFile := flag.String("qa", cfg.QAFilePath, "QA exemplar file (.xlsx or .csv)")
	outPath := flag.String("out", "./data/rageval_results.csv", "result CSV path")
	modeFlag := flag.String("mode", cfg.RetrievalMode, "retrieval mode to evaluate")
	concurrency := flag.Int("concurrency", 4, "parallel evaluations")
	flag.Parse()

	mode, err := domain.ParseRetrievalMode(*modeFlag)
	if err != nil {
		logger.Error("unknown retrieval mode", "value", *modeFlag)
		os.Exit(1)
	}

	ctx := context.Background()
	gate, err := buildGate(ctx, cfg, logger)
	if err != nil {
		logger.Error("pipeline setup failed", "error", err)
		os.Exit(1)
	}

	exemplars, err := loadExemplars(*qaFile)
	if err != nil {
		logger.Error("load qa exemplars", "path", *qaFile, "error", err)
		os.Exit(1)
	}
	logger.Info("evaluation started", "questions", len(exemplars), "mode", mode)

	results := make([]evalResult, len(exemplars))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(*concurrency)
	for i, ex := range exemplars {
		group.Go(func() error {
			start := time.Now()
			report, err := gate.CheckHallucination(groupCtx, ex.Question, mode)
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			results[i] = evalResult{
				exemplar: ex,
				report:   report,
				latency:  time.Since(start),
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error("evaluation failed", "error", err)
		os.Exit(1)
	}

	if err := writeResults(*outPath, results); err != nil {
		logger.Error("write results", "path", *outPath, "error", err)
		os.Exit(1)
	}

	hits := 0
	clean := 0
	for _, res := range results {
		if res.slideHit() {
			hits++
		}
		if res.report.Class == domain.HallucinationNone {
			clean++
		}
	}
	logger.Info("evaluation finished",
		"questions", len(results),
		"slide_hits", hits,
		"clean_answers", clean,
		"out", *outPath)
}

type evalResult struct {
	exemplar domain.QAExemplar
	report   domain.HallucinationReport
	latency  time.Duration
}

// slideHit reports whether the slide behind the served answer is one of the
// slides the annotators expect for this question. Questions without
// annotation never count as hits.
func (r evalResult) slideHit() bool {
	slide, ok := slideNumber(r.report.Metadata.Image)
	if !ok {
		return false
	}
	for _, want := range r.exemplar.EvalSlideNumbers {
		if slide == want {
			return true
		}
	}
	return false
}

func slideNumber(image string) (int, bool) {
	name := strings.TrimSuffix(image, filepath.Ext(image))
	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// buildGate wires the retrieval and generation pipeline without the serving
// concerns: no postgres, no interaction log, no metrics.
func buildGate(ctx context.Context, cfg config.Config, logger *slog.Logger) (*usecase.ResponseGate, error) {
	rcfg := resilience.DefaultConfig()
	rcfg.Logger = logger
	executor := resilience.NewExecutor(rcfg)

	model, err := gemini.New(ctx, gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		GenerateModel:  cfg.GeminiGenerateModel,
		EmbeddingModel: cfg.GeminiEmbeddingModel,
		Temperature:    float32(cfg.GeminiTemperature),
	}, executor)
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

	hybrid := usecase.NewHybridRetriever(lexical.NewIndex(tok, dataset.ChunkDocuments(docs, 0)), knowledgeStore)
	reranker := usecase.NewReranker(model, logger)
	strategies := usecase.NewRetrievalStrategies(qaStore, knowledgeStore, hybrid, reranker, cfg.RetrievalTopK, cfg.RerankTopN)

	ngTable, err := dataset.LoadNGTable(cfg.NGTablePath)
	if err != nil {
		return nil, fmt.Errorf("load ng table: %w", err)
	}

	return usecase.NewResponseGate(ngTable, strategies, model, nil, nil, logger), nil
}

func loadExemplars(path string) ([]domain.QAExemplar, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return dataset.LoadQACSV(path)
	}
	return dataset.LoadQAXLSX(path)
}

func writeResults(path string, results []evalResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer file.Close()

	// UTF-8 BOM so spreadsheet tools render the Japanese columns.
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	w := csv.NewWriter(file)
	header := []string{
		"question", "expected_answer", "eval_aspect", "expected_slides",
		"response", "hal_cls", "retrieved_row", "retrieved_image",
		"slide_hit", "latency_ms",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, res := range results {
		slides := make([]string, 0, len(res.exemplar.EvalSlideNumbers))
		for _, n := range res.exemplar.EvalSlideNumbers {
			slides = append(slides, strconv.Itoa(n))
		}
		row := []string{
			res.exemplar.Question,
			res.exemplar.Answer,
			res.exemplar.EvalAspect,
			strings.Join(slides, ","),
			res.report.ResponseText,
			strconv.Itoa(int(res.report.Class)),
			strconv.Itoa(res.report.Metadata.Row),
			res.report.Metadata.Image,
			strconv.FormatBool(res.slideHit()),
			strconv.FormatFloat(float64(res.latency.Milliseconds()), 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
