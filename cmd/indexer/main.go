package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/aituberdev/answerd/internal/config"
	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/infrastructure/dataset"
	"github.com/aituberdev/answerd/internal/infrastructure/index/vector"
	"github.com/aituberdev/answerd/internal/infrastructure/llm/gemini"
	"github.com/aituberdev/answerd/internal/infrastructure/resilience"
	"github.com/aituberdev/answerd/internal/observability/logging"
)

// The indexer is run offline whenever the manifesto corpus changes. It embeds
// the knowledge and QA corpora and writes the bbolt artifacts the api server
// opens read-only at startup.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("answerd-indexer", cfg.LogLevel)

	knowledgeCSV := flag.String("knowledge", cfg.KnowledgeCSVPath, "knowledge corpus CSV")
	manifestoPDF := flag.String("pdf", "", "optional manifesto PDF to chunk and append to the knowledge corpus")
	qaFile := flag.String("qa", cfg.QAFilePath, "QA exemplar file (.xlsx or .csv)")
	knowledgeOut := flag.String("knowledge-out", cfg.KnowledgeIndexPath, "knowledge index artifact path")
	qaOut := flag.String("qa-out", cfg.QAIndexPath, "QA index artifact path")
	chunkSize := flag.Int("chunk-size", 300, "chunk size in runes for PDF text")
	flag.Parse()

	ctx := context.Background()

	rcfg := resilience.DefaultConfig()
	rcfg.Logger = logger
	model, err := gemini.New(ctx, gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		GenerateModel:  cfg.GeminiGenerateModel,
		EmbeddingModel: cfg.GeminiEmbeddingModel,
	}, resilience.NewExecutor(rcfg))
	if err != nil {
		logger.Error("init model client", "error", err)
		os.Exit(1)
	}

	docs, err := dataset.LoadKnowledgeCSV(*knowledgeCSV)
	if err != nil {
		logger.Error("load knowledge corpus", "path", *knowledgeCSV, "error", err)
		os.Exit(1)
	}
	docs = dataset.ChunkDocuments(docs, *chunkSize)
	if *manifestoPDF != "" {
		pdfDocs, err := chunkManifestoPDF(*manifestoPDF, *chunkSize, len(docs))
		if err != nil {
			logger.Error("chunk manifesto pdf", "path", *manifestoPDF, "error", err)
			os.Exit(1)
		}
		logger.Info("manifesto pdf chunked", "path", *manifestoPDF, "chunks", len(pdfDocs))
		docs = append(docs, pdfDocs...)
	}

	if err := buildArtifact(ctx, *knowledgeOut, docs, model, cfg.GeminiEmbeddingModel); err != nil {
		logger.Error("build knowledge index", "error", err)
		os.Exit(1)
	}
	logger.Info("knowledge index built", "path", *knowledgeOut, "documents", len(docs))

	exemplars, err := loadExemplars(*qaFile)
	if err != nil {
		logger.Error("load qa exemplars", "path", *qaFile, "error", err)
		os.Exit(1)
	}
	qaDocs := make([]domain.KnowledgeDocument, 0, len(exemplars))
	for i, ex := range exemplars {
		qaDocs = append(qaDocs, domain.KnowledgeDocument{
			Content:  ex.PageContent(),
			Metadata: domain.DocumentMetadata{Row: i + 1},
		})
	}
	if err := buildArtifact(ctx, *qaOut, qaDocs, model, cfg.GeminiEmbeddingModel); err != nil {
		logger.Error("build qa index", "error", err)
		os.Exit(1)
	}
	logger.Info("qa index built", "path", *qaOut, "documents", len(qaDocs))
}

func buildArtifact(ctx context.Context, path string, docs []domain.KnowledgeDocument, model *gemini.Client, embeddingModel string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	return vector.Build(ctx, path, docs, model, embeddingModel)
}

func loadExemplars(path string) ([]domain.QAExemplar, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return dataset.LoadQACSV(path)
	}
	return dataset.LoadQAXLSX(path)
}

// chunkManifestoPDF extracts one slide per PDF page and cuts it into
// retrieval-sized chunks. Every chunk of a page shares the page's slide
// image, so a retrieved chunk still points the avatar at the right slide.
func chunkManifestoPDF(path string, chunkSize, rowOffset int) ([]domain.KnowledgeDocument, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	var docs []domain.KnowledgeDocument
	row := rowOffset
	for page := 1; page <= reader.NumPage(); page++ {
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", page, err)
		}
		for _, chunk := range dataset.ChunkText(text, chunkSize) {
			row++
			docs = append(docs, domain.KnowledgeDocument{
				Content: chunk,
				Metadata: domain.DocumentMetadata{
					Row:   row,
					Image: fmt.Sprintf("slide_%d.png", page),
				},
			})
		}
	}
	return docs, nil
}
