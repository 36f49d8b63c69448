package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/aituberdev/answerd/internal/infrastructure/resilience"
)

// Client wraps the Gemini SDK behind the generator and embedder ports. Two
// generative model handles are kept: one constrained to JSON output, one
// free-form for the bare-integer reranker replies.
type Client struct {
	client     *genai.Client
	jsonModel  *genai.GenerativeModel
	textModel  *genai.GenerativeModel
	embedModel *genai.EmbeddingModel
	executor   *resilience.Executor
}

type Config struct {
	APIKey         string
	GenerateModel  string
	EmbeddingModel string
	Temperature    float32
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key is empty")
	}
	if cfg.GenerateModel == "" {
		cfg.GenerateModel = "gemini-1.5-pro"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	jsonModel := client.GenerativeModel(cfg.GenerateModel)
	jsonModel.ResponseMIMEType = "application/json"
	jsonModel.SetTemperature(cfg.Temperature)

	textModel := client.GenerativeModel(cfg.GenerateModel)
	textModel.SetTemperature(cfg.Temperature)

	return &Client{
		client:     client,
		jsonModel:  jsonModel,
		textModel:  textModel,
		embedModel: client.EmbeddingModel(cfg.EmbeddingModel),
		executor:   executor,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, c.jsonModel, "generate_json", prompt)
}

func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, c.textModel, "generate_text", prompt)
}

func (c *Client) generate(ctx context.Context, model *genai.GenerativeModel, operation, prompt string) (string, error) {
	var out string
	err := c.executor.Execute(ctx, operation, func(ctx context.Context) error {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return fmt.Errorf("gemini %s: %w", operation, err)
		}
		text, err := responseText(resp)
		if err != nil {
			return fmt.Errorf("gemini %s: %w", operation, err)
		}
		out = text
		return nil
	}, classifyGeminiError)
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	return out, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out [][]float32
	err := c.executor.Execute(ctx, "embed", func(ctx context.Context) error {
		batch := c.embedModel.NewBatch()
		for _, text := range texts {
			batch.AddContent(genai.Text(text))
		}
		resp, err := c.embedModel.BatchEmbedContents(ctx, batch)
		if err != nil {
			return fmt.Errorf("gemini embed: %w", err)
		}
		if len(resp.Embeddings) != len(texts) {
			return fmt.Errorf("gemini embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
		}
		vectors := make([][]float32, len(resp.Embeddings))
		for i, embedding := range resp.Embeddings {
			vectors[i] = embedding.Values
		}
		out = vectors
		return nil
	}, classifyGeminiError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("gemini embed: empty result")
	}
	return vectors[0], nil
}

// responseText flattens the first candidate's text parts. A reply blocked by
// safety filtering has no candidates and is reported as such.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("no text parts in response")
	}
	return out, nil
}
